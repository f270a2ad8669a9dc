package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

const (
	finbertBaseURL      = "https://router.huggingface.co"
	defaultFinbertModel = "ProsusAI/finbert"
)

// FinBERTScorer scores one text at a time against a hosted sentiment
// classification model. Per-text score is P(positive) - P(negative); the
// neutral class contributes nothing.
type FinBERTScorer struct {
	client  *http.Client
	baseURL string
	model   string
	token   string
	tracer  trace.Tracer
}

func NewFinBERTScorer(token, model string, tracer trace.Tracer) *FinBERTScorer {
	if strings.TrimSpace(model) == "" {
		model = defaultFinbertModel
	}
	return &FinBERTScorer{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: finbertBaseURL,
		model:   model,
		token:   strings.TrimSpace(token),
		tracer:  tracer,
	}
}

// ScoreAll maps each text to a score in [-1,1], same length and order as
// the input. Any per-text failure emits 0.0 and the batch continues; one
// bad headline never poisons the rest.
func (s *FinBERTScorer) ScoreAll(ctx context.Context, texts []string) []float64 {
	_, span := s.tracer.Start(ctx, "sentiment.score-all")
	defer span.End()

	scores := make([]float64, len(texts))
	for i, text := range texts {
		score, err := s.scoreOne(ctx, text)
		if err != nil {
			log.Printf("sentiment inference error for %q: %v", truncate(text, 50), err)
			continue
		}
		scores[i] = score
	}
	return scores
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (s *FinBERTScorer) scoreOne(ctx context.Context, text string) (float64, error) {
	if s.token == "" {
		return 0, fmt.Errorf("sentiment api token not configured")
	}

	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return 0, err
	}
	u := strings.TrimRight(s.baseURL, "/") + "/hf-inference/models/" + s.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("sentiment API error %d: %s", resp.StatusCode, string(body))
	}
	return parseClassifierOutput(body)
}

// parseClassifierOutput accepts the three shapes the inference endpoint is
// known to return: a nested list of {label,score}, a flat list, or a
// single {label,score} object.
func parseClassifierOutput(body []byte) (float64, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(body, &nested); err == nil && len(nested) > 0 {
		return labelScoreDiff(nested[0]), nil
	}

	var flat []labelScore
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return labelScoreDiff(flat), nil
	}

	var single labelScore
	if err := json.Unmarshal(body, &single); err == nil && single.Label != "" {
		label := strings.ToLower(single.Label)
		switch {
		case strings.Contains(label, "positive"):
			return single.Score, nil
		case strings.Contains(label, "negative"):
			return -single.Score, nil
		default:
			return 0, nil
		}
	}

	return 0, fmt.Errorf("unrecognized classifier payload: %s", truncate(string(body), 120))
}

func labelScoreDiff(pairs []labelScore) float64 {
	var pos, neg float64
	for _, p := range pairs {
		switch strings.ToLower(p.Label) {
		case "positive":
			pos = p.Score
		case "negative":
			neg = p.Score
		}
	}
	return pos - neg
}

// truncate shortens log output without splitting a multi-byte rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
