package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/trace"
)

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// OpenAIScorer is the alternative LLM backend: one chat completion per
// batch instead of one inference call per headline.
type OpenAIScorer struct {
	client openAIChatClient
	model  string
	tracer trace.Tracer
}

func NewOpenAIScorer(apiKey, model string, tracer trace.Tracer) *OpenAIScorer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIScorer{
		client: &openAIClient{client: client},
		model:  model,
		tracer: tracer,
	}
}

// ScoreAll keeps the same contract as the classifier backend: output
// aligned with input, failures diluted to 0.0. A batch-level parse or API
// failure yields a zero vector.
func (s *OpenAIScorer) ScoreAll(ctx context.Context, texts []string) []float64 {
	scores := make([]float64, len(texts))
	if s == nil || s.client == nil || len(texts) == 0 {
		return scores
	}

	_, span := s.tracer.Start(ctx, "sentiment.score-all-llm")
	defer span.End()

	var sb strings.Builder
	for i, text := range texts {
		sb.WriteString(fmt.Sprintf("%d: %s\n", i, strings.TrimSpace(text)))
	}

	systemPrompt := "You score financial news sentiment. Return ONLY a JSON array. " +
		"Each object requires: index (int, matching the input line), score (float in -1..1, " +
		"positive for bullish, negative for bearish). No markdown."

	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage("Headlines:\n" + sb.String()),
		},
	})
	if err != nil {
		log.Printf("llm sentiment error: %v", err)
		return scores
	}
	if len(completion.Choices) == 0 {
		log.Println("llm sentiment: empty completion")
		return scores
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)
	var parsed []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("llm sentiment parse error: %v", err)
		return scores
	}

	for _, row := range parsed {
		if row.Index < 0 || row.Index >= len(scores) {
			continue
		}
		scores[row.Index] = clamp(row.Score, -1, 1)
	}
	return scores
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
