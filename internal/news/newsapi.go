package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"perp-signal-agent/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const newsAPIBaseURL = "https://newsapi.org"

// NewsAPIProvider is the secondary headline source, queried when the
// preferred provider yields nothing.
type NewsAPIProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	now     func() time.Time
}

func NewNewsAPIProvider(apiKey string, tracer trace.Tracer) *NewsAPIProvider {
	return &NewsAPIProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: newsAPIBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		tracer:  tracer,
		now:     time.Now,
	}
}

func (p *NewsAPIProvider) Fetch(ctx context.Context, currency string, lookback time.Duration, max int) ([]domain.Headline, error) {
	_, span := p.tracer.Start(ctx, "newsapi.fetch")
	defer span.End()

	if p.apiKey == "" {
		return nil, fmt.Errorf("newsapi key not configured")
	}
	if max <= 0 {
		max = 12
	}

	topic := strings.TrimSpace(currency)
	if topic == "" {
		topic = "crypto"
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s OR crypto market", topic))
	q.Set("pageSize", fmt.Sprintf("%d", max))
	q.Set("from", p.now().UTC().Add(-lookback).Format(time.RFC3339))
	q.Set("sortBy", "publishedAt")
	q.Set("language", "en")
	q.Set("apiKey", p.apiKey)

	u := strings.TrimRight(p.baseURL, "/") + "/v2/everything?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("newsapi error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Articles []struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}

	items := make([]domain.Headline, 0, len(payload.Articles))
	for _, row := range payload.Articles {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			continue
		}
		items = append(items, domain.Headline{Text: title, PublishedAt: parseISOTime(row.PublishedAt)})
		if len(items) >= max {
			break
		}
	}
	return items, nil
}
