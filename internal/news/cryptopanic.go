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

const cryptoPanicBaseURL = "https://cryptopanic.com"

// CryptoPanicProvider fetches rising/hot/important news posts for one
// currency from the CryptoPanic public API.
type CryptoPanicProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
}

func NewCryptoPanicProvider(apiKey string, tracer trace.Tracer) *CryptoPanicProvider {
	return &CryptoPanicProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: cryptoPanicBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		tracer:  tracer,
	}
}

// Fetch returns up to max headlines. The API has no lookback filter;
// recency is handled downstream by the aggregator's stale marking.
func (p *CryptoPanicProvider) Fetch(ctx context.Context, currency string, _ time.Duration, max int) ([]domain.Headline, error) {
	_, span := p.tracer.Start(ctx, "cryptopanic.fetch")
	defer span.End()

	if p.apiKey == "" {
		return nil, fmt.Errorf("cryptopanic api key not configured")
	}
	if max <= 0 {
		max = 12
	}

	q := url.Values{}
	q.Set("auth_token", p.apiKey)
	q.Set("public", "true")
	q.Set("currencies", strings.ToUpper(strings.TrimSpace(currency)))
	q.Set("kind", "news")
	q.Set("filter", "rising,hot,important")

	u := strings.TrimRight(p.baseURL, "/") + "/api/v1/posts/?" + q.Encode()
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
		return nil, fmt.Errorf("cryptopanic API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Results []struct {
			Title       string `json:"title"`
			Slug        string `json:"slug"`
			PublishedAt string `json:"published_at"`
			CreatedAt   string `json:"created_at"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode cryptopanic response: %w", err)
	}

	items := make([]domain.Headline, 0, len(payload.Results))
	for _, row := range payload.Results {
		title := strings.TrimSpace(row.Title)
		if title == "" {
			title = strings.TrimSpace(row.Slug)
		}
		if title == "" {
			continue
		}
		published := parseISOTime(row.PublishedAt)
		if published.IsZero() {
			published = parseISOTime(row.CreatedAt)
		}
		items = append(items, domain.Headline{Text: title, PublishedAt: published})
		if len(items) >= max {
			break
		}
	}
	return items, nil
}

func parseISOTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
