package news

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestNewsAPIFetch(t *testing.T) {
	p := NewNewsAPIProvider("nakey", testTracer())
	p.baseURL = "https://example.com"
	p.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v2/everything" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		q := req.URL.Query()
		if q.Get("apiKey") != "nakey" || q.Get("language") != "en" || q.Get("sortBy") != "publishedAt" {
			t.Fatalf("unexpected query: %s", req.URL.RawQuery)
		}
		if q.Get("q") != "ETH OR crypto market" {
			t.Fatalf("unexpected q param: %s", q.Get("q"))
		}
		if q.Get("from") != "2026-09-01T06:00:00Z" {
			t.Fatalf("unexpected from param: %s", q.Get("from"))
		}
		body := `{"articles":[
			{"title":"ETH ETF inflows grow","publishedAt":"2026-09-01T11:00:00Z"},
			{"title":"  ","publishedAt":"2026-09-01T10:00:00Z"},
			{"title":"Funding rates flip positive","publishedAt":"2026-09-01T09:00:00Z"}
		]}`
		return jsonResponse(http.StatusOK, body), nil
	})}

	items, err := p.Fetch(context.Background(), "ETH", 6*time.Hour, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(items))
	}
	if items[0].Text != "ETH ETF inflows grow" {
		t.Fatalf("unexpected title: %s", items[0].Text)
	}
	if !items[1].PublishedAt.Equal(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published time: %v", items[1].PublishedAt)
	}
}

func TestNewsAPIFetchCapsResults(t *testing.T) {
	p := NewNewsAPIProvider("nakey", testTracer())
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body := `{"articles":[{"title":"a"},{"title":"b"},{"title":"c"}]}`
		return jsonResponse(http.StatusOK, body), nil
	})}

	items, err := p.Fetch(context.Background(), "ETH", time.Hour, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected cap at 2, got %d", len(items))
	}
}

func TestNewsAPIFetchWithoutKey(t *testing.T) {
	p := NewNewsAPIProvider("", testTracer())
	if _, err := p.Fetch(context.Background(), "ETH", time.Hour, 5); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestNewsAPIFetchServerError(t *testing.T) {
	p := NewNewsAPIProvider("nakey", testTracer())
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"status":"error"}`), nil
	})}

	if _, err := p.Fetch(context.Background(), "ETH", time.Hour, 5); err == nil {
		t.Fatal("expected error on 429")
	}
}
