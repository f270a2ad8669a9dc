package news

import (
	"context"
	"log"
	"time"

	"perp-signal-agent/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Source is one headline provider. Any network or parse error yields an
// error here and an empty contribution at the aggregator.
type Source interface {
	Fetch(ctx context.Context, currency string, lookback time.Duration, max int) ([]domain.Headline, error)
}

type Config struct {
	Currency      string
	LookbackHours int
	MaxHeadlines  int
	// ExcludeStale drops headlines older than the lookback window instead
	// of tagging them. Off by default: the historical behavior keeps stale
	// items with an " (old)" suffix so they still feed sentiment.
	ExcludeStale bool
}

// Aggregator tries the preferred source first and falls back to the
// secondary whenever the preferred yields zero headlines, for whatever
// reason. Both sources are independently fault tolerant.
type Aggregator struct {
	tracer    trace.Tracer
	preferred Source
	secondary Source
	cfg       Config
	now       func() time.Time
}

func NewAggregator(tracer trace.Tracer, preferred, secondary Source, cfg Config) *Aggregator {
	if cfg.LookbackHours <= 0 {
		cfg.LookbackHours = 6
	}
	if cfg.MaxHeadlines <= 0 {
		cfg.MaxHeadlines = 12
	}
	if cfg.Currency == "" {
		cfg.Currency = "ETH"
	}
	return &Aggregator{
		tracer:    tracer,
		preferred: preferred,
		secondary: secondary,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Headlines returns at most MaxHeadlines texts for this cycle. Stale items
// are suffixed with " (old)" (or dropped when ExcludeStale). The stale
// filter runs per source, so a preferred source left with nothing usable
// still triggers the fallback. A total failure of both sources is an empty
// slice, never an error.
func (a *Aggregator) Headlines(ctx context.Context) []string {
	_, span := a.tracer.Start(ctx, "news.headlines")
	defer span.End()

	lookback := time.Duration(a.cfg.LookbackHours) * time.Hour
	cutoff := a.now().UTC().Add(-lookback)

	out := a.collect(ctx, a.preferred, "preferred", lookback, cutoff)
	if len(out) == 0 {
		out = a.collect(ctx, a.secondary, "secondary", lookback, cutoff)
	}
	if len(out) == 0 {
		log.Println("no news headlines found from any source")
		return nil
	}
	return out
}

func (a *Aggregator) collect(ctx context.Context, src Source, name string, lookback time.Duration, cutoff time.Time) []string {
	items := a.fetchFrom(ctx, src, name, lookback)
	out := make([]string, 0, len(items))
	for _, h := range items {
		stale := !h.PublishedAt.IsZero() && h.PublishedAt.Before(cutoff)
		if stale && a.cfg.ExcludeStale {
			continue
		}
		text := h.Text
		if stale {
			text += " (old)"
		}
		out = append(out, text)
		if len(out) >= a.cfg.MaxHeadlines {
			break
		}
	}
	return out
}

func (a *Aggregator) fetchFrom(ctx context.Context, src Source, name string, lookback time.Duration) []domain.Headline {
	if src == nil {
		return nil
	}
	items, err := src.Fetch(ctx, a.cfg.Currency, lookback, a.cfg.MaxHeadlines)
	if err != nil {
		log.Printf("%s news source error: %v", name, err)
		return nil
	}
	return items
}
