package signal

import (
	"context"
	"log"

	"perp-signal-agent/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// HeadlineFetcher supplies the ranked headline texts for one cycle. A
// failed fetch surfaces as an empty slice, never an error.
type HeadlineFetcher interface {
	Headlines(ctx context.Context) []string
}

// SentimentScorer maps each text to a score in [-1,1], same length and
// order as the input. Individual failures contribute 0.0.
type SentimentScorer interface {
	ScoreAll(ctx context.Context, texts []string) []float64
}

type Config struct {
	HorizonBars int
	Blend       BlendConfig
}

// Engine evaluates the blended signal for one cycle. It holds no state
// between cycles: the classifier is refit from scratch on every call.
type Engine struct {
	tracer    trace.Tracer
	news      HeadlineFetcher
	sentiment SentimentScorer
	cfg       Config
}

func NewEngine(tracer trace.Tracer, news HeadlineFetcher, sentiment SentimentScorer, cfg Config) *Engine {
	if cfg.HorizonBars <= 0 {
		cfg.HorizonBars = 3
	}
	if cfg.Blend.PriceWeight == 0 && cfg.Blend.NewsWeight == 0 {
		cfg.Blend = DefaultBlendConfig()
	}
	return &Engine{tracer: tracer, news: news, sentiment: sentiment, cfg: cfg}
}

// Decide runs the full pipeline: classifier probability from candles,
// aggregate sentiment from headlines, then the blend. Missing
// collaborators and provider failures fold into neutral contributions;
// Decide itself never fails.
func (e *Engine) Decide(ctx context.Context, candles []domain.Candle) domain.Decision {
	_, span := e.tracer.Start(ctx, "signal.decide")
	defer span.End()

	price := PriceModelSignal(candles, e.cfg.HorizonBars, e.cfg.Blend.MinPriceModelProba)
	log.Printf("price model: proba_up=%.3f flag=%d (%d candles)", price.ProbaUp, price.Flag, len(candles))

	sentiment := 0.0
	if e.news != nil && e.sentiment != nil {
		headlines := e.news.Headlines(ctx)
		if len(headlines) == 0 {
			log.Println("no headlines this cycle, sentiment neutral")
		} else {
			scores := e.sentiment.ScoreAll(ctx, headlines)
			sentiment = meanScore(scores)
			log.Printf("news processed: %d headlines, sentiment avg %.3f", len(headlines), sentiment)
		}
	}

	return Blend(price.ProbaUp, sentiment, e.cfg.Blend)
}

// meanScore averages per-headline scores, zeros included; an empty batch
// is neutral.
func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
