package signal

import (
	"math"

	"perp-signal-agent/internal/domain"
)

// blendMagnitudeThreshold is the fixed distance from zero the blended score
// must clear before either side is considered.
const blendMagnitudeThreshold = 0.1

type BlendConfig struct {
	PriceWeight              float64
	NewsWeight               float64
	MinPriceModelProba       float64
	MinNewsSentiment         float64
	MaxNewsSentimentForShort float64
}

func DefaultBlendConfig() BlendConfig {
	return BlendConfig{
		PriceWeight:              0.6,
		NewsWeight:               0.4,
		MinPriceModelProba:       0.55,
		MinNewsSentiment:         0.10,
		MaxNewsSentimentForShort: -0.10,
	}
}

// Blend combines the classifier probability and the aggregate news
// sentiment into one Decision. Pure function: identical inputs always
// yield identical output. Diagnostics are rounded to 3 decimals whatever
// the direction.
func Blend(probaUp, sentiment float64, cfg BlendConfig) domain.Decision {
	priceComponent := (probaUp - 0.5) * 2
	blended := cfg.PriceWeight*priceComponent + cfg.NewsWeight*sentiment

	direction := domain.DirectionSkip
	switch {
	case blended >= blendMagnitudeThreshold &&
		probaUp >= cfg.MinPriceModelProba &&
		sentiment >= cfg.MinNewsSentiment:
		direction = domain.DirectionLong
	case blended <= -blendMagnitudeThreshold &&
		(1-probaUp) >= cfg.MinPriceModelProba &&
		sentiment <= cfg.MaxNewsSentimentForShort:
		direction = domain.DirectionShort
	}

	return domain.Decision{
		Direction:     direction,
		ProbaUp:       round3(probaUp),
		NewsSentiment: round3(sentiment),
		Blended:       round3(blended),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
