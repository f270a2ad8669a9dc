package domain

import "time"

type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionSkip  Direction = "skip"
)

// Headline is one news item fetched for a single decision cycle.
// Items are never persisted; PublishedAt may be zero when the source
// omits a timestamp.
type Headline struct {
	Text        string
	PublishedAt time.Time
}

// Decision is the sole output of one evaluation cycle. The diagnostic
// fields are rounded to 3 decimals so notifications and the HTTP surface
// show the same numbers.
type Decision struct {
	Direction     Direction `json:"direction"`
	ProbaUp       float64   `json:"proba_up"`
	NewsSentiment float64   `json:"news_sentiment"`
	Blended       float64   `json:"blended"`
}
