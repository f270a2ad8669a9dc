package signal

import (
	"perp-signal-agent/internal/domain"
	"perp-signal-agent/internal/signal/features"
	"perp-signal-agent/internal/signal/logreg"
)

// minTrainingRows is the fixed floor of label-bearing rows below which the
// classifier abstains with the neutral default.
const minTrainingRows = 50

// Flag values reported alongside the probability.
const (
	FlagConfidentUp   = 1
	FlagConfidentDown = 0
	FlagLowConfidence = -1
)

type PriceSignal struct {
	ProbaUp float64
	Flag    int
}

var neutralSignal = PriceSignal{ProbaUp: 0.5, Flag: FlagConfidentDown}

// PriceModelSignal refits a logistic classifier on the label-bearing
// feature rows and scores the most recent row, which the undefined tail
// labels keep out of the training set. Any shortfall in usable rows, and
// any training failure, degrades to the neutral (0.5, 0) default rather
// than failing the cycle.
func PriceModelSignal(candles []domain.Candle, horizon int, minProba float64) PriceSignal {
	if horizon <= 0 {
		horizon = 3
	}

	rows := features.Build(candles)
	labels := features.Labels(rows, horizon)
	if len(labels) < minTrainingRows {
		return neutralSignal
	}

	samples := make([][]float64, len(labels))
	for i := range labels {
		samples[i] = features.Vector(rows[i])
	}

	model, err := logreg.Train(samples, labels, logreg.DefaultTrainOptions())
	if err != nil {
		return neutralSignal
	}

	probaUp := model.PredictProb(features.Vector(rows[len(rows)-1]))

	flag := FlagLowConfidence
	switch {
	case probaUp >= minProba:
		flag = FlagConfidentUp
	case (1 - probaUp) >= minProba:
		flag = FlagConfidentDown
	}
	return PriceSignal{ProbaUp: probaUp, Flag: flag}
}
