package features

import (
	"math"
	"sort"

	"perp-signal-agent/internal/domain"
	"perp-signal-agent/internal/ta"
)

const (
	rsiPeriod  = 14
	emaFast    = 20
	emaSlow    = 50
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bbPeriod   = 20
	bbStdDevs  = 2.0
	atrPeriod  = 14
)

// Row is one feature vector derived from a candle. Close is carried along
// so labels can be computed on the post-drop series.
type Row struct {
	Close      float64
	Ret1       float64
	Ret3       float64
	Ret6       float64
	RSI        float64
	EMA20      float64
	EMA50      float64
	EMASpread  float64
	MACD       float64
	MACDSignal float64
	BBLow      float64
	BBHigh     float64
	PriceBBPos float64
	ATR        float64
}

// FeatureNames lists the columns fed to the classifier, in vector order.
var FeatureNames = []string{
	"ret1", "ret3", "ret6", "rsi", "ema_spread",
	"macd", "macd_signal", "price_bb_pos", "atr",
}

// Vector returns the model input for a row. EMA20/EMA50 and the raw band
// edges stay out of the vector; they only feed the derived spread/position
// columns.
func Vector(r Row) []float64 {
	return []float64{
		r.Ret1, r.Ret3, r.Ret6, r.RSI, r.EMASpread,
		r.MACD, r.MACDSignal, r.PriceBBPos, r.ATR,
	}
}

// Build transforms candles into feature rows. Rows containing any NaN or
// infinite column are dropped entirely, so the output is usually shorter
// than the input. Pure function of its input.
func Build(candles []domain.Candle) []Row {
	sorted := make([]domain.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OpenTime.Before(sorted[j].OpenTime)
	})

	n := len(sorted)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, c := range sorted {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}

	ret1 := ta.PctChangeSeries(closes, 1)
	ret3 := ta.PctChangeSeries(closes, 3)
	ret6 := ta.PctChangeSeries(closes, 6)
	rsi := ta.RSISeries(closes, rsiPeriod)
	ema20 := ta.EMASeries(closes, emaFast)
	ema50 := ta.EMASeries(closes, emaSlow)
	macdLine, macdSig := ta.MACDSeries(closes, macdFast, macdSlow, macdSignal)
	_, bbUpper, bbLower := ta.BollingerSeries(closes, bbPeriod, bbStdDevs)
	atr := ta.ATRSeries(highs, lows, closes, atrPeriod)

	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		spread := math.NaN()
		if closes[i] != 0 {
			spread = (ema20[i] - ema50[i]) / closes[i]
		}
		bbPos := math.NaN()
		if width := bbUpper[i] - bbLower[i]; width != 0 {
			bbPos = (closes[i] - bbLower[i]) / width
		}

		row := Row{
			Close:      closes[i],
			Ret1:       ret1[i],
			Ret3:       ret3[i],
			Ret6:       ret6[i],
			RSI:        rsi[i],
			EMA20:      ema20[i],
			EMA50:      ema50[i],
			EMASpread:  spread,
			MACD:       macdLine[i],
			MACDSignal: macdSig[i],
			BBLow:      bbLower[i],
			BBHigh:     bbUpper[i],
			PriceBBPos: bbPos,
			ATR:        atr[i],
		}
		if rowHasNaN(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func rowHasNaN(r Row) bool {
	return anyNaN(
		r.Close, r.Ret1, r.Ret3, r.Ret6, r.RSI, r.EMA20, r.EMA50,
		r.EMASpread, r.MACD, r.MACDSignal, r.BBLow, r.BBHigh,
		r.PriceBBPos, r.ATR,
	)
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
