package features

import (
	"math"
	"testing"
	"time"

	"perp-signal-agent/internal/domain"
)

func syntheticCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := 2500.0
	for i := 0; i < n; i++ {
		// deterministic wobble so bands never collapse
		price += math.Sin(float64(i)/3)*8 + 0.5
		candles[i] = domain.Candle{
			Symbol:   "ETHUSDTM",
			OpenTime: base.Add(time.Duration(i) * 30 * time.Minute),
			Open:     price - 1,
			High:     price + 5,
			Low:      price - 5,
			Close:    price,
			Volume:   1000 + float64(i%17)*10,
		}
	}
	return candles
}

func TestBuildDropsWarmupRows(t *testing.T) {
	candles := syntheticCandles(120)
	rows := Build(candles)
	if len(rows) == 0 {
		t.Fatal("expected some rows")
	}
	if len(rows) >= len(candles) {
		t.Fatalf("expected drop of warm-up rows: %d >= %d", len(rows), len(candles))
	}
	for i, r := range rows {
		if rowHasNaN(r) {
			t.Fatalf("row %d contains NaN: %+v", i, r)
		}
	}
}

func TestBuildShortInputYieldsNothing(t *testing.T) {
	// 10 bars is below the EMA50/MACD warm-up, every row gets dropped.
	rows := Build(syntheticCandles(10))
	if len(rows) != 0 {
		t.Fatalf("expected empty output for short input, got %d rows", len(rows))
	}
}

func TestBuildEmptyInput(t *testing.T) {
	if rows := Build(nil); rows != nil {
		t.Fatalf("expected nil for empty input, got %d rows", len(rows))
	}
}

func TestBuildZeroWidthBandDropsRow(t *testing.T) {
	// Constant closes give zero-width Bollinger bands; price_bb_pos is
	// undefined for every bar so nothing survives.
	candles := make([]domain.Candle, 120)
	base := time.Now().UTC()
	for i := range candles {
		candles[i] = domain.Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     100, High: 100, Low: 100, Close: 100, Volume: 1,
		}
	}
	if rows := Build(candles); len(rows) != 0 {
		t.Fatalf("expected all rows dropped on zero-width bands, got %d", len(rows))
	}
}

func TestBuildSortsUnorderedInput(t *testing.T) {
	candles := syntheticCandles(120)
	reversed := make([]domain.Candle, len(candles))
	for i := range candles {
		reversed[len(candles)-1-i] = candles[i]
	}
	a := Build(candles)
	b := Build(reversed)
	if len(a) != len(b) {
		t.Fatalf("row count differs on reordered input: %d vs %d", len(a), len(b))
	}
	if len(a) > 0 && a[len(a)-1] != b[len(b)-1] {
		t.Fatalf("last row differs on reordered input")
	}
}

func TestLabelsForwardComparison(t *testing.T) {
	rows := []Row{
		{Close: 100}, {Close: 101}, {Close: 99},
		{Close: 102}, {Close: 98}, {Close: 103},
	}
	labels := Labels(rows, 3)
	if len(labels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(labels))
	}
	want := []float64{1, 0, 1} // 102>100, 98<101, 103>99
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("label[%d] = %v, want %v", i, labels[i], want[i])
		}
	}
}

func TestLabelsTooFewRows(t *testing.T) {
	if labels := Labels([]Row{{Close: 1}, {Close: 2}}, 3); labels != nil {
		t.Fatalf("expected nil labels, got %v", labels)
	}
}

func TestVectorMatchesFeatureNames(t *testing.T) {
	if len(Vector(Row{})) != len(FeatureNames) {
		t.Fatalf("vector length %d != feature names %d", len(Vector(Row{})), len(FeatureNames))
	}
}
