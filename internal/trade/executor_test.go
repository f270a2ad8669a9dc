package trade

import (
	"context"
	"errors"
	"math"
	"testing"

	"perp-signal-agent/internal/domain"
	"perp-signal-agent/internal/exchange/kucoin"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type mockExchange struct {
	price       float64
	priceErr    error
	marginErr   error
	orderErrs   map[int]error // by call index
	orders      []kucoin.OrderRequest
	marginCalls []string
}

func (m *mockExchange) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	if m.priceErr != nil {
		return 0, m.priceErr
	}
	return m.price, nil
}

func (m *mockExchange) UpdateMarginMode(ctx context.Context, symbol, mode string) error {
	m.marginCalls = append(m.marginCalls, mode)
	return m.marginErr
}

func (m *mockExchange) PlaceOrder(ctx context.Context, order kucoin.OrderRequest) (string, error) {
	idx := len(m.orders)
	m.orders = append(m.orders, order)
	if err, ok := m.orderErrs[idx]; ok {
		return "", err
	}
	return "oid-1", nil
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func testConfig() Config {
	return Config{
		Symbol:     "ETHUSDTM",
		Leverage:   3,
		MarginUSDT: 1000,
		MarginMode: "isolated",
		EntryType:  "market",
		TPPercent:  1.0,
		SLPercent:  0.5,
	}
}

func TestExecutor_OpenLongBrackets(t *testing.T) {
	t.Parallel()

	ex := &mockExchange{price: 3000}
	e := NewExecutor(testTracer, ex, testConfig())

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.orders) != 3 {
		t.Fatalf("expected entry + 2 stops, got %d orders", len(ex.orders))
	}

	entry := ex.orders[0]
	if entry.Side != "buy" || entry.Type != "market" || entry.ReduceOnly {
		t.Fatalf("unexpected entry order: %+v", entry)
	}
	if entry.Size != 1 { // 1000*3/3000
		t.Fatalf("expected size 1, got %.4f", entry.Size)
	}
	if entry.Leverage != 3 {
		t.Fatalf("expected leverage 3, got %d", entry.Leverage)
	}

	tp := ex.orders[1]
	if tp.Side != "sell" || !tp.ReduceOnly || tp.Stop != "up" || !approx(tp.StopPrice, 3030) {
		t.Fatalf("unexpected tp order: %+v", tp)
	}
	sl := ex.orders[2]
	if sl.Side != "sell" || !sl.ReduceOnly || sl.Stop != "down" || !approx(sl.StopPrice, 2985) {
		t.Fatalf("unexpected sl order: %+v", sl)
	}

	if len(ex.marginCalls) != 1 || ex.marginCalls[0] != "isolated" {
		t.Fatalf("expected isolated margin call, got %v", ex.marginCalls)
	}
}

func TestExecutor_OpenShortMirrorsBrackets(t *testing.T) {
	t.Parallel()

	ex := &mockExchange{price: 2000}
	e := NewExecutor(testTracer, ex, testConfig())

	if err := e.OpenPosition(context.Background(), domain.DirectionShort); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(ex.orders))
	}
	if ex.orders[0].Side != "sell" {
		t.Fatalf("expected sell entry, got %s", ex.orders[0].Side)
	}
	tp := ex.orders[1]
	if tp.Side != "buy" || tp.Stop != "down" || !approx(tp.StopPrice, 1980) {
		t.Fatalf("unexpected tp order: %+v", tp)
	}
	sl := ex.orders[2]
	if sl.Side != "buy" || sl.Stop != "up" || !approx(sl.StopPrice, 2010) {
		t.Fatalf("unexpected sl order: %+v", sl)
	}
}

func TestExecutor_BracketsUsePercentUnits(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.TPPercent = 1.2
	cfg.SLPercent = 0.8
	ex := &mockExchange{price: 3000}
	e := NewExecutor(testTracer, ex, cfg)

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.orders) != 3 {
		t.Fatalf("expected entry + 2 stops, got %d orders", len(ex.orders))
	}
	// 1.2 means 1.2%, so the brackets hug the entry price
	if tp := ex.orders[1].StopPrice; !approx(tp, 3036) {
		t.Fatalf("expected tp 3036, got %.4f", tp)
	}
	if sl := ex.orders[2].StopPrice; !approx(sl, 2976) {
		t.Fatalf("expected sl 2976, got %.4f", sl)
	}
}

func TestExecutor_DryRunPlacesNothing(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.DryRun = true
	ex := &mockExchange{price: 3000}
	e := NewExecutor(testTracer, ex, cfg)

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.orders) != 0 || len(ex.marginCalls) != 0 {
		t.Fatalf("dry run must not touch the exchange: %+v", ex)
	}
}

func TestExecutor_SkipDirectionRejected(t *testing.T) {
	t.Parallel()

	e := NewExecutor(testTracer, &mockExchange{price: 3000}, testConfig())
	if err := e.OpenPosition(context.Background(), domain.DirectionSkip); err == nil {
		t.Fatal("expected error for skip direction")
	}
}

func TestExecutor_EntryFailureAbortsStops(t *testing.T) {
	t.Parallel()

	ex := &mockExchange{price: 3000, orderErrs: map[int]error{0: errors.New("rejected")}}
	e := NewExecutor(testTracer, ex, testConfig())

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err == nil {
		t.Fatal("expected error when entry fails")
	}
	if len(ex.orders) != 1 {
		t.Fatalf("expected no stops after a failed entry, got %d orders", len(ex.orders))
	}
}

func TestExecutor_StopFailureDoesNotAbortOtherStop(t *testing.T) {
	t.Parallel()

	ex := &mockExchange{price: 3000, orderErrs: map[int]error{1: errors.New("tp rejected")}}
	e := NewExecutor(testTracer, ex, testConfig())

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.orders) != 3 {
		t.Fatalf("expected sl attempt despite tp failure, got %d orders", len(ex.orders))
	}
	if ex.orders[2].Stop != "down" {
		t.Fatalf("expected sl order last, got %+v", ex.orders[2])
	}
}

func TestExecutor_MarginModeFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	ex := &mockExchange{price: 3000, marginErr: errors.New("already isolated")}
	e := NewExecutor(testTracer, ex, testConfig())

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ex.orders) != 3 {
		t.Fatalf("expected orders despite margin mode error, got %d", len(ex.orders))
	}
}

func TestExecutor_PriceErrorAborts(t *testing.T) {
	t.Parallel()

	ex := &mockExchange{priceErr: errors.New("ticker down")}
	e := NewExecutor(testTracer, ex, testConfig())

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err == nil {
		t.Fatal("expected error when price fetch fails")
	}
}

func TestExecutor_LimitEntryCarriesPrice(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.EntryType = "limit"
	ex := &mockExchange{price: 3000}
	e := NewExecutor(testTracer, ex, cfg)

	if err := e.OpenPosition(context.Background(), domain.DirectionLong); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := ex.orders[0]
	if entry.Type != "limit" || entry.Price != 3000 {
		t.Fatalf("unexpected limit entry: %+v", entry)
	}
}
