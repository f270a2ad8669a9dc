package trade

import (
	"context"
	"fmt"
	"log"
	"math"

	"perp-signal-agent/internal/domain"
	"perp-signal-agent/internal/exchange/kucoin"

	"go.opentelemetry.io/otel/trace"
)

// Exchange is the slice of the futures API the executor needs.
type Exchange interface {
	FetchLastPrice(ctx context.Context, symbol string) (float64, error)
	UpdateMarginMode(ctx context.Context, symbol, mode string) error
	PlaceOrder(ctx context.Context, order kucoin.OrderRequest) (string, error)
}

type Config struct {
	Symbol     string
	Leverage   int
	MarginUSDT float64
	MarginMode string // isolated | cross
	EntryType  string // market | limit
	// TPPercent and SLPercent are percent units: 1.2 means 1.2% from
	// entry, not a fraction.
	TPPercent float64
	SLPercent float64
	DryRun    bool
}

// Executor turns a directional decision into an entry order plus
// reduce-only take-profit and stop-loss orders.
type Executor struct {
	tracer   trace.Tracer
	exchange Exchange
	cfg      Config
}

func NewExecutor(tracer trace.Tracer, exchange Exchange, cfg Config) *Executor {
	if cfg.Leverage <= 0 {
		cfg.Leverage = 1
	}
	if cfg.EntryType == "" {
		cfg.EntryType = "market"
	}
	return &Executor{tracer: tracer, exchange: exchange, cfg: cfg}
}

// OpenPosition enters in the given direction and brackets the entry
// with TP and SL stops. Failures placing a stop are logged and do not
// abort the other stop: a partial bracket beats no bracket.
func (e *Executor) OpenPosition(ctx context.Context, direction domain.Direction) error {
	_, span := e.tracer.Start(ctx, "trade.open-position")
	defer span.End()

	if direction != domain.DirectionLong && direction != domain.DirectionShort {
		return fmt.Errorf("cannot open position for direction %q", direction)
	}

	price, err := e.exchange.FetchLastPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return fmt.Errorf("fetch last price: %w", err)
	}
	if price <= 0 {
		return fmt.Errorf("invalid last price %.4f for %s", price, e.cfg.Symbol)
	}

	size := e.positionSize(price)
	if size <= 0 {
		return fmt.Errorf("margin %.2f USDT too small at price %.2f", e.cfg.MarginUSDT, price)
	}

	entrySide, exitSide := "buy", "sell"
	if direction == domain.DirectionShort {
		entrySide, exitSide = "sell", "buy"
	}
	tpPrice, slPrice := e.bracketPrices(direction, price)

	if e.cfg.DryRun {
		log.Printf("[dry-run] %s %s size=%.4f entry~%.2f tp=%.2f sl=%.2f",
			entrySide, e.cfg.Symbol, size, price, tpPrice, slPrice)
		return nil
	}

	if err := e.exchange.UpdateMarginMode(ctx, e.cfg.Symbol, e.cfg.MarginMode); err != nil {
		log.Printf("margin mode %s not applied for %s: %v", e.cfg.MarginMode, e.cfg.Symbol, err)
	}

	entry := kucoin.OrderRequest{
		Symbol:   e.cfg.Symbol,
		Side:     entrySide,
		Type:     e.cfg.EntryType,
		Size:     size,
		Leverage: e.cfg.Leverage,
	}
	if e.cfg.EntryType == "limit" {
		entry.Price = price
	}
	orderID, err := e.exchange.PlaceOrder(ctx, entry)
	if err != nil {
		return fmt.Errorf("entry order: %w", err)
	}
	log.Printf("opened %s %s size=%.4f order=%s", direction, e.cfg.Symbol, size, orderID)

	if e.cfg.TPPercent > 0 {
		e.placeStop(ctx, exitSide, size, tpPrice, stopTrigger(direction, true))
	}
	if e.cfg.SLPercent > 0 {
		e.placeStop(ctx, exitSide, size, slPrice, stopTrigger(direction, false))
	}
	return nil
}

func (e *Executor) placeStop(ctx context.Context, side string, size, stopPrice float64, trigger string) {
	order := kucoin.OrderRequest{
		Symbol:     e.cfg.Symbol,
		Side:       side,
		Type:       "market",
		Size:       size,
		Leverage:   e.cfg.Leverage,
		ReduceOnly: true,
		Stop:       trigger,
		StopPrice:  stopPrice,
	}
	if _, err := e.exchange.PlaceOrder(ctx, order); err != nil {
		log.Printf("stop order (%s @ %.2f) failed for %s: %v", trigger, stopPrice, e.cfg.Symbol, err)
	}
}

// positionSize converts margin at the configured leverage into a base
// amount, rounded down to 4 decimals.
func (e *Executor) positionSize(price float64) float64 {
	notional := e.cfg.MarginUSDT * float64(e.cfg.Leverage)
	return math.Floor(notional/price*1e4) / 1e4
}

func (e *Executor) bracketPrices(direction domain.Direction, entry float64) (tp, sl float64) {
	tpFrac := e.cfg.TPPercent / 100
	slFrac := e.cfg.SLPercent / 100
	if direction == domain.DirectionLong {
		return entry * (1 + tpFrac), entry * (1 - slFrac)
	}
	return entry * (1 - tpFrac), entry * (1 + slFrac)
}

// stopTrigger picks the KuCoin trigger side. A long take-profit fires
// when price moves up, its stop-loss when price moves down; shorts are
// mirrored.
func stopTrigger(direction domain.Direction, takeProfit bool) string {
	up := direction == domain.DirectionLong
	if !takeProfit {
		up = !up
	}
	if up {
		return "up"
	}
	return "down"
}
