package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"perp-signal-agent/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type CandleSource interface {
	Candles(ctx context.Context, symbol string, granularity, limit int) ([]domain.Candle, error)
}

type Decider interface {
	Decide(ctx context.Context, candles []domain.Candle) domain.Decision
}

type PositionChecker interface {
	FetchPositionQty(ctx context.Context, symbol string) (float64, error)
}

type Trader interface {
	OpenPosition(ctx context.Context, direction domain.Direction) error
}

type Notifier interface {
	Send(text string)
}

type DecisionRecorder interface {
	Record(decision domain.Decision, at time.Time)
}

type CycleConfig struct {
	Symbol       string
	Granularity  int // bar size in minutes
	LookbackBars int
	Interval     time.Duration
}

// CycleJob runs the signal loop: fetch candles, decide, notify, and
// trade when the decision is directional and no position is open.
type CycleJob struct {
	tracer    trace.Tracer
	candles   CandleSource
	decider   Decider
	positions PositionChecker
	trader    Trader
	notifier  Notifier
	store     DecisionRecorder
	cfg       CycleConfig
	now       func() time.Time
}

func NewCycleJob(
	tracer trace.Tracer,
	candles CandleSource,
	decider Decider,
	positions PositionChecker,
	trader Trader,
	notifier Notifier,
	store DecisionRecorder,
	cfg CycleConfig,
) *CycleJob {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if cfg.LookbackBars <= 0 {
		cfg.LookbackBars = 200
	}
	return &CycleJob{
		tracer:    tracer,
		candles:   candles,
		decider:   decider,
		positions: positions,
		trader:    trader,
		notifier:  notifier,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start runs one cycle immediately, then one per interval until the
// context is cancelled.
func (j *CycleJob) Start(ctx context.Context) {
	j.run(ctx)
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *CycleJob) run(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil {
		log.Printf("signal cycle error: %v", err)
		j.notify(fmt.Sprintf("Cycle error: %v", err))
	}
}

// RunOnce executes a single signal cycle and returns its decision. An
// already-open position short-circuits to skip: the agent holds one
// position at a time.
func (j *CycleJob) RunOnce(ctx context.Context) (domain.Decision, error) {
	ctx, span := j.tracer.Start(ctx, "cycle.run-once")
	defer span.End()

	if qty := j.openPositionQty(ctx); qty != 0 {
		log.Printf("position open on %s (qty=%.4f), skipping cycle", j.cfg.Symbol, qty)
		j.notify(fmt.Sprintf("Position already open on %s, skipping cycle", j.cfg.Symbol))
		return domain.Decision{Direction: domain.DirectionSkip}, nil
	}

	candles, err := j.candles.Candles(ctx, j.cfg.Symbol, j.cfg.Granularity, j.cfg.LookbackBars)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("fetch candles: %w", err)
	}

	decision := j.decider.Decide(ctx, candles)
	at := j.now()
	if j.store != nil {
		j.store.Record(decision, at)
	}
	log.Printf("cycle decision=%s proba_up=%.3f sentiment=%.3f blended=%.3f",
		decision.Direction, decision.ProbaUp, decision.NewsSentiment, decision.Blended)
	j.notify(fmt.Sprintf("Decision: %s\nP(up): %.3f\nSentiment: %.3f\nBlended: %.3f",
		decision.Direction, decision.ProbaUp, decision.NewsSentiment, decision.Blended))

	if decision.Direction == domain.DirectionSkip || j.trader == nil {
		return decision, nil
	}
	if err := j.trader.OpenPosition(ctx, decision.Direction); err != nil {
		log.Printf("open position failed: %v", err)
		j.notify(fmt.Sprintf("Trade failed: %v", err))
		return decision, nil
	}
	j.notify(fmt.Sprintf("Opened %s position on %s", decision.Direction, j.cfg.Symbol))
	return decision, nil
}

// openPositionQty returns the current position size, or 0 when flat or
// when the check fails. A failed check must not block signal cycles.
func (j *CycleJob) openPositionQty(ctx context.Context) float64 {
	if j.positions == nil {
		return 0
	}
	qty, err := j.positions.FetchPositionQty(ctx, j.cfg.Symbol)
	if err != nil {
		log.Printf("position check failed, assuming flat: %v", err)
		return 0
	}
	return qty
}

func (j *CycleJob) notify(text string) {
	if j.notifier != nil {
		j.notifier.Send(text)
	}
}
