package handler

import (
	"context"
	"net/http"

	"perp-signal-agent/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// CycleRunner triggers one signal cycle on demand.
type CycleRunner interface {
	RunOnce(ctx context.Context) (domain.Decision, error)
}

type Handler struct {
	tracer    trace.Tracer
	decisions *DecisionStore
	runner    CycleRunner
	apiKey    string
}

func New(tracer trace.Tracer, decisions *DecisionStore, runner CycleRunner, apiKey string) *Handler {
	return &Handler{tracer: tracer, decisions: decisions, runner: runner, apiKey: apiKey}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/decision/latest", h.LatestDecision)
	r.POST("/api/cycle/run", APIKeyAuth(h.apiKey), h.RunCycle)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// LatestDecision returns the outcome of the most recent signal cycle.
func (h *Handler) LatestDecision(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.latest-decision")
	defer span.End()

	decision, at, ok := h.decisions.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no decision yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"decision":   decision,
		"decided_at": at.UTC(),
	})
}

// RunCycle runs one signal cycle immediately instead of waiting for the
// next tick.
func (h *Handler) RunCycle(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cycle runner unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-cycle")
	defer span.End()

	decision, err := h.runner.RunOnce(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"decision": decision,
	})
}
