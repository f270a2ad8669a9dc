package handler

import (
	"sync"
	"time"

	"perp-signal-agent/internal/domain"
)

// DecisionStore holds the most recent cycle outcome for the HTTP
// surface and the Telegram /status command. Safe for concurrent use.
type DecisionStore struct {
	mu       sync.RWMutex
	decision domain.Decision
	at       time.Time
	set      bool
}

func NewDecisionStore() *DecisionStore {
	return &DecisionStore{}
}

func (s *DecisionStore) Record(decision domain.Decision, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decision = decision
	s.at = at
	s.set = true
}

func (s *DecisionStore) Latest() (domain.Decision, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decision, s.at, s.set
}
