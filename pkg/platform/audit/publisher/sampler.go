package publisher

import (
	"math/rand/v2"
	"sync"

	audit "festreg/pkg/platform/audit"
)

// Sampler thins out operations-category events. Compliance and security
// events are always kept.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[audit.AuditEvent]float64
}

// NewSampler creates a sampler keeping operations events with the given
// probability in [0, 1].
func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clampRate(defaultRate),
		rateByAction: make(map[audit.AuditEvent]float64),
	}
}

// Keep reports whether the event should be persisted.
func (s *Sampler) Keep(action audit.AuditEvent) bool {
	if action.Category() != audit.CategoryOperations {
		return true
	}
	rate := s.rateFor(action)
	if rate >= 1 {
		return true
	}
	return rand.Float64() < rate //nolint:gosec // sampling doesn't need crypto rand
}

// SetRate overrides the rate for a single action.
func (s *Sampler) SetRate(action audit.AuditEvent, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clampRate(rate)
}

func (s *Sampler) rateFor(action audit.AuditEvent) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rateByAction[action]; ok {
		return rate
	}
	return s.defaultRate
}

func clampRate(rate float64) float64 {
	return min(max(rate, 0), 1)
}
