package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Persisted           *prometheus.CounterVec
	Dropped             *prometheus.CounterVec
	PersistFailures     prometheus.Counter
	CircuitBreakerState prometheus.Gauge
}

// NewMetrics registers audit publisher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Persisted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_audit_persisted_total",
			Help: "Audit events successfully persisted, by category",
		}, []string{"category"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_audit_dropped_total",
			Help: "Audit events dropped, by reason (sampled, buffer_full, circuit_open)",
		}, []string{"reason"}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "festreg_audit_persist_failures_total",
			Help: "Audit event persistence failures",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "festreg_audit_circuit_breaker_state",
			Help: "Audit store circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) incPersisted(category string) {
	if m != nil {
		m.Persisted.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) incDropped(reason string) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) incPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
