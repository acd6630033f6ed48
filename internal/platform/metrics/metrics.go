package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ParticipantsCreated prometheus.Counter
	SequenceAllocated   *prometheus.CounterVec
	RegistrationOps     *prometheus.CounterVec
	CapacityRejections  prometheus.Counter
	TxDuration          *prometheus.HistogramVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates all metrics on reg. Tests pass a fresh prometheus.NewRegistry
// so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ParticipantsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "festreg_participants_created_total",
			Help: "Total number of participants created",
		}),
		SequenceAllocated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_sequence_allocated_total",
			Help: "Sequence values handed out, by namespace",
		}, []string{"namespace"}),
		RegistrationOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "festreg_registration_operations_total",
			Help: "Registration lifecycle operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		CapacityRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "festreg_capacity_rejections_total",
			Help: "Registrations or restorations rejected because the event was full",
		}),
		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "festreg_unit_of_work_duration_seconds",
			Help:    "Duration of per-event units of work",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "festreg_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncParticipantsCreated() {
	if m != nil {
		m.ParticipantsCreated.Inc()
	}
}

func (m *Metrics) IncSequenceAllocated(namespace string) {
	if m != nil {
		m.SequenceAllocated.WithLabelValues(namespace).Inc()
	}
}

// ObserveRegistrationOp records one lifecycle operation. outcome is "success"
// or the failing error code.
func (m *Metrics) ObserveRegistrationOp(operation, outcome string) {
	if m != nil {
		m.RegistrationOps.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) IncCapacityRejections() {
	if m != nil {
		m.CapacityRejections.Inc()
	}
}

func (m *Metrics) ObserveTx(outcome string, d time.Duration) {
	if m != nil {
		m.TxDuration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}

// Handler exposes the gatherer on /metrics.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
