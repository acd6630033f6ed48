// Package publisher emits audit events to a Store.
//
// Audit is informational: a registration never fails because its trail entry
// could not be written. The publisher therefore shields callers from a slow or
// failing store with an optional async buffer and a circuit breaker. While the
// circuit is open events are logged and dropped, with one probe write let
// through every probe interval to detect recovery.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	id "festreg/pkg/domain"
	audit "festreg/pkg/platform/audit"
	"festreg/pkg/platform/circuit"
)

var (
	ErrBufferFull  = errors.New("audit buffer full")
	ErrCircuitOpen = errors.New("audit circuit open")
	ErrClosed      = errors.New("audit publisher closed")
)

const defaultProbeInterval = 30 * time.Second

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	breaker *circuit.Breaker
	sampler *Sampler

	probeInterval time.Duration
	probeMu       sync.Mutex
	lastProbe     time.Time

	bufferSize int
	queue      chan audit.Event
	done       chan struct{}

	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events are queued in a buffer of
// size n and written by a background goroutine.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		p.sampler = s
	}
}

func WithProbeInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.probeInterval = d
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		logger:        slog.Default(),
		breaker:       circuit.New("audit_store"),
		probeInterval: defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.queue = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records an event. In sync mode the store error is returned; in async
// mode only enqueue failures are.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = p.prepare(event)
	if p.sampler != nil && !p.sampler.Keep(audit.AuditEvent(event.Action)) {
		p.metrics.incDropped("sampled")
		return nil
	}

	if p.queue == nil {
		return p.persist(ctx, event)
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.incDropped("buffer_full")
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
		return ErrBufferFull
	}
}

// List returns the trail for a participant.
func (p *Publisher) List(ctx context.Context, participantID id.ParticipantID) ([]audit.Event, error) {
	return p.store.ListByParticipant(ctx, participantID)
}

// Close stops accepting events and drains the async buffer.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.queue == nil {
			return
		}
		p.closeMu.Lock()
		p.closed = true
		close(p.queue)
		p.closeMu.Unlock()
		<-p.done
	})
}

func (p *Publisher) prepare(event audit.Event) audit.Event {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	return event
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.queue {
		// The request that emitted the event may be long gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.persist(ctx, event); err != nil && !errors.Is(err, ErrCircuitOpen) {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		cancel()
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if p.breaker.IsOpen() && !p.probeDue() {
		p.metrics.incDropped("circuit_open")
		p.logger.WarnContext(ctx, "audit circuit open, event logged only",
			"log_type", "audit",
			"action", event.Action,
			"subject", event.Subject,
			"participant_id", event.ParticipantID.String(),
			"request_id", event.RequestID,
		)
		return ErrCircuitOpen
	}

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.incPersistFailures()
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.probeMu.Lock()
			p.lastProbe = time.Now()
			p.probeMu.Unlock()
			p.metrics.setCircuitOpen(true)
			p.logger.ErrorContext(ctx, "audit circuit opened", "breaker", p.breaker.Name(), "error", err)
		}
		return err
	}

	p.metrics.incPersisted(string(event.Category))
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.setCircuitOpen(false)
		p.logger.InfoContext(ctx, "audit circuit closed", "breaker", p.breaker.Name())
	}
	return nil
}

func (p *Publisher) probeDue() bool {
	p.probeMu.Lock()
	defer p.probeMu.Unlock()
	now := time.Now()
	if now.Sub(p.lastProbe) < p.probeInterval {
		return false
	}
	p.lastProbe = now
	return true
}
