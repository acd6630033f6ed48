// Package sequence hands out per-namespace integer sequences and renders
// them as public IDs.
//
// The counter store performs increment-and-fetch as one atomic operation.
// A failed call allocates nothing the caller can see; values lost to a crash
// between allocation and use are skipped, never reissued.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"festreg/internal/platform/metrics"
	dErrors "festreg/pkg/domain-errors"
)

const NamespaceParticipant = "participant"

// CounterStore atomically increments a named counter and returns the new value.
type CounterStore interface {
	Increment(ctx context.Context, namespace string) (int64, error)
}

type Allocator struct {
	store   CounterStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Allocator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

func NewAllocator(store CounterStore, opts ...Option) *Allocator {
	a := &Allocator{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next returns the next value for namespace. Store failures come back as
// dependency errors; the caller must not invent a value.
func (a *Allocator) Next(ctx context.Context, namespace string) (int64, error) {
	if namespace == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "sequence namespace is required")
	}
	value, err := a.store.Increment(ctx, namespace)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return 0, dErrors.Wrap(err, dErrors.CodeTimeout, "sequence allocation timed out")
		}
		a.logger.ErrorContext(ctx, "sequence allocation failed", "namespace", namespace, "error", err)
		return 0, dErrors.Wrap(err, dErrors.CodeDependency, "sequence store unavailable")
	}
	if value < 1 {
		return 0, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("sequence store returned non-positive value %d", value))
	}
	a.metrics.IncSequenceAllocated(namespace)
	return value, nil
}

// PublicIDFormat renders PREFIX + two-digit year + sequence padded to Width.
// The prefix is upper-cased to match identifier lookup. Sequences wider than
// Width print in full.
type PublicIDFormat struct {
	Prefix string
	Width  int
}

func (f PublicIDFormat) Format(seq int64, at time.Time) string {
	return fmt.Sprintf("%s%02d%0*d", strings.ToUpper(f.Prefix), at.Year()%100, f.Width, seq)
}
