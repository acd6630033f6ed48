// Package capacity owns the per-event active-registration count.
//
// The count is never cached. Open and Reserve run inside the event's unit of
// work, so the count they read is the one the following write sees; releasing
// a slot is nothing more than a registration leaving the active state.
package capacity

import (
	"context"
	"errors"
	"time"

	eventModel "festreg/internal/event/models"
	"festreg/internal/platform/metrics"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/sentinel"
)

// Reservation is a slot claimed inside a unit of work. It becomes durable
// only when the registration write in the same unit of work commits.
type Reservation struct {
	Event *eventModel.Event
	// Slot is the 1-based position the new registration occupies.
	Slot int
}

func (r Reservation) Remaining() int {
	return r.Event.Capacity - r.Slot
}

type Tracker struct {
	stores  storage.Stores
	metrics *metrics.Metrics
}

type Option func(*Tracker)

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func NewTracker(stores storage.Stores, opts ...Option) *Tracker {
	t := &Tracker{stores: stores}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open loads and locks the event for a registration or restoration and
// checks it still accepts registrations at now.
func (t *Tracker) Open(ctx context.Context, stores storage.Stores, eventID id.EventID, now time.Time) (*eventModel.Event, error) {
	event, err := LockEvent(ctx, stores, eventID)
	if err != nil {
		return nil, err
	}
	if err := event.EnsureRegistrationOpen(now); err != nil {
		return nil, err
	}
	return event, nil
}

// Reserve claims one slot of event. event must come from Open in the same
// unit of work.
func (t *Tracker) Reserve(ctx context.Context, stores storage.Stores, event *eventModel.Event) (Reservation, error) {
	active, err := stores.Registrations.CountActive(ctx, event.ID)
	if err != nil {
		return Reservation{}, storeErr(err, "failed to count active registrations")
	}
	if active >= event.Capacity {
		t.metrics.IncCapacityRejections()
		return Reservation{}, registrationModel.ErrEventFull()
	}
	return Reservation{Event: event, Slot: active + 1}, nil
}

// ActiveCount reads the current count for dashboards. It takes no lock.
func (t *Tracker) ActiveCount(ctx context.Context, eventID id.EventID) (int, error) {
	event, err := t.stores.Events.FindByID(ctx, eventID)
	if err != nil {
		return 0, eventErr(err)
	}
	if err := event.EnsureAvailable(); err != nil {
		return 0, err
	}
	n, err := t.stores.Registrations.CountActive(ctx, eventID)
	if err != nil {
		return 0, storeErr(err, "failed to count active registrations")
	}
	return n, nil
}

// LockEvent loads an available event under the unit of work's row lock.
func LockEvent(ctx context.Context, stores storage.Stores, eventID id.EventID) (*eventModel.Event, error) {
	event, err := stores.Events.FindByIDForUpdate(ctx, eventID)
	if err != nil {
		return nil, eventErr(err)
	}
	if err := event.EnsureAvailable(); err != nil {
		return nil, err
	}
	return event, nil
}

func eventErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(eventModel.ReasonEventNotFound, dErrors.CodeNotFound, "Event not found")
	}
	return storeErr(err, "failed to load event")
}

func storeErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeDependency, msg)
}
