// Package service is the organizer surface for events: creation, capacity
// changes and soft deletion.
package service

import (
	"context"
	"errors"
	"log/slog"

	"festreg/internal/capacity"
	eventModel "festreg/internal/event/models"
	"festreg/internal/storage"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	"festreg/pkg/platform/sentinel"
	"festreg/pkg/requestcontext"
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	events  storage.EventStore
	uow     storage.UnitOfWork
	tracker *capacity.Tracker

	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(events storage.EventStore, uow storage.UnitOfWork, tracker *capacity.Tracker, opts ...Option) *Service {
	s := &Service{
		events:  events,
		uow:     uow,
		tracker: tracker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, params eventModel.NewEventParams) (*eventModel.Event, error) {
	event, err := eventModel.NewEvent(params, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, wrapStoreErr(err, "failed to create event")
	}
	s.emit(ctx, audit.EventEventCreated, event)
	return event, nil
}

// Get is the public read. Soft-deleted events answer not found.
func (s *Service) Get(ctx context.Context, eventID id.EventID) (*eventModel.Event, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if err := event.EnsureAvailable(); err != nil {
		return nil, err
	}
	return event, nil
}

// Details includes soft-deleted events so organizers can inspect them.
func (s *Service) Details(ctx context.Context, eventID id.EventID) (*eventModel.Details, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	details := &eventModel.Details{Event: event}
	if event.Deleted {
		return details, nil
	}
	active, err := s.tracker.ActiveCount(ctx, eventID)
	if err != nil {
		return nil, err
	}
	details.ActiveCount = active
	details.Remaining = max(event.Capacity-active, 0)
	return details, nil
}

func (s *Service) ActiveCount(ctx context.Context, eventID id.EventID) (int, error) {
	return s.tracker.ActiveCount(ctx, eventID)
}

// UpdateCapacity holds the event lock while it compares against the active
// count, so no registration can slip in between.
func (s *Service) UpdateCapacity(ctx context.Context, eventID id.EventID, newCapacity int) (*eventModel.Event, error) {
	var updated *eventModel.Event
	err := s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		event, err := capacity.LockEvent(ctx, stores, eventID)
		if err != nil {
			return err
		}
		active, err := stores.Registrations.CountActive(ctx, eventID)
		if err != nil {
			return wrapStoreErr(err, "failed to count active registrations")
		}
		if err := event.SetCapacity(newCapacity, active, requestcontext.Now(ctx).UTC()); err != nil {
			return err
		}
		if err := stores.Events.Update(ctx, event); err != nil {
			return wrapStoreErr(err, "failed to update event")
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, toDomainErr(err)
	}
	s.emit(ctx, audit.EventEventCapacityUpdated, updated)
	return updated, nil
}

// SoftDelete hides the event. Existing registrations keep their state.
func (s *Service) SoftDelete(ctx context.Context, eventID id.EventID) error {
	var deleted *eventModel.Event
	err := s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		event, err := capacity.LockEvent(ctx, stores, eventID)
		if err != nil {
			return err
		}
		event.SoftDelete(requestcontext.Now(ctx).UTC())
		if err := stores.Events.Update(ctx, event); err != nil {
			return wrapStoreErr(err, "failed to delete event")
		}
		deleted = event
		return nil
	})
	if err != nil {
		return toDomainErr(err)
	}
	s.emit(ctx, audit.EventEventDeleted, deleted)
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, event *eventModel.Event) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"event_id", event.ID.String(),
		"capacity", event.Capacity,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher == nil {
		return
	}
	entry := audit.NewEvent(ctx, action, id.ParticipantID{}, event.Name)
	entry.ActorID = "admin"
	entry.EventID = event.ID.String()
	entry.Snapshot = audit.Snapshot(event)
	if err := s.auditPublisher.Emit(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(action), "error", err)
	}
}

func translateLookupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(eventModel.ReasonEventNotFound, dErrors.CodeNotFound, "Event not found")
	}
	return wrapStoreErr(err, "failed to load event")
}

// toDomainErr keeps domain errors raised inside a unit of work and wraps
// what the unit of work itself returned.
func toDomainErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return wrapStoreErr(err, "event transaction failed")
}

func wrapStoreErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeDependency, msg)
}
