package memory

import (
	"context"
	"sync"

	eventModel "festreg/internal/event/models"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/sentinel"
)

// EventStore keeps soft-deleted events; services decide how to surface them.
type EventStore struct {
	mu     sync.RWMutex
	events map[id.EventID]*eventModel.Event
}

func NewEventStore() *EventStore {
	return &EventStore{events: make(map[id.EventID]*eventModel.Event)}
}

func (s *EventStore) Create(_ context.Context, e *eventModel.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *EventStore) FindByID(_ context.Context, eventID id.EventID) (*eventModel.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvent(e), nil
}

// FindByIDForUpdate relies on the unit of work holding the event's shard.
func (s *EventStore) FindByIDForUpdate(ctx context.Context, eventID id.EventID) (*eventModel.Event, error) {
	return s.FindByID(ctx, eventID)
}

func (s *EventStore) Update(_ context.Context, e *eventModel.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func cloneEvent(e *eventModel.Event) *eventModel.Event {
	cp := *e
	if e.TeamBounds != nil {
		b := *e.TeamBounds
		cp.TeamBounds = &b
	}
	return &cp
}
