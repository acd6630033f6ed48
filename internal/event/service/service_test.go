package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"festreg/internal/capacity"
	eventModel "festreg/internal/event/models"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	"festreg/internal/storage/memory"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	"festreg/pkg/requestcontext"
)

type capturePublisher struct {
	events []audit.Event
}

func (p *capturePublisher) Emit(_ context.Context, e audit.Event) error {
	p.events = append(p.events, e)
	return nil
}

type EventServiceSuite struct {
	suite.Suite
	backend   *storage.Backend
	service   *Service
	publisher *capturePublisher
	ctx       context.Context
	now       time.Time
}

func TestEventServiceSuite(t *testing.T) {
	suite.Run(t, new(EventServiceSuite))
}

func (s *EventServiceSuite) SetupTest() {
	s.backend = memory.New()
	s.publisher = &capturePublisher{}
	s.service = New(s.backend.Events, s.backend.UoW, capacity.NewTracker(s.backend.Stores),
		WithAuditPublisher(s.publisher))
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *EventServiceSuite) soloParams(capacity int) eventModel.NewEventParams {
	return eventModel.NewEventParams{
		Name:                 "Keynote",
		Kind:                 eventModel.KindSolo,
		Capacity:             capacity,
		RegistrationDeadline: s.now.Add(24 * time.Hour),
		StartsAt:             s.now.Add(48 * time.Hour),
	}
}

func (s *EventServiceSuite) register(eventID id.EventID, n int) {
	for i := 0; i < n; i++ {
		pid := id.NewParticipantID()
		s.Require().NoError(s.backend.Registrations.Create(s.ctx,
			registrationModel.New(eventID, registrationModel.ParticipantRegistrant(pid), pid, s.now)))
	}
}

func (s *EventServiceSuite) TestCreate() {
	s.Run("valid team event", func() {
		params := s.soloParams(10)
		params.Kind = eventModel.KindTeam
		params.TeamBounds = &eventModel.TeamBounds{Min: 2, Max: 4}

		event, err := s.service.Create(s.ctx, params)
		s.Require().NoError(err)
		s.Equal(s.now, event.CreatedAt)

		got, err := s.service.Get(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(2, got.TeamBounds.Min)
		s.Equal(string(audit.EventEventCreated), s.publisher.events[len(s.publisher.events)-1].Action)
	})

	s.Run("invalid params are not stored", func() {
		_, err := s.service.Create(s.ctx, s.soloParams(0))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EventServiceSuite) TestGet() {
	s.Run("unknown event", func() {
		_, err := s.service.Get(s.ctx, id.NewEventID())
		s.ErrorIs(err, eventModel.ReasonEventNotFound)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deleted event is hidden from Get but not from Details", func() {
		event, err := s.service.Create(s.ctx, s.soloParams(3))
		s.Require().NoError(err)
		s.Require().NoError(s.service.SoftDelete(s.ctx, event.ID))

		_, err = s.service.Get(s.ctx, event.ID)
		s.ErrorIs(err, eventModel.ReasonEventDeleted)

		details, err := s.service.Details(s.ctx, event.ID)
		s.Require().NoError(err)
		s.True(details.Event.Deleted)
	})
}

func (s *EventServiceSuite) TestUpdateCapacity() {
	event, err := s.service.Create(s.ctx, s.soloParams(5))
	s.Require().NoError(err)
	s.register(event.ID, 3)

	s.Run("rejects capacity below active count", func() {
		_, err := s.service.UpdateCapacity(s.ctx, event.ID, 2)
		s.ErrorIs(err, eventModel.ReasonCapacityBelowActive)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		got, err := s.service.Get(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(5, got.Capacity)
	})

	s.Run("accepts capacity equal to active count", func() {
		updated, err := s.service.UpdateCapacity(s.ctx, event.ID, 3)
		s.Require().NoError(err)
		s.Equal(3, updated.Capacity)

		details, err := s.service.Details(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(3, details.ActiveCount)
		s.Equal(0, details.Remaining)
	})

	s.Run("deleted event", func() {
		s.Require().NoError(s.service.SoftDelete(s.ctx, event.ID))
		_, err := s.service.UpdateCapacity(s.ctx, event.ID, 10)
		s.ErrorIs(err, eventModel.ReasonEventDeleted)
	})
}

func (s *EventServiceSuite) TestActiveCount() {
	event, err := s.service.Create(s.ctx, s.soloParams(5))
	s.Require().NoError(err)
	s.register(event.ID, 2)

	n, err := s.service.ActiveCount(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(2, n)
}
