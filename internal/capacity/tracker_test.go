package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	eventModel "festreg/internal/event/models"
	"festreg/internal/platform/metrics"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	"festreg/internal/storage/memory"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

type TrackerSuite struct {
	suite.Suite
	backend *storage.Backend
	tracker *Tracker
	metrics *metrics.Metrics
	ctx     context.Context
	now     time.Time
}

func TestTrackerSuite(t *testing.T) {
	suite.Run(t, new(TrackerSuite))
}

func (s *TrackerSuite) SetupTest() {
	s.backend = memory.New()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.tracker = NewTracker(s.backend.Stores, WithMetrics(s.metrics))
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *TrackerSuite) newEvent(capacity int) *eventModel.Event {
	e, err := eventModel.NewEvent(eventModel.NewEventParams{
		Name:                 "Talk",
		Kind:                 eventModel.KindSolo,
		Capacity:             capacity,
		RegistrationDeadline: s.now.Add(time.Hour),
		StartsAt:             s.now.Add(2 * time.Hour),
	}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.backend.Events.Create(s.ctx, e))
	return e
}

func (s *TrackerSuite) fill(e *eventModel.Event, n int) {
	for i := 0; i < n; i++ {
		pid := id.NewParticipantID()
		s.Require().NoError(s.backend.Registrations.Create(s.ctx,
			registrationModel.New(e.ID, registrationModel.ParticipantRegistrant(pid), pid, s.now)))
	}
}

func (s *TrackerSuite) reserve(eventID id.EventID, now time.Time) (Reservation, error) {
	var res Reservation
	err := s.backend.UoW.RunInTx(s.ctx, eventID, func(ctx context.Context, st storage.Stores) error {
		e, err := s.tracker.Open(ctx, st, eventID, now)
		if err != nil {
			return err
		}
		res, err = s.tracker.Reserve(ctx, st, e)
		return err
	})
	return res, err
}

func (s *TrackerSuite) TestReserve() {
	e := s.newEvent(2)

	s.Run("free slot", func() {
		res, err := s.reserve(e.ID, s.now)
		s.Require().NoError(err)
		s.Equal(1, res.Slot)
		s.Equal(1, res.Remaining())
	})

	s.Run("full event", func() {
		s.fill(e, 2)
		_, err := s.reserve(e.ID, s.now)
		s.ErrorIs(err, registrationModel.ReasonEventFull)
		s.True(dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
		s.Equal(float64(1), promtest.ToFloat64(s.metrics.CapacityRejections))
	})
}

func (s *TrackerSuite) TestOpenFailures() {
	s.Run("unknown event", func() {
		_, err := s.reserve(id.NewEventID(), s.now)
		s.ErrorIs(err, eventModel.ReasonEventNotFound)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("deadline passed", func() {
		e := s.newEvent(2)
		_, err := s.reserve(e.ID, e.RegistrationDeadline.Add(time.Second))
		s.ErrorIs(err, eventModel.ReasonDeadlinePassed)
	})

	s.Run("soft-deleted event", func() {
		e := s.newEvent(2)
		e.SoftDelete(s.now)
		s.Require().NoError(s.backend.Events.Update(s.ctx, e))
		_, err := s.reserve(e.ID, s.now)
		s.ErrorIs(err, eventModel.ReasonEventDeleted)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *TrackerSuite) TestActiveCount() {
	e := s.newEvent(5)
	s.fill(e, 3)

	n, err := s.tracker.ActiveCount(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(3, n)

	_, err = s.tracker.ActiveCount(s.ctx, id.NewEventID())
	s.ErrorIs(err, eventModel.ReasonEventNotFound)
}
