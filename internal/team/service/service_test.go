package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	eventModel "festreg/internal/event/models"
	identityModel "festreg/internal/identity/models"
	identityService "festreg/internal/identity/service"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/sequence"
	"festreg/internal/storage"
	"festreg/internal/storage/memory"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/requestcontext"
)

type TeamServiceSuite struct {
	suite.Suite
	backend  *storage.Backend
	identity *identityService.Service
	service  *Service
	ctx      context.Context
	now      time.Time
	signups  int
}

func TestTeamServiceSuite(t *testing.T) {
	suite.Run(t, new(TeamServiceSuite))
}

func (s *TeamServiceSuite) SetupTest() {
	s.backend = memory.New()
	s.identity = identityService.New(s.backend.Participants, sequence.NewAllocator(s.backend.Counters),
		sequence.PublicIDFormat{Prefix: "FEST", Width: 4}, identityService.WithHashCost(bcrypt.MinCost))
	s.service = New(s.backend.Stores, s.backend.UoW, s.identity)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.signups = 0
}

func (s *TeamServiceSuite) participant() *identityModel.Participant {
	s.signups++
	p, err := s.identity.Create(s.ctx, identityModel.Profile{
		Email:    fmt.Sprintf("p%d@example.com", s.signups),
		Password: "correct horse",
		Name:     "P",
	})
	s.Require().NoError(err)
	return p
}

func (s *TeamServiceSuite) event(kind eventModel.Kind) *eventModel.Event {
	params := eventModel.NewEventParams{
		Name:                 "Hackathon",
		Kind:                 kind,
		Capacity:             10,
		RegistrationDeadline: s.now.Add(time.Hour),
		StartsAt:             s.now.Add(2 * time.Hour),
	}
	if kind == eventModel.KindTeam {
		params.TeamBounds = &eventModel.TeamBounds{Min: 2, Max: 3}
	}
	e, err := eventModel.NewEvent(params, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.backend.Events.Create(s.ctx, e))
	return e
}

func (s *TeamServiceSuite) TestCreate() {
	leader := s.participant()

	s.Run("team event", func() {
		e := s.event(eventModel.KindTeam)
		team, err := s.service.Create(s.ctx, leader.ID, "  Rockets ", e.ID)
		s.Require().NoError(err)
		s.Equal("Rockets", team.Name)
		s.Equal(1, team.Size())

		got, err := s.service.Get(s.ctx, team.ID)
		s.Require().NoError(err)
		s.Equal(leader.ID, got.LeaderID)
	})

	s.Run("solo event rejects teams", func() {
		e := s.event(eventModel.KindSolo)
		_, err := s.service.Create(s.ctx, leader.ID, "Rockets", e.ID)
		s.ErrorIs(err, teamModel.ReasonInvalidTeam)
	})

	s.Run("unknown event", func() {
		_, err := s.service.Create(s.ctx, leader.ID, "Rockets", id.NewEventID())
		s.ErrorIs(err, eventModel.ReasonEventNotFound)
	})

	s.Run("blocked leader", func() {
		blocked := s.participant()
		_, err := s.identity.Block(s.ctx, blocked.ID)
		s.Require().NoError(err)

		_, err = s.service.Create(s.ctx, blocked.ID, "Rockets", s.event(eventModel.KindTeam).ID)
		s.ErrorIs(err, identityModel.ReasonParticipantBlocked)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *TeamServiceSuite) TestMembership() {
	leader := s.participant()
	member := s.participant()
	outsider := s.participant()
	team, err := s.service.Create(s.ctx, leader.ID, "Rockets", s.event(eventModel.KindTeam).ID)
	s.Require().NoError(err)

	s.Run("leader adds by public id", func() {
		updated, err := s.service.AddMember(s.ctx, team.ID, leader.ID, member.PublicID)
		s.Require().NoError(err)
		s.True(updated.HasMember(member.ID))
	})

	s.Run("duplicate member", func() {
		_, err := s.service.AddMember(s.ctx, team.ID, leader.ID, member.Email)
		s.ErrorIs(err, teamModel.ReasonAlreadyMember)
	})

	s.Run("leader cannot add themselves", func() {
		_, err := s.service.AddMember(s.ctx, team.ID, leader.ID, leader.Email)
		s.ErrorIs(err, teamModel.ReasonAlreadyMember)
	})

	s.Run("non-leader cannot add", func() {
		_, err := s.service.AddMember(s.ctx, team.ID, member.ID, outsider.Email)
		s.ErrorIs(err, teamModel.ReasonNotLeader)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown identifier", func() {
		_, err := s.service.AddMember(s.ctx, team.ID, leader.ID, "nobody@example.com")
		s.ErrorIs(err, identityModel.ReasonParticipantNotFound)
	})

	s.Run("size bounds are not checked while assembling", func() {
		extra1, extra2 := s.participant(), s.participant()
		_, err := s.service.AddMember(s.ctx, team.ID, leader.ID, extra1.Email)
		s.Require().NoError(err)
		updated, err := s.service.AddMember(s.ctx, team.ID, leader.ID, extra2.Email)
		s.Require().NoError(err)
		s.Equal(4, updated.Size())
	})

	s.Run("remove member", func() {
		updated, err := s.service.RemoveMember(s.ctx, team.ID, leader.ID, member.ID)
		s.Require().NoError(err)
		s.False(updated.HasMember(member.ID))

		_, err = s.service.RemoveMember(s.ctx, team.ID, leader.ID, member.ID)
		s.ErrorIs(err, teamModel.ReasonNotMember)
	})
}

func (s *TeamServiceSuite) TestDelete() {
	leader := s.participant()
	e := s.event(eventModel.KindTeam)
	team, err := s.service.Create(s.ctx, leader.ID, "Rockets", e.ID)
	s.Require().NoError(err)
	reg := registrationModel.New(e.ID, registrationModel.TeamRegistrant(team.ID), leader.ID, s.now)
	s.Require().NoError(s.backend.Registrations.Create(s.ctx, reg))

	s.Run("rejected while registered", func() {
		err := s.service.Delete(s.ctx, team.ID, leader.ID)
		s.ErrorIs(err, teamModel.ReasonTeamHasActiveRegistration)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-leader", func() {
		err := s.service.Delete(s.ctx, team.ID, s.participant().ID)
		s.ErrorIs(err, teamModel.ReasonNotLeader)
	})

	s.Run("allowed once the registration is cancelled", func() {
		s.Require().NoError(reg.Cancel(leader.ID, s.now))
		s.Require().NoError(s.backend.Registrations.Update(s.ctx, reg))

		s.Require().NoError(s.service.Delete(s.ctx, team.ID, leader.ID))
		_, err := s.service.Get(s.ctx, team.ID)
		s.ErrorIs(err, teamModel.ReasonTeamNotFound)
	})
}
