package service

import (
	"context"
	"errors"

	eventModel "festreg/internal/event/models"
	registrationModel "festreg/internal/registration/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/sentinel"
)

// Get returns the registration if actor is its registrant or on its team.
func (s *Service) Get(ctx context.Context, registrationID id.RegistrationID, actor id.ParticipantID) (*registrationModel.Registration, error) {
	r, err := s.stores.Registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	if pid, ok := r.Registrant.ParticipantID(); ok {
		if pid != actor {
			return nil, errNotOwner()
		}
		return r, nil
	}
	tid, _ := r.Registrant.TeamID()
	team, err := s.stores.Teams.FindByID(ctx, tid)
	switch {
	case err == nil && team.Includes(actor):
		return r, nil
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		if r.RegisteredBy == actor {
			return r, nil
		}
		return nil, errNotOwner()
	default:
		return nil, wrapStoreErr(err, "failed to load team")
	}
}

// ListMine returns actor's solo registrations and those of their teams.
func (s *Service) ListMine(ctx context.Context, actor id.ParticipantID) ([]*registrationModel.Registration, error) {
	regs, err := s.stores.Registrations.ListForParticipant(ctx, actor)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list registrations")
	}
	return regs, nil
}

// ListByEvent is the organizer roster, cancelled registrations included.
func (s *Service) ListByEvent(ctx context.Context, eventID id.EventID) ([]*registrationModel.Registration, error) {
	if _, err := s.stores.Events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(eventModel.ReasonEventNotFound, dErrors.CodeNotFound, "Event not found")
		}
		return nil, wrapStoreErr(err, "failed to load event")
	}
	regs, err := s.stores.Registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list registrations")
	}
	return regs, nil
}
