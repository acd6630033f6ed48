package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	eventModel "festreg/internal/event/models"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	"festreg/pkg/platform/sentinel"
	"festreg/pkg/requestcontext"
)

// Cancel releases the registration's slot. Only the solo registrant or the
// team leader may cancel, and not once checked in or after the event starts.
func (s *Service) Cancel(ctx context.Context, registrationID id.RegistrationID, actor id.ParticipantID) (_ *registrationModel.Registration, err error) {
	ctx, span := s.startSpan(ctx, opCancel, attribute.String("registration.id", registrationID.String()))
	defer func() { s.finish(span, opCancel, err) }()

	eventID, err := s.loadEventID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	var c committed
	err = s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		now := requestcontext.Now(ctx).UTC()
		r, err := stores.Registrations.FindByIDForUpdate(ctx, registrationID)
		if err != nil {
			return translateLookupErr(err)
		}
		owner, err := authorize(ctx, stores, r, actor)
		if err != nil {
			return err
		}
		if err := r.Cancel(actor, now); err != nil {
			return err
		}
		event, err := stores.Events.FindByID(ctx, r.EventID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrapStoreErr(err, "failed to load event")
		}
		if event != nil && event.HasStarted(now) {
			return dErrors.Wrap(registrationModel.ReasonEventAlreadyStarted, dErrors.CodeConflict, "The event has already started")
		}
		if err := stores.Registrations.Update(ctx, r); err != nil {
			return wrapStoreErr(err, "failed to cancel registration")
		}
		c = committed{registration: r, owner: owner}
		return nil
	})
	if err != nil {
		return nil, toDomainErr(err)
	}
	s.emit(ctx, audit.EventRegistrationCancelled, c)
	return c.registration, nil
}

// Restore re-activates a cancelled registration. It is re-validated like a
// fresh registration: deadline, team composition, uniqueness and capacity.
// For team events teamID may name a replacement team led by actor.
func (s *Service) Restore(ctx context.Context, registrationID id.RegistrationID, actor id.ParticipantID, teamID *id.TeamID) (_ *registrationModel.Registration, err error) {
	ctx, span := s.startSpan(ctx, opRestore, attribute.String("registration.id", registrationID.String()))
	defer func() { s.finish(span, opRestore, err) }()

	if _, err := s.participants.RequireActive(ctx, actor); err != nil {
		return nil, err
	}
	eventID, err := s.loadEventID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	var c committed
	err = s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		now := requestcontext.Now(ctx).UTC()
		r, err := stores.Registrations.FindByIDForUpdate(ctx, registrationID)
		if err != nil {
			return translateLookupErr(err)
		}
		if _, err := authorize(ctx, stores, r, actor); err != nil {
			return err
		}
		if err := r.EnsureCancelled(); err != nil {
			return err
		}
		event, err := s.tracker.Open(ctx, stores, r.EventID, now)
		if err != nil {
			return err
		}

		target, err := restoreTarget(ctx, stores, event, r, actor, teamID)
		if err != nil {
			return err
		}
		elig, err := checkEligibility(ctx, stores, event, actor, target, conflictFor(event))
		if err != nil {
			return err
		}
		reservation, err := s.tracker.Reserve(ctx, stores, event)
		if err != nil {
			return err
		}

		if err := r.Restore(actor, elig.registrant, now); err != nil {
			return err
		}
		if err := stores.Registrations.Update(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return conflictFor(event)()
			}
			return wrapStoreErr(err, "failed to restore registration")
		}
		c = committed{registration: r, owner: elig.owner, remaining: reservation.Remaining()}
		return nil
	})
	if err != nil {
		return nil, toDomainErr(err)
	}
	s.emit(ctx, audit.EventRegistrationRestored, c)
	return c.registration, nil
}

// CheckIn marks attendance. It is an organizer action.
func (s *Service) CheckIn(ctx context.Context, registrationID id.RegistrationID) (_ *registrationModel.Registration, err error) {
	ctx, span := s.startSpan(ctx, opCheckIn, attribute.String("registration.id", registrationID.String()))
	defer func() { s.finish(span, opCheckIn, err) }()

	eventID, err := s.loadEventID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	var c committed
	err = s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		r, err := stores.Registrations.FindByIDForUpdate(ctx, registrationID)
		if err != nil {
			return translateLookupErr(err)
		}
		if err := r.CheckIn(requestcontext.Now(ctx).UTC()); err != nil {
			return err
		}
		if err := stores.Registrations.Update(ctx, r); err != nil {
			return wrapStoreErr(err, "failed to check in registration")
		}
		c = committed{registration: r, owner: soloOwner(r)}
		return nil
	})
	if err != nil {
		return nil, toDomainErr(err)
	}
	s.emit(ctx, audit.EventRegistrationCheckedIn, c)
	return c.registration, nil
}

// authorize returns the owner of r when actor may act on it. A team
// registration belongs to the team leader; once the team is gone it stays
// with whoever registered it.
func authorize(ctx context.Context, stores storage.Stores, r *registrationModel.Registration, actor id.ParticipantID) (id.ParticipantID, error) {
	if pid, ok := r.Registrant.ParticipantID(); ok {
		if pid != actor {
			return id.ParticipantID{}, errNotOwner()
		}
		return pid, nil
	}

	tid, _ := r.Registrant.TeamID()
	team, err := stores.Teams.FindByID(ctx, tid)
	switch {
	case err == nil:
		if !team.IsLeader(actor) {
			return id.ParticipantID{}, errNotOwner()
		}
		return team.LeaderID, nil
	case errors.Is(err, sentinel.ErrNotFound):
		if r.RegisteredBy != actor {
			return id.ParticipantID{}, errNotOwner()
		}
		return actor, nil
	default:
		return id.ParticipantID{}, wrapStoreErr(err, "failed to load team")
	}
}

// restoreTarget picks the team a restore re-validates: the replacement when
// given, otherwise the original one.
func restoreTarget(ctx context.Context, stores storage.Stores, event *eventModel.Event, r *registrationModel.Registration, actor id.ParticipantID, teamID *id.TeamID) (*id.TeamID, error) {
	if !event.IsTeam() {
		// Solo eligibility rejects a team.
		return teamID, nil
	}
	if teamID == nil {
		tid, _ := r.Registrant.TeamID()
		return &tid, nil
	}
	replacement, err := stores.Teams.FindByID(ctx, *teamID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(teamModel.ReasonTeamNotFound, dErrors.CodeNotFound, "Team not found")
		}
		return nil, wrapStoreErr(err, "failed to load team")
	}
	if err := replacement.EnsureLeader(actor); err != nil {
		return nil, err
	}
	return teamID, nil
}

func conflictFor(event *eventModel.Event) func() error {
	if event.IsTeam() {
		return registrationModel.ErrTeamAlreadyRegistered
	}
	return registrationModel.ErrAlreadyRegistered
}

func soloOwner(r *registrationModel.Registration) id.ParticipantID {
	if pid, ok := r.Registrant.ParticipantID(); ok {
		return pid
	}
	return r.RegisteredBy
}

func errNotOwner() error {
	return dErrors.Wrap(registrationModel.ReasonNotOwner, dErrors.CodeForbidden, "Only the registrant can change this registration")
}
