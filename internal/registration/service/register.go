package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	id "festreg/pkg/domain"
	"festreg/pkg/platform/audit"
	"festreg/pkg/platform/sentinel"
	"festreg/pkg/requestcontext"
)

// Register enrolls actor, alone or with teamID, in eventID.
//
// The event is locked first; deadline, eligibility and uniqueness are then
// checked, a slot reserved and the registration written, all in the event's
// unit of work.
func (s *Service) Register(ctx context.Context, eventID id.EventID, actor id.ParticipantID, teamID *id.TeamID) (_ *registrationModel.Registration, err error) {
	ctx, span := s.startSpan(ctx, opRegister, attribute.String("event.id", eventID.String()))
	defer func() { s.finish(span, opRegister, err) }()

	if _, err := s.participants.RequireActive(ctx, actor); err != nil {
		return nil, err
	}

	var c committed
	err = s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		now := requestcontext.Now(ctx).UTC()
		event, err := s.tracker.Open(ctx, stores, eventID, now)
		if err != nil {
			return err
		}
		elig, err := checkEligibility(ctx, stores, event, actor, teamID, registrationModel.ErrAlreadyRegistered)
		if err != nil {
			return err
		}
		reservation, err := s.tracker.Reserve(ctx, stores, event)
		if err != nil {
			return err
		}

		r := registrationModel.New(event.ID, elig.registrant, actor, now)
		if err := stores.Registrations.Create(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return registrationModel.ErrAlreadyRegistered()
			}
			return wrapStoreErr(err, "failed to create registration")
		}
		c = committed{registration: r, owner: elig.owner, remaining: reservation.Remaining()}
		return nil
	})
	if err != nil {
		err = toDomainErr(err)
		s.emitRejected(ctx, eventID, actor, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("registration.id", c.registration.ID.String()))
	s.emit(ctx, audit.EventRegistrationCreated, c)
	return c.registration, nil
}
