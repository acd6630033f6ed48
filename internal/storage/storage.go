// Package storage defines the persistence ports of the registration engine
// and the unit of work that scopes every capacity-sensitive mutation.
//
// Stores return pkg/platform/sentinel errors. ErrAlreadyUsed from
// RegistrationStore.Create or Update means the registrant already holds an
// active registration for the event; backends enforce that with a unique
// constraint, not with a read.
package storage

import (
	"context"

	eventModel "festreg/internal/event/models"
	identityModel "festreg/internal/identity/models"
	registrationModel "festreg/internal/registration/models"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
)

type CounterStore interface {
	Increment(ctx context.Context, namespace string) (int64, error)
}

type ParticipantStore interface {
	Create(ctx context.Context, p *identityModel.Participant) error
	FindByID(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
	FindByEmail(ctx context.Context, email string) (*identityModel.Participant, error)
	FindByPublicID(ctx context.Context, publicID string) (*identityModel.Participant, error)
	Update(ctx context.Context, p *identityModel.Participant) error
}

type EventStore interface {
	Create(ctx context.Context, e *eventModel.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*eventModel.Event, error)
	// FindByIDForUpdate locks the event row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, eventID id.EventID) (*eventModel.Event, error)
	Update(ctx context.Context, e *eventModel.Event) error
}

type TeamStore interface {
	Create(ctx context.Context, t *teamModel.Team) error
	FindByID(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error)
	FindByIDForUpdate(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error)
	Update(ctx context.Context, t *teamModel.Team) error
}

type RegistrationStore interface {
	Create(ctx context.Context, r *registrationModel.Registration) error
	Update(ctx context.Context, r *registrationModel.Registration) error
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error)
	FindByIDForUpdate(ctx context.Context, registrationID id.RegistrationID) (*registrationModel.Registration, error)
	// CountActive must be called inside the event's unit of work when the
	// result gates a write.
	CountActive(ctx context.Context, eventID id.EventID) (int, error)
	FindActiveByParticipant(ctx context.Context, eventID id.EventID, participantID id.ParticipantID) (*registrationModel.Registration, error)
	FindActiveByTeam(ctx context.Context, eventID id.EventID, teamID id.TeamID) (*registrationModel.Registration, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*registrationModel.Registration, error)
	// ListForParticipant returns solo registrations of the participant and
	// those of every team they lead or belong to.
	ListForParticipant(ctx context.Context, participantID id.ParticipantID) ([]*registrationModel.Registration, error)
}

// Stores is the store set handed to a unit of work.
type Stores struct {
	Events        EventStore
	Teams         TeamStore
	Registrations RegistrationStore
	Participants  ParticipantStore
}

// UnitOfWork serialises mutations per event. Every read that gates a write
// inside fn is consistent with that write; an error from fn discards it.
type UnitOfWork interface {
	RunInTx(ctx context.Context, eventID id.EventID, fn func(ctx context.Context, stores Stores) error) error
}

// Backend bundles one storage implementation.
type Backend struct {
	Stores
	Counters CounterStore
	UoW      UnitOfWork
}
