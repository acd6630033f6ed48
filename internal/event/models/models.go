package models

import (
	"strings"
	"time"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

const (
	ReasonEventNotFound       dErrors.Reason = "event_not_found"
	ReasonEventDeleted        dErrors.Reason = "event_deleted"
	ReasonDeadlinePassed      dErrors.Reason = "deadline_passed"
	ReasonCapacityBelowActive dErrors.Reason = "capacity_below_active"
	ReasonInvalidEvent        dErrors.Reason = "invalid_event"
)

type Kind string

const (
	KindSolo Kind = "solo"
	KindTeam Kind = "team"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSolo:
		return KindSolo, nil
	case KindTeam:
		return KindTeam, nil
	}
	return "", dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "kind must be solo or team")
}

// TeamBounds is the inclusive team size range, leader included.
type TeamBounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (b TeamBounds) Contains(size int) bool {
	return size >= b.Min && size <= b.Max
}

func (b TeamBounds) validate() error {
	if b.Min < 1 {
		return dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "team_min must be at least 1")
	}
	if b.Min > b.Max {
		return dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "team_min must not exceed team_max")
	}
	return nil
}

// Event is the registration target. TeamBounds is set exactly when Kind is
// KindTeam.
type Event struct {
	ID                   id.EventID  `json:"id"`
	Name                 string      `json:"name"`
	Kind                 Kind        `json:"kind"`
	Capacity             int         `json:"capacity"`
	RegistrationDeadline time.Time   `json:"registration_deadline"`
	StartsAt             time.Time   `json:"starts_at"`
	TeamBounds           *TeamBounds `json:"team_bounds,omitempty"`
	Deleted              bool        `json:"deleted"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// NewEventParams are the admin-supplied fields of a new event.
type NewEventParams struct {
	Name                 string
	Kind                 Kind
	Capacity             int
	RegistrationDeadline time.Time
	StartsAt             time.Time
	TeamBounds           *TeamBounds
}

// NewEvent validates params and builds an event.
func NewEvent(params NewEventParams, now time.Time) (*Event, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "name is required")
	}
	if params.Capacity < 1 {
		return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "capacity must be a positive integer")
	}
	if params.RegistrationDeadline.IsZero() || params.StartsAt.IsZero() {
		return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "registration_deadline and starts_at are required")
	}
	if params.RegistrationDeadline.After(params.StartsAt) {
		return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "registration_deadline must not be after starts_at")
	}

	switch params.Kind {
	case KindSolo:
		if params.TeamBounds != nil {
			return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "solo events have no team bounds")
		}
	case KindTeam:
		if params.TeamBounds == nil {
			return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "team events require team_min and team_max")
		}
		if err := params.TeamBounds.validate(); err != nil {
			return nil, err
		}
	default:
		return nil, dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "kind must be solo or team")
	}

	var bounds *TeamBounds
	if params.TeamBounds != nil {
		b := *params.TeamBounds
		bounds = &b
	}
	return &Event{
		ID:                   id.NewEventID(),
		Name:                 name,
		Kind:                 params.Kind,
		Capacity:             params.Capacity,
		RegistrationDeadline: params.RegistrationDeadline.UTC(),
		StartsAt:             params.StartsAt.UTC(),
		TeamBounds:           bounds,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func (e *Event) IsTeam() bool { return e.Kind == KindTeam }

// EnsureAvailable fails for soft-deleted events, which read as not found.
func (e *Event) EnsureAvailable() error {
	if e.Deleted {
		return dErrors.Wrap(ReasonEventDeleted, dErrors.CodeNotFound, "Event not found")
	}
	return nil
}

// EnsureRegistrationOpen fails once now is past the registration deadline.
func (e *Event) EnsureRegistrationOpen(now time.Time) error {
	if now.After(e.RegistrationDeadline) {
		return dErrors.Wrap(ReasonDeadlinePassed, dErrors.CodeDeadlineExceeded, "Registration deadline has passed")
	}
	return nil
}

// HasStarted reports whether the event start time is reached.
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartsAt)
}

// SetCapacity changes capacity. activeCount must be read under the event
// lock by the caller.
func (e *Event) SetCapacity(capacity, activeCount int, now time.Time) error {
	if capacity < 1 {
		return dErrors.Wrap(ReasonInvalidEvent, dErrors.CodeValidation, "capacity must be a positive integer")
	}
	if capacity < activeCount {
		return dErrors.Wrap(ReasonCapacityBelowActive, dErrors.CodeConflict,
			"Capacity cannot be lowered below the number of active registrations")
	}
	e.Capacity = capacity
	e.UpdatedAt = now
	return nil
}

func (e *Event) SoftDelete(now time.Time) {
	e.Deleted = true
	e.UpdatedAt = now
}

// Details is the organizer view of an event.
type Details struct {
	Event       *Event `json:"event"`
	ActiveCount int    `json:"active_count"`
	Remaining   int    `json:"remaining"`
}
