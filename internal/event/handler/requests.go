package handler

import (
	"strings"
	"time"

	eventModel "festreg/internal/event/models"
	dErrors "festreg/pkg/domain-errors"
)

// CreateEventRequest is the body of POST /admin/events. TeamMin and TeamMax
// are required exactly for team events.
type CreateEventRequest struct {
	Name                 string    `json:"name"`
	Kind                 string    `json:"kind"`
	Capacity             int       `json:"capacity"`
	RegistrationDeadline time.Time `json:"registration_deadline"`
	StartsAt             time.Time `json:"starts_at"`
	TeamMin              *int      `json:"team_min,omitempty"`
	TeamMax              *int      `json:"team_max,omitempty"`

	parsedKind eventModel.Kind
}

func (r *CreateEventRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *CreateEventRequest) Validate() error {
	if len(r.Name) > 200 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 200 characters")
	}
	kind, err := eventModel.ParseKind(r.Kind)
	if err != nil {
		return err
	}
	r.parsedKind = kind
	if (r.TeamMin == nil) != (r.TeamMax == nil) {
		return dErrors.New(dErrors.CodeValidation, "team_min and team_max must be given together")
	}
	return nil
}

// Params maps the request onto the model; the model checks the invariants.
func (r *CreateEventRequest) Params() eventModel.NewEventParams {
	params := eventModel.NewEventParams{
		Name:                 r.Name,
		Kind:                 r.parsedKind,
		Capacity:             r.Capacity,
		RegistrationDeadline: r.RegistrationDeadline,
		StartsAt:             r.StartsAt,
	}
	if r.TeamMin != nil && r.TeamMax != nil {
		params.TeamBounds = &eventModel.TeamBounds{Min: *r.TeamMin, Max: *r.TeamMax}
	}
	return params
}

type UpdateCapacityRequest struct {
	Capacity int `json:"capacity"`
}

func (r *UpdateCapacityRequest) Validate() error {
	if r.Capacity < 1 {
		return dErrors.New(dErrors.CodeValidation, "capacity must be a positive integer")
	}
	return nil
}
