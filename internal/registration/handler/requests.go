package handler

import (
	"strings"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

// RegisterRequest is the body of POST /registrations/register. TeamID is
// required for team events and rejected for solo ones.
type RegisterRequest struct {
	EventID string  `json:"event_id"`
	TeamID  *string `json:"team_id,omitempty"`

	eventID id.EventID
	teamID  *id.TeamID
}

func (r *RegisterRequest) Normalize() {
	r.EventID = strings.TrimSpace(r.EventID)
	r.TeamID = trimOptional(r.TeamID)
}

func (r *RegisterRequest) Validate() error {
	eventID, err := id.ParseEventID(r.EventID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "event_id must be a valid id")
	}
	teamID, err := parseOptionalTeam(r.TeamID)
	if err != nil {
		return err
	}
	r.eventID = eventID
	r.teamID = teamID
	return nil
}

// CancelRequest is the body of PATCH /registrations/cancel.
type CancelRequest struct {
	RegistrationID string `json:"registration_id"`

	registrationID id.RegistrationID
}

func (r *CancelRequest) Normalize() {
	r.RegistrationID = strings.TrimSpace(r.RegistrationID)
}

func (r *CancelRequest) Validate() error {
	regID, err := id.ParseRegistrationID(r.RegistrationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "registration_id must be a valid id")
	}
	r.registrationID = regID
	return nil
}

// RestoreRequest is the body of POST /registrations/restore. TeamID names a
// replacement team when the original one is no longer usable.
type RestoreRequest struct {
	RegistrationID string  `json:"registration_id"`
	TeamID         *string `json:"team_id,omitempty"`

	registrationID id.RegistrationID
	teamID         *id.TeamID
}

func (r *RestoreRequest) Normalize() {
	r.RegistrationID = strings.TrimSpace(r.RegistrationID)
	r.TeamID = trimOptional(r.TeamID)
}

func (r *RestoreRequest) Validate() error {
	regID, err := id.ParseRegistrationID(r.RegistrationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "registration_id must be a valid id")
	}
	teamID, err := parseOptionalTeam(r.TeamID)
	if err != nil {
		return err
	}
	r.registrationID = regID
	r.teamID = teamID
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func parseOptionalTeam(s *string) (*id.TeamID, error) {
	if s == nil {
		return nil, nil
	}
	teamID, err := id.ParseTeamID(*s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "team_id must be a valid id")
	}
	return &teamID, nil
}
