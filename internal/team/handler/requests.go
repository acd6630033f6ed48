package handler

import (
	"strings"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

// CreateTeamRequest is the body of POST /teams.
type CreateTeamRequest struct {
	Name    string `json:"name"`
	EventID string `json:"event_id"`

	parsedEventID id.EventID
}

func (r *CreateTeamRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.EventID = strings.TrimSpace(r.EventID)
}

func (r *CreateTeamRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 100 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 100 characters")
	}
	eventID, err := id.ParseEventID(r.EventID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "event_id must be a valid id")
	}
	r.parsedEventID = eventID
	return nil
}

func (r *CreateTeamRequest) ParsedEventID() id.EventID {
	return r.parsedEventID
}

// AddMemberRequest names the participant by email or public ID.
type AddMemberRequest struct {
	Identifier string `json:"identifier"`
}

func (r *AddMemberRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
}

func (r *AddMemberRequest) Validate() error {
	if r.Identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	return nil
}
