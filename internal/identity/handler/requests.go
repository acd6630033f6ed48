package handler

import (
	"strings"

	identityModel "festreg/internal/identity/models"
	dErrors "festreg/pkg/domain-errors"
)

// CreateParticipantRequest is the body of POST /participants.
type CreateParticipantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (r *CreateParticipantRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

// Validate checks presence only; the profile rules live in the model.
func (r *CreateParticipantRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	if len(r.Name) > 200 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 200 characters")
	}
	return nil
}

func (r *CreateParticipantRequest) Profile() identityModel.Profile {
	return identityModel.Profile{Email: r.Email, Password: r.Password, Name: r.Name}
}

// LoginRequest is the body of POST /auth/login. Identifier is an email or a
// public ID.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Identifier = strings.TrimSpace(r.Identifier)
}

func (r *LoginRequest) Validate() error {
	if r.Identifier == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier and password are required")
	}
	return nil
}
