package models

import (
	"net/mail"
	"strings"
	"time"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

const (
	ReasonEmailTaken          dErrors.Reason = "email_taken"
	ReasonInvalidCredentials  dErrors.Reason = "invalid_credentials"
	ReasonParticipantBlocked  dErrors.Reason = "participant_blocked"
	ReasonParticipantNotFound dErrors.Reason = "participant_not_found"
	ReasonInvalidProfile      dErrors.Reason = "invalid_profile"
)

const MinPasswordLength = 8

// Participant is a registered attendee. PublicID and Sequence never change
// once assigned.
type Participant struct {
	ID           id.ParticipantID `json:"id"`
	PublicID     string           `json:"public_id"`
	Sequence     int64            `json:"-"`
	Email        string           `json:"email"`
	Name         string           `json:"name"`
	PasswordHash string           `json:"-"`
	Blocked      bool             `json:"blocked"`
	Deleted      bool             `json:"deleted"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Profile is the signup payload.
type Profile struct {
	Email    string
	Password string
	Name     string
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate normalizes p in place and checks its fields.
func (p *Profile) Validate() error {
	p.Email = NormalizeEmail(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	if p.Email == "" {
		return dErrors.Wrap(ReasonInvalidProfile, dErrors.CodeValidation, "email is required")
	}
	addr, err := mail.ParseAddress(p.Email)
	if err != nil || addr.Address != p.Email {
		return dErrors.Wrap(ReasonInvalidProfile, dErrors.CodeValidation, "email is not a valid address")
	}
	if p.Name == "" {
		return dErrors.Wrap(ReasonInvalidProfile, dErrors.CodeValidation, "name is required")
	}
	if len(p.Password) < MinPasswordLength {
		return dErrors.Wrap(ReasonInvalidProfile, dErrors.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}

// IsActive reports whether the participant may sign in and register.
func (p *Participant) IsActive() bool {
	return !p.Blocked && !p.Deleted
}

// EnsureActive fails for blocked or soft-deleted participants.
func (p *Participant) EnsureActive() error {
	if !p.IsActive() {
		return dErrors.Wrap(ReasonParticipantBlocked, dErrors.CodeForbidden, "This account is blocked")
	}
	return nil
}

func (p *Participant) Block(now time.Time) {
	p.Blocked = true
	p.UpdatedAt = now
}

func (p *Participant) Unblock(now time.Time) {
	p.Blocked = false
	p.UpdatedAt = now
}

func (p *Participant) SoftDelete(now time.Time) {
	p.Deleted = true
	p.UpdatedAt = now
}

// Identifier is either an email address or a public ID.
type Identifier string

// IsEmail reports whether the identifier should be looked up by email.
func (i Identifier) IsEmail() bool {
	return strings.Contains(string(i), "@")
}

// Normalized returns the lookup form: lowercase email, or uppercase public ID.
func (i Identifier) Normalized() string {
	if i.IsEmail() {
		return NormalizeEmail(string(i))
	}
	return strings.ToUpper(strings.TrimSpace(string(i)))
}

// Session is the result of a successful login.
type Session struct {
	Token       string
	ExpiresAt   time.Time
	Participant *Participant
}
