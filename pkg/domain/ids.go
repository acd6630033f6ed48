// Package domain holds typed identifiers shared across the registration
// engine. Each aggregate gets its own ID type so a TeamID can never be passed
// where a ParticipantID is expected.
package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "festreg/pkg/domain-errors"
)

type (
	participantKind  struct{}
	eventKind        struct{}
	teamKind         struct{}
	registrationKind struct{}
)

// ID is a UUID tagged with the aggregate it identifies.
type ID[K any] uuid.UUID

type (
	ParticipantID  = ID[participantKind]
	EventID        = ID[eventKind]
	TeamID         = ID[teamKind]
	RegistrationID = ID[registrationKind]
)

// New returns a fresh random ID of kind K.
func New[K any]() ID[K] {
	return ID[K](uuid.New())
}

func NewParticipantID() ParticipantID   { return New[participantKind]() }
func NewEventID() EventID               { return New[eventKind]() }
func NewTeamID() TeamID                 { return New[teamKind]() }
func NewRegistrationID() RegistrationID { return New[registrationKind]() }

func (i ID[K]) String() string { return uuid.UUID(i).String() }

// IsNil reports whether the ID is the zero UUID.
func (i ID[K]) IsNil() bool { return uuid.UUID(i) == uuid.Nil }

func (i ID[K]) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID[K]) UnmarshalText(b []byte) error {
	parsed, err := parse[K](string(b))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer so typed IDs bind directly as query args.
func (i ID[K]) Value() (driver.Value, error) {
	return uuid.UUID(i).String(), nil
}

// Scan implements sql.Scanner.
func (i *ID[K]) Scan(src any) error {
	var u uuid.UUID
	if err := u.Scan(src); err != nil {
		return fmt.Errorf("scan id: %w", err)
	}
	*i = ID[K](u)
	return nil
}

func parse[K any](s string) (ID[K], error) {
	if s == "" {
		return ID[K]{}, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ID[K]{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return ID[K]{}, dErrors.New(dErrors.CodeInvalidInput, "id must not be nil")
	}
	return ID[K](u), nil
}

func ParseParticipantID(s string) (ParticipantID, error)   { return parse[participantKind](s) }
func ParseEventID(s string) (EventID, error)               { return parse[eventKind](s) }
func ParseTeamID(s string) (TeamID, error)                 { return parse[teamKind](s) }
func ParseRegistrationID(s string) (RegistrationID, error) { return parse[registrationKind](s) }
