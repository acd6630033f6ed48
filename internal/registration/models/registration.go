package models

import (
	"encoding/json"
	"time"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// State is either Active or Cancelled. Only the transition methods on
// Registration move between them.
type State interface {
	Status() Status
	isState()
}

type Active struct{}

func (Active) Status() Status { return StatusConfirmed }
func (Active) isState()       {}

// Cancelled records who released the slot and when.
type Cancelled struct {
	By id.ParticipantID
	At time.Time
}

func (Cancelled) Status() Status { return StatusCancelled }
func (Cancelled) isState()       {}

// Restoration is the latest restore stamp. Earlier stamps live in the audit
// trail.
type Restoration struct {
	By    id.ParticipantID
	At    time.Time
	Count int
}

type Registration struct {
	ID           id.RegistrationID
	EventID      id.EventID
	Registrant   Registrant
	State        State
	RegisteredBy id.ParticipantID
	CreatedAt    time.Time
	CheckedInAt  *time.Time
	Restoration  *Restoration
}

// New builds an active registration.
func New(eventID id.EventID, registrant Registrant, actor id.ParticipantID, now time.Time) *Registration {
	return &Registration{
		ID:           id.NewRegistrationID(),
		EventID:      eventID,
		Registrant:   registrant,
		State:        Active{},
		RegisteredBy: actor,
		CreatedAt:    now,
	}
}

func (r *Registration) Status() Status { return r.State.Status() }

// IsActive reports whether the registration occupies a capacity slot.
func (r *Registration) IsActive() bool {
	_, ok := r.State.(Active)
	return ok
}

// Cancelled returns the cancellation stamp when the registration is cancelled.
func (r *Registration) Cancelled() (Cancelled, bool) {
	c, ok := r.State.(Cancelled)
	return c, ok
}

// Cancel frees the slot. Authority and event timing are checked by the caller.
func (r *Registration) Cancel(actor id.ParticipantID, now time.Time) error {
	if !r.IsActive() {
		return dErrors.Wrap(ReasonAlreadyCancelled, dErrors.CodeConflict, "This registration is already cancelled")
	}
	if r.CheckedInAt != nil {
		return dErrors.Wrap(ReasonCheckedIn, dErrors.CodeConflict, "Checked-in registrations cannot be cancelled")
	}
	r.State = Cancelled{By: actor, At: now}
	return nil
}

// EnsureCancelled fails unless the registration can be restored.
func (r *Registration) EnsureCancelled() error {
	if r.IsActive() {
		return dErrors.Wrap(ReasonNotCancelled, dErrors.CodeConflict, "Only cancelled registrations can be restored")
	}
	return nil
}

// Restore re-activates the registration for registrant, which may be a
// replacement team. Capacity and eligibility are checked by the caller.
func (r *Registration) Restore(actor id.ParticipantID, registrant Registrant, now time.Time) error {
	if err := r.EnsureCancelled(); err != nil {
		return err
	}
	count := 1
	if r.Restoration != nil {
		count = r.Restoration.Count + 1
	}
	r.State = Active{}
	r.Registrant = registrant
	r.Restoration = &Restoration{By: actor, At: now, Count: count}
	return nil
}

func (r *Registration) CheckIn(now time.Time) error {
	if !r.IsActive() {
		return dErrors.Wrap(ReasonAlreadyCancelled, dErrors.CodeConflict, "Cancelled registrations cannot be checked in")
	}
	if r.CheckedInAt != nil {
		return dErrors.Wrap(ReasonAlreadyCheckedIn, dErrors.CodeConflict, "This registration is already checked in")
	}
	t := now
	r.CheckedInAt = &t
	return nil
}

// Clone returns a copy that shares no pointers with r.
func (r *Registration) Clone() *Registration {
	c := *r
	if r.CheckedInAt != nil {
		t := *r.CheckedInAt
		c.CheckedInAt = &t
	}
	if r.Restoration != nil {
		rs := *r.Restoration
		c.Restoration = &rs
	}
	return &c
}

type registrationJSON struct {
	ID           id.RegistrationID `json:"id"`
	EventID      id.EventID        `json:"event_id"`
	Registrant   Registrant        `json:"registrant"`
	Status       Status            `json:"status"`
	RegisteredBy id.ParticipantID  `json:"registered_by"`
	CreatedAt    time.Time         `json:"created_at"`
	CheckedInAt  *time.Time        `json:"checked_in_at,omitempty"`
	CancelledBy  *id.ParticipantID `json:"cancelled_by,omitempty"`
	CancelledAt  *time.Time        `json:"cancelled_at,omitempty"`
	RestoredBy   *id.ParticipantID `json:"restored_by,omitempty"`
	RestoredAt   *time.Time        `json:"restored_at,omitempty"`
	RestoreCount int               `json:"restore_count"`
}

// MarshalJSON flattens the state into the wire shape used by the API and
// audit snapshots.
func (r *Registration) MarshalJSON() ([]byte, error) {
	out := registrationJSON{
		ID:           r.ID,
		EventID:      r.EventID,
		Registrant:   r.Registrant,
		Status:       r.Status(),
		RegisteredBy: r.RegisteredBy,
		CreatedAt:    r.CreatedAt,
		CheckedInAt:  r.CheckedInAt,
	}
	if c, ok := r.Cancelled(); ok {
		out.CancelledBy = &c.By
		out.CancelledAt = &c.At
	}
	if r.Restoration != nil {
		out.RestoredBy = &r.Restoration.By
		out.RestoredAt = &r.Restoration.At
		out.RestoreCount = r.Restoration.Count
	}
	return json.Marshal(out)
}
