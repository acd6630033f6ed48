package audit

import (
	"context"
	"encoding/json"
	"time"

	id "festreg/pkg/domain"
	"festreg/pkg/requestcontext"
)

// EventCategory classifies audit events by their primary purpose.
// Categories drive retention and sampling decisions in the publisher.
type EventCategory string

const (
	// CategoryCompliance covers the registration history that organizers rely
	// on as the authoritative record: who registered, cancelled or restored
	// and when, plus participant lifecycle.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authentication failures and account sanctions.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity that may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// ParticipantID owns the trail entry. For team registrations it is the
	// team leader.
	ParticipantID id.ParticipantID `json:"participant_id"`
	// ActorID is who performed the action when different from ParticipantID
	// (admins acting on a participant's behalf).
	ActorID   string `json:"actor_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Subject   string `json:"subject"`
	Action    string `json:"action"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	// Snapshot is the JSON rendering of the entity after the action.
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByParticipant(ctx context.Context, participantID id.ParticipantID) ([]Event, error)
}

type AuditEvent string

const (
	// Identity events
	EventParticipantCreated   AuditEvent = "participant_created"
	EventParticipantBlocked   AuditEvent = "participant_blocked"
	EventParticipantUnblocked AuditEvent = "participant_unblocked"
	EventParticipantDeleted   AuditEvent = "participant_deleted"
	EventLoginSucceeded       AuditEvent = "login_succeeded"
	EventLoginFailed          AuditEvent = "login_failed"

	// Team events
	EventTeamCreated       AuditEvent = "team_created"
	EventTeamMemberAdded   AuditEvent = "team_member_added"
	EventTeamMemberRemoved AuditEvent = "team_member_removed"
	EventTeamDeleted       AuditEvent = "team_deleted"

	// Event (festival) events
	EventEventCreated         AuditEvent = "event_created"
	EventEventCapacityUpdated AuditEvent = "event_capacity_updated"
	EventEventDeleted         AuditEvent = "event_deleted"

	// Registration events
	EventRegistrationCreated   AuditEvent = "registration_created"
	EventRegistrationCancelled AuditEvent = "registration_cancelled"
	EventRegistrationRestored  AuditEvent = "registration_restored"
	EventRegistrationCheckedIn AuditEvent = "registration_checked_in"
	EventRegistrationRejected  AuditEvent = "registration_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventParticipantCreated:    CategoryCompliance,
	EventParticipantDeleted:    CategoryCompliance,
	EventRegistrationCreated:   CategoryCompliance,
	EventRegistrationCancelled: CategoryCompliance,
	EventRegistrationRestored:  CategoryCompliance,
	EventRegistrationCheckedIn: CategoryCompliance,
	EventEventDeleted:          CategoryCompliance,

	EventLoginFailed:          CategorySecurity,
	EventParticipantBlocked:   CategorySecurity,
	EventParticipantUnblocked: CategorySecurity,

	EventLoginSucceeded:       CategoryOperations,
	EventTeamCreated:          CategoryOperations,
	EventTeamMemberAdded:      CategoryOperations,
	EventTeamMemberRemoved:    CategoryOperations,
	EventTeamDeleted:          CategoryOperations,
	EventEventCreated:         CategoryOperations,
	EventEventCapacityUpdated: CategoryOperations,
	EventRegistrationRejected: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Snapshot marshals v for Event.Snapshot. Marshal failures yield nil so a
// bad snapshot never blocks the trail entry itself.
func Snapshot(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// NewEvent starts an event for action with the request metadata carried by
// ctx. The publisher fills ID, Timestamp and Category when left empty.
func NewEvent(ctx context.Context, action AuditEvent, participantID id.ParticipantID, subject string) Event {
	return Event{
		Timestamp:     requestcontext.Now(ctx),
		ParticipantID: participantID,
		Subject:       subject,
		Action:        string(action),
		RequestID:     requestcontext.RequestID(ctx),
		ClientIP:      requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
	}
}
