package models

import dErrors "festreg/pkg/domain-errors"

const (
	ReasonAlreadyRegistered      dErrors.Reason = "already_registered"
	ReasonTeamNotAllowed         dErrors.Reason = "team_not_allowed"
	ReasonTeamRequired           dErrors.Reason = "team_required"
	ReasonTeamEventMismatch      dErrors.Reason = "team_event_mismatch"
	ReasonNotTeamMember          dErrors.Reason = "not_team_member"
	ReasonTeamSizeOutOfBounds    dErrors.Reason = "team_size_out_of_bounds"
	ReasonEventFull              dErrors.Reason = "event_full"
	ReasonRegistrationNotFound   dErrors.Reason = "registration_not_found"
	ReasonNotOwner               dErrors.Reason = "not_owner"
	ReasonAlreadyCancelled       dErrors.Reason = "already_cancelled"
	ReasonCheckedIn              dErrors.Reason = "checked_in"
	ReasonAlreadyCheckedIn       dErrors.Reason = "already_checked_in"
	ReasonEventAlreadyStarted    dErrors.Reason = "event_already_started"
	ReasonNotCancelled           dErrors.Reason = "not_cancelled"
	ReasonTeamAlreadyRegistered  dErrors.Reason = "team_already_registered"
	ReasonRegistrantNotPermitted dErrors.Reason = "registrant_not_permitted"
)

func ErrAlreadyRegistered() error {
	return dErrors.Wrap(ReasonAlreadyRegistered, dErrors.CodeConflict, "You are already registered for this event")
}

func ErrTeamAlreadyRegistered() error {
	return dErrors.Wrap(ReasonTeamAlreadyRegistered, dErrors.CodeConflict, "This team already holds an active registration for the event")
}

func ErrEventFull() error {
	return dErrors.Wrap(ReasonEventFull, dErrors.CodeCapacityExceeded, "This event is full; watch for cancellations")
}

func ErrNotFound() error {
	return dErrors.Wrap(ReasonRegistrationNotFound, dErrors.CodeNotFound, "Registration not found")
}

func ErrTeamSizeOutOfBounds() error {
	return dErrors.Wrap(ReasonTeamSizeOutOfBounds, dErrors.CodeValidation, "Team size is outside the event's allowed range")
}
