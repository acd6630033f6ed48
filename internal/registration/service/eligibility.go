package service

import (
	"context"
	"errors"

	eventModel "festreg/internal/event/models"
	registrationModel "festreg/internal/registration/models"
	"festreg/internal/storage"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/sentinel"
)

// eligibility is the checked registrant for one event.
type eligibility struct {
	registrant registrationModel.Registrant
	owner      id.ParticipantID
	team       *teamModel.Team
}

// checkEligibility applies the solo or team rules of event to actor and
// teamID. conflict is the error returned when the registrant already holds
// an active registration.
func checkEligibility(ctx context.Context, stores storage.Stores, event *eventModel.Event, actor id.ParticipantID, teamID *id.TeamID, conflict func() error) (eligibility, error) {
	if !event.IsTeam() {
		if teamID != nil {
			return eligibility{}, dErrors.Wrap(registrationModel.ReasonTeamNotAllowed, dErrors.CodeValidation, "This is a solo event; register without a team")
		}
		if err := ensureNoActive(stores.Registrations.FindActiveByParticipant(ctx, event.ID, actor)); err != nil {
			if errors.Is(err, errActiveExists) {
				return eligibility{}, conflict()
			}
			return eligibility{}, err
		}
		return eligibility{registrant: registrationModel.ParticipantRegistrant(actor), owner: actor}, nil
	}

	if teamID == nil {
		return eligibility{}, dErrors.Wrap(registrationModel.ReasonTeamRequired, dErrors.CodeValidation, "This is a team event; register with a team")
	}
	team, err := stores.Teams.FindByIDForUpdate(ctx, *teamID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return eligibility{}, dErrors.Wrap(teamModel.ReasonTeamNotFound, dErrors.CodeNotFound, "Team not found")
		}
		return eligibility{}, wrapStoreErr(err, "failed to load team")
	}
	if team.EventID != event.ID {
		return eligibility{}, dErrors.Wrap(registrationModel.ReasonTeamEventMismatch, dErrors.CodeValidation, "This team was formed for a different event")
	}
	if !team.Includes(actor) {
		return eligibility{}, dErrors.Wrap(registrationModel.ReasonNotTeamMember, dErrors.CodeForbidden, "You are not on this team")
	}
	if !event.TeamBounds.Contains(team.Size()) {
		return eligibility{}, registrationModel.ErrTeamSizeOutOfBounds()
	}
	if err := ensureMembersActive(ctx, stores, team); err != nil {
		return eligibility{}, err
	}
	if err := ensureNoActive(stores.Registrations.FindActiveByTeam(ctx, event.ID, team.ID)); err != nil {
		if errors.Is(err, errActiveExists) {
			return eligibility{}, conflict()
		}
		return eligibility{}, err
	}
	return eligibility{registrant: registrationModel.TeamRegistrant(team.ID), owner: team.LeaderID, team: team}, nil
}

// ensureMembersActive refuses teams carrying a blocked or deleted member.
func ensureMembersActive(ctx context.Context, stores storage.Stores, team *teamModel.Team) error {
	ids := append([]id.ParticipantID{team.LeaderID}, team.MemberIDs...)
	for _, pid := range ids {
		p, err := stores.Participants.FindByID(ctx, pid)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return wrapStoreErr(err, "failed to load team member")
		}
		if err != nil || !p.IsActive() {
			return dErrors.Wrap(registrationModel.ReasonRegistrantNotPermitted, dErrors.CodeForbidden,
				"A member of this team is not allowed to register")
		}
	}
	return nil
}

var errActiveExists = errors.New("active registration exists")

func ensureNoActive(_ *registrationModel.Registration, err error) error {
	switch {
	case err == nil:
		return errActiveExists
	case errors.Is(err, sentinel.ErrNotFound):
		return nil
	default:
		return wrapStoreErr(err, "failed to check existing registrations")
	}
}
