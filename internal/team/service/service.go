// Package service manages team membership. Every mutation runs inside the
// owning event's unit of work so it serialises with registrations of that
// event.
package service

import (
	"context"
	"errors"
	"log/slog"

	eventModel "festreg/internal/event/models"
	identityModel "festreg/internal/identity/models"
	"festreg/internal/storage"
	teamModel "festreg/internal/team/models"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
	"festreg/pkg/platform/audit"
	"festreg/pkg/platform/sentinel"
	"festreg/pkg/requestcontext"
)

// ParticipantDirectory is the slice of the identity service teams rely on.
type ParticipantDirectory interface {
	Resolve(ctx context.Context, identifier string) (*identityModel.Participant, error)
	RequireActive(ctx context.Context, participantID id.ParticipantID) (*identityModel.Participant, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	stores       storage.Stores
	uow          storage.UnitOfWork
	participants ParticipantDirectory

	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(stores storage.Stores, uow storage.UnitOfWork, participants ParticipantDirectory, opts ...Option) *Service {
	s := &Service{
		stores:       stores,
		uow:          uow,
		participants: participants,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create forms a team led by actor for a team event.
func (s *Service) Create(ctx context.Context, actor id.ParticipantID, name string, eventID id.EventID) (*teamModel.Team, error) {
	if _, err := s.participants.RequireActive(ctx, actor); err != nil {
		return nil, err
	}
	team, err := teamModel.NewTeam(name, actor, eventID, requestcontext.Now(ctx).UTC())
	if err != nil {
		return nil, err
	}

	err = s.uow.RunInTx(ctx, eventID, func(ctx context.Context, stores storage.Stores) error {
		event, err := stores.Events.FindByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(eventModel.ReasonEventNotFound, dErrors.CodeNotFound, "Event not found")
			}
			return wrapStoreErr(err, "failed to load event")
		}
		if err := event.EnsureAvailable(); err != nil {
			return err
		}
		if !event.IsTeam() {
			return dErrors.Wrap(teamModel.ReasonInvalidTeam, dErrors.CodeValidation, "Teams can only be formed for team events")
		}
		if err := stores.Teams.Create(ctx, team); err != nil {
			return wrapStoreErr(err, "failed to create team")
		}
		return nil
	})
	if err != nil {
		return nil, toDomainErr(err)
	}
	s.emit(ctx, audit.EventTeamCreated, team, actor)
	return team, nil
}

func (s *Service) Get(ctx context.Context, teamID id.TeamID) (*teamModel.Team, error) {
	team, err := s.stores.Teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, translateLookupErr(err)
	}
	return team, nil
}

// AddMember resolves identifier (email or public ID) and adds that
// participant. Size bounds are not checked here.
func (s *Service) AddMember(ctx context.Context, teamID id.TeamID, actor id.ParticipantID, identifier string) (*teamModel.Team, error) {
	member, err := s.participants.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if err := member.EnsureActive(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, teamID, actor, audit.EventTeamMemberAdded, func(ctx context.Context, team *teamModel.Team, _ storage.Stores) error {
		return team.AddMember(actor, member.ID, requestcontext.Now(ctx).UTC())
	})
}

// RemoveMember does not touch registrations the team already holds.
func (s *Service) RemoveMember(ctx context.Context, teamID id.TeamID, actor, memberID id.ParticipantID) (*teamModel.Team, error) {
	return s.mutate(ctx, teamID, actor, audit.EventTeamMemberRemoved, func(ctx context.Context, team *teamModel.Team, _ storage.Stores) error {
		return team.RemoveMember(actor, memberID, requestcontext.Now(ctx).UTC())
	})
}

// Delete is refused while the team holds an active registration.
func (s *Service) Delete(ctx context.Context, teamID id.TeamID, actor id.ParticipantID) error {
	_, err := s.mutate(ctx, teamID, actor, audit.EventTeamDeleted, func(ctx context.Context, team *teamModel.Team, stores storage.Stores) error {
		if err := team.EnsureLeader(actor); err != nil {
			return err
		}
		_, err := stores.Registrations.FindActiveByTeam(ctx, team.EventID, team.ID)
		switch {
		case err == nil:
			return dErrors.Wrap(teamModel.ReasonTeamHasActiveRegistration, dErrors.CodeConflict,
				"Cancel the team's registration before deleting the team")
		case !errors.Is(err, sentinel.ErrNotFound):
			return wrapStoreErr(err, "failed to check team registrations")
		}
		team.SoftDelete(requestcontext.Now(ctx).UTC())
		return nil
	})
	return err
}

// mutate loads the team to learn its event, then re-reads and changes it
// under that event's unit of work.
func (s *Service) mutate(ctx context.Context, teamID id.TeamID, actor id.ParticipantID, action audit.AuditEvent, apply func(context.Context, *teamModel.Team, storage.Stores) error) (*teamModel.Team, error) {
	current, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var team *teamModel.Team
	err = s.uow.RunInTx(ctx, current.EventID, func(ctx context.Context, stores storage.Stores) error {
		t, err := stores.Teams.FindByIDForUpdate(ctx, teamID)
		if err != nil {
			return translateLookupErr(err)
		}
		if err := apply(ctx, t, stores); err != nil {
			return err
		}
		if err := stores.Teams.Update(ctx, t); err != nil {
			return wrapStoreErr(err, "failed to update team")
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, toDomainErr(err)
	}
	s.emit(ctx, action, team, actor)
	return team, nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, team *teamModel.Team, actor id.ParticipantID) {
	s.logger.InfoContext(ctx, string(action),
		"log_type", "audit",
		"team_id", team.ID.String(),
		"event_id", team.EventID.String(),
		"participant_id", actor.String(),
		"team_size", team.Size(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditPublisher == nil {
		return
	}
	entry := audit.NewEvent(ctx, action, team.LeaderID, team.Name)
	entry.EventID = team.EventID.String()
	if actor != team.LeaderID {
		entry.ActorID = actor.String()
	}
	entry.Snapshot = audit.Snapshot(team)
	if err := s.auditPublisher.Emit(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", string(action), "error", err)
	}
}

func translateLookupErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(teamModel.ReasonTeamNotFound, dErrors.CodeNotFound, "Team not found")
	}
	return wrapStoreErr(err, "failed to load team")
}

func toDomainErr(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return wrapStoreErr(err, "team transaction failed")
}

func wrapStoreErr(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeDependency, msg)
}
