package models

import (
	"slices"
	"strings"
	"time"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

const (
	ReasonTeamNotFound              dErrors.Reason = "team_not_found"
	ReasonNotLeader                 dErrors.Reason = "not_leader"
	ReasonAlreadyMember             dErrors.Reason = "already_member"
	ReasonNotMember                 dErrors.Reason = "not_member"
	ReasonTeamHasActiveRegistration dErrors.Reason = "team_has_active_registration"
	ReasonInvalidTeam               dErrors.Reason = "invalid_team"
)

// Team is scoped to one event. LeaderID never appears in MemberIDs.
type Team struct {
	ID        id.TeamID          `json:"id"`
	EventID   id.EventID         `json:"event_id"`
	Name      string             `json:"name"`
	LeaderID  id.ParticipantID   `json:"leader_id"`
	MemberIDs []id.ParticipantID `json:"member_ids"`
	Deleted   bool               `json:"-"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func NewTeam(name string, leaderID id.ParticipantID, eventID id.EventID, now time.Time) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.Wrap(ReasonInvalidTeam, dErrors.CodeValidation, "team name is required")
	}
	if leaderID.IsNil() || eventID.IsNil() {
		return nil, dErrors.Wrap(ReasonInvalidTeam, dErrors.CodeValidation, "team requires a leader and an event")
	}
	return &Team{
		ID:        id.NewTeamID(),
		EventID:   eventID,
		Name:      name,
		LeaderID:  leaderID,
		MemberIDs: []id.ParticipantID{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Size counts the leader plus members.
func (t *Team) Size() int {
	return 1 + len(t.MemberIDs)
}

func (t *Team) IsLeader(pid id.ParticipantID) bool {
	return t.LeaderID == pid
}

func (t *Team) HasMember(pid id.ParticipantID) bool {
	return slices.Contains(t.MemberIDs, pid)
}

// Includes reports whether pid is the leader or a member.
func (t *Team) Includes(pid id.ParticipantID) bool {
	return t.IsLeader(pid) || t.HasMember(pid)
}

// EnsureLeader fails unless actor leads the team.
func (t *Team) EnsureLeader(actor id.ParticipantID) error {
	if !t.IsLeader(actor) {
		return dErrors.Wrap(ReasonNotLeader, dErrors.CodeForbidden, "Only the team leader can do this")
	}
	return nil
}

// AddMember does not check size; bounds apply only when the team registers.
func (t *Team) AddMember(actor, member id.ParticipantID, now time.Time) error {
	if err := t.EnsureLeader(actor); err != nil {
		return err
	}
	if t.Includes(member) {
		return dErrors.Wrap(ReasonAlreadyMember, dErrors.CodeConflict, "Participant is already on this team")
	}
	t.MemberIDs = append(t.MemberIDs, member)
	t.UpdatedAt = now
	return nil
}

func (t *Team) RemoveMember(actor, member id.ParticipantID, now time.Time) error {
	if err := t.EnsureLeader(actor); err != nil {
		return err
	}
	idx := slices.Index(t.MemberIDs, member)
	if idx < 0 {
		return dErrors.Wrap(ReasonNotMember, dErrors.CodeNotFound, "Participant is not a member of this team")
	}
	t.MemberIDs = slices.Delete(t.MemberIDs, idx, idx+1)
	t.UpdatedAt = now
	return nil
}

func (t *Team) SoftDelete(now time.Time) {
	t.Deleted = true
	t.UpdatedAt = now
}

// Clone returns a deep copy so stores never share member slices with callers.
func (t *Team) Clone() *Team {
	c := *t
	c.MemberIDs = slices.Clone(t.MemberIDs)
	if c.MemberIDs == nil {
		c.MemberIDs = []id.ParticipantID{}
	}
	return &c
}
