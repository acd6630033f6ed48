package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

func TestTeamMembership(t *testing.T) {
	now := time.Now()
	leader := id.NewParticipantID()
	member := id.NewParticipantID()
	stranger := id.NewParticipantID()

	team, err := NewTeam("Night Owls", leader, id.NewEventID(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, team.Size())

	t.Run("only the leader adds members", func(t *testing.T) {
		err := team.AddMember(stranger, member, now)
		assert.ErrorIs(t, err, ReasonNotLeader)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("leader adds a member", func(t *testing.T) {
		require.NoError(t, team.AddMember(leader, member, now))
		assert.Equal(t, 2, team.Size())
		assert.True(t, team.Includes(member))
	})

	t.Run("duplicates and the leader are rejected", func(t *testing.T) {
		assert.ErrorIs(t, team.AddMember(leader, member, now), ReasonAlreadyMember)
		assert.ErrorIs(t, team.AddMember(leader, leader, now), ReasonAlreadyMember)
	})

	t.Run("removing a non-member fails", func(t *testing.T) {
		assert.ErrorIs(t, team.RemoveMember(leader, stranger, now), ReasonNotMember)
	})

	t.Run("leader removes a member", func(t *testing.T) {
		require.NoError(t, team.RemoveMember(leader, member, now))
		assert.Equal(t, 1, team.Size())
		assert.False(t, team.Includes(member))
	})
}

func TestNewTeamValidation(t *testing.T) {
	_, err := NewTeam("  ", id.NewParticipantID(), id.NewEventID(), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewTeam("Owls", id.ParticipantID{}, id.NewEventID(), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCloneDoesNotShareMembers(t *testing.T) {
	leader := id.NewParticipantID()
	team, err := NewTeam("Owls", leader, id.NewEventID(), time.Now())
	require.NoError(t, err)
	require.NoError(t, team.AddMember(leader, id.NewParticipantID(), time.Now()))

	clone := team.Clone()
	clone.MemberIDs[0] = id.NewParticipantID()
	assert.NotEqual(t, clone.MemberIDs[0], team.MemberIDs[0])
}
