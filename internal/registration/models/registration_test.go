package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

func TestLifecycleTransitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	actor := id.NewParticipantID()
	reg := New(id.NewEventID(), ParticipantRegistrant(actor), actor, now)
	require.True(t, reg.IsActive())
	assert.Equal(t, StatusConfirmed, reg.Status())

	t.Run("restore requires a cancelled registration", func(t *testing.T) {
		err := reg.Restore(actor, reg.Registrant, now)
		assert.ErrorIs(t, err, ReasonNotCancelled)
	})

	t.Run("cancel stamps actor and time", func(t *testing.T) {
		require.NoError(t, reg.Cancel(actor, now.Add(time.Hour)))
		c, ok := reg.Cancelled()
		require.True(t, ok)
		assert.Equal(t, actor, c.By)
		assert.Equal(t, now.Add(time.Hour), c.At)
		assert.False(t, reg.IsActive())
	})

	t.Run("double cancel is rejected", func(t *testing.T) {
		err := reg.Cancel(actor, now)
		assert.ErrorIs(t, err, ReasonAlreadyCancelled)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("restore counts and clears the cancellation", func(t *testing.T) {
		require.NoError(t, reg.Restore(actor, reg.Registrant, now.Add(2*time.Hour)))
		assert.True(t, reg.IsActive())
		_, cancelled := reg.Cancelled()
		assert.False(t, cancelled)
		require.NotNil(t, reg.Restoration)
		assert.Equal(t, 1, reg.Restoration.Count)

		require.NoError(t, reg.Cancel(actor, now.Add(3*time.Hour)))
		require.NoError(t, reg.Restore(actor, reg.Registrant, now.Add(4*time.Hour)))
		assert.Equal(t, 2, reg.Restoration.Count)
	})
}

func TestCheckIn(t *testing.T) {
	now := time.Now()
	actor := id.NewParticipantID()
	reg := New(id.NewEventID(), ParticipantRegistrant(actor), actor, now)

	require.NoError(t, reg.CheckIn(now))
	assert.ErrorIs(t, reg.CheckIn(now), ReasonAlreadyCheckedIn)
	assert.ErrorIs(t, reg.Cancel(actor, now), ReasonCheckedIn)
	assert.True(t, reg.IsActive())

	cancelled := New(id.NewEventID(), ParticipantRegistrant(actor), actor, now)
	require.NoError(t, cancelled.Cancel(actor, now))
	assert.ErrorIs(t, cancelled.CheckIn(now), ReasonAlreadyCancelled)
}

func TestRegistrant(t *testing.T) {
	pid := id.NewParticipantID()
	tid := id.NewTeamID()

	p := ParticipantRegistrant(pid)
	got, ok := p.ParticipantID()
	assert.True(t, ok)
	assert.Equal(t, pid, got)
	_, ok = p.TeamID()
	assert.False(t, ok)

	team := TeamRegistrant(tid)
	gotTeam, ok := team.TeamID()
	assert.True(t, ok)
	assert.Equal(t, tid, gotTeam)
	_, ok = team.ParticipantID()
	assert.False(t, ok)

	assert.True(t, Registrant{}.IsZero())

	raw, err := json.Marshal(team)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"team","id":"`+tid.String()+`"}`, string(raw))

	var decoded Registrant
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, team, decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"crowd","id":"x"}`), &decoded))
}

func TestRegistrationJSON(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	actor := id.NewParticipantID()
	reg := New(id.NewEventID(), ParticipantRegistrant(actor), actor, now)
	require.NoError(t, reg.Cancel(actor, now))

	raw, err := json.Marshal(reg)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "cancelled", body["status"])
	assert.Equal(t, actor.String(), body["cancelled_by"])
	assert.NotContains(t, body, "restored_at")
}

func TestCloneIsIndependent(t *testing.T) {
	now := time.Now()
	actor := id.NewParticipantID()
	reg := New(id.NewEventID(), ParticipantRegistrant(actor), actor, now)
	require.NoError(t, reg.CheckIn(now))

	clone := reg.Clone()
	later := now.Add(time.Hour)
	*clone.CheckedInAt = later
	assert.Equal(t, now, *reg.CheckedInAt)
}
