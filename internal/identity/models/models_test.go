package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "festreg/pkg/domain-errors"
)

func TestProfileValidate(t *testing.T) {
	t.Run("normalizes email and name", func(t *testing.T) {
		p := Profile{Email: "  Ada@Example.COM ", Password: "correct horse", Name: " Ada "}
		require.NoError(t, p.Validate())
		assert.Equal(t, "ada@example.com", p.Email)
		assert.Equal(t, "Ada", p.Name)
	})

	tests := []struct {
		name    string
		profile Profile
	}{
		{"missing email", Profile{Password: "longenough", Name: "Ada"}},
		{"malformed email", Profile{Email: "ada-at-example", Password: "longenough", Name: "Ada"}},
		{"display name form", Profile{Email: "Ada <ada@example.com>", Password: "longenough", Name: "Ada"}},
		{"missing name", Profile{Email: "ada@example.com", Password: "longenough"}},
		{"short password", Profile{Email: "ada@example.com", Password: "short", Name: "Ada"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestParticipantActivity(t *testing.T) {
	now := time.Now()
	p := &Participant{}
	assert.NoError(t, p.EnsureActive())

	p.Block(now)
	err := p.EnsureActive()
	assert.ErrorIs(t, err, ReasonParticipantBlocked)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	p.Unblock(now)
	assert.True(t, p.IsActive())

	p.SoftDelete(now)
	assert.ErrorIs(t, p.EnsureActive(), ReasonParticipantBlocked)
}

func TestIdentifier(t *testing.T) {
	assert.True(t, Identifier("ada@example.com").IsEmail())
	assert.Equal(t, "ada@example.com", Identifier(" ADA@example.com").Normalized())
	assert.False(t, Identifier("fest260001").IsEmail())
	assert.Equal(t, "FEST260001", Identifier(" fest260001 ").Normalized())
}
