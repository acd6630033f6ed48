package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "FEST", cfg.PublicID.Prefix)
	assert.Equal(t, 4, cfg.PublicID.Width)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.False(t, cfg.UsesPostgres())
	assert.Empty(t, cfg.Audit.KafkaBrokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://festreg@localhost/festreg?sslmode=disable")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PUBLIC_ID_WIDTH", "6")
	t.Setenv("AUDIT_OPS_SAMPLE_RATES", "login_succeeded:0.1,team_updated:0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.UsesPostgres())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 6, cfg.PublicID.Width)
	assert.Equal(t, map[string]float64{"login_succeeded": 0.1, "team_updated": 0}, cfg.Audit.OpsSampleRates)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("unparseable value", func(t *testing.T) {
		t.Setenv("TX_TIMEOUT", "soon")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("width out of range", func(t *testing.T) {
		t.Setenv("PUBLIC_ID_WIDTH", "0")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PUBLIC_ID_WIDTH")
	})

	t.Run("per-action sample rate out of range", func(t *testing.T) {
		t.Setenv("AUDIT_OPS_SAMPLE_RATES", "login_succeeded:1.5")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUDIT_OPS_SAMPLE_RATES[login_succeeded]")
	})

	t.Run("prefix that reads as an email", func(t *testing.T) {
		t.Setenv("PUBLIC_ID_PREFIX", "fest@")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PUBLIC_ID_PREFIX")
	})
}
