package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "vitalroute", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.AI.PrimaryProvider)
	assert.Equal(t, "gpt-4o", cfg.AI.L1.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.L2.Model)
	assert.Equal(t, int64(50000), cfg.Quota.DailyTokenLimit)
	assert.Equal(t, 24*time.Hour, cfg.Chat.SessionTTL)
	assert.Equal(t, 90*24*time.Hour, cfg.Chat.BiomarkerFreshness)
	assert.Equal(t, 5, cfg.Retrieval.MaxDocuments)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("VITALROUTE_SERVER_PORT", "9090")
	t.Setenv("VITALROUTE_QUOTA_DAILY_TOKEN_LIMIT", "1000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(1000), cfg.Quota.DailyTokenLimit)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Server.Port = -1
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 8080
	cfg.Retrieval.RelevanceThreshold = 1.5
	assert.Error(t, cfg.Validate())
}
