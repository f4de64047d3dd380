package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Flow.SessionTTL)
	assert.Equal(t, 2*time.Second, cfg.Flow.QuizAckDelay)
	assert.Equal(t, 3*time.Second, cfg.Flow.CompletionDelay)
	assert.Equal(t, "/judge", cfg.Flow.JudgeHomeURL)
	assert.Equal(t, 5, cfg.Flow.QuizRateLimit)
	assert.Equal(t, "./content", cfg.Content.Dir)
	assert.Empty(t, cfg.Redis.Address)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("FLOW_QUIZ_ACK_DELAY", "0s")
	t.Setenv("FLOW_SESSION_TTL", "30m")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("GRADING_BASE_URL", "http://grading.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Flow.QuizAckDelay)
	assert.Equal(t, 30*time.Minute, cfg.Flow.SessionTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "http://grading.internal", cfg.Collaborators.GradingBaseURL)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("CLEANUP_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, cfg.Cleanup.Interval)
}

func TestValidate(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.Auth.JWTSecret = ""
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.Database.DSN = ""
	assert.Error(t, cfg.Validate())

	cfg, _ = Load()
	cfg.Flow.QuizRateLimit = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadRequiresSecret(t *testing.T) {
	// No AUTH_JWT_SECRET in the environment
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}
