package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdicthq/verdict/internal/models"
)

func newSession(id, userID string, ttl time.Duration) *models.FlowSession {
	now := time.Now().UTC()
	return &models.FlowSession{
		ID:         id,
		UserID:     userID,
		Phase:      models.PhaseWelcome,
		QuizStatus: models.QuizAnswering,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

func TestFlowSessionLifecycle(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.CreateFlowSession(ctx, newSession("s1", "u1", time.Hour)))
	assert.Error(t, r.CreateFlowSession(ctx, newSession("s1", "u1", time.Hour)))

	s, err := r.GetFlowSessionByUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID)

	s.Phase = models.PhaseGuidelines
	s.AckedSections = []string{"a"}
	require.NoError(t, r.UpdateFlowSession(ctx, s))

	s, err = r.GetFlowSessionByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGuidelines, s.Phase)
	assert.Equal(t, []string{"a"}, s.AckedSections)

	// Unknown user yields nil, not an error
	s, err = r.GetFlowSessionByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, r.DeleteFlowSession(ctx, "s1"))
	assert.Error(t, r.DeleteFlowSession(ctx, "s1"))
}

func TestGetExpiredFlowSessions(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.CreateFlowSession(ctx, newSession("live", "u1", time.Hour)))
	require.NoError(t, r.CreateFlowSession(ctx, newSession("stale", "u2", -time.Minute)))

	// Completed sessions are never reaped, even past their TTL
	done := newSession("done", "u3", -time.Minute)
	done.Phase = models.PhaseCompleted
	require.NoError(t, r.CreateFlowSession(ctx, done))

	expired, err := r.GetExpiredFlowSessions(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "stale", expired[0].ID)
}

func TestCompleteStepIdempotent(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, r.CompleteStep(ctx, "u1", models.StepEmailVerified))
	require.NoError(t, r.CompleteStep(ctx, "u1", models.StepEmailVerified))
	require.NoError(t, r.CompleteStep(ctx, "u1", models.StepProfileCompleted))

	state, err := r.GetOnboardingState(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, state, 2)
	assert.True(t, state[models.StepEmailVerified])
	assert.True(t, state[models.StepProfileCompleted])

	other, err := r.GetOnboardingState(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
