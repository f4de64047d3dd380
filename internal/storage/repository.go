package storage

import (
	"context"

	"github.com/verdicthq/verdict/internal/models"
)

// Repository defines the interface for qualification persistence
type Repository interface {
	// Flow sessions
	CreateFlowSession(ctx context.Context, s *models.FlowSession) error
	GetFlowSessionByUser(ctx context.Context, userID string) (*models.FlowSession, error)
	UpdateFlowSession(ctx context.Context, s *models.FlowSession) error
	DeleteFlowSession(ctx context.Context, id string) error
	GetExpiredFlowSessions(ctx context.Context) ([]*models.FlowSession, error)

	// Onboarding steps. CompleteStep is idempotent and monotonic:
	// re-completing is a no-op and steps are never un-completed.
	CompleteStep(ctx context.Context, userID, stepID string) error
	GetOnboardingState(ctx context.Context, userID string) (models.OnboardingState, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
