package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/verdicthq/verdict/internal/models"
)

// MemoryRepository implements Repository in process memory. Used by
// tests and by local development without a database.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.FlowSession // keyed by session id
	steps    map[string]map[string]time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*models.FlowSession),
		steps:    make(map[string]map[string]time.Time),
	}
}

// CreateFlowSession creates a new flow session record
func (r *MemoryRepository) CreateFlowSession(ctx context.Context, s *models.FlowSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("flow session already exists: %s", s.ID)
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

// GetFlowSessionByUser retrieves a user's flow session, nil if none
func (r *MemoryRepository) GetFlowSessionByUser(ctx context.Context, userID string) (*models.FlowSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// UpdateFlowSession updates an existing flow session
func (r *MemoryRepository) UpdateFlowSession(ctx context.Context, s *models.FlowSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; !exists {
		return fmt.Errorf("flow session not found: %s", s.ID)
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

// DeleteFlowSession deletes a flow session by ID
func (r *MemoryRepository) DeleteFlowSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; !exists {
		return fmt.Errorf("flow session not found: %s", id)
	}
	delete(r.sessions, id)
	return nil
}

// GetExpiredFlowSessions returns non-completed sessions past their TTL
func (r *MemoryRepository) GetExpiredFlowSessions(ctx context.Context) ([]*models.FlowSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var expired []*models.FlowSession
	now := time.Now()
	for _, s := range r.sessions {
		if s.Phase != models.PhaseCompleted && now.After(s.ExpiresAt) {
			cp := *s
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

// CompleteStep records a step completion, idempotently
func (r *MemoryRepository) CompleteStep(ctx context.Context, userID, stepID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.steps[userID] == nil {
		r.steps[userID] = make(map[string]time.Time)
	}
	if _, done := r.steps[userID][stepID]; !done {
		r.steps[userID][stepID] = time.Now()
	}
	return nil
}

// GetOnboardingState returns the user's completed steps as a state map
func (r *MemoryRepository) GetOnboardingState(ctx context.Context, userID string) (models.OnboardingState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := make(models.OnboardingState)
	for stepID := range r.steps[userID] {
		state[stepID] = true
	}
	return state, nil
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (r *MemoryRepository) Close() error { return nil }
