package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdicthq/verdict/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Flow sessions ---

const flowSessionColumns = `id, user_id, phase, status_message, acked_sections, consent, quiz_status, score, total, passed, last_demographics, created_at, updated_at, expires_at`

// CreateFlowSession creates a new flow session record
func (r *PostgresRepository) CreateFlowSession(ctx context.Context, s *models.FlowSession) error {
	query := `
		INSERT INTO flow_sessions (` + flowSessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		string(s.Phase),
		nullString(s.StatusMessage),
		s.AckedSections,
		s.Consent,
		string(s.QuizStatus),
		s.Score,
		s.Total,
		s.Passed,
		[]byte(s.LastDemographics),
		s.CreatedAt,
		s.UpdatedAt,
		s.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create flow session: %w", err)
	}

	return nil
}

// GetFlowSessionByUser retrieves a user's flow session, nil if none
func (r *PostgresRepository) GetFlowSessionByUser(ctx context.Context, userID string) (*models.FlowSession, error) {
	query := `SELECT ` + flowSessionColumns + ` FROM flow_sessions WHERE user_id = $1`

	s, err := r.scanFlowSession(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get flow session: %w", err)
	}

	return s, nil
}

// UpdateFlowSession updates an existing flow session
func (r *PostgresRepository) UpdateFlowSession(ctx context.Context, s *models.FlowSession) error {
	query := `
		UPDATE flow_sessions
		SET phase = $2, status_message = $3, acked_sections = $4, consent = $5,
		    quiz_status = $6, score = $7, total = $8, passed = $9,
		    last_demographics = $10, updated_at = $11, expires_at = $12
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		s.ID,
		string(s.Phase),
		nullString(s.StatusMessage),
		s.AckedSections,
		s.Consent,
		string(s.QuizStatus),
		s.Score,
		s.Total,
		s.Passed,
		[]byte(s.LastDemographics),
		s.UpdatedAt,
		s.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update flow session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("flow session not found: %s", s.ID)
	}

	return nil
}

// DeleteFlowSession deletes a flow session by ID
func (r *PostgresRepository) DeleteFlowSession(ctx context.Context, id string) error {
	query := `DELETE FROM flow_sessions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("flow session not found: %s", id)
	}

	return nil
}

// GetExpiredFlowSessions returns non-completed sessions past their TTL
func (r *PostgresRepository) GetExpiredFlowSessions(ctx context.Context) ([]*models.FlowSession, error) {
	query := `
		SELECT ` + flowSessionColumns + `
		FROM flow_sessions
		WHERE phase != 'completed'
		  AND expires_at < NOW()
		ORDER BY expires_at ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired flow sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.FlowSession

	for rows.Next() {
		s, err := r.scanFlowSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired flow sessions: %w", err)
	}

	return sessions, nil
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanFlowSession(row rowScanner) (*models.FlowSession, error) {
	var s models.FlowSession
	var phaseStr, quizStatusStr string
	var statusMsg sql.NullString
	var lastDemographics []byte

	err := row.Scan(
		&s.ID,
		&s.UserID,
		&phaseStr,
		&statusMsg,
		&s.AckedSections,
		&s.Consent,
		&quizStatusStr,
		&s.Score,
		&s.Total,
		&s.Passed,
		&lastDemographics,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	s.Phase = models.FlowPhase(phaseStr)
	s.QuizStatus = models.QuizStatus(quizStatusStr)
	s.StatusMessage = statusMsg.String
	s.LastDemographics = lastDemographics

	return &s, nil
}

// --- Onboarding steps ---

// CompleteStep records a step completion. Re-completing a step is a
// no-op, which makes the call idempotent and the state monotonic.
func (r *PostgresRepository) CompleteStep(ctx context.Context, userID, stepID string) error {
	query := `
		INSERT INTO onboarding_steps (user_id, step_id, completed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, step_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, userID, stepID)
	if err != nil {
		return fmt.Errorf("failed to complete step: %w", err)
	}

	return nil
}

// GetOnboardingState returns the user's completed steps as a state map
func (r *PostgresRepository) GetOnboardingState(ctx context.Context, userID string) (models.OnboardingState, error) {
	query := `SELECT step_id FROM onboarding_steps WHERE user_id = $1`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding state: %w", err)
	}
	defer rows.Close()

	state := make(models.OnboardingState)
	for rows.Next() {
		var stepID string
		if err := rows.Scan(&stepID); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		state[stepID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return state, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
