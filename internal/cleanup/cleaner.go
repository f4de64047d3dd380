package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/verdicthq/verdict/internal/storage"
)

// AttemptDropper releases the in-memory quiz attempt of a reaped
// session so abandoned flows do not leak attempts.
type AttemptDropper interface {
	DropAttempt(sessionID string)
}

// Cleaner handles periodic cleanup of expired qualification sessions
type Cleaner struct {
	repo     storage.Repository
	attempts AttemptDropper
	interval time.Duration
}

// NewCleaner creates a new cleanup worker
func NewCleaner(repo storage.Repository, attempts AttemptDropper, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		repo:     repo,
		attempts: attempts,
		interval: interval,
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup finds and removes expired, unfinished sessions
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	expired, err := c.repo.GetExpiredFlowSessions(ctx)
	if err != nil {
		slog.Error("failed to get expired sessions", "error", err)
		return
	}

	if len(expired) == 0 {
		slog.Debug("no expired sessions found")
		return
	}

	slog.Info("found expired sessions", "count", len(expired))

	for _, s := range expired {
		slog.Info("deleting expired session",
			"id", s.ID,
			"user", s.UserID,
			"phase", s.Phase,
			"expired_at", s.ExpiresAt,
		)

		if err := c.repo.DeleteFlowSession(ctx, s.ID); err != nil {
			slog.Error("failed to delete expired session",
				"error", err,
				"id", s.ID,
			)
			continue
		}

		if c.attempts != nil {
			c.attempts.DropAttempt(s.ID)
		}
	}
}
