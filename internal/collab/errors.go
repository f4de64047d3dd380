package collab

import (
	"errors"
	"fmt"
)

// ErrUnavailable covers network failures, malformed responses, and
// unexpected status codes. Callers present all of these as one generic
// retryable error; the distinction is logged, not surfaced.
var ErrUnavailable = errors.New("collaborator unavailable")

// RateLimitError is returned when the grading collaborator rejects a
// submission with 429. Message is the server's own cooldown text and
// is surfaced to the user verbatim; there is no retry path.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "too many attempts, please wait before trying again"
}

// SetupIncompleteError is the profile collaborator's distinguished
// "database not provisioned" failure. The diagnostic fields are
// operator-facing: log them, show the user a generic message.
type SetupIncompleteError struct {
	Message       string
	Instructions  string
	Details       string
	MigrationFile string
}

func (e *SetupIncompleteError) Error() string {
	return fmt.Sprintf("profile store setup incomplete: %s", e.Message)
}
