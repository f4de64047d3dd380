package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/verdicthq/verdict/internal/models"
)

// GradingAPI is the surface of the remote quiz-grading collaborator.
// Its Passed verdict is authoritative for the whole qualification flow.
type GradingAPI interface {
	SubmitQuiz(ctx context.Context, userID string, answers map[string]string) (*models.GradeResult, error)
}

// GradingClient talks to the grading collaborator over HTTP
type GradingClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGradingClient creates a grading client with the given timeout
func NewGradingClient(baseURL string, timeout time.Duration) *GradingClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GradingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type submitQuizRequest struct {
	UserID  string            `json:"user_id"`
	Answers map[string]string `json:"answers"`
}

// SubmitQuiz sends the transformed answer payload for grading.
// A 429 becomes a RateLimitError carrying the server's message; every
// other failure collapses into ErrUnavailable.
func (c *GradingClient) SubmitQuiz(ctx context.Context, userID string, answers map[string]string) (*models.GradeResult, error) {
	body, err := json.Marshal(submitQuizRequest{UserID: userID, Answers: answers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/judge/complete-quiz"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("grading request failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		var rl struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &rl)
		msg := rl.Message
		if msg == "" {
			msg = rl.Error
		}
		return nil, &RateLimitError{Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("grading returned non-success status",
			"status", resp.StatusCode,
			"user_id", userID,
		)
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var result models.GradeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrUnavailable, err)
	}

	return &result, nil
}
