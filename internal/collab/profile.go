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

// ProfileAPI is the surface of the remote user-profile collaborator,
// which owns the is_judge flag and stores demographics.
type ProfileAPI interface {
	FetchProfile(ctx context.Context, userID string) (*models.Profile, error)
	SaveDemographics(ctx context.Context, userID string, payload json.RawMessage) error
}

// ProfileClient talks to the profile collaborator over HTTP
type ProfileClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProfileClient creates a profile client with the given timeout
func NewProfileClient(baseURL string, timeout time.Duration) *ProfileClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProfileClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchProfile retrieves the user's profile, including is_judge
func (c *ProfileClient) FetchProfile(ctx context.Context, userID string) (*models.Profile, error) {
	url := fmt.Sprintf("%s/api/profile/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var profile models.Profile
	if err := json.Unmarshal(respBody, &profile); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrUnavailable, err)
	}

	return &profile, nil
}

type saveDemographicsRequest struct {
	UserID string          `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// SaveDemographics forwards the demographics payload verbatim. The
// payload is opaque to this service; it is never inspected or
// rewritten, so a retry resubmits the exact same bytes.
func (c *ProfileClient) SaveDemographics(ctx context.Context, userID string, payload json.RawMessage) error {
	body, err := json.Marshal(saveDemographicsRequest{UserID: userID, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/judge/demographics"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var e struct {
		Error         string `json:"error"`
		Instructions  string `json:"instructions"`
		Details       string `json:"details"`
		MigrationFile string `json:"migration_file"`
	}
	if err := json.Unmarshal(respBody, &e); err == nil && (e.Instructions != "" || e.MigrationFile != "") {
		// Distinguished setup-incomplete case with operator diagnostics
		slog.Error("profile store setup incomplete",
			"error", e.Error,
			"instructions", e.Instructions,
			"details", e.Details,
			"migration_file", e.MigrationFile,
		)
		return &SetupIncompleteError{
			Message:       e.Error,
			Instructions:  e.Instructions,
			Details:       e.Details,
			MigrationFile: e.MigrationFile,
		}
	}

	return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
}
