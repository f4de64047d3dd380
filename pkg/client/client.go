package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verdicthq/verdict/internal/models"
)

// Client is a Go SDK for the verdict qualification API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new verdict client. token is the caller's bearer
// token; the service derives the user identity from it.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// StepStatus is one onboarding step plus its completion flag
type StepStatus struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Required      bool   `json:"required"`
	EstimatedTime string `json:"estimated_time"`
	Icon          string `json:"icon"`
	Completed     bool   `json:"completed"`
}

// ProgressReport is the onboarding progress response
type ProgressReport struct {
	Progress models.Progress        `json:"progress"`
	NextStep *models.StepDescriptor `json:"next_step,omitempty"`
}

// ListSteps retrieves the onboarding checklist with completion flags
func (c *Client) ListSteps(ctx context.Context) ([]StepStatus, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/onboarding/steps", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Steps []StepStatus `json:"steps"`
			Total int          `json:"total"`
		} `json:"data"`
		Error *apiError `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, result.Error.err()
	}

	return result.Data.Steps, nil
}

// GetProgress retrieves the onboarding completion percentages
func (c *Client) GetProgress(ctx context.Context) (*ProgressReport, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/v1/onboarding/progress", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    *ProgressReport `json:"data"`
		Error   *apiError       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, result.Error.err()
	}

	return result.Data, nil
}

// CompleteStep marks an onboarding step as done. Idempotent.
func (c *Client) CompleteStep(ctx context.Context, stepID string) (*ProgressReport, error) {
	resp, err := c.doRequest(ctx, "POST", fmt.Sprintf("/api/v1/onboarding/steps/%s/complete", stepID), nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    *ProgressReport `json:"data"`
		Error   *apiError       `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, result.Error.err()
	}

	return result.Data, nil
}

// StartSession begins or resumes the qualification flow
func (c *Client) StartSession(ctx context.Context) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/session", nil)
}

// GetSession retrieves the current flow state
func (c *Client) GetSession(ctx context.Context) (*models.FlowView, error) {
	return c.flowRequest(ctx, "GET", "/api/v1/qualification/session", nil)
}

// Advance moves from the welcome phase to the guidelines
func (c *Client) Advance(ctx context.Context) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/advance", nil)
}

// AckGuideline marks one guideline section as read
func (c *Client) AckGuideline(ctx context.Context, sectionID string) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/guidelines/ack",
		models.AckRequest{SectionID: sectionID})
}

// AcceptGuidelines records consent and unlocks the quiz
func (c *Client) AcceptGuidelines(ctx context.Context, consent bool) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/guidelines/accept",
		models.AcceptRequest{Consent: consent})
}

// RecordAnswer stores one quiz answer
func (c *Client) RecordAnswer(ctx context.Context, questionID string, optionIndex int) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/quiz/answers",
		models.AnswerRequest{QuestionID: questionID, OptionIndex: optionIndex})
}

// SubmitQuiz submits the attempt for grading
func (c *Client) SubmitQuiz(ctx context.Context) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/quiz/submit", nil)
}

// RetryQuiz discards a failed attempt and returns to the guidelines
func (c *Client) RetryQuiz(ctx context.Context) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/quiz/retry", nil)
}

// SubmitDemographics forwards the demographic form payload
func (c *Client) SubmitDemographics(ctx context.Context, payload json.RawMessage) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/demographics", payload)
}

// RetryDemographics replays the last failed demographics submission
func (c *Client) RetryDemographics(ctx context.Context) (*models.FlowView, error) {
	return c.flowRequest(ctx, "POST", "/api/v1/qualification/demographics/retry", nil)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) err() error {
	if e == nil {
		return fmt.Errorf("API error: unknown")
	}
	return fmt.Errorf("API error: %s - %s", e.Code, e.Message)
}

// flowRequest performs a request whose response envelope carries a
// flow view. Every qualification endpoint returns this shape.
func (c *Client) flowRequest(ctx context.Context, method, path string, body interface{}) (*models.FlowView, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	resp, err := c.doRequest(ctx, method, path, reader)
	if err != nil {
		return nil, err
	}

	var result struct {
		Success bool             `json:"success"`
		Data    *models.FlowView `json:"data"`
		Error   *apiError        `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		return nil, result.Error.err()
	}

	return result.Data, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Error envelopes still decode; only non-JSON failures bail here
	if resp.StatusCode >= 400 && !json.Valid(respBody) {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
