package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verdicthq/verdict/internal/collab"
	"github.com/verdicthq/verdict/internal/content"
	"github.com/verdicthq/verdict/internal/models"
	"github.com/verdicthq/verdict/internal/quiz"
	"github.com/verdicthq/verdict/internal/ratelimit"
	"github.com/verdicthq/verdict/internal/storage"
)

// Common errors
var (
	ErrSessionNotFound      = errors.New("qualification session not found")
	ErrWrongPhase           = errors.New("action not valid in current phase")
	ErrUnknownSection       = errors.New("unknown guideline section")
	ErrGuidelinesIncomplete = errors.New("all guideline sections must be acknowledged")
	ErrConsentRequired      = errors.New("explicit consent is required")
	ErrInFlight             = errors.New("another submission is already in progress")
	ErrInvalidPayload       = errors.New("demographics payload must be valid JSON")
	ErrNoStoredPayload      = errors.New("no stored demographics payload to retry")
	ErrNotFailed            = errors.New("quiz retry requires a failed attempt")
)

// RateLimitedError carries the cooldown surfaced to the user when a
// submission window is exhausted, whether tripped locally or by the
// grading collaborator.
type RateLimitedError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string { return e.Message }

// Config tunes the orchestrator. The delays pace phase transitions so
// success states can be visually acknowledged; tests run them at zero.
type Config struct {
	SessionTTL      time.Duration
	QuizAckDelay    time.Duration
	CompletionDelay time.Duration
	JudgeHomeURL    string
}

// Orchestrator sequences Welcome -> Guidelines -> Quiz -> Demographics
// -> Completed, persisting each confirmed transition. Quiz attempts
// are held in memory only: they are ephemeral per session and cleared
// on retry.
type Orchestrator struct {
	cfg      Config
	repo     storage.Repository
	profiles collab.ProfileAPI
	grading  collab.GradingAPI
	content  *content.Loader
	limiter  ratelimit.Limiter
	guard    ratelimit.Guard

	mu       sync.Mutex
	attempts map[string]*quiz.Attempt // keyed by session id
}

// New creates an Orchestrator
func New(
	cfg Config,
	repo storage.Repository,
	profiles collab.ProfileAPI,
	grading collab.GradingAPI,
	loader *content.Loader,
	limiter ratelimit.Limiter,
	guard ratelimit.Guard,
) *Orchestrator {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.JudgeHomeURL == "" {
		cfg.JudgeHomeURL = "/judge"
	}
	return &Orchestrator{
		cfg:      cfg,
		repo:     repo,
		profiles: profiles,
		grading:  grading,
		content:  loader,
		limiter:  limiter,
		guard:    guard,
		attempts: make(map[string]*quiz.Attempt),
	}
}

// Start begins or resumes the user's qualification flow. A user whose
// profile already carries is_judge never sees flow content: the
// response is a bare redirect to the judge home route.
func (o *Orchestrator) Start(ctx context.Context, userID string) (*models.FlowView, error) {
	profile, err := o.profiles.FetchProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile.IsJudge {
		return &models.FlowView{Redirect: o.cfg.JudgeHomeURL}, nil
	}

	s, err := o.repo.GetFlowSessionByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s != nil && s.IsExpired() {
		if err := o.repo.DeleteFlowSession(ctx, s.ID); err != nil {
			slog.Warn("failed to delete expired session", "session_id", s.ID, "error", err)
		}
		o.dropAttempt(s.ID)
		s = nil
	}

	if s == nil {
		now := time.Now().UTC()
		s = &models.FlowSession{
			ID:         uuid.NewString(),
			UserID:     userID,
			Phase:      models.PhaseWelcome,
			QuizStatus: models.QuizAnswering,
			CreatedAt:  now,
			UpdatedAt:  now,
			ExpiresAt:  now.Add(o.cfg.SessionTTL),
		}
		if err := o.repo.CreateFlowSession(ctx, s); err != nil {
			return nil, err
		}
		slog.Info("qualification flow started", "user_id", userID, "session_id", s.ID)
	}

	return o.view(s), nil
}

// Get returns the current flow view without creating a session
func (o *Orchestrator) Get(ctx context.Context, userID string) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	return o.view(s), nil
}

// Advance moves Welcome -> Guidelines. The transition is manual and
// unconditional; Welcome carries no gate.
func (o *Orchestrator) Advance(ctx context.Context, userID string) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseWelcome {
		return nil, fmt.Errorf("%w: advance from %s", ErrWrongPhase, s.Phase)
	}

	s.Phase = models.PhaseGuidelines
	if err := o.save(ctx, s); err != nil {
		return nil, err
	}
	return o.view(s), nil
}

// AckSection marks one guideline section as read
func (o *Orchestrator) AckSection(ctx context.Context, userID, sectionID string) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseGuidelines {
		return nil, fmt.Errorf("%w: ack in %s", ErrWrongPhase, s.Phase)
	}
	if o.content.Guideline(sectionID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, sectionID)
	}

	if !s.HasAcked(sectionID) {
		s.AckedSections = append(s.AckedSections, sectionID)
		if err := o.save(ctx, s); err != nil {
			return nil, err
		}
	}
	return o.view(s), nil
}

// Accept records consent and unlocks the quiz. It requires every
// guideline section acknowledged plus the explicit consent flag, and
// only flips the guidelines_accepted step after the completion record
// is confirmed written.
func (o *Orchestrator) Accept(ctx context.Context, userID string, consent bool) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseGuidelines {
		return nil, fmt.Errorf("%w: accept in %s", ErrWrongPhase, s.Phase)
	}
	if !consent {
		return nil, ErrConsentRequired
	}
	for _, section := range o.content.Guidelines() {
		if !s.HasAcked(section.ID) {
			return nil, ErrGuidelinesIncomplete
		}
	}

	if err := o.repo.CompleteStep(ctx, userID, models.StepGuidelinesAccepted); err != nil {
		return nil, fmt.Errorf("failed to record guideline acceptance: %w", err)
	}

	s.Consent = true
	s.Phase = models.PhaseQuiz
	s.QuizStatus = models.QuizAnswering
	if err := o.save(ctx, s); err != nil {
		return nil, err
	}

	slog.Info("guidelines accepted", "user_id", userID, "session_id", s.ID)
	return o.view(s), nil
}

// RecordAnswer stores one quiz answer, overwriting any prior choice
func (o *Orchestrator) RecordAnswer(ctx context.Context, userID, questionID string, optionIndex int) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseQuiz {
		return nil, fmt.Errorf("%w: answer in %s", ErrWrongPhase, s.Phase)
	}

	attempt := o.attempt(s)
	if err := attempt.RecordAnswer(questionID, optionIndex); err != nil {
		return nil, err
	}
	return o.view(s), nil
}

// SubmitQuiz grades the attempt through the grading collaborator. The
// collaborator's Passed flag is authoritative; on pass the flow moves
// to Demographics after the acknowledgment delay.
func (o *Orchestrator) SubmitQuiz(ctx context.Context, userID string) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseQuiz {
		return nil, fmt.Errorf("%w: submit in %s", ErrWrongPhase, s.Phase)
	}

	ok, err := o.guard.Acquire(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}
	defer o.guard.Release(ctx, s.ID)

	attempt := o.attempt(s)

	// Refuse locally before anything reaches the wire
	payload, err := attempt.Payload()
	if err != nil {
		return nil, err
	}

	allowed, retryAfter, err := o.limiter.Allow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &RateLimitedError{
			Message:    fmt.Sprintf("Too many attempts. Try again in %s.", retryAfter.Round(time.Second)),
			RetryAfter: retryAfter,
		}
	}

	if err := attempt.MarkSubmitted(); err != nil {
		return nil, err
	}

	result, err := o.grading.SubmitQuiz(ctx, userID, payload)
	if err != nil {
		// Answers are retained; the attempt returns to answering so the
		// user can resubmit once the failure clears.
		attempt.Reopen()

		var rl *collab.RateLimitError
		if errors.As(err, &rl) {
			return nil, &RateLimitedError{Message: rl.Error()}
		}
		slog.Error("quiz grading failed", "user_id", userID, "error", err)
		return nil, err
	}

	attempt.ApplyResult(*result)
	s.QuizStatus = attempt.Status()
	s.Score = &result.Score
	s.Total = &result.Total
	s.Passed = &result.Passed
	if err := o.save(ctx, s); err != nil {
		return nil, err
	}

	slog.Info("quiz graded",
		"user_id", userID,
		"score", result.Score,
		"total", result.Total,
		"passed", result.Passed,
	)

	if result.Passed {
		// Persist the transition first; the pause only paces the
		// response so the pass screen can be read.
		s.Phase = models.PhaseDemographics
		if err := o.save(ctx, s); err != nil {
			return nil, err
		}
		if err := o.pause(ctx, o.cfg.QuizAckDelay); err != nil {
			return nil, err
		}
	}

	return o.view(s), nil
}

// RetryQuiz discards the failed attempt and returns the user to the
// Guidelines phase, not the quiz: a retry forces re-exposure to the
// guidelines content before another attempt.
func (o *Orchestrator) RetryQuiz(ctx context.Context, userID string) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseQuiz {
		return nil, fmt.Errorf("%w: retry in %s", ErrWrongPhase, s.Phase)
	}
	if s.QuizStatus != models.QuizFailed {
		return nil, ErrNotFailed
	}

	o.dropAttempt(s.ID)
	s.Phase = models.PhaseGuidelines
	s.AckedSections = nil
	s.Consent = false
	s.QuizStatus = models.QuizAnswering
	s.Score = nil
	s.Total = nil
	s.Passed = nil
	if err := o.save(ctx, s); err != nil {
		return nil, err
	}

	slog.Info("quiz retry, returning to guidelines", "user_id", userID, "session_id", s.ID)
	return o.view(s), nil
}

// SubmitDemographics forwards the opaque payload to the profile
// collaborator. On failure the exact submitted bytes are retained so
// Retry replays them without the user re-entering the form.
func (o *Orchestrator) SubmitDemographics(ctx context.Context, userID string, payload json.RawMessage) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseDemographics {
		return nil, fmt.Errorf("%w: demographics in %s", ErrWrongPhase, s.Phase)
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	ok, err := o.guard.Acquire(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}
	defer o.guard.Release(ctx, s.ID)

	return o.persistDemographics(ctx, s, payload)
}

// RetryDemographics replays the last submitted payload byte-for-byte
func (o *Orchestrator) RetryDemographics(ctx context.Context, userID string) (*models.FlowView, error) {
	s, err := o.session(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Phase != models.PhaseError {
		return nil, fmt.Errorf("%w: demographics retry in %s", ErrWrongPhase, s.Phase)
	}
	if len(s.LastDemographics) == 0 {
		return nil, ErrNoStoredPayload
	}

	ok, err := o.guard.Acquire(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInFlight
	}
	defer o.guard.Release(ctx, s.ID)

	return o.persistDemographics(ctx, s, s.LastDemographics)
}

func (o *Orchestrator) persistDemographics(ctx context.Context, s *models.FlowSession, payload json.RawMessage) (*models.FlowView, error) {
	if err := o.profiles.SaveDemographics(ctx, s.UserID, payload); err != nil {
		// Diagnostics were logged at the client; users see one generic
		// recoverable message regardless of the failure shape.
		s.Phase = models.PhaseError
		s.StatusMessage = "We couldn't save your information. Please try again."
		s.LastDemographics = payload
		if saveErr := o.save(ctx, s); saveErr != nil {
			return nil, saveErr
		}
		return o.view(s), nil
	}

	s.Phase = models.PhaseCompleted
	s.StatusMessage = ""
	s.LastDemographics = nil
	if err := o.save(ctx, s); err != nil {
		return nil, err
	}
	o.dropAttempt(s.ID)

	slog.Info("qualification flow completed", "user_id", s.UserID, "session_id", s.ID)

	if err := o.pause(ctx, o.cfg.CompletionDelay); err != nil {
		return nil, err
	}

	v := o.view(s)
	v.Redirect = o.cfg.JudgeHomeURL
	return v, nil
}

// --- internals ---

func (o *Orchestrator) session(ctx context.Context, userID string) (*models.FlowSession, error) {
	s, err := o.repo.GetFlowSessionByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.IsExpired() {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (o *Orchestrator) save(ctx context.Context, s *models.FlowSession) error {
	s.UpdatedAt = time.Now().UTC()
	return o.repo.UpdateFlowSession(ctx, s)
}

// attempt returns the session's in-memory quiz attempt, creating a
// fresh one if the process restarted since the quiz phase began.
func (o *Orchestrator) attempt(s *models.FlowSession) *quiz.Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.attempts[s.ID]
	if a == nil {
		a = quiz.NewAttempt(o.content.Questions())
		o.attempts[s.ID] = a
	}
	return a
}

func (o *Orchestrator) dropAttempt(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.attempts, sessionID)
}

// DropAttempt removes the in-memory attempt for a session. Exposed for
// the cleanup worker so reaped sessions do not leak attempts.
func (o *Orchestrator) DropAttempt(sessionID string) {
	o.dropAttempt(sessionID)
}

// pause waits for the configured acknowledgment delay, aborting if the
// caller's context ends first.
func (o *Orchestrator) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (o *Orchestrator) view(s *models.FlowSession) *models.FlowView {
	v := &models.FlowView{
		SessionID:     s.ID,
		Phase:         s.Phase,
		Heading:       s.Phase.Heading(),
		StatusMessage: s.StatusMessage,
	}

	switch s.Phase {
	case models.PhaseGuidelines:
		sections := o.content.Guidelines()
		gv := &models.GuidelinesView{
			Sections: make([]models.GuidelineSectionView, 0, len(sections)),
			Consent:  s.Consent,
		}
		allAcked := true
		for _, section := range sections {
			acked := s.HasAcked(section.ID)
			allAcked = allAcked && acked
			gv.Sections = append(gv.Sections, models.GuidelineSectionView{
				ID:           section.ID,
				Title:        section.Title,
				Body:         section.Body,
				Acknowledged: acked,
			})
		}
		gv.CanAccept = allAcked
		v.Guidelines = gv

	case models.PhaseQuiz:
		attempt := o.attempt(s)
		qv := &models.QuizView{
			Status:  attempt.Status(),
			Answers: attempt.Answers(),
			Missing: attempt.Missing(),
		}
		for _, q := range attempt.Questions() {
			qv.Questions = append(qv.Questions, q.View())
		}
		if result := attempt.Result(); result != nil {
			score := s.DisplayScore()
			qv.Score = score
			qv.Passed = &result.Passed
			qv.Breakdown = attempt.Breakdown()
		}
		v.Quiz = qv

	case models.PhaseDemographics:
		qv := &models.QuizView{Status: models.QuizPassed}
		qv.Score = s.DisplayScore()
		qv.Passed = s.Passed
		v.Quiz = qv

	case models.PhaseError:
		v.RetryAvailable = len(s.LastDemographics) > 0
	}

	return v
}
