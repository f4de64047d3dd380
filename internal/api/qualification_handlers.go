package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/verdicthq/verdict/internal/collab"
	"github.com/verdicthq/verdict/internal/models"
	"github.com/verdicthq/verdict/internal/qualification"
	"github.com/verdicthq/verdict/internal/quiz"
)

// Qualification flow handlers

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	view, err := s.flow.Start(r.Context(), userID)
	if err != nil {
		s.flowError(w, err, "start session", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	view, err := s.flow.Get(r.Context(), userID)
	if err != nil {
		s.flowError(w, err, "get session", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	view, err := s.flow.Advance(r.Context(), userID)
	if err != nil {
		s.flowError(w, err, "advance", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAckGuideline(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	var req models.AckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.SectionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "section_id is required")
		return
	}

	view, err := s.flow.AckSection(r.Context(), userID, req.SectionID)
	if err != nil {
		s.flowError(w, err, "ack guideline", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleAcceptGuidelines(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	var req models.AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	view, err := s.flow.Accept(r.Context(), userID, req.Consent)
	if err != nil {
		s.flowError(w, err, "accept guidelines", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRecordAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	var req models.AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.QuestionID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "question_id is required")
		return
	}

	view, err := s.flow.RecordAnswer(r.Context(), userID, req.QuestionID, req.OptionIndex)
	if err != nil {
		s.flowError(w, err, "record answer", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	view, err := s.flow.SubmitQuiz(r.Context(), userID)
	if err != nil {
		s.flowError(w, err, "submit quiz", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRetryQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	view, err := s.flow.RetryQuiz(r.Context(), userID)
	if err != nil {
		s.flowError(w, err, "retry quiz", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitDemographics(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}

	view, err := s.flow.SubmitDemographics(r.Context(), userID, payload)
	if err != nil {
		s.flowError(w, err, "submit demographics", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleRetryDemographics(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	view, err := s.flow.RetryDemographics(r.Context(), userID)
	if err != nil {
		s.flowError(w, err, "retry demographics", userID)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// flowError maps orchestrator errors to HTTP responses. User-facing
// messages are deliberately generic except for rate-limit cooldowns,
// which pass through verbatim.
func (s *Server) flowError(w http.ResponseWriter, err error, op, userID string) {
	var incomplete *quiz.IncompleteError
	var limited *qualification.RateLimitedError

	switch {
	case errors.Is(err, qualification.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "no active qualification session")

	case errors.As(err, &incomplete):
		respondErrorDetails(w, http.StatusBadRequest, "quiz_incomplete",
			incomplete.Error(), map[string]interface{}{"missing": incomplete.Missing})

	case errors.As(err, &limited):
		respondError(w, http.StatusTooManyRequests, "rate_limited", limited.Message)

	case errors.Is(err, qualification.ErrInFlight):
		respondError(w, http.StatusConflict, "in_flight", "a submission is already in progress")

	case errors.Is(err, qualification.ErrWrongPhase),
		errors.Is(err, qualification.ErrNotFailed):
		respondError(w, http.StatusConflict, "wrong_phase", "action not valid in the current phase")

	case errors.Is(err, qualification.ErrUnknownSection),
		errors.Is(err, qualification.ErrGuidelinesIncomplete),
		errors.Is(err, qualification.ErrConsentRequired),
		errors.Is(err, qualification.ErrInvalidPayload),
		errors.Is(err, qualification.ErrNoStoredPayload),
		errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, quiz.ErrOptionOutOfRange),
		errors.Is(err, quiz.ErrNotAnswering):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())

	case errors.Is(err, collab.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "submission_failed", "Something went wrong. Please try again.")

	default:
		slog.Error("qualification operation failed", "op", op, "user_id", userID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
