package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdicthq/verdict/internal/onboarding"
)

// Onboarding checklist handlers

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	state, err := s.repo.GetOnboardingState(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load onboarding state", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load onboarding state")
		return
	}

	steps := onboarding.Steps()
	type stepStatus struct {
		ID            string `json:"id"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Required      bool   `json:"required"`
		EstimatedTime string `json:"estimated_time"`
		Icon          string `json:"icon"`
		Completed     bool   `json:"completed"`
	}

	out := make([]stepStatus, 0, len(steps))
	for _, st := range steps {
		out = append(out, stepStatus{
			ID:            st.ID,
			Title:         st.Title,
			Description:   st.Description,
			Required:      st.Required,
			EstimatedTime: st.EstimatedTime,
			Icon:          st.Icon,
			Completed:     state[st.ID],
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"steps": out,
		"total": len(out),
	})
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	state, err := s.repo.GetOnboardingState(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load onboarding state", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load onboarding state")
		return
	}

	resp := map[string]interface{}{
		"progress": onboarding.GetProgress(state),
	}
	if next := onboarding.GetNextStep(state); next != nil {
		resp["next_step"] = next
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}

	stepID := chi.URLParam(r, "id")
	if !onboarding.IsKnownStep(stepID) {
		respondError(w, http.StatusNotFound, "not_found", "unknown onboarding step")
		return
	}

	if err := s.repo.CompleteStep(r.Context(), userID, stepID); err != nil {
		slog.Error("failed to complete step", "error", err, "user_id", userID, "step_id", stepID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to complete step")
		return
	}

	state, err := s.repo.GetOnboardingState(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load onboarding state", "error", err, "user_id", userID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load onboarding state")
		return
	}

	resp := map[string]interface{}{
		"step_id":  stepID,
		"progress": onboarding.GetProgress(state),
	}
	if next := onboarding.GetNextStep(state); next != nil {
		resp["next_step"] = next
	}

	respondJSON(w, http.StatusOK, resp)
}
