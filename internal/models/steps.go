package models

import "time"

// Onboarding step identifiers, in traversal order
const (
	StepEmailVerified            = "email_verified"
	StepProfileCompleted         = "profile_completed"
	StepGuidelinesAccepted       = "guidelines_accepted"
	StepSafetyTrainingCompleted  = "safety_training_completed"
	StepTutorialCompleted        = "tutorial_completed"
	StepFirstJudgmentCompleted   = "first_judgment_completed"
	StepFirstSubmissionCompleted = "first_submission_completed"
)

// StepDescriptor describes one onboarding step. Order within the
// registry is significant: it defines both the sidebar list and the
// default traversal order.
type StepDescriptor struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Required      bool   `json:"required"`
	EstimatedTime string `json:"estimated_time"`
	Icon          string `json:"icon"`
}

// OnboardingState maps step id to completion. Steps only ever flip
// from false to true; there is no un-completing a step.
type OnboardingState map[string]bool

// StepCompletion is one persisted completion record
type StepCompletion struct {
	UserID      string    `json:"user_id"`
	StepID      string    `json:"step_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Progress holds completion percentages for the onboarding checklist
type Progress struct {
	Required float64 `json:"required"`
	Overall  float64 `json:"overall"`
}
