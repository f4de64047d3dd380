package onboarding

import "github.com/verdicthq/verdict/internal/models"

// registry is the ordered list of onboarding steps. Order is
// significant: it defines the sidebar list and the traversal order.
var registry = []models.StepDescriptor{
	{
		ID:            models.StepEmailVerified,
		Title:         "Verify your email",
		Description:   "Confirm the address on your account",
		Required:      true,
		EstimatedTime: "1 min",
		Icon:          "mail",
	},
	{
		ID:            models.StepProfileCompleted,
		Title:         "Complete your profile",
		Description:   "Add a display name and a short bio",
		Required:      true,
		EstimatedTime: "3 min",
		Icon:          "user",
	},
	{
		ID:            models.StepGuidelinesAccepted,
		Title:         "Accept the content guidelines",
		Description:   "Read and accept the community guidelines",
		Required:      true,
		EstimatedTime: "5 min",
		Icon:          "shield",
	},
	{
		ID:            models.StepSafetyTrainingCompleted,
		Title:         "Safety training",
		Description:   "Learn to spot and report prohibited content",
		Required:      true,
		EstimatedTime: "5 min",
		Icon:          "alert",
	},
	{
		ID:            models.StepTutorialCompleted,
		Title:         "Take the tutorial",
		Description:   "A quick tour of the judge dashboard",
		Required:      false,
		EstimatedTime: "2 min",
		Icon:          "book",
	},
	{
		ID:            models.StepFirstJudgmentCompleted,
		Title:         "Deliver your first verdict",
		Description:   "Rate and review a request from the queue",
		Required:      false,
		EstimatedTime: "5 min",
		Icon:          "gavel",
	},
	{
		ID:            models.StepFirstSubmissionCompleted,
		Title:         "Submit your first request",
		Description:   "See the other side: ask for feedback yourself",
		Required:      false,
		EstimatedTime: "5 min",
		Icon:          "send",
	},
}

// Steps returns the step registry in traversal order
func Steps() []models.StepDescriptor {
	return registry
}

// IsKnownStep reports whether id names a registry step
func IsKnownStep(id string) bool {
	for _, s := range registry {
		if s.ID == id {
			return true
		}
	}
	return false
}

// GetProgress computes the completion percentage of required steps and
// of all steps. Pure and deterministic for a given state.
func GetProgress(state models.OnboardingState) models.Progress {
	var required, requiredDone, done int
	for _, s := range registry {
		if s.Required {
			required++
			if state[s.ID] {
				requiredDone++
			}
		}
		if state[s.ID] {
			done++
		}
	}

	p := models.Progress{}
	if required > 0 {
		p.Required = float64(requiredDone) / float64(required) * 100
	}
	if len(registry) > 0 {
		p.Overall = float64(done) / float64(len(registry)) * 100
	}
	return p
}

// GetNextStep returns the first step in registry order whose
// completion flag is false, or nil when every step is complete.
// Registry order is the sole ordering key.
func GetNextStep(state models.OnboardingState) *models.StepDescriptor {
	for i := range registry {
		if !state[registry[i].ID] {
			return &registry[i]
		}
	}
	return nil
}
