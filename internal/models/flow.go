package models

import (
	"encoding/json"
	"time"
)

// FlowPhase represents the current phase of a qualification flow
type FlowPhase string

const (
	PhaseWelcome      FlowPhase = "welcome"
	PhaseGuidelines   FlowPhase = "guidelines"
	PhaseQuiz         FlowPhase = "quiz"
	PhaseDemographics FlowPhase = "demographics"
	PhaseCompleted    FlowPhase = "completed"
	PhaseError        FlowPhase = "error" // demographics persistence failed, retry available
)

// IsTerminal returns true if the phase is a final state
func (p FlowPhase) IsTerminal() bool {
	return p == PhaseCompleted
}

// Heading returns the announcement heading for the phase. Clients move
// focus to this text on every transition, equivalent to a route change.
func (p FlowPhase) Heading() string {
	switch p {
	case PhaseWelcome:
		return "Become a Judge"
	case PhaseGuidelines:
		return "Content Guidelines"
	case PhaseQuiz:
		return "Qualification Quiz"
	case PhaseDemographics:
		return "Tell Us About Yourself"
	case PhaseCompleted:
		return "You're All Set"
	case PhaseError:
		return "Something Went Wrong"
	default:
		return ""
	}
}

// QuizStatus represents the state of the quiz attempt within a flow
type QuizStatus string

const (
	QuizAnswering QuizStatus = "answering"
	QuizSubmitted QuizStatus = "submitted"
	QuizPassed    QuizStatus = "passed"
	QuizFailed    QuizStatus = "failed"
)

// FlowSession is the durable state of one user's qualification flow.
// One active session per user; quiz answers are deliberately not part
// of this record (they are ephemeral, held in memory for the attempt).
type FlowSession struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Phase            FlowPhase       `json:"phase"`
	StatusMessage    string          `json:"status_message,omitempty"`
	AckedSections    []string        `json:"acked_sections,omitempty"`
	Consent          bool            `json:"consent"`
	QuizStatus       QuizStatus      `json:"quiz_status"`
	Score            *int            `json:"score,omitempty"`
	Total            *int            `json:"total,omitempty"`
	Passed           *bool           `json:"passed,omitempty"`
	LastDemographics json.RawMessage `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// IsExpired checks if the session TTL has elapsed
func (s *FlowSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// HasAcked reports whether a guideline section has been marked read
func (s *FlowSession) HasAcked(sectionID string) bool {
	for _, id := range s.AckedSections {
		if id == sectionID {
			return true
		}
	}
	return false
}

// DisplayScore returns the score as a 0-100 percentage for display.
// This value is informational only: pass/fail always comes from the
// grading collaborator's verdict, never from this number.
func (s *FlowSession) DisplayScore() *float64 {
	if s.Score == nil || s.Total == nil || *s.Total == 0 {
		return nil
	}
	v := float64(*s.Score) / float64(*s.Total) * 100
	return &v
}

// FlowView is the API representation of a flow session after a
// transition. Heading carries the announcement text for the new phase.
type FlowView struct {
	SessionID      string          `json:"session_id"`
	Phase          FlowPhase       `json:"phase"`
	Heading        string          `json:"heading"`
	StatusMessage  string          `json:"status_message,omitempty"`
	Guidelines     *GuidelinesView `json:"guidelines,omitempty"`
	Quiz           *QuizView       `json:"quiz,omitempty"`
	RetryAvailable bool            `json:"retry_available,omitempty"`
	Redirect       string          `json:"redirect,omitempty"`
}

// GuidelinesView describes the guidelines phase sub-state
type GuidelinesView struct {
	Sections  []GuidelineSectionView `json:"sections"`
	Consent   bool                   `json:"consent"`
	CanAccept bool                   `json:"can_accept"`
}

// GuidelineSectionView is one guideline section plus its read marker
type GuidelineSectionView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Acknowledged bool   `json:"acknowledged"`
}

// QuizView describes the quiz phase sub-state. Questions never carry
// the answer key; Breakdown is populated only after grading.
type QuizView struct {
	Status    QuizStatus          `json:"status"`
	Questions []QuestionView      `json:"questions"`
	Answers   map[string]int      `json:"answers,omitempty"`
	Missing   []string            `json:"missing,omitempty"`
	Score     *float64            `json:"score,omitempty"`
	Passed    *bool               `json:"passed,omitempty"`
	Breakdown []QuestionBreakdown `json:"breakdown,omitempty"`
}

// QuestionView is the client-safe projection of a quiz question
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// QuestionBreakdown gives per-question correctness after grading
type QuestionBreakdown struct {
	QuestionID  string `json:"question_id"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// AckRequest marks one guideline section as read
type AckRequest struct {
	SectionID string `json:"section_id"`
}

// AcceptRequest carries the explicit consent checkbox state
type AcceptRequest struct {
	Consent bool `json:"consent"`
}

// AnswerRequest records one quiz answer
type AnswerRequest struct {
	QuestionID  string `json:"question_id"`
	OptionIndex int    `json:"option_index"`
}
