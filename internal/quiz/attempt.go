package quiz

import (
	"errors"
	"fmt"

	"github.com/verdicthq/verdict/internal/models"
)

// Common errors
var (
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrOptionOutOfRange = errors.New("option index out of range")
	ErrNotAnswering     = errors.New("attempt is not accepting answers")
	ErrNotGraded        = errors.New("attempt has not been graded")
)

// IncompleteError reports which questions still lack an answer when a
// submission is refused. No remote call is made while it is returned.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("quiz incomplete: %d questions unanswered", len(e.Missing))
}

// Attempt is one quiz-taking session. It moves
// answering -> submitted -> passed|failed, and failed -> answering on
// Reset (which clears all recorded answers). Attempts live in memory
// only for the duration of a session; they are never persisted.
type Attempt struct {
	questions []models.QuizQuestion
	answers   map[string]int
	status    models.QuizStatus
	result    *models.GradeResult
}

// NewAttempt starts a fresh attempt over the fixed question bank
func NewAttempt(questions []models.QuizQuestion) *Attempt {
	return &Attempt{
		questions: questions,
		answers:   make(map[string]int),
		status:    models.QuizAnswering,
	}
}

// Status returns the attempt state
func (a *Attempt) Status() models.QuizStatus {
	return a.status
}

// Questions returns the question bank in order
func (a *Attempt) Questions() []models.QuizQuestion {
	return a.questions
}

// Answers returns a copy of the recorded answers
func (a *Attempt) Answers() map[string]int {
	out := make(map[string]int, len(a.answers))
	for k, v := range a.answers {
		out[k] = v
	}
	return out
}

// RecordAnswer stores the selected option for a question, overwriting
// any prior answer. Validation is index bounds only.
func (a *Attempt) RecordAnswer(questionID string, optionIndex int) error {
	if a.status != models.QuizAnswering {
		return ErrNotAnswering
	}

	q := a.question(questionID)
	if q == nil {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return fmt.Errorf("%w: %d for question %s", ErrOptionOutOfRange, optionIndex, questionID)
	}

	a.answers[questionID] = optionIndex
	return nil
}

// Missing returns the ids of unanswered questions in bank order
func (a *Attempt) Missing() []string {
	var missing []string
	for _, q := range a.questions {
		if _, ok := a.answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

// Payload transforms the recorded answers into the semantic answer ids
// the grading collaborator expects, using the per-question AnswerIDs
// table. It refuses with IncompleteError if any question lacks an
// answer, so an incomplete attempt never reaches the wire.
func (a *Attempt) Payload() (map[string]string, error) {
	if missing := a.Missing(); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}

	payload := make(map[string]string, len(a.answers))
	for _, q := range a.questions {
		idx := a.answers[q.ID]
		payload[q.ID] = q.AnswerIDs[idx]
	}
	return payload, nil
}

// MarkSubmitted transitions answering -> submitted
func (a *Attempt) MarkSubmitted() error {
	if a.status != models.QuizAnswering {
		return ErrNotAnswering
	}
	a.status = models.QuizSubmitted
	return nil
}

// ApplyResult records the grading collaborator's verdict and moves the
// attempt to passed or failed. The collaborator's Passed flag is the
// single source of truth; no local threshold comparison happens here.
func (a *Attempt) ApplyResult(result models.GradeResult) {
	a.result = &result
	if result.Passed {
		a.status = models.QuizPassed
	} else {
		a.status = models.QuizFailed
	}
}

// Result returns the applied grade, nil before grading
func (a *Attempt) Result() *models.GradeResult {
	return a.result
}

// DisplayScore recomputes score/total*100 for display. Informational
// only; pass/fail comes from Result().Passed.
func (a *Attempt) DisplayScore() (float64, error) {
	if a.result == nil || a.result.Total == 0 {
		return 0, ErrNotGraded
	}
	return float64(a.result.Score) / float64(a.result.Total) * 100, nil
}

// Breakdown compares the recorded answers against the local answer key
// for the per-question correctness display shown after grading.
func (a *Attempt) Breakdown() []models.QuestionBreakdown {
	out := make([]models.QuestionBreakdown, 0, len(a.questions))
	for _, q := range a.questions {
		idx, answered := a.answers[q.ID]
		out = append(out, models.QuestionBreakdown{
			QuestionID:  q.ID,
			Correct:     answered && idx == q.CorrectIndex,
			Explanation: q.Explanation,
		})
	}
	return out
}

// Reopen rolls a submitted attempt back to answering with the answers
// intact. Used when grading fails transiently so the user can resubmit
// without re-entering anything.
func (a *Attempt) Reopen() {
	if a.status == models.QuizSubmitted {
		a.status = models.QuizAnswering
	}
}

// Reset clears all recorded answers and returns to answering. Used on
// retry after a failed attempt.
func (a *Attempt) Reset() {
	a.answers = make(map[string]int)
	a.result = nil
	a.status = models.QuizAnswering
}

func (a *Attempt) question(id string) *models.QuizQuestion {
	for i := range a.questions {
		if a.questions[i].ID == id {
			return &a.questions[i]
		}
	}
	return nil
}
