package quiz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdicthq/verdict/internal/models"
)

func testBank() []models.QuizQuestion {
	return []models.QuizQuestion{
		{
			ID:           "q1",
			Prompt:       "First question",
			Options:      []string{"a", "b", "c"},
			CorrectIndex: 1,
			AnswerIDs:    []string{"q1-a", "q1-b", "q1-c"},
			Explanation:  "b is right",
		},
		{
			ID:           "q2",
			Prompt:       "Second question",
			Options:      []string{"yes", "no"},
			CorrectIndex: 0,
			AnswerIDs:    []string{"q2-yes", "q2-no"},
		},
	}
}

func TestRecordAnswer(t *testing.T) {
	a := NewAttempt(testBank())

	require.NoError(t, a.RecordAnswer("q1", 0))
	assert.Equal(t, map[string]int{"q1": 0}, a.Answers())

	// Overwriting a prior answer is allowed
	require.NoError(t, a.RecordAnswer("q1", 2))
	assert.Equal(t, map[string]int{"q1": 2}, a.Answers())
}

func TestRecordAnswerValidation(t *testing.T) {
	a := NewAttempt(testBank())

	err := a.RecordAnswer("nope", 0)
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	err = a.RecordAnswer("q1", 3)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)

	err = a.RecordAnswer("q1", -1)
	assert.ErrorIs(t, err, ErrOptionOutOfRange)
}

func TestMissingInBankOrder(t *testing.T) {
	a := NewAttempt(testBank())
	assert.Equal(t, []string{"q1", "q2"}, a.Missing())

	require.NoError(t, a.RecordAnswer("q2", 1))
	assert.Equal(t, []string{"q1"}, a.Missing())

	require.NoError(t, a.RecordAnswer("q1", 0))
	assert.Empty(t, a.Missing())
}

func TestPayloadRefusesIncomplete(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 1))

	_, err := a.Payload()
	var incomplete *IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"q2"}, incomplete.Missing)
}

func TestPayloadMapsToAnswerIDs(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 1))
	require.NoError(t, a.RecordAnswer("q2", 0))

	payload, err := a.Payload()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "q1-b", "q2": "q2-yes"}, payload)
}

func TestNoAnswersAfterSubmission(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 0))
	require.NoError(t, a.RecordAnswer("q2", 0))
	require.NoError(t, a.MarkSubmitted())

	assert.Equal(t, models.QuizSubmitted, a.Status())
	assert.ErrorIs(t, a.RecordAnswer("q1", 1), ErrNotAnswering)
	assert.ErrorIs(t, a.MarkSubmitted(), ErrNotAnswering)
}

func TestApplyResultFollowsRemoteVerdict(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 1))
	require.NoError(t, a.RecordAnswer("q2", 0))
	require.NoError(t, a.MarkSubmitted())

	// A perfect local score with a failing remote verdict still fails:
	// the server's flag is the only source of truth.
	a.ApplyResult(models.GradeResult{Score: 2, Total: 2, Passed: false})
	assert.Equal(t, models.QuizFailed, a.Status())

	a2 := NewAttempt(testBank())
	require.NoError(t, a2.RecordAnswer("q1", 0))
	require.NoError(t, a2.RecordAnswer("q2", 1))
	require.NoError(t, a2.MarkSubmitted())
	a2.ApplyResult(models.GradeResult{Score: 0, Total: 2, Passed: true})
	assert.Equal(t, models.QuizPassed, a2.Status())
}

func TestDisplayScore(t *testing.T) {
	a := NewAttempt(testBank())
	_, err := a.DisplayScore()
	assert.True(t, errors.Is(err, ErrNotGraded))

	a.ApplyResult(models.GradeResult{Score: 3, Total: 4, Passed: true})
	score, err := a.DisplayScore()
	require.NoError(t, err)
	assert.InDelta(t, 75.0, score, 0.001)
}

func TestBreakdown(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 1)) // correct
	require.NoError(t, a.RecordAnswer("q2", 1)) // wrong
	require.NoError(t, a.MarkSubmitted())
	a.ApplyResult(models.GradeResult{Score: 1, Total: 2, Passed: false})

	breakdown := a.Breakdown()
	require.Len(t, breakdown, 2)
	assert.Equal(t, "q1", breakdown[0].QuestionID)
	assert.True(t, breakdown[0].Correct)
	assert.Equal(t, "b is right", breakdown[0].Explanation)
	assert.Equal(t, "q2", breakdown[1].QuestionID)
	assert.False(t, breakdown[1].Correct)
}

func TestReopenRetainsAnswers(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 1))
	require.NoError(t, a.RecordAnswer("q2", 0))
	require.NoError(t, a.MarkSubmitted())

	a.Reopen()
	assert.Equal(t, models.QuizAnswering, a.Status())
	assert.Equal(t, map[string]int{"q1": 1, "q2": 0}, a.Answers())
}

func TestResetClearsEverything(t *testing.T) {
	a := NewAttempt(testBank())
	require.NoError(t, a.RecordAnswer("q1", 1))
	require.NoError(t, a.RecordAnswer("q2", 0))
	require.NoError(t, a.MarkSubmitted())
	a.ApplyResult(models.GradeResult{Score: 1, Total: 2, Passed: false})

	a.Reset()
	assert.Equal(t, models.QuizAnswering, a.Status())
	assert.Empty(t, a.Answers())
	assert.Nil(t, a.Result())
	assert.Equal(t, []string{"q1", "q2"}, a.Missing())
}
