package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDir(t *testing.T) {
	l := NewLoader()
	err := l.LoadFromDir("../../content")
	require.NoError(t, err)

	questions := l.Questions()
	require.NotEmpty(t, questions)
	for _, q := range questions {
		assert.NotEmpty(t, q.ID)
		assert.NotEmpty(t, q.Prompt)
		assert.GreaterOrEqual(t, len(q.Options), 2)
		assert.Len(t, q.AnswerIDs, len(q.Options))
		assert.GreaterOrEqual(t, q.CorrectIndex, 0)
		assert.Less(t, q.CorrectIndex, len(q.Options))
	}

	sections := l.Guidelines()
	require.NotEmpty(t, sections)
	for _, s := range sections {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Title)
	}
}

func TestLookupByID(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.LoadFromDir("../../content"))

	first := l.Questions()[0]
	found := l.Question(first.ID)
	require.NotNil(t, found)
	assert.Equal(t, first.Prompt, found.Prompt)
	assert.Nil(t, l.Question("does-not-exist"))

	section := l.Guidelines()[0]
	assert.NotNil(t, l.Guideline(section.ID))
	assert.Nil(t, l.Guideline("does-not-exist"))
}

func TestLoadMissingDir(t *testing.T) {
	l := NewLoader()
	err := l.LoadFromDir("/nonexistent")
	assert.Error(t, err)
}

func writeContentDir(t *testing.T, questions, guidelines string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "questions.yaml"), []byte(questions), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guidelines.yaml"), []byte(guidelines), 0o644))
	return dir
}

const validGuidelines = `
sections:
  - id: s1
    title: Section One
    body: Read this.
`

func TestQuestionValidation(t *testing.T) {
	tests := []struct {
		name      string
		questions string
		wantErr   string
	}{
		{
			name:      "empty bank",
			questions: "questions: []",
			wantErr:   "question bank is empty",
		},
		{
			name: "correct_index out of range",
			questions: `
questions:
  - id: q1
    prompt: P
    options: ["a", "b"]
    correct_index: 2
    answer_ids: ["x", "y"]
`,
			wantErr: "out of range",
		},
		{
			name: "answer_ids mismatch",
			questions: `
questions:
  - id: q1
    prompt: P
    options: ["a", "b", "c"]
    correct_index: 0
    answer_ids: ["x", "y"]
`,
			wantErr: "answer_ids",
		},
		{
			name: "duplicate id",
			questions: `
questions:
  - id: q1
    prompt: P
    options: ["a", "b"]
    correct_index: 0
    answer_ids: ["x", "y"]
  - id: q1
    prompt: Q
    options: ["a", "b"]
    correct_index: 1
    answer_ids: ["x", "y"]
`,
			wantErr: "duplicate question id",
		},
		{
			name: "too few options",
			questions: `
questions:
  - id: q1
    prompt: P
    options: ["only"]
    correct_index: 0
    answer_ids: ["x"]
`,
			wantErr: "at least 2 options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeContentDir(t, tt.questions, validGuidelines)
			err := NewLoader().LoadFromDir(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGuidelineValidation(t *testing.T) {
	validQuestions := `
questions:
  - id: q1
    prompt: P
    options: ["a", "b"]
    correct_index: 0
    answer_ids: ["x", "y"]
`

	dir := writeContentDir(t, validQuestions, "sections: []")
	err := NewLoader().LoadFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sections")

	dup := `
sections:
  - id: s1
    title: One
  - id: s1
    title: Two
`
	dir = writeContentDir(t, validQuestions, dup)
	err = NewLoader().LoadFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate section id")
}
