package models

// QuizQuestion is one question in the static qualification bank.
// AnswerIDs maps each option index to the semantic answer id the
// grading collaborator expects; keeping the table on the question
// means the mapping cannot drift from the option list.
type QuizQuestion struct {
	ID           string   `yaml:"id" json:"id"`
	Prompt       string   `yaml:"prompt" json:"prompt"`
	Options      []string `yaml:"options" json:"options"`
	CorrectIndex int      `yaml:"correct_index" json:"-"`
	AnswerIDs    []string `yaml:"answer_ids" json:"-"`
	Explanation  string   `yaml:"explanation" json:"-"`
}

// View returns the client-safe projection of the question
func (q *QuizQuestion) View() QuestionView {
	return QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

// GuidelineSection is one subsection of the content guidelines. Every
// section must be acknowledged before the quiz unlocks.
type GuidelineSection struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
}

// GradeResult is the grading collaborator's verdict on a submission.
// Passed is authoritative; clients must not re-derive it from Score.
type GradeResult struct {
	Score  int  `json:"score"`
	Total  int  `json:"total"`
	Passed bool `json:"passed"`
}
