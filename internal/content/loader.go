package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/verdicthq/verdict/internal/models"
)

// Loader holds the static qualification content: the quiz question
// bank and the guideline sections. Content is immutable once loaded;
// the mutex only guards against a reload racing readers.
type Loader struct {
	mu         sync.RWMutex
	questions  []models.QuizQuestion
	guidelines []models.GuidelineSection
}

// NewLoader creates an empty content loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFromDir loads questions.yaml and guidelines.yaml from dir
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading qualification content", "dir", dir)

	if err := l.loadQuestions(filepath.Join(dir, "questions.yaml")); err != nil {
		return fmt.Errorf("failed to load question bank: %w", err)
	}

	if err := l.loadGuidelines(filepath.Join(dir, "guidelines.yaml")); err != nil {
		return fmt.Errorf("failed to load guidelines: %w", err)
	}

	slog.Info("qualification content loaded",
		"questions", len(l.Questions()),
		"guideline_sections", len(l.Guidelines()),
	)
	return nil
}

// questionsFile represents the YAML structure of the question bank
type questionsFile struct {
	Questions []models.QuizQuestion `yaml:"questions"`
}

// guidelinesFile represents the YAML structure of the guidelines file
type guidelinesFile struct {
	Sections []models.GuidelineSection `yaml:"sections"`
}

func (l *Loader) loadQuestions(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var qf questionsFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(qf.Questions) == 0 {
		return fmt.Errorf("question bank is empty")
	}

	seen := make(map[string]bool, len(qf.Questions))
	for i, q := range qf.Questions {
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("question %d (%s): %w", i, q.ID, err)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id: %s", q.ID)
		}
		seen[q.ID] = true
	}

	l.mu.Lock()
	l.questions = qf.Questions
	l.mu.Unlock()
	return nil
}

func validateQuestion(q models.QuizQuestion) error {
	if q.ID == "" {
		return fmt.Errorf("question id is required")
	}
	if q.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("at least 2 options are required, got %d", len(q.Options))
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("correct_index %d out of range for %d options", q.CorrectIndex, len(q.Options))
	}
	if len(q.AnswerIDs) != len(q.Options) {
		return fmt.Errorf("answer_ids must have one entry per option: got %d for %d options", len(q.AnswerIDs), len(q.Options))
	}
	for i, id := range q.AnswerIDs {
		if id == "" {
			return fmt.Errorf("answer_ids[%d] is empty", i)
		}
	}
	return nil
}

func (l *Loader) loadGuidelines(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var gf guidelinesFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(gf.Sections) == 0 {
		return fmt.Errorf("guidelines file has no sections")
	}

	seen := make(map[string]bool, len(gf.Sections))
	for i, s := range gf.Sections {
		if s.ID == "" || s.Title == "" {
			return fmt.Errorf("section %d: id and title are required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate section id: %s", s.ID)
		}
		seen[s.ID] = true
	}

	l.mu.Lock()
	l.guidelines = gf.Sections
	l.mu.Unlock()
	return nil
}

// Questions returns the question bank in file order
func (l *Loader) Questions() []models.QuizQuestion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.questions
}

// Question retrieves a question by id, nil if unknown
func (l *Loader) Question(id string) *models.QuizQuestion {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.questions {
		if l.questions[i].ID == id {
			return &l.questions[i]
		}
	}
	return nil
}

// Guidelines returns the guideline sections in file order
func (l *Loader) Guidelines() []models.GuidelineSection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.guidelines
}

// Guideline retrieves a section by id, nil if unknown
func (l *Loader) Guideline(id string) *models.GuidelineSection {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.guidelines {
		if l.guidelines[i].ID == id {
			return &l.guidelines[i]
		}
	}
	return nil
}

// SetQuestions programmatically replaces the question bank (tests)
func (l *Loader) SetQuestions(questions []models.QuizQuestion) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.questions = questions
}

// SetGuidelines programmatically replaces the guidelines (tests)
func (l *Loader) SetGuidelines(sections []models.GuidelineSection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.guidelines = sections
}
