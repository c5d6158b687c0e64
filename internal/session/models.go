package session

import (
	"fmt"

	"github.com/medlearn/platform-api/internal/content"
	"github.com/medlearn/platform-api/internal/grading"
	"github.com/medlearn/platform-api/internal/pool"
)

type QuizType string

const (
	QuizLesson     QuizType = "LESSON"
	QuizModuleExam QuizType = "MODULE_EXAM"
	QuizRevision   QuizType = "REVISION"
)

// Quiz is the static description of an assessment. LESSON and MODULE_EXAM
// quizzes own a fixed, ordered question list authored independently of the
// shared bank. REVISION quizzes own generation parameters instead; their
// questions are sampled from the bank when a session starts.
type Quiz struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Type         QuizType        `json:"type"`
	LessonID     string          `json:"lesson_id,omitempty"`
	ModuleID     string          `json:"module_id,omitempty"`
	TimeLimitMin int             `json:"time_limit_min"`
	Questions    []pool.Question `json:"questions,omitempty"`

	// Generation parameters, REVISION only.
	QuestionCount int             `json:"question_count,omitempty"`
	Sources       content.Sources `json:"sources,omitempty"`
	Filters       pool.Filters    `json:"filters,omitempty"`

	CreatedAt int64 `json:"created_at,omitempty"`
}

// Validate enforces the per-type shape.
func (q Quiz) Validate() error {
	switch q.Type {
	case QuizLesson:
		if q.LessonID == "" {
			return fmt.Errorf("lesson quiz needs a lesson")
		}
		if len(q.Questions) == 0 {
			return fmt.Errorf("lesson quiz needs questions")
		}
	case QuizModuleExam:
		if q.ModuleID == "" {
			return fmt.Errorf("module exam needs a module")
		}
		if len(q.Questions) == 0 {
			return fmt.Errorf("module exam needs questions")
		}
	case QuizRevision:
		if q.QuestionCount <= 0 {
			return fmt.Errorf("revision quiz needs a question count")
		}
		if q.Sources.Empty() {
			return fmt.Errorf("revision quiz needs at least one source node")
		}
	default:
		return fmt.Errorf("unknown quiz type %q", q.Type)
	}
	for _, qq := range q.Questions {
		if err := qq.Validate(); err != nil {
			return fmt.Errorf("question %s: %w", qq.ID, err)
		}
	}
	return nil
}

type AttemptStatus string

const (
	StatusOpen     AttemptStatus = "open"
	StatusFinished AttemptStatus = "finished"
)

// Attempt is one learner's run of a quiz. The question set is frozen onto
// the attempt when it opens — for REVISION quizzes each attempt samples
// independently — and once finished the row is never mutated again.
type Attempt struct {
	ID           string        `json:"id"`
	QuizID       string        `json:"quiz_id"`
	UserID       string        `json:"user_id"`
	Status       AttemptStatus `json:"status"`
	StartedAt    int64         `json:"started_at"`
	FinishedAt   int64         `json:"finished_at,omitempty"`
	TimeLimitMin int           `json:"time_limit_min"`

	// Frozen question snapshot, answer keys included. Redact before serving.
	Questions []pool.Question `json:"-"`

	Score      float64          `json:"score"`
	MaxScore   float64          `json:"max_score"`
	Percentage float64          `json:"percentage"`
	Breakdown  []QuestionResult `json:"breakdown,omitempty"`
}

// QuestionResult is the persisted per-question outcome of a finished attempt.
type QuestionResult struct {
	QuestionID       string   `json:"question_id"`
	Points           float64  `json:"points"`
	MaxPoints        float64  `json:"max_points"`
	Correct          bool     `json:"correct"`
	SelectedOptions  []string `json:"selected_options,omitempty"`
	TextAnswer       string   `json:"text_answer,omitempty"`
	CorrectOptionIDs []string `json:"correct_option_ids,omitempty"`
	ExpectedAnswer   string   `json:"expected_answer,omitempty"`
}

// ExpiresAt returns the unix second the attempt times out, or 0 when the
// quiz has no time limit.
func (a Attempt) ExpiresAt() int64 {
	if a.TimeLimitMin <= 0 {
		return 0
	}
	return a.StartedAt + int64(a.TimeLimitMin)*60
}

// ExpiredAt reports whether the wall clock has passed the time limit.
func (a Attempt) ExpiredAt(now int64) bool {
	exp := a.ExpiresAt()
	return exp > 0 && now >= exp
}

// HasQuestion reports whether id is part of the frozen question set.
func (a Attempt) HasQuestion(id string) bool {
	for _, q := range a.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// Answer is one learner response held while the attempt is open. The latest
// write per (attempt, question) wins.
type Answer struct {
	AttemptID  string
	QuestionID string
	Response   grading.Response
	UpdatedAt  int64
}
