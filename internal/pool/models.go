package pool

import "fmt"

// QuestionType is the closed set of scoring modes in the question bank.
type QuestionType string

const (
	TypeQCS  QuestionType = "QCS"  // single choice
	TypeQCMA QuestionType = "QCMA" // multi-select, all or nothing
	TypeQCMP QuestionType = "QCMP" // multi-select, partial credit
	TypeQROC QuestionType = "QROC" // short free text
)

func (t QuestionType) Valid() bool {
	switch t {
	case TypeQCS, TypeQCMA, TypeQCMP, TypeQROC:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

type Option struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

// Question is a tagged variant over the four kinds. Choice kinds carry
// Options; QROC carries ExpectedAnswer and no Options. A question belongs to
// a module and/or a lesson (either may be empty); revision pools select on
// both.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	Type           QuestionType `json:"question_type"`
	Difficulty     Difficulty   `json:"difficulty,omitempty"`
	ModuleID       string       `json:"module_id,omitempty"`
	LessonID       string       `json:"lesson_id,omitempty"`
	Options        []Option     `json:"options,omitempty"`
	ExpectedAnswer string       `json:"expected_answer,omitempty"`
	IsActive       bool         `json:"is_active"`
}

// Validate enforces the per-kind shape.
func (q Question) Validate() error {
	if !q.Type.Valid() {
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	switch q.Type {
	case TypeQROC:
		if q.ExpectedAnswer == "" {
			return fmt.Errorf("QROC question needs an expected answer")
		}
		if len(q.Options) > 0 {
			return fmt.Errorf("QROC question must not carry options")
		}
	case TypeQCS:
		if countCorrect(q.Options) != 1 {
			return fmt.Errorf("QCS question needs exactly one correct option")
		}
	case TypeQCMA, TypeQCMP:
		if countCorrect(q.Options) == 0 {
			return fmt.Errorf("%s question needs at least one correct option", q.Type)
		}
	}
	return nil
}

// CorrectOptionIDs returns the ids of correct options (choice kinds only).
func (q Question) CorrectOptionIDs() []string {
	var out []string
	for _, o := range q.Options {
		if o.IsCorrect {
			out = append(out, o.ID)
		}
	}
	return out
}

// Redacted returns a copy safe to serve to learners: correctness flags and
// the expected QROC text are stripped.
func (q Question) Redacted() Question {
	out := q
	out.ExpectedAnswer = ""
	if len(q.Options) > 0 {
		out.Options = make([]Option, len(q.Options))
		for i, o := range q.Options {
			out.Options[i] = Option{ID: o.ID, Text: o.Text}
		}
	}
	return out
}

func countCorrect(opts []Option) int {
	n := 0
	for _, o := range opts {
		if o.IsCorrect {
			n++
		}
	}
	return n
}

// Filters narrows pool eligibility. An empty slice means "no filter".
type Filters struct {
	Difficulties []Difficulty   `json:"difficulties,omitempty"`
	Types        []QuestionType `json:"types,omitempty"`
}

// Availability is the breakdown returned by CountAvailable.
type Availability struct {
	Total        int                  `json:"total"`
	ByDifficulty map[Difficulty]int   `json:"by_difficulty"`
	ByType       map[QuestionType]int `json:"by_type"`
}

// InsufficientPoolError reports a sample request larger than the eligible
// pool. Available is surfaced to the caller so the client can offer a
// reduced question count.
type InsufficientPoolError struct {
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("pool has %d eligible questions, %d requested", e.Available, e.Requested)
}
