package pool

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("question not found")

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// Put inserts or updates a bank question. Missing question and option ids
// are generated.
func (s *SQLStore) Put(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	for i := range q.Options {
		if q.Options[i].ID == "" {
			q.Options[i].ID = uuid.NewString()
		}
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return Question{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, text, qtype, difficulty, module_id, lesson_id, options_json, expected_answer, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO UPDATE SET
		   text=EXCLUDED.text, qtype=EXCLUDED.qtype, difficulty=EXCLUDED.difficulty,
		   module_id=EXCLUDED.module_id, lesson_id=EXCLUDED.lesson_id,
		   options_json=EXCLUDED.options_json, expected_answer=EXCLUDED.expected_answer,
		   is_active=EXCLUDED.is_active`,
		q.ID, q.Text, string(q.Type), nullable(string(q.Difficulty)),
		nullable(q.ModuleID), nullable(q.LessonID), string(oj), q.ExpectedAnswer, boolInt(q.IsActive))
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Question, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, qtype, difficulty, module_id, lesson_id, options_json, expected_answer, is_active
		 FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrNotFound
	}
	return q, err
}

// SetActive toggles whether the question is eligible for sampling.
func (s *SQLStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET is_active=$1 WHERE id=$2`, boolInt(active), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns bank questions, optionally scoped to a module.
func (s *SQLStore) List(ctx context.Context, moduleID string, limit, offset int) ([]Question, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, text, qtype, difficulty, module_id, lesson_id, options_json, expected_answer, is_active
	      FROM questions`
	args := []interface{}{}
	if moduleID != "" {
		q += ` WHERE module_id=$1`
		args = append(args, moduleID)
	}
	q += fmt.Sprintf(` ORDER BY id LIMIT %d OFFSET %d`, limit, offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		qq, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

// eligible loads the full pool snapshot matching the resolved source modules
// and lessons plus filters. Answer keys are included; callers redact before
// serving.
func (s *SQLStore) eligible(ctx context.Context, moduleIDs, lessonIDs []string, f Filters) ([]Question, error) {
	if len(moduleIDs) == 0 && len(lessonIDs) == 0 {
		return []Question{}, nil
	}

	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	in := func(vals []string) string {
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = next(v)
		}
		return "(" + strings.Join(parts, ",") + ")"
	}

	var scopes []string
	if len(moduleIDs) > 0 {
		// The same placeholders serve both the question's own module and the
		// module of its lesson.
		mods := in(moduleIDs)
		scopes = append(scopes, `q.module_id IN `+mods, `l.module_id IN `+mods)
	}
	if len(lessonIDs) > 0 {
		scopes = append(scopes, `q.lesson_id IN `+in(lessonIDs))
	}

	where := []string{`q.is_active = 1`, "(" + strings.Join(scopes, " OR ") + ")"}
	if len(f.Difficulties) > 0 {
		vals := make([]string, len(f.Difficulties))
		for i, d := range f.Difficulties {
			vals[i] = string(d)
		}
		where = append(where, `q.difficulty IN `+in(vals))
	}
	if len(f.Types) > 0 {
		vals := make([]string, len(f.Types))
		for i, t := range f.Types {
			vals[i] = string(t)
		}
		where = append(where, `q.qtype IN `+in(vals))
	}

	query := `SELECT q.id, q.text, q.qtype, q.difficulty, q.module_id, q.lesson_id,
	                 q.options_json, q.expected_answer, q.is_active
	          FROM questions q
	          LEFT JOIN lessons l ON l.id = q.lesson_id
	          WHERE ` + strings.Join(where, " AND ")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestion(row rowScanner) (Question, error) {
	var q Question
	var diff, mod, lesson sql.NullString
	var oj string
	var active int
	if err := row.Scan(&q.ID, &q.Text, (*string)(&q.Type), &diff, &mod, &lesson, &oj, &q.ExpectedAnswer, &active); err != nil {
		return Question{}, err
	}
	q.Difficulty = Difficulty(diff.String)
	q.ModuleID, q.LessonID = mod.String, lesson.String
	q.IsActive = active != 0
	if err := json.Unmarshal([]byte(oj), &q.Options); err != nil {
		return Question{}, err
	}
	return q, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
