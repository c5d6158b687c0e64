package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medlearn/platform-api/internal/content"
	"github.com/medlearn/platform-api/internal/grading"
	"github.com/medlearn/platform-api/internal/license"
	"github.com/medlearn/platform-api/internal/pool"
	"github.com/medlearn/platform-api/internal/syncx"
)

// SQLStore runs the attempt state machine against shared persistent storage.
// Every operation is an independent transaction: expiry is evaluated lazily
// on each call, answers are upserted per question row, and the open→finished
// transition is a compare-and-swap so concurrent submits score exactly once.
//
// Policy notes (fixed for all learners):
//   - starting a quiz that already has an open attempt resumes it;
//   - REVISION question sets are sampled per attempt, not per quiz.
type SQLStore struct {
	db       *sql.DB
	resolver *license.Resolver
	content  *content.SQLStore
	sampler  *pool.Sampler
	events   *syncx.EventRepo
}

func NewSQLStore(db *sql.DB, resolver *license.Resolver, contentStore *content.SQLStore, sampler *pool.Sampler, events *syncx.EventRepo) *SQLStore {
	return &SQLStore{db: db, resolver: resolver, content: contentStore, sampler: sampler, events: events}
}

// ---- quiz definitions ----

// PutQuiz inserts or updates a quiz definition. Missing ids are generated.
func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) (Quiz, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	for i := range q.Questions {
		if q.Questions[i].ID == "" {
			q.Questions[i].ID = uuid.NewString()
		}
		for j := range q.Questions[i].Options {
			if q.Questions[i].Options[j].ID == "" {
				q.Questions[i].Options[j].ID = uuid.NewString()
			}
		}
	}
	if err := q.Validate(); err != nil {
		return Quiz{}, err
	}
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return Quiz{}, err
	}
	srcj, err := json.Marshal(q.Sources)
	if err != nil {
		return Quiz{}, err
	}
	fj, err := json.Marshal(q.Filters)
	if err != nil {
		return Quiz{}, err
	}
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id, title, description, quiz_type, lesson_id, module_id,
		                      time_limit_min, question_count, questions_json, sources_json, filters_json, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (id) DO UPDATE SET
		   title=EXCLUDED.title, description=EXCLUDED.description,
		   time_limit_min=EXCLUDED.time_limit_min, question_count=EXCLUDED.question_count,
		   questions_json=EXCLUDED.questions_json, sources_json=EXCLUDED.sources_json,
		   filters_json=EXCLUDED.filters_json`,
		q.ID, q.Title, q.Description, string(q.Type),
		nullable(q.LessonID), nullable(q.ModuleID),
		q.TimeLimitMin, q.QuestionCount, string(qj), string(srcj), string(fj), q.CreatedAt)
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// DeleteQuiz removes a definition and, via cascade, its attempts. Used to
// roll back a revision quiz whose first session could not be opened.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, quiz_type, lesson_id, module_id,
		        time_limit_min, question_count, questions_json, sources_json, filters_json, created_at
		 FROM quizzes WHERE id=$1`, id)
	var q Quiz
	var lesson, module sql.NullString
	var qj, srcj, fj string
	err := row.Scan(&q.ID, &q.Title, &q.Description, (*string)(&q.Type), &lesson, &module,
		&q.TimeLimitMin, &q.QuestionCount, &qj, &srcj, &fj, &q.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrQuizNotFound
	}
	if err != nil {
		return Quiz{}, err
	}
	q.LessonID, q.ModuleID = lesson.String, module.String
	if err := json.Unmarshal([]byte(qj), &q.Questions); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(srcj), &q.Sources); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(fj), &q.Filters); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// ListQuizzes returns definitions of the given type, newest first. An empty
// type lists everything.
func (s *SQLStore) ListQuizzes(ctx context.Context, quizType QuizType, limit, offset int) ([]Quiz, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, title, description, quiz_type, lesson_id, module_id, time_limit_min, question_count, created_at
	      FROM quizzes`
	args := []interface{}{}
	if quizType != "" {
		q += ` WHERE quiz_type=$1`
		args = append(args, string(quizType))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		var qz Quiz
		var lesson, module sql.NullString
		if err := rows.Scan(&qz.ID, &qz.Title, &qz.Description, (*string)(&qz.Type), &lesson, &module,
			&qz.TimeLimitMin, &qz.QuestionCount, &qz.CreatedAt); err != nil {
			return nil, err
		}
		qz.LessonID, qz.ModuleID = lesson.String, module.String
		out = append(out, qz)
	}
	return out, rows.Err()
}

// ---- state machine ----

// Start opens a session for the learner, or resumes the open one. The
// entitlement gate runs first: a LESSON quiz checks the lesson's module, a
// MODULE_EXAM its module; REVISION quizzes are learner-initiated over
// content already visible and skip the check.
func (s *SQLStore) Start(ctx context.Context, quizID, userID string, now time.Time) (Attempt, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}

	if err := s.checkEntitlement(ctx, quiz, userID, now); err != nil {
		return Attempt{}, err
	}

	// Resume an open attempt if one exists; an expired one is finalized
	// first and a fresh attempt opened below.
	if open, ok, err := s.openAttempt(ctx, quizID, userID); err != nil {
		return Attempt{}, err
	} else if ok {
		if open.ExpiredAt(now.Unix()) {
			if _, err := s.finalize(ctx, open, now, true); err != nil {
				return Attempt{}, err
			}
		} else {
			return open, nil
		}
	}

	questions := quiz.Questions
	if quiz.Type == QuizRevision {
		questions, err = s.sampler.Sample(ctx, quiz.Sources, quiz.Filters, quiz.QuestionCount)
		if err != nil {
			return Attempt{}, err
		}
	}

	a := Attempt{
		ID:           uuid.NewString(),
		QuizID:       quizID,
		UserID:       userID,
		Status:       StatusOpen,
		StartedAt:    now.Unix(),
		TimeLimitMin: quiz.TimeLimitMin,
		Questions:    questions,
	}
	qj, err := json.Marshal(questions)
	if err != nil {
		return Attempt{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO attempts (id, quiz_id, user_id, status, started_at, time_limit_min, questions_json)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.QuizID, a.UserID, string(a.Status), a.StartedAt, a.TimeLimitMin, string(qj))
	if err != nil {
		// The one_open_attempt index rejects a second open row for this
		// (quiz, learner): a concurrent start won, resume its attempt.
		if open, ok, rerr := s.openAttempt(ctx, quizID, userID); rerr == nil && ok {
			return open, nil
		}
		return Attempt{}, err
	}
	s.appendEvent(ctx, syncx.EventAttemptStarted, a.ID, map[string]interface{}{
		"quiz_id": a.QuizID, "user_id": a.UserID,
	})
	return a, nil
}

func (s *SQLStore) checkEntitlement(ctx context.Context, quiz Quiz, userID string, now time.Time) error {
	var moduleID string
	switch quiz.Type {
	case QuizRevision:
		return nil
	case QuizModuleExam:
		moduleID = quiz.ModuleID
	case QuizLesson:
		var err error
		moduleID, err = s.content.LessonModule(ctx, quiz.LessonID)
		if errors.Is(err, content.ErrNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
	}
	ok, err := s.resolver.HasAccess(ctx, userID, license.ScopeModule, moduleID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// RecordAnswer upserts the learner's response for one question of an open
// attempt. The latest write for a (attempt, question) pair wins; writes for
// different questions do not contend. Only the attempt's owner may write;
// an empty userID skips the check for trusted internal callers.
func (s *SQLStore) RecordAnswer(ctx context.Context, attemptID, questionID, userID string, resp grading.Response, now time.Time) error {
	a, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if userID != "" && a.UserID != userID {
		return ErrForbidden
	}
	if a.Status == StatusFinished {
		return ErrSessionClosed
	}
	if a.ExpiredAt(now.Unix()) {
		// The deadline passed: close the attempt with the answers it had,
		// then reject this write.
		if _, err := s.finalize(ctx, a, now, true); err != nil {
			return err
		}
		return ErrSessionClosed
	}
	if !a.HasQuestion(questionID) {
		return ErrUnknownQuestion
	}
	sel, err := json.Marshal(resp.SelectedOptionIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO answers (attempt_id, question_id, selected_json, text_answer, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE SET
		   selected_json=EXCLUDED.selected_json, text_answer=EXCLUDED.text_answer, updated_at=EXCLUDED.updated_at`,
		attemptID, questionID, string(sel), resp.Text, now.Unix())
	return err
}

// Submit finishes the attempt and persists its scores. Idempotent: once an
// attempt is finished, further submits return the stored result without
// rescoring, including both sides of a submit/timeout race. Only the
// attempt's owner may submit; an empty userID skips the check.
func (s *SQLStore) Submit(ctx context.Context, attemptID, userID string, now time.Time) (Attempt, error) {
	a, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if userID != "" && a.UserID != userID {
		return Attempt{}, ErrForbidden
	}
	if a.Status == StatusFinished {
		return a, nil
	}
	return s.finalize(ctx, a, now, a.ExpiredAt(now.Unix()))
}

// GetAttempt loads an attempt, applying lazy expiry: an open attempt past
// its deadline is finalized before being returned, so no caller ever
// observes an open-but-expired session.
func (s *SQLStore) GetAttempt(ctx context.Context, id string, now time.Time) (Attempt, error) {
	a, err := s.getAttempt(ctx, id)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status == StatusOpen && a.ExpiredAt(now.Unix()) {
		return s.finalize(ctx, a, now, true)
	}
	return a, nil
}

// Results returns the persisted breakdown of a finished attempt.
func (s *SQLStore) Results(ctx context.Context, id string, now time.Time) (Attempt, error) {
	a, err := s.GetAttempt(ctx, id, now)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != StatusFinished {
		return Attempt{}, ErrNotFinished
	}
	return a, nil
}

type AttemptListOpts struct {
	QuizID string
	UserID string
	Status string
	Limit  int
	Offset int
}

// ListAttempts returns attempt summaries, newest first. The frozen question
// snapshots are not loaded.
func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	q := `SELECT id, quiz_id, user_id, status, started_at, finished_at, time_limit_min, score, max_score, percentage
	      FROM attempts WHERE 1=1`
	args := []interface{}{}
	add := func(clause, v string) {
		args = append(args, v)
		q += fmt.Sprintf(" AND %s=$%d", clause, len(args))
	}
	if opts.QuizID != "" {
		add("quiz_id", opts.QuizID)
	}
	if opts.UserID != "" {
		add("user_id", opts.UserID)
	}
	if opts.Status != "" {
		add("status", opts.Status)
	}
	q += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %d OFFSET %d", opts.Limit, opts.Offset)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		var a Attempt
		var finished sql.NullInt64
		if err := rows.Scan(&a.ID, &a.QuizID, &a.UserID, (*string)(&a.Status), &a.StartedAt,
			&finished, &a.TimeLimitMin, &a.Score, &a.MaxScore, &a.Percentage); err != nil {
			return nil, err
		}
		a.FinishedAt = finished.Int64
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- internals ----

func (s *SQLStore) getAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, quiz_id, user_id, status, started_at, finished_at, time_limit_min,
		        questions_json, score, max_score, percentage, breakdown_json
		 FROM attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) openAttempt(ctx context.Context, quizID, userID string) (Attempt, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, quiz_id, user_id, status, started_at, finished_at, time_limit_min,
		        questions_json, score, max_score, percentage, breakdown_json
		 FROM attempts WHERE quiz_id=$1 AND user_id=$2 AND status='open'`, quizID, userID)
	a, err := scanAttempt(row)
	if errors.Is(err, ErrAttemptNotFound) {
		return Attempt{}, false, nil
	}
	if err != nil {
		return Attempt{}, false, err
	}
	return a, true, nil
}

// finalize scores the attempt from its persisted answers and performs the
// open→finished transition. The UPDATE is guarded on status='open'; if a
// concurrent call won the race, the stored result is returned instead.
func (s *SQLStore) finalize(ctx context.Context, a Attempt, now time.Time, expired bool) (Attempt, error) {
	answers, err := s.loadAnswers(ctx, a.ID)
	if err != nil {
		return Attempt{}, err
	}

	results := make([]grading.Result, 0, len(a.Questions))
	breakdown := make([]QuestionResult, 0, len(a.Questions))
	for _, q := range a.Questions {
		var resp *grading.Response
		if r, ok := answers[q.ID]; ok {
			resp = &r
		}
		res := grading.Score(q, resp)
		results = append(results, res)
		qr := QuestionResult{
			QuestionID:       q.ID,
			Points:           res.Points,
			MaxPoints:        res.MaxPoints,
			Correct:          res.Correct,
			CorrectOptionIDs: q.CorrectOptionIDs(),
			ExpectedAnswer:   q.ExpectedAnswer,
		}
		if resp != nil {
			qr.SelectedOptions = resp.SelectedOptionIDs
			qr.TextAnswer = resp.Text
		}
		breakdown = append(breakdown, qr)
	}
	score, maxScore, pct := grading.Aggregate(results)

	finishedAt := now.Unix()
	if expired {
		finishedAt = a.ExpiresAt()
	}
	bj, err := json.Marshal(breakdown)
	if err != nil {
		return Attempt{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE attempts
		 SET status='finished', finished_at=$1, score=$2, max_score=$3, percentage=$4, breakdown_json=$5
		 WHERE id=$6 AND status='open'`,
		finishedAt, score, maxScore, pct, string(bj), a.ID)
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost the race: someone else finished this attempt. Their result
		// is authoritative.
		return s.getAttempt(ctx, a.ID)
	}

	typ := syncx.EventAttemptSubmitted
	if expired {
		typ = syncx.EventAttemptExpired
	}
	s.appendEvent(ctx, typ, a.ID, map[string]interface{}{
		"quiz_id": a.QuizID, "user_id": a.UserID, "score": score, "max_score": maxScore,
	})

	a.Status = StatusFinished
	a.FinishedAt = finishedAt
	a.Score, a.MaxScore, a.Percentage = score, maxScore, pct
	a.Breakdown = breakdown
	return a, nil
}

func (s *SQLStore) loadAnswers(ctx context.Context, attemptID string) (map[string]grading.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT question_id, selected_json, text_answer FROM answers WHERE attempt_id=$1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]grading.Response{}
	for rows.Next() {
		var qid, sel, text string
		if err := rows.Scan(&qid, &sel, &text); err != nil {
			return nil, err
		}
		var resp grading.Response
		if err := json.Unmarshal([]byte(sel), &resp.SelectedOptionIDs); err != nil {
			return nil, err
		}
		resp.Text = text
		out[qid] = resp
	}
	return out, rows.Err()
}

// appendEvent is best-effort: the event log feeds dashboards and must not
// fail the learner's transaction.
func (s *SQLStore) appendEvent(ctx context.Context, typ, key string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	dj, err := json.Marshal(data)
	if err != nil {
		return
	}
	_ = s.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(dj)})
}

func scanAttempt(row *sql.Row) (Attempt, error) {
	var a Attempt
	var finished sql.NullInt64
	var qj, bj string
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, (*string)(&a.Status), &a.StartedAt,
		&finished, &a.TimeLimitMin, &qj, &a.Score, &a.MaxScore, &a.Percentage, &bj)
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	a.FinishedAt = finished.Int64
	if err := json.Unmarshal([]byte(qj), &a.Questions); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(bj), &a.Breakdown); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
