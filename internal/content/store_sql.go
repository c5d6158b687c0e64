package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("content node not found")

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) PutStudyYear(ctx context.Context, y StudyYear) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO study_years (id, name) VALUES ($1,$2)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
		y.ID, y.Name)
	return err
}

func (s *SQLStore) PutSemester(ctx context.Context, sem Semester) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO semesters (id, name, study_year_id) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, study_year_id=EXCLUDED.study_year_id`,
		sem.ID, sem.Name, sem.StudyYearID)
	return err
}

func (s *SQLStore) PutModule(ctx context.Context, m Module) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO modules (id, name, semester_id) VALUES ($1,$2,$3)
		 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, semester_id=EXCLUDED.semester_id`,
		m.ID, m.Name, m.SemesterID)
	return err
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, title, module_id, position) VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, module_id=EXCLUDED.module_id, position=EXCLUDED.position`,
		l.ID, l.Title, l.ModuleID, l.Position)
	return err
}

// ModuleChain returns the semester and study year above a module.
func (s *SQLStore) ModuleChain(ctx context.Context, moduleID string) (semesterID, studyYearID string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT m.semester_id, sem.study_year_id
		 FROM modules m JOIN semesters sem ON sem.id = m.semester_id
		 WHERE m.id=$1`, moduleID,
	).Scan(&semesterID, &studyYearID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	return
}

// SemesterYear returns the study year above a semester.
func (s *SQLStore) SemesterYear(ctx context.Context, semesterID string) (string, error) {
	var yearID string
	err := s.db.QueryRowContext(ctx,
		`SELECT study_year_id FROM semesters WHERE id=$1`, semesterID,
	).Scan(&yearID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return yearID, err
}

// LessonModule returns the module owning a lesson.
func (s *SQLStore) LessonModule(ctx context.Context, lessonID string) (string, error) {
	var moduleID string
	err := s.db.QueryRowContext(ctx,
		`SELECT module_id FROM lessons WHERE id=$1`, lessonID,
	).Scan(&moduleID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return moduleID, err
}

// ExpandSources resolves a source set down to concrete module and lesson ids.
// Study years and semesters contribute every module beneath them; modules
// pass through; lessons pass through. The returned module set is what
// question eligibility is checked against (a question matches on its module,
// or on its lesson, or on its lesson's module).
func (s *SQLStore) ExpandSources(ctx context.Context, src Sources) (moduleIDs, lessonIDs []string, err error) {
	seen := map[string]bool{}
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			moduleIDs = append(moduleIDs, id)
		}
	}
	for _, id := range src.Modules {
		add(id)
	}
	if len(src.Semesters) > 0 {
		ids, err := s.queryIDs(ctx,
			`SELECT id FROM modules WHERE semester_id IN `+placeholders(1, len(src.Semesters)),
			toArgs(src.Semesters)...)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			add(id)
		}
	}
	if len(src.StudyYears) > 0 {
		ids, err := s.queryIDs(ctx,
			`SELECT m.id FROM modules m
			 JOIN semesters sem ON sem.id = m.semester_id
			 WHERE sem.study_year_id IN `+placeholders(1, len(src.StudyYears)),
			toArgs(src.StudyYears)...)
		if err != nil {
			return nil, nil, err
		}
		for _, id := range ids {
			add(id)
		}
	}
	lessonIDs = append(lessonIDs, src.Lessons...)
	return moduleIDs, lessonIDs, nil
}

// Tree loads the whole hierarchy, for the admin surface.
func (s *SQLStore) Tree(ctx context.Context) ([]StudyYear, error) {
	years := []StudyYear{}
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM study_years ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var y StudyYear
		if err := rows.Scan(&y.ID, &y.Name); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range years {
		if years[i].Semesters, err = s.semestersOf(ctx, years[i].ID); err != nil {
			return nil, err
		}
	}
	return years, nil
}

func (s *SQLStore) semestersOf(ctx context.Context, yearID string) ([]Semester, error) {
	sems := []Semester{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, study_year_id FROM semesters WHERE study_year_id=$1 ORDER BY name`, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sem Semester
		if err := rows.Scan(&sem.ID, &sem.Name, &sem.StudyYearID); err != nil {
			return nil, err
		}
		sems = append(sems, sem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range sems {
		if sems[i].Modules, err = s.modulesOf(ctx, sems[i].ID); err != nil {
			return nil, err
		}
	}
	return sems, nil
}

func (s *SQLStore) modulesOf(ctx context.Context, semesterID string) ([]Module, error) {
	mods := []Module{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, semester_id FROM modules WHERE semester_id=$1 ORDER BY name`, semesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Name, &m.SemesterID); err != nil {
			return nil, err
		}
		mods = append(mods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range mods {
		if mods[i].Lessons, err = s.lessonsOf(ctx, mods[i].ID); err != nil {
			return nil, err
		}
	}
	return mods, nil
}

func (s *SQLStore) lessonsOf(ctx context.Context, moduleID string) ([]Lesson, error) {
	ls := []Lesson{}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, module_id, position FROM lessons WHERE module_id=$1 ORDER BY position`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.ModuleID, &l.Position); err != nil {
			return nil, err
		}
		ls = append(ls, l)
	}
	return ls, rows.Err()
}

func (s *SQLStore) queryIDs(ctx context.Context, q string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// placeholders renders "($n,$n+1,...)" for IN clauses.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
