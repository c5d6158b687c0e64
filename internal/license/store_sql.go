package license

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("license not found")

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

// Put inserts or updates a license. A missing ID is generated.
func (s *SQLStore) Put(ctx context.Context, l License) (License, error) {
	if _, _, err := l.Scope(); err != nil {
		return License{}, err
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO licenses (id, user_id, study_year_id, semester_id, module_id, start_date, end_date, is_active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (id) DO UPDATE SET
		   start_date=EXCLUDED.start_date, end_date=EXCLUDED.end_date, is_active=EXCLUDED.is_active`,
		l.ID, l.UserID,
		nullable(l.StudyYearID), nullable(l.SemesterID), nullable(l.ModuleID),
		l.StartDate, l.EndDate, boolInt(l.IsActive))
	if err != nil {
		return License{}, err
	}
	return l, nil
}

// Revoke deactivates a license. Takes effect on the next entitlement check.
func (s *SQLStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE licenses SET is_active=0 WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns licenses, optionally filtered by user.
func (s *SQLStore) List(ctx context.Context, userID string) ([]License, error) {
	q := `SELECT id, user_id, study_year_id, semester_id, module_id, start_date, end_date, is_active
	      FROM licenses`
	args := []interface{}{}
	if userID != "" {
		q += ` WHERE user_id=$1`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []License{}
	for rows.Next() {
		var l License
		var year, sem, mod sql.NullString
		var active int
		if err := rows.Scan(&l.ID, &l.UserID, &year, &sem, &mod, &l.StartDate, &l.EndDate, &active); err != nil {
			return nil, err
		}
		l.StudyYearID, l.SemesterID, l.ModuleID = year.String, sem.String, mod.String
		l.IsActive = active != 0
		out = append(out, l)
	}
	return out, rows.Err()
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
