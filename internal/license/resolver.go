package license

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Resolver answers "does this learner hold an effective license covering this
// content node right now". Every call reads license state fresh from the
// store: licenses are revoked and expire asynchronously, so nothing is
// cached between calls. Safe for concurrent use.
type Resolver struct {
	db *sql.DB
}

func NewResolver(db *sql.DB) *Resolver { return &Resolver{db: db} }

// HasAccess reports whether userID holds a license effective at now whose
// scope node equals the target node or is an ancestor of it. A missing node
// or learner yields false, not an error.
func (r *Resolver) HasAccess(ctx context.Context, userID string, scope ScopeType, nodeID string, now time.Time) (bool, error) {
	var q string
	switch scope {
	case ScopeModule:
		q = `SELECT 1 FROM licenses l
			 JOIN modules m ON m.id = $2
			 JOIN semesters sem ON sem.id = m.semester_id
			 WHERE l.user_id = $1
			   AND l.is_active = 1 AND l.start_date <= $3 AND l.end_date >= $3
			   AND (l.module_id = m.id OR l.semester_id = m.semester_id OR l.study_year_id = sem.study_year_id)
			 LIMIT 1`
	case ScopeSemester:
		q = `SELECT 1 FROM licenses l
			 JOIN semesters sem ON sem.id = $2
			 WHERE l.user_id = $1
			   AND l.is_active = 1 AND l.start_date <= $3 AND l.end_date >= $3
			   AND (l.semester_id = sem.id OR l.study_year_id = sem.study_year_id)
			 LIMIT 1`
	case ScopeStudyYear:
		q = `SELECT 1 FROM licenses l
			 WHERE l.user_id = $1
			   AND l.is_active = 1 AND l.start_date <= $3 AND l.end_date >= $3
			   AND l.study_year_id = $2
			 LIMIT 1`
	default:
		return false, fmt.Errorf("unknown scope type %q", scope)
	}

	var one int
	err := r.db.QueryRowContext(ctx, q, userID, nodeID, now.Unix()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
