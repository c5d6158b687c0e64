package syncx

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Attempt lifecycle event types.
const (
	EventAttemptStarted   = "AttemptStarted"
	EventAttemptSubmitted = "AttemptSubmitted"
	EventAttemptExpired   = "AttemptExpired"
)

type Event struct {
	ID        string
	Type      string
	Key       string // natural key: attemptID
	DataJSON  string
	CreatedAt int64
}

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// ListByKey returns events for one attempt, oldest first.
func (r *EventRepo) ListByKey(ctx context.Context, key string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, typ, key, data, created_at FROM event_log WHERE key=$1 ORDER BY created_at`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
