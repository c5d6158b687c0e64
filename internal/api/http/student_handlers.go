package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medlearn/platform-api/internal/grading"
	"github.com/medlearn/platform-api/internal/pool"
	"github.com/medlearn/platform-api/internal/rbac"
	"github.com/medlearn/platform-api/internal/session"
)

type attemptResponse struct {
	AttemptID  string          `json:"attempt_id"`
	QuizID     string          `json:"quiz_id"`
	Status     string          `json:"status"`
	StartedAt  int64           `json:"started_at"`
	ExpiresAt  int64           `json:"expires_at,omitempty"`
	FinishedAt int64           `json:"finished_at,omitempty"`
	Questions  []pool.Question `json:"questions,omitempty"`
}

func toAttemptResponse(a session.Attempt) attemptResponse {
	resp := attemptResponse{
		AttemptID:  a.ID,
		QuizID:     a.QuizID,
		Status:     string(a.Status),
		StartedAt:  a.StartedAt,
		ExpiresAt:  a.ExpiresAt(),
		FinishedAt: a.FinishedAt,
	}
	if a.Status == session.StatusOpen {
		resp.Questions = make([]pool.Question, len(a.Questions))
		for i, q := range a.Questions {
			resp.Questions[i] = q.Redacted()
		}
	}
	return resp
}

// POST /quizzes/{quizID}/attempts — start a session, or resume the open one.
func StartAttemptHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		sub := rbac.SubjectFromContext(r.Context())
		a, err := store.Start(r.Context(), quizID, sub, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAttemptResponse(a))
	}
}

// PUT /attempts/{attemptID}/answers/{questionID} — upsert one answer.
func RecordAnswerHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		questionID := chi.URLParam(r, "questionID")
		var resp grading.Response
		if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		if err := store.RecordAnswer(r.Context(), attemptID, questionID, sub, resp, time.Now()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

// POST /attempts/{attemptID}/submit — finalize. Duplicate submits return the
// stored result.
func SubmitAttemptHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		sub := rbac.SubjectFromContext(r.Context())
		a, err := store.Submit(r.Context(), attemptID, sub, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"attempt_id": a.ID,
			"score":      a.Score,
			"max_score":  a.MaxScore,
			"percentage": a.Percentage,
			"breakdown":  a.Breakdown,
		})
	}
}

// GET /attempts/{attemptID} — current state, lazy expiry applied.
func GetAttemptHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.GetAttempt(r.Context(), attemptID, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		if !viewerCanSee(r, a) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		writeJSON(w, http.StatusOK, toAttemptResponse(a))
	}
}

// GET /attempts/{attemptID}/results — persisted breakdown, finished only.
func AttemptResultsHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attemptID := chi.URLParam(r, "attemptID")
		a, err := store.Results(r.Context(), attemptID, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}
		if !viewerCanSee(r, a) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"attempt_id":  a.ID,
			"quiz_id":     a.QuizID,
			"score":       a.Score,
			"max_score":   a.MaxScore,
			"percentage":  a.Percentage,
			"finished_at": a.FinishedAt,
			"breakdown":   a.Breakdown,
		})
	}
}

func viewerCanSee(r *http.Request, a session.Attempt) bool {
	role := rbac.RoleFromContext(r.Context())
	if role == "teacher" || role == "admin" {
		return true
	}
	return a.UserID == rbac.SubjectFromContext(r.Context())
}
