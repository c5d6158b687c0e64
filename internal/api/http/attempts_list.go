package http

import (
	"net/http"
	"strings"

	"github.com/medlearn/platform-api/internal/rbac"
	"github.com/medlearn/platform-api/internal/session"
)

// GET /attempts?quiz_id=...&user_id=...&status=...&limit=50&offset=0
// Roles without attempt:view-all are forced onto their own attempts.
func ListAttemptsHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())

		quizID := strings.TrimSpace(r.URL.Query().Get("quiz_id"))
		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

		if role != "admin" && role != "teacher" {
			userID = sub
		}

		list, err := store.ListAttempts(r.Context(), session.AttemptListOpts{
			QuizID: quizID,
			UserID: userID,
			Status: status,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
