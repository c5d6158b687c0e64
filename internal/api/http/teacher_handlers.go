package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/medlearn/platform-api/internal/pool"
	"github.com/medlearn/platform-api/internal/session"
)

// POST /quizzes — author a quiz definition (fixed question list or revision
// parameters).
func PutQuizHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q session.Quiz
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		saved, err := store.PutQuiz(r.Context(), q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// GET /quizzes?type=LESSON&limit=&offset= — definition summaries.
func ListQuizzesHandler(store *session.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizType := session.QuizType(r.URL.Query().Get("type"))
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		list, err := store.ListQuizzes(r.Context(), quizType, limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /questions — add a question to the shared bank.
func PutQuestionHandler(store *pool.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q pool.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		saved, err := store.Put(r.Context(), q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// GET /questions?module_id=&limit=&offset= — bank listing, keys included
// (this surface is teacher/admin only).
func ListQuestionsHandler(store *pool.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		moduleID := r.URL.Query().Get("module_id")
		limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
		offset := parseIntDefault(r.URL.Query().Get("offset"), 0)
		list, err := store.List(r.Context(), moduleID, limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /questions/{questionID}/toggle — flip sampling eligibility.
func ToggleQuestionHandler(store *pool.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "questionID")
		q, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := store.SetActive(r.Context(), id, !q.IsActive); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_active": !q.IsActive})
	}
}
