package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medlearn/platform-api/internal/config"
	"github.com/medlearn/platform-api/internal/content"
	"github.com/medlearn/platform-api/internal/pool"
	"github.com/medlearn/platform-api/internal/rbac"
	"github.com/medlearn/platform-api/internal/session"
)

// GET /question-bank/count — availability for the revision quiz creator.
// Sources and filters arrive as comma-separated query params.
func CountAvailableHandler(sampler *pool.Sampler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src := content.Sources{
			StudyYears: csvParam(r, "study_years"),
			Semesters:  csvParam(r, "semesters"),
			Modules:    csvParam(r, "modules"),
			Lessons:    csvParam(r, "lessons"),
		}
		var f pool.Filters
		for _, d := range csvParam(r, "difficulties") {
			f.Difficulties = append(f.Difficulties, pool.Difficulty(d))
		}
		for _, t := range csvParam(r, "types") {
			f.Types = append(f.Types, pool.QuestionType(t))
		}
		if src.Empty() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one source node is required"})
			return
		}
		av, err := sampler.CountAvailable(r.Context(), src, f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, av)
	}
}

type createRevisionRequest struct {
	Title         string          `json:"title"`
	Sources       content.Sources `json:"sources"`
	QuestionCount int             `json:"question_count"`
	TimeLimitMin  int             `json:"time_limit_min"`
	Filters       pool.Filters    `json:"filters"`
}

// POST /revision-quizzes — create a revision quiz for the caller and open a
// session on it in one shot.
func CreateRevisionHandler(store *session.SQLStore, cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRevisionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		if req.Sources.Empty() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one source node is required"})
			return
		}
		if req.QuestionCount < cfg.RevisionMinQuestions || req.QuestionCount > cfg.RevisionMaxQuestions {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("question count must be between %d and %d",
					cfg.RevisionMinQuestions, cfg.RevisionMaxQuestions),
			})
			return
		}
		if req.Title == "" {
			req.Title = "Revision quiz"
		}
		if req.TimeLimitMin <= 0 {
			req.TimeLimitMin = cfg.RevisionDefaultTimeLimit
		}

		quiz, err := store.PutQuiz(r.Context(), session.Quiz{
			Title:         req.Title,
			Description:   fmt.Sprintf("Generated revision quiz with %d questions", req.QuestionCount),
			Type:          session.QuizRevision,
			TimeLimitMin:  req.TimeLimitMin,
			QuestionCount: req.QuestionCount,
			Sources:       req.Sources,
			Filters:       req.Filters,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		sub := rbac.SubjectFromContext(r.Context())
		a, err := store.Start(r.Context(), quiz.ID, sub, time.Now())
		if err != nil {
			// Do not leave a definition behind that never opened a session
			// (the sampler may have found the pool too small).
			_ = store.DeleteQuiz(r.Context(), quiz.ID)
			writeError(w, err)
			return
		}
		resp := toAttemptResponse(a)
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"quiz_id":    quiz.ID,
			"title":      quiz.Title,
			"attempt_id": resp.AttemptID,
			"expires_at": resp.ExpiresAt,
			"questions":  resp.Questions,
		})
	}
}
