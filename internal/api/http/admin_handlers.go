package http

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medlearn/platform-api/internal/auth"
	"github.com/medlearn/platform-api/internal/content"
	"github.com/medlearn/platform-api/internal/license"
)

// POST /licenses — issue a license. Scope must target exactly one content
// level.
func PutLicenseHandler(store *license.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var l license.License
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		saved, err := store.Put(r.Context(), l)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// GET /licenses?user_id=
func ListLicensesHandler(store *license.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context(), r.URL.Query().Get("user_id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// DELETE /licenses/{licenseID} — revoke. Takes effect on the next
// entitlement check.
func RevokeLicenseHandler(store *license.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Revoke(r.Context(), chi.URLParam(r, "licenseID")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
	}
}

// Content node upserts. Bodies mirror the content models; missing ids are
// generated.

func PutStudyYearHandler(store *content.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var y content.StudyYear
		if err := json.NewDecoder(r.Body).Decode(&y); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		if y.ID == "" {
			y.ID = uuid.NewString()
		}
		if err := store.PutStudyYear(r.Context(), y); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, y)
	}
}

func PutSemesterHandler(store *content.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sem content.Semester
		if err := json.NewDecoder(r.Body).Decode(&sem); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		if sem.ID == "" {
			sem.ID = uuid.NewString()
		}
		if err := store.PutSemester(r.Context(), sem); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sem)
	}
}

func PutModuleHandler(store *content.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m content.Module
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if err := store.PutModule(r.Context(), m); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func PutLessonHandler(store *content.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var l content.Lesson
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		if err := store.PutLesson(r.Context(), l); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, l)
	}
}

// GET /content/tree — the whole hierarchy, for pickers and admin screens.
func ContentTreeHandler(store *content.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := store.Tree(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

// POST /users — create a platform user (admin only).
func CreateUserHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
			return
		}
		if req.Username == "" || req.Password == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password required"})
			return
		}
		if req.Role == "" {
			req.Role = "student"
		}
		id, err := auth.CreateUser(db, req.Username, req.Password, req.Role)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id, "username": req.Username, "role": req.Role})
	}
}
