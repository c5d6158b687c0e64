package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/medlearn/platform-api/internal/content"
	"github.com/medlearn/platform-api/internal/license"
	"github.com/medlearn/platform-api/internal/pool"
	"github.com/medlearn/platform-api/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses. Entitlement and
// pool-size failures are surfaced verbatim: they are actionable for the
// learner.
func writeError(w http.ResponseWriter, err error) {
	var insufficient *pool.InsufficientPoolError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":     insufficient.Error(),
			"available": insufficient.Available,
		})
	case errors.Is(err, session.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrUnknownQuestion),
		errors.Is(err, license.ErrBadScope):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrNotFinished),
		errors.Is(err, session.ErrSessionActive):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrQuizNotFound),
		errors.Is(err, session.ErrAttemptNotFound),
		errors.Is(err, pool.ErrNotFound),
		errors.Is(err, license.ErrNotFound),
		errors.Is(err, content.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// csvParam splits a comma-separated query parameter, dropping empties.
func csvParam(r *http.Request, key string) []string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
