package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	AuthHMACSecret string

	CORSOrigins []string

	// Bounds for learner-generated revision quizzes.
	RevisionMinQuestions int
	RevisionMaxQuestions int
	// Default time limit (minutes) when a revision quiz does not set one.
	RevisionDefaultTimeLimit int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:  addr,
		PublicURL: os.Getenv("PUBLIC_URL"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000"),

		RevisionMinQuestions:     envInt("REVISION_MIN_QUESTIONS", 5),
		RevisionMaxQuestions:     envInt("REVISION_MAX_QUESTIONS", 50),
		RevisionDefaultTimeLimit: envInt("REVISION_DEFAULT_TIME_LIMIT", 15),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
