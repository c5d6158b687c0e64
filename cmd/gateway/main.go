package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/medlearn/platform-api/internal/api/http"
	"github.com/medlearn/platform-api/internal/auth"
	"github.com/medlearn/platform-api/internal/config"
	"github.com/medlearn/platform-api/internal/content"
	"github.com/medlearn/platform-api/internal/db"
	"github.com/medlearn/platform-api/internal/license"
	"github.com/medlearn/platform-api/internal/pool"
	"github.com/medlearn/platform-api/internal/rbac"
	"github.com/medlearn/platform-api/internal/session"
	"github.com/medlearn/platform-api/internal/syncx"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	contentStore := content.NewSQLStore(dbh)
	questionStore := pool.NewSQLStore(dbh)
	sampler := pool.NewSampler(questionStore, contentStore)
	licenseStore := license.NewSQLStore(dbh)
	resolver := license.NewResolver(dbh)
	events := syncx.NewEventRepo(dbh)
	sessions := session.NewSQLStore(dbh, resolver, contentStore, sampler, events)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Learner flow
		pr.With(rbac.Require("pool:count")).
			Get("/question-bank/count", api.CountAvailableHandler(sampler))
		pr.With(rbac.Require("revision:create")).
			Post("/revision-quizzes", api.CreateRevisionHandler(sessions, cfg))
		pr.With(rbac.Require("attempt:create")).
			Post("/quizzes/{quizID}/attempts", api.StartAttemptHandler(sessions))
		pr.With(rbac.Require("attempt:save")).
			Put("/attempts/{attemptID}/answers/{questionID}", api.RecordAnswerHandler(sessions))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(sessions))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(sessions))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}/results", api.AttemptResultsHandler(sessions))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(sessions))
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes", api.ListQuizzesHandler(sessions))

		// Producer surface (teacher/admin)
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.PutQuizHandler(sessions))
		pr.With(rbac.Require("question:create")).
			Post("/questions", api.PutQuestionHandler(questionStore))
		pr.With(rbac.Require("question:list")).
			Get("/questions", api.ListQuestionsHandler(questionStore))
		pr.With(rbac.Require("question:toggle")).
			Post("/questions/{questionID}/toggle", api.ToggleQuestionHandler(questionStore))

		// Admin surface
		pr.With(rbac.Require("license:create")).
			Post("/licenses", api.PutLicenseHandler(licenseStore))
		pr.With(rbac.Require("license:list")).
			Get("/licenses", api.ListLicensesHandler(licenseStore))
		pr.With(rbac.Require("license:revoke")).
			Delete("/licenses/{licenseID}", api.RevokeLicenseHandler(licenseStore))
		pr.With(rbac.Require("content:edit")).
			Post("/content/study-years", api.PutStudyYearHandler(contentStore))
		pr.With(rbac.Require("content:edit")).
			Post("/content/semesters", api.PutSemesterHandler(contentStore))
		pr.With(rbac.Require("content:edit")).
			Post("/content/modules", api.PutModuleHandler(contentStore))
		pr.With(rbac.Require("content:edit")).
			Post("/content/lessons", api.PutLessonHandler(contentStore))
		pr.With(rbac.RequireAny("content:edit", "pool:count")).
			Get("/content/tree", api.ContentTreeHandler(contentStore))
		pr.With(rbac.Require("users:create")).
			Post("/users", api.CreateUserHandler(dbh))
	})

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
