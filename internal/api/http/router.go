package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-practice/internal/auth/middleware"
	"github.com/mind-engage/mindengage-practice/internal/exam"
	_ "github.com/mind-engage/mindengage-practice/internal/formats/jee" // registers jee profiles
	"github.com/mind-engage/mindengage-practice/internal/metrics"
	"github.com/mind-engage/mindengage-practice/internal/practice"
	"github.com/mind-engage/mindengage-practice/internal/rbac"
)

type Deps struct {
	Store    exam.Store
	Practice *practice.Service
	Auth     *authmw.AuthService
	Events   EventLister // nil disables /api/events
	DB       Pinger
	Log      *slog.Logger

	EnableRegistration bool
	EnableMetrics      bool
	PingMessage        string
}

// Mount registers every route on r. Global middleware (request id, logging,
// CORS) is the caller's concern.
func Mount(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	store := d.Store

	r.Get("/healthz", HealthzHandler)
	r.Get("/readyz", ReadyzHandler(d.DB))
	if d.EnableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		msg := d.PingMessage
		if msg == "" {
			msg = "ping"
		}
		api.Get("/ping", PingHandler(msg))

		if d.EnableRegistration {
			api.Post("/auth/register", authmw.RegisterHandler(d.Auth, store, log))
		}
		api.Post("/auth/login", authmw.LoginHandler(d.Auth, store))

		// Protected API (JWT → stored role in context → RBAC)
		api.Group(func(pr chi.Router) {
			pr.Use(authmw.JWTMiddleware(d.Auth), authmw.AttachRoleFromStore(store, log))

			// Exams and subjects
			pr.With(rbac.Require("exam:view")).Get("/exams", ListExamsHandler(store, log))
			pr.With(rbac.Require("exam:view")).Get("/exams/{examID}", GetExamHandler(store, log))
			pr.With(rbac.Require("exam:manage")).Post("/exams", CreateExamHandler(store, log))
			pr.With(rbac.Require("exam:manage")).Put("/exams/{examID}", UpdateExamHandler(store, log))
			pr.With(rbac.Require("exam:manage")).Delete("/exams/{examID}", DeleteExamHandler(store, log))
			pr.With(rbac.Require("exam:view")).Get("/exams/{examID}/subjects", ListSubjectsHandler(store, log))
			pr.With(rbac.Require("exam:manage")).Post("/exams/{examID}/subjects", CreateSubjectHandler(store, log))
			pr.With(rbac.Require("exam:manage")).Delete("/subjects/{subjectID}", DeleteSubjectHandler(store, log))

			// Question bank
			pr.With(rbac.Require("question:view")).Get("/questions", ListQuestionsHandler(store, log))
			pr.With(rbac.Require("question:view")).
				Get("/exams/{examID}/subjects/{subjectID}/questions", ListSubjectQuestionsHandler(store, log))
			pr.With(rbac.Require("question:view")).Get("/questions/{questionID}", GetQuestionHandler(store, log))
			pr.With(rbac.Require("question:manage")).
				Post("/exams/{examID}/subjects/{subjectID}/questions", CreateQuestionHandler(store, log))
			pr.With(rbac.Require("question:manage")).Put("/questions/{questionID}", UpdateQuestionHandler(store, log))
			pr.With(rbac.Require("question:manage")).Delete("/questions/{questionID}", DeleteQuestionHandler(store, log))

			// Tests and attempts
			pr.With(rbac.Require("test:view")).Get("/tests", ListTestsHandler(store, log))
			pr.With(rbac.Require("test:view")).Get("/profiles", ListProfilesHandler)
			pr.With(rbac.Require("test:manage")).Post("/tests", CreateTestHandler(d.Practice, log))
			pr.With(rbac.RequireOwnerOr("attempt:view-own", "attempt:view-all", isSelf)).
				Get("/tests/attempts/{userID}", UserAttemptsHandler(store, log))
			pr.With(rbac.Require("test:view")).Get("/tests/{testID}", GetTestHandler(store, log))
			pr.With(rbac.Require("test:view")).Get("/tests/{testID}/questions", TestQuestionsHandler(store, log))
			pr.With(rbac.Require("test:manage")).Delete("/tests/{testID}", DeleteTestHandler(d.Practice, log))
			pr.With(rbac.Require("test:submit")).Post("/tests/{testID}/submit", SubmitTestHandler(d.Practice, log))
			pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
				Get("/attempts/{attemptID}", GetAttemptHandler(store, log))

			if d.Events != nil {
				pr.With(rbac.Require("events:view")).Get("/events", ListEventsHandler(d.Events, log))
			}
		})
	})
}

// NewRouter returns a bare chi router with every route mounted.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	Mount(r, d)
	return r
}
