package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/rapidrate/internal/auth/middleware"
	"github.com/mind-engage/rapidrate/internal/metrics"
	"github.com/mind-engage/rapidrate/internal/rbac"
	"github.com/mind-engage/rapidrate/internal/session"
)

type Deps struct {
	Manager  *session.Manager
	Results  ResultReader
	Auth     *auth.AuthService
	Throttle *Throttle
	Metrics  *metrics.Metrics // nil disables /metrics
	DB       *sql.DB          // pinged by /readyz when set

	CORSOrigins    []string
	RequestTimeout time.Duration
	AccessLog      bool
}

func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP)
	if d.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(middleware.Timeout(timeout))

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Post("/auth/login", auth.LoginHandler(d.Auth))

	// Participant surface. The trial ID is the capability.
	r.Route("/trials/{trialID}", func(tr chi.Router) {
		tr.Get("/", GetTrialHandler(d.Manager))
		tr.With(auth.JWTMiddleware(d.Auth), rbac.Require("trial:delete")).
			Delete("/", ForgetTrialHandler(d.Manager))
		tr.Group(func(ev chi.Router) {
			if d.Throttle != nil {
				ev.Use(d.Throttle.Middleware)
			}
			ev.Post("/layout", LayoutHandler(d.Manager))
			ev.Post("/events", PointerEventsHandler(d.Manager))
			ev.Post("/keys", KeyHandler(d.Manager))
			ev.Post("/submit", SubmitButtonHandler(d.Manager))
			ev.Post("/secondary", SecondaryActivationHandler(d.Manager))
		})
	})

	// Experimenter surface (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require("trial:create")).
			Post("/trials", CreateTrialHandler(d.Manager))
		pr.With(rbac.Require("presets:view")).
			Get("/presets", ListPresetsHandler(d.Manager))
		pr.With(rbac.Require("results:view")).
			Get("/shadows", ShadowsHandler(d.Manager))

		pr.With(rbac.Require("results:view")).
			Get("/results", ListResultsHandler(d.Results))
		pr.With(rbac.Require("results:view")).
			Get("/results/{trialID}", GetResultHandler(d.Results))
		pr.With(rbac.RequireAny("results:view", "results:commits")).
			Get("/results/{trialID}/commits", CommitsHandler(d.Results))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.PingContext(ctx); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
	return r
}
