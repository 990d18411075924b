package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/odontocare/citas-service/internal/auth"
	"github.com/odontocare/citas-service/internal/cita"
)

type RouterConfig struct {
	Service  *cita.Service
	Verifier *auth.Verifier
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Logger   zerolog.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(MetricsMiddleware)

	// Unauthenticated operational endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", MetricsHandler())

	// Citas endpoints, role-gated
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate(cfg.Verifier))

		r.With(auth.RequireRoles(auth.RoleAdmin, auth.RolePatient)).
			Post("/citas", createCitaHandler(cfg.Service))
		r.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleDoctor, auth.RoleSecretariat)).
			Get("/citas", listCitasHandler(cfg.Service))
		r.With(auth.RequireRoles(auth.RoleAdmin, auth.RoleSecretariat)).
			Put("/citas/{id}", cancelCitaHandler(cfg.Service))
	})

	return r
}
