package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service   *scheduling.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/availabilities", createAvailabilityHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/slots", listDaySlotsHandler(cfg.Service))

	r.Post("/appointments/wave", bookWaveHandler(cfg.Service))
	r.Post("/appointments/stream", bookStreamHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))

	// Cancellation needs the caller's identity for the ownership check.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	})

	r.Post("/doctors/{doctorID}/appointments/shift", shiftAllHandler(cfg.Service))
	r.Post("/doctors/{doctorID}/appointments/shift-selected", shiftSelectedHandler(cfg.Service))

	r.Post("/elastic-sessions/wave/expand", expandWaveHandler(cfg.Service))
	r.Post("/elastic-sessions/wave/shrink", shrinkWaveHandler(cfg.Service))
	r.Post("/elastic-sessions/stream/expand", expandStreamHandler(cfg.Service))
	r.Post("/elastic-sessions/stream/shrink", shrinkStreamHandler(cfg.Service))

	return r
}
