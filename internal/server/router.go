package server

import (
	"net/http"

	"github.com/cloo-solutions/buscador/internal/api"
	"github.com/cloo-solutions/buscador/internal/api/handlers"
	"github.com/cloo-solutions/buscador/internal/api/middleware"
	"github.com/cloo-solutions/buscador/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	SearchHandler  *handlers.SearchHandler
	BatchHandler   *handlers.BatchHandler
	Metrics        *metrics.Metrics
	Logger         zerolog.Logger
	MaxUploadBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxUploadBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 5 * 1024 * 1024
	}

	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger, cfg.Metrics))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes + handlers.MultipartOverhead))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Get("/", cfg.SearchHandler.Index)
	r.Post("/search", cfg.SearchHandler.Search)

	r.Route("/batch", func(r chi.Router) {
		r.Get("/jobs/{id}", cfg.BatchHandler.Job)
		r.Get("/jobs/{id}/report.csv", cfg.BatchHandler.Download)
		r.Get("/{kind}", cfg.BatchHandler.Form)
		r.Post("/{kind}", cfg.BatchHandler.Start)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", cfg.SearchHandler.APISearch)
		r.Get("/batch/jobs/{id}", cfg.BatchHandler.APIJob)
		r.Post("/batch/{kind}", cfg.BatchHandler.APIStart)
	})

	return r
}
