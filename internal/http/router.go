package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"video-digest-service/internal/app"
	"video-digest-service/internal/observability/logging"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	return newRouter(&Handlers{
		Processor:      application.Coordinator,
		Accumulator:    application.Accumulator,
		Models:         application.Models,
		Uptime:         application.Uptime,
		Ready:          application.Ready,
		MaxUploadBytes: application.Cfg.Service.MaxUploadBytes,
		RequestTimeout: application.Cfg.Service.RequestTimeout,
	})
}

func newRouter(h *Handlers) http.Handler {
	h.logger = logging.WithComponent("http")
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if h.Ready != nil && !h.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/health", h.Health)

	r.Post("/summarize", h.Summarize)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/models", h.ListModels)
		r.Get("/metrics", h.Metrics)
		r.Post("/batch-summarize", h.BatchSummarize)
	})

	return r
}
