package handlers

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes registers all analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/analysis", func(r chi.Router) {
		// No request timeout: a refresh runs until the job finishes.
		r.Post("/refresh", h.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/", h.HandleGetLatest)
			r.Get("/runs", h.HandleListRuns)
			r.Get("/runs/{id}", h.HandleGetRun)
			r.Get("/{period}", h.HandleGetPeriod)
		})
	})
}
