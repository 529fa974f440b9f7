// Package http exposes the insights facade as a JSON API
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wrale/wrale-search/api/types/v1alpha1"
	"github.com/wrale/wrale-search/internal/wsearchd/insights"
)

// Handler serves the insights endpoints
type Handler struct {
	service        insights.Facade
	logger         zerolog.Logger
	syncMiddleware []func(http.Handler) http.Handler
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithSyncMiddleware wraps only the manual sync trigger, typically with a
// stricter rate limit than the read endpoints
func WithSyncMiddleware(mw ...func(http.Handler) http.Handler) HandlerOption {
	return func(h *Handler) {
		h.syncMiddleware = append(h.syncMiddleware, mw...)
	}
}

// NewHandler creates a handler backed by service
func NewHandler(service insights.Facade, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  logger.With().Str("component", "insights-http").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router returns a router with every insights endpoint mounted at its root
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.mount(r)
	return r
}

// RegisterRoutes mounts the endpoints under /api/v1alpha1/insights
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1alpha1/insights", h.mount)
}

func (h *Handler) mount(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
	r.Get("/queries/top", h.handleTopQueries)
	r.Get("/pages/top", h.handleTopPages)

	r.Route("/opportunities", func(r chi.Router) {
		r.Get("/", h.handleListOpportunities)
		r.Get("/counts", h.handleOpportunityCounts)
		r.Post("/{id}/dismiss", h.handleDismissOpportunity)
	})

	r.Get("/content/{contentID}/trend", h.handleContentTrend)

	r.With(h.syncMiddleware...).Post("/sync", h.handleRunSync)
	r.Get("/sync/status", h.handleSyncStatus)
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error().Err(err).Msg("failed to encode response")
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
	} else {
		h.logger.Debug().
			Err(err).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request rejected")
	}
	h.respondJSON(w, status, v1alpha1.ErrorResponse{Code: code, Message: msg})
}
