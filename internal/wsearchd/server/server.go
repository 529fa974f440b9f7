// Package server assembles the HTTP surface of wsearchd: the insights API,
// health probes and the Prometheus endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/wrale-search/internal/wsearchd/ratelimit"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouteRegistrar mounts a group of API routes
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Options holds the collaborators served by the router
type Options struct {
	// API is mounted behind the API rate limit
	API RouteRegistrar
	// Metrics serves /metrics when set
	Metrics http.Handler
	// Ready is pinged by /readyz when set
	Ready Pinger
	// Limiter applies the api_request limit; nil disables limiting
	Limiter *ratelimit.Limiter
	// APIToken is the bearer token required on API routes; empty disables auth
	APIToken string
	Logger  *slog.Logger
}

// NewRouter creates the root router
func NewRouter(opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestIDHeaderMiddleware)
	r.Use(recoverMiddleware(opts.Logger))
	r.Use(logMiddleware(opts.Logger))

	// Probes and metrics skip rate limiting
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/healthz", handleHealth)
		r.Get("/readyz", handleReady(opts.Ready, opts.Logger))
		if opts.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", opts.Metrics)
		}
	})

	if opts.API != nil {
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(opts.Limiter, ratelimit.TypeAPIRequest, opts.Logger))
			if opts.APIToken != "" {
				r.Use(bearerAuthMiddleware(opts.APIToken, opts.Logger))
			}
			opts.API.RegisterRoutes(r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"code":"NOT_FOUND","message":"route not found"}`)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, `{"code":"METHOD_NOT_ALLOWED","message":"method not allowed"}`)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, `{"status":"ok"}`)
}

// handleReady fails while the database is unreachable
func handleReady(p Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.PingContext(r.Context()); err != nil {
				logger.Warn("readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, `{"status":"unavailable"}`)
				return
			}
		}
		writeJSON(w, http.StatusOK, `{"status":"ok"}`)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
