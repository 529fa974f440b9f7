package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/wrale/wrale-search/api/types/v1alpha1"
)

// Middleware limits requests per client IP under limitType. Store failures
// let the request through.
func Middleware(limiter *Limiter, limitType string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.With("requestId", middleware.GetReqID(r.Context()))

			status, err := limiter.Allow(r.Context(), limitType, clientIP(r))
			if err != nil {
				reqLogger.Error("rate limit check failed",
					"error", err,
					"type", limitType,
					"path", r.URL.Path,
				)
				next.ServeHTTP(w, r)
				return
			}
			if status == nil {
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, status)
			if status.Exceeded() {
				handleLimitExceeded(w, r, status, reqLogger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, status *Status) {
	w.Header().Set("RateLimit-Limit", strconv.Itoa(status.Limit.Rate))
	w.Header().Set("RateLimit-Remaining", strconv.Itoa(status.Remaining))
	w.Header().Set("RateLimit-Reset", strconv.FormatInt(status.Reset.Unix(), 10))
}

func handleLimitExceeded(w http.ResponseWriter, r *http.Request, status *Status, logger *slog.Logger) {
	retryAfter := int(time.Until(status.Reset).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	logger.Warn("rate limit exceeded",
		"path", r.URL.Path,
		"method", r.Method,
		"retryAfter", retryAfter,
	)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(v1alpha1.ErrorResponse{
		Code:    "RATE_LIMITED",
		Message: "too many requests, retry after " + strconv.Itoa(retryAfter) + " seconds",
	})
}

// clientIP strips the port from RemoteAddr. middleware.RealIP runs first and
// rewrites RemoteAddr from the forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
