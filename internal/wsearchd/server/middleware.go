package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// logMiddleware logs one line per request
func logMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				logFn := logger.Info
				if status >= 500 {
					logFn = logger.Error
				}
				logFn("http request",
					"requestId", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"duration", time.Since(startTime),
					"size", ww.BytesWritten(),
					"remoteIP", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// requestIDHeaderMiddleware echoes the request ID in the response
func requestIDHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware turns a handler panic into a 500
func recoverMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("handler panic",
					"requestId", middleware.GetReqID(r.Context()),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, `{"code":"INTERNAL","message":"internal server error"}`)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// bearerAuthMiddleware rejects requests that do not carry the API token
func bearerAuthMiddleware(token string, logger *slog.Logger) func(next http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				logger.Warn("unauthorized API request",
					"requestId", middleware.GetReqID(r.Context()),
					"path", r.URL.Path,
					"remoteIP", r.RemoteAddr,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="wsearchd"`)
				writeJSON(w, http.StatusUnauthorized, `{"code":"UNAUTHORIZED","message":"missing or invalid API token"}`)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
