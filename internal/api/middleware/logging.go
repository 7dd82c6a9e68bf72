// Package middleware provides HTTP middleware for the console API.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/narvanalabs/mission-console/pkg/logger"
)

// RequestLogger returns a middleware that logs HTTP requests. The chi
// request id is copied into the request context under logger.RequestIDKey
// so handlers further down can log with WithContext.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	base := &logger.Logger{Logger: log}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := r.Context()
			if id := middleware.GetReqID(ctx); id != "" {
				ctx = logger.ContextWithRequestID(ctx, id)
				r = r.WithContext(ctx)
			}

			defer func() {
				base.WithContext(ctx).Info("request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"query", r.URL.RawQuery,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
