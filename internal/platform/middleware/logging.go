package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"bloodlink/internal/platform/metrics"
	"bloodlink/pkg/requestcontext"
)

// AccessLog logs one line per request and feeds the HTTP metrics. The route
// label uses chi's matched pattern so request ids never become label values.
func AccessLog(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(route, r.Method, status, start)

			if logger != nil {
				logger.InfoContext(r.Context(), "http request",
					"correlation_id", requestcontext.CorrelationID(r.Context()),
					"method", r.Method,
					"route", route,
					"status", status,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		})
	}
}
