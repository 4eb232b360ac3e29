// Package httptransport assembles the public HTTP surface: shared middleware,
// domain routes, health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bloodlink/internal/platform/metrics"
	"bloodlink/internal/platform/middleware"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/platform/middleware/correlation"
	"bloodlink/pkg/platform/middleware/requesttime"
)

// RouteRegistrar mounts a domain's handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Checks   map[string]HealthCheck
}

func NewRouter(opts Options, registrars ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(correlation.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(middleware.AccessLog(opts.Logger, opts.Metrics))

	r.Get("/healthz", healthHandler(opts.Checks))
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "unavailable"
				continue
			}
			body[name] = "ok"
		}
		httputil.WriteJSON(w, status, body)
	}
}
