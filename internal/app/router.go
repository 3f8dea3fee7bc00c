package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/stateset/commerce-core/internal/adapter/httpserver"
	"github.com/stateset/commerce-core/internal/adapter/observability"
	"github.com/stateset/commerce-core/internal/config"
)

// BuildRouter constructs the ambient HTTP surface: liveness, readiness, and
// metrics only. Commands never travel over HTTP (spec.md §1 Non-goals), so
// this router carries no command routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(30 * time.Second))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
		wr.Get("/healthz", srv.HealthzHandler())
		wr.Get("/readyz", srv.ReadyzHandler())
		wr.Get("/metrics", srv.MetricsHandler())
	})

	return r
}
