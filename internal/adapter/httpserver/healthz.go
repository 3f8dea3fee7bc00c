// Package httpserver implements the thin ambient HTTP surface spec.md §1
// and SPEC_FULL.md §1/§2 scope this module to: liveness, readiness, and
// Prometheus metrics. It is explicitly NOT the command transport — every
// write in this module goes through internal/command, never HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check is one readiness probe: a name and a function that returns a
// non-nil error when the dependency is unavailable.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Server aggregates the handlers for the ambient HTTP surface.
type Server struct {
	Checks []Check
}

// NewServer constructs a Server with the given readiness checks (e.g. "db",
// "redis").
func NewServer(checks ...Check) *Server {
	return &Server{Checks: checks}
}

// HealthzHandler reports process liveness unconditionally — it never probes
// a dependency, so a degraded Postgres/Redis/Kafka never takes the process
// out of a load balancer's rotation via the liveness probe.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}

// ReadyzHandler probes every registered dependency and reports 503 if any
// one fails, mirroring the teacher's multi-check readiness envelope shape.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type checkResult struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		results := make([]checkResult, 0, len(s.Checks))
		ok := true
		for _, c := range s.Checks {
			if err := c.Run(ctx); err != nil {
				results = append(results, checkResult{Name: c.Name, OK: false, Details: err.Error()})
				ok = false
				continue
			}
			results = append(results, checkResult{Name: c.Name, OK: true})
		}

		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]any{"checks": results})
	}
}

// MetricsHandler exposes the Prometheus registry.
func (s *Server) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
