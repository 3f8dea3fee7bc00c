package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stateset/commerce-core/internal/adapter/httpserver"
	"github.com/stateset/commerce-core/internal/config"
)

func TestBuildRouter_ServesHealthzReadyzMetrics(t *testing.T) {
	srv := httpserver.NewServer()
	r := BuildRouter(config.Config{CORSAllowOrigins: "*", RateLimitPerMin: 1000}, srv)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestBuildRouter_UnknownRouteIs404(t *testing.T) {
	srv := httpserver.NewServer()
	r := BuildRouter(config.Config{CORSAllowOrigins: "*", RateLimitPerMin: 1000}, srv)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/evaluate", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
