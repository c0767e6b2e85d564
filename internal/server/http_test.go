package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	srv := New(&mockTranslator{}, nil)

	t.Run("generates request ID when missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		got := rec.Header().Get("X-Request-ID")
		// UUID format (8-4-4-4-12 hex digits)
		assert.Len(t, got, 36)
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "my-custom-id")
		rec := httptest.NewRecorder()

		srv.ServeHTTP(rec, req)

		assert.Equal(t, "my-custom-id", req.Header.Get("X-Request-ID"))
		assert.Equal(t, "my-custom-id", rec.Header().Get("X-Request-ID"))
	})
}

func TestHealth(t *testing.T) {
	srv := New(&mockTranslator{}, &Config{MasterKey: "secret-key"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMasterKeyProtectsAPIRoutes(t *testing.T) {
	srv := New(&mockTranslator{languages: []string{"en"}}, &Config{MasterKey: "secret-key"})

	req := httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/languages", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		config         *Config
		requestPath    string
		expectedStatus int
		expectBody     string // substring to check in response body
	}{
		{
			name: "metrics enabled - default endpoint accessible",
			config: &Config{
				MetricsEnabled:  true,
				MetricsEndpoint: "/metrics",
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "metrics enabled - empty endpoint defaults to /metrics",
			config: &Config{
				MetricsEnabled: true,
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "metrics enabled - custom path skips auth",
			config: &Config{
				MasterKey:       "secret-key",
				MetricsEnabled:  true,
				MetricsEndpoint: "/monitoring/metrics",
			},
			requestPath:    "/monitoring/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "metrics enabled - path traversal is cleaned",
			config: &Config{
				MetricsEnabled:  true,
				MetricsEndpoint: "/internal/../metrics",
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusOK,
			expectBody:     "go_goroutines",
		},
		{
			name: "metrics disabled - endpoint not found",
			config: &Config{
				MetricsEnabled: false,
			},
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "nil config - endpoint not found",
			config:         nil,
			requestPath:    "/metrics",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&mockTranslator{}, tt.config)

			req := httptest.NewRequest(http.MethodGet, tt.requestPath, nil)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectBody != "" {
				assert.True(t, strings.Contains(rec.Body.String(), tt.expectBody), "body should contain %q", tt.expectBody)
			}
		})
	}
}

func TestMetricsPathFor(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"", "/metrics"},
		{"/metrics", "/metrics"},
		{"prom", "/prom"},
		{"/api/v2/metrics/", "/api/v2/metrics"},
		{"/v1/metrics", "/metrics"},
		{"/v1", "/metrics"},
		{"/health", "/metrics"},
		{"/", "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, metricsPathFor(tt.endpoint))
		})
	}
}

func TestBodyLimit(t *testing.T) {
	srv := New(&mockTranslator{}, &Config{BodySizeLimit: "16B"})

	req := httptest.NewRequest(http.MethodPost, "/v1/translate", strings.NewReader(`{"text":"this body is too long","to":"fr"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
