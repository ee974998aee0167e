package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/lectern/internal/infrastructure"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
)

func probe(t *testing.T, infra *infrastructure.Infrastructure, path string) (int, readiness) {
	t.Helper()
	rec := httptest.NewRecorder()
	buildRouter(infra).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body readiness
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, body
}

func TestProbes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ready := &infrastructure.Infrastructure{Lifecycle: lifecycle.New(), Logger: logger}
	ready.Lifecycle.WaitForStartup()

	failed := &infrastructure.Infrastructure{Lifecycle: lifecycle.New(), Logger: logger}
	failed.Lifecycle.OnStartup("index", func() error { return errors.New("connection refused") })
	failed.Lifecycle.WaitForStartup()

	pending := &infrastructure.Infrastructure{Lifecycle: lifecycle.New(), Logger: logger}

	tests := []struct {
		name     string
		infra    *infrastructure.Infrastructure
		path     string
		status   int
		failures int
	}{
		{"healthz", pending, "/healthz", http.StatusOK, 0},
		{"ready", ready, "/readyz", http.StatusOK, 0},
		{"startup pending", pending, "/readyz", http.StatusServiceUnavailable, 0},
		{"startup failed", failed, "/readyz", http.StatusServiceUnavailable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := probe(t, tt.infra, tt.path)
			if code != tt.status {
				t.Errorf("status: got %d, want %d", code, tt.status)
			}
			if len(body.Failures) != tt.failures {
				t.Errorf("failures: got %v, want %d", body.Failures, tt.failures)
			}
		})
	}
}
