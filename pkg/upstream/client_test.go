package upstream_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/lectern/pkg/upstream"
)

func TestDoTranslatesStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus bool
	}{
		{"ok passes through", http.StatusOK, "fine", false},
		{"redirect-class passes through", http.StatusNotModified, "", false},
		{"client error", http.StatusBadRequest, "bad", true},
		{"server error", http.StatusInternalServerError, "disk full", true},
		{"unavailable", http.StatusServiceUnavailable, "try later", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := upstream.NewClient(upstream.ServiceStorage, srv.Client())
			req, _ := http.NewRequest("GET", srv.URL, nil)

			resp, err := c.Do(req)
			if !tt.wantStatus {
				if err != nil {
					t.Fatalf("Do() error = %v", err)
				}
				resp.Body.Close()
				return
			}

			se, ok := upstream.AsStatus(err)
			if !ok {
				t.Fatalf("error = %v, want StatusError", err)
			}
			if se.Status != tt.status {
				t.Errorf("status = %d, want %d", se.Status, tt.status)
			}
			if se.Message != tt.body {
				t.Errorf("message = %q, want %q", se.Message, tt.body)
			}
			if se.Service != upstream.ServiceStorage {
				t.Errorf("service = %q, want storage", se.Service)
			}
		})
	}
}

func TestErrorFidelity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("disk full"))
	}))
	defer srv.Close()

	c := upstream.NewClient(upstream.ServiceMetastore, srv.Client())
	req, _ := http.NewRequest("GET", srv.URL, nil)

	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("error %q should expose status and message", err.Error())
	}
}

func TestDoTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	hc := &http.Client{Timeout: 20 * time.Millisecond}
	c := upstream.NewClient(upstream.ServiceIndex, hc)
	req, _ := http.NewRequest("GET", srv.URL, nil)

	_, err := c.Do(req)

	te, ok := upstream.AsTransport(err)
	if !ok {
		t.Fatalf("error = %v, want TransportError", err)
	}
	if te.Service != upstream.ServiceIndex {
		t.Errorf("service = %q, want index", te.Service)
	}
	if _, ok := upstream.AsStatus(err); ok {
		t.Error("transport failure must not be a StatusError")
	}
}

func TestDoJSONDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := upstream.NewClient(upstream.ServiceIndex, srv.Client())
	req, _ := http.NewRequest("GET", srv.URL, nil)

	var out map[string]any
	_, err := c.DoJSON(req, &out)

	var te *upstream.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		ok     bool
	}{
		{"transport", &upstream.TransportError{Service: "index", Err: errors.New("refused")}, http.StatusServiceUnavailable, true},
		{"status", &upstream.StatusError{Service: "storage", Status: 500}, http.StatusBadGateway, true},
		{"wrapped status", fmt.Errorf("upload: %w", &upstream.StatusError{Service: "storage", Status: 403}), http.StatusBadGateway, true},
		{"other", errors.New("boom"), 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := upstream.HTTPStatus(tt.err)
			if status != tt.status || ok != tt.ok {
				t.Errorf("HTTPStatus = (%d, %v), want (%d, %v)", status, ok, tt.status, tt.ok)
			}
		})
	}
}
