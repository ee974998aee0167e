// Package handlers provides JSON response helpers shared by HTTP handlers.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/upstream"
)

// Partial is implemented by errors reporting an operation that stopped
// after an earlier step had already committed. CommittedPath names the
// object left behind.
type Partial interface {
	error
	CommittedPath() string
}

// ErrorResponse is the JSON error envelope. Upstream fields are present only
// when the failure came from an external service.
type ErrorResponse struct {
	Error           string `json:"error"`
	Service         string `json:"service,omitempty"`
	UpstreamStatus  int    `json:"upstream_status,omitempty"`
	UpstreamMessage string `json:"upstream_message,omitempty"`
	Partial         bool   `json:"partial,omitempty"`
	StoragePath     string `json:"storage_path,omitempty"`
}

// NewErrorResponse builds the envelope for err, carrying upstream status and
// message verbatim.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error()}

	if se, ok := upstream.AsStatus(err); ok {
		resp.Service = se.Service
		resp.UpstreamStatus = se.Status
		resp.UpstreamMessage = se.Message
	} else if te, ok := upstream.AsTransport(err); ok {
		resp.Service = te.Service
	}

	var p Partial
	if errors.As(err, &p) {
		resp.Partial = true
		resp.StoragePath = p.CommittedPath()
	}

	return resp
}

// RespondJSON writes data as JSON with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes the error envelope with the given status code.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	resp := NewErrorResponse(err)

	attrs := []any{"status", status, "error", err}
	if resp.Service != "" {
		attrs = append(attrs, "service", resp.Service)
	}
	if resp.Partial {
		attrs = append(attrs, "storage_path", resp.StoragePath)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
	} else {
		logger.Warn("request failed", attrs...)
	}

	RespondJSON(w, status, resp)
}
