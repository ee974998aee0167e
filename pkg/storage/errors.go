package storage

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/upstream"
)

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrEmptyKey indicates an empty object path was provided.
	ErrEmptyKey = errors.New("storage path must not be empty")
	// ErrInvalidKey indicates the object path contains a path traversal segment.
	ErrInvalidKey = errors.New("storage path contains invalid segment")
)

// MapHTTPStatus maps storage errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) {
		return http.StatusBadRequest
	}
	if status, ok := upstream.HTTPStatus(err); ok {
		return status
	}
	return http.StatusInternalServerError
}
