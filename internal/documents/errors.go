package documents

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/metastore"
	"github.com/JaimeStill/lectern/pkg/storage"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

// Domain errors for document operations.
var (
	ErrNotFound           = errors.New("document not found")
	ErrInvalidFile        = errors.New("invalid file")
	ErrFileTooLarge       = errors.New("file exceeds maximum upload size")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrPartiallyCompleted = errors.New("publication partially completed")
)

// PartialError reports a file that was stored but whose metadata row could
// not be written. The stored object is left in place.
type PartialError struct {
	StoragePath string
	Err         error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: %s stored without metadata: %v", ErrPartiallyCompleted, e.StoragePath, e.Err)
}

func (e *PartialError) Unwrap() []error {
	return []error{ErrPartiallyCompleted, e.Err}
}

// CommittedPath returns the storage path of the object left behind.
func (e *PartialError) CommittedPath() string {
	return e.StoragePath
}

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
// Upstream failures map to 502, or 503 when the service was unreachable.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if errors.Is(err, ErrInvalidFile) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, metastore.ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrPartiallyCompleted) {
		return http.StatusBadGateway
	}
	if status, ok := upstream.HTTPStatus(err); ok {
		return status
	}
	return http.StatusInternalServerError
}
