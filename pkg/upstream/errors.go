// Package upstream models failures of the external HTTP services the
// publication pipeline orchestrates: object storage, the search index,
// and the metadata store.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Service names used to tell upstream failures apart.
const (
	ServiceStorage   = "storage"
	ServiceIndex     = "index"
	ServiceMetastore = "metastore"
)

// StatusError reports a non-2xx response from an upstream service.
// Message carries the response body verbatim.
type StatusError struct {
	Service string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
}

// TransportError reports a failure to reach an upstream service at all:
// connection errors, timeouts, unreadable responses.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsStatus extracts a StatusError from err's chain.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsTransport extracts a TransportError from err's chain.
func AsTransport(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// HTTPStatus maps an upstream failure to the status a gateway reports:
// 503 when the service could not be reached, 502 when it answered with an
// error. The second result is false for errors that are not upstream
// failures.
func HTTPStatus(err error) (int, bool) {
	if _, ok := AsTransport(err); ok {
		return http.StatusServiceUnavailable, true
	}
	if _, ok := AsStatus(err); ok {
		return http.StatusBadGateway, true
	}
	return 0, false
}
