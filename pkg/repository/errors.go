package repository

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/lectern/pkg/upstream"
)

const pgDuplicateKeyCode = "23505"

// MapError translates database errors into the upstream error model.
// sql.ErrNoRows becomes notFoundErr. A PostgreSQL server error becomes a
// StatusError: unique violations as 409, data and integrity errors (classes
// 22 and 23) as 400, everything else as 500. Any other failure means the
// server could not be reached or the connection broke and becomes a
// TransportError.
func MapError(err error, service string, notFoundErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusInternalServerError
		switch {
		case pgErr.Code == pgDuplicateKeyCode:
			status = http.StatusConflict
		case len(pgErr.Code) == 5 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23"):
			status = http.StatusBadRequest
		}
		return &upstream.StatusError{
			Service: service,
			Status:  status,
			Message: pgErr.Message,
		}
	}

	return &upstream.TransportError{Service: service, Err: err}
}
