// Package metastore reads and writes rows in the metadata store.
//
// Writes take a statically typed struct that is serialized as JSON; the
// JSON object keys are the column names. Reads decode JSON rows into the
// caller's value. Two backends exist: a PostgREST HTTP client and a direct
// PostgreSQL connection.
package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/JaimeStill/lectern/pkg/database"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/query"
)

var (
	ErrNotFound      = errors.New("row not found")
	ErrInvalidQuery  = errors.New("invalid query")
	ErrInvalidFields = errors.New("invalid fields")
)

// Op is a filter comparison.
type Op string

const (
	// OpEq matches rows whose column equals the value.
	OpEq Op = "eq"
	// OpILike matches rows whose column contains the value, ignoring case.
	OpILike Op = "ilike"
)

// Filter restricts a Select to rows matching Column Op Value.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Query describes a Select. Empty Columns selects every column. A Limit of
// zero or less is unbounded.
type Query struct {
	Columns []string
	Filters []Filter
	Sort    []query.SortField
	Limit   int
	Offset  int
}

// System is the metadata store client.
type System interface {
	// Start registers startup hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Insert writes one row built from fields and decodes the stored row into out.
	Insert(ctx context.Context, table string, fields any, out any) error
	// UpdateByID applies fields to the row with the given id and decodes the
	// stored row into out. Returns ErrNotFound when no row matches.
	UpdateByID(ctx context.Context, table, id string, fields any, out any) error
	// Select decodes the matching rows into out, a pointer to a slice, and
	// returns the total number of matching rows ignoring Limit and Offset.
	Select(ctx context.Context, table string, q Query, out any) (int, error)
}

// New creates a metadata store client for the configured provider.
// The postgres provider requires db.
func New(cfg *Config, db database.System, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderPostgREST:
		return newPostgREST(cfg, logger), nil
	case ProviderPostgres:
		if db == nil {
			return nil, fmt.Errorf("provider %s requires a database", cfg.Provider)
		}
		return newPostgres(cfg, db, logger), nil
	default:
		return nil, fmt.Errorf("unknown metastore provider %q", cfg.Provider)
	}
}

func (q Query) validate(table string) error {
	if err := query.ValidateIdentifier(table); err != nil {
		return fmt.Errorf("%w: table: %w", ErrInvalidQuery, err)
	}
	for _, c := range q.Columns {
		if err := query.ValidateIdentifier(c); err != nil {
			return fmt.Errorf("%w: column: %w", ErrInvalidQuery, err)
		}
	}
	for _, f := range q.Filters {
		if err := query.ValidateIdentifier(f.Column); err != nil {
			return fmt.Errorf("%w: filter: %w", ErrInvalidQuery, err)
		}
		switch f.Op {
		case OpEq:
		case OpILike:
			if _, ok := f.Value.(string); !ok {
				return fmt.Errorf("%w: %s filter on %s requires a string", ErrInvalidQuery, f.Op, f.Column)
			}
		default:
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, f.Op)
		}
	}
	for _, s := range q.Sort {
		if err := query.ValidateIdentifier(s.Field); err != nil {
			return fmt.Errorf("%w: sort: %w", ErrInvalidQuery, err)
		}
	}
	if q.Offset < 0 {
		return fmt.Errorf("%w: negative offset", ErrInvalidQuery)
	}
	return nil
}

// encodeFields serializes fields to a JSON object and returns its keys in
// sorted order. Every key must be a valid column identifier.
func encodeFields(fields any) ([]byte, []string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFields, err)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, nil, fmt.Errorf("%w: not a JSON object", ErrInvalidFields)
	}
	if len(obj) == 0 {
		return nil, nil, fmt.Errorf("%w: no columns", ErrInvalidFields)
	}

	columns := make([]string, 0, len(obj))
	for k := range obj {
		if err := query.ValidateIdentifier(k); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFields, err)
		}
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return body, columns, nil
}

func decodeRow(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return nil
}
