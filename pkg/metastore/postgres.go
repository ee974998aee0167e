package metastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/lectern/pkg/database"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/query"
	"github.com/JaimeStill/lectern/pkg/repository"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

// postgres reads and writes rows over a direct PostgreSQL connection.
// Rows cross the boundary as JSON so callers see the same shapes as with
// PostgREST.
type postgres struct {
	db      database.System
	schema  string
	timeout time.Duration
	logger  *slog.Logger
}

func newPostgres(cfg *Config, db database.System, logger *slog.Logger) *postgres {
	return &postgres{
		db:      db,
		schema:  cfg.Schema,
		timeout: cfg.TimeoutDuration(),
		logger:  logger.With("system", "metastore", "provider", ProviderPostgres),
	}
}

// Start relies on the database system for connection checks.
func (s *postgres) Start(lc *lifecycle.Coordinator) error {
	s.logger.Info("starting metastore system", "schema", s.schema)
	return nil
}

func (s *postgres) Insert(ctx context.Context, table string, fields any, out any) error {
	p, err := query.NewTableProjection(s.schema, table)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	payload, columns, err := encodeFields(fields)
	if err != nil {
		return err
	}

	list := strings.Join(columns, ", ")
	sql := fmt.Sprintf(
		"INSERT INTO %s AS t (%s) SELECT %s FROM json_populate_record(NULL::%s, $1::json) RETURNING row_to_json(t)",
		p.Name(), list, list, p.Name(),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := repository.QueryOne(ctx, s.db.Connection(), sql, []any{string(payload)}, repository.ScanJSON)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, repository.MapError(err, upstream.ServiceMetastore, ErrNotFound))
	}

	return decodeRow(raw, out)
}

func (s *postgres) UpdateByID(ctx context.Context, table, id string, fields any, out any) error {
	p, err := query.NewTableProjection(s.schema, table)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	payload, columns, err := encodeFields(fields)
	if err != nil {
		return err
	}

	assignments := make([]string, len(columns))
	for i, c := range columns {
		assignments[i] = fmt.Sprintf("%s = r.%s", c, c)
	}

	sql := fmt.Sprintf(
		"UPDATE %s AS t SET %s FROM json_populate_record(NULL::%s, $1::json) AS r WHERE t.id = $2 RETURNING row_to_json(t)",
		p.Name(), strings.Join(assignments, ", "), p.Name(),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := repository.QueryOne(ctx, s.db.Connection(), sql, []any{string(payload), id}, repository.ScanJSON)
	if err != nil {
		mapped := repository.MapError(err, upstream.ServiceMetastore, ErrNotFound)
		if errors.Is(mapped, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update %s %s: %w", table, id, mapped)
	}

	return decodeRow(raw, out)
}

func (s *postgres) Select(ctx context.Context, table string, q Query, out any) (int, error) {
	if err := q.validate(table); err != nil {
		return 0, err
	}

	p, err := query.NewTableProjection(s.schema, table, q.Columns...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	b := query.NewBuilder(p).OrderByFields(q.Sort)
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq:
			b.WhereEquals(f.Column, f.Value)
		case OpILike:
			v := f.Value.(string)
			b.WhereContains(f.Column, &v)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn := s.db.Connection()

	countSQL, countArgs := b.BuildCount()
	total, err := repository.QueryOne(ctx, conn, countSQL, countArgs, repository.ScanInt)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, repository.MapError(err, upstream.ServiceMetastore, ErrNotFound))
	}

	rowsSQL, rowsArgs := b.BuildJSON(q.Limit, q.Offset)
	raw, err := repository.QueryOne(ctx, conn, rowsSQL, rowsArgs, repository.ScanJSON)
	if err != nil {
		return 0, fmt.Errorf("select from %s: %w", table, repository.MapError(err, upstream.ServiceMetastore, ErrNotFound))
	}

	if err := decodeRow(raw, out); err != nil {
		return 0, err
	}

	return total, nil
}
