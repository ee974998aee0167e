package metastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

type postgrest struct {
	baseURL    string
	serviceKey string
	client     *upstream.Client
	logger     *slog.Logger
}

func newPostgREST(cfg *Config, logger *slog.Logger) *postgrest {
	return &postgrest{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/rest/v1",
		serviceKey: cfg.ServiceKey,
		client: upstream.NewClient(
			upstream.ServiceMetastore,
			&http.Client{Timeout: cfg.TimeoutDuration()},
		),
		logger: logger.With("system", "metastore", "provider", ProviderPostgREST),
	}
}

func (p *postgrest) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting metastore system")

	lc.OnStartup("metastore", func() error {
		req, err := p.request(lc.Context(), http.MethodGet, p.baseURL+"/", nil)
		if err != nil {
			return err
		}
		if _, err := p.client.DoJSON(req, nil); err != nil {
			p.logger.Error("metastore unreachable", "error", err)
			return err
		}
		p.logger.Info("metastore ready")
		return nil
	})

	return nil
}

func (p *postgrest) Insert(ctx context.Context, table string, fields any, out any) error {
	if err := (Query{}).validate(table); err != nil {
		return err
	}

	body, _, err := encodeFields(fields)
	if err != nil {
		return err
	}

	req, err := p.request(ctx, http.MethodPost, p.tableURL(table, nil), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	var rows []json.RawMessage
	if _, err := p.client.DoJSON(req, &rows); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("insert into %s: %w", table, &upstream.StatusError{
			Service: upstream.ServiceMetastore,
			Status:  http.StatusOK,
			Message: "no row returned",
		})
	}

	return decodeRow(rows[0], out)
}

func (p *postgrest) UpdateByID(ctx context.Context, table, id string, fields any, out any) error {
	if err := (Query{}).validate(table); err != nil {
		return err
	}

	body, _, err := encodeFields(fields)
	if err != nil {
		return err
	}

	params := url.Values{"id": {"eq." + id}}
	req, err := p.request(ctx, http.MethodPatch, p.tableURL(table, params), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=representation")

	var rows []json.RawMessage
	if _, err := p.client.DoJSON(req, &rows); err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	if len(rows) == 0 {
		return ErrNotFound
	}

	return decodeRow(rows[0], out)
}

func (p *postgrest) Select(ctx context.Context, table string, q Query, out any) (int, error) {
	if err := q.validate(table); err != nil {
		return 0, err
	}

	req, err := p.request(ctx, http.MethodGet, p.tableURL(table, selectParams(q)), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Prefer", "count=exact")

	var rows []json.RawMessage
	resp, err := p.client.DoJSON(req, &rows)
	if err != nil {
		return 0, fmt.Errorf("select from %s: %w", table, err)
	}

	total, ok := parseContentRange(resp.Header.Get("Content-Range"))
	if !ok {
		total = q.Offset + len(rows)
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return 0, fmt.Errorf("select from %s: %w", table, err)
	}
	if err := decodeRow(raw, out); err != nil {
		return 0, err
	}

	return total, nil
}

// ilikeEscaper makes LIKE metacharacters in a search value literal.
// PostgREST turns every * into % before the database sees the backslash,
// so * is sent as _ and matches any single character.
var ilikeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `_`)

func selectParams(q Query) url.Values {
	params := url.Values{}

	if len(q.Columns) > 0 {
		params.Set("select", strings.Join(q.Columns, ","))
	}

	for _, f := range q.Filters {
		switch f.Op {
		case OpEq:
			params.Add(f.Column, "eq."+formatValue(f.Value))
		case OpILike:
			params.Add(f.Column, "ilike.*"+ilikeEscaper.Replace(f.Value.(string))+"*")
		}
	}

	if len(q.Sort) > 0 {
		parts := make([]string, len(q.Sort))
		for i, s := range q.Sort {
			dir := "asc"
			if s.Descending {
				dir = "desc"
			}
			parts[i] = s.Field + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}

	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		params.Set("offset", strconv.Itoa(q.Offset))
	}

	return params
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// parseContentRange reads the total from a PostgREST Content-Range header
// such as "0-24/312" or "*/0".
func parseContentRange(h string) (int, bool) {
	_, total, ok := strings.Cut(h, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *postgrest) tableURL(table string, params url.Values) string {
	target := p.baseURL + "/" + table
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	return target
}

func (p *postgrest) request(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create metastore request: %w", err)
	}

	req.Header.Set("apikey", p.serviceKey)
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
