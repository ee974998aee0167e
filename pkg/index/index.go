// Package index queries and maintains the full-text search index.
//
// Every search carries the published-only filter. The filter is not a
// parameter: callers cannot widen visibility through this package.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

// PublishedFilter restricts results to documents with is_published = true.
const PublishedFilter = "is_published = true"

// FilterableAttributes are registered with the index on startup so the
// published filter is accepted.
var FilterableAttributes = []string{"is_published"}

// System is the search index client.
type System interface {
	// Start registers a startup hook that configures filterable attributes.
	Start(lc *lifecycle.Coordinator) error
	// Search runs a published-only query and returns hits verbatim.
	Search(ctx context.Context, query string, limit int) (*Result, error)
	// Upsert adds or replaces documents keyed by their id field.
	Upsert(ctx context.Context, docs ...any) error
	// Delete removes a document from the index.
	Delete(ctx context.Context, id string) error
}

// Result is a page of search hits as returned by the index.
type Result struct {
	Hits               []json.RawMessage `json:"hits"`
	Query              string            `json:"query"`
	Limit              int               `json:"limit"`
	EstimatedTotalHits int               `json:"estimatedTotalHits"`
	ProcessingTimeMs   int               `json:"processingTimeMs"`
}

// searchRequest is the complete search body. All three fields are always sent.
type searchRequest struct {
	Q      string `json:"q"`
	Limit  int    `json:"limit"`
	Filter string `json:"filter"`
}

type client struct {
	baseURL string
	apiKey  string
	index   string
	http    *upstream.Client
	logger  *slog.Logger
}

// New creates an index client from the given configuration.
func New(cfg *Config, logger *slog.Logger) System {
	return &client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		index:   cfg.Index,
		http: upstream.NewClient(
			upstream.ServiceIndex,
			&http.Client{Timeout: cfg.TimeoutDuration()},
		),
		logger: logger.With("system", "index"),
	}
}

func (c *client) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting index system")

	lc.OnStartup("index", func() error {
		body, err := json.Marshal(FilterableAttributes)
		if err != nil {
			return err
		}

		req, err := c.request(lc.Context(), http.MethodPut, c.indexURL("settings", "filterable-attributes"), body)
		if err != nil {
			return err
		}

		if _, err := c.http.DoJSON(req, nil); err != nil {
			c.logger.Error("index settings update failed", "error", err)
			return err
		}

		c.logger.Info("index ready", "index", c.index)
		return nil
	})

	return nil
}

func (c *client) Search(ctx context.Context, query string, limit int) (*Result, error) {
	body, err := json.Marshal(searchRequest{
		Q:      query,
		Limit:  limit,
		Filter: PublishedFilter,
	})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := c.request(ctx, http.MethodPost, c.indexURL("search"), body)
	if err != nil {
		return nil, err
	}

	var result Result
	if _, err := c.http.DoJSON(req, &result); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	if result.Hits == nil {
		result.Hits = []json.RawMessage{}
	}

	return &result, nil
}

func (c *client) Upsert(ctx context.Context, docs ...any) error {
	if len(docs) == 0 {
		return nil
	}

	body, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}

	target := c.indexURL("documents") + "?" + url.Values{"primaryKey": {"id"}}.Encode()
	req, err := c.request(ctx, http.MethodPost, target, body)
	if err != nil {
		return err
	}

	if _, err := c.http.DoJSON(req, nil); err != nil {
		return fmt.Errorf("upsert %d documents: %w", len(docs), err)
	}

	return nil
}

func (c *client) Delete(ctx context.Context, id string) error {
	req, err := c.request(ctx, http.MethodDelete, c.indexURL("documents", id), nil)
	if err != nil {
		return err
	}

	if _, err := c.http.DoJSON(req, nil); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	return nil
}

func (c *client) request(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var req *http.Request
	var err error

	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create index request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return req, nil
}

func (c *client) indexURL(segments ...string) string {
	parts := []string{c.baseURL, "indexes", url.PathEscape(c.index)}
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}
