// Package search exposes published-only full-text search over the document index.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/cache"
	"github.com/JaimeStill/lectern/pkg/index"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

// ErrInvalidRequest reports a malformed search request.
var ErrInvalidRequest = errors.New("invalid search request")

// generationKey holds a counter that is part of every cached result key.
// Bumping it orphans all earlier entries; they expire on their own TTL.
const generationKey = "search:generation"

// Request is the JSON body accepted by POST /search.
type Request struct {
	Q     string `json:"q"`
	Limit int    `json:"limit"`
}

// System runs searches against the index.
type System interface {
	Handler() *Handler
	// Search normalizes limit and returns published hits verbatim.
	Search(ctx context.Context, q string, limit int) (*index.Result, error)
	// Invalidate discards cached results. Call it after every index write.
	Invalidate(ctx context.Context) error
}

type searcher struct {
	index  index.System
	cache  cache.System
	cfg    Config
	logger *slog.Logger
}

// New creates a search system. cache may be nil.
func New(idx index.System, c cache.System, cfg Config, logger *slog.Logger) System {
	return &searcher{
		index:  idx,
		cache:  c,
		cfg:    cfg,
		logger: logger.With("system", "search"),
	}
}

func (s *searcher) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *searcher) Search(ctx context.Context, q string, limit int) (*index.Result, error) {
	limit = s.cfg.Normalize(limit)

	key, cached := s.lookup(ctx, q, limit)
	if cached != nil {
		return cached, nil
	}

	result, err := s.index.Search(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if key != "" {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("cache write failed", "error", err)
		}
	}

	return result, nil
}

func (s *searcher) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	gen, err := s.cache.Incr(ctx, generationKey)
	if err != nil {
		return fmt.Errorf("invalidate search cache: %w", err)
	}
	s.logger.Debug("search cache invalidated", "generation", gen)
	return nil
}

// lookup returns the cache key for q and limit and any cached result.
// An empty key means the cache is off or unreadable and must not be written.
// The generation is read before the index is queried, so a result fetched
// across a concurrent write lands under the old generation.
func (s *searcher) lookup(ctx context.Context, q string, limit int) (string, *index.Result) {
	if s.cache == nil {
		return "", nil
	}

	var gen int64
	if _, err := s.cache.Get(ctx, generationKey, &gen); err != nil {
		s.logger.Warn("cache read failed", "error", err)
		return "", nil
	}

	key := cacheKey(gen, q, limit)

	var cached index.Result
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("cache read failed", "error", err)
		return "", nil
	}
	if hit {
		return key, &cached
	}
	return key, nil
}

func cacheKey(gen int64, q string, limit int) string {
	return fmt.Sprintf("search:%d:%d:%s", gen, limit, q)
}

// MapHTTPStatus maps search errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	if status, ok := upstream.HTTPStatus(err); ok {
		return status
	}
	return http.StatusInternalServerError
}
