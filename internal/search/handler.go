package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/lectern/pkg/handlers"
	"github.com/JaimeStill/lectern/pkg/openapi"
	"github.com/JaimeStill/lectern/pkg/routes"
)

// Handler provides HTTP endpoints for search.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a search Handler.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "search"),
	}
}

// Routes returns the route group definition for search endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/search",
		Tags:   []string{"Search"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.Query, OpenAPI: opQuery},
			{Method: "POST", Pattern: "", Handler: h.Body, OpenAPI: opBody},
		},
	}
}

// Query searches using the q and limit query parameters.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	limit := 0
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: limit must be an integer", ErrInvalidRequest))
			return
		}
		limit = n
	}

	h.respond(w, r, values.Get("q"), limit)
}

// Body searches using a JSON {q, limit} body.
func (h *Handler) Body(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	h.respond(w, r, req.Q, req.Limit)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, q string, limit int) {
	result, err := h.sys.Search(r.Context(), q, limit)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Schemas returns the component schemas referenced by search operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"SearchRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"q":     {Type: "string", Description: "Full-text query"},
				"limit": {Type: "integer", Description: "Maximum hits; defaults to 20 and is capped at 100"},
			},
		},
		"SearchResult": {
			Type:        "object",
			Description: "Index response passed through unchanged. Hits contain published documents only.",
			Properties: map[string]*openapi.Schema{
				"hits":               {Type: "array", Items: openapi.SchemaRef("Document")},
				"query":              {Type: "string"},
				"limit":              {Type: "integer"},
				"estimatedTotalHits": {Type: "integer"},
				"processingTimeMs":   {Type: "integer"},
			},
		},
	}
}

var searchResponses = map[int]*openapi.Response{
	200: openapi.ResponseJSON("Published documents matching the query", "SearchResult"),
	400: openapi.ResponseRef("BadRequest"),
	502: openapi.ResponseRef("BadGateway"),
	503: openapi.ResponseRef("ServiceUnavailable"),
}

var (
	opQuery = &openapi.Operation{
		Summary: "Search published documents",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("q", "string", "Full-text query", false),
			openapi.QueryParam("limit", "integer", "Maximum hits", false),
		},
		Responses: searchResponses,
	}

	opBody = &openapi.Operation{
		Summary:     "Search published documents with a JSON body",
		RequestBody: openapi.RequestBodyJSON("SearchRequest", true),
		Responses:   searchResponses,
	}
)
