// Package module mounts self-contained HTTP modules under single-level path
// prefixes. Each module owns its mux, middleware stack, and route groups.
package module

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JaimeStill/lectern/pkg/middleware"
	"github.com/JaimeStill/lectern/pkg/openapi"
	"github.com/JaimeStill/lectern/pkg/routes"
)

// Module is an HTTP handler that strips its prefix and delegates to an inner
// mux wrapped by its own middleware stack.
type Module struct {
	prefix     string
	mux        *http.ServeMux
	groups     []routes.Group
	middleware middleware.Stack
}

// New creates a Module with the given single-level prefix (e.g. "/api").
func New(prefix string) (*Module, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Module{
		prefix: prefix,
		mux:    http.NewServeMux(),
	}, nil
}

// Register adds route groups to the module's mux. Patterns are relative
// to the module prefix.
func (m *Module) Register(groups ...routes.Group) {
	routes.Register(m.mux, groups...)
	m.groups = append(m.groups, groups...)
}

// Handle registers a handler that is not part of a documented route group.
func (m *Module) Handle(pattern string, handler http.Handler) {
	m.mux.Handle(pattern, handler)
}

// Document adds every registered route that carries OpenAPI metadata to spec,
// with paths prefixed by the module prefix.
func (m *Module) Document(spec *openapi.Spec) {
	routes.Document(spec, m.prefix, m.groups...)
}

// Handler returns the inner mux wrapped with the module's middleware stack.
func (m *Module) Handler() http.Handler {
	return m.middleware.Apply(m.mux)
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve strips the module prefix from the request path and dispatches to the inner mux.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	path := extractPath(req.URL.Path, m.prefix)
	m.Handler().ServeHTTP(w, cloneRequest(req, path))
}

// Use adds middleware to the module's stack. Middleware added first runs outermost.
func (m *Module) Use(mw ...func(http.Handler) http.Handler) {
	m.middleware.Use(mw...)
}

func cloneRequest(req *http.Request, path string) *http.Request {
	request := req.Clone(req.Context())
	request.URL = new(url.URL)
	*request.URL = *req.URL
	request.URL.Path = path
	request.URL.RawPath = ""
	return request
}

func extractPath(fullPath, prefix string) string {
	path := strings.TrimPrefix(fullPath, prefix)
	if path == "" {
		return "/"
	}
	return path
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("module prefix cannot be empty")
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	}
	if strings.Count(prefix, "/") != 1 || prefix == "/" {
		return fmt.Errorf("module prefix must be single-level sub-path: %s", prefix)
	}
	return nil
}
