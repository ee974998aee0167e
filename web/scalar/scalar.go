// Package scalar serves the Scalar API reference UI for the OpenAPI document.
package scalar

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/module"
)

//go:embed index.html
var staticFS embed.FS

var index = template.Must(template.ParseFS(staticFS, "index.html"))

// NewModule creates a module that serves the API reference at prefix,
// rendering the OpenAPI document found at specURL.
func NewModule(prefix, specURL string) (*module.Module, error) {
	m, err := module.New(prefix)
	if err != nil {
		return nil, err
	}

	m.Handle("GET /{$}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		index.Execute(w, map[string]string{"SpecURL": specURL})
	}))

	return m, nil
}
