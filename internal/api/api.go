// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/infrastructure"
	"github.com/JaimeStill/lectern/pkg/middleware"
	"github.com/JaimeStill/lectern/pkg/module"
	"github.com/JaimeStill/lectern/pkg/openapi"
)

// NewModule creates the API module with all domain handlers, the OpenAPI
// document, and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	m, err := module.New(cfg.API.BasePath)
	if err != nil {
		return nil, fmt.Errorf("api module: %w", err)
	}

	registerRoutes(m, domain, runtime)

	spec, err := openapi.MarshalJSON(Spec(cfg, m))
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}
	m.Handle("GET /openapi.json", openapi.ServeSpec(spec))

	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}

// Spec builds the OpenAPI document for every documented route in m.
func Spec(cfg *config.Config, m *module.Module) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	cfg.API.OpenAPI.Apply(spec)
	spec.Components.AddSchemas(documentSchemas())
	m.Document(spec)
	return spec
}
