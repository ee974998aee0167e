package api

import (
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/module"
)

func registerRoutes(m *module.Module, domain *Domain, runtime *Runtime) {
	admin := auth.Require(runtime.Verifier, runtime.Logger)

	m.Register(
		domain.Documents.Handler(runtime.MaxUploadSize, admin).Routes(),
		domain.Search.Handler().Routes(),
	)
}
