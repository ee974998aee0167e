package api

import (
	"maps"

	"github.com/JaimeStill/lectern/internal/documents"
	"github.com/JaimeStill/lectern/internal/search"
	"github.com/JaimeStill/lectern/pkg/openapi"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Search    search.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	searches := search.New(
		runtime.Index,
		runtime.Cache,
		runtime.Search,
		runtime.Logger,
	)

	return &Domain{
		Documents: documents.New(
			runtime.Storage,
			runtime.Index,
			runtime.Store,
			searches,
			runtime.Logger,
			runtime.Pagination,
		),
		Search: searches,
	}
}

func documentSchemas() map[string]*openapi.Schema {
	schemas := documents.Schemas()
	maps.Copy(schemas, search.Schemas())
	return schemas
}
