package documents

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/pkg/pagination"
)

// SearchCache discards cached search results once the index has changed.
type SearchCache interface {
	Invalidate(ctx context.Context) error
}

// System defines the public contract for document domain operations.
type System interface {
	// Handler builds the HTTP handler. admin guards the write routes.
	Handler(maxUploadSize int64, admin func(http.Handler) http.Handler) *Handler

	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Document], error)
	Find(ctx context.Context, slug string) (*Document, error)
	Download(ctx context.Context, slug string) (*File, error)

	// Create uploads the binary, records the row, and indexes it, in that order.
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Document, error)
	Reindex(ctx context.Context, id uuid.UUID) (*Document, error)
}
