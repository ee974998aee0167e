// Package storage provides bucket-scoped object storage with a Supabase Storage
// implementation and an Azure Blob Storage implementation.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JaimeStill/lectern/pkg/lifecycle"
)

// System manages object storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that ensures the configured bucket exists.
	Start(lc *lifecycle.Coordinator) error
	// Bucket returns the configured default bucket.
	Bucket() string
	// Upload writes data to bucket/path, replacing any existing object.
	// Repeating an upload with the same path and content is safe.
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	// Download opens the object at bucket/path. The caller must close Body.
	// Returns an error matching ErrNotFound if the object does not exist.
	Download(ctx context.Context, bucket, path string) (*Object, error)
	// Delete removes the object at bucket/path.
	Delete(ctx context.Context, bucket, path string) error
}

// Object is a readable stored object.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// New creates a storage system for the configured provider.
// No network call is made until Start or an operation is invoked.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderSupabase, "":
		return newSupabase(cfg, logger), nil
	case ProviderAzure:
		return newAzure(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Provider)
	}
}

func validateKey(bucket, path string) error {
	if bucket == "" || path == "" {
		return ErrEmptyKey
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	if strings.Contains(bucket, "/") || bucket == ".." {
		return ErrInvalidKey
	}
	return nil
}
