// Package documents implements the document domain for Lectern.
// It publishes PDF files by storing the binary, recording metadata, and
// indexing the recorded row for search, and serves published documents back.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/pkg/storage"
)

// Document is a published PDF and its metadata. StoragePath always points
// to an object that was uploaded before the row was written.
type Document struct {
	ID            uuid.UUID `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	IsPublished   bool      `json:"is_published"`
	StoragePath   string    `json:"storage_path"`
	SHA256        string    `json:"sha256"`
	FileSize      int64     `json:"file_size"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateCommand carries the data needed to publish a new document.
// Slug is optional and derived from Title when empty.
type CreateCommand struct {
	Data          []byte
	Title         string
	Summary       string
	Slug          string
	IsPublished   bool
	ExtractedText string
}

// UpdateCommand changes metadata of an existing document. Nil fields are left unchanged.
type UpdateCommand struct {
	Title       *string `json:"title,omitempty"`
	Summary     *string `json:"summary,omitempty"`
	IsPublished *bool   `json:"is_published,omitempty"`
}

// BatchResult reports the outcome of a single file within a batch upload.
// On success, Document is populated and Error is empty.
// On failure, Error describes the problem and Document is nil. StoragePath
// is set when the file was stored but its metadata was not.
type BatchResult struct {
	Document    *Document `json:"document,omitempty"`
	Filename    string    `json:"filename"`
	Error       string    `json:"error,omitempty"`
	StoragePath string    `json:"storage_path,omitempty"`
}

// File is a document binary opened for reading. The caller closes Body.
type File struct {
	*storage.Object
	Filename string
}

// updateFields is the row patch written for an UpdateCommand.
type updateFields struct {
	UpdateCommand
	UpdatedAt time.Time `json:"updated_at"`
}

// slugRow is the projection used for slug collision checks.
type slugRow struct {
	ID uuid.UUID `json:"id"`
}
