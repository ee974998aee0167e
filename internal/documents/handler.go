package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/lectern/pkg/formatting"
	"github.com/JaimeStill/lectern/pkg/handlers"
	"github.com/JaimeStill/lectern/pkg/pagination"
	"github.com/JaimeStill/lectern/pkg/routes"
)

const (
	batchConcurrency = 4
	maxBatchFiles    = 20
	formMemory       = 32 << 20

	// formOverhead covers multipart boundaries, part headers, and text fields
	// on top of the file bytes, which are limited per file.
	formOverhead = 1 << 20
)

// Handler provides HTTP endpoints for document operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
	admin         func(http.Handler) http.Handler
}

// NewHandler creates a Handler. admin wraps the write routes; nil leaves
// them unguarded.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
	admin func(http.Handler) http.Handler,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
		admin:         admin,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	write := routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Upload, OpenAPI: opCreate},
			{Method: "POST", Pattern: "/batch", Handler: h.Batch, OpenAPI: opBatch},
			{Method: "PATCH", Pattern: "/{id}", Handler: h.Update, OpenAPI: opUpdate},
			{Method: "POST", Pattern: "/{id}/reindex", Handler: h.Reindex, OpenAPI: opReindex},
		},
	}
	write.Middleware.Use(h.admin)

	return routes.Group{
		Prefix: "/documents",
		Tags:   []string{"Documents"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: opList},
			{Method: "GET", Pattern: "/{slug}", Handler: h.Find, OpenAPI: opFind},
			{Method: "GET", Pattern: "/{slug}/download", Handler: h.Download, OpenAPI: opDownload},
		},
		Children: []routes.Group{write},
	}
}

// List returns a page of published documents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a published document by slug.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	doc, err := h.sys.Find(r.Context(), r.PathValue("slug"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Download streams the binary of a published document.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	file, err := h.sys.Download(r.Context(), r.PathValue("slug"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer file.Body.Close()

	contentType := file.ContentType
	if contentType == "" {
		contentType = pdfContentType
	}
	w.Header().Set("Content-Type", contentType)

	if file.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(file.ContentLength, 10))
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, file.Body); err != nil {
		h.logger.Warn("download interrupted", "slug", r.PathValue("slug"), "error", err)
	}
}

// Upload publishes a single PDF from a multipart form.
// Form fields: file (required), title, summary, slug, is_published.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		h.respondFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	published, err := parsePublished(r.FormValue("is_published"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: file field required", ErrInvalidFile))
		return
	}
	defer file.Close()

	cmd, err := h.command(file, header)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if title := strings.TrimSpace(r.FormValue("title")); title != "" {
		cmd.Title = title
	}
	cmd.Summary = r.FormValue("summary")
	cmd.Slug = r.FormValue("slug")
	cmd.IsPublished = published

	doc, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, doc)
}

// Batch publishes every file in the "files" form field. Files are processed
// concurrently and each runs the full publication sequence on its own.
// Results are returned in request order.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize*maxBatchFiles+formOverhead)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		h.respondFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	published, err := parsePublished(r.FormValue("is_published"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: files field required", ErrInvalidFile))
		return
	}
	if len(headers) > maxBatchFiles {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: at most %d files per batch", ErrInvalidRequest, maxBatchFiles))
		return
	}

	results := make([]BatchResult, len(headers))

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)

	for i, header := range headers {
		g.Go(func() error {
			results[i] = h.publishPart(ctx, header, published)
			return nil
		})
	}
	g.Wait()

	handlers.RespondJSON(w, http.StatusOK, results)
}

// Update changes the metadata of a document by id.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: invalid id", ErrInvalidRequest))
		return
	}

	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	doc, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Reindex re-sends a document row to the search index.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: invalid id", ErrInvalidRequest))
		return
	}

	doc, err := h.sys.Reindex(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

func (h *Handler) publishPart(ctx context.Context, header *multipart.FileHeader, published bool) BatchResult {
	result := BatchResult{Filename: header.Filename}

	fail := func(err error) BatchResult {
		h.logger.Warn("batch file failed", "filename", header.Filename, "error", err)
		result.Error = err.Error()
		var partial *PartialError
		if errors.As(err, &partial) {
			result.StoragePath = partial.StoragePath
		}
		return result
	}

	file, err := header.Open()
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrInvalidFile, err))
	}
	defer file.Close()

	cmd, err := h.command(file, header)
	if err != nil {
		return fail(err)
	}
	cmd.IsPublished = published

	doc, err := h.sys.Create(ctx, cmd)
	if err != nil {
		return fail(err)
	}

	result.Document = doc
	return result
}

// command reads and inspects an uploaded PDF. The title defaults to the
// file name without its extension.
func (h *Handler) command(file multipart.File, header *multipart.FileHeader) (CreateCommand, error) {
	if header.Size > h.maxUploadSize {
		return CreateCommand{}, fmt.Errorf(
			"%w: %s is %s, limit %s",
			ErrFileTooLarge,
			header.Filename,
			formatting.FormatBytes(header.Size, 1),
			formatting.FormatBytes(h.maxUploadSize, 1),
		)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return CreateCommand{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	pages, err := inspectPDF(data)
	if err != nil {
		return CreateCommand{}, err
	}

	h.logger.Debug("pdf accepted", "filename", header.Filename, "pages", pages, "size", len(data))

	return CreateCommand{
		Data:          data,
		Title:         titleFromFilename(header.Filename),
		ExtractedText: extractText(h.logger, data),
	}, nil
}

func (h *Handler) respondFormError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}
	handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
}

func parsePublished(v string) (bool, error) {
	if v == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: is_published must be a boolean", ErrInvalidRequest)
	}
	return b, nil
}

func titleFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
