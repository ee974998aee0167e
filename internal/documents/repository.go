package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/lectern/pkg/index"
	"github.com/JaimeStill/lectern/pkg/metastore"
	"github.com/JaimeStill/lectern/pkg/pagination"
	"github.com/JaimeStill/lectern/pkg/query"
	"github.com/JaimeStill/lectern/pkg/storage"
)

const table = "documents"

// listColumns omits extracted_text, which can be large and is only needed
// by the search index.
var listColumns = []string{
	"id", "slug", "title", "summary", "is_published",
	"storage_path", "sha256", "file_size", "updated_at",
}

var sortable = map[string]bool{
	"title":      true,
	"slug":       true,
	"updated_at": true,
	"file_size":  true,
}

var defaultSort = query.SortField{
	Field:      "updated_at",
	Descending: true,
}

type repo struct {
	storage    storage.System
	index      index.System
	store      metastore.System
	searches   SearchCache
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a document repository implementing the System interface.
// searches may be nil when search results are not cached.
func New(
	store storage.System,
	idx index.System,
	meta metastore.System,
	searches SearchCache,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		storage:    store,
		index:      idx,
		store:      meta,
		searches:   searches,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (r *repo) Handler(maxUploadSize int64, admin func(http.Handler) http.Handler) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize, admin)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	sort := []query.SortField(page.Sort)
	if len(sort) == 0 {
		sort = []query.SortField{defaultSort}
	}
	for _, s := range sort {
		if !sortable[s.Field] {
			return nil, fmt.Errorf("%w: cannot sort by %q", ErrInvalidRequest, s.Field)
		}
	}

	q := metastore.Query{
		Columns: listColumns,
		Filters: []metastore.Filter{published()},
		Sort:    sort,
		Limit:   page.PageSize,
		Offset:  page.Offset(),
	}
	if page.Search != nil && *page.Search != "" {
		q.Filters = append(q.Filters, metastore.Filter{
			Column: "title", Op: metastore.OpILike, Value: *page.Search,
		})
	}

	var docs []Document
	total, err := r.store.Select(ctx, table, q, &docs)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, slug string) (*Document, error) {
	return r.findOne(ctx, listColumns,
		metastore.Filter{Column: "slug", Op: metastore.OpEq, Value: slug},
		published(),
	)
}

func (r *repo) Download(ctx context.Context, slug string) (*File, error) {
	doc, err := r.Find(ctx, slug)
	if err != nil {
		return nil, err
	}

	obj, err := r.storage.Download(ctx, r.storage.Bucket(), doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", doc.StoragePath, err)
	}

	return &File{Object: obj, Filename: doc.Slug + ".pdf"}, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", ErrInvalidRequest)
	}

	sum := sha256.Sum256(cmd.Data)
	digest := hex.EncodeToString(sum[:])
	size := int64(len(cmd.Data))

	// A disconnecting caller must not cut the sequence between upload and insert.
	ctx = context.WithoutCancel(ctx)

	id := uuid.New()
	storagePath := id.String() + ".pdf"

	slug, err := r.resolveSlug(ctx, cmd.Slug, title, id)
	if err != nil {
		return nil, err
	}

	if err := r.storage.Upload(ctx, r.storage.Bucket(), storagePath, cmd.Data, pdfContentType); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	row := Document{
		ID:            id,
		Slug:          slug,
		Title:         title,
		Summary:       strings.TrimSpace(cmd.Summary),
		IsPublished:   cmd.IsPublished,
		StoragePath:   storagePath,
		SHA256:        digest,
		FileSize:      size,
		ExtractedText: cmd.ExtractedText,
		UpdatedAt:     r.now().UTC(),
	}

	var doc Document
	if err := r.store.Insert(ctx, table, row, &doc); err != nil {
		r.logger.Error(
			"metadata insert failed after upload",
			"id", id,
			"storage_path", storagePath,
			"error", err,
		)
		return nil, &PartialError{StoragePath: storagePath, Err: err}
	}

	if err := r.upsert(ctx, doc); err != nil {
		r.logger.Warn("index upsert failed", "id", doc.ID, "slug", doc.Slug, "error", err)
	}

	r.logger.Info(
		"document created",
		"id", doc.ID,
		"slug", doc.Slug,
		"size", size,
		"published", doc.IsPublished,
	)
	return &doc, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Document, error) {
	if cmd.Title == nil && cmd.Summary == nil && cmd.IsPublished == nil {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidRequest)
	}
	if cmd.Title != nil {
		title := strings.TrimSpace(*cmd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidRequest)
		}
		cmd.Title = &title
	}

	ctx = context.WithoutCancel(ctx)

	var doc Document
	err := r.store.UpdateByID(ctx, table, id.String(), updateFields{
		UpdateCommand: cmd,
		UpdatedAt:     r.now().UTC(),
	}, &doc)
	if err != nil {
		if errors.Is(err, metastore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}

	if err := r.upsert(ctx, doc); err != nil {
		r.logger.Warn("index upsert failed", "id", doc.ID, "error", err)
	}

	r.logger.Info("document updated", "id", doc.ID, "published", doc.IsPublished)
	return &doc, nil
}

func (r *repo) Reindex(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := r.findOne(ctx, nil, metastore.Filter{Column: "id", Op: metastore.OpEq, Value: id.String()})
	if errors.Is(err, ErrNotFound) {
		r.purge(ctx, id)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := r.upsert(ctx, *doc); err != nil {
		return nil, fmt.Errorf("reindex document: %w", err)
	}

	r.logger.Info("document reindexed", "id", doc.ID)
	return doc, nil
}

// upsert writes doc to the index, then discards cached search results.
func (r *repo) upsert(ctx context.Context, doc Document) error {
	if err := r.index.Upsert(ctx, doc); err != nil {
		return err
	}
	r.invalidate(ctx, doc.ID)
	return nil
}

func (r *repo) invalidate(ctx context.Context, id uuid.UUID) {
	if r.searches == nil {
		return
	}
	if err := r.searches.Invalidate(ctx); err != nil {
		r.logger.Warn("search cache invalidation failed", "id", id, "error", err)
	}
}

// purge removes an index entry whose row no longer exists.
func (r *repo) purge(ctx context.Context, id uuid.UUID) {
	if err := r.index.Delete(ctx, id.String()); err != nil {
		r.logger.Warn("stale index entry not removed", "id", id, "error", err)
		return
	}
	r.logger.Info("stale index entry removed", "id", id)
	r.invalidate(ctx, id)
}

func (r *repo) findOne(ctx context.Context, columns []string, filters ...metastore.Filter) (*Document, error) {
	var docs []Document
	_, err := r.store.Select(ctx, table, metastore.Query{
		Columns: columns,
		Filters: filters,
		Limit:   1,
	}, &docs)
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return &docs[0], nil
}

// resolveSlug normalizes the requested slug, or derives one from title.
// A slug already in use gets the first eight hex characters of id appended.
func (r *repo) resolveSlug(ctx context.Context, requested, title string, id uuid.UUID) (string, error) {
	slug := Slugify(requested)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		slug = "document"
	}

	var rows []slugRow
	total, err := r.store.Select(ctx, table, metastore.Query{
		Columns: []string{"id"},
		Filters: []metastore.Filter{{Column: "slug", Op: metastore.OpEq, Value: slug}},
		Limit:   1,
	}, &rows)
	if err != nil {
		return "", fmt.Errorf("check slug: %w", err)
	}

	if total > 0 || len(rows) > 0 {
		return slug + "-" + strings.ReplaceAll(id.String(), "-", "")[:8], nil
	}
	return slug, nil
}

func published() metastore.Filter {
	return metastore.Filter{Column: "is_published", Op: metastore.OpEq, Value: true}
}
