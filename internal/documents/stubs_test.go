package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/JaimeStill/lectern/pkg/index"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/metastore"
	"github.com/JaimeStill/lectern/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is the shared call log used to assert ordering across services.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (r *recorder) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type stubSearchCache struct {
	rec *recorder
	err error
}

func (s *stubSearchCache) Invalidate(context.Context) error {
	s.rec.record("invalidate")
	return s.err
}

type stubStorage struct {
	rec       *recorder
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	ctxErrs   []error
}

func newStubStorage(rec *recorder) *stubStorage {
	return &stubStorage{rec: rec, objects: make(map[string][]byte)}
}

func (s *stubStorage) Start(*lifecycle.Coordinator) error { return nil }
func (s *stubStorage) Bucket() string                     { return "documents" }

func (s *stubStorage) Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error {
	s.rec.record("upload:" + path)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.objects[bucket+"/"+path] = append([]byte(nil), data...)
	return nil
}

func (s *stubStorage) Download(ctx context.Context, bucket, path string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return &storage.Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   "application/pdf",
		ContentLength: int64(len(data)),
	}, nil
}

func (s *stubStorage) Delete(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+path)
	return nil
}

func (s *stubStorage) has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects["documents/"+path]
	return ok
}

type stubIndex struct {
	rec       *recorder
	mu        sync.Mutex
	docs      map[string]json.RawMessage
	upsertErr error
}

func newStubIndex(rec *recorder) *stubIndex {
	return &stubIndex{rec: rec, docs: make(map[string]json.RawMessage)}
}

func (s *stubIndex) Start(*lifecycle.Coordinator) error { return nil }

func (s *stubIndex) Search(ctx context.Context, q string, limit int) (*index.Result, error) {
	return &index.Result{Hits: []json.RawMessage{}, Query: q, Limit: limit}, nil
}

func (s *stubIndex) Upsert(ctx context.Context, docs ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		raw, _ := json.Marshal(d)
		var key struct {
			ID string `json:"id"`
		}
		json.Unmarshal(raw, &key)
		s.rec.record("index:" + key.ID)
		if s.upsertErr == nil {
			s.docs[key.ID] = raw
		}
	}
	return s.upsertErr
}

func (s *stubIndex) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.record("unindex:" + id)
	delete(s.docs, id)
	return nil
}

// stubStore is an in-memory metastore. Rows are JSON objects keyed by column.
type stubStore struct {
	rec       *recorder
	mu        sync.Mutex
	rows      []map[string]any
	insertErr error
	selectErr error
}

func newStubStore(rec *recorder) *stubStore {
	return &stubStore{rec: rec}
}

func (s *stubStore) Start(*lifecycle.Coordinator) error { return nil }

func (s *stubStore) Insert(ctx context.Context, table string, fields any, out any) error {
	row, err := toRow(fields)
	if err != nil {
		return err
	}
	s.rec.record(fmt.Sprintf("insert:%v", row["id"]))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows = append(s.rows, row)
	return fromRow(row, out)
}

func (s *stubStore) UpdateByID(ctx context.Context, table, id string, fields any, out any) error {
	patch, err := toRow(fields)
	if err != nil {
		return err
	}
	s.rec.record("update:" + id)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if fmt.Sprint(row["id"]) == id {
			for k, v := range patch {
				row[k] = v
			}
			return fromRow(row, out)
		}
	}
	return metastore.ErrNotFound
}

func (s *stubStore) Select(ctx context.Context, table string, q metastore.Query, out any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectErr != nil {
		return 0, s.selectErr
	}

	var matched []map[string]any
	for _, row := range s.rows {
		if matches(row, q.Filters) {
			matched = append(matched, row)
		}
	}
	total := len(matched)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Offset:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	if matched == nil {
		matched = []map[string]any{}
	}
	return total, fromRow(matched, out)
}

func (s *stubStore) add(row map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
}

func matches(row map[string]any, filters []metastore.Filter) bool {
	for _, f := range filters {
		got := fmt.Sprint(row[f.Column])
		want := fmt.Sprint(f.Value)
		switch f.Op {
		case metastore.OpEq:
			if got != want {
				return false
			}
		case metastore.OpILike:
			if !strings.Contains(strings.ToLower(got), strings.ToLower(want)) {
				return false
			}
		}
	}
	return true
}

func toRow(fields any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row, nil
}

func fromRow(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
