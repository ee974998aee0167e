package index_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/lectern/pkg/index"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/upstream"
)

const apiKey = "master-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeIndex emulates the search and document endpoints of the index.
type fakeIndex struct {
	mu         sync.Mutex
	docs       map[string]map[string]any
	filterable []string

	lastSearch map[string]any
	lastQuery  string

	failStatus int
	failBody   string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{docs: make(map[string]map[string]any)}
}

func (f *fakeIndex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+apiKey {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"The Authorization header is missing","code":"missing_authorization_header"}`))
		return
	}

	if f.failStatus != 0 {
		w.WriteHeader(f.failStatus)
		w.Write([]byte(f.failBody))
		return
	}

	f.lastQuery = r.URL.RawQuery

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/indexes/documents/search":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.lastSearch = body

		q, _ := body["q"].(string)
		hits := []map[string]any{}
		for _, d := range f.docs {
			if body["filter"] == "is_published = true" && d["is_published"] != true {
				continue
			}
			title, _ := d["title"].(string)
			if strings.Contains(strings.ToLower(title), strings.ToLower(q)) {
				hits = append(hits, d)
			}
		}
		if limit, ok := body["limit"].(float64); ok && len(hits) > int(limit) {
			hits = hits[:int(limit)]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"hits":               hits,
			"query":              q,
			"limit":              body["limit"],
			"estimatedTotalHits": len(hits),
			"processingTimeMs":   1,
		})

	case r.Method == http.MethodPost && r.URL.Path == "/indexes/documents/documents":
		var docs []map[string]any
		json.NewDecoder(r.Body).Decode(&docs)
		for _, d := range docs {
			id, _ := d["id"].(string)
			f.docs[id] = d
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"taskUid":1,"status":"enqueued"}`))

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/indexes/documents/documents/"):
		delete(f.docs, strings.TrimPrefix(r.URL.Path, "/indexes/documents/documents/"))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"taskUid":2,"status":"enqueued"}`))

	case r.Method == http.MethodPut && r.URL.Path == "/indexes/documents/settings/filterable-attributes":
		json.NewDecoder(r.Body).Decode(&f.filterable)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"taskUid":3,"status":"enqueued"}`))

	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no route","code":"not_found"}`))
	}
}

func setup(t *testing.T) (*fakeIndex, index.System) {
	t.Helper()

	fake := newFakeIndex()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	sys := index.New(&index.Config{
		URL:     srv.URL,
		APIKey:  apiKey,
		Index:   "documents",
		Timeout: "5s",
	}, discardLogger())

	return fake, sys
}

func TestSearchRequestBody(t *testing.T) {
	fake, sys := setup(t)

	if _, err := sys.Search(context.Background(), "contract", 5); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(fake.lastSearch) != 3 {
		t.Fatalf("search body has %d fields, want 3: %v", len(fake.lastSearch), fake.lastSearch)
	}
	if fake.lastSearch["q"] != "contract" {
		t.Errorf("q = %v, want contract", fake.lastSearch["q"])
	}
	if fake.lastSearch["limit"] != float64(5) {
		t.Errorf("limit = %v, want 5", fake.lastSearch["limit"])
	}
	if fake.lastSearch["filter"] != index.PublishedFilter {
		t.Errorf("filter = %v, want %q", fake.lastSearch["filter"], index.PublishedFilter)
	}
}

func TestSearchFilterAlwaysPresent(t *testing.T) {
	fake, sys := setup(t)

	for _, q := range []string{"", "x", "is_published = false", `" OR 1=1`} {
		if _, err := sys.Search(context.Background(), q, 20); err != nil {
			t.Fatalf("Search(%q) failed: %v", q, err)
		}
		if fake.lastSearch["filter"] != "is_published = true" {
			t.Errorf("Search(%q) filter = %v", q, fake.lastSearch["filter"])
		}
	}
}

func TestSearchPublishedOnly(t *testing.T) {
	fake, sys := setup(t)
	ctx := context.Background()

	err := sys.Upsert(ctx,
		map[string]any{"id": "1", "title": "Service Contract", "is_published": true},
		map[string]any{"id": "2", "title": "Draft Contract", "is_published": false},
		map[string]any{"id": "3", "title": "Lease Contract", "is_published": true},
	)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if fake.lastQuery != "primaryKey=id" {
		t.Errorf("upsert query = %q, want primaryKey=id", fake.lastQuery)
	}

	result, err := sys.Search(ctx, "contract", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(result.Hits))
	}
	for _, raw := range result.Hits {
		var hit map[string]any
		if err := json.Unmarshal(raw, &hit); err != nil {
			t.Fatalf("decode hit: %v", err)
		}
		if hit["is_published"] != true {
			t.Errorf("unpublished hit returned: %v", hit)
		}
	}
	if result.Query != "contract" {
		t.Errorf("query = %q, want contract", result.Query)
	}
}

func TestSearchEmptyHits(t *testing.T) {
	_, sys := setup(t)

	result, err := sys.Search(context.Background(), "nothing", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if result.Hits == nil {
		t.Error("hits should be an empty slice, not nil")
	}
}

func TestSearchErrorFidelity(t *testing.T) {
	fake, sys := setup(t)
	fake.failStatus = http.StatusBadRequest
	fake.failBody = `{"message":"Attribute is_published is not filterable","code":"invalid_search_filter"}`

	_, err := sys.Search(context.Background(), "contract", 5)

	se, ok := upstream.AsStatus(err)
	if !ok {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Service != upstream.ServiceIndex {
		t.Errorf("service = %q, want %q", se.Service, upstream.ServiceIndex)
	}
	if se.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", se.Status)
	}
	if se.Message != fake.failBody {
		t.Errorf("message = %q, want %q", se.Message, fake.failBody)
	}
}

func TestSearchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	sys := index.New(&index.Config{URL: url, Index: "documents", Timeout: "1s"}, discardLogger())

	_, err := sys.Search(context.Background(), "contract", 5)
	if _, ok := upstream.AsTransport(err); !ok {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	fake, sys := setup(t)
	ctx := context.Background()

	if err := sys.Upsert(ctx, map[string]any{"id": "abc", "title": "T", "is_published": true}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := sys.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := fake.docs["abc"]; ok {
		t.Error("document still indexed after delete")
	}
}

func TestUpsertNoDocuments(t *testing.T) {
	fake, sys := setup(t)
	fake.failStatus = http.StatusInternalServerError

	if err := sys.Upsert(context.Background()); err != nil {
		t.Errorf("Upsert with no documents should be a no-op, got %v", err)
	}
}

func TestStartConfiguresFilterableAttributes(t *testing.T) {
	fake, sys := setup(t)

	lc := lifecycle.New()
	if err := sys.Start(lc); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	lc.WaitForStartup()

	if !lc.Ready() {
		t.Fatalf("coordinator not ready: %v", lc.Failures())
	}
	if len(fake.filterable) != 1 || fake.filterable[0] != "is_published" {
		t.Errorf("filterable = %v, want [is_published]", fake.filterable)
	}
}

func TestStartRecordsFailure(t *testing.T) {
	fake, sys := setup(t)
	fake.failStatus = http.StatusServiceUnavailable
	fake.failBody = "down"

	lc := lifecycle.New()
	sys.Start(lc)
	lc.WaitForStartup()

	if lc.Ready() {
		t.Fatal("coordinator should not be ready")
	}
	failures := lc.Failures()
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	var se *upstream.StatusError
	if !errors.As(failures[0], &se) || se.Status != http.StatusServiceUnavailable {
		t.Errorf("failure = %v, want index status 503", failures[0])
	}
}

func TestSearchContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(srv.CloseClientConnections)
	t.Cleanup(func() { close(release) })

	sys := index.New(&index.Config{URL: srv.URL, Index: "documents", Timeout: "5s"}, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sys.Search(ctx, "contract", 5)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
