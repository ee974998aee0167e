package query_test

import (
	"errors"
	"testing"

	"github.com/JaimeStill/lectern/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "documents", "d").
		Project("id", "id").
		Project("title", "title").
		Project("updated_at", "updatedAt")
}

func ptr(s string) *string { return &s }

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "documents", true},
		{"underscore", "is_published", true},
		{"leading underscore", "_private", true},
		{"digits", "sha256", true},
		{"empty", "", false},
		{"uppercase", "Documents", false},
		{"leading digit", "1table", false},
		{"quote", `title"`, false},
		{"statement", "documents; drop table documents", false},
		{"qualified", "public.documents", false},
		{"star", "*", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := query.ValidateIdentifier(tt.input)
			if tt.valid && err != nil {
				t.Errorf("ValidateIdentifier(%q) = %v, want nil", tt.input, err)
			}
			if !tt.valid && !errors.Is(err, query.ErrInvalidIdentifier) {
				t.Errorf("ValidateIdentifier(%q) = %v, want ErrInvalidIdentifier", tt.input, err)
			}
		})
	}
}

func TestNewTableProjection(t *testing.T) {
	p, err := query.NewTableProjection("public", "documents", "id", "slug")
	if err != nil {
		t.Fatalf("NewTableProjection failed: %v", err)
	}

	if got := p.Columns(); got != "t.id, t.slug" {
		t.Errorf("Columns() = %q", got)
	}
	if got := p.Table(); got != "public.documents t" {
		t.Errorf("Table() = %q", got)
	}
	if got := p.Name(); got != "public.documents" {
		t.Errorf("Name() = %q", got)
	}
}

func TestNewTableProjectionAllColumns(t *testing.T) {
	p, err := query.NewTableProjection("public", "documents")
	if err != nil {
		t.Fatalf("NewTableProjection failed: %v", err)
	}
	if got := p.Columns(); got != "t.*" {
		t.Errorf("Columns() = %q, want t.*", got)
	}
}

func TestNewTableProjectionRejectsIdentifiers(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []string
	}{
		{"bad table", "docs;--", nil},
		{"bad column", "documents", []string{"id", "title) FROM x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.NewTableProjection("public", tt.table, tt.columns...)
			if !errors.Is(err, query.ErrInvalidIdentifier) {
				t.Errorf("got %v, want ErrInvalidIdentifier", err)
			}
		})
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "title", "d.title"},
		{"mapped camel", "updatedAt", "d.updated_at"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "title", []query.SortField{{Field: "title"}}},
		{"single descending", "-updated_at", []query.SortField{{Field: "updated_at", Descending: true}}},
		{
			"multiple mixed", "title,-updated_at",
			[]query.SortField{{Field: "title"}, {Field: "updated_at", Descending: true}},
		},
		{
			"with spaces", " title , -updated_at ",
			[]query.SortField{{Field: "title"}, {Field: "updated_at", Descending: true}},
		},
		{
			"empty parts skipped", "title,,slug",
			[]query.SortField{{Field: "title"}, {Field: "slug"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if tt.want == nil {
				if got != nil {
					t.Errorf("ParseSortFields(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	sql, args := query.NewBuilder(testProjection()).Build()

	wantSQL := "SELECT d.id, d.title, d.updated_at FROM public.documents d"
	if sql != wantSQL {
		t.Errorf("Build() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want empty", args)
	}
}

func TestBuilderBuildCountWithConditions(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("title", "Annual Report")
	sql, args := b.BuildCount()

	wantSQL := "SELECT COUNT(*) FROM public.documents d WHERE d.title = $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "Annual Report" {
		t.Errorf("args = %v, want [Annual Report]", args)
	}
}

func TestBuilderBuildWindow(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		offset int
		want   string
	}{
		{"limit and offset", 10, 20, "SELECT d.id, d.title, d.updated_at FROM public.documents d ORDER BY d.updated_at DESC LIMIT 10 OFFSET 20"},
		{"limit only", 5, 0, "SELECT d.id, d.title, d.updated_at FROM public.documents d ORDER BY d.updated_at DESC LIMIT 5"},
		{"unbounded", 0, 0, "SELECT d.id, d.title, d.updated_at FROM public.documents d ORDER BY d.updated_at DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(testProjection(), query.SortField{Field: "updatedAt", Descending: true})
			sql, _ := b.BuildWindow(tt.limit, tt.offset)
			if sql != tt.want {
				t.Errorf("sql = %q, want %q", sql, tt.want)
			}
		})
	}
}

func TestBuilderBuildJSON(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("id", "abc")
	sql, args := b.BuildJSON(1, 0)

	wantSQL := "SELECT COALESCE(json_agg(row_to_json(r)), '[]'::json) FROM (SELECT d.id, d.title, d.updated_at FROM public.documents d WHERE d.id = $1 LIMIT 1) r"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "abc" {
		t.Errorf("args = %v, want [abc]", args)
	}
}

func TestBuilderWhereEqualsNilSkipped(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("title", nil)
	b.WhereEquals("title", (*string)(nil))
	_, args := b.Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereContains(t *testing.T) {
	tests := []struct {
		name     string
		value    *string
		wantArgs []any
	}{
		{"plain", ptr("report"), []any{"%report%"}},
		{"escapes wildcards", ptr("50%_off"), []any{`%50\%\_off%`}},
		{"nil skipped", nil, nil},
		{"empty skipped", ptr(""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(testProjection())
			b.WhereContains("title", tt.value)
			_, args := b.Build()

			if len(args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tt.wantArgs)
			}
			for i := range args {
				if args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestBuilderMultipleConditions(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("id", "abc")
	b.WhereContains("title", ptr("report"))
	sql, args := b.Build()

	wantSQL := "SELECT d.id, d.title, d.updated_at FROM public.documents d WHERE d.id = $1 AND d.title ILIKE $2"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 2 || args[0] != "abc" || args[1] != "%report%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuilderOrderByFieldsOverridesDefault(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "id"})
	b.OrderByFields([]query.SortField{
		{Field: "updatedAt", Descending: true},
		{Field: "title"},
	})
	sql, _ := b.Build()

	wantSQL := "SELECT d.id, d.title, d.updated_at FROM public.documents d ORDER BY d.updated_at DESC, d.title ASC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
}
