package documents

import "github.com/JaimeStill/lectern/pkg/openapi"

// Schemas returns the component schemas referenced by document operations.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"Document": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":           {Type: "string", Format: "uuid"},
				"slug":         {Type: "string", Example: "annual-report-2024"},
				"title":        {Type: "string"},
				"summary":      {Type: "string"},
				"is_published": {Type: "boolean"},
				"storage_path": {Type: "string", Description: "Object path in the configured bucket", Example: "0b7c1b2e-6c38-4a55-8d0f-5b8f6f0c9a11.pdf"},
				"sha256":       {Type: "string", Description: "Hex SHA-256 of the uploaded file"},
				"file_size":    {Type: "integer", Description: "Size of the uploaded file in bytes"},
				"updated_at":   {Type: "string", Format: "date-time"},
			},
		},
		"DocumentPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("Document")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"UpdateDocument": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"title":        {Type: "string"},
				"summary":      {Type: "string"},
				"is_published": {Type: "boolean"},
			},
		},
		"BatchResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"document":     openapi.SchemaRef("Document"),
				"filename":     {Type: "string"},
				"error":        {Type: "string"},
				"storage_path": {Type: "string"},
			},
			Required: []string{"filename"},
		},
	}
}

var uploadFields = map[string]*openapi.Schema{
	"file":         {Type: "string", Format: "binary", Description: "PDF file"},
	"title":        {Type: "string", Description: "Defaults to the file name without extension"},
	"summary":      {Type: "string"},
	"slug":         {Type: "string", Description: "Derived from the title when omitted"},
	"is_published": {Type: "boolean", Default: true},
}

var batchFields = map[string]*openapi.Schema{
	"files":        {Type: "array", Items: &openapi.Schema{Type: "string", Format: "binary"}},
	"is_published": {Type: "boolean", Default: true},
}

var (
	opList = &openapi.Operation{
		Summary: "List published documents",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Case-insensitive title filter", false),
			openapi.QueryParam("sort", "string", "Sort fields: title, slug, updated_at, file_size. Prefix with - for descending", false),
		},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Page of documents", "DocumentPage"),
			400: openapi.ResponseRef("BadRequest"),
			502: openapi.ResponseRef("BadGateway"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}

	opFind = &openapi.Operation{
		Summary:    "Find a published document by slug",
		Parameters: []*openapi.Parameter{openapi.SlugParam("slug", "Document slug")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Document", "Document"),
			404: openapi.ResponseRef("NotFound"),
			502: openapi.ResponseRef("BadGateway"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}

	opDownload = &openapi.Operation{
		Summary:    "Download a published document",
		Parameters: []*openapi.Parameter{openapi.SlugParam("slug", "Document slug")},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "PDF binary",
				Content: map[string]*openapi.MediaType{
					pdfContentType: {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
				},
			},
			404: openapi.ResponseRef("NotFound"),
			502: openapi.ResponseRef("BadGateway"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}

	opCreate = &openapi.Operation{
		Summary:     "Publish a PDF",
		Description: "Uploads the file to storage, records its metadata, then indexes it. A metadata failure after a successful upload returns 502 with partial set and the stored path.",
		RequestBody: openapi.RequestBodyMultipart(uploadFields, "file"),
		Responses: map[int]*openapi.Response{
			201: openapi.ResponseJSON("Published document", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			401: openapi.ResponseRef("Unauthorized"),
			413: openapi.ResponseRef("PayloadTooLarge"),
			502: openapi.ResponseRef("BadGateway"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}

	opBatch = &openapi.Operation{
		Summary:     "Publish several PDFs",
		RequestBody: openapi.RequestBodyMultipart(batchFields, "files"),
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Per-file results in request order",
				Content: map[string]*openapi.MediaType{
					"application/json": {Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("BatchResult")}},
				},
			},
			400: openapi.ResponseRef("BadRequest"),
			401: openapi.ResponseRef("Unauthorized"),
			413: openapi.ResponseRef("PayloadTooLarge"),
		},
	}

	opUpdate = &openapi.Operation{
		Summary:     "Update document metadata",
		Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
		RequestBody: openapi.RequestBodyJSON("UpdateDocument", true),
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Updated document", "Document"),
			400: openapi.ResponseRef("BadRequest"),
			401: openapi.ResponseRef("Unauthorized"),
			404: openapi.ResponseRef("NotFound"),
			502: openapi.ResponseRef("BadGateway"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}

	opReindex = &openapi.Operation{
		Summary:    "Re-send a document to the search index",
		Parameters: []*openapi.Parameter{openapi.PathParam("id", "Document ID")},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Reindexed document", "Document"),
			401: openapi.ResponseRef("Unauthorized"),
			404: openapi.ResponseRef("NotFound"),
			502: openapi.ResponseRef("BadGateway"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	}
)
