package openapi

import "maps"

// NewComponents creates Components with shared schemas and error responses.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
					"page_size": {Type: "integer", Description: "Results per page", Example: 20},
					"search":    {Type: "string", Description: "Search query"},
					"sort":      {Type: "string", Description: "Comma-separated sort fields. Prefix with - for descending. Example: title,-updated_at"},
				},
			},
			"Error": {
				Type: "object",
				Properties: map[string]*Schema{
					"error":            {Type: "string", Description: "Error message"},
					"service":          {Type: "string", Description: "Upstream service that failed", Enum: []any{"storage", "index", "metastore"}},
					"upstream_status":  {Type: "integer", Description: "Status code returned by the upstream service"},
					"upstream_message": {Type: "string", Description: "Response body returned by the upstream service"},
					"partial":          {Type: "boolean", Description: "The file was stored but its metadata was not"},
					"storage_path":     {Type: "string", Description: "Path of the stored object when partial"},
				},
				Required: []string{"error"},
			},
		},
		Responses: map[string]*Response{
			"BadRequest":         errorResponse("Invalid request"),
			"Unauthorized":       errorResponse("Missing or invalid credentials"),
			"NotFound":           errorResponse("Resource not found"),
			"PayloadTooLarge":    errorResponse("Upload exceeds the configured size limit"),
			"BadGateway":         errorResponse("An upstream service returned an error"),
			"ServiceUnavailable": errorResponse("An upstream service could not be reached"),
		},
	}
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{
			"application/json": {Schema: SchemaRef("Error")},
		},
	}
}

// AddSchemas merges the given schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges the given responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}
