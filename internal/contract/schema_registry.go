// Package contract checks the documents exchanged with the ticketing API
// against JSON schemas and runs the stub scenarios through the HTTP surface.
package contract

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Kind names a document shape.
type Kind string

const (
	// KindPayload is the create-request body sent to the ticketing API.
	KindPayload Kind = "Payload"
	// KindTicketResponse is a successful create-request response.
	KindTicketResponse Kind = "TicketResponse"
	// KindErrorResponse is a record validation failure.
	KindErrorResponse Kind = "ErrorResponse"
	// KindAPIResponse is the body returned by POST /api/v1/feedback.
	KindAPIResponse Kind = "APIResponse"
)

// Schema is a JSON schema document.
type Schema struct {
	Schema     string                 `json:"$schema"`
	Title      string                 `json:"title"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required,omitempty"`
}

// ValidationResult is the outcome of validating one document.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes a single schema violation.
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// SchemaRegistry holds the compiled loaders for each Kind.
type SchemaRegistry struct {
	mu      sync.RWMutex
	loaders map[Kind]gojsonschema.JSONLoader
}

// NewSchemaRegistry returns a registry with the built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{loaders: make(map[Kind]gojsonschema.JSONLoader)}
	for kind, schema := range defaultSchemas() {
		if err := sr.RegisterSchema(kind, schema); err != nil {
			panic(fmt.Sprintf("contract: invalid built-in schema %s: %v", kind, err))
		}
	}
	return sr
}

// RegisterSchema adds or replaces the schema for kind.
func (sr *SchemaRegistry) RegisterSchema(kind Kind, schema *Schema) error {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.loaders[kind] = gojsonschema.NewBytesLoader(schemaJSON)
	return nil
}

// Validate checks a raw JSON document against the schema for kind.
func (sr *SchemaRegistry) Validate(kind Kind, doc []byte) (*ValidationResult, error) {
	sr.mu.RLock()
	loader, ok := sr.loaders[kind]
	sr.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no schema registered for kind: %s", kind)
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Path:    e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	return out, nil
}

func str() map[string]interface{} {
	return map[string]interface{}{"type": "string"}
}

func object(required []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"required":   required,
		"properties": props,
	}
}

func fieldErrors() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": object([]string{"description"}, map[string]interface{}{
			"description": str(),
			"error":       str(),
			"field_key":   str(),
		}),
	}
}

func errorInfo() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"description": str(),
			"error":       str(),
			"details": map[string]interface{}{
				"type":                 "object",
				"additionalProperties": fieldErrors(),
			},
		},
	}
}

func ticket() map[string]interface{} {
	return object([]string{"id", "status", "description"}, map[string]interface{}{
		"id":          map[string]interface{}{"type": "integer", "minimum": 1},
		"status":      str(),
		"description": str(),
	})
}

func defaultSchemas() map[Kind]*Schema {
	const draft = "http://json-schema.org/draft-07/schema#"

	return map[Kind]*Schema{
		KindPayload: {
			Schema:   draft,
			Title:    "Create Request Payload",
			Type:     "object",
			Required: []string{"request"},
			Properties: map[string]interface{}{
				"request": object([]string{"requester", "subject", "comment"}, map[string]interface{}{
					"requester": object([]string{"name"}, map[string]interface{}{
						"name":  map[string]interface{}{"type": "string", "minLength": 1},
						"email": str(),
					}),
					"subject": map[string]interface{}{"type": "string", "minLength": 1},
					"comment": object([]string{"body"}, map[string]interface{}{
						"body": str(),
					}),
				}),
			},
		},
		KindTicketResponse: {
			Schema:     draft,
			Title:      "Create Request Response",
			Type:       "object",
			Required:   []string{"request"},
			Properties: map[string]interface{}{"request": ticket()},
		},
		KindErrorResponse: {
			Schema:   draft,
			Title:    "Record Validation Error",
			Type:     "object",
			Required: []string{"error", "description", "details"},
			Properties: map[string]interface{}{
				"error":       map[string]interface{}{"type": "string", "enum": []string{"RecordInvalid"}},
				"description": str(),
				"details": map[string]interface{}{
					"type":                 "object",
					"minProperties":        1,
					"additionalProperties": fieldErrors(),
				},
			},
		},
		KindAPIResponse: {
			Schema:   draft,
			Title:    "Feedback API Response",
			Type:     "object",
			Required: []string{"state"},
			Properties: map[string]interface{}{
				"state": object([]string{"isLoading", "isSubmitted", "hasError", "error"}, map[string]interface{}{
					"isLoading":   map[string]interface{}{"type": "boolean", "enum": []bool{false}},
					"isSubmitted": map[string]interface{}{"type": "boolean"},
					"hasError":    map[string]interface{}{"type": "boolean"},
					"error":       errorInfo(),
				}),
				"ticket":     ticket(),
				"request_id": str(),
			},
		},
	}
}
