// Package catalog holds the in-memory tool definition catalog: loading,
// lookup, category derivation, filtering and pagination.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// Tool is a single remote tool definition. It is immutable once loaded.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`

	// raw is the source entry as loaded, including fields this service does not model.
	raw json.RawMessage
}

// MarshalJSON emits the definition exactly as it appeared in its source when known.
func (t Tool) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	type plain Tool
	return json.Marshal(plain(t))
}

// Schema decodes the input schema. A definition without one accepts any object.
func (t Tool) Schema() (*jsonschema.Schema, error) {
	if len(t.InputSchema) == 0 || string(t.InputSchema) == "null" {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(t.InputSchema, &s); err != nil {
		return nil, fmt.Errorf("tool %q has an invalid input schema: %w", t.Name, err)
	}
	return &s, nil
}

// SchemaOrEmpty returns the raw input schema, or an empty object when absent.
func (t Tool) SchemaOrEmpty() json.RawMessage {
	if len(t.InputSchema) == 0 || string(t.InputSchema) == "null" {
		return json.RawMessage(`{}`)
	}
	return t.InputSchema
}

// Summary is the compact listing form of a definition.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// parseEntry decodes one catalog array element. ok is false for entries that
// carry no name; those are comments in the source files.
func parseEntry(raw json.RawMessage) (Tool, bool) {
	var entry struct {
		Name        *string         `json:"name"`
		Description any             `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Tool{}, false
	}
	if entry.Name == nil || *entry.Name == "" {
		return Tool{}, false
	}
	desc, _ := entry.Description.(string)
	return Tool{
		Name:        *entry.Name,
		Description: desc,
		InputSchema: entry.InputSchema,
		raw:         raw,
	}, true
}
