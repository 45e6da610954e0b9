package catalog

import (
	"errors"
	"testing"
)

func TestValidateArguments(t *testing.T) {
	c := sampleCatalog(t)
	tool, _ := c.Lookup("blueprintgraph.spawn_function_node")

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
	}{
		{"all required", map[string]any{"blueprint": "/Game/BP_Door", "function": "Open"}, false},
		{"with optional", map[string]any{"blueprint": "/Game/BP_Door", "function": "Open", "x": 120.0}, false},
		{"missing required", map[string]any{"blueprint": "/Game/BP_Door"}, true},
		{"wrong type", map[string]any{"blueprint": "/Game/BP_Door", "function": 3.0}, true},
		{"nil args", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArguments(tool, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateArguments() error = %v, wantErr %v", err, tt.wantErr)
			}
			var ve *ValidationError
			if err != nil && !errors.As(err, &ve) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateArguments_NoSchemaAcceptsAnything(t *testing.T) {
	if err := ValidateArguments(Tool{Name: "screenshot"}, map[string]any{"anything": true}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateArguments_InvalidSchema(t *testing.T) {
	tool := Tool{Name: "bad.schema", InputSchema: []byte(`{"properties": "nope"}`)}
	if err := ValidateArguments(tool, map[string]any{}); err == nil {
		t.Error("expected error for undecodable schema")
	}
}

func TestParams(t *testing.T) {
	c := sampleCatalog(t)
	tool, _ := c.Lookup("material.set_param")

	p, err := tool.Params()
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if got := join(p.Required); got != "material,param" {
		t.Errorf("Required = %q", got)
	}
	if got := join(p.Optional); got != "value" {
		t.Errorf("Optional = %q", got)
	}

	none, _ := Tool{Name: "x"}.Params()
	if len(none.Required)+len(none.Optional) != 0 {
		t.Errorf("expected no params, got %+v", none)
	}
}

func join(s []string) string {
	out := ""
	for i, v := range s {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}
