package catalog

import (
	"fmt"
	"sort"
)

// ValidationError reports arguments that do not satisfy a tool's input schema.
// It is distinct from a JSON parse failure of the arguments themselves.
type ValidationError struct {
	Tool string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %q: %v", e.Tool, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateArguments checks an argument object against the tool's input schema.
func ValidateArguments(t Tool, args map[string]any) error {
	schema, err := t.Schema()
	if err != nil {
		return &ValidationError{Tool: t.Name, Err: err}
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return &ValidationError{Tool: t.Name, Err: fmt.Errorf("resolve schema: %w", err)}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := resolved.Validate(args); err != nil {
		return &ValidationError{Tool: t.Name, Err: err}
	}
	return nil
}

// Parameters describes the declared parameters of a tool.
type Parameters struct {
	Required []string
	Optional []string
}

// Params splits the schema's properties into required and optional names,
// each sorted. Required names without a matching property are kept.
func (t Tool) Params() (Parameters, error) {
	schema, err := t.Schema()
	if err != nil {
		return Parameters{}, err
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var p Parameters
	for name := range schema.Properties {
		if !required[name] {
			p.Optional = append(p.Optional, name)
		}
	}
	for name := range required {
		p.Required = append(p.Required, name)
	}
	sort.Strings(p.Required)
	sort.Strings(p.Optional)
	return p, nil
}
