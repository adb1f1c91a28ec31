package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON-Schema for a structured answer.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema compiles schemaMap under name.
func CompileSchema(name string, schemaMap map[string]any) (*Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(name string, schemaMap map[string]any) *Schema {
	s, err := CompileSchema(name, schemaMap)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Validate checks an already decoded JSON value (map[string]any, []any, ...).
func (s *Schema) Validate(v any) error {
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("%s does not match schema: %w", s.name, err)
	}
	return nil
}

// ValidateJSONAgainstSchema validates raw JSON "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	s, err := CompileSchema("schema", schemaMap)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return s.Validate(v)
}

// StringProp and friends keep schema literals short.
func StringProp() map[string]any { return map[string]any{"type": "string"} }

func EnumProp(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

// ScalarProp accepts strings, numbers and booleans.
func ScalarProp() map[string]any {
	return map[string]any{"type": []string{"string", "number", "boolean", "null"}}
}

func StringListProp() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func ObjectSchema(required []string, props map[string]any) map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func ArraySchema(item map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": item}
}
