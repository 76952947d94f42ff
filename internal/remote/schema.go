package remote

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildResponseSchema returns the JSON Schema a remote response must satisfy.
func BuildResponseSchema() map[string]any {
	number := map[string]any{"type": "number"}
	marker := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"marker":       map[string]any{"type": "string", "minLength": 1, "maxLength": 120},
			"value":        number,
			"unit":         map[string]any{"type": "string", "maxLength": 32},
			"referenceMin": number,
			"referenceMax": number,
			"confidence":   map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required":             []string{"marker", "value"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"modelIdentifier": map[string]any{"type": "string", "minLength": 1},
			"testDate":        map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"markers":         map[string]any{"type": "array", "items": marker},
		},
		"required":             []string{"modelIdentifier"},
		"additionalProperties": false,
	}
}

var responseSchema = mustCompile(BuildResponseSchema())

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	s, err := compileSchema(schemaMap)
	if err != nil {
		panic(err)
	}
	return s
}

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("response.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateResponse validates a raw response document.
func ValidateResponse(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := responseSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
