package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSON Schema helpers for tool parameter declarations.

// ObjectSchema creates an object schema with the given properties.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringProperty creates a string property with a description.
func StringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

// NumberProperty creates a number property with a description.
func NumberProperty(description string) map[string]any {
	return map[string]any{
		"type":        "number",
		"description": description,
	}
}

// ValidateArgs structurally checks raw tool arguments against a schema
// produced by ObjectSchema: required fields must be present, unknown fields
// and wrong types are rejected. This is a hard boundary in front of the
// executors; model output never reaches business logic unchecked.
func ValidateArgs(schema map[string]any, raw json.RawMessage) error {
	properties, _ := schema["properties"].(map[string]any)

	var args map[string]json.RawMessage
	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&args); err != nil {
			return fmt.Errorf("arguments are not a JSON object: %w", err)
		}
	}

	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := args[name]; !present {
				return fmt.Errorf("missing required field %q", name)
			}
		}
	}

	for name, value := range args {
		prop, known := properties[name].(map[string]any)
		if !known {
			return fmt.Errorf("unknown field %q", name)
		}
		wantType, _ := prop["type"].(string)
		if err := checkType(name, wantType, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name, wantType string, value json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("field %q is not valid JSON: %w", name, err)
	}

	switch wantType {
	case "string":
		if _, ok := v.(string); !ok {
			return fmt.Errorf("field %q must be a string", name)
		}
	case "number":
		if _, ok := v.(json.Number); !ok {
			return fmt.Errorf("field %q must be a number", name)
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean", name)
		}
	}
	return nil
}
