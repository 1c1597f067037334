package filebased

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// JSON schema type names.
const (
	typeNull    = "null"
	typeBoolean = "boolean"
	typeInteger = "integer"
	typeNumber  = "number"
	typeString  = "string"
	typeObject  = "object"
	typeArray   = "array"
)

// newObjectSchema returns {"type": "object", "properties": props}.
func newObjectSchema(props map[string]any) map[string]any {
	if props == nil {
		props = map[string]any{}
	}
	return map[string]any{"type": typeObject, "properties": props}
}

// schemaProperties returns the properties of an object schema, or nil.
func schemaProperties(schema map[string]any) map[string]any {
	props, _ := schema["properties"].(map[string]any)
	return props
}

// withFileFields adds the source file fields to an object schema.
func withFileFields(schema map[string]any) map[string]any {
	props := make(map[string]any, len(schemaProperties(schema))+2)
	for k, v := range schemaProperties(schema) {
		props[k] = v
	}
	props[FieldLastModified] = map[string]any{"type": typeString}
	props[FieldFileURL] = map[string]any{"type": typeString}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	out["type"] = typeObject
	out["properties"] = props
	return out
}

// valueType returns the JSON schema type of a decoded value.
func valueType(v any) string {
	switch val := v.(type) {
	case nil:
		return typeNull
	case bool:
		return typeBoolean
	case string:
		return typeString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return typeInteger
	case float32:
		return floatType(float64(val))
	case float64:
		return floatType(val)
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return typeInteger
		}
		return typeNumber
	case map[string]any:
		return typeObject
	case []any:
		return typeArray
	default:
		return typeString
	}
}

func floatType(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return typeInteger
	}
	return typeNumber
}

// schemaTypes returns the declared types of a property schema.
func schemaTypes(prop any) []string {
	p, ok := prop.(map[string]any)
	if !ok {
		return nil
	}
	switch t := p["type"].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, elem := range t {
			if s, ok := elem.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	default:
		return nil
	}
}

// inferRecordSchema infers an object schema from one record.
func inferRecordSchema(record map[string]any) map[string]any {
	props := make(map[string]any, len(record))
	for k, v := range record {
		props[k] = map[string]any{"type": valueType(v)}
	}
	return newObjectSchema(props)
}

// mergeSchemas unions the properties of two object schemas. Types merge as:
// equal types stay, null yields to the other type, integer widens to number.
// Any other conflict is an error.
func mergeSchemas(a, b map[string]any) (map[string]any, error) {
	props := make(map[string]any)
	for k, v := range schemaProperties(a) {
		props[k] = v
	}
	for k, v := range schemaProperties(b) {
		existing, ok := props[k]
		if !ok {
			props[k] = v
			continue
		}
		merged, err := mergeTypes(firstType(existing), firstType(v))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		props[k] = map[string]any{"type": merged}
	}
	return newObjectSchema(props), nil
}

func firstType(prop any) string {
	types := schemaTypes(prop)
	if len(types) == 0 {
		return typeNull
	}
	return types[0]
}

func mergeTypes(a, b string) (string, error) {
	switch {
	case a == b:
		return a, nil
	case a == typeNull:
		return b, nil
	case b == typeNull:
		return a, nil
	case (a == typeInteger && b == typeNumber) || (a == typeNumber && b == typeInteger):
		return typeNumber, nil
	default:
		return "", fmt.Errorf("incompatible types %q and %q", a, b)
	}
}

// conformsToSchema reports whether every field of record is declared by
// schema with a compatible type. A schema without properties accepts any
// record. Null values conform to every type.
func conformsToSchema(record map[string]any, schema map[string]any) bool {
	props := schemaProperties(schema)
	if props == nil {
		return true
	}
	for k, v := range record {
		prop, ok := props[k]
		if !ok {
			return false
		}
		types := schemaTypes(prop)
		if len(types) == 0 {
			continue
		}
		t := valueType(v)
		if t == typeNull || slices.Contains(types, t) {
			continue
		}
		if t == typeInteger && slices.Contains(types, typeNumber) {
			continue
		}
		return false
	}
	return true
}

// parseInputSchema parses a user-provided JSON schema. A schema with only
// properties is accepted as shorthand for an object schema.
func parseInputSchema(raw string) (map[string]any, error) {
	var schema map[string]any
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, err
	}
	if _, ok := schema["properties"]; ok {
		return schema, nil
	}
	// {"col": "string"} shorthand
	props := make(map[string]any, len(schema))
	for k, v := range schema {
		t, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected a type name, got %T", k, v)
		}
		props[k] = map[string]any{"type": t}
	}
	return newObjectSchema(props), nil
}
