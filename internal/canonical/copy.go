package canonical

// DeepCopy returns a copy of v that shares no mutable containers with it.
// Maps and slices of the shapes produced by YAML and JSON decoding are copied
// recursively; any other value is returned as is.
func DeepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = DeepCopy(elem)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, elem := range val {
			out[i] = CopyMap(elem)
		}
		return out
	case [][]any:
		out := make([][]any, len(val))
		for i, row := range val {
			out[i] = DeepCopy(row).([]any)
		}
		return out
	case [][]string:
		out := make([][]string, len(val))
		for i, row := range val {
			out[i] = append([]string(nil), row...)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case []byte:
		return append([]byte(nil), val...)
	default:
		return v
	}
}

// CopyMap deep-copies a generic map. A nil map stays nil.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = DeepCopy(v)
	}
	return out
}
