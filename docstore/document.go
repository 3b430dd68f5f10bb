package docstore

// Document is a schemaless record stored in a collection.
// Fields values are limited to JSON-compatible types: string, bool,
// float64/int/int64, []any, []string, map[string]any, and nil.
type Document struct {
	// Key is the document identifier, unique within its collection.
	Key string

	// Fields holds the document contents.
	Fields map[string]any
}

// GetString returns the named field as a string, or "" if absent or not a string.
func (d Document) GetString(field string) string {
	v, _ := d.Fields[field].(string)
	return v
}

// GetBool returns the named field as a bool, or false if absent or not a bool.
func (d Document) GetBool(field string) bool {
	v, _ := d.Fields[field].(bool)
	return v
}

// GetInt64 returns the named field as an int64.
// Numeric fields may round-trip through JSON as float64, so all common
// numeric types are accepted. Returns 0 for absent or non-numeric fields.
func (d Document) GetInt64(field string) int64 {
	switch v := d.Fields[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	default:
		return 0
	}
}

// GetStringSlice returns the named field as a []string.
// Accepts both []string and []any with string elements (the latter is what
// JSON decoding produces). Returns nil for absent or non-slice fields.
func (d Document) GetStringSlice(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Has reports whether the named field is present.
func (d Document) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

// Clone returns a deep-enough copy of the document for safe mutation.
// Top-level fields are copied; nested maps and slices are copied one level deep.
func (d Document) Clone() Document {
	fields := make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		switch t := v.(type) {
		case []string:
			cp := make([]string, len(t))
			copy(cp, t)
			fields[k] = cp
		case []any:
			cp := make([]any, len(t))
			copy(cp, t)
			fields[k] = cp
		case map[string]any:
			cp := make(map[string]any, len(t))
			for mk, mv := range t {
				cp[mk] = mv
			}
			fields[k] = cp
		default:
			fields[k] = v
		}
	}
	return Document{Key: d.Key, Fields: fields}
}
