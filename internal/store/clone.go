package store

// CloneValue deep-copies a document value. Maps and slices are copied
// recursively; scalars (including numbers kept as their original Go type)
// pass through unchanged. Unknown composite types pass through by
// reference, which is acceptable for the JSON-shaped values the core
// stores.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return Document(cloneMap(t))
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// Clone deep-copies a document. A nil document clones to nil.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneMap(d))
}

func cloneMap[M ~map[string]any](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}
