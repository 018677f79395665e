package firestore

import (
	"cloud.google.com/go/firestore"
)

// convertMap replaces Firestore-specific value types with plain values the field normalizer
// understands. Timestamps already arrive as time.Time and are kept.
func convertMap(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = convertValue(v)
	}
	return out
}

func convertValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return convertMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertValue(item)
		}
		return out
	case *firestore.DocumentRef:
		if val == nil {
			return nil
		}
		return val.Path
	default:
		return v
	}
}
