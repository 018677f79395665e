package legacy

import "github.com/zaynrix/trustedvalley-backend/internal/core/domain"

// DeepCoerceTimestamps returns a copy of doc in which every native timestamp, at any depth,
// has been replaced by its ISO string. ISO strings and opaque values pass through unchanged,
// so the result is stable when applied twice.
func DeepCoerceTimestamps(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = coerceValue(v)
	}
	return out
}

func coerceValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCoerceTimestamps(val)
	case domain.Profile:
		return DeepCoerceTimestamps(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = coerceValue(item)
		}
		return out
	}
	if Classify(v) == KindNative {
		if t, ok := CoerceTimestamp(v); ok {
			return FormatISO(t)
		}
		return nil
	}
	return v
}
