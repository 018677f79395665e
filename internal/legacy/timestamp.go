package legacy

import (
	"strings"
	"time"
)

// ISOLayout matches the millisecond UTC form the legacy platform stored in JSON documents.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	ISOLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is the document store's exported timestamp wrapper ({"_seconds", "_nanoseconds"}).
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// Time converts the wrapper to a native UTC time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

// TimestampFromMap recognises the exported wrapper shape. Both keys must be present and
// nothing else may be, so ordinary maps that happen to carry a _seconds key are left alone.
func TimestampFromMap(m map[string]any) (Timestamp, bool) {
	if len(m) != 2 {
		return Timestamp{}, false
	}
	secs, ok := integral(m["_seconds"])
	if !ok {
		return Timestamp{}, false
	}
	nanos, ok := integral(m["_nanoseconds"])
	if !ok || nanos < 0 || nanos >= int64(time.Second) {
		return Timestamp{}, false
	}
	return Timestamp{Seconds: secs, Nanos: int32(nanos)}, true
}

// TimestampKind tags how a timestamp-like value is represented.
type TimestampKind int

const (
	KindAbsent TimestampKind = iota
	// KindNative covers time.Time and the exported wrapper, both convertible without parsing.
	KindNative
	// KindISO is a string that still has to be parsed.
	KindISO
	// KindOpaque is anything else; it never converts.
	KindOpaque
)

// Classify tags v without converting it.
func Classify(v any) TimestampKind {
	switch val := v.(type) {
	case nil:
		return KindAbsent
	case time.Time, Timestamp:
		return KindNative
	case *time.Time:
		if val == nil {
			return KindAbsent
		}
		return KindNative
	case *Timestamp:
		if val == nil {
			return KindAbsent
		}
		return KindNative
	case string:
		return KindISO
	default:
		return KindOpaque
	}
}

// CoerceTimestamp converts v into a UTC time. It reports false for absent, opaque,
// zero, or unparseable input and never panics.
func CoerceTimestamp(v any) (time.Time, bool) {
	var t time.Time
	switch Classify(v) {
	case KindNative:
		t = nativeTime(v)
	case KindISO:
		parsed, ok := parseISO(v.(string))
		if !ok {
			return time.Time{}, false
		}
		t = parsed
	default:
		return time.Time{}, false
	}
	if t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FormatISO renders t the way the legacy platform serialised dates.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

func nativeTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		return *val
	case Timestamp:
		return val.Time()
	case *Timestamp:
		return val.Time()
	}
	return time.Time{}
}

func parseISO(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func integral(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
