package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bool interprets common truthy spellings.
func Bool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

// Float returns NaN when v is not a number or a numeric string.
func Float(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// Int rounds v to the nearest integer, returning def when v is not numeric.
// Values beyond the int32 range saturate.
func Int(v any, def int) int {
	f := Float(v)
	switch {
	case math.IsNaN(f):
		return def
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Round(f))
}

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// String flattens v into a trimmed string.
func String(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// Strings turns a list of strings or objects into non-empty strings. Objects
// contribute the first non-empty value among keys.
func Strings(v any, keys ...string) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
		return []string{}
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			var s string
			if obj, ok := item.(map[string]any); ok {
				s = String(First(obj, keys...))
			} else {
				s = String(item)
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// First returns the first present, non-empty value among keys.
func First(rec map[string]any, keys ...string) any {
	for _, key := range keys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

// Object returns rec[key] as a map when it is one.
func Object(rec map[string]any, key string) (map[string]any, bool) {
	obj, ok := rec[key].(map[string]any)
	return obj, ok
}
