package llm

import (
	"strconv"
	"strings"
)

// AsString coerces a decoded JSON value into trimmed text.
// ok is false for null, empty strings, objects and arrays.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return "", false
		}
		return s, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		if t {
			return "yes", true
		}
		return "no", true
	default:
		return "", false
	}
}

// AsStringList coerces a decoded JSON value into a list of non-empty strings.
// A single scalar becomes a one-element list. ok is false for anything else.
func AsStringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := AsString(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	case nil:
		return nil, false
	default:
		if s, ok := AsString(t); ok {
			return []string{s}, true
		}
		return nil, false
	}
}

// Field reads key from m as text.
func Field(m map[string]any, key string) (string, bool) {
	v, present := m[key]
	if !present {
		return "", false
	}
	return AsString(v)
}

// FieldPtr is Field returning nil when the key is absent or blank.
func FieldPtr(m map[string]any, key string) *string {
	if s, ok := Field(m, key); ok {
		return &s
	}
	return nil
}

// SplitList parses a free-text list answer: a JSON array if one is present,
// otherwise one item per line, otherwise comma separated.
func SplitList(raw string) []string {
	if arr, err := DecodeArray(raw); err == nil {
		if out, ok := AsStringList(arr); ok {
			return out
		}
	}

	var parts []string
	if strings.Contains(raw, "\n") {
		parts = strings.Split(raw, "\n")
	} else {
		parts = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "-*• ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseYes interprets yes/true/y/1 (any case) as true.
func ParseYes(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "y", "1":
		return true
	}
	return false
}
