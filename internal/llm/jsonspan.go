package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON value in answer")

// ExtractJSONSpan returns the text between the first open and the last close
// delimiter, inclusive. ok is false when no open delimiter exists or the last
// close precedes it; the trimmed input is returned in that case.
func ExtractJSONSpan(raw string, open, close byte) (string, bool) {
	s := strings.TrimSpace(raw)
	start := strings.IndexByte(s, open)
	if start < 0 {
		return s, false
	}
	end := strings.LastIndexByte(s, close)
	if end < start {
		return s[start:], false
	}
	return s[start : end+1], true
}

// DecodeObject parses the first {...} span of an answer.
func DecodeObject(raw string) (map[string]any, error) {
	span, ok := ExtractJSONSpan(raw, '{', '}')
	if !ok {
		return nil, ErrNoJSON
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(span), &m); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if m == nil {
		return nil, ErrNoJSON
	}
	return m, nil
}

// DecodeArray parses the first [...] span of an answer.
func DecodeArray(raw string) ([]any, error) {
	span, ok := ExtractJSONSpan(raw, '[', ']')
	if !ok {
		return nil, ErrNoJSON
	}
	var arr []any
	if err := json.Unmarshal([]byte(span), &arr); err != nil {
		return nil, fmt.Errorf("decode array: %w", err)
	}
	if arr == nil {
		return nil, ErrNoJSON
	}
	return arr, nil
}
