package llm

import (
	"log/slog"
	"maps"
	"strings"
)

// Sanitizer cleans a decoded answer object before it is validated and read.
type Sanitizer struct {
	// Allowed lists the keys kept; nil keeps every key.
	Allowed []string
	// Synonyms renames keys the model sometimes invents (from -> to).
	Synonyms map[string]string
}

// Sanitize modifies m in place:
//   - renames known synonyms without overwriting an existing value
//   - drops null and blank-string values
//   - trims strings
//   - removes keys outside Allowed
//
// It returns the list of changes for logging.
func (s Sanitizer) Sanitize(m map[string]any, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		return nil
	}

	dropped := make([]string, 0, 4)

	for from, to := range s.Synonyms {
		v, ok := m[from]
		if !ok {
			continue
		}
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		delete(m, from)
		dropped = append(dropped, from+"->"+to)
	}

	for k, v := range maps.Clone(m) {
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case string:
			trimmed := strings.TrimSpace(t)
			if trimmed == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = trimmed
			}
		}
	}

	if s.Allowed != nil {
		allowed := make(map[string]struct{}, len(s.Allowed))
		for _, k := range s.Allowed {
			allowed[k] = struct{}{}
		}
		for k := range maps.Clone(m) {
			if _, ok := allowed[k]; !ok {
				delete(m, k)
				dropped = append(dropped, k+"(unknown)")
			}
		}
	}

	if len(dropped) > 0 {
		logger.Debug("llm.answer.sanitize", "changes", dropped)
	}
	return dropped
}
