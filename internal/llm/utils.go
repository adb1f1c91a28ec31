package llm

import (
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/constants"
)

// IsRefusal reports whether an answer opens with an apology instead of content.
func IsRefusal(answer string) bool {
	s := strings.TrimSpace(answer)
	for _, p := range constants.RefusalPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether a single-field answer carries no value:
// the failure sentinel, an answer opening with the NOT_FOUND marker or
// nothing at all. A value that merely mentions the marker is kept.
func IsNotFound(answer string) bool {
	s := strings.Trim(strings.TrimSpace(answer), "\"'`")
	return s == "" || s == QueryFailed || strings.HasPrefix(s, constants.NotFoundMarker)
}

// Truncate shortens s to at most n bytes for logging.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
