package llm

import (
	"context"
	"strings"
)

// QueryFailed is returned in place of an answer when the completion call
// fails for any reason. Callers compare against it; Query never errors.
const QueryFailed = "Error in GPT query"

// Querier is the interface the field extractors depend on.
type Querier interface {
	Query(ctx context.Context, prompt, system string) string
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, prompt, system string) string

func (f QuerierFunc) Query(ctx context.Context, prompt, system string) string {
	return f(ctx, prompt, system)
}

// Failed reports whether an answer is the failure sentinel.
func Failed(answer string) bool {
	return strings.TrimSpace(answer) == QueryFailed
}
