package fields

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// SingleString asks for one verbatim value. ok is false when the model
// reports NOT_FOUND, apologizes instead of answering or the query fails.
func (e *Extractor) SingleString(ctx context.Context, content, field, hint string) (string, bool) {
	answer := e.ask(ctx, field, singleFieldPrompt(field, "string", hint, content))
	if noValue(answer) {
		return "", false
	}
	return strings.TrimSpace(answer), true
}

// SingleList asks for a list value. The answer is read as a JSON array when
// it holds one, otherwise split on newlines, otherwise on commas.
func (e *Extractor) SingleList(ctx context.Context, content, field, hint string) ([]string, bool) {
	answer := e.ask(ctx, field, singleFieldPrompt(field, "array", hint, content))
	if noValue(answer) {
		return nil, false
	}
	return llm.SplitList(answer), true
}

// SingleBool asks a yes/no question; yes, true, y and 1 count as true.
func (e *Extractor) SingleBool(ctx context.Context, content, field, hint string) (bool, bool) {
	answer := e.ask(ctx, field, singleFieldPrompt(field, "boolean", hint, content))
	if noValue(answer) {
		return false, false
	}
	return llm.ParseYes(answer), true
}

func noValue(answer string) bool {
	return llm.IsNotFound(answer) || llm.IsRefusal(answer)
}
