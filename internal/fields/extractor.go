package fields

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

const DefaultMaxCountedOutcomes = 20

type Config struct {
	// MaxCountedOutcomes caps the item count reported during the outcome
	// counting fallback; each counted item costs three queries.
	MaxCountedOutcomes int
}

// Extractor turns protocol text into record fragments, one field group per
// method. Methods never return errors: unusable answers fall back to
// narrower queries and finally to defaults, and every fallback is written
// to the Diagnostics passed in.
type Extractor struct {
	q      llm.Querier
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(q llm.Querier, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.MaxCountedOutcomes <= 0 {
		cfg.MaxCountedOutcomes = DefaultMaxCountedOutcomes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{q: q, cfg: cfg, logger: logger}
}

// Diagnostics collects what went wrong while assembling one record.
// A nil *Diagnostics discards everything.
type Diagnostics struct {
	Notes     []string `json:"notes,omitempty"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}

func (d *Diagnostics) Note(format string, args ...any) {
	if d == nil {
		return
	}
	d.Notes = append(d.Notes, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) Fallback(group, reason string) {
	if d == nil {
		return
	}
	d.Fallbacks = append(d.Fallbacks, group+": "+reason)
}

// NeedsReview reports whether a human should look at the record.
func (d *Diagnostics) NeedsReview() bool {
	return d != nil && (len(d.Notes) > 0 || len(d.Fallbacks) > 0)
}

// All returns fallbacks followed by notes.
func (d *Diagnostics) All() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Fallbacks)+len(d.Notes))
	out = append(out, d.Fallbacks...)
	return append(out, d.Notes...)
}

// ask sends a prompt with the default system instructions.
func (e *Extractor) ask(ctx context.Context, group, prompt string) string {
	answer := e.q.Query(ctx, prompt, "")
	if llm.Failed(answer) {
		e.logger.Warn("fields.query.failed", "group", group)
	}
	return answer
}

// askObject runs an object-shaped query. ok is false when the answer is the
// failure sentinel or carries no decodable object.
func (e *Extractor) askObject(ctx context.Context, group, prompt string, schema *llm.Schema, san llm.Sanitizer, d *Diagnostics) (map[string]any, bool) {
	answer := e.ask(ctx, group, prompt)
	if llm.Failed(answer) {
		return nil, false
	}
	m, err := llm.DecodeObject(answer)
	if err != nil {
		e.logger.Warn("fields.parse.failed",
			"group", group,
			"error", err,
			"answer", llm.Truncate(answer, 200),
		)
		return nil, false
	}
	san.Sanitize(m, e.logger)
	e.checkShape(group, schema, m, d)
	return m, true
}

// askArray runs an array-shaped query and keeps the object items, each
// sanitized and checked against itemSchema.
func (e *Extractor) askArray(ctx context.Context, group, prompt string, itemSchema *llm.Schema, san llm.Sanitizer, d *Diagnostics) ([]map[string]any, bool) {
	answer := e.ask(ctx, group, prompt)
	if llm.Failed(answer) {
		return nil, false
	}
	arr, err := llm.DecodeArray(answer)
	if err != nil {
		e.logger.Warn("fields.parse.failed",
			"group", group,
			"error", err,
			"answer", llm.Truncate(answer, 200),
		)
		return nil, false
	}
	items := make([]map[string]any, 0, len(arr))
	for i, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			d.Note("%s: item %d is not an object", group, i+1)
			continue
		}
		san.Sanitize(m, e.logger)
		e.checkShape(group, itemSchema, m, d)
		items = append(items, m)
	}
	return items, true
}

func (e *Extractor) checkShape(group string, schema *llm.Schema, v any, d *Diagnostics) {
	if schema == nil {
		return
	}
	if err := schema.Validate(v); err != nil {
		e.logger.Debug("fields.schema.mismatch", "group", group, "error", err)
		d.Note("%s: answer does not match the expected shape", group)
	}
}

// fieldOr reads key from m, returning def when it is absent or blank.
func fieldOr(m map[string]any, key, def string) string {
	if s, ok := llm.Field(m, key); ok {
		return s
	}
	return def
}

// oneOf returns the allowed spelling of v, compared case-insensitively.
func oneOf(v string, allowed []string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a, true
		}
	}
	return "", false
}
