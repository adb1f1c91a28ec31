package fields

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// Outcomes extracts the primary or secondary outcome measures. An array answer
// that cannot be decoded switches to the counting protocol: ask how many
// measures exist, then ask for each measure's name, time frame and
// description separately. No outcomes leaves the field absent.
func (e *Extractor) Outcomes(ctx context.Context, content string, kind constants.OutcomeKind, d *Diagnostics) *entity.ClinicalRecord {
	group := string(kind) + "_outcomes"
	frag := &entity.ClinicalRecord{}

	answer := e.ask(ctx, group, llm.BuildPrompt(outcomesPrompt(kind), content))
	if llm.Failed(answer) {
		d.Fallback(group, "query failed, no outcomes")
		return frag
	}

	var outcomes []entity.Outcome
	if arr, err := llm.DecodeArray(answer); err == nil {
		outcomes = e.outcomesFromArray(group, arr, d)
	} else {
		e.logger.Warn("fields.outcomes.fallback",
			"kind", kind,
			"error", err,
			"answer", llm.Truncate(answer, 200),
		)
		d.Fallback(group, "array answer unusable, counting outcomes one by one")
		outcomes = e.countOutcomes(ctx, content, kind, d)
	}

	if len(outcomes) == 0 {
		return frag
	}
	switch kind {
	case constants.SecondaryOutcome:
		frag.SecondaryOutcomes = outcomes
	default:
		frag.PrimaryOutcomes = outcomes
	}
	return frag
}

func (e *Extractor) outcomesFromArray(group string, arr []any, d *Diagnostics) []entity.Outcome {
	out := make([]entity.Outcome, 0, len(arr))
	for i, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			d.Note("%s: item %d is not an object", group, i+1)
			continue
		}
		outcomeSanitizer.Sanitize(m, e.logger)
		e.checkShape(group, outcomeSchema, m, d)

		measure, ok := llm.Field(m, "outcome_measure")
		if !ok {
			d.Note("%s: item %d has no measure, skipped", group, i+1)
			continue
		}
		out = append(out, entity.Outcome{
			Measure:     measure,
			TimeFrame:   llm.FieldPtr(m, "outcome_time_frame"),
			Description: llm.FieldPtr(m, "outcome_description"),
		})
	}
	return out
}

func (e *Extractor) countOutcomes(ctx context.Context, content string, kind constants.OutcomeKind, d *Diagnostics) []entity.Outcome {
	group := string(kind) + "_outcomes"

	countAnswer := e.ask(ctx, group+".count", llm.BuildPrompt(outcomeCountPrompt(kind), content))
	if llm.Failed(countAnswer) {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, countAnswer)
	if digits == "" {
		d.Note("%s: could not determine how many outcomes exist", group)
		return nil
	}

	count, err := strconv.Atoi(digits)
	if err != nil || count > e.cfg.MaxCountedOutcomes {
		e.logger.Warn("fields.outcomes.count_clamped",
			"kind", kind,
			"reported", digits,
			"limit", e.cfg.MaxCountedOutcomes,
		)
		d.Note("%s: reported count %s clamped to %d", group, digits, e.cfg.MaxCountedOutcomes)
		count = e.cfg.MaxCountedOutcomes
	}
	e.logger.Info("fields.outcomes.count", "kind", kind, "count", count)

	var out []entity.Outcome
	for i := 1; i <= count; i++ {
		measure := strings.TrimSpace(e.ask(ctx, group+".measure", llm.BuildPrompt(outcomeMeasurePrompt(kind, i), content)))
		if measure == "" || llm.Failed(measure) || llm.IsRefusal(measure) {
			d.Note("%s: measure #%d not found, skipped", group, i)
			continue
		}
		timeFrame := e.ask(ctx, group+".time_frame", llm.BuildPrompt(outcomeTimeFramePrompt(kind, i, measure), content))
		description := e.ask(ctx, group+".description", llm.BuildPrompt(outcomeDescriptionPrompt(kind, i, measure), content))

		out = append(out, entity.Outcome{
			Measure:     measure,
			TimeFrame:   entity.Str(specifiedOrNot(timeFrame)),
			Description: entity.Str(specifiedOrNot(description)),
		})
	}
	return out
}

// specifiedOrNot replaces first-person answers ("I could not find...") and
// failed queries with "Not specified".
func specifiedOrNot(answer string) string {
	s := strings.TrimSpace(answer)
	if s == "" || llm.Failed(s) || llm.IsRefusal(s) ||
		s == "I" || strings.HasPrefix(s, "I ") || strings.HasPrefix(s, "I'") {
		return constants.NotSpecified
	}
	return s
}
