package fields

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// Eligibility extracts the criteria verbatim, then classifies gender, ages and
// healthy volunteers from the criteria text alone. Classified values outside
// the allow-lists leave the defaults in place.
func (e *Extractor) Eligibility(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	elig := &entity.Eligibility{
		Criteria:          constants.NotProvided,
		Gender:            constants.DefaultGender,
		MinimumAge:        constants.DefaultMinimumAge,
		MaximumAge:        constants.DefaultMaximumAge,
		HealthyVolunteers: constants.DefaultHealthyVolunteers,
	}
	frag := &entity.ClinicalRecord{Eligibility: elig}

	criteria := strings.TrimSpace(e.ask(ctx, "eligibility.criteria", llm.BuildPrompt(criteriaPrompt, content)))
	if criteria == "" || llm.Failed(criteria) || llm.IsRefusal(criteria) {
		d.Fallback("eligibility", "criteria not extracted, using defaults")
		return frag
	}
	elig.Criteria = criteria

	m, ok := e.askObject(ctx, "eligibility.details", eligibilityDetailsPrompt+criteria,
		eligibilitySchema, eligibilitySanitizer, d)
	if !ok {
		d.Fallback("eligibility", "details answer unusable, using defaults")
		return frag
	}

	if g, present := llm.Field(m, "gender"); present {
		if canon, allowed := oneOf(g, constants.AllowedGenders); allowed {
			elig.Gender = canon
		} else {
			d.Note("eligibility: gender %q not recognized", g)
		}
	}
	if v, present := llm.Field(m, "minimum_age"); present {
		elig.MinimumAge = v
	}
	if v, present := llm.Field(m, "maximum_age"); present {
		elig.MaximumAge = v
	}
	if hv, present := llm.Field(m, "healthy_volunteers"); present {
		if canon, allowed := oneOf(hv, constants.AllowedHealthyVolunteers); allowed {
			elig.HealthyVolunteers = canon
		} else {
			d.Note("eligibility: healthy_volunteers %q not recognized", hv)
		}
	}
	return frag
}
