package fields

import (
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// Shapes expected from structured answers. A mismatch is noted for review;
// the lenient readers still take whatever usable values are present.
var (
	titlesSchema = llm.MustCompileSchema("titles", llm.ObjectSchema(
		[]string{"brief_title", "official_title"},
		map[string]any{
			"brief_title":    llm.ScalarProp(),
			"official_title": llm.ScalarProp(),
			"acronym":        llm.ScalarProp(),
		},
	))

	designSchema = llm.MustCompileSchema("design", llm.ObjectSchema(
		[]string{"study_type"},
		map[string]any{
			"study_type":      llm.EnumProp("Interventional", "Observational", "Expanded Access"),
			"phase":           llm.ScalarProp(),
			"primary_purpose": llm.ScalarProp(),
		},
	))

	maskingSchema = llm.MustCompileSchema("masking", llm.ObjectSchema(nil, map[string]any{
		"no_masking":          llm.ScalarProp(),
		"masked_subject":      llm.ScalarProp(),
		"masked_caregiver":    llm.ScalarProp(),
		"masked_investigator": llm.ScalarProp(),
		"masked_assessor":     llm.ScalarProp(),
		"description":         llm.ScalarProp(),
	}))

	observationalSchema = llm.MustCompileSchema("observational", llm.ObjectSchema(
		[]string{"observational_study_design", "timing"},
		map[string]any{
			"observational_study_design": llm.ScalarProp(),
			"timing":                     llm.ScalarProp(),
			"biospecimen_retention":      llm.ScalarProp(),
			"biospecimen_description":    llm.ScalarProp(),
			"number_of_groups":           llm.ScalarProp(),
			"patient_registry":           llm.ScalarProp(),
			"target_duration_quantity":   llm.ScalarProp(),
			"target_duration_units":      llm.ScalarProp(),
		},
	))

	eligibilitySchema = llm.MustCompileSchema("eligibility", llm.ObjectSchema(nil, map[string]any{
		"gender":             llm.EnumProp("All", "Female", "Male"),
		"minimum_age":        llm.ScalarProp(),
		"maximum_age":        llm.ScalarProp(),
		"healthy_volunteers": llm.ScalarProp(),
	}))

	outcomeSchema = llm.MustCompileSchema("outcome", llm.ObjectSchema(
		[]string{"outcome_measure"},
		map[string]any{
			"outcome_measure":     llm.ScalarProp(),
			"outcome_time_frame":  llm.ScalarProp(),
			"outcome_description": llm.ScalarProp(),
		},
	))

	armGroupSchema = llm.MustCompileSchema("arm_group", llm.ObjectSchema(
		[]string{"arm_group_label"},
		map[string]any{
			"arm_group_label":       llm.ScalarProp(),
			"arm_type":              llm.ScalarProp(),
			"arm_group_description": llm.ScalarProp(),
		},
	))

	interventionSchema = llm.MustCompileSchema("intervention", llm.ObjectSchema(
		[]string{"intervention_name"},
		map[string]any{
			"intervention_type":        llm.ScalarProp(),
			"intervention_name":        llm.ScalarProp(),
			"intervention_description": llm.ScalarProp(),
			"arm_group_label":          llm.StringListProp(),
			"intervention_other_name":  llm.StringListProp(),
		},
	))

	sponsorsSchema = llm.MustCompileSchema("sponsors", llm.ObjectSchema(
		[]string{"lead_sponsor"},
		map[string]any{
			"lead_sponsor":             llm.ScalarProp(),
			"collaborators":            llm.StringListProp(),
			"responsible_party_type":   llm.ScalarProp(),
			"investigator_title":       llm.ScalarProp(),
			"investigator_affiliation": llm.ScalarProp(),
		},
	))

	detailsSchema = llm.MustCompileSchema("details", llm.ObjectSchema(nil, map[string]any{
		"enrollment":               llm.ScalarProp(),
		"enrollment_type":          llm.ScalarProp(),
		"overall_status":           llm.ScalarProp(),
		"start_date":               llm.ScalarProp(),
		"start_date_type":          llm.ScalarProp(),
		"primary_compl_date":       llm.ScalarProp(),
		"primary_compl_date_type":  llm.ScalarProp(),
		"last_follow_up_date":      llm.ScalarProp(),
		"last_follow_up_date_type": llm.ScalarProp(),
		"conditions":               llm.StringListProp(),
		"keywords":                 llm.StringListProp(),
	}))

	summarySchema = llm.MustCompileSchema("summary", llm.ObjectSchema(nil, map[string]any{
		"brief_summary":        llm.ScalarProp(),
		"detailed_description": llm.ScalarProp(),
	}))
)

// Sanitizers restrict each answer to its documented keys and fold in the
// spellings models commonly use instead.
var (
	titlesSanitizer = llm.Sanitizer{
		Allowed:  []string{"brief_title", "official_title", "acronym"},
		Synonyms: map[string]string{"short_title": "brief_title", "title": "official_title", "full_title": "official_title"},
	}
	designSanitizer = llm.Sanitizer{
		Allowed:  []string{"study_type", "phase", "primary_purpose"},
		Synonyms: map[string]string{"study_phase": "phase", "purpose": "primary_purpose"},
	}
	maskingSanitizer = llm.Sanitizer{
		Allowed: []string{"no_masking", "masked_subject", "masked_caregiver", "masked_investigator", "masked_assessor", "description"},
		Synonyms: map[string]string{
			"masking_description":      "description",
			"masked_participant":       "masked_subject",
			"masked_outcomes_assessor": "masked_assessor",
		},
	}
	observationalSanitizer = llm.Sanitizer{
		Allowed: []string{
			"observational_study_design", "timing", "biospecimen_retention", "biospecimen_description",
			"number_of_groups", "patient_registry", "target_duration_quantity", "target_duration_units",
		},
		Synonyms: map[string]string{"study_design": "observational_study_design", "time_perspective": "timing"},
	}
	eligibilitySanitizer = llm.Sanitizer{
		Allowed:  []string{"gender", "minimum_age", "maximum_age", "healthy_volunteers"},
		Synonyms: map[string]string{"sex": "gender", "min_age": "minimum_age", "max_age": "maximum_age"},
	}
	outcomeSanitizer = llm.Sanitizer{
		Allowed:  []string{"outcome_measure", "outcome_time_frame", "outcome_description"},
		Synonyms: map[string]string{"measure": "outcome_measure", "time_frame": "outcome_time_frame", "description": "outcome_description"},
	}
	armGroupSanitizer = llm.Sanitizer{
		Allowed:  []string{"arm_group_label", "arm_type", "arm_group_description"},
		Synonyms: map[string]string{"label": "arm_group_label", "type": "arm_type", "description": "arm_group_description"},
	}
	interventionSanitizer = llm.Sanitizer{
		Allowed: []string{"intervention_type", "intervention_name", "intervention_description", "arm_group_label", "intervention_other_name"},
		Synonyms: map[string]string{
			"name":                     "intervention_name",
			"type":                     "intervention_type",
			"description":              "intervention_description",
			"arm_group_labels":         "arm_group_label",
			"other_names":              "intervention_other_name",
			"intervention_other_names": "intervention_other_name",
		},
	}
	sponsorsSanitizer = llm.Sanitizer{
		Allowed: []string{"lead_sponsor", "collaborators", "responsible_party_type", "investigator_title", "investigator_affiliation"},
		Synonyms: map[string]string{
			"sponsor":         "lead_sponsor",
			"resp_party_type": "responsible_party_type",
			"collaborator":    "collaborators",
		},
	}
	detailsSanitizer = llm.Sanitizer{
		Allowed: []string{
			"enrollment", "enrollment_type", "overall_status", "start_date", "start_date_type",
			"primary_compl_date", "primary_compl_date_type", "last_follow_up_date", "last_follow_up_date_type",
			"conditions", "keywords",
		},
		Synonyms: map[string]string{"primary_completion_date": "primary_compl_date", "primary_completion_date_type": "primary_compl_date_type", "status": "overall_status"},
	}
	summarySanitizer = llm.Sanitizer{
		Allowed:  []string{"brief_summary", "detailed_description"},
		Synonyms: map[string]string{"summary": "brief_summary", "description": "detailed_description"},
	}
)
