package constants

import (
	"strings"
)

type StudyType string

const (
	Interventional StudyType = "Interventional"
	Observational  StudyType = "Observational"
	ExpandedAccess StudyType = "Expanded Access"
)

var allStudyTypes = []StudyType{
	Interventional,
	Observational,
	ExpandedAccess,
}

func StudyTypesAsStringSlice() []string {
	result := make([]string, len(allStudyTypes))
	for i, st := range allStudyTypes {
		result[i] = string(st)
	}
	return result
}

// CanonicalizeStudyType maps a model answer onto a known study type.
// Unrecognized answers map to Interventional with ok=false.
func CanonicalizeStudyType(input string) (StudyType, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Interventional, false
	}

	normalized := strings.ToLower(trimmed)

	synonyms := map[string]StudyType{
		"interventional study":              Interventional,
		"clinical trial":                    Interventional,
		"randomized controlled trial":       Interventional,
		"observational study":               Observational,
		"observational [patient registry]":  Observational,
		"observational (patient registry)":  Observational,
		"patient registry":                  Observational,
		"cohort study":                      Observational,
		"case-control study":                Observational,
		"expanded access program":           ExpandedAccess,
		"expanded-access":                   ExpandedAccess,
	}
	if st, ok := synonyms[normalized]; ok {
		return st, true
	}

	for _, st := range allStudyTypes {
		if normalized == strings.ToLower(string(st)) {
			return st, true
		}
	}

	return Interventional, false
}

// Allowed values for eligibility fields taken verbatim from model answers.
var (
	AllowedGenders           = []string{"All", "Female", "Male"}
	AllowedHealthyVolunteers = []string{"Yes", "No"}
)

// OutcomeKind selects primary or secondary outcome extraction.
type OutcomeKind string

const (
	PrimaryOutcome   OutcomeKind = "primary"
	SecondaryOutcome OutcomeKind = "secondary"
)
