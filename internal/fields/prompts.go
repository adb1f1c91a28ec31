package fields

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/constants"
)

// singleFieldPrompt asks for one value, verbatim, with the NOT_FOUND contract.
func singleFieldPrompt(field, kind, hint, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the %s from this clinical trial protocol text.\n\n", field)
	if hint != "" {
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Return ONLY the exact %s content of the %s, with no additional text, explanations, or commentary.\n", kind, field)
	b.WriteString("Return the information VERBATIM as it appears in the document, not summarized.\n")
	fmt.Fprintf(&b, "If the information is not found, respond with %q.\n\n", constants.NotFoundMarker)
	b.WriteString("Here is the text:\n")
	b.WriteString(content)
	return b.String()
}

const titlesPrompt = `Extract the EXACT official title and brief title of this clinical trial protocol.

Return ONLY a JSON object with these fields:
- brief_title: the short title of the study (usually shorter)
- official_title: the full, complete title of the study (usually longer)
- acronym: the study acronym or abbreviation if present (or null if none)

Do not include any text outside the JSON object.`

const designPrompt = `Extract the study type and phase information from this clinical trial protocol.

Return ONLY a JSON object with these fields:
- study_type: either "Interventional", "Observational", or "Expanded Access"
- phase: the study phase (e.g. "Phase 1", "Phase 2", "Phase 1/2", "N/A")
- primary_purpose: for interventional studies, the primary purpose (e.g. "Treatment", "Prevention")

Do not include any text outside the JSON object.`

const maskingPrompt = `Extract the masking/blinding information from this clinical trial protocol.

Return ONLY a JSON object with these fields:
- no_masking: "yes" if the study has no masking/blinding, "no" if it has some form of masking
- masked_subject: "yes" if subjects are masked, "no" if not (if applicable)
- masked_caregiver: "yes" if caregivers are masked, "no" if not (if applicable)
- masked_investigator: "yes" if investigators are masked, "no" if not (if applicable)
- masked_assessor: "yes" if outcome assessors are masked, "no" if not (if applicable)
- description: how masking was performed (if applicable)

Only include fields that are relevant and can be determined from the protocol.`

const observationalPrompt = `Extract the key details for this observational study.

Return ONLY a JSON object with these fields:
- observational_study_design: the model (e.g. "Cohort", "Case-Control", "Case-Only")
- timing: the time perspective (e.g. "Retrospective", "Prospective", "Cross-Sectional")
- biospecimen_retention: whether biospecimens are retained (e.g. "None Retained", "Samples With DNA")
- biospecimen_description: description of biospecimens (if applicable)
- number_of_groups: number of groups/cohorts being studied
- patient_registry: "yes" if this is a patient registry, "no" if not
- target_duration_quantity: for patient registries, the follow-up duration as a number
- target_duration_units: for patient registries, the unit of that duration (e.g. "Years")

Only include fields that are relevant and can be determined from the protocol.`

const criteriaPrompt = `Find and extract the EXACT and COMPLETE eligibility criteria section from this clinical trial protocol.
Include ALL inclusion criteria and ALL exclusion criteria with EXACT text and formatting.
Do not summarize or paraphrase. Extract the VERBATIM text as it appears,
including all bullet points and numbering.

Return ONLY the exact criteria text with no additional explanations or commentary.`

const eligibilityDetailsPrompt = `Based on the eligibility criteria below, extract these specific details.

Return ONLY a JSON object with these fields:
- gender: the gender requirement ("All", "Female", or "Male")
- minimum_age: the minimum age with units (e.g. "18 Years")
- maximum_age: the maximum age with units or "N/A" if no limit
- healthy_volunteers: whether healthy volunteers are eligible ("Yes" or "No")

Do not include any text outside the JSON object.

Eligibility criteria:
`

func outcomesPrompt(kind constants.OutcomeKind) string {
	return fmt.Sprintf(`Your task is to extract all %[1]s outcome measures from this clinical trial protocol.

YOU MUST format your response as a valid JSON array, with each outcome as an object having these exact fields:
- outcome_measure: string
- outcome_time_frame: string
- outcome_description: string

If you cannot find any %[1]s outcomes, return an empty array: []

DO NOT include any explanations, apologies, or text outside the JSON array.`, kind)
}

func outcomeCountPrompt(kind constants.OutcomeKind) string {
	return fmt.Sprintf(`How many distinct %s outcome measures are explicitly defined in this clinical trial protocol?
Return only a single number (e.g. "3"). If none are found, return "0".
DO NOT include any other text, explanations, or apologies.`, kind)
}

func outcomeMeasurePrompt(kind constants.OutcomeKind, n int) string {
	return fmt.Sprintf(`What is the exact name or title of %s outcome measure #%d in this protocol?
Return ONLY the name/title text with no additional explanation.`, kind, n)
}

func outcomeTimeFramePrompt(kind constants.OutcomeKind, n int, measure string) string {
	return fmt.Sprintf(`What is the time frame specified for %s outcome measure #%d (titled: %s) in this protocol?
Return ONLY the time frame with no additional explanation.`, kind, n, measure)
}

func outcomeDescriptionPrompt(kind constants.OutcomeKind, n int, measure string) string {
	return fmt.Sprintf(`What is the full description of how %s outcome measure #%d (titled: %s) is assessed in this protocol?
Return ONLY the description with no additional explanation.`, kind, n, measure)
}

const armGroupsPrompt = `Extract all study arms/groups from this clinical trial protocol.

Return ONLY a JSON array where each object has these fields:
- arm_group_label: the name or label of the arm/group
- arm_type: the type of arm (e.g. "Experimental", "Active Comparator", "Placebo Comparator")
- arm_group_description: a description of what happens in this arm

If you cannot find arm group information, return an empty array: []

Do not include any text outside the JSON array.`

const interventionsPrompt = `Extract all interventions from this clinical trial protocol.

Return ONLY a JSON array where each object has these fields:
- intervention_type: the type (e.g. "Drug", "Device", "Biological/Vaccine")
- intervention_name: the name of the intervention
- intervention_description: a description of the intervention
- arm_group_label: array of strings with names of arms that receive this intervention
- intervention_other_name: array of strings with alternative names (or empty array)

If you cannot find intervention information, return an empty array: []

Do not include any text outside the JSON array.`

const sponsorsPrompt = `Extract the sponsor information from this clinical trial protocol.

Return ONLY a JSON object with these fields:
- lead_sponsor: the organization name of the primary sponsor
- collaborators: array of organization names of any collaborators
- responsible_party_type: type (e.g. "Sponsor", "Principal Investigator", "Sponsor-Investigator")
- investigator_title: title of the investigator (if applicable)
- investigator_affiliation: affiliation of the investigator (if applicable)

Only include fields that are present in the document.

Do not include any text outside the JSON object.`

const detailsPrompt = `Extract these key study details from the clinical trial protocol.

Return ONLY a JSON object with these fields:
- enrollment: the target enrollment number (numeric value as string)
- enrollment_type: "Anticipated" or "Actual"
- overall_status: study status (e.g. "Not yet recruiting", "Recruiting", "Completed")
- start_date: start date in YYYY-MM format
- start_date_type: "Anticipated" or "Actual"
- primary_compl_date: primary completion date in YYYY-MM format
- primary_compl_date_type: "Anticipated" or "Actual"
- last_follow_up_date: last follow-up date in YYYY-MM format
- last_follow_up_date_type: "Anticipated" or "Actual"
- conditions: array of strings with medical conditions being studied
- keywords: array of strings with relevant keywords

Only include fields that you can find in the document. If information isn't available, omit the field.

Do not include any text outside the JSON object.`

const summaryPrompt = `Extract the brief summary and detailed description of this clinical trial.

Return ONLY a JSON object with these fields:
- brief_summary: a brief summary of the study's purpose and approach (1-3 sentences)
- detailed_description: a more detailed description of the study (if available)

Only include fields that you can find in the document.

Do not include any text outside the JSON object.`
