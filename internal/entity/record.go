package entity

// ClinicalRecord is the structured form of one protocol, shaped after the
// ClinicalTrials.gov PRS study record.
//
// Optional scalars and sub-records are pointers. Sequences use nil for
// "not extracted" and a non-nil empty slice for "explicitly empty"; they are
// encoded without omitempty so the difference survives a JSON round-trip.
type ClinicalRecord struct {
	BriefTitle    *string `json:"brief_title,omitempty"`
	OfficialTitle *string `json:"official_title,omitempty"`
	Acronym       *string `json:"acronym,omitempty"`
	OrgStudyID    *string `json:"org_study_id,omitempty"`
	OrgName       *string `json:"org_name,omitempty"`

	StudyDesign *StudyDesign `json:"study_design,omitempty"`
	Eligibility *Eligibility `json:"eligibility,omitempty"`

	PrimaryOutcomes   []Outcome      `json:"primary_outcomes"`
	SecondaryOutcomes []Outcome      `json:"secondary_outcomes"`
	ArmGroups         []ArmGroup     `json:"arm_groups"`
	Interventions     []Intervention `json:"interventions"`

	Sponsors *Sponsors `json:"sponsors,omitempty"`

	Enrollment           *string  `json:"enrollment,omitempty"`
	EnrollmentType       *string  `json:"enrollment_type,omitempty"`
	OverallStatus        *string  `json:"overall_status,omitempty"`
	StartDate            *string  `json:"start_date,omitempty"`
	StartDateType        *string  `json:"start_date_type,omitempty"`
	PrimaryComplDate     *string  `json:"primary_compl_date,omitempty"`
	PrimaryComplDateType *string  `json:"primary_compl_date_type,omitempty"`
	LastFollowUpDate     *string  `json:"last_follow_up_date,omitempty"`
	LastFollowUpDateType *string  `json:"last_follow_up_date_type,omitempty"`
	Conditions           []string `json:"conditions"`
	Keywords             []string `json:"keywords"`

	BriefSummary        *string `json:"brief_summary,omitempty"`
	DetailedDescription *string `json:"detailed_description,omitempty"`
}

// StudyDesign holds the study type and at most one design sub-record.
type StudyDesign struct {
	StudyType      string               `json:"study_type"`
	Interventional *InterventionalDesign `json:"interventional_design,omitempty"`
	Observational  *ObservationalDesign  `json:"observational_design,omitempty"`
}

type InterventionalDesign struct {
	Subtype    string   `json:"interventional_subtype"`
	Phase      string   `json:"phase"`
	Assignment *string  `json:"assignment,omitempty"`
	Allocation string   `json:"allocation"`
	Masking    *Masking `json:"masking,omitempty"`
}

// Masking flags are rendered only when present.
type Masking struct {
	NoMasking          *string `json:"no_masking,omitempty"`
	MaskedSubject      *string `json:"masked_subject,omitempty"`
	MaskedCaregiver    *string `json:"masked_caregiver,omitempty"`
	MaskedInvestigator *string `json:"masked_investigator,omitempty"`
	MaskedAssessor     *string `json:"masked_assessor,omitempty"`
	Description        *string `json:"description,omitempty"`
}

type ObservationalDesign struct {
	StudyDesign            string  `json:"observational_study_design"`
	Timing                 string  `json:"timing"`
	BiospecimenRetention   string  `json:"biospecimen_retention"`
	BiospecimenDescription *string `json:"biospecimen_description,omitempty"`
	NumberOfGroups         string  `json:"number_of_groups"`
	PatientRegistry        *string `json:"patient_registry,omitempty"`
	TargetDurationQuantity *string `json:"target_duration_quantity,omitempty"`
	TargetDurationUnits    *string `json:"target_duration_units,omitempty"`
}

type Eligibility struct {
	Criteria          string `json:"criteria"`
	Gender            string `json:"gender"`
	MinimumAge        string `json:"minimum_age"`
	MaximumAge        string `json:"maximum_age"`
	HealthyVolunteers string `json:"healthy_volunteers"`
}

type Outcome struct {
	Measure     string  `json:"outcome_measure"`
	TimeFrame   *string `json:"outcome_time_frame,omitempty"`
	Description *string `json:"outcome_description,omitempty"`
}

type ArmGroup struct {
	Label       string  `json:"arm_group_label"`
	Type        *string `json:"arm_type,omitempty"`
	Description *string `json:"arm_group_description,omitempty"`
}

type Intervention struct {
	Type           *string  `json:"intervention_type,omitempty"`
	Name           string   `json:"intervention_name"`
	Description    *string  `json:"intervention_description,omitempty"`
	ArmGroupLabels []string `json:"arm_group_label,omitempty"`
	OtherNames     []string `json:"intervention_other_name,omitempty"`
}

type Sponsors struct {
	LeadSponsor      string            `json:"lead_sponsor"`
	Collaborators    []string          `json:"collaborators,omitempty"`
	ResponsibleParty *ResponsibleParty `json:"resp_party,omitempty"`
}

type ResponsibleParty struct {
	Type                    *string `json:"resp_party_type,omitempty"`
	InvestigatorTitle       *string `json:"investigator_title,omitempty"`
	InvestigatorAffiliation *string `json:"investigator_affiliation,omitempty"`
}

// Merge copies every field set on frag into r. Later fragments win.
func (r *ClinicalRecord) Merge(frag *ClinicalRecord) {
	if frag == nil {
		return
	}
	setStr(&r.BriefTitle, frag.BriefTitle)
	setStr(&r.OfficialTitle, frag.OfficialTitle)
	setStr(&r.Acronym, frag.Acronym)
	setStr(&r.OrgStudyID, frag.OrgStudyID)
	setStr(&r.OrgName, frag.OrgName)

	if frag.StudyDesign != nil {
		r.StudyDesign = frag.StudyDesign
	}
	if frag.Eligibility != nil {
		r.Eligibility = frag.Eligibility
	}
	if frag.PrimaryOutcomes != nil {
		r.PrimaryOutcomes = frag.PrimaryOutcomes
	}
	if frag.SecondaryOutcomes != nil {
		r.SecondaryOutcomes = frag.SecondaryOutcomes
	}
	if frag.ArmGroups != nil {
		r.ArmGroups = frag.ArmGroups
	}
	if frag.Interventions != nil {
		r.Interventions = frag.Interventions
	}
	if frag.Sponsors != nil {
		r.Sponsors = frag.Sponsors
	}

	setStr(&r.Enrollment, frag.Enrollment)
	setStr(&r.EnrollmentType, frag.EnrollmentType)
	setStr(&r.OverallStatus, frag.OverallStatus)
	setStr(&r.StartDate, frag.StartDate)
	setStr(&r.StartDateType, frag.StartDateType)
	setStr(&r.PrimaryComplDate, frag.PrimaryComplDate)
	setStr(&r.PrimaryComplDateType, frag.PrimaryComplDateType)
	setStr(&r.LastFollowUpDate, frag.LastFollowUpDate)
	setStr(&r.LastFollowUpDateType, frag.LastFollowUpDateType)
	if frag.Conditions != nil {
		r.Conditions = frag.Conditions
	}
	if frag.Keywords != nil {
		r.Keywords = frag.Keywords
	}

	setStr(&r.BriefSummary, frag.BriefSummary)
	setStr(&r.DetailedDescription, frag.DetailedDescription)
}

func setStr(dst **string, src *string) {
	if src != nil {
		*dst = src
	}
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// StrOrEmpty dereferences p, returning "" for nil.
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// StrOr dereferences p, returning def for nil or blank values.
func StrOr(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
