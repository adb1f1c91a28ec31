package render

import "encoding/xml"

// Element order in these structs is the document order of the PRS schema.

type studyCollection struct {
	XMLName xml.Name      `xml:"study_collection"`
	Xmlns   string        `xml:"xmlns,attr"`
	Study   clinicalStudy `xml:"clinical_study"`
}

type clinicalStudy struct {
	IDInfo            idInfo         `xml:"id_info"`
	BriefTitle        string         `xml:"brief_title"`
	OfficialTitle     string         `xml:"official_title"`
	Acronym           *string        `xml:"acronym,omitempty"`
	Sponsors          sponsors       `xml:"sponsors"`
	StudyDesign       studyDesign    `xml:"study_design"`
	Eligibility       eligibility    `xml:"eligibility"`
	PrimaryOutcomes   []outcome      `xml:"primary_outcome"`
	SecondaryOutcomes []outcome      `xml:"secondary_outcome"`
	Enrollment        *string        `xml:"enrollment,omitempty"`
	EnrollmentType    *string        `xml:"enrollment_type,omitempty"`
	Conditions        []string       `xml:"condition"`
	Keywords          []string       `xml:"keyword"`
	ArmGroups         []armGroup     `xml:"arm_group"`
	Interventions     []intervention `xml:"intervention"`

	OverallStatus        *string `xml:"overall_status,omitempty"`
	StartDate            *string `xml:"start_date,omitempty"`
	StartDateType        *string `xml:"start_date_type,omitempty"`
	PrimaryComplDate     *string `xml:"primary_compl_date,omitempty"`
	PrimaryComplDateType *string `xml:"primary_compl_date_type,omitempty"`
	LastFollowUpDate     *string `xml:"last_follow_up_date,omitempty"`
	LastFollowUpDateType *string `xml:"last_follow_up_date_type,omitempty"`

	BriefSummary        *textblock `xml:"brief_summary,omitempty"`
	DetailedDescription *textblock `xml:"detailed_description,omitempty"`
}

type idInfo struct {
	OrgName    string `xml:"org_name"`
	OrgStudyID string `xml:"org_study_id"`
}

// textblock wraps every free-text value.
type textblock struct {
	Text string `xml:"textblock"`
}

// MarshalXML writes the text as character data so line breaks in criteria
// and descriptions stay literal instead of becoming &#xA; references.
func (t textblock) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	inner := xml.StartElement{Name: xml.Name{Local: "textblock"}}
	for _, tok := range []xml.Token{start, inner, xml.CharData(t.Text), inner.End(), start.End()} {
		if err := e.EncodeToken(tok); err != nil {
			return err
		}
	}
	return nil
}

type agency struct {
	Agency string `xml:"agency"`
}

type sponsors struct {
	LeadSponsor   agency     `xml:"lead_sponsor"`
	Collaborators []agency   `xml:"collaborator"`
	RespParty     *respParty `xml:"resp_party,omitempty"`
}

type respParty struct {
	Type                    string  `xml:"resp_party_type"`
	InvestigatorTitle       *string `xml:"investigator_title,omitempty"`
	InvestigatorAffiliation *string `xml:"investigator_affiliation,omitempty"`
}

type studyDesign struct {
	StudyType      string                `xml:"study_type"`
	Interventional *interventionalDesign `xml:"interventional_design,omitempty"`
	Observational  *observationalDesign  `xml:"observational_design,omitempty"`
}

type interventionalDesign struct {
	Subtype            string     `xml:"interventional_subtype"`
	Phase              string     `xml:"phase"`
	Assignment         *string    `xml:"assignment,omitempty"`
	Allocation         string     `xml:"allocation"`
	NoMasking          *string    `xml:"no_masking,omitempty"`
	MaskedSubject      *string    `xml:"masked_subject,omitempty"`
	MaskedCaregiver    *string    `xml:"masked_caregiver,omitempty"`
	MaskedInvestigator *string    `xml:"masked_investigator,omitempty"`
	MaskedAssessor     *string    `xml:"masked_assessor,omitempty"`
	MaskingDescription *textblock `xml:"masking_description,omitempty"`
}

type observationalDesign struct {
	StudyDesign            string     `xml:"observational_study_design"`
	Timing                 string     `xml:"timing"`
	BiospecimenRetention   string     `xml:"biospecimen_retention"`
	BiospecimenDescription *textblock `xml:"biospecimen_description,omitempty"`
	NumberOfGroups         string     `xml:"number_of_groups"`
	PatientRegistry        *string    `xml:"patient_registry,omitempty"`
	TargetDurationQuantity *string    `xml:"target_duration_quantity,omitempty"`
	TargetDurationUnits    *string    `xml:"target_duration_units,omitempty"`
}

type eligibility struct {
	Criteria          textblock `xml:"criteria"`
	Gender            string    `xml:"gender"`
	HealthyVolunteers *string   `xml:"healthy_volunteers,omitempty"`
	MinimumAge        string    `xml:"minimum_age"`
	MaximumAge        string    `xml:"maximum_age"`
}

type outcome struct {
	Measure     string     `xml:"outcome_measure"`
	TimeFrame   *string    `xml:"outcome_time_frame,omitempty"`
	Description *textblock `xml:"outcome_description,omitempty"`
}

type armGroup struct {
	Label       string     `xml:"arm_group_label"`
	Type        *string    `xml:"arm_type,omitempty"`
	Description *textblock `xml:"arm_group_description,omitempty"`
}

type intervention struct {
	Type           *string    `xml:"intervention_type,omitempty"`
	Name           string     `xml:"intervention_name"`
	Description    *textblock `xml:"intervention_description,omitempty"`
	ArmGroupLabels []string   `xml:"arm_group_label"`
	OtherNames     []string   `xml:"intervention_other_name"`
}

// errorCollection is the minimal document written when processing fails.
type errorCollection struct {
	XMLName xml.Name   `xml:"study_collection"`
	Xmlns   string     `xml:"xmlns,attr"`
	Study   errorStudy `xml:"clinical_study"`
}

type errorStudy struct {
	IDInfo              idInfo    `xml:"id_info"`
	BriefTitle          string    `xml:"brief_title"`
	DetailedDescription textblock `xml:"detailed_description"`
}
