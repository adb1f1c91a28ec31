package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
)

var ErrNilRecord = errors.New("render: nil record")

// Render writes rec as an indented PRS study_collection document. Required
// elements missing from rec are rendered with their defaults; optional
// elements are omitted. The same record always renders to the same bytes.
func Render(rec *entity.ClinicalRecord) (string, error) {
	if rec == nil {
		return "", ErrNilRecord
	}
	doc := studyCollection{
		Xmlns: constants.PRSNamespace,
		Study: buildStudy(rec),
	}
	return marshal(doc)
}

// RenderErrorStub renders the minimal document produced when a source could
// not be processed. org_study_id is the source's base name without extension.
func RenderErrorStub(source string, cause error) string {
	base := filepath.Base(source)
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	doc := errorCollection{
		Xmlns: constants.PRSNamespace,
		Study: errorStudy{
			IDInfo: idInfo{
				OrgName:    constants.ErrorProcessingOrg,
				OrgStudyID: strings.TrimSuffix(base, filepath.Ext(base)),
			},
			BriefTitle:          "Error processing " + base,
			DetailedDescription: textblock{Text: "Error during processing: " + msg},
		},
	}
	out, err := marshal(doc)
	if err != nil {
		// unreachable: the stub holds only strings
		return xml.Header + `<study_collection xmlns="` + constants.PRSNamespace + `"></study_collection>` + "\n"
	}
	return out
}

func marshal(v any) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode xml: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}

func buildStudy(rec *entity.ClinicalRecord) clinicalStudy {
	s := clinicalStudy{
		IDInfo: idInfo{
			OrgName:    entity.StrOr(blankToNil(rec.OrgName), constants.UnknownOrg),
			OrgStudyID: entity.StrOr(blankToNil(rec.OrgStudyID), constants.UnknownStudyID),
		},
		BriefTitle:    entity.StrOr(blankToNil(rec.BriefTitle), constants.UnknownTitle),
		OfficialTitle: entity.StrOr(blankToNil(rec.OfficialTitle), constants.UnknownOfficialTitle),
		Acronym:       blankToNil(rec.Acronym),
		Sponsors:      buildSponsors(rec.Sponsors),
		StudyDesign:   buildDesign(rec.StudyDesign),
		Eligibility:   buildEligibility(rec.Eligibility),

		PrimaryOutcomes:   buildOutcomes(rec.PrimaryOutcomes),
		SecondaryOutcomes: buildOutcomes(rec.SecondaryOutcomes),

		Conditions:    nonBlank(rec.Conditions),
		Keywords:      nonBlank(rec.Keywords),
		ArmGroups:     buildArms(rec.ArmGroups),
		Interventions: buildInterventions(rec.Interventions),

		OverallStatus:        blankToNil(rec.OverallStatus),
		StartDate:            blankToNil(rec.StartDate),
		StartDateType:        blankToNil(rec.StartDateType),
		PrimaryComplDate:     blankToNil(rec.PrimaryComplDate),
		PrimaryComplDateType: blankToNil(rec.PrimaryComplDateType),
		LastFollowUpDate:     blankToNil(rec.LastFollowUpDate),
		LastFollowUpDateType: blankToNil(rec.LastFollowUpDateType),

		BriefSummary:        block(rec.BriefSummary),
		DetailedDescription: block(rec.DetailedDescription),
	}

	// enrollment_type means nothing without a count
	if s.Enrollment = blankToNil(rec.Enrollment); s.Enrollment != nil {
		s.EnrollmentType = blankToNil(rec.EnrollmentType)
	}
	return s
}

func buildSponsors(sp *entity.Sponsors) sponsors {
	if sp == nil {
		return sponsors{LeadSponsor: agency{Agency: constants.UnknownSponsor}}
	}
	out := sponsors{LeadSponsor: agency{Agency: orDefault(sp.LeadSponsor, constants.UnknownSponsor)}}
	for _, c := range nonBlank(sp.Collaborators) {
		out.Collaborators = append(out.Collaborators, agency{Agency: c})
	}
	if rp := sp.ResponsibleParty; rp != nil {
		out.RespParty = &respParty{
			Type:                    entity.StrOr(blankToNil(rp.Type), constants.DefaultRespParty),
			InvestigatorTitle:       blankToNil(rp.InvestigatorTitle),
			InvestigatorAffiliation: blankToNil(rp.InvestigatorAffiliation),
		}
	}
	return out
}

func buildDesign(sd *entity.StudyDesign) studyDesign {
	if sd == nil {
		return studyDesign{StudyType: string(constants.Interventional)}
	}
	out := studyDesign{StudyType: orDefault(sd.StudyType, string(constants.Interventional))}

	switch {
	case out.StudyType == string(constants.Interventional) && sd.Interventional != nil:
		d := sd.Interventional
		id := &interventionalDesign{
			Subtype:    orDefault(d.Subtype, constants.DefaultInterventionalSubtype),
			Phase:      orDefault(d.Phase, constants.DefaultPhase),
			Assignment: blankToNil(d.Assignment),
			Allocation: orDefault(d.Allocation, constants.DefaultAllocation),
		}
		if m := d.Masking; m != nil {
			id.NoMasking = blankToNil(m.NoMasking)
			id.MaskedSubject = blankToNil(m.MaskedSubject)
			id.MaskedCaregiver = blankToNil(m.MaskedCaregiver)
			id.MaskedInvestigator = blankToNil(m.MaskedInvestigator)
			id.MaskedAssessor = blankToNil(m.MaskedAssessor)
			id.MaskingDescription = block(m.Description)
		}
		out.Interventional = id

	case out.StudyType == string(constants.Observational) && sd.Observational != nil:
		d := sd.Observational
		od := &observationalDesign{
			StudyDesign:            orDefault(d.StudyDesign, constants.DefaultObservationalDesign),
			Timing:                 orDefault(d.Timing, constants.DefaultTiming),
			BiospecimenRetention:   orDefault(d.BiospecimenRetention, constants.DefaultBiospecimen),
			BiospecimenDescription: block(d.BiospecimenDescription),
			NumberOfGroups:         orDefault(d.NumberOfGroups, constants.DefaultNumberOfGroups),
			PatientRegistry:        blankToNil(d.PatientRegistry),
		}
		if od.PatientRegistry != nil && *od.PatientRegistry == "yes" {
			od.TargetDurationQuantity = blankToNil(d.TargetDurationQuantity)
			od.TargetDurationUnits = blankToNil(d.TargetDurationUnits)
		}
		out.Observational = od
	}
	return out
}

func buildEligibility(e *entity.Eligibility) eligibility {
	if e == nil {
		e = &entity.Eligibility{}
	}
	out := eligibility{
		Criteria:   textblock{Text: orDefault(e.Criteria, constants.NotProvided)},
		Gender:     orDefault(e.Gender, constants.DefaultGender),
		MinimumAge: orDefault(e.MinimumAge, constants.DefaultMinimumAge),
		MaximumAge: orDefault(e.MaximumAge, constants.DefaultMaximumAge),
	}
	if hv := strings.TrimSpace(e.HealthyVolunteers); hv != "" {
		lower := strings.ToLower(hv)
		out.HealthyVolunteers = &lower
	}
	return out
}

func buildOutcomes(in []entity.Outcome) []outcome {
	var out []outcome
	for _, o := range in {
		out = append(out, outcome{
			Measure:     o.Measure,
			TimeFrame:   blankToNil(o.TimeFrame),
			Description: block(o.Description),
		})
	}
	return out
}

func buildArms(in []entity.ArmGroup) []armGroup {
	var out []armGroup
	for _, a := range in {
		out = append(out, armGroup{
			Label:       a.Label,
			Type:        blankToNil(a.Type),
			Description: block(a.Description),
		})
	}
	return out
}

func buildInterventions(in []entity.Intervention) []intervention {
	var out []intervention
	for _, iv := range in {
		out = append(out, intervention{
			Type:           blankToNil(iv.Type),
			Name:           iv.Name,
			Description:    block(iv.Description),
			ArmGroupLabels: nonBlank(iv.ArmGroupLabels),
			OtherNames:     nonBlank(iv.OtherNames),
		})
	}
	return out
}

func blankToNil(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	return p
}

func block(p *string) *textblock {
	if p = blankToNil(p); p == nil {
		return nil
	}
	return &textblock{Text: *p}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func nonBlank(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
