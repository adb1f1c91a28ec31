package render

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
)

func fullRecord() *entity.ClinicalRecord {
	s := entity.Str
	return &entity.ClinicalRecord{
		BriefTitle:    s("Study of Drug X"),
		OfficialTitle: s("A Randomized Phase 2 Study of Drug X"),
		Acronym:       s("SDX"),
		OrgStudyID:    s("ABC-123"),
		StudyDesign: &entity.StudyDesign{
			StudyType: "Interventional",
			Interventional: &entity.InterventionalDesign{
				Subtype:    "Treatment",
				Phase:      "Phase 2",
				Assignment: s("Parallel Assignment"),
				Allocation: "Randomized",
				Masking:    &entity.Masking{MaskedSubject: s("yes"), Description: s("Double blind")},
			},
		},
		Eligibility: &entity.Eligibility{
			Criteria:          "Inclusion: age 18+\nExclusion: pregnancy",
			Gender:            "All",
			MinimumAge:        "18 Years",
			MaximumAge:        "N/A",
			HealthyVolunteers: "Yes",
		},
		PrimaryOutcomes:   []entity.Outcome{{Measure: "Overall survival", TimeFrame: s("5 years"), Description: s("Time to death")}},
		SecondaryOutcomes: []entity.Outcome{{Measure: "Toxicity"}},
		ArmGroups:         []entity.ArmGroup{{Label: "Drug X", Type: s("Experimental"), Description: s("Drug X daily")}},
		Interventions: []entity.Intervention{{
			Type: s("Drug"), Name: "Drug X", Description: s("Oral tablet"),
			ArmGroupLabels: []string{"Drug X"}, OtherNames: []string{"DX-1"},
		}},
		Sponsors: &entity.Sponsors{
			LeadSponsor:      "Acme Pharma",
			Collaborators:    []string{"Uni Hospital"},
			ResponsibleParty: &entity.ResponsibleParty{InvestigatorTitle: s("Dr. Smith")},
		},
		Enrollment:          s("120"),
		EnrollmentType:      s("Anticipated"),
		OverallStatus:       s("Recruiting"),
		StartDate:           s("2024-01"),
		Conditions:          []string{"Asthma"},
		Keywords:            []string{"inhaler"},
		BriefSummary:        s("Tests Drug X."),
		DetailedDescription: s("Longer text."),
	}
}

func renderOK(t *testing.T, rec *entity.ClinicalRecord) string {
	t.Helper()
	out, err := Render(rec)
	require.NoError(t, err)
	assertWellFormed(t, out)
	return out
}

func assertWellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}

// assertOrder checks that each marker first appears after the previous one.
func assertOrder(t *testing.T, doc string, markers ...string) {
	t.Helper()
	last := -1
	for _, m := range markers {
		i := strings.Index(doc, m)
		require.GreaterOrEqual(t, i, 0, "missing %s", m)
		assert.Greater(t, i, last, "%s out of order", m)
		last = i
	}
}

func TestRenderFullRecordDocumentOrder(t *testing.T) {
	out := renderOK(t, fullRecord())

	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
		`<study_collection xmlns="http://clinicaltrials.gov/prs">`+"\n  <clinical_study>\n    <id_info>"))
	assertOrder(t, out,
		"<id_info>", "<org_name>UNKNOWN_ORG</org_name>", "<org_study_id>ABC-123</org_study_id>",
		"<brief_title>", "<official_title>", "<acronym>SDX</acronym>",
		"<sponsors>", "<lead_sponsor>", "<agency>Acme Pharma</agency>", "<collaborator>", "<resp_party>",
		"<resp_party_type>Sponsor</resp_party_type>", "<investigator_title>Dr. Smith</investigator_title>",
		"<study_design>", "<study_type>Interventional</study_type>", "<interventional_design>",
		"<interventional_subtype>", "<phase>", "<assignment>", "<allocation>", "<masked_subject>", "<masking_description>",
		"<eligibility>", "<criteria>", "<gender>", "<healthy_volunteers>yes</healthy_volunteers>", "<minimum_age>", "<maximum_age>",
		"<primary_outcome>", "<secondary_outcome>",
		"<enrollment>120</enrollment>", "<enrollment_type>Anticipated</enrollment_type>",
		"<condition>Asthma</condition>", "<keyword>inhaler</keyword>",
		"<arm_group>", "<intervention>", "<intervention_type>Drug</intervention_type>", "<intervention_name>",
		"<intervention_description>", "<intervention_other_name>DX-1</intervention_other_name>",
		"<overall_status>Recruiting</overall_status>", "<start_date>2024-01</start_date>",
		"<brief_summary>", "<detailed_description>",
	)
	assert.Equal(t, 2, strings.Count(out, "<arm_group_label>Drug X</arm_group_label>"))
	assert.NotContains(t, out, "<observational_design>")
	assert.NotContains(t, out, "<no_masking>")
	assert.True(t, strings.HasSuffix(out, "</study_collection>\n"))
}

func TestRenderIsDeterministic(t *testing.T) {
	a := renderOK(t, fullRecord())
	b := renderOK(t, fullRecord())
	assert.Equal(t, a, b)
}

func TestRenderFreeTextInTextblocks(t *testing.T) {
	out := renderOK(t, fullRecord())

	assert.Contains(t, out, "<criteria>\n        <textblock>Inclusion: age 18+\nExclusion: pregnancy</textblock>\n      </criteria>")
	assert.Contains(t, out, "<textblock>Tests Drug X.</textblock>")
	assert.Contains(t, out, "<textblock>Time to death</textblock>")
	assert.Contains(t, out, "<textblock>Drug X daily</textblock>")
	assert.Contains(t, out, "<textblock>Double blind</textblock>")
	for _, tag := range []string{"brief_summary", "detailed_description", "criteria", "outcome_description", "arm_group_description"} {
		assert.NotRegexp(t, "<"+tag+">[^\\s<]", out, tag+" must wrap its text in a textblock")
	}
}

func TestRenderEmptyRecordUsesDefaults(t *testing.T) {
	out := renderOK(t, &entity.ClinicalRecord{})

	for _, want := range []string{
		"<org_name>UNKNOWN_ORG</org_name>",
		"<org_study_id>UNKNOWN_ID</org_study_id>",
		"<brief_title>Unknown Title</brief_title>",
		"<official_title>Unknown Official Title</official_title>",
		"<agency>UNKNOWN_SPONSOR</agency>",
		"<study_type>Interventional</study_type>",
		"<textblock>Not provided</textblock>",
		"<gender>All</gender>",
		"<minimum_age>18 Years</minimum_age>",
		"<maximum_age>N/A</maximum_age>",
	} {
		assert.Contains(t, out, want)
	}
	for _, absent := range []string{
		"<acronym>", "<interventional_design>", "<observational_design>", "<healthy_volunteers>",
		"<primary_outcome>", "<enrollment>", "<condition>", "<arm_group>", "<intervention>",
		"<overall_status>", "<brief_summary>", "<detailed_description>", "<resp_party>", "<collaborator>",
	} {
		assert.NotContains(t, out, absent)
	}
}

func TestRenderEmptyAndNilSequencesAreEquivalent(t *testing.T) {
	withNil := renderOK(t, &entity.ClinicalRecord{})
	withEmpty := renderOK(t, &entity.ClinicalRecord{
		PrimaryOutcomes: []entity.Outcome{}, ArmGroups: []entity.ArmGroup{},
		Interventions: []entity.Intervention{}, Conditions: []string{}, Keywords: []string{},
	})
	assert.Equal(t, withNil, withEmpty)
}

func TestRenderEnrollmentTypeNeedsEnrollment(t *testing.T) {
	out := renderOK(t, &entity.ClinicalRecord{EnrollmentType: entity.Str("Actual")})
	assert.NotContains(t, out, "<enrollment_type>")
}

func TestRenderObservationalDesign(t *testing.T) {
	rec := &entity.ClinicalRecord{StudyDesign: &entity.StudyDesign{
		StudyType: "Observational",
		// ignored: the type selects the design block
		Interventional: &entity.InterventionalDesign{Phase: "Phase 1"},
		Observational: &entity.ObservationalDesign{
			Timing:                 "Prospective",
			BiospecimenDescription: entity.Str("Blood"),
			PatientRegistry:        entity.Str("yes"),
			TargetDurationQuantity: entity.Str("2"),
			TargetDurationUnits:    entity.Str("Years"),
		},
	}}

	out := renderOK(t, rec)

	assert.NotContains(t, out, "<interventional_design>")
	assertOrder(t, out,
		"<observational_design>",
		"<observational_study_design>Other</observational_study_design>",
		"<timing>Prospective</timing>",
		"<biospecimen_retention>None Retained</biospecimen_retention>",
		"<biospecimen_description>",
		"<number_of_groups>1</number_of_groups>",
		"<patient_registry>yes</patient_registry>",
		"<target_duration_quantity>2</target_duration_quantity>",
		"<target_duration_units>Years</target_duration_units>",
	)

	rec.StudyDesign.Observational.PatientRegistry = entity.Str("no")
	out = renderOK(t, rec)
	assert.Contains(t, out, "<patient_registry>no</patient_registry>")
	assert.NotContains(t, out, "<target_duration_quantity>")
}

func TestRenderOtherStudyTypeHasNoDesignBlock(t *testing.T) {
	out := renderOK(t, &entity.ClinicalRecord{StudyDesign: &entity.StudyDesign{
		StudyType:      "Expanded Access",
		Interventional: &entity.InterventionalDesign{},
	}})
	assert.Contains(t, out, "<study_type>Expanded Access</study_type>")
	assert.NotContains(t, out, "<interventional_design>")
}

func TestRenderEscapesText(t *testing.T) {
	out := renderOK(t, &entity.ClinicalRecord{
		BriefTitle:   entity.Str("Drug <X> & Y"),
		BriefSummary: entity.Str("a < b"),
	})
	assert.Contains(t, out, "<brief_title>Drug &lt;X&gt; &amp; Y</brief_title>")
	assert.Contains(t, out, "<textblock>a &lt; b</textblock>")
}

func TestRenderNilRecord(t *testing.T) {
	_, err := Render(nil)
	assert.ErrorIs(t, err, ErrNilRecord)
}

func TestRenderErrorStub(t *testing.T) {
	out := RenderErrorStub("/data/in/protocol-17.pdf", errors.New("no text layer"))

	assertWellFormed(t, out)
	assertOrder(t, out,
		`<study_collection xmlns="http://clinicaltrials.gov/prs">`,
		"<clinical_study>",
		"<org_name>"+constants.ErrorProcessingOrg+"</org_name>",
		"<org_study_id>protocol-17</org_study_id>",
		"<brief_title>Error processing protocol-17.pdf</brief_title>",
		"<textblock>Error during processing: no text layer</textblock>",
	)
	assert.NotContains(t, out, "<sponsors>")
	assert.NotContains(t, out, "<eligibility>")
}
