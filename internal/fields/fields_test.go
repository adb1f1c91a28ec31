package fields

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// scripted answers the first rule whose marker occurs in the prompt and
// reports a failed query for anything else.
type scripted struct {
	mu      sync.Mutex
	rules   [][2]string
	prompts []string
}

func (s *scripted) on(marker, answer string) *scripted {
	s.rules = append(s.rules, [2]string{marker, answer})
	return s
}

func (s *scripted) Query(_ context.Context, prompt, _ string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	for _, r := range s.rules {
		if strings.Contains(prompt, r[0]) {
			return r[1]
		}
	}
	return llm.QueryFailed
}

func (s *scripted) count(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.prompts {
		if strings.Contains(p, marker) {
			n++
		}
	}
	return n
}

func newTestExtractor(q llm.Querier) *Extractor {
	return NewExtractor(q, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const doc = "# Study of Drug X\nProtocol ABC-123\nSponsored by Acme Pharma."

func TestTitlesFromObjectAnswer(t *testing.T) {
	q := (&scripted{}).on("official title and brief title",
		"Here you go:\n{\"brief_title\": \"Study of Drug X\", \"official_title\": \"A Phase 2 Study of Drug X\", \"acronym\": null}")
	d := &Diagnostics{}

	frag := newTestExtractor(q).Titles(context.Background(), doc, d)

	assert.Equal(t, "Study of Drug X", entity.StrOrEmpty(frag.BriefTitle))
	assert.Equal(t, "A Phase 2 Study of Drug X", entity.StrOrEmpty(frag.OfficialTitle))
	assert.Nil(t, frag.Acronym)
	assert.False(t, d.NeedsReview())
	assert.Contains(t, q.prompts[0], doc)
}

func TestTitlesFallBackToSingleFields(t *testing.T) {
	q := (&scripted{}).
		on("official title and brief title", "The title is Study of Drug X").
		on("Extract the brief title", "Study of Drug X").
		on("Extract the official title", "NOT_FOUND").
		on("Extract the study acronym", "SDX")
	d := &Diagnostics{}

	frag := newTestExtractor(q).Titles(context.Background(), doc, d)

	assert.Equal(t, "Study of Drug X", *frag.BriefTitle)
	assert.Equal(t, constants.UnknownOfficialTitle, *frag.OfficialTitle)
	assert.Equal(t, "SDX", entity.StrOrEmpty(frag.Acronym))
	assert.True(t, d.NeedsReview())
}

func TestTitlesAllFailedUsesSentinels(t *testing.T) {
	frag := newTestExtractor(&scripted{}).Titles(context.Background(), doc, nil)

	assert.Equal(t, constants.UnknownTitle, *frag.BriefTitle)
	assert.Equal(t, constants.UnknownOfficialTitle, *frag.OfficialTitle)
	assert.Nil(t, frag.Acronym)
}

func TestOrgStudyID(t *testing.T) {
	q := (&scripted{}).on("unique study identifier", " ABC-123 \n")
	frag := newTestExtractor(q).OrgStudyID(context.Background(), doc, nil)
	assert.Equal(t, "ABC-123", *frag.OrgStudyID)

	d := &Diagnostics{}
	frag = newTestExtractor(&scripted{}).OrgStudyID(context.Background(), doc, d)
	assert.Equal(t, constants.UnknownStudyID, *frag.OrgStudyID)
	assert.Len(t, d.Fallbacks, 1)
}

func TestSingleListAndBool(t *testing.T) {
	q := (&scripted{}).
		on("Extract the conditions", "- Asthma\n- COPD").
		on("Extract the registry flag", "Yes")
	e := newTestExtractor(q)

	list, ok := e.SingleList(context.Background(), doc, "conditions", "")
	assert.True(t, ok)
	assert.Equal(t, []string{"Asthma", "COPD"}, list)

	flag, ok := e.SingleBool(context.Background(), doc, "registry flag", "")
	assert.True(t, ok)
	assert.True(t, flag)

	_, ok = e.SingleBool(context.Background(), doc, "missing flag", "")
	assert.False(t, ok)
}

func TestStudyDesignInterventional(t *testing.T) {
	q := (&scripted{}).
		on("study type and phase information", `{"study_type": "Interventional", "phase": "Phase 2"}`).
		on("interventional study model", "Parallel Assignment").
		on("Extract the allocation method", "NOT_FOUND").
		on("masking/blinding information", `{"no_masking": "no", "masked_subject": true, "description": "Double blind"}`)

	frag := newTestExtractor(q).StudyDesign(context.Background(), doc, &Diagnostics{})

	require.NotNil(t, frag.StudyDesign)
	sd := frag.StudyDesign
	assert.Equal(t, "Interventional", sd.StudyType)
	assert.Nil(t, sd.Observational)
	require.NotNil(t, sd.Interventional)
	assert.Equal(t, constants.DefaultInterventionalSubtype, sd.Interventional.Subtype)
	assert.Equal(t, "Phase 2", sd.Interventional.Phase)
	assert.Equal(t, "Parallel Assignment", entity.StrOrEmpty(sd.Interventional.Assignment))
	assert.Equal(t, constants.DefaultAllocation, sd.Interventional.Allocation)
	require.NotNil(t, sd.Interventional.Masking)
	assert.Equal(t, "no", entity.StrOrEmpty(sd.Interventional.Masking.NoMasking))
	assert.Equal(t, "yes", entity.StrOrEmpty(sd.Interventional.Masking.MaskedSubject))
	assert.Nil(t, sd.Interventional.Masking.MaskedAssessor)
	assert.Equal(t, "Double blind", entity.StrOrEmpty(sd.Interventional.Masking.Description))
}

func TestStudyDesignUndeterminedDefaultsToInterventional(t *testing.T) {
	d := &Diagnostics{}
	frag := newTestExtractor(&scripted{}).StudyDesign(context.Background(), doc, d)

	sd := frag.StudyDesign
	assert.Equal(t, "Interventional", sd.StudyType)
	require.NotNil(t, sd.Interventional)
	assert.Equal(t, constants.DefaultPhase, sd.Interventional.Phase)
	assert.Equal(t, constants.DefaultAllocation, sd.Interventional.Allocation)
	assert.Nil(t, sd.Interventional.Assignment)
	assert.Nil(t, sd.Interventional.Masking)
	assert.True(t, d.NeedsReview())
}

func TestStudyDesignObservationalDefaultsOnlyOnTotalFailure(t *testing.T) {
	q := (&scripted{}).
		on("study type and phase information", `{"study_type": "Observational"}`).
		on("key details for this observational study", "not json at all")

	frag := newTestExtractor(q).StudyDesign(context.Background(), doc, nil)

	sd := frag.StudyDesign
	assert.Equal(t, "Observational", sd.StudyType)
	assert.Nil(t, sd.Interventional)
	require.NotNil(t, sd.Observational)
	assert.Equal(t, entity.ObservationalDesign{
		StudyDesign:          constants.DefaultObservationalDesign,
		Timing:               constants.DefaultTiming,
		BiospecimenRetention: constants.DefaultBiospecimen,
		NumberOfGroups:       constants.DefaultNumberOfGroups,
	}, *sd.Observational)

	q = (&scripted{}).
		on("study type and phase information", `{"study_type": "Observational"}`).
		on("key details for this observational study", `{"timing": "Prospective", "patient_registry": "Yes", "number_of_groups": 2}`)

	sd = newTestExtractor(q).StudyDesign(context.Background(), doc, nil).StudyDesign
	require.NotNil(t, sd.Observational)
	assert.Equal(t, "Prospective", sd.Observational.Timing)
	assert.Equal(t, "", sd.Observational.StudyDesign)
	assert.Equal(t, "2", sd.Observational.NumberOfGroups)
	assert.Equal(t, "yes", entity.StrOrEmpty(sd.Observational.PatientRegistry))
}

func TestStudyDesignExpandedAccessHasNoDesignBlock(t *testing.T) {
	q := (&scripted{}).on("study type and phase information", `{"study_type": "Expanded Access"}`)
	d := &Diagnostics{}

	sd := newTestExtractor(q).StudyDesign(context.Background(), doc, d).StudyDesign

	assert.Equal(t, string(constants.ExpandedAccess), sd.StudyType)
	assert.Nil(t, sd.Interventional)
	assert.Nil(t, sd.Observational)
	assert.False(t, d.NeedsReview())
}

func TestStudyDesignRefusalIsUndetermined(t *testing.T) {
	q := (&scripted{}).
		on("study type and phase information", "Sorry, no JSON here").
		on("Extract the study type from", "I'm sorry, the protocol does not state the study type.")
	d := &Diagnostics{}

	sd := newTestExtractor(q).StudyDesign(context.Background(), doc, d).StudyDesign

	assert.Equal(t, string(constants.Interventional), sd.StudyType)
	require.NotNil(t, sd.Interventional)
	assert.Equal(t, 1, q.count("Extract the allocation method from"))
	assert.Contains(t, strings.Join(d.Fallbacks, "\n"), "study type not found")
}

func TestStudyDesignUnrecognizedTypeIsUndetermined(t *testing.T) {
	q := (&scripted{}).
		on("study type and phase information", "not json").
		on("Extract the study type from", "Pilot feasibility study")
	d := &Diagnostics{}

	sd := newTestExtractor(q).StudyDesign(context.Background(), doc, d).StudyDesign

	assert.Equal(t, string(constants.Interventional), sd.StudyType)
	require.NotNil(t, sd.Interventional)
	assert.Nil(t, sd.Observational)
	assert.Contains(t, strings.Join(d.Fallbacks, "\n"), `"Pilot feasibility study" not recognized`)
}

func TestSingleStringRejectsRefusal(t *testing.T) {
	q := (&scripted{}).
		on("Extract the lead sponsor from", "I'm sorry, I could not find a sponsor.").
		on("Extract the acronym from", "NOT_FOUND.").
		on("Extract the org study id from", "Protocol NOT_FOUND-7")
	x := newTestExtractor(q)

	_, ok := x.SingleString(context.Background(), doc, "lead sponsor", "")
	assert.False(t, ok)
	_, ok = x.SingleString(context.Background(), doc, "acronym", "")
	assert.False(t, ok)
	got, ok := x.SingleString(context.Background(), doc, "org study id", "")
	assert.True(t, ok)
	assert.Equal(t, "Protocol NOT_FOUND-7", got)
}

func TestEligibilityTwoStage(t *testing.T) {
	q := (&scripted{}).
		on("COMPLETE eligibility criteria section", "Inclusion: age 18+\nExclusion: pregnancy").
		on("Based on the eligibility criteria below",
			`{"gender": "female", "minimum_age": "21 Years", "healthy_volunteers": "Maybe"}`)
	d := &Diagnostics{}

	elig := newTestExtractor(q).Eligibility(context.Background(), doc, d).Eligibility

	require.NotNil(t, elig)
	assert.Equal(t, "Inclusion: age 18+\nExclusion: pregnancy", elig.Criteria)
	assert.Equal(t, "Female", elig.Gender)
	assert.Equal(t, "21 Years", elig.MinimumAge)
	assert.Equal(t, constants.DefaultMaximumAge, elig.MaximumAge)
	assert.Equal(t, constants.DefaultHealthyVolunteers, elig.HealthyVolunteers)
	assert.NotEmpty(t, d.Notes)

	// the classification query sees only the criteria
	for _, p := range q.prompts {
		if strings.Contains(p, "Based on the eligibility criteria below") {
			assert.NotContains(t, p, doc)
			assert.Contains(t, p, "Inclusion: age 18+")
		}
	}
}

func TestEligibilityRefusalKeepsDefaults(t *testing.T) {
	q := (&scripted{}).on("COMPLETE eligibility criteria section", "I'm sorry, I cannot find that.")

	elig := newTestExtractor(q).Eligibility(context.Background(), doc, nil).Eligibility

	assert.Equal(t, entity.Eligibility{
		Criteria:          constants.NotProvided,
		Gender:            constants.DefaultGender,
		MinimumAge:        constants.DefaultMinimumAge,
		MaximumAge:        constants.DefaultMaximumAge,
		HealthyVolunteers: constants.DefaultHealthyVolunteers,
	}, *elig)
	assert.Equal(t, 0, q.count("Based on the eligibility criteria below"))
}

func TestOutcomesFromArray(t *testing.T) {
	q := (&scripted{}).on("extract all primary outcome measures", "```json\n"+
		`[{"outcome_measure": "Overall survival", "outcome_time_frame": "5 years"},`+
		` {"outcome_time_frame": "1 year"}]`+"\n```")
	d := &Diagnostics{}

	frag := newTestExtractor(q).Outcomes(context.Background(), doc, constants.PrimaryOutcome, d)

	require.Len(t, frag.PrimaryOutcomes, 1)
	assert.Nil(t, frag.SecondaryOutcomes)
	o := frag.PrimaryOutcomes[0]
	assert.Equal(t, "Overall survival", o.Measure)
	assert.Equal(t, "5 years", entity.StrOrEmpty(o.TimeFrame))
	assert.Nil(t, o.Description)
	assert.NotEmpty(t, d.Notes)
}

func TestOutcomesEmptyArrayLeavesFieldAbsent(t *testing.T) {
	q := (&scripted{}).on("extract all secondary outcome measures", "[]")

	frag := newTestExtractor(q).Outcomes(context.Background(), doc, constants.SecondaryOutcome, nil)

	assert.Nil(t, frag.SecondaryOutcomes)
	assert.Equal(t, 0, q.count("How many distinct"))
}

func TestOutcomesSentinelSkipsCounting(t *testing.T) {
	q := &scripted{}

	frag := newTestExtractor(q).Outcomes(context.Background(), doc, constants.PrimaryOutcome, nil)

	assert.Nil(t, frag.PrimaryOutcomes)
	assert.Equal(t, 1, len(q.prompts))
}

func TestOutcomesCountingProtocol(t *testing.T) {
	q := (&scripted{}).
		on("extract all primary outcome measures", "There are two primary outcomes, overall survival and toxicity.").
		on("How many distinct primary outcome", "There are 2 outcomes").
		on("name or title of primary outcome measure #1", "Overall survival").
		on("name or title of primary outcome measure #2", "I'm sorry, I could not find a second outcome.").
		on("time frame specified for primary outcome measure #1", "I could not determine the time frame").
		on("full description of how primary outcome measure #1", "Measured from randomization to death.")
	d := &Diagnostics{}

	frag := newTestExtractor(q).Outcomes(context.Background(), doc, constants.PrimaryOutcome, d)

	require.Len(t, frag.PrimaryOutcomes, 1)
	o := frag.PrimaryOutcomes[0]
	assert.Equal(t, "Overall survival", o.Measure)
	assert.Equal(t, constants.NotSpecified, *o.TimeFrame)
	assert.Equal(t, "Measured from randomization to death.", *o.Description)
	assert.Equal(t, 0, q.count("time frame specified for primary outcome measure #2"))
	assert.True(t, d.NeedsReview())

	// counting prompts carry the document so the model has something to count
	for _, p := range q.prompts {
		assert.Contains(t, p, doc)
	}
}

func TestOutcomesCountIsClamped(t *testing.T) {
	q := (&scripted{}).
		on("extract all secondary outcome measures", "not an array").
		on("How many distinct secondary outcome", "500").
		on("name or title of secondary outcome measure #", "Quality of life").
		on("time frame specified for secondary outcome", "Week 12").
		on("full description of how secondary outcome", "EQ-5D questionnaire")
	e := NewExtractor(q, Config{MaxCountedOutcomes: 2}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	frag := e.Outcomes(context.Background(), doc, constants.SecondaryOutcome, nil)

	assert.Len(t, frag.SecondaryOutcomes, 2)
	assert.Equal(t, 2, q.count("name or title of secondary outcome measure #"))
}

func TestSpecifiedOrNot(t *testing.T) {
	assert.Equal(t, "Immediately after surgery", specifiedOrNot(" Immediately after surgery "))
	assert.Equal(t, constants.NotSpecified, specifiedOrNot("I don't know"))
	assert.Equal(t, constants.NotSpecified, specifiedOrNot("I could not find it"))
	assert.Equal(t, constants.NotSpecified, specifiedOrNot(llm.QueryFailed))
	assert.Equal(t, constants.NotSpecified, specifiedOrNot(""))
}

func TestArmGroupsAndInterventions(t *testing.T) {
	q := (&scripted{}).
		on("Extract all study arms/groups", `[{"arm_group_label": "Drug X", "arm_type": "Experimental"}, {"arm_type": "Placebo Comparator"}]`).
		on("Extract all interventions", `[{"intervention_type": "Drug", "intervention_name": "Drug X", "arm_group_label": ["Drug X"], "intervention_other_name": []}]`)
	e := newTestExtractor(q)

	arms := e.ArmGroups(context.Background(), doc, nil).ArmGroups
	require.Len(t, arms, 1)
	assert.Equal(t, "Drug X", arms[0].Label)
	assert.Equal(t, "Experimental", entity.StrOrEmpty(arms[0].Type))
	assert.Nil(t, arms[0].Description)

	ivs := e.Interventions(context.Background(), doc, nil).Interventions
	require.Len(t, ivs, 1)
	assert.Equal(t, "Drug X", ivs[0].Name)
	assert.Equal(t, "Drug", entity.StrOrEmpty(ivs[0].Type))
	assert.Equal(t, []string{"Drug X"}, ivs[0].ArmGroupLabels)
	assert.Nil(t, ivs[0].OtherNames)
}

func TestArmGroupsEmptyOrBrokenIsAbsent(t *testing.T) {
	q := (&scripted{}).
		on("Extract all study arms/groups", "[]").
		on("Extract all interventions", "[{broken")
	e := newTestExtractor(q)

	assert.Nil(t, e.ArmGroups(context.Background(), doc, nil).ArmGroups)
	assert.Nil(t, e.Interventions(context.Background(), doc, nil).Interventions)
}

func TestSponsors(t *testing.T) {
	q := (&scripted{}).on("Extract the sponsor information",
		`{"lead_sponsor": "Acme Pharma", "collaborators": ["Uni Hospital"], "investigator_title": "Dr. Smith"}`)

	sp := newTestExtractor(q).Sponsors(context.Background(), doc, nil).Sponsors

	require.NotNil(t, sp)
	assert.Equal(t, "Acme Pharma", sp.LeadSponsor)
	assert.Equal(t, []string{"Uni Hospital"}, sp.Collaborators)
	require.NotNil(t, sp.ResponsibleParty)
	assert.Nil(t, sp.ResponsibleParty.Type)
	assert.Equal(t, "Dr. Smith", entity.StrOrEmpty(sp.ResponsibleParty.InvestigatorTitle))
}

func TestSponsorsDefaultsAndFallback(t *testing.T) {
	q := (&scripted{}).on("Extract the sponsor information", `{"collaborators": []}`)
	sp := newTestExtractor(q).Sponsors(context.Background(), doc, nil).Sponsors
	require.NotNil(t, sp)
	assert.Equal(t, constants.UnknownSponsor, sp.LeadSponsor)
	assert.NotNil(t, sp.Collaborators)
	assert.Empty(t, sp.Collaborators)
	assert.Nil(t, sp.ResponsibleParty)

	q = (&scripted{}).
		on("Extract the sponsor information", "Acme Pharma sponsors it").
		on("Extract the lead sponsor", "Acme Pharma")
	sp = newTestExtractor(q).Sponsors(context.Background(), doc, nil).Sponsors
	require.NotNil(t, sp)
	assert.Equal(t, "Acme Pharma", sp.LeadSponsor)
	assert.Nil(t, sp.Collaborators)

	assert.Nil(t, newTestExtractor(&scripted{}).Sponsors(context.Background(), doc, nil).Sponsors)
}

func TestDetailsOnlyPresentKeys(t *testing.T) {
	q := (&scripted{}).on("key study details",
		`{"enrollment": 120, "enrollment_type": "Anticipated", "conditions": [], "start_date": null}`)

	frag := newTestExtractor(q).Details(context.Background(), doc, nil)

	assert.Equal(t, "120", entity.StrOrEmpty(frag.Enrollment))
	assert.Equal(t, "Anticipated", entity.StrOrEmpty(frag.EnrollmentType))
	assert.Nil(t, frag.StartDate)
	assert.Nil(t, frag.OverallStatus)
	assert.NotNil(t, frag.Conditions)
	assert.Empty(t, frag.Conditions)
	assert.Nil(t, frag.Keywords)
}

func TestDetailsAndSummaryFailureSetNothing(t *testing.T) {
	e := newTestExtractor((&scripted{}).on("key study details", "no idea"))
	d := &Diagnostics{}

	assert.Equal(t, &entity.ClinicalRecord{}, e.Details(context.Background(), doc, d))
	assert.Equal(t, &entity.ClinicalRecord{}, e.Summary(context.Background(), doc, d))
	assert.Len(t, d.Fallbacks, 2)
}

func TestSummary(t *testing.T) {
	q := (&scripted{}).on("brief summary and detailed description",
		`{"brief_summary": "Tests Drug X.", "detailed_description": "Longer text."}`)

	frag := newTestExtractor(q).Summary(context.Background(), doc, nil)

	assert.Equal(t, "Tests Drug X.", *frag.BriefSummary)
	assert.Equal(t, "Longer text.", *frag.DetailedDescription)
}

func TestNilDiagnosticsIsSafe(t *testing.T) {
	var d *Diagnostics
	d.Note("x %d", 1)
	d.Fallback("g", "r")
	assert.False(t, d.NeedsReview())
	assert.Nil(t, d.All())
}
