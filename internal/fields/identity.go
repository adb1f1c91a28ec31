package fields

import (
	"context"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// Titles extracts brief title, official title and acronym from the opening
// chunk. When the object answer is unusable each title is asked for alone.
func (e *Extractor) Titles(ctx context.Context, main string, d *Diagnostics) *entity.ClinicalRecord {
	frag := &entity.ClinicalRecord{}

	m, ok := e.askObject(ctx, "titles", llm.BuildPrompt(titlesPrompt, main), titlesSchema, titlesSanitizer, d)
	if ok {
		frag.BriefTitle = entity.Str(fieldOr(m, "brief_title", constants.UnknownTitle))
		frag.OfficialTitle = entity.Str(fieldOr(m, "official_title", constants.UnknownOfficialTitle))
		frag.Acronym = llm.FieldPtr(m, "acronym")
		return frag
	}

	d.Fallback("titles", "object answer unusable, asking per field")
	e.logger.Info("fields.titles.fallback")

	brief, found := e.SingleString(ctx, main, "brief title (short title) of the study",
		"This is usually at the beginning of the protocol.")
	if !found {
		brief = constants.UnknownTitle
	}
	official, found := e.SingleString(ctx, main, "official title (full title) of the study",
		"This is usually at the beginning of the protocol and may be longer than the brief title.")
	if !found {
		official = constants.UnknownOfficialTitle
	}
	frag.BriefTitle = &brief
	frag.OfficialTitle = &official

	if acronym, found := e.SingleString(ctx, main, "study acronym or abbreviation",
		"This may appear near the title."); found {
		frag.Acronym = &acronym
	}
	return frag
}

// OrgStudyID extracts the sponsor's protocol number.
func (e *Extractor) OrgStudyID(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	id, found := e.SingleString(ctx, content, "organization's unique study identifier or protocol number",
		"This is often a code or number that identifies the study within the organization.")
	if !found {
		d.Fallback("org_study_id", "not found, using "+constants.UnknownStudyID)
		id = constants.UnknownStudyID
	}
	return &entity.ClinicalRecord{OrgStudyID: &id}
}

// Sponsors extracts the lead sponsor, collaborators and responsible party.
// If the object answer is unusable only the lead sponsor is asked for again.
func (e *Extractor) Sponsors(ctx context.Context, main string, d *Diagnostics) *entity.ClinicalRecord {
	m, ok := e.askObject(ctx, "sponsors", llm.BuildPrompt(sponsorsPrompt, main), sponsorsSchema, sponsorsSanitizer, d)
	if !ok {
		d.Fallback("sponsors", "object answer unusable, asking for lead sponsor only")
		lead, found := e.SingleString(ctx, main, "lead sponsor",
			"What organization is the primary/lead sponsor of this study?")
		if !found {
			return &entity.ClinicalRecord{}
		}
		return &entity.ClinicalRecord{Sponsors: &entity.Sponsors{LeadSponsor: lead}}
	}

	sp := &entity.Sponsors{LeadSponsor: fieldOr(m, "lead_sponsor", constants.UnknownSponsor)}
	if v, present := m["collaborators"]; present {
		if list, ok := llm.AsStringList(v); ok {
			sp.Collaborators = list
		}
	}

	_, hasType := m["responsible_party_type"]
	_, hasTitle := m["investigator_title"]
	_, hasAffiliation := m["investigator_affiliation"]
	if hasType || hasTitle || hasAffiliation {
		sp.ResponsibleParty = &entity.ResponsibleParty{
			Type:                    llm.FieldPtr(m, "responsible_party_type"),
			InvestigatorTitle:       llm.FieldPtr(m, "investigator_title"),
			InvestigatorAffiliation: llm.FieldPtr(m, "investigator_affiliation"),
		}
	}
	return &entity.ClinicalRecord{Sponsors: sp}
}
