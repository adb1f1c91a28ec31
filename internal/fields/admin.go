package fields

import (
	"context"

	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// Details extracts enrollment, status, dates, conditions and keywords. Only
// keys present in the answer are set; nothing is defaulted.
func (e *Extractor) Details(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	frag := &entity.ClinicalRecord{}
	m, ok := e.askObject(ctx, "details", llm.BuildPrompt(detailsPrompt, content), detailsSchema, detailsSanitizer, d)
	if !ok {
		d.Fallback("details", "answer unusable, administrative fields omitted")
		return frag
	}

	frag.Enrollment = llm.FieldPtr(m, "enrollment")
	frag.EnrollmentType = llm.FieldPtr(m, "enrollment_type")
	frag.OverallStatus = llm.FieldPtr(m, "overall_status")
	frag.StartDate = llm.FieldPtr(m, "start_date")
	frag.StartDateType = llm.FieldPtr(m, "start_date_type")
	frag.PrimaryComplDate = llm.FieldPtr(m, "primary_compl_date")
	frag.PrimaryComplDateType = llm.FieldPtr(m, "primary_compl_date_type")
	frag.LastFollowUpDate = llm.FieldPtr(m, "last_follow_up_date")
	frag.LastFollowUpDateType = llm.FieldPtr(m, "last_follow_up_date_type")
	frag.Conditions = presentList(m, "conditions")
	frag.Keywords = presentList(m, "keywords")
	return frag
}

// Summary extracts the brief summary and detailed description.
func (e *Extractor) Summary(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	frag := &entity.ClinicalRecord{}
	m, ok := e.askObject(ctx, "summary", llm.BuildPrompt(summaryPrompt, content), summarySchema, summarySanitizer, d)
	if !ok {
		d.Fallback("summary", "answer unusable, summary omitted")
		return frag
	}
	frag.BriefSummary = llm.FieldPtr(m, "brief_summary")
	frag.DetailedDescription = llm.FieldPtr(m, "detailed_description")
	return frag
}

// presentList returns nil when key is absent and a non-nil list otherwise.
func presentList(m map[string]any, key string) []string {
	v, present := m[key]
	if !present {
		return nil
	}
	if list, ok := llm.AsStringList(v); ok {
		return list
	}
	return []string{}
}
