package fields

import (
	"context"

	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// ArmGroups extracts the study arms. An empty or unusable answer leaves the
// field absent rather than explicitly empty.
func (e *Extractor) ArmGroups(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	items, ok := e.askArray(ctx, "arm_groups", llm.BuildPrompt(armGroupsPrompt, content), armGroupSchema, armGroupSanitizer, d)
	if !ok {
		d.Fallback("arm_groups", "array answer unusable, arms omitted")
		return &entity.ClinicalRecord{}
	}

	var arms []entity.ArmGroup
	for i, m := range items {
		label, ok := llm.Field(m, "arm_group_label")
		if !ok {
			d.Note("arm_groups: item %d has no label, skipped", i+1)
			continue
		}
		arms = append(arms, entity.ArmGroup{
			Label:       label,
			Type:        llm.FieldPtr(m, "arm_type"),
			Description: llm.FieldPtr(m, "arm_group_description"),
		})
	}
	return &entity.ClinicalRecord{ArmGroups: arms}
}

// Interventions extracts interventions with their arm labels and other names.
// Same absence rule as ArmGroups.
func (e *Extractor) Interventions(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	items, ok := e.askArray(ctx, "interventions", llm.BuildPrompt(interventionsPrompt, content), interventionSchema, interventionSanitizer, d)
	if !ok {
		d.Fallback("interventions", "array answer unusable, interventions omitted")
		return &entity.ClinicalRecord{}
	}

	var out []entity.Intervention
	for i, m := range items {
		name, ok := llm.Field(m, "intervention_name")
		if !ok {
			d.Note("interventions: item %d has no name, skipped", i+1)
			continue
		}
		iv := entity.Intervention{
			Type:        llm.FieldPtr(m, "intervention_type"),
			Name:        name,
			Description: llm.FieldPtr(m, "intervention_description"),
		}
		if labels, ok := llm.AsStringList(m["arm_group_label"]); ok && len(labels) > 0 {
			iv.ArmGroupLabels = labels
		}
		if names, ok := llm.AsStringList(m["intervention_other_name"]); ok && len(names) > 0 {
			iv.OtherNames = names
		}
		out = append(out, iv)
	}
	return &entity.ClinicalRecord{Interventions: out}
}
