package fields

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
)

// StudyDesign determines the study type and fills the matching design
// sub-record. An undetermined type is treated as Interventional.
func (e *Extractor) StudyDesign(ctx context.Context, content string, d *Diagnostics) *entity.ClinicalRecord {
	var rawType, phase, purpose string

	m, ok := e.askObject(ctx, "design", llm.BuildPrompt(designPrompt, content), designSchema, designSanitizer, d)
	if ok {
		rawType, _ = llm.Field(m, "study_type")
		phase, _ = llm.Field(m, "phase")
		purpose, _ = llm.Field(m, "primary_purpose")
	} else {
		d.Fallback("design", "object answer unusable, asking per field")
		rawType, _ = e.SingleString(ctx, content, "study type",
			"This should be one of: 'Interventional', 'Observational', or 'Expanded Access'.")
		phase, _ = e.SingleString(ctx, content, "study phase",
			"For example: 'Phase 1', 'Phase 2', 'Phase 3', 'Phase 4', 'Phase 1/2', etc.")
		purpose, _ = e.SingleString(ctx, content, "primary purpose of the study",
			"For interventional studies, this could be: Treatment, Prevention, Diagnostic, etc.")
	}

	studyType, known := constants.CanonicalizeStudyType(rawType)
	switch {
	case rawType == "":
		d.Fallback("design", "study type not found, assuming "+string(constants.Interventional))
	case !known:
		d.Fallback("design", fmt.Sprintf("study type %q not recognized, assuming %s", llm.Truncate(rawType, 80), constants.Interventional))
	}

	sd := &entity.StudyDesign{StudyType: string(studyType)}
	switch studyType {
	case constants.Interventional:
		sd.Interventional = e.interventional(ctx, content, phase, purpose, d)
	case constants.Observational:
		sd.Observational = e.observational(ctx, content, d)
	}

	e.logger.Debug("fields.design.done",
		"study_type", sd.StudyType,
		"interventional", sd.Interventional != nil,
		"observational", sd.Observational != nil,
	)
	return &entity.ClinicalRecord{StudyDesign: sd}
}

func (e *Extractor) interventional(ctx context.Context, content, phase, purpose string, d *Diagnostics) *entity.InterventionalDesign {
	design := &entity.InterventionalDesign{
		Subtype:    purpose,
		Phase:      phase,
		Allocation: constants.DefaultAllocation,
	}
	if design.Subtype == "" {
		design.Subtype = constants.DefaultInterventionalSubtype
	}
	if design.Phase == "" {
		design.Phase = constants.DefaultPhase
	}

	if assignment, found := e.SingleString(ctx, content, "study design/interventional study model",
		"This could be: Single Group Assignment, Parallel Assignment, Crossover Assignment, etc."); found {
		design.Assignment = &assignment
	}
	if allocation, found := e.SingleString(ctx, content, "allocation method",
		"This should be one of: 'Randomized', 'Non-randomized', or 'N/A'."); found {
		design.Allocation = allocation
	}

	m, ok := e.askObject(ctx, "masking", llm.BuildPrompt(maskingPrompt, content), maskingSchema, maskingSanitizer, d)
	if !ok {
		d.Note("masking: answer unusable, masking omitted")
		return design
	}
	masking := &entity.Masking{
		NoMasking:          llm.FieldPtr(m, "no_masking"),
		MaskedSubject:      llm.FieldPtr(m, "masked_subject"),
		MaskedCaregiver:    llm.FieldPtr(m, "masked_caregiver"),
		MaskedInvestigator: llm.FieldPtr(m, "masked_investigator"),
		MaskedAssessor:     llm.FieldPtr(m, "masked_assessor"),
		Description:        llm.FieldPtr(m, "description"),
	}
	if *masking != (entity.Masking{}) {
		design.Masking = masking
	}
	return design
}

// observational applies its defaults only when the answer is unusable as a
// whole; missing keys in a usable answer stay blank.
func (e *Extractor) observational(ctx context.Context, content string, d *Diagnostics) *entity.ObservationalDesign {
	m, ok := e.askObject(ctx, "observational", llm.BuildPrompt(observationalPrompt, content), observationalSchema, observationalSanitizer, d)
	if !ok {
		d.Fallback("observational", "answer unusable, using defaults")
		return &entity.ObservationalDesign{
			StudyDesign:          constants.DefaultObservationalDesign,
			Timing:               constants.DefaultTiming,
			BiospecimenRetention: constants.DefaultBiospecimen,
			NumberOfGroups:       constants.DefaultNumberOfGroups,
		}
	}

	od := &entity.ObservationalDesign{
		StudyDesign:            fieldOr(m, "observational_study_design", ""),
		Timing:                 fieldOr(m, "timing", ""),
		BiospecimenRetention:   fieldOr(m, "biospecimen_retention", ""),
		BiospecimenDescription: llm.FieldPtr(m, "biospecimen_description"),
		NumberOfGroups:         fieldOr(m, "number_of_groups", ""),
		PatientRegistry:        llm.FieldPtr(m, "patient_registry"),
		TargetDurationQuantity: llm.FieldPtr(m, "target_duration_quantity"),
		TargetDurationUnits:    llm.FieldPtr(m, "target_duration_units"),
	}
	if od.PatientRegistry != nil {
		// Registry flags arrive as booleans or Yes/No; the schema wants yes/no.
		reg := "no"
		if llm.ParseYes(*od.PatientRegistry) {
			reg = "yes"
		}
		od.PatientRegistry = &reg
	}
	return od
}
