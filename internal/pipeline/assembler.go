package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/fields"
)

// EmptyDocument stands in for a document that produced no chunks.
const EmptyDocument = "Empty protocol document"

const DefaultPrefixChunks = 3

// ChunkSelector reports whether a chunk holds the section an extractor wants.
type ChunkSelector func(chunk string) bool

// KeywordSelector matches chunks containing any of the keywords, ignoring case.
func KeywordSelector(keywords ...string) ChunkSelector {
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return func(chunk string) bool {
		c := strings.ToLower(chunk)
		for _, k := range lower {
			if strings.Contains(c, k) {
				return true
			}
		}
		return false
	}
}

// Selectors picks the chunk handed to the section-specific extractors.
type Selectors struct {
	Eligibility ChunkSelector
	Outcomes    ChunkSelector
	Arms        ChunkSelector
}

func DefaultSelectors() Selectors {
	return Selectors{
		Eligibility: KeywordSelector("eligibility", "inclusion criteria", "exclusion criteria"),
		Outcomes:    KeywordSelector("outcome", "endpoint", "efficacy"),
		Arms:        KeywordSelector("arm", "group", "treatment"),
	}
}

// Assembler runs the field extractors over a chunked document and merges
// their fragments into one record.
type Assembler struct {
	fields       *fields.Extractor
	selectors    Selectors
	prefixChunks int
	logger       *slog.Logger
}

type AssemblerOption func(*Assembler)

func WithSelectors(s Selectors) AssemblerOption {
	return func(a *Assembler) {
		def := DefaultSelectors()
		if s.Eligibility == nil {
			s.Eligibility = def.Eligibility
		}
		if s.Outcomes == nil {
			s.Outcomes = def.Outcomes
		}
		if s.Arms == nil {
			s.Arms = def.Arms
		}
		a.selectors = s
	}
}

func WithPrefixChunks(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.prefixChunks = n
		}
	}
}

func NewAssembler(fx *fields.Extractor, logger *slog.Logger, opts ...AssemblerOption) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Assembler{
		fields:       fx,
		selectors:    DefaultSelectors(),
		prefixChunks: DefaultPrefixChunks,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the record for a chunked document. Extractors run one after
// another in a fixed order; a failing extractor only degrades its own fields.
func (a *Assembler) Assemble(ctx context.Context, chunks []string) (*entity.ClinicalRecord, *fields.Diagnostics) {
	start := time.Now()
	d := &fields.Diagnostics{}

	if len(chunks) == 0 {
		a.logger.Error("pipeline.assemble.no_chunks")
		chunks = []string{EmptyDocument}
	}
	main := chunks[0]
	prefix := strings.Join(chunks[:min(a.prefixChunks, len(chunks))], "\n\n")
	eligibility := a.pick("eligibility", chunks, a.selectors.Eligibility, prefix)
	outcomes := a.pick("outcomes", chunks, a.selectors.Outcomes, prefix)
	arms := a.pick("arms", chunks, a.selectors.Arms, prefix)

	a.logger.Info("pipeline.assemble.start", "chunks", len(chunks), "prefix_chars", len(prefix))

	steps := []struct {
		name string
		run  func() *entity.ClinicalRecord
	}{
		{"titles", func() *entity.ClinicalRecord { return a.fields.Titles(ctx, main, d) }},
		{"org_study_id", func() *entity.ClinicalRecord { return a.fields.OrgStudyID(ctx, prefix, d) }},
		{"design", func() *entity.ClinicalRecord { return a.fields.StudyDesign(ctx, prefix, d) }},
		{"eligibility", func() *entity.ClinicalRecord { return a.fields.Eligibility(ctx, eligibility, d) }},
		{"primary_outcomes", func() *entity.ClinicalRecord {
			return a.fields.Outcomes(ctx, outcomes, constants.PrimaryOutcome, d)
		}},
		{"secondary_outcomes", func() *entity.ClinicalRecord {
			return a.fields.Outcomes(ctx, outcomes, constants.SecondaryOutcome, d)
		}},
		{"arm_groups", func() *entity.ClinicalRecord { return a.fields.ArmGroups(ctx, arms, d) }},
		{"interventions", func() *entity.ClinicalRecord { return a.fields.Interventions(ctx, arms, d) }},
		{"sponsors", func() *entity.ClinicalRecord { return a.fields.Sponsors(ctx, main, d) }},
		{"details", func() *entity.ClinicalRecord { return a.fields.Details(ctx, prefix, d) }},
		{"summary", func() *entity.ClinicalRecord { return a.fields.Summary(ctx, prefix, d) }},
	}

	rec := &entity.ClinicalRecord{}
	for _, s := range steps {
		t := time.Now()
		rec.Merge(s.run())
		a.logger.Debug("pipeline.assemble.step", "step", s.name, "elapsed_ms", time.Since(t).Milliseconds())
	}
	ensureRequired(rec)

	for _, msg := range Review(rec) {
		d.Note("review: %s", msg)
	}

	a.logger.Info("pipeline.assemble.done",
		"needs_review", d.NeedsReview(),
		"fallbacks", len(d.Fallbacks),
		"notes", len(d.Notes),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, d
}

func (a *Assembler) pick(section string, chunks []string, sel ChunkSelector, fallback string) string {
	for i, c := range chunks {
		if sel(c) {
			a.logger.Debug("pipeline.assemble.chunk", "section", section, "chunk", i+1)
			return c
		}
	}
	a.logger.Debug("pipeline.assemble.chunk", "section", section, "chunk", "prefix")
	return fallback
}

// ensureRequired fills the identification and sponsor fields every record
// must carry when no extractor produced them.
func ensureRequired(rec *entity.ClinicalRecord) {
	if rec.BriefTitle == nil {
		rec.BriefTitle = entity.Str(constants.UnknownTitle)
	}
	if rec.OfficialTitle == nil {
		rec.OfficialTitle = entity.Str(constants.UnknownOfficialTitle)
	}
	if rec.OrgStudyID == nil {
		rec.OrgStudyID = entity.Str(constants.UnknownStudyID)
	}
	if rec.Sponsors == nil {
		rec.Sponsors = &entity.Sponsors{LeadSponsor: constants.UnknownSponsor}
	}
}

// Review lists the fields of rec a person should check before submission.
func Review(rec *entity.ClinicalRecord) []string {
	v := common.NewValidator().
		Field("brief_title", rec.BriefTitle, common.Required, common.NotSentinel(constants.UnknownTitle)).
		Field("official_title", rec.OfficialTitle, common.Required, common.NotSentinel(constants.UnknownOfficialTitle)).
		Field("org_study_id", rec.OrgStudyID, common.Required, common.NotSentinel(constants.UnknownStudyID))

	if rec.Sponsors != nil {
		v.Field("lead_sponsor", rec.Sponsors.LeadSponsor, common.NotSentinel(constants.UnknownSponsor))
	}
	if rec.StudyDesign != nil {
		v.Field("study_type", rec.StudyDesign.StudyType, common.OneOf(constants.StudyTypesAsStringSlice()...))
	}
	if e := rec.Eligibility; e != nil {
		v.Field("criteria", e.Criteria, common.NotSentinel(constants.NotProvided))
		v.Field("gender", e.Gender, common.OneOf(constants.AllowedGenders...))
	}
	return v.Messages()
}
