package utils

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
)

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func anyList(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}

// ToPBRun converts a journal row. The rendered XML is only included when
// withXML is set since it dominates the message size.
func ToPBRun(r *entity.ProtocolRun, withXML bool) (*structpb.Struct, error) {
	m := map[string]any{
		"id":           r.ID.String(),
		"source_path":  r.SourcePath,
		"content_hash": r.ContentHash,
		"format":       r.Format,
		"status":       r.Status,
		"started_at":   r.StartedAt.UTC().Format(time.RFC3339),
		"chunk_count":  r.ChunkCount,
		"text_chars":   r.TextChars,
		"needs_review": r.NeedsReview,
		"review_notes": anyList(r.ReviewNotes),
		"model_name":   strOrEmpty(r.ModelName),
	}
	if r.FinishedAt != nil {
		m["finished_at"] = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	if r.ErrorMessage != nil {
		m["error"] = *r.ErrorMessage
	}
	if withXML && r.XML != nil {
		m["xml"] = *r.XML
	}
	return structpb.NewStruct(m)
}

// ToPBResult converts a pipeline result for the ProcessDocument response.
func ToPBResult(res pipeline.Result) (*structpb.Struct, error) {
	m := map[string]any{
		"source":       res.Source,
		"xml":          res.XML,
		"ok":           res.Err == nil,
		"chunks":       res.Chunks,
		"text_chars":   res.TextChars,
		"needs_review": res.Diagnostics.NeedsReview(),
		"review_notes": anyList(res.Diagnostics.All()),
	}
	if res.RunID != uuid.Nil {
		m["run_id"] = res.RunID.String()
	}
	if res.Err != nil {
		m["error"] = res.Err.Error()
	}
	if res.Record != nil {
		m["brief_title"] = strOrEmpty(res.Record.BriefTitle)
		m["org_study_id"] = strOrEmpty(res.Record.OrgStudyID)
	}
	return structpb.NewStruct(m)
}

// StructString returns the string at key, or "" when absent or not a string.
func StructString(s *structpb.Struct, key string) string {
	v, ok := s.GetFields()[key]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

func StructBool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

// StructInt returns the number at key truncated to int, or def when absent.
func StructInt(s *structpb.Struct, key string, def int) int {
	v, ok := s.GetFields()[key]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int(v.GetNumberValue())
}

func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	// strip time to midnight UTC to match DATE semantics
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
