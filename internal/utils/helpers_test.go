package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/fields"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
)

func TestToPBRun(t *testing.T) {
	id := uuid.New()
	fin := time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC)
	run := &entity.ProtocolRun{
		ID: id, SourcePath: "/in/a.pdf", Format: "PDF", Status: "FAILED",
		StartedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt:   &fin,
		ErrorMessage: entity.Str("boom"),
		ReviewNotes:  []string{"x"},
		XML:          entity.Str("<study_collection/>"),
	}

	s, err := ToPBRun(run, false)
	require.NoError(t, err)
	assert.Equal(t, id.String(), StructString(s, "id"))
	assert.Equal(t, "2026-01-02T03:04:05Z", StructString(s, "started_at"))
	assert.Equal(t, "2026-01-02T03:04:06Z", StructString(s, "finished_at"))
	assert.Equal(t, "boom", StructString(s, "error"))
	assert.Equal(t, []any{"x"}, s.AsMap()["review_notes"])
	assert.NotContains(t, s.GetFields(), "xml")

	s, err = ToPBRun(run, true)
	require.NoError(t, err)
	assert.Equal(t, "<study_collection/>", StructString(s, "xml"))
}

func TestToPBResult(t *testing.T) {
	d := &fields.Diagnostics{}
	d.Fallback("titles", "defaults used")
	res := pipeline.Result{
		Source: "/in/a.pdf", XML: "<x/>", Chunks: 2, Diagnostics: d,
		Record: &entity.ClinicalRecord{BriefTitle: entity.Str("Study of Drug X")},
	}

	s, err := ToPBResult(res)
	require.NoError(t, err)
	assert.True(t, StructBool(s, "ok"))
	assert.True(t, StructBool(s, "needs_review"))
	assert.Equal(t, 2, StructInt(s, "chunks", 0))
	assert.Equal(t, "Study of Drug X", StructString(s, "brief_title"))
	assert.NotContains(t, s.GetFields(), "run_id")
	assert.NotContains(t, s.GetFields(), "error")

	res.Err = errors.New("no text")
	res.RunID = uuid.New()
	s, err = ToPBResult(res)
	require.NoError(t, err)
	assert.False(t, StructBool(s, "ok"))
	assert.Equal(t, "no text", StructString(s, "error"))
	assert.Equal(t, res.RunID.String(), StructString(s, "run_id"))
}

func TestStructAccessors(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"limit": 5, "status": "FAILED", "bad": "x"})
	require.NoError(t, err)

	assert.Equal(t, 5, StructInt(s, "limit", 100))
	assert.Equal(t, 100, StructInt(s, "missing", 100))
	assert.Equal(t, 7, StructInt(s, "bad", 7))
	assert.Equal(t, "FAILED", StructString(s, "status"))
	assert.Equal(t, "", StructString(nil, "status"))
	assert.False(t, StructBool(nil, "async"))
}

func TestParseYMD(t *testing.T) {
	got, err := ParseYMD("2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseYMD("03/09/2026")
	assert.Error(t, err)
}
