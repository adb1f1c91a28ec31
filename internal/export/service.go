package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/repository"
)

const RunsSheet = "Runs"

// RunsHeaders are the column titles of the runs sheet, in order.
var RunsHeaders = []string{
	"Started At",
	"Source",
	"Format",
	"Status",
	"Needs Review",
	"Chunks",
	"Brief Title",
	"Org Study ID",
	"Study Type",
	"Review Notes",
	"Error",
}

// Service produces XLSX bytes from the run journal.
type Service struct {
	runs   repository.ProtocolRunRepository
	logger *slog.Logger
}

func NewService(runs repository.ProtocolRunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunsXLSX returns a workbook with one row per run, newest first.
// from and to bound the run start date, inclusive, and may be nil.
func (s *Service) ExportRunsXLSX(ctx context.Context, filter repository.ListRunsFilter, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	runs, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	runs = withinDates(runs, from, to)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", RunsSheet); err != nil {
		return nil, err
	}

	for i, h := range RunsHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(RunsSheet, cell, h)
	}

	for i, r := range runs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(RunsSheet, cell, v)
		}

		rec := decodeRecord(r.RecordJSON)
		write(1, r.StartedAt.UTC().Format(time.RFC3339))
		write(2, r.SourcePath)
		write(3, r.Format)
		write(4, r.Status)
		write(5, yesNo(r.NeedsReview))
		write(6, r.ChunkCount)
		write(7, entity.StrOrEmpty(rec.BriefTitle))
		write(8, entity.StrOrEmpty(rec.OrgStudyID))
		if rec.StudyDesign != nil {
			write(9, rec.StudyDesign.StudyType)
		}
		write(10, truncate(strings.Join(r.ReviewNotes, "; "), 500))
		write(11, entity.StrOrEmpty(r.ErrorMessage))
	}

	_ = f.SetColWidth(RunsSheet, "A", "A", 22) // started
	_ = f.SetColWidth(RunsSheet, "B", "B", 48) // source
	_ = f.SetColWidth(RunsSheet, "C", "F", 12)
	_ = f.SetColWidth(RunsSheet, "G", "G", 48) // title
	_ = f.SetColWidth(RunsSheet, "H", "I", 18)
	_ = f.SetColWidth(RunsSheet, "J", "K", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(runs),
		"status", filter.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func withinDates(runs []*entity.ProtocolRun, from, to *time.Time) []*entity.ProtocolRun {
	if from == nil && to == nil {
		return runs
	}
	day := func(t time.Time) time.Time {
		t = t.UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	var out []*entity.ProtocolRun
	for _, r := range runs {
		d := day(r.StartedAt)
		if from != nil && d.Before(day(*from)) {
			continue
		}
		if to != nil && d.After(day(*to)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func decodeRecord(raw json.RawMessage) entity.ClinicalRecord {
	var rec entity.ClinicalRecord
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec)
	}
	return rec
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
