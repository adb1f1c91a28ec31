package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

var runColumns = []string{
	"id", "source_path", "content_hash", "format", "status", "started_at", "finished_at",
	"error_message", "chunk_count", "text_chars", "needs_review", "review_notes",
	"record_json", "xml", "model_name",
}

// RunOutcome is what a finished run records.
type RunOutcome struct {
	ChunkCount  int
	TextChars   int
	NeedsReview bool
	ReviewNotes []string
	Record      json.RawMessage
	XML         string
	ModelName   string
}

type ListRunsFilter struct {
	Status string // "" = any
	Limit  int    // <= 0 -> 100
}

type ProtocolRunRepository interface {
	Start(ctx context.Context, sourcePath, contentHash, format string) (*entity.ProtocolRun, error)
	FinishSuccess(ctx context.Context, runID uuid.UUID, out RunOutcome) error
	FinishFailure(ctx context.Context, runID uuid.UUID, message string, out RunOutcome) error
	GetByID(ctx context.Context, runID uuid.UUID) (*entity.ProtocolRun, error)
	FindByHash(ctx context.Context, contentHash string) (*entity.ProtocolRun, error)
	List(ctx context.Context, f ListRunsFilter) ([]*entity.ProtocolRun, error)
}

type protocolRunRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewProtocolRunRepository(db *DB, log *slog.Logger) ProtocolRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &protocolRunRepo{db: db, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (r *protocolRunRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

func (r *protocolRunRepo) Start(ctx context.Context, sourcePath, contentHash, format string) (*entity.ProtocolRun, error) {
	run := &entity.ProtocolRun{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: contentHash,
		Format:      format,
		StartedAt:   r.now(),
		Status:      string(constants.RunStatusRunning),
	}
	q, args := r.builder().Insert(runTable).
		Columns("id", "source_path", "content_hash", "format", "status", "started_at").
		Values(run.ID.String(), run.SourcePath, run.ContentHash, run.Format, run.Status, run.StartedAt.Format(timeLayout)).
		Query()
	if _, err := r.db.SQL.ExecContext(ctx, q, args...); err != nil {
		r.log.Error("protocol_run.start.failed", "source", sourcePath, "err", err)
		return nil, common.NewAppError("DB_INSERT", "start protocol run", errors.Join(common.ErrDatabase, err))
	}
	r.log.Info("protocol_run.started", "run_id", run.ID, "source", sourcePath, "format", format)
	return run, nil
}

func (r *protocolRunRepo) FinishSuccess(ctx context.Context, runID uuid.UUID, out RunOutcome) error {
	if err := r.finish(ctx, runID, constants.RunStatusExtracted, nil, out); err != nil {
		return err
	}
	r.log.Info("protocol_run.finished", "run_id", runID, "status", constants.RunStatusExtracted, "needs_review", out.NeedsReview)
	return nil
}

func (r *protocolRunRepo) FinishFailure(ctx context.Context, runID uuid.UUID, message string, out RunOutcome) error {
	if err := r.finish(ctx, runID, constants.RunStatusFailed, &message, out); err != nil {
		return err
	}
	r.log.Warn("protocol_run.finished", "run_id", runID, "status", constants.RunStatusFailed, "error", message)
	return nil
}

func (r *protocolRunRepo) finish(ctx context.Context, runID uuid.UUID, status constants.RunStatus, message *string, out RunOutcome) error {
	notes, err := json.Marshal(out.ReviewNotes)
	if err != nil {
		return fmt.Errorf("encode review notes: %w", err)
	}
	q, args := r.builder().Update(runTable).
		Set("status", string(status)).
		Set("finished_at", r.now().Format(timeLayout)).
		Set("error_message", nullString(message)).
		Set("chunk_count", out.ChunkCount).
		Set("text_chars", out.TextChars).
		Set("needs_review", boolInt(out.NeedsReview)).
		Set("review_notes", string(notes)).
		Set("record_json", nullBytes(out.Record)).
		Set("xml", nullString(&out.XML)).
		Set("model_name", nullString(&out.ModelName)).
		Where(entsql.EQ("id", runID.String())).
		Query()

	res, err := r.db.SQL.ExecContext(ctx, q, args...)
	if err != nil {
		r.log.Error("protocol_run.finish.failed", "run_id", runID, "status", status, "err", err)
		return common.NewAppError("DB_UPDATE", "finish protocol run", errors.Join(common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("protocol run %s: %w", runID, common.ErrNotFound)
	}
	return nil
}

func (r *protocolRunRepo) GetByID(ctx context.Context, runID uuid.UUID) (*entity.ProtocolRun, error) {
	runs, err := r.query(ctx, r.selectRuns().Where(entsql.EQ("id", runID.String())).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("protocol run %s: %w", runID, common.ErrNotFound)
	}
	return runs[0], nil
}

// FindByHash returns the latest successful run for a document content hash.
func (r *protocolRunRepo) FindByHash(ctx context.Context, contentHash string) (*entity.ProtocolRun, error) {
	sel := r.selectRuns().
		Where(entsql.And(
			entsql.EQ("content_hash", contentHash),
			entsql.EQ("status", string(constants.RunStatusExtracted)),
		)).
		OrderBy(entsql.Desc("started_at")).
		Limit(1)
	runs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("protocol run with hash %s: %w", contentHash, common.ErrNotFound)
	}
	return runs[0], nil
}

// List returns runs newest first.
func (r *protocolRunRepo) List(ctx context.Context, f ListRunsFilter) ([]*entity.ProtocolRun, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	sel := r.selectRuns()
	if f.Status != "" {
		sel = sel.Where(entsql.EQ("status", f.Status))
	}
	return r.query(ctx, sel.OrderBy(entsql.Desc("started_at")).Limit(limit))
}

func (r *protocolRunRepo) selectRuns() *entsql.Selector {
	return r.builder().Select(runColumns...).From(entsql.Table(runTable))
}

func (r *protocolRunRepo) query(ctx context.Context, sel *entsql.Selector) ([]*entity.ProtocolRun, error) {
	q, args := sel.Query()
	rows, err := r.db.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		r.log.Error("protocol_run.query.failed", "err", err)
		return nil, common.NewAppError("DB_QUERY", "query protocol runs", errors.Join(common.ErrDatabase, err))
	}
	defer rows.Close()

	var out []*entity.ProtocolRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(rows *sql.Rows) (*entity.ProtocolRun, error) {
	var (
		id, startedAt                                 string
		finishedAt, errMsg, notes, record, xml, model sql.NullString
		chunks, chars, review                         int64
		run                                           entity.ProtocolRun
	)
	if err := rows.Scan(&id, &run.SourcePath, &run.ContentHash, &run.Format, &run.Status, &startedAt,
		&finishedAt, &errMsg, &chunks, &chars, &review, &notes, &record, &xml, &model); err != nil {
		return nil, fmt.Errorf("scan protocol run: %w", err)
	}

	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("protocol run id %q: %w", id, err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("protocol run started_at %q: %w", startedAt, err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(timeLayout, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("protocol run finished_at %q: %w", finishedAt.String, err)
		}
		run.FinishedAt = &t
	}
	run.ErrorMessage = fromNull(errMsg)
	run.XML = fromNull(xml)
	run.ModelName = fromNull(model)
	run.ChunkCount = int(chunks)
	run.TextChars = int(chars)
	run.NeedsReview = review != 0
	if notes.Valid && notes.String != "" {
		if err := json.Unmarshal([]byte(notes.String), &run.ReviewNotes); err != nil {
			return nil, fmt.Errorf("protocol run review_notes: %w", err)
		}
	}
	if record.Valid && record.String != "" {
		run.RecordJSON = json.RawMessage(record.String)
	}
	return &run, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
