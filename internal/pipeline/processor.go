package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/chunk"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/fields"
	"github.com/joseph-ayodele/protocol-extractor/internal/ingest"
	"github.com/joseph-ayodele/protocol-extractor/internal/render"
	"github.com/joseph-ayodele/protocol-extractor/internal/repository"
	"github.com/joseph-ayodele/protocol-extractor/internal/textextract"
)

// TextExtractor turns a source document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (textextract.Result, error)
}

// Result is the outcome of one document run. XML is always set; Err holds
// the failure the error document was rendered for.
type Result struct {
	RunID       uuid.UUID
	Source      string
	XML         string
	Record      *entity.ClinicalRecord
	Diagnostics *fields.Diagnostics
	Chunks      int
	TextChars   int
	Err         error
}

// Processor coordinates extract, chunk, assemble and render for a document.
type Processor struct {
	logger    *slog.Logger
	extractor TextExtractor
	splitter  *chunk.Splitter
	assembler *Assembler
	runs      repository.ProtocolRunRepository
	modelName string
}

type Option func(*Processor)

// WithRunJournal records every run in runs.
func WithRunJournal(runs repository.ProtocolRunRepository) Option {
	return func(p *Processor) { p.runs = runs }
}

// WithModelName sets the model name stored with journal rows.
func WithModelName(name string) Option {
	return func(p *Processor) { p.modelName = name }
}

func NewProcessor(logger *slog.Logger, extractor TextExtractor, splitter *chunk.Splitter, assembler *Assembler, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if splitter == nil {
		splitter = chunk.NewSplitter(chunk.DefaultMaxSize)
	}
	p := &Processor{logger: logger, extractor: extractor, splitter: splitter, assembler: assembler}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the whole pipeline for source. It never fails: any error,
// including a panic in a stage, yields the error document instead.
func (p *Processor) Process(ctx context.Context, source string) (res Result) {
	start := time.Now()
	res.Source = source

	var runID uuid.UUID
	if p.runs != nil {
		runID = p.startRun(ctx, source)
		res.RunID = runID
		ctx = common.WithRunID(ctx, runID.String())
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("processor.panic", "source", source, "panic", r)
			res.Err = fmt.Errorf("panic: %v", r)
		}
		if res.Err != nil {
			res.XML = render.RenderErrorStub(source, res.Err)
		}
		p.finishRun(ctx, runID, res)
		p.logger.Info("processor.done",
			"source", source,
			"ok", res.Err == nil,
			"chunks", res.Chunks,
			"needs_review", res.Diagnostics.NeedsReview(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}()

	text, err := p.extractor.Extract(ctx, source)
	if err != nil {
		p.logger.Error("processor.extract.failed", "source", source, "err", err)
		res.Err = err
		return res
	}
	res.TextChars = len(text.Text)

	chunks := p.splitter.Split(text.Text)
	res.Chunks = len(chunks)
	p.logger.Debug("processor.chunked", "source", source, "chunks", len(chunks), "method", text.Method, "pages", text.Pages)

	res.Record, res.Diagnostics = p.assembler.Assemble(ctx, chunks)

	xml, err := render.Render(res.Record)
	if err != nil {
		p.logger.Error("processor.render.failed", "source", source, "err", err)
		res.Err = err
		return res
	}
	res.XML = xml
	return res
}

// ProcessDocument processes source and, when output is set, writes the XML
// there. Only a failed write is returned as an error.
func (p *Processor) ProcessDocument(ctx context.Context, source, output string) (string, error) {
	res := p.Process(ctx, source)
	if output == "" {
		return res.XML, nil
	}
	if err := WriteXML(output, res.XML); err != nil {
		p.logger.Error("processor.write.failed", "output", output, "err", err)
		return res.XML, err
	}
	return res.XML, nil
}

// RenderRecord renders a record that was edited outside the pipeline.
func (p *Processor) RenderRecord(rec *entity.ClinicalRecord) (string, error) {
	return render.Render(rec)
}

// DefaultOutputPath is <dir>/<base>_protocol.xml for a source document.
func DefaultOutputPath(source string) string {
	base := filepath.Base(source)
	name := base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(filepath.Dir(source), name+"_protocol.xml")
}

func WriteXML(path, doc string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (p *Processor) startRun(ctx context.Context, source string) uuid.UUID {
	hash, err := ingest.HashFile(source)
	if err != nil {
		p.logger.Warn("processor.hash.failed", "source", source, "err", err)
	}
	format := constants.MapExtToFormat(filepath.Ext(source))
	run, err := p.runs.Start(ctx, source, hash, format)
	if err != nil {
		p.logger.Warn("processor.journal.start_failed", "source", source, "err", err)
		return uuid.Nil
	}
	return run.ID
}

func (p *Processor) finishRun(ctx context.Context, runID uuid.UUID, res Result) {
	if p.runs == nil || runID == uuid.Nil {
		return
	}
	out := repository.RunOutcome{
		ChunkCount:  res.Chunks,
		TextChars:   res.TextChars,
		NeedsReview: res.Diagnostics.NeedsReview(),
		ReviewNotes: res.Diagnostics.All(),
		XML:         res.XML,
		ModelName:   p.modelName,
	}
	if res.Record != nil {
		if b, err := json.Marshal(res.Record); err == nil {
			out.Record = b
		}
	}

	var err error
	if res.Err != nil {
		err = p.runs.FinishFailure(ctx, runID, res.Err.Error(), out)
	} else {
		err = p.runs.FinishSuccess(ctx, runID, out)
	}
	if err != nil {
		p.logger.Warn("processor.journal.finish_failed", "run_id", runID, "err", err)
	}
}
