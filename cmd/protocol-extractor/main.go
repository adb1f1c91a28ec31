package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joseph-ayodele/protocol-extractor/internal/async"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
	"github.com/joseph-ayodele/protocol-extractor/internal/entity"
	"github.com/joseph-ayodele/protocol-extractor/internal/export"
	"github.com/joseph-ayodele/protocol-extractor/internal/ingest"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm"
	"github.com/joseph-ayodele/protocol-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/protocol-extractor/internal/pipeline"
	"github.com/joseph-ayodele/protocol-extractor/internal/render"
	repo "github.com/joseph-ayodele/protocol-extractor/internal/repository"
)

type options struct {
	document   string
	output     string
	recordOut  string
	fromRecord string
	dir        string
	workers    int
	force      bool
	export     string
	fromDate   string
	toDate     string
}

func main() {
	opts, configPath, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts, cfg, nil, logger, os.Stdout, os.Stderr))
}

// parseArgs reads flags given before or after the document argument, so
// "protocol-extractor doc.pdf -o out.xml" works like "-o out.xml doc.pdf".
func parseArgs(args []string, stderr io.Writer) (options, string, error) {
	var opts options
	var configPath string
	fs := flag.NewFlagSet("protocol-extractor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&configPath, "config", "", "YAML config file (default $PROTOCOL_CONFIG)")
	fs.StringVar(&opts.output, "o", "", "output XML file path (default <base>_protocol.xml)")
	fs.StringVar(&opts.output, "output", "", "output XML file path (default <base>_protocol.xml)")
	fs.StringVar(&opts.recordOut, "record-out", "", "also write the extracted record as JSON")
	fs.StringVar(&opts.fromRecord, "from-record", "", "render XML from an edited record JSON instead of a document")
	fs.StringVar(&opts.dir, "dir", "", "process every protocol document under this directory")
	fs.IntVar(&opts.workers, "workers", 0, "documents processed in parallel with --dir (default from config)")
	fs.BoolVar(&opts.force, "force", false, "with --dir, reprocess documents already in the run journal")
	fs.StringVar(&opts.export, "export", "", "write the run journal to this XLSX file")
	fs.StringVar(&opts.fromDate, "from", "", "with --export, first run date YYYY-MM-DD")
	fs.StringVar(&opts.toDate, "to", "", "with --export, last run date YYYY-MM-DD")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Convert clinical trial protocol documents to ClinicalTrials.gov PRS XML.\n\n")
		fmt.Fprintf(fs.Output(), "usage: protocol-extractor [flags] <document> [flags]\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, "", err
	}
	if fs.NArg() > 0 {
		opts.document = fs.Arg(0)
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return opts, "", err
		}
		if fs.NArg() > 0 {
			return opts, "", fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
	}
	return opts, configPath, nil
}

// run executes one CLI invocation and returns the exit code. q overrides the
// OpenAI client when set.
func run(ctx context.Context, opts options, cfg *common.Config, q llm.Querier, logger *slog.Logger, stdout, stderr io.Writer) int {
	modes := 0
	for _, set := range []bool{opts.document != "", opts.fromRecord != "", opts.dir != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		fmt.Fprintln(stderr, "Error: give only one of <document>, --from-record or --dir")
		return 2
	}
	if modes == 0 && opts.export == "" {
		fmt.Fprintln(stderr, "Error: a document, --from-record, --dir or --export is required")
		return 2
	}

	if opts.fromRecord != "" {
		return renderRecord(opts, stdout, stderr)
	}

	db, err := openJournal(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: open run journal: %v\n", err)
		return 1
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()
	var runs repo.ProtocolRunRepository
	if db != nil {
		runs = repo.NewProtocolRunRepository(db, logger)
	}

	code := 0
	if opts.document != "" || opts.dir != "" {
		if q == nil {
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return 2
			}
			client := openai.NewClient(openai.ConfigFrom(cfg.LLM), logger)
			q = client
		}
		popts := []pipeline.Option{pipeline.WithModelName(cfg.LLM.Model)}
		if runs != nil {
			popts = append(popts, pipeline.WithRunJournal(runs))
		}
		proc := pipeline.NewFromConfig(cfg, q, logger, popts...)

		if opts.document != "" {
			code = processOne(ctx, proc, opts, stdout, stderr)
		} else {
			code = processDir(ctx, proc, runs, cfg, opts, logger, stdout, stderr)
		}
	}

	if opts.export != "" {
		if c := exportRuns(ctx, runs, opts, logger, stdout, stderr); c != 0 {
			code = c
		}
	}
	return code
}

func openJournal(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*repo.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, nil
	}
	return repo.Open(ctx, repo.ConfigFrom(cfg.Database), logger)
}

func processOne(ctx context.Context, proc *pipeline.Processor, opts options, stdout, stderr io.Writer) int {
	output := opts.output
	if output == "" {
		output = filepath.Base(pipeline.DefaultOutputPath(opts.document))
	}

	res := proc.Process(ctx, opts.document)
	if err := pipeline.WriteXML(output, res.XML); err != nil {
		fmt.Fprintf(stdout, "Error processing PDF: %v\n", err)
		return 1
	}
	if opts.recordOut != "" && res.Record != nil {
		if err := writeRecord(opts.recordOut, res.Record); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	fmt.Fprintf(stdout, "Successfully converted %s to %s\n", opts.document, output)
	return 0
}

func processDir(ctx context.Context, proc *pipeline.Processor, runs repo.ProtocolRunRepository, cfg *common.Config, opts options, logger *slog.Logger, stdout, stderr io.Writer) int {
	scan := ingest.ScanOptions{SkipHidden: true}
	if runs != nil && !opts.force {
		scan.Known = func(ctx context.Context, hash string) bool {
			_, err := runs.FindByHash(ctx, hash)
			return err == nil
		}
	}
	docs, stats, err := ingest.Scan(ctx, opts.dir, scan, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: scan %s: %v\n", opts.dir, err)
		return 1
	}

	workers := opts.workers
	if workers <= 0 {
		workers = cfg.Server.Workers
	}

	var mu sync.Mutex
	failed := 0
	q := async.NewProcessorQueue(proc, logger,
		async.WithBaseContext(ctx),
		async.WithWorkers(workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
		async.WithOnDone(func(job async.Job, res pipeline.Result, writeErr error) {
			mu.Lock()
			defer mu.Unlock()
			if writeErr != nil {
				failed++
				fmt.Fprintf(stdout, "Error processing PDF: %v\n", writeErr)
				return
			}
			if res.Err != nil {
				failed++
			}
			fmt.Fprintf(stdout, "Successfully converted %s to %s\n", job.Source, job.Output)
		}),
	)

	for _, d := range ingest.Pending(docs) {
		job := async.Job{Source: d.Path, Output: pipeline.DefaultOutputPath(d.Path), SubmittedAt: time.Now()}
		if err := q.Enqueue(ctx, job); err != nil {
			logger.Error("batch.enqueue.failed", "path", d.Path, "err", err)
			break
		}
	}
	q.Shutdown(ctx)
	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "Interrupted: pending documents were not processed")
		return 130
	}

	fmt.Fprintf(stdout, "Scanned %d, matched %d, skipped %d known, %d duplicate, %d unreadable, %d failed\n",
		stats.Scanned, stats.Matched, stats.Known, stats.Deduplicated, stats.Failed, failed)
	if failed > 0 || stats.Failed > 0 {
		return 1
	}
	return 0
}

func exportRuns(ctx context.Context, runs repo.ProtocolRunRepository, opts options, logger *slog.Logger, stdout, stderr io.Writer) int {
	if runs == nil {
		fmt.Fprintln(stderr, "Error: --export needs a run journal (set DB_URL)")
		return 2
	}
	var from, to *time.Time
	for _, d := range []struct {
		raw string
		dst **time.Time
	}{{opts.fromDate, &from}, {opts.toDate, &to}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid date %q, use YYYY-MM-DD\n", d.raw)
			return 2
		}
		*d.dst = &t
	}

	xlsx, err := export.NewService(runs, logger).ExportRunsXLSX(ctx, repo.ListRunsFilter{}, from, to)
	if err != nil {
		fmt.Fprintf(stderr, "Error: export: %v\n", err)
		return 1
	}
	if err := os.WriteFile(opts.export, xlsx, 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Exported run journal to %s\n", opts.export)
	return 0
}

func renderRecord(opts options, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(opts.fromRecord)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	var rec entity.ClinicalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		fmt.Fprintf(stderr, "Error: parse %s: %v\n", opts.fromRecord, err)
		return 1
	}
	doc, err := render.Render(&rec)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	output := opts.output
	if output == "" {
		output = filepath.Base(pipeline.DefaultOutputPath(opts.fromRecord))
	}
	if err := pipeline.WriteXML(output, doc); err != nil {
		fmt.Fprintf(stdout, "Error processing PDF: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Successfully converted %s to %s\n", opts.fromRecord, output)
	return 0
}

func writeRecord(path string, rec *entity.ClinicalRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

