package textextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/joseph-ayodele/protocol-extractor/constants"
	"github.com/joseph-ayodele/protocol-extractor/internal/common"
)

// Extraction methods reported in Result.Method.
const (
	MethodPdftotext = "pdftotext"
	MethodPdfcpu    = "pdfcpu"
	MethodHTML      = "html-markdown"
	MethodPlain     = "plain"
)

type Config struct {
	Pdftotext      string // binary name or absolute path; "" -> "pdftotext"
	PdfcpuFallback bool   // read content streams in-process when pdftotext fails
	MaxFileSize    int64  // bytes; <= 0 -> constants.MaxFileMBDefault MB
}

// ConfigFrom maps the extract section of the application config.
func ConfigFrom(c common.ExtractConfig) Config {
	return Config{
		Pdftotext:      c.Pdftotext,
		PdfcpuFallback: c.PdfcpuFallback,
		MaxFileSize:    int64(c.MaxFileMB) << 20,
	}
}

type Result struct {
	Text     string
	Pages    int
	Format   string // constants.PDF | MARKDOWN | TEXT | HTML
	Method   string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	html   *bluemonday.Policy
	md     *converter.Converter
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = int64(constants.MaxFileMBDefault) << 20
	}
	return &Extractor{
		cfg:    cfg,
		runner: execRunner{logger: logger},
		html:   bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// Extract reads the document at path and returns its normalized text.
// The format is picked from the file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		e.logger.Error("textextract.unsupported", "path", path, "ext", ext)
		return Result{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Format: format}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > e.cfg.MaxFileSize {
		return Result{Format: format}, fmt.Errorf("%w: %d bytes (max %d)", common.ErrFileTooLarge, info.Size(), e.cfg.MaxFileSize)
	}

	e.logger.Debug("textextract.start", "path", path, "format", format, "bytes", info.Size())

	var res Result
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.HTML:
		res, err = e.extractHTML(path)
	default:
		res, err = readPlain(path)
	}
	res.Format = format
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("textextract.failed", "path", path, "format", format, "error", err)
		return res, err
	}

	res.Text = Normalize(res.Text)
	if format == constants.PDF || format == constants.TEXT {
		res.Text = PromoteHeadings(res.Text)
	}
	if strings.TrimSpace(res.Text) == "" {
		return res, fmt.Errorf("%w: %s", common.ErrNoText, filepath.Base(path))
	}

	e.logger.Info("textextract.done",
		"path", path,
		"format", format,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func readPlain(path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Result{Text: string(b), Pages: 1, Method: MethodPlain}, nil
}
