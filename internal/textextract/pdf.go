package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	text, pages, err := e.pdfToText(ctx, path)
	if err == nil && strings.TrimSpace(text) != "" {
		return Result{Text: text, Pages: pages, Method: MethodPdftotext}, nil
	}
	if err == nil {
		err = errors.New("pdftotext returned no text")
	}
	if !e.cfg.PdfcpuFallback {
		return Result{Method: MethodPdftotext}, err
	}

	e.logger.Warn("textextract.pdf.fallback", "path", path, "reason", err)
	warn := "pdftotext: " + err.Error()

	text, pages, ferr := readContentStreams(path)
	if ferr != nil {
		return Result{Method: MethodPdfcpu, Warnings: []string{warn}}, fmt.Errorf("pdf text: %w; pdfcpu: %v", err, ferr)
	}
	return Result{Text: text, Pages: pages, Method: MethodPdfcpu, Warnings: []string{warn}}, nil
}

// pdfToText runs `pdftotext -layout -enc UTF-8 -eol unix <path> -`.
// Pages are separated by form feeds.
func (e *Extractor) pdfToText(ctx context.Context, path string) (string, int, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if msg := strings.TrimSpace(string(errb)); msg != "" {
			return "", 0, fmt.Errorf("pdftotext: %w: %s", err, clip(msg, 512))
		}
		return "", 0, fmt.Errorf("pdftotext: %w", err)
	}
	text := strings.TrimRight(string(out), "\f")
	return text, 1 + strings.Count(text, "\f"), nil
}

// readContentStreams decodes the text operators of every page with pdfcpu.
func readContentStreams(path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	pdf, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return "", 0, fmt.Errorf("pdfcpu read: %w", err)
	}

	var pages []string
	for pageNr := 1; pageNr <= pdf.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pdf, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		pages = append(pages, decodeContentStream(data))
	}
	return strings.Join(pages, "\f"), pdf.PageCount, nil
}

var rePDFString = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// decodeContentStream keeps the line structure of a page: T*, ' and a
// vertical Td/TD move start a new line, a horizontal move adds a space.
func decodeContentStream(data []byte) string {
	var sb strings.Builder
	newline := func() {
		if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		switch {
		case len(line) == 0:
		case bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			newline()
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			f := bytes.Fields(line)
			if len(f) == 3 && !isZero(f[1]) {
				newline()
			} else if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			newline()
			writeStrings(&sb, line)
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeStrings(&sb, line)
		}
	}
	return strings.TrimSpace(sb.String())
}

func writeStrings(sb *strings.Builder, line []byte) {
	for _, m := range rePDFString.FindAllSubmatch(line, -1) {
		sb.WriteString(unescapePDF(m[1]))
	}
}

func isZero(b []byte) bool {
	return strings.Trim(string(b), "-+0.") == ""
}

// unescapePDF resolves the backslash escapes of a PDF literal string.
func unescapePDF(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 == len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '0', '1', '2', '3', '4', '5', '6', '7':
			val := int(c - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		default:
			// \\ \( \) and unknown escapes yield the character itself
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
