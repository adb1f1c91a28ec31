package textextract

import (
	"fmt"
	"os"
)

// extractHTML strips scripts and unsafe markup, then converts the page to
// markdown so its headings survive as # lines.
func (e *Extractor) extractHTML(path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	md, err := e.md.ConvertString(e.html.Sanitize(string(raw)))
	if err != nil {
		return Result{}, fmt.Errorf("convert html: %w", err)
	}
	return Result{Text: md, Pages: 1, Method: MethodHTML}, nil
}
