package constants

import "strings"

// Source formats stored in protocol_run.format.
const (
	PDF      = "PDF"
	MARKDOWN = "MARKDOWN"
	TEXT     = "TEXT"
	HTML     = "HTML"
)

// FileTypes holds the allowed values for the format field in ProtocolRun.
var FileTypes = []string{PDF, MARKDOWN, TEXT, HTML}

// AllowedExtensions holds the default file extensions picked up by directory scans.
var AllowedExtensions = map[string]struct{}{
	"pdf":      {},
	"md":       {},
	"markdown": {},
	"txt":      {},
	"html":     {},
	"htm":      {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the source format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "md", "markdown":
		return MARKDOWN
	case "txt":
		return TEXT
	case "html", "htm":
		return HTML
	default:
		return ""
	}
}

// MaxFileMBDefault caps the size of a source document.
const MaxFileMBDefault = 100
