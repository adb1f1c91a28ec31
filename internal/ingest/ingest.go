package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/constants"
)

// Document is one protocol file found under a scanned root.
type Document struct {
	Path         string
	Format       string
	HashHex      string
	Size         int64
	Deduplicated bool // same content as an earlier document in the scan
	Known        bool // already processed according to ScanOptions.Known
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Known        uint32
	Failed       uint32
}

// HashFile returns the hex sha256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AllowedExt checks an extension against exts, or the default set when exts is nil.
func AllowedExt(ext string, exts map[string]struct{}) bool {
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// ParseExts builds an extension set from user input such as ".pdf, md".
func ParseExts(list []string) map[string]struct{} {
	if len(list) == 0 {
		return nil
	}
	exts := map[string]struct{}{}
	for _, e := range list {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			exts[e] = struct{}{}
		}
	}
	return exts
}
