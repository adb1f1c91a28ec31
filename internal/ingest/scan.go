package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/protocol-extractor/constants"
)

type ScanOptions struct {
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> default set
	SkipHidden  bool
	// Known reports whether content with this hash was already processed.
	Known func(ctx context.Context, hashHex string) bool
}

// Scan walks root and returns every protocol document under it in walk
// order, with content hashes. Per-file failures are recorded, not returned.
func Scan(ctx context.Context, root string, opts ScanOptions, logger *slog.Logger) ([]Document, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var docs []Document
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			docs = append(docs, Document{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if !AllowedExt(ext, opts.AllowedExts) {
			return nil
		}
		stats.Matched++

		doc := Document{Path: path, Format: constants.MapExtToFormat(ext)}
		if info, err := d.Info(); err == nil {
			doc.Size = info.Size()
		}
		hash, err := HashFile(path)
		if err != nil {
			doc.Err = err.Error()
			docs = append(docs, doc)
			stats.Failed++
			logger.Warn("ingest.hash.failed", "path", path, "error", err)
			return nil
		}
		doc.HashHex = hash

		if _, dup := seen[hash]; dup {
			doc.Deduplicated = true
			stats.Deduplicated++
		}
		seen[hash] = struct{}{}
		if !doc.Deduplicated && opts.Known != nil && opts.Known(ctx, hash) {
			doc.Known = true
			stats.Known++
		}

		docs = append(docs, doc)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return docs, stats, fmt.Errorf("walk: %w", err)
	}

	logger.Info("ingest.scan.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"deduplicated", stats.Deduplicated,
		"known", stats.Known,
		"failed", stats.Failed,
	)
	return docs, stats, nil
}

// Pending returns the documents that still need processing.
func Pending(docs []Document) []Document {
	var out []Document
	for _, d := range docs {
		if d.Err == "" && !d.Deduplicated && !d.Known {
			out = append(out, d)
		}
	}
	return out
}
