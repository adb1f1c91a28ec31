package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string            // directories to watch (recursive)
	AllowedExts map[string]struct{} // nil -> default set
	InitialScan bool                // emit files already present under Roots
	Debounce    time.Duration       // coalesce bursts of writes to one file
}

// StartWatcher emits the paths of protocol documents created or rewritten
// under the roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		return nil, nil, errors.New("no roots provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "error", err)
		return nil, nil, err
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	var initial []string
	for _, root := range cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && AllowedExt(filepath.Ext(path), cfg.AllowedExts) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("ingest.watch.add_failed", "root", root, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	var mu sync.Mutex
	pending := map[string]struct{}{}
	flush := func() {
		mu.Lock()
		defer mu.Unlock()
		for p := range pending {
			select {
			case evCh <- p:
				delete(pending, p)
			default:
				// channel full; keep it for the next flush
			}
		}
	}

	var wg sync.WaitGroup
	var timer *time.Timer

	go func() {
		defer func() {
			_ = w.Close()
			mu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			mu.Unlock()
			wg.Wait()
			close(evCh)
			close(errCh)
		}()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Has(fsnotify.Create) {
					// new directories are watched too; plain files fail silently
					_ = w.Add(e.Name)
				}
				if !AllowedExt(filepath.Ext(e.Name), cfg.AllowedExts) || !(e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				if cfg.Debounce > 0 {
					if timer != nil && timer.Stop() {
						wg.Done()
					}
					wg.Add(1)
					timer = time.AfterFunc(cfg.Debounce, func() {
						defer wg.Done()
						flush()
					})
					mu.Unlock()
				} else {
					mu.Unlock()
					flush()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}
