package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits for before rescanning.
const DefaultDebounce = 250 * time.Millisecond

// Watch scans dirs, reports the result, and rescans whenever a scanned
// file changes. Bursts of changes inside the debounce window cause one
// rescan. It returns nil when ctx is cancelled.
func (s *Scanner) Watch(ctx context.Context, debounce time.Duration, report func(map[string]*FileUsage), dirs ...string) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range dirs {
		if err := s.watchTree(w, dir); err != nil {
			return err
		}
	}

	scan := func() error {
		results, err := s.ScanDirectories(ctx, dirs...)
		if err != nil {
			return err
		}
		report(results)
		return nil
	}
	if err := scan(); err != nil {
		return ignoreCancel(ctx, err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.watchTree(w, ev.Name); err != nil {
						s.logger.Warn("watch failed", "dir", ev.Name, "error", err)
					}
					timer.Reset(debounce)
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) || !s.ShouldScan(ev.Name) {
				continue
			}
			s.logger.Debug("change", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)

		case <-timer.C:
			if err := scan(); err != nil {
				return ignoreCancel(ctx, err)
			}
		}
	}
}

// watchTree adds dir and its non-excluded subdirectories. fsnotify
// watches are not recursive.
func (s *Scanner) watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && s.excluded(path) {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}
