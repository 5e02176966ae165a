// Package watch reruns a scan when files below a root change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/alpha1e0/kiwi/internal/intake"
	"github.com/alpha1e0/kiwi/internal/logging"
)

const DefaultDebounce = 500 * time.Millisecond

// Handler receives the root-relative slash paths that changed since the
// previous call. A non-nil error stops the watch.
type Handler func(ctx context.Context, changed []string) error

type Options struct {
	Debounce time.Duration
	Logger   *zap.SugaredLogger
}

// Run watches every non-VCS directory below root and calls fn once changes
// have been quiet for debounce. Calls to fn never overlap. It returns nil
// when ctx is done.
func Run(ctx context.Context, root string, debounce time.Duration, fn Handler) error {
	return RunWith(ctx, root, Options{Debounce: debounce}, fn)
}

func RunWith(ctx context.Context, root string, opts Options, fn Handler) error {
	if fn == nil {
		return fmt.Errorf("watch handler is required")
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", root)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := logging.Or(opts.Logger)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init: %w", err)
	}
	defer w.Close()

	if err := addRecursive(w, root, log); err != nil {
		return err
	}

	timer := time.NewTimer(opts.Debounce)
	disarm(timer)
	defer timer.Stop()

	pending := map[string]struct{}{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, keep := relevant(root, ev)
			if !keep {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Lstat(ev.Name); err == nil && fi.IsDir() {
					if err := addRecursive(w, ev.Name, log); err != nil {
						log.Warnw("watch new directory", "path", rel, "error", err)
					}
				}
			}
			pending[rel] = struct{}{}
			disarm(timer)
			timer.Reset(opts.Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watch error", "error", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = map[string]struct{}{}
			log.Debugw("watch triggered", "changed", len(changed))
			if err := fn(ctx, changed); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// disarm stops t and discards a tick that already fired but was not yet
// received, so a following Reset waits the full duration.
func disarm(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// relevant drops chmod-only events and anything inside VCS metadata.
func relevant(root string, ev fsnotify.Event) (string, bool) {
	if ev.Op == fsnotify.Chmod {
		return "", false
	}
	rel, err := filepath.Rel(root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if intake.IsVCSDir(part) {
			return "", false
		}
	}
	return rel, true
}

func addRecursive(w *fsnotify.Watcher, dir string, log *zap.SugaredLogger) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			log.Warnw("watch walk", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && intake.IsVCSDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
