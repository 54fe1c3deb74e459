// Package watch turns file system events under a declarations directory
// into debounced batches of changed and removed files.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultMaxBatch bounds how many distinct paths one batch coalesces.
const DefaultMaxBatch = 1000

// Batch is one debounced set of file changes, each list sorted.
type Batch struct {
	Changed []string
	Removed []string
}

// Empty reports whether the batch carries no change.
func (b Batch) Empty() bool { return len(b.Changed) == 0 && len(b.Removed) == 0 }

// Handler runs once per batch. Batches are delivered one at a time.
type Handler func(ctx context.Context, b Batch) error

// Watcher watches a directory tree.
type Watcher struct {
	filter   Filter
	debounce time.Duration
	maxBatch int
	logger   *slog.Logger
	known    map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithMaxBatch overrides DefaultMaxBatch.
func WithMaxBatch(n int) Option {
	return func(w *Watcher) { w.maxBatch = n }
}

// New creates a watcher. known lists the files already loaded, so that
// removing their directory reports them removed.
func New(filter Filter, debounce time.Duration, known []string, opts ...Option) *Watcher {
	w := &Watcher{
		filter:   filter,
		debounce: debounce,
		maxBatch: DefaultMaxBatch,
		logger:   slog.Default(),
		known:    make(map[string]bool, len(known)),
	}
	for _, p := range known {
		w.known[p] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done, calling handle for every non-empty batch.
// A handler error is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.filter.Root); err != nil {
		return err
	}

	q := newPending(w.debounce, w.maxBatch)
	defer q.timer.Stop()

	w.logger.Info("watching", "root", w.filter.Root, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			if w.filter.Ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fsw, event.Name); err != nil {
						w.logger.Warn("failed to watch directory", "path", event.Name, "error", err)
					}
					w.addExisting(q, event.Name)
				}
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				q.add(event.Name)
			}
			if q.full() && !w.deliver(ctx, q.take(), handle) {
				return nil
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-q.timer.C:
			if !w.deliver(ctx, q.take(), handle) {
				return nil
			}
		}
	}
}

// deliver classifies paths and hands the batch to handle. It reports false
// once ctx is done.
func (w *Watcher) deliver(ctx context.Context, paths []string, handle Handler) bool {
	b := w.classify(paths)
	if b.Empty() {
		return true
	}
	w.logger.Debug("batch", "changed", len(b.Changed), "removed", len(b.Removed))
	if err := handle(ctx, b); err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("batch failed", "error", err)
	}
	return ctx.Err() == nil
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.filter.Root && w.filter.Ignored(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// addExisting queues files that landed in a new directory before its
// watch was registered.
func (w *Watcher) addExisting(q *pending, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			q.add(path)
		}
		return nil
	})
}

// classify stats each path. Present wanted files are changed; missing
// paths remove themselves and every known file below them.
func (w *Watcher) classify(paths []string) Batch {
	changed := make(map[string]bool)
	removed := make(map[string]bool)
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err == nil && info.Mode().IsRegular():
			if w.filter.Wants(p) {
				changed[p] = true
				w.known[p] = true
			}
		case err == nil && info.IsDir():
		case errors.Is(err, fs.ErrNotExist):
			prefix := p + string(filepath.Separator)
			for k := range w.known {
				if k == p || strings.HasPrefix(k, prefix) {
					removed[k] = true
					delete(w.known, k)
				}
			}
		default:
			w.logger.Warn("stat failed", "path", p, "error", err)
		}
	}
	return Batch{Changed: sortedKeys(changed), Removed: sortedKeys(removed)}
}

func sortedKeys(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
