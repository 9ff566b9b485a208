// Package watcher watches a directory tree for specification files and
// dispatches debounced change notifications.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeType is the change derived for a flushed path. It is re-derived at
// flush time from the filesystem, not trusted from the original event, so
// coalesced renames and rewrites resolve to their final state.
type ChangeType string

const (
	ChangeModified ChangeType = "Modified"
	ChangeDeleted  ChangeType = "Deleted"
)

// DispatchFunc receives one flushed path with its derived change type.
type DispatchFunc func(path string, change ChangeType)

// Watcher watches a root directory recursively, records raw events into a
// pending map, and flushes paths whose last event is at least the debounce
// window old. A burst of writes to one file collapses into one dispatch.
type Watcher struct {
	root       string
	extensions []string
	debounce   time.Duration
	dispatch   DispatchFunc
	clock      Clock
	logger     *zap.Logger // optional

	mu      sync.Mutex
	pending map[string]time.Time
	timer   Timer
	fsw     *fsnotify.Watcher
	started bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for event and dispatch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithClock replaces the real clock, for tests.
func WithClock(c Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// NewWatcher creates a watcher over root. extensions filters which files are
// dispatched (empty = all); dispatch is called once per flushed path.
func NewWatcher(root string, extensions []string, debounce time.Duration, dispatch DispatchFunc, opts ...Option) *Watcher {
	w := &Watcher{
		root:       root,
		extensions: extensions,
		debounce:   debounce,
		dispatch:   dispatch,
		clock:      systemClock{},
		pending:    make(map[string]time.Time),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start creates the root if absent, begins watching it recursively, and runs
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		w.mu.Unlock()
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := addDirTree(fsw, w.root); err != nil {
		_ = fsw.Close()
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Info("watcher started",
			zap.String("root", w.root),
			zap.Strings("extensions", w.extensions),
			zap.Duration("debounce", w.debounce))
	}
	go w.run(ctx)
	return nil
}

// SyncExistingFiles records every matching file already under the root as a
// synthetic create, so pre-existing documents flow through the same debounce
// and dispatch path as live events. Call after Start.
func (w *Watcher) SyncExistingFiles() {
	filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if w.matchExtension(path) {
			w.record(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.watchNewDirectory(path)
			return
		}
	}
	if !w.matchExtension(path) {
		return
	}
	// Create, Write, Rename, and Remove all just record the path; the
	// change type is derived when the path is flushed.
	w.record(path)
}

// watchNewDirectory adds a directory created after Start to the watch set and
// records its files.
func (w *Watcher) watchNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := addDirTree(fsw, dir); err != nil && w.logger != nil {
		w.logger.Warn("failed to watch new directory", zap.String("path", dir), zap.Error(err))
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if w.matchExtension(path) {
			w.record(path)
		}
		return nil
	})
}

func addDirTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

// record stores (path, now) in the pending map and rearms the flush timer to
// fire at the earliest pending timestamp plus the debounce window.
func (w *Watcher) record(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = w.clock.Now()
	w.rearmLocked()
}

func (w *Watcher) rearmLocked() {
	if len(w.pending) == 0 {
		return
	}
	var earliest time.Time
	for _, ts := range w.pending {
		if earliest.IsZero() || ts.Before(earliest) {
			earliest = ts
		}
	}
	d := earliest.Add(w.debounce).Sub(w.clock.Now())
	if d < 0 {
		d = 0
	}
	if w.timer == nil {
		w.timer = w.clock.AfterFunc(d, w.flush)
		return
	}
	w.timer.Reset(d)
}

// flush snapshots and clears the due pending entries under the mutex, rearms
// for any remaining entries, then dispatches each flushed path. The critical
// section never includes I/O.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := w.clock.Now()
	var due []string
	for path, ts := range w.pending {
		if now.Sub(ts) >= w.debounce {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.rearmLocked()
	w.mu.Unlock()

	for _, path := range due {
		go w.dispatchPath(path)
	}
}

// dispatchPath derives the change type from the filesystem and invokes the
// dispatch callback. Panics are contained so one bad path cannot take down
// the watcher.
func (w *Watcher) dispatchPath(path string) {
	defer func() {
		if r := recover(); r != nil && w.logger != nil {
			w.logger.Error("dispatch panicked", zap.String("path", path), zap.Any("panic", r))
		}
	}()

	change := ChangeModified
	if _, err := os.Stat(path); err != nil {
		change = ChangeDeleted
	}
	if w.logger != nil {
		w.logger.Info("dispatching change", zap.String("path", path), zap.String("change", string(change)))
	}
	w.dispatch(path, change)
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.ToLower(e) == ext || "."+strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}

// Stop releases the OS watch handle and the debounce timer. It is safe to
// call multiple times. Already-dispatched paths are not cancelled.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.fsw != nil {
		_ = w.fsw.Close()
		w.fsw = nil
	}
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
