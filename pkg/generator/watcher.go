package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/jsdocgen/pkg/render"
)

// WatchOptions configures a Watcher.
type WatchOptions struct {
	// Debounce delays regeneration after the last event for a file.
	// Default: 200ms.
	Debounce time.Duration

	// OnRegenerate is called after each regeneration with its outcome.
	OnRegenerate func(render.Summary, error)
}

// Watcher keeps the output page current while files under the root change.
//
// Events for the same file within the debounce window are merged. When the
// window closes the file is rescanned (or dropped if it no longer exists),
// the index is updated, and the page is rendered again from the index.
type Watcher struct {
	watcher   *fsnotify.Watcher
	generator *Generator
	matcher   *matcher
	root      string
	output    Output
	options   WatchOptions
	logger    *slog.Logger

	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex
	pending        sync.WaitGroup

	stopChan chan struct{}
	loopDone chan struct{}
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// NewWatcher creates a watcher for root. The generator's index should
// already hold an initial run of root.
func NewWatcher(g *Generator, root string, opts RunOptions, out Output, options WatchOptions, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Debounce <= 0 {
		options.Debounce = 200 * time.Millisecond
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	m, err := newMatcher(opts)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		watcher:        fw,
		generator:      g,
		matcher:        m,
		root:           absRoot,
		output:         out,
		options:        options,
		logger:         logger,
		debounceTimers: make(map[string]*time.Timer),
		stopChan:       make(chan struct{}),
		loopDone:       make(chan struct{}),
	}, nil
}

// Start adds watches for the root and every non-excluded directory below
// it, then processes events in the background.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher already stopped")
	}
	if w.started {
		return errors.New("watcher already started")
	}

	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.started = true

	w.logger.Info("File watcher started", "root", w.root)
	go w.eventLoop()
	return nil
}

// addTree watches dir and its subdirectories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root {
			if rel, ok := w.rel(path); ok && w.matcher.excluded(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(path); err != nil {
			if path == w.root {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// Stop stops watching. Pending regenerations are dropped. Safe to call more
// than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopChan)

	w.debounceMu.Lock()
	for _, timer := range w.debounceTimers {
		if timer.Stop() {
			w.pending.Done()
		}
	}
	w.debounceTimers = make(map[string]*time.Timer)
	w.debounceMu.Unlock()

	err := w.watcher.Close()
	if w.started {
		<-w.loopDone
	}
	// A refresh that already started runs to completion.
	w.pending.Wait()
	w.logger.Info("File watcher stopped")
	return err
}

func (w *Watcher) eventLoop() {
	defer close(w.loopDone)
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, ok := w.rel(event.Name)
	if !ok || w.matcher.excluded(rel) {
		return
	}

	// New directories need their own watch.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.matcher.included(rel) {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.logger.Debug("File event", "op", event.Op.String(), "file", rel)
	w.debounce(event.Name)
}

// debounce schedules a refresh of path once the debounce window closes.
func (w *Watcher) debounce(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debounceTimers[path]; exists && timer.Stop() {
		w.pending.Done()
	}

	w.pending.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.options.Debounce, func() {
		defer w.pending.Done()

		w.debounceMu.Lock()
		if w.debounceTimers[path] == timer {
			delete(w.debounceTimers, path)
		}
		w.debounceMu.Unlock()

		select {
		case <-w.stopChan:
			return
		default:
		}
		w.refresh(path)
	})
	w.debounceTimers[path] = timer
}

// refresh rescans or drops path and renders the page again.
func (w *Watcher) refresh(path string) {
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		if w.generator.RemoveFile(path) {
			w.logger.Info("Removed file from documentation", "file", path)
		}
	} else {
		doc, err := w.generator.UpdateFile(w.root, path)
		if err != nil {
			w.logger.Warn("Failed to rescan file", "file", path, "error", err)
			return
		}
		w.logger.Info("Rescanned file", "file", doc.RelPath, "entries", doc.Result.EntryCount())
	}

	sum, err := w.generator.RenderIndex(w.output)
	if err != nil {
		w.logger.Error("Failed to regenerate documentation", "error", err)
	} else {
		w.logger.Info("Documentation regenerated", "output", w.output.OutputPath, "files", sum.Files, "entries", sum.Entries)
	}
	if w.options.OnRegenerate != nil {
		w.options.OnRegenerate(sum, err)
	}
}

// rel returns the slash separated path of p relative to the root.
func (w *Watcher) rel(p string) (string, bool) {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// GetStats returns watcher statistics.
func (w *Watcher) GetStats() WatcherStats {
	w.debounceMu.Lock()
	pending := len(w.debounceTimers)
	w.debounceMu.Unlock()

	w.mu.Lock()
	running := w.started && !w.stopped
	w.mu.Unlock()

	return WatcherStats{PendingRefreshes: pending, IsRunning: running}
}

// WatcherStats contains watcher statistics.
type WatcherStats struct {
	PendingRefreshes int
	IsRunning        bool
}
