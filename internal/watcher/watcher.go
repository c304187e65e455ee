package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/specsync/internal/logger"
)

var log = logger.ForComponent("watcher")

// Watcher reports create and modify events for files matching the configured
// patterns. fsnotify is not recursive, so every directory below a pattern's
// base is added individually, including directories created later.
type Watcher struct {
	config      WatcherConfig
	root        string
	exclude     map[string]bool
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	debouncer   *Debouncer
	onFlush     func([]FileEvent)
	watched     map[string]bool
	mu          sync.RWMutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

func New(config WatcherConfig, onFlush func([]FileEvent)) (*Watcher, error) {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}

	for _, p := range append(append([]string{}, config.Patterns...), config.IgnorePatterns...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		root:      root,
		exclude:   make(map[string]bool),
		fsWatcher: fsWatcher,
		onFlush:   onFlush,
		watched:   make(map[string]bool),
	}

	for _, f := range config.ExcludeFiles {
		if abs, err := filepath.Abs(f); err == nil {
			w.exclude[abs] = true
		}
	}

	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.flush)

	return w, nil
}

func (w *Watcher) addToWatcher(path string) error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()

	if w.watched[path] {
		return nil
	}
	if err := w.fsWatcher.Add(path); err != nil {
		return err
	}
	w.watched[path] = true
	return nil
}

// baseDirs returns the directories to watch: the static prefix of every
// pattern, or its closest existing ancestor below Root when the prefix does
// not exist yet (target/classes before the first build).
func (w *Watcher) baseDirs() []string {
	seen := make(map[string]bool)
	var dirs []string

	for _, pattern := range w.config.Patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		dir := filepath.Join(w.root, filepath.FromSlash(base))

		for dir != w.root {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}

		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) AddRoot(path string) error {
	log.Info("adding root to watch", "path", path)

	if err := w.addToWatcher(path); err != nil {
		return err
	}

	if err := w.walkAndAdd(path, false); err != nil {
		return err
	}

	log.Debug("root added", "path", path)
	return nil
}

// walkAndAdd watches every directory below path. With report set, matching
// files already present are queued as creates: they may have been written
// before the directory's watch was registered.
func (w *Watcher) walkAndAdd(path string, report bool) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		log.Debug("failed to read directory", "path", path, "error", err)
		return err
	}

	for _, entry := range entries {
		fullPath := filepath.Join(path, entry.Name())

		if !entry.IsDir() {
			if report && entry.Type().IsRegular() && w.Matches(fullPath) {
				w.debouncer.Add(FileEvent{Path: fullPath, Type: EventCreate, Timestamp: time.Now()})
			}
			continue
		}

		if w.shouldIgnore(fullPath) {
			continue
		}

		if err := w.addToWatcher(fullPath); err != nil {
			log.Debug("failed to watch directory", "path", fullPath, "error", err)
			continue
		}
		log.Debug("watching directory", "path", fullPath)
		w.walkAndAdd(fullPath, report)
	}

	return nil
}

func (w *Watcher) Start(ctx context.Context) error {
	log.Info("starting file watcher", "root", w.root, "patterns", w.config.Patterns)

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	w.running = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.handleEvents()

	for _, dir := range w.baseDirs() {
		if err := w.AddRoot(dir); err != nil {
			w.Stop()
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	return nil
}

func (w *Watcher) handleEvents() {
	defer close(w.done)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			log.Debug("file event", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !w.shouldIgnore(event.Name) {
						if err := w.addToWatcher(event.Name); err == nil {
							w.walkAndAdd(event.Name, true)
						}
					}
					continue
				}
			}

			if fileEvent := w.convertEvent(event); fileEvent != nil {
				w.debouncer.Add(*fileEvent)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) convertEvent(event fsnotify.Event) *FileEvent {
	var eventType EventType

	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreate
	case event.Has(fsnotify.Write):
		eventType = EventModify
	default:
		return nil
	}

	if !w.Matches(event.Name) {
		return nil
	}

	return &FileEvent{
		Path:      event.Name,
		Type:      eventType,
		Timestamp: time.Now(),
	}
}

// Matches reports whether a change to path should trigger a sync.
func (w *Watcher) Matches(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if w.exclude[abs] || w.shouldIgnore(abs) {
		return false
	}

	rel, ok := w.relative(abs)
	if !ok {
		return false
	}

	for _, pattern := range w.config.Patterns {
		if match, _ := doublestar.Match(filepath.ToSlash(pattern), rel); match {
			return true
		}
	}
	return false
}

func (w *Watcher) relative(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) shouldIgnore(path string) bool {
	rel, ok := w.relative(path)
	if !ok {
		rel = filepath.ToSlash(path)
	}

	if !w.config.WatchHidden {
		for _, part := range strings.Split(rel, "/") {
			if strings.HasPrefix(part, ".") && part != "." && part != ".." {
				return true
			}
		}
	}

	for _, pattern := range w.config.IgnorePatterns {
		if match, _ := doublestar.Match(pattern, rel); match {
			return true
		}
	}

	return false
}

func (w *Watcher) flush(events []FileEvent) {
	log.Info("flushing events", "count", len(events))

	if len(events) == 0 || w.onFlush == nil {
		return
	}

	w.onFlush(events)
}

// Stop closes the fsnotify watcher and drops events still waiting for the
// quiet period.
func (w *Watcher) Stop() error {
	log.Info("stopping file watcher")

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.debouncer.Stop(false)
		w.fsWatcherMu.Lock()
		defer w.fsWatcherMu.Unlock()
		return w.fsWatcher.Close()
	}

	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	w.debouncer.Stop(false)

	w.fsWatcherMu.Lock()
	err := w.fsWatcher.Close()
	w.fsWatcherMu.Unlock()

	<-done
	return err
}
