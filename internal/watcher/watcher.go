// Package watcher observes the manifest file and the external store roots,
// coalescing filesystem events into debounced change batches. Callers use
// the batches to invalidate query caches or trigger a re-sync.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/augmentcode/augment-extensions/internal/logger"
)

var log = logger.ForComponent("watcher")

type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

type ChangeEvent struct {
	Path      string
	Type      EventType
	Timestamp time.Time
}

// Watcher batches change events from the watched roots and delivers them to
// a single callback.
type Watcher struct {
	config    Config
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	onChange  func([]ChangeEvent)

	mu      sync.Mutex
	roots   []string
	running bool
	cancel  context.CancelFunc
}

func New(config Config, onChange func([]ChangeEvent)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
		onChange:  onChange,
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.flush)
	return w, nil
}

// AddRoot watches path and, if it is a directory, its subtree.
func (w *Watcher) AddRoot(path string) error {
	if err := w.fsWatcher.Add(path); err != nil {
		return err
	}

	w.mu.Lock()
	w.roots = append(w.roots, path)
	w.mu.Unlock()

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		w.walkAndAdd(path)
	}

	log.Info("watching root", "path", path)
	return nil
}

func (w *Watcher) walkAndAdd(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Debug("failed to read directory", "path", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		if w.shouldIgnore(sub) {
			continue
		}
		if err := w.fsWatcher.Add(sub); err != nil {
			log.Debug("failed to watch directory", "path", sub, "error", err)
			continue
		}
		w.walkAndAdd(sub)
	}
}

func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	go w.handleEvents(ctx)
	log.Info("watcher started")
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.running = false
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.debouncer.Stop()
	w.fsWatcher.Close()
}

func (w *Watcher) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.shouldIgnore(event.Name) {
					if err := w.fsWatcher.Add(event.Name); err == nil {
						w.walkAndAdd(event.Name)
					}
				}
			}

			if change := w.convert(event); change != nil {
				w.debouncer.Add(*change)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Debug("watch error", "error", err)
		}
	}
}

func (w *Watcher) convert(event fsnotify.Event) *ChangeEvent {
	if w.shouldIgnore(event.Name) {
		return nil
	}

	var t EventType
	switch {
	case event.Has(fsnotify.Create):
		t = EventCreate
	case event.Has(fsnotify.Write):
		t = EventModify
	case event.Has(fsnotify.Remove):
		t = EventDelete
	case event.Has(fsnotify.Rename):
		t = EventRename
	default:
		return nil
	}

	return &ChangeEvent{Path: event.Name, Type: t, Timestamp: time.Now()}
}

func (w *Watcher) shouldIgnore(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range w.config.IgnorePatterns {
		if match, err := doublestar.Match(pattern, slashed); err == nil && match {
			return true
		}
	}
	return false
}

func (w *Watcher) flush(events []ChangeEvent) {
	log.Debug("change batch", "count", len(events))
	if w.onChange != nil {
		w.onChange(events)
	}
}
