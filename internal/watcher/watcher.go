// Package watcher polls a source tree and reports created, modified and
// deleted Python files in debounced batches.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"doccov/internal/analyzer"
	"doccov/internal/slogutil"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with each debounced batch. Calls never overlap.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	Debounce     time.Duration
	PollInterval time.Duration
	// Exclude holds directory name substrings, as for the analyzer.
	Exclude []string
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		Debounce:     500 * time.Millisecond,
		PollInterval: time.Second,
		Exclude:      append([]string(nil), analyzer.DefaultExclude...),
	}
}

type fileState struct {
	size    int64
	modTime time.Time
}

// Watcher polls root for changes. Polling keeps it portable and needs no
// per-directory registration.
type Watcher struct {
	root    string
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	last    map[string]fileState
}

// New creates a watcher for root, which may be a directory or a single file.
func New(root string, config Config, logger *slog.Logger, handler ChangeHandler) *Watcher {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &Watcher{
		root:    root,
		config:  config,
		logger:  logger,
		handler: handler,
	}
}

// Run polls until ctx is done. Pending events are dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	calls := make(chan []Event, 1)
	debouncer := NewBatchDebouncer(w.config.Debounce, func(events []Event) {
		select {
		case calls <- events:
		case <-ctx.Done():
		}
	})
	defer debouncer.Cancel()

	if _, err := w.Poll(); err != nil {
		return err
	}
	w.logger.Info("Watching for changes", "root", w.root, "files", len(w.last))

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-calls:
			if w.handler != nil {
				w.handler(events)
			}
		case <-ticker.C:
			events, err := w.Poll()
			if err != nil {
				w.logger.Warn("Poll failed", "root", w.root, "error", err.Error())
				continue
			}
			debouncer.Add(events...)
		}
	}
}

// Poll takes a snapshot and returns the changes since the previous one,
// sorted by path. The first call only records the snapshot.
func (w *Watcher) Poll() ([]Event, error) {
	current, err := w.snapshot()
	if err != nil {
		return nil, err
	}
	previous := w.last
	w.last = current
	if previous == nil {
		return nil, nil
	}

	now := time.Now()
	var events []Event
	for path, st := range current {
		old, ok := previous[path]
		switch {
		case !ok:
			events = append(events, Event{Type: EventCreate, Path: path, Timestamp: now})
		case old != st:
			events = append(events, Event{Type: EventModify, Path: path, Timestamp: now})
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			events = append(events, Event{Type: EventDelete, Path: path, Timestamp: now})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events, nil
}

// snapshot records size and modification time of every eligible .py file.
// A missing root is an empty tree.
func (w *Watcher) snapshot() (map[string]fileState, error) {
	files := map[string]fileState{}
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != w.root && w.IsExcluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".py") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[path] = fileState{size: info.Size(), modTime: info.ModTime()}
		return nil
	})
	return files, err
}

// IsExcluded reports whether a directory name contains an exclude pattern.
func (w *Watcher) IsExcluded(name string) bool {
	for _, pattern := range w.config.Exclude {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}
