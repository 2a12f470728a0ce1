package watcher

import (
	"sort"
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once no new
// event arrived for the delay. Events on the same path are coalesced, so a
// batch holds at most one event per file.
type BatchDebouncer struct {
	delay   time.Duration
	emit    func([]Event)
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]Event
}

func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:   delay,
		emit:    emit,
		pending: make(map[string]Event),
	}
}

// Add merges events into the pending batch and restarts the quiet period.
func (b *BatchDebouncer) Add(events ...Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range events {
		prev, seen := b.pending[e.Path]
		if !seen {
			b.pending[e.Path] = e
			continue
		}
		if kind, keep := coalesce(prev.Type, e.Type); keep {
			e.Type = kind
			b.pending[e.Path] = e
		} else {
			delete(b.pending, e.Path)
		}
	}

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

// coalesce folds two consecutive events on one path. keep is false when the
// pair cancels out (a file created and removed within one batch).
func coalesce(prev, next EventType) (EventType, bool) {
	switch {
	case prev == EventCreate && next == EventDelete:
		return prev, false
	case prev == EventCreate:
		return EventCreate, true
	case prev == EventDelete && next == EventCreate:
		return EventModify, true
	default:
		return next, true
	}
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	batch := make([]Event, 0, len(b.pending))
	for _, e := range b.pending {
		batch = append(batch, e)
	}
	b.pending = make(map[string]Event)
	b.timer = nil
	b.mu.Unlock()

	if len(batch) == 0 || b.emit == nil {
		return
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	b.emit(batch)
}

// Cancel drops any pending events.
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = make(map[string]Event)
}

// Flush emits pending events now.
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// Pending returns the number of files with a pending event.
func (b *BatchDebouncer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
