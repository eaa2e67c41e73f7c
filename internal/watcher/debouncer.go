package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces events per path over a quiet window, flushing early
// when the batch cap is reached.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]ChangeEvent)

	mu      sync.Mutex
	events  map[string]ChangeEvent
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]ChangeEvent)) *Debouncer {
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		events:   make(map[string]ChangeEvent),
		onFlush:  onFlush,
	}
}

func (d *Debouncer) Add(event ChangeEvent) {
	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()
		return
	}

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.events[event.Path] = event

	if len(d.events) >= d.maxBatch {
		d.flushLocked()
		return
	}

	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped {
			d.mu.Unlock()
			return
		}
		d.flushLocked()
	})

	d.mu.Unlock()
}

// flushLocked hands the batch to onFlush outside the lock; it must be
// entered holding mu and releases it itself.
func (d *Debouncer) flushLocked() {
	events := make([]ChangeEvent, 0, len(d.events))
	for _, event := range d.events {
		events = append(events, event)
	}
	d.events = make(map[string]ChangeEvent)

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	d.mu.Unlock()

	if len(events) > 0 && d.onFlush != nil {
		d.onFlush(events)
	}
}

func (d *Debouncer) Stop() {
	d.mu.Lock()

	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if len(d.events) > 0 {
		d.flushLocked()
		return
	}
	d.mu.Unlock()
}
