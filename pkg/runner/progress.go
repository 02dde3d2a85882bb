package runner

import (
	"sync"
	"time"
)

// ProgressUpdate is one liveness signal from an executor.
type ProgressUpdate struct {
	Timestamp time.Time
	Message   string
}

// ProgressReporter carries progress updates from a running
// scenario to the liveness monitor. Updates are dropped when the
// buffer is full.
type ProgressReporter struct {
	mu     sync.Mutex
	ch     chan ProgressUpdate
	last   *ProgressUpdate
	closed bool
}

// NewProgressReporter creates a buffered progress channel.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{ch: make(chan ProgressUpdate, 64)}
}

// Report emits a progress update. Safe for concurrent use and
// after Close. A nil reporter ignores updates.
func (p *ProgressReporter) Report(msg string) {
	if p == nil {
		return
	}
	update := ProgressUpdate{Timestamp: time.Now(), Message: msg}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &update
	if p.closed {
		return
	}
	select {
	case p.ch <- update:
	default:
	}
}

// Channel returns the channel the liveness monitor reads.
func (p *ProgressReporter) Channel() <-chan ProgressUpdate {
	return p.ch
}

// LastUpdate returns the most recent update, or nil.
func (p *ProgressReporter) LastUpdate() *ProgressUpdate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Close signals that no more updates will be sent. Safe to call
// multiple times.
func (p *ProgressReporter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}
