// Package window keeps an in-memory sliding window of recently processed
// report snapshots. The trust calculator reads it for corroboration and
// cross-batch duplicate flagging.
package window

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vietwatch/report-triage/internal/domain"
)

// Window holds report snapshots no older than the horizon, capped at maxSize.
// Safe for concurrent use.
type Window struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	horizon time.Duration
	maxSize int
	entries []domain.Snapshot
}

// New creates a window with the given horizon and capacity. A nil clock
// falls back to the real clock.
func New(horizon time.Duration, maxSize int, clock clockwork.Clock) *Window {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Window{
		clock:   clock,
		horizon: horizon,
		maxSize: maxSize,
	}
}

// Add records a snapshot and prunes anything past the horizon. Snapshots
// without a report time are dropped; they can never corroborate anything.
func (w *Window) Add(s domain.Snapshot) {
	if s.CreatedAt.IsZero() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune()
	w.entries = append(w.entries, s)
	if len(w.entries) > w.maxSize {
		w.entries = w.entries[len(w.entries)-w.maxSize:]
	}
}

// Recent returns a copy of the snapshots still inside the horizon,
// oldest first in insertion order.
func (w *Window) Recent() []domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune()
	out := make([]domain.Snapshot, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len reports how many snapshots are currently inside the horizon.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune()
	return len(w.entries)
}

// prune drops entries older than the horizon. Callers hold the lock.
// Entries arrive roughly in report-time order, so a single cutoff scan
// from the front is enough.
func (w *Window) prune() {
	cutoff := w.clock.Now().Add(-w.horizon)
	kept := w.entries[:0]
	for _, e := range w.entries {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	w.entries = kept
}
