// Package market holds the rolling per-session view of recent bar history.
package market

import (
	"sort"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

// Window is a bounded, timestamp-ordered buffer of bars. It is owned by
// exactly one session and is never touched by concurrent writers, so it
// carries no lock. Growth is capped at twice the configured size; crossing
// the cap trims back to the most recent size bars.
type Window struct {
	size int
	bars []models.Bar
}

// NewWindow creates a window holding up to 2*size bars before trimming.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{size: size, bars: make([]models.Bar, 0, size)}
}

// BulkLoad replaces the entire window, ordering input by timestamp with
// ties broken by arrival order.
func (w *Window) BulkLoad(bars []models.Bar) {
	next := make([]models.Bar, len(bars))
	copy(next, bars)
	sort.SliceStable(next, func(i, j int) bool {
		return next[i].Timestamp.Before(next[j].Timestamp)
	})
	if len(next) > 2*w.size {
		next = next[len(next)-w.size:]
	}
	w.bars = next
}

// Append adds one bar, keeping the window non-decreasing by timestamp
// with ties broken by arrival order, then enforces the bound: past 2*size
// bars the window keeps only the most recent size bars.
func (w *Window) Append(bar models.Bar) {
	i := len(w.bars)
	for i > 0 && w.bars[i-1].Timestamp.After(bar.Timestamp) {
		i--
	}
	w.bars = append(w.bars, models.Bar{})
	copy(w.bars[i+1:], w.bars[i:])
	w.bars[i] = bar
	if len(w.bars) > 2*w.size {
		kept := make([]models.Bar, w.size)
		copy(kept, w.bars[len(w.bars)-w.size:])
		w.bars = kept
	}
}

// Snapshot returns a point-in-time copy safe to hand to feature
// computation while the window keeps mutating.
func (w *Window) Snapshot() []models.Bar {
	out := make([]models.Bar, len(w.bars))
	copy(out, w.bars)
	return out
}

// Len reports the number of buffered bars.
func (w *Window) Len() int { return len(w.bars) }

// Size reports the configured trim target.
func (w *Window) Size() int { return w.size }
