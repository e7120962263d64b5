package market

import (
	"testing"
	"time"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

func barAt(i int) models.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100 + float64(i)*0.25
	return models.Bar{
		Timestamp: base.Add(time.Duration(i) * time.Minute),
		Open:      price,
		High:      price + 1,
		Low:       price - 1,
		Close:     price + 0.5,
		Volume:    10,
	}
}

func TestWindowAppendNeverExceedsBound(t *testing.T) {
	const w = 10
	win := NewWindow(w)
	for i := 0; i < 5*w; i++ {
		win.Append(barAt(i))
		if win.Len() > 2*w {
			t.Fatalf("window grew to %d, bound is %d", win.Len(), 2*w)
		}
	}
}

func TestWindowTrimKeepsMostRecent(t *testing.T) {
	const w = 10
	win := NewWindow(w)
	for i := 0; i <= 2*w; i++ { // one past the bound triggers the trim
		win.Append(barAt(i))
	}
	if win.Len() != w {
		t.Fatalf("expected %d bars after trim, got %d", w, win.Len())
	}
	snap := win.Snapshot()
	for i, b := range snap {
		want := barAt(2*w - w + 1 + i)
		if !b.Timestamp.Equal(want.Timestamp) {
			t.Fatalf("bar %d: got %v want %v", i, b.Timestamp, want.Timestamp)
		}
	}
}

func TestWindowBulkLoadSortsByTimestamp(t *testing.T) {
	win := NewWindow(100)
	win.BulkLoad([]models.Bar{barAt(3), barAt(1), barAt(2)})
	snap := win.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp.Before(snap[i-1].Timestamp) {
			t.Fatalf("bars out of order at %d", i)
		}
	}
}

func TestWindowAppendKeepsTimestampOrder(t *testing.T) {
	win := NewWindow(100)
	for _, i := range []int{0, 1, 4, 2, 5, 3} {
		win.Append(barAt(i))
	}
	snap := win.Snapshot()
	for i := 0; i < len(snap); i++ {
		want := barAt(i)
		if !snap[i].Timestamp.Equal(want.Timestamp) {
			t.Fatalf("bar %d: got %v want %v", i, snap[i].Timestamp, want.Timestamp)
		}
	}
}

func TestWindowAppendTieKeepsArrivalOrder(t *testing.T) {
	win := NewWindow(100)
	first := barAt(0)
	second := barAt(0)
	second.Close = first.Close + 9
	win.Append(first)
	win.Append(second)
	snap := win.Snapshot()
	if snap[0].Close != first.Close || snap[1].Close != second.Close {
		t.Fatalf("equal-timestamp bars reordered: %v then %v", snap[0].Close, snap[1].Close)
	}
}

func TestWindowSnapshotIsolation(t *testing.T) {
	win := NewWindow(10)
	win.Append(barAt(0))
	snap := win.Snapshot()
	win.Append(barAt(1))
	if len(snap) != 1 {
		t.Fatalf("snapshot mutated by later append")
	}
	snap[0].Close = -1
	if win.Snapshot()[0].Close == -1 {
		t.Fatalf("snapshot shares storage with window")
	}
}
