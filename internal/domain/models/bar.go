package models

import (
	"math"
	"time"
)

// Bar is one OHLCV record for a single interval. Bars are immutable once
// constructed; anything that fails Validate is rejected before storage.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate checks the OHLCV invariants: all fields finite, low > 0,
// volume >= 0, and low <= min(open, close) <= max(open, close) <= high.
func (b Bar) Validate() error {
	for _, f := range [...]struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
		{"volume", b.Volume},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &ValidationError{Field: f.name, Reason: "not finite"}
		}
	}
	if b.Low <= 0 {
		return &ValidationError{Field: "low", Reason: "must be positive"}
	}
	if b.Volume < 0 {
		return &ValidationError{Field: "volume", Reason: "must be non-negative"}
	}
	lo := math.Min(b.Open, b.Close)
	hi := math.Max(b.Open, b.Close)
	if b.Low > lo {
		return &ValidationError{Field: "low", Reason: "exceeds open/close"}
	}
	if b.High < hi {
		return &ValidationError{Field: "high", Reason: "below open/close"}
	}
	return nil
}
