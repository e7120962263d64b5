// Package features computes the indicator matrix and training labels from a
// window snapshot. Everything here is a pure function of its input: feeding
// the same snapshot twice yields the same table.
//
// Rows with insufficient lookback are marked NaN and omitted downstream;
// the same omission policy applies at training and inference time.
package features

import (
	"math"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

// Closes extracts the close column.
func Closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// RSI computes the relative strength index over a rolling simple mean of
// gains and losses. Entries before the first full window are NaN.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if period <= 0 || len(closes) <= period {
		return out
	}

	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			delta := closes[j] - closes[j-1]
			if delta > 0 {
				gain += delta
			} else {
				loss -= delta
			}
		}
		gain /= float64(period)
		loss /= float64(period)
		switch {
		case loss == 0 && gain == 0:
			// flat window, strength undefined
		case loss == 0:
			out[i] = 100
		default:
			rs := gain / loss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// EMA computes a span-based exponential moving average seeded with the
// first close (alpha = 2/(span+1)).
func EMA(closes []float64, span int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	if span < 1 {
		span = 1
	}
	alpha := 2.0 / float64(span+1)
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out
}

// VWAP computes the cumulative volume-weighted average of the typical price
// (H+L+C)/3. Entries with zero cumulative volume are NaN.
func VWAP(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	var cumPV, cumV float64
	for i, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		cumPV += typical * b.Volume
		cumV += b.Volume
		if cumV == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = cumPV / cumV
	}
	return out
}

// LaggedReturns computes the previous bar's percent change:
// lr[i] = (c[i-1]-c[i-2]) / c[i-2]. The first two entries are NaN.
func LaggedReturns(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	for i := 2; i < len(closes); i++ {
		prev := closes[i-2]
		if prev == 0 {
			continue
		}
		out[i] = (closes[i-1] - prev) / prev
	}
	return out
}
