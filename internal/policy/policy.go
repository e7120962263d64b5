// Package policy converts raw classifier output into the final bounded
// decision. It keeps a fixed-capacity history of recent confidence scores
// and derives a dynamic probability threshold from it: weak recent
// confidence raises the bar, strong recent confidence lowers it slightly,
// always clamped to the configured band.
package policy

import (
	"math"
	"sort"

	"github.com/ingl3585/xgb-model/internal/domain/models"
	"github.com/ingl3585/xgb-model/internal/features"
)

// Config tunes the decision policy.
type Config struct {
	DefaultThreshold float64
	MinThreshold     float64
	MaxThreshold     float64
	HistoryCapacity  int

	// Market-context filters. Disabled filters never veto.
	VolatilityFilter bool
	RangeFilter      bool
	// RangeProximity extends the recent low/high band by this fraction
	// before a close is considered out of range.
	RangeProximity float64
	// Lookback bounds the volatility and range computations.
	Lookback int
}

// Policy is pure state-plus-arithmetic: Decide never blocks, never fails,
// and records exactly one observation per invocation.
type Policy struct {
	cfg        Config
	history    []float64 // ring of recent probabilities
	next       int
	volHistory []float64 // ring of recent realized volatility values
	volNext    int
}

// New creates a policy. Missing knobs take the defaults 0.55 in [0.5, 0.7]
// with a 64-entry history.
func New(cfg Config) *Policy {
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 0.55
	}
	if cfg.MinThreshold <= 0 {
		cfg.MinThreshold = 0.5
	}
	if cfg.MaxThreshold <= 0 {
		cfg.MaxThreshold = 0.7
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = 64
	}
	if cfg.RangeProximity <= 0 {
		cfg.RangeProximity = 0.05
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 20
	}
	return &Policy{
		cfg:        cfg,
		history:    make([]float64, 0, cfg.HistoryCapacity),
		volHistory: make([]float64, 0, cfg.HistoryCapacity),
	}
}

// Threshold computes the current dynamic threshold from recorded history.
// Empty history returns the configured default. The result is always
// within [MinThreshold, MaxThreshold].
func (p *Policy) Threshold() float64 {
	def := p.cfg.DefaultThreshold
	n := len(p.history)
	if n == 0 {
		return clamp(def, p.cfg.MinThreshold, p.cfg.MaxThreshold)
	}
	var sum float64
	for _, v := range p.history {
		sum += v
	}
	mean := sum / float64(n)
	// below-default recent confidence pushes the threshold up, above
	// pushes it down at half strength
	dynamic := def + 0.5*(def-mean)
	return clamp(dynamic, p.cfg.MinThreshold, p.cfg.MaxThreshold)
}

// Decide maps (class, probability) and market context to a final action.
// The probability is recorded into history exactly once regardless of the
// outcome.
func (p *Policy) Decide(class int, probability float64, state features.State) (models.Action, string) {
	threshold := p.Threshold()
	p.record(probability)

	if veto, reason := p.vetoed(state); veto {
		return models.ActionHold, reason
	}
	if probability <= threshold {
		return models.ActionHold, "below_threshold"
	}

	switch class {
	case models.ClassBuy:
		// corroboration: price above VWAP, RSI not overbought
		if state.Close > state.VWAP && state.RSI < 70 {
			return models.ActionBuy, "ml_prediction_with_filters"
		}
		return models.ActionHold, "buy_corroboration_failed"
	case models.ClassSell:
		// corroboration: price below VWAP, RSI not oversold
		if state.Close < state.VWAP && state.RSI > 30 {
			return models.ActionSell, "ml_prediction_with_filters"
		}
		return models.ActionHold, "sell_corroboration_failed"
	default:
		return models.ActionHold, "ml_prediction_hold"
	}
}

func (p *Policy) record(probability float64) {
	if math.IsNaN(probability) {
		return
	}
	if len(p.history) < cap(p.history) {
		p.history = append(p.history, probability)
		return
	}
	p.history[p.next] = probability
	p.next = (p.next + 1) % cap(p.history)
}

// vetoed applies the market-context filters in order.
func (p *Policy) vetoed(state features.State) (bool, string) {
	if p.cfg.VolatilityFilter {
		if vol, ok := realizedVol(state.Closes, p.cfg.Lookback); ok {
			low := p.recordVol(vol)
			if low {
				return true, "volatility_floor"
			}
		}
	}
	if p.cfg.RangeFilter && len(state.Closes) > 1 {
		recent := state.Closes[:len(state.Closes)-1]
		if len(recent) > p.cfg.Lookback {
			recent = recent[len(recent)-p.cfg.Lookback:]
		}
		lo, hi := recent[0], recent[0]
		for _, c := range recent {
			lo = math.Min(lo, c)
			hi = math.Max(hi, c)
		}
		band := p.cfg.RangeProximity
		if state.Close > hi*(1+band) || state.Close < lo*(1-band) {
			return true, "outside_recent_range"
		}
	}
	return false, ""
}

// recordVol pushes the current volatility into its ring and reports
// whether it sits below the rolling 20th percentile of that ring.
func (p *Policy) recordVol(vol float64) bool {
	if len(p.volHistory) < cap(p.volHistory) {
		p.volHistory = append(p.volHistory, vol)
	} else {
		p.volHistory[p.volNext] = vol
		p.volNext = (p.volNext + 1) % cap(p.volHistory)
	}
	if len(p.volHistory) < 5 {
		return false // too little context to veto
	}
	sorted := make([]float64, len(p.volHistory))
	copy(sorted, p.volHistory)
	sort.Float64s(sorted)
	idx := len(sorted) / 5
	return vol < sorted[idx]
}

func realizedVol(closes []float64, lookback int) (float64, bool) {
	if len(closes) < 3 {
		return 0, false
	}
	if len(closes) > lookback+1 {
		closes = closes[len(closes)-lookback-1:]
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		rets = append(rets, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(rets) < 2 {
		return 0, false
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var variance float64
	for _, r := range rets {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(rets) - 1)
	return math.Sqrt(variance), true
}

// HistoryLen reports how many observations are recorded.
func (p *Policy) HistoryLen() int { return len(p.history) }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
