package features

import (
	"math"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

// Columns is the feature schema, in matrix order. A fitted model records
// the schema it was trained on; inference rows must match it.
var Columns = []string{"rsi", "ema_diff", "price_vwap_diff", "lagged_return", "above_vwap"}

// Config holds indicator and labeling parameters.
type Config struct {
	RSIPeriod            int
	EMAFast              int
	EMASlow              int
	PriceChangeThreshold float64
}

// Engine derives the feature matrix, labels, and market state used by the
// decision policy.
type Engine struct {
	cfg Config
}

// NewEngine creates a feature engine. Zero-valued parameters fall back to
// the classic RSI 14 / EMA 12-26 setup.
func NewEngine(cfg Config) *Engine {
	if cfg.RSIPeriod <= 0 {
		cfg.RSIPeriod = 14
	}
	if cfg.EMAFast <= 0 {
		cfg.EMAFast = 12
	}
	if cfg.EMASlow <= 0 {
		cfg.EMASlow = 26
	}
	if cfg.PriceChangeThreshold <= 0 {
		cfg.PriceChangeThreshold = 0.5
	}
	return &Engine{cfg: cfg}
}

// matrix computes the feature row for every bar; rows with insufficient
// lookback carry NaN entries.
func (e *Engine) matrix(bars []models.Bar) [][]float64 {
	closes := Closes(bars)
	rsi := RSI(closes, e.cfg.RSIPeriod)
	emaFast := EMA(closes, e.cfg.EMAFast)
	emaSlow := EMA(closes, e.cfg.EMASlow)
	vwap := VWAP(bars)
	lagged := LaggedReturns(closes)

	rows := make([][]float64, len(bars))
	for i := range bars {
		above := 0.0
		if closes[i] > vwap[i] {
			above = 1.0
		}
		rows[i] = []float64{
			rsi[i],
			emaFast[i] - emaSlow[i],
			closes[i] - vwap[i],
			lagged[i],
			above,
		}
	}
	return rows
}

func rowComplete(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// TrainingSet builds the labeled rows for fitting. The label for row i is
// derived from the next bar's close: above +threshold is buy, below
// -threshold is sell, otherwise hold. The final bar has no next close and
// is dropped, as is every row with an incomplete lookback.
func (e *Engine) TrainingSet(bars []models.Bar) ([][]float64, []int) {
	rows := e.matrix(bars)
	closes := Closes(bars)

	X := make([][]float64, 0, len(rows))
	y := make([]int, 0, len(rows))
	for i := 0; i < len(rows)-1; i++ {
		if !rowComplete(rows[i]) {
			continue
		}
		change := closes[i+1] - closes[i]
		label := models.ClassHold
		if change > e.cfg.PriceChangeThreshold {
			label = models.ClassBuy
		} else if change < -e.cfg.PriceChangeThreshold {
			label = models.ClassSell
		}
		X = append(X, rows[i])
		y = append(y, label)
	}
	return X, y
}

// InferenceRow returns the latest complete feature row, or ok=false when
// the lookback is still insufficient.
func (e *Engine) InferenceRow(bars []models.Bar) ([]float64, bool) {
	if len(bars) == 0 {
		return nil, false
	}
	rows := e.matrix(bars)
	last := rows[len(rows)-1]
	if !rowComplete(last) {
		return nil, false
	}
	return last, true
}

// State is the market context the policy filters on.
type State struct {
	Close  float64
	VWAP   float64
	RSI    float64
	Closes []float64
}

// MarketState extracts the policy context from the latest bar.
func (e *Engine) MarketState(bars []models.Bar) State {
	if len(bars) == 0 {
		return State{RSI: math.NaN(), VWAP: math.NaN()}
	}
	closes := Closes(bars)
	rsi := RSI(closes, e.cfg.RSIPeriod)
	vwap := VWAP(bars)
	last := len(bars) - 1
	return State{
		Close:  closes[last],
		VWAP:   vwap[last],
		RSI:    rsi[last],
		Closes: closes,
	}
}
