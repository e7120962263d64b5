// Package model fits and queries the per-session classifier.
//
// The classifier is a multinomial logistic model trained by batch gradient
// descent over standardized features. Training is fully deterministic:
// zero-initialized weights, fixed iteration count, no sampling. A fitted
// Handle is immutable; retraining builds a new Handle which the session
// swaps in, so in-flight queries never observe a half-updated model.
package model

import (
	"fmt"
	"math"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

const numClasses = 3

// Handle is a fitted classifier plus the feature schema it was trained on.
type Handle struct {
	columns []string
	weights [][]float64 // [class][feature+bias]
	mean    []float64
	scale   []float64
}

// Columns returns the feature schema the handle was fitted against.
func (h *Handle) Columns() []string { return h.columns }

// Trainer fits classifier handles.
type Trainer struct {
	minRows      int
	epochs       int
	learningRate float64
}

// NewTrainer builds a trainer. minRows guards against fitting on too little
// history; zero epochs/rate fall back to defaults.
func NewTrainer(minRows, epochs int, learningRate float64) *Trainer {
	if minRows <= 0 {
		minRows = 100
	}
	if epochs <= 0 {
		epochs = 200
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &Trainer{minRows: minRows, epochs: epochs, learningRate: learningRate}
}

// Fit trains a new handle on the labeled rows. It fails with
// InsufficientDataError below the configured row minimum and with
// TrainingError on malformed input.
func (t *Trainer) Fit(columns []string, X [][]float64, y []int) (*Handle, error) {
	if len(X) < t.minRows {
		return nil, &models.InsufficientDataError{Rows: len(X), Min: t.minRows}
	}
	if len(X) != len(y) {
		return nil, &models.TrainingError{Err: fmt.Errorf("rows/labels mismatch: %d vs %d", len(X), len(y))}
	}
	nFeat := len(columns)
	for i, row := range X {
		if len(row) != nFeat {
			return nil, &models.TrainingError{Err: fmt.Errorf("row %d has %d features, want %d", i, len(row), nFeat)}
		}
		if y[i] < 0 || y[i] >= numClasses {
			return nil, &models.TrainingError{Err: fmt.Errorf("label %d out of range", y[i])}
		}
	}

	mean, scale := standardization(X)
	Z := make([][]float64, len(X))
	for i, row := range X {
		z := make([]float64, nFeat)
		for j, v := range row {
			z[j] = (v - mean[j]) / scale[j]
		}
		Z[i] = z
	}

	weights := make([][]float64, numClasses)
	for c := range weights {
		weights[c] = make([]float64, nFeat+1)
	}

	n := float64(len(Z))
	grad := make([][]float64, numClasses)
	for c := range grad {
		grad[c] = make([]float64, nFeat+1)
	}

	for epoch := 0; epoch < t.epochs; epoch++ {
		for c := range grad {
			for j := range grad[c] {
				grad[c][j] = 0
			}
		}
		for i, z := range Z {
			probs := softmax(weights, z)
			for c := 0; c < numClasses; c++ {
				d := probs[c]
				if y[i] == c {
					d -= 1
				}
				for j, v := range z {
					grad[c][j] += d * v
				}
				grad[c][nFeat] += d
			}
		}
		for c := 0; c < numClasses; c++ {
			for j := range weights[c] {
				weights[c][j] -= t.learningRate * grad[c][j] / n
			}
		}
	}

	cols := make([]string, nFeat)
	copy(cols, columns)
	return &Handle{columns: cols, weights: weights, mean: mean, scale: scale}, nil
}

// Score classifies one feature row, returning the predicted class and the
// model's confidence in it.
func (h *Handle) Score(row []float64) (int, float64, error) {
	if len(row) != len(h.mean) {
		return 0, 0, fmt.Errorf("feature row has %d values, model expects %d", len(row), len(h.mean))
	}
	z := make([]float64, len(row))
	for j, v := range row {
		z[j] = (v - h.mean[j]) / h.scale[j]
	}
	probs := softmax(h.weights, z)
	best, bestP := 0, probs[0]
	for c := 1; c < numClasses; c++ {
		if probs[c] > bestP {
			best, bestP = c, probs[c]
		}
	}
	return best, bestP, nil
}

func softmax(weights [][]float64, z []float64) []float64 {
	logits := make([]float64, len(weights))
	maxLogit := math.Inf(-1)
	for c, w := range weights {
		s := w[len(w)-1] // bias
		for j, v := range z {
			s += w[j] * v
		}
		logits[c] = s
		if s > maxLogit {
			maxLogit = s
		}
	}
	var sum float64
	for c, l := range logits {
		logits[c] = math.Exp(l - maxLogit)
		sum += logits[c]
	}
	for c := range logits {
		logits[c] /= sum
	}
	return logits
}

func standardization(X [][]float64) (mean, scale []float64) {
	nFeat := len(X[0])
	mean = make([]float64, nFeat)
	scale = make([]float64, nFeat)
	n := float64(len(X))
	for _, row := range X {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}
	return mean, scale
}
