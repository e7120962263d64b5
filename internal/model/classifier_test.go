package model

import (
	"errors"
	"math"
	"testing"

	"github.com/ingl3585/xgb-model/internal/domain/models"
)

var testColumns = []string{"a", "b"}

// separable three-class dataset: class is decided by the sign pattern of
// the two features.
func separableData(n int) ([][]float64, []int) {
	X := make([][]float64, 0, n)
	y := make([]int, 0, n)
	for i := 0; i < n; i++ {
		jitter := float64(i%7) * 0.01
		switch i % 3 {
		case 0:
			X = append(X, []float64{0 + jitter, 0 - jitter})
			y = append(y, models.ClassHold)
		case 1:
			X = append(X, []float64{3 + jitter, 3 - jitter})
			y = append(y, models.ClassBuy)
		case 2:
			X = append(X, []float64{-3 - jitter, -3 + jitter})
			y = append(y, models.ClassSell)
		}
	}
	return X, y
}

func TestFitInsufficientData(t *testing.T) {
	tr := NewTrainer(100, 50, 0.1)
	X, y := separableData(40)
	_, err := tr.Fit(testColumns, X, y)
	var ie *models.InsufficientDataError
	if !errors.As(err, &ie) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ie.Rows != 40 || ie.Min != 100 {
		t.Fatalf("unexpected counts: %+v", ie)
	}
}

func TestFitAndScoreSeparable(t *testing.T) {
	tr := NewTrainer(100, 300, 0.5)
	X, y := separableData(300)
	h, err := tr.Fit(testColumns, X, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	cases := []struct {
		row  []float64
		want int
	}{
		{[]float64{3, 3}, models.ClassBuy},
		{[]float64{-3, -3}, models.ClassSell},
		{[]float64{0, 0}, models.ClassHold},
	}
	for _, c := range cases {
		class, prob, err := h.Score(c.row)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		if class != c.want {
			t.Fatalf("row %v: class %d, want %d", c.row, class, c.want)
		}
		if prob <= 1.0/3 || prob > 1 {
			t.Fatalf("row %v: implausible confidence %v", c.row, prob)
		}
	}
}

func TestFitDeterministic(t *testing.T) {
	tr := NewTrainer(100, 100, 0.2)
	X, y := separableData(150)
	h1, err1 := tr.Fit(testColumns, X, y)
	h2, err2 := tr.Fit(testColumns, X, y)
	if err1 != nil || err2 != nil {
		t.Fatalf("fit errors: %v %v", err1, err2)
	}
	c1, p1, _ := h1.Score([]float64{1.5, 1.5})
	c2, p2, _ := h2.Score([]float64{1.5, 1.5})
	if c1 != c2 || math.Abs(p1-p2) > 1e-12 {
		t.Fatalf("training is not deterministic: (%d,%v) vs (%d,%v)", c1, p1, c2, p2)
	}
}

func TestScoreProbabilitiesSumToOne(t *testing.T) {
	tr := NewTrainer(100, 100, 0.2)
	X, y := separableData(150)
	h, err := tr.Fit(testColumns, X, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	_, prob, err := h.Score([]float64{0.5, -0.5})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if prob < 1.0/3-1e-9 || prob > 1 {
		t.Fatalf("top-class probability out of range: %v", prob)
	}
}

func TestScoreSchemaMismatch(t *testing.T) {
	tr := NewTrainer(100, 50, 0.2)
	X, y := separableData(120)
	h, err := tr.Fit(testColumns, X, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if _, _, err := h.Score([]float64{1}); err == nil {
		t.Fatalf("expected schema mismatch error")
	}
}

func TestFitRowLabelMismatch(t *testing.T) {
	tr := NewTrainer(10, 50, 0.2)
	X, y := separableData(30)
	_, err := tr.Fit(testColumns, X, y[:len(y)-1])
	var te *models.TrainingError
	if !errors.As(err, &te) {
		t.Fatalf("expected TrainingError, got %v", err)
	}
}
