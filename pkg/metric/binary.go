package metric

import "github.com/leapstack-labs/gridbench/pkg/core"

func init() {
	Binary.Register("precision", 1, func(map[string]any) (core.BinaryMetric, error) { return Precision{}, nil })
	Binary.Register("recall", 1, func(map[string]any) (core.BinaryMetric, error) { return Recall{}, nil })
	Binary.Register("f1", 1, func(map[string]any) (core.BinaryMetric, error) { return F1{}, nil })
}

type confusion struct {
	tp, fp, fn float64
}

func count(yTrue, yPred []int) (confusion, error) {
	var c confusion
	if err := checkLengths(yTrue, len(yPred)); err != nil {
		return c, err
	}
	for i, p := range yPred {
		switch {
		case p == 1 && yTrue[i] == 1:
			c.tp++
		case p == 1:
			c.fp++
		case yTrue[i] == 1:
			c.fn++
		}
	}
	return c, nil
}

// ratio returns num/den, or 0 when den is 0.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Precision is tp / (tp + fp).
type Precision struct{}

// ComputeBinary implements core.BinaryMetric.
func (Precision) ComputeBinary(yTrue, yPred []int) (float64, error) {
	c, err := count(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio(c.tp, c.tp+c.fp), nil
}

// Recall is tp / (tp + fn).
type Recall struct{}

// ComputeBinary implements core.BinaryMetric.
func (Recall) ComputeBinary(yTrue, yPred []int) (float64, error) {
	c, err := count(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio(c.tp, c.tp+c.fn), nil
}

// F1 is the harmonic mean of precision and recall.
type F1 struct{}

// ComputeBinary implements core.BinaryMetric.
func (F1) ComputeBinary(yTrue, yPred []int) (float64, error) {
	c, err := count(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio(2*c.tp, 2*c.tp+c.fp+c.fn), nil
}
