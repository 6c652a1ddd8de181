package metric

import "github.com/leapstack-labs/gridbench/pkg/core"

// Thresholded applies a threshold strategy to continuous scores and then
// evaluates a binary metric on the resulting predictions.
type Thresholded struct {
	Metric    core.BinaryMetric
	Threshold core.Thresholding
}

var _ core.Metric = (*Thresholded)(nil)

// Compute implements core.Metric.
func (t *Thresholded) Compute(yTrue []int, yScore []float64) (float64, error) {
	yPred, err := t.Threshold.Apply(yScore)
	if err != nil {
		return 0, err
	}
	return t.Metric.ComputeBinary(yTrue, yPred)
}
