package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
	"github.com/leapstack-labs/gridbench/pkg/window"
)

func init() {
	Register("window_distance", 1, func(params map[string]any) (core.Detector, error) {
		return NewWindowDistance(params)
	})
}

type windowDistanceParams struct {
	WindowSize    int    `param:"window_size"`
	Stride        int    `param:"stride"`
	Normalization string `param:"normalization"`
}

// WindowDistance learns the mean window of (assumed normal) training data and
// scores each window by its Euclidean distance to it. Window scores are mapped
// back to samples with window.ReverseSlidingWindow.
type WindowDistance struct {
	params        windowDistanceParams
	normalization Normalization
	center        []float64
}

// NewWindowDistance creates a window distance detector from its parameters.
func NewWindowDistance(params map[string]any) (*WindowDistance, error) {
	p := windowDistanceParams{WindowSize: 16, Stride: 1}
	if err := spec.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.WindowSize < 1 || p.Stride < 1 {
		return nil, fmt.Errorf("window_size and stride must be positive, got %d and %d", p.WindowSize, p.Stride)
	}
	if p.Stride > p.WindowSize {
		return nil, fmt.Errorf("stride %d larger than window_size %d leaves samples unscored", p.Stride, p.WindowSize)
	}
	norm, err := ParseNormalization(p.Normalization)
	if err != nil {
		return nil, err
	}
	return &WindowDistance{params: p, normalization: norm}, nil
}

// TrainType implements core.Detector.
func (d *WindowDistance) TrainType() core.TrainType { return core.SemiSupervised }

// Fit implements core.Detector.
func (d *WindowDistance) Fit(x core.Series, _ []int) error {
	windows, err := window.SlidingWindow(x, d.params.WindowSize, d.params.Stride)
	if err != nil {
		return err
	}
	center := make([]float64, len(windows[0]))
	for _, w := range windows {
		for i, v := range w {
			center[i] += v
		}
	}
	for i := range center {
		center[i] /= float64(len(windows))
	}
	d.center = center
	return nil
}

// DecisionFunction implements core.Detector.
func (d *WindowDistance) DecisionFunction(x core.Series) ([]float64, error) {
	if d.center == nil {
		return nil, ErrNotFitted
	}
	windows, err := window.SlidingWindow(x, d.params.WindowSize, d.params.Stride)
	if err != nil {
		return nil, err
	}
	if len(windows[0]) != len(d.center) {
		return nil, errors.New("series channel count differs from the fit data")
	}

	scores := make([]float64, len(windows))
	for i, w := range windows {
		var sum float64
		for j, v := range w {
			sum += (v - d.center[j]) * (v - d.center[j])
		}
		scores[i] = math.Sqrt(sum)
	}
	return window.ReverseSlidingWindow(scores, d.params.WindowSize, d.params.Stride, x.Len())
}

// PredictProba implements core.Detector.
func (d *WindowDistance) PredictProba(x core.Series) ([]float64, error) {
	return proba(d, x, d.normalization)
}

func (d *WindowDistance) String() string {
	return fmt.Sprintf("WindowDistance(window_size=%d,stride=%d)", d.params.WindowSize, d.params.Stride)
}
