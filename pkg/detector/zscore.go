package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// ErrNotFitted is returned when scoring with a detector that was never fitted.
var ErrNotFitted = errors.New("detector is not fitted")

func init() {
	Register("zscore", 1, func(params map[string]any) (core.Detector, error) {
		return NewZScore(params)
	})
}

type zscoreParams struct {
	Normalization string `param:"normalization"`
}

// ZScore scores each sample by its largest absolute per-channel z-score
// relative to the fit data.
type ZScore struct {
	normalization Normalization
	mean          []float64
	std           []float64
}

// NewZScore creates a z-score detector from its parameters.
func NewZScore(params map[string]any) (*ZScore, error) {
	var p zscoreParams
	if err := spec.Decode(params, &p); err != nil {
		return nil, err
	}
	norm, err := ParseNormalization(p.Normalization)
	if err != nil {
		return nil, err
	}
	return &ZScore{normalization: norm}, nil
}

// TrainType implements core.Detector.
func (d *ZScore) TrainType() core.TrainType { return core.Unsupervised }

// Fit implements core.Detector.
func (d *ZScore) Fit(x core.Series, _ []int) error {
	if x.Len() == 0 {
		return errors.New("cannot fit on an empty series")
	}
	d.mean, d.std = channelStats(x)
	return nil
}

// DecisionFunction implements core.Detector.
func (d *ZScore) DecisionFunction(x core.Series) ([]float64, error) {
	if d.mean == nil {
		return nil, ErrNotFitted
	}
	if x.Channels != len(d.mean) {
		return nil, fmt.Errorf("series has %d channels, detector was fitted on %d", x.Channels, len(d.mean))
	}

	scores := make([]float64, x.Len())
	for t := range scores {
		var worst float64
		for c, v := range x.Row(t) {
			worst = math.Max(worst, math.Abs(v-d.mean[c])/d.std[c])
		}
		scores[t] = worst
	}
	return scores, nil
}

// PredictProba implements core.Detector.
func (d *ZScore) PredictProba(x core.Series) ([]float64, error) {
	return proba(d, x, d.normalization)
}

func (d *ZScore) String() string {
	return fmt.Sprintf("ZScore(normalization=%s)", d.normalization)
}

// channelStats returns the per-channel mean and population standard deviation.
// A zero deviation is replaced by 1 so constant channels score zero.
func channelStats(x core.Series) (mean, std []float64) {
	n := float64(x.Len())
	mean = make([]float64, x.Channels)
	std = make([]float64, x.Channels)
	for t := 0; t < x.Len(); t++ {
		for c, v := range x.Row(t) {
			mean[c] += v
		}
	}
	for c := range mean {
		mean[c] /= n
	}
	for t := 0; t < x.Len(); t++ {
		for c, v := range x.Row(t) {
			std[c] += (v - mean[c]) * (v - mean[c])
		}
	}
	for c := range std {
		std[c] = math.Sqrt(std[c] / n)
		if std[c] == 0 {
			std[c] = 1
		}
	}
	return mean, std
}

func proba(d core.Detector, x core.Series, norm Normalization) ([]float64, error) {
	scores, err := d.DecisionFunction(x)
	if err != nil {
		return nil, err
	}
	return Normalize(scores, norm)
}
