package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

func init() {
	Register("centroid", 1, func(params map[string]any) (core.Detector, error) {
		return NewCentroid(params)
	})
}

type centroidParams struct {
	Normalization string `param:"normalization"`
}

// Centroid is a supervised detector: it learns the centroid of normal and of
// anomalous training samples and scores a sample by how much closer it lies to
// the anomalous centroid.
type Centroid struct {
	normalization Normalization
	normal        []float64
	anomalous     []float64
}

// NewCentroid creates a centroid detector from its parameters.
func NewCentroid(params map[string]any) (*Centroid, error) {
	var p centroidParams
	if err := spec.Decode(params, &p); err != nil {
		return nil, err
	}
	norm, err := ParseNormalization(p.Normalization)
	if err != nil {
		return nil, err
	}
	return &Centroid{normalization: norm}, nil
}

// TrainType implements core.Detector.
func (d *Centroid) TrainType() core.TrainType { return core.Supervised }

// Fit implements core.Detector. Labels are required.
func (d *Centroid) Fit(x core.Series, y []int) error {
	if y == nil {
		return errors.New("centroid detector requires labels")
	}
	if len(y) != x.Len() {
		return fmt.Errorf("got %d labels for %d samples", len(y), x.Len())
	}

	normal := make([]float64, x.Channels)
	anomalous := make([]float64, x.Channels)
	var nNormal, nAnomalous int
	for t := 0; t < x.Len(); t++ {
		target, n := normal, &nNormal
		if y[t] != 0 {
			target, n = anomalous, &nAnomalous
		}
		for c, v := range x.Row(t) {
			target[c] += v
		}
		*n++
	}
	if nNormal == 0 {
		return errors.New("training data has no normal samples")
	}
	for c := range normal {
		normal[c] /= float64(nNormal)
	}
	d.normal = normal

	d.anomalous = nil
	if nAnomalous > 0 {
		for c := range anomalous {
			anomalous[c] /= float64(nAnomalous)
		}
		d.anomalous = anomalous
	}
	return nil
}

// DecisionFunction implements core.Detector.
func (d *Centroid) DecisionFunction(x core.Series) ([]float64, error) {
	if d.normal == nil {
		return nil, ErrNotFitted
	}
	if x.Channels != len(d.normal) {
		return nil, fmt.Errorf("series has %d channels, detector was fitted on %d", x.Channels, len(d.normal))
	}

	scores := make([]float64, x.Len())
	for t := range scores {
		row := x.Row(t)
		scores[t] = euclidean(row, d.normal)
		if d.anomalous != nil {
			scores[t] -= euclidean(row, d.anomalous)
		}
	}
	return scores, nil
}

// PredictProba implements core.Detector.
func (d *Centroid) PredictProba(x core.Series) ([]float64, error) {
	return proba(d, x, d.normalization)
}

func (d *Centroid) String() string { return "Centroid()" }

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += (a[i] - b[i]) * (a[i] - b[i])
	}
	return math.Sqrt(sum)
}
