package core

import "context"

// Spec is a versioned parameter record describing one component instance.
// Components are rebuilt from a Spec through a registry; no code is loaded.
type Spec struct {
	Type    string         `json:"type" yaml:"type" koanf:"type"`
	Name    string         `json:"name,omitempty" yaml:"name,omitempty" koanf:"name"`
	Version int            `json:"version,omitempty" yaml:"version,omitempty" koanf:"version"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty" koanf:"params"`
}

// DisplayName returns Name when set, otherwise Type.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Type
}

// Detector is an anomaly detector.
//
// DecisionFunction returns one unconstrained score per sample, higher meaning
// more anomalous. PredictProba returns the same scores mapped into [0, 1].
type Detector interface {
	TrainType() TrainType
	Fit(x Series, y []int) error
	DecisionFunction(x Series) ([]float64, error)
	PredictProba(x Series) ([]float64, error)
}

// Seeder is implemented by detectors that use randomness.
// The executor calls Seed inside every job before Fit.
type Seeder interface {
	Seed(seed int64)
}

// Preprocessor transforms a series before detection. Transform may change the
// series length, in which case the labels are transformed alongside.
type Preprocessor interface {
	Fit(x Series, y []int) error
	Transform(x Series, y []int) (Series, []int, error)
}

// Metric scores continuous anomaly scores against ground truth.
type Metric interface {
	Compute(yTrue []int, yScore []float64) (float64, error)
}

// BinaryMetric scores thresholded predictions against ground truth.
type BinaryMetric interface {
	ComputeBinary(yTrue []int, yPred []int) (float64, error)
}

// Thresholding converts continuous scores into binary predictions.
type Thresholding interface {
	Apply(scores []float64) ([]int, error)
}

// DataSource loads datasets by key.
type DataSource interface {
	Keys(ctx context.Context) ([]DatasetKey, error)
	Metadata(ctx context.Context, key DatasetKey) (Metadata, error)
	Load(ctx context.Context, key DatasetKey, train bool) (Series, []int, error)
}
