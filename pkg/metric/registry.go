// Package metric provides the bundled evaluation metrics and threshold
// strategies, and the adapter that turns a (binary metric, threshold) pair
// into a metric over continuous scores.
package metric

import (
	"fmt"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// Registries for the three evaluation component kinds.
var (
	Proba      = spec.NewRegistry[core.Metric]("metric")
	Binary     = spec.NewRegistry[core.BinaryMetric]("binary metric")
	Thresholds = spec.NewRegistry[core.Thresholding]("threshold")
)

// IsBinary reports whether a metric type needs thresholded predictions.
func IsBinary(metricType string) bool {
	return Binary.IsRegistered(metricType)
}

// IsKnown reports whether a metric type is registered in either registry.
func IsKnown(metricType string) bool {
	return Proba.IsRegistered(metricType) || Binary.IsRegistered(metricType)
}

// Build creates the metric described by one entry of a pipeline's metric set.
// A binary metric entry must carry a threshold and is wrapped in a
// Thresholded adapter.
func Build(ms core.MetricSpec) (core.Metric, error) {
	if !IsBinary(ms.Metric.Type) {
		if ms.Threshold != nil {
			return nil, core.Configf("metric %q does not take a threshold", ms.Name)
		}
		return Proba.Build(ms.Metric)
	}
	if ms.Threshold == nil {
		return nil, core.Configf("binary metric %q requires a threshold", ms.Name)
	}
	bm, err := Binary.Build(ms.Metric)
	if err != nil {
		return nil, err
	}
	th, err := Thresholds.Build(*ms.Threshold)
	if err != nil {
		return nil, err
	}
	return &Thresholded{Metric: bm, Threshold: th}, nil
}

// Name returns the result-table column name of a binary metric evaluated with
// a threshold.
func Name(metric, threshold core.Spec) string {
	return fmt.Sprintf("%s@%s", metric.DisplayName(), threshold.DisplayName())
}

func checkLengths(yTrue []int, n int) error {
	if len(yTrue) != n {
		return fmt.Errorf("ground truth has %d labels, got %d predictions", len(yTrue), n)
	}
	if n == 0 {
		return fmt.Errorf("no samples to evaluate")
	}
	return nil
}
