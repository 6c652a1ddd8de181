// Package grid expands configured components into the pipelines of a run.
package grid

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/detector"
	"github.com/leapstack-labs/gridbench/pkg/metric"
	"github.com/leapstack-labs/gridbench/pkg/preprocess"
)

// Grid is the expanded set of pipelines of one run.
type Grid struct {
	Pipelines []core.PipelineSpec
	// ProvidedPreprocessors is false when the identity preprocessor was
	// substituted; reports then omit the preprocessor column.
	ProvidedPreprocessors bool
}

// Metrics returns the shared metric set of the grid's pipelines.
func (g Grid) Metrics() []core.MetricSpec {
	if len(g.Pipelines) == 0 {
		return nil
	}
	return g.Pipelines[0].Metrics
}

// Build returns preprocessors x detectors, each paired with the full metric
// set. Every binary metric is expanded against every threshold into an entry
// named "<metric>@<threshold>". All components are instantiated once so that
// invalid parameters surface before any job runs.
func Build(preprocessors, detectors, metrics, thresholds []core.Spec) (Grid, error) {
	var errs []error
	if len(detectors) == 0 {
		errs = append(errs, core.Configf("no detectors configured"))
	}
	if len(metrics) == 0 {
		errs = append(errs, core.Configf("no metrics configured"))
	}

	provided := len(preprocessors) > 0
	if !provided {
		preprocessors = []core.Spec{{Type: preprocess.IdentityType}}
	}

	for _, p := range preprocessors {
		if _, err := preprocess.Build(p); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range detectors {
		if _, err := detector.Build(d); err != nil {
			errs = append(errs, err)
		}
	}

	binary := 0
	for _, m := range metrics {
		if metric.IsBinary(m.Type) {
			binary++
		}
	}
	nPipelines, nMetrics := Size(len(preprocessors), len(detectors), len(metrics)-binary, binary, len(thresholds))

	metricSet, err := expandMetrics(metrics, thresholds, nMetrics)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Grid{}, errors.Join(errs...)
	}

	g := Grid{ProvidedPreprocessors: provided, Pipelines: make([]core.PipelineSpec, 0, nPipelines)}
	seen := make(map[string]bool)
	for _, p := range preprocessors {
		for _, d := range detectors {
			name := PipelineName(p, d, provided)
			if err := checkName(name); err != nil {
				errs = append(errs, err)
				continue
			}
			if seen[name] {
				errs = append(errs, core.Configf("duplicate pipeline %q: give the components distinct names", name))
				continue
			}
			seen[name] = true
			g.Pipelines = append(g.Pipelines, core.PipelineSpec{
				Name:         name,
				Preprocessor: p,
				Detector:     d,
				Metrics:      metricSet,
			})
		}
	}
	if len(errs) > 0 {
		return Grid{}, errors.Join(errs...)
	}
	return g, nil
}

// PipelineName names a pipeline after its components. The identity
// preprocessor is left out when it was substituted.
func PipelineName(preprocessor, det core.Spec, provided bool) string {
	if !provided {
		return det.DisplayName()
	}
	return preprocessor.DisplayName() + "-" + det.DisplayName()
}

func expandMetrics(metrics, thresholds []core.Spec, size int) ([]core.MetricSpec, error) {
	out := make([]core.MetricSpec, 0, size)
	var errs []error
	seen := make(map[string]bool)
	add := func(ms core.MetricSpec) {
		if seen[ms.Name] {
			errs = append(errs, core.Configf("duplicate metric %q", ms.Name))
			return
		}
		seen[ms.Name] = true
		if _, err := metric.Build(ms); err != nil {
			errs = append(errs, err)
			return
		}
		out = append(out, ms)
	}

	for _, m := range metrics {
		if !metric.IsBinary(m.Type) {
			add(core.MetricSpec{Name: m.DisplayName(), Metric: m})
			continue
		}
		if len(thresholds) == 0 {
			errs = append(errs, core.Configf("binary metric %q requires at least one threshold", m.DisplayName()))
			continue
		}
		for _, th := range thresholds {
			add(core.MetricSpec{Name: metric.Name(m, th), Metric: m, Threshold: &th})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// checkName rejects pipeline names that cannot serve as a directory name.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.Contains(name, "::") {
		return core.Configf("invalid pipeline name %q", name)
	}
	return nil
}

// Size returns the number of pipelines and metrics per pipeline a grid will
// have for the given component counts.
func Size(preprocessors, detectors, probaMetrics, binaryMetrics, thresholds int) (pipelines, metrics int) {
	if preprocessors == 0 {
		preprocessors = 1
	}
	return preprocessors * detectors, probaMetrics + binaryMetrics*thresholds
}

// Describe returns a one-line summary of the grid.
func (g Grid) Describe() string {
	return fmt.Sprintf("%d pipelines x %d metrics", len(g.Pipelines), len(g.Metrics()))
}
