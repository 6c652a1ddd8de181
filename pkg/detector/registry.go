// Package detector provides the detector registry, score normalization and
// the bundled detectors.
//
// Bundled detectors register themselves in init():
//
//	zscore             unsupervised, per-channel z-scores
//	window_distance    semi-supervised, distance to the mean training window
//	centroid           supervised, distance to normal vs anomalous centroids
//	random_projection  unsupervised, seeded random projections
package detector

import (
	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// Registry holds every known detector type.
var Registry = spec.NewRegistry[core.Detector]("detector")

// Register adds a detector factory to the registry.
// Called by detector implementations in their init() functions.
func Register(name string, version int, factory spec.Factory[core.Detector]) {
	Registry.Register(name, version, factory)
}

// Build creates a detector from its spec.
func Build(s core.Spec) (core.Detector, error) {
	return Registry.Build(s)
}

// List returns all registered detector types (sorted).
func List() []string {
	return Registry.List()
}
