// Package preprocess provides the preprocessor registry and the bundled
// preprocessors. Preprocessors are fitted per job on the fit data and then
// applied to both partitions.
package preprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// IdentityType is the preprocessor substituted when none is configured.
const IdentityType = "identity"

// Registry holds every known preprocessor type.
var Registry = spec.NewRegistry[core.Preprocessor]("preprocessor")

func init() {
	Registry.Register(IdentityType, 1, func(map[string]any) (core.Preprocessor, error) { return Identity{}, nil })
	Registry.Register("standard_scaler", 1, func(map[string]any) (core.Preprocessor, error) { return &StandardScaler{}, nil })
	Registry.Register("min_max_scaler", 1, func(map[string]any) (core.Preprocessor, error) { return &MinMaxScaler{}, nil })
}

// Build creates a preprocessor from its spec.
func Build(s core.Spec) (core.Preprocessor, error) {
	return Registry.Build(s)
}

// Identity returns its input unchanged.
type Identity struct{}

// Fit implements core.Preprocessor.
func (Identity) Fit(core.Series, []int) error { return nil }

// Transform implements core.Preprocessor.
func (Identity) Transform(x core.Series, y []int) (core.Series, []int, error) { return x, y, nil }

var errNotFitted = errors.New("preprocessor not fitted")

// StandardScaler centers each channel on its fit mean and divides by the
// population standard deviation. Constant channels are only centered.
type StandardScaler struct {
	mean, scale []float64
}

// Fit implements core.Preprocessor.
func (p *StandardScaler) Fit(x core.Series, _ []int) error {
	if x.Len() == 0 {
		return errors.New("cannot fit on an empty series")
	}
	n := float64(x.Len())
	p.mean = make([]float64, x.Channels)
	p.scale = make([]float64, x.Channels)
	for t := 0; t < x.Len(); t++ {
		for c, v := range x.Row(t) {
			p.mean[c] += v
		}
	}
	for c := range p.mean {
		p.mean[c] /= n
	}
	for t := 0; t < x.Len(); t++ {
		for c, v := range x.Row(t) {
			p.scale[c] += (v - p.mean[c]) * (v - p.mean[c])
		}
	}
	for c := range p.scale {
		p.scale[c] = math.Sqrt(p.scale[c] / n)
		if p.scale[c] == 0 {
			p.scale[c] = 1
		}
	}
	return nil
}

// Transform implements core.Preprocessor.
func (p *StandardScaler) Transform(x core.Series, y []int) (core.Series, []int, error) {
	if p.mean == nil {
		return core.Series{}, nil, errNotFitted
	}
	return affine(x, y, p.mean, p.scale)
}

// MinMaxScaler maps each channel's fit range onto [0, 1]. Constant channels
// map to 0.
type MinMaxScaler struct {
	min, span []float64
}

// Fit implements core.Preprocessor.
func (p *MinMaxScaler) Fit(x core.Series, _ []int) error {
	if x.Len() == 0 {
		return errors.New("cannot fit on an empty series")
	}
	lo := append([]float64(nil), x.Row(0)...)
	hi := append([]float64(nil), x.Row(0)...)
	for t := 1; t < x.Len(); t++ {
		for c, v := range x.Row(t) {
			lo[c] = math.Min(lo[c], v)
			hi[c] = math.Max(hi[c], v)
		}
	}
	p.min = lo
	p.span = make([]float64, x.Channels)
	for c := range p.span {
		p.span[c] = hi[c] - lo[c]
		if p.span[c] == 0 {
			p.span[c] = 1
		}
	}
	return nil
}

// Transform implements core.Preprocessor.
func (p *MinMaxScaler) Transform(x core.Series, y []int) (core.Series, []int, error) {
	if p.min == nil {
		return core.Series{}, nil, errNotFitted
	}
	return affine(x, y, p.min, p.span)
}

// affine returns (x - offset) / scale per channel.
func affine(x core.Series, y []int, offset, scale []float64) (core.Series, []int, error) {
	if x.Channels != len(offset) {
		return core.Series{}, nil, fmt.Errorf("series has %d channels, preprocessor was fitted on %d", x.Channels, len(offset))
	}
	out := x.Clone()
	for i, v := range out.Data {
		c := i % x.Channels
		out.Data[i] = (v - offset[c]) / scale[c]
	}
	return out, y, nil
}
