package metric

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

func init() {
	Thresholds.Register("fixed_cutoff", 1, func(params map[string]any) (core.Thresholding, error) {
		return NewFixedCutoff(params)
	})
	Thresholds.Register("contamination_rate", 1, func(params map[string]any) (core.Thresholding, error) {
		return NewContaminationRate(params)
	})
	Thresholds.Register("top_n", 1, func(params map[string]any) (core.Thresholding, error) {
		return NewTopN(params)
	})
}

// FixedCutoff flags every score at or above Cutoff.
type FixedCutoff struct {
	Cutoff float64 `param:"cutoff"`
}

// NewFixedCutoff creates a fixed cutoff threshold; the default cutoff is 0.5.
func NewFixedCutoff(params map[string]any) (*FixedCutoff, error) {
	t := &FixedCutoff{Cutoff: 0.5}
	if err := spec.Decode(params, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply implements core.Thresholding.
func (t *FixedCutoff) Apply(scores []float64) ([]int, error) {
	return cut(scores, t.Cutoff), nil
}

// ContaminationRate flags the given fraction of highest scores: the cutoff is
// the (1 - Rate) quantile of the scores.
type ContaminationRate struct {
	Rate float64 `param:"rate"`
}

// NewContaminationRate creates a contamination rate threshold; the default
// rate is 0.1.
func NewContaminationRate(params map[string]any) (*ContaminationRate, error) {
	t := &ContaminationRate{Rate: 0.1}
	if err := spec.Decode(params, t); err != nil {
		return nil, err
	}
	if t.Rate < 0 || t.Rate > 1 {
		return nil, fmt.Errorf("rate must be in [0, 1], got %v", t.Rate)
	}
	return t, nil
}

// Apply implements core.Thresholding.
func (t *ContaminationRate) Apply(scores []float64) ([]int, error) {
	if len(scores) == 0 {
		return nil, errors.New("no scores to threshold")
	}
	return cut(scores, quantile(scores, 1-t.Rate)), nil
}

// TopN flags the N highest scores. Ties with the N-th score are flagged too.
type TopN struct {
	N int `param:"n"`
}

// NewTopN creates a top-n threshold; n is required.
func NewTopN(params map[string]any) (*TopN, error) {
	t := &TopN{}
	if err := spec.Decode(params, t); err != nil {
		return nil, err
	}
	if t.N < 1 {
		return nil, fmt.Errorf("n must be positive, got %d", t.N)
	}
	return t, nil
}

// Apply implements core.Thresholding.
func (t *TopN) Apply(scores []float64) ([]int, error) {
	if t.N > len(scores) {
		return nil, fmt.Errorf("cannot flag %d of %d scores", t.N, len(scores))
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	return cut(scores, sorted[t.N-1]), nil
}

func cut(scores []float64, cutoff float64) []int {
	out := make([]int, len(scores))
	for i, s := range scores {
		if s >= cutoff {
			out[i] = 1
		}
	}
	return out
}

// quantile uses linear interpolation between closest ranks.
func quantile(scores []float64, q float64) float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
