package detector

import (
	"fmt"
	"math"
)

// Normalization names how decision scores are mapped into [0, 1].
type Normalization string

// Normalization strategies.
const (
	MinMax    Normalization = "min-max"
	Unifying  Normalization = "unifying"
	noneGiven Normalization = ""
)

// ParseNormalization validates a normalization name. An empty name means min-max.
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(s) {
	case noneGiven, MinMax:
		return MinMax, nil
	case Unifying:
		return Unifying, nil
	}
	return "", fmt.Errorf("invalid normalization strategy %q: valid options are %q, %q", s, Unifying, MinMax)
}

// Normalize maps scores into [0, 1] with the given strategy.
func Normalize(scores []float64, strategy Normalization) ([]float64, error) {
	switch strategy {
	case noneGiven, MinMax:
		return MinMaxScores(scores), nil
	case Unifying:
		return UnifyingScores(scores), nil
	}
	return nil, fmt.Errorf("invalid normalization strategy %q", strategy)
}

// MinMaxScores rescales scores linearly onto [0, 1], ignoring NaNs when
// locating the extremes. Constant scores map to all zeros.
func MinMaxScores(scores []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}

	out := make([]float64, len(scores))
	if lo >= hi {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// UnifyingScores applies clip(erf((s-mean)/(std*sqrt(2))), 0, 1) using the
// population standard deviation. Constant scores map to all zeros.
func UnifyingScores(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	var mean float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	var variance float64
	for _, s := range scores {
		variance += (s - mean) * (s - mean)
	}
	std := math.Sqrt(variance / float64(len(scores)))
	if std == 0 {
		return out
	}

	for i, s := range scores {
		v := math.Erf((s - mean) / (std * math.Sqrt2))
		out[i] = math.Min(math.Max(v, 0), 1)
	}
	return out
}
