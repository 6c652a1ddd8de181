package metric

import (
	"errors"
	"math"
	"sort"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

func init() {
	Proba.Register("auc_roc", 1, func(map[string]any) (core.Metric, error) { return AUCROC{}, nil })
	Proba.Register("auc_pr", 1, func(map[string]any) (core.Metric, error) { return AUCPR{}, nil })
}

// ErrSingleClass is returned by ranking metrics when the ground truth holds
// only one class.
var ErrSingleClass = errors.New("ground truth contains a single class")

// AUCROC is the area under the ROC curve.
type AUCROC struct{}

// Compute implements core.Metric.
func (AUCROC) Compute(yTrue []int, yScore []float64) (float64, error) {
	points, pos, neg, err := curve(yTrue, yScore)
	if err != nil {
		return math.NaN(), err
	}

	var area, prevTP, prevFP float64
	for _, p := range points {
		area += (p.fp - prevFP) * (p.tp + prevTP) / 2
		prevTP, prevFP = p.tp, p.fp
	}
	return area / (pos * neg), nil
}

// AUCPR is the area under the precision-recall curve, computed as average
// precision.
type AUCPR struct{}

// Compute implements core.Metric.
func (AUCPR) Compute(yTrue []int, yScore []float64) (float64, error) {
	points, pos, _, err := curve(yTrue, yScore)
	if err != nil {
		return math.NaN(), err
	}

	var ap, prevRecall float64
	for _, p := range points {
		recall := p.tp / pos
		precision := p.tp / (p.tp + p.fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap, nil
}

type curvePoint struct {
	tp, fp float64
}

// curve returns cumulative true/false positive counts at every distinct score,
// from the highest score down. Tied scores collapse into one point.
func curve(yTrue []int, yScore []float64) ([]curvePoint, float64, float64, error) {
	if err := checkLengths(yTrue, len(yScore)); err != nil {
		return nil, 0, 0, err
	}

	order := make([]int, len(yScore))
	for i := range order {
		if math.IsNaN(yScore[i]) {
			return nil, 0, 0, errors.New("scores contain NaN")
		}
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return yScore[order[a]] > yScore[order[b]] })

	var pos, neg float64
	for _, y := range yTrue {
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, 0, 0, ErrSingleClass
	}

	var points []curvePoint
	var tp, fp float64
	for i, idx := range order {
		if yTrue[idx] == 1 {
			tp++
		} else {
			fp++
		}
		if i == len(order)-1 || yScore[order[i+1]] != yScore[idx] {
			points = append(points, curvePoint{tp: tp, fp: fp})
		}
	}
	return points, pos, neg, nil
}
