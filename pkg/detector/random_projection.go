package detector

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

func init() {
	Register("random_projection", 1, func(params map[string]any) (core.Detector, error) {
		return NewRandomProjection(params)
	})
}

type randomProjectionParams struct {
	Projections   int    `param:"projections"`
	Normalization string `param:"normalization"`
}

// RandomProjection projects samples onto random Gaussian directions and scores
// each sample by its largest absolute z-score along any direction. It is the
// bundled detector that depends on the job seed.
type RandomProjection struct {
	params        randomProjectionParams
	normalization Normalization

	seeded bool
	seed   int64

	directions [][]float64
	mean       []float64
	std        []float64
}

var _ core.Seeder = (*RandomProjection)(nil)

// NewRandomProjection creates a random projection detector from its parameters.
func NewRandomProjection(params map[string]any) (*RandomProjection, error) {
	p := randomProjectionParams{Projections: 8}
	if err := spec.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Projections < 1 {
		return nil, fmt.Errorf("projections must be positive, got %d", p.Projections)
	}
	norm, err := ParseNormalization(p.Normalization)
	if err != nil {
		return nil, err
	}
	return &RandomProjection{params: p, normalization: norm}, nil
}

// Seed implements core.Seeder.
func (d *RandomProjection) Seed(seed int64) {
	d.seeded = true
	d.seed = seed
}

// TrainType implements core.Detector.
func (d *RandomProjection) TrainType() core.TrainType { return core.Unsupervised }

// Fit implements core.Detector.
func (d *RandomProjection) Fit(x core.Series, _ []int) error {
	if x.Len() == 0 {
		return errors.New("cannot fit on an empty series")
	}

	var rng *rand.Rand
	if d.seeded {
		rng = rand.New(rand.NewPCG(uint64(d.seed), 0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	d.directions = make([][]float64, d.params.Projections)
	for i := range d.directions {
		dir := make([]float64, x.Channels)
		for c := range dir {
			dir[c] = rng.NormFloat64()
		}
		d.directions[i] = dir
	}

	projected := d.project(x)
	d.mean, d.std = channelStats(projected)
	return nil
}

// DecisionFunction implements core.Detector.
func (d *RandomProjection) DecisionFunction(x core.Series) ([]float64, error) {
	if d.directions == nil {
		return nil, ErrNotFitted
	}
	if x.Channels != len(d.directions[0]) {
		return nil, fmt.Errorf("series has %d channels, detector was fitted on %d", x.Channels, len(d.directions[0]))
	}

	projected := d.project(x)
	scores := make([]float64, x.Len())
	for t := range scores {
		var worst float64
		for k, v := range projected.Row(t) {
			worst = math.Max(worst, math.Abs(v-d.mean[k])/d.std[k])
		}
		scores[t] = worst
	}
	return scores, nil
}

// PredictProba implements core.Detector.
func (d *RandomProjection) PredictProba(x core.Series) ([]float64, error) {
	return proba(d, x, d.normalization)
}

func (d *RandomProjection) String() string {
	return fmt.Sprintf("RandomProjection(projections=%d)", d.params.Projections)
}

func (d *RandomProjection) project(x core.Series) core.Series {
	k := len(d.directions)
	out := make([]float64, x.Len()*k)
	for t := 0; t < x.Len(); t++ {
		row := x.Row(t)
		for j, dir := range d.directions {
			var dot float64
			for c, v := range row {
				dot += v * dir[c]
			}
			out[t*k+j] = dot
		}
	}
	return core.Series{Data: out, Channels: k}
}
