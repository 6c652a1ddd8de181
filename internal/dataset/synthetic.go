package dataset

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// SyntheticType is the registry name of the synthetic source.
const SyntheticType = "synthetic"

// ErrNoTrainPartition is returned when the train partition of an
// unsupervised dataset is requested.
var ErrNoTrainPartition = errors.New("dataset has no train partition")

// SyntheticDataset declares one generated dataset.
type SyntheticDataset struct {
	Collection string `param:"collection"`
	Name       string `param:"name"`
	TrainType  string `param:"train_type"`
	Length     int    `param:"length"`
	Channels   int    `param:"channels"`
	Anomalies  int    `param:"anomalies"`
}

// Synthetic generates noisy sine waves with injected spikes. Generation is a
// pure function of the source seed and the dataset key, so every process
// that rebuilds the source sees identical data.
type Synthetic struct {
	Datasets []SyntheticDataset `param:"datasets"`
	Seed     int64              `param:"seed"`
	// Corrupt lists "collection/name" keys whose loading fails.
	Corrupt []string `param:"corrupt"`
}

// NewSynthetic creates a synthetic source.
func NewSynthetic(params map[string]any) (*Synthetic, error) {
	s := &Synthetic{}
	if err := spec.Decode(params, s); err != nil {
		return nil, err
	}
	if len(s.Datasets) == 0 {
		return nil, errors.New("no synthetic datasets declared")
	}

	seen := make(map[core.DatasetKey]bool)
	for i := range s.Datasets {
		d := &s.Datasets[i]
		if d.Collection == "" || d.Name == "" {
			return nil, fmt.Errorf("synthetic dataset %d needs a collection and a name", i)
		}
		key := d.key()
		if seen[key] {
			return nil, fmt.Errorf("duplicate synthetic dataset %s", key)
		}
		seen[key] = true

		if d.TrainType == "" {
			d.TrainType = string(core.SemiSupervised)
		}
		if _, err := core.ParseTrainType(d.TrainType); err != nil {
			return nil, err
		}
		if d.Length == 0 {
			d.Length = 200
		}
		if d.Channels == 0 {
			d.Channels = 1
		}
		if d.Anomalies == 0 {
			d.Anomalies = 3
		}
		if d.Length < 10 || d.Channels < 1 || d.Anomalies < 1 || d.Anomalies > d.Length/10 {
			return nil, fmt.Errorf("synthetic dataset %s: invalid shape (length %d, channels %d, anomalies %d)", key, d.Length, d.Channels, d.Anomalies)
		}
	}
	return s, nil
}

func (d SyntheticDataset) key() core.DatasetKey {
	return core.DatasetKey{Collection: d.Collection, Name: d.Name}
}

// Keys implements core.DataSource. Keys are returned in declaration order.
func (s *Synthetic) Keys(_ context.Context) ([]core.DatasetKey, error) {
	keys := make([]core.DatasetKey, len(s.Datasets))
	for i, d := range s.Datasets {
		keys[i] = d.key()
	}
	return keys, nil
}

// Metadata implements core.DataSource.
func (s *Synthetic) Metadata(_ context.Context, key core.DatasetKey) (core.Metadata, error) {
	d, err := s.find(key)
	if err != nil {
		return core.Metadata{}, err
	}
	tt, _ := core.ParseTrainType(d.TrainType)
	return core.Metadata{TrainType: tt}, nil
}

// Load implements core.DataSource. Only supervised train partitions contain
// anomalies; semi-supervised train partitions are all normal.
func (s *Synthetic) Load(_ context.Context, key core.DatasetKey, train bool) (core.Series, []int, error) {
	d, err := s.find(key)
	if err != nil {
		return core.Series{}, nil, err
	}
	for _, c := range s.Corrupt {
		if c == key.String() {
			return core.Series{}, nil, fmt.Errorf("dataset %s is corrupt", key)
		}
	}

	tt, _ := core.ParseTrainType(d.TrainType)
	anomalies := d.Anomalies
	if train {
		switch tt {
		case core.Unsupervised:
			return core.Series{}, nil, ErrNoTrainPartition
		case core.SemiSupervised:
			anomalies = 0
		}
	}
	x, y := s.generate(d, train, anomalies)
	return x, y, nil
}

func (s *Synthetic) find(key core.DatasetKey) (SyntheticDataset, error) {
	for _, d := range s.Datasets {
		if d.key() == key {
			return d, nil
		}
	}
	return SyntheticDataset{}, fmt.Errorf("unknown synthetic dataset %s", key)
}

func (s *Synthetic) generate(d SyntheticDataset, train bool, anomalies int) (core.Series, []int) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(d.key().String()))
	stream := uint64(1)
	if train {
		stream = 2
	}
	rng := rand.New(rand.NewPCG(h.Sum64()^uint64(s.Seed), stream))

	x := core.Series{Data: make([]float64, d.Length*d.Channels), Channels: d.Channels}
	for c := 0; c < d.Channels; c++ {
		period := 20 + 10*rng.Float64()
		phase := 2 * math.Pi * rng.Float64()
		for t := 0; t < d.Length; t++ {
			x.Data[t*d.Channels+c] = math.Sin(2*math.Pi*float64(t)/period+phase) + 0.1*rng.NormFloat64()
		}
	}

	y := make([]int, d.Length)
	for placed := 0; placed < anomalies; {
		t := d.Length/10 + rng.IntN(d.Length-d.Length/10)
		if y[t] == 1 {
			continue
		}
		y[t] = 1
		for c := 0; c < d.Channels; c++ {
			x.Data[t*d.Channels+c] += 4 + rng.Float64()
		}
		placed++
	}
	return x, y
}
