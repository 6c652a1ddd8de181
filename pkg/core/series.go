package core

import (
	"fmt"
	"strings"
)

// TrainType is the training-data regime of an algorithm or a dataset.
type TrainType string

// Train type constants.
const (
	Supervised     TrainType = "supervised"
	SemiSupervised TrainType = "semi_supervised"
	Unsupervised   TrainType = "unsupervised"
)

// ParseTrainType parses a train type, accepting "-" and " " as separators.
func ParseTrainType(s string) (TrainType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	switch TrainType(normalized) {
	case Supervised, SemiSupervised, Unsupervised:
		return TrainType(normalized), nil
	}
	return "", &ConfigurationError{Msg: fmt.Sprintf("unknown train type %q", s)}
}

// DatasetKey identifies a dataset within a data source.
type DatasetKey struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
}

// String returns the key as "collection/name".
func (k DatasetKey) String() string {
	return k.Collection + "/" + k.Name
}

// stemEscaper percent-encodes the separator character and path characters.
// Escaped parts never contain '_', so joining them with "__" stays unique.
var stemEscaper = strings.NewReplacer("%", "%25", "_", "%5F", "/", "%2F", "\\", "%5C", " ", "%20")

// FileStem returns a filesystem-safe stem for per-dataset artifacts. Distinct
// keys always map to distinct stems.
func (k DatasetKey) FileStem() string {
	return stemEscaper.Replace(k.Collection) + "__" + stemEscaper.Replace(k.Name)
}

// ParseDatasetKey parses "collection/name".
func ParseDatasetKey(s string) (DatasetKey, error) {
	collection, name, ok := strings.Cut(s, "/")
	if !ok || collection == "" || name == "" {
		return DatasetKey{}, fmt.Errorf("invalid dataset key %q: expected collection/name", s)
	}
	return DatasetKey{Collection: collection, Name: name}, nil
}

// Metadata describes a dataset without loading it.
type Metadata struct {
	TrainType TrainType `json:"train_type" yaml:"train_type"`
}

// Series is a multivariate time series stored row-major: sample t, channel c
// lives at Data[t*Channels+c].
type Series struct {
	Data     []float64
	Channels int
}

// NewSeries builds a series from per-sample rows. All rows must have equal width.
func NewSeries(rows [][]float64) (Series, error) {
	if len(rows) == 0 {
		return Series{Channels: 1}, nil
	}
	channels := len(rows[0])
	if channels == 0 {
		return Series{}, fmt.Errorf("series rows must have at least one channel")
	}
	data := make([]float64, 0, len(rows)*channels)
	for i, row := range rows {
		if len(row) != channels {
			return Series{}, fmt.Errorf("row %d has %d channels, want %d", i, len(row), channels)
		}
		data = append(data, row...)
	}
	return Series{Data: data, Channels: channels}, nil
}

// Univariate wraps a single-channel series.
func Univariate(values []float64) Series {
	return Series{Data: values, Channels: 1}
}

// Len returns the number of samples.
func (s Series) Len() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Data) / s.Channels
}

// At returns channel c of sample t.
func (s Series) At(t, c int) float64 {
	return s.Data[t*s.Channels+c]
}

// Row returns sample t. The slice aliases the series data.
func (s Series) Row(t int) []float64 {
	return s.Data[t*s.Channels : (t+1)*s.Channels]
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	data := make([]float64, len(s.Data))
	copy(data, s.Data)
	return Series{Data: data, Channels: s.Channels}
}
