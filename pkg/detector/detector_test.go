package detector

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

func spike(n, at int) core.Series {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Sin(float64(i) / 3)
	}
	values[at] = 25
	return core.Univariate(values)
}

func argmax(xs []float64) int {
	best := 0
	for i, v := range xs {
		if v > xs[best] {
			best = i
		}
	}
	return best
}

func TestMinMaxScores(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, MinMaxScores([]float64{2, 3, 4}))
	assert.Equal(t, []float64{0, 0, 0}, MinMaxScores([]float64{7, 7, 7}))

	out := MinMaxScores([]float64{1, math.NaN(), 3})
	assert.Equal(t, 0.0, out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 1.0, out[2])
}

func TestUnifyingScores(t *testing.T) {
	scores := []float64{-1, 0, 1}
	out := UnifyingScores(scores)
	std := math.Sqrt(2.0 / 3.0)
	assert.Equal(t, 0.0, out[0], "negative erf is clipped to zero")
	assert.Equal(t, 0.0, out[1])
	assert.InDelta(t, math.Erf(1/(std*math.Sqrt2)), out[2], 1e-12)

	for _, v := range UnifyingScores([]float64{5, 1, 9, 3, 100}) {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, []float64{0, 0}, UnifyingScores([]float64{4, 4}))
}

func TestParseNormalization(t *testing.T) {
	n, err := ParseNormalization("")
	require.NoError(t, err)
	assert.Equal(t, MinMax, n)

	n, err = ParseNormalization("unifying")
	require.NoError(t, err)
	assert.Equal(t, Unifying, n)

	_, err = ParseNormalization("softmax")
	assert.Error(t, err)
}

func TestBundledDetectorsFindSpike(t *testing.T) {
	x := spike(120, 70)
	labels := make([]int, x.Len())
	labels[70] = 1

	specs := []core.Spec{
		{Type: "zscore"},
		{Type: "zscore", Params: map[string]any{"normalization": "unifying"}},
		{Type: "window_distance", Params: map[string]any{"window_size": 1, "stride": 1}},
		{Type: "centroid"},
		{Type: "random_projection", Params: map[string]any{"projections": 4}},
	}
	for _, s := range specs {
		t.Run(s.Type, func(t *testing.T) {
			d, err := Build(s)
			require.NoError(t, err)

			var y []int
			if d.TrainType() == core.Supervised {
				y = labels
			}
			require.NoError(t, d.Fit(x, y))

			scores, err := d.DecisionFunction(x)
			require.NoError(t, err)
			require.Len(t, scores, x.Len())
			assert.Equal(t, 70, argmax(scores))

			probs, err := d.PredictProba(x)
			require.NoError(t, err)
			require.Len(t, probs, x.Len())
			for _, p := range probs {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
			}
		})
	}
}

func TestDetectorsRequireFit(t *testing.T) {
	for _, name := range List() {
		d, err := Build(core.Spec{Type: name})
		require.NoError(t, err)
		_, err = d.DecisionFunction(spike(40, 3))
		assert.ErrorIs(t, err, ErrNotFitted, name)
	}
}

func TestWindowDistance_OutputLength(t *testing.T) {
	d, err := NewWindowDistance(map[string]any{"window_size": 5, "stride": 2})
	require.NoError(t, err)

	x := spike(37, 20)
	require.NoError(t, d.Fit(x, nil))
	scores, err := d.DecisionFunction(x)
	require.NoError(t, err)
	assert.Len(t, scores, 37)

	_, err = NewWindowDistance(map[string]any{"window_size": 2, "stride": 3})
	assert.Error(t, err)

	short, err := NewWindowDistance(map[string]any{"window_size": 50})
	require.NoError(t, err)
	assert.Error(t, short.Fit(x, nil))
}

func TestCentroid_RequiresLabels(t *testing.T) {
	d, err := NewCentroid(nil)
	require.NoError(t, err)
	assert.Error(t, d.Fit(spike(10, 2), nil))
	assert.Error(t, d.Fit(spike(10, 2), []int{0, 1}))
}

func TestRandomProjection_Seeded(t *testing.T) {
	rows := make([][]float64, 60)
	for i := range rows {
		rows[i] = []float64{math.Sin(float64(i)), math.Cos(float64(i)), float64(i % 7)}
	}
	x, err := core.NewSeries(rows)
	require.NoError(t, err)

	run := func(seed int64) []float64 {
		d, err := NewRandomProjection(nil)
		require.NoError(t, err)
		d.Seed(seed)
		require.NoError(t, d.Fit(x, nil))
		scores, err := d.DecisionFunction(x)
		require.NoError(t, err)
		return scores
	}

	assert.Equal(t, run(42), run(42))
	assert.NotEqual(t, run(42), run(43))
}

func TestRecordRoundTrip(t *testing.T) {
	s := core.Spec{Type: "window_distance", Name: "wd", Params: map[string]any{"window_size": 8, "stride": 4}}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s))
	assert.Contains(t, buf.String(), `"format": "gridbench.detector"`)
	assert.Contains(t, buf.String(), `"version": 1`)

	d, loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, "wd", loaded.Name)
	assert.Equal(t, 1, loaded.Version)
	assert.Equal(t, "WindowDistance(window_size=8,stride=4)", d.(*WindowDistance).String())
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong format", `{"format":"pickle","format_version":1,"spec":{"type":"zscore"}}`},
		{"future format", `{"format":"gridbench.detector","format_version":9,"spec":{"type":"zscore"}}`},
		{"future spec", `{"format":"gridbench.detector","format_version":1,"spec":{"type":"zscore","version":7}}`},
		{"unknown type", `{"format":"gridbench.detector","format_version":1,"spec":{"type":"nope"}}`},
		{"unknown field", `{"format":"gridbench.detector","format_version":1,"spec":{"type":"zscore"},"code":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestSaveFile(t *testing.T) {
	path := t.TempDir() + "/nested/dir/algorithm_config.json"
	require.NoError(t, SaveFile(path, core.Spec{Type: "zscore"}))
	d, s, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "zscore", s.Type)
	assert.IsType(t, &ZScore{}, d)
}
