package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

func TestAUCROC(t *testing.T) {
	tests := []struct {
		name   string
		yTrue  []int
		yScore []float64
		want   float64
	}{
		{"perfect", []int{0, 0, 1, 1}, []float64{0.1, 0.2, 0.8, 0.9}, 1},
		{"inverted", []int{1, 1, 0, 0}, []float64{0.1, 0.2, 0.8, 0.9}, 0},
		{"textbook", []int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8}, 0.75},
		{"all tied", []int{0, 1, 0, 1}, []float64{0.5, 0.5, 0.5, 0.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AUCROC{}.Compute(tt.yTrue, tt.yScore)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAUCPR(t *testing.T) {
	got, err := AUCPR{}.Compute([]int{0, 0, 1, 1}, []float64{0.1, 0.4, 0.35, 0.8})
	require.NoError(t, err)
	// thresholds 0.8 (p=1, r=0.5), 0.4 (p=0.5), 0.35 (p=2/3, r=1)
	assert.InDelta(t, 0.5*1+0.5*(2.0/3.0), got, 1e-12)

	got, err = AUCPR{}.Compute([]int{0, 1}, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestRankingMetricErrors(t *testing.T) {
	_, err := AUCROC{}.Compute([]int{0, 0}, []float64{0.1, 0.2})
	assert.ErrorIs(t, err, ErrSingleClass)

	_, err = AUCPR{}.Compute([]int{0, 1}, []float64{0.1})
	assert.Error(t, err)

	_, err = AUCROC{}.Compute(nil, nil)
	assert.Error(t, err)
}

func TestBinaryMetrics(t *testing.T) {
	yTrue := []int{1, 1, 0, 0, 1}
	yPred := []int{1, 0, 1, 0, 1}

	p, err := Precision{}.ComputeBinary(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-12)

	r, err := Recall{}.ComputeBinary(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, r, 1e-12)

	f, err := F1{}.ComputeBinary(yTrue, yPred)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, f, 1e-12)

	p, err = Precision{}.ComputeBinary([]int{1, 0}, []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p, "no predicted positives")
}

func TestThresholds(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.5, 0.3, 0.7}

	fixed, err := NewFixedCutoff(nil)
	require.NoError(t, err)
	got, err := fixed.Apply(scores)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, 0, 1}, got)

	rate, err := NewContaminationRate(map[string]any{"rate": 0.2})
	require.NoError(t, err)
	got, err = rate.Apply(scores)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 0, 0}, got)

	top, err := NewTopN(map[string]any{"n": 2})
	require.NoError(t, err)
	got, err = top.Apply(scores)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 0, 1}, got)

	_, err = top.Apply([]float64{1})
	assert.Error(t, err)

	_, err = NewTopN(nil)
	assert.Error(t, err)
	_, err = NewContaminationRate(map[string]any{"rate": 2})
	assert.Error(t, err)
	_, err = NewFixedCutoff(map[string]any{"level": 1})
	assert.Error(t, err, "unknown params are rejected")
}

func TestBuild(t *testing.T) {
	m, err := Build(core.MetricSpec{Name: "auc_roc", Metric: core.Spec{Type: "auc_roc"}})
	require.NoError(t, err)
	assert.IsType(t, AUCROC{}, m)

	th := core.Spec{Type: "fixed_cutoff", Params: map[string]any{"cutoff": 0.5}}
	m, err = Build(core.MetricSpec{Name: "f1@fixed_cutoff", Metric: core.Spec{Type: "f1"}, Threshold: &th})
	require.NoError(t, err)
	v, err := m.Compute([]int{0, 1, 1}, []float64{0.2, 0.6, 0.4})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, v, 1e-12)

	_, err = Build(core.MetricSpec{Name: "f1", Metric: core.Spec{Type: "f1"}})
	assert.True(t, core.IsConfiguration(err))

	_, err = Build(core.MetricSpec{Name: "auc_roc", Metric: core.Spec{Type: "auc_roc"}, Threshold: &th})
	assert.True(t, core.IsConfiguration(err))

	assert.Equal(t, "f1@fixed_cutoff", Name(core.Spec{Type: "f1"}, th))
	assert.True(t, IsBinary("recall"))
	assert.False(t, IsBinary("auc_pr"))
	assert.True(t, IsKnown("auc_pr"))
}
