package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

func series(t *testing.T, rows ...[]float64) core.Series {
	t.Helper()
	s, err := core.NewSeries(rows)
	require.NoError(t, err)
	return s
}

func TestIdentity(t *testing.T) {
	p, err := Build(core.Spec{Type: IdentityType})
	require.NoError(t, err)

	x := core.Univariate([]float64{3, 1, 2})
	y := []int{0, 1, 0}
	require.NoError(t, p.Fit(x, y))
	gotX, gotY, err := p.Transform(x, y)
	require.NoError(t, err)
	assert.Equal(t, x, gotX)
	assert.Equal(t, y, gotY)
}

func TestStandardScaler(t *testing.T) {
	fit := series(t, []float64{1, 5}, []float64{3, 5})
	p := &StandardScaler{}
	require.NoError(t, p.Fit(fit, nil))

	out, _, err := p.Transform(series(t, []float64{1, 5}, []float64{3, 7}), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, 0, 1, 2}, out.Data)
	assert.Equal(t, 2, out.Channels)
}

func TestMinMaxScaler(t *testing.T) {
	p := &MinMaxScaler{}
	require.NoError(t, p.Fit(core.Univariate([]float64{2, 4, 6}), nil))

	out, _, err := p.Transform(core.Univariate([]float64{2, 5, 10}), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.75, 2}, out.Data)
}

func TestScalersDoNotMutateInput(t *testing.T) {
	x := core.Univariate([]float64{1, 2, 3})
	p := &MinMaxScaler{}
	require.NoError(t, p.Fit(x, nil))
	_, _, err := p.Transform(x, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, x.Data)
}

func TestScalerErrors(t *testing.T) {
	_, _, err := (&StandardScaler{}).Transform(core.Univariate([]float64{1}), nil)
	assert.Error(t, err)

	p := &MinMaxScaler{}
	require.NoError(t, p.Fit(core.Univariate([]float64{1, 2}), nil))
	_, _, err = p.Transform(series(t, []float64{1, 2}), nil)
	assert.Error(t, err, "channel mismatch")

	_, err = Build(core.Spec{Type: "pca"})
	assert.Error(t, err)
}
