package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

func arange(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func twoChannel(n int) core.Series {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{float64(i), float64(i * 10)}
	}
	s, _ := core.NewSeries(rows)
	return s
}

func TestSlidingWindow_Univariate(t *testing.T) {
	tests := []struct {
		name   string
		length int
		size   int
		stride int
		want   [][]float64
	}{
		{
			name: "stride 1 odd window", length: 10, size: 3, stride: 1,
			want: [][]float64{{0, 1, 2}, {1, 2, 3}, {2, 3, 4}, {3, 4, 5}, {4, 5, 6}, {5, 6, 7}, {6, 7, 8}, {7, 8, 9}},
		},
		{
			name: "stride 1 even window", length: 10, size: 4, stride: 1,
			want: [][]float64{{0, 1, 2, 3}, {1, 2, 3, 4}, {2, 3, 4, 5}, {3, 4, 5, 6}, {4, 5, 6, 7}, {5, 6, 7, 8}, {6, 7, 8, 9}},
		},
		{
			name: "stride fits exactly", length: 11, size: 3, stride: 2,
			want: [][]float64{{0, 1, 2}, {2, 3, 4}, {4, 5, 6}, {6, 7, 8}, {8, 9, 10}},
		},
		{
			name: "stride leaves a tail", length: 10, size: 3, stride: 2,
			want: [][]float64{{0, 1, 2}, {2, 3, 4}, {4, 5, 6}, {6, 7, 8}},
		},
		{
			name: "large stride", length: 20, size: 6, stride: 4,
			want: [][]float64{
				{0, 1, 2, 3, 4, 5}, {4, 5, 6, 7, 8, 9}, {8, 9, 10, 11, 12, 13}, {12, 13, 14, 15, 16, 17},
			},
		},
		{
			name: "window equals length", length: 4, size: 4, stride: 3,
			want: [][]float64{{0, 1, 2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := SlidingWindow(core.Univariate(arange(tt.length)), tt.size, tt.stride)
			require.NoError(t, err)
			assert.Equal(t, tt.want, windows)
			assert.Len(t, windows, Count(tt.length, tt.size, tt.stride))
		})
	}
}

func TestSlidingWindow_Multivariate(t *testing.T) {
	windows, err := SlidingWindow(twoChannel(10), 3, 1)
	require.NoError(t, err)
	require.Len(t, windows, 8)
	assert.Equal(t, []float64{0, 0, 1, 10, 2, 20}, windows[0])
	assert.Equal(t, []float64{3, 30, 4, 40, 5, 50}, windows[3])
	assert.Equal(t, []float64{7, 70, 8, 80, 9, 90}, windows[7])

	windows, err = SlidingWindow(twoChannel(20), 6, 4)
	require.NoError(t, err)
	require.Len(t, windows, 4)
	for _, w := range windows {
		assert.Len(t, w, 12)
	}
	assert.Equal(t, []float64{12, 120, 13, 130, 14, 140, 15, 150, 16, 160, 17, 170}, windows[3])
}

func TestSlidingWindow_ShapeProperty(t *testing.T) {
	for length := 1; length <= 25; length++ {
		for size := 1; size <= length; size++ {
			for stride := 1; stride <= 6; stride++ {
				x := twoChannel(length)
				windows, err := SlidingWindow(x, size, stride)
				require.NoError(t, err)
				require.Len(t, windows, (length-size)/stride+1)
				for i, w := range windows {
					require.Len(t, w, size*2)
					assert.Equal(t, x.Data[i*stride*2:(i*stride+size)*2], w)
				}
			}
		}
	}
}

func TestSlidingWindow_Invalid(t *testing.T) {
	x := core.Univariate(arange(5))
	for _, tc := range []struct{ size, stride int }{{6, 1}, {0, 1}, {3, 0}, {-1, 2}} {
		_, err := SlidingWindow(x, tc.size, tc.stride)
		require.Error(t, err)
		assert.True(t, core.IsConfiguration(err), "size=%d stride=%d", tc.size, tc.stride)
	}
}

func TestReverseSlidingWindow(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		size   int
		stride int
		length int
		want   []float64
	}{
		{
			name: "window size 1", scores: arange(10), size: 1, stride: 1, length: 10,
			want: arange(10),
		},
		{
			name: "stride 1", scores: arange(8), size: 3, stride: 1, length: 10,
			want: []float64{0, 0.5, 1, 2, 3, 4, 5, 6, 6.5, 7},
		},
		{
			name: "stride fits exactly", scores: arange(5), size: 3, stride: 2, length: 11,
			want: []float64{0, 0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4},
		},
		{
			name: "extra tail window", scores: arange(5), size: 3, stride: 2, length: 10,
			want: []float64{0, 0, 0.5, 1, 1.5, 2, 2.5, 3.5, 3.5, 4},
		},
		{
			name: "regular windows with shifted last", scores: arange(4), size: 3, stride: 2, length: 10,
			want: []float64{0, 0, 0.5, 1, 1.5, 2, 2, 3, 3, 3},
		},
		{
			name: "non overlapping", scores: arange(5), size: 3, stride: 3, length: 15,
			want: []float64{0, 0, 0, 1, 1, 1, 2, 2, 2, 3, 3, 3, 4, 4, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReverseSlidingWindow(tt.scores, tt.size, tt.stride, tt.length)
			require.NoError(t, err)
			require.Len(t, got, tt.length)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestReverseSlidingWindow_PowersOfTwo(t *testing.T) {
	scores := []float64{1, 2, 4, 8, 16, 32, 64, 128}
	got, err := ReverseSlidingWindow(scores, 3, 1, 10)
	require.NoError(t, err)
	want := []float64{1, 1.5, 7.0 / 3, 14.0 / 3, 28.0 / 3, 56.0 / 3, 112.0 / 3, 224.0 / 3, 96, 128}
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestReverseSlidingWindow_ConstantRoundTrip(t *testing.T) {
	for _, c := range []float64{0.1, 1.0 / 3, 7.25, -2.2} {
		for length := 3; length <= 30; length++ {
			for size := 1; size <= length; size++ {
				for stride := 1; stride <= size; stride++ {
					n := Count(length, size, stride)
					scores := make([]float64, n)
					for i := range scores {
						scores[i] = c
					}
					got, err := ReverseSlidingWindow(scores, size, stride, length)
					require.NoError(t, err)
					for tIdx, v := range got {
						require.Equal(t, c, v, "c=%v L=%d W=%d S=%d t=%d", c, length, size, stride, tIdx)
					}
				}
			}
		}
	}
}

func TestReverseSlidingWindow_Errors(t *testing.T) {
	_, err := ReverseSlidingWindow(nil, 3, 1, 10)
	assert.Error(t, err)

	_, err = ReverseSlidingWindow(arange(3), 11, 1, 10)
	assert.Error(t, err)

	_, err = ReverseSlidingWindow(arange(3), 3, 0, 10)
	assert.Error(t, err)

	// Stride larger than the window leaves gaps.
	_, err = ReverseSlidingWindow(arange(3), 2, 4, 10)
	assert.Error(t, err)
}
