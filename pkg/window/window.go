// Package window converts series into overlapping fixed-size windows and maps
// window-level scores back onto the original time axis.
package window

import (
	"fmt"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Count returns the number of regular windows SlidingWindow produces.
func Count(length, size, stride int) int {
	if size < 1 || stride < 1 || size > length {
		return 0
	}
	return (length-size)/stride + 1
}

// SlidingWindow returns floor((L-W)/S)+1 windows of x. Window i is the slice
// [i*S, i*S+W) flattened sample by sample, so a window holds W*channels values.
func SlidingWindow(x core.Series, size, stride int) ([][]float64, error) {
	length := x.Len()
	if err := validate(length, size, stride); err != nil {
		return nil, err
	}

	c := x.Channels
	n := Count(length, size, stride)
	windows := make([][]float64, n)
	for i := 0; i < n; i++ {
		start := i * stride * c
		w := make([]float64, size*c)
		copy(w, x.Data[start:start+size*c])
		windows[i] = w
	}
	return windows, nil
}

// ReverseSlidingWindow maps one score per window back to one score per time
// index. Each index receives the mean score of every window covering it.
// Window i spans [i*S, i*S+W), clamped so no window starts after L-W. When the
// last window stops short of L it is treated as spanning [L-W, L).
func ReverseSlidingWindow(scores []float64, size, stride, length int) ([]float64, error) {
	if err := validate(length, size, stride); err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, core.Configf("no window scores to reverse")
	}

	last := length - size
	mean := make([]float64, length)
	count := make([]int, length)
	for i, score := range scores {
		start := i * stride
		if start > last || (i == len(scores)-1 && start+size < length) {
			start = last
		}
		for t := start; t < start+size; t++ {
			// Incremental mean keeps constant inputs exact.
			count[t]++
			mean[t] += (score - mean[t]) / float64(count[t])
		}
	}

	for t, n := range count {
		if n == 0 {
			return nil, core.Configf("index %d is not covered by any of %d windows (size %d, stride %d)", t, len(scores), size, stride)
		}
	}
	return mean, nil
}

func validate(length, size, stride int) error {
	switch {
	case size < 1:
		return core.Configf("window size must be at least 1, got %d", size)
	case stride < 1:
		return core.Configf("stride must be at least 1, got %d", stride)
	case size > length:
		return &core.ConfigurationError{Msg: fmt.Sprintf("window size %d exceeds series length %d", size, length)}
	}
	return nil
}
