package probe

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var sink [][]byte

func TestMeasure(t *testing.T) {
	peak, err := Measure(func() error {
		for i := 0; i < 64; i++ {
			sink = append(sink, make([]byte, 64<<10))
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	sink = nil

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, peak, uint64(2<<20), "at least half of the 4 MiB allocated is observed")
}

func TestMeasure_PassesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Measure(func() error { return boom })
	assert.ErrorIs(t, err, boom)
}
