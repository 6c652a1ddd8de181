package gate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		detector core.TrainType
		dataset  core.TrainType
		ok       bool
		want     Selection
	}{
		{core.Supervised, core.Supervised, true, Selection{UseTrain: true, WithLabels: true}},
		{core.Supervised, core.SemiSupervised, false, Selection{}},
		{core.Supervised, core.Unsupervised, false, Selection{}},
		{core.SemiSupervised, core.Supervised, true, Selection{UseTrain: true}},
		{core.SemiSupervised, core.SemiSupervised, true, Selection{UseTrain: true}},
		{core.SemiSupervised, core.Unsupervised, false, Selection{}},
		{core.Unsupervised, core.Supervised, true, Selection{UseTrain: true}},
		{core.Unsupervised, core.SemiSupervised, true, Selection{UseTrain: true}},
		{core.Unsupervised, core.Unsupervised, true, Selection{}},
		{core.TrainType("other"), core.Supervised, false, Selection{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.detector)+"/"+string(tt.dataset), func(t *testing.T) {
			sel, ok := Decide(tt.detector, tt.dataset)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, sel)
		})
	}
}

func TestCheck(t *testing.T) {
	key := core.DatasetKey{Collection: "c", Name: "d"}

	_, err := Check(key, core.Unsupervised, core.Unsupervised)
	assert.NoError(t, err)

	_, err = Check(key, core.Supervised, core.Unsupervised)
	var incompat *core.IncompatibilityError
	assert.True(t, errors.As(err, &incompat))
	assert.Equal(t, key, incompat.Dataset)
	assert.Equal(t, core.KindIncompatible, core.KindOf(err))
}
