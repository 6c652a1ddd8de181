// Package gate decides whether a detector's training regime can be served by
// a dataset's label availability, and which data the detector is fitted on.
package gate

import "github.com/leapstack-labs/gridbench/pkg/core"

// Selection describes the data a compatible job fits on.
type Selection struct {
	// UseTrain selects the train partition; otherwise the detector is fitted
	// on the test partition.
	UseTrain bool
	// WithLabels passes the fit partition's labels to Fit.
	WithLabels bool
}

// Decide applies the compatibility table. ok is false when the detector
// cannot be evaluated on the dataset.
//
//	detector          dataset                       fit data
//	supervised        supervised                    train X + y
//	semi_supervised   supervised, semi_supervised   train X
//	unsupervised      supervised, semi_supervised   train X
//	unsupervised      unsupervised                  test X
func Decide(detector, dataset core.TrainType) (sel Selection, ok bool) {
	switch detector {
	case core.Supervised:
		if dataset == core.Supervised {
			return Selection{UseTrain: true, WithLabels: true}, true
		}
	case core.SemiSupervised:
		if dataset == core.Supervised || dataset == core.SemiSupervised {
			return Selection{UseTrain: true}, true
		}
	case core.Unsupervised:
		switch dataset {
		case core.Supervised, core.SemiSupervised:
			return Selection{UseTrain: true}, true
		case core.Unsupervised:
			return Selection{}, true
		}
	}
	return Selection{}, false
}

// Check returns an IncompatibilityError for an incompatible pair.
func Check(key core.DatasetKey, detector, dataset core.TrainType) (Selection, error) {
	sel, ok := Decide(detector, dataset)
	if !ok {
		return Selection{}, &core.IncompatibilityError{Dataset: key, Algorithm: detector, Data: dataset}
	}
	return sel, nil
}
