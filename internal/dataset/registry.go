// Package dataset provides the data sources a run can read datasets from.
//
// Sources register in the Registry and are rebuilt from a core.Spec inside
// every job, so worker processes open their own handles.
package dataset

import (
	"io"

	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/spec"
)

// Registry holds every known data source type.
var Registry = spec.NewRegistry[core.DataSource]("data source")

func init() {
	Registry.Register(DirectoryType, 1, func(params map[string]any) (core.DataSource, error) {
		return NewDirectory(params)
	})
	Registry.Register(SyntheticType, 1, func(params map[string]any) (core.DataSource, error) {
		return NewSynthetic(params)
	})
}

// Open builds the data source described by s.
func Open(s core.Spec) (core.DataSource, error) {
	return Registry.Build(s)
}

// Close releases src if it holds resources.
func Close(src core.DataSource) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func contains(keys []core.DatasetKey, key core.DatasetKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
