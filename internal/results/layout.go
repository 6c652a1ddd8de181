package results

import (
	"path/filepath"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Artifact names inside a pipeline directory.
const (
	ResultsFile     = "results.csv"
	ConfigFile      = "algorithm_config.json"
	ErrorsDir       = "errors"
	IntermediateDir = "intermediate"
	ScoresDir       = "scores"
	PlotsDir        = "plots"
)

// Layout locates the artifacts of one pipeline under <output>/<pipeline>/.
type Layout struct {
	Dir string
}

// NewLayout returns the layout of pipeline inside the output directory.
func NewLayout(output, pipeline string) Layout {
	return Layout{Dir: filepath.Join(output, pipeline)}
}

// Results is the path of the results table.
func (l Layout) Results() string { return filepath.Join(l.Dir, ResultsFile) }

// Config is the path of the detector configuration record.
func (l Layout) Config() string { return filepath.Join(l.Dir, ConfigFile) }

// ErrorLog is the path of a dataset's error log.
func (l Layout) ErrorLog(key core.DatasetKey) string {
	return filepath.Join(l.Dir, ErrorsDir, key.FileStem()+".txt")
}

// Intermediate is the path of a dataset's intermediate row.
func (l Layout) Intermediate(key core.DatasetKey) string {
	return filepath.Join(l.Dir, IntermediateDir, key.FileStem()+".csv")
}

// Scores is the path of a dataset's exported anomaly scores.
func (l Layout) Scores(key core.DatasetKey) string {
	return filepath.Join(l.Dir, ScoresDir, key.FileStem()+".csv")
}

// Plot is the path of a dataset's score plot.
func (l Layout) Plot(key core.DatasetKey) string {
	return filepath.Join(l.Dir, PlotsDir, key.FileStem()+".png")
}
