package engine

import (
	"github.com/leapstack-labs/gridbench/internal/pool"
	"github.com/leapstack-labs/gridbench/internal/results"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// StatusResumed marks a report row whose results came from an earlier run.
const StatusResumed = "resumed"

// Report summarizes a grid run.
type Report struct {
	// Run is the history record, nil when history is disabled.
	Run *core.Run
	// Metrics lists the metric columns shared by every pipeline.
	Metrics []string
	// ProvidedPreprocessors is false when the identity preprocessor was
	// substituted; the Preprocessor column is then omitted.
	ProvidedPreprocessors bool
	Pipelines             []PipelineResult
	Rows                  []ReportRow
	Dispatched            int
	Resumed               int
}

// PipelineResult is a pipeline's final results table.
type PipelineResult struct {
	Name  string
	Dir   string
	Table *results.Table
}

// ReportRow is one (pipeline, dataset) line of the long report table.
type ReportRow struct {
	Dataset      core.DatasetKey
	Pipeline     string
	Preprocessor string
	Detector     string
	Status       string
	// Scores is aligned with Report.Metrics.
	Scores []float64
	Error  string
}

// Counts tallies rows by status.
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int)
	for _, row := range r.Rows {
		counts[row.Status]++
	}
	return counts
}

func (e *Engine) report(run *core.Run, keys []core.DatasetKey, planned []*plannedPipeline, outcomes pool.Results, dispatched, resumed int) *Report {
	rep := &Report{
		Run:                   run,
		ProvidedPreprocessors: e.cfg.Grid.ProvidedPreprocessors,
		Dispatched:            dispatched,
		Resumed:               resumed,
	}
	for _, m := range e.cfg.Grid.Metrics() {
		rep.Metrics = append(rep.Metrics, m.Name)
	}
	for _, pp := range planned {
		table := pp.store.Table()
		rep.Pipelines = append(rep.Pipelines, PipelineResult{Name: pp.spec.Name, Dir: pp.layout.Dir, Table: table})

		for _, key := range keys {
			row := ReportRow{
				Dataset:      key,
				Pipeline:     pp.spec.Name,
				Preprocessor: pp.spec.Preprocessor.DisplayName(),
				Detector:     pp.spec.Detector.DisplayName(),
				Status:       StatusResumed,
				Scores:       make([]float64, len(rep.Metrics)),
			}
			if o, ok := outcomes[core.NewJobID(pp.spec.Name, key)]; ok {
				row.Status = string(o.Status)
				row.Error = o.Error
			}
			for i, m := range rep.Metrics {
				row.Scores[i] = table.Value(key, m)
			}
			rep.Rows = append(rep.Rows, row)
		}
	}
	return rep
}
