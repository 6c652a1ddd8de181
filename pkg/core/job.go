package core

import (
	"math"
	"time"
)

// Result table column names.
const (
	ColumnSeed              = "Seed"
	ColumnTimeFit           = "Time fit (s)"
	ColumnTimePredict       = "Time predict (s)"
	ColumnPeakMemoryFit     = "Peak memory fit (KiB)"
	ColumnPeakMemoryPredict = "Peak memory predict (KiB)"
)

// Columns returns the fixed results-table schema for a metric set.
func Columns(metrics []string, traceTime, traceMemory bool) []string {
	cols := make([]string, 0, len(metrics)+5)
	cols = append(cols, ColumnSeed)
	cols = append(cols, metrics...)
	if traceTime {
		cols = append(cols, ColumnTimeFit, ColumnTimePredict)
	}
	if traceMemory {
		cols = append(cols, ColumnPeakMemoryFit, ColumnPeakMemoryPredict)
	}
	return cols
}

// MetricSpec is one named entry of a pipeline's metric set. A binary metric
// carries the threshold it is evaluated with.
type MetricSpec struct {
	Name      string `json:"name"`
	Metric    Spec   `json:"metric"`
	Threshold *Spec  `json:"threshold,omitempty"`
}

// PipelineSpec is a (preprocessor, detector, metric set) combination.
type PipelineSpec struct {
	Name         string       `json:"name"`
	Preprocessor Spec         `json:"preprocessor"`
	Detector     Spec         `json:"detector"`
	Metrics      []MetricSpec `json:"metrics"`
}

// MetricNames returns the metric names in declaration order.
func (p PipelineSpec) MetricNames() []string {
	names := make([]string, len(p.Metrics))
	for i, m := range p.Metrics {
		names[i] = m.Name
	}
	return names
}

// Options controls what a job traces, exports and escalates.
type Options struct {
	Directory                  string `json:"directory"`
	TraceTime                  bool   `json:"trace_time"`
	TraceMemory                bool   `json:"trace_memory"`
	SaveResults                bool   `json:"save_results"`
	ConstantlySaveResults      bool   `json:"constantly_save_results"`
	SaveAnomalyScores          bool   `json:"save_anomaly_scores"`
	SaveAnomalyScoresPlot      bool   `json:"save_anomaly_scores_plot"`
	InvalidTrainTypeRaiseError bool   `json:"invalid_train_type_raise_error"`
	CreateFitPredictErrorLog   bool   `json:"create_fit_predict_error_log"`
	ReraiseFitPredictErrors    bool   `json:"reraise_fit_predict_errors"`
	Verbose                    bool   `json:"verbose"`
}

// JobID identifies a job within a run.
type JobID string

// NewJobID derives the job id from the pipeline name and dataset key.
func NewJobID(pipeline string, key DatasetKey) JobID {
	return JobID(pipeline + "::" + key.String())
}

// Job is one (dataset, pipeline) unit of work. It is a plain value: a worker
// process rebuilds every collaborator from the specs it carries.
type Job struct {
	ID       JobID        `json:"id"`
	Pipeline PipelineSpec `json:"pipeline"`
	Dataset  DatasetKey   `json:"dataset"`
	Source   Spec         `json:"source"`
	Seed     *int64       `json:"seed,omitempty"`
	Options  Options      `json:"options"`
}

// Status is the terminal state of a job.
type Status string

// Job status constants.
const (
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusIncompatible Status = "incompatible"
)

// Outcome is the immutable result of one job.
type Outcome struct {
	JobID    JobID
	Pipeline string
	Dataset  DatasetKey
	Status   Status
	Seed     *int64

	// Scores maps metric name to value; NaN where not computed.
	Scores map[string]float64

	Timed       bool
	FitTime     time.Duration
	PredictTime time.Duration

	MemoryTraced      bool
	FitPeakMemory     uint64 // bytes
	PredictPeakMemory uint64 // bytes

	Preprocessor string
	Detector     string

	ErrorKind ErrorKind
	Error     string
	// Fatal marks an outcome whose error must abort the whole run.
	Fatal bool
}

// Err returns the outcome's failure as an error, or nil on success.
func (o Outcome) Err() error {
	if o.Error == "" {
		return nil
	}
	return &JobError{Kind: o.ErrorKind, Message: o.Error}
}

// NaNScores returns a score map with every metric set to NaN.
func NaNScores(metrics []string) map[string]float64 {
	scores := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		scores[m] = math.NaN()
	}
	return scores
}
