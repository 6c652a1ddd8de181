package pool

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Worker protocol: the parent writes one JSON encoded core.Job per line to a
// worker's stdin, and the worker answers each with one JSON encoded outcome
// line on stdout. Logs go to stderr.

// wireOutcome is the JSON form of core.Outcome. NaN scores travel as null.
type wireOutcome struct {
	JobID             core.JobID          `json:"job_id"`
	Pipeline          string              `json:"pipeline"`
	Dataset           core.DatasetKey     `json:"dataset"`
	Status            core.Status         `json:"status"`
	Seed              *int64              `json:"seed,omitempty"`
	Scores            map[string]*float64 `json:"scores"`
	Timed             bool                `json:"timed,omitempty"`
	FitTime           time.Duration       `json:"fit_time,omitempty"`
	PredictTime       time.Duration       `json:"predict_time,omitempty"`
	MemoryTraced      bool                `json:"memory_traced,omitempty"`
	FitPeakMemory     uint64              `json:"fit_peak_memory,omitempty"`
	PredictPeakMemory uint64              `json:"predict_peak_memory,omitempty"`
	Preprocessor      string              `json:"preprocessor"`
	Detector          string              `json:"detector"`
	ErrorKind         core.ErrorKind      `json:"error_kind,omitempty"`
	Error             string              `json:"error,omitempty"`
	Fatal             bool                `json:"fatal,omitempty"`
}

func toWire(o core.Outcome) wireOutcome {
	scores := make(map[string]*float64, len(o.Scores))
	for name, v := range o.Scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			scores[name] = nil
			continue
		}
		scores[name] = &v
	}
	return wireOutcome{
		JobID:             o.JobID,
		Pipeline:          o.Pipeline,
		Dataset:           o.Dataset,
		Status:            o.Status,
		Seed:              o.Seed,
		Scores:            scores,
		Timed:             o.Timed,
		FitTime:           o.FitTime,
		PredictTime:       o.PredictTime,
		MemoryTraced:      o.MemoryTraced,
		FitPeakMemory:     o.FitPeakMemory,
		PredictPeakMemory: o.PredictPeakMemory,
		Preprocessor:      o.Preprocessor,
		Detector:          o.Detector,
		ErrorKind:         o.ErrorKind,
		Error:             o.Error,
		Fatal:             o.Fatal,
	}
}

func (w wireOutcome) outcome() core.Outcome {
	scores := make(map[string]float64, len(w.Scores))
	for name, v := range w.Scores {
		if v == nil {
			scores[name] = math.NaN()
			continue
		}
		scores[name] = *v
	}
	return core.Outcome{
		JobID:             w.JobID,
		Pipeline:          w.Pipeline,
		Dataset:           w.Dataset,
		Status:            w.Status,
		Seed:              w.Seed,
		Scores:            scores,
		Timed:             w.Timed,
		FitTime:           w.FitTime,
		PredictTime:       w.PredictTime,
		MemoryTraced:      w.MemoryTraced,
		FitPeakMemory:     w.FitPeakMemory,
		PredictPeakMemory: w.PredictPeakMemory,
		Preprocessor:      w.Preprocessor,
		Detector:          w.Detector,
		ErrorKind:         w.ErrorKind,
		Error:             w.Error,
		Fatal:             w.Fatal,
	}
}

// EncodeOutcome writes an outcome as one JSON line.
func EncodeOutcome(w io.Writer, o core.Outcome) error {
	return json.NewEncoder(w).Encode(toWire(o))
}

// DecodeOutcome parses one outcome line.
func DecodeOutcome(line []byte) (core.Outcome, error) {
	var w wireOutcome
	if err := json.Unmarshal(line, &w); err != nil {
		return core.Outcome{}, fmt.Errorf("malformed outcome: %w", err)
	}
	return w.outcome(), nil
}

// EncodeJob writes a job as one JSON line.
func EncodeJob(w io.Writer, job core.Job) error {
	return json.NewEncoder(w).Encode(job)
}

// readLine returns the next line without its newline. io.EOF is returned
// only when no bytes are left.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		return line, nil
	}
	if err != nil {
		return nil, err
	}
	return line[:len(line)-1], nil
}
