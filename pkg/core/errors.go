package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure recorded in an Outcome.
type ErrorKind string

// Error kinds.
const (
	KindNone          ErrorKind = ""
	KindConfiguration ErrorKind = "configuration"
	KindIncompatible  ErrorKind = "incompatible"
	KindExecution     ErrorKind = "execution"
	KindMetric        ErrorKind = "metric"
	KindDataLoad      ErrorKind = "data_load"
)

// ConfigurationError reports an invalid grid or run configuration.
// It is always fatal and surfaces before any job runs.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Configf creates a ConfigurationError with a formatted message.
func Configf(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// IncompatibilityError reports that an algorithm cannot consume a dataset's label regime.
type IncompatibilityError struct {
	Dataset   DatasetKey
	Algorithm TrainType
	Data      TrainType
}

func (e *IncompatibilityError) Error() string {
	return fmt.Sprintf("algorithm type %q can not solve dataset type %q (dataset %s)", e.Algorithm, e.Data, e.Dataset)
}

// ExecutionError wraps a failure raised while fitting or scoring.
type ExecutionError struct {
	Dataset DatasetKey
	Stage   string // fit, predict, preprocess
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed on dataset %s: %v", e.Stage, e.Dataset, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// MetricError reports a single failed metric computation.
type MetricError struct {
	Metric string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric %s: %v", e.Metric, e.Err)
}

func (e *MetricError) Unwrap() error { return e.Err }

// DataLoadError reports that a dataset could not be loaded.
type DataLoadError struct {
	Dataset DatasetKey
	Err     error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load dataset %s: %v", e.Dataset, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind of err, or KindExecution for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		cfgErr    *ConfigurationError
		incompErr *IncompatibilityError
		execErr   *ExecutionError
		metricErr *MetricError
		loadErr   *DataLoadError
		jobErr    *JobError
	)
	switch {
	case errors.As(err, &jobErr):
		return jobErr.Kind
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &incompErr):
		return KindIncompatible
	case errors.As(err, &loadErr):
		return KindDataLoad
	case errors.As(err, &metricErr):
		return KindMetric
	case errors.As(err, &execErr):
		return KindExecution
	}
	return KindExecution
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// JobError carries the message of a job failure across a process boundary,
// keeping its kind so callers can still classify it.
type JobError struct {
	Kind    ErrorKind
	Message string
}

func (e *JobError) Error() string { return e.Message }
