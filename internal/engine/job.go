package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"time"

	"github.com/leapstack-labs/gridbench/internal/dataset"
	"github.com/leapstack-labs/gridbench/internal/gate"
	"github.com/leapstack-labs/gridbench/internal/probe"
	"github.com/leapstack-labs/gridbench/internal/results"
	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/detector"
	"github.com/leapstack-labs/gridbench/pkg/metric"
	"github.com/leapstack-labs/gridbench/pkg/preprocess"
)

// Executor runs single jobs. It never returns an error: every failure is
// converted into the job's Outcome.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates a job executor. A nil logger discards output.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Executor{logger: logger}
}

// PanicError is a panic recovered from a component.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// guard runs fn and converts a panic into a PanicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

// fitData is the data a job fits and evaluates on.
type fitData struct {
	xFit, xTest core.Series
	yFit, yTest []int
}

// Execute runs one job: gate, seed, load, preprocess, fit, predict, score and
// export.
func (e *Executor) Execute(ctx context.Context, job core.Job) core.Outcome {
	logger := e.logger.With("job", job.ID)
	layout := results.NewLayout(job.Options.Directory, job.Pipeline.Name)
	metricNames := job.Pipeline.MetricNames()

	out := core.Outcome{
		JobID:        job.ID,
		Pipeline:     job.Pipeline.Name,
		Dataset:      job.Dataset,
		Seed:         job.Seed,
		Scores:       core.NaNScores(metricNames),
		Preprocessor: job.Pipeline.Preprocessor.DisplayName(),
		Detector:     job.Pipeline.Detector.DisplayName(),
	}
	fail := func(status core.Status, err error, fatal bool) core.Outcome {
		out.Status = status
		out.ErrorKind = core.KindOf(err)
		out.Error = err.Error()
		out.Fatal = fatal
		return out
	}

	det, err := detector.Build(job.Pipeline.Detector)
	if err != nil {
		return fail(core.StatusError, err, true)
	}
	prep, err := preprocess.Build(job.Pipeline.Preprocessor)
	if err != nil {
		return fail(core.StatusError, err, true)
	}
	src, err := dataset.Open(job.Source)
	if err != nil {
		return fail(core.StatusError, err, true)
	}
	defer func() { _ = dataset.Close(src) }()

	logger.Debug("checking algorithm-dataset compatibility")
	meta, err := src.Metadata(ctx, job.Dataset)
	if err != nil {
		return fail(core.StatusError, &core.DataLoadError{Dataset: job.Dataset, Err: err}, false)
	}
	sel, err := gate.Check(job.Dataset, det.TrainType(), meta.TrainType)
	if err != nil {
		logger.Info("detector is not compatible with dataset",
			"detector", det.TrainType(), "dataset", meta.TrainType,
			"raise", job.Options.InvalidTrainTypeRaiseError)
		return fail(core.StatusIncompatible, err, job.Options.InvalidTrainTypeRaiseError)
	}

	if job.Seed != nil {
		if s, ok := det.(core.Seeder); ok {
			logger.Debug("setting the seed", "seed", *job.Seed)
			s.Seed(*job.Seed)
		}
	}

	data, err := load(ctx, src, job.Dataset, sel)
	if err != nil {
		return fail(core.StatusError, &core.DataLoadError{Dataset: job.Dataset, Err: err}, false)
	}

	var decision []float64
	err = e.fitPredict(logger, job, det, prep, &data, &out, &decision)
	if err != nil {
		logger.Info("fit or predict failed", "error", err)
		logExecutionError(logger, job, layout, err)
		return fail(core.StatusError, err, job.Options.ReraiseFitPredictErrors)
	}

	var proba []float64
	err = guard(func() error {
		var err error
		proba, err = det.PredictProba(data.xTest)
		if err == nil && len(proba) != len(data.yTest) {
			err = fmt.Errorf("detector returned %d probabilities for %d samples", len(proba), len(data.yTest))
		}
		return err
	})
	if err != nil {
		err = &core.ExecutionError{Dataset: job.Dataset, Stage: "predict_proba", Err: err}
		logger.Info("predict_proba failed", "error", err)
		logExecutionError(logger, job, layout, err)
		return fail(core.StatusError, err, job.Options.ReraiseFitPredictErrors)
	}

	logger.Debug("computing the evaluation metrics")
	for _, ms := range job.Pipeline.Metrics {
		v, err := computeMetric(ms, data.yTest, proba)
		if err != nil {
			logger.Warn("metric failed", "error", err)
			continue
		}
		logger.Debug("evaluation", "metric", ms.Name, "value", v)
		out.Scores[ms.Name] = v
	}

	if job.Options.SaveAnomalyScoresPlot {
		path := layout.Plot(job.Dataset)
		logger.Debug("saving the anomaly score plot", "path", path)
		if err := plotScores(path, job.Dataset.String(), proba, data.yTest); err != nil {
			logger.Warn("failed to plot anomaly scores", "error", err)
		}
	}
	if job.Options.SaveAnomalyScores {
		path := layout.Scores(job.Dataset)
		logger.Debug("saving the anomaly scores", "path", path)
		if err := writeScores(path, decision, proba, data.yTest); err != nil {
			logger.Warn("failed to save anomaly scores", "error", err)
		}
	}

	out.Status = core.StatusSuccess
	if job.Options.SaveResults && job.Options.ConstantlySaveResults {
		columns := core.Columns(metricNames, job.Options.TraceTime, job.Options.TraceMemory)
		if err := results.WriteIntermediate(layout, columns, out); err != nil {
			logger.Warn("failed to write intermediate results", "error", err)
		}
	}
	return out
}

// logExecutionError writes the job's error log when the options ask for one.
func logExecutionError(logger *slog.Logger, job core.Job, layout results.Layout, err error) {
	if !job.Options.CreateFitPredictErrorLog {
		return
	}
	if logErr := writeErrorLog(layout, job.Dataset, err); logErr != nil {
		logger.Warn("failed to write error log", "error", logErr)
	}
}

func load(ctx context.Context, src core.DataSource, key core.DatasetKey, sel gate.Selection) (fitData, error) {
	var d fitData
	var err error
	d.xTest, d.yTest, err = src.Load(ctx, key, false)
	if err != nil {
		return d, fmt.Errorf("test data: %w", err)
	}
	if len(d.yTest) != d.xTest.Len() {
		return d, fmt.Errorf("test data has %d samples but %d labels", d.xTest.Len(), len(d.yTest))
	}

	if !sel.UseTrain {
		d.xFit = d.xTest
		return d, nil
	}
	xTrain, yTrain, err := src.Load(ctx, key, true)
	if err != nil {
		return d, fmt.Errorf("train data: %w", err)
	}
	d.xFit = xTrain
	if sel.WithLabels {
		if len(yTrain) != xTrain.Len() {
			return d, fmt.Errorf("train data has %d samples but %d labels", xTrain.Len(), len(yTrain))
		}
		d.yFit = yTrain
	}
	return d, nil
}

// fitPredict preprocesses, fits and scores, tracing time and memory as
// configured. Every returned error is an ExecutionError.
func (e *Executor) fitPredict(logger *slog.Logger, job core.Job, det core.Detector, prep core.Preprocessor, data *fitData, out *core.Outcome, decision *[]float64) error {
	wrap := func(stage string, err error) error {
		if err == nil {
			return nil
		}
		return &core.ExecutionError{Dataset: job.Dataset, Stage: stage, Err: err}
	}

	logger.Debug("preprocessing")
	err := guard(func() error {
		if err := prep.Fit(data.xFit, data.yFit); err != nil {
			return err
		}
		var err error
		if data.xFit, data.yFit, err = prep.Transform(data.xFit, data.yFit); err != nil {
			return err
		}
		data.xTest, data.yTest, err = prep.Transform(data.xTest, data.yTest)
		return err
	})
	if err != nil {
		return wrap("preprocess", err)
	}

	logger.Debug("fitting the detector")
	fitTime, fitPeak, err := trace(job.Options.TraceMemory, func() error {
		return det.Fit(data.xFit, data.yFit)
	})
	if err != nil {
		return wrap("fit", err)
	}

	logger.Debug("predicting the decision scores on the test data")
	predictTime, predictPeak, err := trace(job.Options.TraceMemory, func() error {
		scores, err := det.DecisionFunction(data.xTest)
		if err == nil && len(scores) != len(data.yTest) {
			err = fmt.Errorf("detector returned %d scores for %d samples", len(scores), len(data.yTest))
		}
		*decision = scores
		return err
	})
	if err != nil {
		return wrap("predict", err)
	}

	if job.Options.TraceTime {
		out.Timed = true
		out.FitTime, out.PredictTime = fitTime, predictTime
	}
	if job.Options.TraceMemory {
		out.MemoryTraced = true
		out.FitPeakMemory, out.PredictPeakMemory = fitPeak, predictPeak
	}
	return nil
}

// trace runs fn under guard, timing it and optionally probing peak memory.
func trace(memory bool, fn func() error) (time.Duration, uint64, error) {
	var elapsed time.Duration
	timed := func() error {
		start := time.Now()
		err := guard(fn)
		elapsed = time.Since(start)
		return err
	}
	if !memory {
		err := timed()
		return elapsed, 0, err
	}
	peak, err := probe.Measure(timed)
	return elapsed, peak, err
}

// computeMetric evaluates one metric in isolation. Failures, panics and NaN
// results come back as a MetricError.
func computeMetric(ms core.MetricSpec, yTrue []int, proba []float64) (float64, error) {
	var v float64
	err := guard(func() error {
		m, err := metric.Build(ms)
		if err != nil {
			return err
		}
		v, err = m.Compute(yTrue, proba)
		return err
	})
	if err == nil && math.IsNaN(v) {
		err = errors.New("metric returned NaN")
	}
	if err != nil {
		return math.NaN(), &core.MetricError{Metric: ms.Name, Err: err}
	}
	return v, nil
}
