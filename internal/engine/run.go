package engine

// run.go - Grid run orchestration

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/leapstack-labs/gridbench/internal/dataset"
	"github.com/leapstack-labs/gridbench/internal/pool"
	"github.com/leapstack-labs/gridbench/internal/results"
	"github.com/leapstack-labs/gridbench/internal/state"
	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/detector"
)

// plannedPipeline is a pipeline with its opened result store.
type plannedPipeline struct {
	spec   core.PipelineSpec
	layout results.Layout
	store  *results.Store
}

// Run executes the grid in three phases:
// Phase 1: Validate the configuration and plan the jobs (fail fast)
// Phase 2: Dispatch the pending jobs
// Phase 3: Fold outcomes into the results tables and persist them
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	e.logger.Info("starting run", "pipelines", len(e.cfg.Grid.Pipelines), "workers", e.cfg.Workers)

	// Phase 1
	keys, err := e.datasetKeys(ctx)
	if err != nil {
		return nil, err
	}
	planned, jobs, resumed, err := e.plan(keys)
	if err != nil {
		return nil, err
	}
	e.logger.Info("planned jobs", "datasets", len(keys), "jobs", len(jobs), "resumed", resumed)

	var run *core.Run
	if e.store != nil {
		run, err = e.store.CreateRun(e.cfg.Label, len(jobs), resumed)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		e.logger.Debug("created run", "run_id", run.ID)
	}

	// Phase 2
	p, err := e.pool()
	if err != nil {
		e.completeRun(run, err)
		return nil, err
	}
	done := 0
	outcomes, runErr := p.Run(ctx, jobs, func(o core.Outcome) {
		done++
		e.logger.Info("job finished", "job", o.JobID, "status", o.Status, "progress", fmt.Sprintf("%d/%d", done, len(jobs)))
		if o.Error != "" {
			e.logger.Debug("job error", "job", o.JobID, "kind", o.ErrorKind, "error", o.Error)
		}
		if e.cfg.Progress != nil {
			e.cfg.Progress(done, len(jobs), o)
		}
		if run != nil {
			if err := e.store.RecordJob(state.NewJobRecord(run.ID, o)); err != nil {
				e.logger.Warn("failed to record job", "job", o.JobID, "error", err)
			}
		}
	})
	if runErr != nil {
		e.logger.Info("run failed", "error", runErr.Error())
		e.completeRun(run, runErr)
		return nil, runErr
	}

	// Phase 3
	byPipeline := make(map[string]*plannedPipeline, len(planned))
	for _, pp := range planned {
		byPipeline[pp.spec.Name] = pp
	}
	for _, job := range jobs {
		o, ok := outcomes[job.ID]
		if !ok {
			err := fmt.Errorf("no outcome for job %s", job.ID)
			e.completeRun(run, err)
			return nil, err
		}
		byPipeline[job.Pipeline.Name].store.Apply(o)
	}

	var saveErrs []error
	for _, pp := range planned {
		if err := pp.store.Finish(); err != nil {
			saveErrs = append(saveErrs, fmt.Errorf("%s: %w", pp.spec.Name, err))
		}
	}
	if err := errors.Join(saveErrs...); err != nil {
		e.completeRun(run, err)
		return nil, err
	}

	e.completeRun(run, nil)
	e.logger.Info("run completed", "jobs", len(jobs), "resumed", resumed)
	return e.report(run, keys, planned, outcomes, len(jobs), resumed), nil
}

// datasetKeys lists the declared datasets. A source that cannot be opened or
// listed is a configuration error: no job could run.
func (e *Engine) datasetKeys(ctx context.Context) ([]core.DatasetKey, error) {
	if e.cfg.Workers < 1 {
		return nil, core.Configf("n_jobs must be at least 1, got %d", e.cfg.Workers)
	}
	if len(e.cfg.Grid.Pipelines) == 0 {
		return nil, core.Configf("the grid has no pipelines")
	}

	src, err := dataset.Open(e.cfg.Source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dataset.Close(src) }()

	keys, err := src.Keys(ctx)
	if err != nil {
		return nil, &core.ConfigurationError{Msg: "failed to list datasets", Err: err}
	}
	if len(keys) == 0 {
		return nil, core.Configf("the data source declares no datasets")
	}
	seen := make(map[core.DatasetKey]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			return nil, core.Configf("dataset %s is declared twice", k)
		}
		seen[k] = true
	}
	return keys, nil
}

// plan opens every pipeline's result store and creates a job for each
// dataset whose row still has open cells.
func (e *Engine) plan(keys []core.DatasetKey) ([]*plannedPipeline, []core.Job, int, error) {
	opts := e.cfg.Options
	var (
		planned []*plannedPipeline
		jobs    []core.Job
		resumed int
	)
	for _, p := range e.cfg.Grid.Pipelines {
		layout := results.NewLayout(opts.Directory, p.Name)
		columns := core.Columns(p.MetricNames(), opts.TraceTime, opts.TraceMemory)

		store, err := results.OpenStore(layout, columns, keys, results.StoreOptions{
			SaveResults:           opts.SaveResults,
			ConstantlySaveResults: opts.ConstantlySaveResults,
			Logger:                e.logger.With("pipeline", p.Name),
		})
		if err != nil {
			return nil, nil, 0, err
		}
		planned = append(planned, &plannedPipeline{spec: p, layout: layout, store: store})
		resumed += store.Resumed()

		if err := os.MkdirAll(layout.Dir, 0o750); err != nil {
			return nil, nil, 0, fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := detector.SaveFile(layout.Config(), p.Detector); err != nil {
			return nil, nil, 0, fmt.Errorf("failed to write detector configuration: %w", err)
		}

		for _, key := range keys {
			if !store.Pending(key) {
				e.logger.Debug("skipping completed job", "pipeline", p.Name, "dataset", key)
				continue
			}
			jobs = append(jobs, core.Job{
				ID:       core.NewJobID(p.Name, key),
				Pipeline: p,
				Dataset:  key,
				Source:   e.cfg.Source,
				Seed:     e.cfg.Seed,
				Options:  opts,
			})
		}
	}
	return planned, jobs, resumed, nil
}

func (e *Engine) pool() (pool.Pool, error) {
	if e.cfg.Workers > 1 && e.cfg.WorkerCommand == nil {
		return nil, core.Configf("n_jobs is %d but no worker command is configured", e.cfg.Workers)
	}
	return pool.New(e.cfg.Workers, e.executor, &pool.Process{
		Command: e.cfg.WorkerCommand,
		Stderr:  e.cfg.WorkerStderr,
		Logger:  e.logger,
	}), nil
}

func (e *Engine) completeRun(run *core.Run, runErr error) {
	if run == nil {
		return
	}
	status, msg := core.RunStatusCompleted, ""
	if runErr != nil {
		status, msg = core.RunStatusFailed, runErr.Error()
	}
	if err := e.store.CompleteRun(run.ID, status, msg); err != nil {
		e.logger.Warn("failed to complete run", "run_id", run.ID, "error", err)
	}
	if runErr == nil && e.cfg.KeepRuns > 0 {
		if err := e.store.DeleteOldRuns(e.cfg.KeepRuns); err != nil {
			e.logger.Warn("failed to prune run history", "error", err)
		}
	}
	if updated, err := e.store.GetRun(run.ID); err == nil {
		*run = *updated
	}
}
