// Package engine provides the experiment-grid execution engine.
// It plans one job per (pipeline, dataset), skips jobs whose results were
// persisted by an earlier run, dispatches the rest and folds every outcome
// into the pipeline's results table.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"github.com/leapstack-labs/gridbench/internal/grid"
	"github.com/leapstack-labs/gridbench/internal/state"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Engine orchestrates grid runs.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	store    state.Store
	executor *Executor
}

// Config holds engine configuration.
type Config struct {
	// Grid is the expanded set of pipelines.
	Grid grid.Grid
	// Source describes the data source every job loads from.
	Source core.Spec
	// Options are passed to every job.
	Options core.Options
	// Workers is the number of worker processes; 1 runs jobs in-process.
	Workers int
	// Seed is applied inside every job; nil disables seeding.
	Seed *int64
	// StatePath is the SQLite run history; empty disables history.
	StatePath string
	// KeepRuns bounds the run history. Zero keeps everything.
	KeepRuns int
	// Label tags the run in the history.
	Label string
	// Progress is called after every finished job with the number of jobs
	// done so far and the number dispatched (optional).
	Progress func(done, total int, o core.Outcome)
	// WorkerCommand starts one worker process. Required when Workers > 1.
	WorkerCommand func(ctx context.Context) *exec.Cmd
	// WorkerStderr receives worker logs (optional, defaults to os.Stderr).
	WorkerStderr io.Writer
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine. The run history store is opened and migrated when
// a state path is configured.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("initializing engine", "pipelines", len(cfg.Grid.Pipelines), "workers", cfg.Workers, "state_path", cfg.StatePath)

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		executor: NewExecutor(logger),
	}

	if cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.InitSchema(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize state schema: %w", err)
		}
		e.store = store
	}
	return e, nil
}

// Close releases the run history store.
func (e *Engine) Close() error {
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Store returns the run history store, or nil when history is disabled.
func (e *Engine) Store() state.Store {
	return e.store
}
