package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/internal/engine"
	"github.com/leapstack-labs/gridbench/internal/grid"
	"github.com/leapstack-labs/gridbench/internal/pool"
	"github.com/leapstack-labs/gridbench/internal/state"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// getConfig returns the configuration loaded by the root command, loading
// the defaults when a command runs standalone.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}

// workerCommand re-executes this binary as a grid worker.
func workerCommand(verbose bool) (func(ctx context.Context) *exec.Cmd, error) {
	args := []string{"worker"}
	if verbose {
		args = append(args, "--verbose")
	}
	return pool.WorkerCommand(args...)
}

func createEngine(cfg *config.Config, logger *slog.Logger, g grid.Grid, label string, progress func(done, total int, o core.Outcome)) (*engine.Engine, error) {
	if err := ensureParentDir(cfg.StatePath); err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		Grid:      g,
		Source:    cfg.Source,
		Options:   cfg.Options(),
		Workers:   cfg.NJobs,
		Seed:      cfg.SeedValue(),
		StatePath: cfg.StatePath,
		KeepRuns:  cfg.KeepRuns,
		Label:     label,
		Progress:  progress,
		Logger:    logger,
	}
	if cfg.NJobs > 1 {
		cmd, err := workerCommand(cfg.Verbose)
		if err != nil {
			return nil, err
		}
		engineCfg.WorkerCommand = cmd
		engineCfg.WorkerStderr = os.Stderr
	}
	return engine.New(engineCfg)
}

// openStateStore opens the run history read side. A missing database means
// no run was recorded yet and returns a nil store.
func openStateStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if _, err := os.Stat(cfg.StatePath); os.IsNotExist(err) {
		return nil, nil
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}
