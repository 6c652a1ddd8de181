package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/engine"
	"github.com/leapstack-labs/gridbench/internal/pool"
)

// NewWorkerCommand creates the hidden worker command. The parent process
// starts one worker per n_jobs slot and exchanges JSON lines with it: jobs
// arrive on stdin, outcomes leave on stdout, logs go to stderr.
func NewWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Execute grid jobs received on stdin",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})).
				With("worker_pid", os.Getpid())

			return pool.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), engine.NewExecutor(logger))
		},
	}
}
