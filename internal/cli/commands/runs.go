package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// RunInfo is the JSON form of one recorded run.
type RunInfo struct {
	ID          string     `json:"id"`
	Label       string     `json:"label,omitempty"`
	Status      string     `json:"status"`
	PlannedJobs int        `json:"planned_jobs"`
	ResumedJobs int        `json:"resumed_jobs"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// JobInfo is the JSON form of one recorded job.
type JobInfo struct {
	JobID     string `json:"job_id"`
	Pipeline  string `json:"pipeline"`
	Dataset   string `json:"dataset"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
	FitMS     int64  `json:"fit_ms"`
	PredictMS int64  `json:"predict_ms"`
}

// RunDetail is the JSON form of `runs show`.
type RunDetail struct {
	RunInfo
	Jobs []JobInfo `json:"jobs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the run history",
		Long: `Show the most recent grid runs recorded in the state database, newest
first. Use 'runs show <id>' for the jobs of a single run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer

			store, err := openStateStore(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			if store == nil {
				if r.EffectiveMode() == output.ModeJSON {
					return r.JSON([]RunInfo{})
				}
				r.Muted("No runs recorded yet.")
				return nil
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}

			infos := make([]RunInfo, len(runs))
			for i, run := range runs {
				infos[i] = toRunInfo(run)
			}
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(infos)
			}

			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{
					info.ID,
					info.Label,
					output.Title(info.Status),
					strconv.Itoa(info.PlannedJobs),
					strconv.Itoa(info.ResumedJobs),
					info.StartedAt.Local().Format(time.DateTime),
					runDuration(info),
				}
			}
			r.Header(1, fmt.Sprintf("Runs (%d shown)", len(infos)))
			r.Table([]string{"ID", "Label", "Status", "Planned", "Resumed", "Started", "Duration"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of runs to show")
	cmd.AddCommand(newRunsShowCommand())
	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the jobs of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer

			store, err := openStateStore(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("no runs recorded yet")
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(args[0])
			if err != nil {
				return err
			}
			records, err := store.GetJobsForRun(run.ID)
			if err != nil {
				return err
			}

			detail := RunDetail{RunInfo: toRunInfo(run), Jobs: make([]JobInfo, len(records))}
			for i, rec := range records {
				detail.Jobs[i] = JobInfo{
					JobID:     string(rec.JobID),
					Pipeline:  rec.Pipeline,
					Dataset:   rec.Dataset.String(),
					Status:    string(rec.Status),
					ErrorKind: string(rec.ErrorKind),
					Error:     rec.Error,
					FitMS:     rec.FitMS,
					PredictMS: rec.PredictMS,
				}
			}
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(detail)
			}

			r.Header(1, "Run "+detail.ID)
			if detail.Label != "" {
				r.Println(output.FormatKeyValue("Label", detail.Label))
			}
			r.Println(output.FormatKeyValue("Status", output.Title(detail.Status)))
			r.Println(output.FormatKeyValue("Started", detail.StartedAt.Local().Format(time.DateTime)))
			r.Println(output.FormatKeyValue("Duration", runDuration(detail.RunInfo)))
			if detail.Error != "" {
				r.Println(output.FormatKeyValue("Error", detail.Error))
			}
			r.Println("")

			if len(detail.Jobs) == 0 {
				r.Muted("No jobs dispatched in this run.")
				return nil
			}
			rows := make([][]string, len(detail.Jobs))
			for i, job := range detail.Jobs {
				rows[i] = []string{
					job.Dataset,
					job.Pipeline,
					output.Title(job.Status),
					strconv.FormatInt(job.FitMS, 10),
					strconv.FormatInt(job.PredictMS, 10),
					job.Error,
				}
			}
			r.Table([]string{"Dataset", "Pipeline", "Status", "Fit ms", "Predict ms", "Error"}, rows)
			return nil
		},
	}
}

func toRunInfo(run *core.Run) RunInfo {
	return RunInfo{
		ID:          run.ID,
		Label:       run.Label,
		Status:      string(run.Status),
		PlannedJobs: run.PlannedJobs,
		ResumedJobs: run.ResumedJobs,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		Error:       run.Error,
	}
}

func runDuration(info RunInfo) string {
	if info.CompletedAt == nil {
		return "-"
	}
	return info.CompletedAt.Sub(info.StartedAt).Round(time.Millisecond).String()
}
