package commands

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/internal/engine"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Label string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the experiment grid",
		Long: `Expand the configured detectors, preprocessors, metrics and thresholds into
pipelines and evaluate every pipeline on every dataset of the source.

Rows already present in <output>/<pipeline>/results.csv are kept and their
jobs are skipped, so an interrupted grid resumes where it stopped.`,
		Example: `  # Run the grid described by ./gridbench.yaml
  gridbench run

  # Run with four worker processes
  gridbench run --n-jobs 4

  # Run without seeding detectors
  gridbench run --no-seed

  # Emit the report as JSON for scripts
  gridbench run --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Label, "label", "", "Label recorded with the run in the history")

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	_, err = executeGrid(cmd.Context(), cmdCtx, opts.Label)
	return err
}

// executeGrid runs the configured grid once and renders its report.
func executeGrid(ctx context.Context, cmdCtx *CommandContext, label string) (*engine.Report, error) {
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	start := time.Now()

	g, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	if r.EffectiveMode() != output.ModeJSON {
		r.Muted(fmt.Sprintf("Running %s on %d worker(s)", g.Describe(), cfg.NJobs))
	}

	var view *progressView
	var onProgress func(done, total int, o core.Outcome)
	if showProgress(cmdCtx) {
		view = startProgress(ctx, r)
		onProgress = view.update
	}

	eng, err := createEngine(cfg, cmdCtx.Logger, g, label, onProgress)
	if err != nil {
		view.stop()
		return nil, err
	}
	defer func() { _ = eng.Close() }()

	rep, err := eng.Run(ctx)
	view.stop()
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}
	return rep, renderReport(r, cfg, rep, time.Since(start))
}

// ReportOutput is the JSON form of a run report.
type ReportOutput struct {
	RunID      string         `json:"run_id,omitempty"`
	Output     string         `json:"output"`
	Dispatched int            `json:"dispatched"`
	Resumed    int            `json:"resumed"`
	ByStatus   map[string]int `json:"by_status"`
	TotalMS    int64          `json:"total_ms"`
	Rows       []ReportRow    `json:"rows"`
}

// ReportRow is one (pipeline, dataset) line of a JSON report.
type ReportRow struct {
	Collection   string              `json:"collection"`
	Dataset      string              `json:"dataset"`
	Pipeline     string              `json:"pipeline"`
	Preprocessor string              `json:"preprocessor,omitempty"`
	Detector     string              `json:"detector"`
	Status       string              `json:"status"`
	Scores       map[string]*float64 `json:"scores"`
	Error        string              `json:"error,omitempty"`
}

func renderReport(r *output.Renderer, cfg *config.Config, rep *engine.Report, elapsed time.Duration) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(reportJSON(cfg, rep, elapsed))
	default:
		renderReportTable(r, cfg, rep, elapsed)
		return nil
	}
}

func reportJSON(cfg *config.Config, rep *engine.Report, elapsed time.Duration) ReportOutput {
	out := ReportOutput{
		Output:     cfg.Output.Directory,
		Dispatched: rep.Dispatched,
		Resumed:    rep.Resumed,
		ByStatus:   rep.Counts(),
		TotalMS:    elapsed.Milliseconds(),
		Rows:       make([]ReportRow, 0, len(rep.Rows)),
	}
	if rep.Run != nil {
		out.RunID = rep.Run.ID
	}
	for _, row := range rep.Rows {
		jr := ReportRow{
			Collection: row.Dataset.Collection,
			Dataset:    row.Dataset.Name,
			Pipeline:   row.Pipeline,
			Detector:   row.Detector,
			Status:     row.Status,
			Scores:     make(map[string]*float64, len(rep.Metrics)),
			Error:      row.Error,
		}
		if rep.ProvidedPreprocessors {
			jr.Preprocessor = row.Preprocessor
		}
		for i, m := range rep.Metrics {
			if v := row.Scores[i]; !math.IsNaN(v) {
				jr.Scores[m] = &v
			} else {
				jr.Scores[m] = nil
			}
		}
		out.Rows = append(out.Rows, jr)
	}
	return out
}

func renderReportTable(r *output.Renderer, cfg *config.Config, rep *engine.Report, elapsed time.Duration) {
	header := []string{"Collection", "Dataset", "Detector"}
	if rep.ProvidedPreprocessors {
		header = append(header, "Preprocessor")
	}
	header = append(header, "Status")
	header = append(header, rep.Metrics...)

	rows := make([][]string, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		line := []string{row.Dataset.Collection, row.Dataset.Name, row.Detector}
		if rep.ProvidedPreprocessors {
			line = append(line, row.Preprocessor)
		}
		line = append(line, output.Title(row.Status))
		for _, v := range row.Scores {
			line = append(line, formatScore(v))
		}
		rows = append(rows, line)
	}

	r.Header(1, "Results")
	r.Table(header, rows)
	r.Println("")

	counts := rep.Counts()
	summary := fmt.Sprintf("%d dispatched, %d resumed | %d success, %d error, %d incompatible",
		rep.Dispatched, rep.Resumed, counts["success"], counts["error"], counts["incompatible"])
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatKeyValue("Summary", summary))
		r.Println(output.FormatKeyValue("Output", cfg.Output.Directory))
		if rep.Run != nil {
			r.Println(output.FormatKeyValue("Run", rep.Run.ID))
		}
		return
	}
	if counts["error"] > 0 {
		r.StatusLine(summary, "error", "")
	} else {
		r.StatusLine(summary, "success", "")
	}
	r.Muted(fmt.Sprintf("Results written to %s in %s", cfg.Output.Directory, elapsed.Round(time.Millisecond)))
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
