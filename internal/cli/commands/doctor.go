package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/internal/dataset"
	"github.com/leapstack-labs/gridbench/internal/gate"
	"github.com/leapstack-labs/gridbench/internal/grid"
	"github.com/leapstack-labs/gridbench/internal/pool"
	"github.com/leapstack-labs/gridbench/internal/results"
	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/detector"
)

// Check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the grid before running it",
		Long: `Analyze the configured grid for problems that would make a run fail or
produce empty rows.

The doctor command reports:
- Grid summary (pipelines, datasets, metrics, pending jobs)
- Health checks grouped by category (Configuration, Data, Results, Environment)
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  gridbench doctor

  # Output as JSON
  gridbench doctor --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			out := diagnose(cmd.Context(), cmdCtx.Cfg)

			r := cmdCtx.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(out)
			case output.ModeMarkdown:
				return renderDoctorMarkdown(r, out)
			default:
				return renderDoctorText(r, out)
			}
		},
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         GridSummary   `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// GridSummary contains grid-level statistics.
type GridSummary struct {
	Pipelines int `json:"pipelines"`
	Datasets  int `json:"datasets"`
	Metrics   int `json:"metrics"`
	Jobs      int `json:"jobs"`
	Pending   int `json:"pending"`
	Workers   int `json:"workers"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func newCheck(id, name, group string) *HealthCheck {
	return &HealthCheck{RuleID: id, Name: name, Group: group, Status: checkPass}
}

// fail records an issue. Errors take precedence over warnings.
func (c *HealthCheck) fail(status, detail string) {
	c.IssueCount++
	c.Details = append(c.Details, detail)
	if c.Status != checkError {
		c.Status = status
	}
}

// diagnose runs every check that the configuration allows. Checks that need
// a valid grid or a readable source are skipped when those fail.
func diagnose(ctx context.Context, cfg *config.Config) *DoctorOutput {
	var checks []*HealthCheck
	summary := GridSummary{Workers: cfg.NJobs}

	file := newCheck("CF01", "Configuration file", "configuration")
	if cfg.ConfigFile == "" {
		file.fail(checkWarn, "no gridbench.yaml found, using defaults")
	}
	checks = append(checks, file)

	valid := newCheck("CF02", "Grid definition", "configuration")
	checks = append(checks, valid)
	g, err := cfg.Grid()
	if err != nil {
		for _, msg := range splitJoined(err) {
			valid.fail(checkError, msg)
		}
	} else {
		summary.Pipelines = len(g.Pipelines)
		summary.Metrics = len(g.Metrics())
	}

	source := newCheck("DS01", "Data source", "data")
	checks = append(checks, source)
	keys, metas := inspectSource(ctx, cfg.Source, source)
	summary.Datasets = len(keys)

	if err == nil && len(keys) > 0 {
		checks = append(checks, checkCompatibility(cfg, metas))
		resumable, pending := checkResults(cfg, g, keys)
		checks = append(checks, resumable)
		summary.Jobs = len(g.Pipelines) * len(keys)
		summary.Pending = pending
	}

	checks = append(checks, checkHistory(cfg), checkWorkers(cfg))

	out := &DoctorOutput{Summary: summary}
	for _, c := range checks {
		out.HealthChecks = append(out.HealthChecks, *c)
		out.IssueCount += c.IssueCount
	}
	sort.SliceStable(out.HealthChecks, func(i, j int) bool {
		if out.HealthChecks[i].Group != out.HealthChecks[j].Group {
			return groupOrder[out.HealthChecks[i].Group] < groupOrder[out.HealthChecks[j].Group]
		}
		return out.HealthChecks[i].RuleID < out.HealthChecks[j].RuleID
	})
	out.Score = calculateHealthScore(out.HealthChecks, summary.Jobs)
	out.Recommendations = generateRecommendations(out.HealthChecks)
	return out
}

var groupOrder = map[string]int{"configuration": 0, "data": 1, "results": 2, "environment": 3}

func inspectSource(ctx context.Context, spec core.Spec, check *HealthCheck) ([]core.DatasetKey, map[core.DatasetKey]core.Metadata) {
	src, err := dataset.Open(spec)
	if err != nil {
		check.fail(checkError, err.Error())
		return nil, nil
	}
	defer func() { _ = dataset.Close(src) }()

	keys, err := src.Keys(ctx)
	if err != nil {
		check.fail(checkError, err.Error())
		return nil, nil
	}
	if len(keys) == 0 {
		check.fail(checkError, "source declares no datasets")
		return nil, nil
	}

	metas := make(map[core.DatasetKey]core.Metadata, len(keys))
	for _, key := range keys {
		meta, err := src.Metadata(ctx, key)
		if err != nil {
			check.fail(checkError, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		metas[key] = meta
	}
	return keys, metas
}

// checkCompatibility lists detector and dataset pairs whose training regimes
// do not match. They fail every run, or abort it when the raise option is set.
func checkCompatibility(cfg *config.Config, metas map[core.DatasetKey]core.Metadata) *HealthCheck {
	check := newCheck("DS02", "Detector compatibility", "data")
	status := checkWarn
	if cfg.Output.InvalidTrainTypeRaiseError {
		status = checkError
	}

	keys := make([]core.DatasetKey, 0, len(metas))
	for key := range metas {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, spec := range cfg.Detectors {
		det, err := detector.Build(spec)
		if err != nil {
			check.fail(checkError, fmt.Sprintf("%s: %v", spec.DisplayName(), err))
			continue
		}
		for _, key := range keys {
			meta := metas[key]
			if _, ok := gate.Decide(det.TrainType(), meta.TrainType); !ok {
				check.fail(status, fmt.Sprintf("%s (%s) cannot run on %s (%s)", spec.DisplayName(), det.TrainType(), key, meta.TrainType))
			}
		}
	}
	return check
}

// checkResults opens every pipeline's persisted results the way a run would
// and counts the jobs a run would dispatch.
func checkResults(cfg *config.Config, g grid.Grid, keys []core.DatasetKey) (*HealthCheck, int) {
	check := newCheck("RS01", "Resumable results", "results")
	opts := cfg.Options()
	pending := 0

	for _, p := range g.Pipelines {
		layout := results.NewLayout(opts.Directory, p.Name)
		columns := core.Columns(p.MetricNames(), opts.TraceTime, opts.TraceMemory)
		store, err := results.OpenStore(layout, columns, keys, results.StoreOptions{})
		if err != nil {
			check.fail(checkError, err.Error())
			pending += len(keys)
			continue
		}
		pending += len(keys) - store.Resumed()
	}
	return check, pending
}

func checkHistory(cfg *config.Config) *HealthCheck {
	check := newCheck("EN01", "Run history", "environment")
	if cfg.StatePath == "" {
		return check
	}
	store, err := openStateStore(cfg, nil)
	if err != nil {
		check.fail(checkError, err.Error())
		return check
	}
	if store == nil {
		if err := ensureWritable(cfg.StatePath); err != nil {
			check.fail(checkError, err.Error())
		}
		return check
	}
	defer func() { _ = store.Close() }()

	if _, err := store.GetMigrationVersion(); err != nil {
		check.fail(checkError, err.Error())
	}
	return check
}

func checkWorkers(cfg *config.Config) *HealthCheck {
	check := newCheck("EN02", "Worker processes", "environment")
	if cfg.NJobs <= 1 {
		return check
	}
	if _, err := pool.WorkerCommand("worker"); err != nil {
		check.fail(checkError, err.Error())
	}
	return check
}

// ensureWritable reports whether the first existing ancestor of path is a
// writable directory.
func ensureWritable(path string) error {
	dir := path
	for {
		dir = filepath.Dir(dir)
		info, err := os.Stat(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
		f, err := os.CreateTemp(dir, ".gridbench-doctor-*")
		if err != nil {
			return fmt.Errorf("state directory is not writable: %w", err)
		}
		_ = f.Close()
		return os.Remove(f.Name())
	}
}

func splitJoined(err error) []string {
	var lines []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// calculateHealthScore computes a health score from 0-100.
// The scoring weights:
// - Each issue reduces points
// - Errors count double
// - Larger grids make each individual issue weigh less
func calculateHealthScore(checks []HealthCheck, jobCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if jobCount > 10 {
		basePenalty = 3.0
	}
	if jobCount > 50 {
		basePenalty = 2.0
	}
	if jobCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case checkError:
			score -= float64(check.IssueCount) * basePenalty * 2
		case checkWarn:
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	// Clamp to 0-100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(score)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		rec := getRecommendation(check.RuleID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	// Limit to top 5 recommendations
	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

// getRecommendation returns a recommendation for a specific rule.
func getRecommendation(ruleID string) string {
	switch ruleID {
	case "CF01":
		return "Run 'gridbench init' to create a gridbench.yaml"
	case "CF02":
		return "Fix the grid definition; 'gridbench components' lists the valid types"
	case "DS01":
		return "Check the source root and each dataset's metadata.yaml"
	case "DS02":
		return "Remove detectors that cannot train on the selected datasets, or restrict the source's datasets"
	case "RS01":
		return "Move away results written with a different metric set, or choose another output directory"
	case "EN01":
		return "Point --state at a writable location, or set state_path to an empty string to disable the history"
	case "EN02":
		return "Run with --n-jobs 1 when the gridbench binary cannot be re-executed"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("gridbench Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Grid Summary"))
	r.Printf("   Pipelines: %d | Datasets: %d | Metrics: %d\n", out.Summary.Pipelines, out.Summary.Datasets, out.Summary.Metrics)
	r.Printf("   Jobs: %d | Pending: %d | Workers: %d\n", out.Summary.Jobs, out.Summary.Pending, out.Summary.Workers)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + output.Title(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.StatusSuccess.String()
		switch check.Status {
		case checkWarn:
			icon = styles.Warning.Render("!")
		case checkError:
			icon = styles.StatusFailed.String()
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details for issues
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# gridbench Health Report")
	r.Println("")

	r.Println("## Grid Summary")
	r.Println("")
	r.Println(output.FormatKeyValue("Pipelines", fmt.Sprint(out.Summary.Pipelines)))
	r.Println(output.FormatKeyValue("Datasets", fmt.Sprint(out.Summary.Datasets)))
	r.Println(output.FormatKeyValue("Metrics", fmt.Sprint(out.Summary.Metrics)))
	r.Println(output.FormatKeyValue("Jobs", fmt.Sprint(out.Summary.Jobs)))
	r.Println(output.FormatKeyValue("Pending", fmt.Sprint(out.Summary.Pending)))
	r.Println(output.FormatKeyValue("Workers", fmt.Sprint(out.Summary.Workers)))
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + output.Title(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
