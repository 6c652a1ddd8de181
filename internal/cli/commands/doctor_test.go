package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	clitestutil "github.com/leapstack-labs/gridbench/internal/cli/testutil"
	"github.com/leapstack-labs/gridbench/internal/results"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name     string
		checks   []HealthCheck
		jobCount int
		minScore int
		maxScore int
	}{
		{
			name:     "no checks returns 100",
			checks:   nil,
			jobCount: 10,
			minScore: 100,
			maxScore: 100,
		},
		{
			name: "all passing returns 100",
			checks: []HealthCheck{
				{RuleID: "CF01", Status: "pass", IssueCount: 0},
				{RuleID: "DS01", Status: "pass", IssueCount: 0},
			},
			jobCount: 10,
			minScore: 100,
			maxScore: 100,
		},
		{
			name: "warnings reduce score",
			checks: []HealthCheck{
				{RuleID: "CF01", Status: "pass", IssueCount: 0},
				{RuleID: "DS02", Status: "warn", IssueCount: 2},
			},
			jobCount: 10,
			minScore: 80,
			maxScore: 99,
		},
		{
			name: "errors reduce score more",
			checks: []HealthCheck{
				{RuleID: "RS01", Status: "error", IssueCount: 2},
			},
			jobCount: 10,
			minScore: 70,
			maxScore: 95,
		},
		{
			name: "larger grids mean less impact per issue",
			checks: []HealthCheck{
				{RuleID: "DS02", Status: "warn", IssueCount: 5},
			},
			jobCount: 200,
			minScore: 90,
			maxScore: 100,
		},
		{
			name: "many issues can reduce to 0",
			checks: []HealthCheck{
				{RuleID: "CF02", Status: "error", IssueCount: 20},
				{RuleID: "DS01", Status: "error", IssueCount: 20},
			},
			jobCount: 5,
			minScore: 0,
			maxScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calculateHealthScore(tt.checks, tt.jobCount)
			assert.GreaterOrEqual(t, score, tt.minScore, "score should be >= %d", tt.minScore)
			assert.LessOrEqual(t, score, tt.maxScore, "score should be <= %d", tt.maxScore)
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	for _, id := range []string{"CF01", "CF02", "DS01", "DS02", "RS01", "EN01", "EN02"} {
		assert.NotEmpty(t, getRecommendation(id), "expected recommendation for %s", id)
	}
	assert.Empty(t, getRecommendation("UNKNOWN"))
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: "CF01", Status: "warn", IssueCount: 1},
		{RuleID: "DS02", Status: "warn", IssueCount: 2},
		{RuleID: "RS01", Status: "pass", IssueCount: 0},
		{RuleID: "DS02", Status: "warn", IssueCount: 1},
	}

	recommendations := generateRecommendations(checks)

	require.Len(t, recommendations, 2, "duplicates and passing checks are dropped")
	assert.Contains(t, recommendations[0], "gridbench init")
	assert.Contains(t, recommendations[1], "detectors")
}

func TestGenerateRecommendations_LimitTo5(t *testing.T) {
	var checks []HealthCheck
	for _, id := range []string{"CF01", "CF02", "DS01", "DS02", "RS01", "EN01", "EN02"} {
		checks = append(checks, HealthCheck{RuleID: id, Status: "warn", IssueCount: 1})
	}

	assert.Len(t, generateRecommendations(checks), 5)
}

func loadGrid(t *testing.T, extra string) *config.Config {
	t.Helper()
	dir := clitestutil.SetupTestGrid(t, extra)
	t.Cleanup(config.ResetConfig)
	cfg, err := config.LoadConfig(filepath.Join(dir, config.ConfigFileName), nil)
	require.NoError(t, err)
	return cfg
}

func findCheck(t *testing.T, out *DoctorOutput, id string) HealthCheck {
	t.Helper()
	for _, c := range out.HealthChecks {
		if c.RuleID == id {
			return c
		}
	}
	t.Fatalf("check %s not reported", id)
	return HealthCheck{}
}

func TestDiagnose_Healthy(t *testing.T) {
	cfg := loadGrid(t, "")

	out := diagnose(context.Background(), cfg)

	assert.Equal(t, 100, out.Score)
	assert.Zero(t, out.IssueCount)
	assert.Empty(t, out.Recommendations)
	assert.Equal(t, GridSummary{Pipelines: 2, Datasets: 2, Metrics: 2, Jobs: 4, Pending: 4, Workers: 1}, out.Summary)

	var groups []string
	for _, c := range out.HealthChecks {
		if len(groups) == 0 || groups[len(groups)-1] != c.Group {
			groups = append(groups, c.Group)
		}
	}
	assert.Equal(t, []string{"configuration", "data", "results", "environment"}, groups)
}

func TestDiagnose_Incompatible(t *testing.T) {
	cfg := loadGrid(t, "")
	cfg.Detectors = append(cfg.Detectors, core.Spec{Type: "centroid"})

	check := findCheck(t, diagnose(context.Background(), cfg), "DS02")
	assert.Equal(t, "warn", check.Status)
	require.Equal(t, 1, check.IssueCount)
	assert.Contains(t, check.Details[0], "centroid (supervised) cannot run on demo/sine")

	cfg.Output.InvalidTrainTypeRaiseError = true
	check = findCheck(t, diagnose(context.Background(), cfg), "DS02")
	assert.Equal(t, "error", check.Status)
}

func TestDiagnose_InvalidGrid(t *testing.T) {
	cfg := loadGrid(t, "")
	cfg.Metrics = nil
	cfg.NJobs = 0

	out := diagnose(context.Background(), cfg)

	check := findCheck(t, out, "CF02")
	assert.Equal(t, "error", check.Status)
	assert.Equal(t, 2, check.IssueCount)
	assert.Less(t, out.Score, 100)
	assert.Zero(t, out.Summary.Jobs, "grid-dependent checks are skipped")
}

func TestDiagnose_ResultsWithOtherColumns(t *testing.T) {
	cfg := loadGrid(t, "")
	keys := []core.DatasetKey{{Collection: "demo", Name: "sine"}}
	layout := results.NewLayout(cfg.Output.Directory, "zscore")
	require.NoError(t, results.New([]string{core.ColumnSeed, "auc_pr"}, keys).Save(layout.Results()))

	out := diagnose(context.Background(), cfg)

	check := findCheck(t, out, "RS01")
	assert.Equal(t, "error", check.Status)
	assert.Equal(t, 1, check.IssueCount)
}

func TestDiagnose_BrokenSource(t *testing.T) {
	cfg := loadGrid(t, "")
	cfg.Source = core.Spec{Type: "directory", Params: map[string]any{"root": filepath.Join(t.TempDir(), "missing")}}

	check := findCheck(t, diagnose(context.Background(), cfg), "DS01")
	assert.Equal(t, "error", check.Status)
}

func TestRenderDoctor(t *testing.T) {
	cfg := loadGrid(t, "")
	cfg.Detectors = append(cfg.Detectors, core.Spec{Type: "centroid"})
	out := diagnose(context.Background(), cfg)

	md := clitestutil.NewTestRendererMarkdown()
	require.NoError(t, renderDoctorMarkdown(md.Renderer, out))
	assert.Contains(t, md.Output(), "# gridbench Health Report")
	assert.Contains(t, md.Output(), "**[WARN]** DS02: Detector compatibility (1 issues)")
	clitestutil.AssertNoANSI(t, md.Output())
	clitestutil.AssertValidMarkdown(t, md.Output())

	text := clitestutil.NewTestRendererText()
	require.NoError(t, renderDoctorText(text.Renderer, out))
	assert.Contains(t, text.Output(), "Health Score")
	assert.Contains(t, text.Output(), "Recommendations")
}
