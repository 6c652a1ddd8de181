// Package config provides configuration management for the gridbench CLI.
//
// A grid is described by component spec lists (detectors, preprocessors,
// metrics, thresholds), a data source spec and output options. Values are
// layered: defaults < gridbench.yaml < GRIDBENCH_* environment < flags.
package config

import (
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Config holds all CLI configuration options.
type Config struct {
	Source        core.Spec    `koanf:"source"`
	Detectors     []core.Spec  `koanf:"detectors"`
	Preprocessors []core.Spec  `koanf:"preprocessors"`
	Metrics       []core.Spec  `koanf:"metrics"`
	Thresholds    []core.Spec  `koanf:"thresholds"`
	Output        OutputConfig `koanf:"output"`
	NJobs         int          `koanf:"n_jobs"`
	Seed          int64        `koanf:"seed"`
	NoSeed        bool         `koanf:"no_seed"`
	StatePath     string       `koanf:"state_path"`
	KeepRuns      int          `koanf:"keep_runs"`
	Label         string       `koanf:"label"`
	Verbose       bool         `koanf:"verbose"`
	OutputFormat  string       `koanf:"output_format"`
	Watch         WatchConfig  `koanf:"watch"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// OutputConfig controls what a run writes and which failures abort it.
type OutputConfig struct {
	Directory                  string `koanf:"directory"`
	TraceTime                  bool   `koanf:"trace_time"`
	TraceMemory                bool   `koanf:"trace_memory"`
	SaveResults                bool   `koanf:"save_results"`
	ConstantlySaveResults      bool   `koanf:"constantly_save_results"`
	SaveAnomalyScores          bool   `koanf:"save_anomaly_scores"`
	SaveAnomalyScoresPlot      bool   `koanf:"save_anomaly_scores_plot"`
	InvalidTrainTypeRaiseError bool   `koanf:"invalid_train_type_raise_error"`
	CreateFitPredictErrorLog   bool   `koanf:"create_fit_predict_error_log"`
	ReraiseFitPredictErrors    bool   `koanf:"reraise_fit_predict_errors"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Paths are watched in addition to the config file and the dataset root.
	Paths      []string `koanf:"paths"`
	DebounceMS int      `koanf:"debounce_ms"`
}

// Default configuration values.
const (
	DefaultOutputDir  = "results"
	DefaultStateFile  = ".gridbench/state.db"
	DefaultKeepRuns   = 50
	DefaultOutput     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDebounceMS = 500
)

// Options converts the output section into per-job options.
func (c *Config) Options() core.Options {
	o := c.Output
	return core.Options{
		Directory:                  o.Directory,
		TraceTime:                  o.TraceTime,
		TraceMemory:                o.TraceMemory,
		SaveResults:                o.SaveResults,
		ConstantlySaveResults:      o.ConstantlySaveResults,
		SaveAnomalyScores:          o.SaveAnomalyScores,
		SaveAnomalyScoresPlot:      o.SaveAnomalyScoresPlot,
		InvalidTrainTypeRaiseError: o.InvalidTrainTypeRaiseError,
		CreateFitPredictErrorLog:   o.CreateFitPredictErrorLog,
		ReraiseFitPredictErrors:    o.ReraiseFitPredictErrors,
		Verbose:                    c.Verbose,
	}
}

// SeedValue returns the per-job seed, or nil when seeding is disabled.
func (c *Config) SeedValue() *int64 {
	if c.NoSeed {
		return nil
	}
	seed := c.Seed
	return &seed
}
