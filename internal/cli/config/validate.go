package config

import (
	"errors"

	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/internal/grid"
	"github.com/leapstack-labs/gridbench/pkg/core"
)

// Validate checks the settings that do not depend on component registries.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error
	if c.NJobs < 1 {
		errs = append(errs, core.Configf("n_jobs must be at least 1, got %d", c.NJobs))
	}
	if c.Source.Type == "" {
		errs = append(errs, core.Configf("source.type is required"))
	}
	if len(c.Detectors) == 0 {
		errs = append(errs, core.Configf("at least one detector is required"))
	}
	if len(c.Metrics) == 0 {
		errs = append(errs, core.Configf("at least one metric is required"))
	}
	if c.Output.Directory == "" {
		errs = append(errs, core.Configf("output.directory is required"))
	}
	if c.Output.ConstantlySaveResults && !c.Output.SaveResults {
		errs = append(errs, core.Configf("output.constantly_save_results requires output.save_results"))
	}
	if c.KeepRuns < 0 {
		errs = append(errs, core.Configf("keep_runs must not be negative"))
	}
	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, &core.ConfigurationError{Msg: "output_format", Err: err})
	}
	return errors.Join(errs...)
}

// Grid validates the configuration and expands it into the pipeline grid.
func (c *Config) Grid() (grid.Grid, error) {
	if err := c.Validate(); err != nil {
		return grid.Grid{}, err
	}
	return grid.Build(c.Preprocessors, c.Detectors, c.Metrics, c.Thresholds)
}
