package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/config"
	"github.com/leapstack-labs/gridbench/internal/cli/output"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new benchmark grid",
		Long: `Initialize a new benchmark grid with a gridbench.yaml configuration.

The default configuration evaluates two detectors on generated datasets, so
'gridbench run' works right away.

Use --example to create a grid over CSV datasets in data/, with
preprocessors, thresholded metrics and score plots enabled.`,
		Example: `  # Initialize in current directory
  gridbench init

  # Initialize with CSV datasets and a larger grid
  gridbench init --example

  # Initialize in a new directory
  gridbench init my-bench --example

  # Force overwrite existing config
  gridbench init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			mode := output.ModeAuto
			if cfg := config.GetCurrentConfig(); cfg != nil {
				mode = output.Mode(cfg.OutputFormat)
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			template := "minimal"
			if example {
				template = "example"
			}
			return runInit(r, dir, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create an example grid with CSV datasets")

	return cmd
}

func runInit(r *output.Renderer, dir, template string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	if err := copyTemplate(template, dir, force); err != nil {
		return fmt.Errorf("failed to initialize grid: %w", err)
	}

	files, _ := listTemplateFiles(template)
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}
	if len(groups["data"]) > 0 {
		r.Println("")
		r.Header(2, "Datasets")
		for _, f := range groups["data"] {
			r.StatusLine(f, "success", "")
		}
	}

	r.Println("")
	r.Success("Benchmark grid initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  gridbench datasets     List the datasets of the source")
	r.Println("  gridbench run          Evaluate every detector on every dataset")
	r.Println("  gridbench runs         Show the run history")
	r.Println("  gridbench watch        Re-run when data or configuration change")

	return nil
}
