package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/internal/dataset"
)

// DatasetInfo describes one dataset of the configured source.
type DatasetInfo struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
	TrainType  string `json:"train_type"`
}

// NewDatasetsCommand creates the datasets command.
func NewDatasetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets of the configured source",
		Long: `List every dataset the configured source declares, with the train type
read from its metadata. Datasets whose metadata cannot be read are reported
and skipped.`,
		Example: `  # List datasets
  gridbench datasets

  # List datasets as JSON
  gridbench datasets --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer

			src, err := dataset.Open(cmdCtx.Cfg.Source)
			if err != nil {
				return err
			}
			defer func() { _ = dataset.Close(src) }()

			keys, err := src.Keys(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list datasets: %w", err)
			}

			infos := make([]DatasetInfo, 0, len(keys))
			for _, key := range keys {
				meta, err := src.Metadata(cmd.Context(), key)
				if err != nil {
					r.Warning(fmt.Sprintf("%s: %v", key, err))
					continue
				}
				infos = append(infos, DatasetInfo{Collection: key.Collection, Name: key.Name, TrainType: string(meta.TrainType)})
			}

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(infos)
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{info.Collection, info.Name, output.Title(info.TrainType)}
			}
			r.Header(1, fmt.Sprintf("Datasets (%d total)", len(infos)))
			r.Table([]string{"Collection", "Dataset", "Train type"}, rows)
			return nil
		},
	}
}
