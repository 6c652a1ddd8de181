package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridbench/internal/cli/output"
	"github.com/leapstack-labs/gridbench/internal/dataset"
	"github.com/leapstack-labs/gridbench/pkg/core"
	"github.com/leapstack-labs/gridbench/pkg/detector"
	"github.com/leapstack-labs/gridbench/pkg/metric"
	"github.com/leapstack-labs/gridbench/pkg/preprocess"
)

// ComponentInfo describes one registered component type.
type ComponentInfo struct {
	Kind      string `json:"kind"`
	Type      string `json:"type"`
	TrainType string `json:"train_type,omitempty"`
}

// NewComponentsCommand creates the components command.
func NewComponentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "List the component types a grid can use",
		Long: `List the registered data sources, preprocessors, detectors, metrics and
thresholds. Each can be referenced by its type in gridbench.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer

			infos := listComponents()
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(infos)
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{info.Kind, info.Type, output.Title(info.TrainType)}
			}
			r.Header(1, fmt.Sprintf("Components (%d total)", len(infos)))
			r.Table([]string{"Kind", "Type", "Train type"}, rows)
			return nil
		},
	}
}

func listComponents() []ComponentInfo {
	var infos []ComponentInfo
	add := func(kind string, types []string) {
		for _, t := range types {
			infos = append(infos, ComponentInfo{Kind: kind, Type: t})
		}
	}

	add("source", dataset.Registry.List())
	add("preprocessor", preprocess.Registry.List())
	for _, t := range detector.List() {
		info := ComponentInfo{Kind: "detector", Type: t}
		// Detectors with required parameters cannot be built bare.
		if d, err := detector.Build(core.Spec{Type: t}); err == nil {
			info.TrainType = string(d.TrainType())
		}
		infos = append(infos, info)
	}
	add("metric", metric.Proba.List())
	add("binary metric", metric.Binary.List())
	add("threshold", metric.Thresholds.List())
	return infos
}
