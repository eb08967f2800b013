package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/actuallystonmai/nutrigrade/internal/domain"
	"github.com/actuallystonmai/nutrigrade/internal/model"
	"github.com/actuallystonmai/nutrigrade/internal/service"
	"github.com/spf13/cobra"
)

func newPredictCommand() *cobra.Command {
	var modelPath string
	values := make([]float64, domain.FeatureCount)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Grade one product from nutrient flags",
		Long: `Grade one product and print the result as JSON.

Every nutrient flag defaults to the value the input form starts with, so only
the values that differ need to be given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if modelPath == "" {
				modelPath = cfg.ModelPath
			}

			pipeline := service.NewPipeline(model.NewHandle(model.FileSource{Path: modelPath}))
			result, err := pipeline.RunValues(cmd.Context(), values)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	for i, f := range domain.Fields {
		cmd.Flags().Float64Var(&values[i], flagName(f.Name), f.Default, fmt.Sprintf("%s (%s)", f.Help, f.Unit))
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "Model artifact path (default: MODEL_PATH)")

	return cmd
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}
