package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/analysis"
)

var (
	analyzePlan   string
	analyzeOutDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run every analysis in a YAML plan and write its outputs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		plan, err := analysis.LoadPlan(analyzePlan)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		runner := analysis.NewRunner(cfg)
		if analyzeOutDir != "" {
			runner.OutputDir = analyzeOutDir
		}
		if err := runner.RunPlan(ctx, plan); err != nil {
			return eris.Wrap(err, "analyze")
		}

		zap.L().Info("analyze complete",
			zap.String("plan", analyzePlan),
			zap.Int("runs", len(plan.Runs)),
			zap.String("out", runner.OutputDir),
		)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePlan, "plan", "", "path to analysis plan YAML (required)")
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "out-dir", "", "output directory (default from config)")
	_ = analyzeCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(analyzeCmd)
}
