package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/series"
)

var (
	exportOut    string
	exportSeries = seriesFlags{defaultAggregation: "unit"}
)

var exportCmd = &cobra.Command{
	Use:   "export <snapshot>...",
	Short: "Export absolute and normalized occupancy series as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := exportSeries.normalize(args)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		w, closeOut, err := openOutput(cmd, exportOut)
		if err != nil {
			return err
		}
		if err := series.WriteExport(w, series.BuildExport(res)); err != nil {
			_ = closeOut()
			return err
		}
		if err := closeOut(); err != nil {
			return eris.Wrap(err, "export: close output")
		}

		zap.L().Info("export complete",
			zap.Int("series", len(res.Included())),
			zap.Int("grid", len(res.Grid)),
			zap.Int("diagnostics", len(res.Diagnostics)),
			zap.String("out", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output JSON path (default stdout)")
	exportSeries.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
