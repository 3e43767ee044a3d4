package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/ingest"
)

var ingestOut string

var ingestCmd = &cobra.Command{
	Use:   "ingest <snapshot>...",
	Short: "Combine availability snapshots into one observation log",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obs, err := ingest.IngestFiles(args, cfg.Input.TabularOptions())
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		w, closeOut, err := openOutput(cmd, ingestOut)
		if err != nil {
			return err
		}
		if err := ingest.WriteCombined(w, obs); err != nil {
			_ = closeOut()
			return err
		}
		if err := closeOut(); err != nil {
			return eris.Wrap(err, "ingest: close output")
		}

		zap.L().Info("ingest complete",
			zap.Int("files", len(args)),
			zap.Int("observations", obs.Len()),
			zap.String("out", ingestOut),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", "", "output CSV path (default stdout)")
	rootCmd.AddCommand(ingestCmd)
}
