package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/fill"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

var (
	fillOut       string
	fillThreshold float64
	fillStart     string
	fillEnd       string
	fillSeries    seriesFlags
)

var fillCmd = &cobra.Command{
	Use:   "fill <snapshot>...",
	Short: "Compute the time each series first reaches the fill threshold",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold := fillThreshold
		if threshold == 0 {
			threshold = cfg.Analysis.ThresholdPct
		}
		window, err := parseWindow(fillStart, fillEnd)
		if err != nil {
			return err
		}

		res, err := fillSeries.normalize(args)
		if err != nil {
			return eris.Wrap(err, "fill")
		}
		ft, err := fill.Extract(res, threshold, window)
		if err != nil {
			return eris.Wrap(err, "fill")
		}

		w, closeOut, err := openOutput(cmd, fillOut)
		if err != nil {
			return err
		}
		if err := ft.WriteCSV(w); err != nil {
			_ = closeOut()
			return err
		}
		if err := closeOut(); err != nil {
			return eris.Wrap(err, "fill: close output")
		}

		crossed := 0
		for _, r := range ft.Records() {
			if r.IsCrossed() {
				crossed++
			}
		}
		zap.L().Info("fill complete",
			zap.Float64("threshold_pct", threshold),
			zap.Int("records", ft.Len()),
			zap.Int("crossed", crossed),
			zap.Int("empty_window", ft.Diagnostics.Count(model.DiagEmptyWindow)),
		)
		return nil
	},
}

func parseWindow(start, end string) (fill.Window, error) {
	var w fill.Window
	var ok bool
	if start != "" {
		if w.Start, ok = model.ParseTimestamp(start); !ok {
			return w, eris.Errorf("bad --start timestamp %q", start)
		}
	}
	if end != "" {
		if w.End, ok = model.ParseTimestamp(end); !ok {
			return w, eris.Errorf("bad --end timestamp %q", end)
		}
	}
	return w, nil
}

func init() {
	fillCmd.Flags().StringVarP(&fillOut, "out", "o", "", "output CSV path (default stdout)")
	fillCmd.Flags().Float64Var(&fillThreshold, "threshold", 0, "fill threshold percent (default from config)")
	fillCmd.Flags().StringVar(&fillStart, "start", "", "window start timestamp (inclusive)")
	fillCmd.Flags().StringVar(&fillEnd, "end", "", "window end timestamp (inclusive)")
	fillSeries.register(fillCmd)
	rootCmd.AddCommand(fillCmd)
}
