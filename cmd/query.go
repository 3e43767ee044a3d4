package main

import (
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/ingest"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/series"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

var (
	queryOut      string
	queryBuilding string
	queryGender   string
	queryRoomType string
)

var queryCmd = &cobra.Command{
	Use:   "query <snapshot>...",
	Short: "Print the raw availability history of one unit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		obs, err := ingest.IngestFiles(args, cfg.Input.TabularOptions())
		if err != nil {
			return eris.Wrap(err, "query")
		}

		preds := []series.Predicate{series.BuildingIs(queryBuilding)}
		if queryGender != "" {
			preds = append(preds, series.GenderIs(queryGender))
		}
		if queryRoomType != "" {
			preds = append(preds, series.RoomTypeIs(queryRoomType))
		}
		matched := series.FilterLog(obs, series.And(preds...)).Observations()
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Time.Before(matched[j].Time) })

		rows := make([][]string, 0, len(matched))
		for _, o := range matched {
			avail := ""
			if !o.Missing {
				avail = strconv.Itoa(o.Available)
			}
			rows = append(rows, []string{avail, o.Time.Format(model.TimestampLayout)})
		}

		w, closeOut, err := openOutput(cmd, queryOut)
		if err != nil {
			return err
		}
		if err := tabular.WriteCSV(w, []string{model.ColAvailable, model.ColUpdated}, rows); err != nil {
			_ = closeOut()
			return eris.Wrap(err, "query: write")
		}
		if err := closeOut(); err != nil {
			return eris.Wrap(err, "query: close output")
		}

		zap.L().Debug("query complete",
			zap.String("building", queryBuilding),
			zap.Int("rows", len(rows)),
		)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryOut, "out", "o", "", "output CSV path (default stdout)")
	queryCmd.Flags().StringVar(&queryBuilding, "building", "", "building name (required)")
	queryCmd.Flags().StringVar(&queryGender, "gender", "", "gender filter")
	queryCmd.Flags().StringVar(&queryRoomType, "room-type", "", "room type filter")
	_ = queryCmd.MarkFlagRequired("building")
	rootCmd.AddCommand(queryCmd)
}
