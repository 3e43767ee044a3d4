package main

import (
	"github.com/spf13/cobra"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/ingest"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/series"
)

// seriesFlags are shared by commands that normalize snapshots.
// defaultAggregation, when set, replaces the config aggregation default.
type seriesFlags struct {
	defaultAggregation string

	aggregation string
	leading     string
	buildings   []string
}

func (f *seriesFlags) register(cmd *cobra.Command) {
	usage := "unit, building, or comma-separated key fields (default from config)"
	if f.defaultAggregation != "" {
		usage = "unit, building, or comma-separated key fields"
	}
	cmd.Flags().StringVar(&f.aggregation, "aggregation", f.defaultAggregation, usage)
	cmd.Flags().StringVar(&f.leading, "leading", "", "leading gap policy: exclude or zero_fill (default from config)")
	cmd.Flags().StringSliceVar(&f.buildings, "building", nil, "only keep these buildings (repeatable)")
}

// normalize ingests snapshot paths and builds occupancy series.
func (f *seriesFlags) normalize(paths []string) (*series.Result, error) {
	obs, err := ingest.IngestFiles(paths, cfg.Input.TabularOptions())
	if err != nil {
		return nil, err
	}
	if len(f.buildings) > 0 {
		obs = series.FilterLog(obs, series.BuildingIn(f.buildings...))
	}

	grouping, err := model.ParseGrouping(orDefault(f.aggregation, cfg.Analysis.Aggregation))
	if err != nil {
		return nil, err
	}
	return series.Normalize(obs, series.Options{
		Grouping:   grouping,
		Leading:    series.LeadingPolicy(orDefault(f.leading, cfg.Analysis.LeadingPolicy)),
		Duplicates: series.DuplicatePolicy(cfg.Analysis.DuplicatePolicy),
	})
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
