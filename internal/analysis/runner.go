package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/config"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/correlate"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/covariate"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/fill"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/ingest"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/series"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

// Runner executes plan runs with shared input settings and defaults.
type Runner struct {
	Input     tabular.Options
	Defaults  config.AnalysisConfig
	OutputDir string
}

// NewRunner builds a runner from application config.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		Input:     cfg.Input.TabularOptions(),
		Defaults:  cfg.Analysis,
		OutputDir: cfg.Output.Dir,
	}
}

// Result holds every stage's output for one run.
type Result struct {
	Run         Run
	Series      *series.Result
	Fill        *fill.Table
	Dataset     *covariate.Dataset
	Correlation *correlate.Report
	Regression  *correlate.Report
	Diagnostics model.Diagnostics
}

// settings are a run's parameters after defaults and parsing.
type settings struct {
	threshold  float64
	grouping   model.Grouping
	leading    series.LeadingPolicy
	duplicates series.DuplicatePolicy
	window     fill.Window
	buildings  []string
	mode       covariate.JoinMode
	method     correlate.Method
	policy     correlate.CensorPolicy
	basis      covariate.YearBasis
	refYear    int
	regression correlate.RegressionOptions
}

func (r *Runner) settings(run Run) (settings, error) {
	d := r.Defaults
	s := settings{
		threshold:  pick(run.ThresholdPct, d.ThresholdPct),
		leading:    series.LeadingPolicy(pick(run.LeadingPolicy, d.LeadingPolicy)),
		duplicates: series.DuplicatePolicy(pick(run.DuplicatePolicy, d.DuplicatePolicy)),
		buildings:  populationBuildings(run.Population, run.Buildings),
		basis:      covariate.YearBasis(pick(run.YearBasis, string(covariate.BuiltYear))),
		refYear:    pick(run.ReferenceYear, d.ReferenceYear),
	}

	var err error
	if s.grouping, err = model.ParseGrouping(pick(run.Aggregation, d.Aggregation)); err != nil {
		return s, eris.Wrap(err, "analysis: aggregation")
	}
	if s.mode, err = covariate.ParseJoinMode(pick(run.JoinMode, d.JoinMode)); err != nil {
		return s, err
	}
	if s.method, err = correlate.ParseMethod(pick(run.Method, d.Method)); err != nil {
		return s, err
	}

	s.policy = correlate.CensorPolicy{
		Mode:   correlate.CensorMode(pick(run.CensorPolicy, d.CensorPolicy)),
		Offset: d.CensorOffset,
	}
	if run.CensorOffset != "" {
		if s.policy.Offset, err = time.ParseDuration(run.CensorOffset); err != nil {
			return s, eris.Wrapf(err, "analysis: censor offset %q", run.CensorOffset)
		}
	}

	if s.window.Start, err = parseOptionalTime(run.Window.Start); err != nil {
		return s, err
	}
	if s.window.End, err = parseOptionalTime(run.Window.End); err != nil {
		return s, err
	}

	s.regression = correlate.RegressionOptions{
		Target: correlate.Target(run.Regression.Target),
		Policy: s.policy,
	}
	if s.regression.Origin, err = parseOptionalTime(run.Regression.Origin); err != nil {
		return s, err
	}
	return s, nil
}

// Run executes one run without writing anything.
func (r *Runner) Run(ctx context.Context, run Run) (*Result, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("run", run.Name))
	start := time.Now()

	s, err := r.settings(run)
	if err != nil {
		return nil, err
	}
	res := &Result{Run: run}

	log.Info("analysis: run started",
		zap.Float64("threshold_pct", s.threshold),
		zap.String("aggregation", s.grouping.String()),
		zap.String("join_mode", string(s.mode)),
		zap.String("method", string(s.method)),
		zap.Int("buildings", len(s.buildings)),
	)

	if run.FillTimes != "" {
		if len(run.Snapshots) > 0 {
			log.Warn("analysis: fill_times given, snapshots ignored")
		}
		res.Fill, err = r.loadFillTimes(run.FillTimes, s.buildings)
	} else {
		res.Series, res.Fill, err = r.deriveFill(run, s)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analysis: cancelled")
	}

	tables := make([]*covariate.Table, 0, len(run.Covariates))
	for _, src := range run.Covariates {
		t, err := r.loadCovariate(src, s)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}

	res.Dataset, err = covariate.Join(res.Fill, tables, s.mode)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analysis: cancelled")
	}

	res.Correlation, err = correlate.RankAndCorrelate(res.Dataset, run.Features, s.method, s.policy)
	if err != nil {
		return nil, err
	}
	if run.Regression.Enabled {
		res.Regression, err = correlate.Regress(res.Dataset, run.Features, s.regression)
		if err != nil {
			return nil, err
		}
	}

	res.Diagnostics = res.collectDiagnostics()
	log.Info("analysis: run finished",
		zap.Int("rows", len(res.Dataset.Rows)),
		zap.Int("features", len(res.Correlation.Results)),
		zap.Int("diagnostics", len(res.Diagnostics)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) deriveFill(run Run, s settings) (*series.Result, *fill.Table, error) {
	obs, err := ingest.IngestFiles(run.Snapshots, r.Input)
	if err != nil {
		return nil, nil, err
	}
	if s.buildings != nil {
		obs = series.FilterLog(obs, series.BuildingIn(s.buildings...))
	}

	norm, err := series.Normalize(obs, series.Options{
		Grouping:          s.grouping,
		Leading:           s.leading,
		Duplicates:        s.duplicates,
		CapacityOverrides: run.Capacities,
	})
	if err != nil {
		return nil, nil, err
	}

	ft, err := fill.Extract(norm, s.threshold, s.window)
	if err != nil {
		return nil, nil, err
	}
	return norm, ft, nil
}

func (r *Runner) loadFillTimes(path string, buildings []string) (*fill.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: open fill times %s", path)
	}
	defer f.Close()

	ft, err := fill.LoadPrecomputed(f, r.Input.CSV)
	if err != nil {
		return nil, err
	}
	if buildings == nil {
		return ft, nil
	}

	keep := make(map[string]bool, len(buildings))
	for _, b := range buildings {
		keep[b] = true
	}
	var recs []fill.Record
	for _, rec := range ft.Records() {
		if keep[rec.Key] {
			recs = append(recs, rec)
		}
	}
	return fill.NewTable(recs)
}

func (r *Runner) loadCovariate(src CovariateSource, s settings) (*covariate.Table, error) {
	spec, err := covariate.SpecFor(src.Kind, src.Rename, s.basis, s.refYear)
	if err != nil {
		return nil, err
	}
	spec.Name = sourceName(src)
	spec.KeyColumn = src.Key

	tab, err := tabular.LoadTable(src.Path, r.Input)
	if err != nil {
		return nil, err
	}
	return covariate.Load(tab, spec)
}

func sourceName(src CovariateSource) string {
	if src.Name != "" {
		return src.Name
	}
	base := filepath.Base(src.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (res *Result) collectDiagnostics() model.Diagnostics {
	var all model.Diagnostics
	if res.Series != nil {
		all = append(all, res.Series.Diagnostics...)
	}
	if res.Fill != nil {
		all = append(all, res.Fill.Diagnostics...)
	}
	if res.Dataset != nil {
		all = append(all, res.Dataset.Diagnostics...)
	}
	if res.Correlation != nil {
		all = append(all, res.Correlation.Diagnostics...)
	}
	if res.Regression != nil {
		all = append(all, res.Regression.Diagnostics...)
	}
	return all.Sorted()
}

// RunPlan executes every run in order and writes each run's outputs. The
// first failing run stops the plan.
func (r *Runner) RunPlan(ctx context.Context, plan *Plan) error {
	for _, run := range plan.Runs {
		res, err := r.Run(ctx, run)
		if err != nil {
			return eris.Wrapf(err, "analysis: run %s", run.Name)
		}
		dir := run.OutputDir
		if dir == "" {
			dir = filepath.Join(r.OutputDir, run.Name)
		}
		if err := WriteOutputs(dir, res); err != nil {
			return eris.Wrapf(err, "analysis: run %s", run.Name)
		}
		zap.L().Info("analysis: outputs written", zap.String("run", run.Name), zap.String("dir", dir))
	}
	return nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := model.ParseTimestamp(s)
	if !ok {
		return time.Time{}, eris.Errorf("analysis: bad timestamp %q", s)
	}
	return t, nil
}

func pick[T comparable](v, fallback T) T {
	var zero T
	if v == zero {
		return fallback
	}
	return v
}
