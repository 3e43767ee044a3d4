package correlate

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/covariate"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

// Target is the dependent variable of a univariate fit.
type Target string

const (
	// TargetFillRank regresses the fill rank.
	TargetFillRank Target = "fill_rank"
	// TargetHours regresses hours from the origin to the crossing. Only
	// crossed rows take part.
	TargetHours Target = "hours"
)

// ReasonTooFewRows marks a fit with no residual degrees of freedom.
const ReasonTooFewRows = "fewer than three complete rows"

// RegressionOptions configures Regress.
type RegressionOptions struct {
	Target Target
	Origin time.Time
	Policy CensorPolicy
}

// Regress fits y = a + b*x by ordinary least squares for each covariate and
// returns the results sorted by R² descending, ties broken by feature name.
// Degenerate fits sort last.
func Regress(ds *covariate.Dataset, covariates []string, opts RegressionOptions) (*Report, error) {
	if opts.Target == "" {
		opts.Target = TargetFillRank
	}
	if opts.Target != TargetFillRank && opts.Target != TargetHours {
		return nil, eris.Errorf("correlate: unknown regression target %q", opts.Target)
	}
	if opts.Target == TargetHours && opts.Origin.IsZero() {
		return nil, eris.New("correlate: hours target needs an origin")
	}

	ranked, err := Rank(ds, opts.Policy)
	if err != nil {
		return nil, err
	}
	features, err := resolve(ranked, covariates)
	if err != nil {
		return nil, err
	}

	rep := &Report{Ranked: ranked}
	for _, f := range features {
		x, y := regressionRows(ranked, f, opts)
		res := fit(f, x, y)
		if res.Degenerate {
			rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
				Kind: model.DiagDegenerateCorrelation, Key: f, Stage: "regress", Detail: res.Reason,
			})
		}
		rep.Results = append(rep.Results, res)
	}
	sort.SliceStable(rep.Results, func(i, j int) bool {
		a, b := rep.Results[i], rep.Results[j]
		if a.Degenerate != b.Degenerate {
			return !a.Degenerate
		}
		if !a.Degenerate && a.RSquared != b.RSquared {
			return a.RSquared > b.RSquared
		}
		return a.Feature < b.Feature
	})
	rep.Diagnostics = rep.Diagnostics.Sorted()

	if len(rep.Results) > 0 {
		zap.L().Info("correlate: regression leaderboard",
			zap.String("target", string(opts.Target)),
			zap.String("best", rep.Results[0].Feature),
			zap.Float64("best_r_squared", rep.Results[0].RSquared),
		)
	}
	return rep, nil
}

func regressionRows(ranked *Ranked, feature string, opts RegressionOptions) (x, y []float64) {
	for _, row := range ranked.Rows {
		v, ok := row.Values[feature].Float()
		if !ok {
			continue
		}
		switch opts.Target {
		case TargetHours:
			if !row.Fill.IsCrossed() {
				continue
			}
			y = append(y, row.Fill.Time.Sub(opts.Origin).Hours())
		default:
			y = append(y, row.FillRank)
		}
		x = append(x, v)
	}
	return x, y
}

func fit(feature string, x, y []float64) Result {
	n := len(x)
	if n < 3 {
		return degenerate(feature, n, ReasonTooFewRows)
	}
	if constant(x) {
		return degenerate(feature, n, ReasonConstantCovariate)
	}
	if constant(y) {
		return degenerate(feature, n, ReasonConstantTarget)
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r2 := stat.RSquared(x, y, nil, alpha, beta)

	meanX := stat.Mean(x, nil)
	var ssr, sxx float64
	for i := range x {
		e := y[i] - (alpha + beta*x[i])
		ssr += e * e
		d := x[i] - meanX
		sxx += d * d
	}
	p := 0.0
	if se := math.Sqrt(ssr / float64(n-2) / sxx); se > 0 {
		p = twoSided(beta/se, float64(n-2))
	}

	return Result{
		Feature:     feature,
		Coefficient: beta,
		Intercept:   alpha,
		RSquared:    r2,
		PValue:      p,
		N:           n,
	}
}
