package correlate

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/covariate"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

const stage = "correlate"

// Method selects how the covariate is compared to the fill rank.
type Method string

const (
	// Spearman re-ranks both the fill rank and the covariate over the
	// complete pairs and takes their Pearson correlation.
	Spearman Method = "spearman"
	// PearsonOnRanks correlates the dataset-wide fill rank with the
	// covariate's ranks.
	PearsonOnRanks Method = "pearson_on_ranks"
)

// ParseMethod accepts spearman and pearson_on_ranks.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case Spearman, "":
		return Spearman, nil
	case PearsonOnRanks, "pearson":
		return PearsonOnRanks, nil
	}
	return "", eris.Errorf("correlate: unknown method %q", s)
}

// Degenerate reasons.
const (
	ReasonTooFewPairs       = "fewer than two complete pairs"
	ReasonConstantCovariate = "covariate has zero variance"
	ReasonConstantTarget    = "target has zero variance"
)

// Result is one feature's measurement. When Degenerate is set the numeric
// fields are NaN and Reason says why.
type Result struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
	Intercept   float64 `json:"intercept,omitempty"`
	RSquared    float64 `json:"r_squared"`
	PValue      float64 `json:"p_value"`
	N           int     `json:"sample_size"`
	Degenerate  bool    `json:"degenerate"`
	Reason      string  `json:"reason,omitempty"`
}

func degenerate(feature string, n int, reason string) Result {
	nan := math.NaN()
	return Result{
		Feature: feature, Coefficient: nan, RSquared: nan, PValue: nan,
		N: n, Degenerate: true, Reason: reason,
	}
}

// Report collects results for a set of features.
type Report struct {
	Method      Method
	Ranked      *Ranked
	Results     []Result
	Diagnostics model.Diagnostics
}

// Result returns the result for feature.
func (r *Report) Result(feature string) (Result, bool) {
	for _, res := range r.Results {
		if res.Feature == feature {
			return res, true
		}
	}
	return Result{}, false
}

// RankAndCorrelate ranks ds and correlates each covariate with the fill rank.
// An empty covariates list means every dataset attribute.
func RankAndCorrelate(ds *covariate.Dataset, covariates []string, method Method, policy CensorPolicy) (*Report, error) {
	ranked, err := Rank(ds, policy)
	if err != nil {
		return nil, err
	}
	return Correlate(ranked, covariates, method)
}

// Correlate computes one rank correlation per covariate, in the order given.
func Correlate(ranked *Ranked, covariates []string, method Method) (*Report, error) {
	if ranked == nil {
		return nil, eris.Wrap(model.ErrNoInput, "correlate: no ranked dataset")
	}
	if method != Spearman && method != PearsonOnRanks {
		return nil, eris.Errorf("correlate: unknown method %q", method)
	}
	features, err := resolve(ranked, covariates)
	if err != nil {
		return nil, err
	}

	rep := &Report{Method: method, Ranked: ranked}
	for _, f := range features {
		ranks, vals := pairs(ranked, f)
		res := correlateOne(f, ranks, vals, method)
		if res.Degenerate {
			rep.Diagnostics = append(rep.Diagnostics, model.Diagnostic{
				Kind: model.DiagDegenerateCorrelation, Key: f, Stage: stage, Detail: res.Reason,
			})
		}
		rep.Results = append(rep.Results, res)
		zap.L().Debug("correlate: feature",
			zap.String("feature", f),
			zap.Float64("coefficient", res.Coefficient),
			zap.Int("n", res.N),
			zap.Bool("degenerate", res.Degenerate),
		)
	}
	rep.Diagnostics = rep.Diagnostics.Sorted()

	zap.L().Info("correlate: done",
		zap.String("method", string(method)),
		zap.Int("rows", len(ranked.Rows)),
		zap.Int("features", len(rep.Results)),
	)
	return rep, nil
}

func correlateOne(feature string, ranks, vals []float64, method Method) Result {
	n := len(ranks)
	if n < 2 {
		return degenerate(feature, n, ReasonTooFewPairs)
	}

	x := ranks
	if method == Spearman {
		x = FractionalRank(ranks)
	}
	y := FractionalRank(vals)
	if constant(y) {
		return degenerate(feature, n, ReasonConstantCovariate)
	}
	if constant(x) {
		return degenerate(feature, n, ReasonConstantTarget)
	}

	r := clamp(stat.Correlation(x, y, nil))
	return Result{
		Feature:     feature,
		Coefficient: r,
		RSquared:    r * r,
		PValue:      correlationPValue(r, n),
		N:           n,
	}
}

// pairs returns the fill ranks and covariate values of rows where the
// covariate is present.
func pairs(ranked *Ranked, feature string) (ranks, vals []float64) {
	for _, row := range ranked.Rows {
		v, ok := row.Values[feature].Float()
		if !ok {
			continue
		}
		ranks = append(ranks, row.FillRank)
		vals = append(vals, v)
	}
	return ranks, vals
}

func resolve(ranked *Ranked, covariates []string) ([]string, error) {
	if len(covariates) == 0 {
		return ranked.Attributes, nil
	}
	for _, c := range covariates {
		if _, ok := ranked.Kinds[c]; !ok {
			return nil, eris.Errorf("correlate: unknown covariate %q", c)
		}
	}
	return covariates, nil
}

// correlationPValue is the two-sided p-value of r under the null of no
// correlation, using Student's t with n-2 degrees of freedom.
func correlationPValue(r float64, n int) float64 {
	if n < 3 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return twoSided(t, df)
}

func twoSided(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

func clamp(r float64) float64 {
	return math.Max(-1, math.Min(1, r))
}
