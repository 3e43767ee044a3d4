// Package correlate ranks fill speed and measures how strongly each
// covariate tracks it.
package correlate

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/covariate"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/fill"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

// DefaultCensorOffset places censored records one day after the last fill.
const DefaultCensorOffset = 24 * time.Hour

// CensorMode decides what happens to records that never crossed.
type CensorMode string

const (
	// CensorPenalty ties every censored record at a penalty time after the
	// latest crossing.
	CensorPenalty CensorMode = "penalty"
	// CensorDrop removes censored records before ranking.
	CensorDrop CensorMode = "drop"
)

// CensorPolicy configures censored-record handling.
type CensorPolicy struct {
	Mode   CensorMode
	Offset time.Duration
}

// DefaultCensorPolicy is the penalty policy with a one-day offset.
func DefaultCensorPolicy() CensorPolicy {
	return CensorPolicy{Mode: CensorPenalty, Offset: DefaultCensorOffset}
}

func (p CensorPolicy) validate() (CensorPolicy, error) {
	if p.Mode == "" {
		p.Mode = CensorPenalty
	}
	switch p.Mode {
	case CensorPenalty:
		if p.Offset == 0 {
			p.Offset = DefaultCensorOffset
		}
		if p.Offset < 0 {
			return p, eris.Errorf("correlate: censor offset %s must be positive", p.Offset)
		}
	case CensorDrop:
	default:
		return p, eris.Errorf("correlate: unknown censor mode %q", p.Mode)
	}
	return p, nil
}

// FractionalRank returns ascending ranks starting at 1. Tied values share the
// mean of the positions they occupy.
func FractionalRank(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, len(values))
	for start := 0; start < len(idx); {
		end := start + 1
		for end < len(idx) && values[idx[end]] == values[idx[start]] {
			end++
		}
		// positions start+1 .. end, 1-based
		avg := float64(start+1+end) / 2
		for _, i := range idx[start:end] {
			ranks[i] = avg
		}
		start = end
	}
	return ranks
}

// FillRank is the rank of one record.
type FillRank struct {
	Key      string
	Rankable time.Time
	Rank     float64
}

// RankFill ranks records by fill time, earliest first. Under the penalty
// policy every censored record gets the penalty time, the latest crossing
// plus the offset; with no crossing at all they tie at (n+1)/2. Under the
// drop policy censored records are omitted. The returned penalty is zero
// when no record needed one.
func RankFill(records []fill.Record, policy CensorPolicy) ([]FillRank, time.Time, error) {
	policy, err := policy.validate()
	if err != nil {
		return nil, time.Time{}, err
	}

	var latest time.Time
	censored := 0
	for _, r := range records {
		if !r.IsCrossed() {
			censored++
			continue
		}
		if r.Time.After(latest) {
			latest = r.Time
		}
	}

	var penalty time.Time
	if censored > 0 && policy.Mode == CensorPenalty {
		penalty = latest.Add(policy.Offset)
	}

	out := make([]FillRank, 0, len(records))
	for _, r := range records {
		switch {
		case r.IsCrossed():
			out = append(out, FillRank{Key: r.Key, Rankable: r.Time})
		case policy.Mode == CensorPenalty:
			out = append(out, FillRank{Key: r.Key, Rankable: penalty})
		}
	}

	secs := make([]float64, len(out))
	for i, fr := range out {
		secs[i] = float64(fr.Rankable.Unix()) + float64(fr.Rankable.Nanosecond())/1e9
	}
	for i, rk := range FractionalRank(secs) {
		out[i].Rank = rk
	}
	return out, penalty, nil
}

// RankedRow is a joined row with its fill rank.
type RankedRow struct {
	Key      string                     `json:"key"`
	Fill     fill.Record                `json:"fill"`
	Rankable time.Time                  `json:"rankable_time"`
	FillRank float64                    `json:"fill_rank"`
	Values   map[string]covariate.Value `json:"values"`
}

// Ranked is a dataset with fill ranks, sorted by key.
type Ranked struct {
	Attributes []string                  `json:"attributes"`
	Kinds      map[string]covariate.Kind `json:"kinds"`
	Penalty    time.Time                 `json:"penalty_time,omitzero"`
	Policy     CensorMode                `json:"censor_policy"`
	Rows       []RankedRow               `json:"rows"`
}

// Rank attaches fill ranks to every row of ds.
func Rank(ds *covariate.Dataset, policy CensorPolicy) (*Ranked, error) {
	if ds == nil {
		return nil, eris.Wrap(model.ErrNoInput, "correlate: no dataset")
	}
	policy, err := policy.validate()
	if err != nil {
		return nil, err
	}

	recs := make([]fill.Record, len(ds.Rows))
	byKey := make(map[string]covariate.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		recs[i] = r.Fill
		byKey[r.Key] = r
	}
	ranks, penalty, err := RankFill(recs, policy)
	if err != nil {
		return nil, err
	}

	out := &Ranked{
		Attributes: append([]string(nil), ds.Attributes...),
		Kinds:      ds.Kinds,
		Penalty:    penalty,
		Policy:     policy.Mode,
		Rows:       make([]RankedRow, 0, len(ranks)),
	}
	for _, fr := range ranks {
		row := byKey[fr.Key]
		out.Rows = append(out.Rows, RankedRow{
			Key:      fr.Key,
			Fill:     row.Fill,
			Rankable: fr.Rankable,
			FillRank: fr.Rank,
			Values:   row.Values,
		})
	}
	sort.SliceStable(out.Rows, func(i, j int) bool { return out.Rows[i].Key < out.Rows[j].Key })
	return out, nil
}
