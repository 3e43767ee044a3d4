// Package series turns an observation log into per-key occupancy series:
// forward-filled available counts on a shared time grid, inferred capacity,
// and percent filled.
package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

const stage = "normalize"

// LeadingPolicy decides what happens to grid points before a unit's first reading.
type LeadingPolicy string

const (
	// LeadingExclude drops units whose first reading is after the first grid time.
	LeadingExclude LeadingPolicy = "exclude"
	// LeadingZeroFill treats pre-start points as 0% filled (available = capacity).
	LeadingZeroFill LeadingPolicy = "zero_fill"
)

// DuplicatePolicy decides which reading wins when a unit has several at one time.
type DuplicatePolicy string

const (
	DuplicateKeepLast  DuplicatePolicy = "last"
	DuplicateKeepFirst DuplicatePolicy = "first"
)

// Options configures Normalize. The zero value is unit-level grouping,
// LeadingExclude and DuplicateKeepLast.
type Options struct {
	Grouping   model.Grouping
	Leading    LeadingPolicy
	Duplicates DuplicatePolicy

	// CapacityOverrides replaces inferred capacity for keys (by label) with a
	// known bed count. Readings above it are capacity violations.
	CapacityOverrides map[string]int

	// AllowCapacityViolations keeps violating series in Included().
	AllowCapacityViolations bool
}

// Point is one grid time of a series.
type Point struct {
	Time          time.Time
	Available     int
	PercentFilled float64
}

// Series is the normalized occupancy of one key.
type Series struct {
	Key      model.UnitKey
	Label    string
	Capacity int
	Points   []Point
	Flags    []model.DiagnosticKind
	Excluded bool
}

// Result is the output of Normalize. It is not modified after construction.
type Result struct {
	Grouping    model.Grouping
	Grid        []time.Time
	Diagnostics model.Diagnostics

	series []Series
	byKey  map[string]int
}

// All returns every series that produced points, sorted by key.
func (r *Result) All() []Series {
	out := make([]Series, len(r.series))
	for i, s := range r.series {
		out[i] = s.clone()
	}
	return out
}

// Included returns the series eligible for downstream ranking.
func (r *Result) Included() []Series {
	var out []Series
	for _, s := range r.series {
		if !s.Excluded {
			out = append(out, s.clone())
		}
	}
	return out
}

// Get returns the series with the given label.
func (r *Result) Get(label string) (Series, bool) {
	i, ok := r.byKey[label]
	if !ok {
		return Series{}, false
	}
	return r.series[i].clone(), true
}

func (s Series) clone() Series {
	pts := make([]Point, len(s.Points))
	copy(pts, s.Points)
	s.Points = pts
	flags := make([]model.DiagnosticKind, len(s.Flags))
	copy(flags, s.Flags)
	s.Flags = flags
	return s
}

type reading struct {
	t time.Time
	n int
}

// Normalize groups the log by unit, forward-fills each unit onto the grid of
// all distinct reading times, aggregates units into the requested grouping by
// summing counts at each grid time, and derives capacity and percent filled.
func Normalize(log *model.ObservationLog, opts Options) (*Result, error) {
	if log == nil || log.Len() == 0 {
		return nil, eris.Wrap(model.ErrNoInput, "series: empty observation log")
	}
	if opts.Grouping == (model.Grouping{}) {
		opts.Grouping = model.UnitGrouping
	}
	if opts.Leading == "" {
		opts.Leading = LeadingExclude
	}
	if opts.Duplicates == "" {
		opts.Duplicates = DuplicateKeepLast
	}
	switch opts.Leading {
	case LeadingExclude, LeadingZeroFill:
	default:
		return nil, eris.Errorf("series: unknown leading policy %q", opts.Leading)
	}
	switch opts.Duplicates {
	case DuplicateKeepLast, DuplicateKeepFirst:
	default:
		return nil, eris.Errorf("series: unknown duplicate policy %q", opts.Duplicates)
	}

	var diags model.Diagnostics
	units, order := collect(log, opts.Duplicates)

	gridSet := make(map[time.Time]struct{})
	for _, u := range order {
		if len(units[u]) == 0 {
			diags = append(diags, model.Diagnostic{
				Kind: model.DiagEmptyWindow, Key: u.Label(), Stage: stage, Dropped: true,
				Detail: "no non-empty readings",
			})
			continue
		}
		for _, r := range units[u] {
			gridSet[r.t] = struct{}{}
		}
	}
	if len(gridSet) == 0 {
		return nil, eris.Wrap(model.ErrNoInput, "series: no readings with a bed count")
	}
	grid := make([]time.Time, 0, len(gridSet))
	for t := range gridSet {
		grid = append(grid, t)
	}
	sort.Slice(grid, func(i, j int) bool { return grid[i].Before(grid[j]) })

	// Forward-fill every unit onto the grid, then sum into aggregation keys.
	sums := make(map[model.UnitKey][]int)
	var keys []model.UnitKey
	for _, u := range order {
		rs := units[u]
		if len(rs) == 0 {
			continue
		}
		if rs[0].t.After(grid[0]) && opts.Leading == LeadingExclude {
			diags = append(diags, model.Diagnostic{
				Kind: model.DiagLateStart, Key: u.Label(), Stage: stage, Dropped: true,
				Detail: fmt.Sprintf("first reading %s after first snapshot %s",
					rs[0].t.Format(model.TimestampLayout), grid[0].Format(model.TimestampLayout)),
			})
			continue
		}

		filled := forwardFill(rs, grid)
		k := opts.Grouping.Project(u)
		acc, ok := sums[k]
		if !ok {
			acc = make([]int, len(grid))
			keys = append(keys, k)
		}
		for i, v := range filled {
			acc[i] += v
		}
		sums[k] = acc
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	res := &Result{
		Grouping: opts.Grouping,
		Grid:     grid,
		byKey:    make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		s, sd := build(k, grid, sums[k], opts)
		diags = append(diags, sd...)
		res.byKey[s.Label] = len(res.series)
		res.series = append(res.series, s)
	}
	res.Diagnostics = diags.Sorted()

	zap.L().Info("series: normalized",
		zap.String("grouping", opts.Grouping.String()),
		zap.Int("grid_points", len(grid)),
		zap.Int("series", len(res.series)),
		zap.Int("diagnostics", len(res.Diagnostics)),
	)
	return res, nil
}

// collect groups non-missing readings per unit in ingestion order, resolving
// readings that share a timestamp with the duplicate policy. Ingestion
// guarantees each unit's readings are chronological.
func collect(log *model.ObservationLog, dup DuplicatePolicy) (map[model.UnitKey][]reading, []model.UnitKey) {
	units := make(map[model.UnitKey][]reading)
	var order []model.UnitKey
	for i := 0; i < log.Len(); i++ {
		o := log.At(i)
		rs, seen := units[o.Unit]
		if !seen {
			order = append(order, o.Unit)
		}
		if o.Missing {
			units[o.Unit] = rs
			continue
		}
		if n := len(rs); n > 0 && rs[n-1].t.Equal(o.Time) {
			if dup == DuplicateKeepLast {
				rs[n-1].n = o.Available
			}
			units[o.Unit] = rs
			continue
		}
		units[o.Unit] = append(rs, reading{t: o.Time, n: o.Available})
	}
	return units, order
}

// forwardFill carries each reading forward to the following grid times. Grid
// points before the first reading take the unit's capacity (0% filled); the
// caller has already dropped such units unless zero-fill is configured.
func forwardFill(rs []reading, grid []time.Time) []int {
	capacity := 0
	for _, r := range rs {
		if r.n > capacity {
			capacity = r.n
		}
	}

	out := make([]int, len(grid))
	j := -1
	for i, t := range grid {
		for j+1 < len(rs) && !rs[j+1].t.After(t) {
			j++
		}
		if j < 0 {
			out[i] = capacity
			continue
		}
		out[i] = rs[j].n
	}
	return out
}

func build(k model.UnitKey, grid []time.Time, avail []int, opts Options) (Series, model.Diagnostics) {
	s := Series{Key: k, Label: k.Label()}
	var diags model.Diagnostics
	flag := func(kind model.DiagnosticKind, dropped bool, detail string) {
		s.Flags = append(s.Flags, kind)
		if dropped {
			s.Excluded = true
		}
		diags = append(diags, model.Diagnostic{Kind: kind, Key: s.Label, Stage: stage, Dropped: dropped, Detail: detail})
	}

	maxAvail := 0
	for _, v := range avail {
		if v > maxAvail {
			maxAvail = v
		}
	}
	s.Capacity = maxAvail
	if override, ok := opts.CapacityOverrides[s.Label]; ok {
		s.Capacity = override
		if maxAvail > override {
			flag(model.DiagCapacityViolation, !opts.AllowCapacityViolations,
				fmt.Sprintf("observed %d available beds, capacity %d", maxAvail, override))
		}
	}

	if s.Capacity <= 0 {
		flag(model.DiagZeroCapacity, true, "capacity is zero; percent filled undefined")
	}

	outOfRange := 0
	s.Points = make([]Point, len(grid))
	for i, t := range grid {
		p := Point{Time: t, Available: avail[i]}
		if s.Capacity > 0 {
			pct := 100 * float64(s.Capacity-avail[i]) / float64(s.Capacity)
			if pct < 0 || pct > 100 {
				outOfRange++
			}
			p.PercentFilled = clamp(pct, 0, 100)
		}
		s.Points[i] = p
	}
	if outOfRange > 0 {
		flag(model.DiagPercentOutOfRange, false, fmt.Sprintf("%d points outside [0,100] before clamping", outOfRange))
	}

	return s, diags
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
