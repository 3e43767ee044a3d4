package series

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

var (
	t1 = time.Date(2025, 2, 18, 9, 0, 0, 0, time.UTC)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
	t4 = t3.Add(time.Hour)
)

func unit(b, rt, g string) model.UnitKey {
	return model.UnitKey{Building: b, RoomType: rt, Gender: g}
}

func obs(u model.UnitKey, t time.Time, n int) model.Observation {
	return model.Observation{Time: t, Unit: u, Available: n}
}

func missing(u model.UnitKey, t time.Time) model.Observation {
	return model.Observation{Time: t, Unit: u, Missing: true}
}

func newLog(o ...model.Observation) *model.ObservationLog {
	return model.NewObservationLog(nil, o)
}

func percents(s Series) []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.PercentFilled
	}
	return out
}

func availables(s Series) []int {
	out := make([]int, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Available
	}
	return out
}

func TestNormalize_ConcreteScenario(t *testing.T) {
	a := unit("A", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 10), obs(a, t2, 5), obs(a, t3, 2)), Options{})
	require.NoError(t, err)

	s, ok := res.Get("A_Male_Double")
	require.True(t, ok)
	assert.Equal(t, 10, s.Capacity)
	assert.Equal(t, []float64{0, 50, 80}, percents(s))
	assert.Empty(t, res.Diagnostics)
}

func TestNormalize_ForwardFillsGaps(t *testing.T) {
	a := unit("A", "Double", "Male")
	b := unit("B", "Single", "Female")
	res, err := Normalize(newLog(
		obs(a, t1, 10), obs(b, t1, 4),
		obs(a, t2, 6),
		obs(b, t3, 1),
	), Options{})
	require.NoError(t, err)
	require.Equal(t, []time.Time{t1, t2, t3}, res.Grid)

	sa, _ := res.Get("A_Male_Double")
	assert.Equal(t, []int{10, 6, 6}, availables(sa))
	sb, _ := res.Get("B_Female_Single")
	assert.Equal(t, []int{4, 4, 1}, availables(sb))
}

func TestNormalize_MissingReadingIsForwardFilled(t *testing.T) {
	a := unit("A", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 10), missing(a, t2), obs(a, t3, 4)), Options{})
	require.NoError(t, err)

	// t2 carries no count anywhere, so it is not a grid time.
	assert.Equal(t, []time.Time{t1, t3}, res.Grid)
	s, _ := res.Get("A_Male_Double")
	assert.Equal(t, []int{10, 4}, availables(s))
}

func TestNormalize_Monotonic(t *testing.T) {
	a := unit("A", "Double", "Male")
	b := unit("B", "Double", "Male")
	res, err := Normalize(newLog(
		obs(a, t1, 20), obs(b, t1, 7),
		obs(a, t2, 15),
		obs(b, t3, 3),
		obs(a, t4, 2),
	), Options{})
	require.NoError(t, err)

	for _, s := range res.All() {
		for i := 1; i < len(s.Points); i++ {
			assert.GreaterOrEqual(t, s.Points[i].PercentFilled, s.Points[i-1].PercentFilled, s.Label)
		}
	}
}

func TestNormalize_CapacityBound(t *testing.T) {
	a := unit("A", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 3), obs(a, t2, 9), obs(a, t3, 1)), Options{})
	require.NoError(t, err)

	s, _ := res.Get("A_Male_Double")
	assert.Equal(t, 9, s.Capacity)
	for _, p := range s.Points {
		assert.LessOrEqual(t, p.Available, s.Capacity)
	}
}

func TestNormalize_CapacityOverrideViolation(t *testing.T) {
	a := unit("A", "Double", "Male")
	b := unit("B", "Double", "Male")
	log := newLog(obs(a, t1, 12), obs(b, t1, 4), obs(a, t2, 6))

	res, err := Normalize(log, Options{CapacityOverrides: map[string]int{"A_Male_Double": 10}})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Diagnostics.Count(model.DiagCapacityViolation))
	assert.Equal(t, 1, res.Diagnostics.Count(model.DiagPercentOutOfRange))
	s, _ := res.Get("A_Male_Double")
	assert.True(t, s.Excluded)
	assert.Equal(t, 10, s.Capacity)
	assert.Equal(t, []float64{0, 40}, percents(s))
	require.Len(t, res.Included(), 1)
	assert.Equal(t, "B_Male_Double", res.Included()[0].Label)

	res, err = Normalize(log, Options{
		CapacityOverrides:       map[string]int{"A_Male_Double": 10},
		AllowCapacityViolations: true,
	})
	require.NoError(t, err)
	assert.Len(t, res.Included(), 2)
	assert.Equal(t, 1, res.Diagnostics.Count(model.DiagCapacityViolation))
}

func TestNormalize_ZeroCapacityExcluded(t *testing.T) {
	a := unit("A", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 0), obs(a, t2, 0)), Options{})
	require.NoError(t, err)

	s, _ := res.Get("A_Male_Double")
	assert.True(t, s.Excluded)
	assert.Equal(t, 1, res.Diagnostics.Count(model.DiagZeroCapacity))
	assert.Empty(t, res.Included())
}

func TestNormalize_LateStartExcludedByDefault(t *testing.T) {
	a := unit("A", "Double", "Male")
	late := unit("Late", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 10), obs(late, t2, 5), obs(a, t3, 8)), Options{})
	require.NoError(t, err)

	_, ok := res.Get("Late_Male_Double")
	assert.False(t, ok)
	require.Equal(t, 1, res.Diagnostics.Count(model.DiagLateStart))
	assert.True(t, res.Diagnostics[0].Dropped)
}

func TestNormalize_LateStartZeroFill(t *testing.T) {
	a := unit("A", "Double", "Male")
	late := unit("Late", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 10), obs(late, t2, 5), obs(late, t3, 1)), Options{Leading: LeadingZeroFill})
	require.NoError(t, err)

	s, ok := res.Get("Late_Male_Double")
	require.True(t, ok)
	assert.Equal(t, []int{5, 5, 1}, availables(s))
	assert.Equal(t, []float64{0, 0, 80}, percents(s))
}

func TestNormalize_AllMissingIsEmptyWindow(t *testing.T) {
	a := unit("A", "Double", "Male")
	b := unit("B", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 3), missing(b, t1), missing(b, t2)), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Diagnostics.Count(model.DiagEmptyWindow))
	_, ok := res.Get("B_Male_Double")
	assert.False(t, ok)
}

func TestNormalize_DuplicatePolicy(t *testing.T) {
	a := unit("A", "Double", "Male")
	log := newLog(obs(a, t1, 10), obs(a, t2, 7), obs(a, t2, 5))

	res, err := Normalize(log, Options{})
	require.NoError(t, err)
	s, _ := res.Get("A_Male_Double")
	assert.Equal(t, []int{10, 5}, availables(s))

	res, err = Normalize(log, Options{Duplicates: DuplicateKeepFirst})
	require.NoError(t, err)
	s, _ = res.Get("A_Male_Double")
	assert.Equal(t, []int{10, 7}, availables(s))
}

func TestNormalize_BuildingAggregationSumsBeforeMax(t *testing.T) {
	// Double peaks at t1, Single peaks at t2; the building's capacity is the
	// peak of the summed series (14), not the sum of per-unit peaks (16).
	d := unit("Hedrick", "Double", "Male")
	s := unit("Hedrick", "Single", "Female")
	res, err := Normalize(newLog(
		obs(d, t1, 10), obs(s, t1, 4),
		obs(d, t2, 2), obs(s, t2, 6),
		obs(d, t3, 1), obs(s, t3, 1),
	), Options{Grouping: model.BuildingGrouping})
	require.NoError(t, err)

	all := res.All()
	require.Len(t, all, 1)
	agg := all[0]
	assert.Equal(t, "Hedrick", agg.Label)
	assert.Equal(t, []int{14, 8, 2}, availables(agg))
	assert.Equal(t, 14, agg.Capacity)
	assert.InDelta(t, 100*(1-8.0/14.0), agg.Points[1].PercentFilled, 1e-9)
}

func TestNormalize_SortedKeys(t *testing.T) {
	res, err := Normalize(newLog(
		obs(unit("Sproul", "Double", "Male"), t1, 1),
		obs(unit("Dykstra", "Double", "Male"), t1, 1),
		obs(unit("Hedrick", "Double", "Male"), t1, 1),
	), Options{})
	require.NoError(t, err)

	var labels []string
	for _, s := range res.All() {
		labels = append(labels, s.Label)
	}
	assert.Equal(t, []string{"Dykstra_Male_Double", "Hedrick_Male_Double", "Sproul_Male_Double"}, labels)
}

func TestNormalize_ResultIsolation(t *testing.T) {
	a := unit("A", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 10), obs(a, t2, 5)), Options{})
	require.NoError(t, err)

	s, _ := res.Get("A_Male_Double")
	s.Points[0].Available = 999
	again, _ := res.Get("A_Male_Double")
	assert.Equal(t, 10, again.Points[0].Available)
}

func TestNormalize_Errors(t *testing.T) {
	_, err := Normalize(newLog(), Options{})
	assert.True(t, errors.Is(err, model.ErrNoInput))

	a := unit("A", "Double", "Male")
	_, err = Normalize(newLog(missing(a, t1)), Options{})
	assert.True(t, errors.Is(err, model.ErrNoInput))

	_, err = Normalize(newLog(obs(a, t1, 1)), Options{Leading: "backfill"})
	assert.Error(t, err)

	_, err = Normalize(newLog(obs(a, t1, 1)), Options{Duplicates: "mean"})
	assert.Error(t, err)
}

func TestFilterLog(t *testing.T) {
	log := newLog(
		obs(unit("Saxon Suites", "Suite Triple/Shared Bath", "Male"), t1, 3),
		obs(unit("Saxon Suites", "Suite Triple/Shared Bath", "Female"), t1, 2),
		obs(unit("Hedrick", "Double", "Male"), t1, 1),
	)

	p := And(BuildingIs("Saxon Suites"), GenderIs("Male"), RoomTypeIs("Suite Triple/Shared Bath"))
	out := FilterLog(log, p)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, 3, out.At(0).Available)

	assert.Equal(t, 1, FilterLog(log, Not(BuildingIs("Saxon Suites"))).Len())
	assert.Equal(t, 3, FilterLog(log, Or(BuildingIn("Hedrick"), BuildingIs("Saxon Suites"))).Len())
	assert.Equal(t, 0, FilterLog(log, Or()).Len())
	assert.Equal(t, 3, FilterLog(log, And()).Len())
	assert.Equal(t, 3, FilterLog(log, Any()).Len())
}

func TestExport_RoundTrip(t *testing.T) {
	a := unit("A", "Double", "Male")
	b := unit("B", "Single", "Female")
	res, err := Normalize(newLog(
		obs(a, t1, 10), obs(b, t1, 3),
		obs(a, t2, 5),
		obs(a, t3, 2), obs(b, t3, 1),
	), Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteExport(&buf, BuildExport(res)))

	parsed, err := ParseExport(&buf)
	require.NoError(t, err)

	abs, err := Values(parsed.Absolute)
	require.NoError(t, err)
	pct, err := Values(parsed.Normalized)
	require.NoError(t, err)

	for _, s := range res.Included() {
		for _, p := range s.Points {
			k := ValueKey{Label: s.Label, Time: p.Time}
			assert.Equal(t, float64(p.Available), abs[k])
			assert.Equal(t, p.PercentFilled, pct[k])
		}
	}
	assert.Len(t, abs, 6)
	assert.Len(t, pct, 6)
}

func TestExport_Deterministic(t *testing.T) {
	a := unit("A", "Double", "Male")
	b := unit("B", "Single", "Female")
	log := newLog(obs(a, t1, 10), obs(b, t1, 3), obs(a, t2, 5))

	render := func() string {
		res, err := Normalize(log, Options{})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, WriteExport(&buf, BuildExport(res)))
		return buf.String()
	}
	assert.Equal(t, render(), render())
}

func TestExport_DateFormat(t *testing.T) {
	a := unit("A", "Double", "Male")
	res, err := Normalize(newLog(obs(a, t1, 10)), Options{})
	require.NoError(t, err)

	ex := BuildExport(res)
	require.Len(t, ex.Absolute["A_Male_Double"], 1)
	assert.Equal(t, "2025-02-18T09:00:00", ex.Absolute["A_Male_Double"][0].Date)
}
