package covariate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/fill"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

var t0 = time.Date(2025, 2, 18, 9, 0, 0, 0, time.UTC)

func table(t *testing.T, name string, records ...[]string) *tabular.Table {
	t.Helper()
	tab, err := tabular.NewTable(name, records)
	require.NoError(t, err)
	return tab
}

func load(t *testing.T, spec Spec, records ...[]string) *Table {
	t.Helper()
	ct, err := Load(table(t, spec.Name, records...), spec)
	require.NoError(t, err)
	return ct
}

func fillTable(t *testing.T, recs ...fill.Record) *fill.Table {
	t.Helper()
	ft, err := fill.NewTable(recs)
	require.NoError(t, err)
	return ft
}

func TestLoad_Distance(t *testing.T) {
	ct := load(t, DistanceSpec("Dist_Edge"),
		[]string{"", "Location", "Distance"},
		[]string{"0", " Hedrick Hall ", "1,204.5"},
		[]string{"1", "Sproul Hall", ""},
	)

	assert.Equal(t, []string{"Dist_Edge"}, ct.Attributes)
	assert.Equal(t, []string{"Hedrick Hall", "Sproul Hall"}, ct.Keys())
	assert.Equal(t, Num(1204.5), ct.Value("Hedrick Hall", "Dist_Edge"))

	v := ct.Value("Sproul Hall", "Dist_Edge")
	assert.False(t, v.Present)
	assert.Equal(t, Numeric, v.Kind)
}

func TestLoad_Amenities(t *testing.T) {
	ct := load(t, AmenitiesSpec(),
		[]string{"Location", "Parking", "AC", "Exercise_Room", "Fireplace"},
		[]string{"Gayley Heights", "1", "yes", "0", "False"},
	)

	assert.Equal(t, []string{"Parking", "AC", "Exercise_Room", "Fireplace"}, ct.Attributes)
	assert.Equal(t, Bool(true), ct.Value("Gayley Heights", "Parking"))
	assert.Equal(t, Bool(true), ct.Value("Gayley Heights", "AC"))
	assert.Equal(t, Bool(false), ct.Value("Gayley Heights", "Exercise_Room"))
	assert.Equal(t, Bool(false), ct.Value("Gayley Heights", "Fireplace"))
}

func TestLoad_AgeEffectiveYear(t *testing.T) {
	spec, err := AgeSpec(EffectiveYear, 2025)
	require.NoError(t, err)

	ct := load(t, spec,
		[]string{"Location", "Built", "Renovated"},
		[]string{"Dykstra Hall", "1959", "2014"},
		[]string{"Hedrick Hall", "1963", ""},
	)

	assert.Equal(t, []string{AttrEffectiveYear, AttrBuildingAge}, ct.Attributes)
	assert.Equal(t, Num(2014), ct.Value("Dykstra Hall", AttrEffectiveYear))
	assert.Equal(t, Num(11), ct.Value("Dykstra Hall", AttrBuildingAge))
	assert.Equal(t, Num(1963), ct.Value("Hedrick Hall", AttrEffectiveYear))
	assert.Equal(t, Num(62), ct.Value("Hedrick Hall", AttrBuildingAge))
}

func TestLoad_AgeBuiltYearWithoutRenovatedColumn(t *testing.T) {
	spec, err := AgeSpec(BuiltYear, 0)
	require.NoError(t, err)

	ct := load(t, spec,
		[]string{"Location", "Built"},
		[]string{"Gayley Court", "1989"},
	)

	assert.Equal(t, []string{ColBuilt}, ct.Attributes)
	assert.Equal(t, Num(1989), ct.Value("Gayley Court", ColBuilt))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		records [][]string
		want    error
	}{
		{
			name:    "missing key column",
			records: [][]string{{"Name", "Distance"}, {"A", "1"}},
			want:    model.ErrSchemaMismatch,
		},
		{
			name:    "missing value column",
			records: [][]string{{"Location", "Dist"}, {"A", "1"}},
			want:    model.ErrSchemaMismatch,
		},
		{
			name:    "bad number",
			records: [][]string{{"Location", "Distance"}, {"A", "far"}},
			want:    model.ErrMalformedRow,
		},
		{
			name:    "infinite number",
			records: [][]string{{"Location", "Distance"}, {"A", "inf"}},
			want:    model.ErrMalformedRow,
		},
		{
			name:    "negative infinity",
			records: [][]string{{"Location", "Distance"}, {"A", "-Infinity"}},
			want:    model.ErrMalformedRow,
		},
		{
			name:    "duplicate key after trim",
			records: [][]string{{"Location", "Distance"}, {"A", "1"}, {" A ", "2"}},
			want:    model.ErrDuplicateKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(table(t, "dist", tt.records...), DistanceSpec(""))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNormalizeKey_CaseSensitive(t *testing.T) {
	assert.Equal(t, "Hedrick Hall", NormalizeKey("  Hedrick Hall\t"))
	assert.NotEqual(t, NormalizeKey("hedrick hall"), NormalizeKey("Hedrick Hall"))
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "TRUE", "yes", "Y", "2"} {
		b, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"0", "false", "No", "n", "0.0"} {
		b, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, b, s)
	}
	_, err := ParseBool("maybe")
	assert.Error(t, err)
}

func TestSpecFor(t *testing.T) {
	s, err := SpecFor(KindDistance, "Dist_Centroid", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Dist_Centroid", s.Columns[0].Attribute())

	_, err = SpecFor("weather", "", "", 0)
	assert.Error(t, err)

	_, err = SpecFor(KindAge, "", "renovated", 0)
	assert.Error(t, err)
}

func joinFixture(t *testing.T) (*fill.Table, *Table, *Table) {
	ft := fillTable(t,
		fill.Crossed("A", t0),
		fill.Crossed("B", t0.Add(time.Hour)),
		fill.Censored("C"),
	)
	dist := load(t, DistanceSpec(""),
		[]string{"Location", "Distance"},
		[]string{"A", "100"},
		[]string{"B", ""},
		[]string{"D", "400"},
	)
	dens := load(t, DensitySpec(""),
		[]string{"Location", "Avg_Ppl_per_Room"},
		[]string{"A", "2"},
		[]string{"B", "3"},
		[]string{"C", "2.5"},
	)
	return ft, dist, dens
}

func keys(ds *Dataset) []string {
	out := make([]string, len(ds.Rows))
	for i, r := range ds.Rows {
		out[i] = r.Key
	}
	return out
}

func TestJoin_Inner(t *testing.T) {
	ft, dist, dens := joinFixture(t)

	ds, err := Join(ft, []*Table{dist, dens}, Inner)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, keys(ds))
	assert.Equal(t, []string{ColDistance, ColAvgPplPerRoom}, ds.Attributes)
	assert.Equal(t, 1, countDropped(ds.Diagnostics))
}

func TestJoin_LeftOuterKeepsAbsent(t *testing.T) {
	ft, dist, dens := joinFixture(t)

	ds, err := Join(ft, []*Table{dist, dens}, LeftOuter)
	require.NoError(t, err)

	require.Equal(t, []string{"A", "B", "C"}, keys(ds))
	b := ds.Rows[1]
	assert.False(t, b.Value(ColDistance).Present)
	assert.Equal(t, Num(3), b.Value(ColAvgPplPerRoom))

	c := ds.Rows[2]
	assert.False(t, c.Value(ColDistance).Present)
	assert.Equal(t, fill.StatusCensored, c.Fill.Status)
	assert.False(t, c.Fill.Unrecorded)
}

func TestJoin_FullOuterAddsCovariateOnlyKeys(t *testing.T) {
	ft, dist, dens := joinFixture(t)

	ds, err := Join(ft, []*Table{dist, dens}, FullOuter)
	require.NoError(t, err)

	require.Equal(t, []string{"A", "B", "C", "D"}, keys(ds))
	d := ds.Rows[3]
	assert.Equal(t, fill.StatusCensored, d.Fill.Status)
	assert.True(t, d.Fill.Unrecorded)
	assert.Equal(t, Num(400), d.Value(ColDistance))
	assert.False(t, d.Value(ColAvgPplPerRoom).Present)
}

func TestJoin_UnmatchedReport(t *testing.T) {
	ft, dist, dens := joinFixture(t)

	ds, err := Join(ft, []*Table{dist, dens}, LeftOuter)
	require.NoError(t, err)

	require.Len(t, ds.Unmatched, 3)
	assert.Equal(t, Unmatched{Left: "fill", Right: "distance", OnlyLeft: []string{"C"}, OnlyRight: []string{"D"}}, ds.Unmatched[0])
	assert.Equal(t, Unmatched{Left: "distance", Right: "density", OnlyLeft: []string{"D"}, OnlyRight: []string{"C"}}, ds.Unmatched[1])
	assert.Equal(t, Unmatched{Left: "fill", Right: "density", OnlyLeft: []string{}, OnlyRight: []string{}}, ds.Unmatched[2])
	assert.True(t, ds.Unmatched[2].Empty())

	assert.Equal(t, 4, ds.Diagnostics.Count(model.DiagUnmatchedKey))
}

func TestJoin_DuplicateAttribute(t *testing.T) {
	ft, dist, _ := joinFixture(t)
	other := load(t, Spec{Name: "other", Columns: []Column{{Name: "Distance", Kind: Numeric}}},
		[]string{"Location", "Distance"},
		[]string{"A", "1"},
	)

	_, err := Join(ft, []*Table{dist, other}, Inner)
	assert.Error(t, err)
}

func TestJoin_NoTables(t *testing.T) {
	ft, _, _ := joinFixture(t)

	ds, err := Join(ft, nil, Inner)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, keys(ds))
	assert.Empty(t, ds.Unmatched)
}

func TestJoin_Errors(t *testing.T) {
	_, err := Join(nil, nil, Inner)
	assert.True(t, errors.Is(err, model.ErrNoInput))

	ft, _, _ := joinFixture(t)
	_, err = Join(ft, nil, JoinMode("cross"))
	assert.Error(t, err)
}

func TestParseJoinMode(t *testing.T) {
	for in, want := range map[string]JoinMode{
		"":           Inner,
		"Inner":      Inner,
		"left":       LeftOuter,
		"left_outer": LeftOuter,
		"outer":      FullOuter,
		"full_outer": FullOuter,
	} {
		got, err := ParseJoinMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseJoinMode("cross")
	assert.Error(t, err)
}

func TestValueFloat(t *testing.T) {
	f, ok := Bool(true).Float()
	assert.True(t, ok)
	assert.Equal(t, 1.0, f)

	_, ok = Absent(Numeric).Float()
	assert.False(t, ok)
}

func countDropped(d model.Diagnostics) int {
	n := 0
	for _, x := range d {
		if x.Dropped {
			n++
		}
	}
	return n
}
