package covariate

import (
	"github.com/rotisserie/eris"
)

// Source kinds accepted by SpecFor.
const (
	KindDistance  = "distance"
	KindAge       = "age"
	KindDensity   = "density"
	KindAmenities = "amenities"
)

// YearBasis selects which construction year feeds the age covariates.
type YearBasis string

const (
	BuiltYear     YearBasis = "built"
	EffectiveYear YearBasis = "effective"
)

// Column and attribute names used by the built-in specs.
const (
	ColDistance       = "Distance"
	ColBuilt          = "Built"
	ColRenovated      = "Renovated"
	ColAvgPplPerRoom  = "Avg_Ppl_per_Room"
	AttrEffectiveYear = "Effective_Year"
	AttrBuildingAge   = "Building_Age"
)

// DistanceSpec reads a Location,Distance table. rename sets the attribute
// name, so edge and centroid distances can be joined side by side.
func DistanceSpec(rename string) Spec {
	return Spec{
		Name:    KindDistance,
		Columns: []Column{{Name: ColDistance, Kind: Numeric, Rename: rename}},
	}
}

// DensitySpec reads average people per room.
func DensitySpec(rename string) Spec {
	return Spec{
		Name:    KindDensity,
		Columns: []Column{{Name: ColAvgPplPerRoom, Kind: Numeric, Rename: rename}},
	}
}

// AmenitiesSpec reads every non-key column as a boolean flag.
func AmenitiesSpec() Spec {
	return Spec{Name: KindAmenities, OtherColumnsBoolean: true}
}

// AgeSpec reads Built and an optional Renovated column.
//
// With BuiltYear the Built column is exposed as is. With EffectiveYear the
// table exposes Effective_Year, the renovation year when there is one and
// the build year otherwise. When referenceYear is positive, Building_Age is
// referenceYear minus the selected year.
func AgeSpec(basis YearBasis, referenceYear int) (Spec, error) {
	spec := Spec{Name: KindAge}
	year := yearFn(basis)
	switch basis {
	case BuiltYear, "":
		spec.Columns = []Column{
			{Name: ColBuilt, Kind: Numeric},
			{Name: ColRenovated, Kind: Numeric, Optional: true, Hidden: true},
		}
	case EffectiveYear:
		spec.Columns = []Column{
			{Name: ColBuilt, Kind: Numeric, Hidden: true},
			{Name: ColRenovated, Kind: Numeric, Optional: true, Hidden: true},
		}
		spec.Derived = append(spec.Derived, Derived{Name: AttrEffectiveYear, Fn: year})
	default:
		return Spec{}, eris.Errorf("covariate: unknown year basis %q", basis)
	}

	if referenceYear > 0 {
		ref := float64(referenceYear)
		spec.Derived = append(spec.Derived, Derived{
			Name: AttrBuildingAge,
			Fn: func(row map[string]Value) Value {
				y := year(row)
				if !y.Present {
					return Absent(Numeric)
				}
				return Num(ref - y.Num)
			},
		})
	}
	return spec, nil
}

func yearFn(basis YearBasis) func(map[string]Value) Value {
	return func(row map[string]Value) Value {
		if basis == EffectiveYear {
			if r := row[ColRenovated]; r.Present {
				return r
			}
		}
		if b := row[ColBuilt]; b.Present {
			return b
		}
		return Absent(Numeric)
	}
}

// SpecFor returns the built-in spec for a source kind.
func SpecFor(kind, rename string, basis YearBasis, referenceYear int) (Spec, error) {
	switch kind {
	case KindDistance:
		return DistanceSpec(rename), nil
	case KindDensity:
		return DensitySpec(rename), nil
	case KindAmenities:
		return AmenitiesSpec(), nil
	case KindAge:
		return AgeSpec(basis, referenceYear)
	}
	return Spec{}, eris.Errorf("covariate: unknown source kind %q", kind)
}
