package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// UnitKey identifies one housing unit: a room type for one gender in one building.
type UnitKey struct {
	Building string `json:"building"`
	RoomType string `json:"room_type"`
	Gender   string `json:"gender"`
}

// Label returns the composite "{Building}_{Gender}_{RoomType}" key. Empty
// components (fields projected away by a Grouping) are skipped.
func (k UnitKey) Label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{k.Building, k.Gender, k.RoomType} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// Less orders keys by building, then gender, then room type.
func (k UnitKey) Less(o UnitKey) bool {
	if k.Building != o.Building {
		return k.Building < o.Building
	}
	if k.Gender != o.Gender {
		return k.Gender < o.Gender
	}
	return k.RoomType < o.RoomType
}

// Field names a component of a UnitKey.
type Field string

const (
	FieldBuilding Field = "building"
	FieldRoomType Field = "room_type"
	FieldGender   Field = "gender"
)

// Grouping selects which UnitKey fields define an aggregation key.
type Grouping struct {
	Building bool
	RoomType bool
	Gender   bool
}

// UnitGrouping keeps every field: one series per room type, gender and building.
var UnitGrouping = Grouping{Building: true, RoomType: true, Gender: true}

// BuildingGrouping aggregates all units of a building into one series.
var BuildingGrouping = Grouping{Building: true}

// ParseGrouping maps an aggregation level name to a Grouping. Accepts "unit",
// "building", or a comma-separated list of field names.
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unit", "room":
		return UnitGrouping, nil
	case "building":
		return BuildingGrouping, nil
	}

	var g Grouping
	for _, f := range strings.Split(s, ",") {
		switch Field(strings.ToLower(strings.TrimSpace(f))) {
		case FieldBuilding:
			g.Building = true
		case FieldRoomType:
			g.RoomType = true
		case FieldGender:
			g.Gender = true
		default:
			return Grouping{}, eris.Errorf("model: unknown grouping field %q", f)
		}
	}
	if g == (Grouping{}) {
		return Grouping{}, eris.New("model: grouping selects no fields")
	}
	return g, nil
}

// IsUnit reports whether the grouping keeps every key field.
func (g Grouping) IsUnit() bool {
	return g == UnitGrouping
}

// Project zeroes the fields of k not selected by g.
func (g Grouping) Project(k UnitKey) UnitKey {
	var out UnitKey
	if g.Building {
		out.Building = k.Building
	}
	if g.RoomType {
		out.RoomType = k.RoomType
	}
	if g.Gender {
		out.Gender = k.Gender
	}
	return out
}

// String returns the aggregation level name.
func (g Grouping) String() string {
	switch g {
	case UnitGrouping:
		return "unit"
	case BuildingGrouping:
		return "building"
	}
	var parts []string
	if g.Building {
		parts = append(parts, string(FieldBuilding))
	}
	if g.RoomType {
		parts = append(parts, string(FieldRoomType))
	}
	if g.Gender {
		parts = append(parts, string(FieldGender))
	}
	return strings.Join(parts, ",")
}
