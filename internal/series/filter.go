package series

import "github.com/jackdeye/UCLA-Housing-Analysis/internal/model"

// Predicate selects units.
type Predicate func(model.UnitKey) bool

// Any matches every unit.
func Any() Predicate {
	return func(model.UnitKey) bool { return true }
}

// BuildingIs matches one building.
func BuildingIs(name string) Predicate {
	return func(k model.UnitKey) bool { return k.Building == name }
}

// BuildingIn matches any of the named buildings.
func BuildingIn(names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(k model.UnitKey) bool {
		_, ok := set[k.Building]
		return ok
	}
}

// GenderIs matches one gender.
func GenderIs(g string) Predicate {
	return func(k model.UnitKey) bool { return k.Gender == g }
}

// RoomTypeIs matches one room type.
func RoomTypeIs(rt string) Predicate {
	return func(k model.UnitKey) bool { return k.RoomType == rt }
}

// And matches when every predicate matches. And() matches everything.
func And(ps ...Predicate) Predicate {
	return func(k model.UnitKey) bool {
		for _, p := range ps {
			if !p(k) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches. Or() matches nothing.
func Or(ps ...Predicate) Predicate {
	return func(k model.UnitKey) bool {
		for _, p := range ps {
			if p(k) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(k model.UnitKey) bool { return !p(k) }
}

// FilterLog returns a new log holding the observations whose unit matches p,
// in their original order.
func FilterLog(log *model.ObservationLog, p Predicate) *model.ObservationLog {
	var kept []model.Observation
	for i := 0; i < log.Len(); i++ {
		if o := log.At(i); p(o.Unit) {
			kept = append(kept, o)
		}
	}
	return model.NewObservationLog(log.Schema, kept)
}
