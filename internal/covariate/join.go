package covariate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/fill"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

const (
	stage    = "join"
	fillSide = "fill"
)

// JoinMode controls which keys survive a join.
type JoinMode string

const (
	// Inner keeps keys present in the fill table and every covariate table,
	// with every attribute present.
	Inner JoinMode = "inner"
	// LeftOuter keeps every fill key; missing covariates stay absent.
	LeftOuter JoinMode = "left_outer"
	// FullOuter keeps the union of all keys. Covariate-only keys get an
	// unrecorded censored fill record.
	FullOuter JoinMode = "full_outer"
)

// ParseJoinMode accepts inner, left, left_outer, full, full_outer and outer.
func ParseJoinMode(s string) (JoinMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inner", "":
		return Inner, nil
	case "left", "left_outer", "leftouter":
		return LeftOuter, nil
	case "full", "full_outer", "fullouter", "outer":
		return FullOuter, nil
	}
	return "", eris.Errorf("covariate: unknown join mode %q", s)
}

// Unmatched lists the keys one side of a pair has and the other lacks.
type Unmatched struct {
	Left      string   `json:"left"`
	Right     string   `json:"right"`
	OnlyLeft  []string `json:"only_left"`
	OnlyRight []string `json:"only_right"`
}

// Empty reports whether both sides matched exactly.
func (u Unmatched) Empty() bool {
	return len(u.OnlyLeft) == 0 && len(u.OnlyRight) == 0
}

// Row is one joined location.
type Row struct {
	Key    string           `json:"key"`
	Fill   fill.Record      `json:"fill"`
	Values map[string]Value `json:"values"`
}

// Value returns the named attribute; unknown names are absent.
func (r Row) Value(attr string) Value {
	return r.Values[attr]
}

// Dataset is the joined table. It is not modified after Join returns.
type Dataset struct {
	Mode        JoinMode          `json:"mode"`
	Attributes  []string          `json:"attributes"`
	Kinds       map[string]Kind   `json:"kinds"`
	Rows        []Row             `json:"rows"`
	Unmatched   []Unmatched       `json:"unmatched"`
	Diagnostics model.Diagnostics `json:"-"`
}

// Kind returns the value kind of an attribute.
func (d *Dataset) Kind(attr string) (Kind, bool) {
	k, ok := d.Kinds[attr]
	return k, ok
}

// Join merges fill records with covariate tables under mode. Every pair of
// sources (fill against each table, and each table against every later
// table) gets an Unmatched entry, and each unmatched key is also recorded as
// a diagnostic.
func Join(records *fill.Table, tables []*Table, mode JoinMode) (*Dataset, error) {
	if records == nil {
		return nil, eris.Wrap(model.ErrNoInput, "covariate: no fill records")
	}
	if mode != Inner && mode != LeftOuter && mode != FullOuter {
		return nil, eris.Errorf("covariate: unknown join mode %q", mode)
	}

	ds := &Dataset{Mode: mode, Kinds: make(map[string]Kind)}
	owner := make(map[string]string)
	for _, t := range tables {
		for _, a := range t.Attributes {
			if prev, dup := owner[a]; dup {
				return nil, eris.Errorf("covariate: attribute %q in both %s and %s", a, prev, t.Name)
			}
			owner[a] = t.Name
			ds.Attributes = append(ds.Attributes, a)
			ds.Kinds[a] = t.Kinds[a]
		}
	}

	fillKeys := make([]string, 0, records.Len())
	for _, r := range records.Records() {
		fillKeys = append(fillKeys, r.Key)
	}

	ds.Unmatched = unmatchedPairs(fillKeys, tables)
	for _, u := range ds.Unmatched {
		for _, k := range u.OnlyLeft {
			ds.Diagnostics = append(ds.Diagnostics, unmatchedDiag(k, u.Left, u.Right))
		}
		for _, k := range u.OnlyRight {
			ds.Diagnostics = append(ds.Diagnostics, unmatchedDiag(k, u.Right, u.Left))
		}
		if !u.Empty() {
			zap.L().Warn("covariate: unmatched keys",
				zap.String("left", u.Left),
				zap.String("right", u.Right),
				zap.Strings("only_left", u.OnlyLeft),
				zap.Strings("only_right", u.OnlyRight),
			)
		}
	}

	for _, key := range universe(fillKeys, tables, mode) {
		rec, hasFill := records.Get(key)
		if !hasFill {
			if mode != FullOuter {
				continue
			}
			rec = fill.Censored(key)
			rec.Unrecorded = true
		}

		row := Row{Key: key, Fill: rec, Values: make(map[string]Value, len(ds.Attributes))}
		complete := true
		var missing []string
		for _, t := range tables {
			if mode == Inner && !t.Has(key) {
				complete = false
				break
			}
			for _, a := range t.Attributes {
				v := t.Value(key, a)
				row.Values[a] = v
				if !v.Present {
					missing = append(missing, a)
				}
			}
		}
		if !complete {
			continue
		}
		if mode == Inner && len(missing) > 0 {
			ds.Diagnostics = append(ds.Diagnostics, model.Diagnostic{
				Kind: model.DiagUnmatchedKey, Key: key, Stage: stage, Dropped: true,
				Detail: "missing " + strings.Join(missing, ", "),
			})
			continue
		}
		ds.Rows = append(ds.Rows, row)
	}
	ds.Diagnostics = ds.Diagnostics.Sorted()

	zap.L().Info("covariate: joined",
		zap.String("mode", string(mode)),
		zap.Int("tables", len(tables)),
		zap.Int("rows", len(ds.Rows)),
		zap.Strings("attributes", ds.Attributes),
	)
	return ds, nil
}

func unmatchedDiag(key, in, notIn string) model.Diagnostic {
	return model.Diagnostic{
		Kind:   model.DiagUnmatchedKey,
		Key:    key,
		Stage:  stage,
		Detail: fmt.Sprintf("in %s but not in %s", in, notIn),
	}
}

func unmatchedPairs(fillKeys []string, tables []*Table) []Unmatched {
	var out []Unmatched
	for i, t := range tables {
		out = append(out, diff(fillSide, t.Name, fillKeys, t.Keys()))
		for _, u := range tables[i+1:] {
			out = append(out, diff(t.Name, u.Name, t.Keys(), u.Keys()))
		}
	}
	return out
}

// diff expects sorted key lists.
func diff(leftName, rightName string, left, right []string) Unmatched {
	u := Unmatched{Left: leftName, Right: rightName, OnlyLeft: []string{}, OnlyRight: []string{}}
	i, j := 0, 0
	for i < len(left) || j < len(right) {
		switch {
		case j >= len(right) || (i < len(left) && left[i] < right[j]):
			u.OnlyLeft = append(u.OnlyLeft, left[i])
			i++
		case i >= len(left) || right[j] < left[i]:
			u.OnlyRight = append(u.OnlyRight, right[j])
			j++
		default:
			i++
			j++
		}
	}
	return u
}

func universe(fillKeys []string, tables []*Table, mode JoinMode) []string {
	if mode != FullOuter {
		return fillKeys
	}
	seen := make(map[string]struct{}, len(fillKeys))
	for _, k := range fillKeys {
		seen[k] = struct{}{}
	}
	for _, t := range tables {
		for _, k := range t.keys {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
