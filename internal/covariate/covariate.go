// Package covariate loads per-location attribute tables and joins them with
// fill records under an explicit join mode.
package covariate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

// DefaultKeyColumn names the location column shared by every table.
const DefaultKeyColumn = "Location"

// Kind is the value type of an attribute.
type Kind string

const (
	Numeric Kind = "numeric"
	Boolean Kind = "boolean"
)

// Value is one attribute cell. Present is false for an empty or missing cell;
// absent values are never coerced to zero.
type Value struct {
	Kind    Kind    `json:"kind"`
	Num     float64 `json:"num,omitempty"`
	Bool    bool    `json:"bool,omitempty"`
	Present bool    `json:"present"`
}

// Num builds a present numeric value.
func Num(v float64) Value { return Value{Kind: Numeric, Num: v, Present: true} }

// Bool builds a present boolean value.
func Bool(v bool) Value { return Value{Kind: Boolean, Bool: v, Present: true} }

// Absent builds a missing value of kind k.
func Absent(k Kind) Value { return Value{Kind: k} }

// Float returns the value as a number, booleans as 0 or 1.
func (v Value) Float() (float64, bool) {
	if !v.Present {
		return 0, false
	}
	if v.Kind == Boolean {
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return v.Num, true
}

func (v Value) String() string {
	if !v.Present {
		return ""
	}
	if v.Kind == Boolean {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// Column reads one source column. Rename sets the attribute name; Hidden
// columns are read for derivations but not exposed; Optional columns may be
// missing from the header.
type Column struct {
	Name     string
	Kind     Kind
	Rename   string
	Optional bool
	Hidden   bool
}

// Attribute returns the exposed attribute name.
func (c Column) Attribute() string {
	if c.Rename != "" {
		return c.Rename
	}
	return c.Name
}

// Derived computes an attribute from the columns read for a row.
type Derived struct {
	Name string
	Fn   func(row map[string]Value) Value
}

// Spec describes how to turn a tabular file into a covariate table.
type Spec struct {
	Name      string
	KeyColumn string
	Columns   []Column
	Derived   []Derived

	// OtherColumnsBoolean reads every header column not named in Columns as
	// a boolean attribute (amenity flags).
	OtherColumnsBoolean bool
}

// Table is a covariate table keyed by normalized location.
type Table struct {
	Name       string
	Attributes []string
	Kinds      map[string]Kind

	keys []string
	rows map[string]map[string]Value
}

// Keys returns the sorted location keys.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Has reports whether key is in the table.
func (t *Table) Has(key string) bool {
	_, ok := t.rows[key]
	return ok
}

// Value returns the attribute for key. Unknown keys or attributes are absent.
func (t *Table) Value(key, attr string) Value {
	if v, ok := t.rows[key][attr]; ok {
		return v
	}
	return Absent(t.Kinds[attr])
}

// NormalizeKey trims surrounding whitespace. Matching is otherwise exact.
func NormalizeKey(s string) string {
	return strings.TrimSpace(s)
}

type boundColumn struct {
	col Column
	idx int
}

// Load builds a covariate table from tab according to spec.
func Load(tab *tabular.Table, spec Spec) (*Table, error) {
	name := spec.Name
	if name == "" {
		name = tab.Name
	}
	keyCol := spec.KeyColumn
	if keyCol == "" {
		keyCol = DefaultKeyColumn
	}
	keyIdx := tab.Index(keyCol)
	if keyIdx < 0 {
		return nil, eris.Wrapf(model.ErrSchemaMismatch, "covariate: %s: missing key column %q", name, keyCol)
	}

	bound, err := bindColumns(tab, spec, name, keyIdx)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Name:  name,
		Kinds: make(map[string]Kind),
		rows:  make(map[string]map[string]Value, len(tab.Rows)),
	}
	for _, b := range bound {
		if b.col.Hidden {
			continue
		}
		if _, dup := t.Kinds[b.col.Attribute()]; dup {
			return nil, eris.Errorf("covariate: %s: attribute %q defined twice", name, b.col.Attribute())
		}
		t.Attributes = append(t.Attributes, b.col.Attribute())
		t.Kinds[b.col.Attribute()] = b.col.Kind
	}
	for _, d := range spec.Derived {
		if _, dup := t.Kinds[d.Name]; dup {
			return nil, eris.Errorf("covariate: %s: attribute %q defined twice", name, d.Name)
		}
		t.Attributes = append(t.Attributes, d.Name)
		t.Kinds[d.Name] = Numeric
	}

	for i, rec := range tab.Rows {
		line := i + 2
		if isBlankRecord(rec) {
			continue
		}
		key := ""
		if keyIdx < len(rec) {
			key = NormalizeKey(rec[keyIdx])
		}
		if key == "" {
			return nil, eris.Wrapf(model.ErrMalformedRow, "covariate: %s line %d: empty %s", name, line, keyCol)
		}
		if _, dup := t.rows[key]; dup {
			return nil, eris.Wrapf(model.ErrDuplicateKey, "covariate: %s: %q", name, key)
		}

		read := make(map[string]Value, len(bound))
		for _, b := range bound {
			raw := ""
			if b.idx < len(rec) {
				raw = rec[b.idx]
			}
			v, err := parseValue(raw, b.col.Kind)
			if err != nil {
				return nil, eris.Wrapf(model.ErrMalformedRow, "covariate: %s line %d column %s: %v", name, line, b.col.Name, err)
			}
			read[b.col.Name] = v
		}

		row := make(map[string]Value, len(t.Attributes))
		for _, b := range bound {
			if !b.col.Hidden {
				row[b.col.Attribute()] = read[b.col.Name]
			}
		}
		for _, d := range spec.Derived {
			row[d.Name] = d.Fn(read)
		}
		t.rows[key] = row
		t.keys = append(t.keys, key)
	}
	sort.Strings(t.keys)
	return t, nil
}

func bindColumns(tab *tabular.Table, spec Spec, name string, keyIdx int) ([]boundColumn, error) {
	var bound []boundColumn
	used := map[int]bool{keyIdx: true}
	for _, c := range spec.Columns {
		idx := tab.Index(c.Name)
		if idx < 0 {
			if c.Optional {
				bound = append(bound, boundColumn{col: c, idx: -1})
				continue
			}
			return nil, eris.Wrapf(model.ErrSchemaMismatch, "covariate: %s: missing column %q", name, c.Name)
		}
		used[idx] = true
		bound = append(bound, boundColumn{col: c, idx: idx})
	}
	if spec.OtherColumnsBoolean {
		for i, h := range tab.Header {
			h = strings.TrimSpace(h)
			if used[i] || h == "" || strings.HasPrefix(h, "Unnamed:") {
				continue
			}
			bound = append(bound, boundColumn{col: Column{Name: h, Kind: Boolean}, idx: i})
		}
	}
	return bound, nil
}

func parseValue(raw string, k Kind) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "na") {
		return Absent(k), nil
	}
	if k == Boolean {
		b, err := ParseBool(raw)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return Value{}, eris.Errorf("not a number: %q", raw)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, eris.Errorf("not a finite number: %q", raw)
	}
	return Num(f), nil
}

// ParseBool accepts 1/0, true/false, yes/no and y/n in any case. Other
// numbers are true when non-zero.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false, eris.Errorf("not a boolean: %q", s)
	}
	return f != 0, nil
}

func isBlankRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
