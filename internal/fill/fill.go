// Package fill derives the first time each key's percent filled reaches a
// threshold, and reads or writes the resulting Location,Time tables.
package fill

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/series"
)

const stage = "extract"

// Status is the outcome of a threshold scan.
type Status string

const (
	StatusCrossed  Status = "crossed"
	StatusCensored Status = "censored"
)

// Record is the fill outcome for one key. Time is set only when crossed.
// Unrecorded marks a censored record synthesized for a location that had no
// fill record at all (full outer joins).
type Record struct {
	Key        string    `json:"key"`
	Status     Status    `json:"status"`
	Time       time.Time `json:"time,omitzero"`
	Unrecorded bool      `json:"unrecorded,omitempty"`
}

// Crossed builds a crossed record.
func Crossed(key string, t time.Time) Record {
	return Record{Key: key, Status: StatusCrossed, Time: t}
}

// Censored builds a censored record.
func Censored(key string) Record {
	return Record{Key: key, Status: StatusCensored}
}

// IsCrossed reports whether the threshold was reached.
func (r Record) IsCrossed() bool {
	return r.Status == StatusCrossed
}

// Window bounds the scan. A zero Start or End leaves that side open.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// Table is a set of fill records with unique keys, sorted by key.
type Table struct {
	Diagnostics model.Diagnostics

	records []Record
	byKey   map[string]int
}

// NewTable builds a table. Keys must be unique.
func NewTable(records []Record) (*Table, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	t := &Table{records: sorted, byKey: make(map[string]int, len(sorted))}
	for i, r := range sorted {
		if _, dup := t.byKey[r.Key]; dup {
			return nil, eris.Wrapf(model.ErrDuplicateKey, "fill: key %q appears twice", r.Key)
		}
		t.byKey[r.Key] = i
	}
	return t, nil
}

// Records returns a copy of the records sorted by key.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Get returns the record for key.
func (t *Table) Get(key string) (Record, bool) {
	i, ok := t.byKey[key]
	if !ok {
		return Record{}, false
	}
	return t.records[i], true
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// Extract scans each included series for the first grid time inside window
// whose percent filled is at least threshold. Series with no point inside
// the window get an empty-window diagnostic and no record.
func Extract(res *series.Result, threshold float64, window Window) (*Table, error) {
	if res == nil {
		return nil, eris.Wrap(model.ErrNoInput, "fill: no normalized series")
	}
	if !(threshold > 0 && threshold <= 100) {
		return nil, eris.Errorf("fill: threshold %v outside (0, 100]", threshold)
	}
	if !window.Start.IsZero() && !window.End.IsZero() && window.End.Before(window.Start) {
		return nil, eris.Errorf("fill: window ends before it starts")
	}

	var (
		records []Record
		diags   model.Diagnostics
	)
	for _, s := range res.Included() {
		rec, inWindow := scan(s, threshold, window)
		if !inWindow {
			diags = append(diags, model.Diagnostic{
				Kind: model.DiagEmptyWindow, Key: s.Label, Stage: stage, Dropped: true,
				Detail: "no observations inside the observation window",
			})
			continue
		}
		records = append(records, rec)
	}

	t, err := NewTable(records)
	if err != nil {
		return nil, err
	}
	t.Diagnostics = diags.Sorted()

	crossed := 0
	for _, r := range t.records {
		if r.IsCrossed() {
			crossed++
		}
	}
	zap.L().Info("fill: extracted",
		zap.Float64("threshold_pct", threshold),
		zap.Int("keys", t.Len()),
		zap.Int("crossed", crossed),
		zap.Int("censored", t.Len()-crossed),
	)
	return t, nil
}

func scan(s series.Series, threshold float64, window Window) (Record, bool) {
	seen := false
	for _, p := range s.Points {
		if !window.Contains(p.Time) {
			continue
		}
		seen = true
		if p.PercentFilled >= threshold {
			return Crossed(s.Label, p.Time), true
		}
	}
	return Censored(s.Label), seen
}

// String renders a record for logs.
func (r Record) String() string {
	if r.IsCrossed() {
		return fmt.Sprintf("%s crossed at %s", r.Key, r.Time.Format(model.TimestampLayout))
	}
	return r.Key + " censored"
}
