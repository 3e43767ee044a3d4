package model

import "sort"

// DiagnosticKind classifies an isolated per-unit or per-covariate problem.
type DiagnosticKind string

const (
	DiagCapacityViolation     DiagnosticKind = "capacity_violation"
	DiagZeroCapacity          DiagnosticKind = "zero_capacity"
	DiagPercentOutOfRange     DiagnosticKind = "percent_out_of_range"
	DiagEmptyWindow           DiagnosticKind = "empty_window"
	DiagLateStart             DiagnosticKind = "late_start"
	DiagUnmatchedKey          DiagnosticKind = "unmatched_key"
	DiagDegenerateCorrelation DiagnosticKind = "degenerate_correlation"
)

// Diagnostic records a problem that was isolated instead of aborting the run.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Key     string         `json:"key"`
	Detail  string         `json:"detail"`
	Stage   string         `json:"stage"`
	Dropped bool           `json:"dropped"`
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// Sorted returns a copy ordered by stage, key, then kind.
func (d Diagnostics) Sorted() Diagnostics {
	out := make(Diagnostics, len(d))
	copy(out, d)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Count returns how many diagnostics have the given kind.
func (d Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, x := range d {
		if x.Kind == kind {
			n++
		}
	}
	return n
}
