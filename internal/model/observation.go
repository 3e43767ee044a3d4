package model

import "time"

// Snapshot table column names.
const (
	ColBuilding  = "Building"
	ColRoomType  = "Room_Type"
	ColGender    = "Gender"
	ColAvailable = "Available_Bed_Spaces"
	ColUpdated   = "Last_Updated"
)

// Observation is one snapshot row: the available bed count of a unit at a time.
// Missing is set when the snapshot carried an empty count.
type Observation struct {
	Time      time.Time
	Unit      UnitKey
	Available int
	Missing   bool
}

// ObservationLog is the ordered, append-only result of one ingestion run.
// Rows are kept in ingestion order and are never deduplicated.
type ObservationLog struct {
	Schema       []string
	observations []Observation
}

// NewObservationLog wraps observations in a log. The slice is copied.
func NewObservationLog(schema []string, obs []Observation) *ObservationLog {
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	sc := make([]string, len(schema))
	copy(sc, schema)
	return &ObservationLog{Schema: sc, observations: cp}
}

// Len returns the number of observations.
func (l *ObservationLog) Len() int {
	return len(l.observations)
}

// At returns the i-th observation in ingestion order.
func (l *ObservationLog) At(i int) Observation {
	return l.observations[i]
}

// Observations returns a copy of every observation in ingestion order.
func (l *ObservationLog) Observations() []Observation {
	cp := make([]Observation, len(l.observations))
	copy(cp, l.observations)
	return cp
}

// TimestampLayout is the export format for series dates.
const TimestampLayout = "2006-01-02T15:04:05"

// timestampLayouts are accepted when parsing Last_Updated and fill times.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	TimestampLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTimestamp parses an ISO-like timestamp. Timestamps without a zone are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
