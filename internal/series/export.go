package series

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

// ExportPoint is one dated value in the time series export.
type ExportPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Export holds both value modes keyed by the composite unit label.
type Export struct {
	Absolute   map[string][]ExportPoint `json:"absolute"`
	Normalized map[string][]ExportPoint `json:"normalized"`
}

// BuildExport converts the included series of r into the export format.
func BuildExport(r *Result) Export {
	ex := Export{
		Absolute:   make(map[string][]ExportPoint),
		Normalized: make(map[string][]ExportPoint),
	}
	for _, s := range r.Included() {
		abs := make([]ExportPoint, len(s.Points))
		pct := make([]ExportPoint, len(s.Points))
		for i, p := range s.Points {
			date := p.Time.Format(model.TimestampLayout)
			abs[i] = ExportPoint{Date: date, Value: float64(p.Available)}
			pct[i] = ExportPoint{Date: date, Value: p.PercentFilled}
		}
		ex.Absolute[s.Label] = abs
		ex.Normalized[s.Label] = pct
	}
	return ex
}

// WriteExport writes the export as indented JSON. Map keys are emitted in
// sorted order, so identical inputs give identical bytes.
func WriteExport(w io.Writer, ex Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(ex), "series: encode export")
}

// ParseExport reads an export written by WriteExport.
func ParseExport(r io.Reader) (*Export, error) {
	var ex Export
	if err := json.NewDecoder(r).Decode(&ex); err != nil {
		return nil, eris.Wrap(err, "series: decode export")
	}
	return &ex, nil
}

// ValueKey addresses one exported value.
type ValueKey struct {
	Label string
	Time  time.Time
}

// Values flattens one export mode into a (label, time) → value map.
func Values(mode map[string][]ExportPoint) (map[ValueKey]float64, error) {
	out := make(map[ValueKey]float64)
	for label, pts := range mode {
		for _, p := range pts {
			t, ok := model.ParseTimestamp(p.Date)
			if !ok {
				return nil, eris.Errorf("series: bad export date %q for %s", p.Date, label)
			}
			out[ValueKey{Label: label, Time: t}] = p.Value
		}
	}
	return out, nil
}
