package fill

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

// row is the on-disk shape of a fill-time table. An empty Time means the
// location never reached the threshold.
type row struct {
	Location string `csv:"Location"`
	Time     string `csv:"Time"`
}

// LoadPrecomputed reads a Location,Time table. Locations are trimmed.
func LoadPrecomputed(r io.Reader, opts tabular.CSVOptions) (*Table, error) {
	rows, err := tabular.DecodeRecords[row](r, opts, "Location", "Time")
	if err != nil {
		return nil, eris.Wrap(err, "fill: read fill-time table")
	}

	records := make([]Record, 0, len(rows))
	for i, rw := range rows {
		key := strings.TrimSpace(rw.Location)
		if key == "" {
			return nil, eris.Wrapf(model.ErrMalformedRow, "fill: row %d has no location", i+1)
		}
		raw := strings.TrimSpace(rw.Time)
		if raw == "" || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "nat") {
			records = append(records, Censored(key))
			continue
		}
		t, ok := model.ParseTimestamp(raw)
		if !ok {
			return nil, eris.Wrapf(model.ErrMalformedRow, "fill: row %d: bad time %q", i+1, raw)
		}
		records = append(records, Crossed(key, t))
	}

	return NewTable(records)
}

// WriteCSV writes the table in the same Location,Time shape LoadPrecomputed reads.
func (t *Table) WriteCSV(w io.Writer) error {
	rows := make([]row, 0, len(t.records))
	for _, r := range t.records {
		out := row{Location: r.Key}
		if r.IsCrossed() {
			out.Time = r.Time.Format(model.TimestampLayout)
		}
		rows = append(rows, out)
	}
	return eris.Wrap(tabular.EncodeRecords(w, rows), "fill: write fill-time table")
}
