package correlate

import (
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

type reportRow struct {
	Feature     string `csv:"feature"`
	Coefficient string `csv:"coefficient"`
	RSquared    string `csv:"r_squared"`
	PValue      string `csv:"p_value"`
	SampleSize  int    `csv:"sample_size"`
	Degenerate  bool   `csv:"degenerate_flag"`
	Reason      string `csv:"reason"`
}

// WriteCSV writes one row per result. Undefined numbers are left empty.
func (r *Report) WriteCSV(w io.Writer) error {
	rows := make([]reportRow, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, reportRow{
			Feature:     res.Feature,
			Coefficient: formatFloat(res.Coefficient),
			RSquared:    formatFloat(res.RSquared),
			PValue:      formatFloat(res.PValue),
			SampleSize:  res.N,
			Degenerate:  res.Degenerate,
			Reason:      res.Reason,
		})
	}
	return eris.Wrap(tabular.EncodeRecords(w, rows), "correlate: write report")
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
