// Package ingest merges ordered snapshot files into one observation log.
package ingest

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

// requiredColumns must all appear in the first file's header.
var requiredColumns = []string{
	model.ColBuilding,
	model.ColRoomType,
	model.ColGender,
	model.ColAvailable,
	model.ColUpdated,
}

// Source is one raw snapshot file: its name (for error messages) and records.
type Source struct {
	Name    string
	Records [][]string
}

// Ingest concatenates sources in order. The first source's first record is
// the schema; every later source is read positionally against it and must
// have the same column count. A later source that repeats the schema header
// as its first record has that record skipped.
func Ingest(sources []Source) (*model.ObservationLog, error) {
	if len(sources) == 0 {
		return nil, eris.Wrap(model.ErrNoInput, "ingest: no snapshot files")
	}
	if len(sources[0].Records) == 0 {
		return nil, eris.Wrapf(model.ErrSchemaMismatch, "ingest: %s has no header row", sources[0].Name)
	}

	schema := sources[0].Records[0]
	colIdx := tabular.MapColumns(schema)
	for _, col := range requiredColumns {
		if _, ok := colIdx[tabular.NormalizeColumn(col)]; !ok {
			return nil, eris.Wrapf(model.ErrSchemaMismatch, "ingest: %s lacks column %q", sources[0].Name, col)
		}
	}

	b := &builder{colIdx: colIdx, width: len(schema), last: make(map[model.UnitKey]time.Time)}
	for i, src := range sources {
		rows := src.Records
		switch {
		case i == 0:
			rows = rows[1:]
		case len(rows) > 0 && sameRow(rows[0], schema):
			rows = rows[1:]
		}

		skipped := len(src.Records) - len(rows)
		for j, rec := range rows {
			if err := b.add(src.Name, j+1+skipped, rec); err != nil {
				return nil, err
			}
		}

		zap.L().Debug("ingest: source read",
			zap.String("source", src.Name),
			zap.Int("rows", len(rows)),
		)
	}

	return model.NewObservationLog(schema, b.obs), nil
}

// IngestFiles reads paths in the given order and ingests them.
func IngestFiles(paths []string, opts tabular.Options) (*model.ObservationLog, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		records, err := tabular.ReadFile(p, opts)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read snapshot")
		}
		sources = append(sources, Source{Name: p, Records: records})
	}

	log, err := Ingest(sources)
	if err != nil {
		return nil, err
	}
	zap.L().Info("ingest: snapshots merged",
		zap.Int("files", len(paths)),
		zap.Int("observations", log.Len()),
	)
	return log, nil
}

type builder struct {
	colIdx map[string]int
	width  int
	obs    []model.Observation
	last   map[model.UnitKey]time.Time
}

func (b *builder) add(source string, line int, rec []string) error {
	if len(rec) != b.width {
		return eris.Wrapf(model.ErrSchemaMismatch, "ingest: %s line %d has %d columns, schema has %d", source, line, len(rec), b.width)
	}

	get := func(col string) string {
		return strings.TrimSpace(tabular.GetCol(rec, b.colIdx, col))
	}

	unit := model.UnitKey{
		Building: get(model.ColBuilding),
		RoomType: get(model.ColRoomType),
		Gender:   get(model.ColGender),
	}

	ts, ok := model.ParseTimestamp(get(model.ColUpdated))
	if !ok {
		return eris.Wrapf(model.ErrMalformedRow, "ingest: %s line %d: bad %s %q", source, line, model.ColUpdated, get(model.ColUpdated))
	}

	o := model.Observation{Time: ts, Unit: unit}
	raw := get(model.ColAvailable)
	if raw == "" {
		o.Missing = true
	} else {
		n, err := parseCount(raw)
		if err != nil {
			return eris.Wrapf(model.ErrMalformedRow, "ingest: %s line %d: bad %s %q", source, line, model.ColAvailable, raw)
		}
		o.Available = n
	}

	if prev, seen := b.last[unit]; seen && ts.Before(prev) {
		return eris.Wrapf(model.ErrOutOfOrder, "ingest: %s line %d: %s at %s precedes %s",
			source, line, unit.Label(), ts.Format(model.TimestampLayout), prev.Format(model.TimestampLayout))
	}
	b.last[unit] = ts
	b.obs = append(b.obs, o)
	return nil
}

// parseCount accepts non-negative integers, including "12.0" as written by
// spreadsheet exports.
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, eris.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(int(f)) {
		return 0, eris.Errorf("count %q is not a non-negative integer", s)
	}
	return int(f), nil
}

func sameRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}

// WriteCombined writes the log back out as a single snapshot table using the
// canonical column set. Missing counts are written as empty cells.
func WriteCombined(w io.Writer, log *model.ObservationLog) error {
	rows := make([][]string, 0, log.Len())
	for _, o := range log.Observations() {
		avail := ""
		if !o.Missing {
			avail = strconv.Itoa(o.Available)
		}
		rows = append(rows, []string{
			o.Unit.Building,
			o.Unit.RoomType,
			o.Unit.Gender,
			avail,
			o.Time.Format(model.TimestampLayout),
		})
	}
	return eris.Wrap(tabular.WriteCSV(w, requiredColumns, rows), "ingest: write combined")
}
