package tabular

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Options configures ReadFile for either CSV or XLSX input.
type Options struct {
	CSV  CSVOptions
	XLSX XLSXOptions
}

// ReadFile reads every record of a CSV or XLSX file, chosen by extension.
func ReadFile(path string, opts Options) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path, opts.XLSX)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: open %s", path)
		}
		defer f.Close()

		records, err := ReadCSV(f, opts.CSV)
		if err != nil {
			return nil, eris.Wrapf(err, "tabular: read %s", path)
		}
		return records, nil
	}
}

// Table is a header plus data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	colIdx map[string]int
}

// NewTable treats the first record as the header.
func NewTable(name string, records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, eris.Errorf("tabular: %s has no header row", name)
	}
	return &Table{
		Name:   name,
		Header: records[0],
		Rows:   records[1:],
		colIdx: MapColumns(records[0]),
	}, nil
}

// LoadTable reads a file whose first row is a header.
func LoadTable(path string, opts Options) (*Table, error) {
	records, err := ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return NewTable(path, records)
}

// Has reports whether the header contains the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.colIdx[NormalizeColumn(name)]
	return ok
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	idx, ok := t.colIdx[NormalizeColumn(name)]
	if !ok {
		return -1
	}
	return idx
}

// Get returns the named column of a row, or "" when absent.
func (t *Table) Get(row []string, name string) string {
	return GetCol(row, t.colIdx, name)
}

// NormalizeColumn trims and lowercases a header for matching, and treats
// spaces and underscores alike: "Room Type" and "room_type" match "Room_Type".
func NormalizeColumn(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// MapColumns builds a normalized column name → index map.
// The first occurrence of a repeated column wins.
func MapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		key := NormalizeColumn(col)
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

// GetCol gets a column value by normalized name.
func GetCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[NormalizeColumn(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}
