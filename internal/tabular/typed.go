package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"slices"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// DecodeRecords decodes a headed CSV into a slice of structs tagged with
// `csv:"..."`, honouring the same options as ReadCSV. Header cells are
// always trimmed; every column in required must be present. Unknown columns
// are ignored.
func DecodeRecords[T any](r io.Reader, opts CSVOptions, required ...string) ([]T, error) {
	src, err := decodeCharset(r, opts.Charset)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(src)
	if bom, _ := br.Peek(3); bytes.Equal(bom, []byte("\ufeff")) {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		cr.Comment = opts.Comment
	}
	cr.LazyQuotes = opts.LazyQuotes
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, eris.Errorf("csv: missing column %q", col)
		}
	}

	var rows csvutil.Reader = cr
	if opts.TrimSpace {
		rows = trimReader{cr}
	}
	dec, err := csvutil.NewDecoder(rows, header...)
	if err != nil {
		return nil, eris.Wrap(err, "csv: init decoder")
	}

	var out []T
	for {
		var v T
		if err := dec.Decode(&v); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "csv: decode record")
		}
		out = append(out, v)
	}
	return out, nil
}

// trimReader trims surrounding whitespace from every field it reads.
type trimReader struct {
	r *csv.Reader
}

func (t trimReader) Read() ([]string, error) {
	rec, err := t.r.Read()
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	return rec, err
}

// EncodeRecords writes a slice of `csv:"..."` tagged structs with a header row.
// The header is written even when records is empty.
func EncodeRecords[T any](w io.Writer, records []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return eris.Wrap(err, "csv: encode header")
	}
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "csv: encode record")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush records")
}
