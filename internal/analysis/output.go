package analysis

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/model"
)

// Output file names.
const (
	FileRanked      = "ranked.json"
	FileCorrelation = "correlation.csv"
	FileRegression  = "regression.csv"
	FileUnmatched   = "unmatched.json"
	FileDiagnostics = "diagnostics.json"
	FileFillTimes   = "fill_times.csv"
)

// Render encodes every output of res in memory, keyed by file name.
func Render(res *Result) (map[string][]byte, error) {
	out := make(map[string][]byte)

	ranked, err := encodeJSON(res.Correlation.Ranked)
	if err != nil {
		return nil, err
	}
	out[FileRanked] = ranked

	var buf bytes.Buffer
	if err := res.Correlation.WriteCSV(&buf); err != nil {
		return nil, err
	}
	out[FileCorrelation] = bytes.Clone(buf.Bytes())

	if res.Regression != nil {
		buf.Reset()
		if err := res.Regression.WriteCSV(&buf); err != nil {
			return nil, err
		}
		out[FileRegression] = bytes.Clone(buf.Bytes())
	}

	buf.Reset()
	if err := res.Fill.WriteCSV(&buf); err != nil {
		return nil, err
	}
	out[FileFillTimes] = bytes.Clone(buf.Bytes())

	if out[FileUnmatched], err = encodeJSON(res.Dataset.Unmatched); err != nil {
		return nil, err
	}

	diags := res.Diagnostics
	if diags == nil {
		diags = model.Diagnostics{}
	}
	if out[FileDiagnostics], err = encodeJSON(diags); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteOutputs renders res and writes its files into dir. Nothing is written
// when rendering fails.
func WriteOutputs(dir string, res *Result) error {
	files, err := Render(res)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "analysis: create %s", dir)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), files[name], 0o644); err != nil {
			return eris.Wrapf(err, "analysis: write %s", name)
		}
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, eris.Wrap(err, "analysis: encode json")
	}
	return buf.Bytes(), nil
}
