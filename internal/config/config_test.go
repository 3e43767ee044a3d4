package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ",", cfg.Input.Delimiter)
	assert.True(t, cfg.Input.TrimSpace)
	assert.InDelta(t, 80.0, cfg.Analysis.ThresholdPct, 0.001)
	assert.Equal(t, "building", cfg.Analysis.Aggregation)
	assert.Equal(t, "penalty", cfg.Analysis.CensorPolicy)
	assert.Equal(t, 24*time.Hour, cfg.Analysis.CensorOffset)
	assert.Equal(t, "inner", cfg.Analysis.JoinMode)
	assert.Equal(t, "spearman", cfg.Analysis.Method)
	assert.Equal(t, "exclude", cfg.Analysis.LeadingPolicy)
	assert.Equal(t, "last", cfg.Analysis.DuplicatePolicy)
	assert.Equal(t, 0, cfg.Analysis.ReferenceYear)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
analysis:
  threshold_pct: 90
  censor_offset: 48h
  join_mode: left_outer
  reference_year: 2025
input:
  charset: windows-1252
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 90.0, cfg.Analysis.ThresholdPct, 0.001)
	assert.Equal(t, 48*time.Hour, cfg.Analysis.CensorOffset)
	assert.Equal(t, "left_outer", cfg.Analysis.JoinMode)
	assert.Equal(t, 2025, cfg.Analysis.ReferenceYear)
	assert.Equal(t, "windows-1252", cfg.Input.Charset)
	// Defaults still apply for unset values
	assert.Equal(t, "spearman", cfg.Analysis.Method)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
analysis:
  method: spearman
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("HOUSING_ANALYSIS_METHOD", "pearson_on_ranks")
	t.Setenv("HOUSING_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "pearson_on_ranks", cfg.Analysis.Method)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("HOUSING_ANALYSIS_THRESHOLD_PCT", "75")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 75.0, cfg.Analysis.ThresholdPct, 0.001)
}

func TestLoadBadFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Analysis.ThresholdPct = 80
	cfg.Analysis.CensorOffset = time.Hour
	require.NoError(t, cfg.Validate())

	cfg.Analysis.ThresholdPct = 120
	cfg.Analysis.CensorOffset = 0
	cfg.Input.Delimiter = ";;"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.threshold_pct")
	assert.Contains(t, err.Error(), "analysis.censor_offset")
	assert.Contains(t, err.Error(), "input.delimiter")
}

func TestTabularOptions(t *testing.T) {
	in := InputConfig{Delimiter: ";", Charset: "utf-8", Sheet: "Fall", SheetIndex: 2, TrimSpace: true}

	opts := in.TabularOptions()
	assert.Equal(t, ';', opts.CSV.Delimiter)
	assert.Equal(t, "utf-8", opts.CSV.Charset)
	assert.True(t, opts.CSV.TrimSpace)
	assert.Equal(t, "Fall", opts.XLSX.SheetName)
	assert.Equal(t, 2, opts.XLSX.SheetIndex)

	assert.Equal(t, rune(0), InputConfig{}.DelimiterRune())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
