package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"ingest", "export", "fill", "query", "analyze"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "housing-analysis", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestFillCommand_Flags(t *testing.T) {
	flag := fillCmd.Flags().Lookup("threshold")
	require.NotNil(t, flag, "fill command should have --threshold flag")
	assert.Equal(t, "0", flag.DefValue)

	for _, name := range []string{"start", "end", "out", "aggregation", "leading", "building"} {
		assert.NotNil(t, fillCmd.Flags().Lookup(name), "fill command should have --%s flag", name)
	}
}

func TestAnalyzeCommand_RequiredFlags(t *testing.T) {
	flag := analyzeCmd.Flags().Lookup("plan")
	require.NotNil(t, flag, "analyze command should have --plan flag")
	assert.NotNil(t, analyzeCmd.Flags().Lookup("out-dir"))
}

func TestOpenOutput_Stdout(t *testing.T) {
	for _, path := range []string{"", "-"} {
		w, closeOut, err := openOutput(ingestCmd, path)
		require.NoError(t, err)
		assert.Equal(t, ingestCmd.OutOrStdout(), w)
		assert.NoError(t, closeOut())
	}
}

func TestOpenOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, closeOut, err := openOutput(ingestCmd, path)
	require.NoError(t, err)
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, closeOut())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestOpenOutput_BadPath(t *testing.T) {
	_, _, err := openOutput(ingestCmd, "/nonexistent/dir/out.csv")
	assert.Error(t, err)
}
