package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_BindsIntoViper(t *testing.T) {
	t.Cleanup(viper.Reset)

	opts, err := parseFlags([]string{"-c", "/etc/battlegrid", "--points", "300", "--seed", "9", "--storage", "sqlite", "-q"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/etc/battlegrid", opts.ConfigDir)
	assert.True(t, opts.Quiet)
	assert.Equal(t, 300, viper.GetInt("battle.maxPoints"))
	assert.Equal(t, int64(9), viper.GetInt64("battle.seed"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
}

func TestParseFlags_Unknown(t *testing.T) {
	t.Cleanup(viper.Reset)

	_, err := parseFlags([]string{"--bogus"}, io.Discard)
	assert.Error(t, err)
}

func TestRun_Help(t *testing.T) {
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"--help"}, &out))
	assert.Contains(t, out.String(), "--max-rounds")
	assert.NotContains(t, out.String(), "help requested")
}

func TestRun_UnknownFlag(t *testing.T) {
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	assert.Equal(t, exitError, run([]string{"--bogus"}, &out))
	assert.Contains(t, out.String(), "unknown flag: --bogus")
}

func TestRun_Version(t *testing.T) {
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"--version"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), AppName+" "))
}

func TestRun_FightsAndExports(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	outDir := filepath.Join(dir, "battles")

	var out bytes.Buffer
	code := run([]string{
		"--config", dir,
		"--logs-dir", filepath.Join(dir, "logs"),
		"--output", outDir,
		"--points", "300",
		"--seed", "7",
		"--max-rounds", "200",
		"--name", "Test Fight",
	}, &out)

	require.Equal(t, exitOK, code, out.String())
	assert.Contains(t, out.String(), "Test Fight:")
	assert.Contains(t, out.String(), "outcome: ")
	assert.Contains(t, out.String(), "recorded to "+outDir)

	exports, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, exports, 1)

	logs, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}

func TestRun_BadCatalog(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()

	var out bytes.Buffer
	code := run([]string{
		"--config", dir,
		"--logs-dir", filepath.Join(dir, "logs"),
		"--catalog", filepath.Join(dir, "missing.yaml"),
	}, &out)

	assert.Equal(t, exitError, code)
	assert.Contains(t, out.String(), "reading catalog")
}
