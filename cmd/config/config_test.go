package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	color.NoColor = true

	root := &cobra.Command{Use: "scadaflat", SilenceUsage: true, SilenceErrors: true}
	root.PersistentFlags().Bool("json", false, "")
	root.PersistentFlags().String("config", "", "")
	root.AddCommand(NewCommand())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"config"}, args...))
	err := root.Execute()
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	chdir(t, dir)
	t.Cleanup(viper.Reset)
	return dir
}

func TestInitShowAndPath(t *testing.T) {
	dir := setup(t)

	out, err := execute(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote scadaflat.yaml")
	assert.FileExists(t, filepath.Join(dir, "scadaflat.yaml"))

	_, err = execute(t, "init")
	assert.ErrorContains(t, err, "--force")

	out, err = execute(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "batch_size: 50")
	assert.Contains(t, out, "input: ./BGM_testing")

	out, err = execute(t, "path")
	require.NoError(t, err)
	assert.Contains(t, out, "scadaflat.yaml")
}

func TestSetGet(t *testing.T) {
	setup(t)
	_, err := execute(t, "init")
	require.NoError(t, err)

	out, err := execute(t, "set", "layout.exclude", "SPARE")
	require.NoError(t, err)
	assert.Contains(t, out, "Set layout.exclude = SPARE")

	out, err = execute(t, "get", "layout.exclude")
	require.NoError(t, err)
	assert.Contains(t, out, "layout.exclude: SPARE")

	out, err = execute(t, "get", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "(not set)")
}

func TestValidateCommand(t *testing.T) {
	dir := setup(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "BGM_testing"), 0755))
	cfg := "zones:\n  - input: ./BGM_testing\n    output: ./output_BGM\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scadaflat.yaml"), []byte(cfg), 0644))

	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := cfg + "on_file_error: retry\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scadaflat.yaml"), []byte(bad), 0644))
	out, err = execute(t, "validate")
	assert.Error(t, err)
	assert.Contains(t, out, "on_file_error")
}
