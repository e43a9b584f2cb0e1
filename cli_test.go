package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig points the save directory at dir and returns the
// config path.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SaveDirectory = dir
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveConfig(path, cfg))
	return path
}

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	p := NewProject("cli", time.Now())
	p.Nodes["a"] = testNode("a", 0, 0)
	p.Nodes["b"] = testNode("b", 400, 300)
	p.Edges["e"] = Edge{ID: "e", From: "a", To: "b", Label: "go"}
	data, err := EncodeProject(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli.flow"), data, 0o644))

	require.NoError(t, runRoot(t, "--config", cfgPath, "export", "cli", "cli.svg", "--width", "400", "--height", "300"))
	out, err := os.ReadFile(filepath.Join(dir, "cli.svg"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `width="400"`)
	assert.Contains(t, string(out), "go")

	require.NoError(t, runRoot(t, "--config", cfgPath, "export", "cli", "cli"))
	_, err = os.Stat(filepath.Join(dir, "cli.png"))
	assert.NoError(t, err)
}

func TestExportCommandErrors(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	assert.Error(t, runRoot(t, "--config", cfgPath, "export", "missing", "out.png"))

	data, err := EncodeProject(NewProject("empty", time.Now()))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.flow"), data, 0o644))
	assert.ErrorIs(t, runRoot(t, "--config", cfgPath, "export", "empty", "out.png"), ErrEmptyCanvas)

	assert.Error(t, runRoot(t, "--config", cfgPath, "export", "only-one-arg"))
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	require.NoError(t, runRoot(t, "--config", path, "init-config"))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	assert.Error(t, runRoot(t, "--config", path, "init-config"), "refuses to overwrite")
	assert.NoError(t, runRoot(t, "--config", path, "init-config", "--force"))
}

func TestRecentCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	assert.NoError(t, runRoot(t, "--config", cfgPath, "recent"))
}

func TestSetupLogFileFlag(t *testing.T) {
	dir := t.TempDir()
	opts := &rootOptions{configPath: writeTestConfig(t, dir), logFile: filepath.Join(dir, "logs", "run.log")}

	cfg, logger, err := opts.setup()
	require.NoError(t, err)
	defer logger.Sync()
	assert.Equal(t, filepath.Join(dir, "logs", "run.log"), cfg.Log.File)
	logger.Info("hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(cfg.Log.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
