package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigPartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
save_directory = "` + filepath.ToSlash(dir) + `"
confirmations = false

[canvas]
snap_threshold = 45
history_depth = 10

[display]
cell_width = 8
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, cfg.Confirmations)
	assert.True(t, cfg.StartMenu, "unset keys keep defaults")
	assert.Equal(t, 45.0, cfg.Canvas.SnapThreshold)
	assert.Equal(t, 10, cfg.Canvas.HistoryDepth)
	assert.Equal(t, float64(defaultNodeWidth), cfg.Canvas.NodeWidth)
	assert.Equal(t, 8.0, cfg.Display.CellWidth)
	assert.Equal(t, 20.0, cfg.Display.CellHeight)
	assert.Equal(t, filepath.Clean(dir), filepath.Clean(cfg.SaveDirectory))
}

func TestLoadConfigParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[canvas\nsnap = "), 0o644))

	cfg, err := LoadConfig(path)
	require.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Canvas.MinScale = 2
	cfg.Canvas.MaxScale = 1
	cfg.Canvas.ZoomStep = 1.5
	cfg.Canvas.HistoryDepth = 0
	cfg.Canvas.SnapThreshold = -1
	cfg.Display.CellWidth = 0
	cfg.Display.ExportHeight = 0

	cfg.normalize()
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	want := DefaultConfig()
	want.Canvas.PasteStagger = 32
	want.Log = LogConfig{File: filepath.Join(t.TempDir(), "flowboard.log"), Level: "debug"}

	require.NoError(t, SaveConfig(path, want))
	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSavePathAndImagePath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SaveDirectory = filepath.FromSlash("/data/boards")

	tests := []struct {
		name  string
		input string
		image bool
		want  string
	}{
		{"adds extension", "plan", false, filepath.FromSlash("/data/boards/plan.flow")},
		{"keeps extension", "plan.json", false, filepath.FromSlash("/data/boards/plan.json")},
		{"absolute untouched", filepath.FromSlash("/tmp/x.flow"), false, filepath.FromSlash("/tmp/x.flow")},
		{"blank cancels", "   ", false, ""},
		{"image default png", "shot", true, filepath.FromSlash("/data/boards/shot.png")},
		{"image keeps svg", "shot.svg", true, filepath.FromSlash("/data/boards/shot.svg")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.SavePath(tt.input)
			if tt.image {
				got = cfg.ImagePath(tt.input)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveWithoutSaveDirectory(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "plan.flow", cfg.SavePath("plan"))
}
