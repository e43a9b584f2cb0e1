package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	SaveDirectory string        `toml:"save_directory"`
	StartMenu     bool          `toml:"start_menu"`
	Confirmations bool          `toml:"confirmations"`
	Canvas        CanvasConfig  `toml:"canvas"`
	Display       DisplayConfig `toml:"display"`
	Log           LogConfig     `toml:"log"`
}

// CanvasConfig tunes the interaction engine.
type CanvasConfig struct {
	SnapThreshold float64 `toml:"snap_threshold"`
	HandleRadius  float64 `toml:"handle_radius"` // screen pixels
	EdgeSlop      float64 `toml:"edge_slop"`     // screen pixels
	MinScale      float64 `toml:"min_scale"`
	MaxScale      float64 `toml:"max_scale"`
	ZoomStep      float64 `toml:"zoom_step"`
	HistoryDepth  int     `toml:"history_depth"`
	NodeWidth     float64 `toml:"node_width"`
	NodeHeight    float64 `toml:"node_height"`
	MinNodeWidth  float64 `toml:"min_node_width"`
	MinNodeHeight float64 `toml:"min_node_height"`
	PasteStagger  float64 `toml:"paste_stagger"`
	KeyPanStep    float64 `toml:"key_pan_step"`
}

// DisplayConfig maps terminal cells onto screen pixels.
type DisplayConfig struct {
	CellWidth        float64 `toml:"cell_width"`
	CellHeight       float64 `toml:"cell_height"`
	DoubleClickMilli int     `toml:"double_click_ms"`
	ExportWidth      int     `toml:"export_width"`
	ExportHeight     int     `toml:"export_height"`
}

type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		StartMenu:     true,
		Confirmations: true,
		Canvas:        DefaultCanvasConfig(),
		Display: DisplayConfig{
			CellWidth:        10,
			CellHeight:       20,
			DoubleClickMilli: 400,
			ExportWidth:      1600,
			ExportHeight:     1000,
		},
		Log: LogConfig{Level: "info"},
	}
}

func DefaultCanvasConfig() CanvasConfig {
	return CanvasConfig{
		SnapThreshold: SnapThreshold,
		HandleRadius:  defaultHandleRadius,
		EdgeSlop:      defaultEdgeSlop,
		MinScale:      defaultMinScale,
		MaxScale:      defaultMaxScale,
		ZoomStep:      defaultZoomStep,
		HistoryDepth:  defaultHistoryDepth,
		NodeWidth:     defaultNodeWidth,
		NodeHeight:    defaultNodeHeight,
		MinNodeWidth:  defaultMinWidth,
		MinNodeHeight: defaultMinHeight,
		PasteStagger:  defaultPasteStagger,
		KeyPanStep:    defaultKeyPanStep,
	}
}

func (c CanvasConfig) zoomLimits() ZoomLimits {
	return ZoomLimits{Min: c.MinScale, Max: c.MaxScale, Step: c.ZoomStep}
}

func (c CanvasConfig) nodeDefaults() NodeDefaults {
	return NodeDefaults{
		Width:     c.NodeWidth,
		Height:    c.NodeHeight,
		MinWidth:  c.MinNodeWidth,
		MinHeight: c.MinNodeHeight,
		Title:     defaultNodeTitle,
	}
}

// ConfigDir returns the flowboard config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "flowboard")
}

func defaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadConfig reads path, or the default location when path is empty. A
// missing file yields the defaults. Values the file leaves out keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = defaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.SaveDirectory = expandPath(cfg.SaveDirectory)
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.normalize()
	return cfg, nil
}

// SaveConfig writes cfg to path, creating the directory.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// normalize replaces values that would break the engine with defaults.
func (c *Config) normalize() {
	d := DefaultConfig()
	cv := &c.Canvas
	if cv.MinScale <= 0 || cv.MaxScale < cv.MinScale {
		cv.MinScale, cv.MaxScale = d.Canvas.MinScale, d.Canvas.MaxScale
	}
	if cv.ZoomStep <= 0 || cv.ZoomStep >= 1 {
		cv.ZoomStep = d.Canvas.ZoomStep
	}
	if cv.HistoryDepth < 1 {
		cv.HistoryDepth = d.Canvas.HistoryDepth
	}
	if cv.NodeWidth <= 0 || cv.NodeHeight <= 0 {
		cv.NodeWidth, cv.NodeHeight = d.Canvas.NodeWidth, d.Canvas.NodeHeight
	}
	if cv.SnapThreshold <= 0 {
		cv.SnapThreshold = d.Canvas.SnapThreshold
	}
	if c.Display.CellWidth <= 0 || c.Display.CellHeight <= 0 {
		c.Display.CellWidth, c.Display.CellHeight = d.Display.CellWidth, d.Display.CellHeight
	}
	if c.Display.ExportWidth <= 0 || c.Display.ExportHeight <= 0 {
		c.Display.ExportWidth, c.Display.ExportHeight = d.Display.ExportWidth, d.Display.ExportHeight
	}
}

func expandPath(value string) string {
	if value == "" {
		return value
	}
	if strings.HasPrefix(value, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if !filepath.IsAbs(value) {
		if absPath, err := filepath.Abs(value); err == nil {
			value = absPath
		}
	}
	return value
}

// SavePath resolves a user-entered project name against the save
// directory and appends the project extension when missing.
func (c Config) SavePath(name string) string {
	return c.resolve(name, projectExt)
}

// ImagePath resolves an export name; it defaults to PNG.
func (c Config) ImagePath(name string) string {
	return c.resolve(name, ".png")
}

func (c Config) resolve(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if filepath.Ext(name) == "" {
		name += ext
	}
	name = expandHome(name)
	if filepath.IsAbs(name) || c.SaveDirectory == "" {
		return name
	}
	return filepath.Join(c.SaveDirectory, name)
}

// expandHome expands a leading ~ without making the path absolute, so
// relative names still land in the save directory.
func expandHome(name string) string {
	if strings.HasPrefix(name, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(name, "~"))
		}
	}
	return name
}
