package gbaui

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// settingsPath mirrors the teacher's preference for the user config
// directory, falling back to the executable's directory.
func settingsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		d := filepath.Join(dir, "gbacore")
		_ = os.MkdirAll(d, 0755)
		return filepath.Join(d, "settings.json")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "gbacore_settings.json")
}

func loadSettings(override Config) Config {
	var cfg Config
	if b, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(b, &cfg)
	}
	if override.Title != "" {
		cfg.Title = override.Title
	}
	if override.Scale != 0 {
		cfg.Scale = override.Scale
	}
	if override.AudioBufferMs != 0 {
		cfg.AudioBufferMs = override.AudioBufferMs
	}
	if override.ROMsDir != "" {
		cfg.ROMsDir = override.ROMsDir
	}
	cfg.AudioStereo = override.AudioStereo || cfg.AudioStereo
	cfg.AudioLowLatency = override.AudioLowLatency || cfg.AudioLowLatency
	if cfg.Title == "" && override.Title == "" {
		cfg.Title = "gbacore"
	}
	return cfg
}

func (a *App) saveSettings() {
	if a == nil {
		return
	}
	b, _ := json.MarshalIndent(a.cfg, "", "  ")
	_ = os.WriteFile(settingsPath(), b, 0644)
}
