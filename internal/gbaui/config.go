package gbaui

// Config contains window/input/audio related settings, adapted from
// the teacher's ui.Config for the GBA's 240x160 screen and ten-button
// pad.
type Config struct {
	Title       string // window title
	Scale       int    // integer upscaling factor
	AudioStereo bool   // if true, output true stereo; if false, fold to mono

	AudioBufferMs   int  // desired buffer in ms (approx)
	AudioLowLatency bool // hard-cap buffering for minimal latency

	ROMsDir string // directory to browse for ROMs

	ShellOverlay bool   // overlay toggle, kept in the settings file; App.Draw draws no overlay
	ShellImage   string // path to the overlay image (PNG); not loaded by App

	PerROMCompatPalette map[string]int // ROM path -> compat palette ID, reserved for future per-game tweaks
}

// Defaults fills missing fields with reasonable defaults, matching the
// teacher's ui.Config.Defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbacore"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.AudioBufferMs <= 0 {
		c.AudioBufferMs = 60
	}
	if c.ROMsDir == "" {
		c.ROMsDir = "roms"
	}
	if c.PerROMCompatPalette == nil {
		c.PerROMCompatPalette = make(map[string]int)
	}
	if c.ShellImage == "" {
		c.ShellImage = "assets/skins/overlay.png"
	}
}
