// Package gbaui is the ebiten front end: a window, keyboard-to-pad
// mapping, an audio player pulling from the System's resampled ring
// buffer, and a small in-game menu for save states and ROM switching —
// a condensed version of the teacher's internal/ui, which this core
// inherits the shape of (App struct, Config persistence, apuStream)
// but simplifies the menu tree for the GBA's larger, window-driven
// library compared to the DMG teacher's single-folder ROM picker.
package gbaui

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/maemo-arm7/gbacore/internal/gba/ppu"
	"github.com/maemo-arm7/gbacore/internal/gba/system"
	"github.com/maemo-arm7/gbacore/internal/imageutil"
)

const (
	screenW = ppu.ScreenWidth
	screenH = ppu.ScreenHeight
)

// App is the ebiten.Game implementation driving one System.
type App struct {
	cfg Config
	sys *system.System
	tex *ebiten.Image

	pixels []byte // scratch RGBA buffer reused across frames

	paused bool
	fast   bool
	turbo  int

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream
	audioMuted  bool

	showMenu bool
	menuMode string // "main" | "slot" | "rom"
	menuIdx  int

	currentSlot int
	romPath     string

	romList []string
	romSel  int
	romOff  int

	toastMsg   string
	toastUntil time.Time

	showStats bool
}

// NewApp wires an App around an already-constructed System.
func NewApp(cfg Config, sys *system.System) *App {
	cfg = loadSettings(cfg)
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(screenW*cfg.Scale, screenH*cfg.Scale)

	a := &App{
		cfg:    cfg,
		sys:    sys,
		turbo:  1,
		pixels: make([]byte, screenW*screenH*4),
	}
	a.audioCtx = audio.NewContext(32768)
	return a
}

func (a *App) Run() error { return ebiten.RunGame(a) }

// SaveSettings persists the current Config to disk, for a front end to
// call after Run returns.
func (a *App) SaveSettings() { a.saveSettings() }

func (a *App) Layout(outW, outH int) (int, int) { return screenW, screenH }

func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

func (a *App) Update() error {
	if a.audioPlayer == nil {
		a.audioMuted = true
		a.audioSrc = &apuStream{sys: a.sys, mono: !a.cfg.AudioStereo, muted: &a.audioMuted, lowLatency: a.cfg.AudioLowLatency}
		if p, err := a.audioCtx.NewPlayer(a.audioSrc); err == nil {
			a.audioPlayer = p
			a.applyPlayerBufferSize()
			a.audioPlayer.Play()
		}
	}

	if !a.showMenu {
		var btn system.Buttons
		btn.Right = ebiten.IsKeyPressed(ebiten.KeyRight)
		btn.Left = ebiten.IsKeyPressed(ebiten.KeyLeft)
		btn.Up = ebiten.IsKeyPressed(ebiten.KeyUp)
		btn.Down = ebiten.IsKeyPressed(ebiten.KeyDown)
		btn.A = ebiten.IsKeyPressed(ebiten.KeyZ)
		btn.B = ebiten.IsKeyPressed(ebiten.KeyX)
		btn.L = ebiten.IsKeyPressed(ebiten.KeyA)
		btn.R = ebiten.IsKeyPressed(ebiten.KeyS)
		btn.Start = ebiten.IsKeyPressed(ebiten.KeyEnter)
		btn.Select = ebiten.IsKeyPressed(ebiten.KeyShiftRight)
		a.sys.SetKeys(btn)
	} else {
		a.sys.SetKeys(system.Buttons{})
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if inpututil.IsKeyJustPressed(ebiten.KeyF6) && a.turbo > 1 {
		a.turbo--
		a.toast(fmt.Sprintf("Turbo: x%d", a.turbo))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF7) && a.turbo < 10 {
		a.turbo++
		a.toast(fmt.Sprintf("Turbo: x%d", a.turbo))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		a.sys.Reset()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && (!a.showMenu || a.menuMode == "main") {
		a.showMenu = !a.showMenu
		if a.showMenu {
			a.menuMode = "main"
			a.menuIdx = 0
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		if err := a.saveScreenshot(); err != nil {
			a.toast("Screenshot failed: " + err.Error())
		} else {
			a.toast("Screenshot saved")
		}
	}
	for i, key := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(key) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot set to %d", i+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := a.saveSlot(a.currentSlot); err != nil {
			a.toast("Save failed: " + err.Error())
		} else {
			a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if err := a.loadSlot(a.currentSlot); err != nil {
			a.toast("Load failed: " + err.Error())
		} else {
			a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		a.showStats = !a.showStats
	}

	muted := a.paused || a.showMenu
	if muted != a.audioMuted {
		a.audioMuted = muted
	}

	a.updateMenu()

	if !a.paused && !a.showMenu {
		cycles := 280896 // one frame's worth at native speed
		for t := 0; t < a.turbo; t++ {
			if a.fast || t == 0 {
				a.sys.RunFor(cycles)
			}
		}
	}
	return nil
}

func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	bufMs := a.cfg.AudioBufferMs
	if a.cfg.AudioLowLatency || a.fast {
		bufMs = 20
	}
	a.audioPlayer.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(screenW, screenH)
	}
	rgbaFrame(a.sys.Framebuffer(), a.pixels)
	a.tex.WritePixels(a.pixels)
	screen.DrawImage(a.tex, nil)

	if a.showStats {
		bf := a.sys.BufferedAudioFrames()
		ms := (bf * 1000) / 32768
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Buf: %d (~%dms)", bf, ms), 4, 4)
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Turbo: x%d", a.turbo), 4, 16)
	}

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		ebitenutil.DebugPrintAt(screen, a.toastMsg, 6, 4)
	}

	if a.showMenu {
		a.drawMenu(screen)
	}
}

func (a *App) statePath(slot int) string {
	base := a.romPath
	if base == "" {
		base = "unknown.gba"
	}
	return filepath.Join(filepath.Dir(base), fmt.Sprintf("%s.slot%d.savestate", filepath.Base(base), slot))
}

func (a *App) saveSlot(slot int) error {
	return os.WriteFile(a.statePath(slot), a.sys.SaveState(), 0644)
}

func (a *App) loadSlot(slot int) error {
	data, err := os.ReadFile(a.statePath(slot))
	if err != nil {
		return err
	}
	return a.sys.LoadState(data)
}

func (a *App) saveScreenshot() error {
	img := &frameImage{fb: a.sys.Framebuffer()}
	out := imageutil.Upscale(img, a.cfg.Scale)
	name := fmt.Sprintf("screenshot_%s.png", time.Now().Format("20060102_150405"))
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}

func (a *App) findROMs() []string {
	var out []string
	entries, err := os.ReadDir(a.cfg.ROMsDir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".gba") {
			out = append(out, filepath.Join(a.cfg.ROMsDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func (a *App) loadROM(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := a.sys.LoadROM(data); err != nil {
		return err
	}
	a.romPath = path
	ebiten.SetWindowTitle(a.cfg.Title + " - " + filepath.Base(path))
	return nil
}
