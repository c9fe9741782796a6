package gbaui

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

func (a *App) updateMenu() {
	if !a.showMenu {
		return
	}
	switch a.menuMode {
	case "main":
		const max = 4
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
			a.menuIdx--
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < max {
			a.menuIdx++
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			switch a.menuIdx {
			case 0:
				if err := a.saveSlot(a.currentSlot); err == nil {
					a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
				} else {
					a.toast("Save failed: " + err.Error())
				}
			case 1:
				if err := a.loadSlot(a.currentSlot); err == nil {
					a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
				} else {
					a.toast("Load failed: " + err.Error())
				}
			case 2:
				a.romList = a.findROMs()
				a.romSel, a.romOff = 0, 0
				a.menuMode = "rom"
			case 3:
				a.menuMode = "slot"
				a.menuIdx = a.currentSlot
			case 4:
				a.showMenu = false
			}
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			a.showMenu = false
		}
	case "slot":
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.menuIdx > 0 {
			a.menuIdx--
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.menuIdx < 3 {
			a.menuIdx++
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
			a.currentSlot = a.menuIdx
			a.toast(fmt.Sprintf("Slot set to %d", a.currentSlot+1))
			a.menuMode = "main"
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			a.menuMode = "main"
		}
	case "rom":
		n := len(a.romList)
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && a.romSel > 0 {
			a.romSel--
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && a.romSel < n-1 {
			a.romSel++
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) && n > 0 {
			path := a.romList[a.romSel]
			if err := a.loadROM(path); err == nil {
				a.toast("Loaded ROM")
				a.showMenu = false
			} else {
				a.toast("Load failed: " + err.Error())
			}
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
			a.menuMode = "main"
		}
	}
}

func (a *App) drawMenu(screen *ebiten.Image) {
	switch a.menuMode {
	case "main":
		lines := []string{
			"Menu:",
			fmt.Sprintf("  Save state (slot %d)", a.currentSlot+1),
			fmt.Sprintf("  Load state (slot %d)", a.currentSlot+1),
			"  Switch ROM",
			"  Select slot",
			"  Close",
		}
		for i, s := range lines {
			prefix := "  "
			if i == a.menuIdx+1 {
				prefix = "> "
			}
			ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
		}
	case "slot":
		lines := []string{"Select slot:"}
		for i := 0; i < 4; i++ {
			state := "[empty]"
			if _, err := os.Stat(a.statePath(i)); err == nil {
				state = ""
			}
			lines = append(lines, fmt.Sprintf("  %d %s", i+1, state))
		}
		for i, s := range lines {
			prefix := "  "
			if i == a.menuIdx+1 {
				prefix = "> "
			}
			ebitenutil.DebugPrintAt(screen, prefix+s, 10, 10+i*14)
		}
	case "rom":
		ebitenutil.DebugPrintAt(screen, "Select ROM (Enter to load, Esc to return)", 10, 10)
		if len(a.romList) == 0 {
			ebitenutil.DebugPrintAt(screen, "No ROMs found in "+a.cfg.ROMsDir, 10, 28)
			return
		}
		for i, path := range a.romList {
			prefix := "  "
			if i == a.romSel {
				prefix = "> "
			}
			ebitenutil.DebugPrintAt(screen, prefix+path, 10, 28+i*14)
		}
	}
}
