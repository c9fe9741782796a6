// Command gbacore is the windowed front end: load a ROM, open an
// ebiten window, and play.
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/maemo-arm7/gbacore/internal/gba/cart"
	"github.com/maemo-arm7/gbacore/internal/gba/system"
	"github.com/maemo-arm7/gbacore/internal/gbaui"
)

type cliFlags struct {
	ROMPath string
	BIOS    string
	Scale   int
	Title   string
	SaveRAM bool
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to ROM (.gba)")
	flag.StringVar(&f.BIOS, "bios", "", "optional GBA BIOS image")
	flag.IntVar(&f.Scale, "scale", 3, "window scale")
	flag.StringVar(&f.Title, "title", "gbacore", "window title")
	flag.BoolVar(&f.SaveRAM, "save", true, "persist cartridge save RAM next to ROM (.sav)")
	flag.Parse()
	return f
}

func mustRead(path string) []byte {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return b
}

func main() {
	f := parseFlags()
	sys := system.New()

	if rom := mustRead(f.ROMPath); len(rom) > 0 {
		if err := sys.LoadROM(rom); err != nil {
			log.Fatalf("load ROM: %v", err)
		}
	}
	if bios := mustRead(f.BIOS); len(bios) > 0 {
		sys.LoadBIOS(bios)
	}

	var savPath string
	var backend *cart.MemSave
	if f.SaveRAM && f.ROMPath != "" {
		savPath = strings.TrimSuffix(f.ROMPath, ".gba") + ".sav"
		const sramSize = 0x10000
		backend = cart.NewMemSave(sramSize)
		if data, err := os.ReadFile(savPath); err == nil {
			backend.LoadBytes(data)
			log.Printf("loaded save RAM: %s (%d bytes)", savPath, len(data))
		}
		sys.AttachSaveBackend(backend)
	}

	cfg := gbaui.Config{Title: f.Title, Scale: f.Scale, ROMsDir: "roms"}
	app := gbaui.NewApp(cfg, sys)
	runErr := app.Run()
	app.SaveSettings()

	if backend != nil && savPath != "" {
		if err := os.WriteFile(savPath, backend.Bytes(), 0644); err != nil {
			log.Printf("write save RAM: %v", err)
		} else {
			log.Printf("wrote %s", savPath)
		}
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}
