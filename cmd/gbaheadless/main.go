// Command gbaheadless runs one or more ROMs without a window, for
// regression testing: step N frames, checksum the framebuffer, and
// optionally assert it against an expected CRC32 or dump it as a PNG.
// Multiple ROMs (-rom a.gba,b.gba or -romdir dir) run concurrently via
// an errgroup, the way a CI job would fan a whole test ROM suite out
// across cores.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/crc32"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maemo-arm7/gbacore/internal/gba/ppu"
	"github.com/maemo-arm7/gbacore/internal/gba/system"
	"github.com/maemo-arm7/gbacore/internal/imageutil"
)

type cliFlags struct {
	ROMPath   string
	ROMDir    string
	BIOS      string
	Frames    int
	OutDir    string
	Expect    string
	Upscale   int
	Parallel  int
}

func parseFlags() cliFlags {
	var f cliFlags
	flag.StringVar(&f.ROMPath, "rom", "", "path to a single ROM (.gba)")
	flag.StringVar(&f.ROMDir, "romdir", "", "directory of ROMs to run as a batch")
	flag.StringVar(&f.BIOS, "bios", "", "optional GBA BIOS image shared by every run")
	flag.IntVar(&f.Frames, "frames", 300, "frames to run per ROM")
	flag.StringVar(&f.OutDir, "outdir", "", "directory to write per-ROM PNG snapshots (optional)")
	flag.StringVar(&f.Expect, "expect", "", "expected framebuffer CRC32 hex, only valid with -rom")
	flag.IntVar(&f.Upscale, "upscale", 1, "integer upscale factor applied to PNG output")
	flag.IntVar(&f.Parallel, "parallel", 4, "max concurrent ROM runs")
	flag.Parse()
	return f
}

type runResult struct {
	ROM   string
	CRC   uint32
	FPS   float64
	Error error
}

func runOne(bios []byte, romPath string, frames, upscale int, pngPath string) runResult {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return runResult{ROM: romPath, Error: err}
	}

	sys := system.New()
	if err := sys.LoadROM(rom); err != nil {
		return runResult{ROM: romPath, Error: err}
	}
	if len(bios) > 0 {
		sys.LoadBIOS(bios)
	}

	const cyclesPerFrame = 280896
	start := time.Now()
	for i := 0; i < frames; i++ {
		sys.RunFor(cyclesPerFrame)
	}
	dur := time.Since(start)

	fb := sys.Framebuffer()
	buf := make([]byte, ppu.ScreenWidth*ppu.ScreenHeight*4)
	imageutil.RGBAFromARGB32(fb, buf)
	crc := crc32.ChecksumIEEE(buf)
	fps := float64(frames) / dur.Seconds()

	if pngPath != "" {
		if err := writeFramePNG(buf, upscale, pngPath); err != nil {
			return runResult{ROM: romPath, CRC: crc, FPS: fps, Error: fmt.Errorf("write PNG: %w", err)}
		}
	}
	return runResult{ROM: romPath, CRC: crc, FPS: fps}
}

func writeFramePNG(pix []byte, upscale int, path string) error {
	img := &image.RGBA{
		Pix:    pix,
		Stride: 4 * ppu.ScreenWidth,
		Rect:   image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight),
	}
	var out image.Image = img
	if upscale > 1 {
		out = imageutil.Upscale(img, upscale)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil && filepath.Dir(path) != "." {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}

func collectROMs(f cliFlags) []string {
	if f.ROMPath != "" {
		return []string{f.ROMPath}
	}
	var out []string
	entries, err := os.ReadDir(f.ROMDir)
	if err != nil {
		log.Fatalf("read romdir: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".gba") {
			out = append(out, filepath.Join(f.ROMDir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

func main() {
	f := parseFlags()
	if f.ROMPath == "" && f.ROMDir == "" {
		log.Fatal("one of -rom or -romdir is required")
	}

	var bios []byte
	if f.BIOS != "" {
		b, err := os.ReadFile(f.BIOS)
		if err != nil {
			log.Fatalf("read bios: %v", err)
		}
		bios = b
	}

	roms := collectROMs(f)
	results := make([]runResult, len(roms))

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(f.Parallel)
	for i, rom := range roms {
		i, rom := i, rom
		g.Go(func() error {
			var pngPath string
			if f.OutDir != "" {
				pngPath = filepath.Join(f.OutDir, strings.TrimSuffix(filepath.Base(rom), ".gba")+".png")
			}
			results[i] = runOne(bios, rom, f.Frames, f.Upscale, pngPath)
			return nil
		})
	}
	_ = g.Wait()

	exitCode := 0
	for _, r := range results {
		if r.Error != nil {
			log.Printf("FAIL %s: %v", r.ROM, r.Error)
			exitCode = 1
			continue
		}
		log.Printf("%s: fb_crc32=%08x fps=%.2f", r.ROM, r.CRC, r.FPS)
		if f.Expect != "" && len(roms) == 1 {
			want := strings.TrimPrefix(strings.ToLower(f.Expect), "0x")
			got := fmt.Sprintf("%08x", r.CRC)
			if got != want {
				log.Printf("FAIL %s: checksum mismatch: got %s, want %s", r.ROM, got, want)
				exitCode = 1
			}
		}
	}
	os.Exit(exitCode)
}
