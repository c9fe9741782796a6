// Package ppu implements the GBA's scanline picture processor: the
// SCANLINE/HBLANK/VBLANK phase machine, four background layers (text,
// affine, and the three bitmap modes), a 128-entry sprite rasteriser,
// window masking, and the alpha/brightness colour-effect compositor.
//
// Like the teacher's internal/ppu, register state lives on the PPU
// itself and is exposed through CPU-facing register accessors; unlike
// the teacher's per-dot Tick, the GBA core renders a whole scanline at
// once at the HBlank boundary, matching the teacher's fetcher/FIFO
// split generalised from 2bpp DMG tiles to 4bpp/8bpp GBA tiles.
package ppu

import "github.com/maemo-arm7/gbacore/internal/gba/bus"

// Phase is the three-state LCD controller cycle from spec.md §4.6.
type Phase int

const (
	PhaseScanline Phase = iota // HDraw: 960 cycles
	PhaseHBlank                // 272 cycles
	PhaseVBlank                // 68 lines x 1232 cycles
)

const (
	ScreenWidth  = 240
	ScreenHeight = 160

	cyclesHDraw   = 960
	cyclesHBlank  = 272
	cyclesPerLine = cyclesHDraw + cyclesHBlank
	totalLines    = 228
)

// InterruptRequester mirrors the teacher's ppu.InterruptRequester
// callback shape, generalised to the GBA's 16-bit IF bitmask.
type InterruptRequester func(bits uint16)

// PPU owns the LCD I/O register block (DISPCNT..BLDY) and renders
// directly from the shared bus's VRAM/OAM/PRAM arrays.
type PPU struct {
	bus *bus.Bus

	dispcnt  uint16
	dispstat uint16
	bgcnt    [4]uint16
	bghofs   [4]uint16
	bgvofs   [4]uint16

	bgRef  [2]affineRef // BG2/BG3 reference points (X/Y), index 0=BG2
	bgP    [2][4]int16  // PA,PB,PC,PD per affine BG

	win0h, win1h uint16
	win0v, win1v uint16
	winin, winout uint16
	mosaic        uint16
	bldcnt        uint16
	bldalpha      uint16
	bldy          uint16

	phase Phase
	dot   int
	ly    int

	internalRef [2]affineRef // live affine accumulator, reloaded each VBlank/line per mode

	Framebuffer [ScreenWidth * ScreenHeight]uint16 // BGR555

	RaiseIRQ      InterruptRequester
	NotifyHBlank  func()
	NotifyVBlank  func()
}

type affineRef struct {
	x, y int32 // 20.8 fixed point, sign-extended from 28 bits
}

// New wires a PPU to the shared bus.
func New(b *bus.Bus) *PPU {
	return &PPU{bus: b}
}

// Reset restores post-boot register state.
func (p *PPU) Reset() {
	*p = PPU{bus: p.bus, RaiseIRQ: p.RaiseIRQ, NotifyHBlank: p.NotifyHBlank, NotifyVBlank: p.NotifyVBlank}
}

// Line reports the current VCOUNT value.
func (p *PPU) Line() int { return p.ly }

// CurrentPhase reports the current LCD phase.
func (p *PPU) CurrentPhase() Phase { return p.phase }

// Deadline returns the number of cycles remaining until the next phase
// transition. Nothing in this module calls it.
func (p *PPU) Deadline() int {
	switch p.phase {
	case PhaseScanline:
		return cyclesHDraw - p.dot
	case PhaseHBlank:
		return cyclesPerLine - p.dot
	default: // VBlank: dot counts within the current VBlank line
		return (totalLines-p.ly)*cyclesPerLine - p.dot
	}
}

// Advance runs the phase state machine forward by elapsed cycles,
// performing scanline rendering and IRQ/DMA signalling at each
// boundary crossing. Called by System.RunFor after every CPU step or
// DMA burst.
func (p *PPU) Advance(elapsed int) {
	p.dot += elapsed
	for {
		switch p.phase {
		case PhaseScanline:
			if p.dot < cyclesHDraw {
				return
			}
			p.dot -= cyclesHDraw
			p.renderScanline()
			p.phase = PhaseHBlank
			p.setHBlankFlag(true)
			if p.dispstat&(1<<4) != 0 && p.RaiseIRQ != nil {
				p.RaiseIRQ(1 << 1) // HBlank
			}
			if p.NotifyHBlank != nil {
				p.NotifyHBlank()
			}
		case PhaseHBlank:
			if p.dot < cyclesHBlank {
				return
			}
			p.dot -= cyclesHBlank
			p.setHBlankFlag(false)
			p.ly++
			p.updateVCountFlag()
			if p.ly >= ScreenHeight {
				p.phase = PhaseVBlank
				p.setVBlankFlag(true)
				if p.dispstat&(1<<3) != 0 && p.RaiseIRQ != nil {
					p.RaiseIRQ(1 << 0) // VBlank
				}
				if p.NotifyVBlank != nil {
					p.NotifyVBlank()
				}
			} else {
				p.phase = PhaseScanline
			}
		case PhaseVBlank:
			if p.dot < cyclesPerLine {
				return
			}
			p.dot -= cyclesPerLine
			p.ly++
			p.updateVCountFlag()
			if p.ly >= totalLines {
				p.ly = 0
				p.setVBlankFlag(false)
				p.phase = PhaseScanline
				p.resetAffineReferences()
			}
		}
	}
}

func (p *PPU) setHBlankFlag(v bool) {
	if v {
		p.dispstat |= 1 << 1
	} else {
		p.dispstat &^= 1 << 1
	}
}

func (p *PPU) setVBlankFlag(v bool) {
	if v {
		p.dispstat |= 1 << 0
	} else {
		p.dispstat &^= 1 << 0
	}
}

func (p *PPU) updateVCountFlag() {
	lyc := byte(p.dispstat >> 8)
	if byte(p.ly) == lyc {
		p.dispstat |= 1 << 2
		if p.dispstat&(1<<5) != 0 && p.RaiseIRQ != nil {
			p.RaiseIRQ(1 << 2) // VCounter match
		}
	} else {
		p.dispstat &^= 1 << 2
	}
}
