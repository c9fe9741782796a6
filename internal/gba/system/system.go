// Package system wires the bus, CPU, PPU, APU, DMA controller, timer
// bank and IRQ controller into one runnable GBA, the way the teacher's
// internal/emu wires its DMG equivalents together behind a single
// Step/RunFor entry point.
package system

import (
	"bytes"
	"encoding/gob"

	"github.com/maemo-arm7/gbacore/internal/gba/apu"
	"github.com/maemo-arm7/gbacore/internal/gba/bus"
	"github.com/maemo-arm7/gbacore/internal/gba/cart"
	"github.com/maemo-arm7/gbacore/internal/gba/cpu"
	"github.com/maemo-arm7/gbacore/internal/gba/dma"
	"github.com/maemo-arm7/gbacore/internal/gba/irq"
	"github.com/maemo-arm7/gbacore/internal/gba/ppu"
	"github.com/maemo-arm7/gbacore/internal/gba/timer"
)

// Buttons mirrors the ten KEYINPUT bits, true meaning "held".
type Buttons struct {
	A, B, Select, Start   bool
	Right, Left, Up, Down bool
	L, R                  bool
}

// System is the assembled console: everything needed to load a ROM
// and run it for a given number of cycles.
type System struct {
	bus    *bus.Bus
	io     *ioPage
	cart   *cart.Cartridge
	cpu    *cpu.Core
	timers *timer.Bank
	dma    *dma.Controller
	ppu    *ppu.PPU
	apu    *apu.APU
	irqc   *irq.Controller

	keys uint16 // active-low KEYINPUT shadow

	totalCycles int64
	frameReady  bool
	overshoot   int // cycles run past the last RunFor budget, carried into the next call

	fbARGB [ppu.ScreenWidth * ppu.ScreenHeight]uint32

	audio       *audioRing
	sampleAccum int
}

// New constructs a fully wired, unpowered System. Call LoadROM before
// RunFor.
func New() *System {
	s := &System{irqc: irq.New(), audio: newAudioRing()}

	s.io = &ioPage{sys: s}
	s.bus = bus.New(s.io)
	s.cpu = cpu.New(s.bus, s.irqc)
	s.apu = apu.New()
	s.dma = dma.New(s.irqc.Raise)
	s.timers = timer.New(s.irqc.Raise, s.apuLatch)
	s.ppu = ppu.New(s.bus)

	s.apu.RequestDMA = s.dma.RequestFIFO
	s.ppu.RaiseIRQ = s.irqc.Raise
	s.ppu.NotifyHBlank = s.dma.NotifyHBlank
	s.ppu.NotifyVBlank = s.onVBlank

	s.Reset()
	return s
}

// apuLatch adapts timer.Bank's "timer N overflowed" callback to
// apu.Latch, routing through SOUNDCNT_H's actual timer-select bits
// rather than assuming FIFO A always follows timer 0 and FIFO B
// timer 1 — either FIFO can be configured off either timer.
func (s *System) apuLatch(timer int) {
	if s.apu.TimerSelect(0) == timer {
		s.apu.Latch(0)
	}
	if s.apu.TimerSelect(1) == timer {
		s.apu.Latch(1)
	}
}

func (s *System) onVBlank() {
	s.dma.NotifyVBlank()
	s.frameReady = true
}

// Reset restores every subsystem to its post-boot state, keeping the
// attached cartridge and wired callbacks.
func (s *System) Reset() {
	s.cpu.Reset()
	s.apu.Reset()
	*s.timers = timer.Bank{RaiseIRQ: s.timers.RaiseIRQ, APULatch: s.timers.APULatch}
	*s.dma = *dma.New(s.irqc.Raise)
	s.irqc.Reset()
	s.ppu.Reset()
	s.keys = 0x03FF
	s.totalCycles = 0
	s.frameReady = false
	s.overshoot = 0
	s.sampleAccum = 0
	s.audio = newAudioRing()
}

// LoadROM parses and attaches a cartridge image, auto-detecting its
// save backend from the embedded ID string.
func (s *System) LoadROM(rom []byte) error {
	c, err := cart.New(rom)
	if err != nil {
		return err
	}
	s.cart = c
	s.bus.AttachCart(c)
	return nil
}

// AttachSaveBackend overrides the cartridge's auto-detected save
// backend, for front ends that manage their own persistence.
func (s *System) AttachSaveBackend(b cart.SaveBackend) {
	if s.cart != nil {
		s.cart.AttachSave(b)
	}
}

// LoadBIOS installs a real BIOS image in place of the CPU's HLE SWI
// table.
func (s *System) LoadBIOS(data []byte) {
	s.bus.LoadBIOS(data)
}

// SetKeys updates the held-button state, reflected into KEYINPUT on
// the next read. It's a convenience wrapper
// around SetKeyState for callers that track input as named buttons
// rather than a raw KEYINPUT mask.
func (s *System) SetKeys(b Buttons) {
	var v uint16
	set := func(bit uint, held bool) {
		if !held {
			v |= 1 << bit
		}
	}
	set(0, b.A)
	set(1, b.B)
	set(2, b.Select)
	set(3, b.Start)
	set(4, b.Right)
	set(5, b.Left)
	set(6, b.Up)
	set(7, b.Down)
	set(8, b.L)
	set(9, b.R)
	s.SetKeyState(v)
}

// SetKeyState loads the raw active-low 10-bit KEYINPUT mask directly
// (bit clear = held), for a front end that already tracks input as a
// bitmask rather than named buttons.
func (s *System) SetKeyState(mask uint16) {
	s.keys = mask | 0xFC00
}

func (s *System) keyinput() uint16 { return s.keys }

// Read8/Read16/Read32/Write8/Write16/Write32 expose the bus to tooling
// that needs raw memory access outside the CPU's own fetch/load/store
// path — a debugger console, or a test harness poking I/O registers
// directly.
func (s *System) Read8(addr uint32) byte    { return s.bus.Read8(addr) }
func (s *System) Read16(addr uint32) uint16 { return s.bus.Read16(addr) }
func (s *System) Read32(addr uint32) uint32 { return s.bus.Read32(addr) }

func (s *System) Write8(addr uint32, v byte)    { s.bus.Write8(addr, v) }
func (s *System) Write16(addr uint32, v uint16) { s.bus.Write16(addr, v) }
func (s *System) Write32(addr uint32, v uint32) { s.bus.Write32(addr, v) }

// Registers returns the CPU's current general-purpose register file
// and CPSR, for a debugger to print or script against.
func (s *System) Registers() (r [16]uint32, cpsr uint32) { return s.cpu.R, s.cpu.CPSR }

// Framebuffer returns the most recently rendered frame as packed ARGB
// (0xAARRGGBB), row-major, converted on demand from the PPU's native
// BGR555 output.
func (s *System) Framebuffer() []uint32 {
	for i, px := range s.ppu.Framebuffer {
		r := uint32(px & 0x1F)
		g := uint32((px >> 5) & 0x1F)
		b := uint32((px >> 10) & 0x1F)
		s.fbARGB[i] = 0xFF000000 |
			(r<<3|r>>2)<<16 |
			(g<<3|g>>2)<<8 |
			(b<<3 | b>>2)
	}
	return s.fbARGB[:]
}

// AudioLatches returns the last latched FIFO-A/B Direct Sound samples,
// for an external mixer to combine with SOUNDCNT_H's volume/pan bits
// and resample on its own schedule; the core stops at the latch.
func (s *System) AudioLatches() (a, b int8) { return s.apu.Latches() }

// SoundControl exposes SOUNDCNT_H for an external mixer decoding
// per-channel volume and left/right routing.
func (s *System) SoundControl() uint16 { return s.apu.SoundControl() }

// TotalCycles reports the cumulative cycle count since the last Reset.
func (s *System) TotalCycles() int64 { return s.totalCycles }

// FrameReady reports and clears the "a VBlank has occurred since the
// last check" flag, for a front end pacing itself to 59.73 Hz.
func (s *System) FrameReady() bool {
	v := s.frameReady
	s.frameReady = false
	return v
}

// dmaCost estimates the bus-cycle cost of one DMA burst from the
// channel's configuration before Step clears its remaining count.
// Real hardware charges per-unit N/S costs depending on source and
// destination regions; this core instead charges a flat per-unit
// estimate (2 cycles/half-word, 4 cycles/word, FIFO bursts fixed at 4
// words), since dma.Channel keeps its live transfer progress
// unexported and Step performs an entire burst atomically per call.
func (s *System) dmaCost(ch *dma.Channel) int {
	if ch.Time == dma.Special {
		return 4 * 4
	}
	n := int(ch.Length)
	if ch.Sz == dma.Word {
		return n * 4
	}
	return n * 2
}

// RunFor advances the whole machine by at least the given number of
// CPU cycles, stepping the CPU (or a pending DMA burst) instruction by
// instruction and fanning the elapsed cycle count out to the PPU and
// timer bank after each step, mirroring the teacher's emu.Step loop
// generalized from a fixed per-instruction cost to a variable one.
// Since no single instruction or DMA burst takes exactly one cycle,
// the final step almost always runs past the requested budget; that
// excess is returned as overshoot and also carried internally so the
// next call's budget is reduced by it, keeping the long-run average
// cycle rate accurate instead of drifting upward call after call.
func (s *System) RunFor(cycles int) (overshoot int) {
	budget := cycles - s.overshoot
	for budget > 0 {
		var elapsed int
		if i := s.dma.ActiveIndex(); i >= 0 {
			elapsed = s.dmaCost(&s.dma.Ch[i])
			s.dma.Step(s.bus)
		} else {
			elapsed = s.cpu.Step()
		}

		s.ppu.Advance(elapsed)
		s.timers.Tick(elapsed)
		s.accumulateAudio(elapsed)

		s.totalCycles += int64(elapsed)
		budget -= elapsed
	}
	s.overshoot = -budget
	return s.overshoot
}

type systemState struct {
	Bus    []byte
	Apu    []byte
	IE, IF uint16
	IME    bool
	Halt   irq.Haltcnt
	Keys   uint16
	Total  int64

	Regs [16]uint32
	CPSR uint32

	DMA    [4]dmaChanState
	Timers [4]timer.Timer
}

type dmaChanState struct {
	SrcAddr, DstAddr    uint32
	Length              uint32
	Sz                  dma.Size
	SrcCtl, DstCtl      dma.AddrControl
	Time                dma.Timing
	Repeat, IRQ, Enable bool
}

// SaveState serialises WRAM/IRAM and waitstate config from
// bus.SaveState, FIFO/mixer state from apu.SaveState, and the IRQ
// registers, key state, cycle count, visible CPU registers and CPSR,
// DMA channel registers and timers via encoding/gob. It does not save
// PPU registers, VRAM/PRAM/OAM, the CPU's banked registers and SPSRs,
// or an in-progress DMA transfer.
func (s *System) SaveState() []byte {
	st := systemState{
		Bus: s.bus.SaveState(),
		Apu: s.apu.SaveState(),
		IE:  s.irqc.IE, IF: s.irqc.IF, IME: s.irqc.IME, Halt: s.irqc.Haltcnt,
		Keys:  s.keys,
		Total: s.totalCycles,
		CPSR:  s.cpu.CPSR,
	}
	st.Regs = s.cpu.R
	for i := range s.dma.Ch {
		ch := &s.dma.Ch[i]
		st.DMA[i] = dmaChanState{
			SrcAddr: ch.SrcAddr, DstAddr: ch.DstAddr, Length: ch.Length,
			Sz: ch.Sz, SrcCtl: ch.SrcCtl, DstCtl: ch.DstCtl, Time: ch.Time,
			Repeat: ch.Repeat, IRQ: ch.IRQ, Enable: ch.Enable,
		}
	}
	st.Timers = s.timers.T

	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(st)
	return buf.Bytes()
}

// LoadState restores a buffer produced by SaveState, leaving the
// System unchanged if decoding fails.
func (s *System) LoadState(data []byte) error {
	var st systemState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	s.bus.LoadState(st.Bus)
	s.apu.LoadState(st.Apu)
	s.irqc.IE, s.irqc.IF, s.irqc.IME, s.irqc.Haltcnt = st.IE, st.IF, st.IME, st.Halt
	s.keys = st.Keys
	s.totalCycles = st.Total
	s.cpu.CPSR = st.CPSR
	s.cpu.R = st.Regs
	for i := range st.DMA {
		d := st.DMA[i]
		ch := &s.dma.Ch[i]
		ch.SrcAddr, ch.DstAddr, ch.Length = d.SrcAddr, d.DstAddr, d.Length
		ch.Sz, ch.SrcCtl, ch.DstCtl, ch.Time = d.Sz, d.SrcCtl, d.DstCtl, d.Time
		ch.Repeat, ch.IRQ, ch.Enable = d.Repeat, d.IRQ, d.Enable
	}
	s.timers.T = st.Timers
	return nil
}
