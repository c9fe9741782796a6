// Package cpu implements the ARM7TDMI interpreter core: banked
// registers, CPSR/SPSR, the ARM and THUMB instruction sets, condition
// evaluation, and IRQ/SWI exception entry, per spec.md §3.
package cpu

import (
	"github.com/maemo-arm7/gbacore/internal/gba/bus"
	"github.com/maemo-arm7/gbacore/internal/gba/irq"
)

// Core is the ARM7TDMI interpreter. It holds no scheduling state of
// its own; System.RunFor drives it one instruction at a time and
// advances the PPU and timers by the returned cycle cost, the same way the
// teacher's emu.Emulator drives its DMG CPU.Step in a frame loop.
type Core struct {
	Regs
	pipe pipeline

	bus  *bus.Bus
	irqc *irq.Controller

	cyc int // running cycle total for the in-flight Step call

	// sequential tracks whether the next bus access in program order
	// continues the current burst (S-cycle) or restarts it (N-cycle),
	// per spec.md §2's N/S access-kind distinction.
	sequential bool

	haltBug bool
}

// New wires a Core to its bus and interrupt controller.
func New(b *bus.Bus, irqc *irq.Controller) *Core {
	c := &Core{bus: b, irqc: irqc}
	c.Reset()
	return c
}

// Reset puts the core into the post-BIOS-handoff state real GBA
// software expects when no BIOS image is supplied: SYS mode, IRQs
// unmasked, SP banked per mode per the standard BIOS stack layout, and
// PC at the cartridge entry point (0x08000000).
func (c *Core) Reset() {
	c.Regs = Regs{}
	c.CPSR = uint32(ModeSYS)
	c.curBank = bankUSR

	c.bank[bankSVC][5] = 0x03007FE0
	c.bank[bankIRQ][5] = 0x03007FA0
	c.R[13] = 0x03007F00
	c.R[15] = 0x08000000
	c.SetThumb(false)
	c.pipe.flush()
	c.sequential = false
}

// reg reads Rn with the PC-is-ahead-by-a-pipeline-stage rule applied
// to R15 (spec.md §3).
func (c *Core) reg(n int) uint32 {
	if n == 15 {
		if c.Thumb() {
			return c.R[15] + 2
		}
		return c.R[15] + 4
	}
	return c.R[n]
}

func (c *Core) setReg(n int, v uint32) {
	if n == 15 {
		if c.Thumb() {
			c.flushThumb(v &^ 1)
		} else {
			c.flushARM(v &^ 3)
		}
		return
	}
	c.R[n] = v
}

func (c *Core) flushARM(target uint32) {
	c.R[15] = target
	c.pipe.flush()
	c.sequential = false
	c.cyc += 2*c.bus.Cycles(target, 32, bus.Sequential) + c.bus.Cycles(target, 32, bus.NonSequential)
}

func (c *Core) flushThumb(target uint32) {
	c.R[15] = target
	c.pipe.flush()
	c.sequential = false
	c.cyc += 2*c.bus.Cycles(target, 16, bus.Sequential) + c.bus.Cycles(target, 16, bus.NonSequential)
}

func (c *Core) fetchKind() bus.AccessKind {
	if c.sequential {
		return bus.Sequential
	}
	return bus.NonSequential
}

func (c *Core) busRead8(addr uint32, kind bus.AccessKind) byte {
	c.cyc += c.bus.Cycles(addr, 8, kind)
	return c.bus.Read8(addr)
}
func (c *Core) busRead16(addr uint32, kind bus.AccessKind) uint16 {
	c.cyc += c.bus.Cycles(addr, 16, kind)
	return c.bus.Read16(addr)
}
func (c *Core) busRead32(addr uint32, kind bus.AccessKind) uint32 {
	c.cyc += c.bus.Cycles(addr, 32, kind)
	return c.bus.Read32(addr)
}
func (c *Core) busWrite8(addr uint32, v byte, kind bus.AccessKind) {
	c.cyc += c.bus.Cycles(addr, 8, kind)
	c.bus.Write8(addr, v)
}
func (c *Core) busWrite16(addr uint32, v uint16, kind bus.AccessKind) {
	c.cyc += c.bus.Cycles(addr, 16, kind)
	c.bus.Write16(addr, v)
}
func (c *Core) busWrite32(addr uint32, v uint32, kind bus.AccessKind) {
	c.cyc += c.bus.Cycles(addr, 32, kind)
	c.bus.Write32(addr, v)
}

func (c *Core) internalCycles(n int) { c.cyc += n }

// Step executes exactly one instruction (or, when an IRQ is taken, only
// the exception entry, leaving PC at the vector; or, while
// halted/stopped, one tick of idle time) and returns its cycle cost.
func (c *Core) Step() int {
	c.cyc = 0

	if c.irqc.Haltcnt != irq.Run {
		// Raise/WriteIE/WriteIME already release HALT the instant a
		// pending+enabled interrupt appears; Step just idles otherwise.
		return 1
	}

	if c.irqc.ShouldEnterException(c.IRQDisabled()) {
		c.enterIRQ()
		return c.cyc
	}

	if c.Thumb() {
		c.stepThumb()
	} else {
		c.stepARM()
	}

	if c.cyc <= 0 {
		c.cyc = 1
	}
	return c.cyc
}

func (c *Core) stepARM() {
	pc := c.R[15]
	op := c.busRead32(pc, c.fetchKind())
	c.sequential = true
	c.R[15] = pc + 4

	if !c.passCond(cond(op>>28&0xF)) {
		return
	}
	c.executeARM(op)
}

func (c *Core) stepThumb() {
	pc := c.R[15]
	op := c.busRead16(pc, c.fetchKind())
	c.sequential = true
	c.R[15] = pc + 2
	c.executeThumb(op)
}

// enterException performs the standard ARM exception-entry sequence:
// save CPSR to the target mode's SPSR, switch mode, save the adjusted
// return address to LR, force ARM state, mask IRQs (and FIQs for
// Reset/FIQ only), and branch to the vector.
func (c *Core) enterException(m Mode, vector, lrValue uint32, maskFIQ bool) {
	savedCPSR := c.CPSR
	thumb := c.Thumb()
	c.SetMode(m)
	c.SetSPSR(savedCPSR)
	c.R[14] = lrValue
	c.CPSR |= flagI
	if maskFIQ {
		c.CPSR |= flagF
	}
	c.SetThumb(false)
	_ = thumb
	c.flushARM(vector)
}

// enterIRQ honors spec.md §5's IRQ-entry timing. c.R[15] already holds
// the address of the not-yet-fetched next instruction (this check runs
// before that instruction's fetch); the IRQ handler resumes there via
// "SUBS PC,R14,#4", so LR is that address plus 4, uniformly regardless
// of the interrupted code's instruction state.
func (c *Core) enterIRQ() {
	c.enterException(ModeIRQ, 0x18, c.R[15]+4, false)
}

// enterSWI is invoked from inside an SWI instruction's execute, after
// R15 has already advanced past it, so no further offset is needed:
// the handler resumes via a plain "MOVS PC,R14".
func (c *Core) enterSWI() {
	c.enterException(ModeSVC, 0x08, c.R[15], false)
}

func (c *Core) enterUndefined() {
	c.enterException(ModeUND, 0x04, c.R[15]+4, false)
}
