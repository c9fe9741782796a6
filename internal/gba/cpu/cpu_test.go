package cpu

import (
	"testing"

	"github.com/maemo-arm7/gbacore/internal/gba/bus"
	"github.com/maemo-arm7/gbacore/internal/gba/cart"
	"github.com/maemo-arm7/gbacore/internal/gba/irq"
)

type stubIO struct{ mem map[uint32]byte }

func (s *stubIO) ReadIO(addr uint32) byte     { return s.mem[addr] }
func (s *stubIO) WriteIO(addr uint32, v byte) { s.mem[addr] = v }

const testBase = 0x02000000 // EWRAM: writable, so test programs can live there

func newTestCore() *Core {
	io := &stubIO{mem: map[uint32]byte{}}
	b := bus.New(io)
	c, _ := cart.New(make([]byte, 0x1000))
	b.AttachCart(c)
	irqc := irq.New()
	core := New(b, irqc)
	core.R[15] = testBase
	return core
}

func (c *Core) writeARM(addr uint32, op uint32) {
	c.bus.Write32(addr, op)
}

func (c *Core) writeThumb(addr uint32, op uint16) {
	c.bus.Write16(addr, op)
}

// TestModeBankingIsolatesR13R14 covers invariant 1: switching to FIQ
// and back preserves USR's R13/R14 independent of FIQ's banked copies.
func TestModeBankingIsolatesR13R14(t *testing.T) {
	c := newTestCore()
	c.R[13] = 0x03007F00
	c.SetMode(ModeFIQ)
	c.R[13] = 0xDEADBEEF
	c.SetMode(ModeSYS)
	if c.R[13] != 0x03007F00 {
		t.Fatalf("USR R13 clobbered by FIQ bank: got %#x", c.R[13])
	}
	c.SetMode(ModeFIQ)
	if c.R[13] != 0xDEADBEEF {
		t.Fatalf("FIQ R13 not preserved across mode switch: got %#x", c.R[13])
	}
}

func TestUSRAndSYSShareNoSPSR(t *testing.T) {
	c := newTestCore()
	if c.HasSPSR() {
		t.Fatalf("SYS mode should have no SPSR")
	}
}

func TestConditionCodesEQNE(t *testing.T) {
	c := newTestCore()
	c.SetNZCV(false, true, false, false)
	if !c.passCond(condEQ) || c.passCond(condNE) {
		t.Fatalf("EQ/NE evaluation wrong for Z=1")
	}
}

func TestConditionGTUsesNandV(t *testing.T) {
	c := newTestCore()
	c.SetNZCV(false, false, false, false) // N=0,Z=0,V=0 -> GT true
	if !c.passCond(condGT) {
		t.Fatalf("GT should pass when Z=0 and N==V")
	}
}

// TestARMDataProcessingMOVSImmediate exercises the shifter-operand +
// flag path for a simple MOVS Rd, #imm.
func TestARMDataProcessingMOVSImmediate(t *testing.T) {
	c := newTestCore()
	// MOVS R0, #0 -> sets Z
	c.writeARM(testBase, 0xE3B00000)
	c.Step()
	if c.R[0] != 0 || !c.Z() {
		t.Fatalf("MOVS #0: R0=%#x Z=%v", c.R[0], c.Z())
	}
}

// TestARMAddSetsCarryOnOverflow exercises add32's carry detection via
// ADDS R0, R1, R2 with operands that overflow 32 bits.
func TestARMAddSetsCarryOnOverflow(t *testing.T) {
	c := newTestCore()
	c.R[1] = 0xFFFFFFFF
	c.R[2] = 0x2
	// ADDS R0, R1, R2
	c.writeARM(testBase, 0xE0910002)
	c.Step()
	if c.R[0] != 1 || !c.C() {
		t.Fatalf("ADDS overflow: R0=%#x C=%v", c.R[0], c.C())
	}
}

// TestARMBranchLinkSetsLR covers BL's return-address bookkeeping.
func TestARMBranchLinkSetsLR(t *testing.T) {
	c := newTestCore()
	c.writeARM(testBase, 0xEB000000) // BL +0
	c.Step()
	if c.R[14] != testBase+4 {
		t.Fatalf("LR after BL = %#x, want %#x", c.R[14], testBase+4)
	}
	if c.R[15] != testBase+8 {
		t.Fatalf("PC after BL = %#x, want branch target %#x", c.R[15], testBase+8)
	}
}

// TestThumbMovImmediateAndAdd covers format-3 MOV/ADD immediate.
func TestThumbMovImmediateAndAdd(t *testing.T) {
	c := newTestCore()
	c.SetThumb(true)
	c.writeThumb(testBase, 0x2005)   // MOV R0, #5
	c.writeThumb(testBase+2, 0x3003) // ADD R0, #3
	c.Step()
	c.Step()
	if c.R[0] != 8 {
		t.Fatalf("R0 = %d, want 8", c.R[0])
	}
}

// TestThumbBranchLinkLongForm covers the two-halfword BL encoding.
func TestThumbBranchLinkLongForm(t *testing.T) {
	c := newTestCore()
	c.SetThumb(true)
	c.writeThumb(testBase, 0xF000)     // BL high half, offset 0
	c.writeThumb(testBase+2, 0xF801)   // BL low half, offset 1 (word 2)
	c.Step()
	c.Step()
	if c.R[15] != testBase+6 {
		t.Fatalf("PC after BL = %#x, want %#x", c.R[15], testBase+6)
	}
	if c.R[14]&1 == 0 {
		t.Fatalf("LR after THUMB BL must have bit0 set")
	}
}

// TestIRQEntrySavesCPSRAndMasksIRQ exercises scenario-style IRQ entry:
// a pending+enabled interrupt with IME set diverts the next Step into
// the IRQ vector, banks SPSR_irq, and masks further IRQs.
func TestIRQEntrySavesCPSRAndMasksIRQ(t *testing.T) {
	c := newTestCore()
	c.writeARM(testBase, 0xE1A00000) // MOV R0,R0 (NOP) at entry
	irqc := c.irqc
	irqc.WriteIE(irq.VBlank)
	irqc.WriteIME(1)
	irqc.Raise(irq.VBlank)

	savedCPSR := c.CPSR
	c.Step()

	if c.Mode() != ModeIRQ {
		t.Fatalf("mode after IRQ entry = %v, want IRQ", c.Mode())
	}
	if !c.IRQDisabled() {
		t.Fatalf("IRQ entry must set I bit")
	}
	if c.R[15] != 0x18 {
		t.Fatalf("PC after IRQ entry = %#x, want vector 0x18", c.R[15])
	}
	if c.SPSR() != savedCPSR {
		t.Fatalf("SPSR_irq = %#x, want saved CPSR %#x", c.SPSR(), savedCPSR)
	}
}

func TestHLEDivBasic(t *testing.T) {
	c := newTestCore()
	c.R[0] = 10
	c.R[1] = 3
	c.hleDiv()
	if c.R[0] != 3 || c.R[1] != 1 {
		t.Fatalf("Div(10,3) = (%d,%d), want (3,1)", c.R[0], c.R[1])
	}
}

func TestHLECpuSetWordFill(t *testing.T) {
	c := newTestCore()
	c.R[0] = testBase
	c.bus.Write32(testBase, 0xCAFEBABE)
	c.R[1] = testBase + 0x100
	c.R[2] = 4 | (1 << 26) | (1 << 24) // 4 words, 32-bit, fixed source (fill)
	c.hleCpuSet()
	for i := uint32(0); i < 4; i++ {
		if v := c.bus.Read32(testBase + 0x100 + i*4); v != 0xCAFEBABE {
			t.Fatalf("CpuSet fill word %d = %#x, want 0xCAFEBABE", i, v)
		}
	}
}
