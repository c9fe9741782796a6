package cpu

import "testing"

// scratchBase is a data area distinct from the code at testBase, used
// by LDM/STM as the transfer destination/source.
const scratchBase = testBase + 0x4000

func armSTM(rn uint32, rlist uint32) uint32 {
	// STMIA Rn!, {rlist}: P=0 U=1 S=0 W=1 L=0
	return 0xE << 28 |
		0b100 << 25 |
		1 << 23 |
		1 << 21 |
		rn << 16 |
		rlist
}

func armLDM(rn uint32, rlist uint32) uint32 {
	// LDMIA Rn!, {rlist}: P=0 U=1 S=0 W=1 L=1
	return 0xE << 28 |
		0b100 << 25 |
		1 << 23 |
		1 << 21 |
		1 << 20 |
		rn << 16 |
		rlist
}

// TestARMSTMStoresOriginalValueWhenRnIsLowest covers the case where the
// base register is the lowest register in the store list: it must
// store its original (pre-transfer) value.
func TestARMSTMStoresOriginalValueWhenRnIsLowest(t *testing.T) {
	c := newTestCore()
	c.R[0] = scratchBase
	c.R[1] = 0xBBBB0000
	c.R[2] = 0xCCCC0000

	c.writeARM(testBase, armSTM(0, 0b0111)) // STMIA R0!, {R0,R1,R2}
	c.Step()

	if got := c.bus.Read32(scratchBase); got != scratchBase {
		t.Fatalf("R0 (lowest in list) stored %#x, want original base %#x", got, scratchBase)
	}
	if got := c.bus.Read32(scratchBase + 4); got != 0xBBBB0000 {
		t.Fatalf("R1 stored %#x, want %#x", got, uint32(0xBBBB0000))
	}
	if got := c.bus.Read32(scratchBase + 8); got != 0xCCCC0000 {
		t.Fatalf("R2 stored %#x, want %#x", got, uint32(0xCCCC0000))
	}
	if c.R[0] != scratchBase+12 {
		t.Fatalf("R0 after writeback = %#x, want %#x", c.R[0], scratchBase+12)
	}
}

// TestARMSTMStoresUpdatedValueWhenRnIsNotLowest covers the opposite
// case: the base register appears in the list but is not the lowest
// register, so it stores the already-written-back address.
func TestARMSTMStoresUpdatedValueWhenRnIsNotLowest(t *testing.T) {
	c := newTestCore()
	c.R[0] = 0xAAAA0000
	c.R[1] = 0xBBBB0000
	c.R[2] = scratchBase // base register

	c.writeARM(testBase, armSTM(2, 0b0111)) // STMIA R2!, {R0,R1,R2}
	c.Step()

	if got := c.bus.Read32(scratchBase); got != 0xAAAA0000 {
		t.Fatalf("R0 stored %#x, want %#x", got, uint32(0xAAAA0000))
	}
	if got := c.bus.Read32(scratchBase + 4); got != 0xBBBB0000 {
		t.Fatalf("R1 stored %#x, want %#x", got, uint32(0xBBBB0000))
	}
	want := uint32(scratchBase + 12)
	if got := c.bus.Read32(scratchBase + 8); got != want {
		t.Fatalf("R2 (not lowest in list) stored %#x, want post-writeback base %#x", got, want)
	}
	if c.R[2] != want {
		t.Fatalf("R2 after writeback = %#x, want %#x", c.R[2], want)
	}
}

// TestARMLDMSuppressesWritebackWhenRnIsLoaded covers the base register
// appearing as the lowest entry in a load list: the loaded value must
// stand, not be clobbered by the back-calculated address.
func TestARMLDMSuppressesWritebackWhenRnIsLoaded(t *testing.T) {
	c := newTestCore()
	c.bus.Write32(scratchBase, 0x12345678)
	c.bus.Write32(scratchBase+4, 0x9ABCDEF0)
	c.bus.Write32(scratchBase+8, 0x55667788)
	c.R[0] = scratchBase

	c.writeARM(testBase, armLDM(0, 0b0111)) // LDMIA R0!, {R0,R1,R2}
	c.Step()

	if c.R[0] != 0x12345678 {
		t.Fatalf("R0 after LDM = %#x, want loaded value %#x", c.R[0], uint32(0x12345678))
	}
	if c.R[1] != 0x9ABCDEF0 || c.R[2] != 0x55667788 {
		t.Fatalf("R1/R2 after LDM = %#x/%#x", c.R[1], c.R[2])
	}
}

// TestARMLDMSuppressesWritebackWhenRnIsLoadedNotLowest covers Rn
// appearing in the load list at a position other than lowest: unlike
// STM, LDM writeback is suppressed regardless of Rn's position.
func TestARMLDMSuppressesWritebackWhenRnIsLoadedNotLowest(t *testing.T) {
	c := newTestCore()
	c.bus.Write32(scratchBase, 0x11111111)
	c.bus.Write32(scratchBase+4, 0x22222222)
	c.bus.Write32(scratchBase+8, 0x33333333)
	c.R[1] = scratchBase

	c.writeARM(testBase, armLDM(1, 0b0111)) // LDMIA R1!, {R0,R1,R2}
	c.Step()

	if c.R[1] != 0x22222222 {
		t.Fatalf("R1 after LDM = %#x, want loaded value %#x", c.R[1], uint32(0x22222222))
	}
	if c.R[0] != 0x11111111 || c.R[2] != 0x33333333 {
		t.Fatalf("R0/R2 after LDM = %#x/%#x", c.R[0], c.R[2])
	}
}

func thumbSTMIA(rb uint16, rlist uint16) uint16 {
	return 0xC000 | rb<<8 | rlist
}

func thumbLDMIA(rb uint16, rlist uint16) uint16 {
	return 0xC800 | rb<<8 | rlist
}

// TestThumbSTMIAWritebackOrdering mirrors the ARM STM base-register
// position rule for THUMB's LDMIA/STMIA format.
func TestThumbSTMIAWritebackOrdering(t *testing.T) {
	c := newTestCore()
	c.SetThumb(true)
	c.R[0] = 0xAAAA0000
	c.R[1] = 0xBBBB0000
	c.R[2] = scratchBase

	c.writeThumb(testBase, thumbSTMIA(2, 0b0111)) // STMIA R2!, {R0,R1,R2}
	c.Step()

	want := uint32(scratchBase + 12)
	if got := c.bus.Read32(scratchBase + 8); got != want {
		t.Fatalf("R2 (not lowest in list) stored %#x, want post-writeback base %#x", got, want)
	}
	if c.R[2] != want {
		t.Fatalf("R2 after writeback = %#x, want %#x", c.R[2], want)
	}
}

// TestThumbLDMIASuppressesWriteback covers THUMB's LDMIA base-register
// writeback suppression when Rb is itself loaded.
func TestThumbLDMIASuppressesWriteback(t *testing.T) {
	c := newTestCore()
	c.SetThumb(true)
	c.bus.Write32(scratchBase, 0x12345678)
	c.bus.Write32(scratchBase+4, 0x9ABCDEF0)
	c.bus.Write32(scratchBase+8, 0x55667788)
	c.R[0] = scratchBase

	c.writeThumb(testBase, thumbLDMIA(0, 0b0111)) // LDMIA R0!, {R0,R1,R2}
	c.Step()

	if c.R[0] != 0x12345678 {
		t.Fatalf("R0 after LDMIA = %#x, want loaded value %#x", c.R[0], uint32(0x12345678))
	}
	if c.R[1] != 0x9ABCDEF0 || c.R[2] != 0x55667788 {
		t.Fatalf("R1/R2 after LDMIA = %#x/%#x", c.R[1], c.R[2])
	}
}
