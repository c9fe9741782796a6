package bus

import (
	"testing"

	"github.com/maemo-arm7/gbacore/internal/gba/cart"
)

type stubIO struct {
	mem map[uint32]byte
}

func newStubIO() *stubIO { return &stubIO{mem: map[uint32]byte{}} }

func (s *stubIO) ReadIO(addr uint32) byte     { return s.mem[addr] }
func (s *stubIO) WriteIO(addr uint32, v byte) { s.mem[addr] = v }

func newTestBus() (*Bus, *stubIO) {
	io := newStubIO()
	b := New(io)
	c, _ := cart.New(make([]byte, 0x1000))
	b.AttachCart(c)
	return b, io
}

func TestWRAMMirrorAndAccess(t *testing.T) {
	b, _ := newTestBus()
	b.Write8(0x02000010, 0x42)
	if v := b.Read8(0x02000010); v != 0x42 {
		t.Fatalf("Read8 = %#x, want 0x42", v)
	}
	// mirrored every 256 KiB
	if v := b.Read8(0x02040010); v != 0x42 {
		t.Fatalf("mirrored Read8 = %#x, want 0x42", v)
	}
}

// Round-trip law: PRAM byte-write-then-byte-read returns the
// duplicated value, since an 8-bit write becomes a half-word write of
// the duplicated byte.
func TestPRAMByteWriteDuplicates(t *testing.T) {
	b, _ := newTestBus()
	b.Write8(0x05000010, 0x3C)
	if v := b.Read16(0x05000010); v != 0x3C3C {
		t.Fatalf("Read16 after byte write = %#x, want 0x3C3C", v)
	}
}

// VRAM: 8-bit writes to BG VRAM (below 0x10000 offset) duplicate; to
// OBJ VRAM they're ignored.
func TestVRAMByteWriteRules(t *testing.T) {
	b, _ := newTestBus()
	b.Write8(0x06000010, 0x55)
	if v := b.Read16(0x06000010); v != 0x5555 {
		t.Fatalf("BG VRAM byte write not duplicated: %#x", v)
	}
	b.Write8(0x06010100, 0xAA)
	if v := b.Read8(0x06010100); v != 0 {
		t.Fatalf("OBJ VRAM byte write should be ignored, got %#x", v)
	}
}

func TestVRAMMirrorWraps(t *testing.T) {
	b, _ := newTestBus()
	b.Write16(0x06010000, 0x1234) // offset 0x10000
	if v := b.Read16(0x06018000); v != 0x1234 {
		t.Fatalf("0x18000 should mirror 0x10000, got %#x", v)
	}
}

func TestOAMByteWritesIgnored(t *testing.T) {
	b, _ := newTestBus()
	b.Write8(0x07000000, 0xFF)
	if v := b.Read8(0x07000000); v != 0 {
		t.Fatalf("OAM 8-bit write should be ignored, got %#x", v)
	}
	b.Write16(0x07000000, 0x1234)
	if v := b.Read16(0x07000000); v != 0x1234 {
		t.Fatalf("OAM 16-bit write should work, got %#x", v)
	}
}

// SRAM byte-write-then-word-read returns the byte broadcast across all
// lanes.
func TestSRAMByteBroadcast(t *testing.T) {
	b, _ := newTestBus()
	c, _ := cart.New(make([]byte, 0x1000))
	c.AttachSave(cart.NewMemSave(0x10000))
	b.AttachCart(c)

	b.Write8(0x0E000000, 0x7E)
	if v := b.Read8(0x0E000000); v != 0x7E {
		t.Fatalf("SRAM byte read = %#x, want 0x7E", v)
	}
	if v := b.Read32(0x0E000000); v != 0x7E7E7E7E {
		t.Fatalf("SRAM word read = %#x, want 0x7E7E7E7E", v)
	}
}

func TestUnmappedReadReturnsZero(t *testing.T) {
	b, _ := newTestBus()
	if v := b.Read8(0x01000000); v != 0 {
		t.Fatalf("region 0x01 read = %#x, want 0", v)
	}
}

func TestIOMirrorAt0800(t *testing.T) {
	b, _ := newTestBus()
	b.Write8(0x04000800, 0x34)
	if v := b.Read8(0x04FF0800); v != 0x34 {
		t.Fatalf("expected 0x04xx0800 to mirror 0x04000800, got %#x", v)
	}
}

func TestWaitstateRegionsFixedOneCycle(t *testing.T) {
	b, _ := newTestBus()
	for _, nibble := range []uint32{0x0, 0x1, 0x3, 0x4, 0x7} {
		addr := nibble << 24
		if got := b.Cycles(addr, 16, NonSequential); got != 1 {
			t.Fatalf("region %#x cost = %d, want 1", nibble, got)
		}
	}
}

func TestWRAMWaitstateCosts(t *testing.T) {
	b, _ := newTestBus()
	if got := b.Cycles(0x02000000, 16, NonSequential); got != 3 {
		t.Fatalf("WRAM 16-bit cost = %d, want 3", got)
	}
	if got := b.Cycles(0x02000000, 32, NonSequential); got != 6 {
		t.Fatalf("WRAM 32-bit cost = %d, want 6", got)
	}
}

func TestROMWaitstateRecomputesOnWAITCNTChange(t *testing.T) {
	b, _ := newTestBus()
	before := b.Cycles(0x08000000, 16, NonSequential)
	b.WriteWAITCNT(0xFFFF)
	after := b.Cycles(0x08000000, 16, NonSequential)
	if before == after {
		t.Fatalf("expected waitstate cost to change after WAITCNT write")
	}
}
