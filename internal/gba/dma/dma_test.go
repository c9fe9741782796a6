package dma

import "testing"

type fakeBus struct {
	mem    map[uint32]uint32 // word-addressed store keyed by aligned addr
	writes int               // total writes issued, including repeats to one address
}

func newFakeBus() *fakeBus { return &fakeBus{mem: map[uint32]uint32{}} }

func (f *fakeBus) Read16(addr uint32) uint16 { return uint16(f.mem[addr&^1]) }
func (f *fakeBus) Read32(addr uint32) uint32 { return f.mem[addr&^3] }
func (f *fakeBus) Write16(addr uint32, v uint16) { f.mem[addr&^1] = uint32(v); f.writes++ }
func (f *fakeBus) Write32(addr uint32, v uint32) { f.mem[addr&^3] = v; f.writes++ }

// S4 (Immediate DMA): program DMA3 with SAD=0x02000000, DAD=0x02001000,
// length=4, size=word, timing=immediate; on enable, four 4-byte
// transfers occur, DAD ends at 0x02001010, SAD at 0x02000010, enable
// clears, IF bit 0x0800 set if IRQ-enable.
func TestScenarioS4ImmediateDMA(t *testing.T) {
	var raised uint16
	c := New(func(bits uint16) { raised |= bits })
	ch := &c.Ch[3]
	ch.SrcAddr = 0x02000000
	ch.DstAddr = 0x02001000
	ch.Length = 4
	ch.Sz = Word

	b := newFakeBus()
	// CNT_H: word size (bit10), immediate timing (bits12-13=0), IRQ enable (bit14), enable (bit15)
	c.WriteControl(3, (1<<10)|(1<<14)|(1<<15))

	if c.ActiveIndex() != 3 {
		t.Fatalf("channel 3 should be active")
	}
	c.Step(b)

	if ch.Enable {
		t.Fatalf("non-repeat channel must clear enable on completion")
	}
	if c.ActiveIndex() != -1 {
		t.Fatalf("active index should be cleared after completion")
	}
	if raised&0x0800 == 0 {
		t.Fatalf("expected DMA3 IRQ bit 0x0800, got %#x", raised)
	}
	if got := ch.curSrc; got != 0x02000010 {
		t.Fatalf("curSrc = %#x, want 0x02000010", got)
	}
	if got := ch.curDst; got != 0x02001010 {
		t.Fatalf("curDst = %#x, want 0x02001010", got)
	}
}

// Invariant 6: for every enabled DMA with size S and length L, the
// number of destination writes issued equals L (or 4 for a FIFO DMA).
func TestInvariant6DestinationWriteCount(t *testing.T) {
	c := New(nil)
	ch := &c.Ch[0]
	ch.SrcAddr = 0x08000000
	ch.DstAddr = 0x03000000
	ch.Length = 6
	ch.Sz = Half

	b := newFakeBus()
	c.WriteControl(0, 1<<15) // half-word, immediate, enable only
	before := len(b.mem)
	c.Step(b)
	written := len(b.mem) - before
	if written != 6 {
		t.Fatalf("destination writes = %d, want 6", written)
	}
}

func TestPriorityInterleave(t *testing.T) {
	c := New(nil)
	c.Ch[2].SrcAddr, c.Ch[2].DstAddr, c.Ch[2].Length = 0x08000000, 0x02000000, 100
	c.WriteControl(2, 1<<15)
	if c.ActiveIndex() != 2 {
		t.Fatalf("channel 2 should be active")
	}
	c.Ch[0].SrcAddr, c.Ch[0].DstAddr, c.Ch[0].Length = 0x08000000, 0x03000000, 1
	c.WriteControl(0, 1<<15)
	if c.ActiveIndex() != 0 {
		t.Fatalf("higher priority channel 0 should preempt channel 2")
	}
}

func TestRepeatReloadsLengthAndReloadableDest(t *testing.T) {
	c := New(nil)
	ch := &c.Ch[1]
	ch.SrcAddr = 0x06000000
	ch.DstAddr = 0x040000A0
	ch.Length = 4
	ch.Sz = Word
	// repeat (bit9), dst increment-reload (dstctl=3 -> bits5-6), immediate
	c.WriteControl(1, (1<<9)|(3<<5)|(1<<15))
	b := newFakeBus()
	c.Step(b)
	if ch.Enable == false {
		t.Fatalf("repeat channel must stay enabled")
	}
	if ch.remaining != 4 {
		t.Fatalf("remaining = %d, want reloaded 4", ch.remaining)
	}
	if ch.curDst != ch.DstAddr {
		t.Fatalf("curDst = %#x, want reloaded %#x", ch.curDst, ch.DstAddr)
	}
}

func TestFIFORequestTransfersFourWordsRegardlessOfLength(t *testing.T) {
	c := New(nil)
	ch := &c.Ch[1]
	ch.SrcAddr = 0x06000000
	ch.Length = 1 // programmed length irrelevant for FIFO bursts
	ch.Sz = Half
	c.WriteControl(1, (3<<12)|(1<<15)) // special timing, enable
	c.RequestFIFO(1)

	b := newFakeBus()
	before := b.writes
	c.Step(b)
	if b.writes-before != 4 {
		t.Fatalf("FIFO DMA must always write 4 words, wrote %d", b.writes-before)
	}
}
