// Package apu implements the GBA's two Direct Sound (Direct Memory
// Access FIFO) audio channels described in spec.md §4.7: a pair of
// 32-byte ring buffers fed by CPU/DMA writes and drained by timer
// overflow into per-channel sample latches. Mixing those latches into
// a final stereo signal is left to the front end; see SoundControl
// and the package's Latches accessor.
package apu

import (
	"bytes"
	"encoding/gob"
)

// Register offsets relative to 0x04000000.
const (
	regSOUNDCNT_H = 0x82
	regFIFO_A     = 0xA0
	regFIFO_B     = 0xA4
)

// APU owns the FIFO-A/B ring buffers and the SOUNDCNT_H mixer bits
// that gate them. PSG channels 1-4 are out of scope (see DESIGN.md);
// only the two Direct Sound channels the GBA's commercial library
// relies on for streamed audio are modelled.
type APU struct {
	fifoA, fifoB fifo
	latchA       int8
	latchB       int8

	soundcntH uint16

	// RequestDMA is called when a FIFO drops to 16 or fewer bytes,
	// mirroring the hardware's DMA-request-on-half-empty behaviour;
	// wired by System to dma.Controller.RequestFIFO.
	RequestDMA func(channel int)
}

// New returns an APU with empty FIFOs.
func New() *APU {
	return &APU{}
}

// Reset clears both FIFOs and the mixer register, keeping the wired
// RequestDMA callback.
func (a *APU) Reset() {
	*a = APU{RequestDMA: a.RequestDMA}
}

// WriteFIFO appends one PCM byte to channel 0 (FIFO A) or 1 (FIFO B),
// dropping the oldest sample if the queue is already full — matching
// real hardware, which silently overwrites rather than blocking.
func (a *APU) WriteFIFO(channel int, sample byte) {
	q := a.queue(channel)
	if !q.Push(int8(sample)) {
		q.Pop()
		q.Push(int8(sample))
	}
}

// Latch pops the next sample for the given channel (0=A, 1=B),
// requesting a DMA refill once the queue drops to half capacity or
// below. Called by timer.Bank.overflow on timer 0/1 rollover.
func (a *APU) Latch(channel int) int8 {
	q := a.queue(channel)
	if v, ok := q.Pop(); ok {
		a.setLatch(channel, v)
	}
	if q.Len() <= 16 && a.RequestDMA != nil {
		a.RequestDMA(channel)
	}
	return a.getLatch(channel)
}

func (a *APU) queue(channel int) *fifo {
	if channel == 0 {
		return &a.fifoA
	}
	return &a.fifoB
}

func (a *APU) setLatch(channel int, v int8) {
	if channel == 0 {
		a.latchA = v
	} else {
		a.latchB = v
	}
}

func (a *APU) getLatch(channel int) int8 {
	if channel == 0 {
		return a.latchA
	}
	return a.latchB
}

// Latches returns the most recently latched FIFO-A/B samples, for a
// front end to pull and mix/resample on its own schedule.
func (a *APU) Latches() (a0, b0 int8) { return a.latchA, a.latchB }

// SoundControl returns the raw SOUNDCNT_H value, for an external mixer
// to decode volume and left/right routing from without the core
// performing that mixing itself.
func (a *APU) SoundControl() uint16 { return a.soundcntH }

// TimerSelect reports which timer (0 or 1) drains the given channel's
// FIFO, per SOUNDCNT_H bits 10/14.
func (a *APU) TimerSelect(channel int) int {
	if channel == 0 {
		if a.soundcntH&(1<<10) != 0 {
			return 1
		}
		return 0
	}
	if a.soundcntH&(1<<14) != 0 {
		return 1
	}
	return 0
}

// ReadRegister answers an 8-bit CPU read within the sound I/O block.
func (a *APU) ReadRegister(off uint32) byte {
	switch {
	case off == regSOUNDCNT_H:
		return byte(a.soundcntH)
	case off == regSOUNDCNT_H+1:
		return byte(a.soundcntH >> 8)
	default:
		return 0 // FIFO data registers are write-only
	}
}

// WriteRegister answers an 8-bit CPU write within the sound I/O block.
func (a *APU) WriteRegister(off uint32, value byte) {
	switch {
	case off == regSOUNDCNT_H:
		a.soundcntH = a.soundcntH&0xFF00 | uint16(value)
		a.applyResetBits()
	case off == regSOUNDCNT_H+1:
		a.soundcntH = a.soundcntH&0x00FF | uint16(value)<<8
		a.applyResetBits()
	case off >= regFIFO_A && off < regFIFO_A+4:
		a.WriteFIFO(0, value)
	case off >= regFIFO_B && off < regFIFO_B+4:
		a.WriteFIFO(1, value)
	}
}

// applyResetBits clears FIFO A/B when their SOUNDCNT_H reset bit
// (11/15) is written as 1; real hardware self-clears the bit.
func (a *APU) applyResetBits() {
	if a.soundcntH&(1<<11) != 0 {
		a.fifoA.Clear()
		a.soundcntH &^= 1 << 11
	}
	if a.soundcntH&(1<<15) != 0 {
		a.fifoB.Clear()
		a.soundcntH &^= 1 << 15
	}
}

type apuState struct {
	FifoA, FifoB           [32]int8
	HeadA, TailA, SizeA    int
	HeadB, TailB, SizeB    int
	LatchA, LatchB         int8
	SoundCNTH              uint16
}

// SaveState serialises FIFO contents, latches and SOUNDCNT_H with
// encoding/gob, matching the teacher's apu.SaveState/LoadState pair.
func (a *APU) SaveState() []byte {
	var buf bytes.Buffer
	s := apuState{
		FifoA: a.fifoA.buf, HeadA: a.fifoA.head, TailA: a.fifoA.tail, SizeA: a.fifoA.size,
		FifoB: a.fifoB.buf, HeadB: a.fifoB.head, TailB: a.fifoB.tail, SizeB: a.fifoB.size,
		LatchA: a.latchA, LatchB: a.latchB,
		SoundCNTH: a.soundcntH,
	}
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

// LoadState restores a buffer produced by SaveState, leaving the APU
// unchanged if decoding fails.
func (a *APU) LoadState(data []byte) {
	var s apuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	a.fifoA = fifo{buf: s.FifoA, head: s.HeadA, tail: s.TailA, size: s.SizeA}
	a.fifoB = fifo{buf: s.FifoB, head: s.HeadB, tail: s.TailB, size: s.SizeB}
	a.latchA, a.latchB = s.LatchA, s.LatchB
	a.soundcntH = s.SoundCNTH
}
