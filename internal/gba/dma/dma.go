// Package dma implements the four prioritised GBA DMA channels
// described in spec.md §4.5: address-control modes, timing modes,
// repeat/reload, and priority-based bus-stealing arbitration.
package dma

import "github.com/maemo-arm7/gbacore/internal/gba/irq"

// AddrControl selects how a channel's source/destination pointer moves
// after each unit transfer.
type AddrControl int

const (
	Increment AddrControl = iota
	Decrement
	Fixed
	IncrementReload // destination only
)

// Timing selects when a channel becomes runnable.
type Timing int

const (
	Immediate Timing = iota
	VBlankTiming
	HBlankTiming
	Special
)

// Size is the per-unit transfer width.
type Size int

const (
	Half Size = iota
	Word
)

var irqBits = [4]uint16{irq.DMA0, irq.DMA1, irq.DMA2, irq.DMA3}

const (
	fifoASRCAddr = 0x040000A0
	fifoBSRCAddr = 0x040000A4
)

// Channel is one DMAx SAD/DAD/CNT_L/CNT_H register set plus the
// internal shadow copy latched on the enable-bit rising edge.
type Channel struct {
	index int

	SrcAddr uint32
	DstAddr uint32
	Length  uint32 // already masked to 14 or 16 bits per channel
	Sz      Size
	SrcCtl  AddrControl
	DstCtl  AddrControl
	Time    Timing
	Repeat  bool
	IRQ     bool
	Enable  bool

	// shadow copies latched at trigger time, updated during transfer
	curSrc    uint32
	curDst    uint32
	remaining uint32

	pendingFIFO int // pending "special" (FIFO) requests
	running     bool
}

func (c *Channel) srcMask() uint32 {
	if c.index == 0 {
		return 0x07FFFFFF
	}
	return 0x0FFFFFFF
}

func (c *Channel) dstMask() uint32 {
	if c.index == 3 {
		return 0x0FFFFFFF
	}
	return 0x07FFFFFF
}

func (c *Channel) lengthMask() uint32 {
	if c.index == 3 {
		return 0xFFFF
	}
	return 0x3FFF
}

// Bus is the narrow surface the controller needs from the system bus:
// sequential reads/writes sized per channel (always non-sequential in
// this core's simplified timing model, per spec.md §4.1 Non-goals).
type Bus interface {
	Read16(addr uint32) uint16
	Read32(addr uint32) uint32
	Write16(addr uint32, v uint16)
	Write32(addr uint32, v uint32)
}

// Controller owns all four channels and the priority-based run set.
type Controller struct {
	Ch [4]Channel

	RaiseIRQ func(bits uint16)

	active int // index of currently running channel, or -1
}

// New returns a controller with channel indices wired for mask
// selection and no active transfer.
func New(raiseIRQ func(uint16)) *Controller {
	c := &Controller{RaiseIRQ: raiseIRQ, active: -1}
	for i := range c.Ch {
		c.Ch[i].index = i
	}
	return c
}

// WriteControl handles a CNT_H write: latches config, and on the
// enable bit's rising edge shadows src/dst/length and — for immediate
// timing — queues the channel to run.
func (c *Controller) WriteControl(i int, value uint16) {
	ch := &c.Ch[i]
	wasEnabled := ch.Enable

	ch.DstCtl = AddrControl((value >> 5) & 0x3)
	ch.SrcCtl = AddrControl((value >> 7) & 0x3)
	ch.Repeat = value&(1<<9) != 0
	ch.Sz = Half
	if value&(1<<10) != 0 {
		ch.Sz = Word
	}
	switch (value >> 12) & 0x3 {
	case 0:
		ch.Time = Immediate
	case 1:
		ch.Time = VBlankTiming
	case 2:
		ch.Time = HBlankTiming
	case 3:
		ch.Time = Special
	}
	ch.IRQ = value&(1<<14) != 0 // bit 14 — IRQ-enable; honoured literally per spec.md §9
	ch.Enable = value&(1<<15) != 0

	if ch.Enable && !wasEnabled {
		c.latch(i)
		if ch.Time == Immediate {
			c.tryStart(i)
		}
	} else if !ch.Enable {
		ch.running = false
		if c.active == i {
			c.active = -1
		}
	}
}

func (c *Controller) latch(i int) {
	ch := &c.Ch[i]
	ch.curSrc = ch.SrcAddr & ch.srcMask()
	ch.curDst = ch.DstAddr & ch.dstMask()
	ch.remaining = ch.Length & ch.lengthMask()
	if ch.remaining == 0 {
		ch.remaining = ch.lengthMask() + 1
	}
}

// tryStart arbitrates: the channel becomes the active one only if no
// higher-priority (lower index) channel is currently running. A
// higher-priority channel becoming runnable interleaves with (displaces)
// a running lower-priority one.
func (c *Controller) tryStart(i int) {
	ch := &c.Ch[i]
	ch.running = true
	if c.active == -1 || i < c.active {
		c.active = i
	}
}

// RequestFIFO is called by the timer/APU path when a sound-DMA FIFO
// request fires for channel 1 or 2. Each request transfers exactly 4
// words regardless of programmed length/size.
func (c *Controller) RequestFIFO(channel int) {
	if channel != 1 && channel != 2 {
		return
	}
	ch := &c.Ch[channel]
	if !ch.Enable || ch.Time != Special {
		return
	}
	ch.pendingFIFO++
	c.tryStart(channel)
}

// NotifyVBlank and NotifyHBlank are called by the PPU phase machine;
// visible-scanline-only gating for HBlank is the caller's job (spec.md
// §4.6 only raises HBlank DMA during visible lines).
func (c *Controller) NotifyVBlank() {
	for i := range c.Ch {
		if c.Ch[i].Enable && c.Ch[i].Time == VBlankTiming {
			c.tryStart(i)
		}
	}
}

func (c *Controller) NotifyHBlank() {
	for i := range c.Ch {
		if c.Ch[i].Enable && c.Ch[i].Time == HBlankTiming {
			c.tryStart(i)
		}
	}
}

// Active reports whether any channel currently owns the bus.
func (c *Controller) Active() bool { return c.active != -1 }

// ActiveIndex returns the currently running channel, or -1.
func (c *Controller) ActiveIndex() int { return c.active }

// Step performs one whole burst on the active channel: every remaining
// unit of a normal transfer, or exactly 4 words for a FIFO request. It
// returns nothing; the caller estimates the burst's cycle cost itself.
func (c *Controller) Step(b Bus) {
	i := c.active
	if i < 0 {
		return
	}
	ch := &c.Ch[i]

	isFIFO := ch.Time == Special && (i == 1 || i == 2)
	unitsThisBurst := ch.remaining
	if isFIFO {
		unitsThisBurst = 4
	}

	for n := uint32(0); n < unitsThisBurst; n++ {
		if isFIFO {
			c.transferWord(b, ch, fifoDest(i))
		} else if ch.Sz == Word {
			c.transferWord(b, ch, ch.curDst)
		} else {
			c.transferHalf(b, ch, ch.curDst)
		}
		c.advanceSrc(ch)
		if !isFIFO {
			c.advanceDst(ch)
		}
	}

	if isFIFO {
		ch.pendingFIFO--
		if ch.pendingFIFO <= 0 {
			c.active = -1
			ch.running = false
		}
		return
	}

	ch.remaining = 0
	c.complete(i)
}

func fifoDest(channel int) uint32 {
	if channel == 1 {
		return fifoASRCAddr
	}
	return fifoBSRCAddr
}

func (c *Controller) transferWord(b Bus, ch *Channel, dst uint32) {
	v := b.Read32(ch.curSrc)
	b.Write32(dst, v)
}

func (c *Controller) transferHalf(b Bus, ch *Channel, dst uint32) {
	v := b.Read16(ch.curSrc)
	b.Write16(dst, v)
}

func (c *Controller) advanceSrc(ch *Channel) {
	n := uint32(2)
	if ch.Sz == Word || (ch.Time == Special && (ch.index == 1 || ch.index == 2)) {
		n = 4 // FIFO bursts always read words
	}
	switch ch.SrcCtl {
	case Increment, IncrementReload:
		ch.curSrc += n
	case Decrement:
		ch.curSrc -= n
	case Fixed:
	}
	ch.curSrc &= ch.srcMask()
}

func (c *Controller) advanceDst(ch *Channel) {
	n := uint32(2)
	if ch.Sz == Word {
		n = 4
	}
	switch ch.DstCtl {
	case Increment, IncrementReload:
		ch.curDst += n
	case Decrement:
		ch.curDst -= n
	case Fixed:
	}
	ch.curDst &= ch.dstMask()
}

// complete applies end-of-transfer effects: IRQ, repeat-reload, or
// enable-clear, per spec.md §4.5.
func (c *Controller) complete(i int) {
	ch := &c.Ch[i]
	if ch.IRQ && c.RaiseIRQ != nil {
		c.RaiseIRQ(irqBits[i])
	}
	if ch.Repeat {
		// A repeating channel preserves its current source pointer and
		// reloads only length (and destination, when dst-control asks
		// for increment-and-reload) on each subsequent trigger.
		ch.remaining = ch.Length & ch.lengthMask()
		if ch.remaining == 0 {
			ch.remaining = ch.lengthMask() + 1
		}
		if ch.DstCtl == IncrementReload {
			ch.curDst = ch.DstAddr & ch.dstMask()
		}
		ch.running = false
		c.active = -1
		return
	}
	ch.Enable = false
	ch.running = false
	c.active = -1
}
