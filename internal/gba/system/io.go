package system

import (
	"github.com/maemo-arm7/gbacore/internal/gba/dma"
)

// Register offsets relative to 0x04000000, for the blocks System owns
// directly (the PPU answers 0x00-0x57; the APU answers SOUNDCNT_H at
// 0x82-0x83 and the FIFOs at 0xA0-0xA7).
const (
	regDMA0SAD = 0xB0
	regDMASpan = 0x0C // bytes per channel's SAD/DAD/CNT_L/CNT_H block

	regTM0CNT_L = 0x100
	regTM0Span  = 0x04

	regKEYINPUT = 0x130
	regKEYCNT   = 0x132

	regIE      = 0x200
	regIF      = 0x202
	regWAITCNT = 0x204
	regIME     = 0x208

	regHALTCNT = 0x301
)

// ioPage implements bus.IO, dispatching byte-level MMIO reads/writes to
// the PPU/APU's own register blocks and to a byte-shadow-backed
// reconstruction of the wider DMA/timer/IRQ registers, the way the
// teacher's Machine funnels all memory-mapped writes through one
// switch in its bus equivalent.
type ioPage struct {
	sys *System
	raw [0x400]byte // shadow of the whole 0x04000000 page, for byte-order-agnostic reconstruction
}

func (p *ioPage) ReadIO(addr uint32) byte {
	off := addr - 0x04000000
	s := p.sys
	switch {
	case off <= 0x57:
		return s.ppu.ReadRegister(off)
	case off == 0x82, off == 0x83, off >= 0xA0 && off < 0xA8:
		return s.apu.ReadRegister(off)
	case off >= regDMA0SAD && off < regDMA0SAD+4*regDMASpan:
		return p.readDMA(off)
	case off >= regTM0CNT_L && off < regTM0CNT_L+4*regTM0Span:
		return p.readTimer(off)
	case off == regKEYINPUT:
		return byte(s.keyinput())
	case off == regKEYINPUT+1:
		return byte(s.keyinput() >> 8)
	case off == regIE:
		return byte(s.irqc.IE)
	case off == regIE+1:
		return byte(s.irqc.IE >> 8)
	case off == regIF:
		return byte(s.irqc.IF)
	case off == regIF+1:
		return byte(s.irqc.IF >> 8)
	case off == regWAITCNT:
		return byte(s.bus.WAITCNT())
	case off == regWAITCNT+1:
		return byte(s.bus.WAITCNT() >> 8)
	case off == regIME:
		if s.irqc.IME {
			return 1
		}
		return 0
	default:
		if int(off) < len(p.raw) {
			return p.raw[off]
		}
		return 0
	}
}

func (p *ioPage) WriteIO(addr uint32, value byte) {
	off := addr - 0x04000000
	if int(off) < len(p.raw) {
		p.raw[off] = value
	}
	s := p.sys
	switch {
	case off <= 0x57:
		s.ppu.WriteRegister(off, value)
	case off == 0x82, off == 0x83, off >= 0xA0 && off < 0xA8:
		s.apu.WriteRegister(off, value)
	case off >= regDMA0SAD && off < regDMA0SAD+4*regDMASpan:
		p.writeDMA(off)
	case off >= regTM0CNT_L && off < regTM0CNT_L+4*regTM0Span:
		p.writeTimer(off)
	case off == regKEYCNT, off == regKEYCNT+1:
		// stored in raw shadow above only; no keypad IRQ is raised from it.
	case off == regIE:
		s.irqc.WriteIE(p.word16(regIE))
	case off == regIE+1:
		s.irqc.WriteIE(p.word16(regIE))
	case off == regIF:
		s.irqc.WriteIF(uint16(value))
	case off == regIF+1:
		s.irqc.WriteIF(uint16(value) << 8)
	case off == regWAITCNT:
		s.bus.WriteWAITCNT(p.word16(regWAITCNT))
	case off == regWAITCNT+1:
		s.bus.WriteWAITCNT(p.word16(regWAITCNT))
	case off == regIME:
		s.irqc.WriteIME(uint32(value))
	case off == regHALTCNT:
		if value&0x80 != 0 {
			s.irqc.EnterStop()
		} else {
			s.irqc.EnterHalt()
		}
	}
}

func (p *ioPage) word16(base uint32) uint16 {
	return uint16(p.raw[base]) | uint16(p.raw[base+1])<<8
}

func (p *ioPage) word32(base uint32) uint32 {
	return uint32(p.raw[base]) | uint32(p.raw[base+1])<<8 | uint32(p.raw[base+2])<<16 | uint32(p.raw[base+3])<<24
}

// readDMA answers SAD/DAD (write-only on real hardware; the shadow
// copy is returned for simplicity) and CNT_L/CNT_H (reconstructed from
// the live Channel struct for CNT_H, which is the only half software
// actually polls).
func (p *ioPage) readDMA(off uint32) byte {
	i := int(off-regDMA0SAD) / regDMASpan
	rel := (off - regDMA0SAD) % regDMASpan
	if rel == 0x0A || rel == 0x0B {
		v := dmaControlValue(&p.sys.dma.Ch[i])
		if rel == 0x0A {
			return byte(v)
		}
		return byte(v >> 8)
	}
	return p.raw[off]
}

func (p *ioPage) writeDMA(off uint32) {
	i := int(off-regDMA0SAD) / regDMASpan
	rel := (off - regDMA0SAD) % regDMASpan
	base := off - rel
	ch := &p.sys.dma.Ch[i]
	switch {
	case rel <= 0x03:
		ch.SrcAddr = p.word32(base)
	case rel <= 0x07:
		ch.DstAddr = p.word32(base + 0x04)
	case rel == 0x08 || rel == 0x09:
		ch.Length = uint32(p.word16(base + 0x08))
	case rel == 0x0A || rel == 0x0B:
		p.sys.dma.WriteControl(i, p.word16(base+0x0A))
	}
}

// dmaControlValue reconstructs CNT_H's bits from the channel's live
// configuration, since dma.Channel keeps decoded fields rather than
// the raw register value.
func dmaControlValue(ch *dma.Channel) uint16 {
	var v uint16
	v |= uint16(ch.DstCtl) << 5
	v |= uint16(ch.SrcCtl) << 7
	if ch.Repeat {
		v |= 1 << 9
	}
	if ch.Sz == dma.Word {
		v |= 1 << 10
	}
	v |= uint16(timingCode(ch.Time)) << 12
	if ch.IRQ {
		v |= 1 << 14
	}
	if ch.Enable {
		v |= 1 << 15
	}
	return v
}

func timingCode(t dma.Timing) int {
	switch t {
	case dma.VBlankTiming:
		return 1
	case dma.HBlankTiming:
		return 2
	case dma.Special:
		return 3
	default:
		return 0
	}
}

func (p *ioPage) readTimer(off uint32) byte {
	i := int(off-regTM0CNT_L) / regTM0Span
	rel := (off - regTM0CNT_L) % regTM0Span
	switch rel {
	case 0x00:
		return byte(p.sys.timers.CounterValue(i))
	case 0x01:
		return byte(p.sys.timers.CounterValue(i) >> 8)
	case 0x02:
		return byte(p.sys.timers.ControlValue(i))
	case 0x03:
		return byte(p.sys.timers.ControlValue(i) >> 8)
	}
	return 0
}

func (p *ioPage) writeTimer(off uint32) {
	i := int(off-regTM0CNT_L) / regTM0Span
	rel := (off - regTM0CNT_L) % regTM0Span
	base := off - rel
	switch rel {
	case 0x00, 0x01:
		p.sys.timers.WriteReload(i, p.word16(base))
	case 0x02, 0x03:
		p.sys.timers.WriteControl(i, p.word16(base+0x02))
	}
}
