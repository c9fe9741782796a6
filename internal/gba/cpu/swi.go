package cpu

import "github.com/maemo-arm7/gbacore/internal/gba/bus"

// dispatchSWI implements spec.md §7's HLE BIOS gap: with no real BIOS
// image attached, the handful of SWI calls real GBA software actually
// leans on (division, memory copy/fill, LZ77 decompression) are
// answered directly in Go rather than by executing BIOS code that
// isn't there. With a BIOS attached, the SWI takes the normal exception
// path into it.
func (c *Core) dispatchSWI(function uint32) {
	if c.bus.BIOSLoaded() {
		c.enterSWI()
		return
	}

	switch function {
	case 0x00: // SoftReset - not meaningfully HLE-able; ignored
	case 0x01: // RegisterRamReset - likewise left to the caller
	case 0x04: // IntrWait / 0x05 VBlankIntrWait: approximated as a no-op;
		// the call returns at once without waiting for the interrupt.
	case 0x06: // Div
		c.hleDiv()
	case 0x07: // DivArm (same operands, swapped order)
		c.hleDivArm()
	case 0x08: // Sqrt
		c.hleSqrt()
	case 0x0B: // CpuSet
		c.hleCpuSet()
	case 0x0C: // CpuFastSet
		c.hleCpuFastSet()
	case 0x11: // LZ77UncompWRAM
		c.hleLZ77Uncomp(false)
	case 0x12: // LZ77UncompVRAM
		c.hleLZ77Uncomp(true)
	default:
		// Unimplemented HLE vector: return without side effects rather
		// than crash the interpreter on an unrecognised call number.
	}
}

func (c *Core) hleDiv() {
	num := int32(c.R[0])
	den := int32(c.R[1])
	if den == 0 {
		c.R[0], c.R[1], c.R[3] = 0, uint32(num), 0
		return
	}
	q := num / den
	r := num % den
	c.R[0] = uint32(q)
	c.R[1] = uint32(r)
	c.R[3] = uint32(absInt32(q))
}

func (c *Core) hleDivArm() {
	num := int32(c.R[1])
	den := int32(c.R[0])
	if den == 0 {
		c.R[0], c.R[1], c.R[3] = 0, uint32(num), 0
		return
	}
	q := num / den
	r := num % den
	c.R[0] = uint32(q)
	c.R[1] = uint32(r)
	c.R[3] = uint32(absInt32(q))
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Core) hleSqrt() {
	v := c.R[0]
	var x uint32
	for bit := uint32(1) << 30; bit != 0; bit >>= 2 {
		if v >= x+bit {
			v -= x + bit
			x = x>>1 + bit
		} else {
			x >>= 1
		}
	}
	c.R[0] = x
}

// hleCpuSet implements SWI 0x0B: R0=src, R1=dst, R2=length|mode bits.
// Bit 26 selects 32-bit transfers (else 16-bit); bit 24 selects fixed
// source (fill) instead of copy.
func (c *Core) hleCpuSet() {
	src, dst, ctl := c.R[0], c.R[1], c.R[2]
	count := ctl & 0x1FFFFF
	wordSize := ctl&(1<<26) != 0
	fixedSrc := ctl&(1<<24) != 0

	if wordSize {
		for i := uint32(0); i < count; i++ {
			v := c.busRead32(src, bus.Sequential)
			c.busWrite32(dst, v, bus.Sequential)
			dst += 4
			if !fixedSrc {
				src += 4
			}
		}
	} else {
		for i := uint32(0); i < count; i++ {
			v := c.busRead16(src, bus.Sequential)
			c.busWrite16(dst, v, bus.Sequential)
			dst += 2
			if !fixedSrc {
				src += 2
			}
		}
	}
}

// hleCpuFastSet implements SWI 0x0C: always 32-bit, always 8-word
// bursts (the real BIOS pads a short final burst; this HLE path
// instead performs count transfers directly, which is observably
// identical for any count that is the documented multiple of 8).
func (c *Core) hleCpuFastSet() {
	src, dst, ctl := c.R[0], c.R[1], c.R[2]
	count := ctl & 0x1FFFFF
	fixedSrc := ctl&(1<<24) != 0

	for i := uint32(0); i < count; i++ {
		v := c.busRead32(src, bus.Sequential)
		c.busWrite32(dst, v, bus.Sequential)
		dst += 4
		if !fixedSrc {
			src += 4
		}
	}
}

// hleLZ77Uncomp implements SWI 0x11/0x12: R0=compressed source
// (4-byte header: tag byte 0x10, 24-bit decompressed size), R1=dest.
// VRAM decompression writes 16 bits at a time (two bytes buffered)
// since VRAM rejects 8-bit writes; WRAM decompression writes bytes
// directly.
func (c *Core) hleLZ77Uncomp(vramDest bool) {
	src, dst := c.R[0], c.R[1]
	header := c.busRead32(src, bus.NonSequential)
	src += 4
	size := header >> 8

	var halfBuf uint16
	var haveHalf bool
	writeByte := func(v byte) {
		if !vramDest {
			c.busWrite8(dst, v, bus.Sequential)
			dst++
			return
		}
		if !haveHalf {
			halfBuf = uint16(v)
			haveHalf = true
			return
		}
		halfBuf |= uint16(v) << 8
		c.busWrite16(dst, halfBuf, bus.Sequential)
		dst += 2
		haveHalf = false
	}

	var written uint32
	for written < size {
		flags := c.busRead8(src, bus.Sequential)
		src++
		for bit := 7; bit >= 0 && written < size; bit-- {
			if flags&(1<<uint(bit)) == 0 {
				writeByte(c.busRead8(src, bus.Sequential))
				src++
				written++
				continue
			}
			b0 := c.busRead8(src, bus.Sequential)
			b1 := c.busRead8(src+1, bus.Sequential)
			src += 2
			length := uint32(b0>>4) + 3
			disp := (uint32(b0&0xF) << 8) | uint32(b1)

			for n := uint32(0); n < length && written < size; n++ {
				backAddr := dst - disp - 1
				writeByte(c.busRead8(backAddr, bus.Sequential))
				written++
			}
		}
	}
}
