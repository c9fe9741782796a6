package ppu

// Register offsets relative to 0x04000000, per spec.md §4.6.
const (
	regDISPCNT  = 0x00
	regDISPSTAT = 0x04
	regVCOUNT   = 0x06
	regBG0CNT   = 0x08
	regBG1CNT   = 0x0A
	regBG2CNT   = 0x0C
	regBG3CNT   = 0x0E
	regBG0HOFS  = 0x10
	regBG3VOFS  = 0x1E
	regBG2X     = 0x28
	regBG2Y     = 0x2C
	regBG2PA    = 0x20
	regBG3X     = 0x38
	regBG3Y     = 0x3C
	regBG3PA    = 0x30
	regWIN0H    = 0x40
	regWIN1H    = 0x42
	regWIN0V    = 0x44
	regWIN1V    = 0x46
	regWININ    = 0x48
	regWINOUT   = 0x4A
	regMOSAIC   = 0x4C
	regBLDCNT   = 0x50
	regBLDALPHA = 0x52
	regBLDY     = 0x54
)

// ReadRegister answers an 8-bit CPU read within the LCD I/O block
// (0x04000000-0x04000057).
func (p *PPU) ReadRegister(off uint32) byte {
	switch {
	case off == regDISPCNT:
		return byte(p.dispcnt)
	case off == regDISPCNT+1:
		return byte(p.dispcnt >> 8)
	case off == regDISPSTAT:
		return byte(p.dispstat)
	case off == regDISPSTAT+1:
		return byte(p.dispstat >> 8)
	case off == regVCOUNT:
		return byte(p.ly)
	case off == regVCOUNT+1:
		return 0
	case off >= regBG0CNT && off < regBG0CNT+8:
		i := (off - regBG0CNT) / 2
		return byteOf(p.bgcnt[i], off)
	case off >= regWININ && off < regWININ+2:
		return byteOf(p.winin, off)
	case off >= regWINOUT && off < regWINOUT+2:
		return byteOf(p.winout, off)
	case off >= regBLDCNT && off < regBLDCNT+2:
		return byteOf(p.bldcnt, off)
	case off >= regBLDALPHA && off < regBLDALPHA+2:
		return byteOf(p.bldalpha, off)
	default:
		return 0 // write-only registers (scroll/affine/window bounds/mosaic/BLDY) read as 0
	}
}

func byteOf(v uint16, off uint32) byte {
	if off&1 != 0 {
		return byte(v >> 8)
	}
	return byte(v)
}

func setByte(v uint16, off uint32, value byte) uint16 {
	if off&1 != 0 {
		return v&0x00FF | uint16(value)<<8
	}
	return v&0xFF00 | uint16(value)
}

// WriteRegister answers an 8-bit CPU write within the LCD I/O block.
func (p *PPU) WriteRegister(off uint32, value byte) {
	switch {
	case off == regDISPCNT || off == regDISPCNT+1:
		p.dispcnt = setByte(p.dispcnt, off-regDISPCNT, value)
	case off == regDISPSTAT || off == regDISPSTAT+1:
		// bits 0-2 (VBlank/HBlank/VCounter flags) are read-only.
		mask := uint16(0xFFF8)
		if off == regDISPSTAT+1 {
			mask = 0xFFFF
		}
		nv := setByte(p.dispstat, off-regDISPSTAT, value)
		p.dispstat = (p.dispstat &^ mask) | (nv & mask)
	case off >= regBG0CNT && off < regBG0CNT+8:
		i := (off - regBG0CNT) / 2
		base := regBG0CNT + i*2
		p.bgcnt[i] = setByte(p.bgcnt[i], off-base, value)
	case off >= regBG0HOFS && off < regBG0HOFS+16:
		rel := off - regBG0HOFS
		i := rel / 4
		if rel%4 < 2 {
			p.bghofs[i] = setByte(p.bghofs[i], rel%2, value)
		} else {
			p.bgvofs[i] = setByte(p.bgvofs[i], rel%2, value)
		}
	case off >= regBG2PA && off < regBG2PA+8:
		p.writeAffineParam(0, off-regBG2PA, value)
	case off >= regBG2X && off < regBG2X+8:
		p.writeAffineRef(0, off-regBG2X, value)
	case off >= regBG3PA && off < regBG3PA+8:
		p.writeAffineParam(1, off-regBG3PA, value)
	case off >= regBG3X && off < regBG3X+8:
		p.writeAffineRef(1, off-regBG3X, value)
	case off == regWIN0H || off == regWIN0H+1:
		p.win0h = setByte(p.win0h, off-regWIN0H, value)
	case off == regWIN1H || off == regWIN1H+1:
		p.win1h = setByte(p.win1h, off-regWIN1H, value)
	case off == regWIN0V || off == regWIN0V+1:
		p.win0v = setByte(p.win0v, off-regWIN0V, value)
	case off == regWIN1V || off == regWIN1V+1:
		p.win1v = setByte(p.win1v, off-regWIN1V, value)
	case off == regWININ || off == regWININ+1:
		p.winin = setByte(p.winin, off-regWININ, value)
	case off == regWINOUT || off == regWINOUT+1:
		p.winout = setByte(p.winout, off-regWINOUT, value)
	case off == regMOSAIC || off == regMOSAIC+1:
		p.mosaic = setByte(p.mosaic, off-regMOSAIC, value)
	case off == regBLDCNT || off == regBLDCNT+1:
		p.bldcnt = setByte(p.bldcnt, off-regBLDCNT, value)
	case off == regBLDALPHA || off == regBLDALPHA+1:
		p.bldalpha = setByte(p.bldalpha, off-regBLDALPHA, value)
	case off == regBLDY || off == regBLDY+1:
		p.bldy = setByte(p.bldy, off-regBLDY, value)
	}
}

func (p *PPU) writeAffineParam(bg int, rel uint32, value byte) {
	idx := rel / 2 // 0=PA,1=PB,2=PC,3=PD
	p.bgP[bg][idx] = int16(setByte(uint16(p.bgP[bg][idx]), rel%2, value))
}

func (p *PPU) writeAffineRef(bg int, rel uint32, value byte) {
	isY := rel >= 4
	r := rel
	if isY {
		r -= 4
	}
	shift := r * 8
	var cur uint32
	if isY {
		cur = uint32(p.bgRef[bg].y)
	} else {
		cur = uint32(p.bgRef[bg].x)
	}
	cur = cur&^(0xFF<<shift) | uint32(value)<<shift
	signExtended := int32(cur<<4) >> 4 // 28-bit signed
	if isY {
		p.bgRef[bg].y = signExtended
		p.internalRef[bg].y = signExtended
	} else {
		p.bgRef[bg].x = signExtended
		p.internalRef[bg].x = signExtended
	}
}

// resetAffineReferences reloads BG2X/Y and BG3X/Y into the live
// per-scanline accumulators; real hardware does this at the start of
// each frame (and on a direct register write, handled above).
func (p *PPU) resetAffineReferences() {
	p.internalRef[0] = p.bgRef[0]
	p.internalRef[1] = p.bgRef[1]
}

// DISPCNT accessors used by the renderer.
func (p *PPU) bgMode() int         { return int(p.dispcnt & 0x7) }
func (p *PPU) frameSelect() int    { return int((p.dispcnt >> 4) & 1) }
func (p *PPU) objVRAM1D() bool     { return p.dispcnt&(1<<6) != 0 }
func (p *PPU) forceBlank() bool    { return p.dispcnt&(1<<7) != 0 }
func (p *PPU) bgEnabled(i int) bool { return p.dispcnt&(1<<uint(8+i)) != 0 }
func (p *PPU) objEnabled() bool    { return p.dispcnt&(1<<12) != 0 }
func (p *PPU) win0Enabled() bool   { return p.dispcnt&(1<<13) != 0 }
func (p *PPU) win1Enabled() bool   { return p.dispcnt&(1<<14) != 0 }
func (p *PPU) winObjEnabled() bool { return p.dispcnt&(1<<15) != 0 }
func (p *PPU) anyWindowEnabled() bool {
	return p.win0Enabled() || p.win1Enabled() || p.winObjEnabled()
}
