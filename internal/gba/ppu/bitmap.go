package ppu

// renderBitmapMode3 reads a 240x160 direct-colour (BGR555) frame
// straight out of VRAM.
func (p *PPU) renderBitmapMode3() bgLine {
	var out bgLine
	out.direct = true
	vram := &p.bus.VRAM
	base := uint32(p.ly) * ScreenWidth * 2
	for x := 0; x < ScreenWidth; x++ {
		addr := base + uint32(x)*2
		if int(addr)+1 >= len(vram) {
			continue
		}
		out.color[x] = uint16(vram[addr]) | uint16(vram[addr+1])<<8
	}
	return out
}

// renderBitmapMode4 reads an 8bpp palette-indexed frame (one of two
// 0xA000-byte pages, selected by DISPCNT's frame-select bit).
func (p *PPU) renderBitmapMode4() bgLine {
	var out bgLine
	vram := &p.bus.VRAM
	pram := p.bgPalette()
	pageBase := uint32(0)
	if p.frameSelect() == 1 {
		pageBase = 0xA000
	}
	base := pageBase + uint32(p.ly)*ScreenWidth
	for x := 0; x < ScreenWidth; x++ {
		addr := base + uint32(x)
		if int(addr) >= len(vram) {
			continue
		}
		idx := int(vram[addr])
		if idx == 0 {
			out.transparent[x] = true
			continue
		}
		out.color[x] = paletteColor(pram, idx)
	}
	return out
}

// renderBitmapMode5 reads a reduced-resolution (160x128) direct-colour
// frame; scanlines beyond the bitmap's height render as transparent.
func (p *PPU) renderBitmapMode5() bgLine {
	var out bgLine
	out.direct = true
	const w, h = 160, 128
	if p.ly >= h {
		for x := range out.transparent {
			out.transparent[x] = true
		}
		return out
	}
	vram := &p.bus.VRAM
	pageBase := uint32(0)
	if p.frameSelect() == 1 {
		pageBase = 0xA000
	}
	base := pageBase + uint32(p.ly)*w*2
	for x := 0; x < ScreenWidth; x++ {
		if x >= w {
			out.transparent[x] = true
			continue
		}
		addr := base + uint32(x)*2
		if int(addr)+1 >= len(vram) {
			continue
		}
		out.color[x] = uint16(vram[addr]) | uint16(vram[addr+1])<<8
	}
	return out
}
