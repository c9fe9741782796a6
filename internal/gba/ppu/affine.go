package ppu

// renderAffineBG renders one scanline of an affine background (BG2 in
// mode 1/2, BG3 in mode 2): always 8bpp, always a single 256-colour
// tile set, addressed via the rotation/scaling matrix (PA,PB,PC,PD)
// and the per-line internal reference point instead of a flat
// scroll offset.
func (p *PPU) renderAffineBG(affineIdx int) bgLine {
	var out bgLine
	bg := affineIdx + 2
	cnt := p.bgcnt[bg]
	charBase := uint32(cnt>>2&0x3) * 0x4000
	screenBase := uint32(cnt>>8&0x1F) * 0x800
	wraparound := cnt&(1<<13) != 0

	sizeTiles := 16 << uint(cnt>>14&0x3) // 128,256,512,1024 px -> 16,32,64,128 tiles
	sizePx := int32(sizeTiles) * 8

	pa := int32(p.bgP[affineIdx][0])
	pc := int32(p.bgP[affineIdx][2])
	ref := p.internalRef[affineIdx]

	vram := &p.bus.VRAM
	pram := p.bgPalette()

	for x := 0; x < ScreenWidth; x++ {
		texX := (ref.x + int32(x)*pa) >> 8
		texY := (ref.y + int32(x)*pc) >> 8

		if wraparound {
			texX = ((texX % sizePx) + sizePx) % sizePx
			texY = ((texY % sizePx) + sizePx) % sizePx
		} else if texX < 0 || texY < 0 || texX >= sizePx || texY >= sizePx {
			out.transparent[x] = true
			continue
		}

		tileCol := texX / 8
		tileRow := texY / 8
		fineX := texX % 8
		fineY := texY % 8

		mapAddr := screenBase + uint32(tileRow*int32(sizeTiles)+tileCol)
		if int(mapAddr) >= len(vram) {
			continue
		}
		tileNum := vram[mapAddr]
		tileAddr := charBase + uint32(tileNum)*64 + uint32(fineY)*8 + uint32(fineX)
		if int(tileAddr) >= len(vram) {
			continue
		}
		colorIndex := int(vram[tileAddr])
		if colorIndex == 0 {
			out.transparent[x] = true
			continue
		}
		out.color[x] = paletteColor(pram, colorIndex)
	}
	return out
}
