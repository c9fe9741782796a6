package ppu

// renderTextBG renders one scanline of a text-mode background (BG0-BG3
// in mode 0, BG0/BG1 in mode 1), reading the tilemap and
// tile data straight out of VRAM the way the teacher's bgFetcher reads
// through its VRAMReader, generalised from 2bpp DMG tiles to the GBA's
// 4bpp/8bpp tile formats.
func (p *PPU) renderTextBG(bg int) bgLine {
	var out bgLine
	cnt := p.bgcnt[bg]
	charBase := uint32(cnt>>2&0x3) * 0x4000
	screenBase := uint32(cnt>>8&0x1F) * 0x800
	colorMode8bpp := cnt&(1<<7) != 0
	screenSize := int(cnt >> 14 & 0x3)

	widthTiles, heightTiles := 32, 32
	switch screenSize {
	case 1:
		widthTiles = 64
	case 2:
		heightTiles = 64
	case 3:
		widthTiles, heightTiles = 64, 64
	}

	scx := int(p.bghofs[bg] & 0x1FF)
	scy := int(p.bgvofs[bg] & 0x1FF)
	bgY := (p.ly + scy) % (heightTiles * 8)
	mapRow := bgY / 8
	fineY := bgY % 8

	vram := &p.bus.VRAM
	pram := p.bgPalette()

	for x := 0; x < ScreenWidth; x++ {
		bgX := (x + scx) % (widthTiles * 8)
		mapCol := bgX / 8
		fineX := bgX % 8

		// Screen blocks are 32x32-tile pages; pick the right one for
		// sizes wider/taller than one page.
		blockX := mapCol / 32
		blockY := mapRow / 32
		var blockIndex int
		switch screenSize {
		case 1:
			blockIndex = blockX
		case 2:
			blockIndex = blockY
		case 3:
			blockIndex = blockY*2 + blockX
		}
		localCol := mapCol % 32
		localRow := mapRow % 32

		entryAddr := screenBase + uint32(blockIndex)*0x800 + uint32(localRow*32+localCol)*2
		if int(entryAddr)+1 >= len(vram) {
			continue
		}
		entry := uint16(vram[entryAddr]) | uint16(vram[entryAddr+1])<<8
		tileNum := entry & 0x3FF
		flipX := entry&(1<<10) != 0
		flipY := entry&(1<<11) != 0
		paletteBank := int(entry >> 12 & 0xF)

		tx, ty := fineX, fineY
		if flipX {
			tx = 7 - tx
		}
		if flipY {
			ty = 7 - ty
		}

		var colorIndex int
		if colorMode8bpp {
			tileAddr := charBase + uint32(tileNum)*64 + uint32(ty)*8 + uint32(tx)
			if int(tileAddr) < len(vram) {
				colorIndex = int(vram[tileAddr])
			}
		} else {
			tileAddr := charBase + uint32(tileNum)*32 + uint32(ty)*4 + uint32(tx/2)
			if int(tileAddr) < len(vram) {
				b := vram[tileAddr]
				if tx&1 == 0 {
					colorIndex = int(b & 0xF)
				} else {
					colorIndex = int(b >> 4)
				}
				if colorIndex != 0 {
					colorIndex += paletteBank * 16
				}
			}
		}

		if colorIndex == 0 {
			out.transparent[x] = true
			continue
		}
		out.color[x] = paletteColor(pram, colorIndex)
	}
	return out
}
