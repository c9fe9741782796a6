package ppu

// objShape/objSize table: [shape][sizeBits] -> (widthTiles, heightTiles).
var objSizeTable = [3][4][2]int{
	{{1, 1}, {2, 2}, {4, 4}, {8, 8}},   // square
	{{2, 1}, {4, 1}, {4, 2}, {8, 4}},   // horizontal
	{{1, 2}, {1, 4}, {2, 4}, {4, 8}},   // vertical
}

// renderSprites scans all 128 OAM entries and rasterises the columns
// of the current scanline they cover, highest-priority (lowest
// priority number, lowest OAM index on ties) pixel winning per column.
func (p *PPU) renderSprites(mode int) [ScreenWidth]objPixel {
	var line [ScreenWidth]objPixel
	oam := &p.bus.OAM
	vram := &p.bus.VRAM
	pram := p.bgPalette()

	for i := 127; i >= 0; i-- {
		base := i * 8
		attr0 := uint16(oam[base]) | uint16(oam[base+1])<<8
		objMode := attr0 >> 8 & 0x3
		if objMode == 2 {
			continue // disabled
		}
		attr1 := uint16(oam[base+2]) | uint16(oam[base+3])<<8
		attr2 := uint16(oam[base+4]) | uint16(oam[base+5])<<8

		shape := int(attr0 >> 14 & 0x3)
		if shape == 3 {
			continue // prohibited
		}
		sizeBits := int(attr1 >> 14 & 0x3)
		wTiles, hTiles := objSizeTable[shape][sizeBits][0], objSizeTable[shape][sizeBits][1]
		width, height := wTiles*8, hTiles*8

		affine := objMode == 1 || objMode == 3
		doubleSize := objMode == 3

		screenHeight := height
		screenWidth := width
		if doubleSize {
			screenHeight *= 2
			screenWidth *= 2
		}

		y := int(attr0 & 0xFF)
		rowInScreen := (p.ly - y + 256) % 256
		if rowInScreen >= screenHeight {
			continue
		}

		x := int(attr1 & 0x1FF)
		if x >= 512 {
			x -= 512
		}

		colorMode8bpp := attr0&(1<<13) != 0
		tileNum := int(attr2 & 0x3FF)
		priority := int(attr2 >> 10 & 0x3)
		paletteBank := int(attr2 >> 12 & 0xF)
		semiTransparent := objMode == 1 && attr0>>10&0x3 == 1
		windowObj := attr0>>10&0x3 == 2

		var pa, pb, pc, pd int32 = 256, 0, 0, 256
		if affine {
			paramIdx := int(attr1 >> 9 & 0x1F)
			pa = int32(readAffineParam(oam, paramIdx, 0))
			pb = int32(readAffineParam(oam, paramIdx, 1))
			pc = int32(readAffineParam(oam, paramIdx, 2))
			pd = int32(readAffineParam(oam, paramIdx, 3))
		}

		centerX, centerY := screenWidth/2, screenHeight/2
		dy := int32(rowInScreen - centerY)

		for col := 0; col < screenWidth; col++ {
			screenX := x + col
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			dx := int32(col - centerX)

			var texX, texY int32
			if affine {
				texX = (pa*dx+pb*dy)>>8 + int32(width/2)
				texY = (pc*dx+pd*dy)>>8 + int32(height/2)
			} else {
				texX = dx + int32(width/2)
				texY = dy + int32(height/2)
				if attr1&(1<<12) != 0 { // flip H
					texX = int32(width) - 1 - texX
				}
				if attr1&(1<<13) != 0 { // flip V
					texY = int32(height) - 1 - texY
				}
			}
			if texX < 0 || texY < 0 || texX >= int32(width) || texY >= int32(height) {
				continue
			}

			tileCol := int(texX) / 8
			tileRow := int(texY) / 8
			fineX := int(texX) % 8
			fineY := int(texY) % 8

			var colorIndex int
			var tilesPerRow int
			if p.objVRAM1D() {
				tilesPerRow = wTiles
			} else {
				if colorMode8bpp {
					tilesPerRow = 16
				} else {
					tilesPerRow = 32
				}
			}
			var tileOffset int
			if colorMode8bpp {
				effTile := tileNum &^ 1
				tileOffset = effTile + tileRow*tilesPerRow + tileCol*2
				addr := 0x10000 + tileOffset*32 + fineY*8 + fineX
				if addr < len(vram) {
					colorIndex = int(vram[addr])
				}
			} else {
				tileOffset = tileNum + tileRow*tilesPerRow + tileCol
				addr := 0x10000 + tileOffset*32 + fineY*4 + fineX/2
				if addr < len(vram) {
					b := vram[addr]
					if fineX&1 == 0 {
						colorIndex = int(b & 0xF)
					} else {
						colorIndex = int(b >> 4)
					}
				}
			}

			if colorIndex == 0 {
				continue
			}
			palIndex := colorIndex
			if !colorMode8bpp {
				palIndex += paletteBank * 16
			}
			color := 0x100 + palIndex // OBJ palette bank starts at PRAM 0x200 (index 256)
			if windowObj {
				line[screenX] = objPixel{present: true, windowOBJ: true}
				continue
			}
			if !line[screenX].present || priority <= line[screenX].priority {
				line[screenX] = objPixel{
					color:           objPaletteColor(pram, color),
					priority:        priority,
					present:         true,
					semiTransparent: semiTransparent,
				}
			}
		}
	}
	return line
}

func objPaletteColor(pram *[0x400]byte, index int) uint16 {
	if index*2+1 >= len(pram) {
		return 0
	}
	return uint16(pram[index*2]) | uint16(pram[index*2+1])<<8
}

func readAffineParam(oam *[0x400]byte, paramIdx, which int) int16 {
	base := paramIdx*32 + 6 + which*8
	if base+1 >= len(oam) {
		return 256
	}
	return int16(uint16(oam[base]) | uint16(oam[base+1])<<8)
}
