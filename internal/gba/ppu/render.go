package ppu

// bgLine holds one scanline's worth of composited-layer inputs for a
// single background: the resolved BGR555 colour per column (palette
// lookups are done by the renderers), with a transparent flag for
// colour index 0.
type bgLine struct {
	color       [ScreenWidth]uint16
	transparent [ScreenWidth]bool
	direct      bool // true for bitmap-mode BGs: colour taken straight from VRAM
}

// objPixel is one column's sprite-layer contribution.
type objPixel struct {
	color           uint16
	priority        int
	present         bool
	semiTransparent bool
	mosaic          bool
	windowOBJ       bool // this pixel belongs to the OBJ-window mask, drawn nowhere itself
}

// renderScanline renders and composites the current line (p.ly) into
// Framebuffer. Called once per HDraw->HBlank transition.
func (p *PPU) renderScanline() {
	if p.forceBlank() {
		for x := 0; x < ScreenWidth; x++ {
			p.Framebuffer[p.ly*ScreenWidth+x] = 0x7FFF
		}
		return
	}

	var bgLines [4]bgLine
	var bgActive [4]bool
	mode := p.bgMode()

	switch mode {
	case 0:
		for i := 0; i < 4; i++ {
			if p.bgEnabled(i) {
				bgLines[i] = p.renderTextBG(i)
				bgActive[i] = true
			}
		}
	case 1:
		if p.bgEnabled(0) {
			bgLines[0] = p.renderTextBG(0)
			bgActive[0] = true
		}
		if p.bgEnabled(1) {
			bgLines[1] = p.renderTextBG(1)
			bgActive[1] = true
		}
		if p.bgEnabled(2) {
			bgLines[2] = p.renderAffineBG(0)
			bgActive[2] = true
		}
	case 2:
		if p.bgEnabled(2) {
			bgLines[2] = p.renderAffineBG(0)
			bgActive[2] = true
		}
		if p.bgEnabled(3) {
			bgLines[3] = p.renderAffineBG(1)
			bgActive[3] = true
		}
	case 3:
		if p.bgEnabled(2) {
			bgLines[2] = p.renderBitmapMode3()
			bgActive[2] = true
		}
	case 4:
		if p.bgEnabled(2) {
			bgLines[2] = p.renderBitmapMode4()
			bgActive[2] = true
		}
	case 5:
		if p.bgEnabled(2) {
			bgLines[2] = p.renderBitmapMode5()
			bgActive[2] = true
		}
	}

	p.advanceAffineReferences(mode)

	var objLine [ScreenWidth]objPixel
	if p.objEnabled() {
		objLine = p.renderSprites(mode)
	}

	p.compose(mode, bgLines, bgActive, objLine)
}

// advanceAffineReferences steps BG2/BG3 reference points by PB/PD at
// the end of each scanline, as real hardware accumulates dy into the
// internal X/Y registers (modes 1/2 only).
func (p *PPU) advanceAffineReferences(mode int) {
	if mode != 1 && mode != 2 {
		return
	}
	n := 1
	if mode == 2 {
		n = 2
	}
	for i := 0; i < n; i++ {
		p.internalRef[i].x += int32(p.bgP[i][1]) // PB
		p.internalRef[i].y += int32(p.bgP[i][3]) // PD
	}
}

func bg555(r, g, b byte) uint16 {
	return uint16(r&0x1F) | uint16(g&0x1F)<<5 | uint16(b&0x1F)<<10
}

func paletteColor(pram *[0x400]byte, index int) uint16 {
	if index <= 0 || index*2+1 >= len(pram) {
		return 0
	}
	lo := pram[index*2]
	hi := pram[index*2+1]
	return uint16(lo) | uint16(hi)<<8
}

func (p *PPU) bgPalette() *[0x400]byte { return &p.bus.PRAM }
