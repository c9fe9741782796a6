package ppu

// The effect* constants map a layer identity to its BLDCNT target-selection
// bit (BG0..BG3 = bits 0-3, OBJ = bit 4, backdrop = bit 5).
const (
	effectBG0 = 1 << 0
	effectBG1 = 1 << 1
	effectBG2 = 1 << 2
	effectBG3 = 1 << 3
	effectOBJ = 1 << 4
	effectBD  = 1 << 5
)

const (
	blendNone = iota
	blendAlpha
	blendWhite
	blendBlack
)

// compose blends the per-BG and OBJ scanline buffers into Framebuffer,
// honouring per-background priority, window enable masks, and the
// colour-effect selected by BLDCNT/BLDALPHA/BLDY.
func (p *PPU) compose(mode int, bgLines [4]bgLine, bgActive [4]bool, objLine [ScreenWidth]objPixel) {
	order := p.bgDrawOrder(bgActive)
	blendMode := int(p.bldcnt >> 6 & 0x3)
	topMask := uint32(p.bldcnt & 0x3F)
	botMask := uint32(p.bldcnt >> 8 & 0x3F)

	backdrop := paletteColor(p.bgPalette(), 0)

	for x := 0; x < ScreenWidth; x++ {
		winFlags := p.windowFlagsAt(x, objLine[x].windowOBJ)

		type layer struct {
			color uint16
			bit   uint32
			isObj bool
		}
		var top, second layer
		top = layer{color: backdrop, bit: effectBD}
		haveTop := false
		haveSecond := false

		considerLayer := func(l layer, enabled bool) {
			if !enabled {
				return
			}
			if !haveTop {
				top, haveTop = l, true
				return
			}
			if !haveSecond {
				second, haveSecond = l, true
			}
		}

		// OBJ is merged into the same priority-ordered scan as the
		// backgrounds: order is already sorted topmost-first by
		// ascending bgPriority, so OBJ is inserted immediately before
		// the first background whose priority is no higher than the
		// sprite's, which makes OBJ win ties against a BG at the same
		// priority level without ever outranking a strictly
		// higher-priority (lower-numbered) background.
		objVisible := p.objEnabled() && objLine[x].present && !objLine[x].windowOBJ && winFlags.obj
		objPrio := objLine[x].priority
		objInserted := false

		for _, bg := range order {
			if !objInserted && objVisible && objPrio <= p.bgPriority(bg) {
				considerLayer(layer{color: objLine[x].color, bit: effectOBJ, isObj: true}, true)
				objInserted = true
			}
			if !bgActive[bg] || bgLines[bg].transparent[x] {
				continue
			}
			if !winFlags.bg[bg] {
				continue
			}
			considerLayer(layer{color: bgLines[bg].color[x], bit: 1 << uint(bg)}, true)
		}
		if !objInserted && objVisible {
			considerLayer(layer{color: objLine[x].color, bit: effectOBJ, isObj: true}, true)
		}
		if !haveSecond {
			considerLayer(layer{color: backdrop, bit: effectBD}, true)
		}

		out := top.color
		effectiveBlend := blendMode
		objSemiTop := top.isObj && objLine[x].semiTransparent
		if objSemiTop {
			effectiveBlend = blendAlpha
		}
		if !winFlags.effects && !objSemiTop {
			effectiveBlend = blendNone
		}

		switch effectiveBlend {
		case blendAlpha:
			if objSemiTop || (topMask&top.bit != 0 && botMask&second.bit != 0) {
				out = p.blendAlpha(top.color, second.color)
			}
		case blendWhite:
			if topMask&top.bit != 0 {
				out = p.blendFade(top.color, 0x7FFF)
			}
		case blendBlack:
			if topMask&top.bit != 0 {
				out = p.blendFade(top.color, 0x0000)
			}
		}

		p.Framebuffer[p.ly*ScreenWidth+x] = out
	}
}

type windowFlags struct {
	bg      [4]bool
	obj     bool
	effects bool
}

// windowFlagsAt resolves which layers are visible at column x given
// WIN0/WIN1/OBJ-window masks and WININ/WINOUT, per spec.md §4.6.
func (p *PPU) windowFlagsAt(x int, isObjWindowPixel bool) windowFlags {
	if !p.anyWindowEnabled() {
		return windowFlags{bg: [4]bool{true, true, true, true}, obj: true, effects: true}
	}

	inWin0 := p.win0Enabled() && p.pointInWindow(x, p.win0h, p.win0v)
	inWin1 := p.win1Enabled() && p.pointInWindow(x, p.win1h, p.win1v)

	switch {
	case inWin0:
		return decodeWindowMask(byte(p.winin))
	case inWin1:
		return decodeWindowMask(byte(p.winin >> 8))
	case p.winObjEnabled() && isObjWindowPixel:
		return decodeWindowMask(byte(p.winout >> 8))
	default:
		return decodeWindowMask(byte(p.winout))
	}
}

func decodeWindowMask(bits byte) windowFlags {
	var f windowFlags
	for i := 0; i < 4; i++ {
		f.bg[i] = bits&(1<<uint(i)) != 0
	}
	f.obj = bits&(1<<4) != 0
	f.effects = bits&(1<<5) != 0
	return f
}

func (p *PPU) pointInWindow(x int, h, v uint16) bool {
	x1, x2 := int(h>>8), int(h&0xFF)
	y1, y2 := int(v>>8), int(v&0xFF)
	if x2 > ScreenWidth || x2 < x1 {
		x2 = ScreenWidth
	}
	if y2 > ScreenHeight || y2 < y1 {
		y2 = ScreenHeight
	}
	inX := x >= x1 && x < x2
	inY := p.ly >= y1 && p.ly < y2
	return inX && inY
}

// bgDrawOrder returns active background indices sorted by hardware
// priority (ascending priority field, BG index breaks ties), topmost
// first.
func (p *PPU) bgDrawOrder(active [4]bool) []int {
	order := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		if active[i] {
			order = append(order, i)
		}
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0; j-- {
			a, b := order[j-1], order[j]
			if p.bgPriority(a) > p.bgPriority(b) {
				order[j-1], order[j] = order[j], order[j-1]
			} else {
				break
			}
		}
	}
	return order
}

func (p *PPU) bgPriority(bg int) int { return int(p.bgcnt[bg] & 0x3) }

func (p *PPU) blendAlpha(top, bottom uint16) uint16 {
	eva := int(p.bldalpha & 0x1F)
	evb := int(p.bldalpha >> 8 & 0x1F)
	if eva > 16 {
		eva = 16
	}
	if evb > 16 {
		evb = 16
	}
	mix := func(shift uint) byte {
		t := (top >> shift) & 0x1F
		b := (bottom >> shift) & 0x1F
		v := (int(t)*eva + int(b)*evb) / 16
		if v > 31 {
			v = 31
		}
		return byte(v)
	}
	return bg555(mix(0), mix(5), mix(10))
}

func (p *PPU) blendFade(color, target uint16) uint16 {
	evy := int(p.bldy & 0x1F)
	if evy > 16 {
		evy = 16
	}
	mix := func(shift uint) byte {
		c := int((color >> shift) & 0x1F)
		t := int((target >> shift) & 0x1F)
		v := c + (t-c)*evy/16
		if v < 0 {
			v = 0
		}
		if v > 31 {
			v = 31
		}
		return byte(v)
	}
	return bg555(mix(0), mix(5), mix(10))
}
