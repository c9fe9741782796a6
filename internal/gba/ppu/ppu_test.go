package ppu

import (
	"testing"

	"github.com/maemo-arm7/gbacore/internal/gba/bus"
)

type stubIO struct{}

func (stubIO) ReadIO(addr uint32) byte        { return 0 }
func (stubIO) WriteIO(addr uint32, value byte) {}

func newTestPPU() *PPU {
	b := bus.New(stubIO{})
	return New(b)
}

func TestResetClearsRegistersButKeepsCallbacks(t *testing.T) {
	p := newTestPPU()
	hit := false
	p.NotifyHBlank = func() { hit = true }
	p.dispcnt = 0x1234
	p.Reset()
	if p.dispcnt != 0 {
		t.Fatalf("dispcnt not reset: %#x", p.dispcnt)
	}
	p.NotifyHBlank()
	if !hit {
		t.Fatal("Reset dropped NotifyHBlank callback")
	}
}

func TestAdvanceTransitionsThroughPhases(t *testing.T) {
	p := newTestPPU()
	if p.CurrentPhase() != PhaseScanline {
		t.Fatalf("expected initial phase scanline, got %v", p.CurrentPhase())
	}
	p.Advance(cyclesHDraw)
	if p.CurrentPhase() != PhaseHBlank {
		t.Fatalf("expected hblank after %d cycles, got %v", cyclesHDraw, p.CurrentPhase())
	}
	p.Advance(cyclesHBlank)
	if p.CurrentPhase() != PhaseScanline || p.Line() != 1 {
		t.Fatalf("expected scanline at line 1, got phase %v line %d", p.CurrentPhase(), p.Line())
	}
}

func TestAdvanceEntersVBlankAtLine160AndRaisesIRQ(t *testing.T) {
	p := newTestPPU()
	var raised uint16
	p.RaiseIRQ = func(bits uint16) { raised |= bits }
	p.dispstat |= 1 << 3 // VBlank IRQ enable

	for i := 0; i < ScreenHeight; i++ {
		p.Advance(cyclesHDraw)
		p.Advance(cyclesHBlank)
	}
	if p.CurrentPhase() != PhaseVBlank {
		t.Fatalf("expected vblank at line 160, got %v", p.CurrentPhase())
	}
	if raised&(1<<0) == 0 {
		t.Fatal("expected VBlank IRQ bit to be raised")
	}
}

func TestVCounterMatchRaisesIRQ(t *testing.T) {
	p := newTestPPU()
	var raised uint16
	p.RaiseIRQ = func(bits uint16) { raised |= bits }
	p.dispstat |= 1 << 5        // VCounter IRQ enable
	p.dispstat |= uint16(1) << 8 // LYC = 1

	p.Advance(cyclesHDraw)
	p.Advance(cyclesHBlank) // now at line 1
	if raised&(1<<2) == 0 {
		t.Fatal("expected VCounter match IRQ at line 1")
	}
}

func TestForceBlankFillsWhite(t *testing.T) {
	p := newTestPPU()
	p.dispcnt |= 1 << 7
	p.renderScanline()
	for x := 0; x < ScreenWidth; x++ {
		if p.Framebuffer[x] != 0x7FFF {
			t.Fatalf("expected force-blank white at x=%d, got %#x", x, p.Framebuffer[x])
		}
	}
}

func TestBitmapMode3RendersDirectColor(t *testing.T) {
	p := newTestPPU()
	p.dispcnt = 3 | 1<<10 // mode 3, BG2 enable
	p.bus.VRAM[0] = 0x1F
	p.bus.VRAM[1] = 0x00 // red
	p.renderScanline()
	if p.Framebuffer[0] != 0x001F {
		t.Fatalf("expected red pixel 0x001F, got %#x", p.Framebuffer[0])
	}
}

func TestTextBGRendersTileColor(t *testing.T) {
	p := newTestPPU()
	p.dispcnt = 0 | 1<<8 // mode 0, BG0 enable
	p.bgcnt[0] = 0       // charBase 0, screenBase 0, 4bpp, 32x32

	// screen entry 0: tile 1, palette bank 0
	p.bus.VRAM[0] = 1
	p.bus.VRAM[1] = 0
	// tile 1 (4bpp, 32 bytes/tile) row 0: first pixel color index 3
	tileAddr := 1 * 32
	p.bus.VRAM[tileAddr] = 0x03
	// palette entry 3
	p.bus.PRAM[3*2] = 0xFF
	p.bus.PRAM[3*2+1] = 0x7F

	p.renderScanline()
	if p.Framebuffer[0] != 0x7FFF {
		t.Fatalf("expected palette color 0x7FFF at x=0, got %#x", p.Framebuffer[0])
	}
}

func TestComposeSpriteWinsOverLowerPriorityBG(t *testing.T) {
	p := newTestPPU()
	var bgLines [4]bgLine
	var bgActive [4]bool
	bgActive[0] = true
	bgLines[0].color[0] = 0x0001
	p.bgcnt[0] = 3 // low priority (3)

	var objLine [ScreenWidth]objPixel
	objLine[0] = objPixel{present: true, priority: 0, color: 0x0002}
	p.dispcnt |= 1 << 12 // OBJ enable

	p.compose(0, bgLines, bgActive, objLine)
	if p.Framebuffer[0] != 0x0002 {
		t.Fatalf("expected sprite color to win, got %#x", p.Framebuffer[0])
	}
}

func TestComposeSpriteLosesToHigherPriorityBG(t *testing.T) {
	p := newTestPPU()
	var bgLines [4]bgLine
	var bgActive [4]bool
	bgActive[0] = true
	bgLines[0].color[0] = 0x0001
	p.bgcnt[0] = 0 // high priority (0)

	var objLine [ScreenWidth]objPixel
	objLine[0] = objPixel{present: true, priority: 2, color: 0x0002}
	p.dispcnt |= 1 << 12 // OBJ enable

	p.compose(0, bgLines, bgActive, objLine)
	if p.Framebuffer[0] != 0x0001 {
		t.Fatalf("expected higher-priority BG0 to win over lower-priority sprite, got %#x", p.Framebuffer[0])
	}
}

func TestComposeSpriteWinsTieAgainstSamePriorityBG(t *testing.T) {
	p := newTestPPU()
	var bgLines [4]bgLine
	var bgActive [4]bool
	bgActive[0] = true
	bgLines[0].color[0] = 0x0001
	p.bgcnt[0] = 2 // same priority as the sprite below

	var objLine [ScreenWidth]objPixel
	objLine[0] = objPixel{present: true, priority: 2, color: 0x0002}
	p.dispcnt |= 1 << 12 // OBJ enable

	p.compose(0, bgLines, bgActive, objLine)
	if p.Framebuffer[0] != 0x0002 {
		t.Fatalf("expected sprite to win a same-priority tie against BG0, got %#x", p.Framebuffer[0])
	}
}

func TestComposeWindowMasksBackground(t *testing.T) {
	p := newTestPPU()
	p.dispcnt |= 1 << 13 // WIN0 enable
	p.win0h = 10          // X1=0 (high byte), X2=10 (low byte): window covers x in [0,10)
	p.win0v = uint16(ScreenHeight)
	p.winin = 0x00   // inside window: nothing enabled
	p.winout = 0x3F  // outside window: everything enabled

	var bgLines [4]bgLine
	var bgActive [4]bool
	bgActive[0] = true
	bgLines[0].color[5] = 0x1234  // inside window (x<10) - should be masked out
	bgLines[0].color[50] = 0x1234 // outside window - should show

	var objLine [ScreenWidth]objPixel

	p.compose(0, bgLines, bgActive, objLine)
	if p.Framebuffer[5] == 0x1234 {
		t.Fatal("expected BG0 masked out inside WIN0 (winin=0)")
	}
	if p.Framebuffer[50] != 0x1234 {
		t.Fatalf("expected BG0 visible outside WIN0, got %#x", p.Framebuffer[50])
	}
}

func TestComposeAlphaBlend(t *testing.T) {
	p := newTestPPU()
	p.bldcnt = 1<<0 | 1<<9 | uint16(blendAlpha)<<6 // BG0 top target, BG1 bottom target, alpha blend
	p.bldalpha = 8 | 8<<8                        // EVA=8, EVB=8 -> 50/50

	var bgLines [4]bgLine
	var bgActive [4]bool
	bgActive[0], bgActive[1] = true, true
	p.bgcnt[0] = 0 // priority 0 (top)
	p.bgcnt[1] = 1 // priority 1 (second)
	bgLines[0].color[0] = bg555(31, 0, 0)
	bgLines[1].color[0] = bg555(0, 0, 31)

	var objLine [ScreenWidth]objPixel
	p.compose(0, bgLines, bgActive, objLine)

	got := p.Framebuffer[0]
	r := got & 0x1F
	b := (got >> 10) & 0x1F
	if r < 14 || r > 17 || b < 14 || b > 17 {
		t.Fatalf("expected roughly even 50/50 blend, got r=%d b=%d (color=%#x)", r, b, got)
	}
}
