package gbaui

import (
	"image"
	"image/color"

	"github.com/maemo-arm7/gbacore/internal/gba/ppu"
	"github.com/maemo-arm7/gbacore/internal/imageutil"
)

// frameImage adapts a raw ARGB framebuffer to image.Image, so it can
// be fed straight into imageutil.Upscale's scaler without an
// intermediate RGBA copy.
type frameImage struct {
	fb []uint32
}

func (f *frameImage) ColorModel() color.Model { return color.RGBAModel }
func (f *frameImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, ppu.ScreenWidth, ppu.ScreenHeight)
}
func (f *frameImage) At(x, y int) color.Color {
	px := f.fb[y*ppu.ScreenWidth+x]
	return color.RGBA{byte(px >> 16), byte(px >> 8), byte(px), byte(px >> 24)}
}

// rgbaFrame converts the System's packed ARGB framebuffer into a plain
// RGBA byte buffer suitable for ebiten.Image.WritePixels.
func rgbaFrame(fb []uint32, out []byte) {
	imageutil.RGBAFromARGB32(fb, out)
}
