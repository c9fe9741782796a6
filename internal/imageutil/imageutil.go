// Package imageutil holds the ARGB-to-RGBA conversion and PNG
// upscaling shared by the windowed front end and the headless runner,
// kept separate from gbaui so the headless binary doesn't need to link
// ebiten just to write a PNG.
package imageutil

import (
	"image"

	"golang.org/x/image/draw"
)

// RGBAFromARGB32 unpacks a row-major 0xAARRGGBB framebuffer into a
// plain RGBA byte buffer. out must be at least 4*len(fb) bytes.
func RGBAFromARGB32(fb []uint32, out []byte) {
	for i, px := range fb {
		o := i * 4
		out[o] = byte(px >> 16)
		out[o+1] = byte(px >> 8)
		out[o+2] = byte(px)
		out[o+3] = byte(px >> 24)
	}
}

// Upscale nearest-neighbor-scales src by an integer factor, using
// x/image/draw the way a pixel-art emulator's screenshot path should:
// no blending across the hard pixel edges a linear filter would blur.
func Upscale(src image.Image, factor int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
