package covers

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"golang.org/x/image/draw"
)

// opaqueAlpha is the lowest alpha that counts as a visible edge pixel.
const opaqueAlpha = 255 * 8 / 10

// ToNRGBA returns img as non-premultiplied RGBA with its origin at 0,0.
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	if n, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// BackgroundColor returns the median edge color of img as "#rrggbb".
// Each row is scanned inward from the left and right edges and each column
// from the top and bottom, keeping the first visible pixel per scan. The
// collected colors are ordered by RGB vector length and the middle one wins.
// ok is false when the image has no visible pixel on any scan line.
func BackgroundColor(img image.Image) (hex string, ok bool) {
	px := ToNRGBA(img)
	w, h := px.Rect.Dx(), px.Rect.Dy()
	colors := make([]color.NRGBA, 0, 2*(w+h))
	add := func(c color.NRGBA, found bool) {
		if found {
			colors = append(colors, c)
		}
	}
	for y := 0; y < h; y++ {
		add(firstOpaque(px, 0, y, 1, 0))
		add(firstOpaque(px, w-1, y, -1, 0))
	}
	for x := 0; x < w; x++ {
		add(firstOpaque(px, x, 0, 0, 1))
		add(firstOpaque(px, x, h-1, 0, -1))
	}
	if len(colors) == 0 {
		return "", false
	}
	sort.SliceStable(colors, func(i, j int) bool {
		return lengthSq(colors[i]) < lengthSq(colors[j])
	})
	c := colors[len(colors)/2]
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), true
}

func firstOpaque(px *image.NRGBA, x, y, dx, dy int) (color.NRGBA, bool) {
	w, h := px.Rect.Dx(), px.Rect.Dy()
	for x >= 0 && y >= 0 && x < w && y < h {
		c := px.NRGBAAt(x, y)
		if c.A >= opaqueAlpha {
			return c, true
		}
		x += dx
		y += dy
	}
	return color.NRGBA{}, false
}

func lengthSq(c color.NRGBA) int {
	r, g, b := int(c.R), int(c.G), int(c.B)
	return r*r + g*g + b*b
}
