package plot

import (
	"image"
	"image/color"
	"math"
)

// canvas is the supersampled drawing target.
type canvas struct {
	img *image.NRGBA
	w   int
	h   int
}

func newCanvas(w, h int, bg color.NRGBA) *canvas {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = bg.R
		img.Pix[i+1] = bg.G
		img.Pix[i+2] = bg.B
		img.Pix[i+3] = bg.A
	}
	return &canvas{img: img, w: w, h: h}
}

// blend draws c over the pixel with coverage a in [0,1].
func (cv *canvas) blend(x, y int, c color.NRGBA, a float64) {
	if x < 0 || y < 0 || x >= cv.w || y >= cv.h || a <= 0 {
		return
	}
	a *= float64(c.A) / 255
	i := cv.img.PixOffset(x, y)
	p := cv.img.Pix[i : i+4 : i+4]
	p[0] = uint8(float64(p[0])*(1-a) + float64(c.R)*a + 0.5)
	p[1] = uint8(float64(p[1])*(1-a) + float64(c.G)*a + 0.5)
	p[2] = uint8(float64(p[2])*(1-a) + float64(c.B)*a + 0.5)
	p[3] = uint8(math.Min(255, float64(p[3])+a*float64(255-p[3])+0.5))
}

// line draws a segment of the given width by stamping discs along it.
func (cv *canvas) line(x0, y0, x1, y1, width float64, c color.NRGBA) {
	dx, dy := x1-x0, y1-y0
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	r := width / 2
	for s := 0; s <= steps; s++ {
		f := 0.0
		if steps > 0 {
			f = float64(s) / float64(steps)
		}
		cv.disc(x0+dx*f, y0+dy*f, r, c)
	}
}

func (cv *canvas) disc(cx, cy, r float64, c color.NRGBA) {
	minX, maxX := int(math.Floor(cx-r)), int(math.Ceil(cx+r))
	minY, maxY := int(math.Floor(cy-r)), int(math.Ceil(cy+r))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			// one pixel of falloff at the edge
			cov := math.Max(0, math.Min(1, r+0.5-d))
			cv.blend(x, y, c, cov)
		}
	}
}

func (cv *canvas) hline(y, x0, x1 int, c color.NRGBA) {
	for x := x0; x <= x1; x++ {
		cv.blend(x, y, c, 1)
	}
}

func (cv *canvas) vline(x, y0, y1 int, c color.NRGBA) {
	for y := y0; y <= y1; y++ {
		cv.blend(x, y, c, 1)
	}
}
