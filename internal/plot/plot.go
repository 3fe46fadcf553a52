// Package plot renders channel curves of a motion as images, comparing the
// source keys with what the wavelet decoder returns.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Series is one curve sampled evenly over the chart's time range.
type Series struct {
	Label  string
	Color  color.NRGBA
	Values []float64
	// Dashed curves are drawn thinner.
	Dashed bool
}

// Chart is a set of curves sharing a time axis.
type Chart struct {
	Title      string
	Start, End float64
	Series     []Series
}

// Palette holds the curve colors, cycled by component.
var Palette = []color.NRGBA{
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
}

var (
	background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	gridColor  = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	axisColor  = color.NRGBA{R: 0x60, G: 0x60, B: 0x60, A: 0xff}
	textColor  = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
)

const margin = 28 // pixels at output size

// Range returns the smallest and largest value over all series, widened
// when flat.
func (c *Chart) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range c.Series {
		for _, v := range s.Values {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	if lo > hi {
		return -1, 1
	}
	if hi-lo < 1e-9 {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

// Render draws the chart at size×size pixels. Curves are drawn at
// size*supersample and downscaled; labels are drawn at output size.
func Render(c *Chart, size, supersample int) *image.NRGBA {
	if supersample < 1 {
		supersample = 1
	}
	ss := float64(supersample)
	big := size * supersample
	cv := newCanvas(big, big, background)

	m := float64(margin) * ss
	plotW := float64(big) - 2*m
	plotH := float64(big) - 2*m
	lo, hi := c.Range()
	toY := func(v float64) float64 { return m + plotH*(hi-v)/(hi-lo) }

	for i := 0; i <= 4; i++ {
		y := int(m + plotH*float64(i)/4)
		cv.hline(y, int(m), int(m+plotW), gridColor)
		x := int(m + plotW*float64(i)/4)
		cv.vline(x, int(m), int(m+plotH), gridColor)
	}
	cv.hline(int(m+plotH), int(m), int(m+plotW), axisColor)
	cv.vline(int(m), int(m), int(m+plotH), axisColor)

	for _, s := range c.Series {
		n := len(s.Values)
		if n == 0 {
			continue
		}
		width := 2 * ss
		if s.Dashed {
			width = ss
		}
		toX := func(i int) float64 {
			if n == 1 {
				return m
			}
			return m + plotW*float64(i)/float64(n-1)
		}
		for i := 1; i < n; i++ {
			if s.Dashed && i%4 >= 2 {
				continue
			}
			cv.line(toX(i-1), toY(s.Values[i-1]), toX(i), toY(s.Values[i]), width, s.Color)
		}
	}

	img := cv.img
	if supersample > 1 {
		img = downsample(img, size)
	}

	labels := []struct {
		x, y int
		text string
	}{
		{margin, margin - 10, c.Title},
		{2, margin + 4, fmt.Sprintf("%.3g", hi)},
		{2, size - margin, fmt.Sprintf("%.3g", lo)},
		{margin, size - 8, fmt.Sprintf("%.2fs", c.Start)},
		{size - margin - 40, size - 8, fmt.Sprintf("%.2fs", c.End)},
	}
	for _, l := range labels {
		drawText(img, l.x, l.y, l.text, textColor)
	}
	legendY := margin + 14
	for _, s := range c.Series {
		drawText(img, size-margin-7*len(s.Label), legendY, s.Label, s.Color)
		legendY += 13
	}
	return img
}

func drawText(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// downsample reduces the image with CatmullRom filtering.
func downsample(img *image.NRGBA, size int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Encode writes img as "webp" or "tga".
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("plot: webp encode: %w", err)
		}
	case "tga":
		if err := tga.Encode(w, img); err != nil {
			return fmt.Errorf("plot: tga encode: %w", err)
		}
	default:
		return fmt.Errorf("plot: unknown format %q", format)
	}
	return nil
}
