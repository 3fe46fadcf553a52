package dwt

import "math"

var (
	// Daubechies-4 scaling coefficients.
	d4h = [4]float32{
		float32((1 + math.Sqrt(3)) / (4 * math.Sqrt(2))),
		float32((3 + math.Sqrt(3)) / (4 * math.Sqrt(2))),
		float32((3 - math.Sqrt(3)) / (4 * math.Sqrt(2))),
		float32((1 - math.Sqrt(3)) / (4 * math.Sqrt(2))),
	}
	// Wavelet coefficients (quadrature mirror of d4h).
	d4g = [4]float32{d4h[3], -d4h[2], d4h[1], -d4h[0]}
)

// Daub4Transform is the orthonormal Daubechies-4 wavelet with periodic
// boundaries. Levels shorter than four samples use a Haar step.
type Daub4Transform struct {
	tmp []float32
}

func (d *Daub4Transform) Transform(buf []float32, n int) {
	checkLen(buf, n)
	d.tmp = grow(d.tmp, n)
	size := n
	for ; size >= 4; size >>= 1 {
		d4Step(buf, d.tmp, size)
	}
	if size == 2 {
		haarStep(buf, d.tmp, 2)
	}
}

func (d *Daub4Transform) InverseTransform(buf []float32, n int) {
	checkLen(buf, n)
	d.tmp = grow(d.tmp, n)
	if n < 2 {
		return
	}
	haarInverseStep(buf, d.tmp, 2)
	for size := 4; size <= n; size <<= 1 {
		d4InverseStep(buf, d.tmp, size)
	}
}

func d4Step(buf, tmp []float32, size int) {
	half := size / 2
	for i := 0; i < half; i++ {
		i2 := 2 * i
		x0 := buf[i2]
		x1 := buf[(i2+1)%size]
		x2 := buf[(i2+2)%size]
		x3 := buf[(i2+3)%size]
		tmp[i] = d4h[0]*x0 + d4h[1]*x1 + d4h[2]*x2 + d4h[3]*x3
		tmp[half+i] = d4g[0]*x0 + d4g[1]*x1 + d4g[2]*x2 + d4g[3]*x3
	}
	copy(buf[:size], tmp[:size])
}

// d4InverseStep applies the transposed analysis matrix, which is the inverse
// of an orthonormal step.
func d4InverseStep(buf, tmp []float32, size int) {
	half := size / 2
	clear(tmp[:size])
	for i := 0; i < half; i++ {
		a, c := buf[i], buf[half+i]
		for k := 0; k < 4; k++ {
			j := (2*i + k) % size
			tmp[j] += d4h[k]*a + d4g[k]*c
		}
	}
	copy(buf[:size], tmp[:size])
}
