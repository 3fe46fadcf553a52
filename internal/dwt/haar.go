package dwt

import "math"

var haarScale = float32(math.Sqrt(0.5))

// HaarTransform is the orthonormal Haar wavelet, decomposed down to a single
// trend coefficient.
type HaarTransform struct {
	tmp []float32
}

func (h *HaarTransform) Transform(buf []float32, n int) {
	checkLen(buf, n)
	h.tmp = grow(h.tmp, n)
	for size := n; size >= 2; size >>= 1 {
		haarStep(buf, h.tmp, size)
	}
}

func (h *HaarTransform) InverseTransform(buf []float32, n int) {
	checkLen(buf, n)
	h.tmp = grow(h.tmp, n)
	for size := 2; size <= n; size <<= 1 {
		haarInverseStep(buf, h.tmp, size)
	}
}

// haarStep splits buf[:size] into [approx | detail].
func haarStep(buf, tmp []float32, size int) {
	half := size / 2
	for i := 0; i < half; i++ {
		a, b := buf[2*i], buf[2*i+1]
		tmp[i] = (a + b) * haarScale
		tmp[half+i] = (a - b) * haarScale
	}
	copy(buf[:size], tmp[:size])
}

func haarInverseStep(buf, tmp []float32, size int) {
	half := size / 2
	for i := 0; i < half; i++ {
		a, d := buf[i], buf[half+i]
		tmp[2*i] = (a + d) * haarScale
		tmp[2*i+1] = (a - d) * haarScale
	}
	copy(buf[:size], tmp[:size])
}
