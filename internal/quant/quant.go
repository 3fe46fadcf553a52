// Package quant maps wavelet coefficients to signed 16-bit integers with one
// linear scale per buffer.
package quant

import "math"

const maxLevel = 32767

// Factor converts a 1-100 quality percentage into a quality factor. Quality
// 100 gives factor 1 (full int16 precision); lower quality coarsens the step.
func Factor(quality float32) float32 {
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	return 1 + (100-quality)*0.4
}

// levels is the largest quantized magnitude for a quality factor.
func levels(qualityFactor float32) float32 {
	if qualityFactor < 1 {
		qualityFactor = 1
	}
	l := float32(math.Floor(float64(maxLevel / qualityFactor)))
	if l < 1 {
		l = 1
	}
	return l
}

func step(scale, qualityFactor float32) float32 {
	return scale * maxLevel / levels(qualityFactor)
}

// Quantize writes round(coeffs[i]/step) into out[:n] and returns the scale
// (max |coeff| / 32767) to store next to the data. The coefficient with the
// largest magnitude is reproduced exactly by Dequantize.
func Quantize(coeffs []float32, n int, out []int16, qualityFactor float32) float32 {
	var maxAbs float32
	for _, c := range coeffs[:n] {
		if c < 0 {
			c = -c
		}
		if c > maxAbs {
			maxAbs = c
		}
	}
	if maxAbs == 0 {
		clear(out[:n])
		return 0
	}

	scale := maxAbs / maxLevel
	lv := levels(qualityFactor)
	inv := lv / maxAbs
	for i, c := range coeffs[:n] {
		q := float32(math.Round(float64(c * inv)))
		if q > lv {
			q = lv
		} else if q < -lv {
			q = -lv
		}
		out[i] = int16(q)
	}
	return scale
}

// Dequantize is the inverse of Quantize.
func Dequantize(in []int16, n int, out []float32, scale, qualityFactor float32) {
	st := step(scale, qualityFactor)
	for i, q := range in[:n] {
		out[i] = float32(q) * st
	}
}

// MaxError is the worst-case absolute reconstruction error of one
// coefficient for the given scale and quality factor.
func MaxError(scale, qualityFactor float32) float32 {
	return step(scale, qualityFactor) / 2
}
