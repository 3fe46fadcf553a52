package dwt

// CDF 9/7 lifting coefficients (JPEG 2000 irreversible filter).
const (
	alpha97 = -1.586134342059924
	beta97  = -0.052980118572961
	gamma97 = 0.882911075530934
	delta97 = 0.443506852043971
	k97     = 1.230174104914001
	k97i    = 1.0 / k97
)

// CDF97Transform is the Cohen-Daubechies-Feauveau 9/7 wavelet computed with
// the lifting scheme and symmetric boundary extension.
type CDF97Transform struct {
	low, high []float32
}

func (c *CDF97Transform) Transform(buf []float32, n int) {
	checkLen(buf, n)
	c.low = grow(c.low, n/2+1)
	c.high = grow(c.high, n/2+1)
	for size := n; size >= 2; size >>= 1 {
		c.forward(buf[:size])
	}
}

func (c *CDF97Transform) InverseTransform(buf []float32, n int) {
	checkLen(buf, n)
	c.low = grow(c.low, n/2+1)
	c.high = grow(c.high, n/2+1)
	for size := 2; size <= n; size <<= 1 {
		c.inverse(buf[:size])
	}
}

func (c *CDF97Transform) forward(data []float32) {
	half := len(data) / 2
	low, high := c.low[:half], c.high[:half]
	for i := 0; i < half; i++ {
		low[i] = data[2*i]
		high[i] = data[2*i+1]
	}

	predict(low, high, alpha97)
	update(low, high, beta97)
	predict(low, high, gamma97)
	update(low, high, delta97)

	for i := 0; i < half; i++ {
		low[i] *= k97
		high[i] *= k97i
	}
	copy(data[:half], low)
	copy(data[half:], high)
}

func (c *CDF97Transform) inverse(data []float32) {
	half := len(data) / 2
	low, high := c.low[:half], c.high[:half]
	for i := 0; i < half; i++ {
		low[i] = data[i] * k97i
		high[i] = data[half+i] * k97
	}

	update(low, high, -delta97)
	predict(low, high, -gamma97)
	update(low, high, -beta97)
	predict(low, high, -alpha97)

	for i := 0; i < half; i++ {
		data[2*i] = low[i]
		data[2*i+1] = high[i]
	}
}

// predict lifts odd samples from their even neighbours; the right edge
// mirrors onto the last even sample.
func predict(low, high []float32, k float32) {
	n := len(low)
	for i := range high {
		right := low[n-1]
		if i+1 < n {
			right = low[i+1]
		}
		high[i] += k * (low[i] + right)
	}
}

// update lifts even samples from their odd neighbours; the left edge mirrors
// onto the first odd sample.
func update(low, high []float32, k float32) {
	for i := range low {
		left := high[0]
		if i > 0 {
			left = high[i-1]
		}
		low[i] += k * (left + high[i])
	}
}
