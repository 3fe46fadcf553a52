// Package dwt implements in-place 1D discrete wavelet transforms over
// power-of-two sample buffers.
//
// After a forward transform buf[0] holds the global trend and the remaining
// coefficients hold details at increasing resolution. Instances own scratch
// buffers and must not be shared between goroutines.
package dwt

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies a wavelet family. The numeric values are stored in motion
// files and must not change.
type Type uint8

const (
	Haar  Type = 0
	Daub4 Type = 1
	CDF97 Type = 2

	numTypes = 3
)

// ErrUnsupported is returned for unknown wavelet types.
var ErrUnsupported = errors.New("dwt: unsupported wavelet")

// Transform is a reversible multi-level wavelet transform.
type Transform interface {
	// Transform replaces buf[:n] with its wavelet coefficients.
	Transform(buf []float32, n int)
	// InverseTransform restores buf[:n] from its coefficients.
	InverseTransform(buf []float32, n int)
}

// Types lists every supported wavelet in enum order.
func Types() []Type {
	return []Type{Haar, Daub4, CDF97}
}

func (t Type) Valid() bool {
	return t < numTypes
}

func (t Type) String() string {
	switch t {
	case Haar:
		return "haar"
	case Daub4:
		return "daub4"
	case CDF97:
		return "cdf97"
	}
	return fmt.Sprintf("wavelet(%d)", uint8(t))
}

// ParseType accepts the names returned by String (case-insensitive).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "haar":
		return Haar, nil
	case "daub4", "d4", "daubechies4":
		return Daub4, nil
	case "cdf97", "cdf9/7", "9/7":
		return CDF97, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
}

// New returns a fresh transform instance for t.
func New(t Type) (Transform, error) {
	switch t {
	case Haar:
		return &HaarTransform{}, nil
	case Daub4:
		return &Daub4Transform{}, nil
	case CDF97:
		return &CDF97Transform{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupported, uint8(t))
}

// grow returns buf resliced to n, reallocating only when capacity is short.
func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}

func checkLen(buf []float32, n int) {
	if n < 0 || n > len(buf) || n&(n-1) != 0 {
		panic(fmt.Sprintf("dwt: invalid length %d (buffer %d)", n, len(buf)))
	}
}
