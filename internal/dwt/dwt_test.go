package dwt

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func randomSignal(rng *rand.Rand, n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(rng.NormFloat64() * 10)
	}
	return buf
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, typ := range Types() {
		tr, err := New(typ)
		if err != nil {
			t.Fatalf("New(%v): %v", typ, err)
		}
		for _, n := range []int{1, 2, 4, 8, 16, 32, 256} {
			orig := randomSignal(rng, n)
			buf := append([]float32(nil), orig...)

			tr.Transform(buf, n)
			tr.InverseTransform(buf, n)

			for i := range orig {
				if d := math.Abs(float64(buf[i] - orig[i])); d > 1e-3 {
					t.Fatalf("%v n=%d: sample %d = %v, want %v", typ, n, i, buf[i], orig[i])
				}
			}
		}
	}
}

func TestTransformOnlyTouchesPrefix(t *testing.T) {
	for _, typ := range Types() {
		tr, _ := New(typ)
		buf := []float32{1, 2, 3, 4, 5, 6, 7, 8, 99, 99}
		tr.Transform(buf, 8)
		tr.InverseTransform(buf, 8)
		if buf[8] != 99 || buf[9] != 99 {
			t.Fatalf("%v: tail modified: %v", typ, buf[8:])
		}
	}
}

func TestOrthonormalPreservesEnergy(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, typ := range []Type{Haar, Daub4} {
		tr, _ := New(typ)
		buf := randomSignal(rng, 64)
		var before float64
		for _, v := range buf {
			before += float64(v) * float64(v)
		}
		tr.Transform(buf, len(buf))
		var after float64
		for _, v := range buf {
			after += float64(v) * float64(v)
		}
		if math.Abs(before-after)/before > 1e-4 {
			t.Fatalf("%v: energy %v -> %v", typ, before, after)
		}
	}
}

func TestConstantSignalCompactsToTrend(t *testing.T) {
	for _, typ := range []Type{Haar, Daub4} {
		tr, _ := New(typ)
		buf := make([]float32, 16)
		for i := range buf {
			buf[i] = 2.5
		}
		tr.Transform(buf, len(buf))

		// trend = c * sqrt(n) for an orthonormal basis
		if d := math.Abs(float64(buf[0]) - 2.5*4); d > 1e-4 {
			t.Fatalf("%v: trend = %v, want 10", typ, buf[0])
		}
		for i := 1; i < len(buf); i++ {
			if math.Abs(float64(buf[i])) > 1e-4 {
				t.Fatalf("%v: detail %d = %v, want 0", typ, i, buf[i])
			}
		}
	}
}

func TestHaarKnownValues(t *testing.T) {
	buf := []float32{4, 2, 5, 5}
	(&HaarTransform{}).Transform(buf, 4)

	s := float32(math.Sqrt(0.5))
	// level 1: approx {6s, 10s}, detail {2s, 0}; level 2 on approx.
	want := []float32{(6*s + 10*s) * s, (6*s - 10*s) * s, 2 * s, 0}
	for i := range want {
		if math.Abs(float64(buf[i]-want[i])) > 1e-5 {
			t.Fatalf("coefficient %d = %v, want %v", i, buf[i], want[i])
		}
	}
}

func TestInvalidLengthPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non power-of-two length")
		}
	}()
	(&HaarTransform{}).Transform(make([]float32, 6), 6)
}

func TestParseType(t *testing.T) {
	for _, typ := range Types() {
		got, err := ParseType(typ.String())
		if err != nil || got != typ {
			t.Fatalf("ParseType(%q) = %v, %v", typ.String(), got, err)
		}
	}
	if _, err := ParseType("sinc"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if _, err := New(Type(7)); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if Type(3).Valid() {
		t.Fatal("Type(3) should be invalid")
	}
}
