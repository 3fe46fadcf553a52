package plot

import (
	"fmt"

	"wavemotion/internal/motion"
	"wavemotion/internal/wavelet"
)

var componentNames = []string{"x", "y", "z", "w"}

// ChannelChart samples one channel of a sub-motion (or of a morph
// sub-motion for wavelet.Morph) from both the source and the compressed
// motion at n evenly spaced times.
func ChannelChart(src *motion.SkeletalMotion, m *wavelet.Motion, c *wavelet.Cache, threadIndex, sub int, kind wavelet.ChannelKind, n int) (*Chart, error) {
	if n < 2 {
		n = 2
	}
	var name string
	var numComponents int
	switch kind {
	case wavelet.Morph:
		if sub < 0 || sub >= len(src.Morphs) || sub >= m.NumMorphSubMotions() {
			return nil, fmt.Errorf("plot: morph sub-motion %d out of range", sub)
		}
		name, numComponents = src.Morphs[sub].Name, 1
	case wavelet.Rotation, wavelet.Position, wavelet.Scale:
		if sub < 0 || sub >= len(src.SubMotions) || sub >= m.NumSubMotions() {
			return nil, fmt.Errorf("plot: sub-motion %d out of range", sub)
		}
		name, numComponents = src.SubMotions[sub].Name, 3
		if kind == wavelet.Rotation {
			numComponents = 4
		}
	default:
		return nil, fmt.Errorf("plot: unknown channel %v", kind)
	}

	ch := &Chart{Title: fmt.Sprintf("%s %s %s", m.Name(), name, kind), End: m.MaxTime()}
	want := make([][]float64, numComponents)
	got := make([][]float64, numComponents)
	for i := 0; i < n; i++ {
		t := ch.End * float64(i) / float64(n-1)
		a, b, err := sampleBoth(src, m, c, threadIndex, sub, kind, t)
		if err != nil {
			return nil, err
		}
		if kind == wavelet.Rotation && dot(a, b) < 0 {
			for j := range b {
				b[j] = -b[j]
			}
		}
		for j := 0; j < numComponents; j++ {
			want[j] = append(want[j], a[j])
			got[j] = append(got[j], b[j])
		}
	}
	for j := 0; j < numComponents; j++ {
		col := Palette[j%len(Palette)]
		label := componentNames[j]
		if numComponents == 1 {
			label = "weight"
		}
		ch.Series = append(ch.Series,
			Series{Label: label, Color: col, Values: want[j]},
			Series{Label: label + "'", Color: col, Values: got[j], Dashed: true})
	}
	return ch, nil
}

func sampleBoth(src *motion.SkeletalMotion, m *wavelet.Motion, c *wavelet.Cache, threadIndex, sub int, kind wavelet.ChannelKind, t float64) (a, b []float64, err error) {
	if kind == wavelet.Morph {
		w, err := m.MorphWeightAtTime(c, threadIndex, sub, t)
		if err != nil {
			return nil, nil, err
		}
		return []float64{src.Morphs[sub].WeightAt(t)}, []float64{w}, nil
	}
	tr, err := m.TransformAtTime(c, threadIndex, sub, t)
	if err != nil {
		return nil, nil, err
	}
	s := src.SubMotions[sub].TransformAt(t)
	switch kind {
	case wavelet.Rotation:
		return s.Rotation[:], tr.Rotation[:], nil
	case wavelet.Scale:
		return s.Scale[:], tr.Scale[:], nil
	}
	return s.Position[:], tr.Position[:], nil
}

func dot(a, b []float64) float64 {
	var d float64
	for i := range a {
		d += a[i] * b[i]
	}
	return d
}
