package wavelet

import (
	"math"

	"wavemotion/internal/mathutil"
)

func (dc *DecompressedChunk) Motion() *Motion    { return dc.motion }
func (dc *DecompressedChunk) ChunkIndex() int    { return dc.chunkIndex }
func (dc *DecompressedChunk) StartTime() float64 { return dc.startTime }
func (dc *DecompressedChunk) NumSamples() int    { return dc.numSamples }
func (dc *DecompressedChunk) SizeInBytes() int   { return dc.size }

// EndTime is the time of the last sample.
func (dc *DecompressedChunk) EndTime() float64 {
	return dc.startTime + float64(dc.numSamples-1)*dc.spacing
}

// CalcInterpolationValues returns the two samples around t and the blend
// fraction between them. Times outside the chunk clamp to its first or
// last sample.
func (dc *DecompressedChunk) CalcInterpolationValues(t float64) (first, second int, frac float64) {
	offset := t - dc.startTime
	if offset <= 0 {
		return 0, min(1, dc.numSamples-1), 0
	}
	pos := offset / dc.spacing
	first = int(math.Floor(pos))
	last := dc.numSamples - 1
	if first >= last {
		return last, last, 0
	}
	return first, first + 1, pos - float64(first)
}

// TransformAt interpolates sub-motion sub between two samples. Channels
// without a track return the pose value.
func (dc *DecompressedChunk) TransformAt(sub, first, second int, frac float64) mathutil.Transform {
	m := dc.motion
	mp := m.mappings[sub]
	out := m.subMotions[sub].Pose
	n := dc.numSamples

	if mp.Position.Valid() {
		base := int(mp.Position) * n
		a := dc.positions[base+first].Unpack()
		b := dc.positions[base+second].Unpack()
		out.Position = a.Lerp(b, frac)
	}
	if mp.Rotation.Valid() {
		base := int(mp.Rotation) * n
		a := dc.rotations[base+first].Unpack()
		b := dc.rotations[base+second].Unpack()
		out.Rotation = a.Nlerp(b, frac)
	}
	if mp.Scale.Valid() {
		base := int(mp.Scale) * n
		a := dc.scales[base+first].Unpack()
		b := dc.scales[base+second].Unpack()
		out.Scale = a.Lerp(b, frac)
	}
	return out
}

// TransformAtTime samples sub-motion sub at t.
func (dc *DecompressedChunk) TransformAtTime(sub int, t float64) mathutil.Transform {
	first, second, frac := dc.CalcInterpolationValues(t)
	return dc.TransformAt(sub, first, second, frac)
}

// MorphWeightAt interpolates morph sub-motion i between two samples.
func (dc *DecompressedChunk) MorphWeightAt(i, first, second int, frac float64) float64 {
	mo := dc.motion.morphs[i]
	if !mo.Track.Valid() {
		return float64(mo.PoseWeight)
	}
	base := int(mo.Track) * dc.numSamples
	a := float64(dc.morphs[base+first])
	b := float64(dc.morphs[base+second])
	return a + (b-a)*frac
}

func (dc *DecompressedChunk) MorphWeightAtTime(i int, t float64) float64 {
	first, second, frac := dc.CalcInterpolationValues(t)
	return dc.MorphWeightAt(i, first, second, frac)
}

// TransformAtTime samples one sub-motion through the cache.
func (m *Motion) TransformAtTime(c *Cache, threadIndex, sub int, t float64) (mathutil.Transform, error) {
	dc, err := c.GetChunkAtTime(t, m, threadIndex)
	if err != nil {
		return m.subMotions[sub].Pose, err
	}
	defer dc.Release()
	return dc.TransformAtTime(sub, t), nil
}

// MorphWeightAtTime samples one morph weight through the cache.
func (m *Motion) MorphWeightAtTime(c *Cache, threadIndex, i int, t float64) (float64, error) {
	dc, err := c.GetChunkAtTime(t, m, threadIndex)
	if err != nil {
		return float64(m.morphs[i].PoseWeight), err
	}
	defer dc.Release()
	return dc.MorphWeightAtTime(i, t), nil
}
