package wavelet

import (
	"fmt"
	"log/slog"

	"wavemotion/internal/dwt"
	"wavemotion/internal/huffman"
	"wavemotion/internal/mathutil"
	"wavemotion/internal/motion"
	"wavemotion/internal/quant"
)

// Compress builds a wavelet motion from an uncompressed source motion.
//
// The duration is cut into chunks of SamplesPerChunk (rounded up to a power
// of two) evenly spaced samples. Positions, scales and morph weights are
// stored relative to their pose value; rotations are stored as raw
// quaternion components. Constant tracks are folded into the pose and take
// no space. The source is not modified.
func Compress(src *motion.SkeletalMotion, s Settings, cache *Cache) (*Motion, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("wavelet: compress %s: %w", src.Name, err)
	}
	if len(src.SubMotions) >= int(NoTrack) || len(src.Morphs) >= int(NoTrack) {
		return nil, fmt.Errorf("wavelet: compress %s: too many sub-motions", src.Name)
	}

	n := nextPowerOfTwo(s.SamplesPerChunk)
	m := newMotion(src.Name, cache)
	m.wavelet = s.Wavelet
	m.samplesPerChunk = n
	m.secondsPerChunk = float64(n) / float64(s.SamplesPerSecond)
	m.sampleSpacing = m.secondsPerChunk / float64(n-1)
	m.maxTime = src.MaxTime()
	m.qualityFactors = [NumChannels]float32{
		Rotation: quant.Factor(s.RotationQuality),
		Position: quant.Factor(s.PositionQuality),
		Scale:    quant.Factor(s.ScaleQuality),
		Morph:    quant.Factor(s.MorphQuality),
	}

	m.subMotions = make([]SubMotion, len(src.SubMotions))
	m.mappings = make([]Mapping, len(src.SubMotions))
	for i, sm := range src.SubMotions {
		m.subMotions[i] = SubMotion{
			ID:       NameID(sm.Name),
			Name:     sm.Name,
			Pose:     sm.StaticPose(),
			BindPose: sm.BindPose,
		}
		m.mappings[i] = Mapping{
			Position: m.assignTrack(Position, sm.PositionAnimated(), i),
			Rotation: m.assignTrack(Rotation, sm.RotationAnimated(), i),
			Scale:    m.assignTrack(Scale, sm.ScaleAnimated(), i),
		}
	}
	if src.MotionExtractionNode != "" {
		if m.extractionNode = src.FindSubMotion(src.MotionExtractionNode); m.extractionNode < 0 {
			return nil, fmt.Errorf("wavelet: compress %s: extraction node %q has no sub-motion", src.Name, src.MotionExtractionNode)
		}
	}
	m.morphs = make([]MorphSubMotion, len(src.Morphs))
	for i, mo := range src.Morphs {
		m.morphs[i] = MorphSubMotion{
			ID:         NameID(mo.Name),
			Name:       mo.Name,
			PoseWeight: float32(mo.StaticWeight()),
			Track:      m.assignTrack(Morph, mo.Animated(), i),
		}
	}

	tr, err := dwt.New(s.Wavelet)
	if err != nil {
		return nil, fmt.Errorf("wavelet: compress %s: %w", src.Name, err)
	}
	enc := &chunkEncoder{m: m, src: src, wavelet: tr}

	numChunks := NumChunksFor(m.maxTime, m.secondsPerChunk)
	m.chunks = make([]*Chunk, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		m.chunks = append(m.chunks, enc.encode(float64(i)*m.secondsPerChunk))
	}

	m.stats = m.gatherStats(src)
	logger(cache).Debug("wavelet: compressed motion",
		"motion", m.name,
		"wavelet", m.wavelet,
		"chunks", len(m.chunks),
		"compressed", m.stats.CompressedBytes,
		"ratio", m.stats.Ratio())
	return m, nil
}

func (m *Motion) assignTrack(k ChannelKind, animated bool, owner int) TrackIndex {
	if !animated {
		return NoTrack
	}
	idx := TrackIndex(m.numTracks[k])
	m.numTracks[k]++
	m.trackOwner[k] = append(m.trackOwner[k], owner)
	return idx
}

// chunkEncoder holds the scratch buffers reused for every chunk.
type chunkEncoder struct {
	m       *Motion
	src     *motion.SkeletalMotion
	wavelet dwt.Transform

	coeffs []float32
	quant  []int16
	raw    []byte
}

func (e *chunkEncoder) encode(start float64) *Chunk {
	c := &Chunk{StartTime: start}
	for k := ChannelKind(0); k < NumChannels; k++ {
		c.Channels[k] = e.encodeChannel(k, start)
	}
	return c
}

func (e *chunkEncoder) encodeChannel(k ChannelKind, start float64) Channel {
	m := e.m
	numTracks := m.numTracks[k]
	if numTracks == 0 {
		return Channel{}
	}
	n := m.samplesPerChunk
	comps := k.components()
	total := numTracks * comps * n
	e.coeffs = growFloats(e.coeffs, total)
	e.quant = growInt16s(e.quant, total)
	e.raw = growBytes(e.raw, total*2)

	for t := 0; t < numTracks; t++ {
		owner := m.trackOwner[k][t]
		base := t * comps * n
		e.sampleTrack(k, owner, start, e.coeffs[base:base+comps*n])
	}

	for j := 0; j < numTracks*comps; j++ {
		e.wavelet.Transform(e.coeffs[j*n:(j+1)*n], n)
	}
	scale := quant.Quantize(e.coeffs, total, e.quant, m.qualityFactors[k])
	for i, v := range e.quant[:total] {
		m.order.PutUint16(e.raw[2*i:], uint16(v))
	}
	data, bits := huffman.Encode(nil, e.raw[:total*2])
	return Channel{Data: data, QuantScale: scale, NumBits: bits}
}

// sampleTrack writes the component signals of one track into dst, laid out
// as comps consecutive runs of n samples.
func (e *chunkEncoder) sampleTrack(k ChannelKind, owner int, start float64, dst []float32) {
	n := e.m.samplesPerChunk
	spacing := e.m.sampleSpacing
	switch k {
	case Rotation:
		sm := e.src.SubMotions[owner]
		var prev mathutil.Quat
		for s := 0; s < n; s++ {
			q := sm.Rotation.Sample(start+float64(s)*spacing, motion.LerpQuat).Normalize()
			// keep consecutive samples in one hemisphere for smooth signals
			if s > 0 && q.Dot(prev) < 0 {
				q = mathutil.Quat{-q[0], -q[1], -q[2], -q[3]}
			}
			prev = q
			for c := 0; c < 4; c++ {
				dst[c*n+s] = float32(q[c])
			}
		}
	case Position, Scale:
		sm := e.src.SubMotions[owner]
		track, pose := sm.Position, e.m.subMotions[owner].Pose.Position
		if k == Scale {
			track, pose = sm.Scale, e.m.subMotions[owner].Pose.Scale
		}
		for s := 0; s < n; s++ {
			v := track.Sample(start+float64(s)*spacing, motion.LerpVec3).Sub(pose)
			for c := 0; c < 3; c++ {
				dst[c*n+s] = float32(v[c])
			}
		}
	case Morph:
		mo := e.src.Morphs[owner]
		pose := float64(e.m.morphs[owner].PoseWeight)
		for s := 0; s < n; s++ {
			dst[s] = float32(mo.Weights.Sample(start+float64(s)*spacing, motion.LerpFloat) - pose)
		}
	}
}

func (m *Motion) gatherStats(src *motion.SkeletalMotion) Stats {
	var st Stats
	numChunks := float64(len(m.chunks))
	keyed30 := func(valueSize int) int {
		return int(m.secondsPerChunk * 30 * numChunks * float64(valueSize+sizeKeyTime))
	}

	for i, sm := range src.SubMotions {
		mp := m.mappings[i]
		pos, rot, scale := sm.NumKeys()
		if mp.Rotation.Valid() {
			st.UncompressedBytes += keyed30(sizeQuat)
			st.OptimizedBytes += rot * (sizeQuat16 + sizeKeyTime)
		}
		if mp.Position.Valid() {
			st.UncompressedBytes += keyed30(sizeVec3)
			st.OptimizedBytes += pos * (sizeVec3 + sizeKeyTime)
		}
		if mp.Scale.Valid() {
			st.UncompressedBytes += keyed30(sizeVec3)
			st.OptimizedBytes += scale * (sizeVec3 + sizeKeyTime)
		}
	}
	for i, mo := range src.Morphs {
		if !m.morphs[i].Track.Valid() {
			continue
		}
		st.UncompressedBytes += keyed30(sizeFloat)
		st.OptimizedBytes += len(mo.Weights.Keys) * (sizeFloat16 + sizeKeyTime)
	}

	st.ChunkOverhead = len(m.chunks) * chunkRecordLen
	for _, c := range m.chunks {
		st.CompressedBytes += c.CompressedBytes()
	}
	st.CompressedBytes += st.ChunkOverhead
	st.CompressedBytes += len(m.mappings) * sizeMapping
	st.CompressedBytes += len(m.morphs) * sizeMorphMap
	return st
}

func logger(c *Cache) *slog.Logger {
	if c != nil && c.log != nil {
		return c.log
	}
	return slog.Default()
}

func growFloats(b []float32, n int) []float32 {
	if cap(b) < n {
		return make([]float32, n)
	}
	return b[:n]
}

func growInt16s(b []int16, n int) []int16 {
	if cap(b) < n {
		return make([]int16, n)
	}
	return b[:n]
}

func growBytes(b []byte, n int) []byte {
	if cap(b) < n {
		return make([]byte, n)
	}
	return b[:n]
}
