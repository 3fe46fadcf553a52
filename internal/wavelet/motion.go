// Package wavelet compresses skeletal motions into chunks of quantized,
// entropy-coded wavelet coefficients and samples them through a shared
// decompression cache.
package wavelet

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"wavemotion/internal/dwt"
	"wavemotion/internal/mathutil"
	"wavemotion/internal/quant"
)

var nextMotionID atomic.Uint32

// Motion is a wavelet compressed skeletal motion. Compressed chunks are
// immutable and may be read from any goroutine; Scale, SwapChunkDataEndian
// and Release must not run concurrently with sampling.
type Motion struct {
	id   uint32
	name string

	wavelet         dwt.Type
	samplesPerChunk int
	secondsPerChunk float64
	sampleSpacing   float64
	maxTime         float64
	scale           float32
	qualityFactors  [NumChannels]float32

	// order is the byte order of the int16 streams inside each channel.
	order binary.ByteOrder

	numTracks [NumChannels]int
	// trackOwner maps a track of each channel to its sub-motion (or morph
	// sub-motion) index.
	trackOwner [NumChannels][]int

	mappings   []Mapping
	subMotions []SubMotion
	morphs     []MorphSubMotion
	chunks     []*Chunk
	stats      Stats

	// extractionNode is the sub-motion whose root movement drives the
	// actor, or -1.
	extractionNode int

	cache    *Cache
	released bool
}

func newMotion(name string, cache *Cache) *Motion {
	return &Motion{
		id:             nextMotionID.Add(1),
		name:           name,
		scale:          1,
		order:          binary.LittleEndian,
		cache:          cache,
		extractionNode: -1,
	}
}

// Parts is the decoded content of a motion file.
type Parts struct {
	Name            string
	Wavelet         dwt.Type
	SamplesPerChunk int
	SecondsPerChunk float64
	MaxTime         float64
	Scale           float32
	QualityFactors  [NumChannels]float32
	ByteOrder       binary.ByteOrder
	Mappings        []Mapping
	SubMotions      []SubMotion
	Morphs          []MorphSubMotion
	Chunks          []*Chunk
	Stats           Stats
	// ExtractionNode names the motion extraction sub-motion; empty for none.
	ExtractionNode string
}

// NewMotionFromParts assembles a motion loaded by an importer. The parts
// must already be validated; track counts are derived from the mappings.
func NewMotionFromParts(p Parts, cache *Cache) (*Motion, error) {
	if p.SamplesPerChunk < 2 || !isPowerOfTwo(p.SamplesPerChunk) {
		return nil, fmt.Errorf("wavelet: samples per chunk %d is not a power of two", p.SamplesPerChunk)
	}
	if !p.Wavelet.Valid() {
		return nil, fmt.Errorf("%w: %d", dwt.ErrUnsupported, uint8(p.Wavelet))
	}
	if len(p.Mappings) != len(p.SubMotions) {
		return nil, fmt.Errorf("wavelet: %d mappings for %d sub-motions", len(p.Mappings), len(p.SubMotions))
	}
	if len(p.Chunks) == 0 {
		return nil, fmt.Errorf("wavelet: motion %q has no chunks", p.Name)
	}

	m := newMotion(p.Name, cache)
	m.wavelet = p.Wavelet
	m.samplesPerChunk = p.SamplesPerChunk
	m.secondsPerChunk = p.SecondsPerChunk
	m.sampleSpacing = p.SecondsPerChunk / float64(p.SamplesPerChunk-1)
	m.maxTime = p.MaxTime
	m.scale = p.Scale
	if m.scale == 0 {
		m.scale = 1
	}
	m.qualityFactors = p.QualityFactors
	if p.ByteOrder != nil {
		m.order = p.ByteOrder
	}
	m.mappings = p.Mappings
	m.subMotions = p.SubMotions
	m.morphs = p.Morphs
	m.chunks = p.Chunks
	m.stats = p.Stats
	if p.ExtractionNode != "" {
		for i := range m.subMotions {
			if m.subMotions[i].Name == p.ExtractionNode {
				m.extractionNode = i
				break
			}
		}
		if m.extractionNode < 0 {
			return nil, fmt.Errorf("wavelet: extraction node %q is not a sub-motion of %q", p.ExtractionNode, p.Name)
		}
	}

	for i, mp := range m.mappings {
		for _, k := range []struct {
			kind ChannelKind
			idx  TrackIndex
		}{{Position, mp.Position}, {Rotation, mp.Rotation}, {Scale, mp.Scale}} {
			if err := m.addTrack(k.kind, k.idx, i); err != nil {
				return nil, err
			}
		}
	}
	for i, mo := range m.morphs {
		if err := m.addTrack(Morph, mo.Track, i); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// addTrack registers owner for a track; tracks must be dense and in
// declaration order.
func (m *Motion) addTrack(kind ChannelKind, idx TrackIndex, owner int) error {
	if !idx.Valid() {
		return nil
	}
	if int(idx) != m.numTracks[kind] {
		return fmt.Errorf("wavelet: %s track %d of entry %d is not dense (expected %d)", kind, idx, owner, m.numTracks[kind])
	}
	m.numTracks[kind]++
	m.trackOwner[kind] = append(m.trackOwner[kind], owner)
	return nil
}

func (m *Motion) ID() uint32                  { return m.id }
func (m *Motion) Name() string                { return m.name }
func (m *Motion) Wavelet() dwt.Type           { return m.wavelet }
func (m *Motion) NumChunks() int              { return len(m.chunks) }
func (m *Motion) Chunk(i int) *Chunk          { return m.chunks[i] }
func (m *Motion) SamplesPerChunk() int        { return m.samplesPerChunk }
func (m *Motion) SecondsPerChunk() float64    { return m.secondsPerChunk }
func (m *Motion) SampleSpacing() float64      { return m.sampleSpacing }
func (m *Motion) MaxTime() float64            { return m.maxTime }
func (m *Motion) ScaleFactor() float32        { return m.scale }
func (m *Motion) NumTracks(k ChannelKind) int { return m.numTracks[k] }
func (m *Motion) NumSubMotions() int          { return len(m.subMotions) }
func (m *Motion) Mapping(i int) Mapping       { return m.mappings[i] }
func (m *Motion) SubMotion(i int) *SubMotion  { return &m.subMotions[i] }
func (m *Motion) NumMorphSubMotions() int     { return len(m.morphs) }
func (m *Motion) Stats() Stats                { return m.stats }
func (m *Motion) Cache() *Cache               { return m.cache }

func (m *Motion) MorphSubMotion(i int) *MorphSubMotion { return &m.morphs[i] }

// MotionExtractionNode returns the index of the sub-motion whose root
// movement drives the actor, or -1.
func (m *Motion) MotionExtractionNode() int { return m.extractionNode }

// MotionExtractionNodeName returns the extraction sub-motion's name, or "".
func (m *Motion) MotionExtractionNodeName() string {
	if m.extractionNode < 0 {
		return ""
	}
	return m.subMotions[m.extractionNode].Name
}

// QualityFactor returns the quantization factor of a channel group.
func (m *Motion) QualityFactor(k ChannelKind) float32 { return m.qualityFactors[k] }

// ChunkByteOrder is the byte order of the int16 streams inside the chunks.
func (m *Motion) ChunkByteOrder() binary.ByteOrder { return m.order }

// FindChunkIndex returns the chunk covering t, clamped to the valid range.
func (m *Motion) FindChunkIndex(t float64) int {
	if t <= 0 || len(m.chunks) == 0 {
		return 0
	}
	i := int(t / m.secondsPerChunk)
	if i >= len(m.chunks) {
		i = len(m.chunks) - 1
	}
	return i
}

// FindSubMotionByID returns the index of the sub-motion with id, or -1.
func (m *Motion) FindSubMotionByID(id uint32) int {
	for i := range m.subMotions {
		if m.subMotions[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSubMotionByName returns the index of the named sub-motion, or -1.
func (m *Motion) FindSubMotionByName(name string) int {
	return m.FindSubMotionByID(NameID(name))
}

// FindMorphSubMotionByID returns the index of the morph sub-motion with id,
// or -1.
func (m *Motion) FindMorphSubMotionByID(id uint32) int {
	for i := range m.morphs {
		if m.morphs[i].ID == id {
			return i
		}
	}
	return -1
}

// Scale multiplies all positions of the motion by factor and purges cached
// chunks.
func (m *Motion) Scale(factor float32) {
	f := float64(factor)
	for i := range m.subMotions {
		s := &m.subMotions[i]
		s.Pose.Position = s.Pose.Position.Scale(f)
		s.BindPose.Position = s.BindPose.Position.Scale(f)
	}
	m.scale *= factor
	if m.cache != nil {
		m.cache.RemoveChunksForMotion(m)
	}
}

// Release purges the motion from the cache and drops its chunks. The caller
// must ensure no goroutine is still sampling the motion.
func (m *Motion) Release() {
	if m.released {
		return
	}
	if m.cache != nil {
		m.cache.RemoveChunksForMotion(m)
	}
	m.chunks = nil
	m.released = true
}

// Released reports whether Release was called.
func (m *Motion) Released() bool { return m.released }

// decompressedBytes is the resident size of one decompressed chunk.
func (m *Motion) decompressedBytes() int {
	n := m.samplesPerChunk
	return decompressedChunkHeader +
		m.numTracks[Rotation]*n*sizeQuat16 +
		(m.numTracks[Position]+m.numTracks[Scale])*n*sizeVec3 +
		m.numTracks[Morph]*n*sizeFloat
}

// ChannelStreamBytes is the size of a channel's int16 stream before entropy
// coding.
func (m *Motion) ChannelStreamBytes(k ChannelKind) int {
	return m.numTracks[k] * k.components() * m.samplesPerChunk * 2
}

// MaxQuantError reports the largest dequantization error of any
// coefficient of a channel over all chunks.
func (m *Motion) MaxQuantError(k ChannelKind) float32 {
	var e float32
	for _, c := range m.chunks {
		e = max(e, quant.MaxError(c.Channels[k].QuantScale, m.qualityFactors[k]))
	}
	return e
}

// poseFor returns the pose of the sub-motion that owns a track.
func (m *Motion) poseFor(k ChannelKind, track int) mathutil.Transform {
	return m.subMotions[m.trackOwner[k][track]].Pose
}

// NumChunksFor is the number of chunks starting before maxTime, at least
// one so a single-frame motion can still be sampled.
func NumChunksFor(maxTime, secondsPerChunk float64) int {
	if secondsPerChunk <= 0 || !(maxTime > 0) {
		return 1
	}
	n := max(1, int(math.Ceil(maxTime/secondsPerChunk)))
	for n > 1 && float64(n-1)*secondsPerChunk >= maxTime {
		n--
	}
	for float64(n)*secondsPerChunk < maxTime {
		n++
	}
	return n
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
