package motionfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"wavemotion/internal/dwt"
	"wavemotion/internal/huffman"
	"wavemotion/internal/mathutil"
	"wavemotion/internal/wavelet"
)

type reader struct {
	data  []byte
	off   int
	order binary.ByteOrder
	short bool
}

func (r *reader) take(n int) []byte {
	if r.short || n < 0 || n > len(r.data)-r.off {
		r.short = true
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) remaining() int { return len(r.data) - r.off }

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return r.order.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return r.order.Uint32(b)
	}
	return 0
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) f64() float64 {
	if b := r.take(8); b != nil {
		return math.Float64frombits(r.order.Uint64(b))
	}
	return 0
}

func (r *reader) str() string {
	return string(r.take(int(r.u16())))
}

func (r *reader) transform() mathutil.Transform {
	var t mathutil.Transform
	for i := range t.Position {
		t.Position[i] = float64(r.f32())
	}
	for i := range t.Rotation {
		t.Rotation[i] = float64(r.f32())
	}
	for i := range t.Scale {
		t.Scale[i] = float64(r.f32())
	}
	return t
}

func parseOrder(tag byte) (binary.ByteOrder, bool) {
	switch tag {
	case 'L':
		return binary.LittleEndian, true
	case 'B':
		return binary.BigEndian, true
	}
	return nil, false
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// info is the fixed part of the file before the sub-motion table.
type info struct {
	numChunks       int
	samplesPerChunk int
	secondsPerChunk float64
	maxTime         float64
	streamBytes     [wavelet.NumChannels]int
	numTracks       [wavelet.NumChannels]int
	qualityFactors  [wavelet.NumChannels]float32
	wavelet         dwt.Type
	chunkOrder      binary.ByteOrder
	scale           float32
	numSubMotions   int
	numMorphs       int
	stats           wavelet.Stats
	name            string
	extractionNode  string
}

func (r *reader) info() (*info, error) {
	in := &info{
		numChunks:       int(r.u32()),
		samplesPerChunk: int(r.u32()),
		secondsPerChunk: r.f64(),
		maxTime:         r.f64(),
	}
	for k := range in.streamBytes {
		in.streamBytes[k] = int(r.u32())
	}
	for k := range in.numTracks {
		in.numTracks[k] = int(r.u32())
	}
	for k := range in.qualityFactors {
		in.qualityFactors[k] = r.f32()
	}
	in.wavelet = dwt.Type(r.u8())
	compressor := r.u8()
	orderTag := r.u8()
	_ = r.u8()
	in.scale = r.f32()
	in.numSubMotions = int(r.u32())
	in.numMorphs = int(r.u32())
	var st [numStats]int
	for i := range st {
		st[i] = int(r.u32())
	}
	in.stats = wavelet.Stats{
		CompressedBytes:   st[0],
		UncompressedBytes: st[1],
		OptimizedBytes:    st[2],
		ChunkOverhead:     st[3],
	}
	in.name = r.str()
	in.extractionNode = r.str()
	if r.short {
		return nil, malformedf("truncated info block")
	}

	if !in.wavelet.Valid() {
		return nil, fmt.Errorf("%w: id %d", ErrUnsupportedWavelet, uint8(in.wavelet))
	}
	if compressor != compressorHuffman {
		return nil, fmt.Errorf("%w: id %d", ErrUnsupportedCompressor, compressor)
	}
	var ok bool
	if in.chunkOrder, ok = parseOrder(orderTag); !ok {
		return nil, invalid("chunk byte order", "tag %#x", orderTag)
	}
	n := in.samplesPerChunk
	if n < 2 || n > maxSamplesPerChunk || n&(n-1) != 0 {
		return nil, invalid("samples per chunk", "%d is not a power of two in [2,%d]", n, maxSamplesPerChunk)
	}
	if !finite(in.secondsPerChunk) || in.secondsPerChunk <= 0 {
		return nil, invalid("seconds per chunk", "%v", in.secondsPerChunk)
	}
	if !finite(in.maxTime) || in.maxTime < 0 || in.maxTime/in.secondsPerChunk > maxChunks {
		return nil, invalid("max time", "%v", in.maxTime)
	}
	if want := wavelet.NumChunksFor(in.maxTime, in.secondsPerChunk); in.numChunks != want {
		return nil, invalid("chunk count", "%d chunks for max time %v, want %d", in.numChunks, in.maxTime, want)
	}
	for k, q := range in.qualityFactors {
		if !finite(float64(q)) || q < 1 {
			return nil, invalid("quant factor", "%s factor %v", wavelet.ChannelKind(k), q)
		}
	}
	if !finite(float64(in.scale)) || in.scale == 0 {
		return nil, invalid("scale", "%v", in.scale)
	}
	if in.numSubMotions*minSubMotionSize > r.remaining() {
		return nil, invalid("sub-motion count", "%d does not fit in %d bytes", in.numSubMotions, r.remaining())
	}
	if in.numMorphs*minMorphSize > r.remaining() {
		return nil, invalid("morph count", "%d does not fit in %d bytes", in.numMorphs, r.remaining())
	}
	if in.numChunks*minChunkSize > r.remaining() {
		return nil, invalid("chunk count", "%d does not fit in %d bytes", in.numChunks, r.remaining())
	}
	return in, nil
}

func checkTrack(field string, t wavelet.TrackIndex, numTracks int) error {
	if t.Valid() && int(t) >= numTracks {
		return invalid(field, "track %d out of range [0,%d)", t, numTracks)
	}
	return nil
}

// Read decodes a motion in either byte order, validates its structure and
// converts the chunk streams to little-endian.
func Read(rd io.Reader, cache *wavelet.Cache) (*wavelet.Motion, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("motionfile: read: %w", err)
	}
	if len(data) < headerSize || string(data[:4]) != magic {
		return nil, malformedf("bad magic")
	}
	order, ok := parseOrder(data[4])
	if !ok {
		return nil, invalid("endian tag", "%#x", data[4])
	}
	if data[5] != version {
		return nil, invalid("version", "%d", data[5])
	}

	r := &reader{data: data, off: headerSize, order: order}
	in, err := r.info()
	if err != nil {
		return nil, err
	}

	p := wavelet.Parts{
		Name:            in.name,
		Wavelet:         in.wavelet,
		SamplesPerChunk: in.samplesPerChunk,
		SecondsPerChunk: in.secondsPerChunk,
		MaxTime:         in.maxTime,
		Scale:           in.scale,
		QualityFactors:  in.qualityFactors,
		ByteOrder:       in.chunkOrder,
		Stats:           in.stats,
		ExtractionNode:  in.extractionNode,
		Mappings:        make([]wavelet.Mapping, in.numSubMotions),
		SubMotions:      make([]wavelet.SubMotion, in.numSubMotions),
		Morphs:          make([]wavelet.MorphSubMotion, in.numMorphs),
		Chunks:          make([]*wavelet.Chunk, in.numChunks),
	}

	for i := range p.SubMotions {
		mp := wavelet.Mapping{
			Position: wavelet.TrackIndex(r.u16()),
			Rotation: wavelet.TrackIndex(r.u16()),
			Scale:    wavelet.TrackIndex(r.u16()),
		}
		for _, c := range []struct {
			field string
			t     wavelet.TrackIndex
			kind  wavelet.ChannelKind
		}{{"position mapping", mp.Position, wavelet.Position}, {"rotation mapping", mp.Rotation, wavelet.Rotation}, {"scale mapping", mp.Scale, wavelet.Scale}} {
			if err := checkTrack(c.field, c.t, in.numTracks[c.kind]); err != nil {
				return nil, err
			}
		}
		p.Mappings[i] = mp
		p.SubMotions[i] = wavelet.SubMotion{
			ID:       r.u32(),
			Pose:     r.transform(),
			BindPose: r.transform(),
			Name:     r.str(),
		}
	}
	for i := range p.Morphs {
		mo := wavelet.MorphSubMotion{
			Track:      wavelet.TrackIndex(r.u16()),
			ID:         r.u32(),
			PoseWeight: r.f32(),
			Name:       r.str(),
		}
		if err := checkTrack("morph mapping", mo.Track, in.numTracks[wavelet.Morph]); err != nil {
			return nil, err
		}
		p.Morphs[i] = mo
	}
	if r.short {
		return nil, malformedf("truncated sub-motion table")
	}

	for i := range p.Chunks {
		c, err := r.chunk(in, i)
		if err != nil {
			return nil, err
		}
		p.Chunks[i] = c
	}
	if r.remaining() != 0 {
		return nil, malformedf("%d trailing bytes", r.remaining())
	}

	m, err := wavelet.NewMotionFromParts(p, cache)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for k := wavelet.ChannelKind(0); k < wavelet.NumChannels; k++ {
		if m.NumTracks(k) != in.numTracks[k] {
			return nil, invalid("track count", "%s has %d mapped tracks, header says %d", k, m.NumTracks(k), in.numTracks[k])
		}
		if m.ChannelStreamBytes(k) != in.streamBytes[k] {
			return nil, invalid("stream size", "%s stream is %d bytes, header says %d", k, m.ChannelStreamBytes(k), in.streamBytes[k])
		}
	}
	if err := m.ConvertChunkDataEndian(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

func (r *reader) chunk(in *info, idx int) (*wavelet.Chunk, error) {
	c := &wavelet.Chunk{StartTime: r.f64()}
	if want := float64(idx) * in.secondsPerChunk; math.Abs(c.StartTime-want) > 1e-6 {
		return nil, invalid("chunk start", "chunk %d starts at %v, want %v", idx, c.StartTime, want)
	}
	var sizes [wavelet.NumChannels]int
	for k := range c.Channels {
		c.Channels[k].QuantScale = r.f32()
		c.Channels[k].NumBits = r.u32()
		sizes[k] = int(r.u32())
	}
	for k := range c.Channels {
		ch := &c.Channels[k]
		ch.Data = r.take(sizes[k])
		if r.short {
			return nil, malformedf("truncated chunk %d", idx)
		}
		kind := wavelet.ChannelKind(k)
		if in.numTracks[k] == 0 {
			if sizes[k] != 0 {
				return nil, invalid("chunk payload", "chunk %d has %d bytes of untracked %s data", idx, sizes[k], kind)
			}
			ch.Data = nil
			continue
		}
		if !finite(float64(ch.QuantScale)) || ch.QuantScale < 0 {
			return nil, invalid("quant scale", "chunk %d %s scale %v", idx, kind, ch.QuantScale)
		}
		size, err := huffman.CalcDecompressedSize(ch.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d %s: %v", ErrMalformed, idx, kind, err)
		}
		if size != in.streamBytes[k] {
			return nil, invalid("chunk payload", "chunk %d %s decodes to %d bytes, want %d", idx, kind, size, in.streamBytes[k])
		}
		// the file buffer is shared; chunks own their payload
		ch.Data = append([]byte(nil), ch.Data...)
	}
	return c, nil
}

// Load reads a .wmo file.
func Load(path string, cache *wavelet.Cache) (*wavelet.Motion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("motionfile: open %s: %w", path, err)
	}
	defer f.Close()
	m, err := Read(f, cache)
	if err != nil {
		return nil, fmt.Errorf("motionfile: load %s: %w", path, err)
	}
	return m, nil
}
