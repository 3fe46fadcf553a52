package wavelet

import (
	"fmt"
	"hash/fnv"
	"strings"

	"wavemotion/internal/dwt"
	"wavemotion/internal/mathutil"
)

// ChannelKind selects one channel group of a chunk. Each group is quantized
// with its own scale.
type ChannelKind int

const (
	Rotation ChannelKind = iota
	Position
	Scale
	Morph

	NumChannels = 4
)

// components is the number of wavelet signals per track.
func (k ChannelKind) components() int {
	switch k {
	case Rotation:
		return 4
	case Position, Scale:
		return 3
	}
	return 1
}

func (k ChannelKind) String() string {
	switch k {
	case Rotation:
		return "rotation"
	case Position:
		return "position"
	case Scale:
		return "scale"
	case Morph:
		return "morph"
	}
	return fmt.Sprintf("channel(%d)", int(k))
}

// ParseChannelKind accepts the names returned by String (case-insensitive).
func ParseChannelKind(s string) (ChannelKind, error) {
	for k := ChannelKind(0); k < NumChannels; k++ {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("wavelet: unknown channel %q", s)
}

// Channel is the entropy-coded, quantized wavelet data of one channel group.
type Channel struct {
	Data       []byte
	QuantScale float32
	NumBits    uint32
}

// Chunk is a fixed-duration window of compressed samples.
type Chunk struct {
	StartTime float64
	Channels  [NumChannels]Channel
}

// CompressedBytes sums the payload of all channels.
func (c *Chunk) CompressedBytes() int {
	n := 0
	for i := range c.Channels {
		n += len(c.Channels[i].Data)
	}
	return n
}

// TrackIndex is a dense index into a channel's track array.
type TrackIndex uint16

// NoTrack marks a channel that is not animated.
const NoTrack TrackIndex = 0xFFFF

func (t TrackIndex) Valid() bool { return t != NoTrack }

// Mapping links a sub-motion to its compressed tracks.
type Mapping struct {
	Position TrackIndex
	Rotation TrackIndex
	Scale    TrackIndex
}

// SubMotion is the static data of one joint.
type SubMotion struct {
	ID       uint32
	Name     string
	Pose     mathutil.Transform
	BindPose mathutil.Transform
}

// MorphSubMotion is the static data of one morph target weight.
type MorphSubMotion struct {
	ID         uint32
	Name       string
	PoseWeight float32
	Track      TrackIndex
}

// NameID hashes a joint or morph target name into a stable ID (FNV-1a).
func NameID(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// Settings controls compression.
type Settings struct {
	Wavelet          dwt.Type
	SamplesPerSecond int
	// SamplesPerChunk is rounded up to a power of two (minimum 2).
	SamplesPerChunk int

	// Qualities are percentages in [1, 100].
	PositionQuality float32
	RotationQuality float32
	ScaleQuality    float32
	MorphQuality    float32
}

func DefaultSettings() Settings {
	return Settings{
		Wavelet:          dwt.Daub4,
		SamplesPerSecond: 30,
		SamplesPerChunk:  32,
		PositionQuality:  75,
		RotationQuality:  75,
		ScaleQuality:     75,
		MorphQuality:     75,
	}
}

// Validate reports settings the compressor cannot use.
func (s Settings) Validate() error {
	if !s.Wavelet.Valid() {
		return fmt.Errorf("%w: %d", dwt.ErrUnsupported, uint8(s.Wavelet))
	}
	if s.SamplesPerSecond <= 0 {
		return fmt.Errorf("wavelet: samples per second must be positive, got %d", s.SamplesPerSecond)
	}
	if s.SamplesPerChunk <= 0 || s.SamplesPerChunk > 1<<14 {
		return fmt.Errorf("wavelet: samples per chunk out of range: %d", s.SamplesPerChunk)
	}
	return nil
}

// nextPowerOfTwo returns the smallest power of two >= max(n, 2).
func nextPowerOfTwo(n int) int {
	p := 2
	for p < n {
		p <<= 1
	}
	return p
}

// Stats are the size statistics gathered during compression.
type Stats struct {
	// CompressedBytes includes chunk overhead and mapping tables.
	CompressedBytes int
	// UncompressedBytes is the size of the same data keyed at 30 fps.
	UncompressedBytes int
	// OptimizedBytes is the size of the source keyframes.
	OptimizedBytes int
	ChunkOverhead  int
}

// Ratio is UncompressedBytes / CompressedBytes.
func (s Stats) Ratio() float64 {
	if s.CompressedBytes == 0 {
		return 0
	}
	return float64(s.UncompressedBytes) / float64(s.CompressedBytes)
}

// OptimizedRatio is OptimizedBytes / CompressedBytes.
func (s Stats) OptimizedRatio() float64 {
	if s.CompressedBytes == 0 {
		return 0
	}
	return float64(s.OptimizedBytes) / float64(s.CompressedBytes)
}

// Byte sizes used for the statistics.
const (
	sizeQuat       = 16
	sizeQuat16     = 8
	sizeVec3       = 12
	sizeFloat      = 4
	sizeFloat16    = 2
	sizeKeyTime    = 4
	sizeMapping    = 6
	sizeMorphMap   = 2
	chunkRecordLen = 4 + NumChannels*(4+4) // start time, then scale and byte count per channel
)
