package wavelet

import (
	"fmt"

	"wavemotion/internal/dwt"
	"wavemotion/internal/huffman"
	"wavemotion/internal/mathutil"
	"wavemotion/internal/quant"
)

// decompressedChunkHeader approximates the fixed per-chunk bookkeeping cost.
const decompressedChunkHeader = 128

// threadScratch is owned by one worker; buffers only grow.
type threadScratch struct {
	decompress []byte
	quant      []int16
	data       []float32
	wavelets   [3]dwt.Transform
}

func (s *threadScratch) transform(t dwt.Type) dwt.Transform {
	if s.wavelets[t] == nil {
		tr, err := dwt.New(t)
		if err != nil {
			panic(err)
		}
		s.wavelets[t] = tr
	}
	return s.wavelets[t]
}

// decompressChunk rebuilds the samples of chunk idx. The result is not yet
// owned by a cache.
func (m *Motion) decompressChunk(idx int, s *threadScratch) (*DecompressedChunk, error) {
	c := m.chunks[idx]
	n := m.samplesPerChunk
	dc := &DecompressedChunk{
		motion:     m,
		chunkIndex: idx,
		startTime:  c.StartTime,
		numSamples: n,
		spacing:    m.sampleSpacing,
		size:       m.decompressedBytes(),
	}
	tr := s.transform(m.wavelet)

	for k := ChannelKind(0); k < NumChannels; k++ {
		numTracks := m.numTracks[k]
		if numTracks == 0 {
			continue
		}
		data, err := m.decodeChannel(k, &c.Channels[k], s)
		if err != nil {
			return nil, fmt.Errorf("wavelet: motion %s chunk %d: %w", m.name, idx, err)
		}
		for j := 0; j < numTracks*k.components(); j++ {
			tr.InverseTransform(data[j*n:(j+1)*n], n)
		}

		switch k {
		case Rotation:
			dc.rotations = make([]mathutil.Quat16, numTracks*n)
			for t := 0; t < numTracks; t++ {
				base := t * 4 * n
				for i := 0; i < n; i++ {
					q := mathutil.Quat{
						float64(data[base+i]),
						float64(data[base+n+i]),
						float64(data[base+2*n+i]),
						float64(data[base+3*n+i]),
					}
					dc.rotations[t*n+i] = mathutil.PackQuat(q.Normalize())
				}
			}
		case Position, Scale:
			out := make([]mathutil.PackedVec3, numTracks*n)
			for t := 0; t < numTracks; t++ {
				base := t * 3 * n
				pose := m.poseFor(k, t)
				offset, mul := pose.Scale, 1.0
				if k == Position {
					offset, mul = pose.Position, float64(m.scale)
				}
				for i := 0; i < n; i++ {
					v := mathutil.Vec3{
						float64(data[base+i]),
						float64(data[base+n+i]),
						float64(data[base+2*n+i]),
					}
					out[t*n+i] = mathutil.Pack(v.Scale(mul).Add(offset))
				}
			}
			if k == Position {
				dc.positions = out
			} else {
				dc.scales = out
			}
		case Morph:
			dc.morphs = make([]float32, numTracks*n)
			for t := 0; t < numTracks; t++ {
				pose := m.morphs[m.trackOwner[Morph][t]].PoseWeight
				for i := 0; i < n; i++ {
					dc.morphs[t*n+i] = data[t*n+i] + pose
				}
			}
		}
	}
	return dc, nil
}

// decodeChannel entropy-decodes and dequantizes a channel into s.data.
func (m *Motion) decodeChannel(k ChannelKind, ch *Channel, s *threadScratch) ([]float32, error) {
	want := m.ChannelStreamBytes(k)
	s.decompress = growBytes(s.decompress, want)
	got, err := huffman.DecompressInto(ch.Data, s.decompress)
	if err != nil {
		return nil, fmt.Errorf("%s channel: %w", k, err)
	}
	if got != want {
		return nil, fmt.Errorf("%s channel: decoded %d bytes, expected %d", k, got, want)
	}

	total := want / 2
	s.quant = growInt16s(s.quant, total)
	for i := range s.quant[:total] {
		s.quant[i] = int16(m.order.Uint16(s.decompress[2*i:]))
	}
	s.data = growFloats(s.data, total)
	quant.Dequantize(s.quant, total, s.data, ch.QuantScale, m.qualityFactors[k])
	return s.data[:total], nil
}
