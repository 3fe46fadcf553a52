package wavelet

import (
	"encoding/binary"
	"fmt"

	"wavemotion/internal/huffman"
)

// SwapChunkDataEndian flips the byte order of the int16 streams inside
// every channel. Compressed bytes are opaque, so each channel is decoded,
// swapped and re-encoded. The motion is only modified once every channel has
// been re-encoded; on error it is left untouched. On success the chunk byte
// order is flipped and the cache entries of the motion are purged.
func (m *Motion) SwapChunkDataEndian() error {
	type swapped struct {
		ch   *Channel
		data []byte
		bits uint32
	}
	var pending []swapped
	var buf []byte
	for ci, c := range m.chunks {
		for k := ChannelKind(0); k < NumChannels; k++ {
			if m.numTracks[k] == 0 {
				continue
			}
			data, bits, next, err := swapChannel(&c.Channels[k], buf)
			buf = next
			if err != nil {
				return fmt.Errorf("wavelet: swap endian %s chunk %d %s: %w", m.name, ci, k, err)
			}
			pending = append(pending, swapped{&c.Channels[k], data, bits})
		}
	}

	for _, p := range pending {
		p.ch.Data, p.ch.NumBits = p.data, p.bits
	}
	if sameOrder(m.order, binary.LittleEndian) {
		m.order = binary.BigEndian
	} else {
		m.order = binary.LittleEndian
	}
	if m.cache != nil {
		m.cache.RemoveChunksForMotion(m)
	}
	return nil
}

// ConvertChunkDataEndian swaps the chunk streams if they are not already in
// the given byte order.
func (m *Motion) ConvertChunkDataEndian(order binary.ByteOrder) error {
	if sameOrder(m.order, order) {
		return nil
	}
	return m.SwapChunkDataEndian()
}

// swapChannel returns the re-encoding of ch with every int16 byte-swapped.
// ch is not modified. buf is a scratch buffer that is grown as needed and
// returned for reuse.
func swapChannel(ch *Channel, buf []byte) ([]byte, uint32, []byte, error) {
	size, err := huffman.CalcDecompressedSize(ch.Data)
	if err != nil {
		return nil, 0, buf, err
	}
	if size%2 != 0 {
		return nil, 0, buf, fmt.Errorf("odd stream length %d", size)
	}
	buf = growBytes(buf, size)
	if _, err := huffman.DecompressInto(ch.Data, buf); err != nil {
		return nil, 0, buf, err
	}
	SwapInt16s(buf[:size])
	data, bits := huffman.Encode(nil, buf[:size])
	return data, bits, buf, nil
}

// SwapInt16s reverses the byte order of each 16-bit value in b.
func SwapInt16s(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
}

func sameOrder(a, b binary.ByteOrder) bool {
	return a.String() == b.String()
}
