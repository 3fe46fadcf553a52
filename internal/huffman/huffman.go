// Package huffman is a static canonical Huffman coder for quantized motion
// data.
//
// A single code table, built once from a fixed byte model, is used for every
// buffer so encoded data stays compatible across files. A frame is the
// 4-byte little-endian decoded length followed by the MSB-first bitstream.
package huffman

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const headerSize = 4

var (
	ErrCorrupted   = errors.New("huffman: corrupted data")
	ErrTruncated   = errors.New("huffman: truncated data")
	ErrShortBuffer = errors.New("huffman: destination buffer too small")
)

// Compress encodes src into a new frame.
func Compress(src []byte) []byte {
	out, _ := Encode(nil, src)
	return out
}

// Encode appends the frame for src to dst and returns it together with the
// number of payload bits written.
func Encode(dst, src []byte) ([]byte, uint32) {
	t := staticTable()

	var bits uint64
	for _, b := range src {
		bits += uint64(t.lengths[b])
	}
	start := len(dst)
	need := headerSize + int((bits+7)/8)
	if cap(dst)-start < need {
		grown := make([]byte, start, start+need)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+need]
	binary.LittleEndian.PutUint32(dst[start:], uint32(len(src)))

	w := dst[start+headerSize:]
	clear(w)
	var acc uint64
	var nacc uint
	pos := 0
	for _, b := range src {
		acc = acc<<t.lengths[b] | uint64(t.codes[b])
		nacc += uint(t.lengths[b])
		for nacc >= 8 {
			nacc -= 8
			w[pos] = byte(acc >> nacc)
			pos++
		}
	}
	if nacc > 0 {
		w[pos] = byte(acc << (8 - nacc))
	}
	return dst, uint32(bits)
}

// CalcDecompressedSize reads the decoded length from the frame header
// without decoding the payload.
func CalcDecompressedSize(src []byte) (int, error) {
	if len(src) < headerSize {
		return 0, fmt.Errorf("%w: frame of %d bytes", ErrTruncated, len(src))
	}
	n := int(binary.LittleEndian.Uint32(src))
	// every symbol costs at least minLen bits
	if maxSyms := (len(src) - headerSize) * 8 / staticTable().minLen; n > maxSyms {
		return 0, fmt.Errorf("%w: %d symbols in %d payload bytes", ErrCorrupted, n, len(src)-headerSize)
	}
	return n, nil
}

// Decompress decodes a frame into a new buffer.
func Decompress(src []byte) ([]byte, error) {
	n, err := CalcDecompressedSize(src)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := DecompressInto(src, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecompressInto decodes a frame into dst and returns the decoded length.
func DecompressInto(src, dst []byte) (int, error) {
	n, err := CalcDecompressedSize(src)
	if err != nil {
		return 0, err
	}
	if len(dst) < n {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrShortBuffer, n, len(dst))
	}

	t := staticTable()
	payload := src[headerSize:]
	totalBits := len(payload) * 8
	bit := 0
	for i := 0; i < n; i++ {
		var code uint32
		l := 0
		for {
			if bit >= totalBits {
				return i, fmt.Errorf("%w: symbol %d of %d", ErrTruncated, i, n)
			}
			code = code<<1 | uint32(payload[bit>>3]>>(7-bit&7))&1
			bit++
			l++
			if l > t.maxLen {
				return i, fmt.Errorf("%w: invalid code at bit %d", ErrCorrupted, bit)
			}
			if c := t.count[l]; c != 0 && code-t.firstCode[l] < c && code >= t.firstCode[l] {
				dst[i] = t.sorted[t.offset[l]+code-t.firstCode[l]]
				break
			}
		}
	}
	return n, nil
}
