// Package motionfile reads and writes wavelet motions as .wmo files.
//
// Layout, after an 8-byte header of magic "WMOT", an endian tag ('L' or
// 'B'), the format version and two reserved bytes. Every later field uses
// the tagged byte order:
//
//	info        chunk count, samples per chunk, seconds per chunk, max time,
//	            per-channel stream bytes, track counts and quant factors,
//	            wavelet id, compressor id, chunk stream order, scale,
//	            sub-motion and morph counts, size statistics, name,
//	            motion extraction sub-motion name (empty for none)
//	sub-motions mapping (position, rotation, scale track; 0xFFFF = none),
//	            id, pose, bind pose, name
//	morphs      track, id, pose weight, name
//	chunks      start time, per-channel quant scale, bit count and byte
//	            count, then the channel payloads
//
// Strings are a uint16 length followed by the bytes.
package motionfile

import (
	"path/filepath"
	"strings"

	"wavemotion/internal/wavelet"
)

const (
	Ext     = ".wmo"
	magic   = "WMOT"
	version = 1

	headerSize = 8

	// compressorHuffman is the static Huffman coder of the huffman package.
	compressorHuffman = 0

	// numStats is the number of wavelet.Stats fields stored.
	numStats = 4

	// Smallest encodings, used to bound counts before allocating.
	minSubMotionSize = 3*2 + 4 + 2*10*4 + 2
	minMorphSize     = 2 + 4 + 4 + 2
	minChunkSize     = 8 + wavelet.NumChannels*12

	maxSamplesPerChunk = 1 << 14
	maxChunks          = 1 << 20
)

// IsMotionFile reports whether path has the .wmo extension.
func IsMotionFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Ext)
}
