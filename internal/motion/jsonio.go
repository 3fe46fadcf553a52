package motion

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Source motions are stored as JSON, optionally compressed according to the
// file suffix: ".zst" (zstd) or ".lz4" (lz4 frame).

// IsSourceFile reports whether path has a source-motion suffix.
func IsSourceFile(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".json") || strings.HasSuffix(p, ".json.zst") ||
		strings.HasSuffix(p, ".json.lz4")
}

// Load reads a motion from path.
func Load(path string) (*SkeletalMotion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("motion: open %s: %w", path, err)
	}
	defer f.Close()

	m, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("motion: load %s: %w", path, err)
	}
	if m.Name == "" {
		m.Name = baseName(path)
	}
	return m, nil
}

// Save writes m to path, compressing by suffix.
func Save(path string, m *SkeletalMotion) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("motion: create %s: %w", path, err)
	}
	if err := Encode(f, m, filepath.Ext(path)); err != nil {
		f.Close()
		return fmt.Errorf("motion: save %s: %w", path, err)
	}
	return f.Close()
}

// Decode reads JSON from r, decompressing for ext ".zst" or ".lz4".
func Decode(r io.Reader, ext string) (*SkeletalMotion, error) {
	switch strings.ToLower(ext) {
	case ".zst":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	case ".lz4":
		r = lz4.NewReader(r)
	}

	var m SkeletalMotion
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &m, nil
}

// Encode writes m as JSON to w, compressing for ext ".zst" or ".lz4".
func Encode(w io.Writer, m *SkeletalMotion, ext string) error {
	var closer io.Closer
	switch strings.ToLower(ext) {
	case ".zst":
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("zstd writer: %w", err)
		}
		w, closer = enc, enc
	case ".lz4":
		zw := lz4.NewWriter(w)
		w, closer = zw, zw
	}

	if err := json.NewEncoder(w).Encode(m); err != nil {
		if closer != nil {
			closer.Close()
		}
		return fmt.Errorf("encode json: %w", err)
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".zst", ".lz4", ".json"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
