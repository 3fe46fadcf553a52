package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one compressed motion in the output manifest.
type ManifestEntry struct {
	Name              string  `json:"name"`
	Source            string  `json:"source"`
	File              string  `json:"file"`
	Chunks            int     `json:"chunks"`
	CompressedBytes   int     `json:"compressed_bytes"`
	UncompressedBytes int     `json:"uncompressed_bytes"`
	OptimizedBytes    int     `json:"optimized_bytes"`
	Ratio             float64 `json:"ratio"`
	MaxPositionError  float64 `json:"max_position_error,omitempty"`
	MaxRotationError  float64 `json:"max_rotation_error,omitempty"`
}

// WriteManifest writes the successful results to path as JSON. File names
// are relative to the manifest's directory.
func WriteManifest(path string, results []Result) error {
	dir := filepath.Dir(path)
	entries := make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		file, err := filepath.Rel(dir, r.Output)
		if err != nil {
			file = r.Output
		}
		entries = append(entries, ManifestEntry{
			Name:              r.Name,
			Source:            r.Source,
			File:              filepath.ToSlash(file),
			Chunks:            r.Chunks,
			CompressedBytes:   r.Stats.CompressedBytes,
			UncompressedBytes: r.Stats.UncompressedBytes,
			OptimizedBytes:    r.Stats.OptimizedBytes,
			Ratio:             r.Stats.Ratio(),
			MaxPositionError:  r.MaxPositionError,
			MaxRotationError:  r.MaxRotationError,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
