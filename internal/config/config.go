package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"wavemotion/internal/crypto"
	"wavemotion/internal/dwt"
	"wavemotion/internal/wavelet"
)

// Config holds all configurable paths and compression settings.
type Config struct {
	// Paths
	BaseDir   string `json:"base_dir"`
	SourceDir string `json:"source_dir"`
	OutputDir string `json:"output_dir"`

	// Compression settings
	Wavelet          string  `json:"wavelet"`
	SamplesPerSecond int     `json:"samples_per_second"`
	SamplesPerChunk  int     `json:"samples_per_chunk"`
	PositionQuality  float32 `json:"position_quality"`
	RotationQuality  float32 `json:"rotation_quality"`
	ScaleQuality     float32 `json:"scale_quality"`
	MorphQuality     float32 `json:"morph_quality"`
	BigEndian        bool    `json:"big_endian"`

	// SourceFPS is the key rate of BMD actions.
	SourceFPS float64 `json:"source_fps"`
	// LEAKey is the hex encoded key of v15 BMD files.
	LEAKey string `json:"lea_key"`

	// Runtime settings
	MaxCacheBytes int  `json:"max_cache_bytes"`
	Workers       int  `json:"workers"`
	Verify        bool `json:"verify"`

	// Preview settings
	PlotSize   int    `json:"plot_size"`
	PlotFormat string `json:"plot_format"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve fills in any empty fields with auto-detected defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.DataDir != "" {
		c.BaseDir = flags.DataDir
	}
	if flags.SourceDir != "" {
		c.SourceDir = flags.SourceDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Wavelet != "" {
		c.Wavelet = flags.Wavelet
	}
	if flags.Quality > 0 {
		c.PositionQuality = flags.Quality
		c.RotationQuality = flags.Quality
		c.ScaleQuality = flags.Quality
		c.MorphQuality = flags.Quality
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.BigEndian {
		c.BigEndian = true
	}
	if flags.Verify {
		c.Verify = true
	}

	// Auto-detect base dir if still empty
	if c.BaseDir == "" {
		c.BaseDir = detectBaseDir()
	}

	// Resolve relative paths against base dir
	if c.BaseDir != "" {
		if c.SourceDir == "" {
			c.SourceDir = filepath.Join(c.BaseDir, "Data", "Player")
		} else if !filepath.IsAbs(c.SourceDir) {
			c.SourceDir = filepath.Join(c.BaseDir, c.SourceDir)
		}

		if c.OutputDir == "" {
			c.OutputDir = filepath.Join(c.BaseDir, "Data", "Motions")
		} else if !filepath.IsAbs(c.OutputDir) {
			c.OutputDir = filepath.Join(c.BaseDir, c.OutputDir)
		}
	}

	// Defaults for compression settings
	def := wavelet.DefaultSettings()
	if c.Wavelet == "" {
		c.Wavelet = def.Wavelet.String()
	}
	if c.SamplesPerSecond <= 0 {
		c.SamplesPerSecond = def.SamplesPerSecond
	}
	if c.SamplesPerChunk <= 0 {
		c.SamplesPerChunk = def.SamplesPerChunk
	}
	for _, q := range []*float32{&c.PositionQuality, &c.RotationQuality, &c.ScaleQuality, &c.MorphQuality} {
		if *q <= 0 {
			*q = def.PositionQuality
		}
	}
	if c.SourceFPS <= 0 {
		c.SourceFPS = 25
	}
	if c.MaxCacheBytes <= 0 {
		c.MaxCacheBytes = wavelet.DefaultMaxCacheBytes
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.PlotSize <= 0 {
		c.PlotSize = 512
	}
	if c.PlotFormat == "" {
		c.PlotFormat = "webp"
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if _, err := dwt.ParseType(c.Wavelet); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for name, q := range map[string]float32{
		"position_quality": c.PositionQuality,
		"rotation_quality": c.RotationQuality,
		"scale_quality":    c.ScaleQuality,
		"morph_quality":    c.MorphQuality,
	} {
		if q < 1 || q > 100 {
			return fmt.Errorf("config: %s must be in [1,100], got %v", name, q)
		}
	}
	if _, err := c.Settings(); err != nil {
		return err
	}
	if c.LEAKey != "" {
		if _, err := crypto.ParseLEAKey(c.LEAKey); err != nil {
			return fmt.Errorf("config: lea_key: %w", err)
		}
	}
	switch c.PlotFormat {
	case "webp", "tga":
	default:
		return fmt.Errorf("config: plot_format must be webp or tga, got %q", c.PlotFormat)
	}
	return nil
}

// Settings converts the compression fields to wavelet settings.
func (c *Config) Settings() (wavelet.Settings, error) {
	t, err := dwt.ParseType(c.Wavelet)
	if err != nil {
		return wavelet.Settings{}, fmt.Errorf("config: %w", err)
	}
	s := wavelet.Settings{
		Wavelet:          t,
		SamplesPerSecond: c.SamplesPerSecond,
		SamplesPerChunk:  c.SamplesPerChunk,
		PositionQuality:  c.PositionQuality,
		RotationQuality:  c.RotationQuality,
		ScaleQuality:     c.ScaleQuality,
		MorphQuality:     c.MorphQuality,
	}
	if err := s.Validate(); err != nil {
		return wavelet.Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// Key returns the decoded LEA key, or the zero key when none is set.
func (c *Config) Key() ([32]byte, error) {
	if c.LEAKey == "" {
		return [32]byte{}, nil
	}
	return crypto.ParseLEAKey(c.LEAKey)
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	DataDir   string
	SourceDir string
	OutputDir string
	Wavelet   string
	Quality   float32
	Workers   int
	BigEndian bool
	Verify    bool
}

func detectBaseDir() string {
	// Try relative to executable
	exe, _ := os.Executable()
	if exe != "" {
		dir := filepath.Dir(exe)
		for _, base := range []string{dir, filepath.Dir(dir), filepath.Join(dir, "..", "..")} {
			if _, err := os.Stat(filepath.Join(base, "Data", "Player")); err == nil {
				return base
			}
		}
	}

	// Try current working directory
	cwd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(cwd, "Data", "Player")); err == nil {
		return cwd
	}

	// Try parent of cwd
	parent := filepath.Dir(cwd)
	if _, err := os.Stat(filepath.Join(parent, "Data", "Player")); err == nil {
		return parent
	}

	return ""
}
