package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wavemotion/internal/batch"
	"wavemotion/internal/config"
	"wavemotion/internal/library"
	"wavemotion/internal/wavelet"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	testN := flag.Int("test", 0, "Compress only first N motions for testing")
	only := flag.String("motion", "", "Compress only motions whose name contains this string")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	dataDir := flag.String("data", "", "Path to base directory (default: auto-detect)")
	sourceDir := flag.String("source", "", "Source motion directory (default: Data/Player)")
	outputDir := flag.String("output", "", "Output directory (default: Data/Motions)")
	waveletName := flag.String("wavelet", "", "Wavelet: haar, daub4 or cdf97 (default: daub4)")
	quality := flag.Float64("quality", 0, "Quality 1-100 for every channel (default: 75)")
	bigEndian := flag.Bool("big-endian", false, "Write big-endian files")
	verify := flag.Bool("verify", false, "Sample every motion after compression and report errors")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		DataDir:   *dataDir,
		SourceDir: *sourceDir,
		OutputDir: *outputDir,
		Wavelet:   *waveletName,
		Quality:   float32(*quality),
		Workers:   *workers,
		BigEndian: *bigEndian,
		Verify:    *verify,
	})

	if cfg.SourceDir == "" {
		fmt.Fprintln(os.Stderr, "Error: cannot find Data directory. Use -data, -source or config.json.")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	settings, _ := cfg.Settings()
	key, _ := cfg.Key()
	opts := library.SourceOptions{LEAKey: key, FPS: cfg.SourceFPS}

	// Index sources
	index := library.BuildIndex(cfg.SourceDir)
	fmt.Printf("Sources: %d indexed in %s\n", len(index.Sources()), cfg.SourceDir)

	jobs, failedJobs := batch.Jobs(index.Sources(), opts)

	// Filter by name
	if *only != "" {
		var filtered []batch.Job
		for _, j := range jobs {
			if strings.Contains(strings.ToLower(j.Name), strings.ToLower(*only)) {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}

	// Limit for testing
	if *testN > 0 && *testN < len(jobs) {
		jobs = jobs[:*testN]
	}

	if len(jobs) == 0 {
		fmt.Println("No motions to compress.")
		os.Exit(0)
	}

	order := binary.ByteOrder(binary.LittleEndian)
	if cfg.BigEndian {
		order = binary.BigEndian
	}

	fmt.Printf("Wavelet motion compressor (%s, %d samples/chunk)\n", settings.Wavelet, settings.SamplesPerChunk)
	fmt.Printf("Motions: %d, Workers: %d\n", len(jobs), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	// Run batch
	cache := wavelet.NewCache(wavelet.CacheConfig{MaxBytes: cfg.MaxCacheBytes, NumThreads: cfg.Workers})
	results := batch.Run(batch.Config{
		OutputDir: cfg.OutputDir,
		Settings:  settings,
		Source:    opts,
		Order:     order,
		Verify:    cfg.Verify,
		Workers:   cfg.Workers,
		Cache:     cache,
	}, jobs)
	results = append(results, failedJobs...)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var compressed, uncompressed int
	var maxPos, maxRot float64
	var errors []batch.Result
	for _, r := range results {
		if r.Success {
			success++
			compressed += r.Stats.CompressedBytes
			uncompressed += r.Stats.UncompressedBytes
			maxPos = max(maxPos, r.MaxPositionError)
			maxRot = max(maxRot, r.MaxRotationError)
		} else {
			failed++
			errors = append(errors, r)
		}
	}

	fmt.Printf("Compressed: %d/%d\n", success, len(results))
	if compressed > 0 {
		fmt.Printf("Size: %d -> %d bytes (%.1fx)\n", uncompressed, compressed, float64(uncompressed)/float64(compressed))
	}
	if cfg.Verify {
		fmt.Printf("Max error: position %.5f, rotation %.5f rad\n", maxPos, maxRot)
	}
	fmt.Printf("Cache: %d hits, %d misses\n", cache.Hits(), cache.Misses())

	if len(errors) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		limit := 20
		if len(errors) < limit {
			limit = len(errors)
		}
		for _, e := range errors[:limit] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
