package batch

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"wavemotion/internal/library"
	"wavemotion/internal/mathutil"
	"wavemotion/internal/motion"
	"wavemotion/internal/motionfile"
	"wavemotion/internal/wavelet"
)

func swing(name string, amplitude float64) *motion.SkeletalMotion {
	root := motion.NewSkeletalSubMotion("root")
	root.Position = &motion.Vec3Track{}
	arm := motion.NewSkeletalSubMotion("arm")
	arm.Rotation = &motion.QuatTrack{}
	for i := 0; i <= 60; i++ {
		t := float64(i) / 30
		root.Position.Add(t, mathutil.Vec3{t, 0, 0.1 * math.Sin(3*t)})
		arm.Rotation.Add(t, mathutil.EulerToQuat(amplitude*math.Sin(2*t), 0, 0))
	}
	return &motion.SkeletalMotion{Name: name, SubMotions: []*motion.SkeletalSubMotion{root, arm}}
}

func TestRun(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	for _, m := range []*motion.SkeletalMotion{swing("idle", 0.1), swing("attack", 1.2)} {
		if err := motion.Save(filepath.Join(src, m.Name+".json.lz4"), m); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(src, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	jobs, failed := Jobs(library.BuildIndex(src).Sources(), library.SourceOptions{})
	if len(jobs) != 3 || len(failed) != 0 {
		t.Fatalf("jobs = %d, failed = %d", len(jobs), len(failed))
	}

	s := wavelet.DefaultSettings()
	s.PositionQuality = 95
	s.RotationQuality = 95
	cache := wavelet.NewCache(wavelet.CacheConfig{NumThreads: 2})
	results := Run(Config{
		OutputDir: out,
		Settings:  s,
		Order:     binary.BigEndian,
		Verify:    true,
		Workers:   2,
		Cache:     cache,
	}, jobs)

	ok := 0
	for _, r := range results {
		if r.Name == "broken" {
			if r.Success || r.Error == "" {
				t.Errorf("broken source should fail, got %+v", r)
			}
			continue
		}
		if !r.Success {
			t.Fatalf("%s failed: %s", r.Name, r.Error)
		}
		ok++
		if r.MaxPositionError > 0.02 || r.MaxRotationError > 0.05 {
			t.Errorf("%s: errors too large: pos %v rot %v", r.Name, r.MaxPositionError, r.MaxRotationError)
		}
		m, err := motionfile.Load(r.Output, cache)
		if err != nil {
			t.Fatal(err)
		}
		if m.NumSubMotions() != 2 || m.NumChunks() != r.Chunks {
			t.Errorf("%s: loaded %d sub-motions and %d chunks", r.Name, m.NumSubMotions(), m.NumChunks())
		}
	}
	if ok != 2 {
		t.Fatalf("expected 2 successful jobs, got %d", ok)
	}
	if cache.NumChunks() != 0 {
		t.Errorf("finished jobs should release their chunks, %d resident", cache.NumChunks())
	}

	path := filepath.Join(out, "manifest.json")
	if err := WriteManifest(path, results); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].File != entries[0].Name+".wmo" || entries[0].Ratio <= 1 {
		t.Fatalf("unexpected manifest %+v", entries)
	}
}
