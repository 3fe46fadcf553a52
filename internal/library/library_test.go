package library

import (
	"encoding/binary"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wavemotion/internal/mathutil"
	"wavemotion/internal/motion"
	"wavemotion/internal/motionfile"
	"wavemotion/internal/wavelet"
)

func sourceMotion(name string) *motion.SkeletalMotion {
	root := motion.NewSkeletalSubMotion("root")
	root.Position = &motion.Vec3Track{}
	root.Position.Add(0, mathutil.Vec3{})
	root.Position.Add(1, mathutil.Vec3{1, 0, 0})
	return &motion.SkeletalMotion{Name: name, SubMotions: []*motion.SkeletalSubMotion{root}}
}

// fixture writes walk.json.zst as a source and run.wmo as a compressed
// motion into separate directories.
func fixture(t *testing.T, c *wavelet.Cache) (src, out string) {
	t.Helper()
	src, out = t.TempDir(), t.TempDir()
	if err := motion.Save(filepath.Join(src, "walk.json.zst"), sourceMotion("walk")); err != nil {
		t.Fatal(err)
	}
	if err := motion.Save(filepath.Join(src, "notes.txt"), sourceMotion("ignored")); err != nil {
		t.Fatal(err)
	}
	m, err := wavelet.Compress(sourceMotion("run"), wavelet.DefaultSettings(), c)
	if err != nil {
		t.Fatal(err)
	}
	if err := motionfile.Save(filepath.Join(out, "run"+motionfile.Ext), m, binary.LittleEndian); err != nil {
		t.Fatal(err)
	}
	return src, out
}

func TestBuildIndex(t *testing.T) {
	src, out := fixture(t, wavelet.NewCache(wavelet.CacheConfig{}))
	idx := BuildIndex(src, out, filepath.Join(src, "missing"))

	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", idx.Len(), idx.Entries())
	}
	want := []Entry{
		{Name: "run", Compressed: filepath.Join(out, "run.wmo")},
		{Name: "walk", Source: filepath.Join(src, "walk.json.zst")},
	}
	if diff := cmp.Diff(want, idx.Entries()); diff != "" {
		t.Errorf("entries (-want +got):\n%s", diff)
	}
	if _, ok := idx.Resolve("WALK.json"); !ok {
		t.Error("Resolve should ignore case and extension")
	}
	if got := idx.Sources(); len(got) != 1 || got[0].Name != "walk" {
		t.Errorf("sources = %+v", got)
	}
	n, err := NumActions(want[1], SourceOptions{})
	if err != nil || n != 1 {
		t.Errorf("NumActions = %d, %v", n, err)
	}
}

func TestLibraryLoadsOnce(t *testing.T) {
	c := wavelet.NewCache(wavelet.CacheConfig{})
	src, out := fixture(t, c)
	lib := New(BuildIndex(src, out), c, wavelet.DefaultSettings(), SourceOptions{FPS: 30})

	var wg sync.WaitGroup
	got := make([]*wavelet.Motion, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := lib.Motion("run")
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range got[1:] {
		if m != got[0] {
			t.Fatal("concurrent loads returned different motions")
		}
	}

	walk, err := lib.Motion("walk")
	if err != nil {
		t.Fatal(err)
	}
	if walk.Name() != "walk" {
		t.Errorf("name = %q", walk.Name())
	}
	if _, err := lib.Motion("fly"); err == nil {
		t.Error("expected an error for an unknown motion")
	}
	if lib.Loaded() != 2 {
		t.Fatalf("loaded = %d, want 2", lib.Loaded())
	}

	lib.Close()
	if lib.Loaded() != 0 || !walk.Released() {
		t.Fatal("Close should release every motion")
	}
}
