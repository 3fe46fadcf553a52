package motionfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wavemotion/internal/mathutil"
	"wavemotion/internal/motion"
	"wavemotion/internal/wavelet"
)

func source() *motion.SkeletalMotion {
	root := motion.NewSkeletalSubMotion("root")
	root.Position = &motion.Vec3Track{}
	root.Rotation = &motion.QuatTrack{}
	for i := 0; i <= 45; i++ {
		t := float64(i) / 30
		root.Position.Add(t, mathutil.Vec3{t, 0.1 * math.Sin(4*t), 1})
		root.Rotation.Add(t, mathutil.EulerToQuat(0, 0, t))
	}
	head := motion.NewSkeletalSubMotion("head")
	head.Pose.Position = mathutil.Vec3{0, 0, 0.7}
	head.BindPose.Position = mathutil.Vec3{0, 0, 0.7}

	smile := &motion.MorphSubMotion{Name: "smile", Weights: &motion.FloatTrack{}}
	smile.Weights.Add(0, 0)
	smile.Weights.Add(1.5, 1)
	return &motion.SkeletalMotion{
		Name:       "wave",
		SubMotions: []*motion.SkeletalSubMotion{root, head},
		Morphs:     []*motion.MorphSubMotion{smile},
	}
}

func compressed(t *testing.T, c *wavelet.Cache) *wavelet.Motion {
	t.Helper()
	s := wavelet.DefaultSettings()
	s.SamplesPerChunk = 16
	m, err := wavelet.Compress(source(), s, c)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func encode(t *testing.T, m *wavelet.Motion, order binary.ByteOrder) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, m, order); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sameSamples(t *testing.T, c *wavelet.Cache, want, got *wavelet.Motion) {
	t.Helper()
	for _, tm := range []float64{0, 0.2, 0.55, 1.1, 1.5} {
		for sub := 0; sub < want.NumSubMotions(); sub++ {
			a, err := want.TransformAtTime(c, 0, sub, tm)
			if err != nil {
				t.Fatal(err)
			}
			b, err := got.TransformAtTime(c, 0, sub, tm)
			if err != nil {
				t.Fatal(err)
			}
			if a.Position.Sub(b.Position).Len() > 1e-5 || math.Abs(a.Rotation.Dot(b.Rotation)) < 1-1e-6 {
				t.Fatalf("t=%v sub %d: loaded %+v, want %+v", tm, sub, b, a)
			}
		}
		a, _ := want.MorphWeightAtTime(c, 0, 0, tm)
		b, _ := got.MorphWeightAtTime(c, 0, 0, tm)
		if math.Abs(a-b) > 1e-5 {
			t.Fatalf("t=%v morph weight %v, want %v", tm, b, a)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	c := wavelet.NewCache(wavelet.CacheConfig{})
	m := compressed(t, c)

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			got, err := Read(bytes.NewReader(encode(t, m, order)), c)
			if err != nil {
				t.Fatal(err)
			}
			if got.Name() != "wave" || got.NumChunks() != m.NumChunks() || got.SamplesPerChunk() != 16 {
				t.Fatalf("unexpected header: %s %d chunks, %d samples", got.Name(), got.NumChunks(), got.SamplesPerChunk())
			}
			if diff := cmp.Diff(m.Stats(), got.Stats()); diff != "" {
				t.Errorf("stats (-want +got):\n%s", diff)
			}
			for i := 0; i < m.NumSubMotions(); i++ {
				if m.Mapping(i) != got.Mapping(i) {
					t.Errorf("mapping %d = %+v, want %+v", i, got.Mapping(i), m.Mapping(i))
				}
			}
			sameSamples(t, c, m, got)
		})
	}
}

func TestRewriteIsStable(t *testing.T) {
	c := wavelet.NewCache(wavelet.CacheConfig{})
	first, err := Read(bytes.NewReader(encode(t, compressed(t, c), binary.LittleEndian)), c)
	if err != nil {
		t.Fatal(err)
	}
	a := encode(t, first, binary.LittleEndian)
	second, err := Read(bytes.NewReader(a), c)
	if err != nil {
		t.Fatal(err)
	}
	if b := encode(t, second, binary.LittleEndian); !bytes.Equal(a, b) {
		t.Fatal("re-encoding a loaded motion changed its bytes")
	}
}

func TestSwappedChunkStreams(t *testing.T) {
	c := wavelet.NewCache(wavelet.CacheConfig{})
	m := compressed(t, c)
	swapped := compressed(t, c)
	if err := swapped.SwapChunkDataEndian(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "wave"+Ext)
	if err := Save(path, swapped, binary.BigEndian); err != nil {
		t.Fatal(err)
	}
	if !IsMotionFile(path) {
		t.Fatalf("%s should be a motion file", path)
	}
	got, err := Load(path, c)
	if err != nil {
		t.Fatal(err)
	}
	if got.ChunkByteOrder().String() != binary.LittleEndian.String() {
		t.Fatalf("chunk order = %v, want little-endian after load", got.ChunkByteOrder())
	}
	sameSamples(t, c, m, got)
}

func TestReadRejectsInvalidFiles(t *testing.T) {
	c := wavelet.NewCache(wavelet.CacheConfig{})
	good := encode(t, compressed(t, c), binary.LittleEndian)

	patch := func(off int, b ...byte) []byte {
		out := append([]byte(nil), good...)
		copy(out[off:], b)
		return out
	}
	u32 := func(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

	cases := []struct {
		name       string
		data       []byte
		want       error
		validation bool
	}{
		{"magic", patch(0, 'X'), ErrMalformed, false},
		{"endian tag", patch(4, 'Q'), ErrMalformed, true},
		{"version", patch(5, 9), ErrMalformed, true},
		{"truncated", good[:len(good)-3], ErrMalformed, false},
		{"trailing", append(append([]byte(nil), good...), 0), ErrMalformed, false},
		{"chunk count", patch(8, u32(7)...), ErrMalformed, true},
		{"samples per chunk", patch(12, u32(24)...), ErrMalformed, true},
		{"wavelet", patch(80, 7), ErrUnsupportedWavelet, false},
		{"compressor", patch(81, 3), ErrUnsupportedCompressor, false},
		{"track count", patch(48, u32(9)...), ErrMalformed, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tc.data), c)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			var ve *ValidationError
			if errors.As(err, &ve) != tc.validation {
				t.Fatalf("err = %v, validation error expected: %v", err, tc.validation)
			}
		})
	}
}

func TestWriteReleasedMotion(t *testing.T) {
	m := compressed(t, wavelet.NewCache(wavelet.CacheConfig{}))
	m.Release()
	if err := Write(&bytes.Buffer{}, m, binary.LittleEndian); err == nil {
		t.Fatal("expected an error writing a released motion")
	}
}

func TestExtractionNodeRoundTrip(t *testing.T) {
	c := wavelet.NewCache(wavelet.CacheConfig{})
	src := source()
	src.MotionExtractionNode = "root"
	m, err := wavelet.Compress(src, wavelet.DefaultSettings(), c)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Read(bytes.NewReader(encode(t, m, binary.BigEndian)), c)
	if err != nil {
		t.Fatal(err)
	}
	if got.MotionExtractionNode() != 0 || got.MotionExtractionNodeName() != "root" {
		t.Fatalf("extraction node = %d %q, want 0 root", got.MotionExtractionNode(), got.MotionExtractionNodeName())
	}

	plain, err := Read(bytes.NewReader(encode(t, compressed(t, c), binary.LittleEndian)), c)
	if err != nil {
		t.Fatal(err)
	}
	if plain.MotionExtractionNode() != -1 {
		t.Fatalf("extraction node = %d, want -1", plain.MotionExtractionNode())
	}
}
