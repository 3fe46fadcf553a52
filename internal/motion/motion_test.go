package motion

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"wavemotion/internal/mathutil"
)

func testMotion() *SkeletalMotion {
	root := NewSkeletalSubMotion("root")
	root.Position = &Vec3Track{}
	root.Position.Add(0, mathutil.Vec3{0, 0, 0})
	root.Position.Add(1, mathutil.Vec3{2, 0, 0})
	root.Rotation = &QuatTrack{}
	root.Rotation.Add(0, mathutil.QuatIdentity())
	root.Rotation.Add(1, mathutil.EulerToQuat(0, 0, math.Pi/2))

	static := NewSkeletalSubMotion("static")
	static.Pose.Position = mathutil.Vec3{0, 1, 0}
	static.Position = &Vec3Track{}
	static.Position.Add(0, mathutil.Vec3{0, 1, 0})
	static.Position.Add(0.5, mathutil.Vec3{0, 1, 0})

	blink := &MorphSubMotion{Name: "blink", Weights: &FloatTrack{}}
	blink.Weights.Add(0, 0)
	blink.Weights.Add(1.25, 1)

	return &SkeletalMotion{
		Name:       "walk",
		SubMotions: []*SkeletalSubMotion{root, static},
		Morphs:     []*MorphSubMotion{blink},
	}
}

func TestTrackSample(t *testing.T) {
	tr := &FloatTrack{}
	tr.Add(1, 10)
	tr.Add(0, 0) // out of order
	tr.Add(2, 10)

	tests := []struct {
		time, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 2.5},
		{1, 10},
		{1.5, 10},
		{5, 10},
	}
	for _, tt := range tests {
		if got := tr.Sample(tt.time, LerpFloat); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("Sample(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
}

func TestAnimatedDetection(t *testing.T) {
	m := testMotion()
	root, static := m.SubMotions[0], m.SubMotions[1]
	if !root.PositionAnimated() || !root.RotationAnimated() || root.ScaleAnimated() {
		t.Fatal("root should animate position and rotation only")
	}
	if static.PositionAnimated() {
		t.Fatal("a constant track is not animated")
	}

	held := NewSkeletalSubMotion("held")
	held.Rotation = &QuatTrack{}
	q := mathutil.EulerToQuat(0.1, 0.2, 0.3)
	held.Rotation.Add(0, q)
	held.Rotation.Add(2, q)
	if held.RotationAnimated() {
		t.Fatal("a constant rotation is not animated")
	}
	if got := held.StaticPose().Rotation; !quatClose(got, q) {
		t.Fatalf("StaticPose rotation = %v, want %v", got, q)
	}
	if !m.Morphs[0].Animated() {
		t.Fatal("morph should be animated")
	}
}

func quatClose(a, b mathutil.Quat) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-12 {
			return false
		}
	}
	return true
}

func TestMaxTimeAndTransformAt(t *testing.T) {
	m := testMotion()
	if got := m.MaxTime(); got != 1.25 {
		t.Fatalf("MaxTime = %v, want 1.25", got)
	}
	tr := m.SubMotions[0].TransformAt(0.5)
	if tr.Position.Sub(mathutil.Vec3{1, 0, 0}).Len() > 1e-12 {
		t.Fatalf("position = %v", tr.Position)
	}
	if tr.Scale != (mathutil.Vec3{1, 1, 1}) {
		t.Fatalf("missing scale track should return pose scale, got %v", tr.Scale)
	}
	if m.FindSubMotion("static") != 1 || m.FindSubMotion("nope") != -1 {
		t.Fatal("FindSubMotion")
	}
}

func TestSaveLoadCompressed(t *testing.T) {
	dir := t.TempDir()
	want := testMotion()
	for _, name := range []string{"walk.json", "walk.json.zst", "walk.json.lz4"} {
		path := filepath.Join(dir, name)
		if err := Save(path, want); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", name, diff)
		}
		if !IsSourceFile(path) {
			t.Fatalf("IsSourceFile(%s) = false", name)
		}
	}
}
