package skeleton

import (
	"math"
	"testing"

	"wavemotion/internal/mathutil"
)

func testActor(t *testing.T) *Actor {
	t.Helper()
	nodes := []Node{
		{"Bip01", -1},
		{"Bip01 Spine", 0},
		{"Bip01 Head", 1},
		{"Bip01 L Thigh", 0},
		{"Bip01 R Thigh", 0},
		{"LeftHand", 1},
		{"RightHand", 1},
	}
	bind := make([]mathutil.Transform, len(nodes))
	for i := range bind {
		bind[i] = mathutil.TransformIdentity()
	}
	bind[0].Position = mathutil.Vec3{0, 0, 1}
	bind[1].Position = mathutil.Vec3{0, 0, 0.5}
	bind[2].Position = mathutil.Vec3{0, 0, 0.5}
	bind[3].Position = mathutil.Vec3{0.2, 0, -0.1}
	bind[4].Position = mathutil.Vec3{-0.2, 0, -0.1}
	a, err := NewActor("test", nodes, bind)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNewActorRejectsBadParents(t *testing.T) {
	nodes := []Node{{"a", 1}, {"b", -1}}
	bind := []mathutil.Transform{mathutil.TransformIdentity(), mathutil.TransformIdentity()}
	if _, err := NewActor("bad", nodes, bind); err == nil {
		t.Fatal("expected error for forward parent reference")
	}
	if _, err := NewActor("bad", nodes[:1], bind); err == nil {
		t.Fatal("expected error for length mismatch")
	}
}

func TestBindPoseHeight(t *testing.T) {
	a := testActor(t)
	// root at z=1, head at z=2, thighs at z=0.9
	if got := a.BindPoseHeight(); math.Abs(got-1.1) > 1e-12 {
		t.Fatalf("expected height 1.1, got %v", got)
	}

	a.BindPose[0].Rotation = mathutil.EulerToQuat(math.Pi/2, 0, 0)
	// rotating the hierarchy about X moves the spine from Z onto -Y
	if got := a.BindPoseHeight(); got > 0.2001 {
		t.Fatalf("expected the rotated height to collapse, got %v", got)
	}
}

func TestRetargetRoot(t *testing.T) {
	a := testActor(t)
	if !a.IsRetargetRoot(0) || a.IsRetargetRoot(1) {
		t.Fatal("default retarget root should be the root joint")
	}
	a.RetargetRoot = 1
	if a.IsRetargetRoot(0) || !a.IsRetargetRoot(1) {
		t.Fatal("explicit retarget root ignored")
	}
}

func TestAutoMirror(t *testing.T) {
	a := testActor(t)
	if a.HasMirrorInfo() {
		t.Fatal("new actor should have no mirror info")
	}
	if got := a.AutoMirror(mathutil.AxisX); got != 4 {
		t.Fatalf("expected 4 paired joints, got %d", got)
	}
	tests := []struct{ node, source int }{
		{0, 0},
		{2, 2},
		{3, 4},
		{4, 3},
		{5, 6},
		{6, 5},
	}
	for _, tt := range tests {
		if got := a.MirrorInfo(tt.node).SourceNode; got != tt.source {
			t.Fatalf("node %d: expected source %d, got %d", tt.node, tt.source, got)
		}
	}
}

func TestMirrorName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Bip01 L Calf", "Bip01 R Calf"},
		{"hand_r", "hand_l"},
		{"LeftFoot", "RightFoot"},
		{"Bip01 Pelvis", "Bip01 Pelvis"},
		{"Lamp", "Lamp"},
	}
	for _, tt := range tests {
		if got := mirrorName(tt.in); got != tt.want {
			t.Fatalf("mirrorName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSetMirrorInfo(t *testing.T) {
	a := testActor(t)
	if err := a.SetMirrorInfo(3, MirrorInfo{SourceNode: 4, Axis: mathutil.AxisX}); err != nil {
		t.Fatal(err)
	}
	if !a.HasMirrorInfo() || a.MirrorInfo(4).SourceNode != 4 || a.MirrorInfo(3).SourceNode != 4 {
		t.Fatal("mirror table not initialised")
	}
	if err := a.SetMirrorInfo(0, MirrorInfo{SourceNode: 99}); err == nil {
		t.Fatal("expected range error")
	}
}
