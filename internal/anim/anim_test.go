package anim

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"wavemotion/internal/dwt"
	"wavemotion/internal/mathutil"
	"wavemotion/internal/motion"
	"wavemotion/internal/skeleton"
	"wavemotion/internal/wavelet"
)

const tol = 2e-3

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// sourceMotion has a root walking from the origin to (2,0,1), an arm at
// height 1 and a left arm rotating 0.6 rad about Z over one second.
func sourceMotion() *motion.SkeletalMotion {
	root := motion.NewSkeletalSubMotion("root")
	root.BindPose.Position = mathutil.Vec3{0, 0, 1}
	root.Position = &motion.Vec3Track{}
	root.Position.Add(0, mathutil.Vec3{0, 0, 0})
	root.Position.Add(1, mathutil.Vec3{2, 0, 1})

	arm := motion.NewSkeletalSubMotion("arm")
	arm.Pose.Position = mathutil.Vec3{0, 0, 1}
	arm.BindPose.Position = mathutil.Vec3{0, 0, 1}

	left := motion.NewSkeletalSubMotion("L arm")
	left.Pose.Position = mathutil.Vec3{0.2, 0, 0}
	left.BindPose.Position = mathutil.Vec3{0.2, 0, 0}
	left.Rotation = &motion.QuatTrack{}
	left.Rotation.Add(0, mathutil.QuatIdentity())
	left.Rotation.Add(1, mathutil.EulerToQuat(0, 0, 0.6))

	right := motion.NewSkeletalSubMotion("R arm")
	right.Pose.Position = mathutil.Vec3{-0.2, 0, 0}
	right.BindPose.Position = mathutil.Vec3{-0.2, 0, 0}

	blink := &motion.MorphSubMotion{Name: "blink", Weights: &motion.FloatTrack{}}
	blink.Weights.Add(0, 0)
	blink.Weights.Add(1, 1)

	return &motion.SkeletalMotion{
		Name:       "walk",
		SubMotions: []*motion.SkeletalSubMotion{root, arm, left, right},
		Morphs:     []*motion.MorphSubMotion{blink},
	}
}

// testActor has its root three times as high as the motion's root, is twice
// as tall overall and has one joint the motion does not drive.
func testActor(t *testing.T) *skeleton.Actor {
	t.Helper()
	nodes := []skeleton.Node{
		{Name: "root", Parent: -1},
		{Name: "arm", Parent: 0},
		{Name: "L arm", Parent: 0},
		{Name: "R arm", Parent: 0},
		{Name: "prop", Parent: 0},
	}
	bind := make([]mathutil.Transform, len(nodes))
	for i := range bind {
		bind[i] = mathutil.TransformIdentity()
	}
	bind[0].Position = mathutil.Vec3{0, 0, 3}
	bind[1].Position = mathutil.Vec3{0, 0, 2}
	bind[2].Position = mathutil.Vec3{0.2, 0, 0}
	bind[3].Position = mathutil.Vec3{-0.2, 0, 0}
	bind[4].Position = mathutil.Vec3{1, 0, 0}
	a, err := skeleton.NewActor("actor", nodes, bind)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func newInstance(t *testing.T) (*MotionInstance, *wavelet.Cache) {
	t.Helper()
	return newInstanceOf(t, sourceMotion())
}

func newInstanceOf(t *testing.T, src *motion.SkeletalMotion) (*MotionInstance, *wavelet.Cache) {
	t.Helper()
	c := wavelet.NewCache(wavelet.CacheConfig{Logger: quiet()})
	s := wavelet.DefaultSettings()
	s.Wavelet = dwt.Haar
	s.PositionQuality = 100
	s.RotationQuality = 100
	s.MorphQuality = 100
	m, err := wavelet.Compress(src, s, c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	inst := NewMotionInstance(testActor(t), m, c, 0)
	inst.Logger = quiet()
	return inst, c
}

func vecNear(a, b mathutil.Vec3) bool { return a.Sub(b).Len() < tol }

func quatNear(a, b mathutil.Quat) bool { return math.Abs(a.Dot(b)) > 1-tol }

func TestLinksByName(t *testing.T) {
	inst, _ := newInstance(t)
	if inst.NumLinked() != 4 {
		t.Fatalf("expected 4 linked nodes, got %d", inst.NumLinked())
	}
	if inst.Link(4) != -1 {
		t.Fatalf("prop should not be linked, got %d", inst.Link(4))
	}
	if h := inst.MotionBindPoseHeight(); math.Abs(h-1) > 1e-9 {
		t.Fatalf("motion bind pose height = %v, want 1", h)
	}
}

func TestUpdateSamplesLinkedNodes(t *testing.T) {
	inst, _ := newInstance(t)
	inst.CurrentTime = 0.5
	inst.MorphTargets = []uint32{wavelet.NameID("blink"), wavelet.NameID("frown")}

	in := NewPose(inst.Actor, 2)
	in.Local[4].Position = mathutil.Vec3{7, 7, 7}
	in.MorphWeights[1] = 0.25
	out := NewPose(inst.Actor, 2)
	if err := Update(in, out, inst); err != nil {
		t.Fatal(err)
	}

	if !vecNear(out.Local[0].Position, mathutil.Vec3{1, 0, 0.5}) {
		t.Fatalf("root position = %v", out.Local[0].Position)
	}
	if out.Local[4] != in.Local[4] {
		t.Fatalf("unlinked node should keep the input pose, got %v", out.Local[4])
	}
	if math.Abs(out.MorphWeights[0]-0.5) > tol {
		t.Fatalf("blink weight = %v, want 0.5", out.MorphWeights[0])
	}
	if out.MorphWeights[1] != 0.25 {
		t.Fatalf("unknown morph target should keep the input weight, got %v", out.MorphWeights[1])
	}
}

func TestUpdateInPlaceKeepsRootAtBind(t *testing.T) {
	inst, _ := newInstance(t)
	inst.CurrentTime = 0.8
	inst.InPlace = true

	in := NewPose(inst.Actor, 0)
	out := NewPose(inst.Actor, 0)
	if err := Update(in, out, inst); err != nil {
		t.Fatal(err)
	}
	if out.Local[0] != inst.Actor.BindPose[0] {
		t.Fatalf("root = %v, want bind pose", out.Local[0])
	}
}

func TestUpdateInPlaceHoldsExtractionNode(t *testing.T) {
	src := sourceMotion()
	src.MotionExtractionNode = "L arm"
	inst, _ := newInstanceOf(t, src)
	inst.CurrentTime = 1
	inst.InPlace = true

	in := NewPose(inst.Actor, 0)
	out := NewPose(inst.Actor, 0)
	if err := Update(in, out, inst); err != nil {
		t.Fatal(err)
	}
	if out.Local[2] != inst.Actor.BindPose[2] {
		t.Fatalf("extraction node = %v, want bind pose", out.Local[2])
	}
	// the root is not the extraction node and keeps moving
	if !vecNear(out.Local[0].Position, mathutil.Vec3{2, 0, 1}) {
		t.Fatalf("root position = %v", out.Local[0].Position)
	}

	got, err := CalcNodeTransform(inst, inst.Actor, 2, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != inst.Actor.BindPose[2] {
		t.Fatalf("CalcNodeTransform = %v, want bind pose", got)
	}
}

func TestRetarget(t *testing.T) {
	inst, _ := newInstance(t)
	inst.CurrentTime = 0.5
	inst.Retarget = true

	in := NewPose(inst.Actor, 0)
	out := NewPose(inst.Actor, 0)
	if err := Update(in, out, inst); err != nil {
		t.Fatal(err)
	}
	// the actor's root is three times as high as the motion's root
	if !vecNear(out.Local[0].Position, mathutil.Vec3{3, 0, 1.5}) {
		t.Fatalf("root position = %v, want scaled by 3", out.Local[0].Position)
	}
	if !vecNear(out.Local[1].Position, mathutil.Vec3{0, 0, 2}) {
		t.Fatalf("arm position = %v, want offset to the actor bind pose", out.Local[1].Position)
	}
}

func TestRetargetGroundedRootIsUnscaled(t *testing.T) {
	inst, _ := newInstance(t)
	inst.Motion.SubMotion(0).BindPose.Position = mathutil.Vec3{}

	tr := mathutil.Transform{Position: mathutil.Vec3{1, 0, 0.5}, Rotation: mathutil.QuatIdentity(), Scale: mathutil.Vec3{1, 1, 1}}
	BasicRetarget(inst, 0, 0, &tr)
	if tr.Position != (mathutil.Vec3{1, 0, 0.5}) {
		t.Fatalf("root position = %v, want unscaled", tr.Position)
	}
}

func TestMirror(t *testing.T) {
	inst, _ := newInstance(t)
	if n := inst.Actor.AutoMirror(mathutil.AxisX); n != 2 {
		t.Fatalf("expected 2 mirrored joints, got %d", n)
	}
	inst.CurrentTime = 1
	inst.Mirror = true

	in := NewPose(inst.Actor, 0)
	out := NewPose(inst.Actor, 0)
	if err := Update(in, out, inst); err != nil {
		t.Fatal(err)
	}
	left, right := out.Local[2], out.Local[3]
	if !quatNear(left.Rotation, mathutil.QuatIdentity()) {
		t.Fatalf("left arm should take the still right arm, got %v", left.Rotation)
	}
	if !quatNear(right.Rotation, mathutil.EulerToQuat(0, 0, -0.6)) {
		t.Fatalf("right arm rotation = %v, want mirrored", right.Rotation)
	}
	if !vecNear(right.Position, mathutil.Vec3{-0.2, 0, 0}) {
		t.Fatalf("right arm position = %v", right.Position)
	}

	got, err := CalcNodeTransform(inst, inst.Actor, 3, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	// per-node mirroring reflects the node's own motion
	if !quatNear(got.Rotation, mathutil.QuatIdentity()) {
		t.Fatalf("CalcNodeTransform rotation = %v", got.Rotation)
	}
}

func TestCalcNodeTransform(t *testing.T) {
	inst, _ := newInstance(t)

	got, err := CalcNodeTransform(inst, inst.Actor, 0, 0.25, false)
	if err != nil {
		t.Fatal(err)
	}
	if !vecNear(got.Position, mathutil.Vec3{0.5, 0, 0.25}) {
		t.Fatalf("root position = %v", got.Position)
	}

	got, err = CalcNodeTransform(inst, inst.Actor, 4, 0.25, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != inst.Actor.BindPose[4] {
		t.Fatalf("unlinked node = %v, want bind pose", got)
	}

	inst.CurrentPose = NewPose(inst.Actor, 0)
	inst.CurrentPose.Local[4].Position = mathutil.Vec3{3, 3, 3}
	got, _ = CalcNodeTransform(inst, inst.Actor, 4, 0.25, false)
	if got.Position != (mathutil.Vec3{3, 3, 3}) {
		t.Fatalf("unlinked node = %v, want current pose", got)
	}
}

func TestUpdateReleasedMotion(t *testing.T) {
	inst, _ := newInstance(t)
	inst.Motion.Release()

	in := NewPose(inst.Actor, 0)
	in.Local[0].Position = mathutil.Vec3{9, 9, 9}
	out := NewPose(inst.Actor, 0)
	if err := Update(in, out, inst); err == nil {
		t.Fatal("expected an error for a released motion")
	}
	if out.Local[0] != in.Local[0] {
		t.Fatalf("output should be the input pose, got %v", out.Local[0])
	}
}

func TestAdvance(t *testing.T) {
	inst, _ := newInstance(t)
	inst.Advance(0.75)
	inst.Advance(0.75)
	if inst.CurrentTime != inst.Motion.MaxTime() {
		t.Fatalf("time = %v, want clamped to %v", inst.CurrentTime, inst.Motion.MaxTime())
	}

	inst.CurrentTime = 0
	inst.Loop = true
	inst.Advance(1.25)
	if math.Abs(inst.CurrentTime-0.25) > 1e-9 {
		t.Fatalf("looped time = %v, want 0.25", inst.CurrentTime)
	}
	inst.Advance(-0.5)
	if math.Abs(inst.CurrentTime-0.75) > 1e-9 {
		t.Fatalf("looped time = %v, want 0.75", inst.CurrentTime)
	}
}
