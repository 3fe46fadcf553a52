package anim

import (
	"log/slog"
	"math"

	"wavemotion/internal/mathutil"
	"wavemotion/internal/skeleton"
	"wavemotion/internal/wavelet"
)

// MotionInstance plays one motion on one actor.
type MotionInstance struct {
	Actor  *skeleton.Actor
	Motion *wavelet.Motion
	Cache  *wavelet.Cache
	// ThreadIndex selects the cache scratch buffers of the evaluating worker.
	ThreadIndex int

	CurrentTime float64
	Loop        bool

	Retarget bool
	Mirror   bool
	InPlace  bool

	// MorphTargets lists the morph target IDs of the actor, one per pose
	// weight slot.
	MorphTargets []uint32

	// CurrentPose is returned for unlinked nodes by CalcNodeTransform; nil
	// means the bind pose.
	CurrentPose *Pose

	Logger *slog.Logger

	links        []int
	motionHeight float64
}

// NewMotionInstance links the actor's nodes to the motion's sub-motions by
// name.
func NewMotionInstance(a *skeleton.Actor, m *wavelet.Motion, c *wavelet.Cache, threadIndex int) *MotionInstance {
	inst := &MotionInstance{
		Actor:       a,
		Motion:      m,
		Cache:       c,
		ThreadIndex: threadIndex,
		Logger:      slog.Default(),
		links:       make([]int, a.NumNodes()),
	}

	motionBind := make([]mathutil.Transform, a.NumNodes())
	for i, n := range a.Nodes {
		inst.links[i] = m.FindSubMotionByName(n.Name)
		motionBind[i] = a.BindPose[i]
		if sub := inst.links[i]; sub >= 0 {
			motionBind[i] = m.SubMotion(sub).BindPose
		}
	}
	inst.motionHeight = a.PoseHeight(motionBind)
	return inst
}

// Link returns the sub-motion index that drives node, or -1.
func (inst *MotionInstance) Link(node int) int { return inst.links[node] }

// NumLinked counts nodes driven by the motion.
func (inst *MotionInstance) NumLinked() int {
	n := 0
	for _, l := range inst.links {
		if l >= 0 {
			n++
		}
	}
	return n
}

// MotionBindPoseHeight is the bind-pose height of the skeleton the motion
// was authored on, measured on this actor's hierarchy.
func (inst *MotionInstance) MotionBindPoseHeight() float64 { return inst.motionHeight }

// heldInPlace reports whether node is kept at its bind pose: the node
// linked to the motion's extraction sub-motion when the motion has one,
// otherwise every root.
func (inst *MotionInstance) heldInPlace(node int) bool {
	if !inst.InPlace {
		return false
	}
	if ex := inst.Motion.MotionExtractionNode(); ex >= 0 {
		return inst.links[node] == ex
	}
	return inst.Actor.IsRoot(node)
}

// Advance moves the play head by dt, wrapping when looping and clamping
// otherwise.
func (inst *MotionInstance) Advance(dt float64) {
	maxTime := inst.Motion.MaxTime()
	t := inst.CurrentTime + dt
	switch {
	case inst.Loop && maxTime > 0:
		t = math.Mod(t, maxTime)
		if t < 0 {
			t += maxTime
		}
	case t > maxTime:
		t = maxTime
	case t < 0:
		t = 0
	}
	inst.CurrentTime = t
}
