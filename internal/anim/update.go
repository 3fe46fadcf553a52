package anim

import (
	"fmt"
	"math"

	"wavemotion/internal/mathutil"
	"wavemotion/internal/skeleton"
)

// Update samples the instance's motion at its current time into out.
// Unlinked nodes and unknown morph targets copy in. If the chunk cannot be
// decompressed out receives in unchanged and the error is returned.
func Update(in, out *Pose, inst *MotionInstance) error {
	a := inst.Actor
	m := inst.Motion
	t := inst.CurrentTime

	dc, err := inst.Cache.GetChunkAtTime(t, m, inst.ThreadIndex)
	if err != nil {
		out.CopyFrom(in)
		inst.Logger.Warn("anim: motion unavailable, keeping input pose", "motion", m.Name(), "err", err)
		return fmt.Errorf("anim: update %s: %w", m.Name(), err)
	}
	defer dc.Release()

	first, second, frac := dc.CalcInterpolationValues(t)
	for node := range a.Nodes {
		sub := inst.links[node]
		if sub < 0 {
			out.Local[node] = in.Local[node]
			continue
		}

		var tr mathutil.Transform
		if inst.heldInPlace(node) {
			tr = a.BindPose[node]
		} else {
			tr = dc.TransformAt(sub, first, second, frac)
		}
		if inst.Retarget {
			BasicRetarget(inst, sub, node, &tr)
		}
		out.Local[node] = tr
	}

	if inst.Mirror && a.HasMirrorInfo() {
		MirrorPose(out, inst)
	}

	for i := range out.MorphWeights {
		if i >= len(inst.MorphTargets) {
			out.MorphWeights[i] = in.MorphWeights[i]
			continue
		}
		if mi := m.FindMorphSubMotionByID(inst.MorphTargets[i]); mi >= 0 {
			out.MorphWeights[i] = dc.MorphWeightAt(mi, first, second, frac)
		} else {
			out.MorphWeights[i] = in.MorphWeights[i]
		}
	}
	return nil
}

// CalcNodeTransform samples a single node at time t. Mirroring is applied
// against the bind pose of the node's mirror source.
func CalcNodeTransform(inst *MotionInstance, a *skeleton.Actor, node int, t float64, enableRetargeting bool) (mathutil.Transform, error) {
	sub := inst.links[node]
	if sub < 0 {
		if inst.CurrentPose != nil {
			return inst.CurrentPose.Local[node], nil
		}
		return a.BindPose[node], nil
	}

	var out mathutil.Transform
	if inst.heldInPlace(node) {
		out = a.BindPose[node]
	} else {
		dc, err := inst.Cache.GetChunkAtTime(t, inst.Motion, inst.ThreadIndex)
		if err != nil {
			return a.BindPose[node], fmt.Errorf("anim: node %s: %w", a.Nodes[node].Name, err)
		}
		out = dc.TransformAtTime(sub, t)
		dc.Release()
	}

	if enableRetargeting {
		BasicRetarget(inst, sub, node, &out)
	}

	if inst.Mirror && a.HasMirrorInfo() {
		info := a.MirrorInfo(node)
		out = a.BindPose[node].ApplyDeltaMirrored(a.BindPose[info.SourceNode], out,
			mathutil.AxisVec(info.Axis), info.Flags)
	}
	return out, nil
}

// BasicRetarget adapts a sampled transform to the actor's proportions. The
// retarget root's translation is scaled by the ratio of its bind-pose
// coordinates along the up axis (actor over motion) and left unscaled when
// the motion's root sits at zero height. Every other node is offset by the
// difference between the actor's and the motion's bind pose.
func BasicRetarget(inst *MotionInstance, sub, node int, tr *mathutil.Transform) {
	a := inst.Actor
	actorBind := a.BindPose[node]
	motionBind := inst.Motion.SubMotion(sub).BindPose

	if a.IsRetargetRoot(node) {
		if h := motionBind.Position[a.UpAxis]; math.Abs(h) > 1e-6 {
			tr.Position = tr.Position.Scale(actorBind.Position[a.UpAxis] / h)
		}
		return
	}
	tr.Position = tr.Position.Add(actorBind.Position.Sub(motionBind.Position))
	tr.Scale = tr.Scale.Add(actorBind.Scale.Sub(motionBind.Scale))
}

// MirrorPose replaces every node of p with its mirror source's motion,
// reflected through the node's mirror axis and applied on top of the
// node's bind pose. Sources are read from the unmirrored pose.
func MirrorPose(p *Pose, inst *MotionInstance) {
	a := inst.Actor
	src := append([]mathutil.Transform(nil), p.Local...)
	for node := range a.Nodes {
		info := a.MirrorInfo(node)
		p.Local[node] = a.BindPose[node].ApplyDeltaMirrored(a.BindPose[info.SourceNode], src[info.SourceNode],
			mathutil.AxisVec(info.Axis), info.Flags)
	}
}
