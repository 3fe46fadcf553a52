package bmd

import (
	"fmt"

	"wavemotion/internal/mathutil"
	"wavemotion/internal/motion"
	"wavemotion/internal/skeleton"
)

// NodeNames returns one unique name per bone. Dummy and unnamed bones get
// generated names; duplicates get an index suffix.
func (m *Model) NodeNames() []string {
	names := make([]string, len(m.Bones))
	seen := make(map[string]bool, len(m.Bones))
	for i, b := range m.Bones {
		n := b.Name
		switch {
		case b.IsDummy:
			n = fmt.Sprintf("dummy_%d", i)
		case n == "":
			n = fmt.Sprintf("bone_%d", i)
		}
		if seen[n] {
			n = fmt.Sprintf("%s_%d", n, i)
		}
		seen[n] = true
		names[i] = n
	}
	return names
}

func (b *Bone) bindTransform() mathutil.Transform {
	t := mathutil.TransformIdentity()
	if b.IsDummy {
		return t
	}
	t.Position = mathutil.Vec3(b.BindPosition)
	t.Rotation = mathutil.EulerToQuat(b.BindRotation[0], b.BindRotation[1], b.BindRotation[2])
	return t
}

// Actor builds the skeleton of the model. Dummy bones become unparented
// joints at the origin.
func (m *Model) Actor() (*skeleton.Actor, error) {
	names := m.NodeNames()
	nodes := make([]skeleton.Node, len(m.Bones))
	bind := make([]mathutil.Transform, len(m.Bones))
	for i := range m.Bones {
		b := &m.Bones[i]
		parent := b.Parent
		if b.IsDummy {
			parent = -1
		}
		nodes[i] = skeleton.Node{Name: names[i], Parent: parent}
		bind[i] = b.bindTransform()
	}
	a, err := skeleton.NewActor(m.Name, nodes, bind)
	if err != nil {
		return nil, fmt.Errorf("bmd: actor %s: %w", m.Name, err)
	}
	return a, nil
}

// SourceMotion converts one action into an uncompressed motion with keys
// spaced 1/fps apart.
func (m *Model) SourceMotion(action int, fps float64) (*motion.SkeletalMotion, error) {
	if action < 0 || action >= len(m.Actions) {
		return nil, fmt.Errorf("bmd: %s: action %d out of range [0,%d)", m.Name, action, len(m.Actions))
	}
	if fps <= 0 {
		return nil, fmt.Errorf("bmd: %s: frame rate must be positive, got %v", m.Name, fps)
	}
	act := m.Actions[action]
	if act.NumKeys == 0 {
		return nil, fmt.Errorf("bmd: %s: action %d has no keys", m.Name, action)
	}

	names := m.NodeNames()
	out := &motion.SkeletalMotion{Name: fmt.Sprintf("%s_%02d", m.Name, action)}
	for i := range m.Bones {
		b := &m.Bones[i]
		if b.IsDummy {
			continue
		}
		keys := b.Keys[action]
		sub := motion.NewSkeletalSubMotion(names[i])
		sub.BindPose = b.bindTransform()
		sub.Position = &motion.Vec3Track{}
		sub.Rotation = &motion.QuatTrack{}
		for k := range keys.Positions {
			t := float64(k) / fps
			p := keys.Positions[k]
			r := keys.Rotations[k]
			sub.Position.Add(t, mathutil.Vec3{float64(p[0]), float64(p[1]), float64(p[2])})
			sub.Rotation.Add(t, mathutil.EulerToQuat(float64(r[0]), float64(r[1]), float64(r[2])))
		}
		sub.Pose = sub.TransformAt(0)
		if act.LockPositions && b.Parent < 0 && out.MotionExtractionNode == "" {
			out.MotionExtractionNode = names[i]
		}
		out.SubMotions = append(out.SubMotions, sub)
	}
	return out, nil
}
