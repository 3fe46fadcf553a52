// Package skeleton describes the joint hierarchy an animation plays on.
package skeleton

import (
	"fmt"
	"math"

	"wavemotion/internal/mathutil"
)

// Node is one joint. Parent is -1 for roots and always precedes the node.
type Node struct {
	Name   string
	Parent int
}

// MirrorInfo pairs a joint with the joint whose motion it takes when the
// motion is mirrored.
type MirrorInfo struct {
	SourceNode int
	Axis       int
	Flags      uint8
}

// Actor is a skeleton with its bind pose.
type Actor struct {
	Name     string
	Nodes    []Node
	BindPose []mathutil.Transform
	UpAxis   int

	// RetargetRoot is the joint whose translation is scaled by height when
	// retargeting; -1 uses every root joint.
	RetargetRoot int

	mirror []MirrorInfo
}

// NewActor validates the hierarchy and returns an actor without mirror
// info.
func NewActor(name string, nodes []Node, bind []mathutil.Transform) (*Actor, error) {
	if len(nodes) != len(bind) {
		return nil, fmt.Errorf("skeleton: %s: %d nodes but %d bind transforms", name, len(nodes), len(bind))
	}
	for i, n := range nodes {
		if n.Parent >= i || n.Parent < -1 {
			return nil, fmt.Errorf("skeleton: %s: node %d (%s) has invalid parent %d", name, i, n.Name, n.Parent)
		}
	}
	return &Actor{
		Name:         name,
		Nodes:        nodes,
		BindPose:     bind,
		UpAxis:       mathutil.DefaultUpAxis,
		RetargetRoot: -1,
	}, nil
}

func (a *Actor) NumNodes() int { return len(a.Nodes) }

func (a *Actor) IsRoot(i int) bool { return a.Nodes[i].Parent < 0 }

// FindNode returns the index of the named node or -1.
func (a *Actor) FindNode(name string) int {
	for i, n := range a.Nodes {
		if n.Name == name {
			return i
		}
	}
	return -1
}

// WorldMatrices chains local transforms down the hierarchy.
func (a *Actor) WorldMatrices(local []mathutil.Transform) []mathutil.Mat4 {
	worlds := make([]mathutil.Mat4, len(a.Nodes))
	for i, n := range a.Nodes {
		m := local[i].Mat4()
		if n.Parent >= 0 {
			m = mathutil.Mat4Mul(worlds[n.Parent], m)
		}
		worlds[i] = m
	}
	return worlds
}

// PoseHeight is the extent of the joint positions along the up axis.
func (a *Actor) PoseHeight(local []mathutil.Transform) float64 {
	if len(a.Nodes) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, w := range a.WorldMatrices(local) {
		v := w.MulPoint(mathutil.Vec3{})[a.UpAxis]
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return hi - lo
}

// BindPoseHeight is PoseHeight of the bind pose.
func (a *Actor) BindPoseHeight() float64 {
	return a.PoseHeight(a.BindPose)
}

// IsRetargetRoot reports whether node i receives height-scaled translation.
func (a *Actor) IsRetargetRoot(i int) bool {
	if a.RetargetRoot >= 0 {
		return i == a.RetargetRoot
	}
	return a.IsRoot(i)
}
