// Package anim evaluates wavelet motions onto actor poses.
package anim

import (
	"wavemotion/internal/mathutil"
	"wavemotion/internal/skeleton"
)

// Pose holds the local transforms of every node of an actor plus morph
// target weights.
type Pose struct {
	Local        []mathutil.Transform
	MorphWeights []float64
}

// NewPose returns the bind pose of a with numMorphs zero weights.
func NewPose(a *skeleton.Actor, numMorphs int) *Pose {
	p := &Pose{
		Local:        make([]mathutil.Transform, a.NumNodes()),
		MorphWeights: make([]float64, numMorphs),
	}
	copy(p.Local, a.BindPose)
	return p
}

// CopyFrom makes p a copy of src, reusing p's storage.
func (p *Pose) CopyFrom(src *Pose) {
	p.Local = append(p.Local[:0], src.Local...)
	p.MorphWeights = append(p.MorphWeights[:0], src.MorphWeights...)
}

// WorldMatrices returns the model-space joint matrices of the pose.
func (p *Pose) WorldMatrices(a *skeleton.Actor) []mathutil.Mat4 {
	return a.WorldMatrices(p.Local)
}
