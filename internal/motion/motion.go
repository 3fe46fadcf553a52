// Package motion holds uncompressed keyframed skeletal motions, the input of
// the wavelet compressor.
package motion

import "wavemotion/internal/mathutil"

// Tolerances below which two keys are considered equal.
const (
	PositionTolerance = 1e-5
	RotationTolerance = 1e-9
	ScaleTolerance    = 1e-5
	MorphTolerance    = 1e-6
)

// SkeletalSubMotion is the animation of one joint. Nil tracks hold the pose.
type SkeletalSubMotion struct {
	Name     string             `json:"name"`
	Pose     mathutil.Transform `json:"pose"`
	BindPose mathutil.Transform `json:"bind_pose"`
	Position *Vec3Track         `json:"position,omitempty"`
	Rotation *QuatTrack         `json:"rotation,omitempty"`
	Scale    *Vec3Track         `json:"scale,omitempty"`
}

// NewSkeletalSubMotion returns a sub-motion with identity pose and bind pose.
func NewSkeletalSubMotion(name string) *SkeletalSubMotion {
	return &SkeletalSubMotion{
		Name:     name,
		Pose:     mathutil.TransformIdentity(),
		BindPose: mathutil.TransformIdentity(),
	}
}

// A track is animated when its keys are not all equal. Constant tracks are
// folded into the pose by StaticPose.

func (s *SkeletalSubMotion) PositionAnimated() bool {
	return s.Position != nil && len(s.Position.Keys) > 1 &&
		!constantAt(s.Position, s.Position.Keys[0].Value, vec3Dist, PositionTolerance)
}

func (s *SkeletalSubMotion) RotationAnimated() bool {
	return s.Rotation != nil && len(s.Rotation.Keys) > 1 &&
		!constantAt(s.Rotation, s.Rotation.Keys[0].Value, quatDist, RotationTolerance)
}

func (s *SkeletalSubMotion) ScaleAnimated() bool {
	return s.Scale != nil && len(s.Scale.Keys) > 1 &&
		!constantAt(s.Scale, s.Scale.Keys[0].Value, vec3Dist, ScaleTolerance)
}

// StaticPose returns the pose with the value of every constant track
// substituted.
func (s *SkeletalSubMotion) StaticPose() mathutil.Transform {
	out := s.Pose
	if s.Position != nil && len(s.Position.Keys) > 0 && !s.PositionAnimated() {
		out.Position = s.Position.Keys[0].Value
	}
	if s.Rotation != nil && len(s.Rotation.Keys) > 0 && !s.RotationAnimated() {
		out.Rotation = s.Rotation.Keys[0].Value.Normalize()
	}
	if s.Scale != nil && len(s.Scale.Keys) > 0 && !s.ScaleAnimated() {
		out.Scale = s.Scale.Keys[0].Value
	}
	return out
}

// TransformAt samples all channels; missing tracks return the pose value.
func (s *SkeletalSubMotion) TransformAt(t float64) mathutil.Transform {
	out := s.Pose
	if s.Position != nil && len(s.Position.Keys) > 0 {
		out.Position = s.Position.Sample(t, LerpVec3)
	}
	if s.Rotation != nil && len(s.Rotation.Keys) > 0 {
		out.Rotation = s.Rotation.Sample(t, LerpQuat).Normalize()
	}
	if s.Scale != nil && len(s.Scale.Keys) > 0 {
		out.Scale = s.Scale.Sample(t, LerpVec3)
	}
	return out
}

// NumKeys counts keyframes over all tracks.
func (s *SkeletalSubMotion) NumKeys() (pos, rot, scale int) {
	if s.Position != nil {
		pos = len(s.Position.Keys)
	}
	if s.Rotation != nil {
		rot = len(s.Rotation.Keys)
	}
	if s.Scale != nil {
		scale = len(s.Scale.Keys)
	}
	return pos, rot, scale
}

func (s *SkeletalSubMotion) duration() float64 {
	return max(s.Position.Duration(), s.Rotation.Duration(), s.Scale.Duration())
}

// MorphSubMotion animates one morph target weight.
type MorphSubMotion struct {
	Name       string      `json:"name"`
	PoseWeight float64     `json:"pose_weight"`
	Weights    *FloatTrack `json:"weights,omitempty"`
}

func (m *MorphSubMotion) Animated() bool {
	return m.Weights != nil && len(m.Weights.Keys) > 1 &&
		!constantAt(m.Weights, m.Weights.Keys[0].Value, floatDist, MorphTolerance)
}

// StaticWeight is the pose weight, or the value of a constant track.
func (m *MorphSubMotion) StaticWeight() float64 {
	if m.Weights != nil && len(m.Weights.Keys) > 0 && !m.Animated() {
		return m.Weights.Keys[0].Value
	}
	return m.PoseWeight
}

// WeightAt samples the weight; a missing track returns the pose weight.
func (m *MorphSubMotion) WeightAt(t float64) float64 {
	if m.Weights == nil || len(m.Weights.Keys) == 0 {
		return m.PoseWeight
	}
	return m.Weights.Sample(t, LerpFloat)
}

// SkeletalMotion is an uncompressed motion: one sub-motion per joint plus
// optional morph weights.
type SkeletalMotion struct {
	Name       string               `json:"name"`
	SubMotions []*SkeletalSubMotion `json:"sub_motions"`
	Morphs     []*MorphSubMotion    `json:"morphs,omitempty"`

	// MotionExtractionNode names the root joint whose horizontal movement
	// drives the actor; empty means none.
	MotionExtractionNode string `json:"motion_extraction_node,omitempty"`
}

// MaxTime returns the time of the last key over all tracks.
func (m *SkeletalMotion) MaxTime() float64 {
	var t float64
	for _, s := range m.SubMotions {
		t = max(t, s.duration())
	}
	for _, mo := range m.Morphs {
		t = max(t, mo.Weights.Duration())
	}
	return t
}

// FindSubMotion returns the index of the named sub-motion or -1.
func (m *SkeletalMotion) FindSubMotion(name string) int {
	for i, s := range m.SubMotions {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// NumKeys counts all keyframes, morph keys included.
func (m *SkeletalMotion) NumKeys() (pos, rot, scale, morph int) {
	for _, s := range m.SubMotions {
		p, r, sc := s.NumKeys()
		pos += p
		rot += r
		scale += sc
	}
	for _, mo := range m.Morphs {
		if mo.Weights != nil {
			morph += len(mo.Weights.Keys)
		}
	}
	return pos, rot, scale, morph
}
