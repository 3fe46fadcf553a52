package mathutil

// Transform is a local-space joint transform.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Quat `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

func TransformIdentity() Transform {
	return Transform{Rotation: QuatIdentity(), Scale: Vec3{1, 1, 1}}
}

// Mat4 builds the affine matrix (scale, then rotate, then translate).
func (t Transform) Mat4() Mat4 {
	r := QuatToMat3(t.Rotation)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*3+col] *= t.Scale[col]
		}
	}
	return FromMat3Translation(r, t.Position)
}

// Mirror flags flip a joint's local frame 180° around one axis after mirroring.
const (
	MirrorFlagInvertX uint8 = 1 << iota
	MirrorFlagInvertY
	MirrorFlagInvertZ
)

// Mirror reflects the transform through the plane with the given unit normal.
// The scale is left untouched.
func (t Transform) Mirror(normal Vec3, flags uint8) Transform {
	out := t
	out.Position = reflect(normal, t.Position)
	axis := reflect(normal, Vec3{t.Rotation[0], t.Rotation[1], t.Rotation[2]})
	// (reflect(v), -w) is the mirrored rotation; negate it to keep w's sign.
	out.Rotation = Quat{-axis[0], -axis[1], -axis[2], t.Rotation[3]}

	if flags&MirrorFlagInvertX != 0 {
		out.Rotation[1], out.Rotation[2] = -out.Rotation[1], -out.Rotation[2]
		out.Position[1], out.Position[2] = -out.Position[1], -out.Position[2]
	}
	if flags&MirrorFlagInvertY != 0 {
		out.Rotation[0], out.Rotation[2] = -out.Rotation[0], -out.Rotation[2]
		out.Position[0], out.Position[2] = -out.Position[0], -out.Position[2]
	}
	if flags&MirrorFlagInvertZ != 0 {
		out.Rotation[0], out.Rotation[1] = -out.Rotation[0], -out.Rotation[1]
		out.Position[0], out.Position[1] = -out.Position[0], -out.Position[1]
	}
	return out
}

// ApplyDeltaMirrored takes the delta from source to target, mirrors it and
// applies it on top of t.
func (t Transform) ApplyDeltaMirrored(source, target Transform, normal Vec3, flags uint8) Transform {
	delta := Transform{
		Position: target.Position.Sub(source.Position),
		Rotation: target.Rotation.Mul(source.Rotation.Conjugate()).Normalize(),
		Scale:    target.Scale.Sub(source.Scale),
	}
	delta = delta.Mirror(normal, flags)

	return Transform{
		Position: t.Position.Add(delta.Position),
		Rotation: delta.Rotation.Mul(t.Rotation).Normalize(),
		Scale:    t.Scale.Add(delta.Scale),
	}
}

func reflect(n, v Vec3) Vec3 {
	return v.Sub(n.Scale(2 * v.Dot(n)))
}
