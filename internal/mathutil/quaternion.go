package mathutil

import "math"

// Quat represents a quaternion (x, y, z, w).
type Quat [4]float64

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
// Matches MU Online's bmdAngleToQuaternion function.
func EulerToQuat(rx, ry, rz float64) Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return Quat{
		sx*cy*cz - cx*sy*sz, // x
		cx*sy*cz + sx*cy*sz, // y
		cx*cy*sz - sx*sy*cz, // z
		cx*cy*cz + sx*sy*sz, // w
	}
}

// QuatToMat3 converts a quaternion to a 3×3 rotation matrix.
func QuatToMat3(q Quat) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}

func (a Quat) Dot(b Quat) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

func (q Quat) Len() float64 {
	return math.Sqrt(q.Dot(q))
}

// Normalize returns the unit quaternion. A zero quaternion becomes identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l < 1e-12 {
		return QuatIdentity()
	}
	inv := 1 / l
	return Quat{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

func (q Quat) Conjugate() Quat {
	return Quat{-q[0], -q[1], -q[2], q[3]}
}

// Mul returns the Hamilton product a × b (apply b first, then a).
func (a Quat) Mul(b Quat) Quat {
	ax, ay, az, aw := a[0], a[1], a[2], a[3]
	bx, by, bz, bw := b[0], b[1], b[2], b[3]
	return Quat{
		aw*bx + ax*bw + ay*bz - az*by,
		aw*by - ax*bz + ay*bw + az*bx,
		aw*bz + ax*by - ay*bx + az*bw,
		aw*bw - ax*bx - ay*by - az*bz,
	}
}

// Rotate rotates v by the unit quaternion q.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q[0], q[1], q[2]}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q[3])).Add(u.Cross(t))
}

// Nlerp interpolates along the shortest arc and renormalizes.
func (a Quat) Nlerp(b Quat, t float64) Quat {
	if a.Dot(b) < 0 {
		b = Quat{-b[0], -b[1], -b[2], -b[3]}
	}
	return Quat{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}.Normalize()
}

// Quat16 is a quaternion with components stored as signed 16-bit fixed point
// in the [-1, 1] range.
type Quat16 [4]int16

const quat16Scale = 32767.0

func PackQuat(q Quat) Quat16 {
	var out Quat16
	for i := 0; i < 4; i++ {
		v := math.Round(q[i] * quat16Scale)
		if v > quat16Scale {
			v = quat16Scale
		} else if v < -quat16Scale {
			v = -quat16Scale
		}
		out[i] = int16(v)
	}
	return out
}

func (q Quat16) Unpack() Quat {
	return Quat{
		float64(q[0]) / quat16Scale,
		float64(q[1]) / quat16Scale,
		float64(q[2]) / quat16Scale,
		float64(q[3]) / quat16Scale,
	}
}
