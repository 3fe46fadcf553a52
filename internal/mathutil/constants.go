package mathutil

// Axis indices into Vec3.
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// DefaultUpAxis is the vertical axis of BMD data (Z-up, DirectX convention).
const DefaultUpAxis = AxisZ

// AxisVec returns the unit vector along the given axis index.
func AxisVec(axis int) Vec3 {
	var v Vec3
	v[axis] = 1
	return v
}
