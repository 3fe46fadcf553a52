package mathutil

// Mat3 is a 3×3 rotation matrix stored row-major: [r0c0, r0c1, r0c2, r1c0, ...].
type Mat3 [9]float64
