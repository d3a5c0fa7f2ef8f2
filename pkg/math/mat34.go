package math

import "github.com/chewxy/math32"

// Mat34 is an affine 3x4 transform in row-major order.
// Layout: [m0 m1 m2  m3 ]
//
//	[m4 m5 m6  m7 ]
//	[m8 m9 m10 m11]
//
// The left 3x3 block holds rotation and scale, the last column the translation.
type Mat34 [12]float32

// Identity34 returns the identity transform.
func Identity34() Mat34 {
	return Mat34{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// Translate34 returns a translation transform.
func Translate34(x, y, z float32) Mat34 {
	return Mat34{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, z,
	}
}

// Scale34 returns a scale transform.
func Scale34(x, y, z float32) Mat34 {
	return Mat34{
		x, 0, 0, 0,
		0, y, 0, 0,
		0, 0, z, 0,
	}
}

// RotateY34 returns a rotation around the Y axis.
// angle is in radians.
func RotateY34(angle float32) Mat34 {
	s, c := math32.Sincos(angle)
	return Mat34{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
	}
}

// RotateZ34 returns a rotation around the Z axis.
// angle is in radians.
func RotateZ34(angle float32) Mat34 {
	s, c := math32.Sincos(angle)
	return Mat34{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
	}
}

// Mul returns the composition m * other (other is applied first).
func (m Mat34) Mul(other Mat34) Mat34 {
	var result Mat34
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			v := m[row*4+0]*other[0*4+col] +
				m[row*4+1]*other[1*4+col] +
				m[row*4+2]*other[2*4+col]
			if col == 3 {
				v += m[row*4+3]
			}
			result[row*4+col] = v
		}
	}
	return result
}

// TransformPosition applies the full transform, translation included.
func (m Mat34) TransformPosition(p Vec3) Vec3 {
	return Vec3{
		m[0]*p.X + m[1]*p.Y + m[2]*p.Z + m[3],
		m[4]*p.X + m[5]*p.Y + m[6]*p.Z + m[7],
		m[8]*p.X + m[9]*p.Y + m[10]*p.Z + m[11],
	}
}

// TransformNormal applies the rotation/scale block only.
func (m Mat34) TransformNormal(n Vec3) Vec3 {
	return Vec3{
		m[0]*n.X + m[1]*n.Y + m[2]*n.Z,
		m[4]*n.X + m[5]*n.Y + m[6]*n.Z,
		m[8]*n.X + m[9]*n.Y + m[10]*n.Z,
	}
}

// Translation returns the translation column.
func (m Mat34) Translation() Vec3 {
	return Vec3{m[3], m[7], m[11]}
}
