package geom

import (
	"math"

	"golang.org/x/image/math/f32"
)

// nearlyZeroDet is the determinant magnitude below which a matrix is treated
// as singular: (1/4096)^3.
const nearlyZeroDet = 1.0 / (4096.0 * 4096.0 * 4096.0)

// Matrix is a 3x3 transformation matrix in row-major order. The zero value
// is not the identity; use Identity.
type Matrix f32.Mat3

// Identity returns the identity transformation matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// MakeAll creates a matrix from its nine elements in row-major order.
func MakeAll(m0, m1, m2, m3, m4, m5, m6, m7, m8 float32) Matrix {
	return Matrix{m0, m1, m2, m3, m4, m5, m6, m7, m8}
}

// FromAff3 promotes a 2x3 affine matrix to a 3x3 matrix.
func FromAff3(a f32.Aff3) Matrix {
	return Matrix{
		a[0], a[1], a[2],
		a[3], a[4], a[5],
		0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(x, y float32) Matrix {
	return Matrix{
		1, 0, x,
		0, 1, y,
		0, 0, 1,
	}
}

// Scale creates a scaling matrix.
func Scale(x, y float32) Matrix {
	return Matrix{
		x, 0, 0,
		0, y, 0,
		0, 0, 1,
	}
}

// Rotate creates a rotation matrix (angle in radians).
func Rotate(angle float64) Matrix {
	sin, cos := math.Sincos(angle)
	c, s := float32(cos), float32(sin)
	return Matrix{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// Concat returns m * o, the transform that applies o first and then m.
func (m Matrix) Concat(o Matrix) Matrix {
	var r Matrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[3*row+col] = m[3*row]*o[col] + m[3*row+1]*o[3+col] + m[3*row+2]*o[6+col]
		}
	}
	return r
}

// HasPerspective reports whether the bottom row differs from (0, 0, 1).
func (m Matrix) HasPerspective() bool {
	return m[6] != 0 || m[7] != 0 || m[8] != 1
}

// IsIdentity reports whether m is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Invert returns the inverse of m. The second result is false when m is
// singular, in which case the returned matrix must not be used.
func (m Matrix) Invert() (Matrix, bool) {
	a := [9]float64{}
	for i, v := range m {
		a[i] = float64(v)
	}
	c0 := a[4]*a[8] - a[5]*a[7]
	c1 := a[5]*a[6] - a[3]*a[8]
	c2 := a[3]*a[7] - a[4]*a[6]
	det := a[0]*c0 + a[1]*c1 + a[2]*c2
	if math.IsNaN(det) || math.IsInf(det, 0) || math.Abs(det) <= nearlyZeroDet {
		return Matrix{}, false
	}
	inv := 1 / det
	return Matrix{
		float32(c0 * inv),
		float32((a[2]*a[7] - a[1]*a[8]) * inv),
		float32((a[1]*a[5] - a[2]*a[4]) * inv),
		float32(c1 * inv),
		float32((a[0]*a[8] - a[2]*a[6]) * inv),
		float32((a[2]*a[3] - a[0]*a[5]) * inv),
		float32(c2 * inv),
		float32((a[1]*a[6] - a[0]*a[7]) * inv),
		float32((a[0]*a[4] - a[1]*a[3]) * inv),
	}, true
}

// MapHomogeneous maps a homogeneous point without dividing.
func (m Matrix) MapHomogeneous(p Point3) Point3 {
	return Point3{
		X: m[0]*p.X + m[1]*p.Y + m[2]*p.W,
		Y: m[3]*p.X + m[4]*p.Y + m[5]*p.W,
		W: m[6]*p.X + m[7]*p.Y + m[8]*p.W,
	}
}

// MapXY maps (x, y, 1) and returns the homogeneous result.
func (m Matrix) MapXY(x, y float32) Point3 {
	return m.MapHomogeneous(Point3{X: x, Y: y, W: 1})
}

// MapPoint maps p and divides by the resulting w when m has perspective.
func (m Matrix) MapPoint(p Point) Point {
	h := m.MapXY(p.X, p.Y)
	if !m.HasPerspective() {
		return Point{X: h.X, Y: h.Y}
	}
	return h.Project()
}
