package geom

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Point represents a 2D point or vector.
type Point struct {
	X, Y float32
}

// Pt is a convenience function to create a Point.
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points (vector addition).
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the difference of two points (vector subtraction).
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Length returns the length of the vector.
func (p Point) Length() float32 {
	return float32(math.Hypot(float64(p.X), float64(p.Y)))
}

// Point3 is a homogeneous 2D point (x, y, w).
type Point3 struct {
	X, Y, W float32
}

// Pt3 is a convenience function to create a Point3.
func Pt3(x, y, w float32) Point3 {
	return Point3{X: x, Y: y, W: w}
}

// Vec3 returns the point as an f32.Vec3.
func (p Point3) Vec3() f32.Vec3 {
	return f32.Vec3{p.X, p.Y, p.W}
}

// Project divides x and y by w.
func (p Point3) Project() Point {
	iw := 1 / p.W
	return Point{X: p.X * iw, Y: p.Y * iw}
}
