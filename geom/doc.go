// Package geom provides the float32 geometry used by quadbatch: points,
// rectangles, perspective-capable 3x3 matrices and device-space quads.
//
// Matrices are stored row-major in a [golang.org/x/image/math/f32.Mat3],
// so m[3*r+c] is the element in row r and column c. Points are mapped as
// column vectors:
//
//	| x' |   | m0 m1 m2 |   | x |
//	| y' | = | m3 m4 m5 | * | y |
//	| w' |   | m6 m7 m8 |   | 1 |
//
// A [PerspQuad] keeps the four mapped corners in triangle-strip order,
// (left,top), (left,bottom), (right,top), (right,bottom), together with
// their homogeneous w when the mapping matrix has perspective.
package geom
