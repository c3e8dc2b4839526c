package quadbatch

import "golang.org/x/image/math/f32"

// ColorSpaceXform is an opaque color-space transform applied to every
// texture sample of a batch. Two transforms are interchangeable when their
// source key and gamut matrix match.
type ColorSpaceXform struct {
	key   uint32
	gamut f32.Mat4
}

// NewColorSpaceXform creates a transform identified by key with the given
// 4x4 gamut matrix (row-major).
func NewColorSpaceXform(key uint32, gamut f32.Mat4) *ColorSpaceXform {
	return &ColorSpaceXform{key: key, gamut: gamut}
}

// Key returns a value identifying the shader code the transform needs.
// A nil transform has key 0.
func (x *ColorSpaceXform) Key() uint32 {
	if x == nil {
		return 0
	}
	return x.key<<1 | 1
}

// Gamut returns the gamut matrix uploaded as a uniform.
func (x *ColorSpaceXform) Gamut() f32.Mat4 {
	if x == nil {
		return f32.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
	}
	return x.gamut
}

// XformEquals reports whether a and b transform colors identically.
func XformEquals(a, b *ColorSpaceXform) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.key == b.key && a.gamut == b.gamut
}
