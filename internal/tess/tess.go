// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tess converts device-space quads into the four vertices drawn for
// a textured rectangle.
//
// Without anti-aliasing the quad corners are passed through and the texture
// rect corners are assigned in the same triangle-strip order. With coverage
// anti-aliasing each edge is turned into a normalized line equation that is
// non-negative inside the quad, pushed out by half a pixel, and the outset
// corners are recovered by intersecting adjacent outset edges. Texture
// coordinates are then recomputed by inverse-mapping the original quad onto
// the texture rect at the moved corners.
package tess

import (
	"math"

	"github.com/gogpu/quadbatch/geom"
	"golang.org/x/image/math/f32"
)

// outset is the distance, in device pixels, that AA edges are pushed out.
const outset = 0.5

// Corner permutations in triangle-strip order. Walking nextCCW from corner 0
// visits 0, 1, 3, 2; nextCW walks the other way round.
var (
	nextCW  = [4]int{2, 0, 3, 1}
	nextCCW = [4]int{1, 3, 0, 2}
)

// Vertex is one tessellated corner.
type Vertex struct {
	// Position is homogeneous; W is 1 unless the quad has perspective.
	Position geom.Point3

	// TexCoord is normalized texture space.
	TexCoord geom.Point

	// Edges holds the four (a, b, c) edge equations. Zero without AA.
	Edges [4]f32.Vec3
}

func permute(v [4]float32, perm [4]int) [4]float32 {
	return [4]float32{v[perm[0]], v[perm[1]], v[perm[2]], v[perm[3]]}
}

// Quad tessellates q, mapping tex onto it. aa selects the outset path;
// perspective selects homogeneous output positions.
func Quad(q geom.PerspQuad, tex geom.Rect, aa, perspective bool) [4]Vertex {
	var v [4]Vertex
	switch {
	case !aa:
		for i, t := range tex.TriStrip() {
			v[i].TexCoord = t
			if perspective {
				v[i].Position = q.Point(i)
			} else {
				v[i].Position = geom.Pt3(q.X[i], q.Y[i], 1)
			}
		}
	case perspective:
		perspectiveAA(&v, q, tex)
	default:
		affineAA(&v, q, tex)
	}
	return v
}

// EdgeSet holds the four edge equations of a quad, one per lane.
type EdgeSet struct {
	A, B, C [4]float32
}

// Edge returns equation i as an (a, b, c) triple.
func (e EdgeSet) Edge(i int) f32.Vec3 {
	return f32.Vec3{e.A[i], e.B[i], e.C[i]}
}

// OutsetEdges computes the inward-facing, normalized edge equations of the
// quad with corners (x, y), pushes each edge out by half a pixel and returns
// the outset edges together with the outset corners. Edge i runs from corner
// i to corner nextCCW[i].
func OutsetEdges(x, y [4]float32) (EdgeSet, [4]float32, [4]float32) {
	xnext := permute(x, nextCCW)
	ynext := permute(y, nextCCW)

	var e EdgeSet
	var invLen [4]float32
	for i := range 4 {
		e.A[i] = ynext[i] - y[i]
		e.B[i] = x[i] - xnext[i]
		e.C[i] = xnext[i]*y[i] - ynext[i]*x[i]
		invLen[i] = float32(1 / math.Sqrt(float64(e.A[i]*e.A[i]+e.B[i]*e.B[i])))
	}

	// Evaluate each edge at the corner that is not on it; a negative result
	// means the normals face out of the quad.
	xcw := permute(x, nextCW)
	ycw := permute(y, nextCW)
	for i := range 4 {
		if e.A[i]*xcw[i]+e.B[i]*ycw[i]+e.C[i] < 0 {
			for j := range 4 {
				invLen[j] = -invLen[j]
			}
			break
		}
	}

	for i := range 4 {
		e.A[i] *= invLen[i]
		e.B[i] *= invLen[i]
		e.C[i] = e.C[i]*invLen[i] + outset
	}

	// Corner i is where edge i meets edge nextCW[i].
	anext := permute(e.A, nextCW)
	bnext := permute(e.B, nextCW)
	cnext := permute(e.C, nextCW)
	var ox, oy [4]float32
	for i := range 4 {
		ic := 1 / (anext[i]*e.B[i] - bnext[i]*e.A[i])
		ox[i] = (bnext[i]*e.C[i] - e.B[i]*cnext[i]) * ic
		oy[i] = (e.A[i]*cnext[i] - anext[i]*e.C[i]) * ic
	}
	return e, ox, oy
}

func affineAA(v *[4]Vertex, q geom.PerspQuad, tex geom.Rect) {
	edges, x, y := OutsetEdges(q.X, q.Y)
	for i := range 4 {
		v[i].Position = geom.Pt3(x[i], y[i], 1)
		for j := range 4 {
			v[i].Edges[j] = edges.Edge(j)
		}
	}

	qm := geom.MakeAll(
		q.X[0], q.X[1], q.X[2],
		q.Y[0], q.Y[1], q.Y[2],
		1, 1, 1,
	)
	qinv, ok := qm.Invert()
	if !ok {
		return
	}
	m := texMatrix(tex).Concat(qinv)
	for i := range 4 {
		v[i].TexCoord = m.MapPoint(geom.Pt(x[i], y[i]))
	}
}

func perspectiveAA(v *[4]Vertex, q geom.PerspQuad, tex geom.Rect) {
	var x, y [4]float32
	for i := range 4 {
		iw := 1 / q.W[i]
		x[i], y[i] = q.X[i]*iw, q.Y[i]*iw
	}

	// Solve for the plane w = a*x + b*y + c through three of the corners in
	// projected device space.
	weq := geom.Pt3(0, 0, 1)
	p := geom.MakeAll(
		x[0], y[0], 1,
		x[1], y[1], 1,
		x[2], y[2], 1,
	)
	if pinv, ok := p.Invert(); ok {
		weq = pinv.MapHomogeneous(geom.Pt3(q.W[0], q.W[1], q.W[2]))
	}

	edges, ox, oy := OutsetEdges(x, y)
	for i := range 4 {
		w := weq.X*ox[i] + weq.Y*oy[i] + weq.W
		v[i].Position = geom.Pt3(ox[i]*w, oy[i]*w, w)
		for j := range 4 {
			v[i].Edges[j] = edges.Edge(j)
		}
	}

	qm := geom.MakeAll(
		q.X[0], q.X[1], q.X[2],
		q.Y[0], q.Y[1], q.Y[2],
		q.W[0], q.W[1], q.W[2],
	)
	qinv, ok := qm.Invert()
	if !ok {
		return
	}
	m := texMatrix(tex).Concat(qinv)
	for i := range 4 {
		t := m.MapHomogeneous(v[i].Position)
		iw := 1 / t.W
		v[i].TexCoord = geom.Pt(t.X*iw, t.Y*iw)
	}
}

// texMatrix maps the unit columns of a corner matrix onto the first three
// tri-strip corners of tex.
func texMatrix(tex geom.Rect) geom.Matrix {
	return geom.MakeAll(
		tex.Left, tex.Left, tex.Right,
		tex.Top, tex.Bottom, tex.Top,
		1, 1, 1,
	)
}

// Coverage evaluates the AA coverage at device point p: the minimum signed
// distance to the four edges, clamped to [0, 1].
func Coverage(edges [4]f32.Vec3, p geom.Point) float32 {
	d := float32(math.MaxFloat32)
	for _, e := range edges {
		d = min(d, e[0]*p.X+e[1]*p.Y+e[2])
	}
	return min(max(d, 0), 1)
}
