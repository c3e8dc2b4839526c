package quadbatch

import (
	"fmt"
	"math"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch/geom"
)

// Quad index pattern: two triangles over four tri-strip ordered vertices.
const (
	QuadIndicesPerPattern  = 6
	QuadVerticesPerPattern = 4
)

// QuadIndexPattern returns the six indices drawing one quad.
func QuadIndexPattern() []uint16 {
	return []uint16{0, 1, 2, 2, 1, 3}
}

// RepeatPattern returns pattern repeated n times, repetition i offset by
// i*verticesPerPattern. It panics if the indices would overflow uint16.
func RepeatPattern(pattern []uint16, verticesPerPattern, n int) []uint16 {
	if n > 0 && (n-1)*verticesPerPattern+int(slices.Max(pattern)) > math.MaxUint16 {
		panic(fmt.Sprintf("quadbatch: %d patterns overflow 16-bit indices", n))
	}
	out := make([]uint16, 0, len(pattern)*n)
	for i := range n {
		base := uint16(i * verticesPerPattern)
		for _, idx := range pattern {
			out = append(out, base+idx)
		}
	}
	return out
}

// VertexSpace is vertex memory handed out by a flush target.
type VertexSpace struct {
	// Buffer receives Data when the target submits.
	Buffer Buffer
	// FirstVertex is the index of the first vertex within Buffer.
	FirstVertex int
	// Data is the CPU memory to fill, stride*count bytes long.
	Data []byte
}

// FlushTarget is what an op list supplies to ops during flush.
type FlushTarget interface {
	Caps() *Caps
	ResourceProvider() ResourceProvider

	// MakeVertexSpace reserves count vertices of the given stride.
	MakeVertexSpace(stride uint32, count int) (VertexSpace, error)
}

// Mesh describes the primitives of a draw command.
type Mesh struct {
	Topology gputypes.PrimitiveTopology

	VertexBuffer Buffer
	FirstVertex  int
	VertexCount  int

	// IndexBuffer is the shared quad pattern buffer. Nil for triangle
	// strips.
	IndexBuffer Buffer
	// PatternCount is the number of quads drawn from the pattern.
	PatternCount int
	// MaxPatternsPerDraw is the number of quads the index buffer covers;
	// larger meshes are drawn in several calls.
	MaxPatternsPerDraw int
}

// IsIndexed reports whether the mesh uses the quad index pattern.
func (m *Mesh) IsIndexed() bool { return m.IndexBuffer != nil }

// DrawCommand is the output of expanding one op.
type DrawCommand struct {
	Variant *Variant
	Mesh    Mesh

	// HWAntialias requests multisampled rasterization.
	HWAntialias bool

	// Bounds is the device-space area the command touches.
	Bounds geom.Rect
}
