package quadbatch

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch/internal/tess"
)

// AttributeSet selects one of the eight vertex shapes.
type AttributeSet uint8

const (
	// AttrPerspective widens positions to (x, y, w).
	AttrPerspective AttributeSet = 1 << iota
	// AttrCoverageAA adds four edge equations per vertex.
	AttrCoverageAA
	// AttrMultitexture adds a per-vertex texture slot index.
	AttrMultitexture

	attrCount = 1 << iota
)

// Attributes returns the set for the given flags.
func Attributes(coverageAA, perspective, multitexture bool) AttributeSet {
	var a AttributeSet
	if perspective {
		a |= AttrPerspective
	}
	if coverageAA {
		a |= AttrCoverageAA
	}
	if multitexture {
		a |= AttrMultitexture
	}
	return a
}

// Has reports whether every flag in f is set.
func (a AttributeSet) Has(f AttributeSet) bool { return a&f == f }

func (a AttributeSet) String() string {
	parts := []string{"pos", "uv", "color"}
	if a.Has(AttrPerspective) {
		parts[0] = "pos3"
	}
	if a.Has(AttrMultitexture) {
		parts = append(parts, "texidx")
	}
	if a.Has(AttrCoverageAA) {
		parts = append(parts, "edges")
	}
	return strings.Join(parts, "+")
}

// VertexAttribute is one field of a vertex record.
type VertexAttribute struct {
	Name     string
	Format   gputypes.VertexFormat
	Offset   uint32
	Location uint32
}

// VertexLayout describes the byte layout of one vertex shape. Fields appear
// in a fixed order: position, texture coordinate, color, texture index,
// then the four edge equations.
type VertexLayout struct {
	Attributes AttributeSet
	Stride     uint32
	Attrs      []VertexAttribute

	texIdxOffset uint32
	edgesOffset  uint32
}

var vertexLayouts = func() (ls [attrCount]VertexLayout) {
	for a := range AttributeSet(attrCount) {
		ls[a] = buildLayout(a)
	}
	return ls
}()

func buildLayout(a AttributeSet) VertexLayout {
	l := VertexLayout{Attributes: a}
	add := func(name string, format gputypes.VertexFormat, size uint32) uint32 {
		off := l.Stride
		l.Attrs = append(l.Attrs, VertexAttribute{
			Name:     name,
			Format:   format,
			Offset:   off,
			Location: uint32(len(l.Attrs)),
		})
		l.Stride += size
		return off
	}

	if a.Has(AttrPerspective) {
		add("position", gputypes.VertexFormatFloat32x3, 12)
	} else {
		add("position", gputypes.VertexFormatFloat32x2, 8)
	}
	add("texCoords", gputypes.VertexFormatFloat32x2, 8)
	add("color", gputypes.VertexFormatUnorm8x4, 4)
	if a.Has(AttrMultitexture) {
		l.texIdxOffset = add("textureIdx", gputypes.VertexFormatSint32, 4)
	}
	if a.Has(AttrCoverageAA) {
		l.edgesOffset = add("aaEdge0", gputypes.VertexFormatFloat32x3, 12)
		add("aaEdge1", gputypes.VertexFormatFloat32x3, 12)
		add("aaEdge2", gputypes.VertexFormatFloat32x3, 12)
		add("aaEdge3", gputypes.VertexFormatFloat32x3, 12)
	}
	return l
}

// LayoutFor returns the shared layout for a. Callers must not modify it.
func LayoutFor(a AttributeSet) *VertexLayout {
	return &vertexLayouts[a&(attrCount-1)]
}

// BufferLayout returns the layout in the form a render pipeline expects.
func (l *VertexLayout) BufferLayout() gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, len(l.Attrs))
	for i, a := range l.Attrs {
		attrs[i] = gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.Location,
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(l.Stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

// writeQuad encodes four tessellated vertices into dst, which must hold at
// least 4*Stride bytes.
func (l *VertexLayout) writeQuad(dst []byte, v *[4]tess.Vertex, color Color, texIdx int) {
	le := binary.LittleEndian
	persp := l.Attributes.Has(AttrPerspective)
	for i := range v {
		b := dst[uint32(i)*l.Stride : uint32(i+1)*l.Stride]
		off := putF32(b, 0, v[i].Position.X, v[i].Position.Y)
		if persp {
			off = putF32(b, off, v[i].Position.W)
		}
		off = putF32(b, off, v[i].TexCoord.X, v[i].TexCoord.Y)
		le.PutUint32(b[off:], uint32(color))
		if l.Attributes.Has(AttrMultitexture) {
			le.PutUint32(b[l.texIdxOffset:], uint32(int32(texIdx)))
		}
		if l.Attributes.Has(AttrCoverageAA) {
			off = l.edgesOffset
			for _, e := range v[i].Edges {
				off = putF32(b, off, e[0], e[1], e[2])
			}
		}
	}
}

func putF32(b []byte, off uint32, vs ...float32) uint32 {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
		off += 4
	}
	return off
}

// SamplerCount returns the sampler array size declared for a batch with
// the given number of distinct textures. Counts are rounded up to 1, 4 or
// the next power of two so few shader programs are needed, and capped at
// the platform limit. The result is never below textures.
func SamplerCount(textures int, caps *Caps) int {
	var n int
	switch {
	case textures <= 1:
		return 1
	case textures <= 4:
		n = 4
	default:
		n = 1
		for n < textures {
			n <<= 1
		}
	}
	return max(min(n, caps.MaxSamplers()), textures)
}
