package quadbatch

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch/geom"
	"github.com/gogpu/quadbatch/internal/tess"
)

// AAType selects how quad edges are anti-aliased.
type AAType uint8

const (
	// AANone draws hard edges.
	AANone AAType = iota
	// AACoverage computes fractional edge coverage in the shader.
	AACoverage
	// AAMSAA relies on multisampled rasterization.
	AAMSAA
)

func (a AAType) String() string {
	switch a {
	case AANone:
		return "none"
	case AACoverage:
		return "coverage"
	case AAMSAA:
		return "msaa"
	default:
		return "unknown"
	}
}

// DrawOp is an op that can be recorded in an op list.
type DrawOp interface {
	Name() string
	Bounds() geom.Rect

	// TryMerge folds other into the receiver and reports whether it did.
	// On false neither op changes.
	TryMerge(other DrawOp, caps *Caps) bool

	// Finalize converts owned resources into pending reads. Called once.
	Finalize()

	// Expand produces the op's draw command, or nil when the op draws
	// nothing.
	Expand(target FlushTarget) *DrawCommand

	// Release drops every resource the op holds.
	Release()
}

// TextureDraw describes one textured rectangle.
type TextureDraw struct {
	Proxy  *TextureProxy
	Filter Filter

	// Color modulates the texture. Premultiplied.
	Color Color

	// SrcRect is the sampled region in texels.
	SrcRect geom.Rect

	// DstRect is the destination in local coordinates, mapped to device
	// space by ViewMatrix.
	DstRect geom.Rect

	// ViewMatrix maps DstRect to device space. The zero matrix is treated
	// as the identity.
	ViewMatrix geom.Matrix

	AA    AAType
	Xform *ColorSpaceXform
}

type opState uint8

const (
	stateOpen opState = iota
	stateFinalized
	stateExpanded
	stateReleased
)

func (s opState) String() string {
	return [...]string{"open", "finalized", "expanded", "released"}[s]
}

type quadDraw struct {
	src    geom.Rect
	quad   geom.PerspQuad
	color  Color
	texIdx int
}

// Op batches textured quads into one draw call.
//
// Draws keep their insertion order through merges, so later quads blend
// over earlier ones exactly as if they had been drawn separately.
type Op struct {
	draws       []quadDraw
	handles     ResourceHandleSet
	aa          AAType
	perspective bool
	xform       *ColorSpaceXform
	bounds      geom.Rect
	maxArea     int
	state       opState
}

// NewOp creates an op holding a single draw. The op takes its own
// reference on d.Proxy.
func NewOp(d TextureDraw) *Op {
	m := d.ViewMatrix
	if m == (geom.Matrix{}) {
		m = geom.Identity()
	}
	q := geom.NewPerspQuad(d.DstRect, m)
	bounds := q.Bounds()
	return &Op{
		draws:       []quadDraw{{src: d.SrcRect, quad: q, color: d.Color}},
		handles:     newHandleSet(d.Proxy, d.Filter),
		aa:          d.AA,
		perspective: m.HasPerspective(),
		xform:       d.Xform,
		bounds:      bounds,
		maxArea:     approxPixelArea(bounds),
	}
}

// approxPixelArea returns max(w,1)*max(h,1), saturating for huge,
// infinite or NaN rects.
func approxPixelArea(r geom.Rect) int {
	a := math.Max(float64(r.Width()), 1) * math.Max(float64(r.Height()), 1)
	if math.IsNaN(a) || a >= math.MaxInt {
		return math.MaxInt
	}
	return int(a)
}

// Name implements DrawOp.
func (o *Op) Name() string { return "TextureOp" }

// Bounds returns the device-space bounds of every draw.
func (o *Op) Bounds() geom.Rect { return o.bounds }

// NumDraws returns the number of quads.
func (o *Op) NumDraws() int { return len(o.draws) }

// NumTextures returns the number of distinct textures.
func (o *Op) NumTextures() int { return o.handles.Len() }

// AA returns the anti-aliasing mode.
func (o *Op) AA() AAType { return o.aa }

// HasPerspective reports whether any draw used a perspective matrix.
func (o *Op) HasPerspective() bool { return o.perspective }

// ApproxPixelArea returns the largest destination area merged so far.
func (o *Op) ApproxPixelArea() int { return o.maxArea }

// Handles returns the op's texture set.
func (o *Op) Handles() *ResourceHandleSet { return &o.handles }

// TextureIndex returns the texture slot of draw i.
func (o *Op) TextureIndex(i int) int { return o.draws[i].texIdx }

// IsFinalized reports whether Finalize has run.
func (o *Op) IsFinalized() bool { return o.state >= stateFinalized }

// TryMerge implements DrawOp. other must be an *Op to merge.
func (o *Op) TryMerge(other DrawOp, caps *Caps) bool {
	that, ok := other.(*Op)
	if !ok || that == o {
		return false
	}
	if o.state > stateFinalized || that.state > stateFinalized {
		panic(fmt.Sprintf("quadbatch: merge with %v op", max(o.state, that.state)))
	}
	if !XformEquals(o.xform, that.xform) || o.aa != that.aa {
		return false
	}

	log := Logger()
	if caps.SupportsMultitexture() && o.xform == nil &&
		o.maxArea <= caps.MultitextureAreaThreshold &&
		that.maxArea <= caps.MultitextureAreaThreshold {
		plan, ok := o.handles.planMerge(&that.handles, caps.MaxSamplers())
		if !ok {
			log.Debug("quadbatch: texture merge rejected",
				"textures", o.handles.Len(), "incoming", that.handles.Len())
			return false
		}
		o.handles.apply(&that.handles, plan, o.IsFinalized(), caps.MaxTextures)
		first := len(o.draws)
		o.draws = append(o.draws, that.draws...)
		for i := first; i < len(o.draws); i++ {
			o.draws[i].texIdx = plan.remap[o.draws[i].texIdx]
		}
	} else {
		// One side may already be multitextured while the other is too
		// large to join it.
		if o.handles.Len() > 1 || that.handles.Len() > 1 {
			return false
		}
		p0, f0 := o.handles.At(0)
		p1, f1 := that.handles.At(0)
		if p0.ID() != p1.ID() || f0 != f1 {
			return false
		}
		o.draws = append(o.draws, that.draws...)
	}

	o.bounds = o.bounds.Union(that.bounds)
	o.maxArea = max(o.maxArea, that.maxArea)
	o.perspective = o.perspective || that.perspective
	log.Debug("quadbatch: merged texture ops",
		"draws", len(o.draws), "textures", o.handles.Len())
	return true
}

// Finalize implements DrawOp.
func (o *Op) Finalize() {
	if o.state != stateOpen {
		panic(fmt.Sprintf("quadbatch: finalize %v op", o.state))
	}
	o.handles.Finalize()
	o.state = stateFinalized
}

// Expand implements DrawOp. Failures to instantiate textures or to obtain
// vertex or index memory skip the op and are logged.
func (o *Op) Expand(target FlushTarget) *DrawCommand {
	if o.state == stateReleased || o.state == stateExpanded {
		panic(fmt.Sprintf("quadbatch: expand %v op", o.state))
	}
	o.state = stateExpanded

	log := Logger()
	caps := target.Caps()
	rp := target.ResourceProvider()
	if err := o.handles.InstantiateAll(rp); err != nil {
		log.Warn("quadbatch: skipping texture op", "draws", len(o.draws), "err", err)
		return nil
	}

	multi := o.handles.Len() > 1
	attrs := Attributes(o.aa == AACoverage, o.perspective, multi)
	variant := BuildVariant(&o.handles, attrs, o.xform, caps)
	layout := variant.Layout

	vertexCount := 4 * len(o.draws)
	vs, err := target.MakeVertexSpace(layout.Stride, vertexCount)
	if err == nil && len(vs.Data) < int(layout.Stride)*vertexCount {
		err = fmt.Errorf("%w: got %d bytes, need %d", ErrVertexSpace, len(vs.Data), int(layout.Stride)*vertexCount)
	}
	if err != nil {
		log.Warn("quadbatch: could not allocate vertices", "count", vertexCount, "err", err)
		return nil
	}

	o.tessellate(vs.Data, layout)

	mesh := Mesh{
		Topology:     gputypes.PrimitiveTopologyTriangleStrip,
		VertexBuffer: vs.Buffer,
		FirstVertex:  vs.FirstVertex,
		VertexCount:  vertexCount,
	}
	if len(o.draws) > 1 {
		ib, err := rp.RefIndexBuffer(QuadIndexPattern(), QuadVerticesPerPattern, caps.MaxQuadsPerIndexBuffer)
		if err != nil {
			log.Warn("quadbatch: could not get quad index buffer", "err", fmt.Errorf("%w: %w", ErrIndexBuffer, err))
			return nil
		}
		mesh.Topology = gputypes.PrimitiveTopologyTriangleList
		mesh.IndexBuffer = ib
		mesh.PatternCount = len(o.draws)
		mesh.MaxPatternsPerDraw = caps.MaxQuadsPerIndexBuffer
	}

	return &DrawCommand{
		Variant:     variant,
		Mesh:        mesh,
		HWAntialias: o.aa == AAMSAA,
		Bounds:      o.bounds,
	}
}

// tessellate writes four vertices per draw into dst in draw order.
func (o *Op) tessellate(dst []byte, layout *VertexLayout) {
	n := o.handles.Len()
	iw := make([]float32, n)
	ih := make([]float32, n)
	for i := range n {
		p, _ := o.handles.At(i)
		tex := p.Peek()
		iw[i] = 1 / float32(tex.Width())
		ih[i] = 1 / float32(tex.Height())
	}

	aa := o.aa == AACoverage
	quadBytes := 4 * layout.Stride
	for i, d := range o.draws {
		p, _ := o.handles.At(d.texIdx)
		src := geom.LTRB(
			d.src.Left*iw[d.texIdx], d.src.Top*ih[d.texIdx],
			d.src.Right*iw[d.texIdx], d.src.Bottom*ih[d.texIdx],
		)
		if p.Origin() == OriginBottomLeft {
			src.Top = 1 - src.Top
			src.Bottom = 1 - src.Bottom
		}
		v := tess.Quad(d.quad, src, aa, o.perspective)
		layout.writeQuad(dst[uint32(i)*quadBytes:], &v, d.color, d.texIdx)
	}
}

// Release implements DrawOp. A finalized op completes its pending reads;
// an op that was never finalized drops its references.
func (o *Op) Release() {
	if o.state == stateReleased {
		panic("quadbatch: op released twice")
	}
	o.handles.Release()
	o.state = stateReleased
}

// VisitProxies calls fn for each texture of the op with its filter.
func (o *Op) VisitProxies(fn func(*TextureProxy, Filter)) {
	o.handles.Visit(fn)
}

// Dump returns a human-readable description of the op for debugging.
func (o *Op) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "AA: %v, Perspective: %t, State: %v\n", o.aa, o.perspective, o.state)
	fmt.Fprintf(&b, "# draws: %d\n", len(o.draws))
	for i, e := range o.handles.entries() {
		fmt.Fprintf(&b, "Proxy ID %d: %d, Filter: %v\n", i, e.proxy.ID(), e.filter)
	}
	for i, d := range o.draws {
		fmt.Fprintf(&b, "%d: Color: %v, ProxyIdx: %d, TexRect [L: %.2f, T: %.2f, R: %.2f, B: %.2f] Quad [",
			i, d.color, d.texIdx, d.src.Left, d.src.Top, d.src.Right, d.src.Bottom)
		for j := range 4 {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "(%.2f, %.2f)", d.quad.X[j], d.quad.Y[j])
		}
		b.WriteString("]\n")
	}
	fmt.Fprintf(&b, "Bounds: [L: %.2f, T: %.2f, R: %.2f, B: %.2f]\n",
		o.bounds.Left, o.bounds.Top, o.bounds.Right, o.bounds.Bottom)
	return b.String()
}
