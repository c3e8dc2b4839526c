package quadbatch

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch/geom"
	"golang.org/x/image/math/f32"
)

func singleTextureCaps() Caps {
	return NewCaps(WithIntegerSupport(false))
}

func TestTryMergeSameTexture(t *testing.T) {
	tests := []struct {
		name string
		caps Caps
	}{
		{"single texture path", singleTextureCaps()},
		{"multitexture path", DefaultCaps()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t1 := newTestProxy(t, 10, 10)
			a := NewOp(TextureDraw{
				Proxy: t1, Filter: FilterNearest, Color: White,
				SrcRect: geom.LTRB(0, 0, 10, 10), DstRect: geom.LTRB(0, 0, 20, 20),
			})
			b := NewOp(TextureDraw{
				Proxy: t1, Filter: FilterNearest, Color: White,
				SrcRect: geom.LTRB(0, 0, 5, 5), DstRect: geom.LTRB(20, 0, 40, 20),
			})
			if !a.TryMerge(b, &tt.caps) {
				t.Fatal("TryMerge rejected ops sharing texture and filter")
			}
			if a.NumDraws() != 2 {
				t.Errorf("NumDraws = %d, want 2", a.NumDraws())
			}
			if a.NumTextures() != 1 {
				t.Errorf("NumTextures = %d, want 1", a.NumTextures())
			}
			if got, want := a.Bounds(), geom.LTRB(0, 0, 40, 20); got != want {
				t.Errorf("Bounds = %v, want %v", got, want)
			}
			if !a.Handles().IsInline() {
				t.Error("single texture set should stay inline")
			}
		})
	}
}

func TestTryMergeMultitexture(t *testing.T) {
	caps := DefaultCaps()
	t1 := newTestProxy(t, 10, 10)
	t2 := newTestProxy(t, 10, 10)
	a := NewOp(textureDraw(t1, FilterNearest, geom.LTRB(0, 0, 20, 20)))
	b := NewOp(textureDraw(t2, FilterNearest, geom.LTRB(20, 0, 40, 20)))

	if !a.TryMerge(b, &caps) {
		t.Fatal("TryMerge rejected small ops with distinct textures")
	}
	if a.NumTextures() != 2 {
		t.Fatalf("NumTextures = %d, want 2", a.NumTextures())
	}
	if a.TextureIndex(0) != 0 || a.TextureIndex(1) != 1 {
		t.Errorf("texture indices = %d, %d, want 0, 1", a.TextureIndex(0), a.TextureIndex(1))
	}
	if a.Handles().IsInline() {
		t.Error("two textures should use heap storage")
	}
	if c := cap(a.Handles().heap); c != caps.MaxTextures {
		t.Errorf("heap capacity = %d, want %d", c, caps.MaxTextures)
	}
	// Caller, b and a each hold a reference to t2.
	if t2.RefCount() != 3 {
		t.Errorf("t2 RefCount = %d, want 3", t2.RefCount())
	}
	b.Release()
	a.Release()
	if t1.RefCount() != 1 || t2.RefCount() != 1 {
		t.Errorf("after release RefCount = %d, %d, want 1, 1", t1.RefCount(), t2.RefCount())
	}
}

func TestTryMergeRemapsSharedTextures(t *testing.T) {
	caps := DefaultCaps()
	t1 := newTestProxy(t, 8, 8)
	t2 := newTestProxy(t, 8, 8)
	t3 := newTestProxy(t, 8, 8)

	a := NewOp(textureDraw(t1, FilterBilinear, geom.LTRB(0, 0, 8, 8)))
	ab := NewOp(textureDraw(t2, FilterBilinear, geom.LTRB(8, 0, 16, 8)))
	if !a.TryMerge(ab, &caps) {
		t.Fatal("merge t2 into t1 failed")
	}

	// b holds t3 then t2; t2 must map onto a's existing slot 1.
	b := NewOp(textureDraw(t3, FilterBilinear, geom.LTRB(0, 8, 8, 16)))
	bb := NewOp(textureDraw(t2, FilterBilinear, geom.LTRB(8, 8, 16, 16)))
	if !b.TryMerge(bb, &caps) {
		t.Fatal("merge t2 into t3 failed")
	}
	if !a.TryMerge(b, &caps) {
		t.Fatal("merge b into a failed")
	}

	if a.NumTextures() != 3 {
		t.Fatalf("NumTextures = %d, want 3", a.NumTextures())
	}
	want := []int{0, 1, 2, 1}
	for i, w := range want {
		if got := a.TextureIndex(i); got != w {
			t.Errorf("TextureIndex(%d) = %d, want %d", i, got, w)
		}
	}
	for i, w := range []*TextureProxy{t1, t2, t3} {
		if p, _ := a.Handles().At(i); p != w {
			t.Errorf("slot %d = %v, want %v", i, p, w)
		}
	}
}

func TestTryMergeFilterConflict(t *testing.T) {
	for _, caps := range []Caps{DefaultCaps(), singleTextureCaps()} {
		t1 := newTestProxy(t, 10, 10)
		a := NewOp(textureDraw(t1, FilterNearest, geom.LTRB(0, 0, 20, 20)))
		b := NewOp(textureDraw(t1, FilterMipmap, geom.LTRB(20, 0, 40, 20)))
		if a.TryMerge(b, &caps) {
			t.Errorf("multitexture=%t: merged one texture sampled with two filters", caps.SupportsMultitexture())
		}
	}
}

func TestTryMergeTextureLimit(t *testing.T) {
	caps := NewCaps(WithMaxTextures(4))
	proxies := make([]*TextureProxy, 5)
	for i := range proxies {
		proxies[i] = newTestProxy(t, 4, 4)
	}
	a := NewOp(textureDraw(proxies[0], FilterNearest, geom.XYWH(0, 0, 4, 4)))
	for i := 1; i < 4; i++ {
		if !a.TryMerge(NewOp(textureDraw(proxies[i], FilterNearest, geom.XYWH(float32(4*i), 0, 4, 4))), &caps) {
			t.Fatalf("merge of texture %d failed", i)
		}
	}
	if a.NumTextures() != 4 {
		t.Fatalf("NumTextures = %d, want 4", a.NumTextures())
	}
	if a.TryMerge(NewOp(textureDraw(proxies[4], FilterNearest, geom.XYWH(16, 0, 4, 4))), &caps) {
		t.Error("merged a fifth texture with MaxTextures = 4")
	}
	// A texture already present is still accepted.
	if !a.TryMerge(NewOp(textureDraw(proxies[2], FilterNearest, geom.XYWH(16, 0, 4, 4))), &caps) {
		t.Error("rejected a texture already in the batch")
	}
}

func TestTryMergeSamplerLimit(t *testing.T) {
	caps := NewCaps(WithMaxTextures(8), WithMaxFragmentSamplers(2))
	a := NewOp(textureDraw(newTestProxy(t, 4, 4), FilterNearest, geom.XYWH(0, 0, 4, 4)))
	if !a.TryMerge(NewOp(textureDraw(newTestProxy(t, 4, 4), FilterNearest, geom.XYWH(4, 0, 4, 4))), &caps) {
		t.Fatal("second texture rejected")
	}
	if a.TryMerge(NewOp(textureDraw(newTestProxy(t, 4, 4), FilterNearest, geom.XYWH(8, 0, 4, 4))), &caps) {
		t.Error("merged past the fragment sampler limit")
	}
}

func TestTryMergeRejections(t *testing.T) {
	caps := DefaultCaps()
	gamut := f32.Mat4{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

	tests := []struct {
		name   string
		a, b   func(t1, t2 *TextureProxy) TextureDraw
		merged bool
	}{
		{
			name: "xform mismatch",
			a: func(t1, _ *TextureProxy) TextureDraw {
				d := textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4))
				d.Xform = NewColorSpaceXform(1, gamut)
				return d
			},
			b: func(t1, _ *TextureProxy) TextureDraw {
				return textureDraw(t1, FilterNearest, geom.XYWH(4, 0, 4, 4))
			},
		},
		{
			name: "equal xforms",
			a: func(t1, _ *TextureProxy) TextureDraw {
				d := textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4))
				d.Xform = NewColorSpaceXform(1, gamut)
				return d
			},
			b: func(t1, _ *TextureProxy) TextureDraw {
				d := textureDraw(t1, FilterNearest, geom.XYWH(4, 0, 4, 4))
				d.Xform = NewColorSpaceXform(1, gamut)
				return d
			},
			merged: true,
		},
		{
			name: "xform blocks multitexture",
			a: func(t1, _ *TextureProxy) TextureDraw {
				d := textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4))
				d.Xform = NewColorSpaceXform(1, gamut)
				return d
			},
			b: func(_, t2 *TextureProxy) TextureDraw {
				d := textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4))
				d.Xform = NewColorSpaceXform(1, gamut)
				return d
			},
		},
		{
			name: "aa mismatch",
			a: func(t1, _ *TextureProxy) TextureDraw {
				d := textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4))
				d.AA = AACoverage
				return d
			},
			b: func(t1, _ *TextureProxy) TextureDraw {
				return textureDraw(t1, FilterNearest, geom.XYWH(4, 0, 4, 4))
			},
		},
		{
			name: "large destination with another texture",
			a: func(t1, _ *TextureProxy) TextureDraw {
				return textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 1000, 1000))
			},
			b: func(_, t2 *TextureProxy) TextureDraw {
				return textureDraw(t2, FilterNearest, geom.XYWH(0, 0, 4, 4))
			},
		},
		{
			name: "large destination with the same texture",
			a: func(t1, _ *TextureProxy) TextureDraw {
				return textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 1000, 1000))
			},
			b: func(t1, _ *TextureProxy) TextureDraw {
				return textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4))
			},
			merged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t1 := newTestProxy(t, 4, 4)
			t2 := newTestProxy(t, 4, 4)
			a, b := NewOp(tt.a(t1, t2)), NewOp(tt.b(t1, t2))
			if got := a.TryMerge(b, &caps); got != tt.merged {
				t.Errorf("TryMerge = %t, want %t", got, tt.merged)
			}
		})
	}
}

func TestTryMergeFormatMismatch(t *testing.T) {
	caps := DefaultCaps()
	t1 := newTestProxy(t, 4, 4)
	t2 := NewTextureProxy(ProxyDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatBGRA8Unorm})
	a := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	b := NewOp(textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4)))
	if a.TryMerge(b, &caps) {
		t.Error("merged textures with different formats")
	}
}

func TestTryMergeNon2DTexture(t *testing.T) {
	caps := DefaultCaps()
	t1 := newTestProxy(t, 4, 4)
	vol := &fakeTexture{w: 4, h: 4, dim: gputypes.TextureViewDimension3D}
	t2 := NewWrappedTextureProxy(vol, gputypes.TextureFormatRGBA8Unorm, OriginTopLeft)
	a := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	b := NewOp(textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4)))
	if a.TryMerge(b, &caps) {
		t.Error("merged a texture that cannot be sampled as 2D")
	}
}

func TestTryMergeRejectionLeavesOpsUnchanged(t *testing.T) {
	caps := NewCaps(WithMaxTextures(2))
	t1, t2, t3 := newTestProxy(t, 4, 4), newTestProxy(t, 4, 4), newTestProxy(t, 4, 4)
	a := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	if !a.TryMerge(NewOp(textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4))), &caps) {
		t.Fatal("setup merge failed")
	}
	b := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 4, 4, 4)))
	if !b.TryMerge(NewOp(textureDraw(t3, FilterNearest, geom.XYWH(4, 4, 4, 4))), &caps) {
		t.Fatal("setup merge failed")
	}

	beforeA, beforeB := a.Dump(), b.Dump()
	refs := []int{t1.RefCount(), t2.RefCount(), t3.RefCount()}
	// t1 is shared but t3 would be a third texture.
	if a.TryMerge(b, &caps) {
		t.Fatal("merge over the texture limit succeeded")
	}
	if a.Dump() != beforeA || b.Dump() != beforeB {
		t.Errorf("rejected merge changed an op:\n%s\n%s", a.Dump(), b.Dump())
	}
	for i, p := range []*TextureProxy{t1, t2, t3} {
		if p.RefCount() != refs[i] {
			t.Errorf("proxy %d RefCount = %d, want %d", i, p.RefCount(), refs[i])
		}
	}
}

func TestTryMergeKeepsDrawOrder(t *testing.T) {
	caps := DefaultCaps()
	tA, tB, tC := newTestProxy(t, 4, 4), newTestProxy(t, 4, 4), newTestProxy(t, 4, 4)
	mk := func(p *TextureProxy, c Color) *Op {
		d := textureDraw(p, FilterNearest, geom.XYWH(0, 0, 4, 4))
		d.Color = c
		return NewOp(d)
	}

	// (A <- B) <- C
	left := mk(tA, 1)
	left.TryMerge(mk(tB, 2), &caps)
	left.TryMerge(mk(tC, 3), &caps)

	// A <- (B <- C)
	right := mk(tA, 1)
	bc := mk(tB, 2)
	bc.TryMerge(mk(tC, 3), &caps)
	right.TryMerge(bc, &caps)

	if left.NumDraws() != 3 || right.NumDraws() != 3 {
		t.Fatalf("NumDraws = %d, %d, want 3", left.NumDraws(), right.NumDraws())
	}
	for i := range 3 {
		if left.draws[i].color != Color(i+1) || right.draws[i].color != Color(i+1) {
			t.Errorf("draw %d colors = %v, %v, want %v", i, left.draws[i].color, right.draws[i].color, Color(i+1))
		}
		pl, _ := left.Handles().At(left.TextureIndex(i))
		pr, _ := right.Handles().At(right.TextureIndex(i))
		if pl != pr {
			t.Errorf("draw %d textures differ: %v vs %v", i, pl, pr)
		}
	}
}

func TestTryMergeTracksPerspectiveAndArea(t *testing.T) {
	caps := DefaultCaps()
	t1 := newTestProxy(t, 4, 4)
	a := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 10, 10)))
	d := textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 20, 10))
	d.ViewMatrix = geom.MakeAll(1, 0, 0, 0, 1, 0, 0, 0.001, 1)
	b := NewOp(d)
	if !b.HasPerspective() {
		t.Fatal("perspective matrix not detected")
	}
	if !a.TryMerge(b, &caps) {
		t.Fatal("TryMerge failed")
	}
	if !a.HasPerspective() {
		t.Error("merged op lost the perspective flag")
	}
	if a.ApproxPixelArea() != b.ApproxPixelArea() {
		t.Errorf("ApproxPixelArea = %d, want %d", a.ApproxPixelArea(), b.ApproxPixelArea())
	}
}

func TestApproxPixelArea(t *testing.T) {
	tests := []struct {
		r    geom.Rect
		want int
	}{
		{geom.LTRB(0, 0, 10, 20), 200},
		{geom.LTRB(0, 0, 0.5, 0.5), 1},
		{geom.LTRB(0, 0, 0, 30), 30},
		{geom.LTRB(0, 0, 1e30, 1e30), int(^uint(0) >> 1)},
	}
	for _, tt := range tests {
		if got := approxPixelArea(tt.r); got != tt.want {
			t.Errorf("approxPixelArea(%v) = %d, want %d", tt.r, got, tt.want)
		}
	}
}

func TestOpLifecycleFinalize(t *testing.T) {
	caps := DefaultCaps()
	t1, t2 := newTestProxy(t, 4, 4), newTestProxy(t, 4, 4)
	a := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	if t1.RefCount() != 2 {
		t.Fatalf("RefCount after NewOp = %d, want 2", t1.RefCount())
	}
	a.Finalize()
	if t1.RefCount() != 1 || t1.PendingReads() != 1 {
		t.Errorf("after Finalize refs=%d reads=%d, want 1, 1", t1.RefCount(), t1.PendingReads())
	}

	// A finalized receiver adopts new textures as pending reads.
	b := NewOp(textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4)))
	if !a.TryMerge(b, &caps) {
		t.Fatal("TryMerge into finalized op failed")
	}
	if t2.PendingReads() != 1 || t2.RefCount() != 2 {
		t.Errorf("t2 refs=%d reads=%d, want 2, 1", t2.RefCount(), t2.PendingReads())
	}
	b.Release()
	a.Release()
	for i, p := range []*TextureProxy{t1, t2} {
		if p.RefCount() != 1 || p.PendingReads() != 0 {
			t.Errorf("proxy %d refs=%d reads=%d, want 1, 0", i, p.RefCount(), p.PendingReads())
		}
	}
}

func TestOpLifecycleMisusePanics(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s did not panic", name)
			}
		}()
		fn()
	}
	t1 := newTestProxy(t, 4, 4)

	a := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	a.Finalize()
	mustPanic("double finalize", a.Finalize)
	a.Release()
	mustPanic("double release", a.Release)

	caps := DefaultCaps()
	b := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	c := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	b.Expand(newFakeTarget(caps))
	mustPanic("merge into expanded op", func() { b.TryMerge(c, &caps) })
}

func TestExpandSingleDraw(t *testing.T) {
	target := newFakeTarget(DefaultCaps())
	p := newTestProxy(t, 100, 50)
	d := textureDraw(p, FilterBilinear, geom.LTRB(10, 20, 30, 40))
	d.SrcRect = geom.LTRB(0, 0, 50, 25)
	d.Color = PackRGBA(1, 2, 3, 4)
	op := NewOp(d)

	cmd := op.Expand(target)
	if cmd == nil {
		t.Fatal("Expand returned nil")
	}
	if cmd.Mesh.Topology != gputypes.PrimitiveTopologyTriangleStrip || cmd.Mesh.IsIndexed() {
		t.Errorf("single draw mesh = %+v, want a triangle strip", cmd.Mesh)
	}
	if cmd.Mesh.VertexCount != 4 {
		t.Errorf("VertexCount = %d, want 4", cmd.Mesh.VertexCount)
	}
	if target.rp.indexCalls != 0 {
		t.Error("single draw requested an index buffer")
	}
	if target.stride != 20 || cmd.Variant.Layout.Stride != 20 {
		t.Fatalf("stride = %d, want 20", target.stride)
	}
	if cmd.Variant.Key.SamplerCount != 1 {
		t.Errorf("SamplerCount = %d, want 1", cmd.Variant.Key.SamplerCount)
	}

	wantPos := geom.LTRB(10, 20, 30, 40).TriStrip()
	wantTex := geom.LTRB(0, 0, 0.5, 0.5).TriStrip()
	for i := range 4 {
		if x, y := target.vertexF32(i, 0), target.vertexF32(i, 4); x != wantPos[i].X || y != wantPos[i].Y {
			t.Errorf("vertex %d position = (%v, %v), want %v", i, x, y, wantPos[i])
		}
		if u, v := target.vertexF32(i, 8), target.vertexF32(i, 12); !near(u, wantTex[i].X) || !near(v, wantTex[i].Y) {
			t.Errorf("vertex %d texcoord = (%v, %v), want %v", i, u, v, wantTex[i])
		}
		if c := target.vertexU32(i, 16); Color(c) != d.Color {
			t.Errorf("vertex %d color = %#x, want %v", i, c, d.Color)
		}
	}
}

func TestExpandBottomLeftOrigin(t *testing.T) {
	target := newFakeTarget(DefaultCaps())
	p := NewTextureProxy(ProxyDesc{Width: 10, Height: 20, Origin: OriginBottomLeft})
	d := textureDraw(p, FilterNearest, geom.LTRB(0, 0, 10, 10))
	d.SrcRect = geom.LTRB(0, 0, 10, 10)
	if NewOp(d).Expand(target) == nil {
		t.Fatal("Expand returned nil")
	}
	// Top row maps to v = 1, bottom to 1 - 10/20.
	if v := target.vertexF32(0, 12); !near(v, 1) {
		t.Errorf("top v = %v, want 1", v)
	}
	if v := target.vertexF32(1, 12); !near(v, 0.5) {
		t.Errorf("bottom v = %v, want 0.5", v)
	}
}

func TestExpandUsesBackingTextureSize(t *testing.T) {
	target := newFakeTarget(DefaultCaps())
	p := NewTextureProxy(ProxyDesc{Width: 100, Height: 100, Fit: FitApprox})
	if NewOp(textureDraw(p, FilterNearest, geom.XYWH(0, 0, 10, 10))).Expand(target) == nil {
		t.Fatal("Expand returned nil")
	}
	// Backed by 128x128.
	if u := target.vertexF32(3, 8); !near(u, 100.0/128) {
		t.Errorf("right u = %v, want %v", u, 100.0/128)
	}
}

func TestExpandMultipleDraws(t *testing.T) {
	caps := DefaultCaps()
	target := newFakeTarget(caps)
	t1, t2 := newTestProxy(t, 8, 8), newTestProxy(t, 16, 16)
	op := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 8, 8)))
	op.TryMerge(NewOp(textureDraw(t2, FilterBilinear, geom.XYWH(8, 0, 8, 8))), &caps)
	op.TryMerge(NewOp(textureDraw(t1, FilterNearest, geom.XYWH(16, 0, 8, 8))), &caps)

	cmd := op.Expand(target)
	if cmd == nil {
		t.Fatal("Expand returned nil")
	}
	m := cmd.Mesh
	if m.Topology != gputypes.PrimitiveTopologyTriangleList || !m.IsIndexed() {
		t.Errorf("mesh = %+v, want indexed triangles", m)
	}
	if m.PatternCount != 3 || m.VertexCount != 12 || m.MaxPatternsPerDraw != caps.MaxQuadsPerIndexBuffer {
		t.Errorf("mesh counts = %+v", m)
	}
	if got := target.rp.pattern; len(got) != 6 || got[3] != 2 || got[5] != 3 {
		t.Errorf("index pattern = %v", got)
	}

	v := cmd.Variant
	if v.Key.Attributes != AttrMultitexture {
		t.Errorf("attributes = %v, want multitexture", v.Key.Attributes)
	}
	if v.Key.SamplerCount != 4 || len(v.Samplers) != 4 || v.RealTextures != 2 {
		t.Fatalf("samplers = %d/%d real %d, want 4/4 real 2", v.Key.SamplerCount, len(v.Samplers), v.RealTextures)
	}
	for i := 2; i < 4; i++ {
		if v.Samplers[i].Proxy != t2 || v.Samplers[i].Filter != FilterBilinear {
			t.Errorf("padding slot %d = %+v, want t2/bilinear", i, v.Samplers[i])
		}
	}
	// Texture index is written after the color of every vertex.
	for q, want := range []uint32{0, 1, 0} {
		for c := range 4 {
			if got := target.vertexU32(4*q+c, 20); got != want {
				t.Errorf("quad %d vertex %d texture index = %d, want %d", q, c, got, want)
			}
		}
	}
	// Each quad is normalized by its own texture's size.
	if u := target.vertexF32(4+3, 8); !near(u, 1) {
		t.Errorf("second quad right u = %v, want 1", u)
	}
}

func TestExpandCoverageAA(t *testing.T) {
	target := newFakeTarget(DefaultCaps())
	d := textureDraw(newTestProxy(t, 10, 10), FilterNearest, geom.LTRB(0, 0, 10, 10))
	d.AA = AACoverage
	cmd := NewOp(d).Expand(target)
	if cmd == nil {
		t.Fatal("Expand returned nil")
	}
	if cmd.HWAntialias {
		t.Error("coverage AA requested hardware AA")
	}
	if target.stride != 68 {
		t.Fatalf("stride = %d, want 68", target.stride)
	}
	// Vertex 0 is pushed half a pixel up and left.
	if x, y := target.vertexF32(0, 0), target.vertexF32(0, 4); !near(x, -0.5) || !near(y, -0.5) {
		t.Errorf("outset vertex 0 = (%v, %v), want (-0.5, -0.5)", x, y)
	}
	// Every edge evaluates to 0 or more at the quad center.
	for e := range 4 {
		off := uint32(20 + 12*e)
		a, b, c := target.vertexF32(0, off), target.vertexF32(0, off+4), target.vertexF32(0, off+8)
		if d := a*5 + b*5 + c; d < 5 {
			t.Errorf("edge %d at center = %v, want >= 5", e, d)
		}
	}
}

func TestExpandMSAA(t *testing.T) {
	target := newFakeTarget(DefaultCaps())
	d := textureDraw(newTestProxy(t, 10, 10), FilterNearest, geom.LTRB(0, 0, 10, 10))
	d.AA = AAMSAA
	cmd := NewOp(d).Expand(target)
	if cmd == nil || !cmd.HWAntialias {
		t.Fatalf("MSAA command = %+v, want HWAntialias", cmd)
	}
	if target.stride != 20 {
		t.Errorf("stride = %d, want 20", target.stride)
	}
}

func TestExpandPerspective(t *testing.T) {
	target := newFakeTarget(DefaultCaps())
	d := textureDraw(newTestProxy(t, 10, 10), FilterNearest, geom.LTRB(0, 0, 10, 10))
	d.ViewMatrix = geom.MakeAll(1, 0, 0, 0, 1, 0, 0, 0.1, 1)
	cmd := NewOp(d).Expand(target)
	if cmd == nil {
		t.Fatal("Expand returned nil")
	}
	if !cmd.Variant.Key.Attributes.Has(AttrPerspective) || target.stride != 24 {
		t.Fatalf("attributes = %v stride = %d", cmd.Variant.Key.Attributes, target.stride)
	}
	// Bottom-left corner (0, 10) has w = 2.
	if w := target.vertexF32(1, 8); !near(w, 2) {
		t.Errorf("vertex 1 w = %v, want 2", w)
	}
}

func TestExpandSkipsOnFailure(t *testing.T) {
	caps := DefaultCaps()
	t.Run("instantiation", func(t *testing.T) {
		target := newFakeTarget(caps)
		t1, t2 := newTestProxy(t, 4, 4), newTestProxy(t, 4, 4)
		target.rp.fail = map[uint32]bool{t2.ID(): true}
		op := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
		op.TryMerge(NewOp(textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4))), &caps)
		if cmd := op.Expand(target); cmd != nil {
			t.Errorf("Expand = %+v, want nil", cmd)
		}
		if target.data != nil {
			t.Error("vertices allocated for a skipped op")
		}
		op.Release()
	})
	t.Run("vertex space", func(t *testing.T) {
		target := newFakeTarget(caps)
		target.vertexErr = errFake
		if cmd := NewOp(textureDraw(newTestProxy(t, 4, 4), FilterNearest, geom.XYWH(0, 0, 4, 4))).Expand(target); cmd != nil {
			t.Errorf("Expand = %+v, want nil", cmd)
		}
	})
	t.Run("index buffer", func(t *testing.T) {
		target := newFakeTarget(caps)
		target.rp.indexErr = errFake
		p := newTestProxy(t, 4, 4)
		op := NewOp(textureDraw(p, FilterNearest, geom.XYWH(0, 0, 4, 4)))
		op.TryMerge(NewOp(textureDraw(p, FilterNearest, geom.XYWH(4, 0, 4, 4))), &caps)
		if cmd := op.Expand(target); cmd != nil {
			t.Errorf("Expand = %+v, want nil", cmd)
		}
	})
}

func TestOpDump(t *testing.T) {
	p := newTestProxy(t, 4, 4)
	d := textureDraw(p, FilterMipmap, geom.XYWH(1, 2, 3, 4))
	d.Color = 0x11223344
	s := NewOp(d).Dump()
	for _, want := range []string{"# draws: 1", "Filter: mipmap", "Color: 0x11223344", "(1.00, 2.00)", "(4.00, 6.00)"} {
		if !strings.Contains(s, want) {
			t.Errorf("Dump() missing %q:\n%s", want, s)
		}
	}
}

func TestVisitProxies(t *testing.T) {
	caps := DefaultCaps()
	t1, t2 := newTestProxy(t, 4, 4), newTestProxy(t, 4, 4)
	op := NewOp(textureDraw(t1, FilterNearest, geom.XYWH(0, 0, 4, 4)))
	op.TryMerge(NewOp(textureDraw(t2, FilterNearest, geom.XYWH(4, 0, 4, 4))), &caps)
	var seen []*TextureProxy
	op.VisitProxies(func(p *TextureProxy, _ Filter) { seen = append(seen, p) })
	if len(seen) != 2 || seen[0] != t1 || seen[1] != t2 {
		t.Errorf("VisitProxies saw %v", seen)
	}
}
