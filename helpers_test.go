package quadbatch

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch/geom"
)

var errFake = errors.New("fake failure")

type fakeTexture struct {
	w, h      int
	dim       gputypes.TextureViewDimension
	destroyed bool
}

func (t *fakeTexture) Width() int  { return t.w }
func (t *fakeTexture) Height() int { return t.h }
func (t *fakeTexture) ViewDimension() gputypes.TextureViewDimension {
	return t.dim
}
func (t *fakeTexture) Destroy() { t.destroyed = true }

type fakeBuffer struct{ size uint64 }

func (b *fakeBuffer) Size() uint64 { return b.size }

// fakeProvider creates fake textures. Proxies listed in fail cannot be
// instantiated.
type fakeProvider struct {
	fail       map[uint32]bool
	created    []*fakeTexture
	indexErr   error
	indexCalls int
	pattern    []uint16
	maxQuads   int
}

func (p *fakeProvider) CreateTexture(px *TextureProxy) (Texture, error) {
	if p.fail[px.ID()] {
		return nil, errFake
	}
	w, h := px.Width(), px.Height()
	if px.Desc().Fit == FitApprox {
		w, h = nextPow2(w), nextPow2(h)
	}
	tex := &fakeTexture{w: w, h: h, dim: gputypes.TextureViewDimension2D}
	p.created = append(p.created, tex)
	return tex, nil
}

func (p *fakeProvider) RefIndexBuffer(pattern []uint16, verticesPerPattern, maxPatterns int) (Buffer, error) {
	p.indexCalls++
	if p.indexErr != nil {
		return nil, p.indexErr
	}
	p.pattern = pattern
	p.maxQuads = maxPatterns
	return &fakeBuffer{size: uint64(len(pattern) * maxPatterns * 2)}, nil
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// fakeTarget hands out CPU vertex memory.
type fakeTarget struct {
	caps      Caps
	rp        *fakeProvider
	vertexErr error
	stride    uint32
	count     int
	data      []byte
}

func newFakeTarget(caps Caps) *fakeTarget {
	return &fakeTarget{caps: caps, rp: &fakeProvider{}}
}

func (t *fakeTarget) Caps() *Caps                         { return &t.caps }
func (t *fakeTarget) ResourceProvider() ResourceProvider { return t.rp }

func (t *fakeTarget) MakeVertexSpace(stride uint32, count int) (VertexSpace, error) {
	if t.vertexErr != nil {
		return VertexSpace{}, t.vertexErr
	}
	t.stride, t.count = stride, count
	t.data = make([]byte, int(stride)*count)
	return VertexSpace{Buffer: &fakeBuffer{size: uint64(len(t.data))}, Data: t.data}, nil
}

// vertexF32 decodes the float at byte offset off of vertex i.
func (t *fakeTarget) vertexF32(i int, off uint32) float32 {
	start := uint32(i)*t.stride + off
	return math.Float32frombits(binary.LittleEndian.Uint32(t.data[start:]))
}

func (t *fakeTarget) vertexU32(i int, off uint32) uint32 {
	return binary.LittleEndian.Uint32(t.data[uint32(i)*t.stride+off:])
}

func newTestProxy(t *testing.T, w, h int) *TextureProxy {
	t.Helper()
	return NewTextureProxy(ProxyDesc{Width: w, Height: h, Format: gputypes.TextureFormatRGBA8Unorm})
}

// textureDraw draws the whole of p into dst.
func textureDraw(p *TextureProxy, f Filter, dst geom.Rect) TextureDraw {
	return TextureDraw{
		Proxy:      p,
		Filter:     f,
		Color:      White,
		SrcRect:    geom.LTRB(0, 0, float32(p.Width()), float32(p.Height())),
		DstRect:    dst,
		ViewMatrix: geom.Identity(),
	}
}

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}
