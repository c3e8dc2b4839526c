package quadbatch

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Origin describes which texture row is stored first.
type Origin uint8

const (
	// OriginTopLeft stores the top row first.
	OriginTopLeft Origin = iota
	// OriginBottomLeft stores the bottom row first. Texture coordinates are
	// flipped vertically when sampling.
	OriginBottomLeft
)

func (o Origin) String() string {
	if o == OriginBottomLeft {
		return "bottom-left"
	}
	return "top-left"
}

// Fit controls whether the backing texture may be larger than the proxy.
type Fit uint8

const (
	// FitExact backs the proxy with a texture of exactly its size.
	FitExact Fit = iota
	// FitApprox lets the provider round the backing size up.
	FitApprox
)

// Texture is an instantiated GPU texture.
type Texture interface {
	// Width and Height report the backing dimensions, which may exceed the
	// proxy's for FitApprox proxies.
	Width() int
	Height() int

	// ViewDimension reports the sampler dimensionality the texture needs.
	ViewDimension() gputypes.TextureViewDimension

	// Destroy releases the GPU resources.
	Destroy()
}

// Buffer is a GPU buffer handed out by a resource provider or flush target.
type Buffer interface {
	Size() uint64
}

// ResourceProvider creates the GPU resources ops need at flush time.
type ResourceProvider interface {
	// CreateTexture allocates the backing texture for a proxy.
	CreateTexture(p *TextureProxy) (Texture, error)

	// RefIndexBuffer returns a shared index buffer holding pattern repeated
	// maxPatterns times, each repetition offset by verticesPerPattern.
	RefIndexBuffer(pattern []uint16, verticesPerPattern, maxPatterns int) (Buffer, error)
}

// ProxyDesc describes a texture that has not been allocated yet.
type ProxyDesc struct {
	Width, Height int
	Format        gputypes.TextureFormat
	Origin        Origin
	Fit           Fit
	Label         string
}

// BackingSize returns the texture size a provider should allocate. FitApprox
// sizes round up to a power of two of at least 16 so that textures can be
// recycled between proxies of similar size.
func (d ProxyDesc) BackingSize() (w, h int) {
	if d.Fit != FitApprox {
		return d.Width, d.Height
	}
	return approxDim(d.Width), approxDim(d.Height)
}

func approxDim(n int) int {
	v := 16
	for v < n {
		v <<= 1
	}
	return v
}

var nextProxyID atomic.Uint32

// TextureProxy is a reference-counted handle to a texture that is
// allocated lazily at flush time.
//
// A proxy carries two counts. Plain references are held by code that
// still owns the proxy directly; pending reads are held by recorded work
// that will sample the texture when the op list executes. The backing
// texture is destroyed when both reach zero.
type TextureProxy struct {
	id   uint32
	desc ProxyDesc

	refs         atomic.Int32
	pendingReads atomic.Int32

	tex Texture
	err error
}

// NewTextureProxy creates a proxy holding one reference owned by the
// caller.
func NewTextureProxy(desc ProxyDesc) *TextureProxy {
	p := &TextureProxy{id: nextProxyID.Add(1), desc: desc}
	p.refs.Store(1)
	return p
}

// NewWrappedTextureProxy wraps an existing texture. The proxy is already
// instantiated and holds one reference owned by the caller.
func NewWrappedTextureProxy(tex Texture, format gputypes.TextureFormat, origin Origin) *TextureProxy {
	p := NewTextureProxy(ProxyDesc{
		Width:  tex.Width(),
		Height: tex.Height(),
		Format: format,
		Origin: origin,
	})
	p.tex = tex
	return p
}

// ID returns the process-unique identity used to deduplicate textures.
func (p *TextureProxy) ID() uint32 { return p.id }

// Desc returns the proxy description.
func (p *TextureProxy) Desc() ProxyDesc { return p.desc }

// Format returns the pixel format.
func (p *TextureProxy) Format() gputypes.TextureFormat { return p.desc.Format }

// Origin returns the row order.
func (p *TextureProxy) Origin() Origin { return p.desc.Origin }

// Width returns the proxy width. After instantiation the backing texture
// may be wider; see Peek.
func (p *TextureProxy) Width() int { return p.desc.Width }

// Height returns the proxy height.
func (p *TextureProxy) Height() int { return p.desc.Height }

// Instantiate allocates the backing texture through rp. It is a no-op for
// an instantiated proxy. A failure is remembered and returned again on
// later calls.
func (p *TextureProxy) Instantiate(rp ResourceProvider) error {
	if p.tex != nil {
		return nil
	}
	if p.err != nil {
		return p.err
	}
	if rp == nil {
		return ErrNilProvider
	}
	if p.desc.Width <= 0 || p.desc.Height <= 0 {
		p.err = fmt.Errorf("%w: proxy %d is %dx%d", ErrInvalidProxy, p.id, p.desc.Width, p.desc.Height)
		return p.err
	}
	tex, err := rp.CreateTexture(p)
	if err != nil {
		p.err = fmt.Errorf("%w: proxy %d: %w", ErrInstantiateFailed, p.id, err)
		return p.err
	}
	p.tex = tex
	return nil
}

// IsInstantiated reports whether the backing texture exists.
func (p *TextureProxy) IsInstantiated() bool { return p.tex != nil }

// Peek returns the backing texture, or nil before instantiation.
func (p *TextureProxy) Peek() Texture { return p.tex }

// Ref adds a plain reference.
func (p *TextureProxy) Ref() { p.refs.Add(1) }

// Unref drops a plain reference.
func (p *TextureProxy) Unref() {
	if p.refs.Add(-1) < 0 {
		panic(fmt.Sprintf("quadbatch: proxy %d unreferenced too many times", p.id))
	}
	p.maybeDestroy()
}

// AddPendingRead records that deferred work will sample the texture.
func (p *TextureProxy) AddPendingRead() { p.pendingReads.Add(1) }

// CompletedRead resolves one pending read.
func (p *TextureProxy) CompletedRead() {
	if p.pendingReads.Add(-1) < 0 {
		panic(fmt.Sprintf("quadbatch: proxy %d completed more reads than were pending", p.id))
	}
	p.maybeDestroy()
}

// RefCount returns the number of plain references.
func (p *TextureProxy) RefCount() int { return int(p.refs.Load()) }

// PendingReads returns the number of unresolved pending reads.
func (p *TextureProxy) PendingReads() int { return int(p.pendingReads.Load()) }

func (p *TextureProxy) maybeDestroy() {
	if p.refs.Load() > 0 || p.pendingReads.Load() > 0 {
		return
	}
	if p.tex != nil {
		p.tex.Destroy()
		p.tex = nil
	}
}

func (p *TextureProxy) String() string {
	return fmt.Sprintf("proxy#%d(%dx%d)", p.id, p.desc.Width, p.desc.Height)
}
