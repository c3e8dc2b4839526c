package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch"
)

// MemoryBackend is a CPU backend that records draw calls instead of
// rasterizing them. It backs tests, benchmarks and the demo.
type MemoryBackend struct {
	mu          sync.Mutex
	caps        quadbatch.Caps
	initialized bool

	pending  []*memoryBuffer
	index    *memoryBuffer
	textures int
	draws    []Draw
	stats    MemoryStats
}

// Draw is one executed draw command.
type Draw struct {
	Key         quadbatch.VariantKey
	Stride      uint32
	HWAntialias bool

	// Textures holds the proxy ID bound to each sampler slot.
	Textures []uint32
	Calls    []DrawCall

	// Vertices is a copy of the command's vertex data.
	Vertices []byte
}

// MemoryStats counts the work a MemoryBackend has executed.
type MemoryStats struct {
	Commands     int
	DrawCalls    int
	Vertices     int
	Variants     int
	LiveTextures int
}

type memoryBuffer struct {
	owner *MemoryBackend
	data  []byte
}

func (b *memoryBuffer) Size() uint64 { return uint64(len(b.data)) }

type memoryTexture struct {
	owner *MemoryBackend
	w, h  int
}

func (t *memoryTexture) Width() int  { return t.w }
func (t *memoryTexture) Height() int { return t.h }

func (t *memoryTexture) ViewDimension() gputypes.TextureViewDimension {
	return gputypes.TextureViewDimension2D
}

func (t *memoryTexture) Destroy() {
	t.owner.mu.Lock()
	t.owner.textures--
	t.owner.mu.Unlock()
}

func init() {
	Register(BackendMemory, func() Backend {
		return NewMemoryBackend()
	})
}

// NewMemoryBackend creates a memory backend with the given capabilities.
func NewMemoryBackend(opts ...quadbatch.CapsOption) *MemoryBackend {
	return &MemoryBackend{caps: quadbatch.NewCaps(opts...)}
}

// Name returns the backend identifier.
func (b *MemoryBackend) Name() string { return BackendMemory }

// Init initializes the backend.
func (b *MemoryBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return nil
}

// Close drops recorded draws and pending vertex memory.
func (b *MemoryBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = false
	b.pending = nil
	b.index = nil
	b.draws = nil
}

// Caps implements quadbatch.FlushTarget.
func (b *MemoryBackend) Caps() *quadbatch.Caps { return &b.caps }

// ResourceProvider implements quadbatch.FlushTarget.
func (b *MemoryBackend) ResourceProvider() quadbatch.ResourceProvider { return b }

// MakeVertexSpace implements quadbatch.FlushTarget.
func (b *MemoryBackend) MakeVertexSpace(stride uint32, count int) (quadbatch.VertexSpace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return quadbatch.VertexSpace{}, ErrNotInitialized
	}
	buf := &memoryBuffer{owner: b, data: make([]byte, int(stride)*count)}
	b.pending = append(b.pending, buf)
	return quadbatch.VertexSpace{Buffer: buf, Data: buf.data}, nil
}

// CreateTexture implements quadbatch.ResourceProvider.
func (b *MemoryBackend) CreateTexture(p *quadbatch.TextureProxy) (quadbatch.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	w, h := p.Desc().BackingSize()
	b.textures++
	return &memoryTexture{owner: b, w: w, h: h}, nil
}

// RefIndexBuffer implements quadbatch.ResourceProvider. The buffer is
// built once and shared by every later request.
func (b *MemoryBackend) RefIndexBuffer(pattern []uint16, verticesPerPattern, maxPatterns int) (quadbatch.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return nil, ErrNotInitialized
	}
	if b.index == nil {
		idx := quadbatch.RepeatPattern(pattern, verticesPerPattern, maxPatterns)
		data := make([]byte, 2*len(idx))
		for i, v := range idx {
			data[2*i] = byte(v)
			data[2*i+1] = byte(v >> 8)
		}
		b.index = &memoryBuffer{owner: b, data: data}
	}
	return b.index, nil
}

// Execute records cmds. Commands referencing buffers from another backend
// are rejected before anything is recorded.
func (b *MemoryBackend) Execute(cmds []*quadbatch.DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return ErrNotInitialized
	}

	for i, c := range cmds {
		vb, ok := c.Mesh.VertexBuffer.(*memoryBuffer)
		if !ok || vb.owner != b {
			return fmt.Errorf("%w: command %d vertex buffer", ErrForeignResource, i)
		}
		if c.Mesh.IsIndexed() && c.Mesh.IndexBuffer != b.index {
			return fmt.Errorf("%w: command %d index buffer", ErrForeignResource, i)
		}
	}

	seen := make(map[quadbatch.VariantKey]bool)
	for _, d := range b.draws {
		seen[d.Key] = true
	}
	for _, c := range cmds {
		vb := c.Mesh.VertexBuffer.(*memoryBuffer)
		ids := make([]uint32, len(c.Variant.Samplers))
		for i, s := range c.Variant.Samplers {
			ids[i] = s.Proxy.ID()
		}
		calls := SplitDraws(&c.Mesh)
		b.draws = append(b.draws, Draw{
			Key:         c.Variant.Key,
			Stride:      c.Variant.Layout.Stride,
			HWAntialias: c.HWAntialias,
			Textures:    ids,
			Calls:       calls,
			Vertices:    slices.Clone(vb.data),
		})
		b.stats.Commands++
		b.stats.DrawCalls += len(calls)
		b.stats.Vertices += c.Mesh.VertexCount
		if !seen[c.Variant.Key] {
			seen[c.Variant.Key] = true
			b.stats.Variants++
		}
	}
	b.pending = b.pending[:0]
	return nil
}

// Draws returns the draws recorded so far.
func (b *MemoryBackend) Draws() []Draw {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.draws)
}

// Stats returns a snapshot of the counters.
func (b *MemoryBackend) Stats() MemoryStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.LiveTextures = b.textures
	return s
}
