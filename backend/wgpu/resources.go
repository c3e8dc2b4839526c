package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch"
	"github.com/gogpu/wgpu/hal"
)

// gpuTexture is a sampled texture created for a proxy.
type gpuTexture struct {
	owner  *Backend
	tex    hal.Texture
	view   hal.TextureView
	w, h   int
	format gputypes.TextureFormat
}

func (t *gpuTexture) Width() int  { return t.w }
func (t *gpuTexture) Height() int { return t.h }

func (t *gpuTexture) ViewDimension() gputypes.TextureViewDimension {
	return gputypes.TextureViewDimension2D
}

// Destroy releases the texture once the flush that samples it, if any,
// has completed.
func (t *gpuTexture) Destroy() {
	t.owner.retire(func(d hal.Device) {
		d.DestroyTextureView(t.view)
		d.DestroyTexture(t.tex)
	})
}

// gpuBuffer is a hal buffer with an optional CPU copy awaiting upload.
type gpuBuffer struct {
	owner *Backend
	buf   hal.Buffer
	size  uint64
	data  []byte
}

func (b *gpuBuffer) Size() uint64 { return b.size }

type indexKey struct {
	pattern            string
	verticesPerPattern int
	maxPatterns        int
}

// CreateTexture implements quadbatch.ResourceProvider.
func (b *Backend) CreateTexture(p *quadbatch.TextureProxy) (quadbatch.Texture, error) {
	w, h := p.Desc().BackingSize()
	format := p.Format()
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	label := p.Desc().Label
	if label == "" {
		label = fmt.Sprintf("%s_proxy_%d", b.cfg.Label, p.ID())
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}, //nolint:gosec // proxy sizes are positive
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	return &gpuTexture{owner: b, tex: tex, view: view, w: w, h: h, format: format}, nil
}

// Upload instantiates p if needed and writes tightly packed RGBA texels
// covering the proxy's width and height.
func (b *Backend) Upload(p *quadbatch.TextureProxy, texels []byte) error {
	if err := p.Instantiate(b); err != nil {
		return err
	}
	t, ok := p.Peek().(*gpuTexture)
	if !ok || t.owner != b {
		return fmt.Errorf("upload proxy %d: texture not created by this backend", p.ID())
	}
	w, h := uint32(p.Width()), uint32(p.Height()) //nolint:gosec // instantiated proxies are positive
	if want := int(w * h * 4); len(texels) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrTextureSize, len(texels), want)
	}
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		texels,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// RefIndexBuffer implements quadbatch.ResourceProvider. Buffers are shared
// per pattern for the lifetime of the backend.
func (b *Backend) RefIndexBuffer(pattern []uint16, verticesPerPattern, maxPatterns int) (quadbatch.Buffer, error) {
	indices := quadbatch.RepeatPattern(pattern, verticesPerPattern, maxPatterns)
	data := make([]byte, 2*len(indices))
	for i, v := range indices {
		data[2*i] = byte(v)
		data[2*i+1] = byte(v >> 8)
	}
	key := indexKey{pattern: string(data[:2*len(pattern)]), verticesPerPattern: verticesPerPattern, maxPatterns: maxPatterns}

	b.mu.Lock()
	defer b.mu.Unlock()
	if ib, ok := b.indexBuffers[key]; ok {
		return ib, nil
	}
	buf, err := b.createAndUploadBuffer(b.cfg.Label+"_quad_indices", data, gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	ib := &gpuBuffer{owner: b, buf: buf, size: uint64(len(data))}
	b.indexBuffers[key] = ib
	return ib, nil
}

// MakeVertexSpace implements quadbatch.FlushTarget. Each request gets its
// own vertex buffer, uploaded and destroyed by the next Execute.
func (b *Backend) MakeVertexSpace(stride uint32, count int) (quadbatch.VertexSpace, error) {
	size := uint64(stride) * uint64(count) //nolint:gosec // count is a vertex count
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.cfg.Label + "_vertices",
		Size:  size,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return quadbatch.VertexSpace{}, fmt.Errorf("create vertex buffer: %w", err)
	}
	vb := &gpuBuffer{owner: b, buf: buf, size: size, data: make([]byte, size)}

	b.mu.Lock()
	b.pending = append(b.pending, vb)
	b.mu.Unlock()
	return quadbatch.VertexSpace{Buffer: vb, Data: vb.data}, nil
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (b *Backend) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// sampler returns the shared sampler for f.
func (b *Backend) sampler(f quadbatch.Filter) (hal.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.samplers[f]; ok {
		return s, nil
	}
	mag, minify, mip := f.SamplerModes()
	s, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        fmt.Sprintf("%s_sampler_%v", b.cfg.Label, f),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    mag,
		MinFilter:    minify,
		MipmapFilter: mip,
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %v: %w", f, err)
	}
	b.samplers[f] = s
	return s, nil
}
