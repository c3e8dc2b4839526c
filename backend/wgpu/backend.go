package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch"
	"github.com/gogpu/quadbatch/backend"
	"github.com/gogpu/quadbatch/internal/cache"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// uniformSize is the viewport vec4 followed by the column-major gamut
// matrix.
const uniformSize = 16 + 64

// Backend executes quad batches on a HAL device.
//
// Textures, index buffers and samplers live as long as the backend. Vertex
// buffers and bind groups live for one Execute. Objects released while
// they may still be referenced by recorded work are destroyed after the
// next submission completes.
type Backend struct {
	mu  sync.Mutex
	cfg Config

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool

	target     hal.Texture
	targetView hal.TextureView
	msaa       hal.Texture
	msaaView   hal.TextureView

	programs     *cache.Cache[programKey, *program]
	indexBuffers map[indexKey]*gpuBuffer
	samplers     map[quadbatch.Filter]hal.Sampler
	pending      []*gpuBuffer
	retired      []func(hal.Device)
	executing    bool
	stats        Stats
}

// Stats counts the work a Backend has done.
type Stats struct {
	Executes  int
	Commands  int
	DrawCalls int
	Programs  int
}

func init() {
	backend.Register(backend.BackendWGPU, func() backend.Backend {
		return &lazyBackend{cfg: DefaultConfig()}
	})
}

// New creates a backend on device and queue, which the caller keeps
// owning.
func New(device hal.Device, queue hal.Queue, cfg Config) (*Backend, error) {
	cfg.normalize()
	b := &Backend{
		cfg:          cfg,
		device:       device,
		queue:        queue,
		external:     true,
		indexBuffers: make(map[indexKey]*gpuBuffer),
		samplers:     make(map[quadbatch.Filter]hal.Sampler),
	}
	b.programs = cache.New(cfg.ProgramCacheSize, func(_ programKey, p *program) {
		b.retire(p.destroy)
	})
	if err := b.createTargets(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// NewFromProvider creates a backend sharing the device of an external
// provider (e.g., gogpu). The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. A zero TargetFormat
// in cfg is taken from the provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}
	if cfg.TargetFormat == gputypes.TextureFormatUndefined {
		cfg.TargetFormat = provider.SurfaceFormat()
	}
	return New(device, queue, cfg)
}

// NewNoop creates a backend on its own noop device. Nothing is drawn; it
// exercises the whole pipeline without a GPU.
func NewNoop(cfg Config) (*Backend, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, backend.ErrBackendNotAvailable
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open noop adapter: %w", err)
	}
	b, err := New(open.Device, open.Queue, cfg)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	b.instance = instance
	b.external = false
	return b, nil
}

func (b *Backend) createTargets() error {
	size := hal.Extent3D{Width: uint32(b.cfg.Width), Height: uint32(b.cfg.Height), DepthOrArrayLayers: 1} //nolint:gosec // normalized to positive
	tex, view, err := b.createAttachment("target", size, 1, gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc)
	if err != nil {
		return err
	}
	b.target, b.targetView = tex, view
	if b.cfg.SampleCount > 1 {
		tex, view, err = b.createAttachment("msaa", size, b.cfg.SampleCount, gputypes.TextureUsageRenderAttachment)
		if err != nil {
			return err
		}
		b.msaa, b.msaaView = tex, view
	}
	return nil
}

func (b *Backend) createAttachment(name string, size hal.Extent3D, samples uint32, usage gputypes.TextureUsage) (hal.Texture, hal.TextureView, error) {
	label := b.cfg.Label + "_" + name
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        b.cfg.TargetFormat,
		Usage:         usage,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        b.cfg.TargetFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return nil, nil, fmt.Errorf("create %s view: %w", label, err)
	}
	return tex, view, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return backend.BackendWGPU }

// Init is a no-op; New leaves the backend ready.
func (b *Backend) Init() error { return nil }

// Caps implements quadbatch.FlushTarget.
func (b *Backend) Caps() *quadbatch.Caps { return &b.cfg.Caps }

// ResourceProvider implements quadbatch.FlushTarget.
func (b *Backend) ResourceProvider() quadbatch.ResourceProvider { return b }

// Config returns the normalized configuration.
func (b *Backend) Config() Config { return b.cfg }

// Stats returns a snapshot of the counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.Programs = b.programs.Len()
	return s
}

// TargetView returns the view that Execute renders into.
func (b *Backend) TargetView() hal.TextureView { return b.targetView }

// retire destroys an object now, or after the running Execute submits.
func (b *Backend) retire(fn func(hal.Device)) {
	b.mu.Lock()
	if b.executing {
		b.retired = append(b.retired, fn)
		b.mu.Unlock()
		return
	}
	d := b.device
	b.mu.Unlock()
	if d != nil {
		fn(d)
	}
}

// frame holds the objects created for one Execute.
type frame struct {
	bindGroups []hal.BindGroup
	uniforms   []hal.Buffer
}

func (f *frame) destroy(d hal.Device) {
	for _, bg := range f.bindGroups {
		d.DestroyBindGroup(bg)
	}
	for _, u := range f.uniforms {
		d.DestroyBuffer(u)
	}
}

// Execute implements backend.Backend. It uploads the flush's vertex data,
// records every command into one render pass, submits and waits.
func (b *Backend) Execute(cmds []*quadbatch.DrawCommand) error {
	b.mu.Lock()
	if b.device == nil {
		b.mu.Unlock()
		return backend.ErrNotInitialized
	}
	b.executing = true
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	var fr frame
	defer func() {
		fr.destroy(b.device)
		for _, vb := range pending {
			b.device.DestroyBuffer(vb.buf)
		}
		b.mu.Lock()
		b.executing = false
		retired := b.retired
		b.retired = nil
		b.mu.Unlock()
		for _, fn := range retired {
			fn(b.device)
		}
	}()

	for _, vb := range pending {
		b.queue.WriteBuffer(vb.buf, 0, vb.data)
	}

	type encoded struct {
		prog  *program
		bind  hal.BindGroup
		cmd   *quadbatch.DrawCommand
		calls []backend.DrawCall
	}
	work := make([]encoded, 0, len(cmds))
	for i, c := range cmds {
		if err := b.checkOwned(c); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		samples := uint32(1)
		if b.cfg.SampleCount > 1 {
			samples = b.cfg.SampleCount
		} else if c.HWAntialias {
			quadbatch.Logger().Debug("wgpu: msaa requested on single-sampled target", "command", i)
		}
		prog, err := b.program(programKey{variant: c.Variant.Key, topology: c.Mesh.Topology, sampleCount: samples})
		if err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		bg, err := b.bindGroup(&fr, prog, c.Variant)
		if err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		work = append(work, encoded{prog: prog, bind: bg, cmd: c, calls: backend.SplitDraws(&c.Mesh)})
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: b.cfg.Label + "_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(b.cfg.Label + "_flush"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	attachment := hal.RenderPassColorAttachment{
		View:    b.targetView,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if b.msaaView != nil {
		attachment.View = b.msaaView
		attachment.ResolveTarget = b.targetView
	}
	if b.cfg.Clear != nil {
		attachment.LoadOp = gputypes.LoadOpClear
		attachment.ClearValue = *b.cfg.Clear
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:            b.cfg.Label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{attachment},
	})

	drawCalls := 0
	for _, w := range work {
		drawCalls += recordDraws(rp, w.prog.pipeline, w.bind, &w.cmd.Mesh, w.calls)
	}
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, b.cfg.SubmitTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrGPUTimeout, b.cfg.SubmitTimeout)
	}

	b.mu.Lock()
	b.stats.Executes++
	b.stats.Commands += len(cmds)
	b.stats.DrawCalls += drawCalls
	b.mu.Unlock()
	quadbatch.Logger().Debug("wgpu: executed flush", "commands", len(cmds), "draws", drawCalls)
	return nil
}

// checkOwned verifies that every buffer and texture c references was
// created by b.
func (b *Backend) checkOwned(c *quadbatch.DrawCommand) error {
	if vb, ok := c.Mesh.VertexBuffer.(*gpuBuffer); !ok || vb.owner != b {
		return fmt.Errorf("%w: vertex buffer", backend.ErrForeignResource)
	}
	if c.Mesh.IsIndexed() {
		if ib, ok := c.Mesh.IndexBuffer.(*gpuBuffer); !ok || ib.owner != b {
			return fmt.Errorf("%w: index buffer", backend.ErrForeignResource)
		}
	}
	for _, s := range c.Variant.Samplers {
		if t, ok := s.Proxy.Peek().(*gpuTexture); !ok || t.owner != b {
			return fmt.Errorf("%w: texture of proxy %d", backend.ErrForeignResource, s.Proxy.ID())
		}
	}
	return nil
}

// bindGroup creates the uniform buffer and bind group for one command.
func (b *Backend) bindGroup(fr *frame, prog *program, v *quadbatch.Variant) (hal.BindGroup, error) {
	ub, err := b.createAndUploadBuffer(b.cfg.Label+"_uniform", b.uniforms(v.Xform), gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	fr.uniforms = append(fr.uniforms, ub)

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{
			Buffer: ub.NativeHandle(), Offset: 0, Size: uniformSize,
		}},
	}
	for i, s := range v.Samplers {
		smp, err := b.sampler(s.Filter)
		if err != nil {
			return nil, err
		}
		tex := s.Proxy.Peek().(*gpuTexture)
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: textureBinding(i), Resource: gputypes.TextureViewBinding{
				TextureView: tex.view.NativeHandle(),
			}},
			gputypes.BindGroupEntry{Binding: samplerBinding(i), Resource: gputypes.SamplerBinding{
				Sampler: smp.NativeHandle(),
			}},
		)
	}

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   b.cfg.Label + "_bind",
		Layout:  prog.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	fr.bindGroups = append(fr.bindGroups, bg)
	return bg, nil
}

// uniforms encodes the device-to-clip transform and the gamut matrix.
func (b *Backend) uniforms(x *quadbatch.ColorSpaceXform) []byte {
	buf := make([]byte, uniformSize)
	vals := [4]float32{2 / float32(b.cfg.Width), -2 / float32(b.cfg.Height), -1, 1}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	g := x.Gamut()
	for col := range 4 {
		for row := range 4 {
			off := 16 + 4*(4*col+row)
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(g[4*row+col]))
		}
	}
	return buf
}

// recordDraws records the draw calls of one command and returns how many
// were issued.
func recordDraws(rp hal.RenderPassEncoder, pipeline hal.RenderPipeline, bg hal.BindGroup, m *quadbatch.Mesh, calls []backend.DrawCall) int {
	if len(calls) == 0 {
		return 0
	}
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.SetVertexBuffer(0, m.VertexBuffer.(*gpuBuffer).buf, 0)
	if m.IsIndexed() {
		rp.SetIndexBuffer(m.IndexBuffer.(*gpuBuffer).buf, gputypes.IndexFormatUint16, 0)
	}
	for _, c := range calls {
		if c.Indexed {
			rp.DrawIndexed(uint32(c.Count), 1, 0, int32(c.FirstVertex), 0) //nolint:gosec // bounded by the index buffer
		} else {
			rp.Draw(uint32(c.Count), 1, uint32(c.FirstVertex), 0) //nolint:gosec // vertex counts fit uint32
		}
	}
	return len(calls)
}

// Close destroys every object the backend created. A device the backend
// opened itself is destroyed too.
func (b *Backend) Close() {
	if b.device == nil {
		return
	}
	if b.programs != nil {
		b.programs.Clear()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.device
	for _, vb := range b.pending {
		d.DestroyBuffer(vb.buf)
	}
	b.pending = nil
	for _, ib := range b.indexBuffers {
		d.DestroyBuffer(ib.buf)
	}
	clear(b.indexBuffers)
	for _, s := range b.samplers {
		d.DestroySampler(s)
	}
	clear(b.samplers)
	for _, v := range []hal.TextureView{b.msaaView, b.targetView} {
		if v != nil {
			d.DestroyTextureView(v)
		}
	}
	for _, t := range []hal.Texture{b.msaa, b.target} {
		if t != nil {
			d.DestroyTexture(t)
		}
	}
	b.msaa, b.msaaView, b.target, b.targetView = nil, nil, nil, nil

	if !b.external {
		d.Destroy()
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
}

// lazyBackend defers device creation to Init so that registering the
// backend costs nothing. Init opens a noop device; use NewFromProvider to
// draw on a real one. Only Name may be called before Init.
type lazyBackend struct {
	*Backend
	cfg Config
}

func (l *lazyBackend) Init() error {
	if l.Backend != nil {
		return nil
	}
	b, err := NewNoop(l.cfg)
	if err != nil {
		return err
	}
	l.Backend = b
	return nil
}

func (l *lazyBackend) Name() string { return backend.BackendWGPU }

func (l *lazyBackend) Close() {
	if l.Backend != nil {
		l.Backend.Close()
	}
}

var _ backend.Backend = (*Backend)(nil)
