package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch"
	"github.com/gogpu/wgpu/hal"
)

// programKey identifies a compiled program. The same variant needs a
// separate pipeline per topology and sample count.
type programKey struct {
	variant     quadbatch.VariantKey
	topology    gputypes.PrimitiveTopology
	sampleCount uint32
}

// program holds the GPU objects for one shader variant.
type program struct {
	key        programKey
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
}

// program returns the cached program for key, compiling it on first use.
func (b *Backend) program(key programKey) (*program, error) {
	return b.programs.GetOrCreate(key, func() (*program, error) {
		quadbatch.Logger().Debug("wgpu: compiling program", "variant", key.variant, "topology", key.topology)
		return b.createProgram(key)
	})
}

func (b *Backend) createProgram(key programKey) (*program, error) {
	var source hal.ShaderSource
	if b.cfg.PrecompileSPIRV {
		words, err := CompileVariant(key.variant)
		if err != nil {
			return nil, err
		}
		source.SPIRV = words
	} else {
		src, err := GenerateWGSL(key.variant)
		if err != nil {
			return nil, err
		}
		source.WGSL = src
	}
	label := fmt.Sprintf("%s_%d_%d_%x", b.cfg.Label, key.variant.SamplerCount, key.variant.Attributes, key.variant.XformKey)

	p := &program{key: key}
	var err error
	p.shader, err = b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label + "_shader",
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", label, err)
	}

	// Binding 0: uniforms (vertex+fragment)
	// Binding 1+2i: texture i, binding 2+2i: sampler i (fragment)
	entries := []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}}
	for i := range key.variant.SamplerCount {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    textureBinding(i),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    samplerBinding(i),
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	p.bindLayout, err = b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		p.destroy(b.device)
		return nil, fmt.Errorf("create bind group layout %s: %w", label, err)
	}

	p.pipeLayout, err = b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		p.destroy(b.device)
		return nil, fmt.Errorf("create pipeline layout %s: %w", label, err)
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	p.pipeline, err = b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{quadbatch.LayoutFor(key.variant.Attributes).BufferLayout()},
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    b.cfg.TargetFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: key.topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: key.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.destroy(b.device)
		return nil, fmt.Errorf("create render pipeline %s: %w", label, err)
	}
	return p, nil
}

// destroy releases the program's objects in reverse creation order.
func (p *program) destroy(d hal.Device) {
	if p.pipeline != nil {
		d.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		d.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		d.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		d.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
