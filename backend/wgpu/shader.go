package wgpu

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gogpu/naga"
	"github.com/gogpu/quadbatch"
)

//go:embed shaders/quad.wgsl.tmpl
var quadShaderTemplate string

var quadShader = template.Must(template.New("quad").Parse(quadShaderTemplate))

type shaderSlot struct {
	Index          int
	TexBinding     uint32
	SamplerBinding uint32
}

type shaderParams struct {
	Key          quadbatch.VariantKey
	Slots        []shaderSlot
	Perspective  bool
	CoverageAA   bool
	Multitexture bool
	Xform        bool

	TexIdxLocation uint32
	edgeBase       uint32
}

// EdgeLocation returns the vertex location of edge equation i.
func (p shaderParams) EdgeLocation(i int) uint32 { return p.edgeBase + uint32(i) }

// Binding 0 is the uniform block; each sampler slot then takes a texture
// binding followed by a sampler binding.
func textureBinding(slot int) uint32 { return uint32(1 + 2*slot) }
func samplerBinding(slot int) uint32 { return uint32(2 + 2*slot) }

func paramsFor(key quadbatch.VariantKey) shaderParams {
	a := key.Attributes
	p := shaderParams{
		Key:          key,
		Perspective:  a.Has(quadbatch.AttrPerspective),
		CoverageAA:   a.Has(quadbatch.AttrCoverageAA),
		Multitexture: a.Has(quadbatch.AttrMultitexture),
		Xform:        key.XformKey != 0,
	}
	for i := range max(key.SamplerCount, 1) {
		p.Slots = append(p.Slots, shaderSlot{
			Index:          i,
			TexBinding:     textureBinding(i),
			SamplerBinding: samplerBinding(i),
		})
	}
	for _, attr := range quadbatch.LayoutFor(a).Attrs {
		switch attr.Name {
		case "textureIdx":
			p.TexIdxLocation = attr.Location
		case "aaEdge0":
			p.edgeBase = attr.Location
		}
	}
	return p
}

// GenerateWGSL returns the WGSL source of the program for key.
func GenerateWGSL(key quadbatch.VariantKey) (string, error) {
	var b strings.Builder
	if err := quadShader.Execute(&b, paramsFor(key)); err != nil {
		return "", fmt.Errorf("wgpu: generate shader %v: %w", key, err)
	}
	return b.String(), nil
}

// CompileVariant generates the WGSL for key and compiles it to SPIR-V words.
func CompileVariant(key quadbatch.VariantKey) ([]uint32, error) {
	src, err := GenerateWGSL(key)
	if err != nil {
		return nil, err
	}
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrShaderCompile, key, err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
