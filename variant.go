package quadbatch

import "fmt"

// VariantKey identifies a shader program. Batches with equal keys share a
// program.
type VariantKey struct {
	SamplerCount int
	Attributes   AttributeSet
	XformKey     uint32
}

func (k VariantKey) String() string {
	return fmt.Sprintf("samplers=%d attrs=%v xform=%#x", k.SamplerCount, k.Attributes, k.XformKey)
}

// SamplerBinding is one entry of a variant's sampler array.
type SamplerBinding struct {
	Proxy  *TextureProxy
	Filter Filter
}

// Variant is the shader-variant descriptor for one batch: its key, the
// vertex layout and the sampler array to bind.
type Variant struct {
	Key    VariantKey
	Layout *VertexLayout

	// Samplers has Key.SamplerCount entries. Slots past the batch's own
	// textures repeat its last texture.
	Samplers []SamplerBinding

	// RealTextures is the number of distinct textures in the batch.
	RealTextures int

	Xform *ColorSpaceXform
}

// BuildVariant builds the descriptor for a batch holding handles and
// drawing with attrs.
func BuildVariant(handles *ResourceHandleSet, attrs AttributeSet, xform *ColorSpaceXform, caps *Caps) *Variant {
	textures := handles.Len()
	n := SamplerCount(textures, caps)
	samplers := make([]SamplerBinding, n)
	for i := range samplers {
		p, f := handles.At(min(i, textures-1))
		samplers[i] = SamplerBinding{Proxy: p, Filter: f}
	}
	return &Variant{
		Key: VariantKey{
			SamplerCount: n,
			Attributes:   attrs,
			XformKey:     xform.Key(),
		},
		Layout:       LayoutFor(attrs),
		Samplers:     samplers,
		RealTextures: textures,
		Xform:        xform,
	}
}
