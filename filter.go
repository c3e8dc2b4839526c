package quadbatch

import "github.com/gogpu/gputypes"

// Filter selects how a texture is sampled.
type Filter uint8

const (
	// FilterNearest samples the closest texel.
	FilterNearest Filter = iota
	// FilterBilinear interpolates the four closest texels.
	FilterBilinear
	// FilterMipmap interpolates within and between mip levels.
	FilterMipmap
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	case FilterMipmap:
		return "mipmap"
	default:
		return "unknown"
	}
}

// SamplerModes returns the magnification, minification and mipmap filter
// modes a sampler needs to implement f.
func (f Filter) SamplerModes() (mag, minify, mip gputypes.FilterMode) {
	switch f {
	case FilterBilinear:
		return gputypes.FilterModeLinear, gputypes.FilterModeLinear, gputypes.FilterModeNearest
	case FilterMipmap:
		return gputypes.FilterModeLinear, gputypes.FilterModeLinear, gputypes.FilterModeLinear
	default:
		return gputypes.FilterModeNearest, gputypes.FilterModeNearest, gputypes.FilterModeNearest
	}
}
