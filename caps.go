package quadbatch

import "runtime"

// Default capability values.
const (
	DefaultMaxTextures               = 8
	DefaultMaxFragmentSamplers       = 16
	DefaultMultitextureAreaThreshold = 256 * 256
	DefaultMaxQuadsPerIndexBuffer    = 4096
)

// Caps describes the platform limits that drive batching decisions.
//
// The zero value is not useful; start from DefaultCaps or NewCaps.
type Caps struct {
	// MaxTextures is the largest number of distinct textures one batch may
	// reference.
	MaxTextures int

	// MaxFragmentSamplers is the number of sampler bindings the fragment
	// stage supports.
	MaxFragmentSamplers int

	// IntegerSupport reports whether shaders can index with integers.
	// Multitexturing needs it to select a sampler per vertex.
	IntegerSupport bool

	// MultitextureAreaThreshold is the approximate device pixel area above
	// which batches stay single-textured.
	MultitextureAreaThreshold int

	// MaxQuadsPerIndexBuffer is the number of quads the shared index
	// pattern buffer covers. Larger batches are drawn in several calls.
	MaxQuadsPerIndexBuffer int
}

// DefaultCaps returns the capabilities of a typical desktop GPU. Android
// targets get a lower texture limit.
func DefaultCaps() Caps {
	maxTextures := DefaultMaxTextures
	if runtime.GOOS == "android" {
		maxTextures = 4
	}
	return Caps{
		MaxTextures:               maxTextures,
		MaxFragmentSamplers:       DefaultMaxFragmentSamplers,
		IntegerSupport:            true,
		MultitextureAreaThreshold: DefaultMultitextureAreaThreshold,
		MaxQuadsPerIndexBuffer:    DefaultMaxQuadsPerIndexBuffer,
	}
}

// CapsOption configures Caps in NewCaps.
//
// Example:
//
//	caps := quadbatch.NewCaps(
//	    quadbatch.WithMaxTextures(4),
//	    quadbatch.WithMultitextureAreaThreshold(128*128),
//	)
type CapsOption func(*Caps)

// WithMaxTextures sets the per-batch texture limit. Values below 1 are
// raised to 1.
func WithMaxTextures(n int) CapsOption {
	return func(c *Caps) {
		c.MaxTextures = max(n, 1)
	}
}

// WithMaxFragmentSamplers sets the fragment sampler limit. Values below 1
// are raised to 1.
func WithMaxFragmentSamplers(n int) CapsOption {
	return func(c *Caps) {
		c.MaxFragmentSamplers = max(n, 1)
	}
}

// WithIntegerSupport toggles shader integer support.
func WithIntegerSupport(ok bool) CapsOption {
	return func(c *Caps) {
		c.IntegerSupport = ok
	}
}

// WithMultitextureAreaThreshold sets the pixel area above which batches
// are not multitextured.
func WithMultitextureAreaThreshold(area int) CapsOption {
	return func(c *Caps) {
		c.MultitextureAreaThreshold = max(area, 0)
	}
}

// WithMaxQuadsPerIndexBuffer sets the quad capacity of the shared index
// buffer. Values outside [1, 16384] are clamped so that indices fit in
// uint16.
func WithMaxQuadsPerIndexBuffer(n int) CapsOption {
	return func(c *Caps) {
		c.MaxQuadsPerIndexBuffer = min(max(n, 1), maxUint16Quads)
	}
}

// maxUint16Quads is the largest quad count whose vertices are addressable
// with 16-bit indices.
const maxUint16Quads = (1 << 16) / 4

// NewCaps returns DefaultCaps with opts applied in order.
func NewCaps(opts ...CapsOption) Caps {
	c := DefaultCaps()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// SupportsMultitexture reports whether batches may bind more than one
// texture.
func (c *Caps) SupportsMultitexture() bool {
	return c.IntegerSupport && c.MaxFragmentSamplers > 1
}

// MaxSamplers returns the largest number of textures one batch can bind.
func (c *Caps) MaxSamplers() int {
	return max(min(c.MaxTextures, c.MaxFragmentSamplers), 1)
}
