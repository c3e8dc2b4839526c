package wgpu

import (
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadbatch"
)

// Config configures a Backend.
type Config struct {
	// Width and Height size the render target.
	Width, Height int

	// TargetFormat is the render target's format.
	TargetFormat gputypes.TextureFormat

	// SampleCount is 1 or 4. With 4 the target is multisampled and
	// commands requesting hardware antialiasing get it.
	SampleCount uint32

	// ProgramCacheSize bounds the number of compiled shader programs.
	ProgramCacheSize int

	// Clear, when set, clears the target at the start of every Execute.
	Clear *gputypes.Color

	// SubmitTimeout bounds the wait for each submitted flush.
	SubmitTimeout time.Duration

	// PrecompileSPIRV compiles shaders to SPIR-V with naga instead of
	// handing WGSL to the device.
	PrecompileSPIRV bool

	// Caps are the capabilities reported to ops.
	Caps quadbatch.Caps

	Label string
}

// DefaultConfig returns a 1x-sampled 800x600 RGBA target.
func DefaultConfig() Config {
	return Config{
		Width:            800,
		Height:           600,
		TargetFormat:     gputypes.TextureFormatRGBA8Unorm,
		SampleCount:      1,
		ProgramCacheSize: 32,
		SubmitTimeout:    5 * time.Second,
		Caps:             quadbatch.DefaultCaps(),
		Label:            "quadbatch",
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Width <= 0 {
		c.Width = d.Width
	}
	if c.Height <= 0 {
		c.Height = d.Height
	}
	if c.TargetFormat == gputypes.TextureFormatUndefined {
		c.TargetFormat = d.TargetFormat
	}
	if c.SampleCount != 4 {
		c.SampleCount = 1
	}
	if c.ProgramCacheSize <= 0 {
		c.ProgramCacheSize = d.ProgramCacheSize
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = d.SubmitTimeout
	}
	if c.Caps == (quadbatch.Caps{}) {
		c.Caps = d.Caps
	}
	if c.Label == "" {
		c.Label = d.Label
	}
}
