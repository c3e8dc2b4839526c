package wgpu

import "errors"

var (
	// ErrShaderCompile is returned when a variant's WGSL fails to compile.
	ErrShaderCompile = errors.New("wgpu: shader compilation failed")

	// ErrNoHALDevice is returned when a device provider does not expose
	// HAL device and queue objects.
	ErrNoHALDevice = errors.New("wgpu: provider does not expose HAL types")

	// ErrTextureSize is returned when texel data does not match the
	// texture it is uploaded to.
	ErrTextureSize = errors.New("wgpu: texel data size mismatch")

	// ErrGPUTimeout is returned when a submitted flush does not complete in
	// time.
	ErrGPUTimeout = errors.New("wgpu: timed out waiting for GPU")
)
