// Package wgpu executes quad batches on a gogpu/wgpu HAL device.
//
// The backend generates one WGSL program per shader variant (sampler
// count, vertex attributes and color transform), caches compiled programs
// in an LRU, and draws every command of a flush in a single render pass:
//
//	b, err := wgpu.New(device, queue, wgpu.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//	if err := b.Upload(proxy, rgba); err != nil {
//	    return err
//	}
//	if err := list.Execute(b); err != nil {
//	    return err
//	}
//
// Fragment shaders sample every bound texture and then select the quad's
// texture by its flat per-vertex index, so sampling stays in uniform
// control flow.
//
// Importing the package registers the backend under backend.BackendWGPU.
package wgpu
