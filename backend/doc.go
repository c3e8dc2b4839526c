// Package backend defines the execution side of quad batching and a
// registry of available backends.
//
// A [Backend] is both the flush target ops expand into and the executor
// of the resulting draw commands:
//
//	b, err := backend.InitDefault()
//	if err != nil {
//	    return err
//	}
//	defer b.Close()
//
//	cmds := list.Flush(b)
//	if err := b.Execute(cmds); err != nil {
//	    return err
//	}
//
// The memory backend is always registered. Importing backend/wgpu
// registers the HAL backend, which Default prefers.
package backend
