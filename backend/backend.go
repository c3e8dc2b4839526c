package backend

import (
	"errors"

	"github.com/gogpu/quadbatch"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrForeignResource is returned when a draw command references a
	// buffer or texture created by a different backend.
	ErrForeignResource = errors.New("backend: resource belongs to another backend")
)

// Backend executes the draw commands produced by flushing an op list.
//
// A backend is also the flush target the ops expand into: it hands out
// vertex memory, creates textures and owns the shared quad index buffer.
// Vertex memory handed out during a flush stays valid until Execute
// returns.
type Backend interface {
	quadbatch.FlushTarget
	quadbatch.ResourceProvider

	// Name returns the backend identifier (e.g., "memory", "wgpu").
	Name() string

	// Init initializes the backend.
	// This should be called before any other operation.
	Init() error

	// Execute draws cmds in order and recycles the flush's vertex memory.
	Execute(cmds []*quadbatch.DrawCommand) error

	// Close releases all backend resources.
	// The backend should not be used after Close is called.
	Close()
}
