package quadbatch

import "errors"

// Sentinel errors returned by texture proxies and collaborators.
var (
	// ErrNilProvider is returned when a proxy is instantiated without a
	// resource provider.
	ErrNilProvider = errors.New("quadbatch: nil resource provider")

	// ErrInstantiateFailed marks a proxy whose earlier instantiation failed.
	// Failed proxies are not retried.
	ErrInstantiateFailed = errors.New("quadbatch: texture instantiation failed")

	// ErrInvalidProxy is returned for proxies with non-positive dimensions.
	ErrInvalidProxy = errors.New("quadbatch: invalid texture proxy dimensions")

	// ErrVertexSpace is returned when a flush target cannot supply vertex
	// memory.
	ErrVertexSpace = errors.New("quadbatch: vertex space unavailable")

	// ErrIndexBuffer is returned when the shared quad index buffer cannot
	// be created.
	ErrIndexBuffer = errors.New("quadbatch: quad index buffer unavailable")
)
