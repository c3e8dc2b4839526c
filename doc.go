// Package quadbatch batches textured-quad draws into as few GPU draw calls
// as possible.
//
// # Overview
//
// Each request to draw a textured rectangle becomes an [Op]. Ops are
// recorded long before any GPU work runs; while recording, an op list
// offers each new op to earlier ones through [Op.TryMerge]. Compatible ops
// fold together: ops sharing one texture and filter simply concatenate
// their quads, and small ops may also combine different textures into one
// multitextured draw, with each quad selecting its texture through a
// per-vertex slot index.
//
// At flush time [Op.Expand] instantiates the textures, tessellates every
// quad into four vertices (with half-pixel outset edge equations when
// coverage anti-aliasing is on) and returns a [DrawCommand] naming the
// shader [Variant] and the mesh to draw.
//
// # Quick Start
//
//	caps := quadbatch.DefaultCaps()
//	tex := quadbatch.NewTextureProxy(quadbatch.ProxyDesc{
//	    Width: 256, Height: 256, Format: gputypes.TextureFormatRGBA8Unorm,
//	})
//	a := quadbatch.NewOp(quadbatch.TextureDraw{
//	    Proxy: tex, Color: quadbatch.White,
//	    SrcRect: geom.LTRB(0, 0, 256, 256),
//	    DstRect: geom.LTRB(0, 0, 64, 64),
//	})
//	b := quadbatch.NewOp(quadbatch.TextureDraw{
//	    Proxy: tex, Color: quadbatch.White,
//	    SrcRect: geom.LTRB(0, 0, 128, 128),
//	    DstRect: geom.LTRB(64, 0, 128, 64),
//	})
//	if a.TryMerge(b, &caps) {
//	    b.Release()
//	}
//
// The oplist package drives these steps, and backend/wgpu executes the
// resulting draw commands on a HAL device.
//
// # Ownership
//
// [TextureProxy] values are reference counted. An op takes a plain
// reference when created; [Op.Finalize] converts it into a pending read,
// and [Op.Release] resolves whichever of the two the op holds.
//
// # Concurrency
//
// An op has one owner at a time and is not safe for concurrent use. Proxy
// counts are atomic so proxies may be shared across op lists.
package quadbatch

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
