package backend

import "github.com/gogpu/quadbatch"

// DrawCall is one GPU draw issued for a command's mesh.
type DrawCall struct {
	// Indexed selects DrawIndexed over the quad pattern buffer.
	Indexed bool
	// FirstVertex is the first vertex for strips and the base vertex for
	// indexed draws.
	FirstVertex int
	// Count is the number of vertices (strip) or indices (indexed).
	Count int
}

// SplitDraws returns the draw calls for m. Indexed meshes larger than the
// index buffer are drawn in chunks of MaxPatternsPerDraw quads, each
// chunk starting four vertices per quad further into the vertex buffer.
func SplitDraws(m *quadbatch.Mesh) []DrawCall {
	if !m.IsIndexed() {
		if m.VertexCount == 0 {
			return nil
		}
		return []DrawCall{{FirstVertex: m.FirstVertex, Count: m.VertexCount}}
	}

	per := max(m.MaxPatternsPerDraw, 1)
	calls := make([]DrawCall, 0, (m.PatternCount+per-1)/per)
	for done := 0; done < m.PatternCount; done += per {
		n := min(per, m.PatternCount-done)
		calls = append(calls, DrawCall{
			Indexed:     true,
			FirstVertex: m.FirstVertex + done*quadbatch.QuadVerticesPerPattern,
			Count:       n * quadbatch.QuadIndicesPerPattern,
		})
	}
	return calls
}
