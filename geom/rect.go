package geom

// Rect is an axis-aligned rectangle. A rect is empty when Left >= Right or
// Top >= Bottom.
type Rect struct {
	Left, Top, Right, Bottom float32
}

// LTRB creates a Rect from its edges.
func LTRB(l, t, r, b float32) Rect {
	return Rect{Left: l, Top: t, Right: r, Bottom: b}
}

// XYWH creates a Rect from an origin and a size.
func XYWH(x, y, w, h float32) Rect {
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns Right - Left.
func (r Rect) Width() float32 { return r.Right - r.Left }

// Height returns Bottom - Top.
func (r Rect) Height() float32 { return r.Bottom - r.Top }

// IsEmpty reports whether the rect encloses no area. NaN edges are empty.
func (r Rect) IsEmpty() bool {
	return !(r.Left < r.Right && r.Top < r.Bottom)
}

// Join returns the smallest rect containing both r and o. Empty rects do not
// contribute.
func (r Rect) Join(o Rect) Rect {
	if o.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return o
	}
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return r.Left <= o.Left && r.Top <= o.Top && r.Right >= o.Right && r.Bottom >= o.Bottom
}

// Intersects reports whether r and o share a region of positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.Left < o.Right && o.Left < r.Right && r.Top < o.Bottom && o.Top < r.Bottom
}

// TriStrip returns the rect corners in triangle-strip order:
// (L,T), (L,B), (R,T), (R,B).
func (r Rect) TriStrip() [4]Point {
	return [4]Point{
		{r.Left, r.Top},
		{r.Left, r.Bottom},
		{r.Right, r.Top},
		{r.Right, r.Bottom},
	}
}

// Union returns the smallest rect containing both r and o, including
// degenerate rects such as the bounds of a zero-width quad.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}
