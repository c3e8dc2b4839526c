package geom

// PerspQuad is a device-space quad whose corners are stored in
// triangle-strip order. When the quad came from a perspective matrix the
// coordinates are homogeneous and W holds the per-corner weight; otherwise
// every W is 1.
type PerspQuad struct {
	X, Y, W [4]float32
}

// NewPerspQuad maps the corners of rect through m.
func NewPerspQuad(rect Rect, m Matrix) PerspQuad {
	var q PerspQuad
	persp := m.HasPerspective()
	for i, p := range rect.TriStrip() {
		h := m.MapXY(p.X, p.Y)
		q.X[i], q.Y[i] = h.X, h.Y
		if persp {
			q.W[i] = h.W
		} else {
			q.W[i] = 1
		}
	}
	return q
}

// QuadFromPoints builds an affine quad from four points already in
// triangle-strip order.
func QuadFromPoints(pts [4]Point) PerspQuad {
	var q PerspQuad
	for i, p := range pts {
		q.X[i], q.Y[i], q.W[i] = p.X, p.Y, 1
	}
	return q
}

// Point returns corner i as a homogeneous point.
func (q PerspQuad) Point(i int) Point3 {
	return Point3{X: q.X[i], Y: q.Y[i], W: q.W[i]}
}

// IsAffine reports whether every corner has w == 1.
func (q PerspQuad) IsAffine() bool {
	return q.W == [4]float32{1, 1, 1, 1}
}

// Bounds returns the device-space bounding box of the projected corners.
func (q PerspQuad) Bounds() Rect {
	var xs, ys [4]float32
	for i := range 4 {
		iw := 1 / q.W[i]
		xs[i], ys[i] = q.X[i]*iw, q.Y[i]*iw
	}
	return Rect{
		Left:   min(xs[0], xs[1], xs[2], xs[3]),
		Top:    min(ys[0], ys[1], ys[2], ys[3]),
		Right:  max(xs[0], xs[1], xs[2], xs[3]),
		Bottom: max(ys[0], ys[1], ys[2], ys[3]),
	}
}
