package geom

// Affine is a uniform scale followed by a translation:
//
//	screen = world*Scale + (TX, TY)
//
// Rotation and shear are never needed by the editor.
type Affine struct {
	Scale  float64
	TX, TY float64
}

// Identity is the transform of an unzoomed, unpanned viewport.
var Identity = Affine{Scale: 1}

func (a Affine) Apply(p Point) Point {
	return Point{X: p.X*a.Scale + a.TX, Y: p.Y*a.Scale + a.TY}
}

// Invert maps a screen point back to world coordinates.
func (a Affine) Invert(p Point) Point {
	s := a.Scale
	if s == 0 {
		s = 1
	}
	return Point{X: (p.X - a.TX) / s, Y: (p.Y - a.TY) / s}
}

// ApplyRect maps r to screen space.
func (a Affine) ApplyRect(r Rect) Rect {
	tl := a.Apply(Point{r.Left, r.Top})
	return Rect{Left: tl.X, Top: tl.Y, Width: r.Width * a.Scale, Height: r.Height * a.Scale}
}

// ZoomAt returns a copy of a with the given scale, adjusted so the world
// point under the screen position pivot stays under it.
func (a Affine) ZoomAt(pivot Point, scale float64) Affine {
	w := a.Invert(pivot)
	return Affine{Scale: scale, TX: pivot.X - w.X*scale, TY: pivot.Y - w.Y*scale}
}
