// Package geom holds the small amount of planar geometry the editor needs:
// points, axis-aligned rectangles, clamps that keep shapes inside the image,
// and the scale+translate transform used by the viewport.
//
// All coordinates are image pixels with the origin at the top-left corner.
// A zero or negative image Size means the image has not finished loading;
// every clamp is a no-op in that case.
package geom

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Size is the pixel size of the open image.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Known reports whether both dimensions are usable.
func (s Size) Known() bool {
	return s.W > 0 && s.H > 0
}

type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right() && p.Y >= r.Top && p.Y <= r.Bottom()
}

// Intersects reports whether r and o overlap or touch.
func (r Rect) Intersects(o Rect) bool {
	return r.Left <= o.Right() && o.Left <= r.Right() && r.Top <= o.Bottom() && o.Top <= r.Bottom()
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{Left: r.Left - d, Top: r.Top - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

func (r Rect) Corners() [4]Point {
	return [4]Point{
		{r.Left, r.Top},
		{r.Right(), r.Top},
		{r.Right(), r.Bottom()},
		{r.Left, r.Bottom()},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// ClampRect returns r moved (and, if larger than the image, shrunk) so that it
// lies fully inside [0,W]x[0,H].
func ClampRect(r Rect, size Size) Rect {
	if !size.Known() {
		return r
	}
	r.Width = math.Min(math.Max(r.Width, 0), size.W)
	r.Height = math.Min(math.Max(r.Height, 0), size.H)
	r.Left = clamp(r.Left, 0, size.W-r.Width)
	r.Top = clamp(r.Top, 0, size.H-r.Height)
	return r
}

// ClampPoint clamps each coordinate of p into [0, dimension].
func ClampPoint(p Point, size Size) Point {
	if !size.Known() {
		return p
	}
	return Point{X: clamp(p.X, 0, size.W), Y: clamp(p.Y, 0, size.H)}
}

// ClampMarker clamps each coordinate of p into [radius, dimension-radius] so a
// marker of that radius never crosses the image edge.
func ClampMarker(p Point, radius float64, size Size) Point {
	if !size.Known() {
		return p
	}
	return Point{
		X: clamp(p.X, radius, math.Max(radius, size.W-radius)),
		Y: clamp(p.Y, radius, math.Max(radius, size.H-radius)),
	}
}

// Bounds returns the axis-aligned bounding box of points.
func Bounds(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{Left: minX, Top: minY, Width: maxX - minX, Height: maxY - minY}
}

// ClampTranslation returns the translation that moves the bounding box of
// points back inside the image. The point geometry itself is never reshaped.
func ClampTranslation(points []Point, size Size) (dx, dy float64) {
	if !size.Known() || len(points) == 0 {
		return 0, 0
	}
	b := Bounds(points)
	c := ClampRect(Rect{Left: b.Left, Top: b.Top, Width: b.Width, Height: b.Height}, size)
	return c.Left - b.Left, c.Top - b.Top
}

// DragRect derives a rectangle from the anchor and the current cursor, then
// clips any overflow against the image edges.
func DragRect(anchor, cursor Point, size Size) Rect {
	left, top := math.Min(anchor.X, cursor.X), math.Min(anchor.Y, cursor.Y)
	width, height := math.Abs(cursor.X-anchor.X), math.Abs(cursor.Y-anchor.Y)
	if !size.Known() {
		return Rect{Left: left, Top: top, Width: width, Height: height}
	}
	if left < 0 {
		width += left
		left = 0
	}
	if top < 0 {
		height += top
		top = 0
	}
	if left+width > size.W {
		width = size.W - left
	}
	if top+height > size.H {
		height = size.H - top
	}
	return Rect{Left: left, Top: top, Width: math.Max(width, 0), Height: math.Max(height, 0)}
}

// PointInPolygon uses ray casting; points on an edge may go either way.
func PointInPolygon(p Point, poly []Point) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// SegmentDist returns the distance from p to the segment ab.
func SegmentDist(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Dist(a)
	}
	t := clamp(((p.X-a.X)*dx+(p.Y-a.Y)*dy)/l2, 0, 1)
	return p.Dist(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
