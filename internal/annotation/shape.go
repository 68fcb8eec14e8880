// Package annotation is the in-memory model of one image's annotations and
// its normalized JSON payloads.
//
// While editing, geometry is kept in image pixels. Serialize divides by the
// image size so stored files survive rescaling; Hydrate multiplies back and
// clamps, which tolerates files written against a slightly different image.
package annotation

import (
	"math"

	"annovis/internal/geom"
)

// Type selects which of the four editors a document belongs to.
type Type string

const (
	ObjectDetection     Type = "object-detection"
	InstanceDetection   Type = "instance-detection"
	KeypointDetection   Type = "keypoint-detection"
	ImageClassification Type = "image-classification"
)

// Types lists every supported annotation type.
var Types = []Type{ObjectDetection, InstanceDetection, KeypointDetection, ImageClassification}

func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// Title is the human readable name used in headers.
func (t Type) Title() string {
	switch t {
	case ObjectDetection:
		return "Object Detection"
	case InstanceDetection:
		return "Instance Detection"
	case KeypointDetection:
		return "Keypoint Detection"
	case ImageClassification:
		return "Image Classification"
	}
	return string(t)
}

// Shape is the behaviour shared by boxes, polygons and keypoints.
type Shape interface {
	ShapeID() string
	LabelName() string
	SetLabel(name string)
	Bounds() geom.Rect
	Translate(dx, dy float64)
	// Hit reports whether p touches the shape within tol pixels.
	Hit(p geom.Point, tol float64) bool
	// Clamp pulls the shape back inside the image.
	Clamp(size geom.Size)
	clone() Shape
}

type Box struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b *Box) ShapeID() string { return b.ID }
func (b *Box) LabelName() string { return b.Label }
func (b *Box) SetLabel(name string) { b.Label = name }
func (b *Box) Translate(dx, dy float64) {
	b.X += dx
	b.Y += dy
}

func (b *Box) Rect() geom.Rect {
	return geom.Rect{Left: b.X, Top: b.Y, Width: b.Width, Height: b.Height}
}

func (b *Box) SetRect(r geom.Rect) {
	b.X, b.Y, b.Width, b.Height = r.Left, r.Top, r.Width, r.Height
}

func (b *Box) Bounds() geom.Rect { return b.Rect() }

func (b *Box) Hit(p geom.Point, tol float64) bool {
	return b.Rect().Inflate(tol).Contains(p)
}

func (b *Box) Clamp(size geom.Size) { b.SetRect(geom.ClampRect(b.Rect(), size)) }

func (b *Box) clone() Shape {
	c := *b
	return &c
}

type Polygon struct {
	ID     string       `json:"id"`
	Label  string       `json:"label"`
	Points []geom.Point `json:"points"`
}

func (p *Polygon) ShapeID() string { return p.ID }
func (p *Polygon) LabelName() string { return p.Label }
func (p *Polygon) SetLabel(name string) { p.Label = name }
func (p *Polygon) Bounds() geom.Rect { return geom.Bounds(p.Points) }

func (p *Polygon) Translate(dx, dy float64) {
	for i := range p.Points {
		p.Points[i] = p.Points[i].Add(dx, dy)
	}
}

func (p *Polygon) Hit(pt geom.Point, tol float64) bool {
	if geom.PointInPolygon(pt, p.Points) {
		return true
	}
	for i := range p.Points {
		a, b := p.Points[i], p.Points[(i+1)%len(p.Points)]
		if geom.SegmentDist(pt, a, b) <= tol {
			return true
		}
	}
	return false
}

// Clamp translates the polygon; its outline is never reshaped.
func (p *Polygon) Clamp(size geom.Size) {
	dx, dy := geom.ClampTranslation(p.Points, size)
	if dx != 0 || dy != 0 {
		p.Translate(dx, dy)
	}
}

// NearestVertex returns the index of the vertex closest to pt, if within tol.
func (p *Polygon) NearestVertex(pt geom.Point, tol float64) (int, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, v := range p.Points {
		if d := v.Dist(pt); d <= tol && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

func (p *Polygon) clone() Shape {
	c := *p
	c.Points = append([]geom.Point(nil), p.Points...)
	return &c
}

// KeypointRadius is the default rendered radius of a keypoint marker.
const KeypointRadius = 6.0

type Keypoint struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visibility"`
	// Radius is the marker radius used for clamping and hit tests.
	Radius float64 `json:"radius,omitempty"`
}

func (k *Keypoint) ShapeID() string { return k.ID }
func (k *Keypoint) LabelName() string { return k.Label }
func (k *Keypoint) SetLabel(name string) { k.Label = name }
func (k *Keypoint) Point() geom.Point { return geom.Point{X: k.X, Y: k.Y} }
func (k *Keypoint) Translate(dx, dy float64) {
	k.X += dx
	k.Y += dy
}

func (k *Keypoint) radius() float64 {
	if k.Radius > 0 {
		return k.Radius
	}
	return KeypointRadius
}

func (k *Keypoint) Bounds() geom.Rect {
	r := k.radius()
	return geom.Rect{Left: k.X - r, Top: k.Y - r, Width: 2 * r, Height: 2 * r}
}

func (k *Keypoint) Hit(p geom.Point, tol float64) bool {
	return k.Point().Dist(p) <= k.radius()+tol
}

func (k *Keypoint) Clamp(size geom.Size) {
	p := geom.ClampMarker(k.Point(), k.radius(), size)
	k.X, k.Y = p.X, p.Y
}

func (k *Keypoint) clone() Shape {
	c := *k
	return &c
}

// Connection is an undirected skeleton edge between two keypoints.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Same reports whether c and o join the same pair, in either direction.
func (c Connection) Same(o Connection) bool {
	return (c.From == o.From && c.To == o.To) || (c.From == o.To && c.To == o.From)
}

func (c Connection) Touches(id string) bool {
	return c.From == id || c.To == id
}

// Clone returns a deep copy of s.
func Clone(s Shape) Shape {
	if s == nil {
		return nil
	}
	return s.clone()
}
