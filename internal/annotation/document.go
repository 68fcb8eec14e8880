package annotation

import (
	"errors"
	"fmt"
)

var (
	ErrSelfConnection      = errors.New("cannot connect a keypoint to itself")
	ErrDuplicateConnection = errors.New("connection already exists")
	ErrUnknownKeypoint     = errors.New("unknown keypoint")
	ErrWrongType           = errors.New("shape does not belong to this annotation type")
	ErrTooFewPoints        = errors.New("polygon must have at least 3 points")
)

// MinPolygonPoints is the smallest vertex count of a valid polygon.
const MinPolygonPoints = 3

// Document holds every annotation of the open image. Only the slices that
// match Type are ever populated.
type Document struct {
	Type        Type            `json:"type"`
	Boxes       []*Box          `json:"boxes,omitempty"`
	Polygons    []*Polygon      `json:"polygons,omitempty"`
	Keypoints   []*Keypoint     `json:"keypoints,omitempty"`
	Connections []Connection    `json:"connections,omitempty"`
	Classes     *Classification `json:"classes,omitempty"`
}

func NewDocument(t Type) *Document {
	d := &Document{Type: t}
	if t == ImageClassification {
		d.Classes = &Classification{}
	}
	return d
}

// Add appends s. Polygons with fewer than three points are rejected.
func (d *Document) Add(s Shape) error {
	switch v := s.(type) {
	case *Box:
		if d.Type != ObjectDetection {
			return fmt.Errorf("add box to %s: %w", d.Type, ErrWrongType)
		}
		d.Boxes = append(d.Boxes, v)
	case *Polygon:
		if d.Type != InstanceDetection {
			return fmt.Errorf("add polygon to %s: %w", d.Type, ErrWrongType)
		}
		if len(v.Points) < MinPolygonPoints {
			return ErrTooFewPoints
		}
		d.Polygons = append(d.Polygons, v)
	case *Keypoint:
		if d.Type != KeypointDetection {
			return fmt.Errorf("add keypoint to %s: %w", d.Type, ErrWrongType)
		}
		d.Keypoints = append(d.Keypoints, v)
	default:
		return fmt.Errorf("add %T: %w", s, ErrWrongType)
	}
	return nil
}

// Shapes returns every shape in draw order.
func (d *Document) Shapes() []Shape {
	out := make([]Shape, 0, len(d.Boxes)+len(d.Polygons)+len(d.Keypoints))
	for _, b := range d.Boxes {
		out = append(out, b)
	}
	for _, p := range d.Polygons {
		out = append(out, p)
	}
	for _, k := range d.Keypoints {
		out = append(out, k)
	}
	return out
}

func (d *Document) Len() int {
	return len(d.Boxes) + len(d.Polygons) + len(d.Keypoints)
}

func (d *Document) Find(id string) (Shape, bool) {
	for _, s := range d.Shapes() {
		if s.ShapeID() == id {
			return s, true
		}
	}
	return nil, false
}

func (d *Document) Keypoint(id string) (*Keypoint, bool) {
	for _, k := range d.Keypoints {
		if k.ID == id {
			return k, true
		}
	}
	return nil, false
}

// Remove deletes the shape with the given id. Removing a keypoint also drops
// every connection that touches it.
func (d *Document) Remove(id string) bool {
	for i, b := range d.Boxes {
		if b.ID == id {
			d.Boxes = append(d.Boxes[:i], d.Boxes[i+1:]...)
			return true
		}
	}
	for i, p := range d.Polygons {
		if p.ID == id {
			d.Polygons = append(d.Polygons[:i], d.Polygons[i+1:]...)
			return true
		}
	}
	for i, k := range d.Keypoints {
		if k.ID == id {
			d.Keypoints = append(d.Keypoints[:i], d.Keypoints[i+1:]...)
			d.PruneConnections()
			return true
		}
	}
	return false
}

// UpdateLabel retags one shape.
func (d *Document) UpdateLabel(id, name string) bool {
	s, ok := d.Find(id)
	if !ok {
		return false
	}
	s.SetLabel(name)
	return true
}

// Connect adds an undirected edge between two live keypoints.
func (d *Document) Connect(from, to string) error {
	if from == to {
		return ErrSelfConnection
	}
	if _, ok := d.Keypoint(from); !ok {
		return fmt.Errorf("connect from %s: %w", from, ErrUnknownKeypoint)
	}
	if _, ok := d.Keypoint(to); !ok {
		return fmt.Errorf("connect to %s: %w", to, ErrUnknownKeypoint)
	}
	c := Connection{From: from, To: to}
	for _, e := range d.Connections {
		if e.Same(c) {
			return ErrDuplicateConnection
		}
	}
	d.Connections = append(d.Connections, c)
	return nil
}

// Disconnect removes the connection at index i.
func (d *Document) Disconnect(i int) bool {
	if i < 0 || i >= len(d.Connections) {
		return false
	}
	d.Connections = append(d.Connections[:i], d.Connections[i+1:]...)
	return true
}

func (d *Document) ClearConnections() int {
	n := len(d.Connections)
	d.Connections = nil
	return n
}

// PruneConnections drops connections whose endpoints no longer exist and
// duplicate pairs. It returns the number removed.
func (d *Document) PruneConnections() int {
	kept := d.Connections[:0]
	removed := 0
outer:
	for _, c := range d.Connections {
		_, okFrom := d.Keypoint(c.From)
		_, okTo := d.Keypoint(c.To)
		if !okFrom || !okTo || c.From == c.To {
			removed++
			continue
		}
		for _, k := range kept {
			if k.Same(c) {
				removed++
				continue outer
			}
		}
		kept = append(kept, c)
	}
	d.Connections = kept
	return removed
}

// RenameLabel rewrites the label of every shape and classification entry
// named oldName. Shape IDs are untouched.
func (d *Document) RenameLabel(oldName, newName string) int {
	n := 0
	for _, s := range d.Shapes() {
		if s.LabelName() == oldName {
			s.SetLabel(newName)
			n++
		}
	}
	if d.Classes != nil && d.Classes.rename(oldName, newName) {
		n++
	}
	return n
}

// DeleteLabel removes every shape labelled name, the connections of any
// removed keypoint, and the classification entry. It returns the IDs of the
// removed shapes.
func (d *Document) DeleteLabel(name string) []string {
	var removed []string
	for _, s := range d.Shapes() {
		if s.LabelName() == name {
			removed = append(removed, s.ShapeID())
		}
	}
	for _, id := range removed {
		d.Remove(id)
	}
	d.PruneConnections()
	if d.Classes != nil {
		d.Classes.Deselect(name)
	}
	return removed
}

// References reports whether anything still uses the label.
func (d *Document) References(name string) bool {
	for _, s := range d.Shapes() {
		if s.LabelName() == name {
			return true
		}
	}
	return d.Classes != nil && d.Classes.Has(name)
}

// Counts returns the number of shapes per label.
func (d *Document) Counts() map[string]int {
	out := make(map[string]int)
	for _, s := range d.Shapes() {
		out[s.LabelName()]++
	}
	if d.Classes != nil {
		for _, e := range d.Classes.Entries {
			out[e.Name]++
		}
	}
	return out
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{Type: d.Type}
	for _, b := range d.Boxes {
		c.Boxes = append(c.Boxes, b.clone().(*Box))
	}
	for _, p := range d.Polygons {
		c.Polygons = append(c.Polygons, p.clone().(*Polygon))
	}
	for _, k := range d.Keypoints {
		c.Keypoints = append(c.Keypoints, k.clone().(*Keypoint))
	}
	c.Connections = append([]Connection(nil), d.Connections...)
	if d.Classes != nil {
		c.Classes = d.Classes.Clone()
	}
	return c
}
