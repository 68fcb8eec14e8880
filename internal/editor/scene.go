package editor

import (
	"sort"

	"annovis/internal/annotation"
	"annovis/internal/geom"
	"annovis/internal/labels"
)

// OverlayTag groups transient drawings so they can be removed together.
type OverlayTag string

const (
	TagDraft          OverlayTag = "draft"
	TagPolygonMarker  OverlayTag = "polygon-marker"
	TagPolyline       OverlayTag = "polyline"
	TagPreview        OverlayTag = "preview"
	TagConnectPending OverlayTag = "connect-pending"
	TagMarquee        OverlayTag = "marquee"
)

var creationTags = []OverlayTag{TagDraft, TagPolygonMarker, TagPolyline, TagPreview, TagConnectPending, TagMarquee}

type OverlayKind int

const (
	// OverlayRect spans Points[0] to Points[1].
	OverlayRect OverlayKind = iota
	OverlayMarker
	OverlayLine
	OverlayPolyline
	OverlayHighlight
)

// Overlay is a transient drawing in image coordinates. Overlays are never
// part of the document.
type Overlay struct {
	Tag    OverlayTag
	Kind   OverlayKind
	Points []geom.Point
	Color  string
	Dashed bool
}

// setOverlay replaces every overlay carrying o's tag.
func (s *Session) setOverlay(o Overlay) {
	s.clearOverlays(o.Tag)
	s.overlays = append(s.overlays, o)
}

func (s *Session) addOverlay(o Overlay) {
	s.overlays = append(s.overlays, o)
}

// clearOverlays removes overlays by tag without touching shapes.
func (s *Session) clearOverlays(tags ...OverlayTag) {
	if len(s.overlays) == 0 {
		return
	}
	drop := make(map[OverlayTag]bool, len(tags))
	for _, t := range tags {
		drop[t] = true
	}
	kept := s.overlays[:0]
	for _, o := range s.overlays {
		if !drop[o.Tag] {
			kept = append(kept, o)
		}
	}
	s.overlays = kept
}

// refreshCoords rebuilds the screen-space bounds of every shape. It runs
// after each viewport change or shape mutation so hit tests and the
// renderer never see stale positions.
func (s *Session) refreshCoords() {
	s.coords = s.coords[:0]
	for _, sh := range s.doc.Shapes() {
		s.coords = append(s.coords, hitBox{id: sh.ShapeID(), rect: s.view.ApplyRect(sh.Bounds())})
	}
}

type SceneShape struct {
	Shape    annotation.Shape
	Color    string
	Selected bool
	// Screen is the shape's bounding box in screen pixels.
	Screen geom.Rect
}

// SceneEdge is a skeleton line between two keypoints.
type SceneEdge struct {
	Index    int
	From, To geom.Point
	Color    string
}

// Scene is everything a renderer needs for one frame. Shapes are copies.
type Scene struct {
	Type     annotation.Type
	Size     geom.Size
	View     geom.Affine
	Mode     Mode
	Label    string
	Shapes   []SceneShape
	Edges    []SceneEdge
	Overlays []Overlay
	Classes  []annotation.ClassEntry
}

func (s *Session) Scene() Scene {
	sc := Scene{
		Type:  s.opts.Type,
		Size:  s.size,
		View:  s.view,
		Mode:  s.mode,
		Label: s.current,
	}
	screen := make(map[string]geom.Rect, len(s.coords))
	for _, c := range s.coords {
		screen[c.id] = c.rect
	}
	for _, sh := range s.doc.Shapes() {
		r, ok := screen[sh.ShapeID()]
		if !ok {
			r = s.view.ApplyRect(sh.Bounds())
		}
		sc.Shapes = append(sc.Shapes, SceneShape{
			Shape:    annotation.Clone(sh),
			Color:    s.dir.Color(sh.LabelName()),
			Selected: s.isSelected(sh.ShapeID()),
			Screen:   r,
		})
	}
	if s.showSkeleton {
		for i, c := range s.doc.Connections {
			from, ok1 := s.doc.Keypoint(c.From)
			to, ok2 := s.doc.Keypoint(c.To)
			if !ok1 || !ok2 {
				continue
			}
			sc.Edges = append(sc.Edges, SceneEdge{Index: i, From: from.Point(), To: to.Point(), Color: s.dir.Color(from.Label)})
		}
	}
	for _, o := range s.overlays {
		o.Points = append([]geom.Point(nil), o.Points...)
		sc.Overlays = append(sc.Overlays, o)
	}
	if s.doc.Classes != nil {
		sc.Classes = append(sc.Classes, s.doc.Classes.Entries...)
	}
	return sc
}

// LabelCount is one row of the per-label summary.
type LabelCount struct {
	labels.Label
	Count int
}

// Counts returns how many annotations use each label, in directory order,
// followed by names found only in the document.
func (s *Session) Counts() []LabelCount {
	counts := s.doc.Counts()
	var out []LabelCount
	for _, l := range s.dir.Labels() {
		out = append(out, LabelCount{Label: l, Count: counts[l.Name]})
		delete(counts, l.Name)
	}
	var extra []string
	for name := range counts {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, LabelCount{Label: labels.Label{Name: name, Color: labels.FallbackColor}, Count: counts[name]})
	}
	return out
}
