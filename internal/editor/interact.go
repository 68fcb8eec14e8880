package editor

import (
	"errors"
	"math"

	"annovis/internal/annotation"
	"annovis/internal/geom"
)

type dragKind int

const (
	dragMove dragKind = iota
	dragResize
	dragVertex
)

// dragState tracks a select-mode move or resize, or an edit-mode vertex
// drag. origin holds copies of the shapes taken at pointer-down.
type dragState struct {
	kind   dragKind
	start  geom.Point
	ids    []string
	origin map[string]annotation.Shape
	vertex int
}

type panState struct {
	start geom.Point
	view  geom.Affine
}

type marqueeState struct {
	start geom.Point
}

type hitBox struct {
	id   string
	rect geom.Rect
}

func (s *Session) pointerDown(e PointerDown) {
	if e.Button == ButtonMiddle || (s.mode == ModeMove && e.Button == ButtonLeft) {
		s.pan = &panState{start: e.Pos, view: s.view}
		return
	}
	if !s.loaded {
		return
	}
	img := s.view.Invert(e.Pos)
	switch s.mode {
	case ModeDraw:
		if e.Button == ButtonLeft {
			s.startDraft(img)
		}
	case ModePolygon:
		switch e.Button {
		case ButtonLeft:
			s.addVertex(img)
		case ButtonRight:
			s.finishPolygon()
		}
	case ModeKeypoint:
		if e.Button == ButtonLeft {
			s.placeKeypoint(img)
		}
	case ModeConnect:
		if e.Button == ButtonLeft {
			s.connectClick(e.Pos, img)
		}
	case ModeSelect:
		if e.Button == ButtonLeft {
			s.selectDown(e, img)
		}
	case ModeEdit:
		if e.Button == ButtonLeft {
			s.grabVertex(img)
		}
	}
}

func (s *Session) pointerMove(e PointerMove) {
	img := s.view.Invert(e.Pos)
	switch {
	case s.pan != nil:
		if e.Buttons == 0 {
			s.pan = nil
			return
		}
		d := e.Pos.Sub(s.pan.start)
		s.view = geom.Affine{Scale: s.pan.view.Scale, TX: s.pan.view.TX + d.X, TY: s.pan.view.TY + d.Y}
		s.redraw()
	case s.drag != nil:
		if e.Buttons == 0 {
			s.revertDrag()
			s.redraw()
			return
		}
		s.dragTo(img)
	case s.marquee != nil:
		if e.Buttons == 0 {
			s.marquee = nil
			s.clearOverlays(TagMarquee)
			s.redraw()
			return
		}
		s.setOverlay(Overlay{Tag: TagMarquee, Kind: OverlayRect, Points: []geom.Point{s.view.Invert(s.marquee.start), img}, Dashed: true})
		s.emit(Redraw{})
	case s.draft != nil:
		if e.Buttons == 0 {
			s.draft = nil
			s.clearOverlays(TagDraft)
			s.redraw()
			return
		}
		s.draftTo(img)
	case s.mode == ModePolygon && len(s.poly) > 0:
		last := s.poly[len(s.poly)-1]
		s.setOverlay(Overlay{Tag: TagPreview, Kind: OverlayLine, Points: []geom.Point{last, geom.ClampPoint(img, s.size)},
			Color: s.dir.Color(s.current), Dashed: true})
		s.emit(Redraw{})
	}
}

func (s *Session) pointerUp(e PointerUp) {
	img := s.view.Invert(e.Pos)
	switch {
	case s.pan != nil:
		s.pan = nil
	case s.drag != nil:
		s.endDrag()
	case s.marquee != nil:
		s.endMarquee(e.Pos)
	case s.draft != nil:
		s.finishDraft(img)
	}
}

// Draw mode.

func (s *Session) startDraft(img geom.Point) {
	if !s.requireLabel() {
		return
	}
	s.anchor = geom.ClampPoint(img, s.size)
	s.draft = &annotation.Box{ID: s.opts.NewID(), Label: s.current, X: s.anchor.X, Y: s.anchor.Y}
	s.draftOverlay()
	s.emit(Redraw{})
}

func (s *Session) draftTo(img geom.Point) {
	s.draft.SetRect(geom.DragRect(s.anchor, img, s.size))
	s.draftOverlay()
	s.emit(Redraw{})
}

func (s *Session) draftOverlay() {
	c := s.draft.Rect().Corners()
	s.setOverlay(Overlay{Tag: TagDraft, Kind: OverlayRect, Points: []geom.Point{c[0], c[2]}, Color: s.dir.Color(s.draft.Label)})
}

// finishDraft commits the draft box unless it is smaller than the minimum
// size in either dimension.
func (s *Session) finishDraft(img geom.Point) {
	s.draftTo(img)
	b := s.draft
	s.draft = nil
	s.clearOverlays(TagDraft)
	if b.Width < s.opts.MinBoxSize || b.Height < s.opts.MinBoxSize {
		s.log.Debug("discard small box", "width", b.Width, "height", b.Height)
		s.redraw()
		return
	}
	if err := s.doc.Add(b); err != nil {
		s.log.Error("add box", "err", err)
		return
	}
	s.selection = []string{b.ID}
	s.commit()
}

// Polygon mode.

func (s *Session) addVertex(img geom.Point) {
	if len(s.poly) == 0 && !s.requireLabel() {
		return
	}
	p := geom.ClampPoint(img, s.size)
	s.poly = append(s.poly, p)
	color := s.dir.Color(s.current)
	s.addOverlay(Overlay{Tag: TagPolygonMarker, Kind: OverlayMarker, Points: []geom.Point{p}, Color: color})
	s.setOverlay(Overlay{Tag: TagPolyline, Kind: OverlayPolyline, Points: append([]geom.Point(nil), s.poly...), Color: color})
	s.clearOverlays(TagPreview)
	s.emit(Redraw{})
}

func (s *Session) finishPolygon() {
	if len(s.poly) == 0 {
		return
	}
	if len(s.poly) < annotation.MinPolygonPoints {
		s.toast(LevelError, "Polygon must have at least 3 points")
		return
	}
	if !s.requireLabel() {
		return
	}
	p := &annotation.Polygon{ID: s.opts.NewID(), Label: s.current, Points: s.poly}
	s.poly = nil
	s.clearOverlays(TagPolygonMarker, TagPolyline, TagPreview)
	if err := s.doc.Add(p); err != nil {
		s.log.Error("add polygon", "err", err)
		s.redraw()
		return
	}
	s.selection = []string{p.ID}
	s.toast(LevelSuccess, "Polygon added with label: %s", p.Label)
	s.commit()
}

func (s *Session) cancelPolygon() {
	if len(s.poly) == 0 {
		return
	}
	s.poly = nil
	s.clearOverlays(TagPolygonMarker, TagPolyline, TagPreview)
	s.toast(LevelInfo, "Polygon drawing cancelled")
	s.redraw()
}

// Keypoint and connect modes.

func (s *Session) placeKeypoint(img geom.Point) {
	if !s.requireLabel() {
		return
	}
	p := geom.ClampMarker(img, s.opts.KeypointRadius, s.size)
	k := &annotation.Keypoint{
		ID:      s.opts.NewID(),
		Label:   s.current,
		X:       p.X,
		Y:       p.Y,
		Visible: true,
		Radius:  s.opts.KeypointRadius,
	}
	if err := s.doc.Add(k); err != nil {
		s.log.Error("add keypoint", "err", err)
		return
	}
	s.commit()
}

func (s *Session) connectClick(pos, img geom.Point) {
	id, ok := s.hitKeypoint(pos, img)
	if !ok {
		return
	}
	k, _ := s.doc.Keypoint(id)
	switch s.pending {
	case "":
		s.pending = id
		s.setOverlay(Overlay{Tag: TagConnectPending, Kind: OverlayHighlight, Points: []geom.Point{k.Point()}, Color: s.dir.Color(k.Label)})
		s.toast(LevelInfo, "Selected %s. Click another keypoint to connect.", k.Label)
		s.redraw()
		return
	case id:
		s.pending = ""
		s.clearOverlays(TagConnectPending)
		s.toast(LevelInfo, "Connection cancelled")
		s.redraw()
		return
	}
	from := s.pending
	s.pending = ""
	s.clearOverlays(TagConnectPending)
	err := s.doc.Connect(from, id)
	switch {
	case errors.Is(err, annotation.ErrDuplicateConnection):
		s.toast(LevelError, "Connection already exists")
		s.redraw()
		return
	case err != nil:
		s.log.Debug("connect", "from", from, "to", id, "err", err)
		s.redraw()
		return
	}
	f, _ := s.doc.Keypoint(from)
	s.toast(LevelSuccess, "Connected %s to %s", f.Label, k.Label)
	s.commit()
}

// Select mode.

func (s *Session) selectDown(e PointerDown, img geom.Point) {
	if id, ok := s.handleHit(e.Pos); ok && !e.Shift {
		s.beginDrag(dragResize, []string{id}, img)
		return
	}
	if id, ok := s.hitTest(e.Pos, img); ok {
		switch {
		case e.Shift && s.isSelected(id):
			s.deselect(id)
			s.redraw()
			return
		case e.Shift:
			s.selection = append(s.selection, id)
		case !s.isSelected(id):
			s.selection = []string{id}
		}
		s.beginDrag(dragMove, s.selection, img)
		s.redraw()
		return
	}
	if !e.Shift {
		s.selection = nil
	}
	s.marquee = &marqueeState{start: e.Pos}
	s.setOverlay(Overlay{Tag: TagMarquee, Kind: OverlayRect, Points: []geom.Point{img, img}, Dashed: true})
	s.redraw()
}

func (s *Session) deselect(id string) {
	kept := s.selection[:0]
	for _, x := range s.selection {
		if x != id {
			kept = append(kept, x)
		}
	}
	s.selection = kept
}

// handleHit reports whether pos is on the resize handle of the single
// selected box.
func (s *Session) handleHit(pos geom.Point) (string, bool) {
	if len(s.selection) != 1 {
		return "", false
	}
	id := s.selection[0]
	sh, ok := s.doc.Find(id)
	if !ok {
		return "", false
	}
	if _, isBox := sh.(*annotation.Box); !isBox {
		return "", false
	}
	r := s.view.ApplyRect(sh.Bounds())
	handle := geom.Rect{Left: r.Right() - HandleSize/2, Top: r.Bottom() - HandleSize/2, Width: HandleSize, Height: HandleSize}
	return id, handle.Contains(pos)
}

func (s *Session) endMarquee(pos geom.Point) {
	start := s.marquee.start
	s.marquee = nil
	s.clearOverlays(TagMarquee)
	r := geom.DragRect(start, pos, geom.Size{})
	if r.Width >= 2 || r.Height >= 2 {
		for _, c := range s.coords {
			if c.rect.Intersects(r) && !s.isSelected(c.id) {
				s.selection = append(s.selection, c.id)
			}
		}
	}
	s.redraw()
}

// Edit mode.

func (s *Session) grabVertex(img geom.Point) {
	tol := 2 * HitTolerance / s.view.Scale
	for i := len(s.doc.Polygons) - 1; i >= 0; i-- {
		p := s.doc.Polygons[i]
		if v, ok := p.NearestVertex(img, tol); ok {
			s.selection = []string{p.ID}
			s.beginDrag(dragVertex, s.selection, img)
			s.drag.vertex = v
			s.redraw()
			return
		}
	}
}

// Dragging.

func (s *Session) beginDrag(kind dragKind, ids []string, img geom.Point) {
	d := &dragState{kind: kind, start: img, origin: make(map[string]annotation.Shape, len(ids))}
	for _, id := range ids {
		if sh, ok := s.doc.Find(id); ok {
			d.ids = append(d.ids, id)
			d.origin[id] = annotation.Clone(sh)
		}
	}
	s.drag = d
}

// dragTo re-derives every dragged shape from its pre-drag copy, then
// clamps it to the image.
func (s *Session) dragTo(img geom.Point) {
	d := s.drag
	switch d.kind {
	case dragMove:
		dx, dy := img.X-d.start.X, img.Y-d.start.Y
		for _, id := range d.ids {
			sh, ok := s.doc.Find(id)
			if !ok {
				continue
			}
			copyGeometry(sh, d.origin[id])
			sh.Translate(dx, dy)
			sh.Clamp(s.size)
		}
	case dragResize:
		sh, ok := s.doc.Find(d.ids[0])
		if !ok {
			break
		}
		b, ok1 := sh.(*annotation.Box)
		o, ok2 := d.origin[d.ids[0]].(*annotation.Box)
		if !ok1 || !ok2 {
			break
		}
		cursor := geom.Point{
			X: math.Max(img.X, o.X+s.opts.MinBoxSize),
			Y: math.Max(img.Y, o.Y+s.opts.MinBoxSize),
		}
		b.SetRect(geom.DragRect(geom.Point{X: o.X, Y: o.Y}, cursor, s.size))
	case dragVertex:
		sh, ok := s.doc.Find(d.ids[0])
		if !ok {
			break
		}
		if p, isPoly := sh.(*annotation.Polygon); isPoly && d.vertex < len(p.Points) {
			p.Points[d.vertex] = geom.ClampPoint(img, s.size)
		}
	}
	s.redraw()
}

// endDrag pushes once if the drag changed any geometry.
func (s *Session) endDrag() {
	d := s.drag
	s.drag = nil
	for _, id := range d.ids {
		sh, ok := s.doc.Find(id)
		if ok && !sameGeometry(sh, d.origin[id]) {
			s.commit()
			return
		}
	}
	s.redraw()
}

// revertDrag puts the dragged shapes back where the drag started, without
// touching history.
func (s *Session) revertDrag() {
	d := s.drag
	s.drag = nil
	for _, id := range d.ids {
		if sh, ok := s.doc.Find(id); ok {
			copyGeometry(sh, d.origin[id])
		}
	}
	s.log.Debug("drag reverted", "shapes", len(d.ids))
}

func copyGeometry(dst, src annotation.Shape) {
	switch d := dst.(type) {
	case *annotation.Box:
		if o, ok := src.(*annotation.Box); ok {
			d.SetRect(o.Rect())
		}
	case *annotation.Polygon:
		if o, ok := src.(*annotation.Polygon); ok {
			d.Points = append(d.Points[:0], o.Points...)
		}
	case *annotation.Keypoint:
		if o, ok := src.(*annotation.Keypoint); ok {
			d.X, d.Y = o.X, o.Y
		}
	}
}

func sameGeometry(a, b annotation.Shape) bool {
	switch x := a.(type) {
	case *annotation.Polygon:
		y, ok := b.(*annotation.Polygon)
		if !ok || len(x.Points) != len(y.Points) {
			return false
		}
		for i := range x.Points {
			if x.Points[i] != y.Points[i] {
				return false
			}
		}
		return true
	}
	return a.Bounds() == b.Bounds()
}

// Hit testing runs against the screen-space cache built by refreshCoords,
// then confirms against the exact shape.

func (s *Session) hitTest(pos, img geom.Point) (string, bool) {
	tol := HitTolerance / s.view.Scale
	for i := len(s.coords) - 1; i >= 0; i-- {
		c := s.coords[i]
		if !c.rect.Inflate(HitTolerance).Contains(pos) {
			continue
		}
		if sh, ok := s.doc.Find(c.id); ok && sh.Hit(img, tol) {
			return c.id, true
		}
	}
	return "", false
}

func (s *Session) hitKeypoint(pos, img geom.Point) (string, bool) {
	tol := HitTolerance / s.view.Scale
	for i := len(s.coords) - 1; i >= 0; i-- {
		c := s.coords[i]
		if !c.rect.Inflate(HitTolerance).Contains(pos) {
			continue
		}
		if k, ok := s.doc.Keypoint(c.id); ok && k.Hit(img, tol) {
			return c.id, true
		}
	}
	return "", false
}
