package editor

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"annovis/internal/annotation"
	"annovis/internal/geom"
	"annovis/internal/history"
	"annovis/internal/labels"
)

const (
	DefaultMinBoxSize    = 10.0
	DefaultAutosaveDelay = 400 * time.Millisecond

	MinZoom = 0.1
	MaxZoom = 10.0

	// HitTolerance is the pick distance in screen pixels.
	HitTolerance = 4.0
	// HandleSize is the side of the resize handle in screen pixels.
	HandleSize = 8.0
	// PasteOffset shifts pasted shapes so they do not cover the originals.
	PasteOffset = 10.0
)

type Options struct {
	Type   annotation.Type
	Labels []labels.Label
	// History defaults to an in-memory history of DefaultCapacity.
	History        history.History
	MinBoxSize     float64
	KeypointRadius float64
	AutosaveDelay  time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
	NewID          func() string
}

// Session is the editor state of one open image. It is not safe for
// concurrent use; the host feeds it events from a single loop.
type Session struct {
	opts Options
	log  *slog.Logger
	hist history.History

	doc     *annotation.Document
	dir     *labels.Directory
	current string
	size    geom.Size
	loaded  bool

	mode      Mode
	view      geom.Affine
	selection []string

	overlays     []Overlay
	showSkeleton bool
	coords       []hitBox

	draft   *annotation.Box
	anchor  geom.Point
	poly    []geom.Point
	pending string
	drag    *dragState
	pan     *panState
	marquee *marqueeState

	gen int
	fx  []Effect
}

// snapshot is what one history entry holds.
type snapshot struct {
	Document *annotation.Document `json:"document"`
	Labels   []labels.Label       `json:"labels"`
	Current  string               `json:"selectedLabel"`
}

func New(opts Options) (*Session, error) {
	if !opts.Type.Valid() {
		return nil, fmt.Errorf("new session: unknown annotation type %q", opts.Type)
	}
	if opts.MinBoxSize <= 0 {
		opts.MinBoxSize = DefaultMinBoxSize
	}
	if opts.KeypointRadius <= 0 {
		opts.KeypointRadius = annotation.KeypointRadius
	}
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = annotation.NewID
	}
	if opts.History == nil {
		opts.History = history.NewMemory(history.DefaultCapacity)
	}
	s := &Session{
		opts:         opts,
		log:          opts.Logger.With("type", string(opts.Type)),
		hist:         opts.History,
		doc:          annotation.NewDocument(opts.Type),
		dir:          labels.NewDirectory(opts.Labels),
		mode:         defaultMode(opts.Type),
		view:         geom.Identity,
		showSkeleton: true,
	}
	s.current = s.dir.First()
	return s, nil
}

func (s *Session) Type() annotation.Type { return s.opts.Type }
func (s *Session) Mode() Mode { return s.mode }
func (s *Session) Size() geom.Size { return s.size }
func (s *Session) Loaded() bool { return s.loaded }
func (s *Session) View() geom.Affine { return s.view }
func (s *Session) CurrentLabel() string { return s.current }
func (s *Session) Labels() []labels.Label { return s.dir.Labels() }
func (s *Session) LabelColor(name string) string { return s.dir.Color(name) }
func (s *Session) ShowSkeleton() bool { return s.showSkeleton }
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// Document returns a copy of the annotations.
func (s *Session) Document() *annotation.Document { return s.doc.Clone() }

// Selection returns the selected shape IDs in selection order.
func (s *Session) Selection() []string {
	return append([]string(nil), s.selection...)
}

// Handle applies one event and returns what the host should do next.
func (s *Session) Handle(ev Event) []Effect {
	switch e := ev.(type) {
	case PointerDown:
		s.pointerDown(e)
	case PointerMove:
		s.pointerMove(e)
	case PointerUp:
		s.pointerUp(e)
	case Wheel:
		s.wheel(e)
	case KeyPress:
		s.key(e.Key)
	case SetMode:
		s.setMode(e.Mode)
	case SelectLabel:
		s.selectLabel(e.Name)
	case FinishPolygon:
		s.finishPolygon()
	case CancelPolygon:
		s.cancelPolygon()
	case DeleteSelection:
		s.deleteSelection()
	case Undo:
		s.undo()
	case Redo:
		s.redo()
	case Save:
		s.saveNow()
	case ToggleSkeleton:
		s.toggleSkeleton()
	case ClearConnections:
		s.clearConnections()
	case RemoveConnection:
		s.removeConnection(e.Index)
	case Paste:
		s.paste(e.Data)
	case FitView:
		s.fitView(e.Viewport)
	case AddLabelClicked:
		s.emit(RequestAddLabel{})
	case RenameLabelClicked:
		s.requestRename()
	case DeleteLabelClicked:
		s.requestDelete()
	case SelectClass, DeselectClass, ToggleClass, SetConfidence, ClearClasses:
		s.classify(e)
	case ImageLoaded:
		s.load(e)
	case LabelAdded:
		s.labelAdded(e)
	case LabelRenamed:
		s.labelRenamed(e)
	case LabelDeleted:
		s.labelDeleted(e)
	case SaveDue:
		if e.Gen != s.gen {
			s.log.Debug("stale save timer", "gen", e.Gen, "current", s.gen)
			break
		}
		s.saveNow()
	case SaveResult:
		s.saveResult(e)
	default:
		s.log.Debug("ignored event", "event", fmt.Sprintf("%T", ev))
	}
	out := s.fx
	s.fx = nil
	return out
}

func (s *Session) emit(effects ...Effect) {
	for _, e := range effects {
		if _, ok := e.(Redraw); ok && s.hasRedraw() {
			continue
		}
		s.fx = append(s.fx, e)
	}
}

func (s *Session) hasRedraw() bool {
	for _, e := range s.fx {
		if _, ok := e.(Redraw); ok {
			return true
		}
	}
	return false
}

func (s *Session) toast(level Level, format string, args ...any) {
	s.emit(Toast{Message: fmt.Sprintf(format, args...), Level: level})
}

func (s *Session) redraw() {
	s.refreshCoords()
	s.emit(Redraw{})
}

// load starts editing a freshly opened image.
func (s *Session) load(e ImageLoaded) {
	s.cancelCreation()
	s.size = e.Size
	s.loaded = true
	doc, err := annotation.Hydrate(s.opts.Type, e.Existing, e.Size, s.opts.NewID)
	if err != nil {
		s.log.Error("load annotations", "err", err)
		s.emit(Notify{Message: "Could not read saved annotations: " + err.Error(), Level: LevelError})
		doc = annotation.NewDocument(s.opts.Type)
	}
	s.doc = doc
	s.applyRadius()
	s.selection = nil
	if err := s.hist.Reset(); err != nil {
		s.log.Error("reset history", "err", err)
	}
	s.push()
	s.redraw()
}

// applyRadius sets the configured marker radius on every keypoint and
// clamps them with it.
func (s *Session) applyRadius() {
	for _, k := range s.doc.Keypoints {
		k.Radius = s.opts.KeypointRadius
		k.Clamp(s.size)
	}
}

// commit finishes one logical user action: a single history entry, a
// debounced save and a redraw.
func (s *Session) commit() {
	s.push()
	s.scheduleSave()
	s.redraw()
}

func (s *Session) push() {
	data, err := json.Marshal(snapshot{Document: s.doc, Labels: s.dir.Labels(), Current: s.current})
	if err != nil {
		s.log.Error("encode snapshot", "err", err)
		return
	}
	if err := s.hist.Push(data); err != nil {
		s.log.Error("push history", "err", err)
		s.emit(Notify{Message: "History unavailable: " + err.Error(), Level: LevelError})
	}
}

// restore replaces the editor state with a history entry. Labels the live
// directory has gained since the entry was taken are kept.
func (s *Session) restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Document == nil || snap.Document.Type != s.opts.Type {
		return fmt.Errorf("snapshot does not hold a %s document", s.opts.Type)
	}
	if snap.Document.Type == annotation.ImageClassification && snap.Document.Classes == nil {
		snap.Document.Classes = &annotation.Classification{}
	}
	dir := labels.NewDirectory(snap.Labels)
	for _, l := range s.dir.Labels() {
		dir.Add(l)
	}
	s.doc = snap.Document
	s.applyRadius()
	s.dir = dir
	s.current = snap.Current
	if !s.dir.Has(s.current) {
		s.current = s.dir.First()
	}
	s.pruneSelection()
	return nil
}

func (s *Session) undo() {
	s.cancelCreation()
	data, ok, err := s.hist.Undo()
	s.applyHistory("undo", data, ok, err)
}

func (s *Session) redo() {
	s.cancelCreation()
	data, ok, err := s.hist.Redo()
	s.applyHistory("redo", data, ok, err)
}

func (s *Session) applyHistory(op string, data []byte, ok bool, err error) {
	if err != nil {
		s.log.Error(op, "err", err)
		s.emit(Notify{Message: fmt.Sprintf("Could not %s: %v", op, err), Level: LevelError})
		return
	}
	if !ok {
		s.toast(LevelInfo, "Nothing to %s", op)
		return
	}
	if err := s.restore(data); err != nil {
		s.log.Error(op, "err", err)
		s.emit(Notify{Message: fmt.Sprintf("Could not %s: %v", op, err), Level: LevelError})
		return
	}
	s.scheduleSave()
	s.redraw()
}

func (s *Session) scheduleSave() {
	s.gen++
	s.emit(ScheduleSave{Gen: s.gen, After: s.opts.AutosaveDelay})
}

// saveNow emits the payload of the current document.
func (s *Session) saveNow() {
	if !s.loaded {
		s.log.Debug("save before image load")
		return
	}
	if s.doc.Classes != nil {
		s.doc.Classes.Timestamp = s.opts.Now()
	}
	payload, err := s.doc.Serialize(s.size)
	if err != nil {
		s.log.Error("serialize", "err", err)
		s.emit(Notify{Message: "Save failed: " + err.Error(), Level: LevelError})
		return
	}
	s.emit(SaveAnnotations{Gen: s.gen, Payload: payload})
}

func (s *Session) saveResult(e SaveResult) {
	if e.Err != nil {
		s.log.Error("save annotations", "gen", e.Gen, "err", e.Err)
		s.emit(Notify{Message: "Save failed: " + e.Err.Error(), Level: LevelError})
		return
	}
	s.emit(Notify{Message: "Annotations saved", Level: LevelSuccess})
}

// Payload returns the normalized payload of the whole document.
func (s *Session) Payload() ([]byte, error) {
	return s.doc.Serialize(s.size)
}

func (s *Session) setMode(m Mode) {
	if !Allows(s.opts.Type, m) {
		s.toast(LevelError, "%s mode is not available for %s", m, s.opts.Type.Title())
		return
	}
	s.cancelCreation()
	s.mode = m
	if h := m.hint(); h != "" {
		s.toast(LevelInfo, "%s", h)
	}
	s.redraw()
}

// cancelCreation drops every in-progress interaction: draft box, open
// polygon, pending connection, drag, marquee and pan. Dragged shapes go
// back to where they started.
func (s *Session) cancelCreation() {
	s.draft = nil
	s.poly = nil
	s.pending = ""
	if s.drag != nil {
		s.revertDrag()
	}
	s.marquee = nil
	s.pan = nil
	s.clearOverlays(creationTags...)
}

func (s *Session) key(k string) {
	switch k {
	case KeyEnter:
		if s.mode == ModePolygon {
			s.finishPolygon()
		}
	case KeyEscape:
		switch {
		case len(s.poly) > 0:
			s.cancelPolygon()
		case s.pending != "":
			s.cancelCreation()
			s.toast(LevelInfo, "Connection cancelled")
			s.redraw()
		default:
			s.cancelCreation()
			s.selection = nil
			s.redraw()
		}
	case KeyDelete, KeyBackspace:
		s.deleteSelection()
	}
}

// selectLabel makes name current and retags every selected shape in one
// history step.
func (s *Session) selectLabel(name string) {
	if !s.dir.Has(name) {
		s.log.Debug("select unknown label", "label", name)
		return
	}
	s.current = name
	changed := 0
	for _, id := range s.selection {
		if sh, ok := s.doc.Find(id); ok && sh.LabelName() != name {
			sh.SetLabel(name)
			changed++
		}
	}
	if changed > 0 {
		s.commit()
		return
	}
	s.redraw()
}

func (s *Session) deleteSelection() {
	if len(s.selection) == 0 {
		return
	}
	n := 0
	for _, id := range s.selection {
		if s.doc.Remove(id) {
			n++
		}
	}
	s.selection = nil
	if n == 0 {
		return
	}
	if s.opts.Type == annotation.KeypointDetection {
		s.toast(LevelInfo, "Deleted %d keypoint(s)", n)
	} else {
		s.toast(LevelInfo, "Deleted %d object(s)", n)
	}
	s.commit()
}

func (s *Session) toggleSkeleton() {
	s.showSkeleton = !s.showSkeleton
	if s.showSkeleton {
		s.toast(LevelInfo, "Skeleton lines enabled")
	} else {
		s.toast(LevelInfo, "Skeleton lines disabled")
	}
	s.redraw()
}

func (s *Session) clearConnections() {
	if s.doc.ClearConnections() == 0 {
		return
	}
	s.toast(LevelInfo, "All connections cleared")
	s.commit()
}

func (s *Session) removeConnection(i int) {
	if !s.doc.Disconnect(i) {
		s.log.Debug("remove unknown connection", "index", i)
		return
	}
	s.commit()
}

func (s *Session) isSelected(id string) bool {
	for _, x := range s.selection {
		if x == id {
			return true
		}
	}
	return false
}

func (s *Session) pruneSelection() {
	kept := s.selection[:0]
	for _, id := range s.selection {
		if _, ok := s.doc.Find(id); ok {
			kept = append(kept, id)
		}
	}
	s.selection = kept
}

// requireLabel reports whether a label is current, telling the user when
// it is not.
func (s *Session) requireLabel() bool {
	if s.current == "" || !s.dir.Has(s.current) {
		s.toast(LevelError, "No label selected")
		return false
	}
	return true
}
