package editor

import (
	"errors"

	"annovis/internal/annotation"
)

// ErrNothingSelected is returned by CopySelection with an empty selection.
var ErrNothingSelected = errors.New("nothing selected")

// CopySelection returns the normalized payload of the selected shapes,
// including connections between selected keypoints. For classification
// the whole label set is copied.
func (s *Session) CopySelection() ([]byte, error) {
	sub := annotation.NewDocument(s.opts.Type)
	if s.doc.Classes != nil {
		sub.Classes = s.doc.Classes.Clone()
		return sub.Serialize(s.size)
	}
	picked := make(map[string]bool)
	for _, id := range s.selection {
		sh, ok := s.doc.Find(id)
		if !ok {
			continue
		}
		if err := sub.Add(annotation.Clone(sh)); err == nil {
			picked[id] = true
		}
	}
	if sub.Len() == 0 {
		return nil, ErrNothingSelected
	}
	for _, c := range s.doc.Connections {
		if picked[c.From] && picked[c.To] {
			sub.Connections = append(sub.Connections, c)
		}
	}
	return sub.Serialize(s.size)
}

// paste adds the shapes of a copied payload with fresh IDs, offset so they
// do not cover the originals. Shapes whose label is unknown take the
// current label.
func (s *Session) paste(data []byte) {
	if !s.loaded {
		return
	}
	src, err := annotation.Hydrate(s.opts.Type, data, s.size, s.opts.NewID)
	if err != nil {
		s.log.Debug("paste", "err", err)
		s.toast(LevelError, "Clipboard does not hold %s annotations", s.opts.Type.Title())
		return
	}
	if src.Classes != nil {
		s.pasteClasses(src.Classes)
		return
	}
	if src.Len() == 0 {
		s.toast(LevelError, "Clipboard does not hold %s annotations", s.opts.Type.Title())
		return
	}
	ids := make(map[string]string)
	var added []string
	for _, sh := range src.Shapes() {
		if !s.dir.Has(sh.LabelName()) {
			if !s.requireLabel() {
				return
			}
			sh.SetLabel(s.current)
		}
		if k, ok := sh.(*annotation.Keypoint); ok {
			fresh := s.opts.NewID()
			ids[k.ID] = fresh
			k.ID = fresh
			k.Radius = s.opts.KeypointRadius
		}
		sh.Translate(PasteOffset, PasteOffset)
		sh.Clamp(s.size)
		if err := s.doc.Add(sh); err != nil {
			s.log.Debug("paste shape", "err", err)
			continue
		}
		added = append(added, sh.ShapeID())
	}
	for _, c := range src.Connections {
		from, to := ids[c.From], ids[c.To]
		if from == "" || to == "" {
			continue
		}
		if err := s.doc.Connect(from, to); err != nil {
			s.log.Debug("paste connection", "err", err)
		}
	}
	if len(added) == 0 {
		return
	}
	s.selection = added
	s.toast(LevelSuccess, "Pasted %d annotation(s)", len(added))
	s.commit()
}

func (s *Session) pasteClasses(src *annotation.Classification) {
	c := s.doc.Classes
	changed := false
	for _, e := range src.Entries {
		if !s.dir.Has(e.Name) {
			continue
		}
		if c.Select(e.Name) {
			changed = true
		}
		if confidence(c, e.Name) != e.Confidence {
			c.SetConfidence(e.Name, e.Confidence)
			changed = true
		}
	}
	if changed {
		s.commit()
	}
}
