package editor

import "annovis/internal/labels"

// labelAdded appends a label confirmed by the host. When the host reports
// that the placeholder label was replaced, the placeholder and every shape
// using it are removed first.
func (s *Session) labelAdded(e LabelAdded) {
	changed := false
	if e.RemovedDefault && s.dir.Has(labels.DefaultName) && e.Label.Name != labels.DefaultName {
		s.dropLabel(labels.DefaultName)
		changed = true
	}
	if s.dir.Add(e.Label) {
		s.current = e.Label.Name
		changed = true
	} else {
		s.log.Debug("label already known", "label", e.Label.Name)
	}
	if !changed {
		return
	}
	if s.current == "" || !s.dir.Has(s.current) {
		s.current = s.dir.First()
	}
	s.commit()
}

// labelRenamed rewrites the label everywhere it is used. Shape IDs and
// the label colour are kept.
func (s *Session) labelRenamed(e LabelRenamed) {
	if !s.dir.Rename(e.Old, e.New) {
		s.log.Debug("stale rename", "old", e.Old, "new", e.New)
		return
	}
	s.doc.RenameLabel(e.Old, e.New)
	if s.draft != nil && s.draft.Label == e.Old {
		s.draft.Label = e.New
	}
	if s.current == e.Old {
		s.current = e.New
	}
	s.commit()
}

// labelDeleted removes a label and cascades to every shape, keypoint,
// connection and classification entry using it. An empty directory is
// allowed; creation then reports that no label is selected.
func (s *Session) labelDeleted(e LabelDeleted) {
	if !s.dir.Has(e.Name) {
		s.log.Debug("stale delete", "label", e.Name)
		return
	}
	if s.current == e.Name {
		s.cancelCreation()
	}
	s.dropLabel(e.Name)
	if s.current == e.Name || !s.dir.Has(s.current) {
		s.current = s.dir.First()
	}
	s.commit()
}

func (s *Session) dropLabel(name string) {
	s.dir.Delete(name)
	removed := s.doc.DeleteLabel(name)
	if s.pending != "" {
		if _, ok := s.doc.Keypoint(s.pending); !ok {
			s.pending = ""
			s.clearOverlays(TagConnectPending)
		}
	}
	s.pruneSelection()
	s.log.Debug("label removed", "label", name, "shapes", len(removed))
}

func (s *Session) requestRename() {
	if s.current == "" {
		s.toast(LevelError, "No label selected")
		return
	}
	s.emit(RequestRenameLabel{Current: s.current})
}

func (s *Session) requestDelete() {
	if s.current == "" {
		s.toast(LevelError, "No label selected")
		return
	}
	s.emit(RequestDeleteLabel{Name: s.current})
}
