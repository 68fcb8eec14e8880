package editor

import "annovis/internal/annotation"

// classify applies a classification action. Each change is one history
// entry and one save.
func (s *Session) classify(ev Event) {
	c := s.doc.Classes
	if c == nil {
		s.toast(LevelError, "Classes only apply to %s", annotation.ImageClassification.Title())
		return
	}
	changed := false
	switch e := ev.(type) {
	case SelectClass:
		if !s.knownClass(e.Name) {
			return
		}
		changed = c.Select(e.Name)
	case DeselectClass:
		changed = c.Deselect(e.Name)
	case ToggleClass:
		if !c.Has(e.Name) && !s.knownClass(e.Name) {
			return
		}
		c.Toggle(e.Name)
		changed = true
	case SetConfidence:
		if !c.Has(e.Name) && !s.knownClass(e.Name) {
			return
		}
		before := confidence(c, e.Name)
		c.SetConfidence(e.Name, e.Value)
		changed = !c.Has(e.Name) || confidence(c, e.Name) != before
	case ClearClasses:
		changed = c.Clear() > 0
	}
	if changed {
		s.commit()
	}
}

func (s *Session) knownClass(name string) bool {
	if !s.dir.Has(name) {
		s.log.Debug("unknown class", "label", name)
		return false
	}
	return true
}

func confidence(c *annotation.Classification, name string) float64 {
	for _, e := range c.Entries {
		if e.Name == name {
			return e.Confidence
		}
	}
	return -1
}
