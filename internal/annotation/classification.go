package annotation

import (
	"math"
	"time"
)

// ClassEntry is one whole-image label with its confidence in [0,1].
type ClassEntry struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Classification is an ordered set of image-level labels. Selecting a name
// twice keeps a single entry.
type Classification struct {
	Entries   []ClassEntry `json:"labels"`
	Timestamp time.Time    `json:"timestamp"`
}

// DefaultConfidence is assigned to labels picked without a score.
const DefaultConfidence = 1.0

func (c *Classification) index(name string) int {
	for i, e := range c.Entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

func (c *Classification) Has(name string) bool { return c.index(name) >= 0 }

// Select adds name with the default confidence. It returns false when the
// name was already selected.
func (c *Classification) Select(name string) bool {
	if name == "" || c.Has(name) {
		return false
	}
	c.Entries = append(c.Entries, ClassEntry{Name: name, Confidence: DefaultConfidence})
	return true
}

func (c *Classification) Deselect(name string) bool {
	i := c.index(name)
	if i < 0 {
		return false
	}
	c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
	return true
}

// Toggle flips membership and reports whether name is now selected.
func (c *Classification) Toggle(name string) bool {
	if c.Deselect(name) {
		return false
	}
	return c.Select(name)
}

// SetConfidence stores v clamped to [0,1], selecting name if needed.
func (c *Classification) SetConfidence(name string, v float64) {
	if math.IsNaN(v) {
		v = DefaultConfidence
	}
	v = math.Max(0, math.Min(1, v))
	if i := c.index(name); i >= 0 {
		c.Entries[i].Confidence = v
		return
	}
	if name != "" {
		c.Entries = append(c.Entries, ClassEntry{Name: name, Confidence: v})
	}
}

func (c *Classification) Clear() int {
	n := len(c.Entries)
	c.Entries = nil
	return n
}

func (c *Classification) Names() []string {
	out := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Name
	}
	return out
}

func (c *Classification) rename(oldName, newName string) bool {
	i := c.index(oldName)
	if i < 0 {
		return false
	}
	if c.Has(newName) {
		c.Entries = append(c.Entries[:i], c.Entries[i+1:]...)
		return true
	}
	c.Entries[i].Name = newName
	return true
}

func (c *Classification) Clone() *Classification {
	return &Classification{
		Entries:   append([]ClassEntry(nil), c.Entries...),
		Timestamp: c.Timestamp,
	}
}
