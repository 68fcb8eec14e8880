// Package labels keeps the project's label directory: an ordered list of
// names with a colour each, plus the palette used to colour new labels.
package labels

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultName is the placeholder label seeded into a new project. The first
// real label added replaces it.
const DefaultName = "Object"

// FallbackColor is used for names that are not in the directory.
const FallbackColor = "#ff0000"

// Palette is handed out in order; a colour already used by the project is
// skipped.
var Palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe", "#008080", "#e6beff", "#9a6324", "#fffac8", "#800000", "#aaffc3", "#808000",
}

type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NextColor returns the first palette colour not in used. Once the palette is
// exhausted a random, reasonably saturated colour is generated.
func NextColor(used []string) string {
	taken := make(map[string]bool, len(used))
	for _, c := range used {
		taken[strings.ToLower(c)] = true
	}
	for _, c := range Palette {
		if !taken[c] {
			return c
		}
	}
	return colorful.FastHappyColor().Hex()
}

// Directory is the editor's cached copy of the project labels. Order matters
// for the label picker; the map gives constant-time colour lookups.
type Directory struct {
	order  []Label
	colors map[string]string
}

func NewDirectory(ls []Label) *Directory {
	d := &Directory{colors: make(map[string]string, len(ls))}
	for _, l := range ls {
		d.Add(l)
	}
	return d
}

// Add appends l. It returns false when the name is empty or already present.
func (d *Directory) Add(l Label) bool {
	if l.Name == "" || d.Has(l.Name) {
		return false
	}
	if l.Color == "" {
		l.Color = NextColor(d.colorsInUse())
	}
	d.order = append(d.order, l)
	d.colors[l.Name] = l.Color
	return true
}

// Rename keeps the label's position and colour.
func (d *Directory) Rename(oldName, newName string) bool {
	if newName == "" || !d.Has(oldName) || d.Has(newName) {
		return false
	}
	for i := range d.order {
		if d.order[i].Name == oldName {
			d.order[i].Name = newName
		}
	}
	d.colors[newName] = d.colors[oldName]
	delete(d.colors, oldName)
	return true
}

func (d *Directory) Delete(name string) bool {
	if !d.Has(name) {
		return false
	}
	kept := d.order[:0]
	for _, l := range d.order {
		if l.Name != name {
			kept = append(kept, l)
		}
	}
	d.order = kept
	delete(d.colors, name)
	return true
}

func (d *Directory) Has(name string) bool {
	_, ok := d.colors[name]
	return ok
}

// Color returns the label's colour, or FallbackColor for unknown names.
func (d *Directory) Color(name string) string {
	if c, ok := d.colors[name]; ok {
		return c
	}
	return FallbackColor
}

func (d *Directory) Len() int { return len(d.order) }

// Labels returns a copy of the ordered labels.
func (d *Directory) Labels() []Label {
	out := make([]Label, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Directory) Names() []string {
	out := make([]string, len(d.order))
	for i, l := range d.order {
		out[i] = l.Name
	}
	return out
}

// First returns the first label name, or "" for an empty directory.
func (d *Directory) First() string {
	if len(d.order) == 0 {
		return ""
	}
	return d.order[0].Name
}

// Index returns the position of name, or -1.
func (d *Directory) Index(name string) int {
	for i, l := range d.order {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func (d *Directory) colorsInUse() []string {
	out := make([]string, 0, len(d.order))
	for _, l := range d.order {
		out = append(out, l.Color)
	}
	return out
}

// RGBA parses a "#rrggbb" colour and returns it with the given alpha
// (0..1). Unparseable colours fall back to FallbackColor.
func RGBA(hex string, alpha float64) (r, g, b, a float64) {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(FallbackColor)
	}
	return c.R, c.G, c.B, alpha
}

// Valid reports whether hex is a parseable "#rrggbb" colour.
func Valid(hex string) bool {
	_, err := colorful.Hex(hex)
	return err == nil
}
