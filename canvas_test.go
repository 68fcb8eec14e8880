package main

import (
	"strings"
	"testing"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/geom"
)

func TestToCell(t *testing.T) {
	tests := []struct {
		p    geom.Point
		x, y int
	}{
		{geom.Point{X: 0, Y: 0}, 0, 0},
		{geom.Point{X: 7.9, Y: 15.9}, 0, 0},
		{geom.Point{X: 8, Y: 16}, 1, 1},
		{geom.Point{X: -1, Y: -1}, -1, -1},
	}
	for _, tt := range tests {
		x, y := toCell(tt.p)
		if x != tt.x || y != tt.y {
			t.Errorf("toCell(%v) = %d,%d, want %d,%d", tt.p, x, y, tt.x, tt.y)
		}
		if tt.x >= 0 {
			cx, cy := toCell(cellCentre(x, y))
			if cx != x || cy != y {
				t.Errorf("cellCentre(%d,%d) maps back to %d,%d", x, y, cx, cy)
			}
		}
	}
}

func TestLineCoversEndpoints(t *testing.T) {
	c := NewCanvas(10, 5)
	c.line(0, 0, 6, 3, '*', "", false)
	if c.cells[0][0].ch != '*' || c.cells[3][6].ch != '*' {
		t.Fatal("line endpoints not drawn")
	}
	n := 0
	for _, row := range c.cells {
		for _, cl := range row {
			if cl.ch == '*' {
				n++
			}
		}
	}
	// One cell per step along the major axis.
	if n != 7 {
		t.Errorf("line drew %d cells, want 7", n)
	}
}

func TestLineClipsOffCanvas(t *testing.T) {
	c := NewCanvas(4, 4)
	c.line(-5, -5, 10, 10, '*', "", false)
	for i := 0; i < 4; i++ {
		if c.cells[i][i].ch != '*' {
			t.Errorf("cell %d,%d not drawn", i, i)
		}
	}
}

func TestRenderBox(t *testing.T) {
	box := &annotation.Box{ID: "b1", Label: "cat", X: 8, Y: 16, Width: 32, Height: 32}
	sc := editor.Scene{
		Size: geom.Size{W: 100, H: 100},
		View: geom.Identity,
		Shapes: []editor.SceneShape{{
			Shape:  box,
			Color:  "#ff0000",
			Screen: box.Rect(),
		}},
	}
	c := NewCanvas(10, 6)
	c.Render(sc, nil)

	want := map[[2]int]rune{
		{1, 1}: '┌',
		{5, 1}: '┐',
		{1, 3}: '└',
		{5, 3}: '┘',
		{1, 2}: '│',
		{3, 3}: '─',
		{2, 1}: 'c',
		{4, 1}: 't',
	}
	for pos, ch := range want {
		if got := c.cells[pos[1]][pos[0]].ch; got != ch {
			t.Errorf("cell %v = %q, want %q", pos, got, ch)
		}
	}
	if c.cells[1][1].color != "#ff0000" {
		t.Errorf("border colour = %q", c.cells[1][1].color)
	}

	sc.Shapes[0].Selected = true
	c = NewCanvas(10, 6)
	c.Render(sc, nil)
	if c.cells[1][1].ch != '┏' || !c.cells[1][1].bold {
		t.Errorf("selected corner = %q bold=%v", c.cells[1][1].ch, c.cells[1][1].bold)
	}
}

func TestRenderKeypoints(t *testing.T) {
	a := &annotation.Keypoint{ID: "a", Label: "nose", X: 4, Y: 8, Visible: true}
	b := &annotation.Keypoint{ID: "b", Label: "nose", X: 44, Y: 8}
	sc := editor.Scene{
		Size: geom.Size{W: 100, H: 100},
		View: geom.Identity,
		Shapes: []editor.SceneShape{
			{Shape: a, Color: "#00ff00"},
			{Shape: b, Color: "#00ff00"},
		},
		Edges: []editor.SceneEdge{{From: a.Point(), To: b.Point(), Color: "#00ff00"}},
	}
	c := NewCanvas(8, 2)
	c.Render(sc, nil)
	if c.cells[0][0].ch != '●' {
		t.Errorf("visible keypoint = %q", c.cells[0][0].ch)
	}
	if c.cells[0][5].ch != '○' {
		t.Errorf("hidden keypoint = %q", c.cells[0][5].ch)
	}
	if c.cells[0][3].ch != '·' {
		t.Errorf("skeleton edge = %q", c.cells[0][3].ch)
	}
}

func TestRenderOverlayAndCursor(t *testing.T) {
	sc := editor.Scene{
		Size: geom.Size{W: 100, H: 100},
		View: geom.Identity,
		Overlays: []editor.Overlay{{
			Tag:    editor.TagMarquee,
			Kind:   editor.OverlayRect,
			Points: []geom.Point{{X: 0, Y: 0}, {X: 24, Y: 32}},
			Dashed: true,
		}},
	}
	c := NewCanvas(6, 4)
	c.Render(sc, nil)
	if c.cells[0][1].ch != '┄' || c.cells[1][0].ch != '┆' {
		t.Errorf("dashed rect = %q %q", c.cells[0][1].ch, c.cells[1][0].ch)
	}
	c.cursor(5, 3)
	if !c.cells[3][5].reverse || c.cells[3][5].ch != '+' {
		t.Errorf("cursor cell = %+v", c.cells[3][5])
	}
}

func TestLinesPlainText(t *testing.T) {
	c := NewCanvas(5, 2)
	c.cells[0][0].ch = 'a'
	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "a    " || lines[1] != strings.Repeat(" ", 5) {
		t.Errorf("Lines() = %q", lines)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"cat", 5, "cat"},
		{"elephant", 5, "elep…"},
		{"ünïcode", 4, "ünï…"},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
