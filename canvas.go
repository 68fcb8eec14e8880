package main

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/geom"
)

// shadeRamp maps image luminance to characters, dark to light.
const shadeRamp = ".:-=+*#%@"

type cell struct {
	ch      rune
	color   string
	bold    bool
	faint   bool
	reverse bool
}

type border struct {
	h, v, tl, tr, bl, br rune
}

var (
	thinBorder   = border{'─', '│', '┌', '┐', '└', '┘'}
	thickBorder  = border{'━', '┃', '┏', '┓', '┗', '┛'}
	dashedBorder = border{'┄', '┆', '┌', '┐', '└', '┘'}
)

// Canvas is the grid of terminal cells a scene is rasterized into. Cell
// (x, y) covers screen pixels [x*cellWidth, (x+1)*cellWidth).
type Canvas struct {
	cols  int
	rows  int
	cells [][]cell
}

func NewCanvas(cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	c := &Canvas{cols: cols, rows: rows, cells: make([][]cell, rows)}
	for y := range c.cells {
		row := make([]cell, cols)
		for x := range row {
			row[x] = cell{ch: ' '}
		}
		c.cells[y] = row
	}
	return c
}

func (c *Canvas) isValidPos(x, y int) bool {
	return y >= 0 && y < c.rows && x >= 0 && x < c.cols
}

func (c *Canvas) set(x, y int, ch rune, color string, bold bool) {
	if !c.isValidPos(x, y) {
		return
	}
	c.cells[y][x] = cell{ch: ch, color: color, bold: bold}
}

func (c *Canvas) text(x, y int, s, color string) {
	for i, r := range []rune(s) {
		c.set(x+i, y, r, color, true)
	}
}

func toCell(p geom.Point) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

func cellCentre(x, y int) geom.Point {
	return geom.Point{X: (float64(x) + 0.5) * cellWidth, Y: (float64(y) + 0.5) * cellHeight}
}

// Render rasterizes the scene over the image backdrop.
func (c *Canvas) Render(sc editor.Scene, img image.Image) {
	c.drawImage(img, sc.View, sc.Size)
	for _, e := range sc.Edges {
		x0, y0 := toCell(sc.View.Apply(e.From))
		x1, y1 := toCell(sc.View.Apply(e.To))
		c.line(x0, y0, x1, y1, '·', e.Color, false)
	}
	for _, s := range sc.Shapes {
		c.drawShape(sc.View, s)
	}
	for _, o := range sc.Overlays {
		c.drawOverlay(sc.View, o)
	}
}

// drawImage shades each cell inside the image by the luminance of the
// pixel under its centre.
func (c *Canvas) drawImage(img image.Image, view geom.Affine, size geom.Size) {
	if img == nil || !size.Known() {
		return
	}
	b := img.Bounds()
	ramp := []rune(shadeRamp)
	for y := 0; y < c.rows; y++ {
		for x := 0; x < c.cols; x++ {
			p := view.Invert(cellCentre(x, y))
			if p.X < 0 || p.Y < 0 || p.X >= size.W || p.Y >= size.H {
				continue
			}
			col, ok := colorful.MakeColor(img.At(b.Min.X+int(p.X), b.Min.Y+int(p.Y)))
			if !ok {
				continue
			}
			l, _, _ := col.Lab()
			i := int(l*float64(len(ramp)-1) + 0.5)
			if i < 0 {
				i = 0
			}
			if i >= len(ramp) {
				i = len(ramp) - 1
			}
			c.cells[y][x] = cell{ch: ramp[i], faint: true}
		}
	}
}

func (c *Canvas) drawShape(view geom.Affine, s editor.SceneShape) {
	switch sh := s.Shape.(type) {
	case *annotation.Box:
		b := thinBorder
		if s.Selected {
			b = thickBorder
		}
		c.rect(s.Screen, b, s.Color, s.Selected)
		x0, y0 := toCell(geom.Point{X: s.Screen.Left, Y: s.Screen.Top})
		c.text(x0+1, y0, sh.Label, s.Color)
	case *annotation.Polygon:
		pts := make([]geom.Point, len(sh.Points))
		for i, p := range sh.Points {
			pts[i] = view.Apply(p)
		}
		ch := '·'
		if s.Selected {
			ch = '•'
		}
		c.polyline(pts, true, ch, s.Color, s.Selected)
		for _, p := range pts {
			x, y := toCell(p)
			c.set(x, y, '◆', s.Color, s.Selected)
		}
		if len(pts) > 0 {
			x, y := toCell(pts[0])
			c.text(x+1, y, sh.Label, s.Color)
		}
	case *annotation.Keypoint:
		x, y := toCell(view.Apply(sh.Point()))
		ch := '●'
		switch {
		case s.Selected:
			ch = '◉'
		case !sh.Visible:
			ch = '○'
		}
		c.set(x, y, ch, s.Color, s.Selected)
		if s.Selected {
			c.text(x+2, y, sh.Label, s.Color)
		}
	}
}

func (c *Canvas) drawOverlay(view geom.Affine, o editor.Overlay) {
	pts := make([]geom.Point, len(o.Points))
	for i, p := range o.Points {
		pts[i] = view.Apply(p)
	}
	lineCh := '•'
	if o.Dashed {
		lineCh = '.'
	}
	switch o.Kind {
	case editor.OverlayRect:
		if len(pts) < 2 {
			return
		}
		b := thinBorder
		if o.Dashed {
			b = dashedBorder
		}
		c.rect(geom.Bounds(pts), b, o.Color, true)
	case editor.OverlayMarker:
		for _, p := range pts {
			x, y := toCell(p)
			c.set(x, y, '+', o.Color, true)
		}
	case editor.OverlayLine, editor.OverlayPolyline:
		c.polyline(pts, false, lineCh, o.Color, true)
	case editor.OverlayHighlight:
		for _, p := range pts {
			x, y := toCell(p)
			c.set(x, y, '◎', o.Color, true)
		}
	}
}

// rect draws the border of a screen rectangle. Only the visible part is
// walked.
func (c *Canvas) rect(r geom.Rect, b border, color string, bold bool) {
	x0, y0 := toCell(geom.Point{X: r.Left, Y: r.Top})
	x1, y1 := toCell(geom.Point{X: r.Right(), Y: r.Bottom()})
	for x := max(x0, 0); x <= min(x1, c.cols-1); x++ {
		c.set(x, y0, b.h, color, bold)
		c.set(x, y1, b.h, color, bold)
	}
	for y := max(y0, 0); y <= min(y1, c.rows-1); y++ {
		c.set(x0, y, b.v, color, bold)
		c.set(x1, y, b.v, color, bold)
	}
	c.set(x0, y0, b.tl, color, bold)
	c.set(x1, y0, b.tr, color, bold)
	c.set(x0, y1, b.bl, color, bold)
	c.set(x1, y1, b.br, color, bold)
}

func (c *Canvas) polyline(pts []geom.Point, closed bool, ch rune, color string, bold bool) {
	n := len(pts)
	if n < 2 {
		return
	}
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		x0, y0 := toCell(pts[i])
		x1, y1 := toCell(pts[(i+1)%n])
		c.line(x0, y0, x1, y1, ch, color, bold)
	}
}

// line is Bresenham's algorithm over cells.
func (c *Canvas) line(x0, y0, x1, y1 int, ch rune, color string, bold bool) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, ch, color, bold)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// cursor marks the keyboard pointer by inverting the cell under it.
func (c *Canvas) cursor(x, y int) {
	if !c.isValidPos(x, y) {
		return
	}
	c.cells[y][x].reverse = true
	if c.cells[y][x].ch == ' ' {
		c.cells[y][x].ch = '+'
	}
}

func sameStyle(a, b cell) bool {
	return a.color == b.color && a.bold == b.bold && a.faint == b.faint && a.reverse == b.reverse
}

func cellStyle(c cell) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(c.bold).Faint(c.faint).Reverse(c.reverse)
	if c.color != "" {
		st = st.Foreground(lipgloss.Color(c.color))
	}
	return st
}

// Lines renders each row, styling runs of cells that look alike together.
func (c *Canvas) Lines() []string {
	out := make([]string, 0, c.rows)
	for _, row := range c.cells {
		var b strings.Builder
		start := 0
		for x := 1; x <= len(row); x++ {
			if x < len(row) && sameStyle(row[x], row[start]) {
				continue
			}
			run := make([]rune, 0, x-start)
			for _, cl := range row[start:x] {
				run = append(run, cl.ch)
			}
			if sameStyle(row[start], cell{}) {
				b.WriteString(string(run))
			} else {
				b.WriteString(cellStyle(row[start]).Render(string(run)))
			}
			start = x
		}
		out = append(out, b.String())
	}
	return out
}

var (
	barStyle     = lipgloss.NewStyle().Bold(true).Reverse(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	sidebarStyle = lipgloss.NewStyle().
			Width(sidebarWidth - 1).
			PaddingLeft(1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true)
)

// topBar shows the annotation type, the image and the available modes.
func (m model) topBar(width int) string {
	var parts []string
	for _, md := range editor.Modes(m.kind) {
		name := md.String()
		if md == m.session.Mode() {
			name = "[" + strings.ToUpper(name) + "]"
		}
		parts = append(parts, name)
	}
	left := fmt.Sprintf(" %s · %s ", m.kind.Title(), m.imageName)
	line := left + strings.Join(parts, " ")
	return barStyle.Width(width).MaxWidth(width).Render(line)
}

func (m model) sidebarView(rows int) string {
	var b strings.Builder
	b.WriteString("Labels\n")
	current := m.session.CurrentLabel()
	for i, lc := range m.session.Counts() {
		marker := "  "
		if lc.Name == current {
			marker = "▶ "
		}
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(lc.Color)).Render("■")
		key := " "
		if m.kind == annotation.ImageClassification && i < 9 {
			key = fmt.Sprintf("%d", i+1)
		}
		fmt.Fprintf(&b, "%s%s %s %s (%d)\n", marker, key, swatch, truncate(lc.Name, sidebarWidth-14), lc.Count)
	}
	if m.kind == annotation.ImageClassification {
		b.WriteString("\nClasses\n")
		sc := m.session.Scene()
		if len(sc.Classes) == 0 {
			b.WriteString(dimStyle.Render("  none selected") + "\n")
		}
		for _, e := range sc.Classes {
			fmt.Fprintf(&b, "  %s %.0f%%\n", truncate(e.Name, sidebarWidth-10), e.Confidence*100)
		}
	}
	if m.kind == annotation.KeypointDetection {
		state := "off"
		if m.session.ShowSkeleton() {
			state = "on"
		}
		fmt.Fprintf(&b, "\nSkeleton: %s\n", state)
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("zoom %.0f%%", m.session.View().Scale*100)))
	b.WriteString("\n")
	if sel := len(m.session.Selection()); sel > 0 {
		fmt.Fprintf(&b, "%d selected\n", sel)
	}
	return sidebarStyle.Height(rows).MaxHeight(rows).Render(strings.TrimRight(b.String(), "\n"))
}

func (m model) statusLine(width int) string {
	var line string
	switch m.uiMode {
	case UIPrompt:
		line = m.promptTitle() + ": " + m.promptText + "█"
	case UIConfirm:
		line = m.confirmQuestion() + " (y/n)"
	default:
		undo := "-"
		if m.session.CanUndo() {
			undo = "u"
		}
		redo := "-"
		if m.session.CanRedo() {
			redo = "U"
		}
		line = fmt.Sprintf("%s | %s | %s%s", m.modeString(), m.session.CurrentLabel(), undo, redo)
		switch {
		case m.errorMessage != "":
			line += " | " + errorStyle.Render(m.errorMessage)
		case m.successMessage != "":
			line += " | " + successStyle.Render(m.successMessage)
		case m.toast != "":
			st := dimStyle
			if m.toastLevel == editor.LevelError {
				st = errorStyle
			} else if m.toastLevel == editor.LevelSuccess {
				st = successStyle
			}
			line += " | " + st.Render(m.toast)
		}
		line += " | ? help"
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
