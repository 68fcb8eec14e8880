package main

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"annovis/internal/editor"
	"annovis/internal/geom"
)

// canvasSize is the drawing area in cells: everything but the top bar,
// the status line and, on wide terminals, the sidebar.
func (m *model) canvasSize() (cols, rows int) {
	cols = m.width
	if m.showSidebar() {
		cols -= sidebarWidth
	}
	rows = m.height - 2
	return max(cols, 1), max(rows, 1)
}

func (m *model) showSidebar() bool {
	return m.width >= sidebarWidth+20
}

// viewport is the drawing area in screen pixels.
func (m *model) viewport() geom.Size {
	cols, rows := m.canvasSize()
	return geom.Size{W: float64(cols) * cellWidth, H: float64(rows) * cellHeight}
}

// screenPos converts a terminal cell to the screen pixel at its centre.
// inside reports whether the cell is on the canvas.
func (m *model) screenPos(x, y int) (pos geom.Point, inside bool) {
	cy := y - 1
	cols, rows := m.canvasSize()
	return cellCentre(x, cy), x >= 0 && x < cols && cy >= 0 && cy < rows
}

// cycleLabel selects the label delta places from the current one.
func (m *model) cycleLabel(delta int) tea.Cmd {
	ls := m.session.Labels()
	if len(ls) == 0 {
		m.errorMessage = "No labels"
		return nil
	}
	i := 0
	for j, l := range ls {
		if l.Name == m.session.CurrentLabel() {
			i = j
			break
		}
	}
	i = ((i+delta)%len(ls) + len(ls)) % len(ls)
	return m.dispatch(editor.SelectLabel{Name: ls[i].Name})
}

// labelAt returns the n-th label (1-based) for the number keys.
func (m *model) labelAt(n int) (string, bool) {
	ls := m.session.Labels()
	if n < 1 || n > len(ls) {
		return "", false
	}
	return ls[n-1].Name, true
}

func (m *model) clearMessages() {
	m.errorMessage = ""
	m.successMessage = ""
}

func (m *model) setMessage(level editor.Level, msg string) {
	m.clearMessages()
	if level == editor.LevelError {
		m.errorMessage = msg
	} else {
		m.successMessage = msg
	}
}

// imageKey names an image in the project store: its base name without
// extension.
func imageKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

func writeClipboardText(s string) error {
	return clipboard.WriteAll(s)
}
