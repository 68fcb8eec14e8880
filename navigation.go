package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"annovis/internal/editor"
)

// handleNavigation moves the keyboard pointer and reports the move to the
// editor, as a drag while the pointer is pressed.
func (m *model) handleNavigation(key string) tea.Cmd {
	speed := m.getMoveSpeed(key)
	switch key {
	case "left", "shift+left":
		m.cursorX -= speed
	case "right", "shift+right":
		m.cursorX += speed
	case "up", "shift+up":
		m.cursorY -= speed
	case "down", "shift+down":
		m.cursorY += speed
	}
	m.ensureCursorInBounds()
	buttons := m.buttons
	if m.cursorDown {
		buttons |= editor.PressedLeft
	}
	return m.dispatch(editor.PointerMove{Pos: cellCentre(m.cursorX, m.cursorY), Buttons: buttons})
}

// toggleCursorPress presses or releases the keyboard pointer.
func (m *model) toggleCursorPress() tea.Cmd {
	pos := cellCentre(m.cursorX, m.cursorY)
	if m.cursorDown {
		m.cursorDown = false
		return m.dispatch(editor.PointerUp{Pos: pos, Button: editor.ButtonLeft})
	}
	m.cursorDown = true
	return m.dispatch(editor.PointerDown{Pos: pos, Button: editor.ButtonLeft})
}

func (m *model) getMoveSpeed(key string) int {
	switch key {
	case "shift+left", "shift+right", "shift+up", "shift+down":
		return 2
	default:
		return 1
	}
}

func (m *model) ensureCursorInBounds() {
	cols, rows := m.canvasSize()
	if m.cursorX < 0 {
		m.cursorX = 0
	}
	if m.cursorY < 0 {
		m.cursorY = 0
	}
	if m.cursorX >= cols {
		m.cursorX = cols - 1
	}
	if m.cursorY >= rows {
		m.cursorY = rows - 1
	}
}
