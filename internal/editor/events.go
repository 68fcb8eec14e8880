package editor

import (
	"annovis/internal/geom"
	"annovis/internal/labels"
)

// Event is anything Session.Handle consumes: pointer and keyboard input,
// toolbar actions and notifications from the host.
type Event interface{ event() }

type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// Bit masks for PointerMove.Buttons.
const (
	PressedLeft = 1 << iota
	PressedRight
	PressedMiddle
)

// Pointer positions are in screen pixels.
type (
	PointerDown struct {
		Pos    geom.Point
		Button Button
		Shift  bool
	}
	// PointerMove carries the buttons held during the move. Zero while a
	// drag is in progress means the button was released where the editor
	// could not see it.
	PointerMove struct {
		Pos     geom.Point
		Buttons int
	}
	PointerUp struct {
		Pos    geom.Point
		Button Button
	}
	Wheel struct {
		Pos    geom.Point
		DeltaY float64
	}
)

// Key names understood by KeyPress.
const (
	KeyEnter     = "enter"
	KeyEscape    = "esc"
	KeyDelete    = "delete"
	KeyBackspace = "backspace"
)

type KeyPress struct{ Key string }

// Toolbar actions.
type (
	SetMode          struct{ Mode Mode }
	SelectLabel      struct{ Name string }
	FinishPolygon    struct{}
	CancelPolygon    struct{}
	DeleteSelection  struct{}
	Undo             struct{}
	Redo             struct{}
	Save             struct{}
	ToggleSkeleton   struct{}
	ClearConnections struct{}
	RemoveConnection struct{ Index int }
	Paste            struct{ Data []byte }
	// FitView resets zoom and pan so the image fits a viewport of the
	// given screen size.
	FitView struct{ Viewport geom.Size }

	AddLabelClicked    struct{}
	RenameLabelClicked struct{}
	DeleteLabelClicked struct{}
)

// Classification actions.
type (
	SelectClass   struct{ Name string }
	DeselectClass struct{ Name string }
	ToggleClass   struct{ Name string }
	SetConfidence struct {
		Name  string
		Value float64
	}
	ClearClasses struct{}
)

// Host notifications.
type (
	// ImageLoaded starts a session on an image. Existing is the stored
	// payload, or nil.
	ImageLoaded struct {
		Size     geom.Size
		Existing []byte
	}
	LabelAdded struct {
		Label          labels.Label
		RemovedDefault bool
	}
	LabelRenamed struct{ Old, New string }
	LabelDeleted struct{ Name string }
	SaveResult   struct {
		Gen int
		Err error
	}
	// SaveDue fires when the debounce timer of a ScheduleSave expires.
	SaveDue struct{ Gen int }
)

func (PointerDown) event() {}
func (PointerMove) event() {}
func (PointerUp) event() {}
func (Wheel) event() {}
func (KeyPress) event() {}
func (SetMode) event() {}
func (SelectLabel) event() {}
func (FinishPolygon) event() {}
func (CancelPolygon) event() {}
func (DeleteSelection) event() {}
func (Undo) event() {}
func (Redo) event() {}
func (Save) event() {}
func (ToggleSkeleton) event() {}
func (ClearConnections) event() {}
func (RemoveConnection) event() {}
func (Paste) event() {}
func (FitView) event() {}
func (AddLabelClicked) event() {}
func (RenameLabelClicked) event() {}
func (DeleteLabelClicked) event() {}
func (SelectClass) event() {}
func (DeselectClass) event() {}
func (ToggleClass) event() {}
func (SetConfidence) event() {}
func (ClearClasses) event() {}
func (ImageLoaded) event() {}
func (LabelAdded) event() {}
func (LabelRenamed) event() {}
func (LabelDeleted) event() {}
func (SaveResult) event() {}
func (SaveDue) event() {}
