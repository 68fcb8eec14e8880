package main

// UIMode is the host's input state, separate from the editor's tool mode.
type UIMode int

const (
	UINormal UIMode = iota
	UIPrompt
	UIConfirm
)

type PromptKind int

const (
	PromptAddLabel PromptKind = iota
	PromptRenameLabel
	PromptExport
)

type ConfirmAction int

const (
	ConfirmDeleteLabel ConfirmAction = iota
	ConfirmQuit
)

const (
	// Pixels per terminal cell; pointer positions are sent to the editor
	// in these units.
	cellWidth  = 8.0
	cellHeight = 16.0

	sidebarWidth = 26

	// Wheel deltas of one scroll notch and of one +/- keypress.
	wheelStep = 120.0
	zoomStep  = 240.0
)

var helpLines = []string{
	"annovis Help",
	"============",
	"",
	"Modes:",
	"------",
	"  d                Draw boxes (object detection)",
	"  p                Draw polygons (instance detection)",
	"  k                Place keypoints (keypoint detection)",
	"  c                Connect keypoints",
	"  e                Edit polygon vertices",
	"  s                Select, move and resize",
	"  m                Move the view (pan)",
	"",
	"Pointer:",
	"--------",
	"  Mouse            Left button draws, selects and drags",
	"  Right click      Finish polygon",
	"  Middle drag      Pan in any mode",
	"  Wheel, +/-       Zoom around the pointer",
	"  Arrows           Move the keyboard pointer (Shift for 2x)",
	"  Space            Press or release the keyboard pointer",
	"  0                Fit image to the window",
	"",
	"Labels:",
	"-------",
	"  [ / ]            Previous / next label (retags the selection)",
	"  a                Add a label",
	"  r                Rename the current label",
	"  x                Delete the current label",
	"",
	"Editing:",
	"--------",
	"  Enter            Finish polygon",
	"  Esc              Cancel polygon or connection, clear selection",
	"  Delete           Delete selection",
	"  u, Ctrl+Z        Undo",
	"  U, Ctrl+Y        Redo",
	"  y / P            Copy selection / paste",
	"  t                Toggle skeleton lines",
	"  C                Clear all connections",
	"  1-9              Toggle class (image classification)",
	"",
	"File:",
	"-----",
	"  Ctrl+S           Save annotations now",
	"  S                Export annotated PNG",
	"",
	"General:",
	"  ?                Toggle this help screen",
	"  q/Ctrl+C         Quit",
}
