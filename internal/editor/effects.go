package editor

import "time"

// Effect is an instruction for the host returned by Session.Handle.
type Effect interface{ effect() }

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	}
	return "info"
}

// Redraw asks the host to render Session.Scene again.
type Redraw struct{}

// Toast is a transient message about the editor itself, such as a
// rejected action or a mode hint.
type Toast struct {
	Message string
	Level   Level
}

// Notify is a host-level message, used for I/O results.
type Notify struct {
	Message string
	Level   Level
}

// ScheduleSave asks the host to send SaveDue{Gen} after the delay. Only the
// newest generation leads to a save.
type ScheduleSave struct {
	Gen   int
	After time.Duration
}

// SaveAnnotations carries the normalized payload to persist. The host
// answers with SaveResult.
type SaveAnnotations struct {
	Gen     int
	Payload []byte
}

// Label requests. The host prompts the user, updates the project and
// answers with LabelAdded, LabelRenamed or LabelDeleted.
type (
	RequestAddLabel    struct{}
	RequestRenameLabel struct{ Current string }
	RequestDeleteLabel struct{ Name string }
)

func (Redraw) effect() {}
func (Toast) effect() {}
func (Notify) effect() {}
func (ScheduleSave) effect() {}
func (SaveAnnotations) effect() {}
func (RequestAddLabel) effect() {}
func (RequestRenameLabel) effect() {}
func (RequestDeleteLabel) effect() {}
