package editor

import "annovis/internal/annotation"

// Mode is the current pointer interpretation.
type Mode int

const (
	ModeNone Mode = iota
	ModeMove
	ModeDraw
	ModePolygon
	ModeKeypoint
	ModeSelect
	ModeConnect
	ModeEdit
)

func (m Mode) String() string {
	switch m {
	case ModeMove:
		return "move"
	case ModeDraw:
		return "draw"
	case ModePolygon:
		return "polygon"
	case ModeKeypoint:
		return "keypoint"
	case ModeSelect:
		return "select"
	case ModeConnect:
		return "connect"
	case ModeEdit:
		return "edit"
	}
	return "none"
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	for m := ModeNone; m <= ModeEdit; m++ {
		if m.String() == s {
			return m, true
		}
	}
	return ModeNone, false
}

// Modes returns the modes available for an annotation type, the default
// first. Classification has no pointer modes.
func Modes(t annotation.Type) []Mode {
	switch t {
	case annotation.ObjectDetection:
		return []Mode{ModeDraw, ModeMove, ModeSelect}
	case annotation.InstanceDetection:
		return []Mode{ModePolygon, ModeMove, ModeSelect, ModeEdit}
	case annotation.KeypointDetection:
		return []Mode{ModeKeypoint, ModeMove, ModeSelect, ModeConnect}
	}
	return nil
}

// Allows reports whether m can be used with t.
func Allows(t annotation.Type, m Mode) bool {
	for _, x := range Modes(t) {
		if x == m {
			return true
		}
	}
	return false
}

func defaultMode(t annotation.Type) Mode {
	if ms := Modes(t); len(ms) > 0 {
		return ms[0]
	}
	return ModeNone
}

// hint is the status message shown on entering a mode.
func (m Mode) hint() string {
	switch m {
	case ModeMove:
		return "Drag to pan, scroll to zoom"
	case ModeDraw:
		return "Drag to draw a box"
	case ModePolygon:
		return "Click to add points, right-click to finish polygon"
	case ModeKeypoint:
		return "Click to place keypoints"
	case ModeSelect:
		return "Click or drag to select, drag a selection to move it"
	case ModeConnect:
		return "Click two keypoints to connect them"
	case ModeEdit:
		return "Drag a polygon vertex to reshape it"
	}
	return ""
}
