// Package editor is the interactive core of the annotation tool. A Session
// owns the annotations of one image together with the label directory,
// selection, mode, viewport and undo history.
//
// The host drives a Session by passing events to Handle and acting on the
// returned effects: redraw, show a message, schedule or perform a save, or
// ask the user about a label. Project files and the clipboard are only
// touched by the host through events and effects. The one exception is the
// history: with a disk-backed history.SlotStore, Handle reads and writes
// slot files synchronously while pushing, undoing and redoing.
//
//	sess, _ := editor.New(editor.Options{Type: annotation.ObjectDetection, Labels: ls})
//	fx := sess.Handle(editor.ImageLoaded{Size: geom.Size{W: 640, H: 480}})
//	fx = sess.Handle(editor.PointerDown{Pos: geom.Point{X: 10, Y: 10}})
//
// Each completed user action, such as drawing a box, dragging a selection
// or deleting a label, adds exactly one history entry. Intermediate
// pointer moves never do.
package editor
