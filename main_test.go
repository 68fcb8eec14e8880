package main

import (
	"image"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/project"
)

// newTestModel builds a model over a 200x200 blank image in a temporary
// workspace, sized like an 80x24 terminal.
func newTestModel(t *testing.T, kind annotation.Type) model {
	t.Helper()
	store, err := project.Open(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ls, err := store.Labels()
	if err != nil {
		t.Fatalf("labels: %v", err)
	}
	config := DefaultConfig()
	config.AutosaveDelay = time.Millisecond
	session, err := editor.New(editor.Options{
		Type:          kind,
		Labels:        ls,
		AutosaveDelay: config.AutosaveDelay,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	m := model{
		width:     80,
		height:    24,
		session:   session,
		store:     store,
		kind:      kind,
		imagePath: "img.png",
		imageName: "img",
		image:     image.NewRGBA(image.Rect(0, 0, 200, 200)),
		config:    config,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return drain(t, m, m.Init())
}

// drain runs cmd and feeds every message it yields back into the model
// until no commands are left.
func drain(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatal("commands did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if msg == nil {
			continue
		}
		next, nc := m.Update(msg)
		m = next.(model)
		queue = append(queue, nc)
	}
	return m
}

func send(t *testing.T, m model, msgs ...tea.Msg) model {
	t.Helper()
	for _, msg := range msgs {
		next, cmd := m.Update(msg)
		m = drain(t, next.(model), cmd)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func mouse(x, y int, action tea.MouseAction, button tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: button}
}

func TestStartFitsImage(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	if !m.session.Loaded() || !m.fitted {
		t.Fatalf("loaded=%v fitted=%v", m.session.Loaded(), m.fitted)
	}
	// 54x22 cells is 432x352 px; the 200 px image scales by 1.76.
	if got := m.session.View().Scale; got < 1.759 || got > 1.761 {
		t.Errorf("scale = %v, want 1.76", got)
	}
}

func TestMouseDrawSavesBox(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m,
		mouse(10, 3, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionMotion, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionRelease, tea.MouseButtonLeft),
	)
	doc := m.session.Document()
	if doc.Len() != 1 {
		t.Fatalf("document has %d shapes, want 1", doc.Len())
	}
	if m.buttons != 0 {
		t.Errorf("buttons = %b after release", m.buttons)
	}
	// The autosave tick has fired and the save has completed.
	if m.unsaved {
		t.Error("change still unsaved")
	}
	path, err := m.store.AnnotationPath(annotation.ObjectDetection, "img")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("annotation file: %v", err)
	}
	if m.successMessage != "Annotations saved" {
		t.Errorf("successMessage = %q", m.successMessage)
	}
}

func TestReleaseWithoutButtonEndsDrag(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m,
		mouse(10, 3, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionMotion, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionRelease, tea.MouseButtonNone),
	)
	if m.buttons != 0 {
		t.Errorf("buttons = %b", m.buttons)
	}
	if m.session.Document().Len() != 1 {
		t.Error("box not committed")
	}
}

func TestReleaseWhilePromptOpen(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m,
		mouse(10, 3, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionMotion, tea.MouseButtonLeft),
		runes("a"),
	)
	if m.uiMode != UIPrompt {
		t.Fatalf("uiMode = %v, want prompt", m.uiMode)
	}
	m = send(t, m,
		mouse(30, 10, tea.MouseActionRelease, tea.MouseButtonLeft),
		tea.KeyMsg{Type: tea.KeyEsc},
	)
	if m.buttons != 0 {
		t.Errorf("buttons = %b after release", m.buttons)
	}
	doc := m.session.Document()
	if len(doc.Boxes) != 1 {
		t.Fatalf("boxes = %d, want 1", len(doc.Boxes))
	}
	before := *doc.Boxes[0]
	m = send(t, m, mouse(45, 18, tea.MouseActionMotion, tea.MouseButtonNone))
	if got := *m.session.Document().Boxes[0]; got != before {
		t.Errorf("box followed the pointer after the prompt: %+v -> %+v", before, got)
	}
}

func TestKeyboardPointerDraws(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	// Move onto the image, which starts 5 cells from the left edge.
	for i := 0; i < 5; i++ {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftRight})
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftDown})
	if m.cursorX != 10 || m.cursorY != 2 {
		t.Fatalf("cursor at %d,%d", m.cursorX, m.cursorY)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.cursorDown || !m.cursorVisible {
		t.Fatal("space did not press the pointer")
	}
	for i := 0; i < 6; i++ {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftRight}, tea.KeyMsg{Type: tea.KeyShiftDown})
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if m.cursorDown {
		t.Error("pointer still pressed")
	}
	if m.session.Document().Len() != 1 {
		t.Errorf("document has %d shapes, want 1", m.session.Document().Len())
	}
}

func TestAddLabelPrompt(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("a"))
	if m.uiMode != UIPrompt || m.prompt != PromptAddLabel {
		t.Fatalf("uiMode=%v prompt=%v", m.uiMode, m.prompt)
	}
	m = send(t, m, runes("ca"), runes("t"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.uiMode != UINormal {
		t.Errorf("prompt still open")
	}
	ls := m.session.Labels()
	if len(ls) != 1 || ls[0].Name != "cat" {
		t.Errorf("labels = %+v, want only cat", ls)
	}
	if m.session.CurrentLabel() != "cat" {
		t.Errorf("current label = %q", m.session.CurrentLabel())
	}
	stored, err := m.store.Labels()
	if err != nil || len(stored) != 1 || stored[0].Name != "cat" {
		t.Errorf("stored labels = %+v, %v", stored, err)
	}

	m = send(t, m, runes("a"), runes("cat"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.errorMessage != "Label already exists" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestPromptEscapeCancels(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("a"), runes("dog"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.uiMode != UINormal {
		t.Fatal("prompt still open")
	}
	if len(m.session.Labels()) != 1 {
		t.Errorf("labels = %+v", m.session.Labels())
	}
}

func TestRenameLabel(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("r"))
	if m.promptText != "Object" {
		t.Fatalf("prompt starts with %q", m.promptText)
	}
	m = send(t, m,
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace},
		tea.KeyMsg{Type: tea.KeyBackspace},
		runes("Thing"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if m.session.CurrentLabel() != "Thing" {
		t.Errorf("current label = %q", m.session.CurrentLabel())
	}
}

func TestDeleteLabelNeedsConfirmation(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("x"))
	if m.uiMode != UIConfirm {
		t.Fatal("no confirmation asked")
	}
	m = send(t, m, runes("n"))
	if len(m.session.Labels()) != 1 {
		t.Fatal("label deleted after declining")
	}

	m = send(t, m, runes("x"), runes("y"))
	if n := len(m.session.Labels()); n != 0 {
		t.Errorf("%d labels left", n)
	}
	if m.session.CurrentLabel() != "" {
		t.Errorf("current label = %q", m.session.CurrentLabel())
	}
}

func TestDeleteLabelRestoredByUndo(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("x"), runes("y"), runes("u"))
	if ls := m.session.Labels(); len(ls) != 1 {
		t.Fatalf("undo restored %d labels, want 1", len(ls))
	}
	if stored, _ := m.store.Labels(); len(stored) != 0 {
		t.Fatalf("store labels = %+v, want none", stored)
	}
	m = send(t, m, runes("x"), runes("y"))
	if n := len(m.session.Labels()); n != 0 {
		t.Errorf("%d labels left", n)
	}
	if m.errorMessage != "" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
}

func TestUndoRedoKeys(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("u"))
	if m.errorMessage != "Nothing to undo" {
		t.Errorf("errorMessage = %q", m.errorMessage)
	}
	m = send(t, m,
		mouse(10, 3, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionMotion, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionRelease, tea.MouseButtonLeft),
		tea.KeyMsg{Type: tea.KeyCtrlZ},
	)
	if m.session.Document().Len() != 0 {
		t.Fatal("undo left the box")
	}
	m = send(t, m, runes("U"))
	if m.session.Document().Len() != 1 {
		t.Fatal("redo did not restore the box")
	}
}

func TestModeKeys(t *testing.T) {
	m := newTestModel(t, annotation.InstanceDetection)
	tests := []struct {
		key  string
		want editor.Mode
	}{
		{"e", editor.ModeEdit},
		{"s", editor.ModeSelect},
		{"m", editor.ModeMove},
		{"p", editor.ModePolygon},
		// Keypoint mode does not exist for polygons.
		{"k", editor.ModePolygon},
	}
	for _, tt := range tests {
		m = send(t, m, runes(tt.key))
		if got := m.session.Mode(); got != tt.want {
			t.Errorf("after %q mode = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestNumberKeyTogglesClass(t *testing.T) {
	m := newTestModel(t, annotation.ImageClassification)
	m = send(t, m, runes("1"))
	sc := m.session.Scene()
	if len(sc.Classes) != 1 || sc.Classes[0].Name != "Object" {
		t.Fatalf("classes = %+v", sc.Classes)
	}
	m = send(t, m, runes("1"))
	if len(m.session.Scene().Classes) != 0 {
		t.Error("second press did not deselect")
	}
	m = send(t, m, runes("9"))
	if len(m.session.Scene().Classes) != 0 {
		t.Error("out of range number selected a class")
	}
}

func TestPasteFallsBackToInternalClipboard(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m,
		mouse(10, 3, tea.MouseActionPress, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionMotion, tea.MouseButtonLeft),
		mouse(30, 10, tea.MouseActionRelease, tea.MouseButtonLeft),
	)
	payload, err := m.session.Payload()
	if err != nil {
		t.Fatal(err)
	}
	m.clipboard = payload
	m = send(t, m, pasteDataMsg{err: os.ErrNotExist})
	if n := m.session.Document().Len(); n != 2 {
		t.Errorf("document has %d shapes after paste, want 2", n)
	}
}

func TestHelpScroll(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	m = send(t, m, runes("?"))
	if !m.help {
		t.Fatal("help not shown")
	}
	for i := 0; i < len(helpLines)+5; i++ {
		m = send(t, m, runes("j"))
	}
	if want := len(helpLines) - (m.height - 1); m.helpScroll != want {
		t.Errorf("helpScroll = %d, want %d", m.helpScroll, want)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.help {
		t.Error("help still shown")
	}
}

func TestViewLayout(t *testing.T) {
	m := newTestModel(t, annotation.ObjectDetection)
	out := m.View()
	if out == "" {
		t.Fatal("empty view")
	}
	m.help = true
	if got := m.View(); got != m.helpView() {
		t.Error("help view not shown")
	}
}
