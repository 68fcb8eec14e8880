package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/geom"
	"annovis/internal/project"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "annovis:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("annovis", flag.ContinueOnError)
	kind := fs.String("type", string(annotation.ObjectDetection), "annotation type: "+typeList())
	projectName := fs.String("project", config.Project, "project name")
	workspace := fs.String("workspace", config.Workspace, "directory holding "+project.DirName+" (default: the image's directory)")
	historyMode := fs.String("history", config.History, "undo history: memory or cache")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: annovis [flags] <image>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected one image path")
	}
	config.Project = *projectName
	config.Workspace = *workspace
	config.History = *historyMode
	config.Validate()

	t := annotation.Type(*kind)
	if !t.Valid() {
		return fmt.Errorf("unknown type %q, want one of %s", *kind, typeList())
	}

	logger, closer, err := NewLogger(config.LogLevel, config.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	m, err := newModel(config, logger, t, fs.Arg(0))
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err = p.Run()
	return err
}

func typeList() string {
	names := make([]string, len(annotation.Types))
	for i, t := range annotation.Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func newModel(config *Config, logger *slog.Logger, kind annotation.Type, imagePath string) (model, error) {
	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return model{}, fmt.Errorf("open image: %w", err)
	}
	store, err := project.Open(config.WorkspaceFor(imagePath), config.Project)
	if err != nil {
		return model{}, fmt.Errorf("open project: %w", err)
	}
	ls, err := store.Labels()
	if err != nil {
		return model{}, fmt.Errorf("read project labels: %w", err)
	}

	name := imageKey(imagePath)
	hist, cache, err := newHistory(config, store, kind, name)
	if err != nil {
		return model{}, err
	}
	session, err := editor.New(editor.Options{
		Type:           kind,
		Labels:         ls,
		History:        hist,
		MinBoxSize:     config.MinBoxSize,
		KeypointRadius: config.KeypointRadius,
		AutosaveDelay:  config.AutosaveDelay,
		Logger:         logger.With("image", name, "type", string(kind)),
	})
	if err != nil {
		return model{}, err
	}

	m := model{
		session:   session,
		store:     store,
		cache:     cache,
		kind:      kind,
		imagePath: imagePath,
		imageName: name,
		image:     img,
		config:    config,
		log:       logger,
	}
	stored, _, err := store.LoadAnnotations(kind, name)
	if err != nil {
		logger.Error("load annotations", "image", name, "err", err)
		m.errorMessage = "Could not load saved annotations: " + err.Error()
	}
	m.stored = stored
	return m, nil
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		b := m.image.Bounds()
		cmd := m.dispatch(editor.ImageLoaded{
			Size:     geom.Size{W: float64(b.Dx()), H: float64(b.Dy())},
			Existing: m.stored,
		})
		m.stored = nil
		if m.width > 0 {
			m.fitted = true
			cmd = tea.Batch(cmd, m.dispatch(editor.FitView{Viewport: m.viewport()}))
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorInBounds()
		if !m.fitted && m.session.Loaded() {
			m.fitted = true
			return m, m.dispatch(editor.FitView{Viewport: m.viewport()})
		}
		return m, nil

	case tea.MouseMsg:
		// A drag started before a prompt opened still has to end.
		if (m.help || m.uiMode != UINormal) && msg.Action != tea.MouseActionRelease {
			return m, nil
		}
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case saveDueMsg:
		return m, m.dispatch(editor.SaveDue{Gen: msg.gen})

	case saveDoneMsg:
		if msg.err == nil && msg.gen >= m.lastGen {
			m.unsaved = false
		}
		return m, m.dispatch(editor.SaveResult{Gen: msg.gen, Err: msg.err})

	case labelAddedMsg:
		if msg.err != nil {
			m.labelError("add", msg.err)
			return m, nil
		}
		cmd := m.dispatch(editor.LabelAdded{Label: msg.label, RemovedDefault: msg.removedDefault})
		m.setMessage(editor.LevelSuccess, "Label added: "+msg.label.Name)
		return m, cmd

	case labelRenamedMsg:
		if msg.err != nil {
			m.labelError("rename", msg.err)
			return m, nil
		}
		cmd := m.dispatch(editor.LabelRenamed{Old: msg.oldName, New: msg.newName})
		m.setMessage(editor.LevelSuccess, fmt.Sprintf("Renamed %s to %s", msg.oldName, msg.newName))
		return m, cmd

	case labelDeletedMsg:
		// An undo can bring back a label the project no longer has; drop it
		// from the editor all the same.
		if msg.err != nil && !errors.Is(msg.err, project.ErrLabelNotFound) {
			m.labelError("delete", msg.err)
			return m, nil
		}
		cmd := m.dispatch(editor.LabelDeleted{Name: msg.name})
		m.setMessage(editor.LevelSuccess, "Deleted label "+msg.name)
		return m, cmd

	case exportDoneMsg:
		if msg.err != nil {
			m.log.Error("export png", "path", msg.path, "err", msg.err)
			m.setMessage(editor.LevelError, "Export failed: "+msg.err.Error())
			return m, nil
		}
		m.setMessage(editor.LevelSuccess, "Exported "+msg.path)
		return m, nil

	case copyDoneMsg:
		if msg.err != nil {
			m.log.Debug("system clipboard unavailable", "err", msg.err)
		}
		m.setMessage(editor.LevelSuccess, "Copied selection")
		return m, nil

	case pasteDataMsg:
		data := msg.data
		if msg.err != nil || len(strings.TrimSpace(string(data))) == 0 {
			data = m.clipboard
		}
		if len(data) == 0 {
			m.setMessage(editor.LevelError, "Clipboard is empty")
			return m, nil
		}
		return m, m.dispatch(editor.Paste{Data: data})

	case cacheClearedMsg:
		if msg.err != nil {
			m.log.Error("clear history cache", "err", msg.err)
		}
		return m, nil
	}
	return m, nil
}

// dispatch hands ev to the session and turns the resulting effects into
// UI state and commands.
func (m *model) dispatch(ev editor.Event) tea.Cmd {
	var cmds []tea.Cmd
	for _, fx := range m.session.Handle(ev) {
		switch e := fx.(type) {
		case editor.Redraw:
			// View renders the current scene on every update.
		case editor.Toast:
			m.toast = e.Message
			m.toastLevel = e.Level
		case editor.Notify:
			m.setMessage(e.Level, e.Message)
		case editor.ScheduleSave:
			gen := e.Gen
			m.lastGen = gen
			m.unsaved = true
			cmds = append(cmds, tea.Tick(e.After, func(time.Time) tea.Msg {
				return saveDueMsg{gen: gen}
			}))
		case editor.SaveAnnotations:
			cmds = append(cmds, m.saveCmd(e.Gen, e.Payload))
		case editor.RequestAddLabel:
			m.openPrompt(PromptAddLabel, "", "")
		case editor.RequestRenameLabel:
			m.openPrompt(PromptRenameLabel, e.Current, e.Current)
		case editor.RequestDeleteLabel:
			if m.config.Confirmations {
				m.askConfirm(ConfirmDeleteLabel, e.Name)
			} else {
				cmds = append(cmds, m.deleteLabelCmd(e.Name))
			}
		}
	}
	return tea.Batch(cmds...)
}

func (m *model) saveCmd(gen int, payload []byte) tea.Cmd {
	store, kind, name := m.store, m.kind, m.imageName
	return func() tea.Msg {
		return saveDoneMsg{gen: gen, err: store.SaveAnnotations(kind, name, payload)}
	}
}

func (m *model) addLabelCmd(name string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		l, removed, err := store.AddLabel(name)
		return labelAddedMsg{label: l, removedDefault: removed, err: err}
	}
}

func (m *model) renameLabelCmd(oldName, newName string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return labelRenamedMsg{oldName: oldName, newName: newName, err: store.RenameLabel(oldName, newName)}
	}
}

func (m *model) deleteLabelCmd(name string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		_, err := store.DeleteLabel(name)
		return labelDeletedMsg{name: name, err: err}
	}
}

func (m *model) exportCmd(path string) tea.Cmd {
	sc := m.session.Scene()
	img := m.image
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: exportPNG(path, sc, img)}
	}
}

func (m *model) copySelection() tea.Cmd {
	data, err := m.session.CopySelection()
	if errors.Is(err, editor.ErrNothingSelected) {
		m.setMessage(editor.LevelError, "Nothing selected")
		return nil
	}
	if err != nil {
		m.log.Error("copy selection", "err", err)
		m.setMessage(editor.LevelError, "Copy failed: "+err.Error())
		return nil
	}
	m.clipboard = data
	return func() tea.Msg {
		return copyDoneMsg{err: writeClipboardText(string(data))}
	}
}

func pasteCmd() tea.Msg {
	text, err := readClipboardText()
	return pasteDataMsg{data: []byte(text), err: err}
}

func (m *model) labelError(op string, err error) {
	m.log.Error(op+" label", "err", err)
	switch {
	case errors.Is(err, project.ErrLabelExists):
		m.setMessage(editor.LevelError, "Label already exists")
	case errors.Is(err, project.ErrLabelNotFound):
		m.setMessage(editor.LevelError, "Label not found")
	case errors.Is(err, project.ErrInvalidName):
		m.setMessage(editor.LevelError, "Invalid label name")
	default:
		m.setMessage(editor.LevelError, fmt.Sprintf("Failed to %s label: %v", op, err))
	}
}

// quit flushes a pending save, removes the history cache and exits.
func (m *model) quit() tea.Cmd {
	var cmds []tea.Cmd
	if m.unsaved {
		for _, fx := range m.session.Handle(editor.Save{}) {
			if e, ok := fx.(editor.SaveAnnotations); ok {
				cmds = append(cmds, m.saveCmd(e.Gen, e.Payload))
			}
		}
	}
	if c := m.clearHistoryCache(); c != nil {
		cmds = append(cmds, c)
	}
	cmds = append(cmds, tea.Quit)
	return tea.Sequence(cmds...)
}

var modeKeys = map[string]editor.Mode{
	"d": editor.ModeDraw,
	"p": editor.ModePolygon,
	"k": editor.ModeKeypoint,
	"c": editor.ModeConnect,
	"e": editor.ModeEdit,
	"s": editor.ModeSelect,
	"m": editor.ModeMove,
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if m.help {
		m.handleHelpKey(key)
		return nil
	}
	switch m.uiMode {
	case UIPrompt:
		return m.handlePromptKey(msg)
	case UIConfirm:
		return m.handleConfirmKey(key)
	}

	m.clearMessages()
	switch key {
	case "ctrl+c":
		return m.quit()
	case "q":
		if m.config.Confirmations && m.unsaved {
			m.askConfirm(ConfirmQuit, "")
			return nil
		}
		return m.quit()
	case "?":
		m.help = true
		m.helpScroll = 0
		return nil
	case "[":
		return m.cycleLabel(-1)
	case "]":
		return m.cycleLabel(1)
	case "a":
		return m.dispatch(editor.AddLabelClicked{})
	case "r":
		return m.dispatch(editor.RenameLabelClicked{})
	case "x":
		return m.dispatch(editor.DeleteLabelClicked{})
	case "enter":
		return m.dispatch(editor.KeyPress{Key: editor.KeyEnter})
	case "esc":
		var cmd tea.Cmd
		if m.cursorDown {
			cmd = m.toggleCursorPress()
		}
		return tea.Batch(cmd, m.dispatch(editor.KeyPress{Key: editor.KeyEscape}))
	case "delete", "backspace":
		return m.dispatch(editor.KeyPress{Key: editor.KeyDelete})
	case "u", "ctrl+z":
		return m.undo()
	case "U", "ctrl+y":
		return m.redo()
	case "ctrl+s":
		return m.dispatch(editor.Save{})
	case "S":
		m.openPrompt(PromptExport, defaultExportName(m.imagePath), "")
		return nil
	case "y":
		return m.copySelection()
	case "P":
		return pasteCmd
	case "t":
		return m.dispatch(editor.ToggleSkeleton{})
	case "C":
		return m.dispatch(editor.ClearConnections{})
	case "+", "=":
		return m.dispatch(editor.Wheel{Pos: m.zoomPivot(), DeltaY: -zoomStep})
	case "-":
		return m.dispatch(editor.Wheel{Pos: m.zoomPivot(), DeltaY: zoomStep})
	case "0":
		return m.dispatch(editor.FitView{Viewport: m.viewport()})
	case " ":
		m.cursorVisible = true
		return m.toggleCursorPress()
	case "left", "right", "up", "down", "shift+left", "shift+right", "shift+up", "shift+down":
		m.cursorVisible = true
		return m.handleNavigation(key)
	}

	if mode, ok := modeKeys[key]; ok {
		return m.dispatch(editor.SetMode{Mode: mode})
	}
	if n, err := strconv.Atoi(key); err == nil {
		return m.numberKey(n)
	}
	return nil
}

// numberKey toggles the n-th class in classification and selects the
// n-th label elsewhere.
func (m *model) numberKey(n int) tea.Cmd {
	name, ok := m.labelAt(n)
	if !ok {
		return nil
	}
	if m.kind == annotation.ImageClassification {
		return m.dispatch(editor.ToggleClass{Name: name})
	}
	return m.dispatch(editor.SelectLabel{Name: name})
}

// zoomPivot is the keyboard pointer when it is in use, else the centre of
// the canvas.
func (m *model) zoomPivot() geom.Point {
	if m.cursorVisible {
		return cellCentre(m.cursorX, m.cursorY)
	}
	vp := m.viewport()
	return geom.Point{X: vp.W / 2, Y: vp.H / 2}
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	pos, inside := m.screenPos(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			return m.dispatch(editor.Wheel{Pos: pos, DeltaY: -wheelStep})
		case tea.MouseButtonWheelDown:
			return m.dispatch(editor.Wheel{Pos: pos, DeltaY: wheelStep})
		}
		b, ok := editorButton(msg.Button)
		if !ok || !inside {
			return nil
		}
		m.clearMessages()
		m.buttons |= pressedMask(b)
		return m.dispatch(editor.PointerDown{Pos: pos, Button: b, Shift: msg.Shift})

	case tea.MouseActionMotion:
		return m.dispatch(editor.PointerMove{Pos: pos, Buttons: m.buttons})

	case tea.MouseActionRelease:
		if b, ok := editorButton(msg.Button); ok && m.buttons&pressedMask(b) != 0 {
			m.buttons &^= pressedMask(b)
			return m.dispatch(editor.PointerUp{Pos: pos, Button: b})
		}
		// Some terminals do not say which button was released.
		var cmds []tea.Cmd
		for _, b := range []editor.Button{editor.ButtonLeft, editor.ButtonRight, editor.ButtonMiddle} {
			if m.buttons&pressedMask(b) != 0 {
				m.buttons &^= pressedMask(b)
				cmds = append(cmds, m.dispatch(editor.PointerUp{Pos: pos, Button: b}))
			}
		}
		return tea.Batch(cmds...)
	}
	return nil
}

func editorButton(b tea.MouseButton) (editor.Button, bool) {
	switch b {
	case tea.MouseButtonLeft:
		return editor.ButtonLeft, true
	case tea.MouseButtonRight:
		return editor.ButtonRight, true
	case tea.MouseButtonMiddle:
		return editor.ButtonMiddle, true
	}
	return 0, false
}

func pressedMask(b editor.Button) int {
	switch b {
	case editor.ButtonRight:
		return editor.PressedRight
	case editor.ButtonMiddle:
		return editor.PressedMiddle
	}
	return editor.PressedLeft
}

func (m *model) openPrompt(kind PromptKind, text, target string) {
	m.uiMode = UIPrompt
	m.prompt = kind
	m.promptText = text
	m.promptTarget = target
}

func (m *model) askConfirm(action ConfirmAction, label string) {
	m.uiMode = UIConfirm
	m.confirmAction = action
	m.confirmLabel = label
}

func (m *model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.uiMode = UINormal
		return nil
	case tea.KeyEnter:
		m.uiMode = UINormal
		return m.submitPrompt(strings.TrimSpace(m.promptText))
	case tea.KeyBackspace:
		if r := []rune(m.promptText); len(r) > 0 {
			m.promptText = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.promptText += " "
	case tea.KeyRunes:
		m.promptText += string(msg.Runes)
	}
	return nil
}

func (m *model) submitPrompt(text string) tea.Cmd {
	switch m.prompt {
	case PromptAddLabel:
		if text == "" {
			m.setMessage(editor.LevelError, "Label name cannot be empty")
			return nil
		}
		return m.addLabelCmd(text)
	case PromptRenameLabel:
		if text == "" || text == m.promptTarget {
			return nil
		}
		return m.renameLabelCmd(m.promptTarget, text)
	case PromptExport:
		if text == "" {
			text = defaultExportName(m.imagePath)
		}
		return m.exportCmd(text)
	}
	return nil
}

func (m *model) handleConfirmKey(key string) tea.Cmd {
	m.uiMode = UINormal
	if key != "y" && key != "Y" {
		return nil
	}
	switch m.confirmAction {
	case ConfirmDeleteLabel:
		return m.deleteLabelCmd(m.confirmLabel)
	case ConfirmQuit:
		return m.quit()
	}
	return nil
}

func (m model) promptTitle() string {
	switch m.prompt {
	case PromptAddLabel:
		return "New label"
	case PromptRenameLabel:
		return "Rename " + m.promptTarget + " to"
	case PromptExport:
		return "Export PNG to"
	}
	return ""
}

func (m model) confirmQuestion() string {
	switch m.confirmAction {
	case ConfirmDeleteLabel:
		return fmt.Sprintf("Delete label %q and all its annotations?", m.confirmLabel)
	case ConfirmQuit:
		return "Quit before the last change is saved?"
	}
	return ""
}

func (m model) View() string {
	if m.help {
		return m.helpView()
	}
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}

	cols, rows := m.canvasSize()
	canvas := NewCanvas(cols, rows)
	canvas.Render(m.session.Scene(), m.image)
	if m.cursorVisible {
		canvas.cursor(m.cursorX, m.cursorY)
	}
	body := strings.Join(canvas.Lines(), "\n")
	if m.showSidebar() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.sidebarView(rows))
	}

	var result strings.Builder
	result.WriteString(m.topBar(m.width))
	result.WriteString("\n")
	result.WriteString(body)
	result.WriteString("\n")
	result.WriteString(m.statusLine(m.width))
	return result.String()
}

func (m model) modeString() string {
	switch m.uiMode {
	case UIPrompt:
		return "PROMPT"
	case UIConfirm:
		return "CONFIRM"
	}
	return strings.ToUpper(m.session.Mode().String())
}

func (m *model) handleHelpKey(key string) {
	switch key {
	case "esc", "q", "?":
		m.help = false
		m.helpScroll = 0
	case "j", "down":
		visibleHeight := max(m.height-1, 1)
		maxScroll := max(len(helpLines)-visibleHeight, 0)
		if m.helpScroll < maxScroll {
			m.helpScroll++
		}
	case "k", "up":
		if m.helpScroll > 0 {
			m.helpScroll--
		}
	default:
		m.help = false
		m.helpScroll = 0
	}
}

func (m model) helpView() string {
	visibleHeight := max(m.height-1, 1)
	startLine := min(m.helpScroll, max(len(helpLines)-visibleHeight, 0))
	endLine := min(startLine+visibleHeight, len(helpLines))

	result := strings.Join(helpLines[startLine:endLine], "\n")
	statusLine := fmt.Sprintf("Help (%d-%d of %d lines) | j/k to scroll, Esc to close",
		startLine+1, endLine, len(helpLines))
	return result + "\n" + statusLine
}
