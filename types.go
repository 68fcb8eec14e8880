package main

import (
	"image"
	"log/slog"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/labels"
	"annovis/internal/project"
)

type model struct {
	width         int
	height        int
	cursorX       int
	cursorY       int
	cursorDown    bool
	cursorVisible bool
	buttons       int
	uiMode        UIMode
	help          bool
	helpScroll    int

	session   *editor.Session
	store     *project.Store
	cache     *project.CacheDir
	kind      annotation.Type
	imagePath string
	imageName string
	image     image.Image
	stored    []byte
	fitted    bool
	lastGen   int
	unsaved   bool
	clipboard []byte

	prompt        PromptKind
	promptText    string
	promptTarget  string
	confirmAction ConfirmAction
	confirmLabel  string

	toast          string
	toastLevel     editor.Level
	errorMessage   string
	successMessage string

	config *Config
	log    *slog.Logger
}

// Messages produced by commands.
type (
	startMsg    struct{}
	saveDueMsg  struct{ gen int }
	saveDoneMsg struct {
		gen int
		err error
	}
	labelAddedMsg struct {
		label          labels.Label
		removedDefault bool
		err            error
	}
	labelRenamedMsg struct {
		oldName, newName string
		err              error
	}
	labelDeletedMsg struct {
		name string
		err  error
	}
	exportDoneMsg struct {
		path string
		err  error
	}
	copyDoneMsg  struct{ err error }
	pasteDataMsg struct {
		data []byte
		err  error
	}
	cacheClearedMsg struct{ err error }
)
