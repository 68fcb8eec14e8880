package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/history"
	"annovis/internal/project"
)

// newHistory builds the undo strategy named in the config. The cache
// strategy keeps its slots next to the annotation files and starts from an
// empty directory, dropping slots left by an earlier run.
func newHistory(cfg *Config, store *project.Store, kind annotation.Type, image string) (history.History, *project.CacheDir, error) {
	if cfg.History != HistoryCache {
		return history.NewMemory(history.DefaultCapacity), nil, nil
	}
	dir, err := store.CacheDir(kind, image)
	if err != nil {
		return nil, nil, fmt.Errorf("open history cache: %w", err)
	}
	if err := dir.Clear(); err != nil {
		return nil, nil, fmt.Errorf("clear history cache: %w", err)
	}
	return history.NewCached(dir, history.DefaultCapacity), dir, nil
}

func (m *model) undo() tea.Cmd {
	if !m.session.CanUndo() {
		m.errorMessage = "Nothing to undo"
		return nil
	}
	return m.dispatch(editor.Undo{})
}

func (m *model) redo() tea.Cmd {
	if !m.session.CanRedo() {
		m.errorMessage = "Nothing to redo"
		return nil
	}
	return m.dispatch(editor.Redo{})
}

// clearHistoryCache removes the cache slots when the editor closes.
func (m *model) clearHistoryCache() tea.Cmd {
	cache := m.cache
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		return cacheClearedMsg{err: cache.Clear()}
	}
}
