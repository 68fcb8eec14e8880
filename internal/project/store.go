// Package project is the file store behind the editor: a project's label
// list and the annotation files of each image, all kept under a
// workspace's .annovis directory.
//
//	.annovis/projects/<project>/project.json
//	.annovis/annotations/<project>/<image>.json      object-detection
//	.annovis/instances/<project>/<image>.json        instance-detection
//	.annovis/keypoints/<project>/<image>.json        keypoint-detection
//	.annovis/classifications/<project>/<image>.json  image-classification
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"annovis/internal/annotation"
	"annovis/internal/labels"
)

// DirName is the store directory created inside the workspace.
const DirName = ".annovis"

var (
	ErrLabelExists   = errors.New("label already exists")
	ErrLabelNotFound = errors.New("label not found")
	ErrInvalidName   = errors.New("invalid name")
)

// Store reads and writes one project. Methods may be called from several
// goroutines; label edits are serialized.
type Store struct {
	root    string
	name    string
	mu      sync.Mutex
	nowFunc func() time.Time
}

// Open prepares the project directory under root, seeding project.json
// with the default label when it does not exist yet.
func Open(root, name string) (*Store, error) {
	if err := validName(name); err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	s := &Store{root: root, name: name, nowFunc: time.Now}
	if err := os.MkdirAll(s.projectDir(), 0755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	if _, err := os.Stat(s.projectFile()); errors.Is(err, os.ErrNotExist) {
		seed := []labels.Label{{Name: labels.DefaultName, Color: labels.Palette[0]}}
		if err := s.writeLabels(seed); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat project file: %w", err)
	}
	return s, nil
}

// Projects lists the projects present under root.
func Projects(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, DirName, "projects"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Name() string { return s.name }
func (s *Store) Root() string { return s.root }

func (s *Store) projectDir() string {
	return filepath.Join(s.root, DirName, "projects", s.name)
}

func (s *Store) projectFile() string {
	return filepath.Join(s.projectDir(), "project.json")
}

func validName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// Labels returns the project's labels in order.
func (s *Store) Labels() ([]labels.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLabels()
}

// AddLabel appends a label with the next free palette colour. When the
// project only holds the default placeholder, the placeholder is removed
// and removedDefault is true.
func (s *Store) AddLabel(name string) (l labels.Label, removedDefault bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return l, false, fmt.Errorf("add label: %w", ErrInvalidName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, err := s.readLabels()
	if err != nil {
		return l, false, err
	}
	used := make([]string, 0, len(ls))
	for _, x := range ls {
		if x.Name == name {
			return l, false, fmt.Errorf("add label %q: %w", name, ErrLabelExists)
		}
		used = append(used, x.Color)
	}
	if len(ls) == 1 && ls[0].Name == labels.DefaultName {
		ls = ls[:0]
		removedDefault = true
	}
	l = labels.Label{Name: name, Color: labels.NextColor(used)}
	ls = append(ls, l)
	if err := s.writeLabels(ls); err != nil {
		return labels.Label{}, false, err
	}
	return l, removedDefault, nil
}

// RenameLabel keeps the label's colour and position.
func (s *Store) RenameLabel(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("rename label: %w", ErrInvalidName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, err := s.readLabels()
	if err != nil {
		return err
	}
	idx := -1
	for i, l := range ls {
		switch l.Name {
		case oldName:
			idx = i
		case newName:
			return fmt.Errorf("rename label to %q: %w", newName, ErrLabelExists)
		}
	}
	if idx < 0 {
		return fmt.Errorf("rename label %q: %w", oldName, ErrLabelNotFound)
	}
	ls[idx].Name = newName
	return s.writeLabels(ls)
}

// DeleteLabel removes name and returns the remaining labels.
func (s *Store) DeleteLabel(name string) ([]labels.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ls, err := s.readLabels()
	if err != nil {
		return nil, err
	}
	kept := ls[:0]
	for _, l := range ls {
		if l.Name != name {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(ls) {
		return ls, fmt.Errorf("delete label %q: %w", name, ErrLabelNotFound)
	}
	if err := s.writeLabels(kept); err != nil {
		return nil, err
	}
	return kept, nil
}

func (s *Store) readLabels() ([]labels.Label, error) {
	fields, err := s.readProject()
	if err != nil {
		return nil, err
	}
	var ls []labels.Label
	if raw, ok := fields["labels"]; ok {
		if err := json.Unmarshal(raw, &ls); err != nil {
			return nil, fmt.Errorf("decode project labels: %w", err)
		}
	}
	return ls, nil
}

// readProject returns project.json as raw fields so that writes keep keys
// this package does not know about.
func (s *Store) readProject() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.projectFile())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project labels: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode project file: %w", err)
	}
	return fields, nil
}

func (s *Store) writeLabels(ls []labels.Label) error {
	fields, err := s.readProject()
	if err != nil {
		return err
	}
	if ls == nil {
		ls = []labels.Label{}
	}
	raw, err := json.Marshal(ls)
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	fields["labels"] = raw
	return writeJSON(s.projectFile(), fields)
}

// kindDir maps an annotation type to its directory under .annovis.
func kindDir(t annotation.Type) (string, error) {
	switch t {
	case annotation.ObjectDetection:
		return "annotations", nil
	case annotation.InstanceDetection:
		return "instances", nil
	case annotation.KeypointDetection:
		return "keypoints", nil
	case annotation.ImageClassification:
		return "classifications", nil
	}
	return "", fmt.Errorf("unknown annotation type %q", t)
}

// writeJSON writes v indented to a temporary file and renames it over
// path, so readers never see a half-written file.
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
