package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"annovis/internal/annotation"
)

// FormatVersion is written into every annotation file's metadata.
const FormatVersion = "1.0"

type Metadata struct {
	ProjectName string `json:"projectName"`
	ProjectType string `json:"projectType"`
	ImageName   string `json:"imageName"`
	Created     string `json:"created"`
	Version     string `json:"version"`
}

// AnnotationPath returns the file holding the annotations of image.
func (s *Store) AnnotationPath(t annotation.Type, image string) (string, error) {
	dir, err := kindDir(t)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, DirName, dir, s.name, filepath.Base(image)+".json"), nil
}

// LoadAnnotations returns the stored payload for image in the form
// annotation.Hydrate expects. Files written with a metadata envelope and
// older bare payloads are both accepted. found is false when nothing has
// been saved yet.
func (s *Store) LoadAnnotations(t annotation.Type, image string) (payload []byte, found bool, err error) {
	path, err := s.AnnotationPath(t, image)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read annotations: %w", err)
	}
	payload, err = unwrap(t, data)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return payload, payload != nil, nil
}

func unwrap(t annotation.Type, data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		switch t {
		case annotation.KeypointDetection:
			return json.Marshal(struct {
				Annotations json.RawMessage `json:"annotations"`
				Connections []any           `json:"connections"`
			}{trimmed, []any{}})
		case annotation.ImageClassification:
			return nil, fmt.Errorf("unexpected array for %s", t)
		}
		return trimmed, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	_, enveloped := fields["metadata"]
	switch t {
	case annotation.ObjectDetection, annotation.InstanceDetection:
		if raw, ok := fields["annotations"]; ok && enveloped {
			return raw, nil
		}
		return nil, nil
	case annotation.KeypointDetection:
		if _, ok := fields["annotations"]; !ok {
			if _, ok := fields["connections"]; !ok {
				return nil, nil
			}
		}
		return json.Marshal(struct {
			Annotations json.RawMessage `json:"annotations,omitempty"`
			Connections json.RawMessage `json:"connections,omitempty"`
		}{fields["annotations"], fields["connections"]})
	case annotation.ImageClassification:
		if raw, ok := fields["classification"]; ok && enveloped {
			return raw, nil
		}
		if _, ok := fields["labels"]; ok {
			return trimmed, nil
		}
		if _, ok := fields["timestamp"]; ok {
			return trimmed, nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unknown annotation type %q", t)
}

// SaveAnnotations wraps payload, as produced by Document.Serialize, in a
// metadata envelope and writes it.
func (s *Store) SaveAnnotations(t annotation.Type, image string, payload []byte) error {
	path, err := s.AnnotationPath(t, image)
	if err != nil {
		return err
	}
	env := map[string]any{
		"metadata": Metadata{
			ProjectName: s.name,
			ProjectType: string(t),
			ImageName:   filepath.Base(image),
			Created:     s.nowFunc().UTC().Format(time.RFC3339Nano),
			Version:     FormatVersion,
		},
	}
	raw := json.RawMessage(payload)
	switch t {
	case annotation.ObjectDetection, annotation.InstanceDetection:
		env["annotations"] = raw
	case annotation.KeypointDetection:
		var kp struct {
			Annotations json.RawMessage `json:"annotations"`
			Connections json.RawMessage `json:"connections"`
		}
		if err := json.Unmarshal(payload, &kp); err != nil {
			return fmt.Errorf("decode keypoint payload: %w", err)
		}
		env["annotations"] = orEmpty(kp.Annotations)
		env["connections"] = orEmpty(kp.Connections)
	case annotation.ImageClassification:
		env["classification"] = raw
	}
	if err := writeJSON(path, env); err != nil {
		return fmt.Errorf("save annotations: %w", err)
	}
	return nil
}

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}
