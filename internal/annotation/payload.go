package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"annovis/internal/geom"
)

// ErrImageSize is returned when serializing before the image size is known.
var ErrImageSize = errors.New("image size unknown")

// BoxRecord is the stored form of a box, normalized to the image size.
type BoxRecord struct {
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type PolygonRecord struct {
	Type   string       `json:"type"`
	Label  string       `json:"label"`
	Points []geom.Point `json:"points"`
}

type KeypointRecord struct {
	Type       string  `json:"type"`
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility *bool   `json:"visibility,omitempty"`
}

// KeypointPayload is the stored form of a keypoint document.
type KeypointPayload struct {
	Annotations []KeypointRecord `json:"annotations"`
	Connections []Connection     `json:"connections"`
}

type ClassRecord struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type ClassificationPayload struct {
	Labels    []ClassRecord `json:"labels"`
	Timestamp string        `json:"timestamp,omitempty"`
}

// NewID returns a time-ordered random identifier.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Serialize encodes d as the normalized payload for its type.
func (d *Document) Serialize(size geom.Size) ([]byte, error) {
	v, err := d.Payload(size)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// Payload builds the normalized payload value without encoding it.
func (d *Document) Payload(size geom.Size) (any, error) {
	if d.Type != ImageClassification && !size.Known() {
		return nil, ErrImageSize
	}
	switch d.Type {
	case ObjectDetection:
		return boxRecords(d.Boxes, size), nil
	case InstanceDetection:
		return polygonRecords(d.Polygons, size), nil
	case KeypointDetection:
		return KeypointPayload{
			Annotations: keypointRecords(d.Keypoints, size),
			Connections: append([]Connection{}, d.Connections...),
		}, nil
	case ImageClassification:
		return classificationRecord(d.Classes), nil
	}
	return nil, fmt.Errorf("serialize: unknown annotation type %q", d.Type)
}

func boxRecords(boxes []*Box, size geom.Size) []BoxRecord {
	out := make([]BoxRecord, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, BoxRecord{
			Label:  b.Label,
			X:      b.X / size.W,
			Y:      b.Y / size.H,
			Width:  b.Width / size.W,
			Height: b.Height / size.H,
		})
	}
	return out
}

func polygonRecords(polys []*Polygon, size geom.Size) []PolygonRecord {
	out := make([]PolygonRecord, 0, len(polys))
	for _, p := range polys {
		pts := make([]geom.Point, len(p.Points))
		for i, pt := range p.Points {
			pts[i] = geom.Point{X: pt.X / size.W, Y: pt.Y / size.H}
		}
		out = append(out, PolygonRecord{Type: "polygon", Label: p.Label, Points: pts})
	}
	return out
}

func keypointRecords(kps []*Keypoint, size geom.Size) []KeypointRecord {
	out := make([]KeypointRecord, 0, len(kps))
	for _, k := range kps {
		vis := k.Visible
		out = append(out, KeypointRecord{
			Type:       "keypoint",
			ID:         k.ID,
			Label:      k.Label,
			X:          k.X / size.W,
			Y:          k.Y / size.H,
			Visibility: &vis,
		})
	}
	return out
}

func classificationRecord(c *Classification) ClassificationPayload {
	out := ClassificationPayload{Labels: []ClassRecord{}}
	if c == nil {
		return out
	}
	for _, e := range c.Entries {
		conf := e.Confidence
		out.Labels = append(out.Labels, ClassRecord{Name: e.Name, Confidence: &conf})
	}
	if !c.Timestamp.IsZero() {
		out.Timestamp = c.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// Hydrate decodes a normalized payload into a document in pixel space.
// Every shape is clamped to the image. Keypoints are only kept inside it:
// the marker radius belongs to the caller, which clamps again once it is
// set. newID supplies IDs for boxes,
// polygons and keypoints stored without one. An empty payload yields an
// empty document.
func Hydrate(t Type, data []byte, size geom.Size, newID func() string) (*Document, error) {
	if newID == nil {
		newID = NewID
	}
	d := NewDocument(t)
	if len(data) == 0 || string(data) == "null" {
		return d, nil
	}
	sw, sh := size.W, size.H
	if !size.Known() {
		sw, sh = 1, 1
	}
	switch t {
	case ObjectDetection:
		var recs []BoxRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("decode boxes: %w", err)
		}
		for _, r := range recs {
			b := &Box{ID: newID(), Label: r.Label, X: r.X * sw, Y: r.Y * sh, Width: r.Width * sw, Height: r.Height * sh}
			b.Clamp(size)
			d.Boxes = append(d.Boxes, b)
		}
	case InstanceDetection:
		var recs []PolygonRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, fmt.Errorf("decode polygons: %w", err)
		}
		for _, r := range recs {
			if (r.Type != "" && r.Type != "polygon") || len(r.Points) < MinPolygonPoints {
				continue
			}
			p := &Polygon{ID: newID(), Label: r.Label, Points: make([]geom.Point, len(r.Points))}
			for i, pt := range r.Points {
				p.Points[i] = geom.Point{X: pt.X * sw, Y: pt.Y * sh}
			}
			p.Clamp(size)
			d.Polygons = append(d.Polygons, p)
		}
	case KeypointDetection:
		var payload KeypointPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode keypoints: %w", err)
		}
		for _, r := range payload.Annotations {
			if r.Type != "" && r.Type != "keypoint" {
				continue
			}
			k := &Keypoint{ID: r.ID, Label: r.Label, X: r.X * sw, Y: r.Y * sh, Visible: true}
			if k.ID == "" {
				k.ID = newID()
			}
			if r.Visibility != nil {
				k.Visible = *r.Visibility
			}
			p := geom.ClampPoint(k.Point(), size)
			k.X, k.Y = p.X, p.Y
			d.Keypoints = append(d.Keypoints, k)
		}
		d.Connections = append(d.Connections, payload.Connections...)
		d.PruneConnections()
	case ImageClassification:
		var payload ClassificationPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode classification: %w", err)
		}
		for _, r := range payload.Labels {
			if r.Confidence == nil {
				d.Classes.Select(r.Name)
				continue
			}
			d.Classes.Select(r.Name)
			d.Classes.SetConfidence(r.Name, *r.Confidence)
		}
		if payload.Timestamp != "" {
			if ts, err := time.Parse(time.RFC3339Nano, payload.Timestamp); err == nil {
				d.Classes.Timestamp = ts
			}
		}
	default:
		return nil, fmt.Errorf("hydrate: unknown annotation type %q", t)
	}
	return d, nil
}
