package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"annovis/internal/geom"
)

// seqID returns a deterministic ID generator for tests.
func seqID(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func almostEqualJSON(t *testing.T, a, b []byte) {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		t.Fatalf("decode a: %v", err)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		t.Fatalf("decode b: %v", err)
	}
	if !closeValues(va, vb) {
		t.Errorf("payloads differ:\n%s\n%s", a, b)
	}
}

func closeValues(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && math.Abs(x-y) < 1e-9
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !closeValues(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k := range x {
			if !closeValues(x[k], y[k]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func TestSerialize_BoxScenario(t *testing.T) {
	d := NewDocument(ObjectDetection)
	if err := d.Add(&Box{ID: "b1", Label: "cat", X: 10, Y: 10, Width: 100, Height: 100}); err != nil {
		t.Fatal(err)
	}
	data, err := d.Serialize(geom.Size{W: 200, H: 200})
	if err != nil {
		t.Fatal(err)
	}
	var recs []BoxRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatal(err)
	}
	want := BoxRecord{Label: "cat", X: 0.05, Y: 0.05, Width: 0.5, Height: 0.5}
	if len(recs) != 1 || recs[0] != want {
		t.Errorf("records = %+v, want [%+v]", recs, want)
	}
}

func TestSerialize_UnknownSize(t *testing.T) {
	d := NewDocument(ObjectDetection)
	if _, err := d.Serialize(geom.Size{}); !errors.Is(err, ErrImageSize) {
		t.Errorf("err = %v, want ErrImageSize", err)
	}
	c := NewDocument(ImageClassification)
	if _, err := c.Serialize(geom.Size{}); err != nil {
		t.Errorf("classification does not need a size: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	size := geom.Size{W: 640, H: 480}
	tests := []struct {
		name string
		doc  func() *Document
	}{
		{"boxes", func() *Document {
			d := NewDocument(ObjectDetection)
			d.Add(&Box{ID: "a", Label: "cat", X: 13.7, Y: 99.1, Width: 120.3, Height: 17})
			d.Add(&Box{ID: "b", Label: "dog", X: 0, Y: 0, Width: 640, Height: 480})
			return d
		}},
		{"polygons", func() *Document {
			d := NewDocument(InstanceDetection)
			d.Add(&Polygon{ID: "p", Label: "road", Points: []geom.Point{{X: 1, Y: 2}, {X: 300.5, Y: 40}, {X: 600, Y: 470}, {X: 20, Y: 460}}})
			return d
		}},
		{"keypoints", func() *Document {
			d := NewDocument(KeypointDetection)
			d.Add(&Keypoint{ID: "k1", Label: "joint", X: 50, Y: 50, Visible: true})
			d.Add(&Keypoint{ID: "k2", Label: "joint", X: 150.25, Y: 320, Visible: false})
			if err := d.Connect("k1", "k2"); err != nil {
				panic(err)
			}
			return d
		}},
		{"classification", func() *Document {
			d := NewDocument(ImageClassification)
			d.Classes.Select("cat")
			d.Classes.SetConfidence("dog", 0.25)
			return d
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.doc()
			first, err := d.Serialize(size)
			if err != nil {
				t.Fatal(err)
			}
			h, err := Hydrate(d.Type, first, size, seqID("h"))
			if err != nil {
				t.Fatal(err)
			}
			second, err := h.Serialize(size)
			if err != nil {
				t.Fatal(err)
			}
			almostEqualJSON(t, first, second)
		})
	}
}

func TestHydrate_ClampsStaleData(t *testing.T) {
	data := []byte(`[{"label":"cat","x":0.9,"y":-0.1,"width":0.5,"height":0.2}]`)
	d, err := Hydrate(ObjectDetection, data, geom.Size{W: 100, H: 100}, seqID("b"))
	if err != nil {
		t.Fatal(err)
	}
	b := d.Boxes[0]
	if b.X != 50 || b.Y != 0 || b.ID != "b1" {
		t.Errorf("box = %+v, want clamped to x=50 y=0", b)
	}
}

func TestHydrate_DropsDanglingConnectionsAndDefaults(t *testing.T) {
	data := []byte(`{"annotations":[{"type":"keypoint","id":"a","label":"j","x":0.5,"y":0.5}],
		"connections":[{"from":"a","to":"ghost"}]}`)
	d, err := Hydrate(KeypointDetection, data, geom.Size{W: 100, H: 100}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Connections) != 0 {
		t.Errorf("dangling connection kept: %v", d.Connections)
	}
	if !d.Keypoints[0].Visible {
		t.Error("missing visibility should default to visible")
	}

	c, err := Hydrate(ImageClassification, []byte(`{"labels":[{"name":"cat"},{"name":"cat"}]}`), geom.Size{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Classes.Entries) != 1 || c.Classes.Entries[0].Confidence != DefaultConfidence {
		t.Errorf("classification entries = %+v", c.Classes.Entries)
	}
}

func TestHydrate_EmptyAndBadPayloads(t *testing.T) {
	d, err := Hydrate(InstanceDetection, nil, geom.Size{W: 10, H: 10}, nil)
	if err != nil || d.Len() != 0 {
		t.Errorf("empty payload: doc=%v err=%v", d, err)
	}
	if _, err := Hydrate(ObjectDetection, []byte(`{"nope":1}`), geom.Size{W: 10, H: 10}, nil); err == nil {
		t.Error("object payload must be an array")
	}
	p, err := Hydrate(InstanceDetection, []byte(`[{"type":"polygon","label":"x","points":[{"x":0,"y":0},{"x":1,"y":1}]}]`), geom.Size{W: 10, H: 10}, nil)
	if err != nil || len(p.Polygons) != 0 {
		t.Errorf("degenerate polygon should be skipped: %v %v", p.Polygons, err)
	}
}

func TestConnect(t *testing.T) {
	d := NewDocument(KeypointDetection)
	d.Add(&Keypoint{ID: "A", Label: "j"})
	d.Add(&Keypoint{ID: "B", Label: "j"})

	if err := d.Connect("A", "B"); err != nil {
		t.Fatal(err)
	}
	if err := d.Connect("B", "A"); !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("B-A err = %v, want ErrDuplicateConnection", err)
	}
	if err := d.Connect("A", "A"); !errors.Is(err, ErrSelfConnection) {
		t.Errorf("A-A err = %v, want ErrSelfConnection", err)
	}
	if err := d.Connect("A", "Z"); !errors.Is(err, ErrUnknownKeypoint) {
		t.Errorf("A-Z err = %v, want ErrUnknownKeypoint", err)
	}
	if len(d.Connections) != 1 {
		t.Errorf("connections = %v, want exactly one", d.Connections)
	}
}

func TestRemoveKeypoint_PrunesConnections(t *testing.T) {
	d := NewDocument(KeypointDetection)
	d.Add(&Keypoint{ID: "K1", Label: "joint", X: 50, Y: 50})
	d.Add(&Keypoint{ID: "K2", Label: "joint", X: 150, Y: 150})
	if err := d.Connect("K1", "K2"); err != nil {
		t.Fatal(err)
	}
	if !d.Remove("K1") {
		t.Fatal("remove K1 failed")
	}
	if len(d.Connections) != 0 {
		t.Errorf("connections = %v, want none", d.Connections)
	}
	if len(d.Keypoints) != 1 || d.Keypoints[0].ID != "K2" {
		t.Errorf("keypoints = %v, want only K2", d.Keypoints)
	}
}

func TestLabelCascade(t *testing.T) {
	d := NewDocument(KeypointDetection)
	d.Add(&Keypoint{ID: "a", Label: "head"})
	d.Add(&Keypoint{ID: "b", Label: "hand"})
	d.Add(&Keypoint{ID: "c", Label: "hand"})
	d.Connect("a", "b")
	d.Connect("b", "c")

	if n := d.RenameLabel("hand", "paw"); n != 2 {
		t.Errorf("renamed %d shapes, want 2", n)
	}
	if _, ok := d.Keypoint("b"); !ok {
		t.Fatal("rename must keep IDs")
	}
	removed := d.DeleteLabel("paw")
	if len(removed) != 2 {
		t.Errorf("removed %v, want b and c", removed)
	}
	if d.References("paw") || len(d.Connections) != 0 {
		t.Errorf("label still referenced: keypoints=%v connections=%v", d.Keypoints, d.Connections)
	}
}

func TestAdd_RejectsWrongTypeAndShortPolygon(t *testing.T) {
	d := NewDocument(ObjectDetection)
	if err := d.Add(&Keypoint{ID: "k"}); !errors.Is(err, ErrWrongType) {
		t.Errorf("err = %v, want ErrWrongType", err)
	}
	p := NewDocument(InstanceDetection)
	if err := p.Add(&Polygon{ID: "p", Points: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("err = %v, want ErrTooFewPoints", err)
	}
}

func TestClone_IsDeep(t *testing.T) {
	d := NewDocument(InstanceDetection)
	d.Add(&Polygon{ID: "p", Label: "x", Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}})
	c := d.Clone()
	c.Polygons[0].Points[0].X = 99
	c.Polygons[0].Label = "y"
	if d.Polygons[0].Points[0].X != 0 || d.Polygons[0].Label != "x" {
		t.Error("clone shares state with the original")
	}
}

func TestClassification_SetSemantics(t *testing.T) {
	c := &Classification{}
	for _, n := range []string{"cat", "dog", "cat"} {
		c.Select(n)
	}
	if want := []string{"cat", "dog"}; !reflect.DeepEqual(c.Names(), want) {
		t.Errorf("names = %v, want %v", c.Names(), want)
	}
	c.SetConfidence("dog", 3)
	if c.Entries[1].Confidence != 1 {
		t.Errorf("confidence not clamped: %v", c.Entries[1].Confidence)
	}
	if c.Toggle("cat") || c.Has("cat") {
		t.Error("toggle should remove cat")
	}
}

func TestPolygon_ClampTranslatesOnly(t *testing.T) {
	p := &Polygon{Points: []geom.Point{{X: -10, Y: 5}, {X: 20, Y: 5}, {X: 5, Y: 30}}}
	p.Clamp(geom.Size{W: 100, H: 100})
	want := []geom.Point{{X: 0, Y: 5}, {X: 30, Y: 5}, {X: 15, Y: 30}}
	if !reflect.DeepEqual(p.Points, want) {
		t.Errorf("points = %v, want %v", p.Points, want)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
