package labels

import (
	"math"
	"reflect"
	"testing"
)

func TestDirectory_AddRenameDelete(t *testing.T) {
	d := NewDirectory([]Label{{Name: "cat", Color: "#e6194b"}, {Name: "dog", Color: "#3cb44b"}})

	if d.Add(Label{Name: "cat", Color: "#000000"}) {
		t.Error("duplicate add should be rejected")
	}
	if !d.Add(Label{Name: "bird"}) {
		t.Fatal("add bird failed")
	}
	if got := d.Color("bird"); got != "#ffe119" {
		t.Errorf("bird colour = %s, want next palette colour #ffe119", got)
	}

	if !d.Rename("cat", "kitten") {
		t.Fatal("rename failed")
	}
	if d.Has("cat") || d.Color("kitten") != "#e6194b" {
		t.Errorf("rename did not carry colour: has(cat)=%v colour=%s", d.Has("cat"), d.Color("kitten"))
	}
	if want := []string{"kitten", "dog", "bird"}; !reflect.DeepEqual(d.Names(), want) {
		t.Errorf("order after rename = %v, want %v", d.Names(), want)
	}
	if d.Rename("dog", "bird") {
		t.Error("rename onto an existing name should be rejected")
	}

	if !d.Delete("dog") || d.Has("dog") {
		t.Error("delete dog failed")
	}
	if d.Delete("dog") {
		t.Error("second delete should report false")
	}
	if d.Len() != 2 || d.First() != "kitten" || d.Index("bird") != 1 {
		t.Errorf("unexpected directory state: %v", d.Labels())
	}
}

func TestDirectory_EmptyIsUsable(t *testing.T) {
	d := NewDirectory(nil)
	if d.First() != "" || d.Len() != 0 {
		t.Error("empty directory should have no first label")
	}
	if d.Color("anything") != FallbackColor {
		t.Error("unknown label should use the fallback colour")
	}
}

func TestNextColor(t *testing.T) {
	if got := NextColor(nil); got != Palette[0] {
		t.Errorf("NextColor(nil) = %s, want %s", got, Palette[0])
	}
	if got := NextColor([]string{"#E6194B"}); got != Palette[1] {
		t.Errorf("NextColor should compare case-insensitively, got %s", got)
	}
	got := NextColor(Palette)
	if !Valid(got) {
		t.Errorf("exhausted palette produced invalid colour %q", got)
	}
}

func TestRGBA(t *testing.T) {
	r, g, b, a := RGBA("#ff0000", 0.2)
	if math.Abs(r-1) > 1e-9 || g != 0 || b != 0 || a != 0.2 {
		t.Errorf("RGBA = %v %v %v %v", r, g, b, a)
	}
	r, _, _, _ = RGBA("not a colour", 1)
	if math.Abs(r-1) > 1e-9 {
		t.Error("invalid colour should fall back to red")
	}
}
