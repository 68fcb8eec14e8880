package geom

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClampRect_StaysInside(t *testing.T) {
	size := Size{W: 200, H: 100}
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{"inside", Rect{10, 10, 50, 50}, Rect{10, 10, 50, 50}},
		{"past left", Rect{-20, 10, 50, 50}, Rect{0, 10, 50, 50}},
		{"past right", Rect{180, 10, 50, 50}, Rect{150, 10, 50, 50}},
		{"past bottom", Rect{10, 90, 50, 50}, Rect{10, 50, 50, 50}},
		{"past top left", Rect{-5, -5, 10, 10}, Rect{0, 0, 10, 10}},
		{"wider than image", Rect{-30, 0, 400, 20}, Rect{0, 0, 200, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampRect(tt.in, size)
			if got != tt.want {
				t.Errorf("ClampRect(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampRect_Property(t *testing.T) {
	sizes := []Size{{200, 200}, {640, 480}, {1, 1}, {37, 911}}
	for _, size := range sizes {
		for x := -500.0; x <= 1500; x += 137 {
			for w := 0.0; w <= 1200; w += 173 {
				r := ClampRect(Rect{Left: x, Top: -x / 2, Width: w, Height: w / 3}, size)
				if r.Left < 0 || r.Top < 0 || r.Right() > size.W+1e-9 || r.Bottom() > size.H+1e-9 {
					t.Fatalf("size %v: clamped rect %v escapes the image", size, r)
				}
			}
		}
	}
}

func TestClamps_UnknownSizeIsNoop(t *testing.T) {
	r := Rect{-10, -10, 5, 5}
	if got := ClampRect(r, Size{}); got != r {
		t.Errorf("ClampRect with zero size = %v, want unchanged", got)
	}
	p := Point{-3, 9999}
	if got := ClampPoint(p, Size{W: 0, H: 100}); got != p {
		t.Errorf("ClampPoint with zero width = %v, want unchanged", got)
	}
	if got := ClampMarker(p, 6, Size{}); got != p {
		t.Errorf("ClampMarker with zero size = %v, want unchanged", got)
	}
	if dx, dy := ClampTranslation([]Point{{-5, -5}, {5, 5}}, Size{}); dx != 0 || dy != 0 {
		t.Errorf("ClampTranslation with zero size = (%v,%v), want (0,0)", dx, dy)
	}
}

func TestClampMarker(t *testing.T) {
	size := Size{W: 100, H: 50}
	got := ClampMarker(Point{-4, 80}, 6, size)
	if got != (Point{6, 44}) {
		t.Errorf("ClampMarker = %v, want {6 44}", got)
	}
}

func TestClampTranslation_MovesWithoutReshaping(t *testing.T) {
	size := Size{W: 100, H: 100}
	pts := []Point{{90, 10}, {130, 10}, {110, 40}}
	dx, dy := ClampTranslation(pts, size)
	if !almost(dx, -30) || !almost(dy, 0) {
		t.Fatalf("ClampTranslation = (%v,%v), want (-30,0)", dx, dy)
	}
	b := Bounds(pts)
	if !almost(b.Width, 40) || !almost(b.Height, 30) {
		t.Errorf("bounds = %v", b)
	}
}

func TestDragRect(t *testing.T) {
	size := Size{W: 200, H: 200}
	tests := []struct {
		name           string
		anchor, cursor Point
		want           Rect
	}{
		{"down right", Point{10, 10}, Point{110, 110}, Rect{10, 10, 100, 100}},
		{"up left", Point{110, 110}, Point{10, 10}, Rect{10, 10, 100, 100}},
		{"overflow right", Point{150, 150}, Point{260, 230}, Rect{150, 150, 50, 50}},
		{"overflow left", Point{50, 50}, Point{-20, -30}, Rect{0, 0, 50, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DragRect(tt.anchor, tt.cursor, size); got != tt.want {
				t.Errorf("DragRect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPointInPolygon(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	if !PointInPolygon(Point{5, 5}, square) {
		t.Error("centre should be inside")
	}
	if PointInPolygon(Point{15, 5}, square) {
		t.Error("outside point reported inside")
	}
}

func TestSegmentDist(t *testing.T) {
	if d := SegmentDist(Point{5, 3}, Point{0, 0}, Point{10, 0}); !almost(d, 3) {
		t.Errorf("SegmentDist = %v, want 3", d)
	}
	if d := SegmentDist(Point{-4, 3}, Point{0, 0}, Point{10, 0}); !almost(d, 5) {
		t.Errorf("SegmentDist past endpoint = %v, want 5", d)
	}
}

func TestAffine_ZoomAtKeepsPivot(t *testing.T) {
	a := Affine{Scale: 1.5, TX: 20, TY: -10}
	pivot := Point{100, 80}
	before := a.Invert(pivot)
	z := a.ZoomAt(pivot, 3)
	after := z.Invert(pivot)
	if !almost(before.X, after.X) || !almost(before.Y, after.Y) {
		t.Errorf("pivot world point moved from %v to %v", before, after)
	}
	p := Point{7, 9}
	if back := z.Invert(z.Apply(p)); !almost(back.X, p.X) || !almost(back.Y, p.Y) {
		t.Errorf("Invert(Apply(p)) = %v, want %v", back, p)
	}
}
