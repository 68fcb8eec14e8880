package editor

import (
	"math"

	"annovis/internal/geom"
)

// WheelBase is the per-unit zoom factor: a wheel delta of d scales by
// WheelBase^d.
const WheelBase = 0.999

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// wheel zooms around the cursor so the image point under it stays put.
func (s *Session) wheel(e Wheel) {
	scale := clampZoom(s.view.Scale * math.Pow(WheelBase, e.DeltaY))
	if scale == s.view.Scale {
		return
	}
	s.view = s.view.ZoomAt(e.Pos, scale)
	if s.pan != nil {
		s.pan = &panState{start: e.Pos, view: s.view}
	}
	s.redraw()
}

// fitView scales the image to fit vp and centres it.
func (s *Session) fitView(vp geom.Size) {
	if !s.size.Known() || !vp.Known() {
		s.view = geom.Identity
		s.redraw()
		return
	}
	scale := clampZoom(math.Min(vp.W/s.size.W, vp.H/s.size.H))
	s.view = geom.Affine{
		Scale: scale,
		TX:    (vp.W - s.size.W*scale) / 2,
		TY:    (vp.H - s.size.H*scale) / 2,
	}
	s.redraw()
}

// ToImage maps a screen position to image pixels.
func (s *Session) ToImage(p geom.Point) geom.Point { return s.view.Invert(p) }

// ToScreen maps an image position to screen pixels.
func (s *Session) ToScreen(p geom.Point) geom.Point { return s.view.Apply(p) }
