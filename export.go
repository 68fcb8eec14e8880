package main

import (
	"errors"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"annovis/internal/annotation"
	"annovis/internal/editor"
	"annovis/internal/labels"
)

var errUnknownSize = errors.New("image size unknown")

// exportPNG draws the annotations over the image at full resolution.
func exportPNG(filename string, sc editor.Scene, img image.Image) error {
	if !sc.Size.Known() {
		return errUnknownSize
	}
	width, height := int(math.Round(sc.Size.W)), int(math.Round(sc.Size.H))
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	if img != nil {
		dc.DrawImage(imaging.Clone(img), 0, 0)
	}

	fontSize := math.Max(12, float64(width)/60)
	face, err := captionFace(fontSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	lineWidth := math.Max(2, float64(width)/400)

	for _, e := range sc.Edges {
		dc.SetRGBA(labels.RGBA(e.Color, 0.9))
		dc.SetLineWidth(lineWidth)
		dc.DrawLine(e.From.X, e.From.Y, e.To.X, e.To.Y)
		dc.Stroke()
	}
	for _, s := range sc.Shapes {
		drawShapePNG(dc, s, lineWidth)
	}
	for _, s := range sc.Shapes {
		b := s.Shape.Bounds()
		drawCaptionPNG(dc, s.Shape.LabelName(), s.Color, b.Left, b.Top, fontSize)
	}
	if len(sc.Classes) > 0 {
		y := fontSize * 1.5
		for _, e := range sc.Classes {
			caption := fmt.Sprintf("%s %.0f%%", e.Name, e.Confidence*100)
			drawCaptionPNG(dc, caption, labels.FallbackColor, fontSize/2, y, fontSize)
			y += fontSize * 1.6
		}
	}

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("save png: %w", err)
	}
	return nil
}

func captionFace(size float64) (font.Face, error) {
	ttfFont, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return truetype.NewFace(ttfFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func drawShapePNG(dc *gg.Context, s editor.SceneShape, lineWidth float64) {
	dc.SetLineWidth(lineWidth)
	switch sh := s.Shape.(type) {
	case *annotation.Box:
		dc.DrawRectangle(sh.X, sh.Y, sh.Width, sh.Height)
		fillAndStroke(dc, s.Color)
	case *annotation.Polygon:
		for i, p := range sh.Points {
			if i == 0 {
				dc.MoveTo(p.X, p.Y)
			} else {
				dc.LineTo(p.X, p.Y)
			}
		}
		dc.ClosePath()
		fillAndStroke(dc, s.Color)
	case *annotation.Keypoint:
		r := sh.Radius
		if r <= 0 {
			r = annotation.KeypointRadius
		}
		dc.DrawCircle(sh.X, sh.Y, r)
		alpha := 1.0
		if !sh.Visible {
			alpha = 0.4
		}
		dc.SetRGBA(labels.RGBA(s.Color, alpha))
		dc.FillPreserve()
		dc.SetRGB(1, 1, 1)
		dc.Stroke()
	}
}

func fillAndStroke(dc *gg.Context, hex string) {
	dc.SetRGBA(labels.RGBA(hex, 0.2))
	dc.FillPreserve()
	dc.SetRGBA(labels.RGBA(hex, 1))
	dc.Stroke()
}

// drawCaptionPNG writes text on a tag of the label colour whose top-left
// corner is at (x, y), shifted to stay inside the image.
func drawCaptionPNG(dc *gg.Context, text, hex string, x, y, fontSize float64) {
	w, h := dc.MeasureString(text)
	pad := fontSize / 4
	tagW, tagH := w+2*pad, h+2*pad
	x = math.Max(0, math.Min(x, float64(dc.Width())-tagW))
	y = math.Max(0, math.Min(y-tagH, float64(dc.Height())-tagH))
	dc.SetRGBA(labels.RGBA(hex, 0.85))
	dc.DrawRectangle(x, y, tagW, tagH)
	dc.Fill()
	dc.SetRGB(textColorOn(hex))
	dc.DrawStringAnchored(text, x+pad, y+pad, 0, 1)
}

// textColorOn picks black or white, whichever reads better on hex.
func textColorOn(hex string) (r, g, b float64) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return 1, 1, 1
	}
	if l, _, _ := c.Lab(); l > 0.6 {
		return 0, 0, 0
	}
	return 1, 1, 1
}

// defaultExportName is "<image>_annotated.png" next to the image.
func defaultExportName(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + "_annotated.png"
}
