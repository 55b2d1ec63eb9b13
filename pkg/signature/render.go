package signature

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

var log = logrus.StandardLogger().WithField("package", "signature")

// A signature never occupies more than this fraction of the target box.
const fillRatio = 0.8

// DefaultTypedFont is used when a typed signature carries no font family.
const DefaultTypedFont = "cursive"

// PlaceholderText is rendered when a signature is absent or unusable.
const PlaceholderText = "Chưa ký"

// Vec2 is a resolved drawing coordinate, origin top-left, y down.
type Vec2 struct {
	X float64
	Y float64
}

// Path is a polyline drawn with straight segments between consecutive
// points. A single-point path is a dot.
type Path struct {
	Color  string
	Points []Vec2
}

// TextRun is a centered piece of text.
type TextRun struct {
	Value      string
	FontFamily string
	Color      string
	// X, Y is the center of the run.
	X    float64
	Y    float64
	Size float64
}

// Drawing holds resolution-independent drawing instructions for one
// signature, laid out for a target box.
type Drawing struct {
	Width       float64
	Height      float64
	Paths       []Path
	Texts       []TextRun
	Placeholder bool
}

// Render lays the signature out into a targetWidth x targetHeight box.
// It never fails: malformed or empty draw payloads render the unsigned
// placeholder instead.
func Render(sig *models.SignatureData, targetWidth float64, targetHeight float64) Drawing {
	if sig == nil {
		return placeholder(targetWidth, targetHeight)
	}
	switch sig.Kind {
	case models.SignatureTyped:
		return renderTyped(sig, targetWidth, targetHeight)
	case models.SignatureDraw:
		return renderDraw(sig, targetWidth, targetHeight)
	}
	return placeholder(targetWidth, targetHeight)
}

func renderTyped(sig *models.SignatureData, w float64, h float64) Drawing {
	text := sig.Payload
	if text == "" {
		return placeholder(w, h)
	}
	font := sig.FontFamily
	if font == "" {
		font = DefaultTypedFont
	}
	color := sig.Color
	if color == "" {
		color = "#000000"
	}

	// Approximate glyph advance as half the font size, the same fallback
	// the PDF layer uses when no metrics are available.
	size := h * 0.5
	if maxSize := fillRatio * w / (0.5 * float64(len([]rune(text)))); size > maxSize {
		size = maxSize
	}

	return Drawing{
		Width:  w,
		Height: h,
		Texts: []TextRun{{
			Value:      text,
			FontFamily: font,
			Color:      color,
			X:          w / 2,
			Y:          h / 2,
			Size:       size,
		}},
	}
}

func renderDraw(sig *models.SignatureData, w float64, h float64) Drawing {
	strokes, err := ParseStrokes(sig.Payload)
	if err != nil {
		log.Warnf("unable to parse draw payload, rendering placeholder: %v", err)
		return placeholder(w, h)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	points := 0
	for _, s := range strokes {
		for _, p := range s {
			if !finite(p.X) || !finite(p.Y) {
				continue
			}
			points++
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
	}
	if points == 0 {
		return placeholder(w, h)
	}

	// Uniform scale, never anisotropic. Degenerate extents (a dot or a
	// straight axis-aligned stroke) scale along the live axis only.
	bw, bh := maxX-minX, maxY-minY
	scale := 1.0
	switch {
	case bw == 0 && bh == 0:
		scale = 1.0
	case bw == 0:
		scale = fillRatio * h / bh
	case bh == 0:
		scale = fillRatio * w / bw
	default:
		scale = math.Min(fillRatio*w/bw, fillRatio*h/bh)
	}

	offsetX := (w - bw*scale) / 2
	offsetY := (h - bh*scale) / 2

	color := sig.Color
	if color == "" {
		color = "#000000"
	}

	d := Drawing{Width: w, Height: h}
	for _, s := range strokes {
		path := Path{Color: color}
		for _, p := range s {
			if !finite(p.X) || !finite(p.Y) {
				continue
			}
			path.Points = append(path.Points, Vec2{
				X: offsetX + (p.X-minX)*scale,
				Y: offsetY + (p.Y-minY)*scale,
			})
		}
		if len(path.Points) > 0 {
			d.Paths = append(d.Paths, path)
		}
	}
	if len(d.Paths) == 0 {
		return placeholder(w, h)
	}
	return d
}

func placeholder(w float64, h float64) Drawing {
	baseline := h * 0.75
	return Drawing{
		Width:       w,
		Height:      h,
		Placeholder: true,
		Paths: []Path{{
			Color: "#999999",
			Points: []Vec2{
				{X: w * 0.1, Y: baseline},
				{X: w * 0.9, Y: baseline},
			},
		}},
		Texts: []TextRun{{
			Value:      PlaceholderText,
			FontFamily: DefaultTypedFont,
			Color:      "#999999",
			X:          w / 2,
			Y:          h / 2,
			Size:       h * 0.25,
		}},
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
