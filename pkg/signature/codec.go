// Package signature converts raw pointer strokes or typed text into a
// normalized, serializable signature record and renders it back to vector
// drawing instructions at arbitrary target sizes.
package signature

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
)

// RawPoint is a single captured pointer sample. The color is optional and
// only the first one seen is kept, as the stroke color.
type RawPoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	T     int64   `json:"t"`
	Color string  `json:"color,omitempty"`
}

// Point is a canonical, timestamped 2D point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T int64   `json:"t"`
}

// Stroke is an ordered point sequence.
type Stroke []Point

// ErrEmptyInput is returned when a draw input has no usable strokes or a
// typed input is blank.
var ErrEmptyInput = fmt.Errorf("empty signature input")

// NormalizeDraw converts raw per-stroke point sequences into the canonical
// serialized form. Stroke order and point order are preserved; strokes with
// no points are dropped. An input with no remaining strokes is rejected.
func NormalizeDraw(raw [][]RawPoint) (*models.SignatureData, error) {
	var strokes []Stroke
	color := ""
	for _, rs := range raw {
		if len(rs) == 0 {
			continue
		}
		stroke := make(Stroke, 0, len(rs))
		for _, p := range rs {
			if color == "" && p.Color != "" {
				color = p.Color
			}
			stroke = append(stroke, Point{X: p.X, Y: p.Y, T: p.T})
		}
		strokes = append(strokes, stroke)
	}
	if len(strokes) == 0 {
		return nil, ErrEmptyInput
	}

	payload, err := EncodeStrokes(strokes)
	if err != nil {
		return nil, err
	}
	return &models.SignatureData{
		Kind:    models.SignatureDraw,
		Payload: payload,
		Color:   color,
	}, nil
}

// NormalizeTyped trims the literal text and rejects blank input.
func NormalizeTyped(text string, fontFamily string, color string) (*models.SignatureData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	return &models.SignatureData{
		Kind:       models.SignatureTyped,
		Payload:    text,
		FontFamily: fontFamily,
		Color:      color,
	}, nil
}

// Normalize re-normalizes signature data that arrived over the wire. It is
// a no-op on already-normalized data and rejects empty draw payloads and
// blank typed text.
func Normalize(sig *models.SignatureData) (*models.SignatureData, error) {
	if err := sig.Validate(); err != nil {
		return nil, ErrEmptyInput
	}
	switch sig.Kind {
	case models.SignatureTyped:
		out, err := NormalizeTyped(sig.Payload, sig.FontFamily, sig.Color)
		if err != nil {
			return nil, err
		}
		return out, nil
	case models.SignatureDraw:
		strokes, err := ParseStrokes(sig.Payload)
		if err != nil {
			return nil, fmt.Errorf("malformed draw payload: %v", err)
		}
		raw := make([][]RawPoint, 0, len(strokes))
		for _, s := range strokes {
			rs := make([]RawPoint, 0, len(s))
			for _, p := range s {
				rs = append(rs, RawPoint{X: p.X, Y: p.Y, T: p.T})
			}
			raw = append(raw, rs)
		}
		out, err := NormalizeDraw(raw)
		if err != nil {
			return nil, err
		}
		out.FontFamily = sig.FontFamily
		if sig.Color != "" {
			out.Color = sig.Color
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown signature kind: %d", sig.Kind)
}

// ParseStrokes decodes a serialized draw payload.
func ParseStrokes(payload string) ([]Stroke, error) {
	var strokes []Stroke
	dec := json.NewDecoder(strings.NewReader(payload))
	if err := dec.Decode(&strokes); err != nil {
		return nil, err
	}
	return strokes, nil
}

// EncodeStrokes serializes strokes into the canonical payload form.
func EncodeStrokes(strokes []Stroke) (string, error) {
	buf := bytes.NewBuffer(nil)
	enc := json.NewEncoder(buf)
	if err := enc.Encode(strokes); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
