// Package fonts provides the font resources the PDF renderer draws text
// with: the standard non-embedded PDF fonts plus optional TrueType fonts
// with parsed metrics for accurate centering of typed signatures.
package fonts

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

type StandardType int

const (
	Helvetica StandardType = iota
	HelveticaBold
	HelveticaOblique
	TimesRoman
	TimesItalic
	Courier
)

// Font is a font resource usable in page content streams. Data is nil for
// the standard fonts, which every reader ships.
type Font struct {
	Name     string
	Data     []byte
	Metrics  *Metrics
	Embedded bool
}

func Standard(ft StandardType) *Font {
	names := map[StandardType]string{
		Helvetica:        "Helvetica",
		HelveticaBold:    "Helvetica-Bold",
		HelveticaOblique: "Helvetica-Oblique",
		TimesRoman:       "Times-Roman",
		TimesItalic:      "Times-Italic",
		Courier:          "Courier",
	}
	return &Font{Name: names[ft]}
}

// ForFamily maps a captured font-family string to a drawable font. Typed
// signatures ask for cursive faces; without an embedded script font the
// closest standard face is the italic serif.
func ForFamily(family string, embedded *Font) *Font {
	if embedded != nil {
		return embedded
	}
	switch family {
	case "", "cursive", "Dancing Script", "Great Vibes", "Pacifico":
		return Standard(TimesItalic)
	case "serif":
		return Standard(TimesRoman)
	case "monospace":
		return Standard(Courier)
	}
	return Standard(Helvetica)
}

// Metrics holds advance widths parsed from a TrueType file.
type Metrics struct {
	UnitsPerEm  int
	GlyphWidths map[rune]int
}

// ParseTTF parses TrueType data into an embeddable Font with metrics.
func ParseTTF(name string, data []byte) (*Font, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, err
	}

	unitsPerEm := f.UnitsPerEm()
	ppem := fixed.Int26_6(unitsPerEm) << 6

	glyphWidths := make(map[rune]int)
	var buf sfnt.Buffer
	for r := rune(32); r <= rune(0x024F); r++ {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			continue
		}
		advance, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		glyphWidths[r] = int(advance >> 6)
	}

	return &Font{
		Name:     name,
		Data:     data,
		Embedded: true,
		Metrics: &Metrics{
			UnitsPerEm:  int(unitsPerEm),
			GlyphWidths: glyphWidths,
		},
	}, nil
}

// StringWidth measures text in points at the given size. Without metrics
// it falls back to the half-em approximation.
func (f *Font) StringWidth(text string, size float64) float64 {
	if f == nil || f.Metrics == nil || f.Metrics.UnitsPerEm == 0 {
		return float64(len([]rune(text))) * size * 0.5
	}
	total := 0
	for _, r := range text {
		if w, ok := f.Metrics.GlyphWidths[r]; ok {
			total += w
		} else {
			total += f.Metrics.UnitsPerEm / 2
		}
	}
	return float64(total) / float64(f.Metrics.UnitsPerEm) * size
}
