package signature

import (
	"fmt"
	"strings"
)

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

// ParseColor accepts "#rgb", "#rrggbb" and "rgb(r, g, b)" spellings.
// Anything unparseable falls back to black, since rendering must never
// fail for a document that is otherwise valid.
func ParseColor(s string) RGB {
	s = strings.TrimSpace(s)
	if s == "" {
		return RGB{}
	}
	if strings.HasPrefix(s, "#") {
		hexDigits := s[1:]
		switch len(hexDigits) {
		case 3:
			var r, g, b uint8
			if _, err := fmt.Sscanf(hexDigits, "%1x%1x%1x", &r, &g, &b); err == nil {
				return RGB{R: r * 17, G: g * 17, B: b * 17}
			}
		case 6:
			var r, g, b uint8
			if _, err := fmt.Sscanf(hexDigits, "%02x%02x%02x", &r, &g, &b); err == nil {
				return RGB{R: r, G: g, B: b}
			}
		}
		return RGB{}
	}
	if strings.HasPrefix(strings.ToLower(s), "rgb(") && strings.HasSuffix(s, ")") {
		inner := s[4 : len(s)-1]
		parts := strings.Split(inner, ",")
		if len(parts) != 3 {
			return RGB{}
		}
		var vals [3]int
		for i, p := range parts {
			v, err := parseChannel(strings.TrimSpace(p))
			if err != nil {
				return RGB{}
			}
			vals[i] = v
		}
		return RGB{R: uint8(vals[0]), G: uint8(vals[1]), B: uint8(vals[2])}
	}
	return RGB{}
}

func parseChannel(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, err
	}
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("channel out of range: %d", v)
	}
	return v, nil
}
