package pdf

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	tagBreakRe = regexp.MustCompile(`(?i)</p>|<br\s*/?>|</div>|</li>`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	foldChain  = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// flattenMarkup reduces the opaque marked-up body content to plain
// paragraphs. Block-closing tags become line breaks, everything else is
// stripped.
func flattenMarkup(content string) []string {
	content = tagBreakRe.ReplaceAllString(content, "\n")
	content = tagRe.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "&nbsp;", " ")
	content = strings.ReplaceAll(content, "&amp;", "&")
	content = strings.ReplaceAll(content, "&lt;", "<")
	content = strings.ReplaceAll(content, "&gt;", ">")

	var paragraphs []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}

// encodeText maps text into the WinAnsi range and hex-encodes it for a Tj
// operator. Characters outside the range are folded to their base letter
// first; the standard fonts carry no Vietnamese glyphs, so a folded
// rendition beats an empty box.
func encodeText(text string) string {
	folded, _, err := transform.String(foldChain, text)
	if err != nil {
		folded = text
	}
	folded = strings.Map(func(r rune) rune {
		switch r {
		case 'đ':
			return 'd'
		case 'Đ':
			return 'D'
		}
		return r
	}, folded)

	out := make([]byte, 0, len(folded))
	for _, r := range folded {
		if r < 256 {
			out = append(out, byte(r))
		} else {
			out = append(out, '?')
		}
	}
	return hex.EncodeToString(out)
}
