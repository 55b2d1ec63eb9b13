package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf/fonts"
	"github.com/CuongBC195/e-contract-backend/pkg/signature"
)

// StructuredLayout renders a document from its structured content: header
// block, body paragraphs and a signature grid with one cell per signer.
type StructuredLayout struct {
	Doc *models.Document
	// TypedFont optionally replaces the standard italic fallback used for
	// typed signatures with an embedded script font.
	TypedFont *fonts.Font
}

var _ Source = (*StructuredLayout)(nil)

const (
	titleSize     = 18
	subtitleSize  = 10
	bodySize      = 11
	bodyLeading   = 15
	signerGap     = 20
	sigBoxHeight  = 60
	sigCellHeight = 110
)

type fontSet struct {
	body   *fonts.Font
	bold   *fonts.Font
	script *fonts.Font
}

// block is a unit of vertical layout that is never split across a page
// boundary, except for paragraph blocks taller than a whole page.
type block interface {
	height() float64
	// draw emits operators; y is the block's top offset from the top
	// margin, in top-down coordinates.
	draw(ops *bytes.Buffer, geom Geometry, y float64)
	// split carves off a leading piece that fits in avail, returning the
	// piece and the remainder. A nil piece means the block cannot split.
	split(avail float64) (block, block)
}

func (s *StructuredLayout) Render(w *Writer, geom Geometry) error {
	if s.Doc == nil {
		return fmt.Errorf("no document to render")
	}

	fs := fontSet{
		body:   fonts.Standard(fonts.Helvetica),
		bold:   fonts.Standard(fonts.HelveticaBold),
		script: fonts.ForFamily(signature.DefaultTypedFont, s.TypedFont),
	}
	res := NewResources()
	res.Fonts["F1"] = w.AddFont(fs.body)
	res.Fonts["F2"] = w.AddFont(fs.bold)
	res.Fonts["F3"] = w.AddFont(fs.script)

	blocks := s.buildBlocks(geom, fs)

	usable := geom.UsableHeight()
	var ops bytes.Buffer
	y := 0.0
	flush := func() {
		if ops.Len() > 0 {
			w.AddPage(geom.PageWidth, geom.PageHeight, ops.Bytes(), res)
			ops = bytes.Buffer{}
			y = 0
		}
	}

	for len(blocks) > 0 {
		b := blocks[0]
		h := b.height()
		if y+h > usable {
			if h <= usable {
				// The block fits on a fresh page; break instead of
				// splitting it.
				flush()
			} else {
				piece, rest := b.split(usable - y)
				if piece != nil {
					piece.draw(&ops, geom, y)
					blocks[0] = rest
					flush()
					continue
				}
				if y > 0 {
					flush()
					continue
				}
				// Taller than a page and unsplittable: draw clipped
				// rather than losing it.
			}
		}
		b.draw(&ops, geom, y)
		y += h
		blocks = blocks[1:]
	}
	flush()

	if w.PageCount() == 0 {
		w.AddPage(geom.PageWidth, geom.PageHeight, []byte("q Q\n"), res)
	}
	return nil
}

func (s *StructuredLayout) buildBlocks(geom Geometry, fs fontSet) []block {
	doc := s.Doc
	width := geom.UsableWidth()

	var blocks []block

	blocks = append(blocks,
		&textBlock{
			lines:   wrap(doc.Title, fs.bold, titleSize, width),
			font:    "F2",
			metrics: fs.bold,
			size:    titleSize,
			leading: titleSize * 1.3,
			center:  true,
		},
		&spacer{h: 6},
	)

	kindLine := kindLabel(doc.Kind)
	if doc.Metadata.ContractNumber != "" {
		kindLine = fmt.Sprintf("%s – Số: %s", kindLine, doc.Metadata.ContractNumber)
	}
	blocks = append(blocks, &textBlock{
		lines:   []string{kindLine},
		font:    "F1",
		metrics: fs.body,
		size:    subtitleSize,
		leading: subtitleSize * 1.4,
		center:  true,
		gray:    true,
	})

	if place := placeLine(doc.Metadata); place != "" {
		blocks = append(blocks, &textBlock{
			lines:   []string{place},
			font:    "F1",
			metrics: fs.body,
			size:    subtitleSize,
			leading: subtitleSize * 1.4,
			center:  true,
			gray:    true,
		})
	}

	blocks = append(blocks, &spacer{h: 10}, &rule{}, &spacer{h: 14})

	for _, paragraph := range flattenMarkup(doc.Content) {
		blocks = append(blocks,
			&textBlock{
				lines:   wrap(paragraph, fs.body, bodySize, width),
				font:    "F1",
				metrics: fs.body,
				size:    bodySize,
				leading: bodyLeading,
			},
			&spacer{h: 8},
		)
	}

	blocks = append(blocks, &spacer{h: 20})

	// Signature grid: signers appear left to right in list order, two
	// cells per row.
	cellWidth := (width - signerGap) / 2
	for i := 0; i < len(doc.Signers); i += 2 {
		row := &signatureRow{cellWidth: cellWidth, fonts: fs}
		row.cells = append(row.cells, doc.Signers[i])
		if i+1 < len(doc.Signers) {
			row.cells = append(row.cells, doc.Signers[i+1])
		}
		blocks = append(blocks, row, &spacer{h: 12})
	}

	return blocks
}

func kindLabel(k models.DocumentKind) string {
	if k == models.KindContract {
		return "HỢP ĐỒNG"
	}
	return "BIÊN NHẬN"
}

func placeLine(m models.Metadata) string {
	switch {
	case m.Location != "" && m.CreatedDate != "":
		return fmt.Sprintf("%s, ngày %s", m.Location, m.CreatedDate)
	case m.Location != "":
		return m.Location
	case m.CreatedDate != "":
		return fmt.Sprintf("Ngày %s", m.CreatedDate)
	}
	return ""
}

// wrap breaks text into lines that fit maxWidth at the given size. A word
// wider than the line goes on its own line; it is not hyphenated.
func wrap(text string, f *fonts.Font, size float64, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if f.StringWidth(candidate, size) > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

type textBlock struct {
	lines   []string
	font    string
	metrics *fonts.Font
	size    float64
	leading float64
	center  bool
	gray    bool
}

func (t *textBlock) height() float64 {
	return float64(len(t.lines)) * t.leading
}

func (t *textBlock) draw(ops *bytes.Buffer, geom Geometry, y float64) {
	color := "0 0 0"
	if t.gray {
		color = "0.4 0.4 0.4"
	}
	for i, line := range t.lines {
		baseline := geom.PageHeight - geom.MarginTop - y - float64(i)*t.leading - t.size
		x := geom.MarginLeft
		if t.center {
			x = geom.MarginLeft + (geom.UsableWidth()-t.metrics.StringWidth(line, t.size))/2
			if x < geom.MarginLeft {
				x = geom.MarginLeft
			}
		}
		fmt.Fprintf(ops, "BT /%s %.2f Tf %s rg %.2f %.2f Td <%s> Tj ET\n",
			t.font, t.size, color, x, baseline, encodeText(line))
	}
}

func (t *textBlock) split(avail float64) (block, block) {
	fit := int(avail / t.leading)
	if fit < 1 || fit >= len(t.lines) {
		return nil, t
	}
	head := *t
	head.lines = t.lines[:fit]
	tail := *t
	tail.lines = t.lines[fit:]
	return &head, &tail
}

type spacer struct {
	h float64
}

func (s *spacer) height() float64 { return s.h }

func (s *spacer) draw(*bytes.Buffer, Geometry, float64) {}

func (s *spacer) split(avail float64) (block, block) { return nil, s }

type rule struct{}

func (r *rule) height() float64 { return 1 }

func (r *rule) draw(ops *bytes.Buffer, geom Geometry, y float64) {
	lineY := geom.PageHeight - geom.MarginTop - y
	fmt.Fprintf(ops, "q 0.5 w 0.6 0.6 0.6 RG %.2f %.2f m %.2f %.2f l S Q\n",
		geom.MarginLeft, lineY, geom.MarginLeft+geom.UsableWidth(), lineY)
}

func (r *rule) split(avail float64) (block, block) { return nil, r }

type signatureRow struct {
	cells     []models.Signer
	cellWidth float64
	fonts     fontSet
}

func (s *signatureRow) height() float64 {
	return sigCellHeight
}

func (s *signatureRow) split(avail float64) (block, block) { return nil, s }

func (s *signatureRow) draw(ops *bytes.Buffer, geom Geometry, y float64) {
	for i, signer := range s.cells {
		x := geom.MarginLeft + float64(i)*(s.cellWidth+signerGap)
		s.drawCell(ops, geom, signer, x, y)
	}
}

func (s *signatureRow) drawCell(ops *bytes.Buffer, geom Geometry, signer models.Signer, x float64, y float64) {
	top := geom.PageHeight - geom.MarginTop - y

	role := signer.Role
	if role == "" {
		role = signer.Name
	}
	roleWidth := s.fonts.bold.StringWidth(role, bodySize)
	fmt.Fprintf(ops, "BT /F2 %.2f Tf 0 0 0 rg %.2f %.2f Td <%s> Tj ET\n",
		float64(bodySize), x+(s.cellWidth-roleWidth)/2, top-bodySize, encodeText(role))

	// Signature box under the role label.
	boxTop := top - bodySize - 6
	drawing := signature.Render(signer.SignatureData, s.cellWidth, sigBoxHeight)
	drawDrawing(ops, drawing, s.fonts, x, boxTop)

	nameY := boxTop - sigBoxHeight - 4
	nameWidth := s.fonts.body.StringWidth(signer.Name, bodySize)
	fmt.Fprintf(ops, "BT /F1 %.2f Tf 0 0 0 rg %.2f %.2f Td <%s> Tj ET\n",
		float64(bodySize), x+(s.cellWidth-nameWidth)/2, nameY-bodySize, encodeText(signer.Name))

	if signer.Signed && signer.SignedAt != nil {
		when := fmt.Sprintf("Ký ngày %s", signer.SignedAt.Format("02/01/2006"))
		whenWidth := s.fonts.body.StringWidth(when, 9)
		fmt.Fprintf(ops, "BT /F1 9 Tf 0.4 0.4 0.4 rg %.2f %.2f Td <%s> Tj ET\n",
			x+(s.cellWidth-whenWidth)/2, nameY-bodySize-13, encodeText(when))
	}
}

// drawDrawing converts codec drawing instructions into page operators.
// The drawing's own origin is top-left with y growing down; boxTop is the
// PDF y of the drawing's top edge.
func drawDrawing(ops *bytes.Buffer, d signature.Drawing, fs fontSet, x float64, boxTop float64) {
	for _, path := range d.Paths {
		if len(path.Points) == 0 {
			continue
		}
		c := signature.ParseColor(path.Color)
		fmt.Fprintf(ops, "q 1.5 w 1 J 1 j %.3f %.3f %.3f RG\n",
			float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		first := path.Points[0]
		fmt.Fprintf(ops, "%.2f %.2f m\n", x+first.X, boxTop-first.Y)
		if len(path.Points) == 1 {
			// Round caps turn a zero-length segment into a dot.
			fmt.Fprintf(ops, "%.2f %.2f l\n", x+first.X, boxTop-first.Y)
		}
		for _, p := range path.Points[1:] {
			fmt.Fprintf(ops, "%.2f %.2f l\n", x+p.X, boxTop-p.Y)
		}
		ops.WriteString("S Q\n")
	}
	for _, run := range d.Texts {
		c := signature.ParseColor(run.Color)
		font := fs.script
		name := "F3"
		width := font.StringWidth(run.Value, run.Size)
		fmt.Fprintf(ops, "BT /%s %.2f Tf %.3f %.3f %.3f rg %.2f %.2f Td <%s> Tj ET\n",
			name, run.Size, float64(c.R)/255, float64(c.G)/255, float64(c.B)/255,
			x+run.X-width/2, boxTop-run.Y-run.Size/2, encodeText(run.Value))
	}
}
