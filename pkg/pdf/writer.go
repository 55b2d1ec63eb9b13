package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"io"
	"sort"

	"github.com/CuongBC195/e-contract-backend/pkg/pdf/fonts"
)

// Writer builds a PDF file from scratch: indirect objects, a page tree, a
// cross-reference table and a trailer. Object ids are handed out
// sequentially; the page tree and catalog are appended at write time so
// content objects never need forward references.
type Writer struct {
	objects  [][]byte
	pages    []pageEntry
	compress bool
}

type pageEntry struct {
	width     float64
	height    float64
	contentId int
	resources Resources
}

// Resources maps resource names used inside a content stream to the object
// ids that back them.
type Resources struct {
	Fonts    map[string]int
	XObjects map[string]int
}

func NewResources() Resources {
	return Resources{
		Fonts:    map[string]int{},
		XObjects: map[string]int{},
	}
}

func NewWriter() *Writer {
	return &Writer{compress: true}
}

// AddObject registers an indirect object body and returns its id.
func (w *Writer) AddObject(body []byte) int {
	w.objects = append(w.objects, body)
	return len(w.objects)
}

// AddStream registers a stream object. extraEntries are raw dictionary
// entries appended after /Length and the filter.
func (w *Writer) AddStream(data []byte, extraEntries string, deflate bool) int {
	filter := ""
	if deflate && w.compress {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		zw.Write(data)
		zw.Close()
		data = buf.Bytes()
		filter = " /Filter /FlateDecode"
	}
	var obj bytes.Buffer
	fmt.Fprintf(&obj, "<< /Length %d%s %s >>\nstream\n", len(data), filter, extraEntries)
	obj.Write(data)
	obj.WriteString("\nendstream")
	return w.AddObject(obj.Bytes())
}

// AddFont registers a font dictionary. Embedded TrueType fonts carry a
// descriptor, a font file stream and a widths array; standard fonts are a
// bare Type1 dictionary.
func (w *Writer) AddFont(f *fonts.Font) int {
	if f != nil && len(f.Data) > 0 {
		fontFileId := w.AddStream(f.Data, fmt.Sprintf("/Length1 %d", len(f.Data)), true)

		descriptor := fmt.Sprintf("<< /Type /FontDescriptor /FontName /%s /Flags 32 /FontBBox [-500 -200 1000 900] /ItalicAngle 0 /Ascent 800 /Descent -200 /CapHeight 700 /StemV 80 /FontFile2 %d 0 R >>",
			f.Name, fontFileId)
		descriptorId := w.AddObject([]byte(descriptor))

		var buf bytes.Buffer
		fmt.Fprintf(&buf, "<< /Type /Font /Subtype /TrueType /BaseFont /%s /FontDescriptor %d 0 R /FirstChar 32 /LastChar 255 /Encoding /WinAnsiEncoding /Widths [", f.Name, descriptorId)
		for r := rune(32); r <= 255; r++ {
			width := 500
			if f.Metrics != nil && f.Metrics.UnitsPerEm > 0 {
				if gw, ok := f.Metrics.GlyphWidths[r]; ok {
					width = gw * 1000 / f.Metrics.UnitsPerEm
				}
			}
			fmt.Fprintf(&buf, " %d", width)
		}
		buf.WriteString(" ] >>")
		return w.AddObject(buf.Bytes())
	}

	name := "Helvetica"
	if f != nil && f.Name != "" {
		name = f.Name
	}
	return w.AddObject([]byte(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", name)))
}

// AddImage registers an image XObject. JPEG data passes through untouched
// as DCTDecode; everything else is re-encoded as flate RGB with a grayscale
// soft mask when the source has transparency.
func (w *Writer) AddImage(src image.Image, format string, raw []byte) int {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	hasAlpha := false
	var rgb bytes.Buffer
	var alpha bytes.Buffer
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			a8 := uint8(a >> 8)
			if a8 < 255 {
				hasAlpha = true
			}
			alpha.WriteByte(a8)
			rgb.Write([]byte{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)})
		}
	}

	var smaskId int
	if hasAlpha {
		smaskId = w.AddStream(alpha.Bytes(),
			fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8", width, height),
			true)
	}

	smaskEntry := ""
	if smaskId != 0 {
		smaskEntry = fmt.Sprintf(" /SMask %d 0 R", smaskId)
	}

	if format == "jpeg" && !hasAlpha && len(raw) > 0 {
		var obj bytes.Buffer
		fmt.Fprintf(&obj, "<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n",
			width, height, len(raw))
		obj.Write(raw)
		obj.WriteString("\nendstream")
		return w.AddObject(obj.Bytes())
	}

	return w.AddStream(rgb.Bytes(),
		fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8%s", width, height, smaskEntry),
		true)
}

// AddPage appends a page with the given media box, content stream and
// resources.
func (w *Writer) AddPage(width float64, height float64, content []byte, res Resources) {
	contentId := w.AddStream(content, "", true)
	w.pages = append(w.pages, pageEntry{
		width:     width,
		height:    height,
		contentId: contentId,
		resources: res,
	})
}

func (w *Writer) PageCount() int {
	return len(w.pages)
}

// WriteTo serializes the document: header, every object in id order, the
// page objects, the page tree, the catalog, the xref table and the trailer.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	if len(w.pages) == 0 {
		return 0, fmt.Errorf("document has no pages")
	}

	pageTreeId := len(w.objects) + len(w.pages) + 1
	catalogId := pageTreeId + 1

	var pageIds []int
	for _, p := range w.pages {
		var body bytes.Buffer
		fmt.Fprintf(&body, "<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %.2f %.2f] /Contents %d 0 R /Resources <<",
			pageTreeId, p.width, p.height, p.contentId)
		writeResourceDict(&body, "/Font", p.resources.Fonts)
		writeResourceDict(&body, "/XObject", p.resources.XObjects)
		body.WriteString(" >> >>")
		pageIds = append(pageIds, w.AddObject(body.Bytes()))
	}

	var kids bytes.Buffer
	for _, id := range pageIds {
		fmt.Fprintf(&kids, "%d 0 R ", id)
	}
	w.AddObject([]byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(pageIds))))
	w.AddObject([]byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pageTreeId)))

	counter := &countingWriter{w: out}
	fmt.Fprintf(counter, "%%PDF-1.4\n%%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int64, len(w.objects))
	for i, body := range w.objects {
		offsets[i] = counter.n
		fmt.Fprintf(counter, "%d 0 obj\n", i+1)
		counter.Write(body)
		fmt.Fprintf(counter, "\nendobj\n")
	}

	xrefOffset := counter.n
	fmt.Fprintf(counter, "xref\n0 %d\n", len(w.objects)+1)
	fmt.Fprintf(counter, "0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(counter, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(counter, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(w.objects)+1, catalogId, xrefOffset)

	if counter.err != nil {
		return counter.n, counter.err
	}
	return counter.n, nil
}

func writeResourceDict(buf *bytes.Buffer, key string, entries map[string]int) {
	if len(entries) == 0 {
		return
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(buf, " %s <<", key)
	for _, name := range names {
		fmt.Fprintf(buf, " /%s %d 0 R", name, entries[name])
	}
	buf.WriteString(" >>")
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
