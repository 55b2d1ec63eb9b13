package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
)

// Slice is one page-sized horizontal band of a captured source image.
// Y and Height are in source pixels; the target dimensions are in points.
type Slice struct {
	Y            int
	Height       int
	TargetWidth  float64
	TargetHeight float64
}

// SliceImage walks a captured image top to bottom and cuts it into bands
// that each fit one page's usable height once scaled to the page width.
// knownWidth is the real-world width the capture represents (the capture
// component is always exactly one page-content wide), in the capture's own
// units. No pixel row is dropped or duplicated: the slice heights sum to
// exactly imgHeightPx.
func SliceImage(imgWidthPx int, imgHeightPx int, knownWidth float64, geom Geometry) ([]Slice, error) {
	if imgWidthPx <= 0 || imgHeightPx <= 0 {
		return nil, fmt.Errorf("invalid source image size %dx%d", imgWidthPx, imgHeightPx)
	}
	if knownWidth <= 0 {
		return nil, fmt.Errorf("invalid known width %f", knownWidth)
	}

	// s converts capture units to points; pixelsPerUnit converts capture
	// units to source pixels.
	s := geom.UsableWidth() / knownWidth
	pixelsPerUnit := float64(imgWidthPx) / knownWidth

	maxSlicePx := int(geom.UsableHeight() / s * pixelsPerUnit)
	if maxSlicePx <= 0 {
		return nil, fmt.Errorf("page usable height maps to a zero-pixel slice (image %dpx wide, known width %f)", imgWidthPx, knownWidth)
	}

	var slices []Slice
	for cursor := 0; cursor < imgHeightPx; {
		h := maxSlicePx
		if remaining := imgHeightPx - cursor; h > remaining {
			h = remaining
		}
		slices = append(slices, Slice{
			Y:            cursor,
			Height:       h,
			TargetWidth:  geom.UsableWidth(),
			TargetHeight: float64(h) / pixelsPerUnit * s,
		})
		cursor += h
	}
	return slices, nil
}

// CapturedLayout paginates a full-page raster capture of rendered content.
type CapturedLayout struct {
	// Image is the encoded source image (PNG or JPEG).
	Image []byte
	// KnownWidth is the real-world width of the captured component.
	KnownWidth float64
}

var _ Source = (*CapturedLayout)(nil)

// Render decodes the capture, slices it and places one slice per page at
// the top margin.
func (c *CapturedLayout) Render(w *Writer, geom Geometry) error {
	src, _, err := image.Decode(bytes.NewReader(c.Image))
	if err != nil {
		return fmt.Errorf("decode capture: %v", err)
	}

	bounds := src.Bounds()
	slices, err := SliceImage(bounds.Dx(), bounds.Dy(), c.KnownWidth, geom)
	if err != nil {
		return err
	}

	for _, slice := range slices {
		band := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), slice.Height))
		draw.Draw(band, band.Bounds(), src, image.Pt(bounds.Min.X, bounds.Min.Y+slice.Y), draw.Src)

		res := NewResources()
		imgId := w.AddImage(band, "", nil)
		res.XObjects["Im1"] = imgId

		var ops bytes.Buffer
		// cm places the slice at the top margin; PDF y grows upward.
		y := geom.PageHeight - geom.MarginTop - slice.TargetHeight
		fmt.Fprintf(&ops, "q\n%.2f 0 0 %.2f %.2f %.2f cm\n/Im1 Do\nQ\n",
			slice.TargetWidth, slice.TargetHeight, geom.MarginLeft, y)

		w.AddPage(geom.PageWidth, geom.PageHeight, ops.Bytes(), res)
	}
	return nil
}
