package pdf_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuongBC195/e-contract-backend/pkg/pdf"
)

func TestSliceImageCoversEverySourceRow(t *testing.T) {
	geom := pdf.A4()
	// 800px wide capture representing an 800-unit component, 5000px tall.
	slices, err := pdf.SliceImage(800, 5000, 800, geom)
	require.Nil(t, err)

	// pixelsPerUnit is 1, so one page holds UsableHeight/s pixels where s is
	// the unit-to-point scale.
	s := geom.UsableWidth() / 800
	maxSlicePx := int(geom.UsableHeight() / s)
	wantPages := int(math.Ceil(5000 / float64(maxSlicePx)))
	assert.Len(t, slices, wantPages)

	total := 0
	cursor := 0
	for i, slice := range slices {
		assert.Equal(t, cursor, slice.Y, "slice %d must start where the previous ended", i)
		assert.Greater(t, slice.Height, 0)
		if i < len(slices)-1 {
			assert.Equal(t, maxSlicePx, slice.Height)
			assert.InDelta(t, geom.UsableHeight(), slice.TargetHeight, 0.001)
		}
		assert.InDelta(t, geom.UsableWidth(), slice.TargetWidth, 0.001)
		assert.LessOrEqual(t, slice.TargetHeight, geom.UsableHeight()+0.001)
		total += slice.Height
		cursor += slice.Height
	}
	assert.Equal(t, 5000, total)
}

func TestSliceImageShortCapture(t *testing.T) {
	geom := pdf.A4()
	slices, err := pdf.SliceImage(800, 100, 800, geom)
	require.Nil(t, err)
	require.Len(t, slices, 1)
	assert.Equal(t, 100, slices[0].Height)
}

func TestSliceImageScalesWithResolution(t *testing.T) {
	geom := pdf.A4()
	// The same 800-unit component captured at 2x pixel density produces the
	// same page count.
	lo, err := pdf.SliceImage(800, 5000, 800, geom)
	require.Nil(t, err)
	hi, err := pdf.SliceImage(1600, 10000, 800, geom)
	require.Nil(t, err)
	assert.Len(t, hi, len(lo))
}

func TestSliceImageRejectsBadInput(t *testing.T) {
	geom := pdf.A4()
	_, err := pdf.SliceImage(0, 100, 800, geom)
	assert.NotNil(t, err)
	_, err = pdf.SliceImage(800, 0, 800, geom)
	assert.NotNil(t, err)
	_, err = pdf.SliceImage(800, 100, 0, geom)
	assert.NotNil(t, err)
	_, err = pdf.SliceImage(800, 100, -5, geom)
	assert.NotNil(t, err)
}

func TestSliceImageRejectsZeroPixelSlices(t *testing.T) {
	// A page whose usable height maps to less than one source pixel cannot
	// make progress and is reported instead of looping forever.
	geom := pdf.Geometry{
		PageWidth:    pdf.A4Width,
		PageHeight:   100,
		MarginLeft:   36,
		MarginRight:  36,
		MarginTop:    49.9,
		MarginBottom: 49.9,
	}
	_, err := pdf.SliceImage(800, 100, 800, geom)
	assert.NotNil(t, err)
}
