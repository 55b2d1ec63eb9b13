package pdf

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// Geometry describes the physical page and its printable area. The
// exported documents use symmetric 36pt side margins and 40pt top/bottom
// margins.
type Geometry struct {
	PageWidth    float64
	PageHeight   float64
	MarginLeft   float64
	MarginRight  float64
	MarginTop    float64
	MarginBottom float64
}

func A4() Geometry {
	return Geometry{
		PageWidth:    A4Width,
		PageHeight:   A4Height,
		MarginLeft:   36,
		MarginRight:  36,
		MarginTop:    40,
		MarginBottom: 40,
	}
}

// UsableWidth is the printable width of one page.
func (g Geometry) UsableWidth() float64 {
	return g.PageWidth - g.MarginLeft - g.MarginRight
}

// UsableHeight is the printable height of one page.
func (g Geometry) UsableHeight() float64 {
	return g.PageHeight - g.MarginTop - g.MarginBottom
}
