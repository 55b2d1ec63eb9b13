package pdf

// Source is one renderable origin of page content. The structured layout
// and the captured-image layout both satisfy it, so the export pipeline is
// written once.
type Source interface {
	Render(w *Writer, geom Geometry) error
}
