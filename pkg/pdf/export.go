// Package pdf lays out signed documents onto fixed-size A4 pages and
// serializes them as PDF files. Two sources feed the same pipeline: the
// structured document content and full-page raster captures.
package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/mattetti/filebuffer"
	"github.com/sirupsen/logrus"

	"github.com/CuongBC195/e-contract-backend/pkg/docsign"
	"github.com/CuongBC195/e-contract-backend/pkg/models"
	"github.com/CuongBC195/e-contract-backend/pkg/pdf/fonts"
)

var log = logrus.StandardLogger().WithField("package", "pdf")

// DefaultTimeout bounds one export. Exceeding it is a fatal, reported
// failure, not a retryable hang.
const DefaultTimeout = 30 * time.Second

type Exporter struct {
	geom      Geometry
	timeout   time.Duration
	typedFont *fonts.Font
}

type ExporterOption func(*Exporter)

func WithTimeout(d time.Duration) ExporterOption {
	return func(e *Exporter) {
		e.timeout = d
	}
}

func WithGeometry(g Geometry) ExporterOption {
	return func(e *Exporter) {
		e.geom = g
	}
}

// WithTypedFont embeds a script font for typed signatures.
func WithTypedFont(f *fonts.Font) ExporterOption {
	return func(e *Exporter) {
		e.typedFont = f
	}
}

func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		geom:    A4(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export renders the document from its structured content.
func (e *Exporter) Export(ctx context.Context, doc *models.Document) ([]byte, error) {
	return e.run(ctx, &StructuredLayout{Doc: doc, TypedFont: e.typedFont})
}

// ExportCapture renders from a full-page raster capture of known width.
func (e *Exporter) ExportCapture(ctx context.Context, img []byte, knownWidth float64) ([]byte, error) {
	return e.run(ctx, &CapturedLayout{Image: img, KnownWidth: knownWidth})
}

type renderResult struct {
	data []byte
	err  error
}

func (e *Exporter) run(ctx context.Context, src Source) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan renderResult, 1)
	go func() {
		start := time.Now()
		w := NewWriter()
		if err := src.Render(w, e.geom); err != nil {
			done <- renderResult{err: err}
			return
		}
		out := filebuffer.New([]byte{})
		if _, err := w.WriteTo(out); err != nil {
			done <- renderResult{err: err}
			return
		}
		log.Debugf("rendered %d page(s) in %s", w.PageCount(), time.Since(start))
		done <- renderResult{data: out.Buff.Bytes()}
	}()

	select {
	case <-ctx.Done():
		// No partial output on timeout; the goroutine's result is
		// discarded when it eventually finishes.
		return nil, fmt.Errorf("%w: %v", docsign.ErrPdfGenerationFailed, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", docsign.ErrPdfGenerationFailed, res.err)
		}
		return res.data, nil
	}
}
