// Package source implements the input document capability of the
// transform engine: open a PDF or JPEG file, expose its page count and
// page geometry, and rasterize pages into band buffers under an affine
// transform.
package source

import (
	"errors"
	"fmt"

	"seehuhn.de/go/geom/matrix"
)

// MIME types the engine accepts.
const (
	MimePDF  = "application/pdf"
	MimeJPEG = "image/jpeg"
)

var (
	// ErrDocumentLocked reports an encrypted document that the empty
	// password does not unlock.
	ErrDocumentLocked = errors.New("document is encrypted and the empty password does not unlock it")

	// ErrPrintingDenied reports a document whose permissions forbid
	// printing.
	ErrPrintingDenied = errors.New("document does not allow printing")
)

// Document is an open input document. Pages are numbered from 1. The
// ctm passed to DrawPage maps document user space (points, origin
// bottom left) onto band pixel coordinates (origin top left of the
// page, y growing downward).
type Document interface {
	Pages() int
	Color() bool
	PageSize(page int) (width, height float64)
	DrawPage(page int, band *Band, ctm matrix.Matrix) error
	Close() error
}

// Open opens path as the given MIME type.
func Open(path, mimeType string) (Document, error) {
	switch mimeType {
	case MimePDF:
		return openPDF(path)
	case MimeJPEG:
		return openJPEG(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", mimeType)
	}
}

// mul returns the matrix product a·b in PDF order: applying the result
// transforms by a first, then b.
func mul(a, b matrix.Matrix) matrix.Matrix {
	return matrix.Matrix{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
		a[4]*b[0] + a[5]*b[2] + b[4],
		a[4]*b[1] + a[5]*b[3] + b[5],
	}
}

// apply transforms the point (x, y) by m.
func apply(m matrix.Matrix, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}
