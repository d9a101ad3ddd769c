package transform

import (
	"bytes"
	"fmt"
	"log/slog"

	"seehuhn.de/go/geom/matrix"

	"github.com/mzyy94/ipptransform/internal/report"
	"github.com/mzyy94/ipptransform/internal/source"
)

// maxRasterBytes bounds the band buffer: bands never hold more pixel
// bytes than this.
const maxRasterBytes = 16 * 1024 * 1024

// bandHeight returns the scanline count of a band for the given page
// width and pixel size, clamped to [1, pageHeight].
func bandHeight(width, bytesPerPixel, pageHeight int) int {
	h := maxRasterBytes / (width * bytesPerPixel)
	if h < 1 {
		h = 1
	}
	if h > pageHeight {
		h = pageHeight
	}
	return h
}

// backTransform returns the points-space transform aligning the back
// side of a duplex sheet with its front, for a page of the given size.
func backTransform(sheetBack string, tumble bool, w, h float64) matrix.Matrix {
	switch {
	case sheetBack == "flipped" && !tumble:
		return matrix.Matrix{1, 0, 0, -1, 0, h}
	case sheetBack == "flipped" && tumble:
		return matrix.Matrix{-1, 0, 0, 1, w, 0}
	case sheetBack == "manual-tumble" && tumble:
		return matrix.Matrix{-1, 0, 0, -1, w, h}
	case sheetBack == "rotated" && !tumble:
		return matrix.Matrix{-1, 0, 0, -1, w, h}
	default:
		return matrix.Identity
	}
}

// fitTransform maps a source page of srcW x srcH points onto the media
// of dstW x dstH points, centered and aspect preserving. Pages larger
// than the media always shrink; upscale says whether smaller pages
// grow to fill (image input) or keep their size (PDF input).
func fitTransform(srcW, srcH, dstW, dstH float64, upscale bool) matrix.Matrix {
	if srcW <= 0 || srcH <= 0 {
		return matrix.Identity
	}
	scale := dstW / srcW
	if s := dstH / srcH; s < scale {
		scale = s
	}
	if !upscale && scale > 1 {
		scale = 1
	}
	tx := (dstW - srcW*scale) / 2
	ty := (dstH - srcH*scale) / 2
	return matrix.Matrix{scale, 0, 0, scale, tx, ty}
}

// mul is the matrix product applying a before b.
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

// Job binds a document, its resolved ticket, an encoder and the
// progress reporter for one engine invocation.
type Job struct {
	Doc      source.Document
	Ticket   *Ticket
	Encoder  Encoder
	Reporter *report.Reporter

	// Upscale allows small pages to grow to the media size; set for
	// image input.
	Upscale bool
}

// Run drives the whole job: copies x pages, banded rendering, and the
// per-page dispatch into the encoder.
func (j *Job) Run() error {
	t := j.Ticket
	bpp := 1
	if t.ColorType == TypeSRGB8 {
		bpp = 4 // RGBX intermediate, packed to RGB per line
	}

	bandH := bandHeight(t.Front.CUPSWidth, bpp, t.Front.CUPSHeight)
	band := source.NewBand(t.Front.CUPSWidth, bandH, bpp)
	slog.Debug("band context",
		"width", t.Front.CUPSWidth, "height", bandH, "bpp", bpp,
		"pages", t.Pages, "copies", t.Copies, "sides", t.Sides)

	if err := j.Encoder.StartJob(); err != nil {
		return err
	}

	impressions := 0
	sheets := 0
	insertBlank := t.Duplex() && t.Pages%2 == 1 && t.Copies > 1

	for c := 0; c < t.Copies; c++ {
		for page := 1; page <= t.Pages; page++ {
			if err := j.renderPage(page, page, band); err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			impressions++
			j.Reporter.Attr("job-impressions-completed", impressions)
			if !t.Duplex() || page%2 == 1 {
				sheets++
				j.Reporter.Attr("job-media-sheets-completed", sheets)
			}
		}
		if insertBlank {
			if err := j.blankPage(t.Pages + 1); err != nil {
				return fmt.Errorf("blank back side: %w", err)
			}
			impressions++
			j.Reporter.Attr("job-impressions-completed", impressions)
		}
	}

	return j.Encoder.EndJob()
}

// renderPage rasterizes one document page through the encoder. index
// is the page's 1-based position within the copy, which decides
// front/back; page is the document page to draw.
func (j *Job) renderPage(page, index int, band *source.Band) error {
	t := j.Ticket
	back := t.Duplex() && index%2 == 0

	header := &t.Front
	if back {
		header = &t.Back
	}
	box, err := j.Encoder.StartPage(header)
	if err != nil {
		return err
	}

	ctm := j.pageTransform(page, back)

	bpp := band.BytesPerPixel
	bandH := band.Height()
	band.StartY, band.EndY = 0, 0

	for y := box.Top; y <= box.Bottom; y++ {
		if y >= band.EndY {
			band.StartY = y
			band.EndY = y + bandH
			if band.EndY > box.Bottom+1 {
				band.EndY = box.Bottom + 1
			}
			band.Clear()
			if err := j.Doc.DrawPage(page, band, ctm); err != nil {
				return err
			}
		}
		line := band.Row(y)[box.Left*bpp:]
		if bpp == 4 {
			packRGBX(line, box.Width())
		}
		if err := j.Encoder.WriteLine(y, line); err != nil {
			return err
		}
	}
	return j.Encoder.EndPage()
}

// pageTransform builds the document-space to page-pixel transform:
// fit the page onto the media, apply the back-side flip under duplex,
// then scale points to pixels with y growing downward.
func (j *Job) pageTransform(page int, back bool) matrix.Matrix {
	t := j.Ticket
	mediaW := t.Media.WidthPoints()
	mediaH := t.Media.LengthPoints()

	srcW, srcH := j.Doc.PageSize(page)
	ctm := fitTransform(srcW, srcH, mediaW, mediaH, j.Upscale || t.FitToPage)

	if back {
		ctm = mul(ctm, backTransform(t.SheetBack, t.Tumble(), mediaW, mediaH))
	}

	xs := float64(t.Resolution.X) / 72
	ys := float64(t.Resolution.Y) / 72
	device := matrix.Matrix{xs, 0, 0, -ys, 0, float64(t.Front.CUPSHeight)}
	return mul(ctm, device)
}

// blankPage feeds a synthetic all-white back side through the encoder.
func (j *Job) blankPage(index int) error {
	t := j.Ticket
	back := t.Duplex() && index%2 == 0
	header := &t.Front
	if back {
		header = &t.Back
	}
	box, err := j.Encoder.StartPage(header)
	if err != nil {
		return err
	}
	bpp := 1
	if t.ColorType == TypeSRGB8 {
		bpp = 4
	}
	line := bytes.Repeat([]byte{0xFF}, box.Width()*bpp)
	if bpp == 4 {
		packRGBX(line, box.Width())
	}
	for y := box.Top; y <= box.Bottom; y++ {
		if err := j.Encoder.WriteLine(y, line); err != nil {
			return err
		}
	}
	return j.Encoder.EndPage()
}
