package source

import (
	"fmt"
	"log/slog"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/pagetree"
)

// permPrint is bit 3 of the encryption dictionary's P value.
const permPrint = 1 << 2

// pdfDocument reads pages through the seehuhn.de/go/pdf object model
// and rasterizes their content streams with the engine's interpreter.
type pdfDocument struct {
	r        *pdf.Reader
	numPages int
}

func openPDF(path string) (Document, error) {
	locked := false
	opts := &pdf.ReaderOptions{
		ReadPassword: func(_ []byte, try int) string {
			// one attempt with the empty password; a second request
			// means the document needs a real one
			if try > 0 {
				locked = true
			}
			return ""
		},
	}
	r, err := pdf.Open(path, opts)
	if err != nil {
		if locked {
			return nil, ErrDocumentLocked
		}
		return nil, fmt.Errorf("open PDF %s: %w", path, err)
	}

	doc := &pdfDocument{r: r}
	if err := doc.checkPermissions(); err != nil {
		r.Close()
		return nil, err
	}

	doc.numPages, err = pagetree.NumPages(r)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("page count of %s: %w", path, err)
	}
	if doc.numPages < 1 {
		r.Close()
		return nil, fmt.Errorf("%s has no pages", path)
	}
	return doc, nil
}

// checkPermissions rejects encrypted documents whose permission bits
// forbid printing.
func (d *pdfDocument) checkPermissions() error {
	trailer := d.r.GetMeta().Trailer
	encObj, ok := trailer["Encrypt"]
	if !ok || encObj == nil {
		return nil
	}
	enc, err := pdf.GetDict(d.r, encObj)
	if err != nil || enc == nil {
		return nil
	}
	p, err := pdf.GetInteger(d.r, enc["P"])
	if err != nil {
		return nil
	}
	if uint32(p)&permPrint == 0 {
		return ErrPrintingDenied
	}
	return nil
}

func (d *pdfDocument) Pages() int { return d.numPages }

// Color is true for PDF input: the content stream decides per page and
// detecting it up front would mean interpreting every page twice.
func (d *pdfDocument) Color() bool { return true }

// pageDict fetches the page dictionary with inherited attributes
// resolved. Pages are numbered from 1.
func (d *pdfDocument) pageDict(page int) (pdf.Dict, error) {
	dict, err := pagetree.GetPage(d.r, page-1)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	return dict, nil
}

// cropBox returns the page's crop box, falling back to the media box
// and then to US Letter.
func (d *pdfDocument) cropBox(dict pdf.Dict) *pdf.Rectangle {
	for _, key := range []pdf.Name{"CropBox", "MediaBox"} {
		if obj, ok := dict[key]; ok {
			box, err := pdf.GetRectangle(d.r, obj)
			if err == nil && box != nil && box.URx > box.LLx && box.URy > box.LLy {
				return box
			}
		}
	}
	return &pdf.Rectangle{LLx: 0, LLy: 0, URx: 612, URy: 792}
}

func (d *pdfDocument) PageSize(page int) (float64, float64) {
	dict, err := d.pageDict(page)
	if err != nil {
		slog.Debug("page size lookup failed", "page", page, "err", err)
		return 612, 792
	}
	box := d.cropBox(dict)
	return box.URx - box.LLx, box.URy - box.LLy
}

// DrawPage interprets the page's content stream into the band. The
// crop box origin is folded into the transform so content addressed in
// crop box coordinates lands at the page origin.
func (d *pdfDocument) DrawPage(page int, band *Band, ctm matrix.Matrix) error {
	dict, err := d.pageDict(page)
	if err != nil {
		return err
	}
	box := d.cropBox(dict)
	base := mul(matrix.Matrix{1, 0, 0, 1, -box.LLx, -box.LLy}, ctm)

	resources, err := pdf.GetDict(d.r, dict["Resources"])
	if err != nil {
		resources = nil
	}

	content, err := contentBytes(d.r, dict["Contents"])
	if err != nil {
		return fmt.Errorf("page %d content: %w", page, err)
	}

	interp := newInterpreter(d.r, band, base)
	return interp.run(content, resources)
}

// contentBytes collects the page's content stream bytes. Multiple
// streams in an array concatenate with a separating space.
func contentBytes(r *pdf.Reader, obj pdf.Object) ([]byte, error) {
	resolved, err := pdf.Resolve(r, obj)
	if err != nil {
		return nil, err
	}
	switch v := resolved.(type) {
	case *pdf.Stream:
		return decodeStream(r, v)
	case pdf.Array:
		var all []byte
		for _, elem := range v {
			stm, err := pdf.GetStream(r, elem)
			if err != nil || stm == nil {
				continue
			}
			data, err := decodeStream(r, stm)
			if err != nil {
				return nil, err
			}
			all = append(all, data...)
			all = append(all, ' ')
		}
		return all, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected Contents object %T", resolved)
	}
}

func (d *pdfDocument) Close() error {
	return d.r.Close()
}
