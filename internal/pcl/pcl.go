// Package pcl implements the HP PCL output encoder: per-page printer
// setup escapes, ordered dithering of grayscale scanlines to 1-bit
// raster, PackBits compression and blank-row elision.
package pcl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/mzyy94/ipptransform/internal/raster"
)

// pageSizeCodes maps page length in points to the PCL page size code
// (ESC & l <code> A). Sizes not listed are sent without a size code.
var pageSizeCodes = map[int]int{
	540:  80,  // Monarch envelope
	595:  25,  // A5
	624:  90,  // DL envelope
	649:  91,  // C5 envelope
	684:  81,  // COM-10 envelope
	709:  100, // B5 envelope
	756:  1,   // Executive
	792:  2,   // Letter
	842:  26,  // A4
	1008: 3,   // Legal
	1191: 27,  // A3
	1224: 6,   // Tabloid
}

// Encoder compiles a grayscale scanline stream into PCL. One page is
// open at a time; pages alternate front/back under duplex.
type Encoder struct {
	w          io.Writer
	jobStarted bool

	// per-page state
	header  *raster.Header
	box     raster.ImageBox
	page    int // 1-based, counted across the job
	open    bool
	blanks  int // pending skipped blank rows
	outBuf  []byte
	compBuf []byte
}

// NewEncoder returns a PCL encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// StartJob resets the printer. The reset is sent once per job, not per
// page.
func (e *Encoder) StartJob() error {
	if e.jobStarted {
		return nil
	}
	e.jobStarted = true
	return e.send("\033E")
}

// StartPage emits the page setup for the next page and returns the
// image box the caller must render. Even pages of a duplex job are
// back sides: the printer keeps the front side's page setup, so only
// the back-side selector is sent.
func (e *Encoder) StartPage(h *raster.Header) (raster.ImageBox, error) {
	if !e.jobStarted {
		return raster.ImageBox{}, errors.New("pcl: StartPage before StartJob")
	}
	if e.open {
		return raster.ImageBox{}, errors.New("pcl: page already open")
	}
	e.page++
	e.header = h
	e.box = imageBox(h)
	e.open = true
	e.blanks = 0

	outLen := (e.box.Width() + 7) / 8
	e.outBuf = make([]byte, 0, outLen)
	e.compBuf = make([]byte, 0, 2*outLen+2)

	backSide := h.Duplex && e.page%2 == 0
	if backSide {
		if err := e.send("\033&a2G"); err != nil {
			return raster.ImageBox{}, err
		}
	} else {
		if err := e.sendPageSetup(h); err != nil {
			return raster.ImageBox{}, err
		}
	}

	// graphics start
	err := e.send("\033*t%dR", h.HorizDPI)
	if err == nil {
		err = e.send("\033*r%dS", e.box.Width())
	}
	if err == nil {
		err = e.send("\033*r%dT", e.box.Height())
	}
	if err == nil {
		err = e.send("\033&a0H")
	}
	if err == nil {
		err = e.send("\033&a%dV", 720*e.box.Top/h.VertDPI)
	}
	if err == nil {
		err = e.send("\033*b2M")
	}
	if err == nil {
		err = e.send("\033*r1A")
	}
	return e.box, err
}

// sendPageSetup emits the front-side printer setup escapes.
func (e *Encoder) sendPageSetup(h *raster.Header) error {
	if err := e.send("\033&l12D\033&k12H"); err != nil {
		return err
	}
	if err := e.send("\033&l0O"); err != nil {
		return err
	}
	length := int(math.Floor(float64(h.CUPSPageSize[1]) + 0.5))
	if code, ok := pageSizeCodes[length]; ok {
		if err := e.send("\033&l%dA", code); err != nil {
			return err
		}
	} else {
		slog.Debug("no PCL page size code", "length", length)
	}
	if err := e.send("\033&l%dE\033&l0L", 12*e.box.Top/h.VertDPI); err != nil {
		return err
	}
	if h.Duplex {
		mode := 1
		if h.Tumble {
			mode = 2
		}
		if err := e.send("\033&l%dS", mode); err != nil {
			return err
		}
	}
	return nil
}

// WriteLine encodes one grayscale row. line[0] is the pixel at the
// image box's left edge and the row must span the box width. All-white
// rows are skipped and replayed as a single relative vertical move.
func (e *Encoder) WriteLine(y int, line []byte) error {
	if !e.open {
		return errors.New("pcl: WriteLine outside a page")
	}
	width := e.box.Width()
	if len(line) < width {
		return fmt.Errorf("pcl: short line: %d < %d", len(line), width)
	}
	if line[0] == 0xFF && allWhite(line[:width]) {
		e.blanks++
		return nil
	}

	e.outBuf = ditherRow(e.outBuf, line[:width], e.box.Left, width, y)
	e.compBuf = packBits(e.compBuf, e.outBuf)

	if err := e.flushBlanks(); err != nil {
		return err
	}
	if err := e.send("\033*b%dW", len(e.compBuf)); err != nil {
		return err
	}
	_, err := e.w.Write(e.compBuf)
	return err
}

// EndPage flushes pending blank rows, ends graphics and ejects the
// sheet. Under duplex the formfeed follows odd pages only; the back
// side shares the sheet already in motion.
func (e *Encoder) EndPage() error {
	if !e.open {
		return errors.New("pcl: EndPage outside a page")
	}
	if err := e.flushBlanks(); err != nil {
		return err
	}
	if err := e.send("\033*r0B"); err != nil {
		return err
	}
	if !e.header.Duplex || e.page%2 == 1 {
		if err := e.send("\f"); err != nil {
			return err
		}
	}
	e.open = false
	e.outBuf = nil
	e.compBuf = nil
	return nil
}

// EndJob resets the printer.
func (e *Encoder) EndJob() error {
	if e.open {
		return errors.New("pcl: EndJob with open page")
	}
	return e.send("\033E")
}

// flushBlanks replays accumulated blank rows as a raster Y offset.
func (e *Encoder) flushBlanks() error {
	if e.blanks == 0 {
		return nil
	}
	n := e.blanks
	e.blanks = 0
	return e.send("\033*b%dY", n)
}

func (e *Encoder) send(format string, args ...any) error {
	if len(args) == 0 {
		_, err := io.WriteString(e.w, format)
		return err
	}
	_, err := fmt.Fprintf(e.w, format, args...)
	return err
}

// imageBox computes the printable pixel rectangle. Top and bottom keep
// a 1/6 inch margin, the sides 1/4 inch — except A4, which centers an
// 8 inch wide image to match the classic PCL printable area.
func imageBox(h *raster.Header) raster.ImageBox {
	top := h.VertDPI / 6
	left := h.HorizDPI / 4
	right := h.CUPSWidth - left - 1
	if int(math.Floor(float64(h.CUPSPageSize[1])+0.5)) == 842 {
		left = (h.CUPSWidth - 8*h.HorizDPI) / 2
		right = left + 8*h.HorizDPI - 1
	}
	return raster.ImageBox{
		Left:   left,
		Top:    top,
		Right:  right,
		Bottom: h.CUPSHeight - top - 1,
	}
}

func allWhite(line []byte) bool {
	for _, b := range line {
		if b != 0xFF {
			return false
		}
	}
	return true
}
