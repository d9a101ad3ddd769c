package raster

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// syncWord identifies a big-endian v2 raster stream.
var syncWord = [4]byte{'R', 'a', 'S', '2'}

const headerSize = 1796

// Encoder writes a PWG raster stream: the sync word once, then for each
// page a header followed by RLE-compressed pixel rows. Rows must arrive
// in top-to-bottom order and identical consecutive rows are folded into
// line repeats.
type Encoder struct {
	w      io.Writer
	synced bool

	// current page
	header       *Header
	bytesPerLine int
	bpp          int
	linesLeft    int
	prevLine     []byte
	lineRep      int
	lineBuf      bytes.Buffer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// StartJob emits the stream sync word.
func (e *Encoder) StartJob() error {
	if e.synced {
		return nil
	}
	e.synced = true
	_, err := e.w.Write(syncWord[:])
	return err
}

// StartPage writes the page header and prepares the row encoder. The
// returned image box covers the whole page: PWG raster has no margins.
func (e *Encoder) StartPage(h *Header) (ImageBox, error) {
	if !e.synced {
		return ImageBox{}, errors.New("raster: StartPage before StartJob")
	}
	if e.header != nil {
		return ImageBox{}, errors.New("raster: page already open")
	}
	if h.CUPSWidth <= 0 || h.CUPSHeight <= 0 || h.CUPSBytesPerLine <= 0 {
		return ImageBox{}, fmt.Errorf("raster: bad page dimensions %dx%d", h.CUPSWidth, h.CUPSHeight)
	}

	buf := make([]byte, 0, headerSize)
	buf = appendHeader(buf, h)
	if _, err := e.w.Write(buf); err != nil {
		return ImageBox{}, err
	}

	e.header = h
	e.bytesPerLine = h.CUPSBytesPerLine
	e.bpp = h.BytesPerPixel()
	e.linesLeft = h.CUPSHeight
	e.prevLine = e.prevLine[:0]
	e.lineRep = 0
	return ImageBox{Left: 0, Top: 0, Right: h.CUPSWidth - 1, Bottom: h.CUPSHeight - 1}, nil
}

// WriteLine appends one row of pixels. The row number is accepted for
// symmetry with other encoders; PWG raster requires in-order rows, so
// only the call order matters. line must hold CUPSBytesPerLine bytes.
func (e *Encoder) WriteLine(_ int, line []byte) error {
	if e.header == nil {
		return errors.New("raster: WriteLine outside a page")
	}
	if len(line) < e.bytesPerLine {
		return fmt.Errorf("raster: short line: %d < %d", len(line), e.bytesPerLine)
	}
	if e.linesLeft == 0 {
		return errors.New("raster: too many lines for page")
	}
	line = line[:e.bytesPerLine]

	if e.lineRep > 0 && e.lineRep < 256 && bytes.Equal(line, e.prevLine) {
		e.lineRep++
		e.linesLeft--
		return nil
	}
	if err := e.flushLine(); err != nil {
		return err
	}
	e.prevLine = append(e.prevLine[:0], line...)
	e.lineRep = 1
	e.linesLeft--
	return nil
}

// EndPage flushes the trailing line group and closes the page.
func (e *Encoder) EndPage() error {
	if e.header == nil {
		return errors.New("raster: EndPage outside a page")
	}
	if err := e.flushLine(); err != nil {
		return err
	}
	if e.linesLeft != 0 {
		return fmt.Errorf("raster: page ended %d lines early", e.linesLeft)
	}
	e.header = nil
	return nil
}

// EndJob finishes the stream. The format carries no trailer.
func (e *Encoder) EndJob() error {
	if e.header != nil {
		return errors.New("raster: EndJob with open page")
	}
	return nil
}

// flushLine emits the buffered line group as repeat-count + encoded row.
func (e *Encoder) flushLine() error {
	if e.lineRep == 0 {
		return nil
	}
	e.lineBuf.Reset()
	e.lineBuf.WriteByte(byte(e.lineRep - 1))
	encodeRow(&e.lineBuf, e.prevLine, e.bpp)
	e.lineRep = 0
	_, err := e.w.Write(e.lineBuf.Bytes())
	return err
}

// encodeRow run-length encodes one row into buf. Runs are per pixel
// (bpp bytes): a header byte 0..127 means 1+n repeats of one pixel, a
// header byte 129..255 means 257-n literal pixels.
func encodeRow(buf *bytes.Buffer, line []byte, bpp int) {
	pixels := len(line) / bpp
	pixel := func(i int) []byte { return line[i*bpp : (i+1)*bpp] }

	for i := 0; i < pixels; {
		// count identical pixels
		run := 1
		for i+run < pixels && run < 128 && bytes.Equal(pixel(i), pixel(i+run)) {
			run++
		}
		if run > 1 || i+1 >= pixels {
			buf.WriteByte(byte(run - 1))
			buf.Write(pixel(i))
			i += run
			continue
		}

		// literal run: scan until two equal neighbors or the cap
		lit := 1
		for i+lit < pixels && lit < 128 {
			if i+lit+1 < pixels && bytes.Equal(pixel(i+lit), pixel(i+lit+1)) {
				break
			}
			lit++
		}
		if lit == 1 {
			buf.WriteByte(0)
			buf.Write(pixel(i))
			i++
			continue
		}
		buf.WriteByte(byte(257 - lit))
		buf.Write(line[i*bpp : (i+lit)*bpp])
		i += lit
	}
}

// appendHeader marshals h in the big-endian v2 layout.
func appendHeader(buf []byte, h *Header) []byte {
	buf = appendCString(buf, h.MediaClass)
	buf = appendCString(buf, h.MediaColor)
	buf = appendCString(buf, h.MediaType)
	buf = appendCString(buf, h.OutputType)

	buf = appendU32(buf, uint32(h.AdvanceDistance))
	buf = appendU32(buf, uint32(h.AdvanceMedia))
	buf = appendBool(buf, h.Collate)
	buf = appendU32(buf, uint32(h.CutMedia))
	buf = appendBool(buf, h.Duplex)
	buf = appendU32(buf, uint32(h.HorizDPI))
	buf = appendU32(buf, uint32(h.VertDPI))
	buf = appendU32(buf, uint32(h.BoundingBox.Left))
	buf = appendU32(buf, uint32(h.BoundingBox.Bottom))
	buf = appendU32(buf, uint32(h.BoundingBox.Right))
	buf = appendU32(buf, uint32(h.BoundingBox.Top))
	buf = appendBool(buf, h.InsertSheet)
	buf = appendU32(buf, uint32(h.Jog))
	buf = appendU32(buf, uint32(h.LeadingEdge))
	buf = appendU32(buf, uint32(h.MarginLeft))
	buf = appendU32(buf, uint32(h.MarginBottom))
	buf = appendBool(buf, h.ManualFeed)
	buf = appendU32(buf, uint32(h.MediaPosition))
	buf = appendU32(buf, uint32(h.MediaWeight))
	buf = appendBool(buf, h.MirrorPrint)
	buf = appendBool(buf, h.NegativePrint)
	buf = appendU32(buf, uint32(h.NumCopies))
	buf = appendU32(buf, uint32(h.Orientation))
	buf = appendBool(buf, h.OutputFaceUp)
	buf = appendU32(buf, uint32(h.Width))
	buf = appendU32(buf, uint32(h.Length))
	buf = appendBool(buf, h.Separations)
	buf = appendBool(buf, h.TraySwitch)
	buf = appendBool(buf, h.Tumble)
	buf = appendU32(buf, uint32(h.CUPSWidth))
	buf = appendU32(buf, uint32(h.CUPSHeight))
	buf = appendU32(buf, uint32(h.CUPSMediaType))
	buf = appendU32(buf, uint32(h.CUPSBitsPerColor))
	buf = appendU32(buf, uint32(h.CUPSBitsPerPixel))
	buf = appendU32(buf, uint32(h.CUPSBytesPerLine))
	buf = appendU32(buf, uint32(h.CUPSColorOrder))
	buf = appendU32(buf, uint32(h.CUPSColorSpace))
	buf = appendU32(buf, uint32(h.CUPSCompression))
	buf = appendU32(buf, uint32(h.CUPSRowCount))
	buf = appendU32(buf, uint32(h.CUPSRowFeed))
	buf = appendU32(buf, uint32(h.CUPSRowStep))

	buf = appendU32(buf, uint32(h.CUPSNumColors))
	buf = appendF32(buf, h.CUPSBorderlessScalingFactor)
	buf = appendF32(buf, h.CUPSPageSize[0])
	buf = appendF32(buf, h.CUPSPageSize[1])
	buf = appendF32(buf, h.CUPSImagingBBox.Left)
	buf = appendF32(buf, h.CUPSImagingBBox.Bottom)
	buf = appendF32(buf, h.CUPSImagingBBox.Right)
	buf = appendF32(buf, h.CUPSImagingBBox.Top)
	for _, v := range h.CUPSInteger {
		buf = appendU32(buf, uint32(int32(v)))
	}
	for _, v := range h.CUPSReal {
		buf = appendF32(buf, v)
	}
	for _, s := range h.CUPSString {
		buf = appendCString(buf, s)
	}
	buf = appendCString(buf, h.CUPSMarkerType)
	buf = appendCString(buf, h.CUPSRenderingIntent)
	buf = appendCString(buf, h.CUPSPageSizeName)
	return buf
}

func appendCString(buf []byte, s string) []byte {
	var field [64]byte
	copy(field[:63], s)
	return append(buf, field[:]...)
}

func appendU32(buf []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(buf, v)
}

func appendF32(buf []byte, v float32) []byte {
	return binary.BigEndian.AppendUint32(buf, math.Float32bits(v))
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return appendU32(buf, 1)
	}
	return appendU32(buf, 0)
}
