package source

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/matrix"
)

// jpegDocument exposes a decoded JPEG as a one-page document. The
// image spans the page's user space at 72 points per inch of source
// pixels; the pipeline's page transform scales it onto the media.
type jpegDocument struct {
	img   image.Image
	color bool
}

func openJPEG(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode JPEG %s: %w", path, err)
	}
	return &jpegDocument{img: img, color: hasColor(img)}, nil
}

func (d *jpegDocument) Pages() int  { return 1 }
func (d *jpegDocument) Color() bool { return d.color }

func (d *jpegDocument) PageSize(int) (float64, float64) {
	bounds := d.img.Bounds()
	return float64(bounds.Dx()), float64(bounds.Dy())
}

// DrawPage maps the image onto the band through ctm. Image row 0 sits
// at the top of the page, so the pixel-to-user transform flips y.
func (d *jpegDocument) DrawPage(_ int, band *Band, ctm matrix.Matrix) error {
	bounds := d.img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w == 0 || h == 0 {
		return nil
	}

	// src pixel -> user space: ux = sx, uy = h - sy
	toUser := matrix.Matrix{1, 0, 0, -1, 0, h}
	m := mul(toUser, ctm)

	draw.CatmullRom.Transform(
		band.Image().(draw.Image),
		f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]},
		d.img, bounds, draw.Over, nil,
	)
	return nil
}

func (d *jpegDocument) Close() error { return nil }

// hasColor samples the image for chroma content. Gray-encoded images
// report false even when stored in a color pixel format.
func hasColor(img image.Image) bool {
	if _, ok := img.(*image.Gray); ok {
		return false
	}
	if _, ok := img.(*image.Gray16); ok {
		return false
	}
	bounds := img.Bounds()
	stepX := max(1, bounds.Dx()/64)
	stepY := max(1, bounds.Dy()/64)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			if r != g || g != b {
				return true
			}
		}
	}
	return false
}
