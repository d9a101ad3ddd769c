// Package transform implements the raster production pipeline: job
// configuration, banded rendering, and the per-copy, per-page, duplex
// aware sequencing that feeds scanlines into a format encoder.
package transform

import (
	"fmt"
	"io"

	"github.com/mzyy94/ipptransform/internal/pcl"
	"github.com/mzyy94/ipptransform/internal/raster"
)

// Output MIME types.
const (
	MimePWGRaster = "image/pwg-raster"
	MimePCL       = "application/vnd.hp-pcl"
)

// Encoder is the output format capability. StartPage returns the image
// box the pipeline must render and feed line by line, top to bottom.
type Encoder interface {
	StartJob() error
	StartPage(h *raster.Header) (raster.ImageBox, error)
	WriteLine(y int, line []byte) error
	EndPage() error
	EndJob() error
}

// NewEncoder selects the encoder for an output MIME type.
func NewEncoder(mimeType string, w io.Writer) (Encoder, error) {
	switch mimeType {
	case MimePWGRaster:
		return raster.NewEncoder(w), nil
	case MimePCL:
		return pcl.NewEncoder(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", mimeType)
	}
}
