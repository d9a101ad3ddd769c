package transform

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/OpenPrinting/go-mfp/util/optional"

	"github.com/mzyy94/ipptransform/internal/ippopt"
	"github.com/mzyy94/ipptransform/internal/media"
	"github.com/mzyy94/ipptransform/internal/raster"
	"github.com/mzyy94/ipptransform/internal/report"
)

// Raster color types.
const (
	TypeSGray8 = "sgray_8"
	TypeSRGB8  = "srgb_8"
)

// Sides keywords.
const (
	OneSided         = "one-sided"
	TwoSidedLongEdge = "two-sided-long-edge"
	TwoSidedShort    = "two-sided-short-edge"
)

// Settings carries the printer-side inputs of job configuration: what
// the printer supports and the defaults the server advertises.
type Settings struct {
	Resolutions  []ippopt.Resolution
	Types        []string
	SheetBack    string               // normal, flipped, manual-tumble, rotated
	MediaDefault optional.Val[string] // PRINTER_MEDIA_DEFAULT
	SidesDefault optional.Val[string] // PRINTER_SIDES_DEFAULT
	Log          *report.Reporter
}

// Ticket is the resolved job configuration: immutable page geometry
// plus the front and back page headers.
type Ticket struct {
	Media      media.Size
	Resolution ippopt.Resolution
	ColorType  string
	Sides      string
	Copies     int
	SheetBack  string
	FitToPage  bool // scale undersized pages up to the media

	Pages          int // source page count
	PagesEffective int // per copy, including a blank back side
	TotalPages     int // copies x PagesEffective

	Front raster.Header
	Back  raster.Header
}

// Duplex reports whether the job prints on both sides.
func (t *Ticket) Duplex() bool { return t.Sides != OneSided }

// Tumble reports short-edge duplex.
func (t *Ticket) Tumble() bool { return t.Sides == TwoSidedShort }

// NewTicket resolves the job options against the printer settings for
// a document with the given page count and color content.
func NewTicket(opts ippopt.Options, set Settings, pages int, colorInput bool) (*Ticket, error) {
	t := &Ticket{Pages: pages}

	res, err := resolveResolution(opts, set)
	if err != nil {
		return nil, err
	}
	t.Resolution = res

	t.ColorType = resolveColorType(opts, set.Types, colorInput)

	t.Media, err = resolveMedia(opts, set)
	if err != nil {
		return nil, err
	}

	t.Sides, err = resolveSides(opts, set, pages)
	if err != nil {
		return nil, err
	}

	t.Copies, err = resolveCopies(opts)
	if err != nil {
		return nil, err
	}

	if v, ok := ippopt.ParseBool(opts.Get("fit-to-page")); ok {
		t.FitToPage = v
	}

	t.SheetBack = set.SheetBack
	if t.SheetBack == "" {
		t.SheetBack = "normal"
	}

	t.PagesEffective = pages
	if t.Duplex() && pages%2 == 1 && t.Copies > 1 {
		// a blank back side keeps every copy starting on a front
		t.PagesEffective++
	}
	t.TotalPages = t.Copies * t.PagesEffective

	t.Front = t.makeHeader()
	t.Back = t.Front
	cross, feed := backTransformSigns(t.SheetBack, t.Tumble())
	t.Back.CUPSInteger[raster.IntCrossFeedTransform] = cross
	t.Back.CUPSInteger[raster.IntFeedTransform] = feed
	return t, nil
}

// resolveResolution picks the job resolution: an explicitly requested
// supported resolution, else print-quality mapped into the supported
// list, else the median supported resolution.
func resolveResolution(opts ippopt.Options, set Settings) (ippopt.Resolution, error) {
	supported := set.Resolutions

	if v := opts.Get("printer-resolution"); v != "" {
		if res, ok := ippopt.ParseResolution(v); ok {
			for _, s := range supported {
				if s == res {
					return res, nil
				}
			}
		}
		// unparsable or unadvertised: discard the option and fall
		// through to print-quality
		if set.Log != nil {
			set.Log.Info("Unsupported \"printer-resolution\" value '%s', using default resolution.", v)
		}
		slog.Info("unsupported printer-resolution", "value", v)
	}

	if len(supported) == 0 {
		return ippopt.Resolution{}, fmt.Errorf("no supported resolutions")
	}

	if v := opts.Get("print-quality"); v != "" {
		switch v {
		case "3", "draft":
			return supported[0], nil
		case "4", "normal":
			return supported[len(supported)/2], nil
		case "5", "high":
			return supported[len(supported)-1], nil
		}
	}
	return supported[len(supported)/2], nil
}

// resolveColorType picks srgb_8 only when the document has color, the
// printer supports it, and the job does not force monochrome.
func resolveColorType(opts ippopt.Options, types []string, colorInput bool) string {
	switch opts.Get("print-color-mode") {
	case "monochrome", "auto-monochrome", "process-monochrome":
		return TypeSGray8
	}
	if !colorInput {
		return TypeSGray8
	}
	for _, t := range types {
		if t == TypeSRGB8 {
			return TypeSRGB8
		}
	}
	return TypeSGray8
}

func resolveMedia(opts ippopt.Options, set Settings) (media.Size, error) {
	if v := opts.Get("media"); v != "" {
		size, ok := media.Parse(v)
		if !ok {
			return media.Size{}, &media.UnknownError{Option: "media", Value: v}
		}
		return size, nil
	}

	if v := opts.Get("media-col"); v != "" {
		col := ippopt.Collection(v)
		if name := col.Get("media-size-name"); name != "" {
			size, ok := media.Parse(name)
			if !ok {
				return media.Size{}, &media.UnknownError{Option: "media-col", Value: name}
			}
			return size, nil
		}
		if ms := col.Get("media-size"); ms != "" {
			sub := ippopt.Collection(ms)
			x, okX := sub.GetInt("x-dimension", 0)
			y, okY := sub.GetInt("y-dimension", 0)
			if !okX || !okY || x <= 0 || y <= 0 {
				return media.Size{}, &media.UnknownError{Option: "media-col", Value: ms}
			}
			return media.FromDimensions(x, y), nil
		}
	}

	if set.MediaDefault != nil && *set.MediaDefault != "" {
		size, ok := media.Parse(*set.MediaDefault)
		if !ok {
			return media.Size{}, &media.UnknownError{Option: "media", Value: *set.MediaDefault}
		}
		return size, nil
	}

	size, _ := media.Lookup("na_letter_8.5x11in")
	return size, nil
}

func resolveSides(opts ippopt.Options, set Settings, pages int) (string, error) {
	if pages == 1 {
		return OneSided, nil
	}
	v := opts.Get("sides")
	if v == "" && set.SidesDefault != nil {
		v = *set.SidesDefault
	}
	switch v {
	case "":
		return OneSided, nil
	case OneSided, TwoSidedLongEdge, TwoSidedShort:
		return v, nil
	default:
		return "", fmt.Errorf("bad \"sides\" value '%s'", v)
	}
}

func resolveCopies(opts ippopt.Options) (int, error) {
	if !opts.Has("copies") {
		return 1, nil
	}
	v := opts.Get("copies")
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 9999 {
		return 0, fmt.Errorf("bad \"copies\" value '%s'", v)
	}
	return n, nil
}

// makeHeader builds the front page header from the resolved geometry.
func (t *Ticket) makeHeader() raster.Header {
	widthPts := t.Media.WidthPoints()
	lengthPts := t.Media.LengthPoints()

	h := raster.Header{
		MediaClass:       "PwgRaster",
		HorizDPI:         t.Resolution.X,
		VertDPI:          t.Resolution.Y,
		Duplex:           t.Duplex(),
		Tumble:           t.Tumble(),
		NumCopies:        1,
		Width:            int(math.Floor(widthPts + 0.5)),
		Length:           int(math.Floor(lengthPts + 0.5)),
		CUPSWidth:        t.Media.Width * t.Resolution.X / 2540,
		CUPSHeight:       t.Media.Length * t.Resolution.Y / 2540,
		CUPSBitsPerColor: 8,
		CUPSColorOrder:   raster.ColorOrderChunky,
		CUPSPageSize:     [2]float32{float32(widthPts), float32(lengthPts)},
		CUPSPageSizeName: t.Media.Name,
	}
	if t.ColorType == TypeSRGB8 {
		h.CUPSBitsPerPixel = 24
		h.CUPSBytesPerLine = 3 * h.CUPSWidth
		h.CUPSColorSpace = raster.ColorSpaceSRGB
		h.CUPSNumColors = 3
	} else {
		h.CUPSBitsPerPixel = 8
		h.CUPSBytesPerLine = h.CUPSWidth
		h.CUPSColorSpace = raster.ColorSpaceSGray
		h.CUPSNumColors = 1
	}
	h.CUPSInteger[raster.IntTotalPageCount] = t.TotalPages
	h.CUPSInteger[raster.IntCrossFeedTransform] = 1
	h.CUPSInteger[raster.IntFeedTransform] = 1
	return h
}

// backTransformSigns encodes the sheet-back keyword as the PWG
// cross-feed and feed transform values of the back-side header.
func backTransformSigns(sheetBack string, tumble bool) (cross, feed int) {
	switch {
	case sheetBack == "flipped" && !tumble:
		return 1, -1
	case sheetBack == "flipped" && tumble:
		return -1, 1
	case sheetBack == "manual-tumble" && tumble:
		return -1, -1
	case sheetBack == "rotated" && !tumble:
		return -1, -1
	default:
		return 1, 1
	}
}
