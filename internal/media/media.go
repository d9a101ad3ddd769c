// Package media implements the PWG media size database used to resolve
// job media options into physical page dimensions.
package media

import (
	"fmt"
	"strconv"
	"strings"
)

// Size describes one media entry. Width and Length are in PWG units
// (1/2540 inch = 1/100 mm), portrait orientation.
type Size struct {
	Name   string // PWG self-describing name
	Width  int
	Length int
}

// WidthPoints returns the media width in printer points (1/72 inch).
func (s Size) WidthPoints() float64 { return float64(s.Width) * 72 / 2540 }

// LengthPoints returns the media length in printer points.
func (s Size) LengthPoints() float64 { return float64(s.Length) * 72 / 2540 }

// UnknownError reports a media name that resolves to nothing.
type UnknownError struct {
	Option string // option the value came from ("media", "media-col")
	Value  string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("Unknown %q value '%s'", e.Option, e.Value)
}

// sizes is the supported subset of the PWG 5101.1 media database.
// Dimensions follow the CUPS pwg-media table.
var sizes = []Size{
	{"na_letter_8.5x11in", 21590, 27940},
	{"na_legal_8.5x14in", 21590, 35560},
	{"na_executive_7.25x10.5in", 18415, 26670},
	{"na_ledger_11x17in", 27940, 43180},
	{"na_invoice_5.5x8.5in", 13970, 21590},
	{"na_index-4x6_4x6in", 10160, 15240},
	{"na_5x7_5x7in", 12700, 17780},
	{"na_monarch_3.875x7.5in", 9842, 19050},
	{"na_number-10_4.125x9.5in", 10477, 24130},
	{"iso_a3_297x420mm", 29700, 42000},
	{"iso_a4_210x297mm", 21000, 29700},
	{"iso_a5_148x210mm", 14800, 21000},
	{"iso_a6_105x148mm", 10500, 14800},
	{"iso_b5_176x250mm", 17600, 25000},
	{"iso_c5_162x229mm", 16200, 22900},
	{"iso_dl_110x220mm", 11000, 22000},
	{"jis_b5_182x257mm", 18200, 25700},
	{"jpn_hagaki_100x148mm", 10000, 14800},
}

// legacy maps pre-PWG media keywords onto their self-describing names.
var legacy = map[string]string{
	"letter":    "na_letter_8.5x11in",
	"legal":     "na_legal_8.5x14in",
	"executive": "na_executive_7.25x10.5in",
	"tabloid":   "na_ledger_11x17in",
	"ledger":    "na_ledger_11x17in",
	"statement": "na_invoice_5.5x8.5in",
	"4x6":       "na_index-4x6_4x6in",
	"5x7":       "na_5x7_5x7in",
	"monarch":   "na_monarch_3.875x7.5in",
	"env10":     "na_number-10_4.125x9.5in",
	"com-10":    "na_number-10_4.125x9.5in",
	"com10":     "na_number-10_4.125x9.5in",
	"a3":        "iso_a3_297x420mm",
	"a4":        "iso_a4_210x297mm",
	"a5":        "iso_a5_148x210mm",
	"a6":        "iso_a6_105x148mm",
	"isob5":     "iso_b5_176x250mm",
	"c5":        "iso_c5_162x229mm",
	"dl":        "iso_dl_110x220mm",
	"jisb5":     "jis_b5_182x257mm",
	"b5":        "jis_b5_182x257mm",
	"hagaki":    "jpn_hagaki_100x148mm",
}

// Lookup resolves a PWG or legacy media name against the database.
func Lookup(name string) (Size, bool) {
	if pwg, ok := legacy[name]; ok {
		name = pwg
	}
	for _, s := range sizes {
		if s.Name == name {
			return s, true
		}
	}
	return Size{}, false
}

// Parse resolves name like Lookup, and additionally derives dimensions
// from any well-formed self-describing name (class_name_WxHunit with
// unit "in" or "mm"), so custom sizes outside the table still resolve.
func Parse(name string) (Size, bool) {
	if s, ok := Lookup(name); ok {
		return s, true
	}

	// class_name_WxHunit
	i := strings.LastIndexByte(name, '_')
	if i < 0 || !strings.Contains(name[:i], "_") {
		return Size{}, false
	}
	dims := name[i+1:]
	var unit float64
	switch {
	case strings.HasSuffix(dims, "in"):
		unit = 2540
		dims = strings.TrimSuffix(dims, "in")
	case strings.HasSuffix(dims, "mm"):
		unit = 100
		dims = strings.TrimSuffix(dims, "mm")
	default:
		return Size{}, false
	}
	ws, ls, ok := strings.Cut(dims, "x")
	if !ok {
		return Size{}, false
	}
	w, errW := strconv.ParseFloat(ws, 64)
	l, errL := strconv.ParseFloat(ls, 64)
	if errW != nil || errL != nil || w <= 0 || l <= 0 {
		return Size{}, false
	}
	return Size{Name: name, Width: int(w * unit), Length: int(l * unit)}, true
}

// FromDimensions builds a custom size from media-col x/y dimensions in
// PWG units.
func FromDimensions(x, y int) Size {
	return Size{
		Name:   fmt.Sprintf("custom_%dx%d_%dx%dmm", x, y, x/100, y/100),
		Width:  x,
		Length: y,
	}
}
