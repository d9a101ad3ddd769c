package transform

import (
	"bytes"
	"strings"
	"testing"

	"seehuhn.de/go/geom/matrix"

	"github.com/mzyy94/ipptransform/internal/ippopt"
	"github.com/mzyy94/ipptransform/internal/raster"
	"github.com/mzyy94/ipptransform/internal/report"
	"github.com/mzyy94/ipptransform/internal/source"
)

// whiteDoc is a document whose pages are empty (all white), recording
// the band windows it is asked to render.
type whiteDoc struct {
	pages   int
	windows [][2]int
}

func (d *whiteDoc) Pages() int                      { return d.pages }
func (d *whiteDoc) Color() bool                     { return false }
func (d *whiteDoc) PageSize(int) (float64, float64) { return 612, 792 }
func (d *whiteDoc) Close() error                    { return nil }

func (d *whiteDoc) DrawPage(_ int, band *source.Band, _ matrix.Matrix) error {
	d.windows = append(d.windows, [2]int{band.StartY, band.EndY})
	return nil
}

// recordingEncoder captures the pipeline's encoder calls.
type recordingEncoder struct {
	headers []*raster.Header
	lines   []int // per page
	box     func(h *raster.Header) raster.ImageBox
	ended   int
	jobEnds int
}

func (e *recordingEncoder) StartJob() error { return nil }

func (e *recordingEncoder) StartPage(h *raster.Header) (raster.ImageBox, error) {
	e.headers = append(e.headers, h)
	e.lines = append(e.lines, 0)
	if e.box != nil {
		return e.box(h), nil
	}
	return raster.ImageBox{Left: 0, Top: 0, Right: h.CUPSWidth - 1, Bottom: h.CUPSHeight - 1}, nil
}

func (e *recordingEncoder) WriteLine(_ int, _ []byte) error {
	e.lines[len(e.lines)-1]++
	return nil
}

func (e *recordingEncoder) EndPage() error { e.ended++; return nil }
func (e *recordingEncoder) EndJob() error  { e.jobEnds++; return nil }

func runJob(t *testing.T, tk *Ticket, doc source.Document, enc Encoder, rep *report.Reporter) {
	t.Helper()
	job := &Job{Doc: doc, Ticket: tk, Encoder: enc, Reporter: rep}
	if err := job.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestPipelineSimplex(t *testing.T) {
	set := defaultSettings()
	opts := ippopt.Options{"printer-resolution": "300dpi", "copies": "2"}
	doc := &whiteDoc{pages: 3}
	tk := mustTicket(t, opts, set, doc.pages, false)

	enc := &recordingEncoder{}
	var errLines strings.Builder
	runJob(t, tk, doc, enc, report.New(&errLines, report.Quiet))

	if len(enc.headers) != 6 {
		t.Fatalf("StartPage calls = %d, want 6", len(enc.headers))
	}
	for i, h := range enc.headers {
		if h != &tk.Front {
			t.Errorf("page %d used back header under simplex", i+1)
		}
	}
	for i, n := range enc.lines {
		if n != tk.Front.CUPSHeight {
			t.Errorf("page %d lines = %d, want %d", i+1, n, tk.Front.CUPSHeight)
		}
	}
	if enc.ended != 6 || enc.jobEnds != 1 {
		t.Errorf("EndPage = %d, EndJob = %d", enc.ended, enc.jobEnds)
	}

	s := errLines.String()
	if !strings.Contains(s, "ATTR: job-impressions-completed=6\n") {
		t.Errorf("missing final impressions line:\n%s", s)
	}
	if !strings.Contains(s, "ATTR: job-media-sheets-completed=6\n") {
		t.Errorf("missing final sheets line:\n%s", s)
	}
}

func TestPipelineDuplexBlankBack(t *testing.T) {
	set := defaultSettings()
	opts := ippopt.Options{
		"media":              "iso_a4_210x297mm",
		"printer-resolution": "300dpi",
		"sides":              TwoSidedLongEdge,
		"copies":             "2",
	}
	doc := &whiteDoc{pages: 3}
	tk := mustTicket(t, opts, set, doc.pages, false)

	enc := &recordingEncoder{}
	var errLines strings.Builder
	runJob(t, tk, doc, enc, report.New(&errLines, report.Quiet))

	// 2 copies x (3 document pages + 1 synthetic blank back)
	if len(enc.headers) != 8 {
		t.Fatalf("StartPage calls = %d, want 8", len(enc.headers))
	}
	if tk.TotalPages != len(enc.headers) {
		t.Errorf("TotalPageCount %d != StartPage calls %d", tk.TotalPages, len(enc.headers))
	}
	// pages alternate front/back within each copy
	for i, h := range enc.headers {
		wantBack := i%2 == 1
		if (h == &tk.Back) != wantBack {
			t.Errorf("page %d back = %v, want %v", i+1, h == &tk.Back, wantBack)
		}
	}

	s := errLines.String()
	if !strings.Contains(s, "ATTR: job-impressions-completed=8\n") {
		t.Errorf("missing final impressions line:\n%s", s)
	}
	// 2 sheets per copy
	if !strings.Contains(s, "ATTR: job-media-sheets-completed=4\n") {
		t.Errorf("missing final sheets line:\n%s", s)
	}
	if strings.Contains(s, "job-media-sheets-completed=5") {
		t.Errorf("blank back side counted as a sheet:\n%s", s)
	}
}

func TestPipelineHonorsImageBox(t *testing.T) {
	set := defaultSettings()
	opts := ippopt.Options{"printer-resolution": "300dpi"}
	doc := &whiteDoc{pages: 1}
	tk := mustTicket(t, opts, set, doc.pages, false)

	enc := &recordingEncoder{
		box: func(h *raster.Header) raster.ImageBox {
			return raster.ImageBox{Left: 75, Top: 50, Right: h.CUPSWidth - 76, Bottom: h.CUPSHeight - 51}
		},
	}
	runJob(t, tk, doc, enc, report.New(&strings.Builder{}, report.Quiet))

	want := tk.Front.CUPSHeight - 100
	if enc.lines[0] != want {
		t.Errorf("lines = %d, want image box height %d", enc.lines[0], want)
	}
}

func TestPipelineBandWindows(t *testing.T) {
	set := defaultSettings()
	// letter at 600dpi splits into multiple bands under the 16MB cap
	opts := ippopt.Options{"printer-resolution": "600dpi"}
	doc := &whiteDoc{pages: 1}
	tk := mustTicket(t, opts, set, doc.pages, false)

	enc := &recordingEncoder{}
	runJob(t, tk, doc, enc, report.New(&strings.Builder{}, report.Quiet))

	if len(doc.windows) < 2 {
		t.Fatalf("band renders = %d, want >= 2", len(doc.windows))
	}
	prevEnd := 0
	for i, w := range doc.windows {
		startY, endY := w[0], w[1]
		if startY != prevEnd {
			t.Errorf("band %d starts at %d, want %d", i, startY, prevEnd)
		}
		if endY <= startY || endY > tk.Front.CUPSHeight {
			t.Errorf("band %d window [%d, %d) out of range", i, startY, endY)
		}
		prevEnd = endY
	}
	if prevEnd != tk.Front.CUPSHeight {
		t.Errorf("bands end at %d, want %d", prevEnd, tk.Front.CUPSHeight)
	}
}

func TestBandHeight(t *testing.T) {
	if h := bandHeight(5100, 1, 6600); h != maxRasterBytes/5100 {
		t.Errorf("gray letter band = %d", h)
	}
	if h := bandHeight(300, 1, 200); h != 200 {
		t.Errorf("small page band = %d, want clamp to page height", h)
	}
	if h := bandHeight(20_000_000, 4, 10); h != 1 {
		t.Errorf("huge line band = %d, want 1", h)
	}
}

func TestBackTransformMatrices(t *testing.T) {
	tests := []struct {
		sheetBack string
		tumble    bool
		want      matrix.Matrix
	}{
		{"flipped", false, matrix.Matrix{1, 0, 0, -1, 0, 792}},
		{"flipped", true, matrix.Matrix{-1, 0, 0, 1, 612, 0}},
		{"manual-tumble", true, matrix.Matrix{-1, 0, 0, -1, 612, 792}},
		{"rotated", false, matrix.Matrix{-1, 0, 0, -1, 612, 792}},
		{"normal", false, matrix.Identity},
		{"manual-tumble", false, matrix.Identity},
		{"rotated", true, matrix.Identity},
	}
	for _, tt := range tests {
		got := backTransform(tt.sheetBack, tt.tumble, 612, 792)
		if got != tt.want {
			t.Errorf("backTransform(%s, %v) = %v, want %v", tt.sheetBack, tt.tumble, got, tt.want)
		}
	}
}

func TestFitTransform(t *testing.T) {
	// oversized page shrinks and centers
	m := fitTransform(1224, 792, 612, 792, false)
	if m[0] != 0.5 || m[3] != 0.5 {
		t.Errorf("shrink scale = %v", m)
	}
	if m[4] != 0 || m[5] != 198 {
		t.Errorf("shrink offset = (%v, %v), want (0, 198)", m[4], m[5])
	}

	// undersized page stays put without upscale
	m = fitTransform(306, 396, 612, 792, false)
	if m[0] != 1 {
		t.Errorf("no-upscale scale = %v", m[0])
	}
	if m[4] != 153 || m[5] != 198 {
		t.Errorf("centering offset = (%v, %v)", m[4], m[5])
	}

	// and grows with upscale
	m = fitTransform(306, 396, 612, 792, true)
	if m[0] != 2 {
		t.Errorf("upscale scale = %v", m[0])
	}
}

func TestPipelinePCLFormfeeds(t *testing.T) {
	set := defaultSettings()
	opts := ippopt.Options{
		"media":              "iso_a4_210x297mm",
		"printer-resolution": "300dpi",
		"sides":              TwoSidedLongEdge,
		"copies":             "2",
	}
	doc := &whiteDoc{pages: 3}
	tk := mustTicket(t, opts, set, doc.pages, false)

	var out bytes.Buffer
	enc, err := NewEncoder(MimePCL, &out)
	if err != nil {
		t.Fatal(err)
	}
	runJob(t, tk, doc, enc, report.New(&strings.Builder{}, report.Quiet))

	// a formfeed per physical sheet: 2 copies x 2 sheets
	if got := bytes.Count(out.Bytes(), []byte{'\f'}); got != 4 {
		t.Errorf("formfeeds = %d, want 4", got)
	}
}

func TestPipelinePCLSimplexFormfeeds(t *testing.T) {
	set := defaultSettings()
	opts := ippopt.Options{"printer-resolution": "300dpi", "copies": "3"}
	doc := &whiteDoc{pages: 2}
	tk := mustTicket(t, opts, set, doc.pages, false)

	var out bytes.Buffer
	enc, err := NewEncoder(MimePCL, &out)
	if err != nil {
		t.Fatal(err)
	}
	runJob(t, tk, doc, enc, report.New(&strings.Builder{}, report.Quiet))

	if got := bytes.Count(out.Bytes(), []byte{'\f'}); got != 6 {
		t.Errorf("formfeeds = %d, want pages x copies = 6", got)
	}
}

func TestPipelinePWGStream(t *testing.T) {
	set := defaultSettings()
	// 1 inch square custom media keeps the stream small
	opts := ippopt.Options{
		"media-col":          "{media-size={x-dimension=2540 y-dimension=2540}}",
		"printer-resolution": "300dpi",
	}
	doc := &whiteDoc{pages: 1}
	tk := mustTicket(t, opts, set, doc.pages, false)

	var out bytes.Buffer
	enc, err := NewEncoder(MimePWGRaster, &out)
	if err != nil {
		t.Fatal(err)
	}
	var errLines strings.Builder
	runJob(t, tk, doc, enc, report.New(&errLines, report.Quiet))

	data := out.Bytes()
	if string(data[:4]) != "RaS2" {
		t.Fatalf("sync word = %q", data[:4])
	}
	if len(data) <= 4+1796 {
		t.Fatalf("stream too short: %d bytes", len(data))
	}
	if got := strings.Count(errLines.String(), "job-impressions-completed=1\n"); got != 1 {
		t.Errorf("impressions=1 reported %d times", got)
	}
}

func TestPackRGBX(t *testing.T) {
	// 5 pixels of RGBX
	line := []byte{
		1, 2, 3, 0xAA,
		4, 5, 6, 0xBB,
		7, 8, 9, 0xCC,
		10, 11, 12, 0xDD,
		13, 14, 15, 0xEE,
	}
	packRGBX(line, 5)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	if !bytes.Equal(line[:15], want) {
		t.Errorf("packed = %v, want %v", line[:15], want)
	}
}
