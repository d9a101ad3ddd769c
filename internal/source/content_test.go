package source

import (
	"io"
	"testing"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf"
)

func lexAll(t *testing.T, s string) []any {
	t.Helper()
	lex := &lexer{data: []byte(s)}
	var toks []any
	for {
		tok, err := lex.next()
		if err == io.EOF {
			return toks
		}
		if err != nil {
			t.Fatalf("lex %q: %v", s, err)
		}
		toks = append(toks, tok)
	}
}

func TestLexerTokens(t *testing.T) {
	toks := lexAll(t, "0.5 -3 /Name (str) <414243> [1 2] cm")
	if len(toks) != 7 {
		t.Fatalf("token count = %d: %#v", len(toks), toks)
	}
	if v, ok := toks[0].(float64); !ok || v != 0.5 {
		t.Errorf("toks[0] = %#v", toks[0])
	}
	if v, ok := toks[1].(float64); !ok || v != -3 {
		t.Errorf("toks[1] = %#v", toks[1])
	}
	if v, ok := toks[2].(pdf.Name); !ok || v != "Name" {
		t.Errorf("toks[2] = %#v", toks[2])
	}
	if v, ok := toks[3].([]byte); !ok || string(v) != "str" {
		t.Errorf("toks[3] = %#v", toks[3])
	}
	if v, ok := toks[4].([]byte); !ok || string(v) != "ABC" {
		t.Errorf("toks[4] = %#v", toks[4])
	}
	arr, ok := toks[5].([]any)
	if !ok || len(arr) != 2 {
		t.Errorf("toks[5] = %#v", toks[5])
	}
	if op, ok := toks[6].(operator); !ok || op != "cm" {
		t.Errorf("toks[6] = %#v", toks[6])
	}
}

func TestLexerCommentsAndNesting(t *testing.T) {
	toks := lexAll(t, "% a comment\n(nested (paren) string) << /K 1 >> re")
	if len(toks) != 3 {
		t.Fatalf("token count = %d: %#v", len(toks), toks)
	}
	if v, ok := toks[0].([]byte); !ok || string(v) != "nested (paren) string" {
		t.Errorf("string = %#v", toks[0])
	}
	dict, ok := toks[1].(map[pdf.Name]any)
	if !ok {
		t.Fatalf("dict = %#v", toks[1])
	}
	if v, ok := dict["K"].(float64); !ok || v != 1 {
		t.Errorf("dict[K] = %#v", dict["K"])
	}
}

func TestLexerInlineImageSkip(t *testing.T) {
	lex := &lexer{data: []byte("BI /W 2 /H 2 ID \x00\x01\xFF\x03 EI 1 0 0 1 0 0 cm")}
	tok, err := lex.next()
	if err != nil {
		t.Fatal(err)
	}
	if op, ok := tok.(operator); !ok || op != "BI" {
		t.Fatalf("first token = %#v", tok)
	}
	lex.skipInlineImage()
	rest := lexAll(t, string(lex.data[lex.pos:]))
	if len(rest) != 7 {
		t.Fatalf("tokens after EI = %d: %#v", len(rest), rest)
	}
	if op, ok := rest[6].(operator); !ok || op != "cm" {
		t.Errorf("trailing operator = %#v", rest[6])
	}
}

// grayAt reads the gray value at page coordinates (x, y).
func grayAt(b *Band, x, y int) byte {
	return b.Row(y)[x*b.BytesPerPixel]
}

func TestInterpreterFillsRect(t *testing.T) {
	band := NewBand(100, 100, 1)
	band.StartY, band.EndY = 0, 100
	band.Clear()

	// device space: y flipped over a 100pt page
	ctm := matrix.Matrix{1, 0, 0, -1, 0, 100}
	in := newInterpreter(nil, band, ctm)
	if err := in.run([]byte("0 g 10 10 30 30 re f"), nil); err != nil {
		t.Fatal(err)
	}

	// rect spans user (10,10)-(40,40) -> device rows 60..90
	if v := grayAt(band, 25, 75); v != 0 {
		t.Errorf("inside fill = %d, want 0", v)
	}
	if v := grayAt(band, 25, 25); v != 0xFF {
		t.Errorf("outside fill = %d, want 255", v)
	}
	if v := grayAt(band, 50, 75); v != 0xFF {
		t.Errorf("right of fill = %d, want 255", v)
	}
}

func TestInterpreterBandWindow(t *testing.T) {
	// band maps only rows 40..60; fills outside stay untouched
	band := NewBand(100, 20, 1)
	band.StartY, band.EndY = 40, 60
	band.Clear()

	ctm := matrix.Matrix{1, 0, 0, -1, 0, 100}
	in := newInterpreter(nil, band, ctm)
	// full-page black fill
	if err := in.run([]byte("0 g 0 0 100 100 re f"), nil); err != nil {
		t.Fatal(err)
	}
	for y := 40; y < 60; y++ {
		if v := grayAt(band, 50, y); v != 0 {
			t.Fatalf("row %d = %d, want 0", y, v)
		}
	}
}

func TestInterpreterGraphicsStateStack(t *testing.T) {
	band := NewBand(50, 50, 1)
	band.StartY, band.EndY = 0, 50
	band.Clear()

	ctm := matrix.Matrix{1, 0, 0, -1, 0, 50}
	in := newInterpreter(nil, band, ctm)
	// scale inside q/Q must not leak to the second fill
	content := "q 0.5 0 0 0.5 0 0 cm 0 g 0 0 20 20 re f Q 0 g 40 40 10 10 re f"
	if err := in.run([]byte(content), nil); err != nil {
		t.Fatal(err)
	}

	// first fill shrank to 10x10 device units at bottom-left
	if v := grayAt(band, 5, 45); v != 0 {
		t.Errorf("scaled fill missing at (5,45): %d", v)
	}
	if v := grayAt(band, 15, 35); v != 0xFF {
		t.Errorf("scaled fill too large at (15,35): %d", v)
	}
	// second fill at full scale: user (40,40)-(50,50) -> device rows 0..10
	if v := grayAt(band, 45, 5); v != 0 {
		t.Errorf("unscaled fill missing at (45,5): %d", v)
	}
}

func TestInterpreterClip(t *testing.T) {
	band := NewBand(50, 50, 1)
	band.StartY, band.EndY = 0, 50
	band.Clear()

	ctm := matrix.Matrix{1, 0, 0, -1, 0, 50}
	in := newInterpreter(nil, band, ctm)
	// clip to a 10x10 box, then fill the whole page
	content := "20 20 10 10 re W n 0 g 0 0 50 50 re f"
	if err := in.run([]byte(content), nil); err != nil {
		t.Fatal(err)
	}

	if v := grayAt(band, 25, 25); v != 0 {
		t.Errorf("inside clip = %d, want 0", v)
	}
	if v := grayAt(band, 5, 5); v != 0xFF {
		t.Errorf("outside clip = %d, want 255", v)
	}
}

func TestInterpreterColorFillOnRGBBand(t *testing.T) {
	band := NewBand(40, 40, 4)
	band.StartY, band.EndY = 0, 40
	band.Clear()

	ctm := matrix.Matrix{1, 0, 0, -1, 0, 40}
	in := newInterpreter(nil, band, ctm)
	if err := in.run([]byte("1 0 0 rg 0 0 40 40 re f"), nil); err != nil {
		t.Fatal(err)
	}

	row := band.Row(20)
	if row[20*4] != 0xFF || row[20*4+1] != 0 || row[20*4+2] != 0 {
		t.Errorf("pixel = %v, want red", row[20*4:20*4+4])
	}
}

func TestCMYKToRGB(t *testing.T) {
	rgb := cmykToRGB([]float64{0, 0, 0, 1})
	if rgb != [3]float64{0, 0, 0} {
		t.Errorf("K=1 -> %v, want black", rgb)
	}
	rgb = cmykToRGB([]float64{1, 0, 0, 0})
	if rgb != [3]float64{0, 1, 1} {
		t.Errorf("C=1 -> %v, want cyan", rgb)
	}
}
