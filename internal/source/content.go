package source

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/render"
)

// decodeStream returns the fully decoded bytes of a stream.
func decodeStream(r *pdf.Reader, stm *pdf.Stream) ([]byte, error) {
	dec, err := pdf.DecodeStream(r, stm, 0)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(dec)
}

// graphicsState is the subset of the PDF graphics state the engine
// tracks while painting.
type graphicsState struct {
	ctm        matrix.Matrix
	fillGray   float64
	fillRGB    [3]float64
	fillIsRGB  bool
	strokeGray float64
	strokeRGB  [3]float64
	strokeRGBo bool
	lineWidth  float64
	lineCap    graphics.LineCapStyle
	lineJoin   graphics.LineJoinStyle
	miterLimit float64
	dash       []float64
	dashPhase  float64
	clip       rect.Rect // device space
}

// interpreter walks a content stream and paints into a band. The
// supported operator set covers the path, state, color and image
// operators a print path needs; everything else is skipped.
type interpreter struct {
	r    *pdf.Reader
	band *Band
	rast *render.Rasteriser

	gs       graphicsState
	stack    []graphicsState
	operands []any

	// current path, in user space
	pth     path.Data
	start   vec.Vec2
	current vec.Vec2
	hasPath bool

	pendingClip bool
	depth       int // form XObject nesting
}

func newInterpreter(r *pdf.Reader, band *Band, ctm matrix.Matrix) *interpreter {
	clip := rect.Rect{
		LLx: 0,
		LLy: float64(band.StartY),
		URx: float64(band.Width),
		URy: float64(band.EndY),
	}
	return &interpreter{
		r:    r,
		band: band,
		rast: render.NewRasteriser(clip),
		gs: graphicsState{
			ctm:        ctm,
			lineWidth:  1,
			miterLimit: 10,
			clip:       clip,
		},
	}
}

// run interprets one content stream against the given resources.
func (in *interpreter) run(content []byte, resources pdf.Dict) error {
	lex := &lexer{data: content}
	for {
		tok, err := lex.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if op, ok := tok.(operator); ok {
			if op == "BI" {
				lex.skipInlineImage()
				in.operands = in.operands[:0]
				continue
			}
			in.execute(string(op), resources)
			in.operands = in.operands[:0]
			continue
		}
		in.operands = append(in.operands, tok)
	}
}

func (in *interpreter) execute(op string, resources pdf.Dict) {
	switch op {
	case "q":
		in.stack = append(in.stack, in.gs)
	case "Q":
		if n := len(in.stack); n > 0 {
			in.gs = in.stack[n-1]
			in.stack = in.stack[:n-1]
		}
	case "cm":
		if m, ok := in.matrixOperands(); ok {
			in.gs.ctm = mul(m, in.gs.ctm)
		}
	case "w":
		if v, ok := in.num(0, 1); ok {
			in.gs.lineWidth = v
		}
	case "J":
		if v, ok := in.num(0, 1); ok {
			switch int(v) {
			case 1:
				in.gs.lineCap = graphics.LineCapRound
			case 2:
				in.gs.lineCap = graphics.LineCapSquare
			default:
				in.gs.lineCap = graphics.LineCapButt
			}
		}
	case "j":
		if v, ok := in.num(0, 1); ok {
			switch int(v) {
			case 1:
				in.gs.lineJoin = graphics.LineJoinRound
			case 2:
				in.gs.lineJoin = graphics.LineJoinBevel
			default:
				in.gs.lineJoin = graphics.LineJoinMiter
			}
		}
	case "M":
		if v, ok := in.num(0, 1); ok && v >= 1 {
			in.gs.miterLimit = v
		}
	case "d":
		in.setDash()

	// path construction
	case "m":
		if x, y, ok := in.point(); ok {
			in.moveTo(x, y)
		}
	case "l":
		if x, y, ok := in.point(); ok {
			in.lineTo(x, y)
		}
	case "c":
		if len(in.operands) >= 6 {
			c := in.floats(6)
			in.curveTo(c[0], c[1], c[2], c[3], c[4], c[5])
		}
	case "v":
		if len(in.operands) >= 4 {
			c := in.floats(4)
			in.curveTo(in.current.X, in.current.Y, c[0], c[1], c[2], c[3])
		}
	case "y":
		if len(in.operands) >= 4 {
			c := in.floats(4)
			in.curveTo(c[0], c[1], c[2], c[3], c[2], c[3])
		}
	case "h":
		in.closePath()
	case "re":
		if len(in.operands) >= 4 {
			c := in.floats(4)
			in.moveTo(c[0], c[1])
			in.lineTo(c[0]+c[2], c[1])
			in.lineTo(c[0]+c[2], c[1]+c[3])
			in.lineTo(c[0], c[1]+c[3])
			in.closePath()
		}

	// painting
	case "f", "F":
		in.paint(true, false, false)
	case "f*":
		in.paint(true, false, true)
	case "B":
		in.paint(true, true, false)
	case "B*":
		in.paint(true, true, true)
	case "b":
		in.closePath()
		in.paint(true, true, false)
	case "b*":
		in.closePath()
		in.paint(true, true, true)
	case "S":
		in.paint(false, true, false)
	case "s":
		in.closePath()
		in.paint(false, true, false)
	case "n":
		in.paint(false, false, false)
	case "W":
		in.pendingClip = true
	case "W*":
		in.pendingClip = true

	// color
	case "g":
		if v, ok := in.num(0, 1); ok {
			in.gs.fillGray, in.gs.fillIsRGB = clamp01(v), false
		}
	case "G":
		if v, ok := in.num(0, 1); ok {
			in.gs.strokeGray, in.gs.strokeRGBo = clamp01(v), false
		}
	case "rg":
		if len(in.operands) >= 3 {
			c := in.floats(3)
			in.gs.fillRGB = [3]float64{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])}
			in.gs.fillIsRGB = true
		}
	case "RG":
		if len(in.operands) >= 3 {
			c := in.floats(3)
			in.gs.strokeRGB = [3]float64{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])}
			in.gs.strokeRGBo = true
		}
	case "k":
		if len(in.operands) >= 4 {
			c := in.floats(4)
			in.gs.fillRGB = cmykToRGB(c)
			in.gs.fillIsRGB = true
		}
	case "K":
		if len(in.operands) >= 4 {
			c := in.floats(4)
			in.gs.strokeRGB = cmykToRGB(c)
			in.gs.strokeRGBo = true
		}
	case "sc", "scn":
		in.setColorByComponents(false)
	case "SC", "SCN":
		in.setColorByComponents(true)

	case "Do":
		in.doXObject(resources)

	case "gs", "ri", "i", "cs", "CS", "sh",
		"BT", "ET", "Tc", "Tw", "Tz", "TL", "Tf", "Tr", "Ts",
		"Td", "TD", "Tm", "T*", "Tj", "TJ", "'", "\"",
		"BMC", "BDC", "EMC", "MP", "DP", "BX", "EX", "d0", "d1":
		// state we do not model, text showing and marked content
	default:
		slog.Debug("skipping content operator", "op", op)
	}
}

// ---------------------------------------------------------------------
// operand access
// ---------------------------------------------------------------------

func (in *interpreter) num(i, n int) (float64, bool) {
	if len(in.operands) < n {
		return 0, false
	}
	base := len(in.operands) - n
	v, ok := in.operands[base+i].(float64)
	return v, ok
}

func (in *interpreter) floats(n int) []float64 {
	out := make([]float64, n)
	base := len(in.operands) - n
	for i := 0; i < n; i++ {
		if v, ok := in.operands[base+i].(float64); ok {
			out[i] = v
		}
	}
	return out
}

func (in *interpreter) point() (x, y float64, ok bool) {
	if len(in.operands) < 2 {
		return 0, 0, false
	}
	c := in.floats(2)
	return c[0], c[1], true
}

func (in *interpreter) matrixOperands() (matrix.Matrix, bool) {
	if len(in.operands) < 6 {
		return matrix.Identity, false
	}
	c := in.floats(6)
	return matrix.Matrix{c[0], c[1], c[2], c[3], c[4], c[5]}, true
}

func (in *interpreter) setDash() {
	if len(in.operands) < 2 {
		return
	}
	base := len(in.operands) - 2
	arr, ok := in.operands[base].([]any)
	if !ok {
		return
	}
	phase, _ := in.operands[base+1].(float64)
	var dash []float64
	for _, e := range arr {
		if v, ok := e.(float64); ok {
			dash = append(dash, v)
		}
	}
	in.gs.dash = dash
	in.gs.dashPhase = phase
}

// setColorByComponents approximates sc/scn by component count: one
// component is gray, three are RGB, four are CMYK.
func (in *interpreter) setColorByComponents(stroking bool) {
	var comps []float64
	for _, o := range in.operands {
		if v, ok := o.(float64); ok {
			comps = append(comps, v)
		}
	}
	var gray float64
	var rgb [3]float64
	isRGB := false
	switch len(comps) {
	case 1:
		gray = clamp01(comps[0])
	case 3:
		rgb = [3]float64{clamp01(comps[0]), clamp01(comps[1]), clamp01(comps[2])}
		isRGB = true
	case 4:
		rgb = cmykToRGB(comps)
		isRGB = true
	default:
		return
	}
	if stroking {
		in.gs.strokeGray, in.gs.strokeRGB, in.gs.strokeRGBo = gray, rgb, isRGB
	} else {
		in.gs.fillGray, in.gs.fillRGB, in.gs.fillIsRGB = gray, rgb, isRGB
	}
}

// ---------------------------------------------------------------------
// path construction and painting
// ---------------------------------------------------------------------

func (in *interpreter) moveTo(x, y float64) {
	in.pth.Cmds = append(in.pth.Cmds, path.CmdMoveTo)
	in.pth.Coords = append(in.pth.Coords, vec.Vec2{X: x, Y: y})
	in.start = vec.Vec2{X: x, Y: y}
	in.current = in.start
	in.hasPath = true
}

func (in *interpreter) lineTo(x, y float64) {
	if !in.hasPath {
		return
	}
	in.pth.Cmds = append(in.pth.Cmds, path.CmdLineTo)
	in.pth.Coords = append(in.pth.Coords, vec.Vec2{X: x, Y: y})
	in.current = vec.Vec2{X: x, Y: y}
}

func (in *interpreter) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !in.hasPath {
		return
	}
	in.pth.Cmds = append(in.pth.Cmds, path.CmdCubeTo)
	in.pth.Coords = append(in.pth.Coords,
		vec.Vec2{X: x1, Y: y1}, vec.Vec2{X: x2, Y: y2}, vec.Vec2{X: x3, Y: y3})
	in.current = vec.Vec2{X: x3, Y: y3}
}

func (in *interpreter) closePath() {
	if !in.hasPath {
		return
	}
	in.pth.Cmds = append(in.pth.Cmds, path.CmdClose)
	in.current = in.start
}

// pathIter exposes the current path as a command iterator.
func (in *interpreter) pathIter() path.Path {
	data := in.pth
	return func(yield func(path.Command, []vec.Vec2) bool) {
		ci := 0
		for _, cmd := range data.Cmds {
			n := 0
			switch cmd {
			case path.CmdMoveTo, path.CmdLineTo:
				n = 1
			case path.CmdQuadTo:
				n = 2
			case path.CmdCubeTo:
				n = 3
			}
			if !yield(cmd, data.Coords[ci:ci+n]) {
				return
			}
			ci += n
		}
	}
}

// paint fills and/or strokes the current path, applies a pending clip,
// and clears the path.
func (in *interpreter) paint(fill, stroke, evenOdd bool) {
	if in.hasPath {
		clip := intersectRect(in.gs.clip, in.bandClip())
		if clip.URx > clip.LLx && clip.URy > clip.LLy {
			in.rast.Clip = clip
			in.rast.CTM = in.gs.ctm

			if fill {
				gray, rgb, isRGB := in.gs.fillGray, in.gs.fillRGB, in.gs.fillIsRGB
				emit := in.emitFunc(gray, rgb, isRGB)
				if evenOdd {
					in.rast.FillEvenOdd(&in.pth, emit)
				} else {
					in.rast.FillNonZero(&in.pth, emit)
				}
			}
			if stroke {
				in.rast.Width = in.gs.lineWidth
				if in.rast.Width <= 0 {
					in.rast.Width = 0.1
				}
				in.rast.Cap = in.gs.lineCap
				in.rast.Join = in.gs.lineJoin
				in.rast.MiterLimit = in.gs.miterLimit
				in.rast.Dash = in.gs.dash
				in.rast.DashPhase = in.gs.dashPhase
				emit := in.emitFunc(in.gs.strokeGray, in.gs.strokeRGB, in.gs.strokeRGBo)
				in.rast.Stroke(in.pathIter(), emit)
			}
		}

		if in.pendingClip {
			// rectangular approximation: clip to the path's device
			// space bounding box
			in.gs.clip = intersectRect(in.gs.clip, in.pathDeviceBBox())
		}
	}
	in.pendingClip = false
	in.pth.Cmds = in.pth.Cmds[:0]
	in.pth.Coords = in.pth.Coords[:0]
	in.hasPath = false
}

func (in *interpreter) bandClip() rect.Rect {
	return rect.Rect{
		LLx: 0,
		LLy: float64(in.band.StartY),
		URx: float64(in.band.Width),
		URy: float64(in.band.EndY),
	}
}

// emitFunc builds a coverage callback painting the given color.
func (in *interpreter) emitFunc(gray float64, rgb [3]float64, isRGB bool) func(y, xMin int, coverage []float32) {
	band := in.band
	if isRGB {
		return func(y, xMin int, coverage []float32) {
			for i, cov := range coverage {
				band.blendRGB(xMin+i, y, rgb[0], rgb[1], rgb[2], cov)
			}
		}
	}
	return func(y, xMin int, coverage []float32) {
		for i, cov := range coverage {
			band.blendGray(xMin+i, y, gray, cov)
		}
	}
}

// pathDeviceBBox returns the current path's control-point bounding box
// in device space. Curves bow inside their control polygon, so the box
// never clips content away.
func (in *interpreter) pathDeviceBBox() rect.Rect {
	box := rect.Rect{LLx: math.Inf(1), LLy: math.Inf(1), URx: math.Inf(-1), URy: math.Inf(-1)}
	for _, p := range in.pth.Coords {
		x, y := apply(in.gs.ctm, p.X, p.Y)
		box.LLx = math.Min(box.LLx, x)
		box.LLy = math.Min(box.LLy, y)
		box.URx = math.Max(box.URx, x)
		box.URy = math.Max(box.URy, y)
	}
	box.LLx = math.Floor(box.LLx)
	box.LLy = math.Floor(box.LLy)
	box.URx = math.Ceil(box.URx)
	box.URy = math.Ceil(box.URy)
	return box
}

func intersectRect(a, b rect.Rect) rect.Rect {
	return rect.Rect{
		LLx: math.Max(a.LLx, b.LLx),
		LLy: math.Max(a.LLy, b.LLy),
		URx: math.Min(a.URx, b.URx),
		URy: math.Min(a.URy, b.URy),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cmykToRGB(c []float64) [3]float64 {
	return [3]float64{
		clamp01((1 - c[0]) * (1 - c[3])),
		clamp01((1 - c[1]) * (1 - c[3])),
		clamp01((1 - c[2]) * (1 - c[3])),
	}
}

// ---------------------------------------------------------------------
// XObjects
// ---------------------------------------------------------------------

func (in *interpreter) doXObject(resources pdf.Dict) {
	if len(in.operands) < 1 || resources == nil {
		return
	}
	name, ok := in.operands[len(in.operands)-1].(pdf.Name)
	if !ok {
		return
	}
	xobjs, err := pdf.GetDict(in.r, resources["XObject"])
	if err != nil || xobjs == nil {
		return
	}
	stm, err := pdf.GetStream(in.r, xobjs[name])
	if err != nil || stm == nil {
		return
	}
	subtype, _ := pdf.GetName(in.r, stm.Dict["Subtype"])
	switch subtype {
	case "Image":
		in.drawImage(stm)
	case "Form":
		in.drawForm(stm, resources)
	default:
		slog.Debug("skipping XObject", "name", name, "subtype", subtype)
	}
}

// drawForm runs a form XObject's content with its own resources and
// matrix under a saved graphics state.
func (in *interpreter) drawForm(stm *pdf.Stream, inherited pdf.Dict) {
	if in.depth >= 8 {
		slog.Debug("form XObject nesting too deep")
		return
	}
	content, err := decodeStream(in.r, stm)
	if err != nil {
		slog.Debug("form decode failed", "err", err)
		return
	}
	resources, err := pdf.GetDict(in.r, stm.Dict["Resources"])
	if err != nil || resources == nil {
		resources = inherited
	}

	saved := in.gs
	savedStack := len(in.stack)
	if arr, err := pdf.GetArray(in.r, stm.Dict["Matrix"]); err == nil && len(arr) == 6 {
		var m matrix.Matrix
		ok := true
		for i, obj := range arr {
			v, vok := numberValue(in.r, obj)
			if !vok {
				ok = false
				break
			}
			m[i] = v
		}
		if ok {
			in.gs.ctm = mul(m, in.gs.ctm)
		}
	}

	in.depth++
	if err := in.run(content, resources); err != nil {
		slog.Debug("form interpretation failed", "err", err)
	}
	in.depth--
	in.gs = saved
	in.stack = in.stack[:savedStack]
}

// drawImage decodes an image XObject and maps it through the CTM. The
// image covers the unit square in user space.
func (in *interpreter) drawImage(stm *pdf.Stream) {
	img, err := in.decodeImage(stm)
	if err != nil {
		slog.Debug("image decode failed", "err", err)
		return
	}
	bounds := img.Bounds()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w == 0 || h == 0 {
		return
	}

	// src pixel -> unit square (flipped) -> device
	toUnit := matrix.Matrix{1 / w, 0, 0, -1 / h, 0, 1}
	m := mul(toUnit, in.gs.ctm)

	draw.CatmullRom.Transform(
		in.band.Image().(draw.Image),
		f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]},
		img, bounds, draw.Over, nil,
	)
}

// decodeImage turns an image XObject into an image.Image. DCT images
// decode with the JPEG decoder; other filters are undone by the PDF
// layer and interpreted as 1- or 8-bit gray or 8-bit RGB samples.
func (in *interpreter) decodeImage(stm *pdf.Stream) (image.Image, error) {
	if hasFilter(in.r, stm.Dict, "DCTDecode") {
		return jpeg.Decode(stm.R)
	}

	width, err := pdf.GetInteger(in.r, stm.Dict["Width"])
	if err != nil || width <= 0 {
		return nil, fmt.Errorf("bad image width")
	}
	height, err := pdf.GetInteger(in.r, stm.Dict["Height"])
	if err != nil || height <= 0 {
		return nil, fmt.Errorf("bad image height")
	}
	bpc, err := pdf.GetInteger(in.r, stm.Dict["BitsPerComponent"])
	if err != nil {
		bpc = 8
	}
	if bpc != 8 && bpc != 1 {
		return nil, fmt.Errorf("unsupported BitsPerComponent %d", bpc)
	}

	comps := imageComponents(in.r, stm.Dict["ColorSpace"])
	data, err := decodeStream(in.r, stm)
	if err != nil {
		return nil, err
	}

	w, h := int(width), int(height)
	switch {
	case bpc == 1 && comps == 1:
		img := image.NewGray(image.Rect(0, 0, w, h))
		stride := (w + 7) / 8
		for y := 0; y < h && (y+1)*stride <= len(data); y++ {
			row := data[y*stride:]
			for x := 0; x < w; x++ {
				if row[x/8]&(0x80>>(x%8)) == 0 {
					img.Pix[y*img.Stride+x] = 0
				} else {
					img.Pix[y*img.Stride+x] = 0xFF
				}
			}
		}
		return img, nil
	case bpc == 8 && comps == 1:
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h && (y+1)*w <= len(data); y++ {
			copy(img.Pix[y*img.Stride:], data[y*w:(y+1)*w])
		}
		return img, nil
	case bpc == 8 && comps == 3:
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h && (y+1)*w*3 <= len(data); y++ {
			src := data[y*w*3:]
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < w; x++ {
				dst[x*4+0] = src[x*3+0]
				dst[x*4+1] = src[x*3+1]
				dst[x*4+2] = src[x*3+2]
				dst[x*4+3] = 0xFF
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported image: %d components at %d bpc", comps, bpc)
	}
}

// numberValue resolves obj to a float64 if it is a numeric object.
func numberValue(r *pdf.Reader, obj pdf.Object) (float64, bool) {
	resolved, err := pdf.Resolve(r, obj)
	if err != nil {
		return 0, false
	}
	switch v := resolved.(type) {
	case pdf.Integer:
		return float64(v), true
	case pdf.Real:
		return float64(v), true
	default:
		return 0, false
	}
}

// hasFilter reports whether the stream's filter chain contains name.
func hasFilter(r *pdf.Reader, dict pdf.Dict, name pdf.Name) bool {
	obj, err := pdf.Resolve(r, dict["Filter"])
	if err != nil {
		return false
	}
	switch v := obj.(type) {
	case pdf.Name:
		return v == name
	case pdf.Array:
		for _, elem := range v {
			if n, err := pdf.GetName(r, elem); err == nil && n == name {
				return true
			}
		}
	}
	return false
}

// imageComponents estimates the component count of an image color
// space. Unknown spaces default to gray.
func imageComponents(r *pdf.Reader, obj pdf.Object) int {
	resolved, err := pdf.Resolve(r, obj)
	if err != nil {
		return 1
	}
	switch v := resolved.(type) {
	case pdf.Name:
		switch v {
		case "DeviceRGB", "CalRGB":
			return 3
		case "DeviceCMYK":
			return 4
		default:
			return 1
		}
	case pdf.Array:
		if len(v) >= 2 {
			if n, err := pdf.GetName(r, v[0]); err == nil && n == "ICCBased" {
				if stm, err := pdf.GetStream(r, v[1]); err == nil && stm != nil {
					if comp, err := pdf.GetInteger(r, stm.Dict["N"]); err == nil {
						return int(comp)
					}
				}
			}
		}
		return 1
	default:
		return 1
	}
}

// ---------------------------------------------------------------------
// content stream lexer
// ---------------------------------------------------------------------

// operator is a content stream operator token.
type operator string

// lexer tokenizes a decoded content stream into operands (float64,
// pdf.Name, []byte strings, []any arrays, pdf.Dict-shaped maps) and
// operators.
type lexer struct {
	data []byte
	pos  int
}

func (l *lexer) next() (any, error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return nil, io.EOF
	}
	c := l.data[l.pos]
	switch {
	case c == '/':
		return l.name(), nil
	case c == '(':
		return l.literalString(), nil
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.dict()
		}
		return l.hexString(), nil
	case c == '[':
		l.pos++
		return l.array()
	case c == ']':
		l.pos++
		return nil, fmt.Errorf("unbalanced ']' at %d", l.pos)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.number(), nil
	default:
		return l.operatorToken(), nil
	}
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isSpace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) token() string {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) name() pdf.Name {
	l.pos++ // '/'
	return pdf.Name(l.token())
}

func (l *lexer) number() any {
	tok := l.token()
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return operator(tok)
	}
	return v
}

func (l *lexer) operatorToken() any {
	tok := l.token()
	if tok == "" {
		// lone delimiter we do not model ({, }); skip it
		l.pos++
		return operator("")
	}
	if tok == "true" {
		return true
	}
	if tok == "false" {
		return false
	}
	if tok == "null" {
		return nil
	}
	return operator(tok)
}

func (l *lexer) literalString() []byte {
	l.pos++ // '('
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '\\':
			if l.pos < len(l.data) {
				out = append(out, l.data[l.pos])
				l.pos++
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) hexString() []byte {
	l.pos++ // '<'
	start := l.pos
	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		l.pos++
	}
	hexed := l.data[start:l.pos]
	if l.pos < len(l.data) {
		l.pos++ // '>'
	}
	var out []byte
	var hi byte
	haveHi := false
	for _, c := range hexed {
		var v byte
		switch {
		case c >= '0' && c <= '9':
			v = c - '0'
		case c >= 'a' && c <= 'f':
			v = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			v = c - 'A' + 10
		default:
			continue
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out
}

func (l *lexer) array() (any, error) {
	var out []any
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return out, nil
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return out, nil
		}
		tok, err := l.next()
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
}

func (l *lexer) dict() (any, error) {
	l.pos += 2 // '<<'
	out := map[pdf.Name]any{}
	for {
		l.skipSpace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			l.pos += 2
			return out, nil
		}
		if l.pos >= len(l.data) {
			return out, nil
		}
		key, err := l.next()
		if err != nil {
			return out, err
		}
		name, ok := key.(pdf.Name)
		if !ok {
			continue
		}
		value, err := l.next()
		if err != nil {
			return out, err
		}
		out[name] = value
	}
}

// skipInlineImage consumes everything through the EI operator ending a
// BI ... ID ... EI inline image.
func (l *lexer) skipInlineImage() {
	// find the ID operator first
	id := bytes.Index(l.data[l.pos:], []byte("ID"))
	if id < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += id + 3 // "ID" plus the single whitespace byte after it
	for l.pos+1 < len(l.data) {
		if l.data[l.pos] == 'E' && l.data[l.pos+1] == 'I' &&
			(l.pos == 0 || isSpace(l.data[l.pos-1])) &&
			(l.pos+2 >= len(l.data) || isSpace(l.data[l.pos+2]) || isDelim(l.data[l.pos+2])) {
			l.pos += 2
			return
		}
		l.pos++
	}
	l.pos = len(l.data)
}
