package raster

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"math"

	"github.com/tsawler/pdfthumb/contentstream"
	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/font"
	"github.com/tsawler/pdfthumb/graphicsstate"
	"github.com/tsawler/pdfthumb/model"
)

const (
	// maxNesting bounds form XObjects, Type 3 glyphs and tiling cells
	// drawn inside each other.
	maxNesting = 12
	// checkEvery is how many operators run between context checks.
	checkEvery = 64
	// flatness is the curve tolerance in device pixels.
	flatness = 0.2
)

var colorOperators = map[string]bool{
	"CS": true, "cs": true, "SC": true, "SCN": true, "sc": true, "scn": true,
	"G": true, "g": true, "RG": true, "rg": true, "K": true, "k": true,
}

type clipRule int

const (
	noClip clipRule = iota
	nonzeroClip
	evenOddClip
)

// scope is the resource context of a content stream: the page, a form
// XObject, a Type 3 glyph or a tiling cell.
type scope struct {
	resources core.Dict
	fonts     map[string]*font.Font
	// base is the CTM when the stream started; patterns are anchored to it.
	base model.Matrix
}

type glyphKey struct {
	font *font.Font
	code uint32
	cid  int
}

// interpreter executes content stream operators onto a canvas.
type interpreter struct {
	ctx context.Context
	res resolver
	cv  *canvas
	log *slog.Logger

	gs          *graphicsstate.GraphicsState
	path        *graphicsstate.Path
	pendingClip clipRule
	textClip    [][]model.Point
	inText      bool
	// lockColor ignores colour operators inside uncoloured patterns and
	// d1 glyph procedures.
	lockColor bool

	scopes   []*scope
	fonts    map[core.IndirectRef]*font.Font
	fallback *font.Font
	glyphs   map[glyphKey]*graphicsstate.Path

	depth int
	ops   int
}

// resolver is what the interpreter needs from a document reader.
type resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

func newInterpreter(ctx context.Context, res resolver, cv *canvas, log *slog.Logger) *interpreter {
	return &interpreter{
		ctx:    ctx,
		res:    res,
		cv:     cv,
		log:    log,
		gs:     graphicsstate.NewGraphicsState(),
		path:   graphicsstate.NewPath(),
		fonts:  make(map[core.IndirectRef]*font.Font),
		glyphs: make(map[glyphKey]*graphicsstate.Path),
	}
}

// child returns an interpreter drawing onto cv that shares the font caches
// and nesting depth of in.
func (in *interpreter) child(cv *canvas) *interpreter {
	c := newInterpreter(in.ctx, in.res, cv, in.log)
	c.fonts = in.fonts
	c.fallback = in.fallback
	c.glyphs = in.glyphs
	c.depth = in.depth + 1
	return c
}

func (in *interpreter) scope() *scope { return in.scopes[len(in.scopes)-1] }

func (in *interpreter) pushScope(resources core.Dict, base model.Matrix) {
	if resources == nil {
		resources = core.Dict{}
	}
	in.scopes = append(in.scopes, &scope{resources: resources, fonts: make(map[string]*font.Font), base: base})
}

func (in *interpreter) popScope() { in.scopes = in.scopes[:len(in.scopes)-1] }

// run executes one content stream. Unknown operators and operators with
// bad operands are skipped; the error is the parser's or the context's.
func (in *interpreter) run(data []byte) error {
	p := contentstream.NewParser(data)
	for {
		in.ops++
		if in.ops%checkEvery == 0 {
			if err := in.ctx.Err(); err != nil {
				return err
			}
		}
		op, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := in.processOperation(op); err != nil {
			in.log.Debug("operator skipped", slog.String("op", op.Operator), slog.Any("error", err))
		}
	}
}

// runNested executes data in a new scope and graphics state level, the way
// forms, glyph procedures and pattern cells are drawn.
func (in *interpreter) runNested(data []byte, resources core.Dict) error {
	if in.depth >= maxNesting {
		return errors.New("content nested too deeply")
	}
	in.depth++
	savedPath, savedClip, savedText, savedLock := in.path, in.pendingClip, in.inText, in.lockColor
	in.path, in.pendingClip, in.inText = graphicsstate.NewPath(), noClip, false
	in.pushScope(resources, in.gs.CTM)
	defer func() {
		in.popScope()
		in.path, in.pendingClip, in.inText, in.lockColor = savedPath, savedClip, savedText, savedLock
		in.depth--
	}()
	return in.run(data)
}

func (in *interpreter) processOperation(op contentstream.Operation) error {
	args := op.Operands
	if in.lockColor && colorOperators[op.Operator] {
		return nil
	}
	switch op.Operator {
	// Graphics state
	case "q":
		in.gs.Save()
	case "Q":
		return in.gs.Restore()
	case "cm":
		if m, ok := operandsToMatrix(args); ok {
			in.gs.Transform(m)
		}
	case "w":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetLineWidth(v)
		}
	case "J":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.LineCap = int(v)
		}
	case "j":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.LineJoin = int(v)
		}
	case "M":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.MiterLimit = v
		}
	case "d":
		if len(args) == 2 {
			in.setDash(args[0], args[1])
		}
	case "gs":
		if len(args) == 1 {
			if name, ok := args[0].(core.Name); ok {
				in.applyExtGState(string(name))
			}
		}
	case "i", "ri":

	// Path construction
	case "m":
		if v, ok := floats(args, 2); ok {
			in.path.MoveTo(v[0], v[1])
		}
	case "l":
		if v, ok := floats(args, 2); ok {
			in.path.LineTo(v[0], v[1])
		}
	case "c":
		if v, ok := floats(args, 6); ok {
			in.path.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
		}
	case "v":
		if v, ok := floats(args, 4); ok {
			in.path.CurveToV(v[0], v[1], v[2], v[3])
		}
	case "y":
		if v, ok := floats(args, 4); ok {
			in.path.CurveToY(v[0], v[1], v[2], v[3])
		}
	case "h":
		in.path.ClosePath()
	case "re":
		if v, ok := floats(args, 4); ok {
			in.path.Rectangle(v[0], v[1], v[2], v[3])
		}

	// Path painting
	case "S":
		in.paintPath(false, false, true)
	case "s":
		in.path.ClosePath()
		in.paintPath(false, false, true)
	case "f", "F":
		in.paintPath(true, false, false)
	case "f*":
		in.paintPath(true, true, false)
	case "B":
		in.paintPath(true, false, true)
	case "B*":
		in.paintPath(true, true, true)
	case "b":
		in.path.ClosePath()
		in.paintPath(true, false, true)
	case "b*":
		in.path.ClosePath()
		in.paintPath(true, true, true)
	case "n":
		in.paintPath(false, false, false)

	// Clipping
	case "W":
		in.pendingClip = nonzeroClip
	case "W*":
		in.pendingClip = evenOddClip

	// Colour
	case "CS":
		if len(args) == 1 {
			cs := in.colorSpace(args[0])
			in.gs.SetStrokeColor(cs, cs.InitialColor())
		}
	case "cs":
		if len(args) == 1 {
			cs := in.colorSpace(args[0])
			in.gs.SetFillColor(cs, cs.InitialColor())
		}
	case "SC", "SCN":
		cs, comps := in.colorOperands(in.gs.StrokeSpace, args)
		in.gs.SetStrokeColor(cs, comps)
	case "sc", "scn":
		cs, comps := in.colorOperands(in.gs.FillSpace, args)
		in.gs.SetFillColor(cs, comps)
	case "G":
		if v, ok := floats(args, 1); ok {
			in.gs.SetStrokeColor(graphicsstate.DeviceGray{}, v)
		}
	case "g":
		if v, ok := floats(args, 1); ok {
			in.gs.SetFillColor(graphicsstate.DeviceGray{}, v)
		}
	case "RG":
		if v, ok := floats(args, 3); ok {
			in.gs.SetStrokeColor(graphicsstate.DeviceRGB{}, v)
		}
	case "rg":
		if v, ok := floats(args, 3); ok {
			in.gs.SetFillColor(graphicsstate.DeviceRGB{}, v)
		}
	case "K":
		if v, ok := floats(args, 4); ok {
			in.gs.SetStrokeColor(graphicsstate.DeviceCMYK{}, v)
		}
	case "k":
		if v, ok := floats(args, 4); ok {
			in.gs.SetFillColor(graphicsstate.DeviceCMYK{}, v)
		}

	// Shadings, images and forms
	case "sh":
		if len(args) == 1 {
			if name, ok := args[0].(core.Name); ok {
				return in.paintShading(string(name))
			}
		}
	case "BI":
		if len(args) == 1 {
			if s, ok := args[0].(*core.Stream); ok {
				return in.drawImage(s)
			}
		}
	case "Do":
		if len(args) == 1 {
			if name, ok := args[0].(core.Name); ok {
				return in.doXObject(string(name))
			}
		}

	// Text
	case "BT":
		in.gs.BeginText()
		in.inText = true
		in.textClip = nil
	case "ET":
		in.inText = false
		in.endText()
	case "Tc":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetCharSpacing(v)
		}
	case "Tw":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetWordSpacing(v)
		}
	case "Tz":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetHorizontalScaling(v)
		}
	case "TL":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetLeading(v)
		}
	case "Tr":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetRenderingMode(int(v))
		}
	case "Ts":
		if v, ok := floatArg(args, 0, 1); ok {
			in.gs.SetTextRise(v)
		}
	case "Tf":
		if len(args) == 2 {
			name, ok := args[0].(core.Name)
			size, ok2 := core.Number(args[1])
			if ok && ok2 {
				in.gs.SetFont(string(name), size)
			}
		}
	case "Td":
		if v, ok := floats(args, 2); ok {
			in.gs.TranslateText(v[0], v[1])
		}
	case "TD":
		if v, ok := floats(args, 2); ok {
			in.gs.TranslateTextSetLeading(v[0], v[1])
		}
	case "Tm":
		if m, ok := operandsToMatrix(args); ok {
			in.gs.SetTextMatrix(m)
		}
	case "T*":
		in.gs.NextLine()
	case "Tj":
		if len(args) == 1 {
			if s, ok := args[0].(core.String); ok {
				in.showText([]byte(s))
			}
		}
	case "TJ":
		if len(args) == 1 {
			if arr, ok := args[0].(core.Array); ok {
				in.showTextArray(arr)
			}
		}
	case "'":
		in.gs.NextLine()
		if len(args) == 1 {
			if s, ok := args[0].(core.String); ok {
				in.showText([]byte(s))
			}
		}
	case "\"":
		if len(args) == 3 {
			if v, ok := core.Number(args[0]); ok {
				in.gs.SetWordSpacing(v)
			}
			if v, ok := core.Number(args[1]); ok {
				in.gs.SetCharSpacing(v)
			}
			in.gs.NextLine()
			if s, ok := args[2].(core.String); ok {
				in.showText([]byte(s))
			}
		}

	// Type 3 glyph metrics
	case "d1":
		in.lockColor = true

	// Marked content and compatibility sections
	case "d0", "BMC", "BDC", "EMC", "MP", "DP", "BX", "EX":
	}
	return nil
}

func (in *interpreter) resolve(obj core.Object) core.Object {
	if obj == nil {
		return nil
	}
	v, err := in.res.Resolve(obj)
	if err != nil {
		return nil
	}
	return v
}

func (in *interpreter) resolveDict(obj core.Object) core.Dict {
	switch v := in.resolve(obj).(type) {
	case core.Dict:
		return v
	case *core.Stream:
		return v.Dict
	}
	return nil
}

// resource looks up name in a resource category of the current scope.
// The entry is returned unresolved so callers can key caches on it.
func (in *interpreter) resource(category, name string) core.Object {
	return in.resolveDict(in.scope().resources.Get(category)).Get(name)
}

func (in *interpreter) setDash(arrObj, phaseObj core.Object) {
	arr, _ := in.resolve(arrObj).(core.Array)
	dash, _ := arr.Floats()
	phase, _ := core.Number(in.resolve(phaseObj))
	in.gs.Dash = dash
	in.gs.DashPhase = phase
}

func (in *interpreter) applyExtGState(name string) {
	d := in.resolveDict(in.resource("ExtGState", name))
	if d == nil {
		return
	}
	for _, key := range d.Keys() {
		v := in.resolve(d.Get(key))
		switch key {
		case "LW":
			if f, ok := core.Number(v); ok {
				in.gs.SetLineWidth(f)
			}
		case "LC":
			if f, ok := core.Number(v); ok {
				in.gs.LineCap = int(f)
			}
		case "LJ":
			if f, ok := core.Number(v); ok {
				in.gs.LineJoin = int(f)
			}
		case "ML":
			if f, ok := core.Number(v); ok {
				in.gs.MiterLimit = f
			}
		case "D":
			if arr, ok := v.(core.Array); ok && len(arr) == 2 {
				in.setDash(arr[0], arr[1])
			}
		case "CA":
			if f, ok := core.Number(v); ok {
				in.gs.StrokeAlpha = clampUnit(f)
			}
		case "ca":
			if f, ok := core.Number(v); ok {
				in.gs.FillAlpha = clampUnit(f)
			}
		case "Font":
			arr, ok := v.(core.Array)
			if !ok || len(arr) != 2 {
				continue
			}
			size, ok := core.Number(in.resolve(arr[1]))
			if !ok {
				continue
			}
			key := "\x00gs:" + name
			in.scope().fonts[key] = in.loadFont(arr[0])
			in.gs.SetFont(key, size)
		}
	}
}

func (in *interpreter) colorSpace(obj core.Object) graphicsstate.ColorSpace {
	cs, err := graphicsstate.ParseColorSpace(obj, in.scope().resources, in.res)
	if err != nil {
		in.log.Debug("unknown colour space, using DeviceGray", slog.Any("error", err))
		return graphicsstate.DeviceGray{}
	}
	return cs
}

// colorOperands applies sc/scn operands to the current space. A trailing
// name selects a pattern.
func (in *interpreter) colorOperands(cs graphicsstate.ColorSpace, args []core.Object) (graphicsstate.ColorSpace, []float64) {
	var comps []float64
	for _, a := range args {
		if v, ok := core.Number(a); ok {
			comps = append(comps, v)
		}
	}
	base, isPattern := asPattern(cs)
	if !isPattern {
		return cs, comps
	}
	if len(args) > 0 {
		if name, ok := args[len(args)-1].(core.Name); ok {
			return patternSpace{Pattern: base, name: string(name)}, comps
		}
	}
	return cs, comps
}

// paintPath fills and/or strokes the current path, applies a pending clip
// and starts a new path.
func (in *interpreter) paintPath(fill, evenOdd, stroke bool) {
	defer func() {
		in.path = graphicsstate.NewPath()
		in.pendingClip = noClip
	}()
	if in.path.IsEmpty() {
		return
	}
	var devicePolys [][]model.Point
	if fill || in.pendingClip != noClip {
		devicePolys = subpathPolys(in.path.Transform(in.gs.CTM).Flatten(flatness))
	}
	if fill {
		in.fillPolys(devicePolys, evenOdd)
	}
	if stroke {
		in.strokePath(in.path, model.Identity())
	}
	if in.pendingClip != noClip {
		cv, ok := in.cv.cover(devicePolys, in.pendingClip == evenOddClip)
		in.gs.Clip = in.cv.intersectClip(in.gs.Clip, cv, ok)
	}
}

// fillPolys paints device-space polygons with the fill colour or pattern.
func (in *interpreter) fillPolys(polys [][]model.Point, evenOdd bool) {
	cv, ok := in.cv.cover(polys, evenOdd)
	if !ok {
		return
	}
	src := in.source(in.gs.FillSpace, in.gs.FillComps, cv.rect())
	if src == nil {
		return
	}
	in.cv.paint(cv, src, in.gs.FillAlpha, in.gs.Clip)
}

// strokePath strokes p, given in the coordinates that pre maps to user
// space, with the current line style.
func (in *interpreter) strokePath(p *graphicsstate.Path, pre model.Matrix) {
	ctm := in.gs.CTM
	// Line width is in user space; make hairlines one device pixel wide.
	scale := math.Sqrt(math.Abs(ctm.Determinant()))
	width := in.gs.LineWidth
	if scale > 0 && width*scale < 1 {
		width = 1 / scale
	}
	tol := flatness
	if scale > 0 {
		tol = flatness / scale
	}
	user := p
	if !pre.IsIdentity() {
		user = p.Transform(pre)
	}
	outline := graphicsstate.StrokeOutline(user.Flatten(tol), graphicsstate.StrokeStyle{
		Width:      width,
		Cap:        in.gs.LineCap,
		Join:       in.gs.LineJoin,
		MiterLimit: in.gs.MiterLimit,
		Dash:       in.gs.Dash,
		DashPhase:  in.gs.DashPhase,
	})
	for _, poly := range outline {
		for i, pt := range poly {
			poly[i] = ctm.Transform(pt)
		}
	}
	cv, ok := in.cv.cover(outline, false)
	if !ok {
		return
	}
	src := in.source(in.gs.StrokeSpace, in.gs.StrokeComps, cv.rect())
	if src == nil {
		return
	}
	in.cv.paint(cv, src, in.gs.StrokeAlpha, in.gs.Clip)
}

func subpathPolys(subs []graphicsstate.Subpath) [][]model.Point {
	polys := make([][]model.Point, 0, len(subs))
	for _, s := range subs {
		if len(s.Points) > 1 {
			polys = append(polys, s.Points)
		}
	}
	return polys
}

func (in *interpreter) doXObject(name string) error {
	stream, ok := in.resolve(in.resource("XObject", name)).(*core.Stream)
	if !ok {
		return errors.New("XObject " + name + " not found")
	}
	subtype, _ := stream.Dict.GetName("Subtype")
	switch subtype {
	case "Image":
		return in.drawImage(stream)
	case "Form":
		return in.drawForm(stream)
	}
	return nil
}

func (in *interpreter) drawForm(stream *core.Stream) error {
	data, err := stream.Decode()
	if err != nil {
		return err
	}
	d := stream.Dict
	in.gs.Save()
	defer in.gs.Restore()

	if arr, ok := in.resolve(d.Get("Matrix")).(core.Array); ok {
		if m, ok := operandsToMatrix(arr); ok {
			in.gs.Transform(m)
		}
	}
	if arr, ok := in.resolve(d.Get("BBox")).(core.Array); ok {
		if v, ok := arr.Floats(); ok && len(v) == 4 {
			in.clipToRect(v[0], v[1], v[2]-v[0], v[3]-v[1])
		}
	}
	resources := in.resolveDict(d.Get("Resources"))
	if resources == nil {
		resources = in.scope().resources
	}
	depth := in.gs.Depth()
	err = in.runNested(data, resources)
	for in.gs.Depth() > depth {
		in.gs.Restore()
	}
	return err
}

// clipToRect intersects the clip with a user-space rectangle.
func (in *interpreter) clipToRect(x, y, w, h float64) {
	p := graphicsstate.NewPath()
	p.Rectangle(x, y, w, h)
	polys := subpathPolys(p.Transform(in.gs.CTM).Flatten(flatness))
	cv, ok := in.cv.cover(polys, false)
	in.gs.Clip = in.cv.intersectClip(in.gs.Clip, cv, ok)
}

func (in *interpreter) loadFont(raw core.Object) *font.Font {
	ref, isRef := raw.(core.IndirectRef)
	if isRef {
		if f, ok := in.fonts[ref]; ok {
			return f
		}
	}
	var f *font.Font
	if dict := in.resolveDict(raw); dict != nil {
		var err error
		if f, err = font.Load(dict, in.res); err != nil {
			in.log.Debug("font failed to load, substituting Helvetica", slog.Any("error", err))
			f = nil
		}
	}
	if f == nil {
		f = in.fallbackFont()
	}
	if isRef {
		in.fonts[ref] = f
	}
	return f
}

func (in *interpreter) fallbackFont() *font.Font {
	if in.fallback == nil {
		f, err := font.Load(core.Dict{
			"Type":     core.Name("Font"),
			"Subtype":  core.Name("Type1"),
			"BaseFont": core.Name("Helvetica"),
		}, in.res)
		if err != nil {
			panic(err)
		}
		in.fallback = f
	}
	return in.fallback
}

// currentFont returns the font selected by Tf in the current scope.
func (in *interpreter) currentFont() *font.Font {
	name := in.gs.Text.FontName
	for i := len(in.scopes) - 1; i >= 0; i-- {
		if f, ok := in.scopes[i].fonts[name]; ok {
			return f
		}
	}
	f := in.loadFont(in.resource("Font", name))
	in.scope().fonts[name] = f
	return f
}

func operandsToMatrix(operands []core.Object) (model.Matrix, bool) {
	v, ok := floats(operands, 6)
	if !ok {
		return model.Matrix{}, false
	}
	return model.Matrix(v), true
}

// floats returns exactly n numeric operands.
func floats(operands []core.Object, n int) ([]float64, bool) {
	if len(operands) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, op := range operands {
		v, ok := core.Number(op)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func floatArg(operands []core.Object, i, n int) (float64, bool) {
	if len(operands) != n {
		return 0, false
	}
	return core.Number(operands[i])
}

func clampUnit(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// fullRect is the canvas area left paintable by the clip.
func (in *interpreter) fullRect() image.Rectangle {
	return in.cv.clipBounds(in.gs.Clip)
}
