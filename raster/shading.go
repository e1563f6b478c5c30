package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/graphicsstate"
	"github.com/tsawler/pdfthumb/model"
)

// lutSize is the number of colour samples taken along a gradient.
const lutSize = 256

// patternSpace is the Pattern colour space with a pattern selected by scn.
// It lives in the graphics state so q/Q save it with the colour.
type patternSpace struct {
	graphicsstate.Pattern
	name string
}

func asPattern(cs graphicsstate.ColorSpace) (graphicsstate.Pattern, bool) {
	switch v := cs.(type) {
	case graphicsstate.Pattern:
		return v, true
	case patternSpace:
		return v.Pattern, true
	}
	return graphicsstate.Pattern{}, false
}

func (in *interpreter) solidColor(cs graphicsstate.ColorSpace, comps []float64) color.NRGBA {
	return graphicsstate.Color(cs, comps, 1)
}

// source returns the paint for the device rectangle r: a uniform colour,
// or a rendered pattern. Nil means nothing should be painted.
func (in *interpreter) source(cs graphicsstate.ColorSpace, comps []float64, r image.Rectangle) image.Image {
	ps, ok := cs.(patternSpace)
	if !ok {
		return image.NewUniform(in.solidColor(cs, comps))
	}
	obj := in.resolve(in.resource("Pattern", ps.name))
	var dict core.Dict
	var stream *core.Stream
	switch v := obj.(type) {
	case core.Dict:
		dict = v
	case *core.Stream:
		dict, stream = v.Dict, v
	default:
		in.log.Debug("pattern not found", slog.String("pattern", ps.name))
		return image.NewUniform(in.solidColor(cs, comps))
	}

	m := in.scope().base
	if arr, ok := in.resolve(dict.Get("Matrix")).(core.Array); ok {
		if pm, ok := operandsToMatrix(arr); ok {
			m = pm.Multiply(m)
		}
	}

	patternType, _ := dict.GetInt("PatternType")
	switch patternType {
	case 1:
		if stream == nil {
			return nil
		}
		img, err := in.tile(stream, m, ps.Base, comps, r)
		if err != nil {
			in.log.Debug("tiling pattern skipped", slog.Any("error", err))
			return nil
		}
		return img
	case 2:
		sh, err := in.parseShading(dict.Get("Shading"))
		if err != nil {
			in.log.Debug("shading pattern skipped", slog.Any("error", err))
			return nil
		}
		return sh.render(m, r)
	}
	return nil
}

// paintShading implements sh: the shading fills the clip region, or its
// own /BBox when it has one.
func (in *interpreter) paintShading(name string) error {
	sh, err := in.parseShading(in.resource("Shading", name))
	if err != nil {
		return err
	}
	var cv coverage
	if sh.bbox != nil {
		p := graphicsstate.NewPath()
		b := sh.bbox
		p.Rectangle(b.X, b.Y, b.Width, b.Height)
		var ok bool
		cv, ok = in.cv.cover(subpathPolys(p.Transform(in.gs.CTM).Flatten(flatness)), false)
		if !ok {
			return nil
		}
	} else {
		r := in.fullRect()
		if r.Empty() {
			return nil
		}
		cv = rectCoverage(r)
	}
	src := sh.render(in.gs.CTM, cv.rect())
	if src == nil {
		return nil
	}
	in.cv.paint(cv, src, in.gs.FillAlpha, in.gs.Clip)
	return nil
}

// shading is a parsed shading dictionary of type 1, 2 or 3. Mesh types
// parse but render nothing.
type shading struct {
	typ    int
	cs     graphicsstate.ColorSpace
	fn     graphicsstate.Function
	coords []float64
	domain []float64
	extend [2]bool
	matrix model.Matrix
	bbox   *model.BBox
}

func (in *interpreter) parseShading(obj core.Object) (*shading, error) {
	var d core.Dict
	switch v := in.resolve(obj).(type) {
	case core.Dict:
		d = v
	case *core.Stream:
		d = v.Dict
	default:
		return nil, errors.New("shading not found")
	}

	typ, _ := d.GetInt("ShadingType")
	cs, err := graphicsstate.ParseColorSpace(d.Get("ColorSpace"), in.scope().resources, in.res)
	if err != nil {
		return nil, fmt.Errorf("shading colour space: %w", err)
	}
	sh := &shading{typ: int(typ), cs: cs, matrix: model.Identity()}

	if arr, ok := in.resolve(d.Get("BBox")).(core.Array); ok {
		if v, ok := arr.Floats(); ok && len(v) == 4 {
			b := model.NewBBox(math.Min(v[0], v[2]), math.Min(v[1], v[3]), math.Abs(v[2]-v[0]), math.Abs(v[3]-v[1]))
			sh.bbox = &b
		}
	}
	if typ < 1 || typ > 3 {
		return sh, nil
	}

	if d.Has("Function") {
		fn, err := graphicsstate.ParseFunction(d.Get("Function"), in.res)
		if err != nil {
			return nil, fmt.Errorf("shading function: %w", err)
		}
		sh.fn = fn
	}
	if sh.fn == nil {
		return nil, errors.New("shading has no function")
	}
	if arr, ok := in.resolve(d.Get("Coords")).(core.Array); ok {
		sh.coords, _ = arr.Floats()
	}
	if arr, ok := in.resolve(d.Get("Domain")).(core.Array); ok {
		sh.domain, _ = arr.Floats()
	}
	if arr, ok := in.resolve(d.Get("Extend")).(core.Array); ok && len(arr) == 2 {
		a, _ := in.resolve(arr[0]).(core.Bool)
		b, _ := in.resolve(arr[1]).(core.Bool)
		sh.extend = [2]bool{bool(a), bool(b)}
	}
	if arr, ok := in.resolve(d.Get("Matrix")).(core.Array); ok {
		if m, ok := operandsToMatrix(arr); ok {
			sh.matrix = m
		}
	}

	switch sh.typ {
	case 1:
		if len(sh.domain) != 4 {
			sh.domain = []float64{0, 1, 0, 1}
		}
	case 2:
		if len(sh.coords) != 4 {
			return nil, errors.New("axial shading needs 4 coordinates")
		}
	case 3:
		if len(sh.coords) != 6 {
			return nil, errors.New("radial shading needs 6 coordinates")
		}
	}
	if sh.typ != 1 && len(sh.domain) != 2 {
		sh.domain = []float64{0, 1}
	}
	return sh, nil
}

// color evaluates the shading function at in.
func (sh *shading) color(in ...float64) color.NRGBA {
	return graphicsstate.Color(sh.cs, sh.fn.Eval(in), 1)
}

// render draws the shading over device rectangle r. toDevice maps
// shading space to the canvas.
func (sh *shading) render(toDevice model.Matrix, r image.Rectangle) image.Image {
	if sh.fn == nil || r.Empty() {
		return nil
	}
	inv, ok := sh.matrix.Multiply(toDevice).Invert()
	if !ok {
		return nil
	}
	img := image.NewNRGBA(r)

	var lut []color.NRGBA
	if sh.typ == 2 || sh.typ == 3 {
		lut = make([]color.NRGBA, lutSize)
		t0, t1 := sh.domain[0], sh.domain[1]
		for i := range lut {
			s := float64(i) / (lutSize - 1)
			lut[i] = sh.color(t0 + s*(t1-t0))
		}
	}

	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := inv.Transform(model.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			var s float64
			var ok bool
			switch sh.typ {
			case 1:
				d := sh.domain
				if p.X < d[0] || p.X > d[1] || p.Y < d[2] || p.Y > d[3] {
					continue
				}
				img.SetNRGBA(x, y, sh.color(p.X, p.Y))
				continue
			case 2:
				s, ok = sh.axial(p)
			case 3:
				s, ok = sh.radial(p)
			}
			if !ok {
				continue
			}
			img.SetNRGBA(x, y, lut[int(math.Round(s*(lutSize-1)))])
		}
	}
	return img
}

// axial returns the gradient position of p in [0, 1].
func (sh *shading) axial(p model.Point) (float64, bool) {
	c := sh.coords
	dx, dy := c[2]-c[0], c[3]-c[1]
	den := dx*dx + dy*dy
	if den == 0 {
		return 0, false
	}
	s := ((p.X-c[0])*dx + (p.Y-c[1])*dy) / den
	return sh.extendParam(s)
}

// radial returns the largest s whose circle passes through p.
func (sh *shading) radial(p model.Point) (float64, bool) {
	c := sh.coords
	x0, y0, r0, x1, y1, r1 := c[0], c[1], c[2], c[3], c[4], c[5]
	cdx, cdy, dr := x1-x0, y1-y0, r1-r0
	pdx, pdy := p.X-x0, p.Y-y0

	a := cdx*cdx + cdy*cdy - dr*dr
	b := pdx*cdx + pdy*cdy + r0*dr
	cc := pdx*pdx + pdy*pdy - r0*r0

	var candidates []float64
	if math.Abs(a) < 1e-12 {
		if b == 0 {
			return 0, false
		}
		candidates = []float64{cc / (2 * b)}
	} else {
		disc := b*b - a*cc
		if disc < 0 {
			return 0, false
		}
		sq := math.Sqrt(disc)
		s1, s2 := (b+sq)/a, (b-sq)/a
		if s2 > s1 {
			s1, s2 = s2, s1
		}
		candidates = []float64{s1, s2}
	}
	for _, s := range candidates {
		if r0+s*dr < 0 {
			continue
		}
		if v, ok := sh.extendParam(s); ok {
			return v, true
		}
	}
	return 0, false
}

func (sh *shading) extendParam(s float64) (float64, bool) {
	switch {
	case s < 0:
		if !sh.extend[0] {
			return 0, false
		}
		return 0, true
	case s > 1:
		if !sh.extend[1] {
			return 0, false
		}
		return 1, true
	}
	return s, true
}
