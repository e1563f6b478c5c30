package raster

import (
	"log/slog"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/font"
	"github.com/tsawler/pdfthumb/graphicsstate"
	"github.com/tsawler/pdfthumb/model"
)

// Text rendering modes (Tr).
const (
	textFill = iota
	textStroke
	textFillStroke
	textInvisible
	textFillClip
	textStrokeClip
	textFillStrokeClip
	textClipOnly
)

// verticalOriginY is the default vertical-writing origin below the top of
// the em square.
const verticalOriginY = 0.88

// showText draws a string and advances the text matrix.
func (in *interpreter) showText(data []byte) {
	f := in.currentFont()
	t := in.gs.Text
	th := t.HorizontalScaling / 100
	vertical := f.IsVertical()
	for _, g := range f.Decode(data) {
		in.drawGlyph(f, g, vertical)
		spacing := t.CharSpacing
		if g.Space {
			spacing += t.WordSpacing
		}
		if vertical {
			in.gs.AdvanceText(0, -t.FontSize+spacing)
		} else {
			in.gs.AdvanceText((g.Width*t.FontSize+spacing)*th, 0)
		}
	}
}

// showTextArray handles TJ: strings interleaved with adjustments in
// thousandths of an em.
func (in *interpreter) showTextArray(arr core.Array) {
	for _, elem := range arr {
		switch v := elem.(type) {
		case core.String:
			in.showText([]byte(v))
		default:
			n, ok := core.Number(v)
			if !ok {
				continue
			}
			t := in.gs.Text
			adj := -n / 1000 * t.FontSize
			if in.currentFont().IsVertical() {
				in.gs.AdvanceText(0, adj)
			} else {
				in.gs.AdvanceText(adj*t.HorizontalScaling/100, 0)
			}
		}
	}
}

func (in *interpreter) drawGlyph(f *font.Font, g font.Glyph, vertical bool) {
	mode := in.gs.Text.RenderingMode
	if mode == textInvisible {
		return
	}
	trm := in.gs.TextRenderingMatrix()
	if vertical {
		trm = model.Translate(-g.Width/2, -verticalOriginY).Multiply(trm)
	}

	if f.IsType3() {
		// Type 3 glyphs paint themselves with the fill colour.
		if mode == textFill || mode == textFillStroke || mode == textFillClip || mode == textFillStrokeClip {
			in.drawType3Glyph(f, g, trm)
		}
		return
	}

	fill := mode == textFill || mode == textFillStroke || mode == textFillClip || mode == textFillStrokeClip
	clip := mode >= textFillClip
	if clip && in.inText && in.textClip == nil {
		// Clipping modes clip to nothing until a glyph with an outline is shown.
		in.textClip = [][]model.Point{}
	}
	outline := in.glyphOutline(f, g)
	if outline == nil {
		return
	}
	var device [][]model.Point
	if fill || clip {
		device = subpathPolys(outline.Transform(trm).Flatten(flatness))
	}
	if fill {
		in.fillPolys(device, false)
	}
	if mode == textStroke || mode == textFillStroke || mode == textStrokeClip || mode == textFillStrokeClip {
		// Stroke in user space so the line width follows the CTM.
		ctm := in.gs.CTM
		inv, ok := ctm.Invert()
		if ok {
			in.strokePath(outline, trm.Multiply(inv))
		}
	}
	if clip && in.inText {
		in.textClip = append(in.textClip, device...)
	}
}

func (in *interpreter) glyphOutline(f *font.Font, g font.Glyph) *graphicsstate.Path {
	key := glyphKey{font: f, code: g.Code, cid: g.CID}
	if p, ok := in.glyphs[key]; ok {
		return p
	}
	p := f.Outline(g)
	in.glyphs[key] = p
	return p
}

func (in *interpreter) drawType3Glyph(f *font.Font, g font.Glyph, trm model.Matrix) {
	proc, ok := f.CharProc(g)
	if !ok {
		return
	}
	data, err := proc.Decode()
	if err != nil {
		in.log.Debug("Type 3 glyph unreadable", slog.Any("error", err))
		return
	}
	resources := f.Resources()
	if resources == nil {
		resources = in.scope().resources
	}

	in.gs.Save()
	defer in.gs.Restore()
	depth := in.gs.Depth()
	in.gs.CTM = f.FontMatrix().Multiply(trm)
	if err := in.runNested(data, resources); err != nil {
		in.log.Debug("Type 3 glyph stopped early", slog.Any("error", err))
	}
	for in.gs.Depth() > depth {
		in.gs.Restore()
	}
}

// endText installs the clip accumulated by clipping render modes.
func (in *interpreter) endText() {
	if in.textClip == nil {
		return
	}
	cv, ok := in.cv.cover(in.textClip, false)
	in.gs.Clip = in.cv.intersectClip(in.gs.Clip, cv, ok)
	in.textClip = nil
}
