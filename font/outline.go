package font

import (
	"strings"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/graphicsstate"
	"github.com/tsawler/pdfthumb/model"
)

// outlinePPEM is the scale glyphs are loaded at; results are divided back
// down to em units.
const outlinePPEM = 1000

// outlineFont wraps a parsed sfnt font. sfnt fonts may be shared, but each
// Buffer serves one call at a time.
type outlineFont struct {
	mu       sync.Mutex
	sf       *sfnt.Font
	buf      sfnt.Buffer
	embedded bool
}

var (
	substitutesOnce sync.Once
	substitutes     map[string]*sfnt.Font
)

func substituteFont(key string) *sfnt.Font {
	substitutesOnce.Do(func() {
		substitutes = map[string]*sfnt.Font{}
		for k, ttf := range map[string][]byte{
			"sans":            goregular.TTF,
			"sans-bold":       gobold.TTF,
			"sans-italic":     goitalic.TTF,
			"sans-bolditalic": gobolditalic.TTF,
			"mono":            gomono.TTF,
			"mono-bold":       gomonobold.TTF,
			"mono-italic":     gomonoitalic.TTF,
			"mono-bolditalic": gomonobolditalic.TTF,
		} {
			if f, err := sfnt.Parse(ttf); err == nil {
				substitutes[k] = f
			}
		}
	})
	return substitutes[key]
}

// loadOutlines parses an embedded TrueType or OpenType program, falling
// back to a Go font chosen from the font name and descriptor flags.
// Type 1 and bare CFF programs are not supported and are substituted.
func loadOutlines(desc core.Dict, res Resolver, baseFont string, flags int64) *outlineFont {
	for _, key := range []string{"FontFile2", "FontFile3"} {
		obj, err := res.Resolve(desc.Get(key))
		if err != nil {
			continue
		}
		s, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		data, err := s.Decode()
		if err != nil {
			continue
		}
		if sf, err := sfnt.Parse(data); err == nil {
			return &outlineFont{sf: sf, embedded: true}
		}
	}
	if sf := substituteFont(substituteKey(baseFont, flags)); sf != nil {
		return &outlineFont{sf: sf}
	}
	return nil
}

func substituteKey(baseFont string, flags int64) string {
	name := strings.ToLower(stripSubset(baseFont))
	key := "sans"
	if flags&flagFixedPitch != 0 || strings.Contains(name, "courier") || strings.Contains(name, "mono") {
		key = "mono"
	}
	bold := flags&flagForceBold != 0 || strings.Contains(name, "bold") ||
		strings.Contains(name, "black") || strings.Contains(name, "heavy")
	italic := flags&flagItalic != 0 || strings.Contains(name, "italic") || strings.Contains(name, "oblique")
	switch {
	case bold && italic:
		key += "-bolditalic"
	case bold:
		key += "-bold"
	case italic:
		key += "-italic"
	}
	return key
}

func (o *outlineFont) index(r rune) sfnt.GlyphIndex {
	o.mu.Lock()
	defer o.mu.Unlock()
	x, err := o.sf.GlyphIndex(&o.buf, r)
	if err != nil {
		return 0
	}
	return x
}

// advance returns the glyph's advance in em units.
func (o *outlineFont) advance(x sfnt.GlyphIndex) (float64, bool) {
	if x == 0 {
		return 0, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	adv, err := o.sf.GlyphAdvance(&o.buf, x, fixed.I(outlinePPEM), xfont.HintingNone)
	if err != nil {
		return 0, false
	}
	return float64(adv) / (64 * outlinePPEM), true
}

// path loads glyph x as a path in em units with y pointing up.
func (o *outlineFont) path(x sfnt.GlyphIndex) (*graphicsstate.Path, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	segs, err := o.sf.LoadGlyph(&o.buf, x, fixed.I(outlinePPEM), nil)
	if err != nil {
		return nil, false
	}

	const scale = 1.0 / (64 * outlinePPEM)
	pt := func(p fixed.Point26_6) (float64, float64) {
		return float64(p.X) * scale, -float64(p.Y) * scale
	}
	path := graphicsstate.NewPath()
	var cx, cy float64
	open := false
	for _, seg := range segs {
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				path.ClosePath()
			}
			cx, cy = pt(seg.Args[0])
			path.MoveTo(cx, cy)
			open = true
		case sfnt.SegmentOpLineTo:
			cx, cy = pt(seg.Args[0])
			path.LineTo(cx, cy)
		case sfnt.SegmentOpQuadTo:
			qx, qy := pt(seg.Args[0])
			x, y := pt(seg.Args[1])
			path.CurveTo(cx+2*(qx-cx)/3, cy+2*(qy-cy)/3, x+2*(qx-x)/3, y+2*(qy-y)/3, x, y)
			cx, cy = x, y
		case sfnt.SegmentOpCubeTo:
			x1, y1 := pt(seg.Args[0])
			x2, y2 := pt(seg.Args[1])
			cx, cy = pt(seg.Args[2])
			path.CurveTo(x1, y1, x2, y2, cx, cy)
		}
	}
	if open {
		path.ClosePath()
	}
	return path, true
}

// glyphIndex picks the glyph for g in the font's outline program.
func (f *Font) glyphIndex(g Glyph) sfnt.GlyphIndex {
	o := f.outlines
	if o == nil {
		return 0
	}
	if o.embedded && f.composite {
		if f.cidToGID == nil {
			return sfnt.GlyphIndex(g.CID)
		}
		if g.CID >= 0 && g.CID < len(f.cidToGID) {
			return sfnt.GlyphIndex(f.cidToGID[g.CID])
		}
		return 0
	}
	if o.embedded && f.symbolic {
		// Symbolic TrueType fonts use the (3,0) cmap at U+F000 + code.
		if x := o.index(0xF000 + rune(g.Code)); x != 0 {
			return x
		}
		if x := o.index(rune(g.Code)); x != 0 {
			return x
		}
	}
	if g.Rune != 0 {
		return o.index(g.Rune)
	}
	return 0
}

// Outline returns the glyph outline in em units, or nil when the font has
// no outline for g (Type 3 glyphs, spaces and missing glyphs). Substituted
// glyphs are stretched horizontally to the advance the document expects.
func (f *Font) Outline(g Glyph) *graphicsstate.Path {
	if f.outlines == nil || f.IsType3() {
		return nil
	}
	x := f.glyphIndex(g)
	if x == 0 {
		return nil
	}
	path, ok := f.outlines.path(x)
	if !ok || path.IsEmpty() {
		return nil
	}
	if !f.outlines.embedded && g.Width > 0 {
		if adv, ok := f.outlines.advance(x); ok && adv > 0 {
			sx := g.Width / adv
			if sx < 0.5 {
				sx = 0.5
			} else if sx > 2 {
				sx = 2
			}
			if sx < 0.98 || sx > 1.02 {
				path = path.Transform(model.Scale(sx, 1))
			}
		}
	}
	return path
}
