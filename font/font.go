package font

import (
	"fmt"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/model"
)

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// FontDescriptor flags used for substitution.
const (
	flagFixedPitch  = 1 << 0
	flagSymbolic    = 1 << 2
	flagNonsymbolic = 1 << 5
	flagItalic      = 1 << 6
	flagForceBold   = 1 << 18
)

// Glyph is one decoded character code.
type Glyph struct {
	Code uint32
	CID  int
	// Rune is the Unicode value used for fallback rendering; 0 if unknown.
	Rune rune
	// Width is the horizontal advance in text space units at font size 1.
	Width float64
	// Space marks the single-byte code 32, which receives word spacing.
	Space bool
}

// Font is a loaded font resource: how to split strings into codes, each
// code's advance, and where to find its outline.
type Font struct {
	Name     string
	BaseFont string
	Subtype  string

	composite bool
	encoding  Encoding
	diffs     map[byte]string
	symbolic  bool
	toUnicode *CMap
	cmap      *CMap

	firstChar    int
	widths       []float64
	missingWidth float64
	cidWidths    map[int]float64
	defaultWidth float64
	cidToGID     []uint16

	outlines *outlineFont

	// Type 3 fonts
	res        Resolver
	charProcs  core.Dict
	fontMatrix model.Matrix
	resources  core.Dict
}

// Load builds a Font from a font dictionary. Missing or damaged parts fall
// back to defaults so that text still advances correctly.
func Load(dict core.Dict, res Resolver) (*Font, error) {
	subtype, _ := dict.GetName("Subtype")
	baseFont, _ := dict.GetName("BaseFont")
	f := &Font{
		BaseFont:   string(baseFont),
		Subtype:    string(subtype),
		fontMatrix: model.Matrix{0.001, 0, 0, 0.001, 0, 0},
	}
	if name, ok := dict.GetName("Name"); ok {
		f.Name = string(name)
	}

	if tu, err := res.Resolve(dict.Get("ToUnicode")); err == nil {
		if s, ok := tu.(*core.Stream); ok {
			if cm, err := ParseToUnicodeCMap(s); err == nil {
				f.toUnicode = cm
			}
		}
	}

	switch subtype {
	case "Type0":
		if err := f.loadComposite(dict, res); err != nil {
			return nil, err
		}
	case "Type3":
		f.loadType3(dict, res)
	default:
		f.loadSimple(dict, res)
	}
	return f, nil
}

// IsComposite reports whether the font is a Type 0 font.
func (f *Font) IsComposite() bool { return f.composite }

// IsType3 reports whether glyphs are content stream procedures.
func (f *Font) IsType3() bool { return f.Subtype == "Type3" }

// IsVertical reports vertical writing mode.
func (f *Font) IsVertical() bool { return f.cmap != nil && f.cmap.WMode == 1 }

// IsVerticalEncoding checks if an encoding name indicates vertical writing
// mode.
func IsVerticalEncoding(encoding string) bool {
	return encoding == "Identity-V"
}

func (f *Font) loadSimple(dict core.Dict, res Resolver) {
	desc := resolveDict(res, dict.Get("FontDescriptor"))
	flags, _ := desc.GetInt("Flags")
	f.symbolic = flags&flagSymbolic != 0 && flags&flagNonsymbolic == 0
	if mw, ok := core.Number(desc.Get("MissingWidth")); ok {
		f.missingWidth = mw
	}

	// Base encoding: explicit name, else the font's own. Non-embedded
	// non-symbolic fonts use StandardEncoding.
	f.encoding = StandardEncodingTable
	if family, _ := standardFamily(f.BaseFont); family == "Symbol" || family == "ZapfDingbats" {
		f.symbolic = true
	}
	if f.Subtype == "TrueType" && !f.symbolic {
		f.encoding = WinAnsiEncoding
	}
	encObj, _ := res.Resolve(dict.Get("Encoding"))
	switch e := encObj.(type) {
	case core.Name:
		if enc, ok := GetEncoding(string(e)); ok {
			f.encoding = enc
		}
	case core.Dict:
		if base, ok := e.GetName("BaseEncoding"); ok {
			if enc, ok := GetEncoding(string(base)); ok {
				f.encoding = enc
			}
		}
		f.diffs = parseDifferences(e.Get("Differences"), res)
		if len(f.diffs) > 0 {
			f.encoding = NewCustomEncodingFromGlyphs(f.encoding, f.diffs)
		}
	}

	fc, _ := dict.GetInt("FirstChar")
	f.firstChar = int(fc)
	widths, _ := res.Resolve(dict.Get("Widths"))
	if arr, ok := widths.(core.Array); ok {
		f.widths = make([]float64, len(arr))
		for i, w := range arr {
			rw, _ := res.Resolve(w)
			f.widths[i], _ = core.Number(rw)
		}
	}

	f.outlines = loadOutlines(desc, res, f.BaseFont, int64(flags))
}

func (f *Font) loadType3(dict core.Dict, res Resolver) {
	f.encoding = StandardEncodingTable
	encObj, _ := res.Resolve(dict.Get("Encoding"))
	if e, ok := encObj.(core.Dict); ok {
		f.diffs = parseDifferences(e.Get("Differences"), res)
		f.encoding = NewCustomEncodingFromGlyphs(f.encoding, f.diffs)
	}
	if m := numbers(dict.Get("FontMatrix"), res); len(m) == 6 {
		copy(f.fontMatrix[:], m)
	}
	f.res = res
	f.charProcs = resolveDict(res, dict.Get("CharProcs"))
	f.resources = resolveDict(res, dict.Get("Resources"))

	fc, _ := dict.GetInt("FirstChar")
	f.firstChar = int(fc)
	f.widths = numbers(dict.Get("Widths"), res)
}

func (f *Font) loadComposite(dict core.Dict, res Resolver) error {
	f.composite = true
	encObj, _ := res.Resolve(dict.Get("Encoding"))
	switch e := encObj.(type) {
	case core.Name:
		// Predefined CMaps other than Identity are not bundled; their codes
		// are treated as two-byte CIDs.
		f.cmap = IdentityCMap(e == "Identity-V" || (len(e) > 2 && e[len(e)-2:] == "-V"))
	case *core.Stream:
		cm, err := ParseToUnicodeCMap(e)
		if err != nil {
			cm = IdentityCMap(false)
		}
		f.cmap = cm
	default:
		f.cmap = IdentityCMap(false)
	}

	descendants, _ := res.Resolve(dict.Get("DescendantFonts"))
	arr, _ := descendants.(core.Array)
	if len(arr) == 0 {
		return fmt.Errorf("Type0 font %q has no descendant font", f.BaseFont)
	}
	cid := resolveDict(res, arr[0])
	if sub, ok := cid.GetName("Subtype"); ok {
		f.Subtype = "Type0/" + string(sub)
	}

	f.defaultWidth = 1000
	if dw, ok := core.Number(cid.Get("DW")); ok {
		f.defaultWidth = dw
	}
	f.cidWidths = parseCIDWidths(cid.Get("W"), res)

	if m, err := res.Resolve(cid.Get("CIDToGIDMap")); err == nil {
		if s, ok := m.(*core.Stream); ok {
			if data, err := s.Decode(); err == nil {
				f.cidToGID = make([]uint16, len(data)/2)
				for i := range f.cidToGID {
					f.cidToGID[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
				}
			}
		}
	}

	desc := resolveDict(res, cid.Get("FontDescriptor"))
	flags, _ := desc.GetInt("Flags")
	f.outlines = loadOutlines(desc, res, f.BaseFont, int64(flags))
	return nil
}

// parseDifferences reads [code /name /name code /name ...].
func parseDifferences(obj core.Object, res Resolver) map[byte]string {
	resolved, _ := res.Resolve(obj)
	arr, ok := resolved.(core.Array)
	if !ok {
		return nil
	}
	diffs := map[byte]string{}
	code := 0
	for _, e := range arr {
		switch v := e.(type) {
		case core.Int:
			code = int(v)
		case core.Real:
			code = int(v)
		case core.Name:
			if code >= 0 && code < 256 {
				diffs[byte(code)] = string(v)
			}
			code++
		}
	}
	return diffs
}

// parseCIDWidths reads a /W array: c [w1 w2 ...] or cfirst clast w.
func parseCIDWidths(obj core.Object, res Resolver) map[int]float64 {
	resolved, _ := res.Resolve(obj)
	arr, ok := resolved.(core.Array)
	if !ok {
		return nil
	}
	widths := map[int]float64{}
	for i := 0; i+1 < len(arr); {
		first, ok := core.Number(arr[i])
		if !ok {
			i++
			continue
		}
		next, _ := res.Resolve(arr[i+1])
		if list, ok := next.(core.Array); ok {
			for j, w := range list {
				if v, ok := core.Number(w); ok {
					widths[int(first)+j] = v
				}
			}
			i += 2
			continue
		}
		if i+2 >= len(arr) {
			break
		}
		last, _ := core.Number(next)
		w, _ := core.Number(arr[i+2])
		if int(last)-int(first) <= maxRangeSpan {
			for c := int(first); c <= int(last); c++ {
				widths[c] = w
			}
		}
		i += 3
	}
	return widths
}

// Decode splits a shown string into glyphs.
func (f *Font) Decode(data []byte) []Glyph {
	var glyphs []Glyph
	if f.composite {
		for len(data) > 0 {
			code, n := f.cmap.NextCode(data)
			if n == 0 {
				break
			}
			g := Glyph{Code: code, Space: n == 1 && code == 32}
			g.CID, _ = f.cmap.CID(code)
			g.Rune = f.unicodeRune(code)
			w, ok := f.cidWidths[g.CID]
			if !ok {
				w = f.defaultWidth
			}
			g.Width = w / 1000
			glyphs = append(glyphs, g)
			data = data[n:]
		}
		return glyphs
	}

	glyphs = make([]Glyph, 0, len(data))
	for _, b := range data {
		g := Glyph{Code: uint32(b), CID: int(b), Space: b == 32}
		if r := f.unicodeRune(uint32(b)); r != 0 {
			g.Rune = r
		} else {
			g.Rune = f.encoding.Decode(b)
		}
		g.Width = f.simpleWidth(b, g.Rune)
		glyphs = append(glyphs, g)
	}
	return glyphs
}

func (f *Font) unicodeRune(code uint32) rune {
	if f.toUnicode == nil {
		return 0
	}
	for _, r := range f.toUnicode.Lookup(code) {
		return r
	}
	return 0
}

func (f *Font) simpleWidth(b byte, r rune) float64 {
	if f.IsType3() {
		if i := int(b) - f.firstChar; i >= 0 && i < len(f.widths) {
			return f.widths[i] * f.fontMatrix[0]
		}
		return 0
	}
	if i := int(b) - f.firstChar; i >= 0 && i < len(f.widths) {
		return f.widths[i] / 1000
	}
	if w, ok := standardWidth(f.BaseFont, f.encoding.Decode(b)); ok {
		return w / 1000
	}
	if f.missingWidth > 0 {
		return f.missingWidth / 1000
	}
	if f.outlines != nil {
		if w, ok := f.outlines.advance(f.glyphIndex(Glyph{Code: uint32(b), CID: int(b), Rune: r})); ok {
			return w
		}
	}
	return 0.5
}

// DecodeString returns the Unicode text of a shown string.
func (f *Font) DecodeString(data []byte) string {
	var out []rune
	for _, g := range f.Decode(data) {
		if g.Rune != 0 {
			out = append(out, g.Rune)
		}
	}
	return string(out)
}

// CharProc returns the Type 3 glyph procedure for g.
func (f *Font) CharProc(g Glyph) (*core.Stream, bool) {
	if f.charProcs == nil {
		return nil, false
	}
	name, ok := f.diffs[byte(g.Code)]
	if !ok {
		name = GlyphName(f.encoding.Decode(byte(g.Code)))
	}
	obj, err := f.res.Resolve(f.charProcs.Get(name))
	if err != nil {
		return nil, false
	}
	s, ok := obj.(*core.Stream)
	return s, ok
}

// FontMatrix maps Type 3 glyph space to text space.
func (f *Font) FontMatrix() model.Matrix { return f.fontMatrix }

// Resources returns the Type 3 font's own resources, if any.
func (f *Font) Resources() core.Dict { return f.resources }

func resolveDict(res Resolver, obj core.Object) core.Dict {
	resolved, err := res.Resolve(obj)
	if err != nil {
		return core.Dict{}
	}
	switch v := resolved.(type) {
	case core.Dict:
		return v
	case *core.Stream:
		return v.Dict
	}
	return core.Dict{}
}

func numbers(obj core.Object, res Resolver) []float64 {
	resolved, err := res.Resolve(obj)
	if err != nil {
		return nil
	}
	arr, ok := resolved.(core.Array)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, e := range arr {
		v, _ := res.Resolve(e)
		n, _ := core.Number(v)
		out = append(out, n)
	}
	return out
}
