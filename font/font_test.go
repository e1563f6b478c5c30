package font

import (
	"math"
	"testing"

	"github.com/tsawler/pdfthumb/core"
)

type mapResolver map[int]core.Object

func (m mapResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		if v, ok := m[ref.Number]; ok {
			return v, nil
		}
		return core.Null{}, nil
	}
	return obj, nil
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestLoadSimpleFontWidths(t *testing.T) {
	dict := core.Dict{
		"Type":      core.Name("Font"),
		"Subtype":   core.Name("TrueType"),
		"BaseFont":  core.Name("ABCDEF+Arial"),
		"FirstChar": core.Int(65),
		"Widths":    core.IndirectRef{Number: 9},
		"Encoding":  core.Name("WinAnsiEncoding"),
	}
	res := mapResolver{9: core.Array{core.Int(700), core.Int(650)}}

	f, err := Load(dict, res)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	glyphs := f.Decode([]byte("AB C\xe9"))
	if len(glyphs) != 5 {
		t.Fatalf("got %d glyphs, want 5", len(glyphs))
	}

	if !approxEqual(glyphs[0].Width, 0.7) || !approxEqual(glyphs[1].Width, 0.65) {
		t.Errorf("widths from /Widths = %f, %f", glyphs[0].Width, glyphs[1].Width)
	}
	// Outside /Widths, Arial falls back to Helvetica metrics.
	if !approxEqual(glyphs[2].Width, 0.278) || !glyphs[2].Space {
		t.Errorf("space glyph = %+v", glyphs[2])
	}
	if !approxEqual(glyphs[3].Width, 0.722) {
		t.Errorf("C width = %f, want 0.722", glyphs[3].Width)
	}
	if glyphs[4].Rune != 'é' {
		t.Errorf("0xE9 rune = %q, want é", glyphs[4].Rune)
	}
	if got := f.DecodeString([]byte("AB")); got != "AB" {
		t.Errorf("DecodeString = %q", got)
	}
}

func TestLoadSimpleFontDifferences(t *testing.T) {
	dict := core.Dict{
		"Subtype":  core.Name("Type1"),
		"BaseFont": core.Name("Times-Roman"),
		"Encoding": core.Dict{
			"BaseEncoding": core.Name("WinAnsiEncoding"),
			"Differences":  core.Array{core.Int(65), core.Name("B"), core.Name("C"), core.Int(97), core.Name("bullet")},
		},
	}
	f, err := Load(dict, mapResolver{})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := f.DecodeString([]byte("ABa\xe9")); got != "BC•é" {
		t.Errorf("DecodeString = %q, want BC•é", got)
	}
}

func TestToUnicodeOverridesEncoding(t *testing.T) {
	dict := core.Dict{
		"Subtype":   core.Name("Type1"),
		"BaseFont":  core.Name("Helvetica"),
		"ToUnicode": &core.Stream{Dict: core.Dict{}, Data: []byte("1 begincodespacerange <00> <FF> endcodespacerange 1 beginbfchar <41> <005A> endbfchar")},
	}
	f, err := Load(dict, mapResolver{})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got := f.DecodeString([]byte("AB")); got != "ZB" {
		t.Errorf("DecodeString = %q, want ZB", got)
	}
}

func TestLoadCompositeFont(t *testing.T) {
	dict := core.Dict{
		"Subtype":         core.Name("Type0"),
		"BaseFont":        core.Name("XYZABC+NotoSansCJK"),
		"Encoding":        core.Name("Identity-H"),
		"DescendantFonts": core.Array{core.IndirectRef{Number: 4}},
	}
	res := mapResolver{
		4: core.Dict{
			"Subtype": core.Name("CIDFontType2"),
			"DW":      core.Int(900),
			"W": core.Array{
				core.Int(1), core.Array{core.Int(500), core.Int(600)},
				core.Int(10), core.Int(12), core.Int(250),
			},
		},
	}
	f, err := Load(dict, res)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !f.IsComposite() || f.IsVertical() {
		t.Fatalf("composite = %v, vertical = %v", f.IsComposite(), f.IsVertical())
	}

	glyphs := f.Decode([]byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x0B, 0x00, 0x63})
	want := []struct {
		cid   int
		width float64
	}{{1, 0.5}, {2, 0.6}, {11, 0.25}, {99, 0.9}}
	if len(glyphs) != len(want) {
		t.Fatalf("got %d glyphs, want %d", len(glyphs), len(want))
	}
	for i, w := range want {
		if glyphs[i].CID != w.cid || !approxEqual(glyphs[i].Width, w.width) {
			t.Errorf("glyph %d = cid %d width %f, want cid %d width %f", i, glyphs[i].CID, glyphs[i].Width, w.cid, w.width)
		}
		if glyphs[i].Space {
			t.Errorf("two-byte code %d marked as space", i)
		}
	}
}

func TestCompositeFontWithoutDescendant(t *testing.T) {
	dict := core.Dict{"Subtype": core.Name("Type0"), "Encoding": core.Name("Identity-H")}
	if _, err := Load(dict, mapResolver{}); err == nil {
		t.Error("expected error for Type0 font without DescendantFonts")
	}
}

func TestType3Font(t *testing.T) {
	proc := &core.Stream{Dict: core.Dict{}, Data: []byte("500 0 d0 0 0 500 500 re f")}
	dict := core.Dict{
		"Subtype":    core.Name("Type3"),
		"FontMatrix": core.Array{core.Real(0.002), core.Int(0), core.Int(0), core.Real(0.002), core.Int(0), core.Int(0)},
		"CharProcs":  core.Dict{"square": core.IndirectRef{Number: 12}},
		"Encoding":   core.Dict{"Differences": core.Array{core.Int(65), core.Name("square")}},
		"FirstChar":  core.Int(65),
		"Widths":     core.Array{core.Int(500)},
	}
	f, err := Load(dict, mapResolver{12: proc})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !f.IsType3() {
		t.Fatal("IsType3 = false")
	}
	g := f.Decode([]byte("A"))[0]
	if !approxEqual(g.Width, 1) {
		t.Errorf("width = %f, want 500 * 0.002", g.Width)
	}
	got, ok := f.CharProc(g)
	if !ok || got != proc {
		t.Errorf("CharProc = %v, %v", got, ok)
	}
	if _, ok := f.CharProc(f.Decode([]byte("B"))[0]); ok {
		t.Error("CharProc found a procedure for an unmapped code")
	}
	if f.Outline(g) != nil {
		t.Error("Type 3 glyphs have no outline")
	}
}

func TestSubstituteKey(t *testing.T) {
	tests := []struct {
		baseFont string
		flags    int64
		want     string
	}{
		{"Helvetica", 0, "sans"},
		{"Helvetica-BoldOblique", 0, "sans-bolditalic"},
		{"ABCDEF+TimesNewRomanPS-ItalicMT", 0, "sans-italic"},
		{"Courier-Bold", 0, "mono-bold"},
		{"Consolas", flagFixedPitch, "mono"},
		{"Garamond", flagForceBold, "sans-bold"},
	}
	for _, tt := range tests {
		if got := substituteKey(tt.baseFont, tt.flags); got != tt.want {
			t.Errorf("substituteKey(%q, %d) = %q, want %q", tt.baseFont, tt.flags, got, tt.want)
		}
	}
}

func TestSubstitutedOutline(t *testing.T) {
	f, err := Load(core.Dict{"Subtype": core.Name("Type1"), "BaseFont": core.Name("Helvetica")}, mapResolver{})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	glyphs := f.Decode([]byte("H "))

	path := f.Outline(glyphs[0])
	if path == nil {
		t.Fatal("no outline for H")
	}
	b := path.Bounds()
	// Cap height sits well inside one em, above the baseline.
	if b.Y < -0.01 || b.Top() > 1 || b.Height < 0.5 {
		t.Errorf("H bounds = %+v", b)
	}
	// Stretched to the Helvetica advance.
	if b.Right() > glyphs[0].Width+0.05 {
		t.Errorf("H extends to %f past its %f advance", b.Right(), glyphs[0].Width)
	}

	if f.Outline(glyphs[1]) != nil {
		t.Error("space should have no outline")
	}
}
