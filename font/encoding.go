package font

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"
)

// Encoding maps single-byte character codes of a simple font to Unicode.
type Encoding interface {
	Name() string
	Decode(b byte) rune
	DecodeString(data []byte) string
}

// tableEncoding is a fixed 256-entry code table. Zero entries are
// undefined codes.
type tableEncoding struct {
	name  string
	table [256]rune
}

func (e *tableEncoding) Name() string       { return e.name }
func (e *tableEncoding) Decode(b byte) rune { return e.table[b] }
func (e *tableEncoding) DecodeString(data []byte) string {
	return decodeString(e, data)
}

func decodeString(e Encoding, data []byte) string {
	var sb strings.Builder
	for _, b := range data {
		if r := e.Decode(b); r != 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// fromCharmap builds a table from an x/text single-byte code page.
func fromCharmap(name string, cm *charmap.Charmap) *tableEncoding {
	e := &tableEncoding{name: name}
	for i := 0; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r == '\uFFFD' || (i >= 0x20 && (r < 0x20 || (r >= 0x7F && r < 0xA0))) {
			continue
		}
		e.table[i] = r
	}
	return e
}

// ascii fills the printable ASCII range.
func ascii(e *tableEncoding) *tableEncoding {
	for i := 0x20; i < 0x7F; i++ {
		e.table[i] = rune(i)
	}
	return e
}

var (
	// WinAnsiEncoding is Windows code page 1252.
	WinAnsiEncoding Encoding = fromCharmap("WinAnsiEncoding", charmap.Windows1252)

	// MacRomanEncoding is the Mac OS Roman character set.
	MacRomanEncoding Encoding = fromCharmap("MacRomanEncoding", charmap.Macintosh)

	// StandardEncodingTable is Adobe StandardEncoding, the built-in encoding
	// of most Type 1 fonts.
	StandardEncodingTable Encoding = newStandardEncoding()

	// PDFDocEncoding is used for text strings outside content streams.
	PDFDocEncoding Encoding = newPDFDocEncoding()
)

func newStandardEncoding() *tableEncoding {
	e := ascii(&tableEncoding{name: "StandardEncoding"})
	e.table[0x27] = '’'
	e.table[0x60] = '‘'
	upper := map[byte]rune{
		0xA1: '¡', 0xA2: '¢', 0xA3: '£', 0xA4: '⁄', 0xA5: '¥', 0xA6: 'ƒ', 0xA7: '§',
		0xA8: '¤', 0xA9: '\'', 0xAA: '“', 0xAB: '«', 0xAC: '‹', 0xAD: '›', 0xAE: 'ﬁ',
		0xAF: 'ﬂ', 0xB1: '–', 0xB2: '†', 0xB3: '‡', 0xB4: '·', 0xB6: '¶', 0xB7: '•',
		0xB8: '‚', 0xB9: '„', 0xBA: '”', 0xBB: '»', 0xBC: '…', 0xBD: '‰', 0xBF: '¿',
		0xC1: '`', 0xC2: '´', 0xC3: 'ˆ', 0xC4: '˜', 0xC5: '¯', 0xC6: '˘', 0xC7: '˙',
		0xC8: '¨', 0xCA: '˚', 0xCB: '¸', 0xCD: '˝', 0xCE: '˛', 0xCF: 'ˇ', 0xD0: '—',
		0xE1: 'Æ', 0xE3: 'ª', 0xE8: 'Ł', 0xE9: 'Ø', 0xEA: 'Œ', 0xEB: 'º', 0xF1: 'æ',
		0xF5: 'ı', 0xF8: 'ł', 0xF9: 'ø', 0xFA: 'œ', 0xFB: 'ß',
	}
	for b, r := range upper {
		e.table[b] = r
	}
	return e
}

func newPDFDocEncoding() *tableEncoding {
	e := ascii(&tableEncoding{name: "PDFDocEncoding"})
	for i := 0; i < 0x18; i++ {
		e.table[i] = rune(i)
	}
	copy(e.table[0x18:0x20], []rune("˘ˇˆ˙˝˛˚˜"))
	copy(e.table[0x80:0x9F], []rune("•†‡…—–ƒ⁄‹›−‰„“”‘’‚™ﬁﬂŁŒŠŸŽıłœšž"))
	e.table[0xA0] = '€'
	for i := 0xA1; i <= 0xFF; i++ {
		if i != 0xAD {
			e.table[i] = rune(i)
		}
	}
	return e
}

// GetEncoding returns a predefined encoding by its PDF name.
func GetEncoding(name string) (Encoding, bool) {
	switch name {
	case "WinAnsiEncoding":
		return WinAnsiEncoding, true
	case "MacRomanEncoding", "MacExpertEncoding":
		return MacRomanEncoding, true
	case "StandardEncoding":
		return StandardEncodingTable, true
	case "PDFDocEncoding":
		return PDFDocEncoding, true
	}
	return nil, false
}

// customEncoding overlays /Differences on a base encoding.
type customEncoding struct {
	base  Encoding
	diffs map[byte]rune
}

// NewCustomEncoding returns base with the given codes remapped.
func NewCustomEncoding(base Encoding, diffs map[byte]rune) Encoding {
	return &customEncoding{base: base, diffs: diffs}
}

// NewCustomEncodingFromGlyphs is NewCustomEncoding for a Differences array
// of glyph names. Names without a known Unicode value map to nothing.
func NewCustomEncodingFromGlyphs(base Encoding, diffs map[byte]string) Encoding {
	runes := make(map[byte]rune, len(diffs))
	for code, name := range diffs {
		r, _ := GlyphRune(name)
		runes[code] = r
	}
	return NewCustomEncoding(base, runes)
}

func (e *customEncoding) Name() string { return e.base.Name() + "+custom" }

func (e *customEncoding) Decode(b byte) rune {
	if r, ok := e.diffs[b]; ok {
		return r
	}
	return e.base.Decode(b)
}

func (e *customEncoding) DecodeString(data []byte) string {
	return decodeString(e, data)
}

// GlyphRune resolves a glyph name to Unicode using the Adobe glyph list
// subset in glyphNameToUnicode and the uniXXXX and uXXXX[XX] conventions.
func GlyphRune(name string) (rune, bool) {
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if r, ok := glyphNameToUnicode[name]; ok {
		return r, true
	}
	switch {
	case strings.HasPrefix(name, "uni") && len(name) >= 7:
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v), true
		}
	case strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7:
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil && v <= 0x10FFFF {
			return rune(v), true
		}
	}
	if len(name) == 1 {
		return rune(name[0]), true
	}
	return 0, false
}

var (
	glyphNamesOnce sync.Once
	glyphNames     map[rune]string
)

// GlyphName returns a glyph name for r, preferring the Adobe glyph list.
func GlyphName(r rune) string {
	glyphNamesOnce.Do(func() {
		glyphNames = make(map[rune]string, len(glyphNameToUnicode))
		for name, v := range glyphNameToUnicode {
			if prev, ok := glyphNames[v]; !ok || name < prev {
				glyphNames[v] = name
			}
		}
	})
	if name, ok := glyphNames[r]; ok {
		return name
	}
	return fmt.Sprintf("uni%04X", r)
}
