// Package font loads PDF font resources for rendering.
//
// A [Font] is built from a font dictionary with [Load] and answers three
// questions for the content stream interpreter: how a shown string splits
// into character codes ([Font.Decode]), how far each glyph advances, and
// what the glyph looks like ([Font.Outline], or [Font.CharProc] for Type 3
// fonts).
//
// # Font Programs
//
// Embedded TrueType (FontFile2) and OpenType (FontFile3 /OpenType)
// programs are read with golang.org/x/image/font/sfnt. Type 1 and bare CFF
// programs, and fonts that are not embedded at all, are drawn with the Go
// fonts: sans or mono, regular, bold or italic, chosen from the base font
// name and descriptor flags. Substituted glyphs are stretched to the
// widths the document specifies so line lengths are preserved.
//
// # Encodings
//
// Simple fonts map single bytes through an [Encoding]: WinAnsiEncoding
// and MacRomanEncoding come from golang.org/x/text/encoding/charmap,
// StandardEncoding and PDFDocEncoding are built in, and /Differences
// arrays are applied by glyph name. Composite (Type 0) fonts split strings
// with a [CMap] (Identity-H/V or an embedded CMap stream) and map CIDs to
// glyphs through CIDToGIDMap.
//
// ToUnicode CMaps are parsed with the same [CMap] type and take priority
// when choosing a Unicode value for substitution.
package font
