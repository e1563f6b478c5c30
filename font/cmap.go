package font

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/pdfthumb/core"
)

// maxRangeSpan caps how many codes a single bfrange may expand to.
const maxRangeSpan = 0x10000

// codeRange is one codespace range; lo and hi have the same byte length.
type codeRange struct {
	n      int
	lo, hi uint32
}

type cidRange struct {
	lo, hi uint32
	cid    int
}

type uniRange struct {
	lo, hi uint32
	dst    []byte   // UTF-16BE start value, incremented per code
	list   []string // explicit destinations, one per code
}

// CMap maps byte sequences to character codes and then to CIDs (for
// composite font encodings) or Unicode text (for ToUnicode maps).
type CMap struct {
	Name  string
	WMode int

	codespaces []codeRange
	cids       map[uint32]int
	cidRanges  []cidRange
	unicode    map[uint32]string
	uniRanges  []uniRange

	// identity maps every two-byte code to the CID of the same value.
	identity bool
}

// NewCMap returns an empty CMap.
func NewCMap() *CMap {
	return &CMap{cids: map[uint32]int{}, unicode: map[uint32]string{}}
}

// IdentityCMap is the predefined Identity-H (or Identity-V) encoding.
func IdentityCMap(vertical bool) *CMap {
	cm := NewCMap()
	cm.Name = "Identity-H"
	if vertical {
		cm.Name = "Identity-V"
		cm.WMode = 1
	}
	cm.codespaces = []codeRange{{n: 2, lo: 0, hi: 0xFFFF}}
	cm.identity = true
	return cm
}

// ParseToUnicodeCMap parses the CMap held in a ToUnicode stream.
func ParseToUnicodeCMap(stream *core.Stream) (*CMap, error) {
	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode CMap stream: %w", err)
	}
	return ParseCMap(data)
}

// ParseCMap parses CMap program text. Unknown operators are skipped, so a
// truncated or partly damaged program yields whatever mappings it defined.
func ParseCMap(data []byte) (*CMap, error) {
	cm := NewCMap()
	p := core.NewParser(data)
	p.DisableReferences()
	lex := p.Lexer()

	var operands []core.Object
	for {
		before := lex.Pos()
		tok, err := lex.NextToken()
		if err != nil {
			// Skip the offending byte.
			lex.Seek(before + 1)
			operands = operands[:0]
			continue
		}
		if tok.Type == core.TokenEOF {
			break
		}
		if tok.Type != core.TokenKeyword {
			obj, err := p.ParseToken(tok)
			if err != nil {
				operands = operands[:0]
				continue
			}
			operands = append(operands, obj)
			continue
		}

		switch string(tok.Value) {
		case "def":
			if len(operands) >= 2 {
				key, _ := operands[len(operands)-2].(core.Name)
				switch key {
				case "CMapName":
					if n, ok := operands[len(operands)-1].(core.Name); ok {
						cm.Name = string(n)
					}
				case "WMode":
					if v, ok := core.Number(operands[len(operands)-1]); ok {
						cm.WMode = int(v)
					}
				}
			}
		case "usecmap":
			if len(operands) > 0 {
				if n, ok := operands[len(operands)-1].(core.Name); ok && strings.HasPrefix(string(n), "Identity") {
					cm.identity = true
					if len(cm.codespaces) == 0 {
						cm.codespaces = []codeRange{{n: 2, lo: 0, hi: 0xFFFF}}
					}
				}
			}
		case "endcodespacerange":
			for i := 0; i+1 < len(operands); i += 2 {
				lo, okLo := operands[i].(core.String)
				hi, okHi := operands[i+1].(core.String)
				if okLo && okHi && len(lo) == len(hi) && len(lo) >= 1 && len(lo) <= 4 {
					cm.codespaces = append(cm.codespaces, codeRange{n: len(lo), lo: codeValue(lo), hi: codeValue(hi)})
				}
			}
		case "endcidchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, ok := operands[i].(core.String)
				cid, okCID := core.Number(operands[i+1])
				if ok && okCID {
					cm.cids[codeValue(src)] = int(cid)
				}
			}
		case "endcidrange":
			for i := 0; i+2 < len(operands); i += 3 {
				lo, okLo := operands[i].(core.String)
				hi, okHi := operands[i+1].(core.String)
				cid, okCID := core.Number(operands[i+2])
				if okLo && okHi && okCID {
					cm.cidRanges = append(cm.cidRanges, cidRange{lo: codeValue(lo), hi: codeValue(hi), cid: int(cid)})
				}
			}
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, ok := operands[i].(core.String)
				if !ok {
					continue
				}
				switch dst := operands[i+1].(type) {
				case core.String:
					cm.unicode[codeValue(src)] = decodeUTF16BE([]byte(dst))
				case core.Name:
					if r, ok := GlyphRune(string(dst)); ok {
						cm.unicode[codeValue(src)] = string(r)
					}
				}
			}
		case "endbfrange":
			for i := 0; i+2 < len(operands); i += 3 {
				lo, okLo := operands[i].(core.String)
				hi, okHi := operands[i+1].(core.String)
				if !okLo || !okHi {
					continue
				}
				r := uniRange{lo: codeValue(lo), hi: codeValue(hi)}
				if r.hi < r.lo || r.hi-r.lo >= maxRangeSpan {
					continue
				}
				switch dst := operands[i+2].(type) {
				case core.String:
					r.dst = []byte(dst)
				case core.Array:
					for _, e := range dst {
						s, _ := e.(core.String)
						r.list = append(r.list, decodeUTF16BE([]byte(s)))
					}
				default:
					continue
				}
				cm.uniRanges = append(cm.uniRanges, r)
			}
		}
		if isSectionKeyword(string(tok.Value)) {
			operands = operands[:0]
		}
	}

	if len(cm.codespaces) == 0 && len(cm.cids) == 0 && len(cm.cidRanges) == 0 &&
		len(cm.unicode) == 0 && len(cm.uniRanges) == 0 && !cm.identity {
		return nil, errors.New("CMap defines no mappings")
	}
	return cm, nil
}

// isSectionKeyword reports whether kw ends an operand group.
func isSectionKeyword(kw string) bool {
	return strings.HasPrefix(kw, "begin") || strings.HasPrefix(kw, "end") ||
		kw == "def" || kw == "usecmap" || kw == "findresource" || kw == "defineresource"
}

func codeValue(s core.String) uint32 {
	var v uint32
	for i := 0; i < len(s) && i < 4; i++ {
		v = v<<8 | uint32(s[i])
	}
	return v
}

// NextCode splits the next character code off data using the codespace
// ranges. Bytes that match no range consume the length of the shortest
// range, as viewers do.
func (cm *CMap) NextCode(data []byte) (code uint32, n int) {
	if len(data) == 0 {
		return 0, 0
	}
	if len(cm.codespaces) == 0 {
		return uint32(data[0]), 1
	}
	var v uint32
	for l := 1; l <= 4 && l <= len(data); l++ {
		v = v<<8 | uint32(data[l-1])
		for _, r := range cm.codespaces {
			if r.n == l && v >= r.lo && v <= r.hi {
				return v, l
			}
		}
	}
	shortest := 4
	for _, r := range cm.codespaces {
		if r.n < shortest {
			shortest = r.n
		}
	}
	if shortest > len(data) {
		shortest = len(data)
	}
	v = 0
	for _, b := range data[:shortest] {
		v = v<<8 | uint32(b)
	}
	return v, shortest
}

// CID maps a character code to a CID.
func (cm *CMap) CID(code uint32) (int, bool) {
	if cid, ok := cm.cids[code]; ok {
		return cid, true
	}
	for _, r := range cm.cidRanges {
		if code >= r.lo && code <= r.hi {
			return r.cid + int(code-r.lo), true
		}
	}
	if cm.identity {
		return int(code), true
	}
	return 0, false
}

// Lookup returns the Unicode text for a code, or "" when unmapped.
func (cm *CMap) Lookup(code uint32) string {
	if s, ok := cm.unicode[code]; ok {
		return s
	}
	for _, r := range cm.uniRanges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := code - r.lo
		if r.list != nil {
			if int(off) < len(r.list) {
				return r.list[off]
			}
			return ""
		}
		dst := append([]byte(nil), r.dst...)
		// Offsets carry into the last byte only, matching common producers.
		if len(dst) > 0 {
			last := uint32(dst[len(dst)-1]) + off
			dst[len(dst)-1] = byte(last)
			if len(dst) > 1 {
				dst[len(dst)-2] += byte(last >> 8)
			}
		}
		return decodeUTF16BE(dst)
	}
	return ""
}

// LookupString decodes a whole string of codes.
func (cm *CMap) LookupString(data []byte) string {
	var sb strings.Builder
	for len(data) > 0 {
		code, n := cm.NextCode(data)
		sb.WriteString(cm.Lookup(code))
		data = data[n:]
	}
	return sb.String()
}

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// decodeUTF16BE decodes bfchar/bfrange destinations. Odd-length values
// are treated as single-byte codes.
func decodeUTF16BE(b []byte) string {
	if len(b)%2 == 1 {
		var sb strings.Builder
		for _, c := range b {
			sb.WriteRune(rune(c))
		}
		return sb.String()
	}
	out, err := utf16be.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}
