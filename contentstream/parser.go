package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/pdfthumb/core"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
//
// An inline image (BI ... ID ... EI) is reported as a single "BI" operation
// whose only operand is a *core.Stream with the expanded image dictionary.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
}

// maxOperands bounds the operand stack; content streams never need more
// than a handful and garbage data could otherwise grow it without limit.
const maxOperands = 64

// Parser parses PDF content streams into a sequence of operations.
type Parser struct {
	data     []byte
	parser   *core.Parser
	operands []core.Object
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	p := core.NewParser(data)
	p.DisableReferences()
	return &Parser{data: data, parser: p}
}

// Parse parses the content stream and returns all operations in order. On a
// syntax error the operations read so far are returned with the error.
func (p *Parser) Parse() ([]Operation, error) {
	var ops []Operation
	for {
		op, err := p.Next()
		if errors.Is(err, io.EOF) {
			return ops, nil
		}
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
}

// Next returns the next operation, or io.EOF at the end of the stream.
// Malformed operands are skipped.
func (p *Parser) Next() (Operation, error) {
	lex := p.parser.Lexer()
	for {
		before := lex.Pos()
		tok, err := lex.NextToken()
		if err != nil {
			if lex.Pos() <= before {
				lex.Seek(before + 1)
			}
			continue
		}
		switch tok.Type {
		case core.TokenEOF:
			return Operation{}, io.EOF
		case core.TokenKeyword:
			switch op := string(tok.Value); op {
			case "true", "false", "null":
			case "BI":
				p.operands = p.operands[:0]
				img, err := p.parseInlineImage()
				if err != nil {
					return Operation{}, fmt.Errorf("inline image at position %d: %w", tok.Pos, err)
				}
				return Operation{Operator: "BI", Operands: []core.Object{img}}, nil
			default:
				operation := Operation{Operator: op, Operands: make([]core.Object, len(p.operands))}
				copy(operation.Operands, p.operands)
				p.operands = p.operands[:0]
				return operation, nil
			}
		case core.TokenArrayEnd, core.TokenDictEnd:
			continue
		}

		obj, err := p.parser.ParseToken(tok)
		if errors.Is(err, io.EOF) {
			return Operation{}, io.EOF
		}
		if err != nil {
			return Operation{}, fmt.Errorf("at position %d: %w", tok.Pos, err)
		}
		if len(p.operands) >= maxOperands {
			p.operands = p.operands[1:]
		}
		p.operands = append(p.operands, obj)
	}
}

var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
	"L":   "Length",
}

var inlineValues = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
	"AHx":  "ASCIIHexDecode",
	"A85":  "ASCII85Decode",
	"LZW":  "LZWDecode",
	"Fl":   "FlateDecode",
	"RL":   "RunLengthDecode",
	"CCF":  "CCITTFaxDecode",
	"DCT":  "DCTDecode",
}

func expandInline(obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.Name:
		if full, ok := inlineValues[string(v)]; ok {
			return core.Name(full)
		}
	case core.Array:
		out := make(core.Array, len(v))
		for i, e := range v {
			out[i] = expandInline(e)
		}
		return out
	}
	return obj
}

// parseInlineImage reads the key/value pairs after BI up to ID, then the
// image data up to EI.
func (p *Parser) parseInlineImage() (*core.Stream, error) {
	lex := p.parser.Lexer()
	dict := core.Dict{}
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == core.TokenEOF {
			return nil, io.ErrUnexpectedEOF
		}
		if tok.Type == core.TokenKeyword && string(tok.Value) == "ID" {
			break
		}
		if tok.Type != core.TokenName {
			return nil, fmt.Errorf("expected key, got %q", tok.Value)
		}
		key := string(tok.Value)
		if full, ok := inlineKeys[key]; ok {
			key = full
		}
		val, err := p.parser.ParseObject()
		if err != nil {
			return nil, err
		}
		if key == "ColorSpace" || key == "Filter" {
			val = expandInline(val)
		}
		dict[key] = val
	}

	// A single whitespace byte separates ID from the data.
	start := lex.Pos()
	if start < len(p.data) && core.IsWhitespace(p.data[start]) {
		start++
	}
	end, next := p.findInlineEnd(dict, start)
	lex.Seek(next)
	return &core.Stream{Dict: dict, Data: p.data[start:end]}, nil
}

// findInlineEnd returns the end of the image data and the offset just past
// EI. Unfiltered data has a computable length; otherwise the data runs up
// to the first "EI" delimited by whitespace.
func (p *Parser) findInlineEnd(dict core.Dict, start int) (int, int) {
	if dict.Get("Filter") == nil {
		if n := inlineDataLength(dict); n > 0 && start+n <= len(p.data) {
			rest := p.data[start+n:]
			trimmed := bytes.TrimLeft(rest, " \t\r\n\f\x00")
			if bytes.HasPrefix(trimmed, []byte("EI")) {
				end := start + n
				return end, end + (len(rest) - len(trimmed)) + 2
			}
		}
	}
	for i := start; i+2 <= len(p.data); i++ {
		if p.data[i] != 'E' || p.data[i+1] != 'I' {
			continue
		}
		if i > start && !core.IsWhitespace(p.data[i-1]) {
			continue
		}
		if i+2 < len(p.data) && !core.IsWhitespace(p.data[i+2]) && !core.IsDelimiter(p.data[i+2]) {
			continue
		}
		end := i
		if end > start && core.IsWhitespace(p.data[end-1]) {
			end--
		}
		return end, i + 2
	}
	return len(p.data), len(p.data)
}

func inlineDataLength(dict core.Dict) int {
	w, _ := dict.GetInt("Width")
	h, _ := dict.GetInt("Height")
	bpc, ok := dict.GetInt("BitsPerComponent")
	if !ok {
		bpc = 1
	}
	comps := 1
	if mask, _ := dict.GetBool("ImageMask"); !bool(mask) {
		switch cs, _ := dict.GetName("ColorSpace"); cs {
		case "DeviceRGB", "CalRGB":
			comps = 3
		case "DeviceCMYK":
			comps = 4
		}
	}
	if w <= 0 || h <= 0 {
		return 0
	}
	return int(h) * ((int(w)*comps*int(bpc) + 7) / 8)
}
