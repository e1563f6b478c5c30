package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser needs one to
// read streams whose /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from the tokens of a Lexer.
type Parser struct {
	lexer    *Lexer
	resolver ReferenceResolver
	noRefs   bool
}

// NewParser creates a parser positioned at the start of data.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// NewParserAt creates a parser positioned at offset.
func NewParserAt(data []byte, offset int) *Parser {
	p := NewParser(data)
	p.lexer.Seek(offset)
	return p
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// DisableReferences turns off "num gen R" detection. Content streams never
// contain references, and skipping the lookahead avoids misreading operands.
func (p *Parser) DisableReferences() { p.noRefs = true }

// Lexer exposes the underlying lexer.
func (p *Parser) Lexer() *Lexer { return p.lexer }

// Pos returns the current offset.
func (p *Parser) Pos() int { return p.lexer.Pos() }

// ParseObject parses the next object. It returns io.EOF at end of input.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	return p.ParseToken(tok)
}

// ParseToken parses an object whose first token has already been read.
func (p *Parser) ParseToken(tok Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at position %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseNumber(tok)
	case TokenReal:
		return Real(parseReal(tok.Value)), nil
	case TokenString, TokenHexString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected token %q at position %d", tok.Value, tok.Pos)
}

func parseReal(v []byte) float64 {
	f, err := strconv.ParseFloat(string(v), 64)
	if err == nil {
		return f
	}
	// Malformed reals such as "--1" or "1.2.3" are read up to the first bad byte.
	s := bytes.TrimLeft(v, "+-")
	neg := bytes.IndexByte(v[:len(v)-len(s)], '-') >= 0
	end := 0
	seenDot := false
	for end < len(s) && (isDigit(s[end]) || (s[end] == '.' && !seenDot)) {
		if s[end] == '.' {
			seenDot = true
		}
		end++
	}
	f, _ = strconv.ParseFloat(string(s[:end]), 64)
	if neg {
		f = -f
	}
	return f
}

// parseNumber handles an integer token, looking ahead for "gen R".
func (p *Parser) parseNumber(tok Token) (Object, error) {
	n, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return Real(parseReal(tok.Value)), nil
	}
	if p.noRefs {
		return Int(n), nil
	}

	mark := p.lexer.Pos()
	second, err := p.lexer.NextToken()
	if err == nil && second.Type == TokenInteger {
		third, err := p.lexer.NextToken()
		if err == nil && third.Type == TokenIndirectRef {
			gen, _ := strconv.Atoi(string(second.Value))
			return IndirectRef{Number: int(n), Generation: gen}, nil
		}
	}
	p.lexer.Seek(mark)
	return Int(n), nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, errors.New("unexpected EOF in array")
		}
		obj, err := p.ParseToken(tok)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, errors.New("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name for dictionary key at position %d", tok.Pos)
		}
		key := string(tok.Value)

		valTok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if valTok.Type == TokenDictEnd {
			// "/Key >>" with the value missing reads as null, which is dropped.
			return dict, nil
		}
		value, err := p.ParseToken(valTok)
		if err != nil {
			return nil, fmt.Errorf("dictionary value for key '%s': %w", key, err)
		}
		if _, isNull := value.(Null); !isNull {
			dict[key] = value
		}
	}
}

// ParseIndirectObject parses "num gen obj <object> endobj", including a
// trailing stream body when the object is a stream.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	num, err := p.expectInt("object number")
	if err != nil {
		return nil, err
	}
	gen, err := p.expectInt("generation number")
	if err != nil {
		return nil, err
	}
	tok, err := p.lexer.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "obj" {
		return nil, fmt.Errorf("expected 'obj' keyword at position %d", tok.Pos)
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("indirect object %d %d: %w", num, gen, err)
	}

	mark := p.lexer.Pos()
	tok, err = p.lexer.NextToken()
	if err == nil && tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, errors.New("stream must follow a dictionary")
		}
		stream, err := p.parseStream(dict)
		if err != nil {
			return nil, fmt.Errorf("error parsing stream: %w", err)
		}
		obj = stream
		mark = p.lexer.Pos()
		tok, err = p.lexer.NextToken()
	}
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		// A missing endobj is common in damaged files and harmless here.
		p.lexer.Seek(mark)
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: obj,
	}, nil
}

func (p *Parser) expectInt(what string) (int, error) {
	tok, err := p.lexer.NextToken()
	if err != nil {
		return 0, err
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("expected %s at position %d", what, tok.Pos)
	}
	n, err := strconv.Atoi(string(tok.Value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", what, err)
	}
	return n, nil
}

var endstreamKeyword = []byte("endstream")

// parseStream reads the stream body following the "stream" keyword. The
// declared /Length is trusted only when "endstream" follows it; otherwise
// the body is located by scanning for the keyword.
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	p.lexer.SkipStreamEOL()
	start := p.lexer.Pos()
	data := p.lexer.Data()

	length := -1
	switch v := dict.Get("Length").(type) {
	case Int:
		length = int(v)
	case IndirectRef:
		if p.resolver != nil {
			if resolved, err := p.resolver.ResolveReference(v); err == nil {
				if n, ok := resolved.(Int); ok {
					length = int(n)
				}
			}
		}
	}

	if length >= 0 && start+length <= len(data) {
		p.lexer.Seek(start + length)
		if p.lexer.HasPrefixAt("endstream") {
			body := data[start : start+length]
			p.consumeEndstream()
			return &Stream{Dict: dict, Data: body}, nil
		}
	}

	idx := bytes.Index(data[start:], endstreamKeyword)
	if idx < 0 {
		return nil, errors.New("missing endstream")
	}
	end := start + idx
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	p.lexer.Seek(start + idx)
	p.consumeEndstream()
	return &Stream{Dict: dict, Data: data[start:end]}, nil
}

func (p *Parser) consumeEndstream() {
	tok, err := p.lexer.NextToken()
	if err != nil || tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		p.lexer.Seek(tok.Pos)
	}
}
