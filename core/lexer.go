package core

import (
	"bytes"
	"fmt"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	// TokenKeyword is a bare word: true, false, null, obj, endobj, stream
	// or a content stream operator.
	TokenKeyword
	// TokenInteger is a number without a fraction, e.g. 123.
	TokenInteger
	// TokenReal is a number with a fraction, e.g. 3.14.
	TokenReal
	// TokenString is a literal string, e.g. (hello).
	TokenString
	// TokenHexString is <48656C6C6F>; Value holds the decoded bytes.
	TokenHexString
	// TokenName is /Type; Value holds the name without the slash.
	TokenName
	TokenArrayStart // [
	TokenArrayEnd   // ]
	TokenDictStart  // <<
	TokenDictEnd    // >>
	// TokenIndirectRef is the R that follows two numbers.
	TokenIndirectRef
)

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int // offset of the first byte of the token
}

// Lexer tokenizes PDF syntax held entirely in memory. Keeping the whole
// buffer lets the reader seek to arbitrary xref offsets without re-reading.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a lexer positioned at the start of data.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the current offset.
func (l *Lexer) Pos() int { return l.pos }

// Seek moves the lexer to an absolute offset, clamped to the buffer.
func (l *Lexer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// Data returns the underlying buffer.
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token, skipping whitespace and comments.
func (l *Lexer) NextToken() (Token, error) {
	l.skipSpaceAndComments()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	b := l.data[l.pos]
	switch b {
	case '[':
		l.pos++
		return Token{Type: TokenArrayStart, Value: l.data[start:l.pos], Pos: start}, nil
	case ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Value: l.data[start:l.pos], Pos: start}, nil
	case '{', '}':
		// PostScript calculator braces; only meaningful inside Type 4 functions.
		l.pos++
		return Token{Type: TokenKeyword, Value: l.data[start:l.pos], Pos: start}, nil
	case '(':
		return l.readString()
	case '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: l.data[start:l.pos], Pos: start}, nil
		}
		return l.readHexString()
	case '>':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: l.data[start:l.pos], Pos: start}, nil
		}
		l.pos++
		return Token{}, fmt.Errorf("unexpected '>' at position %d", start)
	case ')':
		l.pos++
		return Token{}, fmt.Errorf("unexpected ')' at position %d", start)
	case '/':
		return l.readName()
	}
	return l.readRegular()
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// readString reads a literal string, resolving escapes.
func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for {
		if l.pos >= len(l.data) {
			return Token{}, fmt.Errorf("unterminated string at position %d", start)
		}
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: start}, nil
			}
			buf.WriteByte(b)
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			next := l.data[l.pos]
			l.pos++
			switch next {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			case '0', '1', '2', '3', '4', '5', '6', '7':
				val := int(next - '0')
				for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
					val = val*8 + int(l.data[l.pos]-'0')
					l.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(next)
			}
		default:
			buf.WriteByte(b)
		}
	}
}

// readHexString reads <...> and returns the decoded bytes. An odd trailing
// digit is treated as if followed by 0.
func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	l.pos++ // <
	var buf bytes.Buffer
	var hi byte
	half := false
	for {
		if l.pos >= len(l.data) {
			return Token{}, fmt.Errorf("unterminated hex string at position %d", start)
		}
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return Token{}, fmt.Errorf("invalid hex digit '%c' at position %d", b, l.pos-1)
		}
		if half {
			buf.WriteByte(hi<<4 | hexValue(b))
		} else {
			hi = hexValue(b)
		}
		half = !half
	}
	if half {
		buf.WriteByte(hi << 4)
	}
	return Token{Type: TokenHexString, Value: buf.Bytes(), Pos: start}, nil
}

// readName reads /Name, resolving #xx escapes.
func (l *Lexer) readName() (Token, error) {
	start := l.pos
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		if b == '#' && l.pos+2 < len(l.data) && isHexDigit(l.data[l.pos+1]) && isHexDigit(l.data[l.pos+2]) {
			buf.WriteByte(hexValue(l.data[l.pos+1])<<4 | hexValue(l.data[l.pos+2]))
			l.pos += 3
			continue
		}
		buf.WriteByte(b)
		l.pos++
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: start}, nil
}

// readRegular reads a run of regular characters and classifies it as a
// number, the R keyword, or another keyword.
func (l *Lexer) readRegular() (Token, error) {
	start := l.pos
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		l.pos++
	}
	value := l.data[start:l.pos]
	if len(value) == 0 {
		l.pos++
		return Token{}, fmt.Errorf("unexpected character '%c' at position %d", l.data[start], start)
	}

	if isNumeric(value) {
		if bytes.IndexByte(value, '.') >= 0 {
			return Token{Type: TokenReal, Value: value, Pos: start}, nil
		}
		return Token{Type: TokenInteger, Value: value, Pos: start}, nil
	}
	if len(value) == 1 && value[0] == 'R' {
		return Token{Type: TokenIndirectRef, Value: value, Pos: start}, nil
	}
	return Token{Type: TokenKeyword, Value: value, Pos: start}, nil
}

func isNumeric(v []byte) bool {
	digits := 0
	for i, b := range v {
		switch {
		case isDigit(b):
			digits++
		case b == '.':
		case (b == '-' || b == '+') && i == 0:
		case b == '-' && i > 0 && v[i-1] == '-':
			// tolerate "--5" produced by some writers
		default:
			return false
		}
	}
	return digits > 0 || (len(v) > 0 && (v[0] == '-' || v[0] == '.'))
}

// SkipStreamEOL consumes the end-of-line marker that follows the stream
// keyword. Both CRLF and a bare LF are accepted; a bare CR is tolerated.
func (l *Lexer) SkipStreamEOL() {
	for l.pos < len(l.data) && l.data[l.pos] == ' ' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

// ReadBytes returns the next n bytes and advances past them.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || l.pos+n > len(l.data) {
		avail := len(l.data) - l.pos
		return nil, fmt.Errorf("unexpected EOF: expected %d bytes, have %d", n, avail)
	}
	out := l.data[l.pos : l.pos+n]
	l.pos += n
	return out, nil
}

// HasPrefixAt reports whether the buffer at the current position starts with p,
// after skipping whitespace. The position is not changed.
func (l *Lexer) HasPrefixAt(p string) bool {
	i := l.pos
	for i < len(l.data) && isWhitespace(l.data[i]) {
		i++
	}
	return bytes.HasPrefix(l.data[i:], []byte(p))
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

// IsWhitespace reports whether b is PDF whitespace.
func IsWhitespace(b byte) bool { return isWhitespace(b) }

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

// IsDelimiter reports whether b is a PDF delimiter.
func IsDelimiter(b byte) bool { return isDelimiter(b) }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
