package core

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

// XRefEntryType distinguishes the three kinds of cross-reference entries.
type XRefEntryType int

const (
	XRefEntryFree XRefEntryType = iota
	XRefEntryUncompressed
	XRefEntryCompressed
)

// XRefEntry locates one object. Uncompressed entries carry a byte offset;
// compressed entries name the object stream and the index inside it.
type XRefEntry struct {
	Type         XRefEntryType
	Offset       int64
	Generation   int
	StreamNumber int
	StreamIndex  int
}

// InUse reports whether the entry refers to a live object.
func (e *XRefEntry) InUse() bool { return e.Type != XRefEntryFree }

// XRefTable maps object numbers to entries, plus the trailer dictionary.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict
	IsStream bool
}

// NewXRefTable creates an empty table.
func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]*XRefEntry), Trailer: Dict{}}
}

func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

func (x *XRefTable) Set(objNum int, entry *XRefEntry) { x.Entries[objNum] = entry }

func (x *XRefTable) Size() int { return len(x.Entries) }

// XRefParser reads cross-reference sections from an in-memory file.
type XRefParser struct {
	data []byte
}

// NewXRefParser creates a parser over the whole file contents.
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

var startxrefKeyword = []byte("startxref")

// FindXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	tail := x.data
	if len(tail) > 2048 {
		tail = tail[len(tail)-2048:]
	}
	idx := bytes.LastIndex(tail, startxrefKeyword)
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found in PDF")
	}
	rest := bytes.TrimLeft(tail[idx+len(startxrefKeyword):], " \t\r\n\f\x00")
	end := 0
	for end < len(rest) && isDigit(rest[end]) {
		end++
	}
	offset, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= int64(len(x.data)) {
		return 0, fmt.Errorf("xref offset %d outside file of %d bytes", offset, len(x.data))
	}
	return offset, nil
}

// ParseXRef parses the section at offset, which may be a classic table or
// an xref stream.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref offset %d out of range", offset)
	}
	lex := NewLexer(x.data)
	lex.Seek(int(offset))
	if lex.HasPrefixAt("xref") {
		return x.parseTable(int(offset))
	}
	if x.isXRefStream(int(offset)) {
		return x.parseXRefStreamAt(int(offset))
	}
	return nil, fmt.Errorf("no xref section at offset %d", offset)
}

func (x *XRefParser) isXRefStream(offset int) bool {
	p := NewParserAt(x.data, offset)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return false
	}
	s, ok := obj.Object.(*Stream)
	if !ok {
		return false
	}
	t, _ := s.Dict.GetName("Type")
	return t == "XRef"
}

// parseTable parses "xref" subsections followed by "trailer << ... >>".
func (x *XRefParser) parseTable(offset int) (*XRefTable, error) {
	lex := NewLexer(x.data)
	lex.Seek(offset)
	if tok, err := lex.NextToken(); err != nil || string(tok.Value) != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword at offset %d", offset)
	}

	table := NewXRefTable()
	for {
		tok, err := lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid subsection header at offset %d", tok.Pos)
		}
		first, _ := strconv.Atoi(string(tok.Value))
		countTok, err := lex.NextToken()
		if err != nil || countTok.Type != TokenInteger {
			return nil, fmt.Errorf("invalid subsection count at offset %d", tok.Pos)
		}
		count, _ := strconv.Atoi(string(countTok.Value))

		for i := 0; i < count; i++ {
			entry, err := x.parseEntry(lex)
			if err != nil {
				return nil, fmt.Errorf("failed to parse xref entry %d: %w", first+i, err)
			}
			// Many writers start at 1 with the free head entry; keep the first
			// definition seen so that later duplicates do not clobber it.
			if _, exists := table.Entries[first+i]; !exists {
				table.Set(first+i, entry)
			}
		}
	}

	p := NewParserAt(x.data, lex.Pos())
	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
	}
	table.Trailer = trailer
	return table, nil
}

// parseEntry reads "offset generation n|f". Token based, so entries with
// non-standard line endings are accepted.
func (x *XRefParser) parseEntry(lex *Lexer) (*XRefEntry, error) {
	offTok, err := lex.NextToken()
	if err != nil || offTok.Type != TokenInteger {
		return nil, fmt.Errorf("missing offset")
	}
	genTok, err := lex.NextToken()
	if err != nil || genTok.Type != TokenInteger {
		return nil, fmt.Errorf("missing generation")
	}
	flagTok, err := lex.NextToken()
	if err != nil || flagTok.Type != TokenKeyword {
		return nil, fmt.Errorf("missing in-use flag")
	}
	offset, _ := strconv.ParseInt(string(offTok.Value), 10, 64)
	gen, _ := strconv.Atoi(string(genTok.Value))

	switch string(flagTok.Value) {
	case "n":
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: offset, Generation: gen}, nil
	case "f":
		return &XRefEntry{Type: XRefEntryFree, Offset: offset, Generation: gen}, nil
	}
	return nil, fmt.Errorf("invalid in-use flag: %q", flagTok.Value)
}

// readBigEndianInt reads an unsigned big-endian integer of len(b) bytes.
func readBigEndianInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// parseXRefStreamEntry decodes one row of an xref stream using field
// widths w. A zero-width type field defaults to 1 (uncompressed).
func (x *XRefParser) parseXRefStreamEntry(data []byte, w [3]int) (*XRefEntry, int, error) {
	size := w[0] + w[1] + w[2]
	if len(data) < size {
		return nil, 0, fmt.Errorf("insufficient data for xref stream entry: need %d bytes, have %d", size, len(data))
	}
	typ := int64(1)
	if w[0] > 0 {
		typ = readBigEndianInt(data[:w[0]])
	}
	f2 := readBigEndianInt(data[w[0] : w[0]+w[1]])
	f3 := readBigEndianInt(data[w[0]+w[1] : size])

	switch typ {
	case 0:
		return &XRefEntry{Type: XRefEntryFree, Offset: f2, Generation: int(f3)}, size, nil
	case 1:
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: f2, Generation: int(f3)}, size, nil
	case 2:
		return &XRefEntry{Type: XRefEntryCompressed, StreamNumber: int(f2), StreamIndex: int(f3)}, size, nil
	}
	// Unknown types are to be treated as references to the null object.
	return &XRefEntry{Type: XRefEntryFree}, size, nil
}

func (x *XRefParser) parseXRefStreamAt(offset int) (*XRefTable, error) {
	obj, err := NewParserAt(x.data, offset).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	s, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream object is %T", obj.Object)
	}
	return x.parseXRefStream(s)
}

// parseXRefStream builds a table from a /Type /XRef stream.
func (x *XRefParser) parseXRefStream(s *Stream) (*XRefTable, error) {
	wArr, ok := s.Dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream has invalid /W")
	}
	var w [3]int
	for i := range w {
		n, ok := wArr.GetInt(i)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream /W[%d] is invalid", i)
		}
		w[i] = int(n)
	}
	rowSize := w[0] + w[1] + w[2]
	if rowSize == 0 {
		return nil, fmt.Errorf("xref stream /W sums to zero")
	}

	size, _ := s.Dict.GetInt("Size")
	index := []int{0, int(size)}
	if idx, ok := s.Dict.GetArray("Index"); ok {
		index = index[:0]
		for i := range idx {
			n, _ := idx.GetInt(i)
			index = append(index, int(n))
		}
		if len(index)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length")
		}
	}

	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.IsStream = true
	table.Trailer = s.Dict
	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowSize > len(data) {
				return table, nil
			}
			entry, n, err := x.parseXRefStreamEntry(data[pos:], w)
			if err != nil {
				return nil, err
			}
			pos += n
			table.Set(first+j, entry)
		}
	}
	return table, nil
}

// ParseAllXRefs follows the /Prev chain (and /XRefStm for hybrid files)
// from the last startxref and returns the merged table.
func (x *XRefParser) ParseAllXRefs() (*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var chain []*XRefTable
	seen := map[int64]bool{}
	for offset >= 0 && !seen[offset] {
		seen[offset] = true
		table, err := x.ParseXRef(offset)
		if err != nil {
			if len(chain) == 0 {
				return nil, err
			}
			break
		}
		if stmOff, ok := table.Trailer.GetInt("XRefStm"); ok && !seen[int64(stmOff)] {
			seen[int64(stmOff)] = true
			if hybrid, err := x.ParseXRef(int64(stmOff)); err == nil {
				// Hybrid entries sit between this table and its /Prev.
				chain = append(chain, table, hybrid)
			} else {
				chain = append(chain, table)
			}
		} else {
			chain = append(chain, table)
		}
		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}

	// chain runs newest first; merge oldest first so newer entries win.
	tables := make([]*XRefTable, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		tables = append(tables, chain[i])
	}
	merged := MergeXRefTables(tables...)
	merged.Trailer = chain[0].Trailer
	merged.IsStream = chain[0].IsStream
	return merged, nil
}

// MergeXRefTables merges tables given oldest first; later entries win.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		merged.Trailer = table.Trailer
	}
	return merged
}

var objHeader = regexp.MustCompile(`(?m)(?:^|[\r\n\s])(\d{1,10})\s+(\d{1,5})\s+obj\b`)

// Reconstruct rebuilds a table by scanning the whole file for "N G obj"
// headers. Used when the recorded xref is missing or damaged. Later
// definitions of the same object number win, matching incremental updates.
func Reconstruct(data []byte) (*XRefTable, error) {
	table := NewXRefTable()
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Set(num, &XRefEntry{Type: XRefEntryUncompressed, Offset: int64(m[2]), Generation: gen})
	}
	if table.Size() == 0 {
		return nil, fmt.Errorf("no objects found while reconstructing xref")
	}

	// Merge every trailer dictionary; later ones override earlier keys.
	for _, idx := range regexp.MustCompile(`trailer\s*<<`).FindAllIndex(data, -1) {
		p := NewParserAt(data, idx[0]+len("trailer"))
		if obj, err := p.ParseObject(); err == nil {
			if d, ok := obj.(Dict); ok {
				for k, v := range d {
					table.Trailer[k] = v
				}
			}
		}
	}
	return table, nil
}
