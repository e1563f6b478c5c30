package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// Writer assembles a new PDF file from objects. Object numbers are assigned
// sequentially starting at 1; all objects use generation 0.
type Writer struct {
	objects []Object
	version string
}

// NewWriter creates a writer that emits the given header version ("1.7" if empty).
func NewWriter(version string) *Writer {
	if version == "" {
		version = "1.7"
	}
	return &Writer{version: version}
}

// Reserve allocates an object number to be filled later with Set.
func (w *Writer) Reserve() IndirectRef {
	w.objects = append(w.objects, Null{})
	return IndirectRef{Number: len(w.objects)}
}

// Add appends obj and returns its reference.
func (w *Writer) Add(obj Object) IndirectRef {
	ref := w.Reserve()
	w.objects[ref.Number-1] = obj
	return ref
}

// Set replaces the object stored under a previously reserved reference.
func (w *Writer) Set(ref IndirectRef, obj Object) {
	w.objects[ref.Number-1] = obj
}

// Len returns the number of objects added so far.
func (w *Writer) Len() int { return len(w.objects) }

// Bytes serializes the document with a classic xref table. trailer entries
// other than /Size are copied into the trailer (typically /Root and /Info).
func (w *Writer) Bytes(trailer Dict) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", w.version)

	offsets := make([]int, len(w.objects))
	for i, obj := range w.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		if err := writeIndirectBody(&buf, obj); err != nil {
			return nil, fmt.Errorf("object %d: %w", i+1, err)
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(w.objects)+1)
	buf.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n\r\n", off)
	}

	t := Dict{}
	for k, v := range trailer {
		t[k] = v
	}
	t["Size"] = Int(len(w.objects) + 1)
	buf.WriteString("trailer\n")
	WriteObject(&buf, t)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes(), nil
}

func writeIndirectBody(buf *bytes.Buffer, obj Object) error {
	s, ok := obj.(*Stream)
	if !ok {
		WriteObject(buf, obj)
		return nil
	}
	d := Dict{}
	for k, v := range s.Dict {
		d[k] = v
	}
	d["Length"] = Int(len(s.Data))
	WriteObject(buf, d)
	buf.WriteString("\nstream\n")
	buf.Write(s.Data)
	buf.WriteString("\nendstream")
	return nil
}

// WriteObject appends the PDF syntax for obj. Streams must be written as
// indirect objects and are rejected here by writing null.
func WriteObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(v.String())
	case Int:
		buf.WriteString(v.String())
	case Real:
		buf.WriteString(formatReal(float64(v)))
	case String:
		writeString(buf, []byte(v))
	case Name:
		writeName(buf, string(v))
	case Array:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			WriteObject(buf, e)
		}
		buf.WriteByte(']')
	case Dict:
		buf.WriteString("<<")
		for _, k := range v.Keys() {
			writeName(buf, k)
			buf.WriteByte(' ')
			WriteObject(buf, v[k])
		}
		buf.WriteString(">>")
	case IndirectRef:
		buf.WriteString(v.String())
	default:
		buf.WriteString("null")
	}
}

func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	if bytes.IndexByte([]byte(s), '.') >= 0 {
		for s[len(s)-1] == '0' {
			s = s[:len(s)-1]
		}
		if s[len(s)-1] == '.' {
			s = s[:len(s)-1]
		}
	}
	if s == "-0" {
		return "0"
	}
	return s
}

func writeString(buf *bytes.Buffer, b []byte) {
	printable := 0
	for _, c := range b {
		if c >= 0x20 && c < 0x7F {
			printable++
		}
	}
	if len(b) > 0 && printable*4 < len(b)*3 {
		buf.WriteByte('<')
		const hex = "0123456789ABCDEF"
		for _, c := range b {
			buf.WriteByte(hex[c>>4])
			buf.WriteByte(hex[c&0x0F])
		}
		buf.WriteByte('>')
		return
	}
	buf.WriteByte('(')
	for _, c := range b {
		switch {
		case c == '(' || c == ')' || c == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case c == '\n':
			buf.WriteString(`\n`)
		case c == '\r':
			buf.WriteString(`\r`)
		case c < 0x20 || c >= 0x7F:
			fmt.Fprintf(buf, "\\%03o", c)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7E || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}
