// Package testpdf assembles small PDF files from object source text. It is
// used by tests throughout the module.
package testpdf

import (
	"bytes"
	"fmt"
	"strings"
)

// Builder collects object bodies. Object numbers start at 1.
type Builder struct {
	version string
	objs    [][]byte
}

// New returns a builder for a PDF 1.7 file.
func New() *Builder {
	return &Builder{version: "1.7"}
}

// Reserve allocates an object number to be filled with Set.
func (b *Builder) Reserve() int {
	b.objs = append(b.objs, []byte("null"))
	return len(b.objs)
}

// Add appends an object body such as "<< /Type /Catalog /Pages 2 0 R >>".
func (b *Builder) Add(body string) int {
	n := b.Reserve()
	b.objs[n-1] = []byte(body)
	return n
}

// Set replaces the body of object num.
func (b *Builder) Set(num int, body string) {
	b.objs[num-1] = []byte(body)
}

// AddStream appends a stream object. dict holds the entries without the
// enclosing << >>; /Length is added.
func (b *Builder) AddStream(dict string, data []byte) int {
	n := b.Reserve()
	b.SetStream(n, dict, data)
	return n
}

// SetStream replaces object num with a stream.
func (b *Builder) SetStream(num int, dict string, data []byte) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<< %s /Length %d >>\nstream\n", dict, len(data))
	buf.Write(data)
	buf.WriteString("\nendstream")
	b.objs[num-1] = buf.Bytes()
}

// Body writes the header and every object and returns the byte offset of
// each object (index 0 is object 1).
func (b *Builder) Body() ([]byte, []int) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", b.version)
	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		buf.Write(body)
		buf.WriteString("\nendobj\n")
	}
	return buf.Bytes(), offsets
}

// Bytes returns a complete file with a classic xref table. trailer holds
// extra trailer entries, e.g. "/Root 1 0 R".
func (b *Builder) Bytes(trailer string) []byte {
	body, offsets := b.Body()
	buf := bytes.NewBuffer(body)
	xref := buf.Len()
	fmt.Fprintf(buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, trailer, xref)
	return buf.Bytes()
}

// Document returns a file with one page per content string. Each page is
// width x height points.
func Document(width, height float64, contents ...string) []byte {
	b := New()
	catalog := b.Reserve()
	pages := b.Reserve()
	kids := make([]string, 0, len(contents))
	for _, content := range contents {
		stream := b.AddStream("", []byte(content))
		page := b.Add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /Contents %d 0 R >>", pages, stream))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	b.Set(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pages))
	b.Set(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 %g %g] >>",
		strings.Join(kids, " "), len(kids), width, height))
	return b.Bytes(fmt.Sprintf("/Root %d 0 R", catalog))
}
