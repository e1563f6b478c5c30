package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/internal/testpdf"
	"github.com/tsawler/pdfthumb/reader"
)

func open(t *testing.T, data []byte) *reader.Reader {
	t.Helper()
	r, err := reader.NewReader(data)
	if err != nil {
		t.Fatalf("extracted document does not parse: %v", err)
	}
	return r
}

func firstPageContent(t *testing.T, r *reader.Reader) string {
	t.Helper()
	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) error: %v", err)
	}
	data, err := page.ContentData()
	if err != nil {
		t.Fatalf("ContentData error: %v", err)
	}
	return strings.TrimSpace(string(data))
}

func TestFirstPageOfMany(t *testing.T) {
	src := testpdf.Document(200, 300,
		"1 0 0 rg 0 0 50 50 re f",
		"0 1 0 rg 0 0 50 50 re f",
		"0 0 1 rg 0 0 50 50 re f",
		"0 0 0 rg 0 0 50 50 re f",
		"1 1 0 rg 0 0 50 50 re f",
	)

	out, err := FirstPage(src)
	if err != nil {
		t.Fatalf("FirstPage error: %v", err)
	}
	r := open(t, out)
	n, err := r.PageCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("PageCount() = %d, want 1", n)
	}
	if got := firstPageContent(t, r); got != "1 0 0 rg 0 0 50 50 re f" {
		t.Errorf("content = %q, want the first page's", got)
	}
	if bytes.Contains(out, []byte("0 1 0 rg")) {
		t.Error("output carries content from a later page")
	}

	page, _ := r.GetPage(0)
	box := page.MediaBox()
	if box.Width != 200 || box.Height != 300 {
		t.Errorf("MediaBox = %+v, want inherited 200x300", box)
	}
	// The box must be on the page itself, not only reachable through a parent.
	if !page.Dict().Has("MediaBox") {
		t.Error("inherited MediaBox was not copied onto the page")
	}
}

func TestDroppedPageEntries(t *testing.T) {
	b := testpdf.New()
	b.Add("<< /Type /Catalog /Pages 2 0 R >>")
	b.Add("<< /Type /Pages /Kids [3 0 R] /Count 1 /Rotate 90 >>")
	b.Add("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 100] /Contents 4 0 R " +
		"/Annots [5 0 R] /Thumb 6 0 R /StructParents 0 /B [7 0 R] /Resources << /Font << /F1 8 0 R >> >> >>")
	b.AddStream("", []byte("BT /F1 12 Tf (Hi) Tj ET"))
	b.Add("<< /Type /Annot /Subtype /Link /Rect [0 0 10 10] /P 3 0 R /AnnotMarker true >>")
	b.AddStream("/Width 1 /Height 1 /ThumbMarker true", []byte{0})
	b.Add("<< /BeadMarker true >>")
	b.Add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	src := b.Bytes("/Root 1 0 R")

	out, err := FirstPage(src)
	if err != nil {
		t.Fatalf("FirstPage error: %v", err)
	}
	for _, marker := range []string{"AnnotMarker", "ThumbMarker", "BeadMarker", "StructParents"} {
		if bytes.Contains(out, []byte(marker)) {
			t.Errorf("output still contains %s", marker)
		}
	}

	r := open(t, out)
	page, err := r.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Rotate() != 90 {
		t.Errorf("Rotate() = %d, want inherited 90", page.Rotate())
	}
	fonts, _ := page.Resources().GetDict("Font")
	font, err := r.Resolve(fonts.Get("F1"))
	if err != nil {
		t.Fatal(err)
	}
	if name, _ := font.(core.Dict).GetName("BaseFont"); name != "Helvetica" {
		t.Errorf("font BaseFont = %q, want Helvetica", name)
	}
}

func TestBackReferenceToPage(t *testing.T) {
	b := testpdf.New()
	b.Add("<< /Type /Catalog /Pages 2 0 R >>")
	b.Add("<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 50 50] >>")
	b.Add("<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << /Properties << /MC0 5 0 R >> >> >>")
	b.AddStream("", []byte("0 0 m 1 1 l S"))
	b.Add("<< /Owner 3 0 R >>")
	src := b.Bytes("/Root 1 0 R")

	out, err := FirstPage(src)
	if err != nil {
		t.Fatalf("FirstPage error: %v", err)
	}
	r := open(t, out)
	page, err := r.GetPage(0)
	if err != nil {
		t.Fatal(err)
	}
	props, _ := page.Resources().GetDict("Properties")
	mc, err := r.Resolve(props.Get("MC0"))
	if err != nil {
		t.Fatal(err)
	}
	owner, ok := mc.(core.Dict).GetIndirectRef("Owner")
	if !ok || owner != page.Ref() {
		t.Errorf("Owner = %v, want the extracted page %v", owner, page.Ref())
	}
}

func TestEmptyDocument(t *testing.T) {
	b := testpdf.New()
	b.Add("<< /Type /Catalog /Pages 2 0 R >>")
	b.Add("<< /Type /Pages /Kids [] /Count 0 >>")

	_, err := FirstPage(b.Bytes("/Root 1 0 R"))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("got %v, want ErrEmptyDocument", err)
	}
}

func TestCorruptInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text", []byte("this is not a pdf at all")},
		{"header only", []byte("%PDF-1.7\n")},
		{"truncated", testpdf.Document(100, 100, "0 0 m 1 1 l S")[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FirstPage(tt.data)
			if !errors.Is(err, ErrDocumentParse) {
				t.Errorf("got %v, want ErrDocumentParse", err)
			}
		})
	}
}

func TestNotPDFKeepsCause(t *testing.T) {
	_, err := FirstPage([]byte("GIF89a"))
	if !errors.Is(err, reader.ErrNotPDF) {
		t.Errorf("got %v, want it to wrap reader.ErrNotPDF", err)
	}
}

func TestEncryptedInput(t *testing.T) {
	src := testpdf.Encrypted("0 0 1 rg 0 0 10 10 re f", "secret")

	out, err := FirstPage(src)
	if err != nil {
		t.Fatalf("FirstPage error: %v", err)
	}
	r := open(t, out)
	if r.Encrypted() {
		t.Error("extracted page should be written without encryption")
	}
	if got := firstPageContent(t, r); got != "0 0 1 rg 0 0 10 10 re f" {
		t.Errorf("content = %q, want decrypted content", got)
	}

	_, err = FirstPage(src, WithAllowEncrypted(false))
	if !errors.Is(err, ErrDocumentParse) || !errors.Is(err, reader.ErrEncrypted) {
		t.Errorf("WithAllowEncrypted(false): got %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	src := testpdf.Document(612, 792, "0 0 m 100 100 l S", "q Q")
	a, err := FirstPage(src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := FirstPage(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("extracting the same document twice gave different bytes")
	}
}

func TestObjectCount(t *testing.T) {
	src := testpdf.Document(612, 792, "0 0 m 100 100 l S", "q Q", "q Q")
	out, err := FirstPage(src)
	if err != nil {
		t.Fatal(err)
	}
	r := open(t, out)
	// Catalog, page tree, page and one content stream.
	if size, _ := r.Trailer().GetInt("Size"); size != 5 {
		t.Errorf("/Size = %d, want 5", size)
	}
	if !bytes.HasPrefix(out, []byte(fmt.Sprintf("%%PDF-%s", r.Version()))) {
		t.Errorf("header = %q", out[:9])
	}
}
