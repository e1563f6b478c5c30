package extract

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/pages"
	"github.com/tsawler/pdfthumb/reader"
	"github.com/tsawler/pdfthumb/resolver"
)

var (
	// ErrDocumentParse is returned when the input cannot be read as a PDF
	// or its page tree cannot be followed.
	ErrDocumentParse = errors.New("document parse error")
	// ErrEmptyDocument is returned when the document has no first page.
	ErrEmptyDocument = errors.New("document has no pages")
)

// droppedPageKeys are page entries that are not carried into the extracted
// document. They point back into the source's structure or at interactive
// features that have no meaning for a standalone page.
var droppedPageKeys = map[string]bool{
	"Annots":        true,
	"B":             true,
	"StructParents": true,
	"Thumb":         true,
	"Parent":        true,
}

// Option configures extraction.
type Option func(*options)

type options struct {
	allowEncrypted bool
}

// WithAllowEncrypted controls whether documents that open with the empty
// user password are accepted. Default true.
func WithAllowEncrypted(allow bool) Option {
	return func(o *options) { o.allowEncrypted = allow }
}

// FirstPage returns a standalone single-page PDF holding the first page of
// data and every object that page depends on.
func FirstPage(data []byte, opts ...Option) ([]byte, error) {
	o := options{allowEncrypted: true}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := reader.NewReader(data, reader.WithAllowEncrypted(o.allowEncrypted))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentParse, err)
	}
	page, err := r.GetPage(0)
	if err != nil {
		if errors.Is(err, pages.ErrNoPages) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("%w: %w", ErrDocumentParse, err)
	}
	return Page(r, page)
}

// Page writes page, read through r, as a standalone document.
func Page(r resolver.ObjectReader, page *pages.Page) ([]byte, error) {
	dict := pageDict(page)

	var excluded []resolver.Option
	if ref := page.Ref(); ref.Number > 0 {
		excluded = append(excluded, resolver.WithExclude(ref))
	}
	collector := resolver.NewCollector(r, append(excluded, resolver.WithSkipKeys("Parent", "Length"))...)
	graph, err := collector.Collect(dict)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentParse, err)
	}

	w := core.NewWriter(versionOf(r))
	catalogRef := w.Reserve()
	pagesRef := w.Reserve()
	pageRef := w.Reserve()

	mapping := graph.Renumber(pageRef.Number + 1)
	if ref := page.Ref(); ref.Number > 0 {
		// Objects that point back at the page keep pointing at it.
		mapping[ref] = pageRef
	}

	out := resolver.Rewrite(dict, mapping).(core.Dict)
	out["Parent"] = pagesRef
	w.Set(catalogRef, core.Dict{"Type": core.Name("Catalog"), "Pages": pagesRef})
	w.Set(pagesRef, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{pageRef}, "Count": core.Int(1)})
	w.Set(pageRef, out)
	for _, ref := range graph.Refs {
		if w.Add(resolver.Rewrite(graph.Objects[ref], mapping)) != mapping[ref] {
			return nil, fmt.Errorf("object numbering out of step at %d %d R", ref.Number, ref.Generation)
		}
	}

	return w.Bytes(core.Dict{"Root": catalogRef})
}

// pageDict copies the page dictionary, inlining inherited attributes and
// leaving out droppedPageKeys.
func pageDict(page *pages.Page) core.Dict {
	dict := core.Dict{}
	for key, value := range page.Dict() {
		if !droppedPageKeys[key] {
			dict[key] = value
		}
	}
	for key, value := range page.InheritedAttributes() {
		dict[key] = value
	}
	if _, ok := dict["MediaBox"]; !ok {
		box := page.MediaBox()
		dict["MediaBox"] = core.Array{core.Real(box.X), core.Real(box.Y), core.Real(box.X + box.Width), core.Real(box.Y + box.Height)}
	}
	if _, ok := dict["Resources"]; !ok {
		dict["Resources"] = core.Dict{}
	}
	dict["Type"] = core.Name("Page")
	return dict
}

func versionOf(r resolver.ObjectReader) string {
	if rd, ok := r.(*reader.Reader); ok {
		v := rd.Version()
		if v.Major >= 1 {
			return v.String()
		}
	}
	return ""
}
