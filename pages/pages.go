package pages

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/model"
)

// ErrNoPages is returned when the page tree contains no page leaves.
var ErrNoPages = errors.New("document has no pages")

// maxTreeDepth bounds page tree recursion in malformed files.
const maxTreeDepth = 64

// inheritable lists the page attributes that may be set on an ancestor.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// ObjectResolver resolves indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Catalog wraps the document catalog dictionary.
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Pages returns the root of the page tree.
func (c *Catalog) Pages() (core.Dict, error) {
	obj, err := c.resolver.Resolve(c.dict.Get("Pages"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	pagesDict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", obj)
	}
	return pagesDict, nil
}

// PageTree walks a /Pages tree lazily.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the number of page leaves actually reachable. The /Count
// entry is not trusted since damaged files often get it wrong.
func (t *PageTree) Count() (int, error) {
	if err := t.load(-1); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// GetPage returns the page at index (0-based). Only as much of the tree as
// needed to reach index is visited.
func (t *PageTree) GetPage(index int) (*Page, error) {
	if index < 0 {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	if err := t.load(index + 1); err != nil {
		return nil, err
	}
	if index >= len(t.pages) {
		if len(t.pages) == 0 {
			return nil, ErrNoPages
		}
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// load collects up to limit pages (all when limit < 0).
func (t *PageTree) load(limit int) error {
	if t.pages != nil && (limit < 0 || len(t.pages) >= limit) {
		return nil
	}
	t.pages = t.pages[:0]
	w := &walker{tree: t, limit: limit, visited: map[core.IndirectRef]bool{}}
	return t.loadDone(w.visit(core.IndirectRef{}, t.root, nil, 0))
}

type walker struct {
	tree    *PageTree
	limit   int
	visited map[core.IndirectRef]bool
}

var errLimitReached = errors.New("page limit reached")

func (w *walker) visit(ref core.IndirectRef, node core.Dict, ancestors []core.Dict, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxTreeDepth)
	}

	typ, _ := node.GetName("Type")
	kidsObj := node.Get("Kids")
	if typ == "Page" || (typ != "Pages" && kidsObj == nil) {
		w.tree.pages = append(w.tree.pages, newPage(ref, node, ancestors, w.tree.resolver))
		if w.limit >= 0 && len(w.tree.pages) >= w.limit {
			return errLimitReached
		}
		return nil
	}

	kidsResolved, err := w.tree.resolver.Resolve(kidsObj)
	if err != nil {
		return fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	kids, _ := kidsResolved.(core.Array)
	chain := append(append([]core.Dict{}, ancestors...), node)
	for _, kid := range kids {
		kidRef, isRef := kid.(core.IndirectRef)
		if isRef {
			if w.visited[kidRef] {
				continue
			}
			w.visited[kidRef] = true
		}
		resolved, err := w.tree.resolver.Resolve(kid)
		if err != nil {
			continue
		}
		kidDict, ok := resolved.(core.Dict)
		if !ok {
			continue
		}
		if err := w.visit(kidRef, kidDict, chain, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (t *PageTree) loadDone(err error) error {
	if errors.Is(err, errLimitReached) {
		return nil
	}
	return err
}

// Page is a single page leaf together with its ancestors, from the root
// down to its direct parent.
type Page struct {
	ref       core.IndirectRef
	dict      core.Dict
	ancestors []core.Dict
	resolver  ObjectResolver
}

func newPage(ref core.IndirectRef, dict core.Dict, ancestors []core.Dict, resolver ObjectResolver) *Page {
	return &Page{ref: ref, dict: dict, ancestors: ancestors, resolver: resolver}
}

// NewPage wraps a page dictionary that has no ancestors.
func NewPage(dict core.Dict, resolver ObjectResolver) *Page {
	return &Page{dict: dict, resolver: resolver}
}

// Ref returns the page's own reference (zero if it was a direct object).
func (p *Page) Ref() core.IndirectRef { return p.ref }

// Dict returns the raw page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

// Inherited looks key up on the page and then on each ancestor, nearest
// first, and resolves the result.
func (p *Page) Inherited(key string) (core.Object, error) {
	obj := p.dict.Get(key)
	for i := len(p.ancestors) - 1; obj == nil && i >= 0; i-- {
		obj = p.ancestors[i].Get(key)
	}
	if obj == nil {
		return nil, nil
	}
	return p.resolver.Resolve(obj)
}

// InheritedAttributes returns every inheritable attribute that applies to
// the page, resolved one level.
func (p *Page) InheritedAttributes() core.Dict {
	out := core.Dict{}
	for _, key := range inheritable {
		if obj, err := p.Inherited(key); err == nil && obj != nil {
			out[key] = obj
		}
	}
	return out
}

// letter is used when neither the page nor its ancestors define a MediaBox.
var letter = model.BBox{Width: 612, Height: 792}

// MediaBox returns the normalized media box, defaulting to US Letter.
func (p *Page) MediaBox() model.BBox {
	if box, ok := p.box("MediaBox"); ok {
		return box
	}
	return letter
}

// CropBox returns the crop box clipped to the media box. It defaults to the
// media box.
func (p *Page) CropBox() model.BBox {
	media := p.MediaBox()
	crop, ok := p.box("CropBox")
	if !ok {
		return media
	}
	clipped := crop.Intersection(media)
	if !clipped.IsValid() {
		return media
	}
	return clipped
}

func (p *Page) box(name string) (model.BBox, bool) {
	obj, err := p.Inherited(name)
	if err != nil || obj == nil {
		return model.BBox{}, false
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return model.BBox{}, false
	}
	vals := make([]float64, 4)
	for i, e := range arr {
		r, err := p.resolver.Resolve(e)
		if err != nil {
			return model.BBox{}, false
		}
		f, ok := core.Number(r)
		if !ok {
			return model.BBox{}, false
		}
		vals[i] = f
	}
	box := model.NewBBoxFromPoints(model.Point{X: vals[0], Y: vals[1]}, model.Point{X: vals[2], Y: vals[3]})
	if !box.IsValid() {
		return model.BBox{}, false
	}
	return box, true
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270.
func (p *Page) Rotate() int {
	obj, err := p.Inherited("Rotate")
	if err != nil {
		return 0
	}
	f, ok := core.Number(obj)
	if !ok {
		return 0
	}
	r := int(f) % 360
	if r < 0 {
		r += 360
	}
	return r / 90 * 90
}

// Resources returns the resource dictionary, or an empty one.
func (p *Page) Resources() core.Dict {
	obj, err := p.Inherited("Resources")
	if err != nil {
		return core.Dict{}
	}
	if d, ok := obj.(core.Dict); ok {
		return d
	}
	return core.Dict{}
}

// Contents returns the page's content streams in order. Entries that do
// not resolve to a stream are skipped.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj, err := p.resolver.Resolve(p.dict.Get("Contents"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}
	switch v := obj.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		var streams []*core.Stream
		for _, elem := range v {
			resolved, err := p.resolver.Resolve(elem)
			if err != nil {
				continue
			}
			if s, ok := resolved.(*core.Stream); ok {
				streams = append(streams, s)
			}
		}
		return streams, nil
	}
	return nil, nil
}

// ContentData decodes and concatenates all content streams, separated by
// newlines so that operators never run together across stream boundaries.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, s := range streams {
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("content stream %d: %w", i, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
