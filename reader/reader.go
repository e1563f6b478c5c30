package reader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/internal/crypt"
	"github.com/tsawler/pdfthumb/pages"
)

var (
	// ErrNotPDF is returned when no %PDF- header is found near the start of
	// the data.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrEncrypted is returned for encrypted documents when the reader was
	// created with WithAllowEncrypted(false).
	ErrEncrypted = errors.New("document is encrypted")
)

// headerWindow is how far into the file the %PDF- header may appear.
const headerWindow = 1024

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Option configures a Reader.
type Option func(*Reader)

// WithAllowEncrypted controls whether documents protected by the standard
// security handler (with an empty user password) are opened. Default true.
func WithAllowEncrypted(allow bool) Option {
	return func(r *Reader) { r.allowEncrypted = allow }
}

// Reader gives random access to the objects of a PDF held in memory. A
// Reader is not safe for concurrent use.
type Reader struct {
	data         []byte
	headerOffset int
	version      PDFVersion

	xrefTable *core.XRefTable
	trailer   core.Dict

	objCache   map[int]core.Object
	objStreams map[int]*core.ObjectStream
	loading    map[int]bool

	allowEncrypted bool
	decrypter      *crypt.Decrypter
	encryptObj     int

	reconstructed bool
	pageTree      *pages.PageTree
}

// Ensure Reader implements pages.ObjectResolver
var _ pages.ObjectResolver = (*Reader)(nil)

// NewReader parses the header and cross-reference data of a PDF held in
// data. A damaged or missing xref table is rebuilt by scanning the file.
func NewReader(data []byte, opts ...Option) (*Reader, error) {
	r := &Reader{data: data, allowEncrypted: true, encryptObj: -1}
	for _, opt := range opts {
		opt(r)
	}

	version, offset, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r.version = version
	r.headerOffset = offset

	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Open reads filename into memory and returns a Reader for it.
func Open(filename string, opts ...Option) (*Reader, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return NewReader(data, opts...)
}

var versionPattern = regexp.MustCompile(`^%PDF-(\d+)\.(\d+)`)

// parseHeader locates %PDF-x.y within the first kilobyte. Leading junk
// before the header is tolerated and its length returned.
func parseHeader(data []byte) (PDFVersion, int, error) {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	idx := bytes.Index(window, []byte("%PDF-"))
	if idx < 0 {
		return PDFVersion{}, 0, ErrNotPDF
	}
	m := versionPattern.FindSubmatch(data[idx:])
	if m == nil {
		// A garbled version number is not worth rejecting the file over.
		return PDFVersion{Major: 1, Minor: 4}, idx, nil
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, idx, nil
}

// load reads the recorded xref chain and falls back to reconstruction when
// the chain or the catalog it points to is unusable.
func (r *Reader) load() error {
	table, err := core.NewXRefParser(r.data).ParseAllXRefs()
	if err == nil {
		r.useTable(table)
		if err = r.setupEncryption(); err == nil {
			if _, err = r.Catalog(); err == nil {
				return nil
			}
		}
		if isEncryptionError(err) {
			return err
		}
	}

	if rerr := r.reconstruct(); rerr != nil {
		if err != nil {
			return fmt.Errorf("failed to load xref: %w (reconstruction: %v)", err, rerr)
		}
		return rerr
	}
	if err := r.setupEncryption(); err != nil {
		return err
	}
	if _, err := r.Catalog(); err != nil {
		return err
	}
	return nil
}

func isEncryptionError(err error) bool {
	return errors.Is(err, ErrEncrypted) ||
		errors.Is(err, crypt.ErrPasswordRequired) ||
		errors.Is(err, crypt.ErrUnsupported)
}

func (r *Reader) useTable(table *core.XRefTable) {
	r.xrefTable = table
	r.trailer = table.Trailer
	r.objCache = make(map[int]core.Object)
	r.objStreams = make(map[int]*core.ObjectStream)
	r.loading = make(map[int]bool)
	r.decrypter = nil
	r.encryptObj = -1
	r.pageTree = nil
}

// reconstruct rebuilds the xref table by scanning for object headers. It
// also registers the contents of object streams and recovers /Root (and the
// other trailer keys) from xref stream dictionaries or a /Catalog object.
func (r *Reader) reconstruct() error {
	table, err := core.Reconstruct(r.data)
	if err != nil {
		return fmt.Errorf("failed to reconstruct xref: %w", err)
	}
	r.reconstructed = true
	r.useTable(table)

	nums := make([]int, 0, table.Size())
	for num := range table.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	var objStms []int
	catalog := -1
	for _, num := range nums {
		obj, err := r.parseUncompressed(num, table.Entries[num])
		if err != nil {
			continue
		}
		var dict core.Dict
		switch v := obj.(type) {
		case core.Dict:
			dict = v
		case *core.Stream:
			dict = v.Dict
		default:
			continue
		}
		switch typ, _ := dict.GetName("Type"); typ {
		case "ObjStm":
			objStms = append(objStms, num)
		case "XRef":
			for _, key := range []string{"Root", "Info", "ID", "Encrypt"} {
				if v := dict.Get(key); v != nil && !r.trailer.Has(key) {
					r.trailer.Set(key, v)
				}
			}
		case "Catalog":
			catalog = num
		}
	}

	if err := r.setupEncryption(); err != nil {
		return err
	}
	// Object stream contents never override a directly stored object.
	for _, stmNum := range objStms {
		stm, err := r.objectStream(stmNum)
		if err != nil {
			continue
		}
		members, err := stm.ObjectNumbers()
		if err != nil {
			continue
		}
		for idx, num := range members {
			if _, exists := table.Get(num); exists {
				continue
			}
			table.Set(num, &core.XRefEntry{
				Type:         core.XRefEntryCompressed,
				StreamNumber: stmNum,
				StreamIndex:  idx,
			})
			if catalog < 0 {
				if obj, _, err := stm.GetObjectByIndex(idx); err == nil {
					if d, ok := obj.(core.Dict); ok {
						if typ, _ := d.GetName("Type"); typ == "Catalog" {
							catalog = num
						}
					}
				}
			}
		}
	}

	if !r.rootIsCatalog() && catalog >= 0 {
		r.trailer.Set("Root", core.IndirectRef{Number: catalog})
	}
	return nil
}

func (r *Reader) rootIsCatalog() bool {
	ref, ok := r.trailer.GetIndirectRef("Root")
	if !ok {
		return false
	}
	entry, ok := r.xrefTable.Get(ref.Number)
	if !ok || !entry.InUse() {
		return false
	}
	obj, err := r.GetObject(ref.Number)
	if err != nil {
		return false
	}
	d, ok := obj.(core.Dict)
	return ok && d.Has("Pages")
}

// setupEncryption builds the decrypter for /Encrypt. Called before any
// other object is cached so that every later load is decrypted.
func (r *Reader) setupEncryption() error {
	encObj := r.trailer.Get("Encrypt")
	if encObj == nil {
		return nil
	}
	if !r.allowEncrypted {
		return ErrEncrypted
	}
	if ref, ok := encObj.(core.IndirectRef); ok {
		r.encryptObj = ref.Number
	}
	resolved, err := r.Resolve(encObj)
	if err != nil {
		return fmt.Errorf("failed to resolve /Encrypt: %w", err)
	}
	enc, ok := resolved.(core.Dict)
	if !ok {
		return fmt.Errorf("%w: /Encrypt is %T", crypt.ErrUnsupported, resolved)
	}

	var id []byte
	if ids, ok := r.trailer.GetArray("ID"); ok && len(ids) > 0 {
		if s, ok := ids[0].(core.String); ok {
			id = []byte(s)
		}
	}
	dec, err := crypt.New(enc, id)
	if err != nil {
		return err
	}
	r.decrypter = dec
	return nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Encrypted reports whether the document uses the standard security handler.
func (r *Reader) Encrypted() bool {
	return r.decrypter != nil
}

// Reconstructed reports whether the xref table had to be rebuilt.
func (r *Reader) Reconstructed() bool {
	return r.reconstructed
}

// XRefTable returns the cross-reference table
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// GetObject loads an object by number. Free or unknown objects are null.
// Uses caching to avoid re-reading objects.
func (r *Reader) GetObject(objNum int) (core.Object, error) {
	if obj, ok := r.objCache[objNum]; ok {
		return obj, nil
	}
	if r.loading[objNum] {
		return nil, fmt.Errorf("circular reference while loading object %d", objNum)
	}
	entry, ok := r.xrefTable.Get(objNum)
	if !ok || !entry.InUse() {
		return core.Null{}, nil
	}

	r.loading[objNum] = true
	defer delete(r.loading, objNum)

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefEntryCompressed:
		obj, err = r.loadCompressed(objNum, entry)
	default:
		obj, err = r.parseUncompressed(objNum, entry)
		if err == nil && r.decrypter != nil && objNum != r.encryptObj {
			ref := core.IndirectRef{Number: objNum, Generation: entry.Generation}
			obj, err = r.decryptObject(ref, obj)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load object %d: %w", objNum, err)
	}

	r.objCache[objNum] = obj
	return obj, nil
}

// parseUncompressed parses the indirect object at the entry's offset. Files
// with junk before the header often record offsets relative to the header,
// so that position is tried as well.
func (r *Reader) parseUncompressed(objNum int, entry *core.XRefEntry) (core.Object, error) {
	offsets := []int64{entry.Offset}
	if r.headerOffset > 0 {
		offsets = append(offsets, entry.Offset+int64(r.headerOffset))
	}
	var lastErr error
	for _, off := range offsets {
		if off < 0 || off >= int64(len(r.data)) {
			lastErr = fmt.Errorf("offset %d out of range", off)
			continue
		}
		parser := core.NewParserAt(r.data, int(off))
		parser.SetReferenceResolver(r)
		indObj, err := parser.ParseIndirectObject()
		if err != nil {
			lastErr = err
			continue
		}
		if indObj.Ref.Number != objNum {
			lastErr = fmt.Errorf("object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
			continue
		}
		return indObj.Object, nil
	}
	return nil, lastErr
}

func (r *Reader) loadCompressed(objNum int, entry *core.XRefEntry) (core.Object, error) {
	stm, err := r.objectStream(entry.StreamNumber)
	if err != nil {
		return nil, err
	}
	obj, num, err := stm.GetObjectByIndex(entry.StreamIndex)
	if err == nil && num == objNum {
		return obj, nil
	}
	obj, _, err = stm.GetObjectByNumber(objNum)
	return obj, err
}

func (r *Reader) objectStream(num int) (*core.ObjectStream, error) {
	if stm, ok := r.objStreams[num]; ok {
		return stm, nil
	}
	obj, err := r.GetObject(num)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %T", num, obj)
	}
	stm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	r.objStreams[num] = stm
	return stm, nil
}

// decryptObject decrypts the strings and stream data of an object loaded
// from the file body. Objects inside object streams were decrypted along
// with their container.
func (r *Reader) decryptObject(ref core.IndirectRef, obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.String:
		plain, err := r.decrypter.DecryptString(ref, []byte(v))
		if err != nil {
			return nil, err
		}
		return core.String(plain), nil
	case core.Array:
		for i, elem := range v {
			d, err := r.decryptObject(ref, elem)
			if err != nil {
				return nil, err
			}
			v[i] = d
		}
		return v, nil
	case core.Dict:
		for key, val := range v {
			d, err := r.decryptObject(ref, val)
			if err != nil {
				return nil, err
			}
			v[key] = d
		}
		return v, nil
	case *core.Stream:
		if typ, _ := v.Dict.GetName("Type"); typ == "XRef" {
			return v, nil
		}
		if _, err := r.decryptObject(ref, v.Dict); err != nil {
			return nil, err
		}
		if hasCryptFilter(v.Dict) {
			return v, nil
		}
		plain, err := r.decrypter.DecryptStream(ref, v.Data)
		if err != nil {
			return nil, err
		}
		v.Data = plain
		return v, nil
	}
	return obj, nil
}

// hasCryptFilter reports whether the stream names its own (Identity) crypt
// filter, which overrides the document default.
func hasCryptFilter(dict core.Dict) bool {
	switch f := dict.Get("Filter").(type) {
	case core.Name:
		return f == "Crypt"
	case core.Array:
		for _, e := range f {
			if n, ok := e.(core.Name); ok && n == "Crypt" {
				return true
			}
		}
	}
	return false
}

// ResolveReference resolves an indirect reference
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve resolves an object if it's an indirect reference, otherwise
// returns it as-is. A nil object resolves to nil.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// Catalog returns the document catalog (root object)
func (r *Reader) Catalog() (core.Dict, error) {
	rootObj := r.trailer.Get("Root")
	if rootObj == nil {
		return nil, fmt.Errorf("trailer missing /Root entry")
	}
	obj, err := r.Resolve(rootObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is not a dictionary: %T", obj)
	}
	return catalog, nil
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	if err := r.ensurePageTree(); err != nil {
		return 0, err
	}
	return r.pageTree.Count()
}

// GetPage returns the page at the given index (0-based)
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	if err := r.ensurePageTree(); err != nil {
		return nil, err
	}
	return r.pageTree.GetPage(index)
}

func (r *Reader) ensurePageTree() error {
	if r.pageTree != nil {
		return nil
	}
	catalog, err := r.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	pagesDict, err := pages.NewCatalog(catalog, r).Pages()
	if err != nil {
		return err
	}
	r.pageTree = pages.NewPageTree(pagesDict, r)
	return nil
}
