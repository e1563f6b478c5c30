package pages

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/model"
)

// mockResolver is a map-backed ObjectResolver.
type mockResolver struct {
	objects map[int]core.Object
}

func newMockResolver() *mockResolver {
	return &mockResolver{objects: make(map[int]core.Object)}
}

func (m *mockResolver) AddObject(num int, obj core.Object) {
	m.objects[num] = obj
}

func (m *mockResolver) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return m.ResolveReference(ref)
	}
	return obj, nil
}

func (m *mockResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	obj, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return obj, nil
}

func ref(n int) core.IndirectRef { return core.IndirectRef{Number: n} }

// nestedTree builds root(2) -> mid(3) -> [page 4, page 5], with the media
// box and resources set on the root and rotation on the middle node.
func nestedTree() (*mockResolver, core.Dict) {
	r := newMockResolver()
	root := core.Dict{
		"Type":      core.Name("Pages"),
		"Kids":      core.Array{ref(3)},
		"Count":     core.Int(2),
		"MediaBox":  core.Array{core.Int(0), core.Int(0), core.Int(200), core.Int(100)},
		"Resources": core.Dict{"Font": core.Dict{}},
	}
	r.AddObject(2, root)
	r.AddObject(3, core.Dict{
		"Type":   core.Name("Pages"),
		"Kids":   core.Array{ref(4), ref(5)},
		"Parent": ref(2),
		"Rotate": core.Int(-90),
	})
	r.AddObject(4, core.Dict{"Type": core.Name("Page"), "Parent": ref(3), "Contents": ref(6)})
	r.AddObject(5, core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   ref(3),
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(10), core.Int(10)},
	})
	r.AddObject(6, &core.Stream{Dict: core.Dict{}, Data: []byte("0 0 m")})
	return r, root
}

func TestInheritedAttributes(t *testing.T) {
	r, root := nestedTree()
	tree := NewPageTree(root, r)

	page, err := tree.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) error: %v", err)
	}
	if page.Ref() != ref(4) {
		t.Errorf("Ref() = %v, want 4 0 R", page.Ref())
	}
	if got, want := page.MediaBox(), model.NewBBox(0, 0, 200, 100); got != want {
		t.Errorf("MediaBox() = %v, want %v", got, want)
	}
	if got := page.Rotate(); got != 270 {
		t.Errorf("Rotate() = %d, want 270", got)
	}
	if _, ok := page.Resources()["Font"]; !ok {
		t.Error("Resources() should inherit /Font from the root")
	}
	attrs := page.InheritedAttributes()
	for _, key := range []string{"MediaBox", "Resources", "Rotate"} {
		if !attrs.Has(key) {
			t.Errorf("InheritedAttributes() missing %s", key)
		}
	}

	second, err := tree.GetPage(1)
	if err != nil {
		t.Fatalf("GetPage(1) error: %v", err)
	}
	if got, want := second.MediaBox(), model.NewBBox(0, 0, 10, 10); got != want {
		t.Errorf("own MediaBox should win: got %v, want %v", got, want)
	}
}

func TestCountIgnoresWrongCountEntry(t *testing.T) {
	r, root := nestedTree()
	root["Count"] = core.Int(99)
	n, err := NewPageTree(root, r).Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestEmptyTree(t *testing.T) {
	r := newMockResolver()
	root := core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{}, "Count": core.Int(0)}
	_, err := NewPageTree(root, r).GetPage(0)
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("GetPage(0) on empty tree: got %v, want ErrNoPages", err)
	}
}

func TestCycleInKids(t *testing.T) {
	r := newMockResolver()
	root := core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(3)}}
	r.AddObject(2, root)
	r.AddObject(3, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{ref(3), ref(4)}})
	r.AddObject(4, core.Dict{"Type": core.Name("Page")})

	n, err := NewPageTree(root, r).Count()
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestMissingTypeAndUnresolvableKids(t *testing.T) {
	r := newMockResolver()
	root := core.Dict{"Kids": core.Array{ref(40), ref(4)}}
	r.AddObject(4, core.Dict{"Contents": ref(5)})

	page, err := NewPageTree(root, r).GetPage(0)
	if err != nil {
		t.Fatalf("GetPage(0) error: %v", err)
	}
	if page.Ref() != ref(4) {
		t.Errorf("Ref() = %v, want 4 0 R", page.Ref())
	}
	if got := page.MediaBox(); got != letter {
		t.Errorf("MediaBox() default = %v, want %v", got, letter)
	}
}

func TestCropBoxClippedToMediaBox(t *testing.T) {
	r := newMockResolver()
	page := NewPage(core.Dict{
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(100), core.Int(100)},
		"CropBox":  core.Array{core.Int(50), core.Int(-10), core.Int(150), core.Real(60.5)},
	}, r)
	want := model.NewBBox(50, 0, 50, 60.5)
	if got := page.CropBox(); got != want {
		t.Errorf("CropBox() = %v, want %v", got, want)
	}
}

func TestContentData(t *testing.T) {
	r, root := nestedTree()
	page, _ := NewPageTree(root, r).GetPage(0)
	data, err := page.ContentData()
	if err != nil {
		t.Fatalf("ContentData() error: %v", err)
	}
	if string(data) != "0 0 m\n" {
		t.Errorf("ContentData() = %q, want %q", data, "0 0 m\n")
	}
}
