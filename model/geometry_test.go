package model

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewBBoxFromPoints(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 Point
		want   BBox
	}{
		{"normal", Point{10, 20}, Point{50, 70}, BBox{10, 20, 40, 50}},
		{"reversed", Point{50, 70}, Point{10, 20}, BBox{10, 20, 40, 50}},
		{"degenerate", Point{10, 10}, Point{10, 10}, BBox{10, 10, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewBBoxFromPoints(tt.p1, tt.p2); got != tt.want {
				t.Errorf("NewBBoxFromPoints() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIntersection(t *testing.T) {
	media := NewBBox(0, 0, 612, 792)
	crop := NewBBox(-10, 100, 300, 1000)
	got := crop.Intersection(media)
	if want := NewBBox(0, 100, 290, 692); got != want {
		t.Errorf("Intersection = %+v, want %+v", got, want)
	}
	if NewBBox(0, 0, 10, 10).Intersection(NewBBox(20, 20, 5, 5)).IsValid() {
		t.Error("disjoint boxes should not intersect")
	}
}

func TestMultiplyOrder(t *testing.T) {
	// Scale then translate: (1,1) -> (2,2) -> (12,2).
	m := Scale(2, 2).Multiply(Translate(10, 0))
	p := m.Transform(Point{1, 1})
	if !near(p.X, 12) || !near(p.Y, 2) {
		t.Errorf("Transform = %+v, want {12 2}", p)
	}
}

func TestInvert(t *testing.T) {
	m := Matrix{0, 2, -3, 0, 5, 7}
	inv, ok := m.Invert()
	if !ok {
		t.Fatal("Invert reported a singular matrix")
	}
	if id := m.Multiply(inv); !id.IsIdentity() {
		for i := range id {
			if !near(id[i], Identity()[i]) {
				t.Fatalf("m * inv(m) = %v", id)
			}
		}
	}
	if _, ok := (Matrix{1, 2, 2, 4, 0, 0}).Invert(); ok {
		t.Error("singular matrix should not invert")
	}
}

func TestTransformBBox(t *testing.T) {
	// 90 degree rotation about the origin.
	rot := Matrix{0, 1, -1, 0, 0, 0}
	got := rot.TransformBBox(NewBBox(10, 20, 30, 40))
	want := NewBBox(-60, 10, 40, 30)
	if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.Width, want.Width) || !near(got.Height, want.Height) {
		t.Errorf("TransformBBox = %+v, want %+v", got, want)
	}
}
