package graphicsstate

import (
	"math"
	"testing"

	"github.com/tsawler/pdfthumb/model"
)

func signedArea(poly []model.Point) float64 {
	a := 0.0
	for i := range poly {
		p, q := poly[i], poly[(i+1)%len(poly)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

func polyBounds(polys [][]model.Point) (minX, minY, maxX, maxY float64) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, poly := range polys {
		for _, p := range poly {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	return
}

func line(a, b model.Point) []Subpath {
	return []Subpath{{Points: []model.Point{a, b}}}
}

func TestStrokeButtLine(t *testing.T) {
	polys := StrokeOutline(line(model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}), StrokeStyle{Width: 2})
	if len(polys) != 1 {
		t.Fatalf("got %d polygons, want 1", len(polys))
	}
	if a := signedArea(polys[0]); !approx(a, 20) {
		t.Errorf("area = %f, want 20 (counter-clockwise)", a)
	}
	minX, minY, maxX, maxY := polyBounds(polys)
	if !approx(minX, 0) || !approx(maxX, 10) || !approx(minY, -1) || !approx(maxY, 1) {
		t.Errorf("bounds = (%f %f %f %f)", minX, minY, maxX, maxY)
	}
}

func TestStrokeSquareCap(t *testing.T) {
	polys := StrokeOutline(line(model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}), StrokeStyle{Width: 2, Cap: SquareCap})
	minX, _, maxX, _ := polyBounds(polys)
	if !approx(minX, -1) || !approx(maxX, 11) {
		t.Errorf("square caps should extend by half the width: x in [%f, %f]", minX, maxX)
	}
}

func TestStrokeRoundCapDot(t *testing.T) {
	dot := []Subpath{{Points: []model.Point{{X: 5, Y: 5}}}}
	if polys := StrokeOutline(dot, StrokeStyle{Width: 4}); len(polys) != 0 {
		t.Errorf("butt-capped dot produced %d polygons", len(polys))
	}
	polys := StrokeOutline(dot, StrokeStyle{Width: 4, Cap: RoundCap})
	if len(polys) != 1 {
		t.Fatalf("round-capped dot produced %d polygons, want 1", len(polys))
	}
	minX, _, maxX, _ := polyBounds(polys)
	if !approx(minX, 3) || !approx(maxX, 7) {
		t.Errorf("dot spans x [%f, %f], want [3, 7]", minX, maxX)
	}
}

func TestStrokeMiterJoin(t *testing.T) {
	corner := []Subpath{{Points: []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}}

	polys := StrokeOutline(corner, StrokeStyle{Width: 2, Join: MiterJoin, MiterLimit: 10})
	_, minY, maxX, _ := polyBounds(polys)
	if !approx(maxX, 11) || !approx(minY, -1) {
		t.Errorf("miter corner reaches (%f, %f), want (11, -1)", maxX, minY)
	}

	// A tiny limit turns the miter into a bevel, which stays inside the tip.
	polys = StrokeOutline(corner, StrokeStyle{Width: 2, Join: MiterJoin, MiterLimit: 1})
	for _, poly := range polys {
		for _, p := range poly {
			if approx(p.X, 11) && approx(p.Y, -1) {
				t.Errorf("miter tip present despite limit: %v", poly)
			}
		}
	}
}

func TestStrokeClosedSubpath(t *testing.T) {
	p := NewPath()
	p.Rectangle(0, 0, 10, 10)
	polys := StrokeOutline(p.Flatten(0.1), StrokeStyle{Width: 2, Join: MiterJoin, MiterLimit: 10})

	// Four sides and four joins.
	if len(polys) != 8 {
		t.Errorf("got %d polygons, want 8", len(polys))
	}
	for i, poly := range polys {
		if signedArea(poly) < 0 {
			t.Errorf("polygon %d is clockwise", i)
		}
	}
	minX, minY, maxX, maxY := polyBounds(polys)
	if !approx(minX, -1) || !approx(minY, -1) || !approx(maxX, 11) || !approx(maxY, 11) {
		t.Errorf("bounds = (%f %f %f %f), want (-1 -1 11 11)", minX, minY, maxX, maxY)
	}
}

func TestStrokeDash(t *testing.T) {
	subs := applyDash(line(model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}), []float64{2, 3}, 0)
	// On at [0,2], [5,7]; off elsewhere.
	if len(subs) != 2 {
		t.Fatalf("got %d dashes, want 2: %+v", len(subs), subs)
	}
	if subs[1].Points[0].X != 5 || subs[1].Points[len(subs[1].Points)-1].X != 7 {
		t.Errorf("second dash = %+v, want x 5..7", subs[1])
	}

	phased := applyDash(line(model.Point{X: 0, Y: 0}, model.Point{X: 10, Y: 0}), []float64{2, 3}, 1)
	if len(phased) == 0 || !approx(phased[0].Points[len(phased[0].Points)-1].X, 1) {
		t.Errorf("phase 1 first dash = %+v, want to end at x=1", phased)
	}
}

func TestStrokeZeroWidth(t *testing.T) {
	if polys := StrokeOutline(line(model.Point{}, model.Point{X: 1}), StrokeStyle{}); polys != nil {
		t.Error("zero width should produce nothing; callers handle hairlines")
	}
}
