package model

import "math"

// Point is a position in some coordinate space.
type Point struct {
	X, Y float64
}

// BBox is an axis-aligned rectangle with its origin at the lower left.
type BBox struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// NewBBox returns the box at (x, y) with the given size.
func NewBBox(x, y, width, height float64) BBox {
	return BBox{X: x, Y: y, Width: width, Height: height}
}

// NewBBoxFromPoints returns the box spanned by two opposite corners in any
// order, as found in a /MediaBox array.
func NewBBoxFromPoints(p1, p2 Point) BBox {
	return BBox{
		X:      math.Min(p1.X, p2.X),
		Y:      math.Min(p1.Y, p2.Y),
		Width:  math.Abs(p2.X - p1.X),
		Height: math.Abs(p2.Y - p1.Y),
	}
}

// Right is the x coordinate of the right edge.
func (b BBox) Right() float64 { return b.X + b.Width }

// Top is the y coordinate of the top edge.
func (b BBox) Top() float64 { return b.Y + b.Height }

// Intersection returns the overlap of b and other, or the zero box.
func (b BBox) Intersection(other BBox) BBox {
	x0 := math.Max(b.X, other.X)
	y0 := math.Max(b.Y, other.Y)
	x1 := math.Min(b.Right(), other.Right())
	y1 := math.Min(b.Top(), other.Top())
	if x1 < x0 || y1 < y0 {
		return BBox{}
	}
	return BBox{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// IsValid reports whether the box has positive area.
func (b BBox) IsValid() bool {
	return b.Width > 0 && b.Height > 0
}

// Matrix is an affine transform [a b c d e f]:
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// Scale returns a scaling by (sx, sy).
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Transform maps p through m.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Multiply returns the transform that applies m and then other.
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// IsIdentity reports whether m is exactly the identity.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// Determinant of the linear part.
func (m Matrix) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse transform; ok is false for a singular matrix.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Determinant()
	if math.Abs(det) < 1e-12 {
		return Matrix{}, false
	}
	a, b, c, d := m[3]/det, -m[1]/det, -m[2]/det, m[0]/det
	return Matrix{a, b, c, d, -(m[4]*a + m[5]*c), -(m[4]*b + m[5]*d)}, true
}

// TransformBBox returns the axis-aligned bounds of b after mapping its
// corners through m.
func (m Matrix) TransformBBox(b BBox) BBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4]Point{{b.X, b.Y}, {b.Right(), b.Y}, {b.X, b.Top()}, {b.Right(), b.Top()}} {
		q := m.Transform(p)
		minX, maxX = math.Min(minX, q.X), math.Max(maxX, q.X)
		minY, maxY = math.Min(minY, q.Y), math.Max(maxY, q.Y)
	}
	return NewBBox(minX, minY, maxX-minX, maxY-minY)
}
