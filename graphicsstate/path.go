package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfthumb/model"
)

// PathSegmentType defines the type of path segment
type PathSegmentType int

const (
	// PathMoveTo starts a new subpath
	PathMoveTo PathSegmentType = iota
	// PathLineTo draws a line to a point
	PathLineTo
	// PathCurveTo draws a cubic Bézier curve
	PathCurveTo
	// PathClosePath closes the current subpath
	PathClosePath
)

// PathSegment represents a single segment of a path
type PathSegment struct {
	Type PathSegmentType

	// For MoveTo and LineTo: single point
	// For CurveTo: control point 1, control point 2, end point
	Points []model.Point
}

// Path represents a graphics path being constructed
type Path struct {
	// Segments contains all the path segments
	Segments []PathSegment

	// CurrentPoint is the current point in user space
	CurrentPoint model.Point

	// SubpathStart is the start of the current subpath (for closepath)
	SubpathStart model.Point

	// HasCurrentPoint indicates if a current point has been set
	HasCurrentPoint bool
}

// NewPath creates a new empty path
func NewPath() *Path {
	return &Path{
		Segments: make([]PathSegment, 0),
	}
}

// MoveTo starts a new subpath at the specified point (m operator)
func (p *Path) MoveTo(x, y float64) {
	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathMoveTo,
		Points: []model.Point{pt},
	})
	p.CurrentPoint = pt
	p.SubpathStart = pt
	p.HasCurrentPoint = true
}

// LineTo appends a line segment from current point to (x, y) (l operator)
func (p *Path) LineTo(x, y float64) {
	if !p.HasCurrentPoint {
		// Treat as moveto if no current point
		p.MoveTo(x, y)
		return
	}

	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathLineTo,
		Points: []model.Point{pt},
	})
	p.CurrentPoint = pt
}

// CurveTo appends a cubic Bézier curve (c operator)
// Control points (x1, y1) and (x2, y2), end point (x3, y3)
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x1, y1)
	}

	p.Segments = append(p.Segments, PathSegment{
		Type: PathCurveTo,
		Points: []model.Point{
			{X: x1, Y: y1},
			{X: x2, Y: y2},
			{X: x3, Y: y3},
		},
	})
	p.CurrentPoint = model.Point{X: x3, Y: y3}
}

// CurveToV appends a cubic Bézier curve with first control point = current point (v operator)
func (p *Path) CurveToV(x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(p.CurrentPoint.X, p.CurrentPoint.Y, x2, y2, x3, y3)
}

// CurveToY appends a cubic Bézier curve with second control point = end point (y operator)
func (p *Path) CurveToY(x1, y1, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(x1, y1, x3, y3, x3, y3)
}

// ClosePath closes the current subpath (h operator)
func (p *Path) ClosePath() {
	if !p.HasCurrentPoint {
		return
	}

	p.Segments = append(p.Segments, PathSegment{
		Type: PathClosePath,
	})

	// Move current point back to subpath start
	p.CurrentPoint = p.SubpathStart
}

// Rectangle appends a rectangle as a complete subpath (re operator)
func (p *Path) Rectangle(x, y, width, height float64) {
	p.MoveTo(x, y)
	p.LineTo(x+width, y)
	p.LineTo(x+width, y+height)
	p.LineTo(x, y+height)
	p.ClosePath()
}

// Clear resets the path
func (p *Path) Clear() {
	p.Segments = p.Segments[:0]
	p.HasCurrentPoint = false
}

// IsEmpty returns true if the path has no segments
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// Transform returns a copy of the path with every point mapped through m.
func (p *Path) Transform(m model.Matrix) *Path {
	out := &Path{Segments: make([]PathSegment, len(p.Segments))}
	for i, seg := range p.Segments {
		pts := make([]model.Point, len(seg.Points))
		for j, pt := range seg.Points {
			pts[j] = m.Transform(pt)
		}
		out.Segments[i] = PathSegment{Type: seg.Type, Points: pts}
	}
	out.CurrentPoint = m.Transform(p.CurrentPoint)
	out.SubpathStart = m.Transform(p.SubpathStart)
	out.HasCurrentPoint = p.HasCurrentPoint
	return out
}

// Subpath is a flattened subpath.
type Subpath struct {
	Points []model.Point
	Closed bool
}

// Flatten converts curves to line segments whose deviation from the curve
// is at most tolerance.
func (p *Path) Flatten(tolerance float64) []Subpath {
	if tolerance <= 0 {
		tolerance = 0.1
	}
	var subs []Subpath
	var cur *Subpath
	var last model.Point
	for _, seg := range p.Segments {
		switch seg.Type {
		case PathMoveTo:
			subs = append(subs, Subpath{Points: []model.Point{seg.Points[0]}})
			cur = &subs[len(subs)-1]
			last = seg.Points[0]
		case PathLineTo:
			if cur == nil {
				subs = append(subs, Subpath{Points: []model.Point{last}})
				cur = &subs[len(subs)-1]
			}
			cur.Points = append(cur.Points, seg.Points[0])
			last = seg.Points[0]
		case PathCurveTo:
			if cur == nil {
				subs = append(subs, Subpath{Points: []model.Point{last}})
				cur = &subs[len(subs)-1]
			}
			cur.Points = flattenCubic(cur.Points, last, seg.Points[0], seg.Points[1], seg.Points[2], tolerance)
			last = seg.Points[2]
		case PathClosePath:
			if cur != nil {
				cur.Closed = true
				last = cur.Points[0]
				// Drawing may continue from the start point of a closed subpath.
				subs = append(subs, Subpath{Points: []model.Point{last}})
				cur = &subs[len(subs)-1]
			}
		}
	}
	out := subs[:0]
	for _, s := range subs {
		if len(s.Points) > 1 || s.Closed {
			out = append(out, s)
		}
	}
	return out
}

// flattenCubic appends points approximating the cubic Bézier p0..p3,
// excluding p0. The segment count follows from the control polygon size.
func flattenCubic(dst []model.Point, p0, p1, p2, p3 model.Point, tolerance float64) []model.Point {
	dd := math.Max(
		math.Hypot(p0.X-2*p1.X+p2.X, p0.Y-2*p1.Y+p2.Y),
		math.Hypot(p1.X-2*p2.X+p3.X, p1.Y-2*p2.Y+p3.Y),
	)
	n := int(math.Ceil(math.Sqrt(0.75 * dd / tolerance)))
	if n < 1 {
		n = 1
	}
	if n > 500 {
		n = 500
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		dst = append(dst, model.Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return dst
}

// Bounds returns the bounding box of the path's points, control points
// included.
func (p *Path) Bounds() model.BBox {
	var pts []model.Point
	for _, seg := range p.Segments {
		pts = append(pts, seg.Points...)
	}
	if len(pts) == 0 {
		return model.BBox{}
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, pt := range pts[1:] {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}
	return model.NewBBox(minX, minY, maxX-minX, maxY-minY)
}

// AxisAlignedRect reports whether the path is a single axis-aligned
// rectangle and returns it.
func (p *Path) AxisAlignedRect() (model.BBox, bool) {
	subs := p.Flatten(1)
	if len(subs) != 1 {
		return model.BBox{}, false
	}
	pts := subs[0].Points
	if len(pts) == 5 && pts[4] == pts[0] {
		pts = pts[:4]
	}
	if len(pts) != 4 {
		return model.BBox{}, false
	}
	for i := 0; i < 4; i++ {
		a, b := pts[i], pts[(i+1)%4]
		if a.X != b.X && a.Y != b.Y {
			return model.BBox{}, false
		}
	}
	box := model.NewBBoxFromPoints(pts[0], pts[2])
	return box, true
}
