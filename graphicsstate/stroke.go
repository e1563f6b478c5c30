package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfthumb/model"
)

// Line cap styles (J operator).
const (
	ButtCap = iota
	RoundCap
	SquareCap
)

// Line join styles (j operator).
const (
	MiterJoin = iota
	RoundJoin
	BevelJoin
)

// StrokeStyle holds the line attributes used to outline a path.
type StrokeStyle struct {
	Width      float64
	Cap        int
	Join       int
	MiterLimit float64
	Dash       []float64
	DashPhase  float64
}

// StrokeOutline converts flattened subpaths into polygons whose nonzero
// union is the stroked area. Every polygon is wound counter-clockwise so
// overlapping pieces never cancel out.
func StrokeOutline(subs []Subpath, style StrokeStyle) [][]model.Point {
	hw := style.Width / 2
	if hw <= 0 {
		return nil
	}
	if len(style.Dash) > 0 {
		subs = applyDash(subs, style.Dash, style.DashPhase)
	}

	var polys [][]model.Point
	for _, sp := range subs {
		pts := dedupe(sp.Points)
		if len(pts) == 1 {
			// A zero-length subpath only shows with round or square caps.
			switch style.Cap {
			case RoundCap:
				polys = append(polys, circle(pts[0], hw))
			case SquareCap:
				c := pts[0]
				polys = append(polys, []model.Point{
					{X: c.X - hw, Y: c.Y - hw}, {X: c.X + hw, Y: c.Y - hw},
					{X: c.X + hw, Y: c.Y + hw}, {X: c.X - hw, Y: c.Y + hw},
				})
			}
			continue
		}
		closed := sp.Closed && len(pts) > 2
		if closed && pts[len(pts)-1] == pts[0] {
			pts = pts[:len(pts)-1]
		}

		n := len(pts)
		segs := n - 1
		if closed {
			segs = n
		}
		for i := 0; i < segs; i++ {
			a, b := pts[i], pts[(i+1)%n]
			startExt, endExt := 0.0, 0.0
			if !closed && style.Cap == SquareCap {
				if i == 0 {
					startExt = hw
				}
				if i == segs-1 {
					endExt = hw
				}
			}
			polys = append(polys, ccw(segmentQuad(a, b, hw, startExt, endExt)))
		}

		// Joins at interior vertices (every vertex when closed).
		for i := 0; i < n; i++ {
			if !closed && (i == 0 || i == n-1) {
				continue
			}
			prev, v, next := pts[(i-1+n)%n], pts[i], pts[(i+1)%n]
			if j := join(prev, v, next, hw, style); j != nil {
				polys = append(polys, ccw(j))
			}
		}

		if !closed && style.Cap == RoundCap {
			polys = append(polys, circle(pts[0], hw), circle(pts[n-1], hw))
		}
	}
	return polys
}

func dedupe(pts []model.Point) []model.Point {
	out := make([]model.Point, 0, len(pts))
	for i, p := range pts {
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

func segmentQuad(a, b model.Point, hw, startExt, endExt float64) []model.Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	ux, uy := dx/l, dy/l
	nx, ny := -uy*hw, ux*hw
	a = model.Point{X: a.X - ux*startExt, Y: a.Y - uy*startExt}
	b = model.Point{X: b.X + ux*endExt, Y: b.Y + uy*endExt}
	return []model.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: a.X - nx, Y: a.Y - ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: b.X + nx, Y: b.Y + ny},
	}
}

// join returns the polygon filling the gap on the outside of the corner at v.
func join(prev, v, next model.Point, hw float64, style StrokeStyle) []model.Point {
	d0x, d0y := v.X-prev.X, v.Y-prev.Y
	d1x, d1y := next.X-v.X, next.Y-v.Y
	l0, l1 := math.Hypot(d0x, d0y), math.Hypot(d1x, d1y)
	if l0 == 0 || l1 == 0 {
		return nil
	}
	d0x, d0y, d1x, d1y = d0x/l0, d0y/l0, d1x/l1, d1y/l1
	cross := d0x*d1y - d0y*d1x
	if math.Abs(cross) < 1e-9 && d0x*d1x+d0y*d1y > 0 {
		return nil // straight continuation
	}

	if style.Join == RoundJoin {
		return circle(v, hw)
	}

	// Outer side is to the right of a left turn and vice versa.
	side := 1.0
	if cross > 0 {
		side = -1
	}
	p0 := model.Point{X: v.X - d0y*hw*side, Y: v.Y + d0x*hw*side}
	p1 := model.Point{X: v.X - d1y*hw*side, Y: v.Y + d1x*hw*side}

	if style.Join == MiterJoin {
		limit := style.MiterLimit
		if limit <= 0 {
			limit = 10
		}
		// The miter length over the line width is 1/sin(theta/2), where
		// theta is the angle between the segments.
		cosTheta := -(d0x*d1x + d0y*d1y)
		sinHalf := math.Sqrt(math.Max((1-cosTheta)/2, 0))
		denom := d0x*d1y - d0y*d1x
		if sinHalf > 0 && 1/sinHalf <= limit && math.Abs(denom) > 1e-9 {
			ex, ey := p1.X-p0.X, p1.Y-p0.Y
			t := (ex*d1y - ey*d1x) / denom
			tip := model.Point{X: p0.X + d0x*t, Y: p0.Y + d0y*t}
			return []model.Point{v, p0, tip, p1}
		}
	}
	return []model.Point{v, p0, p1}
}

func circle(c model.Point, r float64) []model.Point {
	n := int(math.Ceil(r * 2))
	if n < 8 {
		n = 8
	}
	if n > 64 {
		n = 64
	}
	pts := make([]model.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = model.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}

// ccw reverses poly if its signed area is negative.
func ccw(poly []model.Point) []model.Point {
	area := 0.0
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		area += a.X*b.Y - b.X*a.Y
	}
	if area < 0 {
		for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
			poly[i], poly[j] = poly[j], poly[i]
		}
	}
	return poly
}

// applyDash splits subpaths into the "on" pieces of the dash pattern.
func applyDash(subs []Subpath, dash []float64, phase float64) []Subpath {
	total := 0.0
	for _, d := range dash {
		if d < 0 {
			return subs
		}
		total += d
	}
	if total <= 0 {
		return subs
	}
	if len(dash)%2 == 1 {
		dash = append(append([]float64{}, dash...), dash...)
	}

	var out []Subpath
	for _, sp := range subs {
		pts := sp.Points
		if sp.Closed && len(pts) > 1 && pts[len(pts)-1] != pts[0] {
			pts = append(append([]model.Point{}, pts...), pts[0])
		}
		// Locate the phase within the pattern.
		idx := 0
		remain := dash[0]
		ph := math.Mod(phase, total)
		for ph > 0 {
			if ph >= remain {
				ph -= remain
				idx = (idx + 1) % len(dash)
				remain = dash[idx]
			} else {
				remain -= ph
				ph = 0
			}
		}
		on := idx%2 == 0
		var cur []model.Point
		if on {
			cur = []model.Point{pts[0]}
		}
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			segLen := math.Hypot(b.X-a.X, b.Y-a.Y)
			pos := 0.0
			for segLen-pos > remain {
				pos += remain
				t := pos / segLen
				p := model.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
				if on {
					cur = append(cur, p)
					out = append(out, Subpath{Points: cur})
					cur = nil
				} else {
					cur = []model.Point{p}
				}
				on = !on
				idx = (idx + 1) % len(dash)
				remain = dash[idx]
			}
			remain -= segLen - pos
			if on {
				cur = append(cur, b)
			}
		}
		if on && len(cur) > 0 {
			out = append(out, Subpath{Points: cur})
		}
	}
	return out
}
