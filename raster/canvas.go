package raster

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/tsawler/pdfthumb/model"
)

// maxCoord keeps runaway coordinates from overflowing the rasterizer.
const maxCoord = 1 << 20

// canvas is a device-space drawing surface.
type canvas struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

// newCanvas returns a w x h canvas filled with bg, or transparent when bg
// is nil.
func newCanvas(w, h int, bg color.Color) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg != nil {
		xdraw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
	}
	return &canvas{img: img, z: vector.NewRasterizer(0, 0)}
}

func (c *canvas) bounds() image.Rectangle { return c.img.Bounds() }

// coverage is an antialiased mask over part of the canvas. Mask pixel
// (0, 0) sits at canvas pixel Min.
type coverage struct {
	mask *image.Alpha
	min  image.Point
}

func (cv coverage) rect() image.Rectangle {
	return cv.mask.Bounds().Add(cv.min)
}

// cover rasterizes device-space polygons. With evenOdd each polygon is
// rasterized alone and combined by parity; otherwise the nonzero union is
// taken. ok is false when nothing lands on the canvas.
func (c *canvas) cover(polys [][]model.Point, evenOdd bool) (coverage, bool) {
	polys = sanitize(polys)
	r, ok := polyBounds(polys)
	if !ok {
		return coverage{}, false
	}
	r = r.Intersect(c.bounds())
	if r.Empty() {
		return coverage{}, false
	}
	cv := coverage{mask: image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy())), min: r.Min}

	if !evenOdd {
		c.rasterize(cv.mask, polys, r.Min)
		return cv, true
	}
	tmp := image.NewAlpha(cv.mask.Bounds())
	for _, poly := range polys {
		for i := range tmp.Pix {
			tmp.Pix[i] = 0
		}
		c.rasterize(tmp, [][]model.Point{poly}, r.Min)
		for i, a := range tmp.Pix {
			if a == 0 {
				continue
			}
			// Fuzzy exclusive or: exact for fully covered pixels.
			m := uint32(cv.mask.Pix[i])
			v := uint32(a)
			cv.mask.Pix[i] = uint8(m + v - 2*m*v/255)
		}
	}
	return cv, true
}

func (c *canvas) rasterize(dst *image.Alpha, polys [][]model.Point, off image.Point) {
	b := dst.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.DrawOp = xdraw.Src
	ox, oy := float64(off.X), float64(off.Y)
	for _, poly := range polys {
		if len(poly) < 2 {
			continue
		}
		c.z.MoveTo(float32(poly[0].X-ox), float32(poly[0].Y-oy))
		for _, p := range poly[1:] {
			c.z.LineTo(float32(p.X-ox), float32(p.Y-oy))
		}
		c.z.ClosePath()
	}
	c.z.Draw(dst, b, image.Opaque, image.Point{})
}

func sanitize(polys [][]model.Point) [][]model.Point {
	out := polys[:0:0]
	for _, poly := range polys {
		ok := len(poly) >= 2
		for _, p := range poly {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.Abs(p.X) > maxCoord || math.Abs(p.Y) > maxCoord {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, poly)
		}
	}
	return out
}

func polyBounds(polys [][]model.Point) (image.Rectangle, bool) {
	first := true
	var minX, minY, maxX, maxY float64
	for _, poly := range polys {
		for _, p := range poly {
			if first {
				minX, minY, maxX, maxY = p.X, p.Y, p.X, p.Y
				first = false
				continue
			}
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if first {
		return image.Rectangle{}, false
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1), true
}

// paint composites src through cv, scaled by alpha and limited by clip.
// cv's mask is consumed.
func (c *canvas) paint(cv coverage, src image.Image, alpha float64, clip *image.Alpha) {
	if alpha <= 0 {
		return
	}
	a := uint32(math.Round(math.Min(alpha, 1) * 255))
	m := cv.mask
	b := m.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+b.Dx()]
		for x, v := range row {
			if v == 0 {
				continue
			}
			k := uint32(v) * a / 255
			if clip != nil {
				k = k * uint32(clip.Pix[clip.PixOffset(x+cv.min.X, y+cv.min.Y)]) / 255
			}
			row[x] = uint8(k)
		}
	}
	r := cv.rect()
	xdraw.DrawMask(c.img, r, src, r.Min, m, image.Point{}, xdraw.Over)
}

// intersectClip returns a full-canvas mask that is old limited to cv.
func (c *canvas) intersectClip(old *image.Alpha, cv coverage, ok bool) *image.Alpha {
	clip := image.NewAlpha(c.bounds())
	if !ok {
		return clip
	}
	r := cv.rect()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := uint32(cv.mask.Pix[cv.mask.PixOffset(x-r.Min.X, y-r.Min.Y)])
			if old != nil {
				v = v * uint32(old.Pix[old.PixOffset(x, y)]) / 255
			}
			clip.Pix[clip.PixOffset(x, y)] = uint8(v)
		}
	}
	return clip
}

// clipBounds is the area of the canvas clip leaves paintable.
func (c *canvas) clipBounds(clip *image.Alpha) image.Rectangle {
	if clip == nil {
		return c.bounds()
	}
	minX, minY, maxX, maxY := math.MaxInt, math.MaxInt, -1, -1
	b := clip.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if clip.Pix[clip.PixOffset(x, y)] == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// rectCoverage is a fully opaque coverage over r.
func rectCoverage(r image.Rectangle) coverage {
	m := image.NewAlpha(image.Rect(0, 0, r.Dx(), r.Dy()))
	for i := range m.Pix {
		m.Pix[i] = 255
	}
	return coverage{mask: m, min: r.Min}
}
