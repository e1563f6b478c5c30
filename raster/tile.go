package raster

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/graphicsstate"
	"github.com/tsawler/pdfthumb/model"
)

// maxTiles bounds how many cells are drawn for one paint. Finer patterns
// are painted in the average colour of one cell.
const maxTiles = 1 << 14

// tile renders a tiling pattern over device rectangle r. m maps pattern
// space to the canvas. Uncoloured patterns are painted with comps in base.
func (in *interpreter) tile(stream *core.Stream, m model.Matrix, base graphicsstate.ColorSpace, comps []float64, r image.Rectangle) (image.Image, error) {
	if in.depth >= maxNesting {
		return nil, errors.New("pattern nested too deeply")
	}
	d := stream.Dict
	arr, _ := in.resolve(d.Get("BBox")).(core.Array)
	bb, ok := arr.Floats()
	if !ok || len(bb) != 4 {
		return nil, errors.New("pattern has no BBox")
	}
	bbox := model.NewBBox(math.Min(bb[0], bb[2]), math.Min(bb[1], bb[3]), math.Abs(bb[2]-bb[0]), math.Abs(bb[3]-bb[1]))
	xs, _ := core.Number(in.resolve(d.Get("XStep")))
	ys, _ := core.Number(in.resolve(d.Get("YStep")))
	xs, ys = math.Abs(xs), math.Abs(ys)
	if xs == 0 || ys == 0 || bbox.Width == 0 || bbox.Height == 0 {
		return nil, errors.New("degenerate pattern cell")
	}
	inv, ok := m.Invert()
	if !ok {
		return nil, errors.New("singular pattern matrix")
	}
	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	paintType, _ := d.GetInt("PaintType")
	resources := in.resolveDict(d.Get("Resources"))
	if resources == nil {
		resources = in.scope().resources
	}

	cell := &tiling{
		in:         in,
		data:       data,
		resources:  resources,
		bbox:       bbox,
		m:          m,
		uncoloured: paintType == 2,
		base:       base,
		comps:      comps,
	}
	if cell.base == nil {
		cell.base, cell.comps = graphicsstate.DeviceGray{}, []float64{0}
	}

	// Pattern-space area under r.
	area := inv.TransformBBox(model.NewBBox(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy())))
	i0 := int(math.Floor((area.X - (bbox.X + bbox.Width)) / xs))
	i1 := int(math.Ceil((area.X + area.Width - bbox.X) / xs))
	j0 := int(math.Floor((area.Y - (bbox.Y + bbox.Height)) / ys))
	j1 := int(math.Ceil((area.Y + area.Height - bbox.Y) / ys))

	if i1-i0 > maxTiles || j1-j0 > maxTiles || (i1-i0+1)*(j1-j0+1) > maxTiles {
		avg, ok := cell.average()
		if !ok {
			return nil, nil
		}
		return image.NewUniform(avg), nil
	}
	out := image.NewRGBA(r)
	for j := j0; j <= j1; j++ {
		for i := i0; i <= i1; i++ {
			if err := in.ctx.Err(); err != nil {
				return nil, err
			}
			tm := model.Translate(float64(i)*xs, float64(j)*ys).Multiply(m)
			cv, tr := cell.draw(tm, r)
			if cv == nil {
				continue
			}
			xdraw.Draw(out, tr, cv.img, image.Point{}, xdraw.Over)
		}
	}
	return out, nil
}

// tiling is one pattern cell ready to be drawn at lattice positions.
type tiling struct {
	in         *interpreter
	data       []byte
	resources  core.Dict
	bbox       model.BBox
	m          model.Matrix
	uncoloured bool
	base       graphicsstate.ColorSpace
	comps      []float64
}

// draw renders the cell placed by tm onto a canvas covering its device
// bounds within r.
func (t *tiling) draw(tm model.Matrix, r image.Rectangle) (*canvas, image.Rectangle) {
	db := tm.TransformBBox(t.bbox)
	tr := image.Rect(int(math.Floor(db.X)), int(math.Floor(db.Y)),
		int(math.Ceil(db.X+db.Width)), int(math.Ceil(db.Y+db.Height))).Intersect(r)
	if tr.Empty() {
		return nil, tr
	}
	cv := newCanvas(tr.Dx(), tr.Dy(), nil)
	c := t.in.child(cv)
	c.gs.CTM = tm.Multiply(model.Translate(-float64(tr.Min.X), -float64(tr.Min.Y)))
	if t.uncoloured {
		c.gs.SetFillColor(t.base, t.comps)
		c.gs.SetStrokeColor(t.base, t.comps)
		c.lockColor = true
	}
	c.clipToRect(t.bbox.X, t.bbox.Y, t.bbox.Width, t.bbox.Height)
	c.pushScope(t.resources, c.gs.CTM)
	if err := c.run(t.data); err != nil {
		c.log.Debug("pattern cell stopped early", slog.Any("error", err))
	}
	return cv, tr
}

// average renders one cell at device scale and returns its mean colour.
func (t *tiling) average() (color.RGBA, bool) {
	db := t.m.TransformBBox(t.bbox)
	r := image.Rect(int(math.Floor(db.X)), int(math.Floor(db.Y)), int(math.Ceil(db.X+db.Width)), int(math.Ceil(db.Y+db.Height)))
	cv, _ := t.draw(t.m, r)
	if cv == nil {
		return color.RGBA{}, false
	}
	var sum [4]uint64
	pix := cv.img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		for k := 0; k < 4; k++ {
			sum[k] += uint64(pix[i+k])
		}
	}
	n := uint64(len(pix) / 4)
	if n == 0 {
		return color.RGBA{}, false
	}
	return color.RGBA{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n), uint8(sum[3] / n)}, true
}
