package raster

import (
	"errors"
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/model"
	"github.com/tsawler/pdfthumb/reader"
)

// drawImage paints an image XObject or inline image into the unit square
// of user space.
func (in *interpreter) drawImage(stream *core.Stream) error {
	img, err := reader.DecodeImage(stream, in.scope().resources, in.res)
	if errors.Is(err, reader.ErrUnsupportedImage) {
		return nil
	}
	if err != nil {
		return err
	}

	w, h := float64(img.Width), float64(img.Height)
	// Image space has its origin at the top-left pixel.
	m := model.Matrix{1 / w, 0, 0, -1 / h, 0, 1}.Multiply(in.gs.CTM)
	if math.Abs(m.Determinant()) < 1e-9 {
		return nil
	}

	alpha := in.gs.FillAlpha
	if alpha <= 0 {
		return nil
	}
	var src image.Image
	var srcMask image.Image
	if img.Stencil != nil {
		c := in.solidColor(in.gs.FillSpace, in.gs.FillComps)
		src = image.NewUniform(c)
		srcMask = scaledMask(img.Stencil, alpha)
	} else {
		src = img.RGBA
		if alpha < 1 {
			srcMask = image.NewUniform(color.Alpha{A: uint8(math.Round(clampUnit(alpha) * 255))})
		}
	}

	// Images much larger than their footprint are reduced first so the
	// transform samples a properly filtered source.
	tw := math.Ceil(math.Hypot(m[0], m[1]) * w)
	th := math.Ceil(math.Hypot(m[2], m[3]) * h)
	if img.Stencil == nil && (w > 2*tw || h > 2*th) {
		nw, nh := int(math.Max(math.Min(tw, w), 1)), int(math.Max(math.Min(th, h), 1))
		small := image.NewNRGBA(image.Rect(0, 0, nw, nh))
		xdraw.BiLinear.Scale(small, small.Bounds(), img.RGBA, img.RGBA.Bounds(), xdraw.Src, nil)
		m = model.Scale(w/float64(nw), h/float64(nh)).Multiply(m)
		src = small
		w, h = float64(nw), float64(nh)
	}

	opts := &xdraw.Options{}
	if in.gs.Clip != nil {
		opts.DstMask = in.gs.Clip
	}
	if srcMask != nil {
		opts.SrcMask = srcMask
	}
	interp := xdraw.Interpolator(xdraw.ApproxBiLinear)
	if !img.Interpolate && (tw > 4*w || th > 4*h) {
		// Upscaled images without /Interpolate keep hard pixel edges.
		interp = xdraw.NearestNeighbor
	}
	s2d := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
	interp.Transform(in.cv.img, s2d, src, image.Rect(0, 0, int(w), int(h)), xdraw.Over, opts)
	return nil
}

// scaledMask returns mask with every value scaled by alpha.
func scaledMask(mask *image.Alpha, alpha float64) *image.Alpha {
	if alpha >= 1 {
		return mask
	}
	a := uint32(math.Round(clampUnit(alpha) * 255))
	out := image.NewAlpha(mask.Rect)
	for i, v := range mask.Pix {
		out.Pix[i] = uint8(uint32(v) * a / 255)
	}
	return out
}
