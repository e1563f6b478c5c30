package raster

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Fit scales img to fit inside a w x h image without changing its aspect
// ratio and centres it on bg. The result is always exactly w x h.
func Fit(img image.Image, w, h int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg != nil {
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, xdraw.Src)
	}
	sb := img.Bounds()
	if sb.Empty() || w <= 0 || h <= 0 {
		return dst
	}

	scale := math.Min(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	fw := min(w, max(1, int(math.Round(float64(sb.Dx())*scale))))
	fh := min(h, max(1, int(math.Round(float64(sb.Dy())*scale))))
	x0 := (w - fw) / 2
	y0 := (h - fh) / 2
	r := image.Rect(x0, y0, x0+fw, y0+fh)

	if fw == sb.Dx() && fh == sb.Dy() {
		xdraw.Draw(dst, r, img, sb.Min, xdraw.Over)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, r, img, sb, xdraw.Over, nil)
	return dst
}
