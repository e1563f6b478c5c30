package reader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/tsawler/pdfthumb/core"
	"github.com/tsawler/pdfthumb/graphicsstate"
)

// ErrUnsupportedImage is returned for image codecs that are not decoded
// (JPXDecode, JBIG2Decode). Callers typically skip such images.
var ErrUnsupportedImage = errors.New("unsupported image encoding")

const (
	maxImageSide   = 1 << 15
	maxImagePixels = 1 << 26
)

// Image is a decoded image XObject or inline image.
type Image struct {
	Width  int
	Height int

	// RGBA holds the colour samples with any soft mask, explicit mask or
	// colour key applied as alpha. It is nil for stencil masks.
	RGBA *image.NRGBA

	// Stencil is set for /ImageMask images: painted pixels carry alpha 255
	// and take their colour from the current fill colour.
	Stencil *image.Alpha

	Interpolate bool
}

// DecodeImage decodes an image stream. resources is used to look up named
// colour spaces; res resolves indirect references inside the dictionary.
func DecodeImage(stream *core.Stream, resources core.Dict, res graphicsstate.Resolver) (*Image, error) {
	if res == nil {
		res = directResolver{}
	}
	d := stream.Dict
	w, err := intEntry(d, res, "Width")
	if err != nil {
		return nil, err
	}
	h, err := intEntry(d, res, "Height")
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 || w > maxImageSide || h > maxImageSide || w*h > maxImagePixels {
		return nil, fmt.Errorf("image dimensions %dx%d out of range", w, h)
	}

	img := &Image{Width: w, Height: h}
	if b, ok := resolveObj(res, d.Get("Interpolate")).(core.Bool); ok {
		img.Interpolate = bool(b)
	}

	data, codec, err := stream.DecodeImage()
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	switch codec {
	case "JPXDecode", "JBIG2Decode":
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, codec)
	}

	decode := floatsEntry(d, res, "Decode")

	if m, ok := resolveObj(res, d.Get("ImageMask")).(core.Bool); ok && bool(m) {
		if codec != "" {
			return nil, fmt.Errorf("%w: %s stencil mask", ErrUnsupportedImage, codec)
		}
		invert := len(decode) >= 2 && decode[0] > decode[1]
		img.Stencil = stencilMask(data, w, h, invert)
		return img, nil
	}

	if codec == "DCTDecode" {
		img.RGBA, err = decodeJPEG(data, w, h, decode)
		if err != nil {
			return nil, err
		}
	} else {
		cs, err := imageColorSpace(d, resources, res)
		if err != nil {
			return nil, err
		}
		bpc := 8
		if v, err := intEntry(d, res, "BitsPerComponent"); err == nil {
			bpc = v
		}
		switch bpc {
		case 1, 2, 4, 8, 16:
		default:
			return nil, fmt.Errorf("unsupported BitsPerComponent %d", bpc)
		}
		s := samples{data: data, w: w, h: h, bpc: bpc, n: cs.NumComponents()}
		if s.n < 1 {
			return nil, fmt.Errorf("colour space %s cannot be used for images", cs.Name())
		}
		if len(decode) < 2*s.n {
			decode = cs.DefaultDecode(bpc)
		}
		img.RGBA = s.toNRGBA(cs, decode)
		if key, ok := resolveObj(res, d.Get("Mask")).(core.Array); ok {
			s.applyColorKey(img.RGBA, key, res)
		}
	}

	if sm, ok := resolveObj(res, d.Get("SMask")).(*core.Stream); ok {
		if alpha, err := softMask(sm, res); err == nil {
			applyAlpha(img.RGBA, alpha)
		}
	} else if mk, ok := resolveObj(res, d.Get("Mask")).(*core.Stream); ok {
		if mask, err := DecodeImage(mk, resources, res); err == nil && mask.Stencil != nil {
			applyAlpha(img.RGBA, mask.Stencil)
		}
	}
	return img, nil
}

// DecodeImage decodes an image stream using the reader to resolve
// references.
func (r *Reader) DecodeImage(stream *core.Stream, resources core.Dict) (*Image, error) {
	return DecodeImage(stream, resources, r)
}

// directResolver is used for images that contain no indirect references.
type directResolver struct{}

func (directResolver) Resolve(obj core.Object) (core.Object, error) { return obj, nil }

func resolveObj(res graphicsstate.Resolver, obj core.Object) core.Object {
	if obj == nil {
		return obj
	}
	v, err := res.Resolve(obj)
	if err != nil {
		return nil
	}
	return v
}

func intEntry(d core.Dict, res graphicsstate.Resolver, key string) (int, error) {
	f, ok := core.Number(resolveObj(res, d.Get(key)))
	if !ok {
		return 0, fmt.Errorf("image missing /%s", key)
	}
	return int(f), nil
}

func floatsEntry(d core.Dict, res graphicsstate.Resolver, key string) []float64 {
	arr, ok := resolveObj(res, d.Get(key)).(core.Array)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, e := range arr {
		f, ok := core.Number(resolveObj(res, e))
		if !ok {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func imageColorSpace(d core.Dict, resources core.Dict, res graphicsstate.Resolver) (graphicsstate.ColorSpace, error) {
	obj := d.Get("ColorSpace")
	if obj == nil {
		// Only valid for JPX and masks; grey is the sensible reading.
		return graphicsstate.DeviceGray{}, nil
	}
	cs, err := graphicsstate.ParseColorSpace(obj, resources, res)
	if err != nil {
		return nil, fmt.Errorf("image colour space: %w", err)
	}
	return cs, nil
}

// samples walks packed component data. Rows start on byte boundaries.
type samples struct {
	data []byte
	w, h int
	bpc  int
	n    int
}

func (s samples) rowBytes() int {
	return (s.w*s.n*s.bpc + 7) / 8
}

// at returns the raw value of component c of pixel x on row y. Missing
// data reads as zero.
func (s samples) at(x, y, c int) int {
	bit := y*s.rowBytes()*8 + (x*s.n+c)*s.bpc
	i := bit / 8
	switch s.bpc {
	case 8:
		if i < len(s.data) {
			return int(s.data[i])
		}
	case 16:
		if i+1 < len(s.data) {
			return int(s.data[i])<<8 | int(s.data[i+1])
		}
	default:
		if i < len(s.data) {
			shift := 8 - s.bpc - bit%8
			return int(s.data[i]>>uint(shift)) & (1<<uint(s.bpc) - 1)
		}
	}
	return 0
}

func (s samples) toNRGBA(cs graphicsstate.ColorSpace, decode []float64) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, s.w, s.h))
	maxVal := float64(int(1)<<uint(s.bpc) - 1)

	// Single-component images go through a lookup table over all raw values.
	if s.n == 1 && s.bpc <= 8 {
		lut := make([]color.NRGBA, 1<<uint(s.bpc))
		for v := range lut {
			c := decode[0] + float64(v)*(decode[1]-decode[0])/maxVal
			lut[v] = graphicsstate.Color(cs, []float64{c}, 1)
		}
		for y := 0; y < s.h; y++ {
			for x := 0; x < s.w; x++ {
				dst.SetNRGBA(x, y, lut[s.at(x, y, 0)])
			}
		}
		return dst
	}

	comps := make([]float64, s.n)
	fast := s.bpc == 8 && isUnitDecode(decode)
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			if fast {
				if c, ok := deviceColor(cs, s, x, y); ok {
					dst.SetNRGBA(x, y, c)
					continue
				}
			}
			for c := 0; c < s.n; c++ {
				comps[c] = decode[2*c] + float64(s.at(x, y, c))*(decode[2*c+1]-decode[2*c])/maxVal
			}
			dst.SetNRGBA(x, y, graphicsstate.Color(cs, comps, 1))
		}
	}
	return dst
}

func isUnitDecode(decode []float64) bool {
	for i := 0; i+1 < len(decode); i += 2 {
		if decode[i] != 0 || decode[i+1] != 1 {
			return false
		}
	}
	return true
}

// deviceColor converts 8-bit RGB and CMYK samples without going through
// float components.
func deviceColor(cs graphicsstate.ColorSpace, s samples, x, y int) (color.NRGBA, bool) {
	switch cs.(type) {
	case graphicsstate.DeviceRGB:
		return color.NRGBA{R: uint8(s.at(x, y, 0)), G: uint8(s.at(x, y, 1)), B: uint8(s.at(x, y, 2)), A: 255}, true
	case graphicsstate.DeviceCMYK:
		r, g, b := color.CMYKToRGB(uint8(s.at(x, y, 0)), uint8(s.at(x, y, 1)), uint8(s.at(x, y, 2)), uint8(s.at(x, y, 3)))
		return color.NRGBA{R: r, G: g, B: b, A: 255}, true
	}
	return color.NRGBA{}, false
}

// applyColorKey clears alpha on pixels whose raw components all fall in the
// /Mask ranges.
func (s samples) applyColorKey(dst *image.NRGBA, key core.Array, res graphicsstate.Resolver) {
	if len(key) < 2*s.n {
		return
	}
	ranges := make([]int, 2*s.n)
	for i := range ranges {
		f, ok := core.Number(resolveObj(res, key[i]))
		if !ok {
			return
		}
		ranges[i] = int(f)
	}
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			masked := true
			for c := 0; c < s.n && masked; c++ {
				v := s.at(x, y, c)
				masked = v >= ranges[2*c] && v <= ranges[2*c+1]
			}
			if masked {
				dst.Pix[dst.PixOffset(x, y)+3] = 0
			}
		}
	}
}

// stencilMask turns 1-bit data into alpha. Sample 0 paints unless the
// decode array is inverted.
func stencilMask(data []byte, w, h int, invert bool) *image.Alpha {
	s := samples{data: data, w: w, h: h, bpc: 1, n: 1}
	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			painted := s.at(x, y, 0) == 0
			if invert {
				painted = !painted
			}
			if painted {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// softMask decodes an /SMask stream as DeviceGray luminosity.
func softMask(stream *core.Stream, res graphicsstate.Resolver) (*image.Alpha, error) {
	d := stream.Dict
	w, err := intEntry(d, res, "Width")
	if err != nil {
		return nil, err
	}
	h, err := intEntry(d, res, "Height")
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 || w > maxImageSide || h > maxImageSide || w*h > maxImagePixels {
		return nil, fmt.Errorf("soft mask dimensions %dx%d out of range", w, h)
	}
	data, codec, err := stream.DecodeImage()
	if err != nil {
		return nil, err
	}
	alpha := image.NewAlpha(image.Rect(0, 0, w, h))
	switch codec {
	case "":
	case "DCTDecode":
		src, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("soft mask: %w", err)
		}
		xdraw.Draw(alpha, alpha.Bounds(), grayAsAlpha{src}, src.Bounds().Min, xdraw.Src)
		return alpha, nil
	default:
		return nil, fmt.Errorf("%w: %s soft mask", ErrUnsupportedImage, codec)
	}

	bpc := 8
	if v, err := intEntry(d, res, "BitsPerComponent"); err == nil {
		bpc = v
	}
	s := samples{data: data, w: w, h: h, bpc: bpc, n: 1}
	decode := floatsEntry(d, res, "Decode")
	if len(decode) < 2 {
		decode = []float64{0, 1}
	}
	maxVal := float64(int(1)<<uint(bpc) - 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := decode[0] + float64(s.at(x, y, 0))*(decode[1]-decode[0])/maxVal
			alpha.Pix[y*alpha.Stride+x] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
		}
	}
	return alpha, nil
}

// grayAsAlpha exposes an image's luminance as its alpha channel.
type grayAsAlpha struct{ image.Image }

func (g grayAsAlpha) ColorModel() color.Model { return color.AlphaModel }

func (g grayAsAlpha) At(x, y int) color.Color {
	gray := color.GrayModel.Convert(g.Image.At(x, y)).(color.Gray)
	return color.Alpha{A: gray.Y}
}

// applyAlpha multiplies dst's alpha by mask, scaling the mask to dst's size
// when they differ.
func applyAlpha(dst *image.NRGBA, mask *image.Alpha) {
	if dst == nil || mask == nil {
		return
	}
	b := dst.Bounds()
	if !mask.Bounds().Size().Eq(b.Size()) {
		scaled := image.NewAlpha(b)
		xdraw.ApproxBiLinear.Scale(scaled, b, mask, mask.Bounds(), xdraw.Src, nil)
		mask = scaled
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := dst.PixOffset(b.Min.X+x, b.Min.Y+y) + 3
			dst.Pix[i] = uint8(uint16(dst.Pix[i]) * uint16(mask.Pix[y*mask.Stride+x]) / 255)
		}
	}
}

// decodeJPEG decodes DCT data. CMYK JPEGs are inverted when the image's
// /Decode array says so.
func decodeJPEG(data []byte, w, h int, decode []float64) (*image.NRGBA, error) {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("DCTDecode: %w", err)
	}
	if cm, ok := src.(*image.CMYK); ok && len(decode) >= 2 && decode[0] > decode[1] {
		for i := range cm.Pix {
			cm.Pix[i] = 255 - cm.Pix[i]
		}
	}
	sb := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	xdraw.Draw(dst, dst.Bounds(), src, sb.Min, xdraw.Src)
	if sb.Dx() != w || sb.Dy() != h {
		scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), dst, dst.Bounds(), xdraw.Src, nil)
		dst = scaled
	}
	return dst, nil
}
