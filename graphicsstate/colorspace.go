package graphicsstate

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/tsawler/pdfthumb/core"
)

// ColorSpace converts colour components to RGB. Components are in the
// space's natural range: [0, 1] for device spaces, an integer index for
// Indexed, L*a*b* values for Lab.
type ColorSpace interface {
	Name() string
	NumComponents() int
	RGB(comps []float64) (r, g, b float64)
	// InitialColor is the colour selected when the space is set with CS/cs.
	InitialColor() []float64
	// DefaultDecode is the image /Decode array used when none is given.
	DefaultDecode(bpc int) []float64
}

// Color converts comps to an 8-bit colour with the given alpha.
func Color(cs ColorSpace, comps []float64, alpha float64) color.NRGBA {
	r, g, b := cs.RGB(comps)
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: to8(alpha)}
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp(v, 0, 1) * 255))
}

func component(comps []float64, i int) float64 {
	if i < len(comps) {
		return comps[i]
	}
	return 0
}

func unitDecode(n int) []float64 {
	d := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		d[2*i+1] = 1
	}
	return d
}

// DeviceGray is the DeviceGray (and CalGray) colour space.
type DeviceGray struct{}

func (DeviceGray) Name() string                { return "DeviceGray" }
func (DeviceGray) NumComponents() int          { return 1 }
func (DeviceGray) InitialColor() []float64     { return []float64{0} }
func (DeviceGray) DefaultDecode(int) []float64 { return unitDecode(1) }
func (DeviceGray) RGB(c []float64) (float64, float64, float64) {
	g := component(c, 0)
	return g, g, g
}

// DeviceRGB is the DeviceRGB (and CalRGB) colour space.
type DeviceRGB struct{}

func (DeviceRGB) Name() string                { return "DeviceRGB" }
func (DeviceRGB) NumComponents() int          { return 3 }
func (DeviceRGB) InitialColor() []float64     { return []float64{0, 0, 0} }
func (DeviceRGB) DefaultDecode(int) []float64 { return unitDecode(3) }
func (DeviceRGB) RGB(c []float64) (float64, float64, float64) {
	return component(c, 0), component(c, 1), component(c, 2)
}

// DeviceCMYK is the DeviceCMYK colour space, converted naively.
type DeviceCMYK struct{}

func (DeviceCMYK) Name() string                { return "DeviceCMYK" }
func (DeviceCMYK) NumComponents() int          { return 4 }
func (DeviceCMYK) InitialColor() []float64     { return []float64{0, 0, 0, 1} }
func (DeviceCMYK) DefaultDecode(int) []float64 { return unitDecode(4) }
func (DeviceCMYK) RGB(c []float64) (float64, float64, float64) {
	k := component(c, 3)
	return (1 - component(c, 0)) * (1 - k), (1 - component(c, 1)) * (1 - k), (1 - component(c, 2)) * (1 - k)
}

// Lab is the CIE L*a*b* colour space.
type Lab struct {
	WhitePoint [3]float64
	Range      [4]float64
}

func (Lab) Name() string       { return "Lab" }
func (Lab) NumComponents() int { return 3 }
func (l Lab) InitialColor() []float64 {
	return []float64{0, clamp(0, l.Range[0], l.Range[1]), clamp(0, l.Range[2], l.Range[3])}
}
func (l Lab) DefaultDecode(int) []float64 {
	return []float64{0, 100, l.Range[0], l.Range[1], l.Range[2], l.Range[3]}
}

// RGB converts through XYZ to linear sRGB and applies the sRGB curve.
func (l Lab) RGB(c []float64) (float64, float64, float64) {
	lstar := component(c, 0)
	a := clamp(component(c, 1), l.Range[0], l.Range[1])
	b := clamp(component(c, 2), l.Range[2], l.Range[3])
	m := (lstar + 16) / 116
	finv := func(x float64) float64 {
		if x >= 6.0/29 {
			return x * x * x
		}
		return 108.0 / 841 * (x - 4.0/29)
	}
	x := l.WhitePoint[0] * finv(m+a/500)
	y := l.WhitePoint[1] * finv(m)
	z := l.WhitePoint[2] * finv(m-b/200)
	r := 3.2406*x - 1.5372*y - 0.4986*z
	g := -0.9689*x + 1.8758*y + 0.0415*z
	bl := 0.0557*x - 0.2040*y + 1.0570*z
	return gammaSRGB(r), gammaSRGB(g), gammaSRGB(bl)
}

func gammaSRGB(v float64) float64 {
	v = clamp(v, 0, 1)
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*math.Pow(v, 1/2.4) - 0.055
}

// Indexed maps a single index through a lookup table into a base space.
type Indexed struct {
	Base   ColorSpace
	HiVal  int
	Lookup []byte
}

func (Indexed) Name() string            { return "Indexed" }
func (Indexed) NumComponents() int      { return 1 }
func (Indexed) InitialColor() []float64 { return []float64{0} }
func (ix Indexed) DefaultDecode(bpc int) []float64 {
	return []float64{0, math.Pow(2, float64(bpc)) - 1}
}
func (ix Indexed) RGB(c []float64) (float64, float64, float64) {
	i := int(math.Round(component(c, 0)))
	if i < 0 {
		i = 0
	}
	if i > ix.HiVal {
		i = ix.HiVal
	}
	n := ix.Base.NumComponents()
	base := make([]float64, n)
	dec := ix.Base.DefaultDecode(8)
	for j := 0; j < n; j++ {
		v := 0.0
		if k := i*n + j; k < len(ix.Lookup) {
			v = float64(ix.Lookup[k]) / 255
		}
		base[j] = dec[2*j] + v*(dec[2*j+1]-dec[2*j])
	}
	return ix.Base.RGB(base)
}

// Separation covers Separation and DeviceN: tints go through a function
// into an alternate space.
type Separation struct {
	N         int
	Alternate ColorSpace
	Tint      Function
	// None is set for the /None colorant, which paints nothing.
	None bool
}

func (s Separation) Name() string       { return "Separation" }
func (s Separation) NumComponents() int { return s.N }
func (s Separation) InitialColor() []float64 {
	c := make([]float64, s.N)
	for i := range c {
		c[i] = 1
	}
	return c
}
func (s Separation) DefaultDecode(int) []float64 { return unitDecode(s.N) }
func (s Separation) RGB(c []float64) (float64, float64, float64) {
	if s.Tint == nil {
		// Without a usable tint transform, show the tint as grey.
		t := component(c, 0)
		return 1 - t, 1 - t, 1 - t
	}
	return s.Alternate.RGB(s.Tint.Eval(c))
}

// Pattern is the Pattern colour space. Patterns are approximated by a
// solid colour chosen when the pattern is selected.
type Pattern struct {
	Base ColorSpace // for uncoloured tiling patterns; may be nil
}

func (Pattern) Name() string { return "Pattern" }
func (p Pattern) NumComponents() int {
	if p.Base != nil {
		return p.Base.NumComponents()
	}
	return 0
}
func (Pattern) InitialColor() []float64     { return nil }
func (Pattern) DefaultDecode(int) []float64 { return nil }
func (p Pattern) RGB(c []float64) (float64, float64, float64) {
	if p.Base != nil && len(c) > 0 {
		return p.Base.RGB(c)
	}
	return 0.5, 0.5, 0.5
}

// maxColorSpaceDepth bounds named colour space lookups and nested bases.
const maxColorSpaceDepth = 8

// ParseColorSpace resolves obj (a name or array) against the /ColorSpace
// entry of resources.
func ParseColorSpace(obj core.Object, resources core.Dict, res Resolver) (ColorSpace, error) {
	return parseColorSpace(obj, resources, res, 0)
}

func parseColorSpace(obj core.Object, resources core.Dict, res Resolver, depth int) (ColorSpace, error) {
	if depth > maxColorSpaceDepth {
		return nil, errors.New("colour space nesting too deep")
	}
	obj, err := res.Resolve(obj)
	if err != nil {
		return nil, err
	}

	switch v := obj.(type) {
	case core.Name:
		switch v {
		case "DeviceGray", "G", "CalGray":
			return DeviceGray{}, nil
		case "DeviceRGB", "RGB", "CalRGB":
			return DeviceRGB{}, nil
		case "DeviceCMYK", "CMYK":
			return DeviceCMYK{}, nil
		case "Pattern":
			return Pattern{}, nil
		}
		if resources != nil {
			csObj, _ := res.Resolve(resources.Get("ColorSpace"))
			if named, ok := csObj.(core.Dict); ok && named.Has(string(v)) {
				return parseColorSpace(named.Get(string(v)), resources, res, depth+1)
			}
		}
		return nil, fmt.Errorf("unknown colour space %q", v)

	case core.Array:
		if len(v) == 0 {
			return nil, errors.New("empty colour space array")
		}
		family, _ := res.Resolve(v[0])
		name, _ := family.(core.Name)
		switch name {
		case "DeviceGray", "CalGray", "G":
			return DeviceGray{}, nil
		case "DeviceRGB", "CalRGB", "RGB":
			return DeviceRGB{}, nil
		case "DeviceCMYK", "CMYK":
			return DeviceCMYK{}, nil
		case "Lab":
			return parseLab(v, res), nil
		case "ICCBased":
			return parseICCBased(v, resources, res, depth)
		case "Indexed", "I":
			return parseIndexed(v, resources, res, depth)
		case "Separation", "DeviceN":
			return parseSeparation(v, name == "DeviceN", resources, res, depth)
		case "Pattern":
			p := Pattern{}
			if len(v) > 1 {
				if base, err := parseColorSpace(v[1], resources, res, depth+1); err == nil {
					p.Base = base
				}
			}
			return p, nil
		}
		return nil, fmt.Errorf("unknown colour space family %q", name)
	}
	return nil, fmt.Errorf("invalid colour space %T", obj)
}

func parseLab(v core.Array, res Resolver) Lab {
	lab := Lab{WhitePoint: [3]float64{0.9505, 1, 1.089}, Range: [4]float64{-100, 100, -100, 100}}
	if len(v) < 2 {
		return lab
	}
	obj, _ := res.Resolve(v[1])
	d, _ := obj.(core.Dict)
	if wp := numbers(d.Get("WhitePoint"), res); len(wp) == 3 {
		copy(lab.WhitePoint[:], wp)
	}
	if r := numbers(d.Get("Range"), res); len(r) == 4 {
		copy(lab.Range[:], r)
	}
	return lab
}

func parseICCBased(v core.Array, resources core.Dict, res Resolver, depth int) (ColorSpace, error) {
	if len(v) < 2 {
		return nil, errors.New("ICCBased without profile")
	}
	obj, err := res.Resolve(v[1])
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, errors.New("ICCBased profile is not a stream")
	}
	if alt := stream.Dict.Get("Alternate"); alt != nil {
		if cs, err := parseColorSpace(alt, resources, res, depth+1); err == nil {
			return cs, nil
		}
	}
	n, _ := stream.Dict.GetInt("N")
	switch n {
	case 1:
		return DeviceGray{}, nil
	case 4:
		return DeviceCMYK{}, nil
	}
	return DeviceRGB{}, nil
}

func parseIndexed(v core.Array, resources core.Dict, res Resolver, depth int) (ColorSpace, error) {
	if len(v) < 4 {
		return nil, errors.New("Indexed colour space needs 4 elements")
	}
	base, err := parseColorSpace(v[1], resources, res, depth+1)
	if err != nil {
		return nil, fmt.Errorf("Indexed base: %w", err)
	}
	hiObj, _ := res.Resolve(v[2])
	hi, _ := core.Number(hiObj)
	lookupObj, err := res.Resolve(v[3])
	if err != nil {
		return nil, err
	}
	var lookup []byte
	switch l := lookupObj.(type) {
	case core.String:
		lookup = []byte(l)
	case *core.Stream:
		if lookup, err = l.Decode(); err != nil {
			return nil, err
		}
	}
	return Indexed{Base: base, HiVal: int(clamp(hi, 0, 255)), Lookup: lookup}, nil
}

func parseSeparation(v core.Array, deviceN bool, resources core.Dict, res Resolver, depth int) (ColorSpace, error) {
	if len(v) < 4 {
		return nil, errors.New("Separation colour space needs 4 elements")
	}
	sep := Separation{N: 1}
	namesObj, _ := res.Resolve(v[1])
	if deviceN {
		names, _ := namesObj.(core.Array)
		sep.N = len(names)
		if sep.N == 0 {
			sep.N = 1
		}
	} else if n, ok := namesObj.(core.Name); ok && n == "None" {
		sep.None = true
	}
	alt, err := parseColorSpace(v[2], resources, res, depth+1)
	if err != nil {
		alt = DeviceGray{}
	}
	sep.Alternate = alt
	if fn, err := ParseFunction(v[3], res); err == nil {
		sep.Tint = fn
	}
	return sep, nil
}
