package graphicsstate

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsawler/pdfthumb/core"
)

// Function is a PDF function (types 0, 2, 3 and 4) mapping m inputs to n
// outputs. Inputs and outputs are clipped to /Domain and /Range.
type Function interface {
	Eval(in []float64) []float64
}

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// maxFunctionDepth bounds nested stitching functions.
const maxFunctionDepth = 8

// ParseFunction builds a Function from a dictionary or stream. An array of
// functions is combined into one function whose outputs are concatenated.
func ParseFunction(obj core.Object, res Resolver) (Function, error) {
	return parseFunction(obj, res, 0)
}

func parseFunction(obj core.Object, res Resolver, depth int) (Function, error) {
	if depth > maxFunctionDepth {
		return nil, errors.New("function nesting too deep")
	}
	obj, err := res.Resolve(obj)
	if err != nil {
		return nil, err
	}

	var dict core.Dict
	var stream *core.Stream
	switch v := obj.(type) {
	case core.Dict:
		dict = v
	case *core.Stream:
		dict, stream = v.Dict, v
	case core.Array:
		var fa funcArray
		for _, e := range v {
			f, err := parseFunction(e, res, depth+1)
			if err != nil {
				return nil, err
			}
			fa = append(fa, f)
		}
		return fa, nil
	default:
		return nil, fmt.Errorf("function is %T", obj)
	}

	base := funcBase{
		domain: numbers(dict.Get("Domain"), res),
		rng:    numbers(dict.Get("Range"), res),
	}
	if len(base.domain) < 2 {
		base.domain = []float64{0, 1}
	}

	typ, _ := dict.GetInt("FunctionType")
	switch typ {
	case 0:
		if stream == nil {
			return nil, errors.New("sampled function without stream")
		}
		return newSampledFunction(base, dict, stream, res)
	case 2:
		f := &expFunction{funcBase: base, c0: []float64{0}, c1: []float64{1}, n: 1}
		if c0 := numbers(dict.Get("C0"), res); len(c0) > 0 {
			f.c0 = c0
		}
		if c1 := numbers(dict.Get("C1"), res); len(c1) > 0 {
			f.c1 = c1
		}
		if n, ok := core.Number(dict.Get("N")); ok {
			f.n = n
		}
		return f, nil
	case 3:
		f := &stitchFunction{funcBase: base}
		fnsObj, _ := res.Resolve(dict.Get("Functions"))
		fns, _ := fnsObj.(core.Array)
		for _, e := range fns {
			sub, err := parseFunction(e, res, depth+1)
			if err != nil {
				return nil, err
			}
			f.fns = append(f.fns, sub)
		}
		if len(f.fns) == 0 {
			return nil, errors.New("stitching function without /Functions")
		}
		f.bounds = numbers(dict.Get("Bounds"), res)
		f.encode = numbers(dict.Get("Encode"), res)
		return f, nil
	case 4:
		if stream == nil {
			return nil, errors.New("calculator function without stream")
		}
		data, err := stream.Decode()
		if err != nil {
			return nil, err
		}
		prog, err := parseCalculator(data)
		if err != nil {
			return nil, err
		}
		return &calcFunction{funcBase: base, prog: prog}, nil
	}
	return nil, fmt.Errorf("unsupported function type %d", typ)
}

// numbers reads a (possibly indirect) array of numbers.
func numbers(obj core.Object, res Resolver) []float64 {
	obj, err := res.Resolve(obj)
	if err != nil {
		return nil
	}
	arr, ok := obj.(core.Array)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(arr))
	for _, e := range arr {
		r, _ := res.Resolve(e)
		f, _ := core.Number(r)
		out = append(out, f)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type funcBase struct {
	domain []float64
	rng    []float64
}

func (b funcBase) clipIn(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		if 2*i+1 < len(b.domain) {
			v = clamp(v, b.domain[2*i], b.domain[2*i+1])
		}
		out[i] = v
	}
	return out
}

func (b funcBase) clipOut(out []float64) []float64 {
	for i := range out {
		if 2*i+1 < len(b.rng) {
			out[i] = clamp(out[i], b.rng[2*i], b.rng[2*i+1])
		}
	}
	return out
}

type funcArray []Function

func (fa funcArray) Eval(in []float64) []float64 {
	var out []float64
	for _, f := range fa {
		out = append(out, f.Eval(in)...)
	}
	return out
}

type expFunction struct {
	funcBase
	c0, c1 []float64
	n      float64
}

func (f *expFunction) Eval(in []float64) []float64 {
	x := 0.0
	if len(in) > 0 {
		x = f.clipIn(in[:1])[0]
	}
	xn := math.Pow(x, f.n)
	out := make([]float64, len(f.c0))
	for i := range out {
		c1 := 1.0
		if i < len(f.c1) {
			c1 = f.c1[i]
		}
		out[i] = f.c0[i] + xn*(c1-f.c0[i])
	}
	return f.clipOut(out)
}

type stitchFunction struct {
	funcBase
	fns    []Function
	bounds []float64
	encode []float64
}

func (f *stitchFunction) Eval(in []float64) []float64 {
	x := 0.0
	if len(in) > 0 {
		x = f.clipIn(in[:1])[0]
	}
	k := 0
	for k < len(f.bounds) && k < len(f.fns)-1 && x >= f.bounds[k] {
		k++
	}
	lo, hi := f.domain[0], f.domain[1]
	if k > 0 {
		lo = f.bounds[k-1]
	}
	if k < len(f.bounds) {
		hi = f.bounds[k]
	}
	e0, e1 := 0.0, 1.0
	if 2*k+1 < len(f.encode) {
		e0, e1 = f.encode[2*k], f.encode[2*k+1]
	}
	t := e0
	if hi != lo {
		t = e0 + (x-lo)*(e1-e0)/(hi-lo)
	}
	return f.clipOut(f.fns[k].Eval([]float64{t}))
}

type sampledFunction struct {
	funcBase
	size    []int
	bps     int
	encode  []float64
	decode  []float64
	samples []float64 // normalized to [0, 1]
	outputs int
}

func newSampledFunction(base funcBase, dict core.Dict, stream *core.Stream, res Resolver) (*sampledFunction, error) {
	f := &sampledFunction{funcBase: base}
	for _, s := range numbers(dict.Get("Size"), res) {
		f.size = append(f.size, int(s))
	}
	bps, _ := dict.GetInt("BitsPerSample")
	f.bps = int(bps)
	f.outputs = len(base.rng) / 2
	if len(f.size) == 0 || f.bps <= 0 || f.bps > 32 || f.outputs == 0 {
		return nil, errors.New("sampled function missing /Size, /BitsPerSample or /Range")
	}
	f.encode = numbers(dict.Get("Encode"), res)
	if len(f.encode) < 2*len(f.size) {
		f.encode = nil
		for _, s := range f.size {
			f.encode = append(f.encode, 0, float64(s-1))
		}
	}
	f.decode = numbers(dict.Get("Decode"), res)
	if len(f.decode) < 2*f.outputs {
		f.decode = base.rng
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, err
	}
	total := f.outputs
	for _, s := range f.size {
		if s <= 0 {
			return nil, errors.New("sampled function with empty /Size")
		}
		total *= s
	}
	maxVal := math.Pow(2, float64(f.bps)) - 1
	f.samples = make([]float64, total)
	bitPos := 0
	for i := range f.samples {
		var v uint64
		for b := 0; b < f.bps; b++ {
			byteIdx := bitPos / 8
			if byteIdx >= len(data) {
				break
			}
			bit := (data[byteIdx] >> (7 - uint(bitPos%8))) & 1
			v = v<<1 | uint64(bit)
			bitPos++
		}
		f.samples[i] = float64(v) / maxVal
	}
	return f, nil
}

func (f *sampledFunction) Eval(in []float64) []float64 {
	in = f.clipIn(in)
	// Index of each input dimension in sample space.
	idx := make([]float64, len(f.size))
	for i := range f.size {
		x := 0.0
		if i < len(in) {
			x = in[i]
		}
		d0, d1 := f.domain[0], f.domain[1]
		if 2*i+1 < len(f.domain) {
			d0, d1 = f.domain[2*i], f.domain[2*i+1]
		}
		e := f.encode[2*i]
		if d1 != d0 {
			e += (x - d0) * (f.encode[2*i+1] - f.encode[2*i]) / (d1 - d0)
		}
		idx[i] = clamp(e, 0, float64(f.size[i]-1))
	}

	out := make([]float64, f.outputs)
	if len(f.size) == 1 {
		// Linear interpolation for the common one-input case.
		lo := int(math.Floor(idx[0]))
		hi := lo + 1
		if hi >= f.size[0] {
			hi = lo
		}
		t := idx[0] - float64(lo)
		for j := range out {
			a := f.samples[lo*f.outputs+j]
			b := f.samples[hi*f.outputs+j]
			out[j] = a + t*(b-a)
		}
	} else {
		offset, stride := 0, 1
		for i, s := range f.size {
			offset += int(math.Round(idx[i])) * stride
			stride *= s
		}
		for j := range out {
			out[j] = f.samples[offset*f.outputs+j]
		}
	}
	for j := range out {
		out[j] = f.decode[2*j] + out[j]*(f.decode[2*j+1]-f.decode[2*j])
	}
	return f.clipOut(out)
}
