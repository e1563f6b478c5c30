package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is any value that can appear in a PDF file body.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType identifies the kind of an Object.
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
)

func (t ObjectType) String() string {
	switch t {
	case ObjNull:
		return "Null"
	case ObjBool:
		return "Bool"
	case ObjInt:
		return "Int"
	case ObjReal:
		return "Real"
	case ObjString:
		return "String"
	case ObjName:
		return "Name"
	case ObjArray:
		return "Array"
	case ObjDict:
		return "Dict"
	case ObjStream:
		return "Stream"
	case ObjIndirect:
		return "IndirectRef"
	default:
		return "Unknown"
	}
}

// Null is the PDF null object.
type Null struct{}

func (Null) Type() ObjectType { return ObjNull }
func (Null) String() string   { return "null" }

// Bool is a PDF boolean.
type Bool bool

func (b Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string   { return strconv.FormatBool(bool(b)) }

// Int is a PDF integer.
type Int int64

func (i Int) Type() ObjectType { return ObjInt }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }

// Real is a PDF real number.
type Real float64

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) String() string   { return strconv.FormatFloat(float64(r), 'f', -1, 64) }

// String is a PDF string. The bytes are kept raw; no text decoding is applied.
type String string

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string   { return string(s) }

// Name is a PDF name without the leading slash.
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// Array is a PDF array.
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, 0, len(a))
	for _, obj := range a {
		parts = append(parts, obj.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the number of elements.
func (a Array) Len() int { return len(a) }

// Get returns the element at index, or nil when out of range.
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// GetInt returns the integer at index.
func (a Array) GetInt(index int) (Int, bool) {
	i, ok := a.Get(index).(Int)
	return i, ok
}

// GetName returns the name at index.
func (a Array) GetName(index int) (Name, bool) {
	n, ok := a.Get(index).(Name)
	return n, ok
}

// GetNumber returns the element at index as a float, accepting Int or Real.
func (a Array) GetNumber(index int) (float64, bool) {
	return Number(a.Get(index))
}

// Floats converts every element to float64. It fails if any element is not numeric.
func (a Array) Floats() ([]float64, bool) {
	out := make([]float64, len(a))
	for i, obj := range a {
		f, ok := Number(obj)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Number converts an Int or Real to float64.
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Int:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// Dict is a PDF dictionary keyed by name (without slash).
type Dict map[string]Object

func (d Dict) Type() ObjectType { return ObjDict }
func (d Dict) String() string {
	parts := make([]string, 0, len(d))
	for _, key := range d.Keys() {
		parts = append(parts, fmt.Sprintf("/%s %s", key, d[key].String()))
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Get returns the value stored under key, or nil.
func (d Dict) Get(key string) Object { return d[key] }

func (d Dict) GetName(key string) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d[key].(Int)
	return i, ok
}

// GetNumber returns an Int or Real value as float64.
func (d Dict) GetNumber(key string) (float64, bool) {
	return Number(d[key])
}

func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

func (d Dict) GetArray(key string) (Array, bool) {
	v, ok := d[key].(Array)
	return v, ok
}

func (d Dict) GetString(key string) (String, bool) {
	v, ok := d[key].(String)
	return v, ok
}

func (d Dict) GetBool(key string) (Bool, bool) {
	v, ok := d[key].(Bool)
	return v, ok
}

func (d Dict) GetStream(key string) (*Stream, bool) {
	v, ok := d[key].(*Stream)
	return v, ok
}

func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	v, ok := d[key].(IndirectRef)
	return v, ok
}

// Has reports whether key is present.
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Dict) Set(key string, value Object) { d[key] = value }

func (d Dict) Delete(key string) { delete(d, key) }

// Keys returns the keys in sorted order so that serialization is stable.
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stream is a dictionary followed by raw (still encoded) bytes.
type Stream struct {
	Dict Dict
	Data []byte

	decoded []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// IndirectRef points at an object by number and generation.
type IndirectRef struct {
	Number     int
	Generation int
}

func (r IndirectRef) Type() ObjectType { return ObjIndirect }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject is an object together with the reference it was defined under.
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

// Clone returns a deep copy of obj. Streams are copied with their raw data
// shared, since stream bytes are never mutated in place.
func Clone(obj Object) Object {
	switch v := obj.(type) {
	case Array:
		out := make(Array, len(v))
		for i, e := range v {
			out[i] = Clone(e)
		}
		return out
	case Dict:
		out := make(Dict, len(v))
		for k, e := range v {
			out[k] = Clone(e)
		}
		return out
	case *Stream:
		return &Stream{Dict: Clone(v.Dict).(Dict), Data: v.Data}
	default:
		return obj
	}
}
