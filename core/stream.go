package core

import (
	"fmt"

	"github.com/tsawler/pdfthumb/internal/filters"
)

// Decode applies the stream's filter chain and returns the decoded bytes.
// Image-only filters (DCTDecode, JPXDecode) pass their input through; use
// DecodeImage when the caller needs to know which one was left undone.
// The result is cached on the stream.
func (s *Stream) Decode() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}
	data, _, err := s.decode()
	if err != nil {
		return nil, err
	}
	s.decoded = data
	return data, nil
}

// DecodeImage decodes every filter up to the first image codec and returns
// the remaining data along with that codec's name ("" when fully decoded).
func (s *Stream) DecodeImage() ([]byte, string, error) {
	return s.decode()
}

func (s *Stream) decode() ([]byte, string, error) {
	names, params := s.filterChain()
	data := s.Data
	for i, name := range names {
		switch name {
		case "DCTDecode", "DCT", "JPXDecode", "JBIG2Decode":
			return data, canonicalFilter(name), nil
		}
		var err error
		data, err = decodeWithFilter(data, name, params[i])
		if err != nil {
			return nil, "", fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}
	return data, "", nil
}

// filterChain returns the filter names and their matching decode parameters.
func (s *Stream) filterChain() ([]string, []Dict) {
	var names []string
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		names = []string{string(f)}
	case Array:
		for _, e := range f {
			if n, ok := e.(Name); ok {
				names = append(names, string(n))
			}
		}
	}

	params := make([]Dict, len(names))
	parms := s.Dict.Get("DecodeParms")
	if parms == nil {
		parms = s.Dict.Get("DP")
	}
	switch v := parms.(type) {
	case Dict:
		if len(params) > 0 {
			params[0] = v
		}
	case Array:
		for i := range params {
			if i < len(v) {
				params[i], _ = v[i].(Dict)
			}
		}
	}
	return names, params
}

func canonicalFilter(name string) string {
	if name == "DCT" {
		return "DCTDecode"
	}
	return name
}

// decodeWithFilter applies a single filter by its full or abbreviated name.
func decodeWithFilter(data []byte, filterName string, params Dict) ([]byte, error) {
	switch filterName {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, dictToParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	case "LZWDecode", "LZW":
		return filters.LZWDecode(data, dictToParams(params))
	case "RunLengthDecode", "RL":
		return filters.RunLengthDecode(data)
	case "CCITTFaxDecode", "CCF":
		return filters.CCITTFaxDecode(data, dictToParams(params))
	case "Crypt":
		// Identity crypt filter; real decryption happens when the object is loaded.
		return data, nil
	default:
		return nil, fmt.Errorf("unknown filter: %s", filterName)
	}
}

// dictToParams converts a decode parameter dictionary to filters.Params.
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}

// NewFlateStream builds a stream whose data is the Flate encoding of plain.
// Extra dictionary entries are copied from dict when it is non-nil.
func NewFlateStream(dict Dict, plain []byte) (*Stream, error) {
	encoded, err := filters.FlateEncode(plain)
	if err != nil {
		return nil, err
	}
	d := Dict{}
	for k, v := range dict {
		d[k] = v
	}
	d["Filter"] = Name("FlateDecode")
	d.Delete("DecodeParms")
	d["Length"] = Int(len(encoded))
	return &Stream{Dict: d, Data: encoded, decoded: plain}, nil
}
