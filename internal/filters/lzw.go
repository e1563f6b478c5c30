package filters

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decodes LZW data and applies any /Predictor. The default
// /EarlyChange 1 matches the TIFF variant of the code-width switch, which is
// what x/image's tiff/lzw implements; /EarlyChange 0 is plain MSB LZW.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var r io.ReadCloser
	if getIntParam(params, "EarlyChange", 1) == 0 {
		r = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	} else {
		r = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	}
	defer r.Close()

	out, err := readLimited(r)
	switch {
	case errors.Is(err, ErrDecodedTooLarge):
		return nil, fmt.Errorf("lzw: %w", err)
	case err != nil && !errors.Is(err, io.ErrUnexpectedEOF):
		if len(out) == 0 {
			return nil, fmt.Errorf("lzw: %w", err)
		}
	}
	return applyPredictor(out, params)
}
