package filters

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// Params holds decode parameters from a stream's /DecodeParms dictionary,
// already converted to Go values (int, float64, bool, string).
type Params map[string]interface{}

// ErrDecodedTooLarge is returned when a stream decodes to more than the
// decoded size limit.
var ErrDecodedTooLarge = errors.New("decoded stream too large")

// maxDecodedSize caps the output of one FlateDecode or LZWDecode call.
var maxDecodedSize int64 = 256 << 20

// FlateDecode inflates zlib data and applies any /Predictor. Streams that
// are truncated or carry a bad checksum still yield the bytes inflated so
// far, since many producers write slightly damaged Flate data. Output past
// the decoded size limit fails with ErrDecodedTooLarge.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	out, err := inflate(data)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	return applyPredictor(out, params)
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := readLimited(r)
	switch {
	case errors.Is(err, ErrDecodedTooLarge):
		return nil, err
	case err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, zlib.ErrChecksum):
		if len(out) == 0 {
			return nil, err
		}
	}
	return out, nil
}

// readLimited reads r to the end, or fails with ErrDecodedTooLarge once more
// than maxDecodedSize bytes arrive. On a read error the bytes read so far
// are returned with it.
func readLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := io.Copy(&buf, io.LimitReader(r, maxDecodedSize+1))
	if int64(buf.Len()) > maxDecodedSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrDecodedTooLarge, maxDecodedSize)
	}
	return buf.Bytes(), err
}

// FlateEncode compresses data with zlib at the default level.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// applyPredictor undoes TIFF predictor 2 or the PNG predictors (10-15).
func applyPredictor(data []byte, params Params) ([]byte, error) {
	predictor := getIntParam(params, "Predictor", 1)
	switch {
	case predictor <= 1:
		return data, nil
	case predictor == 2:
		return applyTIFFPredictor2(data, params)
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(data, params)
	}
	return nil, fmt.Errorf("unsupported predictor: %d", predictor)
}

type rowLayout struct {
	colors, bpc, columns int
	pixelBytes           int // bytes per complete pixel, at least 1
	rowBytes             int
}

func layoutFor(params Params) rowLayout {
	l := rowLayout{
		colors:  getIntParam(params, "Colors", 1),
		bpc:     getIntParam(params, "BitsPerComponent", 8),
		columns: getIntParam(params, "Columns", 1),
	}
	l.pixelBytes = (l.colors*l.bpc + 7) / 8
	if l.pixelBytes < 1 {
		l.pixelBytes = 1
	}
	l.rowBytes = (l.columns*l.colors*l.bpc + 7) / 8
	return l
}

func applyTIFFPredictor2(data []byte, params Params) ([]byte, error) {
	l := layoutFor(params)
	if l.bpc != 8 {
		return nil, fmt.Errorf("TIFF Predictor 2 only supports 8 bits per component, got %d", l.bpc)
	}
	if l.rowBytes <= 0 {
		return data, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	for start := 0; start+l.rowBytes <= len(out); start += l.rowBytes {
		row := out[start : start+l.rowBytes]
		for i := l.colors; i < len(row); i++ {
			row[i] += row[i-l.colors]
		}
	}
	return out, nil
}

// applyPNGPredictor decodes rows that each begin with a PNG filter-type byte.
// A trailing partial row is dropped.
func applyPNGPredictor(data []byte, params Params) ([]byte, error) {
	l := layoutFor(params)
	stride := l.rowBytes + 1
	if l.rowBytes <= 0 {
		return data, nil
	}
	rows := len(data) / stride
	out := make([]byte, rows*l.rowBytes)
	prev := make([]byte, l.rowBytes)
	bpp := l.pixelBytes

	for r := 0; r < rows; r++ {
		src := data[r*stride+1 : (r+1)*stride]
		cur := out[r*l.rowBytes : (r+1)*l.rowBytes]
		ft := data[r*stride]
		for i := range cur {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch ft {
			case 0:
				cur[i] = src[i]
			case 1:
				cur[i] = src[i] + left
			case 2:
				cur[i] = src[i] + up
			case 3:
				cur[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = src[i] + paethPredictor(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG predictor %d in row %d", ft, r)
			}
		}
		prev = cur
	}
	return out, nil
}

// paethPredictor picks whichever of left, above or upper-left is closest to
// left+above-upperLeft.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func getIntParam(params Params, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

func getBoolParam(params Params, key string, defaultValue bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
