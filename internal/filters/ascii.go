package filters

import (
	"bytes"
	"encoding/ascii85"
	"fmt"
)

// ASCIIHexDecode decodes hexadecimal data up to the '>' end marker.
// Whitespace is ignored and an odd final digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for _, c := range data {
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v, err := hexDigitToByte(c)
		if err != nil {
			return nil, err
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes base-85 data. The optional "<~" prefix and the "~>"
// end marker are stripped before decoding.
func ASCII85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimLeft(data, " \t\r\n\f\x00")
	data = bytes.TrimPrefix(data, []byte("<~"))
	if end := bytes.Index(data, []byte("~>")); end >= 0 {
		data = data[:end]
	} else if end := bytes.IndexByte(data, '~'); end >= 0 {
		data = data[:end]
	}

	out := make([]byte, len(data)*4/5+4)
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out[:n], nil
}

// RunLengthDecode decodes the PackBits-style RunLengthDecode filter.
func RunLengthDecode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out.Bytes(), nil
		case n < 128:
			end := i + n + 1
			if end > len(data) {
				end = len(data)
			}
			out.Write(data[i:end])
			i = end
		default:
			if i >= len(data) {
				return out.Bytes(), nil
			}
			out.Write(bytes.Repeat(data[i:i+1], 257-n))
			i++
		}
	}
	return out.Bytes(), nil
}

func hexDigitToByte(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	}
	return 0, fmt.Errorf("invalid hex digit: %c", c)
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
