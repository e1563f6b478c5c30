package filters

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 or Group 4 fax data into packed 1-bit rows
// where 1 is white, matching DeviceGray with /Decode [0 1].
//
// Parameters: K (<0 Group 4, otherwise Group 3), Columns (default 1728),
// Rows (0 means detect), BlackIs1 and EncodedByteAlign.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	k := getIntParam(params, "K", 0)
	blackIs1 := getBoolParam(params, "BlackIs1", false)
	align := getBoolParam(params, "EncodedByteAlign", false)

	if k > 0 {
		return nil, errors.New("ccitt: mixed 1D/2D Group 3 (K > 0) is not supported")
	}
	sf := ccitt.Group3
	if k < 0 {
		sf = ccitt.Group4
	}
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	opts := &ccitt.Options{Invert: blackIs1, Align: align}
	out, err := io.ReadAll(ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts))
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("ccitt: %w", err)
	}
	return out, nil
}
