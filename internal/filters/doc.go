// Package filters implements the PDF stream decompression filters.
//
//	decoded, err := filters.FlateDecode(data, filters.Params{
//	    "Predictor": 12,
//	    "Columns":   100,
//	})
//
// FlateDecode and LZWDecode undo TIFF predictor 2 and the PNG predictors
// (10-15) given in /DecodeParms. CCITTFaxDecode handles Group 4 and 1-D
// Group 3 data through golang.org/x/image/ccitt. ASCIIHexDecode,
// ASCII85Decode and RunLengthDecode take no parameters.
//
// Truncated Flate data and bad checksums yield the bytes inflated so far
// without an error. FlateDecode and LZWDecode stop at 256 MiB of output and
// return ErrDecodedTooLarge.
package filters
