package format

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

// DefaultJPEGQuality is used when EncodeOptions.Quality is zero.
const DefaultJPEGQuality = 85

// EncodeOptions tunes Encode.
type EncodeOptions struct {
	// Quality is the JPEG quality, 1 to 100.
	Quality int
}

var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// Encode writes img to w in format f. The output is a pure function of the
// pixels, so equal images encode to equal bytes.
func Encode(w io.Writer, img image.Image, f Format, opts EncodeOptions) error {
	switch f {
	case PNG:
		if err := pngEncoder.Encode(w, img); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		return nil
	case JPEG:
		q := opts.Quality
		if q == 0 {
			q = DefaultJPEGQuality
		}
		if q < 1 || q > 100 {
			return fmt.Errorf("jpeg quality %d out of range [1, 100]", q)
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: q}); err != nil {
			return fmt.Errorf("encode jpeg: %w", err)
		}
		return nil
	}
	return fmt.Errorf("cannot encode images as %s", f)
}

// EncodeBytes is Encode into a new byte slice.
func EncodeBytes(img image.Image, f Format, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, f, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
