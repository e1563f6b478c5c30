// Package format selects and writes thumbnail image encodings.
package format

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format represents a supported file format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PNG indicates a PNG image.
	PNG
	// JPEG indicates a baseline JPEG image.
	JPEG
	// PDF indicates a PDF document.
	PDF
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	case PDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// Extension returns the typical file extension for the format, without the
// leading dot.
func (f Format) Extension() string {
	switch f {
	case PNG:
		return "png"
	case JPEG:
		return "jpg"
	case PDF:
		return "pdf"
	default:
		return ""
	}
}

// IsImage reports whether the format can hold a thumbnail.
func (f Format) IsImage() bool {
	return f == PNG || f == JPEG
}

// Parse maps a configuration value such as "png" or "jpeg" to a Format.
func Parse(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "pdf":
		return PDF, nil
	}
	return Unknown, fmt.Errorf("unknown format %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	if f == Unknown {
		return nil, fmt.Errorf("cannot marshal unknown format")
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".pdf":
		return PDF
	default:
		return Unknown
	}
}

var (
	pngMagic  = []byte("\x89PNG\r\n\x1a\n")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pdfMagic  = []byte("%PDF-")
)

// pdfHeaderWindow is how far into a file a PDF header may appear; readers
// tolerate leading junk up to this point.
const pdfHeaderWindow = 1024

// DetectFromMagic checks file magic bytes to determine format.
func DetectFromMagic(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		return PNG
	case bytes.HasPrefix(data, jpegMagic):
		return JPEG
	}
	head := data
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	if bytes.Contains(head, pdfMagic) {
		return PDF
	}
	return Unknown
}
