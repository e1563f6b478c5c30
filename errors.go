package pdfthumb

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfthumb/extract"
	"github.com/tsawler/pdfthumb/raster"
)

// Error kinds. Every error returned by a Thumbnailer matches exactly one of
// these with errors.Is.
var (
	// ErrDocumentParse means the source is not a readable PDF.
	ErrDocumentParse = extract.ErrDocumentParse
	// ErrEmptyDocument means the source has no first page.
	ErrEmptyDocument = extract.ErrEmptyDocument
	// ErrRasterization means the page could not be rendered or encoded,
	// including when rendering timed out.
	ErrRasterization = raster.ErrRasterization
	// ErrFilesystem means the source could not be read or the thumbnail
	// could not be written.
	ErrFilesystem = errors.New("filesystem error")
	// ErrInvalidName means a logical name cannot be mapped to a file.
	ErrInvalidName = errors.New("invalid thumbnail name")
)

// Error describes a failed thumbnail operation. Op is one of "reference",
// "read", "check", "render", "commit" or "wait"; "wait" means the caller's
// context ended before a shared generation finished.
type Error struct {
	Op   string // failed step
	Name string // logical document name
	Kind error  // one of the Err* kinds above
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Kind)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

// Unwrap exposes both the kind and the cause, so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// kindOf picks the kind for an error from a lower layer.
func kindOf(err error, fallback error) error {
	for _, kind := range []error{ErrEmptyDocument, ErrDocumentParse, ErrRasterization, ErrFilesystem, ErrInvalidName} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return fallback
}

func newError(op, name string, err error, fallback error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Op: op, Name: name, Kind: kindOf(err, fallback), Err: err}
}
