// Package pdfthumb renders the first page of a PDF document to a cached
// thumbnail image and returns the public path it is served from.
//
// Basic usage:
//
//	t, err := pdfthumb.New(config.Default())
//	if err != nil {
//	    // handle error
//	}
//	ref, err := t.Thumbnail(ctx, pdfthumb.SourceDocument{
//	    Path: "uploads/invoice.pdf",
//	    Name: "invoice.pdf",
//	})
//	// ref == "/static/img/pdf-thumbnails/invoice.pdf.1.png"
//
// The first call for a name renders the page and writes
// <output_dir>/<name>.1.png; later calls find the file and return at once.
// Thumbnails are written to a temporary file and renamed into place, so a
// reader never sees a partial image.
//
// By default a failed generation is logged and the reference is still
// returned. Set failure_policy to "strict" to receive the error as well.
//
// The lower-level packages extract and raster can be used on their own.
package pdfthumb
