// Package raster renders the first page of a PDF document to an image.
//
// Rendering interprets the page's content streams directly: paths are
// flattened and rasterized with golang.org/x/image/vector, images and the
// final fit are resampled with golang.org/x/image/draw, and glyphs come from
// the embedded font programs (or Go's bundled fonts when a font is not
// embedded).
//
// Basic usage:
//
//	png, err := raster.Rasterize(ctx, pageBytes, raster.DefaultOptions())
//
// Rasterize always returns an image of exactly Options.Width x
// Options.Height pixels. The page is scaled to fit and centred; the
// remaining area shows Options.Background.
//
// Errors wrap ErrRasterization. A rendering that runs past Options.Timeout
// also wraps context.DeadlineExceeded.
package raster
