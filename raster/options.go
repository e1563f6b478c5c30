package raster

import (
	"image/color"
	"log/slog"
	"time"

	"github.com/tsawler/pdfthumb/format"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultWidth   = 630
	DefaultHeight  = 891
	DefaultDPI     = 100
	DefaultTimeout = 30 * time.Second
)

// Options controls Rasterize.
type Options struct {
	// Width and Height are the exact output size in pixels.
	Width  int
	Height int

	// DPI is the resolution the page is rendered at before it is fitted
	// into Width x Height.
	DPI float64

	// Format is the output encoding; PNG when Unknown.
	Format format.Format
	// Quality is the JPEG quality (format.DefaultJPEGQuality when 0).
	Quality int

	// Background paints the page before its content and pads the fitted
	// image. Nil means opaque white.
	Background color.Color

	// Timeout bounds rendering. Zero means DefaultTimeout; a negative value
	// disables the limit.
	Timeout time.Duration

	// Logger receives debug output about skipped content. Nil uses the
	// default logger.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.DPI <= 0 {
		o.DPI = DefaultDPI
	}
	if o.Format == format.Unknown {
		o.Format = format.PNG
	}
	if o.Background == nil {
		o.Background = color.White
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}
