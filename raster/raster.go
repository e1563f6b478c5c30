package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/tsawler/pdfthumb/format"
	"github.com/tsawler/pdfthumb/model"
	"github.com/tsawler/pdfthumb/pages"
	"github.com/tsawler/pdfthumb/reader"
)

// ErrRasterization is returned when a page cannot be rendered, including
// when rendering runs past its time limit.
var ErrRasterization = errors.New("rasterization error")

// maxDeviceSide bounds the intermediate render so that huge page boxes do
// not allocate unbounded canvases.
const maxDeviceSide = 6000

// Rasterize renders the first page of a single-page document and returns
// it encoded in opts.Format at exactly opts.Width x opts.Height pixels. The
// page is scaled to fit and centred on the background colour.
func Rasterize(ctx context.Context, page []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if !opts.Format.IsImage() {
		return nil, fmt.Errorf("%w: cannot encode %s", ErrRasterization, opts.Format)
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	img, err := Render(ctx, page, opts)
	if err != nil {
		return nil, err
	}
	out := Fit(img, opts.Width, opts.Height, opts.Background)
	data, err := format.EncodeBytes(out, opts.Format, format.EncodeOptions{Quality: opts.Quality})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterization, err)
	}
	return data, nil
}

// Render draws the first page of doc at opts.DPI. The result is the page's
// crop box after /Rotate, painted over opts.Background.
func Render(ctx context.Context, doc []byte, opts Options) (img *image.RGBA, err error) {
	opts = opts.withDefaults()
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	defer func() {
		if p := recover(); p != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrRasterization, p)
		}
	}()

	r, err := reader.NewReader(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterization, err)
	}
	page, err := r.GetPage(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterization, err)
	}

	box := page.CropBox()
	if box.Width <= 0 || box.Height <= 0 {
		return nil, fmt.Errorf("%w: empty page box %+v", ErrRasterization, box)
	}
	rotate := page.Rotate()
	scale := opts.DPI / 72
	if side := math.Max(box.Width, box.Height) * scale; side > maxDeviceSide {
		scale = maxDeviceSide / math.Max(box.Width, box.Height)
	}
	w := int(math.Ceil(box.Width*scale - 0.01))
	h := int(math.Ceil(box.Height*scale - 0.01))
	if rotate == 90 || rotate == 270 {
		w, h = h, w
	}
	w, h = max(w, 1), max(h, 1)

	cv := newCanvas(w, h, opts.Background)
	in := newInterpreter(ctx, r, cv, log)
	in.gs.CTM = deviceMatrix(box, rotate, scale)
	in.pushScope(page.Resources(), in.gs.CTM)

	for i, data := range contentStreams(page, log) {
		if err := in.run(data); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrRasterization, ctxErr)
			}
			log.Debug("content stream stopped early", slog.Int("stream", i), slog.Any("error", err))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRasterization, err)
	}
	return cv.img, nil
}

// deviceMatrix maps default user space onto a canvas whose origin is the
// top-left corner of the rotated box.
func deviceMatrix(box model.BBox, rotate int, s float64) model.Matrix {
	x0, y0 := box.X, box.Y
	x1, y1 := box.X+box.Width, box.Y+box.Height
	switch rotate {
	case 90:
		return model.Matrix{0, s, s, 0, -y0 * s, -x0 * s}
	case 180:
		return model.Matrix{-s, 0, 0, s, x1 * s, -y0 * s}
	case 270:
		return model.Matrix{0, -s, -s, 0, y1 * s, x1 * s}
	}
	return model.Matrix{s, 0, 0, -s, -x0 * s, y1 * s}
}

// contentStreams decodes each content stream of page separately so that a
// damaged stream only loses its own content.
func contentStreams(page *pages.Page, log *slog.Logger) [][]byte {
	streams, err := page.Contents()
	if err != nil {
		log.Debug("page contents unreadable", slog.Any("error", err))
		return nil
	}
	out := make([][]byte, 0, len(streams))
	for i, s := range streams {
		data, err := s.Decode()
		if err != nil {
			log.Debug("skipping content stream", slog.Int("stream", i), slog.Any("error", err))
			if len(data) == 0 {
				continue
			}
		}
		out = append(out, data)
	}
	return out
}
