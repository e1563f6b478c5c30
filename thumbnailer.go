package pdfthumb

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tsawler/pdfthumb/config"
	"github.com/tsawler/pdfthumb/extract"
	"github.com/tsawler/pdfthumb/format"
	"github.com/tsawler/pdfthumb/internal/logging"
	"github.com/tsawler/pdfthumb/raster"
)

// SourceDocument identifies a PDF to thumbnail.
type SourceDocument struct {
	// Path is where the PDF is read from.
	Path string
	// Name is the logical name the thumbnail is stored and served under.
	// It must be a single path element.
	Name string
}

// Result is the outcome for one document of ThumbnailAll.
type Result struct {
	Doc       SourceDocument
	Reference string
	Err       error
}

// Option configures a Thumbnailer.
type Option func(*Thumbnailer)

// WithLogger sets the logger. The default is logging.New("thumbnailer").
func WithLogger(l *slog.Logger) Option {
	return func(t *Thumbnailer) {
		if l != nil {
			t.log = l
		}
	}
}

// Thumbnailer produces first-page thumbnails and their public references.
// It is safe for concurrent use.
type Thumbnailer struct {
	cfg   config.Config
	gate  *CacheGate
	log   *slog.Logger
	group singleflight.Group

	// render turns source bytes into an encoded image.
	render func(ctx context.Context, src []byte) ([]byte, error)
}

// New validates cfg and returns a Thumbnailer.
func New(cfg config.Config, opts ...Option) (*Thumbnailer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	t := &Thumbnailer{
		cfg:  cfg,
		gate: NewCacheGate(cfg.OutputDir, cfg.Format, cfg.CachePolicy),
		log:  logging.New("thumbnailer"),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.render = t.generate
	return t, nil
}

// Reference returns the public path of the thumbnail for name without
// touching the filesystem.
func (t *Thumbnailer) Reference(name string) (string, error) {
	ref, err := ReferencePath(t.cfg.PublicPrefix, name, t.cfg.Format)
	if err != nil {
		return "", &Error{Op: "reference", Name: name, Kind: ErrInvalidName, Err: err}
	}
	return ref, nil
}

// Thumbnail makes sure the thumbnail for doc exists and returns its public
// reference. On a cache miss the first page is rendered and written before
// Thumbnail returns.
//
// Concurrent calls for the same name share one generation. If ctx ends
// first, Thumbnail stops waiting with a "wait" error while the generation
// carries on for the other callers.
//
// Under the degrade failure policy a generation error is logged and the
// reference is returned with a nil error; under strict it is returned as a
// *Error. An invalid name is an error under both policies.
func (t *Thumbnailer) Thumbnail(ctx context.Context, doc SourceDocument) (string, error) {
	ref, err := t.Reference(doc.Name)
	if err != nil {
		return "", err
	}

	// The generation is shared by every caller waiting on doc.Name, so it
	// must not end when one of them gives up. cfg.Timeout still bounds it.
	ch := t.group.DoChan(doc.Name, func() (any, error) {
		return nil, t.ensure(context.WithoutCancel(ctx), doc)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = &Error{Op: "wait", Name: doc.Name, Kind: ErrRasterization, Err: ctx.Err()}
	}
	if res.Err == nil {
		return ref, nil
	}
	if t.cfg.FailurePolicy == config.FailStrict {
		return ref, res.Err
	}
	t.log.Error("thumbnail generation failed",
		slog.String("name", doc.Name),
		slog.String("source", doc.Path),
		slog.Bool("shared", res.Shared),
		slog.Any("err", res.Err),
	)
	return ref, nil
}

// ThumbnailAll runs Thumbnail for every document, at most
// cfg.Concurrency at a time. Results are in input order. The returned error
// is only set when ctx ends before every document was started.
func (t *Thumbnailer) ThumbnailAll(ctx context.Context, docs []SourceDocument) ([]Result, error) {
	results := make([]Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)
	for i, doc := range docs {
		results[i].Doc = doc
		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}
			ref, err := t.Thumbnail(gctx, doc)
			results[i].Reference = ref
			results[i].Err = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// ensure is the body of one generation.
func (t *Thumbnailer) ensure(ctx context.Context, doc SourceDocument) error {
	var (
		src    []byte
		digest string
		err    error
	)
	if t.cfg.CachePolicy == config.CacheContentHash {
		if src, err = t.readSource(doc); err != nil {
			return err
		}
		sum := sha256.Sum256(src)
		digest = hex.EncodeToString(sum[:])
	}

	decision, err := t.gate.Check(doc.Name, digest)
	if err != nil {
		return newError("check", doc.Name, err, ErrFilesystem)
	}
	if decision.Hit {
		t.log.Debug("thumbnail cached", slog.String("name", doc.Name), slog.String("path", decision.Path))
		return nil
	}

	if src == nil {
		if src, err = t.readSource(doc); err != nil {
			return err
		}
	}

	start := time.Now()
	img, err := t.render(ctx, src)
	if err != nil {
		return newError("render", doc.Name, err, ErrRasterization)
	}
	if got := format.DetectFromMagic(img); got != t.cfg.Format {
		return &Error{Op: "render", Name: doc.Name, Kind: ErrRasterization,
			Err: fmt.Errorf("rendered %s data, want %s", got, t.cfg.Format)}
	}
	if err := t.gate.Commit(decision.Path, img, digest); err != nil {
		return newError("commit", doc.Name, err, ErrFilesystem)
	}
	t.log.Info("thumbnail generated",
		slog.String("name", doc.Name),
		slog.String("path", decision.Path),
		slog.Int("bytes", len(img)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (t *Thumbnailer) readSource(doc SourceDocument) ([]byte, error) {
	src, err := os.ReadFile(doc.Path)
	if err != nil {
		return nil, &Error{Op: "read", Name: doc.Name, Kind: ErrFilesystem, Err: err}
	}
	return src, nil
}

// generate extracts the first page and rasterizes it.
func (t *Thumbnailer) generate(ctx context.Context, src []byte) ([]byte, error) {
	page, err := extract.FirstPage(src, extract.WithAllowEncrypted(t.cfg.AllowEncrypted))
	if err != nil {
		return nil, fmt.Errorf("extract first page: %w", err)
	}
	opts := t.cfg.RasterOptions()
	opts.Logger = t.log
	img, err := raster.Rasterize(ctx, page, opts)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	return img, nil
}
