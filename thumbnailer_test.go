package pdfthumb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfthumb/config"
	"github.com/tsawler/pdfthumb/internal/testpdf"
	"github.com/tsawler/pdfthumb/raster"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type fixture struct {
	t     *testing.T
	cfg   config.Config
	th    *Thumbnailer
	src   string
	log   *bytes.Buffer
	calls atomic.Int32
}

// newFixture returns a Thumbnailer writing under a temp dir whose render
// step is counted.
func newFixture(t *testing.T, edit func(*config.Config)) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(root, "static", "img", "pdf-thumbnails")
	if edit != nil {
		edit(&cfg)
	}

	f := &fixture{t: t, cfg: cfg, src: filepath.Join(root, "src"), log: &bytes.Buffer{}}
	require.NoError(t, os.Mkdir(f.src, 0o755))

	logger := slog.New(slog.NewTextHandler(f.log, &slog.HandlerOptions{Level: slog.LevelDebug}))
	th, err := New(cfg, WithLogger(logger))
	require.NoError(t, err)
	render := th.render
	th.render = func(ctx context.Context, src []byte) ([]byte, error) {
		f.calls.Add(1)
		return render(ctx, src)
	}
	f.th = th
	return f
}

func (f *fixture) write(name string, data []byte) SourceDocument {
	f.t.Helper()
	p := filepath.Join(f.src, name)
	require.NoError(f.t, os.WriteFile(p, data, 0o644))
	return SourceDocument{Path: p, Name: name}
}

func (f *fixture) artifact(name string) string {
	return filepath.Join(f.cfg.OutputDir, name+".1.png")
}

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, pngSignature), "not a PNG file")
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func rgbAt(img image.Image, x, y int) (r, g, b uint8) {
	cr, cg, cb, _ := img.At(x, y).RGBA()
	return uint8(cr >> 8), uint8(cg >> 8), uint8(cb >> 8)
}

func TestThumbnailInvoice(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.write("invoice.pdf", testpdf.Document(612, 792,
		"1 0 0 rg 0 0 612 792 re f",
		"0 1 0 rg 0 0 612 792 re f",
		"0 0 1 rg 0 0 612 792 re f",
	))

	ref, err := f.th.Thumbnail(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "/static/img/pdf-thumbnails/invoice.pdf.1.png", ref)

	img := decodePNG(t, f.artifact("invoice.pdf"))
	assert.Equal(t, image.Rect(0, 0, 630, 891), img.Bounds())

	// First page only: the centre is red, not green or blue.
	r, g, b := rgbAt(img, 315, 445)
	assert.Greater(t, r, uint8(200))
	assert.Less(t, g, uint8(50))
	assert.Less(t, b, uint8(50))

	// Letter is wider than the thumbnail aspect, so the top row is padding.
	r, g, b = rgbAt(img, 315, 0)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
	assert.Contains(t, f.log.String(), "thumbnail generated")
}

func TestThumbnailIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.write("a.pdf", testpdf.Document(200, 200, "0 0 1 rg 10 10 100 100 re f"))
	ctx := context.Background()

	ref1, err := f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	first, err := os.ReadFile(f.artifact("a.pdf"))
	require.NoError(t, err)

	ref2, err := f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	second, err := os.ReadFile(f.artifact("a.pdf"))
	require.NoError(t, err)

	assert.Equal(t, ref1, ref2)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.calls.Load(), "second call should not render")
	assert.Contains(t, f.log.String(), "thumbnail cached")
}

func TestThumbnailPresenceIgnoresSourceChanges(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.write("a.pdf", testpdf.Document(100, 100, "1 0 0 rg 0 0 100 100 re f"))
	ctx := context.Background()

	_, err := f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	f.write("a.pdf", testpdf.Document(100, 100, "0 1 0 rg 0 0 100 100 re f"))
	_, err = f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.calls.Load())
	r, _, _ := rgbAt(decodePNG(t, f.artifact("a.pdf")), 315, 445)
	assert.Greater(t, r, uint8(200), "stale thumbnail is kept")
}

func TestThumbnailContentHash(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.CachePolicy = config.CacheContentHash })
	doc := f.write("a.pdf", testpdf.Document(100, 100, "1 0 0 rg 0 0 100 100 re f"))
	ctx := context.Background()

	_, err := f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	_, err = f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load(), "unchanged source is a hit")

	f.write("a.pdf", testpdf.Document(100, 100, "0 1 0 rg 0 0 100 100 re f"))
	_, err = f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load(), "changed source is regenerated")

	_, g, _ := rgbAt(decodePNG(t, f.artifact("a.pdf")), 315, 445)
	assert.Greater(t, g, uint8(200))
	_, err = os.Stat(f.artifact("a.pdf") + digestSuffix)
	assert.NoError(t, err)
}

func TestThumbnailReferenceIsDeterministic(t *testing.T) {
	f := newFixture(t, nil)
	for range 3 {
		ref, err := f.th.Reference("report")
		require.NoError(t, err)
		assert.Equal(t, "/static/img/pdf-thumbnails/report.1.png", ref)
	}
	_, err := os.Stat(f.cfg.OutputDir)
	assert.True(t, os.IsNotExist(err), "Reference must not touch the filesystem")
}

func TestThumbnailInvalidName(t *testing.T) {
	for _, policy := range []string{config.FailDegrade, config.FailStrict} {
		f := newFixture(t, func(c *config.Config) { c.FailurePolicy = policy })
		ref, err := f.th.Thumbnail(context.Background(), SourceDocument{Path: "x.pdf", Name: "../escape.pdf"})
		assert.ErrorIs(t, err, ErrInvalidName, policy)
		assert.Empty(t, ref)

		var terr *Error
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "reference", terr.Op)
	}
}

func TestThumbnailEmptyDocument(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.FailurePolicy = config.FailStrict })
	doc := f.write("empty.pdf", testpdf.Document(612, 792))

	ref, err := f.th.Thumbnail(context.Background(), doc)
	assert.ErrorIs(t, err, ErrEmptyDocument)
	assert.Equal(t, "/static/img/pdf-thumbnails/empty.pdf.1.png", ref)
	_, statErr := os.Stat(f.artifact("empty.pdf"))
	assert.True(t, os.IsNotExist(statErr), "no file for an empty document")
}

func TestThumbnailCorruptInputKeepsCache(t *testing.T) {
	// Content-hash makes the corrupt source a miss, so generation runs.
	f := newFixture(t, func(c *config.Config) {
		c.FailurePolicy = config.FailStrict
		c.CachePolicy = config.CacheContentHash
	})
	doc := f.write("c.pdf", testpdf.Document(100, 100, "1 0 0 rg 0 0 100 100 re f"))
	ctx := context.Background()

	_, err := f.th.Thumbnail(ctx, doc)
	require.NoError(t, err)
	before, err := os.ReadFile(f.artifact("c.pdf"))
	require.NoError(t, err)

	f.write("c.pdf", []byte("this is not a pdf"))
	ref, err := f.th.Thumbnail(ctx, doc)
	assert.ErrorIs(t, err, ErrDocumentParse)
	assert.Equal(t, "/static/img/pdf-thumbnails/c.pdf.1.png", ref)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "render", terr.Op)
	assert.Equal(t, "c.pdf", terr.Name)
	assert.Equal(t, ErrDocumentParse, terr.Kind)

	after, err := os.ReadFile(f.artifact("c.pdf"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestThumbnailDegrade(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.write("bad.pdf", []byte("%PDF-1.7\ngarbage"))

	ref, err := f.th.Thumbnail(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "/static/img/pdf-thumbnails/bad.pdf.1.png", ref)
	assert.Contains(t, f.log.String(), "thumbnail generation failed")
	assert.Contains(t, f.log.String(), "level=ERROR")

	_, statErr := os.Stat(f.artifact("bad.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestThumbnailMissingSource(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.FailurePolicy = config.FailStrict })
	_, err := f.th.Thumbnail(context.Background(), SourceDocument{
		Path: filepath.Join(f.src, "missing.pdf"),
		Name: "missing.pdf",
	})
	assert.ErrorIs(t, err, ErrFilesystem)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, int32(0), f.calls.Load())

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "read", terr.Op)
}

func TestThumbnailRasterizationTimeout(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.FailurePolicy = config.FailStrict })
	doc := f.write("slow.pdf", testpdf.Document(100, 100, "0 0 m 10 10 l S"))
	f.th.render = func(ctx context.Context, _ []byte) ([]byte, error) {
		return nil, fmt.Errorf("rasterize: %w: %w", raster.ErrRasterization, context.DeadlineExceeded)
	}

	_, err := f.th.Thumbnail(context.Background(), doc)
	assert.ErrorIs(t, err, ErrRasterization)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, ErrFilesystem))
}

func TestThumbnailConcurrentSameName(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.write("same.pdf", testpdf.Document(300, 300, "0 0 0 rg 50 50 200 200 re f"))

	const callers = 8
	var wg sync.WaitGroup
	refs := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refs[i], errs[i] = f.th.Thumbnail(context.Background(), doc)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, "/static/img/pdf-thumbnails/same.pdf.1.png", refs[i])
	}
	assert.Equal(t, int32(1), f.calls.Load(), "one generation per name")
	assert.Equal(t, image.Rect(0, 0, 630, 891), decodePNG(t, f.artifact("same.pdf")).Bounds())
}

func TestThumbnailCancelledCallerLeavesSharedGeneration(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.FailurePolicy = config.FailStrict })
	doc := f.write("shared.pdf", testpdf.Document(200, 200, "0 0 1 rg 0 0 200 200 re f"))

	started := make(chan struct{})
	release := make(chan struct{})
	renderCtxErr := make(chan error, 1)
	render := f.th.render
	f.th.render = func(ctx context.Context, src []byte) ([]byte, error) {
		close(started)
		<-release
		renderCtxErr <- ctx.Err()
		return render(ctx, src)
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := f.th.Thumbnail(ctxA, doc)
		errA <- err
	}()
	<-started

	errB := make(chan error, 1)
	go func() {
		_, err := f.th.Thumbnail(context.Background(), doc)
		errB <- err
	}()
	// Give the second caller time to join the in-flight generation.
	time.Sleep(20 * time.Millisecond)

	cancelA()
	err := <-errA
	assert.ErrorIs(t, err, context.Canceled)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "wait", terr.Op)

	close(release)
	require.NoError(t, <-errB)
	assert.NoError(t, <-renderCtxErr, "generation saw the first caller's cancellation")
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, image.Rect(0, 0, 630, 891), decodePNG(t, f.artifact("shared.pdf")).Bounds())
}

func TestThumbnailSharedOutputDir(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(root, "thumbs")
	cfg.FailurePolicy = config.FailStrict
	src := filepath.Join(root, "s.pdf")
	require.NoError(t, os.WriteFile(src, testpdf.Document(300, 300, "1 0 0 rg 0 0 300 300 re f"), 0o644))
	doc := SourceDocument{Path: src, Name: "s.pdf"}

	// Independent Thumbnailers share no singleflight group, like separate
	// processes serving the same directory.
	const writers = 8
	var ths []*Thumbnailer
	for range writers {
		th, err := New(cfg, WithLogger(slog.New(slog.DiscardHandler)))
		require.NoError(t, err)
		ths = append(ths, th)
	}

	start := make(chan struct{})
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i, th := range ths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = th.Thumbnail(context.Background(), doc)
		}()
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files should not be left behind")
	assert.Equal(t, "s.pdf.1.png", entries[0].Name())
	assert.Equal(t, image.Rect(0, 0, 630, 891), decodePNG(t, filepath.Join(cfg.OutputDir, "s.pdf.1.png")).Bounds())
}

func TestThumbnailAll(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Concurrency = 2 })
	var docs []SourceDocument
	for i := range 5 {
		name := fmt.Sprintf("doc%d.pdf", i)
		docs = append(docs, f.write(name, testpdf.Document(100, 100, "0 0 1 rg 0 0 50 50 re f")))
	}
	docs = append(docs, SourceDocument{Path: "nowhere.pdf", Name: "a/b"})

	results, err := f.th.ThumbnailAll(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, len(docs))

	for i, res := range results[:5] {
		assert.Equal(t, docs[i], res.Doc)
		assert.NoError(t, res.Err)
		assert.Equal(t, fmt.Sprintf("/static/img/pdf-thumbnails/doc%d.pdf.1.png", i), res.Reference)
		decodePNG(t, f.artifact(res.Doc.Name))
	}
	assert.ErrorIs(t, results[5].Err, ErrInvalidName)

	entries, err := os.ReadDir(f.cfg.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 5, "no temporary files are left behind")
}

func TestThumbnailAllCancelled(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.write("a.pdf", testpdf.Document(100, 100, "0 0 m 1 1 l S"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := f.th.ThumbnailAll(ctx, []SourceDocument{doc, doc})
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Concurrency = 0
	_, err := New(cfg)
	assert.ErrorContains(t, err, "concurrency")
}

func TestThumbnailRejectsNonImageOutput(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.FailurePolicy = config.FailStrict })
	doc := f.write("odd.pdf", testpdf.Document(100, 100, "0 0 m 1 1 l S"))
	f.th.render = func(context.Context, []byte) ([]byte, error) {
		return []byte("%PDF-1.7\n"), nil
	}

	_, err := f.th.Thumbnail(context.Background(), doc)
	assert.ErrorIs(t, err, ErrRasterization)
	_, statErr := os.Stat(f.artifact("odd.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}
