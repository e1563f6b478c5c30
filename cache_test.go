package pdfthumb

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfthumb/config"
	"github.com/tsawler/pdfthumb/format"
)

func TestArtifactName(t *testing.T) {
	tests := []struct {
		name    string
		format  format.Format
		want    string
		wantErr bool
	}{
		{"invoice.pdf", format.PNG, "invoice.pdf.1.png", false},
		{"report", format.PNG, "report.1.png", false},
		{"report", format.JPEG, "report.1.jpg", false},
		{"with space.pdf", format.PNG, "with space.pdf.1.png", false},
		{"", format.PNG, "", true},
		{".", format.PNG, "", true},
		{"..", format.PNG, "", true},
		{"a/b.pdf", format.PNG, "", true},
		{`a\b.pdf`, format.PNG, "", true},
		{"nul\x00.pdf", format.PNG, "", true},
	}
	for _, tt := range tests {
		got, err := ArtifactName(tt.name, tt.format)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", tt.name)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestReferencePath(t *testing.T) {
	ref, err := ReferencePath(config.DefaultPublicPrefix, "report", format.PNG)
	require.NoError(t, err)
	assert.Equal(t, "/static/img/pdf-thumbnails/report.1.png", ref)

	ref, err = ReferencePath("/thumbs/", "report", format.PNG)
	require.NoError(t, err)
	assert.Equal(t, "/thumbs/report.1.png", ref)

	ref, err = ReferencePath("", "report", format.PNG)
	require.NoError(t, err)
	assert.Equal(t, "report.1.png", ref)
}

func TestCacheGatePresence(t *testing.T) {
	dir := t.TempDir()
	gate := NewCacheGate(dir, format.PNG, config.CachePresence)

	d, err := gate.Check("a.pdf", "")
	require.NoError(t, err)
	assert.False(t, d.Hit)
	assert.Equal(t, filepath.Join(dir, "a.pdf.1.png"), d.Path)

	require.NoError(t, gate.Commit(d.Path, []byte("image"), ""))

	d, err = gate.Check("a.pdf", "")
	require.NoError(t, err)
	assert.True(t, d.Hit)

	// Presence alone decides; a digest is not consulted.
	d, err = gate.Check("a.pdf", "anything")
	require.NoError(t, err)
	assert.True(t, d.Hit)

	_, err = os.Stat(d.Path + digestSuffix)
	assert.True(t, os.IsNotExist(err), "presence policy should not write a sidecar")
}

func TestCacheGateContentHash(t *testing.T) {
	dir := t.TempDir()
	gate := NewCacheGate(dir, format.PNG, config.CacheContentHash)

	d, err := gate.Check("a.pdf", "d1")
	require.NoError(t, err)
	require.False(t, d.Hit)
	require.NoError(t, gate.Commit(d.Path, []byte("image"), "d1"))

	d, err = gate.Check("a.pdf", "d1")
	require.NoError(t, err)
	assert.True(t, d.Hit, "same digest")

	d, err = gate.Check("a.pdf", "d2")
	require.NoError(t, err)
	assert.False(t, d.Hit, "changed source")

	require.NoError(t, os.Remove(d.Path+digestSuffix))
	d, err = gate.Check("a.pdf", "d1")
	require.NoError(t, err)
	assert.False(t, d.Hit, "missing sidecar")
}

func TestCacheGateCommitCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static", "img", "pdf-thumbnails")
	gate := NewCacheGate(dir, format.PNG, config.CachePresence)

	p, err := gate.Path("x.pdf")
	require.NoError(t, err)
	require.NoError(t, gate.Commit(p, []byte("one"), ""))
	require.NoError(t, gate.Commit(p, []byte("two"), ""))

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got), "last writer wins")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files should not be left behind")
	assert.Equal(t, "x.pdf.1.png", entries[0].Name())
}

func TestCacheGateConcurrentCommit(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "s.pdf.1.png")

	const writers = 8
	payloads := make([]string, writers)
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range writers {
		payloads[i] = strings.Repeat(string(rune('a'+i)), 64<<10)
		gate := NewCacheGate(dir, format.PNG, config.CachePresence)
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = gate.Commit(p, []byte(payloads[i]), "")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.True(t, slices.Contains(payloads, string(got)), "artifact is one complete payload")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files should not be left behind")
	assert.Equal(t, "s.pdf.1.png", entries[0].Name())
}

func TestCacheGateCheckRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	gate := NewCacheGate(dir, format.PNG, config.CachePresence)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.pdf.1.png"), 0o755))

	_, err := gate.Check("d.pdf", "")
	assert.ErrorIs(t, err, ErrFilesystem)
}

func TestCacheGateCommitFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	gate := NewCacheGate(filepath.Join(blocker, "sub"), format.PNG, config.CachePresence)
	p, err := gate.Path("x.pdf")
	require.NoError(t, err)
	assert.ErrorIs(t, gate.Commit(p, []byte("data"), ""), ErrFilesystem)
}
