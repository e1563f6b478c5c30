package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfthumb/internal/testpdf"
)

// execute runs the CLI in-process and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writePDF(t *testing.T, dir, name string, contents ...string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, testpdf.Document(612, 792, contents...), 0o644))
	return p
}

func TestPath(t *testing.T) {
	stdout, _, err := execute(t, "path", "report")
	require.NoError(t, err)
	assert.Equal(t, "/static/img/pdf-thumbnails/report.1.png\n", stdout)
}

func TestPathInvalidName(t *testing.T) {
	_, _, err := execute(t, "path", "../report")
	assert.Error(t, err)
}

func TestPathWithConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pdfthumb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("public_prefix: /thumbs\nformat: jpeg\n"), 0o644))

	stdout, _, err := execute(t, "path", "--config", cfgPath, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/thumbs/invoice.pdf.1.jpg\n", stdout)
}

func TestBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pdfthumb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("width: -3\n"), 0o644))

	_, _, err := execute(t, "path", "--config", cfgPath, "x")
	assert.ErrorContains(t, err, "width")
}

func TestGenerate(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "thumbs")
	a := writePDF(t, src, "invoice.pdf", "1 0 0 rg 0 0 612 792 re f", "0 1 0 rg 0 0 612 792 re f", "0 0 1 rg 0 0 612 792 re f")
	b := writePDF(t, src, "memo.pdf", "0 0 0 rg 100 100 50 50 re f")

	stdout, _, err := execute(t, "generate", "--out", out, a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/static/img/pdf-thumbnails/invoice.pdf.1.png",
		"/static/img/pdf-thumbnails/memo.pdf.1.png",
	}, strings.Fields(stdout))

	f, err := os.Open(filepath.Join(out, "invoice.pdf.1.png"))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 630, cfg.Width)
	assert.Equal(t, 891, cfg.Height)

	_, err = os.Stat(filepath.Join(out, "memo.pdf.1.png"))
	assert.NoError(t, err)
}

func TestGenerateDegradesByDefault(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	bad := filepath.Join(src, "broken.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))

	stdout, stderr, err := execute(t, "generate", "--out", out, bad)
	require.NoError(t, err)
	assert.Equal(t, "/static/img/pdf-thumbnails/broken.pdf.1.png\n", stdout)
	assert.Contains(t, stderr, "thumbnail generation failed")
}

func TestGenerateStrict(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	good := writePDF(t, src, "good.pdf", "0 0 m 10 10 l S")
	bad := filepath.Join(src, "broken.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))

	stdout, stderr, err := execute(t, "generate", "--strict", "--out", out, good, bad)
	assert.ErrorContains(t, err, "1 of 2 thumbnails failed")
	assert.Equal(t, "/static/img/pdf-thumbnails/good.pdf.1.png\n/static/img/pdf-thumbnails/broken.pdf.1.png\n", stdout)
	assert.Contains(t, stderr, "broken.pdf")
}

func TestGenerateKeepsOneLinePerInput(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	bad := filepath.Join(src, "broken.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("not a pdf"), 0o644))
	good := writePDF(t, src, "good.pdf", "0 0 m 10 10 l S")

	stdout, _, err := execute(t, "generate", "--strict", "--out", out, bad, string(filepath.Separator), good)
	assert.ErrorContains(t, err, "2 of 3 thumbnails failed")
	assert.Equal(t, []string{
		"/static/img/pdf-thumbnails/broken.pdf.1.png",
		"",
		"/static/img/pdf-thumbnails/good.pdf.1.png",
	}, strings.Split(strings.TrimSuffix(stdout, "\n"), "\n"))
}

func TestGenerateRequiresArgs(t *testing.T) {
	_, _, err := execute(t, "generate")
	assert.Error(t, err)
}
