package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pdfthumb/format"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Width != 630 || cfg.Height != 891 || cfg.DPI != 100 || cfg.Format != format.PNG {
		t.Errorf("defaults = %dx%d at %g dpi %s, want 630x891 at 100 dpi png", cfg.Width, cfg.Height, cfg.DPI, cfg.Format)
	}
	if !cfg.AllowEncrypted {
		t.Error("encrypted input should be accepted by default")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfthumb.yaml")
	content := `
output_dir: out/thumbs
width: 300
height: 400
format: jpeg
jpeg_quality: 70
cache_policy: content-hash
failure_policy: strict
timeout: 5s
log_format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	want := Default()
	want.OutputDir = "out/thumbs"
	want.Width, want.Height = 300, 400
	want.Format = format.JPEG
	want.JPEGQuality = 70
	want.CachePolicy = CacheContentHash
	want.FailurePolicy = FailStrict
	want.Timeout = 5 * time.Second
	want.LogFormat = "json"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	got, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("empty file should give the defaults (-want +got):\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown key", "colour: red\n", "colour"},
		{"bad format", "format: gif\n", "gif"},
		{"pdf format", "format: pdf\n", "format must be png or jpeg"},
		{"zero width", "width: 0\n", "width and height"},
		{"bad cache policy", "cache_policy: mtime\n", "cache_policy"},
		{"bad failure policy", "failure_policy: panic\n", "failure_policy"},
		{"negative timeout", "timeout: -1s\n", "timeout"},
		{"no workers", "concurrency: 0\n", "concurrency"},
		{"bad level", "log_level: loud\n", "loud"},
		{"jpeg quality", "format: jpeg\njpeg_quality: 101\n", "jpeg_quality"},
		{"empty output", "output_dir: ' '\n", "output_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Width = -1
	cfg.Concurrency = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"width", "concurrency"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestRasterOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.RasterOptions()
	if opts.Width != cfg.Width || opts.Height != cfg.Height || opts.DPI != cfg.DPI || opts.Timeout != cfg.Timeout {
		t.Errorf("RasterOptions = %+v", opts)
	}
	cfg.Timeout = 0
	if got := cfg.RasterOptions().Timeout; got >= 0 {
		t.Errorf("zero timeout should disable the limit, got %s", got)
	}
}
