// Package config loads thumbnailer settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdfthumb/format"
	"github.com/tsawler/pdfthumb/internal/logging"
	"github.com/tsawler/pdfthumb/raster"
)

// Cache policies.
const (
	CachePresence    = "presence"
	CacheContentHash = "content-hash"
)

// Failure policies.
const (
	FailDegrade = "degrade"
	FailStrict  = "strict"
)

// DefaultPublicPrefix is where thumbnails are served from.
const DefaultPublicPrefix = "/static/img/pdf-thumbnails"

// Config holds every recognised option. Zero values are not defaults; use
// Default or Load. Timeout bounds rendering of one document; 0 disables the
// limit.
type Config struct {
	OutputDir      string        `yaml:"output_dir"`
	PublicPrefix   string        `yaml:"public_prefix"`
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
	DPI            float64       `yaml:"dpi"`
	Format         format.Format `yaml:"format"`
	JPEGQuality    int           `yaml:"jpeg_quality"`
	AllowEncrypted bool          `yaml:"allow_encrypted"`
	CachePolicy    string        `yaml:"cache_policy"`
	FailurePolicy  string        `yaml:"failure_policy"`
	Timeout        time.Duration `yaml:"timeout"`
	Concurrency    int           `yaml:"concurrency"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		OutputDir:      "static/img/pdf-thumbnails",
		PublicPrefix:   DefaultPublicPrefix,
		Width:          raster.DefaultWidth,
		Height:         raster.DefaultHeight,
		DPI:            raster.DefaultDPI,
		Format:         format.PNG,
		JPEGQuality:    format.DefaultJPEGQuality,
		AllowEncrypted: true,
		CachePolicy:    CachePresence,
		FailurePolicy:  FailDegrade,
		Timeout:        raster.DefaultTimeout,
		Concurrency:    4,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Unknown keys are an error.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("width and height must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.DPI <= 0 {
		errs = append(errs, fmt.Errorf("dpi must be positive, got %g", c.DPI))
	}
	if !c.Format.IsImage() {
		errs = append(errs, fmt.Errorf("format must be png or jpeg, got %s", c.Format))
	}
	if c.Format == format.JPEG && (c.JPEGQuality < 1 || c.JPEGQuality > 100) {
		errs = append(errs, fmt.Errorf("jpeg_quality must be 1-100, got %d", c.JPEGQuality))
	}
	switch c.CachePolicy {
	case CachePresence, CacheContentHash:
	default:
		errs = append(errs, fmt.Errorf("cache_policy must be %q or %q, got %q", CachePresence, CacheContentHash, c.CachePolicy))
	}
	switch c.FailurePolicy {
	case FailDegrade, FailStrict:
	default:
		errs = append(errs, fmt.Errorf("failure_policy must be %q or %q, got %q", FailDegrade, FailStrict, c.FailurePolicy))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// RasterOptions converts the rendering settings.
func (c Config) RasterOptions() raster.Options {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = -1
	}
	return raster.Options{
		Width:   c.Width,
		Height:  c.Height,
		DPI:     c.DPI,
		Format:  c.Format,
		Quality: c.JPEGQuality,
		Timeout: timeout,
	}
}
