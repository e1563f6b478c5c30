package pdfthumb

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tsawler/pdfthumb/config"
	"github.com/tsawler/pdfthumb/format"
)

// pageSuffix marks the artifact as a rendering of page 1.
const pageSuffix = ".1"

// digestSuffix names the sidecar used by the content-hash policy.
const digestSuffix = ".sha256"

// ArtifactName returns the file name of the thumbnail for a logical name,
// e.g. "invoice.pdf" -> "invoice.pdf.1.png".
func ArtifactName(name string, f format.Format) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return name + pageSuffix + "." + f.Extension(), nil
}

// ReferencePath joins a public prefix and the artifact name for name.
func ReferencePath(prefix, name string, f format.Format) (string, error) {
	file, err := ArtifactName(name, f)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return file, nil
	}
	return path.Join(prefix, file), nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Decision is the outcome of a cache check.
type Decision struct {
	// Path is where the artifact lives, whether or not it exists yet.
	Path string
	// Hit is true when the artifact can be served as is.
	Hit bool
}

// CacheGate decides whether a thumbnail must be generated and writes new
// ones atomically. It holds no state beyond its settings and is safe for
// concurrent use.
type CacheGate struct {
	dir    string
	format format.Format
	policy string
}

// NewCacheGate returns a gate for artifacts of format f under dir. policy is
// config.CachePresence or config.CacheContentHash.
func NewCacheGate(dir string, f format.Format, policy string) *CacheGate {
	return &CacheGate{dir: dir, format: f, policy: policy}
}

// Path returns the artifact path for name.
func (g *CacheGate) Path(name string) (string, error) {
	file, err := ArtifactName(name, g.format)
	if err != nil {
		return "", err
	}
	return filepath.Join(g.dir, file), nil
}

// Check reports whether the artifact for name exists. Under the
// content-hash policy it must also have been generated from a source whose
// SHA-256 is digest; under the presence policy digest is ignored.
func (g *CacheGate) Check(name, digest string) (Decision, error) {
	p, err := g.Path(name)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Path: p}

	info, err := os.Stat(p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return d, nil
	case err != nil:
		return d, fmt.Errorf("%w: stat %s: %w", ErrFilesystem, p, err)
	case !info.Mode().IsRegular():
		return d, fmt.Errorf("%w: %s is not a regular file", ErrFilesystem, p)
	}

	if g.policy != config.CacheContentHash {
		d.Hit = true
		return d, nil
	}
	recorded, err := os.ReadFile(p + digestSuffix)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return d, nil
	case err != nil:
		return d, fmt.Errorf("%w: read %s: %w", ErrFilesystem, p+digestSuffix, err)
	}
	d.Hit = digest != "" && string(bytes.TrimSpace(recorded)) == digest
	return d, nil
}

// Commit writes data to path through a temporary file in the same
// directory, so the artifact is either absent or complete. When digest is
// set the content-hash sidecar is written after the artifact.
func (g *CacheGate) Commit(path string, data []byte, digest string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create output directory: %w", ErrFilesystem, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	if digest == "" || g.policy != config.CacheContentHash {
		return nil
	}
	if err := writeAtomic(path+digestSuffix, []byte(digest+"\n")); err != nil {
		return fmt.Errorf("%w: %w", ErrFilesystem, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.New().String()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
