package scratch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"videolab/internal/logging"

	"github.com/google/uuid"
)

// MaxUploadSize is the largest accepted upload in bytes (5 GiB).
const MaxUploadSize = 5 << 30

// Dir is a process-wide scratch directory for per-request transient files.
type Dir struct {
	path string
}

// New returns a Dir rooted at path. Call Init before use.
func New(path string) *Dir {
	return &Dir{path: path}
}

// DefaultPath returns the conventional scratch location under the platform
// temp root.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "videolab")
}

// Path returns the scratch directory path.
func (d *Dir) Path() string {
	return d.path
}

// Init creates the scratch directory if absent and purges any entries left
// over from a previous run. Purge failures on individual entries are logged
// and swallowed.
func (d *Dir) Init() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory %s: %w", d.path, err)
	}

	removed, err := d.Purge()
	if err != nil {
		return err
	}
	if removed > 0 {
		logging.Info("Purged %d stale scratch entries from %s", removed, d.path)
	}
	return nil
}

// Purge removes all entries in the scratch directory, best-effort, and
// returns the number removed.
func (d *Dir) Purge() (int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read scratch directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		p := filepath.Join(d.path, entry.Name())
		if err := os.RemoveAll(p); err != nil {
			logging.Warn("failed to remove scratch entry %s: %v", p, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// SaveUpload writes the inbound stream to a uniquely named file in the
// scratch directory and returns its path. The original filename is kept as
// a suffix to aid debugging; a random token prevents collisions between
// concurrent requests.
func (d *Dir) SaveUpload(r io.Reader, originalName string) (string, error) {
	name := fmt.Sprintf("%s_%s", uuid.NewString()[:12], sanitizeName(originalName))
	path := filepath.Join(d.path, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		d.Remove(path)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	if err := out.Close(); err != nil {
		d.Remove(path)
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}

	return path, nil
}

// OutputPath reserves a uniquely named output location in the scratch
// directory. The file is not created.
func (d *Dir) OutputPath(stem, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", uuid.NewString()[:12], sanitizeName(stem), ext)
	return filepath.Join(d.path, name)
}

// Remove deletes a scratch file, best-effort. A missing file or a delete
// race is not an error.
func (d *Dir) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove scratch file %s: %v", path, err)
	}
}

// Count returns the number of entries currently in the scratch directory.
func (d *Dir) Count() int {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return 0
	}
	return len(entries)
}

// sanitizeName reduces an untrusted client filename to a safe single path
// component. Path separators and control characters are stripped.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case r == '/' || r == ':':
			continue
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "upload"
	}
	return cleaned
}

// Stem returns the filename without directory or extension, used to build
// download names.
func Stem(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
