package artifacts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/metrics"
)

var (
	// ErrNotFound is returned when no artifact exists for an identifier.
	ErrNotFound = errors.New("artifact not found")
	// ErrInvalidIdentifier is returned for identifiers that could address a
	// path outside the output directory.
	ErrInvalidIdentifier = errors.New("invalid artifact identifier")
)

const (
	idPrefix = "output_"
	idSuffix = ".gif"
)

// Artifact describes a produced GIF.
type Artifact struct {
	ID     string
	Path   string
	Size   int64
	Width  int
	Height int
}

// Store is the ephemeral output directory.
type Store struct {
	dir string
}

// NewStore creates the output directory if needed and returns a Store for it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// ValidateID rejects empty identifiers and any containing "..", "/" or "\".
func ValidateID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}

// Allocate reserves a fresh identifier and returns it with its storage path.
// Nothing is written until the caller produces the file.
func (s *Store) Allocate() (id, path string) {
	id = idPrefix + uuid.NewString() + idSuffix
	return id, filepath.Join(s.dir, id)
}

// Save copies r into a newly allocated artifact.
func (s *Store) Save(r io.Reader) (*Artifact, error) {
	id, path := s.Allocate()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logging.Warn("failed to remove partial artifact %s: %v", path, rmErr)
		}
		return nil, fmt.Errorf("failed to write artifact: %w", errors.Join(copyErr, closeErr))
	}

	metrics.ArtifactBytes.Observe(float64(n))
	return &Artifact{ID: id, Path: path, Size: n}, nil
}

// Stat returns the artifact for id.
func (s *Store) Stat(id string) (*Artifact, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return &Artifact{ID: id, Path: path, Size: info.Size()}, nil
}

// Open opens the artifact for reading. The caller closes the file.
func (s *Store) Open(id string) (*os.File, os.FileInfo, error) {
	a, err := s.Stat(id)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, nil, fmt.Errorf("failed to open artifact: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return f, info, nil
}

// Clear removes every file in the output directory and returns the number
// of bytes freed.
func (s *Store) Clear() (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	var freedBytes int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			logging.Warn("failed to get info for %s: %v", path, err)
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Warn("failed to remove artifact %s: %v", path, err)
			continue
		}
		freedBytes += info.Size()
	}

	logging.Info("Cleared output directory: freed %d bytes", freedBytes)
	return freedBytes, nil
}

// GetStats reports the number and total size of GIFs in the output directory.
func (s *Store) GetStats() (metrics.Stats, error) {
	var stats metrics.Stats

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return stats, fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), idSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Artifacts++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// HumanSize renders a byte count the way the upload page displays it.
func HumanSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d bytes", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
