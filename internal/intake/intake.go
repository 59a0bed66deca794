// Package intake validates uploaded videos and stores them in the upload
// directory for the lifetime of one request.
package intake

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/mediatypes"
	"gif-maker-live/internal/metrics"
)

// DefaultMaxBytes is the upload size limit (100 MiB).
const DefaultMaxBytes int64 = 100 * 1024 * 1024

var (
	// ErrInvalidExtension is returned for files outside the allow-list.
	ErrInvalidExtension = errors.New("invalid file type")
	// ErrTooLarge is returned for files above the size limit.
	ErrTooLarge = errors.New("file too large")
)

// Intake accepts uploads into dir.
type Intake struct {
	dir      string
	maxBytes int64
}

// New creates the upload directory if needed.
func New(dir string, maxBytes int64) (*Intake, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Intake{dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes returns the size limit.
func (in *Intake) MaxBytes() int64 {
	return in.maxBytes
}

// Upload is a validated file on disk.
type Upload struct {
	Path  string
	Name  string
	Size  int64
	FPS   int
	Width int
}

// Cleanup removes the stored file. It is safe to call more than once.
func (u *Upload) Cleanup() {
	if u == nil || u.Path == "" {
		return
	}
	if err := os.Remove(u.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to remove upload %s: %v", u.Path, err)
	}
}

// ValidateName checks the extension of a client-supplied file name.
func ValidateName(name string) (ext string, err error) {
	ext = strings.ToLower(filepath.Ext(name))
	if !mediatypes.IsAllowedUpload(ext) {
		return "", fmt.Errorf("%w. Allowed types: %s", ErrInvalidExtension, mediatypes.AllowedUploadList())
	}
	return ext, nil
}

// Accept validates and stores an upload. declaredSize may be -1 when the
// client did not send one. The extension is checked first, then the
// declared size, so an invalid upload never touches the disk. The body is
// copied through a limit and a file that turns out too large is removed.
func (in *Intake) Accept(r io.Reader, name string, declaredSize int64, fps, width int) (*Upload, error) {
	ext, err := ValidateName(name)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues(metrics.RejectExtension).Inc()
		return nil, err
	}

	if declaredSize > in.maxBytes {
		metrics.UploadsRejected.WithLabelValues(metrics.RejectSize).Inc()
		return nil, in.tooLarge()
	}

	path := filepath.Join(in.dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	upload := &Upload{Path: path, Name: filepath.Base(name), FPS: fps, Width: width}

	n, copyErr := io.Copy(f, io.LimitReader(r, in.maxBytes+1))
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		upload.Cleanup()
		return nil, fmt.Errorf("failed to store upload: %w", errors.Join(copyErr, closeErr))
	}
	if n > in.maxBytes {
		upload.Cleanup()
		metrics.UploadsRejected.WithLabelValues(metrics.RejectSize).Inc()
		return nil, in.tooLarge()
	}

	upload.Size = n
	logging.Debug("Stored upload %s as %s (%d bytes)", upload.Name, filepath.Base(path), n)
	return upload, nil
}

func (in *Intake) tooLarge() error {
	return fmt.Errorf("%w. Maximum size: %dMB", ErrTooLarge, in.maxBytes/(1024*1024))
}
