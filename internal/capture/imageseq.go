package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoder

	"gif-maker-live/internal/mediatypes"
)

// ImageSequenceSource replays the still images of a directory, in name
// order, at a fixed rate. It stands in for a camera on headless hosts.
type ImageSequenceSource struct {
	paths    []string
	interval time.Duration
	loop     bool

	idx  int
	next time.Time
}

// OpenImageSequence lists the JPEG, PNG and WebP files in dir. A directory
// without usable images fails with ErrDeviceUnavailable.
func OpenImageSequence(dir string, fps int, loop bool) (*ImageSequenceSource, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: invalid rate %d", ErrDeviceUnavailable, fps)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !mediatypes.IsStill(filepath.Ext(entry.Name())) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, dir)
	}
	sort.Strings(paths)

	return &ImageSequenceSource{
		paths:    paths,
		interval: time.Second / time.Duration(fps),
		loop:     loop,
	}, nil
}

// Len returns the number of images in the sequence.
func (s *ImageSequenceSource) Len() int {
	return len(s.paths)
}

// Next waits for the next frame slot and decodes the next image. Once the
// sequence is exhausted without looping it returns ErrReadError wrapping
// io.EOF.
func (s *ImageSequenceSource) Next(ctx context.Context) (Frame, error) {
	if s.idx >= len(s.paths) {
		if !s.loop {
			return Frame{}, fmt.Errorf("%w: %w", ErrReadError, io.EOF)
		}
		s.idx = 0
	}

	if wait := time.Until(s.next); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Frame{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	path := s.paths[s.idx]
	s.idx++

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %s: %w", ErrReadError, filepath.Base(path), err)
	}

	now := time.Now()
	s.next = now.Add(s.interval)
	return Frame{Timestamp: now, Image: img}, nil
}

// Close releases the source. The sequence holds no open files between
// frames, so Close only prevents further reads.
func (s *ImageSequenceSource) Close() error {
	s.idx = len(s.paths)
	s.loop = false
	return nil
}
