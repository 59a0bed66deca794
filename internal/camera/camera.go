// Package camera provides a capture.Source backed by an OpenCV video
// device through gocv.
package camera

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"gif-maker-live/internal/capture"
	"gif-maker-live/internal/logging"
)

// MaxProbe is the number of device indices Enumerate tries.
const MaxProbe = 5

// Source reads frames from one video device.
type Source struct {
	index   int
	webcam  *gocv.VideoCapture
	img     gocv.Mat
	started time.Time
}

// Open opens the camera at index.
func Open(index int) (*Source, error) {
	webcam, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %w", capture.ErrDeviceUnavailable, index, err)
	}
	if !webcam.IsOpened() {
		_ = webcam.Close()
		return nil, fmt.Errorf("%w: camera %d", capture.ErrDeviceUnavailable, index)
	}

	width := int(webcam.Get(gocv.VideoCaptureFrameWidth))
	height := int(webcam.Get(gocv.VideoCaptureFrameHeight))
	logging.Info("Opened camera %d (%dx%d)", index, width, height)

	return &Source{
		index:   index,
		webcam:  webcam,
		img:     gocv.NewMat(),
		started: time.Now(),
	}, nil
}

// Index returns the device index.
func (s *Source) Index() int {
	return s.index
}

// Next blocks until the device delivers a frame. gocv reads cannot be
// interrupted, so ctx is only checked between reads.
func (s *Source) Next(ctx context.Context) (capture.Frame, error) {
	if err := ctx.Err(); err != nil {
		return capture.Frame{}, err
	}

	if ok := s.webcam.Read(&s.img); !ok || s.img.Empty() {
		return capture.Frame{}, fmt.Errorf("%w: camera %d returned no frame", capture.ErrReadError, s.index)
	}

	img, err := s.img.ToImage()
	if err != nil {
		return capture.Frame{}, fmt.Errorf("%w: camera %d: %w", capture.ErrReadError, s.index, err)
	}

	return capture.Frame{Timestamp: time.Now(), Image: img}, nil
}

// Close releases the device.
func (s *Source) Close() error {
	logging.Debug("Closing camera %d after %v", s.index, time.Since(s.started).Round(time.Second))
	return errors.Join(s.img.Close(), s.webcam.Close())
}

// Enumerate returns the indices of the devices that can be opened,
// probing indices 0 to MaxProbe-1.
func Enumerate() []int {
	var found []int
	for i := 0; i < MaxProbe; i++ {
		webcam, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		if webcam.IsOpened() {
			found = append(found, i)
		}
		if err := webcam.Close(); err != nil {
			logging.Debug("failed to close probed camera %d: %v", i, err)
		}
	}
	return found
}
