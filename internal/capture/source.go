package capture

import (
	"context"
	"errors"
)

var (
	// ErrDeviceUnavailable is returned when a source cannot be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrReadError is returned when a source fails to deliver a frame.
	ErrReadError = errors.New("frame read failed")
)

// Source yields frames until it fails or is closed. Implementations are
// not safe for concurrent use; a Pump is the only caller.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}
