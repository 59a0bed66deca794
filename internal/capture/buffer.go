package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gif-maker-live/internal/metrics"
)

// Frame limits for a single recording.
const (
	MinMaxFrames     = 1
	MaxMaxFrames     = 300
	DefaultMaxFrames = 150
)

// ErrInvalidSettings is returned by Arm for out-of-range settings.
var ErrInvalidSettings = errors.New("invalid capture settings")

// Frame is one decoded image from a Source.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Image     image.Image
}

// Settings configures a recording. FPS and Width are carried through to
// the conversion of the recorded frames.
type Settings struct {
	MaxFrames int
	FPS       int
	Width     int
}

// Validate checks that MaxFrames is within [MinMaxFrames, MaxMaxFrames] and
// that FPS and Width are positive.
func (s Settings) Validate() error {
	if s.MaxFrames < MinMaxFrames || s.MaxFrames > MaxMaxFrames {
		return fmt.Errorf("%w: max frames %d outside [%d, %d]", ErrInvalidSettings, s.MaxFrames, MinMaxFrames, MaxMaxFrames)
	}
	if s.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidSettings, s.FPS)
	}
	if s.Width <= 0 {
		return fmt.Errorf("%w: width %d", ErrInvalidSettings, s.Width)
	}
	return nil
}

// PushResult tells the caller what happened to a pushed frame.
type PushResult int

const (
	// Ignored means the buffer was not armed.
	Ignored PushResult = iota
	// Accepted means the frame was appended.
	Accepted
	// Capped means the frame was appended and filled the buffer, which is
	// now disarmed.
	Capped
)

func (r PushResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case Capped:
		return "capped"
	default:
		return "ignored"
	}
}

// Buffer is a bounded, append-only frame sequence for one recording at a
// time. It is safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	armed    bool
	frames   []Frame
	settings Settings
}

// NewBuffer returns a disarmed, empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Arm discards any previous frames and starts accepting new ones.
func (b *Buffer) Arm(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.settings = s
	b.frames = make([]Frame, 0, min(s.MaxFrames, 64))
	b.armed = true
	return nil
}

// Push appends f if the buffer is armed. The push that reaches the cap
// disarms the buffer in the same critical section.
func (b *Buffer) Push(f Frame) PushResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.armed {
		return Ignored
	}

	b.frames = append(b.frames, f)
	metrics.CaptureFramesTotal.Inc()

	if len(b.frames) >= b.settings.MaxFrames {
		b.armed = false
		metrics.CaptureSessionsTotal.WithLabelValues(metrics.SessionCapped).Inc()
		return Capped
	}
	return Accepted
}

// Disarm stops accepting frames and hands over the recorded sequence. The
// buffer is left empty.
func (b *Buffer) Disarm() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.armed {
		b.armed = false
		metrics.CaptureSessionsTotal.WithLabelValues(metrics.SessionStopped).Inc()
	}

	frames := b.frames
	b.frames = nil
	return frames
}

// Armed reports whether the buffer is accepting frames.
func (b *Buffer) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Settings returns the settings of the current or last recording.
func (b *Buffer) Settings() Settings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.settings
}
