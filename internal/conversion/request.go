package conversion

import (
	"errors"
	"fmt"
	"math"

	"gif-maker-live/internal/capture"
	"gif-maker-live/internal/metrics"
)

// Parameter ranges and defaults.
const (
	MinFPS     = 1
	MaxFPS     = 30
	DefaultFPS = 10

	MinWidth     = 100
	MaxWidth     = 800
	DefaultWidth = 320
)

// ErrInvalidRequest is returned for requests with out-of-range parameters
// or no input.
var ErrInvalidRequest = errors.New("invalid conversion request")

// ClampFPS limits fps to [MinFPS, MaxFPS].
func ClampFPS(fps int) int {
	return min(max(fps, MinFPS), MaxFPS)
}

// ClampWidth limits width to [MinWidth, MaxWidth].
func ClampWidth(width int) int {
	return min(max(width, MinWidth), MaxWidth)
}

// TargetHeight returns the height that keeps the w0:h0 aspect ratio at the
// given width, rounded to the nearest pixel and never below 1.
func TargetHeight(w0, h0, width int) int {
	if w0 <= 0 || h0 <= 0 {
		return 0
	}
	h := int(math.Round(float64(width) * float64(h0) / float64(w0)))
	return max(h, 1)
}

// Request is an immutable description of one conversion.
type Request struct {
	frames []capture.Frame
	input  string
	fps    int
	width  int
	output string
}

func validateParams(fps, width int, output string) error {
	if fps < MinFPS || fps > MaxFPS {
		return fmt.Errorf("%w: fps %d outside [%d, %d]", ErrInvalidRequest, fps, MinFPS, MaxFPS)
	}
	if width < MinWidth || width > MaxWidth {
		return fmt.Errorf("%w: width %d outside [%d, %d]", ErrInvalidRequest, width, MinWidth, MaxWidth)
	}
	if output == "" {
		return fmt.Errorf("%w: no output path", ErrInvalidRequest)
	}
	return nil
}

// NewFramesRequest describes the conversion of a recorded frame sequence.
// The slice is owned by the request from here on.
func NewFramesRequest(frames []capture.Frame, fps, width int, output string) (*Request, error) {
	if err := validateParams(fps, width, output); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrInvalidRequest)
	}
	for i, f := range frames {
		if f.Image == nil || f.Image.Bounds().Empty() {
			return nil, fmt.Errorf("%w: frame %d is empty", ErrInvalidRequest, i)
		}
	}
	return &Request{frames: frames, fps: fps, width: width, output: output}, nil
}

// NewFileRequest describes the conversion of a video file on disk.
func NewFileRequest(input string, fps, width int, output string) (*Request, error) {
	if err := validateParams(fps, width, output); err != nil {
		return nil, err
	}
	if input == "" {
		return nil, fmt.Errorf("%w: no input file", ErrInvalidRequest)
	}
	return &Request{input: input, fps: fps, width: width, output: output}, nil
}

// FPS returns the target frame rate.
func (r *Request) FPS() int { return r.fps }

// Width returns the target width in pixels.
func (r *Request) Width() int { return r.width }

// Output returns the path the GIF is written to.
func (r *Request) Output() string { return r.output }

// Input returns the source file, or "" for a frame sequence.
func (r *Request) Input() string { return r.input }

// FrameCount returns the number of frames, or 0 for a file.
func (r *Request) FrameCount() int { return len(r.frames) }

// Source returns the metric label for the request's input kind.
func (r *Request) Source() string {
	if r.frames != nil {
		return metrics.SourceFrames
	}
	return metrics.SourceUpload
}
