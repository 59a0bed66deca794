package conversion

import (
	"errors"
	"image"
	"testing"

	"gif-maker-live/internal/capture"
)

func TestTargetHeight(t *testing.T) {
	tests := []struct {
		name          string
		w0, h0, width int
		want          int
	}{
		{"4:3 halved", 640, 480, 320, 240},
		{"16:9 to minimum width", 1920, 1080, 100, 56},
		{"rounds up", 3, 2, 100, 67},
		{"portrait", 480, 640, 300, 400},
		{"never zero", 8000, 10, 100, 1},
		{"invalid source", 0, 480, 320, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TargetHeight(tt.w0, tt.h0, tt.width); got != tt.want {
				t.Errorf("TargetHeight(%d, %d, %d) = %d, want %d", tt.w0, tt.h0, tt.width, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	fps := map[int]int{-5: 1, 0: 1, 1: 1, 10: 10, 30: 30, 31: 30, 1000: 30}
	for in, want := range fps {
		if got := ClampFPS(in); got != want {
			t.Errorf("ClampFPS(%d) = %d, want %d", in, got, want)
		}
	}

	widths := map[int]int{0: 100, 99: 100, 100: 100, 320: 320, 800: 800, 801: 800}
	for in, want := range widths {
		if got := ClampWidth(in); got != want {
			t.Errorf("ClampWidth(%d) = %d, want %d", in, got, want)
		}
	}
}

func testFrames(n, w, h int) []capture.Frame {
	frames := make([]capture.Frame, n)
	for i := range frames {
		frames[i] = capture.Frame{Seq: uint64(i + 1), Image: image.NewRGBA(image.Rect(0, 0, w, h))}
	}
	return frames
}

func TestNewFramesRequest(t *testing.T) {
	tests := []struct {
		name    string
		frames  []capture.Frame
		fps     int
		width   int
		output  string
		wantErr bool
	}{
		{"valid", testFrames(3, 64, 48), 8, 320, "out.gif", false},
		{"bounds inclusive", testFrames(1, 64, 48), 30, 800, "out.gif", false},
		{"no frames", nil, 8, 320, "out.gif", true},
		{"nil image", []capture.Frame{{Seq: 1}}, 8, 320, "out.gif", true},
		{"fps too low", testFrames(1, 64, 48), 0, 320, "out.gif", true},
		{"fps too high", testFrames(1, 64, 48), 31, 320, "out.gif", true},
		{"width too small", testFrames(1, 64, 48), 8, 99, "out.gif", true},
		{"width too large", testFrames(1, 64, 48), 8, 801, "out.gif", true},
		{"no output", testFrames(1, 64, 48), 8, 320, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewFramesRequest(tt.frames, tt.fps, tt.width, tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFramesRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("error = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if req.Source() != "frames" || req.FrameCount() != len(tt.frames) {
				t.Errorf("request = source %q with %d frames", req.Source(), req.FrameCount())
			}
		})
	}
}

func TestNewFileRequest(t *testing.T) {
	req, err := NewFileRequest("in.mp4", 10, 320, "out.gif")
	if err != nil {
		t.Fatalf("NewFileRequest() error = %v", err)
	}
	if req.Input() != "in.mp4" || req.Output() != "out.gif" || req.FPS() != 10 || req.Width() != 320 {
		t.Errorf("request fields = %q %q %d %d", req.Input(), req.Output(), req.FPS(), req.Width())
	}
	if req.Source() != "upload" {
		t.Errorf("Source() = %q, want upload", req.Source())
	}

	if _, err := NewFileRequest("", 10, 320, "out.gif"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("NewFileRequest() without input error = %v, want ErrInvalidRequest", err)
	}
}
