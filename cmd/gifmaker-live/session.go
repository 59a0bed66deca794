package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"gif-maker-live/internal/capture"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/live"
	"gif-maker-live/internal/logging"
)

// quitConfirmWindow is how long a first q during GIF creation waits for
// the second one.
const quitConfirmWindow = 5 * time.Second

// Step sizes of the setting keys.
const (
	fpsStep       = 1
	widthStep     = 20
	maxFramesStep = 30
)

const (
	keyCtrlC     = 3
	keyBackspace = 8
	keyEnter     = '\r'
	keyNewline   = '\n'
	keyEscape    = 27
	keyDelete    = 127
)

type sessionOptions struct {
	Name   string
	Camera int
	Output string
}

func listCameras(w io.Writer, cameras []int) {
	if len(cameras) == 0 {
		fmt.Fprintln(w, "No cameras found")
		return
	}
	for _, i := range cameras {
		fmt.Fprintf(w, "Camera %d\n", i)
	}
}

// console writes lines that stay readable while the terminal is in raw
// mode, where "\n" no longer returns the carriage.
type console struct {
	w io.Writer
	// inline is set while the last write was a \r-updated counter.
	inline bool
}

func (c *console) line(format string, args ...interface{}) {
	if c.inline {
		fmt.Fprint(c.w, "\r\n")
		c.inline = false
	}
	fmt.Fprintf(c.w, format+"\r\n", args...)
}

func (c *console) status(format string, args ...interface{}) {
	fmt.Fprintf(c.w, "\r"+format+"\033[K", args...)
	c.inline = true
}

// session is the key-driven loop around a live.Controller.
type session struct {
	ctrl *live.Controller
	out  *console
	opts sessionOptions
	now  func() time.Time

	quitRequested time.Time

	// draft holds the name being typed after e; nil when not renaming.
	draft []byte
}

func runSession(ctx context.Context, ctrl *live.Controller, opts sessionOptions) error {
	restore := enterRawMode(os.Stdin)
	defer restore()

	s := &session{ctrl: ctrl, out: &console{w: os.Stdout}, opts: opts, now: time.Now}
	s.printBanner()

	if err := ctrl.SwitchCamera(opts.Camera); err != nil {
		s.out.line("Camera %d unavailable: %v (press n to try the next one)", opts.Camera, err)
	}

	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	for {
		select {
		case <-ctx.Done():
			s.out.line("Interrupted")
			return nil
		case e := <-ctrl.Events():
			s.render(e)
		case k, ok := <-keys:
			if !ok {
				return s.waitForJob(ctx)
			}
			if s.handleKey(k) {
				return nil
			}
		}
	}
}

// enterRawMode switches a terminal stdin to raw mode so single key presses
// arrive without Enter. Piped input is left alone.
func enterRawMode(f *os.File) func() {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		logging.Warn("failed to enter raw terminal mode: %v", err)
		return func() {}
	}
	return func() {
		if err := term.Restore(fd, state); err != nil {
			logging.Warn("failed to restore terminal: %v", err)
		}
	}
}

func readKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			keys <- buf[0]
		}
		if err != nil {
			return
		}
	}
}

func (s *session) printBanner() {
	settings := s.ctrl.Settings()
	s.out.line("GIF Maker Live")
	s.out.line("  %d fps, %dpx wide, up to %d frames", settings.FPS, settings.Width, settings.MaxFrames)
	s.out.line("  Output: %s/%s_<timestamp>.gif", s.opts.Output, s.opts.Name)
	s.out.line("  Keys: [r] record/stop  [c] create GIF  [n] next camera  [q] quit")
	s.out.line("  Settings: [f/F] fps -/+  [w/W] width -/+  [x/X] max frames -/+  [e] rename")
}

// handleKey runs the command bound to k and reports whether to quit.
func (s *session) handleKey(k byte) bool {
	if s.draft != nil {
		s.editName(k)
		return false
	}

	switch k {
	case 'r', 'R':
		if _, err := s.ctrl.ToggleRecording(); err != nil {
			s.out.line("Cannot record: %v", err)
		}
	case 'c', 'C':
		if _, err := s.ctrl.CreateGIF(s.opts.Name); err != nil {
			s.out.line("Cannot create GIF: %v", describe(err))
		}
	case 'n', 'N':
		if err := s.ctrl.NextCamera(); err != nil {
			s.out.line("Cannot switch camera: %v", err)
		}
	case 'f':
		s.adjust(func(c *capture.Settings) { c.FPS = conversion.ClampFPS(c.FPS - fpsStep) })
	case 'F':
		s.adjust(func(c *capture.Settings) { c.FPS = conversion.ClampFPS(c.FPS + fpsStep) })
	case 'w':
		s.adjust(func(c *capture.Settings) { c.Width = conversion.ClampWidth(c.Width - widthStep) })
	case 'W':
		s.adjust(func(c *capture.Settings) { c.Width = conversion.ClampWidth(c.Width + widthStep) })
	case 'x':
		s.adjust(func(c *capture.Settings) { c.MaxFrames = clampMaxFrames(c.MaxFrames - maxFramesStep) })
	case 'X':
		s.adjust(func(c *capture.Settings) { c.MaxFrames = clampMaxFrames(c.MaxFrames + maxFramesStep) })
	case 'e', 'E':
		s.draft = []byte{}
		s.out.status("Name: ")
	case 'q', 'Q', keyCtrlC:
		return s.confirmQuit()
	}
	return false
}

func clampMaxFrames(n int) int {
	return min(max(n, capture.MinMaxFrames), capture.MaxMaxFrames)
}

// adjust applies change to the current settings. The controller reports the
// new values as a status event.
func (s *session) adjust(change func(*capture.Settings)) {
	settings := s.ctrl.Settings()
	change(&settings)
	if settings == s.ctrl.Settings() {
		return
	}
	if err := s.ctrl.SetSettings(settings); err != nil {
		s.out.line("Cannot change settings: %v", describe(err))
	}
}

// editName handles a key while the output name is being typed. Enter keeps
// the new name, Esc drops it.
func (s *session) editName(k byte) {
	switch k {
	case keyEnter, keyNewline:
		draft := string(s.draft)
		s.draft = nil
		name, err := live.CheckName(draft)
		if err != nil {
			s.out.line("Name unchanged: %v", err)
			return
		}
		s.opts.Name = name
		s.out.line("Output: %s/%s_<timestamp>.gif", s.opts.Output, name)
	case keyEscape, keyCtrlC:
		s.draft = nil
		s.out.line("Name unchanged: %s", s.opts.Name)
	case keyBackspace, keyDelete:
		if len(s.draft) > 0 {
			s.draft = s.draft[:len(s.draft)-1]
		}
		s.out.status("Name: %s", s.draft)
	default:
		if k >= ' ' && k < keyDelete {
			s.draft = append(s.draft, k)
		}
		s.out.status("Name: %s", s.draft)
	}
}

// confirmQuit quits at once unless a GIF is being created, in which case a
// second q within quitConfirmWindow is required.
func (s *session) confirmQuit() bool {
	if !s.ctrl.Busy() {
		return true
	}
	now := s.now()
	if !s.quitRequested.IsZero() && now.Sub(s.quitRequested) <= quitConfirmWindow {
		s.out.line("Aborting GIF creation")
		return true
	}
	s.quitRequested = now
	s.out.line("GIF creation is in progress. Press q again to abort it and quit.")
	return false
}

// waitForJob lets a running GIF finish when input ends.
func (s *session) waitForJob(ctx context.Context) error {
	if s.ctrl.Busy() {
		s.out.line("Input closed, waiting for the GIF to finish")
		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-s.ctrl.Events():
				s.render(e)
				if e.Kind == live.EventJobDone {
					return nil
				}
			}
		}
	}
	for {
		select {
		case e := <-s.ctrl.Events():
			s.render(e)
		default:
			return nil
		}
	}
}

func (s *session) render(e live.Event) {
	switch e.Kind {
	case live.EventFrame:
		s.out.status("Frames: %d/%d", e.Frames, s.ctrl.Settings().MaxFrames)
	case live.EventProgress:
		s.out.status("%s", e.Message)
	case live.EventCapReached, live.EventCameraError, live.EventStatus, live.EventJobDone:
		s.out.line("%s", e.Message)
	}
}

func describe(err error) string {
	switch {
	case errors.Is(err, live.ErrNoRecording):
		return "record something first (press r)"
	case errors.Is(err, live.ErrRecording):
		return "stop the recording first (press r)"
	case errors.Is(err, live.ErrInvalidName):
		return "--name must be a file name without path separators"
	default:
		return err.Error()
	}
}
