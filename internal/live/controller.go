package live

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/capture"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/logging"
)

var (
	// ErrBusy is returned while a GIF is being created.
	ErrBusy = errors.New("a GIF is being created")
	// ErrRecording is returned by CreateGIF while recording is armed.
	ErrRecording = errors.New("recording in progress")
	// ErrNoRecording is returned by CreateGIF when no frames were recorded.
	ErrNoRecording = errors.New("no frames recorded")
	// ErrInvalidName is returned for empty output names or names containing
	// path separators.
	ErrInvalidName = errors.New("invalid output name")
	// ErrNoCamera is returned when no camera is available.
	ErrNoCamera = errors.New("no cameras found")
)

// timestampLayout is appended to output names: <base>_20060102_150405.gif
const timestampLayout = "20060102_150405"

// maxNameAttempts bounds the suffixes tried for one output name.
const maxNameAttempts = 100

const eventBuffer = 256

// EventKind identifies an Event.
type EventKind int

const (
	// EventStatus carries a human-readable status line.
	EventStatus EventKind = iota
	// EventFrame reports the frame count of the running recording.
	EventFrame
	// EventCapReached reports that the recording stopped at the frame cap.
	EventCapReached
	// EventCameraError reports that a camera could not be opened or read.
	EventCameraError
	// EventProgress reports conversion progress.
	EventProgress
	// EventJobDone carries the outcome of a GIF creation.
	EventJobDone
)

func (k EventKind) String() string {
	switch k {
	case EventStatus:
		return "status"
	case EventFrame:
		return "frame"
	case EventCapReached:
		return "cap reached"
	case EventCameraError:
		return "camera error"
	case EventProgress:
		return "progress"
	case EventJobDone:
		return "job done"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is published on the Events channel.
type Event struct {
	Kind     EventKind
	Message  string
	Frames   int
	Progress conversion.Progress
	Outcome  conversion.Outcome
}

// Opener opens the frame source for a selector.
type Opener func(selector int) (capture.Source, error)

// Config configures a Controller.
type Config struct {
	Converter *conversion.Converter
	OutputDir string
	Settings  capture.Settings

	Open      Opener
	Enumerate func() []int

	// Now stamps output names. Defaults to time.Now.
	Now func() time.Time
}

// Controller is the record / stop / create state machine.
type Controller struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	buf    *capture.Buffer
	events chan Event
	jobs   sync.WaitGroup

	// switchMu serializes pump replacement. It is never held by the pump
	// goroutine, so stopping a pump under it cannot deadlock.
	switchMu sync.Mutex
	pump     *capture.Pump
	selector int
	cameras  []int

	mu        sync.Mutex
	settings  capture.Settings
	armed     bool
	recording []capture.Frame
	busy      bool
}

// New validates cfg and creates the output directory.
func New(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Converter == nil {
		return nil, errors.New("live: converter is required")
	}
	if cfg.Open == nil {
		return nil, errors.New("live: opener is required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, err
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Controller{
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		buf:      capture.NewBuffer(),
		settings: cfg.Settings,
		events:   make(chan Event, eventBuffer),
		selector: -1,
	}
	if cfg.Enumerate != nil {
		c.cameras = cfg.Enumerate()
	}
	return c, nil
}

// Events delivers status updates. Frame and progress events are dropped
// when the reader falls behind.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Cameras returns the selectors found when the controller was created.
func (c *Controller) Cameras() []int {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()
	return slices.Clone(c.cameras)
}

// Selector returns the active camera, or -1 when none is open.
func (c *Controller) Selector() int {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()
	return c.selector
}

// Recording reports whether frames are being recorded.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Busy reports whether a GIF is being created.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Frames returns the frame count of the running recording, or of the last
// finished one.
func (c *Controller) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed {
		return c.buf.Len()
	}
	return len(c.recording)
}

// SwitchCamera stops the active pump, which closes its source, and starts
// a new one for selector. On failure no camera is active.
func (c *Controller) SwitchCamera(selector int) error {
	c.switchMu.Lock()
	defer c.switchMu.Unlock()

	c.stopPumpLocked()

	src, err := c.cfg.Open(selector)
	if err != nil {
		c.emit(Event{Kind: EventCameraError, Message: fmt.Sprintf("Camera Error: %v", err)})
		return err
	}

	c.selector = selector
	c.pump = capture.StartPump(c.ctx, src, nil, capture.PumpOptions{
		OnFrame: c.onFrame,
		OnError: c.onSourceError,
	})
	logging.Info("Camera %d active", selector)
	c.emit(Event{Kind: EventStatus, Message: fmt.Sprintf("Camera %d active", selector)})
	return nil
}

// NextCamera switches to the camera after the active one, wrapping around.
func (c *Controller) NextCamera() error {
	cameras := c.Cameras()
	if len(cameras) == 0 {
		c.emit(Event{Kind: EventStatus, Message: "No cameras found"})
		return ErrNoCamera
	}

	next := cameras[0]
	if i := slices.Index(cameras, c.Selector()); i >= 0 {
		next = cameras[(i+1)%len(cameras)]
	}
	return c.SwitchCamera(next)
}

func (c *Controller) stopPumpLocked() {
	if c.pump == nil {
		return
	}
	if err := c.pump.Stop(); err != nil {
		logging.Warn("failed to close camera %d: %v", c.selector, err)
	}
	c.pump = nil
	c.selector = -1
}

// onFrame runs on the pump goroutine. The push and the harvest at the cap
// happen under one lock so a concurrent toggle cannot split a recording.
func (c *Controller) onFrame(f capture.Frame, _ capture.PushResult) {
	c.mu.Lock()
	if !c.armed {
		c.mu.Unlock()
		return
	}
	result := c.buf.Push(f)
	n := c.buf.Len()
	if result == capture.Capped {
		c.armed = false
		c.recording = c.buf.Disarm()
		n = len(c.recording)
	}
	c.mu.Unlock()

	switch result {
	case capture.Accepted:
		c.emit(Event{Kind: EventFrame, Frames: n})
	case capture.Capped:
		logging.Info("Recording reached the frame cap (%d frames)", n)
		c.emit(Event{Kind: EventFrame, Frames: n})
		c.emit(Event{
			Kind:    EventCapReached,
			Frames:  n,
			Message: fmt.Sprintf("Maximum frame limit reached (%d frames)", n),
		})
	}
}

func (c *Controller) onSourceError(err error) {
	c.emit(Event{Kind: EventCameraError, Message: fmt.Sprintf("Camera Error: %v", err)})
}

// Settings returns the settings used by the next recording and GIF.
func (c *Controller) Settings() capture.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the recording settings. MaxFrames applies from the
// next recording; FPS and Width from the next CreateGIF. Changes are refused
// while recording or while a GIF is being created.
func (c *Controller) SetSettings(s capture.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	switch {
	case c.busy:
		c.mu.Unlock()
		return ErrBusy
	case c.armed:
		c.mu.Unlock()
		return ErrRecording
	}
	c.settings = s
	c.mu.Unlock()

	c.emit(Event{Kind: EventStatus, Message: fmt.Sprintf("Settings: %d fps, %dpx wide, up to %d frames", s.FPS, s.Width, s.MaxFrames)})
	return nil
}

// ToggleRecording arms the buffer, or stops the running recording and
// keeps its frames for CreateGIF. It returns whether recording is now on.
func (c *Controller) ToggleRecording() (bool, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return false, ErrBusy
	}

	if !c.armed {
		if err := c.buf.Arm(c.settings); err != nil {
			c.mu.Unlock()
			return false, err
		}
		c.armed = true
		c.recording = nil
		c.mu.Unlock()

		c.emit(Event{Kind: EventStatus, Message: "Recording... press r to finish"})
		return true, nil
	}

	c.armed = false
	c.recording = c.buf.Disarm()
	n := len(c.recording)
	c.mu.Unlock()

	if n > 0 {
		c.emit(Event{Kind: EventStatus, Frames: n, Message: fmt.Sprintf("Recording stopped. %d frames captured", n)})
	} else {
		c.emit(Event{Kind: EventStatus, Message: "No frames recorded"})
	}
	return false, nil
}

// CheckName trims base and rejects names that are empty or not a plain file
// name.
func CheckName(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" || strings.ContainsAny(base, `/\`) || base == "." || base == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, base)
	}
	return base, nil
}

// CreateGIF converts the last recording to <OutputDir>/<base>_<timestamp>.gif
// in the background and returns the output path. An existing file of that
// name is kept and the new GIF gets a numeric suffix. The outcome arrives as an
// EventJobDone event.
func (c *Controller) CreateGIF(base string) (string, error) {
	base, err := CheckName(base)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	switch {
	case c.busy:
		c.mu.Unlock()
		return "", ErrBusy
	case c.armed:
		c.mu.Unlock()
		return "", ErrRecording
	case len(c.recording) == 0:
		c.mu.Unlock()
		return "", ErrNoRecording
	}
	frames := slices.Clone(c.recording)
	s := c.settings
	c.busy = true
	c.mu.Unlock()

	output, err := c.reserveOutput(base)
	if err != nil {
		c.setBusy(false)
		return "", err
	}

	req, err := conversion.NewFramesRequest(frames, s.FPS, s.Width, output)
	if err != nil {
		removeReserved(output)
		c.setBusy(false)
		return "", err
	}

	c.emit(Event{Kind: EventStatus, Frames: len(frames), Message: fmt.Sprintf("Creating %s from %d frames", filepath.Base(output), len(frames))})

	done := c.cfg.Converter.Start(c.ctx, req, func(p conversion.Progress) {
		c.emit(Event{Kind: EventProgress, Progress: p, Message: fmt.Sprintf("%s (%d%%)", p.Stage, p.Percent)})
	})

	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		outcome := <-done
		c.setBusy(false)
		c.emitOutcome(outcome, len(frames))
	}()

	return output, nil
}

// reserveOutput creates an empty <base>_<timestamp>.gif so no earlier GIF is
// overwritten. A name taken in the same second gets a _2, _3, ... suffix.
func (c *Controller) reserveOutput(base string) (string, error) {
	stem := fmt.Sprintf("%s_%s", base, c.cfg.Now().Format(timestampLayout))
	for n := 1; n <= maxNameAttempts; n++ {
		name := stem + ".gif"
		if n > 1 {
			name = fmt.Sprintf("%s_%d.gif", stem, n)
		}
		path := filepath.Join(c.cfg.OutputDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", name, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: no free name for %s", ErrInvalidName, stem)
}

func removeReserved(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to remove %s: %v", path, err)
	}
}

func (c *Controller) setBusy(busy bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()
}

func (c *Controller) emitOutcome(o conversion.Outcome, frames int) {
	e := Event{Kind: EventJobDone, Outcome: o, Frames: frames}
	switch o.Status {
	case conversion.Succeeded:
		e.Message = fmt.Sprintf("GIF created successfully! %s, %d frames, %s",
			o.Artifact.ID, frames, artifacts.HumanSize(o.Artifact.Size))
	case conversion.TimedOut:
		e.Message = "GIF creation timed out"
	default:
		e.Message = fmt.Sprintf("GIF creation failed: %v", o.Err)
	}

	select {
	case c.events <- e:
	case <-c.ctx.Done():
	}
}

// emit never blocks. Dropping is only expected for frame and progress
// events, which are superseded by the next one.
func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
		if e.Kind != EventFrame && e.Kind != EventProgress {
			logging.Warn("dropped %s event: %s", e.Kind, e.Message)
		}
	}
}

// Close stops the active camera, cancels a running GIF job and waits for
// it to report.
func (c *Controller) Close() error {
	c.cancel()

	c.switchMu.Lock()
	c.stopPumpLocked()
	c.switchMu.Unlock()

	c.jobs.Wait()
	return nil
}
