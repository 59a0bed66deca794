package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/metrics"
)

var (
	// ErrConversion is returned when ffmpeg cannot be started, exits with a
	// non-zero status or its input cannot be written.
	ErrConversion = errors.New("conversion failed")
	// ErrConversionTimeout is returned when ffmpeg exceeds the timeout.
	ErrConversionTimeout = errors.New("conversion timed out")
)

const (
	// DefaultTimeout bounds a single ffmpeg invocation.
	DefaultTimeout = 120 * time.Second

	// waitDelay bounds how long Wait blocks on output pipes after the
	// process has been killed.
	waitDelay = 5 * time.Second

	maxStderrBytes = 4096
)

// ExitError reports a non-zero ffmpeg exit status with the tool's stderr.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("ffmpeg exited with status %d", e.Code)
	}
	return fmt.Sprintf("ffmpeg exited with status %d: %s", e.Code, msg)
}

// Unwrap makes errors.Is(err, ErrConversion) hold for exit failures.
func (e *ExitError) Unwrap() error {
	return ErrConversion
}

// Config holds the ffmpeg location and per-invocation timeout.
type Config struct {
	FFmpegPath string
	Timeout    time.Duration
}

// Transcoder invokes ffmpeg and tracks running processes.
type Transcoder struct {
	ffmpegPath string
	timeout    time.Duration

	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates a new Transcoder instance.
func New(cfg Config) *Transcoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Transcoder{
		ffmpegPath: cfg.FFmpegPath,
		timeout:    cfg.Timeout,
		processes:  make(map[string]*exec.Cmd),
	}
}

// FFmpegPath returns the configured ffmpeg executable.
func (t *Transcoder) FFmpegPath() string {
	return t.ffmpegPath
}

// Timeout returns the per-invocation timeout.
func (t *Transcoder) Timeout() time.Duration {
	return t.timeout
}

// Available reports whether the ffmpeg executable can be found.
func (t *Transcoder) Available() error {
	if _, err := exec.LookPath(t.ffmpegPath); err != nil {
		return fmt.Errorf("%w: ffmpeg not found: %w", ErrConversion, err)
	}
	return nil
}

// BuildGIFArgs returns the ffmpeg arguments that turn input into a looping
// GIF at fps frames per second, scaled to width with the height following
// the aspect ratio.
func BuildGIFArgs(input, output string, fps, width int) []string {
	return []string{
		"-y",
		"-i", input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", fps, width),
		"-loop", "0",
		output,
	}
}

// BuildIntermediateArgs returns the ffmpeg arguments that read raw RGBA
// frames of width x height from stdin and store them losslessly in output.
func BuildIntermediateArgs(output string, fps, width, height int) []string {
	return []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-i", "-",
		"-c:v", "ffv1",
		output,
	}
}

// ToGIF transcodes input into a GIF at output.
func (t *Transcoder) ToGIF(ctx context.Context, input, output string, fps, width int) error {
	return t.run(ctx, output, BuildGIFArgs(input, output, fps, width), nil)
}

// EncodeIntermediate starts ffmpeg reading raw RGBA frames from stdin and
// calls write with the pipe. The pipe is closed when write returns.
func (t *Transcoder) EncodeIntermediate(ctx context.Context, output string, fps, width, height int, write func(io.Writer) error) error {
	if write == nil {
		return fmt.Errorf("%w: no frame writer", ErrConversion)
	}
	return t.run(ctx, output, BuildIntermediateArgs(output, fps, width, height), write)
}

func (t *Transcoder) run(parent context.Context, key string, args []string, feed func(io.Writer) error) error {
	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var stdin io.WriteCloser
	if feed != nil {
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("%w: failed to create stdin pipe: %w", ErrConversion, err)
		}
		stdin = pipe
	}

	logging.Debug("Running %s %s", t.ffmpegPath, strings.Join(args, " "))

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start ffmpeg: %w", ErrConversion, err)
	}

	t.track(key, cmd)
	defer t.untrack(key)

	var feedErr error
	if feed != nil {
		feedErr = feed(stdin)
		if closeErr := stdin.Close(); feedErr == nil {
			feedErr = closeErr
		}
		if feedErr != nil {
			cancel()
		}
	}

	waitErr := cmd.Wait()

	// Only the transcoder's own bound is a timeout; a caller deadline is
	// reported as the caller's error below.
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logging.Warn("ffmpeg timed out after %v for %s", t.timeout, key)
		return fmt.Errorf("%w after %v", ErrConversionTimeout, t.timeout)
	}
	var exitErr *exec.ExitError
	exited := errors.As(waitErr, &exitErr) && exitErr.Exited()

	if feedErr != nil && !exited {
		return fmt.Errorf("%w: failed to write frames: %w", ErrConversion, feedErr)
	}
	if waitErr != nil {
		if parent.Err() != nil {
			return fmt.Errorf("%w: %w", ErrConversion, parent.Err())
		}
		if exitErr != nil {
			logging.Error("FFmpeg stderr: %s", stderr.String())
			return &ExitError{Code: exitErr.ExitCode(), Stderr: tail(stderr.String(), maxStderrBytes)}
		}
		return fmt.Errorf("%w: %w", ErrConversion, waitErr)
	}
	if feedErr != nil {
		return fmt.Errorf("%w: failed to write frames: %w", ErrConversion, feedErr)
	}

	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func (t *Transcoder) track(key string, cmd *exec.Cmd) {
	t.processMu.Lock()
	t.processes[key] = cmd
	t.processMu.Unlock()
	metrics.TranscoderProcessesActive.Inc()
}

func (t *Transcoder) untrack(key string) {
	t.processMu.Lock()
	delete(t.processes, key)
	t.processMu.Unlock()
	metrics.TranscoderProcessesActive.Dec()
}

// ActiveProcesses returns the number of running ffmpeg processes.
func (t *Transcoder) ActiveProcesses() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup stops all active ffmpeg processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for key, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing ffmpeg process for: %s", key)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill ffmpeg process for %s: %v", key, err)
			}
		}
	}
}
