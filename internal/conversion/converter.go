package conversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/metrics"
	"gif-maker-live/internal/transcoder"
	"gif-maker-live/internal/workers"
)

// Stage names a progress milestone.
type Stage string

const (
	StageEncoding    Stage = "encoding intermediate"
	StageTranscoding Stage = "transcoding"
	StageDone        Stage = "done"
)

// Progress is an advisory milestone report.
type Progress struct {
	Stage   Stage
	Percent int
}

// ProgressFunc receives progress reports on the converting goroutine.
type ProgressFunc func(Progress)

// progressEvery is the frame interval between encoding reports.
const progressEvery = 5

// Options configures a Converter.
type Options struct {
	// TempDir holds intermediate containers. Defaults to os.TempDir().
	TempDir string
	// Workers bounds concurrent jobs. Defaults to workers.ForCPU(4).
	Workers int
	// Probe reads the real GIF dimensions back with ffprobe.
	Probe bool
}

// Converter runs conversion jobs.
type Converter struct {
	trans   *transcoder.Transcoder
	tempDir string
	limiter *workers.Limiter
	probe   bool
}

// New creates a Converter that invokes ffmpeg through trans.
func New(trans *transcoder.Transcoder, opts Options) *Converter {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Workers <= 0 {
		opts.Workers = workers.ForCPU(4)
	}

	return &Converter{
		trans:   trans,
		tempDir: opts.TempDir,
		limiter: workers.NewLimiter(opts.Workers),
		probe:   opts.Probe,
	}
}

// Workers returns the number of jobs that may run at once.
func (c *Converter) Workers() int {
	return c.limiter.Cap()
}

// Convert runs req to completion. It fails with transcoder.ErrConversion or
// transcoder.ErrConversionTimeout; in both cases no intermediate file is
// left behind and the output path is removed, including a placeholder the
// caller created to reserve it.
func (c *Converter) Convert(ctx context.Context, req *Request, progress ProgressFunc) (*artifacts.Artifact, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if progress == nil {
		progress = func(Progress) {}
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		removeIfExists(req.output)
		return nil, fmt.Errorf("%w: waiting for a worker: %w", transcoder.ErrConversion, err)
	}
	defer c.limiter.Release()

	source := req.Source()
	start := time.Now()
	metrics.ConversionsInFlight.Inc()
	defer metrics.ConversionsInFlight.Dec()

	art, err := c.convert(ctx, req, progress)

	metrics.ConversionDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	metrics.ConversionsTotal.WithLabelValues(source, StatusOf(err).metricLabel()).Inc()

	if err != nil {
		removeIfExists(req.output)
		logging.Error("Conversion to %s failed after %v: %v", filepath.Base(req.output), time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}

	metrics.ArtifactBytes.Observe(float64(art.Size))
	logging.Info("Converted %s to %s (%s, %dx%d) in %v", source, art.ID, artifacts.HumanSize(art.Size),
		art.Width, art.Height, time.Since(start).Round(time.Millisecond))
	return art, nil
}

func (c *Converter) convert(ctx context.Context, req *Request, progress ProgressFunc) (*artifacts.Artifact, error) {
	input := req.input
	height := 0

	if req.frames != nil {
		bounds := req.frames[0].Image.Bounds()
		height = TargetHeight(bounds.Dx(), bounds.Dy(), req.width)

		intermediate := filepath.Join(c.tempDir, "frames_"+uuid.NewString()+".mkv")
		defer removeIfExists(intermediate)

		if err := c.encodeFrames(ctx, req, intermediate, height, progress); err != nil {
			return nil, err
		}
		input = intermediate
	}

	progress(Progress{Stage: StageTranscoding, Percent: 50})

	if err := c.trans.ToGIF(ctx, input, req.output, req.fps, req.width); err != nil {
		return nil, err
	}

	info, err := os.Stat(req.output)
	if err != nil {
		return nil, fmt.Errorf("%w: output missing: %w", transcoder.ErrConversion, err)
	}

	art := &artifacts.Artifact{
		ID:     filepath.Base(req.output),
		Path:   req.output,
		Size:   info.Size(),
		Width:  req.width,
		Height: height,
	}

	if c.probe {
		if media, err := c.trans.Probe(ctx, req.output); errors.Is(err, transcoder.ErrProbeUnavailable) {
			logging.Debug("skipping probe of %s: %v", art.ID, err)
		} else if err != nil {
			logging.Warn("failed to probe %s: %v", art.ID, err)
		} else {
			art.Width, art.Height = media.Width, media.Height
		}
	}

	progress(Progress{Stage: StageDone, Percent: 100})
	return art, nil
}

// encodeFrames resamples every frame to width x height and streams the
// pixels into an ffv1 intermediate.
func (c *Converter) encodeFrames(ctx context.Context, req *Request, output string, height int, progress ProgressFunc) error {
	total := len(req.frames)
	progress(Progress{Stage: StageEncoding, Percent: 0})

	return c.trans.EncodeIntermediate(ctx, output, req.fps, req.width, height, func(w io.Writer) error {
		for i, f := range req.frames {
			if err := ctx.Err(); err != nil {
				return err
			}

			img := imaging.Resize(f.Image, req.width, height, imaging.Lanczos)
			if _, err := w.Write(img.Pix); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}

			if done := i + 1; done%progressEvery == 0 || done == total {
				progress(Progress{Stage: StageEncoding, Percent: done * 50 / total})
			}
		}
		return nil
	})
}

func removeIfExists(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("failed to remove %s: %v", path, err)
	}
}
