package conversion

import (
	"context"
	"errors"

	"gif-maker-live/internal/artifacts"
	"gif-maker-live/internal/metrics"
	"gif-maker-live/internal/transcoder"
)

// Status is the terminal state of a job.
type Status int

const (
	Succeeded Status = iota
	Failed
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case TimedOut:
		return "timed out"
	default:
		return "failed"
	}
}

func (s Status) metricLabel() string {
	switch s {
	case Succeeded:
		return metrics.StatusSucceeded
	case TimedOut:
		return metrics.StatusTimedOut
	default:
		return metrics.StatusFailed
	}
}

// StatusOf classifies the error returned by Convert.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Succeeded
	case errors.Is(err, transcoder.ErrConversionTimeout):
		return TimedOut
	default:
		return Failed
	}
}

// Outcome is the single result of a job started with Start.
type Outcome struct {
	Status   Status
	Artifact *artifacts.Artifact
	Err      error
}

// Start runs req on its own goroutine. The returned channel delivers
// exactly one Outcome and is then closed.
func (c *Converter) Start(ctx context.Context, req *Request, progress ProgressFunc) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		art, err := c.Convert(ctx, req, progress)
		out <- Outcome{Status: StatusOf(err), Artifact: art, Err: err}
	}()
	return out
}
