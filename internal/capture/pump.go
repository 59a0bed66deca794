package capture

import (
	"context"
	"sync"

	"gif-maker-live/internal/logging"
)

// PumpOptions holds optional callbacks. Both run on the pump goroutine and
// must not block for long.
type PumpOptions struct {
	// OnFrame receives every frame with the result of pushing it.
	OnFrame func(Frame, PushResult)
	// OnError receives the error that stopped the pump. It is not called
	// when the pump is stopped through Stop or its context.
	OnError func(error)
}

// Pump pulls frames from a Source on its own goroutine and pushes them into
// a Buffer. The pump owns the source and closes it when it exits.
type Pump struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	err      error
	closeErr error
}

// StartPump starts pulling from src. buf may be nil for preview only.
func StartPump(ctx context.Context, src Source, buf *Buffer, opts PumpOptions) *Pump {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pump{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go p.run(ctx, src, buf, opts)
	return p
}

func (p *Pump) run(ctx context.Context, src Source, buf *Buffer, opts PumpOptions) {
	defer close(p.done)
	defer func() {
		if err := src.Close(); err != nil {
			logging.Warn("failed to close frame source: %v", err)
			p.mu.Lock()
			p.closeErr = err
			p.mu.Unlock()
		}
	}()

	var seq uint64
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Error("Frame source stopped: %v", err)
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			if opts.OnError != nil {
				opts.OnError(err)
			}
			return
		}

		seq++
		frame.Seq = seq

		result := Ignored
		if buf != nil {
			result = buf.Push(frame)
		}
		if opts.OnFrame != nil {
			opts.OnFrame(frame, result)
		}
	}
}

// Stop cancels the pump, waits for it to exit and returns the error from
// closing the source, if any.
func (p *Pump) Stop() error {
	p.cancel()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeErr
}

// Done is closed once the pump has exited and released its source.
func (p *Pump) Done() <-chan struct{} {
	return p.done
}

// Err returns the error that stopped the pump, or nil.
func (p *Pump) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
