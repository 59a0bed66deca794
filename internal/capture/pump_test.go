package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// sliceSource yields n frames, then fails with failErr or blocks until
// the context is canceled.
type sliceSource struct {
	n       int
	failErr error
	served  int
	closed  atomic.Bool
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if s.served < s.n {
		s.served++
		return Frame{Timestamp: time.Now(), Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}, nil
	}
	if s.failErr != nil {
		return Frame{}, s.failErr
	}
	<-ctx.Done()
	return Frame{}, ctx.Err()
}

func (s *sliceSource) Close() error {
	s.closed.Store(true)
	return nil
}

func TestPumpFillsBufferInOrder(t *testing.T) {
	src := &sliceSource{n: 10}
	buf := NewBuffer()
	if err := buf.Arm(testSettings(DefaultMaxFrames)); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var seen []uint64
	p := StartPump(context.Background(), src, buf, PumpOptions{
		OnFrame: func(f Frame, _ PushResult) {
			mu.Lock()
			seen = append(seen, f.Seq)
			mu.Unlock()
		},
	})

	deadline := time.Now().Add(5 * time.Second)
	for buf.Len() < 10 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	frames := buf.Disarm()
	if len(frames) != 10 {
		t.Fatalf("buffer holds %d frames, want 10", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint64(i+1) {
			t.Errorf("frame %d seq = %d, want %d", i, f.Seq, i+1)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 10 {
		t.Errorf("OnFrame called %d times, want 10", len(seen))
	}
	if !src.closed.Load() {
		t.Error("source not closed after Stop")
	}
}

func TestPumpReportsReadError(t *testing.T) {
	readErr := errors.New("device unplugged")
	src := &sliceSource{n: 2, failErr: readErr}

	errCh := make(chan error, 1)
	p := StartPump(context.Background(), src, nil, PumpOptions{
		OnError: func(err error) { errCh <- err },
	})

	select {
	case err := <-errCh:
		if !errors.Is(err, readErr) {
			t.Errorf("OnError() got %v, want %v", err, readErr)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnError was not called")
	}

	<-p.Done()
	if !errors.Is(p.Err(), readErr) {
		t.Errorf("Err() = %v, want %v", p.Err(), readErr)
	}
	if !src.closed.Load() {
		t.Error("source not closed after read error")
	}
}

func TestPumpStopDoesNotReportError(t *testing.T) {
	src := &sliceSource{}
	called := atomic.Bool{}

	p := StartPump(context.Background(), src, nil, PumpOptions{
		OnError: func(error) { called.Store(true) },
	})
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if called.Load() {
		t.Error("OnError called for a requested stop")
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil", p.Err())
	}
}

func TestPumpCapDisarmsBuffer(t *testing.T) {
	src := &sliceSource{n: 20}
	buf := NewBuffer()
	_ = buf.Arm(testSettings(5))

	capped := make(chan struct{}, 1)
	p := StartPump(context.Background(), src, buf, PumpOptions{
		OnFrame: func(_ Frame, r PushResult) {
			if r == Capped {
				capped <- struct{}{}
			}
		},
	})
	defer p.Stop()

	select {
	case <-capped:
	case <-time.After(5 * time.Second):
		t.Fatal("cap was never reached")
	}

	if buf.Armed() {
		t.Error("buffer still armed after cap")
	}
	if got := len(buf.Disarm()); got != 5 {
		t.Errorf("buffer holds %d frames, want 5", got)
	}
}
