package capture

import (
	"errors"
	"sync"
	"testing"
)

func testSettings(maxFrames int) Settings {
	return Settings{MaxFrames: maxFrames, FPS: 8, Width: 320}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  bool
	}{
		{"defaults", testSettings(DefaultMaxFrames), false},
		{"minimum", testSettings(MinMaxFrames), false},
		{"maximum", testSettings(MaxMaxFrames), false},
		{"zero frames", testSettings(0), true},
		{"too many frames", testSettings(MaxMaxFrames + 1), true},
		{"zero fps", Settings{MaxFrames: 10, FPS: 0, Width: 320}, true},
		{"zero width", Settings{MaxFrames: 10, FPS: 8, Width: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("Validate() error = %v, want ErrInvalidSettings", err)
			}
		})
	}
}

func TestPushWhileDisarmedIsIgnored(t *testing.T) {
	b := NewBuffer()

	if got := b.Push(Frame{Seq: 1}); got != Ignored {
		t.Errorf("Push() on new buffer = %v, want ignored", got)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestCapEnforcement(t *testing.T) {
	b := NewBuffer()
	if err := b.Arm(testSettings(5)); err != nil {
		t.Fatalf("Arm() error = %v", err)
	}

	var results []PushResult
	for i := 1; i <= 12; i++ {
		results = append(results, b.Push(Frame{Seq: uint64(i)}))
	}

	for i, r := range results {
		want := Accepted
		switch {
		case i == 4:
			want = Capped
		case i > 4:
			want = Ignored
		}
		if r != want {
			t.Errorf("push %d = %v, want %v", i+1, r, want)
		}
	}

	if b.Armed() {
		t.Error("buffer still armed after reaching the cap")
	}

	frames := b.Disarm()
	if len(frames) != 5 {
		t.Fatalf("Disarm() returned %d frames, want 5", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint64(i+1) {
			t.Errorf("frame %d has seq %d, want %d", i, f.Seq, i+1)
		}
	}
}

func TestNoLeakAcrossSessions(t *testing.T) {
	b := NewBuffer()

	if err := b.Arm(testSettings(10)); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 3; i++ {
		b.Push(Frame{Seq: uint64(i)})
	}
	if got := len(b.Disarm()); got != 3 {
		t.Fatalf("first session Disarm() = %d frames, want 3", got)
	}

	if err := b.Arm(testSettings(10)); err != nil {
		t.Fatal(err)
	}
	b.Push(Frame{Seq: 100})
	b.Push(Frame{Seq: 101})

	frames := b.Disarm()
	if len(frames) != 2 || frames[0].Seq != 100 || frames[1].Seq != 101 {
		t.Errorf("second session frames = %+v, want seq 100 and 101 only", frames)
	}
}

func TestArmDiscardsUncollectedFrames(t *testing.T) {
	b := NewBuffer()

	_ = b.Arm(testSettings(2))
	b.Push(Frame{Seq: 1})
	b.Push(Frame{Seq: 2})

	_ = b.Arm(testSettings(2))
	if b.Len() != 0 {
		t.Errorf("Len() after re-arm = %d, want 0", b.Len())
	}
}

func TestDisarmTwice(t *testing.T) {
	b := NewBuffer()
	_ = b.Arm(testSettings(10))
	b.Push(Frame{Seq: 1})

	if got := len(b.Disarm()); got != 1 {
		t.Errorf("first Disarm() = %d frames, want 1", got)
	}
	if got := len(b.Disarm()); got != 0 {
		t.Errorf("second Disarm() = %d frames, want 0", got)
	}
}

func TestArmInvalidSettingsKeepsState(t *testing.T) {
	b := NewBuffer()
	if err := b.Arm(testSettings(0)); err == nil {
		t.Fatal("Arm() with zero frames should fail")
	}
	if b.Armed() {
		t.Error("buffer armed after invalid settings")
	}
}

func TestConcurrentPushAndDisarm(t *testing.T) {
	const maxFrames = 300

	b := NewBuffer()
	if err := b.Arm(testSettings(maxFrames)); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if r := b.Push(Frame{Seq: uint64(worker*1000 + i)}); r != Ignored {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}(w)
	}

	var frames []Frame
	wg.Add(1)
	go func() {
		defer wg.Done()
		frames = b.Disarm()
	}()

	wg.Wait()
	frames = append(frames, b.Disarm()...)

	if len(frames) > maxFrames {
		t.Errorf("collected %d frames, cap is %d", len(frames), maxFrames)
	}
	if len(frames) != accepted {
		t.Errorf("collected %d frames, %d pushes were accepted", len(frames), accepted)
	}
}

func TestPushResultString(t *testing.T) {
	tests := map[PushResult]string{
		Ignored:  "ignored",
		Accepted: "accepted",
		Capped:   "capped",
	}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("PushResult(%d).String() = %q, want %q", r, got, want)
		}
	}
}
