package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/urfave/cli/v3"

	"gif-maker-live/internal/capture"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/live"
	"gif-maker-live/internal/transcoder"
	"gif-maker-live/internal/transcoder/ffmpegtest"
)

func writeStills(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		img := imaging.New(64, 48, color.NRGBA{R: uint8(i * 40), A: 255})
		if err := imaging.Save(img, filepath.Join(dir, fmt.Sprintf("frame_%02d.png", i))); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFlagDefaults(t *testing.T) {
	want := map[string]string{
		"fps":        "8",
		"width":      "320",
		"max-frames": "150",
		"name":       "live_recording",
		"ffmpeg":     "ffmpeg",
		"timeout":    "2m0s",
	}

	for _, f := range command.Flags {
		name := f.Names()[0]
		expected, ok := want[name]
		if !ok {
			continue
		}
		var got string
		switch flag := f.(type) {
		case *cli.IntFlag:
			got = fmt.Sprint(flag.Value)
		case *cli.StringFlag:
			got = flag.Value
		case *cli.DurationFlag:
			got = flag.Value.String()
		}
		if got != expected {
			t.Errorf("--%s default = %q, want %q", name, got, expected)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("flag --%s not defined", name)
	}
}

func TestListCameras(t *testing.T) {
	var buf bytes.Buffer
	listCameras(&buf, []int{0, 2})
	if got := buf.String(); got != "Camera 0\nCamera 2\n" {
		t.Errorf("listCameras() = %q", got)
	}

	buf.Reset()
	listCameras(&buf, nil)
	if got := buf.String(); got != "No cameras found\n" {
		t.Errorf("listCameras(nil) = %q", got)
	}
}

func TestResolveOutputDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := resolveOutputDir("")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "Downloads"); got != want {
		t.Errorf("resolveOutputDir(\"\") = %q, want %q", got, want)
	}

	got, err = resolveOutputDir("gifs")
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "gifs" {
		t.Errorf("resolveOutputDir(\"gifs\") = %q", got)
	}
}

func TestBackendFramesDir(t *testing.T) {
	dir := writeStills(t, 2)
	open, enumerate := backend(dir, 10, false)

	if got := enumerate(); len(got) != 1 || got[0] != 0 {
		t.Errorf("enumerate() = %v, want [0]", got)
	}

	src, err := open(0)
	if err != nil {
		t.Fatalf("open(0) error = %v", err)
	}
	defer src.Close()

	frame, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if b := frame.Image.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("frame size = %dx%d, want 64x48", b.Dx(), b.Dy())
	}

	if _, err := open(1); !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Errorf("open(1) error = %v, want ErrDeviceUnavailable", err)
	}
}

func TestConsoleBreaksInlineStatus(t *testing.T) {
	var buf bytes.Buffer
	c := &console{w: &buf}

	c.status("Frames: %d", 3)
	c.line("Recording stopped")

	want := "\rFrames: 3\033[K\r\nRecording stopped\r\n"
	if got := buf.String(); got != want {
		t.Errorf("console output = %q, want %q", got, want)
	}
}

func newTestSession(t *testing.T, mode ffmpegtest.Mode) (*session, *bytes.Buffer) {
	t.Helper()

	fake := ffmpegtest.New(t, mode)
	trans := transcoder.New(transcoder.Config{FFmpegPath: fake.Path, Timeout: 5 * time.Second})
	settings := capture.Settings{MaxFrames: 20, FPS: 30, Width: 320}
	open, enumerate := backend(writeStills(t, 3), settings.FPS, true)

	ctrl, err := live.New(context.Background(), live.Config{
		Converter: conversion.New(trans, conversion.Options{TempDir: t.TempDir(), Workers: 1}),
		OutputDir: t.TempDir(),
		Settings:  settings,
		Open:      open,
		Enumerate: enumerate,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ctrl.Close() })

	var buf bytes.Buffer
	return &session{
		ctrl: ctrl,
		out:  &console{w: &buf},
		opts: sessionOptions{Name: "clip"},
		now:  time.Now,
	}, &buf
}

func waitFrames(t *testing.T, ctrl *live.Controller, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for ctrl.Frames() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d frames", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandleKey(t *testing.T) {
	s, out := newTestSession(t, ffmpegtest.Succeed)

	if s.handleKey('z') {
		t.Error("unbound key should not quit")
	}
	if s.handleKey('c') {
		t.Error("c should not quit")
	}
	if !strings.Contains(out.String(), "record something first") {
		t.Errorf("expected a hint about recording, got %q", out.String())
	}
	if !s.handleKey('q') {
		t.Error("q should quit when idle")
	}
	if !s.handleKey(keyCtrlC) {
		t.Error("Ctrl+C should quit when idle")
	}
}

func TestRecordAndCreateWithKeys(t *testing.T) {
	s, _ := newTestSession(t, ffmpegtest.Succeed)
	if err := s.ctrl.SwitchCamera(0); err != nil {
		t.Fatal(err)
	}

	s.handleKey('r')
	waitFrames(t, s.ctrl, 4)
	s.handleKey('r')
	s.handleKey('c')

	timeout := time.After(10 * time.Second)
	for {
		select {
		case e := <-s.ctrl.Events():
			if e.Kind != live.EventJobDone {
				continue
			}
			if e.Outcome.Status != conversion.Succeeded {
				t.Fatalf("outcome = %v: %v", e.Outcome.Status, e.Outcome.Err)
			}
			if !strings.HasPrefix(e.Outcome.Artifact.ID, "clip_") {
				t.Errorf("artifact id = %q, want clip_ prefix", e.Outcome.Artifact.ID)
			}
			return
		case <-timeout:
			t.Fatal("timed out waiting for the GIF")
		}
	}
}

func TestQuitNeedsConfirmationWhileBusy(t *testing.T) {
	s, out := newTestSession(t, ffmpegtest.Hang)
	if err := s.ctrl.SwitchCamera(0); err != nil {
		t.Fatal(err)
	}

	s.handleKey('r')
	waitFrames(t, s.ctrl, 2)
	s.handleKey('r')
	s.handleKey('c')
	if !s.ctrl.Busy() {
		t.Fatal("expected a running GIF job")
	}

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if s.handleKey('q') {
		t.Fatal("first q while busy should not quit")
	}
	if !strings.Contains(out.String(), "Press q again") {
		t.Errorf("expected a confirmation prompt, got %q", out.String())
	}

	now = now.Add(quitConfirmWindow + time.Second)
	if s.handleKey('q') {
		t.Fatal("q after the confirmation window should ask again")
	}

	now = now.Add(time.Second)
	if !s.handleKey('q') {
		t.Error("second q within the window should quit")
	}
}

func TestSettingKeys(t *testing.T) {
	s, _ := newTestSession(t, ffmpegtest.Succeed)

	for _, k := range []byte("FwwXx") {
		s.handleKey(k)
	}
	s.handleKey('X')

	got := s.ctrl.Settings()
	want := capture.Settings{MaxFrames: 50, FPS: conversion.ClampFPS(31), Width: 280}
	if got != want {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}

	for i := 0; i < 10; i++ {
		s.handleKey('x')
	}
	if got := s.ctrl.Settings().MaxFrames; got != capture.MinMaxFrames {
		t.Errorf("MaxFrames = %d, want %d", got, capture.MinMaxFrames)
	}
}

func TestSettingKeysRefusedWhileRecording(t *testing.T) {
	s, out := newTestSession(t, ffmpegtest.Succeed)
	if err := s.ctrl.SwitchCamera(0); err != nil {
		t.Fatal(err)
	}

	s.handleKey('r')
	s.handleKey('w')
	if got := s.ctrl.Settings().Width; got != 320 {
		t.Errorf("Width = %d while recording, want 320", got)
	}
	if !strings.Contains(out.String(), "Cannot change settings") {
		t.Errorf("expected a refusal, got %q", out.String())
	}
	s.handleKey('r')
}

func TestRenameKey(t *testing.T) {
	tests := []struct {
		name  string
		keys  string
		want  string
		quits bool
	}{
		{"enter keeps", "eholiday\r", "holiday", false},
		{"backspace", "eholidayy\x7f\r", "holiday", false},
		{"escape drops", "eholiday\x1b", "clip", false},
		{"invalid name", "ea/b\r", "clip", false},
		{"q is typed", "eq\rq", "q", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestSession(t, ffmpegtest.Succeed)
			quit := false
			for _, k := range []byte(tt.keys) {
				quit = s.handleKey(k)
			}
			if s.opts.Name != tt.want {
				t.Errorf("name = %q, want %q", s.opts.Name, tt.want)
			}
			if quit != tt.quits {
				t.Errorf("quit = %v, want %v", quit, tt.quits)
			}
		})
	}
}
