package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"gif-maker-live/internal/camera"
	"gif-maker-live/internal/capture"
	"gif-maker-live/internal/conversion"
	"gif-maker-live/internal/live"
	"gif-maker-live/internal/logging"
	"gif-maker-live/internal/transcoder"
)

var command = &cli.Command{
	Name:  "gifmaker-live",
	Usage: "Record a camera and turn the recording into an animated GIF",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "camera",
			Usage:   "Camera index to open first",
			Aliases: []string{"c"},
			Value:   0,
		},
		&cli.StringFlag{
			Name:  "frames-dir",
			Usage: "Replay still images from this directory instead of a camera",
		},
		&cli.BoolFlag{
			Name:  "list-cameras",
			Usage: "Print the camera indices that can be opened and exit",
		},
		&cli.BoolFlag{
			Name:  "loop",
			Usage: "Loop the --frames-dir sequence",
			Value: true,
		},
		&cli.IntFlag{
			Name:  "fps",
			Usage: "Frame rate of the GIF (1-30)",
			Value: 8,
		},
		&cli.IntFlag{
			Name:  "width",
			Usage: "Width of the GIF in pixels (100-800)",
			Value: conversion.DefaultWidth,
		},
		&cli.IntFlag{
			Name:  "max-frames",
			Usage: "Stop recording after this many frames (1-300)",
			Value: capture.DefaultMaxFrames,
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Base name of created GIFs",
			Value: "live_recording",
		},
		&cli.StringFlag{
			Name:  "output-dir",
			Usage: "Directory for created GIFs (default: ~/Downloads)",
		},
		&cli.StringFlag{
			Name:    "ffmpeg",
			Usage:   "ffmpeg executable",
			Value:   "ffmpeg",
			Sources: cli.EnvVars("FFMPEG_PATH"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Limit for a single ffmpeg run",
			Value:   transcoder.DefaultTimeout,
			Sources: cli.EnvVars("CONVERSION_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Log at debug level",
			Aliases: []string{"v"},
		},
	},
	Action: action,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func action(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		logging.SetLevel(logging.LevelDebug)
	} else if _, set := os.LookupEnv("LOG_LEVEL"); !set {
		// Info lines would interleave with the key prompt.
		logging.SetLevel(logging.LevelWarn)
	}

	if cmd.Bool("list-cameras") {
		listCameras(os.Stdout, camera.Enumerate())
		return nil
	}

	settings := capture.Settings{
		MaxFrames: int(cmd.Int("max-frames")),
		FPS:       conversion.ClampFPS(int(cmd.Int("fps"))),
		Width:     conversion.ClampWidth(int(cmd.Int("width"))),
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	outputDir, err := resolveOutputDir(cmd.String("output-dir"))
	if err != nil {
		return err
	}

	trans := transcoder.New(transcoder.Config{
		FFmpegPath: cmd.String("ffmpeg"),
		Timeout:    cmd.Duration("timeout"),
	})
	if err := trans.Available(); err != nil {
		logging.Warn("%v", err)
	}
	defer trans.Cleanup()

	open, enumerate := backend(cmd.String("frames-dir"), settings.FPS, cmd.Bool("loop"))

	ctrl, err := live.New(ctx, live.Config{
		Converter: conversion.New(trans, conversion.Options{Workers: 1}),
		OutputDir: outputDir,
		Settings:  settings,
		Open:      open,
		Enumerate: enumerate,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	return runSession(ctx, ctrl, sessionOptions{
		Name:   cmd.String("name"),
		Camera: int(cmd.Int("camera")),
		Output: outputDir,
	})
}

// backend picks the frame source: a still image directory when dir is set,
// otherwise the OpenCV cameras.
func backend(dir string, fps int, loop bool) (live.Opener, func() []int) {
	if dir != "" {
		open := func(selector int) (capture.Source, error) {
			if selector != 0 {
				return nil, fmt.Errorf("%w: %s has a single sequence", capture.ErrDeviceUnavailable, dir)
			}
			src, err := capture.OpenImageSequence(dir, fps, loop)
			if err != nil {
				return nil, err
			}
			return src, nil
		}
		return open, func() []int { return []int{0} }
	}

	open := func(selector int) (capture.Source, error) {
		src, err := camera.Open(selector)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return open, camera.Enumerate
}

// resolveOutputDir defaults to the Downloads folder in the home directory.
func resolveOutputDir(dir string) (string, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("no --output-dir given and no home directory: %w", err)
		}
		dir = filepath.Join(home, "Downloads")
	}
	return filepath.Abs(dir)
}
