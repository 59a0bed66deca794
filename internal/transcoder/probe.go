package transcoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xfrr/goffmpeg/media"
)

// ErrProbeUnavailable is returned when no ffprobe belongs to the configured
// ffmpeg.
var ErrProbeUnavailable = errors.New("ffprobe not available")

// MediaInfo contains the dimensions and duration of a media file.
type MediaInfo struct {
	Width    int
	Height   int
	Codec    string
	Duration float64
}

// FFprobePath returns the ffprobe that ships with the configured ffmpeg: the
// sibling file when ffmpeg is given as a path, otherwise "ffprobe" on PATH.
func (t *Transcoder) FFprobePath() string {
	dir, base := filepath.Split(t.ffmpegPath)
	name := "ffprobe"
	if strings.EqualFold(filepath.Ext(base), ".exe") {
		name += ".exe"
	}
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// Probe reads the first video stream of path with the configured ffprobe,
// bounded by the same timeout as ffmpeg.
func (t *Transcoder) Probe(parent context.Context, path string) (*MediaInfo, error) {
	probe, err := exec.LookPath(t.FFprobePath())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProbeUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, probe,
		"-i", path, "-print_format", "json", "-show_format", "-show_streams", "-show_error")
	cmd.WaitDelay = waitDelay

	out, err := cmd.Output()
	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: probing %s", ErrConversionTimeout, filepath.Base(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return ParseProbeOutput(out)
}

// ParseProbeOutput decodes ffprobe's JSON report into MediaInfo.
func ParseProbeOutput(data []byte) (*MediaInfo, error) {
	var metadata media.Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("invalid ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	for _, stream := range metadata.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			info.Codec = stream.CodecName
			break
		}
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, errors.New("no video stream in ffprobe output")
	}

	info.Duration, _ = strconv.ParseFloat(metadata.Format.Duration, 64)
	return info, nil
}
