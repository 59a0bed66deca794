// Package ffmpegtest provides a scripted stand-in for the ffmpeg executable
// so packages that shell out to it can be tested without the real tool.
package ffmpegtest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// Mode selects how the fake ffmpeg behaves.
type Mode int

const (
	// Succeed writes the output file and exits 0. Raw frames read from
	// stdin are copied to the output unchanged.
	Succeed Mode = iota
	// Fail prints an error to stderr and exits 1.
	Fail
	// Hang sleeps long enough for any sane timeout to expire.
	Hang
)

// GIFPayload is what the fake writes for a GIF output.
const GIFPayload = "GIF89a-fake-ffmpeg-output"

// Fake is a shell script installed in a temporary directory.
type Fake struct {
	Path     string
	callsLog string
	sizesLog string
}

// New installs a fake ffmpeg for the duration of the test. Tests are
// skipped on Windows, where the script cannot run.
func New(t testing.TB, mode Mode) *Fake {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg requires a POSIX shell")
	}

	dir := t.TempDir()
	f := &Fake{
		Path:     filepath.Join(dir, "ffmpeg"),
		callsLog: filepath.Join(dir, "calls.log"),
		sizesLog: filepath.Join(dir, "sizes.log"),
	}

	var body string
	switch mode {
	case Fail:
		body = "echo 'Invalid data found when processing input' >&2\nexit 1\n"
	case Hang:
		body = "exec sleep 30\n"
	default:
		body = fmt.Sprintf(`case " $* " in
*" rawvideo "*)
	cat > "$last"
	wc -c < "$last" | tr -d ' ' >> %q
	;;
*)
	printf '%%s' %q > "$last"
	;;
esac
`, f.sizesLog, GIFPayload)
	}

	script := fmt.Sprintf("#!/bin/sh\nprintf '%%s\\n' \"$*\" >> %q\nfor last; do :; done\n%s", f.callsLog, body)
	if err := os.WriteFile(f.Path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake ffmpeg: %v", err)
	}
	return f
}

// Calls returns the argument lists the fake was invoked with, one per call.
func (f *Fake) Calls() []string {
	data, err := os.ReadFile(f.callsLog)
	if err != nil {
		return nil
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// RawBytes returns the number of raw frame bytes received by each
// intermediate encode.
func (f *Fake) RawBytes() []int64 {
	data, err := os.ReadFile(f.sizesLog)
	if err != nil {
		return nil
	}
	var sizes []int64
	for _, line := range strings.Fields(string(data)) {
		n, err := strconv.ParseInt(line, 10, 64)
		if err == nil {
			sizes = append(sizes, n)
		}
	}
	return sizes
}
