// Package transcoder runs the external ffmpeg tool.
//
// It supports:
//   - Transcoding a video file into a looping animated GIF
//   - Encoding raw RGBA frames piped on stdin into an intermediate container
//   - Probing media dimensions and duration through goffmpeg
//
// Every invocation is bounded by the configured timeout. On expiry the
// process is killed and reaped and the call fails with ErrConversionTimeout.
// Running processes are tracked so Cleanup can kill them on shutdown.
package transcoder
