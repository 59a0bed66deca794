// Package logging provides the leveled logger shared by the GIF Maker
// server and the live capture tool.
//
// Levels, from most to least verbose:
//   - DEBUG: ffmpeg command lines, frame pump details
//   - INFO: startup, conversions, recordings
//   - WARN: recoverable problems (cleanup failures, probe failures)
//   - ERROR: failed conversions and I/O errors
//
// The level comes from LOG_LEVEL, or DEBUG=true, and can be replaced at
// runtime with SetLevel.
package logging
